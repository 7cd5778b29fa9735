// Package alarm is the alarm evaluator: cooling/heating
// ineffectiveness timers, sensor-range checks, and the shutdown/warning
// code set.
package alarm

import (
	"time"

	"github.com/coldroom/coldroom-ctl/internal/world"
)

const (
	ineffectiveWindow = 30 * time.Minute
	ineffectiveOffset = 4.0

	sensorRangeMin = -50.0
	sensorRangeMax = 150.0

	// sensorSentinel mirrors sensors.InvalidTemperature: the value World's
	// Return/Supply/Coil cells hold before the sensor task's first tick.
	sensorSentinel = -327.0
)

const (
	CodeCoolingIneffective = 1001
	CodeHeatingIneffective = 1002
	CodeDefrostTimeout     = 1004
	CodeReturnSensor       = 2000
	CodeCoilSensor         = 2001
	CodeSupplySensor       = 2002
)

// Inputs is one tick's alarm-relevant snapshot.
type Inputs struct {
	Mode                 world.Mode
	Return, Supply, Coil float64
	Now                  time.Time
}

// Result is what the caller should apply: the newly raised codes, split by
// severity.
type Result struct {
	ShutdownCodes []int
	WarningCodes  []int
}

// Evaluator holds the two stable-state timers.
type Evaluator struct {
	coolingTimerActive bool
	coolingStart       time.Time
	heatingTimerActive bool
	heatingStart       time.Time

	// primed latches true once any probe has reported something other
	// than the boot-time sentinel, so the range checks don't fire against
	// World's not-yet-read initial values before the sensor task's first
	// tick lands.
	primed bool
}

// New creates an Evaluator with both timers disengaged.
func New() *Evaluator {
	return &Evaluator{}
}

// ClearTimers disengages both direction timers.
func (e *Evaluator) ClearTimers() {
	e.coolingTimerActive = false
	e.heatingTimerActive = false
}

// Evaluate runs one tick of the alarm checks and returns any newly raised
// codes. Sensor-range checks run on every tick once a probe has reported
// its first real reading; the ineffectiveness timers only advance while
// the matching mode is active, and leaving that mode (or engaging the
// opposite direction) resets the other timer.
func (e *Evaluator) Evaluate(in Inputs) Result {
	var res Result

	if !e.primed {
		if in.Return != sensorSentinel || in.Supply != sensorSentinel || in.Coil != sensorSentinel {
			e.primed = true
		}
	}

	if e.primed {
		if in.Return < sensorRangeMin || in.Return > sensorRangeMax {
			res.ShutdownCodes = append(res.ShutdownCodes, CodeReturnSensor)
		}
		if in.Coil < sensorRangeMin || in.Coil > sensorRangeMax {
			res.ShutdownCodes = append(res.ShutdownCodes, CodeCoilSensor)
		}
		if in.Supply < sensorRangeMin || in.Supply > sensorRangeMax {
			res.WarningCodes = append(res.WarningCodes, CodeSupplySensor)
		}
	}

	switch in.Mode {
	case world.ModeCooling:
		if e.coolingAlarm(in) {
			res.ShutdownCodes = append(res.ShutdownCodes, CodeCoolingIneffective)
		}
	case world.ModeHeating:
		if e.heatingAlarm(in) {
			res.ShutdownCodes = append(res.ShutdownCodes, CodeHeatingIneffective)
		}
	default:
		e.ClearTimers()
	}

	return res
}

func (e *Evaluator) coolingAlarm(in Inputs) bool {
	e.heatingTimerActive = false

	if in.Return-ineffectiveOffset <= in.Supply && in.Return > 30 {
		if !e.coolingTimerActive {
			e.coolingStart = in.Now
			e.coolingTimerActive = true
			return false
		}
		return in.Now.Sub(e.coolingStart) >= ineffectiveWindow
	}
	e.coolingTimerActive = false
	return false
}

func (e *Evaluator) heatingAlarm(in Inputs) bool {
	e.coolingTimerActive = false

	if in.Return+ineffectiveOffset >= in.Supply && in.Return < 60 {
		if !e.heatingTimerActive {
			e.heatingStart = in.Now
			e.heatingTimerActive = true
			return false
		}
		return in.Now.Sub(e.heatingStart) >= ineffectiveWindow
	}
	e.heatingTimerActive = false
	return false
}

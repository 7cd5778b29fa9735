package control

import (
	"time"

	"github.com/coldroom/coldroom-ctl/internal/world"
)

// relaysForMode is the requested (pre-polarity, pre-fan_continuous) relay
// vector for each steady-state mode.
func relaysForMode(mode world.Mode) world.RelayVector {
	switch mode {
	case world.ModeCooling:
		return world.RelayVector{Compressor: true, Fan: true}
	case world.ModeHeating:
		return world.RelayVector{Compressor: true, Fan: true, Valve: true, ElectricHeater: true}
	case world.ModeDefrost:
		return world.RelayVector{Compressor: true, Valve: true, ElectricHeater: true}
	default: // Null, Alarm, Pretrip-* (each pretrip stage supplies its own table entry)
		return world.RelayVector{}
	}
}

// ApplyFanContinuous forces the fan bit on ahead of polarity mapping when
// fan_continuous is enabled and the mode is not Alarm or Defrost.
func ApplyFanContinuous(mode world.Mode, relays world.RelayVector, fanContinuous bool) world.RelayVector {
	if fanContinuous && mode != world.ModeAlarm && mode != world.ModeDefrost {
		relays.Fan = true
	}
	return relays
}

// WithoutElectricHeater suppresses the heater bit for units configured
// without one.
func WithoutElectricHeater(relays world.RelayVector, present bool) world.RelayVector {
	if !present {
		relays.ElectricHeater = false
	}
	return relays
}

// RelayLevel maps a requested (energised) bit to the physical GPIO level per
// the unit's active-low/active-high polarity.
func RelayLevel(activeLow, requested bool) bool {
	return activeLow != requested
}

func enterNull(now time.Time) Decision {
	return Decision{
		Mode:                    world.ModeNull,
		Relays:                  relaysForMode(world.ModeNull),
		ModeEntered:             true,
		StampCompressorLastStop: true,
		DebugEvent:              "mode -> Null",
	}
}

func enterCooling(now time.Time) Decision {
	return Decision{
		Mode:        world.ModeCooling,
		Relays:      relaysForMode(world.ModeCooling),
		ModeEntered: true,
		DebugEvent:  "mode -> Cooling",
	}
}

func enterHeating(now time.Time) Decision {
	return Decision{
		Mode:        world.ModeHeating,
		Relays:      relaysForMode(world.ModeHeating),
		ModeEntered: true,
		DebugEvent:  "mode -> Heating",
	}
}

func enterDefrost(now time.Time) Decision {
	return Decision{
		Mode:              world.ModeDefrost,
		Relays:            relaysForMode(world.ModeDefrost),
		ModeEntered:       true,
		StampDefrostStart: true,
		DebugEvent:        "mode -> Defrost",
	}
}

// EnterAlarm is exported for the alarm evaluator; it is the
// only mode-entry function a caller besides Evaluate invokes directly.
// ClearDefrostStart is set so a shutdown alarm raised while mode == Defrost
// still clears the timestamp, keeping defrost_start_time == 0 iff
// mode != Defrost.
func EnterAlarm() Decision {
	return Decision{
		Mode:              world.ModeAlarm,
		Relays:            relaysForMode(world.ModeAlarm),
		ModeEntered:       true,
		ClearDefrostStart: true,
		DebugEvent:        "mode -> Alarm",
	}
}

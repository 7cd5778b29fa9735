package sensors

import (
	"fmt"
	"time"

	"github.com/coldroom/coldroom-ctl/internal/config"
	"github.com/coldroom/coldroom-ctl/internal/control"
	"github.com/coldroom/coldroom-ctl/internal/gpio"
	"github.com/coldroom/coldroom-ctl/internal/logging"
	"github.com/coldroom/coldroom-ctl/internal/world"
)

const taskInterval = 1 * time.Second

// relayState tracks which physical relays the task last wrote, for the
// conditions log's on/off strings and for the run-accumulator's edge
// detection.
type relayState struct {
	Compressor, Fan, Valve, ElectricHeater bool
}

// AlarmRaiser is the narrow slice of the alarm evaluator the pretrip
// sequencer drives directly. Defined locally, as
// buttons.AlarmResetter is, to avoid importing the concrete alarm package.
type AlarmRaiser interface {
	RaiseShutdown(code int)
	RaiseWarning(code int)
}

// Task is the sensor/control task.
type Task struct {
	world   *world.World
	cfg     *config.Config
	prober  Prober
	writer  gpio.Writer
	log     *logging.Log

	lastLog   time.Time
	lastState relayState

	pretrip *control.PretripState

	// OnRelayChange, if set, is called after every relay write with the
	// requested (pre-polarity) vector and the tick's timestamp, letting the
	// run-time accumulator observe compressor on/off edges without
	// this task owning that bookkeeping.
	OnRelayChange func(relays world.RelayVector, now time.Time)

	// Alarms, if set, receives the pretrip sequencer's shutdown/warning
	// codes. Left nil in tests that do not exercise pretrip.
	Alarms AlarmRaiser
}

// NewTask wires a sensor task over its collaborators. prober is either a
// RealProber, a DemoProber, or a FakeProber in tests.
func NewTask(w *world.World, cfg *config.Config, prober Prober, writer gpio.Writer, log *logging.Log) *Task {
	return &Task{world: w, cfg: cfg, prober: prober, writer: writer, log: log}
}

// Run drives the task at 1 Hz until stop fires or world.Running goes false.
func (t *Task) Run(stop <-chan struct{}) error {
	ticker := time.NewTicker(taskInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return t.shutdown()
		case now := <-ticker.C:
			if !t.world.Running.Load() {
				return t.shutdown()
			}
			if err := t.Tick(now); err != nil {
				t.logError(fmt.Sprintf("sensor task: %v", err))
			}
		}
	}
}

// Tick runs one iteration: acquire, validate, publish, evaluate, and log.
func (t *Task) Tick(now time.Time) error {
	ret, sup, coil := t.sense()
	setpoint := t.world.Setpoint.Load()

	if t.world.PretripEnable.Load() {
		t.tickPretrip(ret, sup, coil, now)
		return nil
	}
	t.pretrip = nil

	mode, _ := t.world.Status.Snapshot()
	if mode == "" {
		// A fresh World has no mode yet; control starts from Null.
		mode = world.ModeNull
	}

	decision := control.Evaluate(control.Inputs{
		Return:   ret,
		Supply:   sup,
		Coil:     coil,
		Setpoint: setpoint,
		Now:      now,
	}, mode, control.Timers{
		CompressorLastStop: t.world.CompressorLastStop.Load(),
		DefrostLastTime:    t.world.DefrostLastTime.Load(),
		DefrostStartTime:   t.world.DefrostStartTime.Load(),
	}, control.Flags{
		TriggerDefrost: t.world.TriggerDefrost.Load(),
		PretripEnable:  false,
		ShutdownAlarm:  t.world.ShutdownAlarm.Load(),
	}, t.cfg)

	t.apply(decision, now)

	if now.Sub(t.lastLog) >= time.Duration(t.cfg.LoggingIntervalSec())*time.Second {
		t.lastLog = now
		t.logConditions(decision.Mode, decision.Relays, ret, sup, coil, setpoint)
	}

	return nil
}

// sense acquires and validates one round of sensor readings, publishing
// them to the world unconditionally.
func (t *Task) sense() (ret, sup, coil float64) {
	reading := t.prober.Sense()
	ret = validate(reading.Return)
	sup = validate(reading.Supply)
	coil = validate(reading.Coil)

	t.world.Return.Store(ret)
	t.world.Supply.Store(sup)
	t.world.Coil.Store(coil)
	return ret, sup, coil
}

// tickPretrip drives the four-stage diagnostic sequencer in place of the
// normal control evaluation: pretrip is evaluated inside the control tick,
// not as its own thread.
func (t *Task) tickPretrip(ret, sup, coil float64, now time.Time) {
	if t.pretrip == nil {
		st := control.NewPretripState(now)
		t.pretrip = &st
	}

	res := control.EvaluatePretrip(control.Inputs{
		Return: ret,
		Supply: sup,
		Coil:   coil,
		Now:    now,
	}, *t.pretrip)
	*t.pretrip = res.Next

	if res.AlarmCode != 0 {
		t.world.PretripEnable.Store(false)
		t.pretrip = nil
		if t.Alarms != nil {
			t.Alarms.RaiseShutdown(res.AlarmCode)
		}
		if res.DebugEvent != "" {
			t.logDebug(res.DebugEvent)
		}
		return
	}

	relays := control.WithoutElectricHeater(res.Relays, t.cfg.ElectricHeaterPresent())
	t.world.Status.Set(res.Mode, relays)
	t.writeRelays(relays)
	if t.OnRelayChange != nil {
		t.OnRelayChange(relays, now)
	}
	if res.DebugEvent != "" {
		t.logDebug(res.DebugEvent)
	}

	if res.Done {
		t.world.PretripEnable.Store(false)
		t.pretrip = nil
		if res.WarningCode != 0 && t.Alarms != nil {
			t.Alarms.RaiseWarning(res.WarningCode)
		}
	}
}

func (t *Task) apply(d control.Decision, now time.Time) {
	relays := control.WithoutElectricHeater(d.Relays, t.cfg.ElectricHeaterPresent())
	relays = control.ApplyFanContinuous(d.Mode, relays, t.cfg.FanContinuous())
	t.world.Status.Set(d.Mode, relays)

	if d.ModeEntered {
		t.world.StateTimer.Store(now)
	}
	if d.StampCompressorLastStop {
		t.world.CompressorLastStop.Store(now)
	}
	if d.StampDefrostStart {
		t.world.DefrostStartTime.Store(now)
		t.world.DefrostLastTime.Store(now)
	}
	if d.ClearDefrostStart {
		t.world.DefrostStartTime.Store(time.Time{})
		t.world.DefrostLastTime.Store(now)
	}
	if d.ClearTriggerDefrost {
		t.world.TriggerDefrost.Store(false)
	}

	wasActive := t.world.AntiTimerActive.Load()
	t.world.AntiTimerActive.Store(d.AntiTimerActive)
	if d.AntiTimerActive && !wasActive {
		t.logDebug("anti-cycle timer engaged")
	}

	if d.WarningAlarm != 0 {
		if t.world.Alarms.Add(d.WarningAlarm) {
			t.world.WarningAlarm.Store(true)
		}
	}
	if d.DebugEvent != "" {
		t.logDebug(d.DebugEvent)
	}

	t.writeRelays(relays)
	if t.OnRelayChange != nil {
		t.OnRelayChange(relays, now)
	}
}

func (t *Task) writeRelays(relays world.RelayVector) {
	if t.writer == nil {
		return
	}
	activeLow := t.cfg.RelayActiveLow()
	state := relayState{relays.Compressor, relays.Fan, relays.Valve, relays.ElectricHeater}
	if state == t.lastState {
		return
	}
	t.lastState = state

	writes := []struct {
		relay   gpio.Relay
		request bool
	}{
		{gpio.RelayCompressor, relays.Compressor},
		{gpio.RelayFan, relays.Fan},
		{gpio.RelayValve, relays.Valve},
		{gpio.RelayElectricHeater, relays.ElectricHeater},
	}
	for _, w := range writes {
		if err := t.writer.Write(w.relay, control.RelayLevel(activeLow, w.request)); err != nil {
			t.logError(fmt.Sprintf("relay write %v: %v", w.relay, err))
		}
	}
}

// shutdown applies the de-energised relay vector before the task exits.
// lastState is invalidated first so every line is written even when the
// last tick already requested all relays off.
func (t *Task) shutdown() error {
	t.lastState = relayState{Compressor: true, Fan: true, Valve: true, ElectricHeater: true}
	t.writeRelays(world.RelayVector{})
	return nil
}

func (t *Task) logConditions(mode world.Mode, relays world.RelayVector, ret, sup, coil, setpoint float64) {
	if t.log == nil {
		return
	}
	heater := onOff(relays.ElectricHeater)
	if !t.cfg.ElectricHeaterPresent() {
		heater = "N/A"
	}
	_ = t.log.Conditions(logging.Conditions{
		Setpoint:       setpoint,
		Return:         ret,
		Coil:           coil,
		Supply:         sup,
		Status:         string(mode),
		Compressor:     onOff(relays.Compressor),
		Fan:            onOff(relays.Fan),
		Valve:          onOff(relays.Valve),
		ElectricHeater: heater,
	})
}

func onOff(v bool) string {
	if v {
		return "On"
	}
	return "Off"
}

func (t *Task) logDebug(msg string) {
	if t.log != nil {
		_ = t.log.Debugf("%s", msg)
	}
}

func (t *Task) logError(msg string) {
	if t.log != nil {
		_ = t.log.Errorf("%s", msg)
	}
}

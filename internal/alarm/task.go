package alarm

import (
	"fmt"
	"time"

	"github.com/coldroom/coldroom-ctl/internal/control"
	"github.com/coldroom/coldroom-ctl/internal/logging"
	"github.com/coldroom/coldroom-ctl/internal/world"
)

const taskInterval = 1 * time.Second

// Task drives an Evaluator at 1 Hz and owns the shared shutdown/warning
// flags and alarm code set. It also satisfies buttons.AlarmResetter, so the
// button task can reset alarms without importing this package's
// concrete type.
type Task struct {
	world *world.World
	log   *logging.Log
	eval  *Evaluator
}

// NewTask wires an alarm task over its collaborators.
func NewTask(w *world.World, log *logging.Log) *Task {
	return &Task{world: w, log: log, eval: New()}
}

// Run drives the task at 1 Hz until stop fires or world.Running goes false.
func (t *Task) Run(stop <-chan struct{}) error {
	ticker := time.NewTicker(taskInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return nil
		case now := <-ticker.C:
			if !t.world.Running.Load() {
				return nil
			}
			t.Tick(now)
		}
	}
}

// Tick runs one iteration of the alarm checks and applies any newly raised
// codes to the shared world.
func (t *Task) Tick(now time.Time) {
	mode, _ := t.world.Status.Snapshot()
	res := t.eval.Evaluate(Inputs{
		Mode:   mode,
		Return: t.world.Return.Load(),
		Supply: t.world.Supply.Load(),
		Coil:   t.world.Coil.Load(),
		Now:    now,
	})

	for _, code := range res.ShutdownCodes {
		t.RaiseShutdown(code)
	}
	for _, code := range res.WarningCodes {
		t.RaiseWarning(code)
	}
}

// RaiseShutdown records a shutdown-severity code, entering Alarm mode if
// this is the first shutdown code of the session. Safe to
// call from other tasks that detect a shutdown condition directly (the
// pretrip sequencer, through the sensor task).
func (t *Task) RaiseShutdown(code int) {
	newlyActive := !t.world.ShutdownAlarm.Load()
	t.world.ShutdownAlarm.Store(true)
	if t.world.Alarms.Add(code) {
		t.logError(fmt.Sprintf("ALARM TRIGGERED: shutdown code %d", code))
	}
	if newlyActive {
		d := control.EnterAlarm()
		t.world.Status.Set(d.Mode, d.Relays)
		t.world.StateTimer.Store(time.Now())
		if d.ClearDefrostStart {
			t.world.DefrostStartTime.Store(time.Time{})
		}
	}
}

// RaiseWarning records a warning-severity code without stopping control.
func (t *Task) RaiseWarning(code int) {
	t.world.WarningAlarm.Store(true)
	if t.world.Alarms.Add(code) {
		t.logError(fmt.Sprintf("ALARM TRIGGERED: warning code %d", code))
	}
}

// Active reports whether any alarm, shutdown or warning, is currently set
// (satisfies buttons.AlarmResetter).
func (t *Task) Active() bool {
	return t.world.ShutdownAlarm.Load() || t.world.WarningAlarm.Load()
}

// Reset clears both flags, the timers, and the code set, and emits an
// "Error"-level event. The next control tick sees
// shutdown_alarm false and transitions Alarm -> Null on its own.
func (t *Task) Reset() {
	t.world.ShutdownAlarm.Store(false)
	t.world.WarningAlarm.Store(false)
	t.eval.ClearTimers()
	t.world.Alarms.Reset()
	t.logError("All alarms reset.")
}

func (t *Task) logError(msg string) {
	if t.log != nil {
		_ = t.log.Errorf("%s", msg)
	}
}

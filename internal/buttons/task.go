package buttons

import (
	"fmt"
	"time"

	"github.com/coldroom/coldroom-ctl/internal/config"
	"github.com/coldroom/coldroom-ctl/internal/gpio"
	"github.com/coldroom/coldroom-ctl/internal/logging"
	"github.com/coldroom/coldroom-ctl/internal/world"
)

// Hotspot is the Wi-Fi collaborator, out of scope beyond
// this interface: "request hotspot start, idempotent if already active".
type Hotspot interface {
	RequestStart() error
}

// AlarmResetter is the narrow slice of the alarm evaluator the button task
// drives: whether any alarm is currently active, and how to reset. Narrowing to an interface here (rather than importing the alarm
// package concretely) avoids a cycle; the alarm evaluator does not need to
// know about buttons.
type AlarmResetter interface {
	Active() bool
	Reset()
}

const debounceWindow = 30 * time.Millisecond
const taskInterval = 100 * time.Millisecond

// Task is the setpoint/button task.
type Task struct {
	world   *world.World
	cfg     *config.Config
	reader  gpio.Reader
	log     *logging.Log
	hotspot Hotspot
	alarms  AlarmResetter

	detector *Detector
	edit     *EditFSM
}

// NewTask wires a button task over its collaborators.
func NewTask(w *world.World, cfg *config.Config, reader gpio.Reader, log *logging.Log, hotspot Hotspot, alarms AlarmResetter) *Task {
	return &Task{
		world:    w,
		cfg:      cfg,
		reader:   reader,
		log:      log,
		hotspot:  hotspot,
		alarms:   alarms,
		detector: NewDetector(debounceWindow),
		edit:     NewEditFSM(),
	}
}

// Run drives the task at 100 ms granularity until stop fires or
// world.Running goes false. Errors are returned to the caller's supervisor
// rather than swallowed here.
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
			if err := t.Tick(now); err != nil {
				return err
			}
		}
	}
}

// Tick runs one iteration: debounced read, mode-trigger edge detection, and
// the setpoint-edit sub-machine.
func (t *Task) Tick(now time.Time) error {
	raw, err := t.reader.Read()
	if err != nil {
		return fmt.Errorf("read buttons: %w", err)
	}

	// The lines are active-low at the pin (internal pull-ups); Reader
	// returns the raw electrical level, so a pressed button reads false.
	sample := map[Channel]bool{
		ChannelUp:      !raw[gpio.ButtonUp],
		ChannelDown:    !raw[gpio.ButtonDown],
		ChannelDefrost: !raw[gpio.ButtonDefrost],
		ChannelAlarm:   !raw[gpio.ButtonAlarm],
	}
	changed := t.detector.Process(sample, now)

	if changed[ChannelDefrost] {
		if t.detector.Pressed(ChannelDefrost) {
			t.world.DefrostPressStart.Store(now)
		} else if !t.world.DefrostPressStart.IsZero() {
			t.handleDefrostRelease(now)
		}
	}

	alarmEdgeForEdit := false
	if changed[ChannelAlarm] {
		if t.detector.Pressed(ChannelAlarm) {
			t.world.AlarmPressStart.Store(now)
		} else if t.edit.State() == EditEditing {
			alarmEdgeForEdit = true
		} else if !t.world.AlarmPressStart.IsZero() {
			t.handleAlarmRelease(now)
		}
	}

	upEdge := changed[ChannelUp] && t.detector.Pressed(ChannelUp)
	downEdge := changed[ChannelDown] && t.detector.Pressed(ChannelDown)

	res := t.edit.Step(Input{
		Now:         now,
		UpHeldFor:   t.detector.HeldFor(ChannelUp, now),
		DownHeldFor: t.detector.HeldFor(ChannelDown, now),
		UpEdge:      upEdge,
		DownEdge:    downEdge,
		AlarmEdge:   alarmEdgeForEdit,
		Setpoint:    t.world.Setpoint.Load(),
		Min:         t.cfg.SetpointMin(),
		Max:         t.cfg.SetpointMax(),
	})

	wasEditing := t.world.SetpointEdit.Load()
	nowEditing := res.State == EditEditing
	t.world.SetpointEdit.Store(nowEditing)
	if nowEditing && !wasEditing {
		t.world.EditModeActiveSince.Store(now)
	} else if !nowEditing {
		t.world.EditModeActiveSince.Store(time.Time{})
	}

	if res.SetpointChanged {
		t.world.Setpoint.Store(res.NewSetpoint)
	}
	if res.Commit {
		if err := t.cfg.Save("setpoint", fmt.Sprintf("%.1f", t.world.Setpoint.Load())); err != nil {
			t.logError(fmt.Sprintf("setpoint commit failed: %v", err))
		}
	}
	if res.DebugEvent != "" {
		t.logDebug(res.DebugEvent)
	}

	return nil
}

func (t *Task) handleDefrostRelease(now time.Time) {
	held := now.Sub(t.world.DefrostPressStart.Load())
	sp := int(t.world.Setpoint.Load())

	switch {
	case held < 5*time.Second:
		t.world.TriggerDefrost.Store(true)
		t.logDebug("defrost button: short press, trigger_defrost set")
	case sp == 65:
		t.world.PretripEnable.Store(true)
		t.logDebug("defrost button: long press at setpoint 65, pretrip_enable set")
	case sp == 80:
		next := !t.world.DemoMode.Load()
		t.world.DemoMode.Store(next)
		t.logDebug(fmt.Sprintf("defrost button: long press at setpoint 80, demo_mode -> %v", next))
	default:
		t.logDebug("defrost button: long press, no action at this setpoint")
	}
}

func (t *Task) handleAlarmRelease(now time.Time) {
	held := now.Sub(t.world.AlarmPressStart.Load())
	sp := int(t.world.Setpoint.Load())

	switch {
	case held >= 10*time.Second && sp == 65:
		if t.hotspot == nil {
			return
		}
		if err := t.hotspot.RequestStart(); err != nil {
			t.logError(fmt.Sprintf("hotspot request failed: %v", err))
			return
		}
		t.logDebug("alarm button: long press at setpoint 65, hotspot requested")
	case held >= 5*time.Second && sp != 65:
		if t.alarms == nil || !t.alarms.Active() {
			return
		}
		t.alarms.Reset()
		t.logDebug("alarm button: long press, alarms reset")
	}
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

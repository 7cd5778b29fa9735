package buttons

import (
	"time"

	"github.com/coldroom/coldroom-ctl/internal/world"
)

// EditState is the setpoint-edit sub-machine's state.
type EditState int

const (
	EditIdle EditState = iota
	EditEntering
	EditEditing
)

func (s EditState) String() string {
	switch s {
	case EditEntering:
		return "Entering"
	case EditEditing:
		return "Editing"
	default:
		return "Idle"
	}
}

const (
	editEnterHold   = 2 * time.Second
	editFastHold    = 4 * time.Second
	editIdleTimeout = 10 * time.Second
	editSmallStep   = 1.0
	editFastStep    = 5.0
	editRepeatEvery = 1 * time.Second
)

// EditFSM is the Idle/Entering/Editing/Committed sub-machine.
// "Committed" is not a resting state here: committing is the act of
// persisting and transitioning straight back to Idle within one Step.
type EditFSM struct {
	state             EditState
	editStartSetpoint float64
	lastActivityAt    time.Time

	// lastStepAt is when a step (edge or repeat) was last applied while
	// Editing, so a continuously held button can auto-repeat without
	// depending on a new debounce edge, which a held line never produces
	// again until it is released.
	lastStepAt time.Time
}

// NewEditFSM creates an EditFSM at rest in Idle.
func NewEditFSM() *EditFSM {
	return &EditFSM{state: EditIdle}
}

// State returns the sub-machine's current state.
func (f *EditFSM) State() EditState {
	return f.state
}

// Input is one tick's button/setpoint snapshot relevant to the edit
// sub-machine.
type Input struct {
	Now                    time.Time
	UpHeldFor, DownHeldFor time.Duration
	UpEdge, DownEdge       bool // new press this tick (debounced rising edge)
	AlarmEdge              bool // ALARM release edge (commits the edit)
	Setpoint               float64
	Min, Max               float64
}

// Result is what the caller should apply to World after one Step.
type Result struct {
	State           EditState
	NewSetpoint     float64
	SetpointChanged bool
	Commit          bool // persist NewSetpoint to config
	DebugEvent      string
}

// Step advances the sub-machine by one button-task tick.
func (f *EditFSM) Step(in Input) Result {
	switch f.state {
	case EditIdle:
		return f.stepIdle(in)
	case EditEntering:
		return f.stepEntering(in)
	default:
		return f.stepEditing(in)
	}
}

func (f *EditFSM) stepIdle(in Input) Result {
	if in.UpHeldFor > 0 || in.DownHeldFor > 0 {
		if held := maxDuration(in.UpHeldFor, in.DownHeldFor); held >= editEnterHold {
			return f.enterEditing(in)
		}
		f.state = EditEntering
		return Result{State: EditEntering}
	}
	return Result{State: EditIdle}
}

func (f *EditFSM) stepEntering(in Input) Result {
	if in.UpHeldFor == 0 && in.DownHeldFor == 0 {
		f.state = EditIdle
		return Result{State: EditIdle}
	}
	if held := maxDuration(in.UpHeldFor, in.DownHeldFor); held >= editEnterHold {
		return f.enterEditing(in)
	}
	return Result{State: EditEntering}
}

func (f *EditFSM) enterEditing(in Input) Result {
	f.state = EditEditing
	f.editStartSetpoint = in.Setpoint
	f.lastActivityAt = in.Now
	f.lastStepAt = in.Now
	return Result{State: EditEditing, DebugEvent: "setpoint edit: entered"}
}

func (f *EditFSM) stepEditing(in Input) Result {
	if in.Now.Sub(f.lastActivityAt) >= editIdleTimeout {
		f.state = EditIdle
		return Result{
			State:           EditIdle,
			NewSetpoint:     f.editStartSetpoint,
			SetpointChanged: true,
			DebugEvent:      "setpoint edit: idle timeout, reverted",
		}
	}

	if in.AlarmEdge {
		f.state = EditIdle
		return Result{State: EditIdle, Commit: true, DebugEvent: "setpoint edit: committed"}
	}

	step := editSmallStep
	if maxDuration(in.UpHeldFor, in.DownHeldFor) >= editFastHold {
		step = editFastStep
	}

	// A new press (edge) always steps. A line that is still held but
	// produced no edge this tick (the normal case past the first tick of a
	// hold) steps again once editRepeatEvery has elapsed since the last
	// step, so holding UP/DOWN auto-repeats instead of firing once.
	switch {
	case in.UpEdge, in.UpHeldFor > 0 && in.Now.Sub(f.lastStepAt) >= editRepeatEvery:
		f.lastActivityAt = in.Now
		f.lastStepAt = in.Now
		return Result{
			State:           EditEditing,
			NewSetpoint:     world.ClampSetpoint(in.Setpoint+step, in.Min, in.Max),
			SetpointChanged: true,
		}
	case in.DownEdge, in.DownHeldFor > 0 && in.Now.Sub(f.lastStepAt) >= editRepeatEvery:
		f.lastActivityAt = in.Now
		f.lastStepAt = in.Now
		return Result{
			State:           EditEditing,
			NewSetpoint:     world.ClampSetpoint(in.Setpoint-step, in.Min, in.Max),
			SetpointChanged: true,
		}
	}
	return Result{State: EditEditing}
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}

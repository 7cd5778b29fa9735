package control

import (
	"time"

	"github.com/coldroom/coldroom-ctl/internal/world"
)

// PretripStage is the sequencer's tagged-sum state.
type PretripStage int

const (
	PretripCooling1 PretripStage = iota + 1
	PretripHeating
	PretripCooling2
	PretripDone
)

// PretripState is the sequencer's own state across ticks. It is scoped to
// one pretrip session and held by the caller, not by World; pretrip_enable
// on World only says whether a session is active.
type PretripState struct {
	Stage      PretripStage
	StageStart time.Time
}

// NewPretripState starts a fresh sequencer at stage 1, timed from now.
func NewPretripState(now time.Time) PretripState {
	return PretripState{Stage: PretripCooling1, StageStart: now}
}

// PretripResult is one tick's sequencer outcome.
type PretripResult struct {
	Mode   world.Mode
	Relays world.RelayVector
	Next   PretripState

	// Done is true once stage 4 has been evaluated; the caller clears
	// pretrip_enable and returns control to the main state machine.
	Done bool

	// AlarmCode is a shutdown code (9001/9002/9003) to raise; when set the
	// caller must invoke EnterAlarm instead of applying Mode/Relays, per
	//.4 ("when a shutdown alarm rises, the mode-entry function for Alarm
	// is invoked").
	AlarmCode int

	// WarningCode is 9000 on overall pretrip success; it does not suppress
	// the Mode/Relays transition to Null.
	WarningCode int

	DebugEvent string
}

const (
	pretripStageTimeout1 = 10 * time.Minute
	pretripStageTimeout2 = 10 * time.Minute
	pretripStageTimeout3 = 5 * time.Minute
)

// EvaluatePretrip advances the four-stage diagnostic.
func EvaluatePretrip(in Inputs, st PretripState) PretripResult {
	switch st.Stage {
	case PretripCooling1:
		if in.Return >= in.Coil+4 {
			return PretripResult{
				Mode:   world.ModePretrip2,
				Relays: relaysForMode(world.ModeCooling),
				Next:   PretripState{Stage: PretripHeating, StageStart: in.Now},
				DebugEvent: "pretrip stage 1 -> 2",
			}
		}
		if in.Now.Sub(st.StageStart) >= pretripStageTimeout1 {
			return jumpToDone(in.Now, 9001)
		}
		return PretripResult{Mode: world.ModePretrip1, Relays: relaysForMode(world.ModeCooling), Next: st}

	case PretripHeating:
		if in.Return <= in.Coil-4 {
			return PretripResult{
				Mode:   world.ModePretrip3,
				Relays: relaysForMode(world.ModeHeating),
				Next:   PretripState{Stage: PretripCooling2, StageStart: in.Now},
				DebugEvent: "pretrip stage 2 -> 3",
			}
		}
		if in.Now.Sub(st.StageStart) >= pretripStageTimeout2 {
			return jumpToDone(in.Now, 9002)
		}
		return PretripResult{Mode: world.ModePretrip2, Relays: relaysForMode(world.ModeHeating), Next: st}

	case PretripCooling2:
		if in.Return >= in.Coil+4 {
			return PretripResult{
				Mode:        world.ModeNull,
				Relays:      relaysForMode(world.ModeNull),
				Next:        PretripState{Stage: PretripDone, StageStart: in.Now},
				Done:        true,
				WarningCode: 9000,
				DebugEvent:  "pretrip stage 3 -> 4, complete",
			}
		}
		if in.Now.Sub(st.StageStart) >= pretripStageTimeout3 {
			return jumpToDone(in.Now, 9003)
		}
		return PretripResult{Mode: world.ModePretrip3, Relays: relaysForMode(world.ModeCooling), Next: st}

	default: // PretripDone; unreachable in normal operation since the
		// caller clears its PretripState as soon as Done is true.
		return PretripResult{
			Mode:        world.ModeNull,
			Relays:      relaysForMode(world.ModeNull),
			Next:        st,
			Done:        true,
			WarningCode: 9000,
			DebugEvent:  "pretrip complete",
		}
	}
}

func jumpToDone(now time.Time, shutdownCode int) PretripResult {
	return PretripResult{
		Mode:      world.ModePretrip4,
		Relays:    relaysForMode(world.ModeNull),
		Next:      PretripState{Stage: PretripDone, StageStart: now},
		Done:      true,
		AlarmCode: shutdownCode,
		DebugEvent: "pretrip stage timeout",
	}
}

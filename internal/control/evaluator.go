package control

import (
	"github.com/coldroom/coldroom-ctl/internal/world"
)

// Evaluate is the pure decision function: state transitions are
// evaluated in order, first match wins for mode change. shutdown_alarm and
// pretrip_enable are handled by separate callers (the alarm evaluator and
// EvaluatePretrip respectively); Evaluate leaves mode untouched in both
// cases, as the spec requires.
func Evaluate(in Inputs, mode world.Mode, t Timers, f Flags, cfg Config) Decision {
	if f.ShutdownAlarm || f.PretripEnable {
		return Decision{Mode: mode, Relays: relaysForMode(mode)}
	}

	d := Decision{Mode: mode}

	switch mode {
	case world.ModeCooling:
		if in.Return <= in.Setpoint {
			d = enterNull(in.Now)
		}
	case world.ModeHeating:
		if in.Return >= in.Setpoint {
			d = enterNull(in.Now)
		}
	case world.ModeDefrost:
		if in.Coil > cfg.DefrostCoilTemperature() {
			d = enterNull(in.Now)
			d.ClearDefrostStart = true
		} else if !t.DefrostStartTime.IsZero() && in.Now.Sub(t.DefrostStartTime) >= defrostTimeout(cfg) {
			d = enterNull(in.Now)
			d.ClearDefrostStart = true
			d.WarningAlarm = 1004
		}
	case world.ModeNull:
		if in.Now.Sub(t.CompressorLastStop) >= offTimer(cfg) {
			switch {
			case in.Return >= in.Setpoint+cfg.SetpointOffset():
				d = enterCooling(in.Now)
			case in.Return <= in.Setpoint-cfg.SetpointOffset():
				d = enterHeating(in.Now)
			default:
				d.AntiTimerActive = false
			}
		} else {
			d.AntiTimerActive = true
		}
	case world.ModeAlarm:
		// Reaching this branch means shutdown_alarm is already false (the
		// early return above still owns mode while it's set), so the alarm
		// reset that cleared it can hand control straight back to Null.
		d = enterNull(in.Now)
	default:
		// Pretrip-* modes are steady-state here: EvaluatePretrip drives
		// transitions out of them.
	}

	// "Any mode where coil < defrost_coil_temperature": evaluated
	// independently of the branch above, but it never overrides a mode
	// change already decided this tick; first match wins.
	if mode != world.ModeDefrost && d.Mode == mode {
		if in.Coil < cfg.DefrostCoilTemperature() {
			if in.Now.Sub(t.DefrostLastTime) >= defrostInterval(cfg) || f.TriggerDefrost {
				d = enterDefrost(in.Now)
				d.ClearTriggerDefrost = true
			}
		}
	}

	if !d.ModeEntered {
		d.Relays = relaysForMode(d.Mode)
	}

	return d
}

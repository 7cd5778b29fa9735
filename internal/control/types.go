// Package control is the pure decision core: given a snapshot
// of sensor inputs, the current mode, the relevant timers and flags, and the
// active config, it computes the next mode, relay vector, and any timer or
// log side effects a caller should apply. Evaluate and EvaluatePretrip never
// touch World or a device layer directly: a struct of plain data in, a
// struct of results out, no I/O.
package control

import (
	"time"

	"github.com/coldroom/coldroom-ctl/internal/world"
)

// Inputs is one tick's control-relevant sensor snapshot.
type Inputs struct {
	Return, Supply, Coil, Setpoint float64
	Now                            time.Time
}

// Timers is the subset of world timestamps the evaluator reads.
type Timers struct {
	CompressorLastStop time.Time
	DefrostLastTime    time.Time

	// DefrostStartTime is the zero time.Time when no defrost is in progress:
	// defrost_start_time == 0 iff mode != Defrost.
	DefrostStartTime time.Time
}

// Flags is the subset of control flags the evaluator reads.
type Flags struct {
	TriggerDefrost bool
	PretripEnable  bool
	ShutdownAlarm  bool
}

// Config is the narrow slice of *config.Config the evaluator depends on,
// named as an interface so tests can supply a literal instead of a full
// config store.
type Config interface {
	DefrostIntervalHours() int
	DefrostTimeoutMins() int
	DefrostCoilTemperature() float64
	SetpointOffset() float64
	CompressorOffTimerMins() int
	FanContinuous() bool
	ElectricHeaterPresent() bool
	RelayActiveLow() bool
}

func offTimer(cfg Config) time.Duration {
	return time.Duration(cfg.CompressorOffTimerMins()) * time.Minute
}

func defrostInterval(cfg Config) time.Duration {
	return time.Duration(cfg.DefrostIntervalHours()) * time.Hour
}

func defrostTimeout(cfg Config) time.Duration {
	return time.Duration(cfg.DefrostTimeoutMins()) * time.Minute
}

// Decision is one control tick's outcome: the mode/relay vector to publish
// if ModeEntered (or to keep, with no log side effect, otherwise), which
// timers to stamp, and any warning to raise.
type Decision struct {
	Mode        world.Mode
	Relays      world.RelayVector
	ModeEntered bool

	StampCompressorLastStop bool
	StampDefrostStart       bool
	ClearDefrostStart       bool
	ClearTriggerDefrost     bool

	AntiTimerActive bool
	AntiTimerEdge   bool

	DebugEvent   string
	WarningAlarm int
}

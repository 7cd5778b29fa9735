// Package world holds the single logical WorldState shared by every task.
// It is physically split into independently-locked cells so unrelated tasks
// do not contend; each cell hands out a value-type Snapshot captured once
// per task iteration, safe to use after the lock is released.
package world

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Mode is the refrigeration state machine's current mode.
type Mode string

const (
	ModeNull     Mode = "Null"
	ModeCooling  Mode = "Cooling"
	ModeHeating  Mode = "Heating"
	ModeDefrost  Mode = "Defrost"
	ModeAlarm    Mode = "Alarm"
	ModePretrip1 Mode = "Pretrip-1"
	ModePretrip2 Mode = "Pretrip-2"
	ModePretrip3 Mode = "Pretrip-3"
	ModePretrip4 Mode = "Pretrip-4"
)

// RelayVector is the requested (pre-polarity) state of the four relays.
type RelayVector struct {
	Compressor     bool
	Fan            bool
	Valve          bool
	ElectricHeater bool
}

// StatusMap is the authoritative {mode, relays} tuple. It is the only
// multi-field invariant block and is mutated only by the control
// evaluator's mode-entry functions.
type StatusMap struct {
	mu     sync.Mutex
	mode   Mode
	relays RelayVector
}

// Set atomically replaces both the mode and the relay vector.
func (s *StatusMap) Set(mode Mode, relays RelayVector) {
	s.mu.Lock()
	s.mode = mode
	s.relays = relays
	s.mu.Unlock()
}

// Snapshot returns a consistent copy of the current mode and relay vector.
func (s *StatusMap) Snapshot() (Mode, RelayVector) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode, s.relays
}

// AlarmSet is the ordered, deduplicated set of active alarm codes. The shutdown/warning flags live
// separately on World.
type AlarmSet struct {
	mu    sync.Mutex
	codes []int
	seen  map[int]struct{}
}

// NewAlarmSet creates an empty AlarmSet.
func NewAlarmSet() *AlarmSet {
	return &AlarmSet{seen: make(map[int]struct{})}
}

// Add inserts code into the set if not already present. Returns true if
// the code was newly added.
func (a *AlarmSet) Add(code int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.seen[code]; ok {
		return false
	}
	a.seen[code] = struct{}{}
	a.codes = append(a.codes, code)
	return true
}

// Reset clears the code set.
func (a *AlarmSet) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.codes = nil
	a.seen = make(map[int]struct{})
}

// Snapshot returns a sorted copy of the active codes.
func (a *AlarmSet) Snapshot() []int {
	a.mu.Lock()
	defer a.mu.Unlock()
	codes := append([]int(nil), a.codes...)
	sort.Ints(codes)
	return codes
}

// World is the aggregate of every shared cell. Most cells have a single
// writing task; a few have more than one (Setpoint is written by the button
// task and the HTTP API, PretripEnable by the button and sensor tasks,
// WarningAlarm by the alarm and sensor tasks). Readers take a snapshot.
type World struct {
	Status *StatusMap
	Alarms *AlarmSet

	// Temperatures and setpoint, °F, 0.1° granularity; sentinel -327.0
	// means "invalid" for the three probes.
	Return   Float
	Supply   Float
	Coil     Float
	Setpoint Float

	// Timers (wall-clock timestamps; see Timestamp).
	CompressorLastStop  Timestamp
	DefrostLastTime     Timestamp
	DefrostStartTime    Timestamp
	StateTimer          Timestamp
	CompressorOnStart   Timestamp
	EditModeActiveSince Timestamp
	DefrostPressStart   Timestamp
	AlarmPressStart     Timestamp

	CompressorOnTotalSeconds Float

	// Flags.
	Running         atomic.Bool
	DemoMode        atomic.Bool
	PretripEnable   atomic.Bool
	TriggerDefrost  atomic.Bool
	AntiTimerActive atomic.Bool
	SetpointEdit    atomic.Bool
	ShutdownAlarm   atomic.Bool
	WarningAlarm    atomic.Bool
}

// Snapshot is a point-in-time, value-type view of the world, safe to use
// after capture without holding any lock.
type Snapshot struct {
	Mode   Mode
	Relays RelayVector

	Return, Supply, Coil, Setpoint float64

	CompressorLastStop  time.Time
	DefrostLastTime     time.Time
	DefrostStartTime    time.Time
	StateTimer          time.Time
	CompressorOnStart   time.Time
	EditModeActiveSince time.Time

	CompressorOnTotalSeconds float64

	Running         bool
	DemoMode        bool
	PretripEnable   bool
	TriggerDefrost  bool
	AntiTimerActive bool
	SetpointEdit    bool
	ShutdownAlarm   bool
	WarningAlarm    bool

	AlarmCodes []int

	Now time.Time
}

// New creates a World with sensible startup defaults: temperatures invalid,
// setpoint 55°F, running true, compressor_last_stop_time seeded far enough
// in the past that anti-cycle does not block the first start.
func New(now time.Time) *World {
	w := &World{
		Status: &StatusMap{},
		Alarms: NewAlarmSet(),
	}
	w.Return.Store(-327.0)
	w.Supply.Store(-327.0)
	w.Coil.Store(-327.0)
	w.Setpoint.Store(55.0)
	w.Running.Store(true)
	w.CompressorLastStop.Store(now.Add(-400 * time.Second))
	w.DefrostLastTime.Store(now)
	w.StateTimer.Store(now)
	return w
}

// Snapshot captures a consistent, value-type copy of the world.
func (w *World) Snapshot() Snapshot {
	mode, relays := w.Status.Snapshot()
	return Snapshot{
		Mode:                     mode,
		Relays:                   relays,
		Return:                   w.Return.Load(),
		Supply:                   w.Supply.Load(),
		Coil:                     w.Coil.Load(),
		Setpoint:                 w.Setpoint.Load(),
		CompressorLastStop:       w.CompressorLastStop.Load(),
		DefrostLastTime:          w.DefrostLastTime.Load(),
		DefrostStartTime:         w.DefrostStartTime.Load(),
		StateTimer:               w.StateTimer.Load(),
		CompressorOnStart:        w.CompressorOnStart.Load(),
		EditModeActiveSince:      w.EditModeActiveSince.Load(),
		CompressorOnTotalSeconds: w.CompressorOnTotalSeconds.Load(),
		Running:                  w.Running.Load(),
		DemoMode:                 w.DemoMode.Load(),
		PretripEnable:            w.PretripEnable.Load(),
		TriggerDefrost:           w.TriggerDefrost.Load(),
		AntiTimerActive:          w.AntiTimerActive.Load(),
		SetpointEdit:             w.SetpointEdit.Load(),
		ShutdownAlarm:            w.ShutdownAlarm.Load(),
		WarningAlarm:             w.WarningAlarm.Load(),
		AlarmCodes:               w.Alarms.Snapshot(),
		Now:                      time.Now(),
	}
}

// RoundTemp rounds a raw temperature to 0.1° granularity, preserving the
// -327.0 invalid sentinel unchanged.
func RoundTemp(raw float64) float64 {
	if raw == -327.0 {
		return raw
	}
	return roundTo(raw, 1)
}

// ClampSetpoint clamps v to [min, max] and rounds to 0.1°.
func ClampSetpoint(v, min, max float64) float64 {
	if v < min {
		v = min
	}
	if v > max {
		v = max
	}
	return roundTo(v, 1)
}

func roundTo(v float64, decimals int) float64 {
	mult := 1.0
	for i := 0; i < decimals; i++ {
		mult *= 10
	}
	if v >= 0 {
		return float64(int64(v*mult+0.5)) / mult
	}
	return float64(int64(v*mult-0.5)) / mult
}

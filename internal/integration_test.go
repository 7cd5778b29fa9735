package internal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/coldroom/coldroom-ctl/internal/alarm"
	"github.com/coldroom/coldroom-ctl/internal/buttons"
	"github.com/coldroom/coldroom-ctl/internal/config"
	"github.com/coldroom/coldroom-ctl/internal/control"
	"github.com/coldroom/coldroom-ctl/internal/gpio"
	"github.com/coldroom/coldroom-ctl/internal/sensors"
	"github.com/coldroom/coldroom-ctl/internal/telemetry"
	"github.com/coldroom/coldroom-ctl/internal/world"
)

// testConfig is a literal control.Config for scenarios that need specific
// numbers rather than the schema defaults.
type testConfig struct {
	defrostIntervalHours   int
	defrostTimeoutMins     int
	defrostCoilTemperature float64
	setpointOffset         float64
	compressorOffTimerMins int
	fanContinuous          bool
	electricHeaterPresent  bool
	relayActiveLow         bool
}

func (c testConfig) DefrostIntervalHours() int       { return c.defrostIntervalHours }
func (c testConfig) DefrostTimeoutMins() int         { return c.defrostTimeoutMins }
func (c testConfig) DefrostCoilTemperature() float64 { return c.defrostCoilTemperature }
func (c testConfig) SetpointOffset() float64         { return c.setpointOffset }
func (c testConfig) CompressorOffTimerMins() int     { return c.compressorOffTimerMins }
func (c testConfig) FanContinuous() bool             { return c.fanContinuous }
func (c testConfig) ElectricHeaterPresent() bool     { return c.electricHeaterPresent }
func (c testConfig) RelayActiveLow() bool            { return c.relayActiveLow }

func defaultTestConfig() testConfig {
	return testConfig{
		defrostIntervalHours:   8,
		defrostTimeoutMins:     45,
		defrostCoilTemperature: 45,
		setpointOffset:         2,
		compressorOffTimerMins: 5,
		electricHeaterPresent:  true,
		relayActiveLow:         true,
	}
}

// TestIntegrationCoolToNull is seed scenario 1: off_timer = 1s, offset = 2;
// start in Null with compressor_last_stop_time = now - 2s; inject
// return = 60, setpoint = 55. Expect Cooling entered, then Null on the
// next tick with compressor_last_stop_time updated.
func TestIntegrationCoolToNull(t *testing.T) {
	cfg := defaultTestConfig()
	cfg.compressorOffTimerMins = 0 // off_timer is minutes-granular; 0 reproduces "already elapsed"
	now := time.Now()
	lastStop := now.Add(-2 * time.Second)

	d := control.Evaluate(control.Inputs{Return: 60, Setpoint: 55, Coil: 50, Now: now}, world.ModeNull,
		control.Timers{CompressorLastStop: lastStop}, control.Flags{}, cfg)
	if d.Mode != world.ModeCooling {
		t.Fatalf("expected Cooling, got %v", d.Mode)
	}
	if !d.Relays.Compressor || !d.Relays.Fan {
		t.Errorf("expected compressor and fan energised, got %+v", d.Relays)
	}

	next := now.Add(time.Second)
	d2 := control.Evaluate(control.Inputs{Return: 55, Setpoint: 55, Coil: 50, Now: next}, d.Mode,
		control.Timers{CompressorLastStop: lastStop}, control.Flags{}, cfg)
	if d2.Mode != world.ModeNull {
		t.Fatalf("expected Null, got %v", d2.Mode)
	}
	if !d2.StampCompressorLastStop {
		t.Error("expected compressor_last_stop_time to be stamped on the Cooling -> Null transition")
	}
}

// TestIntegrationAntiCycleEngages is seed scenario 2: leaving Cooling
// engages the anti-cycle timer, which blocks re-entry until off_timer
// elapses.
func TestIntegrationAntiCycleEngages(t *testing.T) {
	cfg := defaultTestConfig()
	cfg.compressorOffTimerMins = 5
	now := time.Now()

	d := control.Evaluate(control.Inputs{Return: 55, Setpoint: 55, Coil: 50, Now: now}, world.ModeCooling,
		control.Timers{}, control.Flags{}, cfg)
	if d.Mode != world.ModeNull || !d.StampCompressorLastStop {
		t.Fatalf("expected Null with compressor_last_stop stamped, got mode=%v stamp=%v", d.Mode, d.StampCompressorLastStop)
	}
	lastStop := now

	tooSoon := now.Add(2 * time.Minute)
	d2 := control.Evaluate(control.Inputs{Return: 57, Setpoint: 55, Coil: 50, Now: tooSoon}, d.Mode,
		control.Timers{CompressorLastStop: lastStop}, control.Flags{}, cfg)
	if d2.Mode != world.ModeNull {
		t.Fatalf("expected Null while anti-cycle engaged, got %v", d2.Mode)
	}
	if !d2.AntiTimerActive {
		t.Error("expected anti_timer_active true before off_timer elapses")
	}

	afterTimer := now.Add(5 * time.Minute)
	d3 := control.Evaluate(control.Inputs{Return: 57, Setpoint: 55, Coil: 50, Now: afterTimer}, d.Mode,
		control.Timers{CompressorLastStop: lastStop}, control.Flags{}, cfg)
	if d3.Mode != world.ModeCooling {
		t.Fatalf("expected Cooling once off_timer elapses, got %v", d3.Mode)
	}
}

// TestIntegrationDefrostTimeoutWarning is seed scenario 3: a forced Defrost
// entry that never reaches the coil threshold exits on timeout with
// warning code 1004.
func TestIntegrationDefrostTimeoutWarning(t *testing.T) {
	cfg := defaultTestConfig()
	cfg.defrostTimeoutMins = 45
	cfg.defrostCoilTemperature = 45
	start := time.Now()

	d := control.Evaluate(control.Inputs{Return: 30, Coil: 10, Setpoint: 55, Now: start.Add(45 * time.Minute)},
		world.ModeDefrost, control.Timers{DefrostStartTime: start}, control.Flags{}, cfg)

	if d.Mode != world.ModeNull {
		t.Fatalf("expected Null after defrost timeout, got %v", d.Mode)
	}
	if d.WarningAlarm != alarm.CodeDefrostTimeout {
		t.Errorf("expected warning code %d, got %d", alarm.CodeDefrostTimeout, d.WarningAlarm)
	}
	if !d.ClearDefrostStart {
		t.Error("expected defrost_start_time to be cleared")
	}
}

// TestIntegrationCoolingIneffectiveShutdown is seed scenario 4: Cooling
// that never pulls return meaningfully below supply for 30 minutes raises
// shutdown code 1001 and enters Alarm.
func TestIntegrationCoolingIneffectiveShutdown(t *testing.T) {
	w := world.New(time.Now())
	alarmTask := alarm.NewTask(w, nil)
	w.Status.Set(world.ModeCooling, world.RelayVector{Compressor: true, Fan: true})
	w.Return.Store(50)
	w.Supply.Store(47)
	w.Coil.Store(40)

	start := time.Now()
	alarmTask.Tick(start) // engages the cooling timer
	alarmTask.Tick(start.Add(31 * time.Minute))

	if !w.ShutdownAlarm.Load() {
		t.Fatal("expected shutdown_alarm true after 30 minutes of ineffective cooling")
	}
	if !containsCode(w.Alarms.Snapshot(), alarm.CodeCoolingIneffective) {
		t.Errorf("expected code %d in the alarm set, got %v", alarm.CodeCoolingIneffective, w.Alarms.Snapshot())
	}
	mode, relays := w.Status.Snapshot()
	if mode != world.ModeAlarm {
		t.Errorf("expected Alarm mode entered, got %v", mode)
	}
	if relays.Compressor || relays.Fan || relays.Valve || relays.ElectricHeater {
		t.Errorf("expected all relays de-energised in Alarm, got %+v", relays)
	}
}

func containsCode(codes []int, code int) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}

// TestIntegrationPretripSuccess is seed scenario 5: the three-stage
// cool/heat/cool sequence completing within its per-stage timeouts raises
// warning code 9000 and clears pretrip_enable.
func TestIntegrationPretripSuccess(t *testing.T) {
	task, w, _ := newPretripTestTask(t,
		sensors.Reading{Return: 60, Supply: 58, Coil: 50},
		sensors.Reading{Return: 40, Supply: 58, Coil: 50},
		sensors.Reading{Return: 60, Supply: 58, Coil: 50},
	)
	alarms := &recordingAlarms{}
	task.Alarms = alarms
	w.PretripEnable.Store(true)

	now := time.Now()
	for i := 0; i < 3; i++ {
		if err := task.Tick(now.Add(time.Duration(i) * 2 * time.Minute)); err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
	}

	if w.PretripEnable.Load() {
		t.Error("expected pretrip_enable false once the sequence completes")
	}
	if len(alarms.warnings) != 1 || alarms.warnings[0] != 9000 {
		t.Errorf("expected a single warning code 9000, got %v", alarms.warnings)
	}
	mode, _ := w.Status.Snapshot()
	if mode != world.ModeNull {
		t.Errorf("expected Null after pretrip completes, got %v", mode)
	}
}

// TestIntegrationSetpointEditCommit is seed scenario 6: hold UP 2s enters
// editing, four UP edges step by 1 each, a 4s hold switches to the 5-unit
// step, and an ALARM edge commits and returns to Idle.
func TestIntegrationSetpointEditCommit(t *testing.T) {
	fsm := buttons.NewEditFSM()
	setpoint := 55.0
	now := time.Now()

	step := func(upHeld time.Duration, upEdge, alarmEdge bool) {
		res := fsm.Step(buttons.Input{
			Now: now, UpHeldFor: upHeld, UpEdge: upEdge, AlarmEdge: alarmEdge,
			Setpoint: setpoint, Min: -20, Max: 80,
		})
		if res.SetpointChanged {
			setpoint = res.NewSetpoint
		}
		now = now.Add(100 * time.Millisecond)
	}

	step(0, false, false)                 // Idle, nothing held
	step(500*time.Millisecond, false, false) // Entering
	step(2*time.Second, false, false)        // crosses editEnterHold -> Editing

	if fsm.State() != buttons.EditEditing {
		t.Fatalf("expected Editing after a 2s hold, got %v", fsm.State())
	}

	for i := 0; i < 4; i++ {
		step(2*time.Second, true, false)
	}
	if setpoint != 59 {
		t.Fatalf("expected setpoint 59 after four small-step presses, got %v", setpoint)
	}

	step(4*time.Second, true, false)
	if setpoint != 64 {
		t.Fatalf("expected setpoint 64 after the fast-step press, got %v", setpoint)
	}

	step(0, false, true)
	if fsm.State() != buttons.EditIdle {
		t.Fatalf("expected Idle after the ALARM commit edge, got %v", fsm.State())
	}
}

// TestIntegrationSensorsToTelemetry exercises the non-pretrip path end to
// end: a Prober reading drives control.Evaluate inside sensors.Task, the
// relay write lands on a fake GPIO writer, and the resulting mode/relay
// state is carried through to a published telemetry snapshot.
func TestIntegrationSensorsToTelemetry(t *testing.T) {
	w := world.New(time.Now())
	cfg, err := config.Load(filepath.Join(t.TempDir(), "config.env"))
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	w.Setpoint.Store(55)
	w.CompressorLastStop.Store(time.Now().Add(-time.Hour))

	writer := gpio.NewFakeWriter()
	task := sensors.NewTask(w, cfg, sensors.NewFakeProber(sensors.Reading{Return: 60, Supply: 58, Coil: 55}), writer, nil)

	if err := task.Tick(time.Now()); err != nil {
		t.Fatalf("tick: %v", err)
	}

	mode, relays := w.Status.Snapshot()
	if mode != world.ModeCooling {
		t.Fatalf("expected Cooling, got %v", mode)
	}

	bus := &telemetry.FakePublisher{}
	snap := telemetry.Snapshot{
		Timestamp: time.Now(),
		Return:    w.Return.Load(),
		Supply:    w.Supply.Load(),
		Coil:      w.Coil.Load(),
		Setpoint:  w.Setpoint.Load(),
		Mode:      string(mode),
	}
	if err := bus.PublishSnapshot(snap); err != nil {
		t.Fatalf("publish snapshot: %v", err)
	}
	if len(bus.Snapshots) != 1 {
		t.Fatalf("expected 1 published snapshot, got %d", len(bus.Snapshots))
	}
	if bus.Snapshots[0].Mode != "Cooling" {
		t.Errorf("expected published mode Cooling, got %s", bus.Snapshots[0].Mode)
	}
	if !relays.Compressor {
		t.Error("expected the compressor relay energised in the published state")
	}
}

type recordingAlarms struct {
	shutdowns []int
	warnings  []int
}

func (r *recordingAlarms) RaiseShutdown(code int) { r.shutdowns = append(r.shutdowns, code) }
func (r *recordingAlarms) RaiseWarning(code int)  { r.warnings = append(r.warnings, code) }

func newPretripTestTask(t *testing.T, readings ...sensors.Reading) (*sensors.Task, *world.World, *gpio.FakeWriter) {
	t.Helper()
	w := world.New(time.Now())
	cfg, err := config.Load(filepath.Join(t.TempDir(), "config.env"))
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	writer := gpio.NewFakeWriter()
	task := sensors.NewTask(w, cfg, sensors.NewFakeProber(readings...), writer, nil)
	return task, w, writer
}

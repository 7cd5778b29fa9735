package sensors

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/coldroom/coldroom-ctl/internal/config"
	"github.com/coldroom/coldroom-ctl/internal/gpio"
	"github.com/coldroom/coldroom-ctl/internal/world"
)

func newTestTask(t *testing.T, readings ...Reading) (*Task, *world.World, *gpio.FakeWriter) {
	t.Helper()
	w := world.New(time.Now())
	c, err := config.Load(filepath.Join(t.TempDir(), "config.env"))
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	writer := gpio.NewFakeWriter()
	task := NewTask(w, c, NewFakeProber(readings...), writer, nil)
	return task, w, writer
}

func TestTickPublishesTemperatures(t *testing.T) {
	task, w, _ := newTestTask(t, Reading{Return: 60, Supply: 58, Coil: 55})
	if err := task.Tick(time.Now()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if w.Return.Load() != 60 {
		t.Errorf("expected return 60, got %v", w.Return.Load())
	}
	if w.Coil.Load() != 55 {
		t.Errorf("expected coil 55, got %v", w.Coil.Load())
	}
}

func TestTickEntersCoolingAndWritesRelays(t *testing.T) {
	task, w, writer := newTestTask(t, Reading{Return: 60, Supply: 58, Coil: 55})
	w.Setpoint.Store(55)
	w.CompressorLastStop.Store(time.Now().Add(-time.Hour))

	if err := task.Tick(time.Now()); err != nil {
		t.Fatalf("tick: %v", err)
	}

	mode, relays := w.Status.Snapshot()
	if mode != world.ModeCooling {
		t.Fatalf("expected Cooling, got %v", mode)
	}
	if !relays.Compressor || !relays.Fan {
		t.Errorf("expected compressor and fan on, got %+v", relays)
	}

	// Relay active_low default true: energised (true) maps to level false.
	if lvl, ok := writer.Levels[gpio.RelayCompressor]; !ok || lvl != false {
		t.Errorf("expected compressor line driven low (active-low energised), got %v ok=%v", lvl, ok)
	}
}

type fakeAlarmRaiser struct {
	shutdownCodes []int
	warningCodes  []int
}

func (f *fakeAlarmRaiser) RaiseShutdown(code int) { f.shutdownCodes = append(f.shutdownCodes, code) }
func (f *fakeAlarmRaiser) RaiseWarning(code int)  { f.warningCodes = append(f.warningCodes, code) }

func TestTickPretripAdvancesStagesAndCompletes(t *testing.T) {
	// Stage 1 (Cooling) needs return >= coil+4 to advance; stage 2 (Heating)
	// needs return <= coil-4; stage 3 (Cooling) needs return >= coil+4 again.
	task, w, _ := newTestTask(t,
		Reading{Return: 60, Supply: 58, Coil: 50}, // stage 1 -> 2
		Reading{Return: 40, Supply: 58, Coil: 50}, // stage 2 -> 3
		Reading{Return: 60, Supply: 58, Coil: 50}, // stage 3 -> 4 (done)
	)
	alarms := &fakeAlarmRaiser{}
	task.Alarms = alarms
	w.PretripEnable.Store(true)

	now := time.Now()
	for i := 0; i < 3; i++ {
		if err := task.Tick(now.Add(time.Duration(i) * time.Second)); err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
	}

	if w.PretripEnable.Load() {
		t.Error("expected pretrip_enable cleared once the sequence completes")
	}
	if len(alarms.warningCodes) != 1 || alarms.warningCodes[0] != 9000 {
		t.Errorf("expected warning code 9000 on completion, got %v", alarms.warningCodes)
	}
	if len(alarms.shutdownCodes) != 0 {
		t.Errorf("expected no shutdown codes on a clean run, got %v", alarms.shutdownCodes)
	}
}

func TestTickPretripTimeoutRaisesShutdown(t *testing.T) {
	task, w, _ := newTestTask(t, Reading{Return: 40, Supply: 58, Coil: 50})
	alarms := &fakeAlarmRaiser{}
	task.Alarms = alarms
	w.PretripEnable.Store(true)

	start := time.Now()
	if err := task.Tick(start); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if err := task.Tick(start.Add(11 * time.Minute)); err != nil {
		t.Fatalf("tick: %v", err)
	}

	if w.PretripEnable.Load() {
		t.Error("expected pretrip_enable cleared after a stage timeout")
	}
	if len(alarms.shutdownCodes) != 1 || alarms.shutdownCodes[0] != 9001 {
		t.Errorf("expected shutdown code 9001 after stage-1 timeout, got %v", alarms.shutdownCodes)
	}
}

func TestShutdownWritesSafeRelayVector(t *testing.T) {
	task, _, writer := newTestTask(t, Reading{Return: 60, Supply: 58, Coil: 55})
	if err := task.shutdown(); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	for _, r := range []gpio.Relay{gpio.RelayCompressor, gpio.RelayFan, gpio.RelayValve, gpio.RelayElectricHeater} {
		if lvl := writer.Levels[r]; lvl != true {
			t.Errorf("expected relay %v de-energised (level true, active-low), got %v", r, lvl)
		}
	}
}

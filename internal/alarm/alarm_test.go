package alarm

import (
	"testing"
	"time"

	"github.com/coldroom/coldroom-ctl/internal/world"
)

func TestCoolingIneffectiveRaisesAfterWindow(t *testing.T) {
	e := New()
	now := time.Now()
	in := Inputs{Mode: world.ModeCooling, Return: 50, Supply: 48, Coil: 40, Now: now}

	res := e.Evaluate(in)
	if len(res.ShutdownCodes) != 0 {
		t.Fatalf("expected no codes on first engagement, got %v", res.ShutdownCodes)
	}

	in.Now = now.Add(29 * time.Minute)
	res = e.Evaluate(in)
	if len(res.ShutdownCodes) != 0 {
		t.Fatalf("expected no codes before window elapses, got %v", res.ShutdownCodes)
	}

	in.Now = now.Add(31 * time.Minute)
	res = e.Evaluate(in)
	if len(res.ShutdownCodes) != 1 || res.ShutdownCodes[0] != CodeCoolingIneffective {
		t.Fatalf("expected code %d after window elapses, got %v", CodeCoolingIneffective, res.ShutdownCodes)
	}
}

func TestCoolingTimerResetsWhenEffective(t *testing.T) {
	e := New()
	now := time.Now()
	e.Evaluate(Inputs{Mode: world.ModeCooling, Return: 50, Supply: 48, Coil: 40, Now: now})
	// Return climbs well above supply: cooling is effective, timer resets.
	e.Evaluate(Inputs{Mode: world.ModeCooling, Return: 55, Supply: 40, Coil: 40, Now: now.Add(10 * time.Minute)})

	res := e.Evaluate(Inputs{Mode: world.ModeCooling, Return: 50, Supply: 48, Coil: 40, Now: now.Add(40 * time.Minute)})
	if len(res.ShutdownCodes) != 0 {
		t.Fatalf("expected timer to have reset, got %v", res.ShutdownCodes)
	}
}

func TestSensorOutOfRangeRaisesImmediately(t *testing.T) {
	e := New()
	res := e.Evaluate(Inputs{Mode: world.ModeNull, Return: 200, Supply: 50, Coil: 40, Now: time.Now()})
	if len(res.ShutdownCodes) != 1 || res.ShutdownCodes[0] != CodeReturnSensor {
		t.Fatalf("expected return-sensor code, got %v", res.ShutdownCodes)
	}
}

func TestSensorSentinelDoesNotRaiseBeforeFirstReading(t *testing.T) {
	e := New()
	res := e.Evaluate(Inputs{Mode: world.ModeNull, Return: -327.0, Supply: -327.0, Coil: -327.0, Now: time.Now()})
	if len(res.ShutdownCodes) != 0 || len(res.WarningCodes) != 0 {
		t.Fatalf("expected no codes before the sensor task's first tick, got shutdown=%v warning=%v", res.ShutdownCodes, res.WarningCodes)
	}
}

func TestSensorSentinelRaisesAfterProbeHasRead(t *testing.T) {
	e := New()
	now := time.Now()
	e.Evaluate(Inputs{Mode: world.ModeNull, Return: 55, Supply: 50, Coil: 45, Now: now})

	res := e.Evaluate(Inputs{Mode: world.ModeNull, Return: -327.0, Supply: 50, Coil: 45, Now: now.Add(time.Second)})
	if len(res.ShutdownCodes) != 1 || res.ShutdownCodes[0] != CodeReturnSensor {
		t.Fatalf("expected a return-sensor shutdown once a probe drops to the sentinel mid-run, got %v", res.ShutdownCodes)
	}
}

func TestLeavingCoolingClearsTimer(t *testing.T) {
	e := New()
	now := time.Now()
	e.Evaluate(Inputs{Mode: world.ModeCooling, Return: 50, Supply: 48, Coil: 40, Now: now})
	e.Evaluate(Inputs{Mode: world.ModeNull, Return: 50, Supply: 48, Coil: 40, Now: now.Add(time.Minute)})

	res := e.Evaluate(Inputs{Mode: world.ModeCooling, Return: 50, Supply: 48, Coil: 40, Now: now.Add(31 * time.Minute)})
	if len(res.ShutdownCodes) != 0 {
		t.Fatalf("expected timer to have restarted after leaving Cooling, got %v", res.ShutdownCodes)
	}
}

package sensors

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/coldroom/coldroom-ctl/internal/world"
)

// DemoProber simulates the three probes with an approach-curve model:
// return/supply/coil converge on setpoint-relative targets at a fixed step
// per update, with small Gaussian noise layered on the readback.
//
// It additionally ramps its own refresh interval geometrically from an
// initial period down to a target period, so a freshly entered demo mode
// "warms up" to realistic update rates rather than snapping straight to
// them.
type DemoProber struct {
	mu sync.Mutex

	statusOf func() world.Mode
	setpoint func() float64
	now      func() time.Time
	rng      *rand.Rand

	returnT, supplyT, coilT float64
	lastUpdate              time.Time

	refreshInterval time.Duration
	rampTarget      time.Duration
	rampDecay       float64
}

const (
	ambientTemperature = 60.0
	defaultRefresh     = 10 * time.Second
	rampInitial        = 40 * time.Second
	rampTargetDefault  = 10 * time.Second
	rampDecayDefault   = 0.98
)

// NewDemoProber creates a simulator seeded at ambient temperature. statusOf
// and setpoint read the current requested mode and setpoint from the
// shared world.
func NewDemoProber(statusOf func() world.Mode, setpoint func() float64, now func() time.Time) *DemoProber {
	d := &DemoProber{
		statusOf:        statusOf,
		setpoint:        setpoint,
		now:             now,
		rng:             rand.New(rand.NewSource(now().UnixNano())),
		returnT:         ambientTemperature,
		supplyT:         ambientTemperature,
		coilT:           ambientTemperature,
		lastUpdate:      now(),
		refreshInterval: defaultRefresh,
	}
	return d
}

// EnableRefreshRamp arms the geometric refresh-interval ramp: the interval
// starts at initial and decays toward target by decay each time it is
// applied, asymptotically approaching target.
func (d *DemoProber) EnableRefreshRamp(initial, target time.Duration, decay float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.refreshInterval = initial
	d.rampTarget = target
	d.rampDecay = decay
}

// Sense advances the simulator if its refresh interval has elapsed and
// returns the (noisy) current readings.
func (d *DemoProber) Sense() Reading {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if now.Sub(d.lastUpdate) >= d.refreshInterval {
		d.lastUpdate = now
		d.step()
		d.advanceRamp()
	}

	return Reading{
		Return: d.returnT + d.rng.NormFloat64()*0.3,
		Supply: d.supplyT + d.rng.NormFloat64()*0.3,
		Coil:   d.coilT + d.rng.NormFloat64()*0.3,
	}
}

func (d *DemoProber) advanceRamp() {
	if d.rampTarget == 0 {
		return
	}
	next := d.rampTarget + time.Duration(float64(d.refreshInterval-d.rampTarget)*d.rampDecay)
	if next < d.rampTarget {
		next = d.rampTarget
	}
	d.refreshInterval = next
}

func (d *DemoProber) step() {
	setpoint := d.setpoint()
	switch d.statusOf() {
	case world.ModeCooling:
		d.simulateCooling(setpoint)
	case world.ModeHeating:
		d.simulateHeating(setpoint)
	case world.ModeDefrost:
		d.simulateDefrost()
	default:
		d.simulateNull()
	}
}

func (d *DemoProber) simulateCooling(setpoint float64) {
	d.returnT = math.Max(setpoint-2.0, d.returnT-0.20)
	d.supplyT = math.Max(setpoint-5.0, d.supplyT-0.25)
	d.coilT = math.Max(setpoint-10.0, d.coilT-0.35)
}

func (d *DemoProber) simulateHeating(setpoint float64) {
	d.returnT = math.Min(setpoint+2.0, d.returnT+0.15)
	d.supplyT = math.Min(setpoint+5.0, d.supplyT+0.25)
	d.coilT = math.Min(setpoint+10.0, d.coilT+0.35)
}

func (d *DemoProber) simulateNull() {
	d.returnT += (ambientTemperature - d.returnT) * 0.01
	d.supplyT += (ambientTemperature - d.supplyT) * 0.01
	d.coilT += (ambientTemperature - d.coilT) * 0.01
}

func (d *DemoProber) simulateDefrost() {
	d.coilT = math.Min(50.0, d.coilT+0.5)
	d.returnT = math.Min(55.0, d.returnT+0.1)
	d.supplyT = math.Min(55.0, d.supplyT+0.1)
}

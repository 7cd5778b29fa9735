// Package runtime holds the durable, crash-safe bookkeeping:
// cumulative compressor run time, observed from the relay-write side
// effect rather than owned by any one task.
package runtime

import (
	"fmt"
	"time"

	"github.com/coldroom/coldroom-ctl/internal/config"
	"github.com/coldroom/coldroom-ctl/internal/world"
)

// Accumulator observes the compressor-requested bit on every relay write
// and persists cumulative run time.
type Accumulator struct {
	world *world.World
	cfg   *config.Config

	wasOn bool
}

// NewAccumulator restores the persisted total as the accumulator's initial
// value.
func NewAccumulator(w *world.World, cfg *config.Config) *Accumulator {
	w.CompressorOnTotalSeconds.Store(float64(cfg.GetInt("compressor.on_total_seconds", 0)))
	return &Accumulator{world: w, cfg: cfg}
}

// Observe is the sensors.Task.OnRelayChange hook: it detects the
// compressor-requested bit's edges and persists the total on every
// On -> Off transition.
func (a *Accumulator) Observe(relays world.RelayVector, now time.Time) {
	on := relays.Compressor

	if on && !a.wasOn {
		a.world.CompressorOnStart.Store(now)
	} else if !on && a.wasOn {
		start := a.world.CompressorOnStart.Load()
		if !start.IsZero() {
			elapsed := now.Sub(start).Seconds()
			total := a.world.CompressorOnTotalSeconds.Load() + elapsed
			a.world.CompressorOnTotalSeconds.Store(total)
			_ = a.cfg.Save("compressor.on_total_seconds", fmt.Sprintf("%d", int(total)))
		}
		a.world.CompressorOnStart.Store(time.Time{})
	}

	a.wasOn = on
}

package indicator

import (
	"time"

	"github.com/coldroom/coldroom-ctl/internal/world"
)

const wigWagPeriod = 250 * time.Millisecond

// Renderer computes the two LED colors from a Snapshot.
type Renderer struct {
	transport Transport
}

// NewRenderer wires a Renderer over its transport.
func NewRenderer(transport Transport) *Renderer {
	return &Renderer{transport: transport}
}

// Render renders one frame from snap.
func (r *Renderer) Render(snap world.Snapshot) error {
	led0, led1 := colorsFor(snap)
	return r.transport.SetLEDs(led0, led1)
}

func colorsFor(snap world.Snapshot) (led0, led1 Color) {
	if snap.ShutdownAlarm {
		if wigWagPhase(snap.Now) {
			return ColorGreen, ColorYellow
		}
		return ColorYellow, ColorGreen
	}
	if snap.WarningAlarm {
		return ColorYellow, modeColor(snap.Mode)
	}
	return ColorGreen, modeColor(snap.Mode)
}

func modeColor(mode world.Mode) Color {
	switch mode {
	case world.ModeCooling:
		return ColorBlue
	case world.ModeHeating:
		return ColorRed
	case world.ModeDefrost:
		return ColorYellow
	default:
		return ColorOff
	}
}

func wigWagPhase(now time.Time) bool {
	return (now.UnixNano()/int64(wigWagPeriod))%2 == 0
}

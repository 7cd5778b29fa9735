package display

import (
	"fmt"
	"strings"
	"time"

	"github.com/coldroom/coldroom-ctl/internal/world"
)

// NetInfo supplies the two network addresses the display prints, sourced from the
// out-of-scope Wi-Fi/hotspot collaborator.
type NetInfo interface {
	WLANAddr() string
	HotspotAddr() string
}

// Renderer owns the two physical displays and the line-diff state.
type Renderer struct {
	display1, display2 Transport
	net                 NetInfo

	lastLines1, lastLines2 Lines
	flashOn                bool
}

// NewRenderer wires a Renderer over its two transports.
func NewRenderer(display1, display2 Transport, net NetInfo) *Renderer {
	return &Renderer{display1: display1, display2: display2, net: net}
}

// Render renders one frame from snap and returns the first write error
// encountered, if any (rendering continues to completion regardless).
func (r *Renderer) Render(snap world.Snapshot) error {
	r.flashOn = !r.flashOn

	lines1 := r.buildDisplay1(snap)
	lines2 := r.buildDisplay2(snap)

	err := r.writeDiffed(r.display1, &r.lastLines1, lines1)
	if err2 := r.writeDiffed(r.display2, &r.lastLines2, lines2); err == nil {
		err = err2
	}
	return err
}

func (r *Renderer) writeDiffed(t Transport, last *Lines, next Lines) error {
	var firstErr error
	for row := 0; row < 4; row++ {
		if next[row] == last[row] {
			continue
		}
		if err := t.WriteLine(row, next[row]); err != nil && firstErr == nil {
			firstErr = err
			continue
		}
		last[row] = next[row]
	}
	return firstErr
}

func (r *Renderer) buildDisplay1(snap world.Snapshot) Lines {
	var l Lines
	l[0] = pad(statusLine(snap))

	if snap.SetpointEdit {
		if r.flashOn {
			l[1] = pad(fmt.Sprintf("Setpoint = %.1f", snap.Setpoint))
		} else {
			l[1] = pad("")
		}
	} else {
		l[1] = pad(fmt.Sprintf("SP: %.1f RT: %.1f", snap.Setpoint, snap.Return))
	}

	l[2] = pad(fmt.Sprintf("CT: %.1f DT: %.1f", snap.Coil, snap.Supply))
	l[3] = pad(alarmsLine(snap.AlarmCodes))
	return l
}

func (r *Renderer) buildDisplay2(snap world.Snapshot) Lines {
	var l Lines
	l[0] = pad(statusLine(snap))
	l[1] = pad(formatDuration(snap.Now.Sub(snap.StateTimer)))
	l[2] = pad(fmt.Sprintf("IP:%s", r.net.WLANAddr()))

	if hp := r.net.HotspotAddr(); hp != "" {
		l[3] = pad(fmt.Sprintf("HP:%s", hp))
	} else {
		l[3] = pad(fmt.Sprintf("Run Hours: %s", formatRunHours(snap.CompressorOnTotalSeconds)))
	}
	return l
}

func statusLine(snap world.Snapshot) string {
	mode := string(snap.Mode)
	if snap.PretripEnable {
		mode = "P-" + mode
	}
	line := "Status: " + mode
	if snap.AntiTimerActive {
		line += " AC"
	}
	return line
}

func alarmsLine(codes []int) string {
	if len(codes) == 0 {
		return "Normal"
	}
	parts := make([]string, len(codes))
	for i, c := range codes {
		parts[i] = fmt.Sprintf("%d", c)
	}
	return "Alarms: " + strings.Join(parts, ",")
}

func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func formatRunHours(totalSeconds float64) string {
	total := int(totalSeconds)
	h := total / 3600
	m := (total % 3600) / 60
	return fmt.Sprintf("%02d:%02d", h, m)
}

package display

import (
	"strings"
	"testing"
	"time"

	"github.com/coldroom/coldroom-ctl/internal/world"
)

type fakeNet struct {
	wlan, hotspot string
}

func (f fakeNet) WLANAddr() string    { return f.wlan }
func (f fakeNet) HotspotAddr() string { return f.hotspot }

func baseSnapshot(now time.Time) world.Snapshot {
	return world.Snapshot{
		Mode:       world.ModeCooling,
		Setpoint:   55,
		Return:     58.3,
		Supply:     50.1,
		Coil:       40.2,
		StateTimer: now.Add(-90 * time.Second),
		Now:        now,
	}
}

func TestStatusLinePretripPrefix(t *testing.T) {
	snap := baseSnapshot(time.Now())
	snap.PretripEnable = true
	snap.Mode = world.ModeCooling
	if got := statusLine(snap); got != "Status: P-Cooling" {
		t.Errorf("expected pretrip-prefixed status, got %q", got)
	}
}

func TestStatusLineAntiCycleSuffix(t *testing.T) {
	snap := baseSnapshot(time.Now())
	snap.AntiTimerActive = true
	if got := statusLine(snap); got != "Status: Cooling AC" {
		t.Errorf("expected AC suffix, got %q", got)
	}
}

func TestAlarmsLineNormalWhenEmpty(t *testing.T) {
	if got := alarmsLine(nil); got != "Normal" {
		t.Errorf("expected Normal, got %q", got)
	}
}

func TestAlarmsLineJoinsCodes(t *testing.T) {
	if got := alarmsLine([]int{1001, 2000}); !strings.Contains(got, "1001") || !strings.Contains(got, "2000") {
		t.Errorf("expected both codes present, got %q", got)
	}
}

func TestRenderWritesOnlyChangedLines(t *testing.T) {
	d1, d2 := NewFakeTransport(), NewFakeTransport()
	r := NewRenderer(d1, d2, fakeNet{wlan: "10.0.0.5"})

	now := time.Now()
	if err := r.Render(baseSnapshot(now)); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(d1.Lines[0], "Status: Cooling") {
		t.Errorf("expected status line written, got %q", d1.Lines[0])
	}
	if !strings.Contains(d2.Lines[2], "IP:10.0.0.5") {
		t.Errorf("expected wlan ip line, got %q", d2.Lines[2])
	}
}

func TestRenderFlashesSetpointWhileEditing(t *testing.T) {
	d1, d2 := NewFakeTransport(), NewFakeTransport()
	r := NewRenderer(d1, d2, fakeNet{})

	snap := baseSnapshot(time.Now())
	snap.SetpointEdit = true

	r.Render(snap)
	first := d1.Lines[1]
	r.Render(snap)
	second := d1.Lines[1]

	if first == second {
		t.Errorf("expected line 1 to flash between renders, got %q both times", first)
	}
}

func TestRunHoursShownWithoutHotspot(t *testing.T) {
	d1, d2 := NewFakeTransport(), NewFakeTransport()
	r := NewRenderer(d1, d2, fakeNet{})

	snap := baseSnapshot(time.Now())
	snap.CompressorOnTotalSeconds = 3725 // 1h02m
	r.Render(snap)

	if !strings.Contains(d2.Lines[3], "Run Hours: 01:02") {
		t.Errorf("expected run hours line, got %q", d2.Lines[3])
	}
}

func TestHotspotAddrTakesPriorityOverRunHours(t *testing.T) {
	d1, d2 := NewFakeTransport(), NewFakeTransport()
	r := NewRenderer(d1, d2, fakeNet{hotspot: "192.168.4.1"})

	r.Render(baseSnapshot(time.Now()))

	if !strings.Contains(d2.Lines[3], "HP:192.168.4.1") {
		t.Errorf("expected hotspot line, got %q", d2.Lines[3])
	}
}

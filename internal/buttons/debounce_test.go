package buttons

import (
	"testing"
	"time"
)

func TestDetectorBaselinesAfterWindow(t *testing.T) {
	d := NewDetector(30 * time.Millisecond)
	now := time.Now()
	sample := map[Channel]bool{ChannelUp: false, ChannelDown: false, ChannelDefrost: false, ChannelAlarm: false}

	changed := d.Process(sample, now)
	if len(changed) != 0 {
		t.Errorf("expected no baseline on first sample, got %v", changed)
	}
	changed = d.Process(sample, now.Add(40*time.Millisecond))
	if !changed[ChannelUp] {
		t.Error("expected baseline established after debounce window")
	}
}

func TestDetectorRequiresStablePress(t *testing.T) {
	d := NewDetector(30 * time.Millisecond)
	now := time.Now()
	idle := map[Channel]bool{ChannelUp: false, ChannelDown: false, ChannelDefrost: false, ChannelAlarm: false}
	d.Process(idle, now)
	d.Process(idle, now.Add(40*time.Millisecond)) // baseline: released

	pressed := map[Channel]bool{ChannelUp: true, ChannelDown: false, ChannelDefrost: false, ChannelAlarm: false}
	changed := d.Process(pressed, now.Add(50*time.Millisecond))
	if changed[ChannelUp] {
		t.Error("expected no change before debounce window elapses")
	}
	if d.Pressed(ChannelUp) {
		t.Error("expected still released mid-debounce")
	}

	// Bounce back to released before the window elapses: should not register.
	changed = d.Process(idle, now.Add(55*time.Millisecond))
	if changed[ChannelUp] {
		t.Error("expected bounce to not register a change")
	}

	changed = d.Process(pressed, now.Add(60*time.Millisecond))
	changed = d.Process(pressed, now.Add(95*time.Millisecond))
	if !changed[ChannelUp] || !d.Pressed(ChannelUp) {
		t.Error("expected press to register once stable for the full window")
	}
}

func TestDetectorHeldFor(t *testing.T) {
	d := NewDetector(10 * time.Millisecond)
	now := time.Now()
	idle := map[Channel]bool{ChannelUp: false, ChannelDown: false, ChannelDefrost: false, ChannelAlarm: false}
	d.Process(idle, now)
	d.Process(idle, now.Add(20*time.Millisecond))

	pressed := map[Channel]bool{ChannelDefrost: true}
	d.Process(pressed, now.Add(30*time.Millisecond))
	d.Process(pressed, now.Add(45*time.Millisecond))

	if held := d.HeldFor(ChannelDefrost, now.Add(45*time.Millisecond)); held <= 0 {
		t.Errorf("expected positive held duration, got %v", held)
	}
	if held := d.HeldFor(ChannelUp, now.Add(45*time.Millisecond)); held != 0 {
		t.Errorf("expected zero held duration for unpressed channel, got %v", held)
	}
}

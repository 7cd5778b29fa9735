package gpio

import (
	"errors"
	"testing"
)

func TestFakeReaderRead(t *testing.T) {
	samples := []Sample{
		{ButtonUp: true, ButtonDown: false},
		{ButtonUp: false, ButtonDown: true},
		{ButtonUp: true, ButtonDown: true},
	}

	f := NewFakeReader(samples)

	for i, want := range samples {
		got, err := f.Read()
		if err != nil {
			t.Fatalf("sample %d: unexpected error: %v", i, err)
		}
		if got[ButtonUp] != want[ButtonUp] || got[ButtonDown] != want[ButtonDown] {
			t.Errorf("sample %d: expected %v, got %v", i, want, got)
		}
	}

	// Next read should repeat the last sample.
	got, err := f.Read()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[ButtonUp] != true || got[ButtonDown] != true {
		t.Errorf("repeat: expected (true, true), got (%v, %v)", got[ButtonUp], got[ButtonDown])
	}
}

func TestFakeReaderNoSamples(t *testing.T) {
	f := NewFakeReader(nil)

	_, err := f.Read()
	if err == nil {
		t.Error("expected error with no samples")
	}
}

func TestFakeReaderError(t *testing.T) {
	f := NewFakeReader([]Sample{{ButtonUp: true}})
	f.ReadError = errors.New("simulated error")

	_, err := f.Read()
	if err == nil {
		t.Error("expected error to be returned")
	}
	if err.Error() != "simulated error" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFakeReaderClose(t *testing.T) {
	f := NewFakeReader([]Sample{{ButtonUp: true}})

	if f.Closed {
		t.Error("should not be closed initially")
	}

	if err := f.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if !f.Closed {
		t.Error("should be closed after Close()")
	}
}

func TestFakeReaderReset(t *testing.T) {
	samples := []Sample{
		{ButtonUp: true, ButtonDown: false},
		{ButtonUp: false, ButtonDown: true},
	}

	f := NewFakeReader(samples)

	f.Read()
	f.Reset()

	got, _ := f.Read()
	if got[ButtonUp] != true || got[ButtonDown] != false {
		t.Errorf("after reset: expected (true, false), got (%v, %v)", got[ButtonUp], got[ButtonDown])
	}
}

func TestFakeWriter(t *testing.T) {
	w := NewFakeWriter()

	if err := w.Write(RelayCompressor, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !w.Levels[RelayCompressor] {
		t.Error("expected compressor level true")
	}
	if len(w.History) != 1 || w.History[0].Relay != RelayCompressor || !w.History[0].Level {
		t.Errorf("unexpected history: %+v", w.History)
	}

	w.WriteError = errors.New("boom")
	if err := w.Write(RelayFan, true); err == nil {
		t.Error("expected error")
	}

	if err := w.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !w.Closed {
		t.Error("expected Closed true")
	}
}

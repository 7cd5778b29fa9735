package telemetry

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/coldroom/coldroom-ctl/internal/config"
	"github.com/coldroom/coldroom-ctl/internal/world"
)

var errSendFailed = errors.New("send failed")

func newTestTask(t *testing.T, client *FakeClient, connected bool) (*Task, *world.World, *FakeAlarmResetter, *FakePublisher) {
	t.Helper()
	w := world.New(time.Now())
	c, err := config.Load(filepath.Join(t.TempDir(), "config.env"))
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	if err := c.Save("client.enable", "1"); err != nil {
		t.Fatalf("save client.enable: %v", err)
	}
	if err := c.Save("client.sent_mins", "10"); err != nil {
		t.Fatalf("save client.sent_mins: %v", err)
	}
	alarms := &FakeAlarmResetter{}
	bus := &FakePublisher{}
	task := NewTask(w, c, nil, client, bus, FakeConnectivity{IsConnected: connected}, alarms)
	return task, w, alarms, bus
}

func TestTickSkipsWhenDisabled(t *testing.T) {
	client := NewFakeClient(Reply{})
	task, w, _, _ := newTestTask(t, client, true)
	_ = w
	if err := task.cfg.Save("client.enable", "0"); err != nil {
		t.Fatalf("save: %v", err)
	}

	task.Tick(time.Now())
	if len(client.Sent) != 0 {
		t.Error("expected no send while client.enable is false")
	}
}

func TestTickSkipsWhenDisconnected(t *testing.T) {
	client := NewFakeClient(Reply{})
	task, _, _, _ := newTestTask(t, client, false)

	task.Tick(time.Now())
	if len(client.Sent) != 0 {
		t.Error("expected no send while Wi-Fi is disconnected")
	}
}

func TestTickSendsOnFirstCall(t *testing.T) {
	client := NewFakeClient(Reply{})
	task, _, _, bus := newTestTask(t, client, true)

	task.Tick(time.Now())
	if len(client.Sent) != 1 {
		t.Fatalf("expected 1 send, got %d", len(client.Sent))
	}
	if len(bus.Snapshots) != 1 {
		t.Errorf("expected local bus fan-out, got %d", len(bus.Snapshots))
	}
}

func TestTickDoesNotResendBeforeInterval(t *testing.T) {
	client := NewFakeClient(Reply{}, Reply{})
	task, _, _, _ := newTestTask(t, client, true)

	now := time.Now()
	task.Tick(now)
	task.Tick(now.Add(30 * time.Second))
	if len(client.Sent) != 1 {
		t.Errorf("expected still 1 send before the interval elapses, got %d", len(client.Sent))
	}
}

func TestAlarmResetCommandTriggersResetAndAck(t *testing.T) {
	client := NewFakeClient(Reply{Status: CommandAlarmReset}, Reply{})
	task, _, alarms, _ := newTestTask(t, client, true)

	now := time.Now()
	task.Tick(now)
	if alarms.ResetCalls != 1 {
		t.Fatalf("expected alarm reset called once, got %d", alarms.ResetCalls)
	}

	// Before the 10s ack delay, no resend.
	task.Tick(now.Add(2 * time.Second))
	if len(client.Sent) != 1 {
		t.Errorf("expected no ack resend before 10s, got %d sends", len(client.Sent))
	}

	// After the 10s ack delay, exactly one resend.
	task.Tick(now.Add(11 * time.Second))
	if len(client.Sent) != 2 {
		t.Errorf("expected ack resend after 10s, got %d sends", len(client.Sent))
	}
}

func TestDefrostCommandSetsTriggerDefrost(t *testing.T) {
	client := NewFakeClient(Reply{Status: CommandDefrost})
	task, w, _, _ := newTestTask(t, client, true)

	task.Tick(time.Now())
	if !w.TriggerDefrost.Load() {
		t.Error("expected trigger_defrost set after a defrost command")
	}
}

func TestSendErrorIsLoggedNotFatal(t *testing.T) {
	client := NewFakeClient()
	client.SendErr = errSendFailed
	task, _, _, _ := newTestTask(t, client, true)

	task.Tick(time.Now())
	if len(client.Sent) != 0 {
		t.Error("expected no recorded send on client error")
	}
}

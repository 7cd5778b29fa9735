package telemetry

import (
	"time"

	"github.com/coldroom/coldroom-ctl/internal/config"
	"github.com/coldroom/coldroom-ctl/internal/logging"
	"github.com/coldroom/coldroom-ctl/internal/world"
)

const taskInterval = 1 * time.Second

// Task drives the periodic remote-reporting cycle.
type Task struct {
	world *world.World
	cfg   *config.Config
	log   *logging.Log

	client  Client
	bus     Publisher
	net     Connectivity
	alarms  AlarmResetter

	lastSent     time.Time
	pendingAck   bool
	pendingAckAt time.Time
}

// NewTask wires a telemetry task over its collaborators. bus may be nil if
// no local fan-out is configured.
func NewTask(w *world.World, cfg *config.Config, log *logging.Log, client Client, bus Publisher, net Connectivity, alarms AlarmResetter) *Task {
	return &Task{world: w, cfg: cfg, log: log, client: client, bus: bus, net: net, alarms: alarms}
}

// Run drives the task at 1 Hz until stop fires or world.Running goes false.
func (t *Task) Run(stop <-chan struct{}) error {
	ticker := time.NewTicker(taskInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return nil
		case now := <-ticker.C:
			if !t.world.Running.Load() {
				return nil
			}
			t.Tick(now)
		}
	}
}

// Tick runs one iteration: submits a snapshot if the send interval or a
// pending acknowledgement resend is due. If data-sending is
// disabled by config, the task sleeps but does not submit.
func (t *Task) Tick(now time.Time) {
	if !t.cfg.ClientEnabled() {
		return
	}
	if t.net != nil && !t.net.Connected() {
		return
	}

	interval := time.Duration(t.cfg.ClientSentMins()) * time.Minute
	due := t.lastSent.IsZero() || now.Sub(t.lastSent) >= interval
	ackDue := t.pendingAck && now.Sub(t.pendingAckAt) >= ackDelay

	if !due && !ackDue {
		return
	}

	snap := BuildSnapshot(t.world.Snapshot(), t.cfg.UnitNumber())
	reply, err := t.send(snap)
	if err != nil {
		t.logError("telemetry send failed: %v", err)
		return
	}

	if due {
		t.lastSent = now
	}
	if ackDue {
		t.pendingAck = false
	}

	switch reply.Status {
	case CommandAlarmReset:
		t.alarms.Reset()
		t.pendingAck = true
		t.pendingAckAt = now
	case CommandDefrost:
		t.world.TriggerDefrost.Store(true)
		t.pendingAck = true
		t.pendingAckAt = now
	}
}

// send submits snap to the remote client and fans it out to the local bus.
// A local-bus publish failure is logged but never blocks the remote call.
func (t *Task) send(snap Snapshot) (Reply, error) {
	reply, err := t.client.Send(snap)
	if err != nil {
		return Reply{}, err
	}
	if t.bus != nil {
		if pubErr := t.bus.PublishSnapshot(snap); pubErr != nil {
			t.logError("local bus publish failed: %v", pubErr)
		}
	}
	return reply, nil
}

func (t *Task) logError(format string, args ...interface{}) {
	if t.log != nil {
		_ = t.log.Errorf(format, args...)
	}
}

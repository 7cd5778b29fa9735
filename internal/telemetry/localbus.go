package telemetry

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// TopicSnapshot and TopicSystem are the local broker topics the
// dashboard/web-aggregator collaborators subscribe to.
const (
	TopicSnapshot = "coldroom/unit/snapshot"
	TopicSystem   = "coldroom/unit/system"
)

// SystemEvent is a system lifecycle event published to TopicSystem, such as
// startup, shutdown, or heartbeat, distinct from a telemetry Snapshot.
type SystemEvent struct {
	Timestamp time.Time
	Event     string // "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason    string // e.g. "SIGTERM", "SIGINT" (shutdown only)
	Retained  bool
}

type systemPayload struct {
	System struct {
		Timestamp string `json:"timestamp"`
		Event     string `json:"event"`
		Reason    string `json:"reason,omitempty"`
	} `json:"system"`
}

// FormatSystemPayload encodes a SystemEvent as the JSON document published
// to TopicSystem.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	var p systemPayload
	p.System.Timestamp = event.Timestamp.UTC().Format(time.RFC3339)
	p.System.Event = event.Event
	p.System.Reason = event.Reason
	return json.Marshal(p)
}

// Publisher fans telemetry out to the local broker for the out-of-scope
// dashboard/web-aggregator collaborators.
type Publisher interface {
	PublishSnapshot(snap Snapshot) error
	PublishSystem(event SystemEvent) error
	Close() error
}

// bufferCapacity bounds the reconnect buffer; beyond it, the oldest
// message is dropped.
const bufferCapacity = 64

// bufferedMsg is one message held for replay after reconnection.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// ringBuffer is a fixed-capacity FIFO of bufferedMsg, not safe for
// concurrent use; the caller (RealPublisher) synchronizes it.
type ringBuffer struct {
	buf      []bufferedMsg
	capacity int
	head     int
	count    int
	overflow bool
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{buf: make([]bufferedMsg, capacity), capacity: capacity}
}

func (r *ringBuffer) push(msg bufferedMsg) {
	if r.count == r.capacity {
		if !r.overflow {
			log.Printf("telemetry: local bus buffer full (%d messages), dropping oldest", r.capacity)
			r.overflow = true
		}
		r.buf[r.head] = msg
		r.head = (r.head + 1) % r.capacity
		return
	}
	r.buf[r.head] = msg
	r.head = (r.head + 1) % r.capacity
	r.count++
}

func (r *ringBuffer) drainAll() []bufferedMsg {
	if r.count == 0 {
		return nil
	}
	result := make([]bufferedMsg, r.count)
	start := (r.head - r.count + r.capacity) % r.capacity
	for i := 0; i < r.count; i++ {
		result[i] = r.buf[(start+i)%r.capacity]
	}
	r.count = 0
	r.head = 0
	r.overflow = false
	return result
}

// RealPublisher publishes to a local MQTT broker, buffering messages while
// disconnected and replaying them once the broker reconnects.
type RealPublisher struct {
	client paho.Client
	buf    *ringBuffer
}

// NewRealPublisher connects to broker and wires an OnConnect handler that
// drains any messages buffered while disconnected.
func NewRealPublisher(broker string) (*RealPublisher, error) {
	p := &RealPublisher{buf: newRingBuffer(bufferCapacity)}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID("coldroom-ctl").
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(c paho.Client) {
			for _, msg := range p.buf.drainAll() {
				c.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
			}
		})

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return p, nil
}

func (p *RealPublisher) publish(topic string, qos byte, retained bool, payload []byte) {
	if !p.client.IsConnected() {
		p.buf.push(bufferedMsg{topic: topic, payload: payload, qos: qos, retained: retained})
		return
	}
	p.client.Publish(topic, qos, retained, payload)
}

// PublishSnapshot fans out a telemetry snapshot at QoS 0.
func (p *RealPublisher) PublishSnapshot(snap Snapshot) error {
	payload, err := MarshalSnapshot(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	p.publish(TopicSnapshot, 0, false, payload)
	return nil
}

// PublishSystem fans out a system event at QoS 1 (delivery matters more
// than freshness for shutdown/startup events).
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	p.publish(TopicSystem, 1, event.Retained, payload)
	return nil
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000)
	return nil
}

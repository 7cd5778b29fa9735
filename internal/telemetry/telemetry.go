// Package telemetry is the remote-reporting task: a periodic
// snapshot document pushed over a mutually-authenticated TLS socket, plus a
// secondary local MQTT fan-out for the out-of-scope dashboard/web-aggregator
// collaborators.
//
// The secure remote client sits behind the Client interface: one JSON
// document out, one JSON document back. The local bus sits behind the
// Publisher interface and carries snapshots and SystemEvent envelopes. In
// both, the pure payload encoders are kept apart from the transport.
package telemetry

import (
	"encoding/json"
	"time"

	"github.com/coldroom/coldroom-ctl/internal/world"
)

// CommandAlarmReset and CommandDefrost are the two command values a reply's
// Status field may carry.
const (
	CommandAlarmReset = "alarm_reset"
	CommandDefrost    = "defrost"
)

// sendTimeout bounds every external call.
const sendTimeout = 15 * time.Second

// ackDelay is how long after an immediate command the task re-sends once to
// acknowledge.
const ackDelay = 10 * time.Second

// Snapshot is the document submitted on each telemetry cycle.
type Snapshot struct {
	Timestamp  time.Time      `json:"timestamp"`
	UnitNumber int            `json:"unit_number"`
	AlarmCodes []int          `json:"alarm_codes"`
	Setpoint   float64        `json:"setpoint"`
	Mode       string         `json:"mode"`
	Relays     RelaySnapshot  `json:"relays"`
	Return     float64        `json:"return_temp"`
	Supply     float64        `json:"supply_temp"`
	Coil       float64        `json:"coil_temp"`
}

// RelaySnapshot is the relay-state portion of Snapshot.
type RelaySnapshot struct {
	Compressor     bool `json:"compressor"`
	Fan            bool `json:"fan"`
	Valve          bool `json:"valve"`
	ElectricHeater bool `json:"electric_heater"`
}

// Reply is the single JSON document the remote collaborator returns.
type Reply struct {
	Status string `json:"status,omitempty"`
}

// BuildSnapshot captures the fields of snap the remote collaborator needs.
func BuildSnapshot(snap world.Snapshot, unitNumber int) Snapshot {
	return Snapshot{
		Timestamp:  snap.Now,
		UnitNumber: unitNumber,
		AlarmCodes: snap.AlarmCodes,
		Setpoint:   snap.Setpoint,
		Mode:       string(snap.Mode),
		Relays: RelaySnapshot{
			Compressor:     snap.Relays.Compressor,
			Fan:            snap.Relays.Fan,
			Valve:          snap.Relays.Valve,
			ElectricHeater: snap.Relays.ElectricHeater,
		},
		Return: snap.Return,
		Supply: snap.Supply,
		Coil:   snap.Coil,
	}
}

// MarshalSnapshot encodes snap as the single JSON document sent to the
// remote collaborator.
func MarshalSnapshot(snap Snapshot) ([]byte, error) {
	return json.Marshal(snap)
}

// UnmarshalReply decodes the remote collaborator's single JSON document
// reply.
func UnmarshalReply(data []byte) (Reply, error) {
	var r Reply
	if err := json.Unmarshal(data, &r); err != nil {
		return Reply{}, err
	}
	return r, nil
}

// Client is the external secure-client collaborator: a mutually-authenticated
// TLS socket where the client presents cert/key/CA, the payload is a single
// JSON document carrying the snapshot, and the reply is a single JSON
// document carrying an optional status field.
type Client interface {
	// Send submits snap and returns the collaborator's reply. Implementations
	// must honor sendTimeout themselves.
	Send(snap Snapshot) (Reply, error)

	// Close releases any held connection.
	Close() error
}

// Connectivity reports whether the Wi-Fi collaborator has an active
// connection. The telemetry task only submits while connected.
type Connectivity interface {
	Connected() bool
}

// AlarmResetter is the narrow slice of the alarm evaluator the telemetry
// task drives on an alarm_reset command, mirroring
// buttons.AlarmResetter to avoid an import cycle with the alarm package.
type AlarmResetter interface {
	Reset()
}

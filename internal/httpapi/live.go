package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// liveInterval is how often the live status push sends a fresh snapshot.
const liveInterval = 1 * time.Second

var liveUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleLive upgrades the connection to a websocket and pushes a JSON
// status document every liveInterval until the client disconnects.
func (h *Handlers) handleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := liveUpgrader.Upgrade(w, r, nil)
	if err != nil {
		if h.log != nil {
			_ = h.log.Errorf("API: live websocket upgrade failed: %v", err)
		}
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(liveInterval)
	defer ticker.Stop()

	for range ticker.C {
		snap := h.world.Snapshot()
		payload, err := json.Marshal(map[string]interface{}{
			"mode":      string(snap.Mode),
			"relays":    snap.Relays,
			"setpoint":  snap.Setpoint,
			"return":    snap.Return,
			"supply":    snap.Supply,
			"coil":      snap.Coil,
			"alarms":    snap.AlarmCodes,
			"timestamp": snap.Now.Unix(),
		})
		if err != nil {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

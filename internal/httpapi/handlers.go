package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/coldroom/coldroom-ctl/internal/config"
	"github.com/coldroom/coldroom-ctl/internal/logging"
	"github.com/coldroom/coldroom-ctl/internal/world"
)

// Handlers implements the fixed endpoint set.
type Handlers struct {
	world  *world.World
	cfg    *config.Config
	log    *logging.Log
	alarms AlarmResetter
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]interface{}{
		"error":     true,
		"code":      code,
		"message":   message,
		"timestamp": time.Now().Unix(),
	})
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"version":   apiVersion,
		"timestamp": time.Now().Unix(),
	})
}

func (h *Handlers) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := h.world.Snapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"system":  "Refrigeration Control System",
		"version": apiVersion,
		"relays": map[string]bool{
			"compressor":     snap.Relays.Compressor,
			"fan":            snap.Relays.Fan,
			"valve":          snap.Relays.Valve,
			"electric_heater": snap.Relays.ElectricHeater,
		},
		"system_status":  string(snap.Mode),
		"active_alarms":  snap.AlarmCodes,
		"alarm_warning":  snap.WarningAlarm,
		"alarm_shutdown": snap.ShutdownAlarm,
		"sensors": map[string]float64{
			"return_temp": snap.Return,
			"supply_temp": snap.Supply,
			"coil_temp":   snap.Coil,
		},
		"setpoint":  snap.Setpoint,
		"timestamp": time.Now().Unix(),
	})
}

func (h *Handlers) handleSensors(w http.ResponseWriter, r *http.Request) {
	snap := h.world.Snapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"return_temp": snap.Return,
		"supply_temp": snap.Supply,
		"coil_temp":   snap.Coil,
		"setpoint":    snap.Setpoint,
		"timestamp":   time.Now().Unix(),
	})
}

func (h *Handlers) handleRelays(w http.ResponseWriter, r *http.Request) {
	snap := h.world.Snapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"compressor":      snap.Relays.Compressor,
		"fan":             snap.Relays.Fan,
		"valve":           snap.Relays.Valve,
		"electric_heater": snap.Relays.ElectricHeater,
		"timestamp":       time.Now().Unix(),
	})
}

func (h *Handlers) handleSetpointGet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"setpoint":  h.world.Setpoint.Load(),
		"timestamp": time.Now().Unix(),
	})
}

func (h *Handlers) handleSetpointPost(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Setpoint float64 `json:"setpoint"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	min, max := h.cfg.SetpointMin(), h.cfg.SetpointMax()
	if body.Setpoint < min || body.Setpoint > max {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"error":      true,
			"message":    "Setpoint out of range",
			"low_limit":  min,
			"high_limit": max,
		})
		return
	}

	clamped := world.ClampSetpoint(body.Setpoint, min, max)
	h.world.Setpoint.Store(clamped)
	_ = h.cfg.Save("setpoint", fmt.Sprintf("%.1f", clamped))

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"setpoint":  clamped,
		"timestamp": time.Now().Unix(),
	})
}

func (h *Handlers) handleAlarmsReset(w http.ResponseWriter, r *http.Request) {
	h.alarms.Reset()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"message":   "Alarms reset successfully",
		"timestamp": time.Now().Unix(),
	})
}

func (h *Handlers) handleDefrostTrigger(w http.ResponseWriter, r *http.Request) {
	h.world.TriggerDefrost.Store(true)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"message":   "Defrost triggered",
		"timestamp": time.Now().Unix(),
	})
}

func (h *Handlers) handleDemoModeGet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"demo_mode": h.world.DemoMode.Load(),
		"timestamp": time.Now().Unix(),
	})
}

func (h *Handlers) handleDemoModePost(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Enable bool `json:"enable"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if h.cfg.GetInt("debug.code", 1) == 0 {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":   false,
			"message":   "Demo mode is disabled",
			"demo_mode": h.world.DemoMode.Load(),
			"timestamp": time.Now().Unix(),
		})
		return
	}

	previous := h.world.DemoMode.Load()
	h.world.DemoMode.Store(body.Enable)

	message := "Demo mode disabled"
	if body.Enable {
		message = "Demo mode enabled"
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":        true,
		"message":        message,
		"demo_mode":       body.Enable,
		"previous_state": previous,
		"timestamp":      time.Now().Unix(),
	})
}

// systemInfoKeys is the full set of config keys the system-info endpoint
// echoes, named one-for-one after handle_system_info_request's explicit
// list.
var systemInfoKeys = []string{
	"api.key", "api.listen",
	"compressor.off_timer", "debug.code",
	"defrost.coil_temperature", "defrost.interval_hours", "defrost.timeout_mins",
	"logging.interval_sec", "logging.retention_period",
	"sensor.coil", "sensor.return", "sensor.supply",
	"setpoint.max", "setpoint.min", "setpoint.offset",
	"compressor.on_total_seconds",
	"unit.electric_heater", "unit.fan_continuous", "unit.number", "unit.relay_active_low",
	"client.enable", "client.sent_mins",
}

func (h *Handlers) handleSystemInfo(w http.ResponseWriter, r *http.Request) {
	info := make(map[string]interface{}, len(systemInfoKeys)+1)
	for _, key := range systemInfoKeys {
		if config.IsSensitive(key) {
			info[key] = "***"
			continue
		}
		info[key] = h.cfg.Get(key)
	}
	info["timestamp"] = time.Now().Unix()
	writeJSON(w, http.StatusOK, info)
}

// readOnlyConfigKeys cannot be changed via the config POST endpoint because
// they are derived/reported fields, not tunables.
var readOnlyConfigKeys = map[string]bool{
	"compressor.on_total_seconds": true,
}

func (h *Handlers) handleConfigPost(w http.ResponseWriter, r *http.Request) {
	var updates map[string]string
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	updated := map[string]string{}
	skipped := map[string]string{}
	errs := map[string]string{}

	for key, value := range updates {
		if readOnlyConfigKeys[key] {
			skipped[key] = "Read-only field"
			continue
		}
		if config.IsSensitive(key) {
			skipped[key] = "Cannot be updated via API for security reasons"
			if h.log != nil {
				_ = h.log.Debugf("API: attempt to update security-sensitive field %q was blocked", key)
			}
			continue
		}
		if err := h.cfg.Save(key, value); err != nil {
			errs[key] = err.Error()
			continue
		}
		updated[key] = value
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"updated":   updated,
		"skipped":   skipped,
		"errors":    errs,
		"timestamp": time.Now().Unix(),
	})
}

func (h *Handlers) handleLogsEvents(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		writeError(w, http.StatusBadRequest, "missing 'date' parameter. Use ?date=YYYY-MM-DD")
		return
	}
	data, err := h.log.ReadEvents(date)
	if err != nil {
		writeError(w, http.StatusNotFound, "no events log for that date")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handlers) handleLogsConditions(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		writeError(w, http.StatusBadRequest, "missing 'date' parameter. Use ?date=YYYY-MM-DD")
		return
	}
	data, err := h.log.ReadConditions(date)
	if err != nil {
		writeError(w, http.StatusNotFound, "no conditions log for that date")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

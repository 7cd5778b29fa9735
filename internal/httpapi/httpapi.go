// Package httpapi is the local HTTPS API: fixed authenticated
// endpoints for health, status, sensors, relays, setpoint, alarm reset,
// defrost trigger, demo mode, system info, config updates, and log
// downloads, consumed by the out-of-scope external API collaborator.
//
// The http.Server lifecycle (ListenAndServe/Shutdown) is kept as-is;
// routing moves from http.ServeMux to gorilla/mux so path variables and
// method matching stay declarative as the endpoint set grows.
package httpapi

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/coldroom/coldroom-ctl/internal/config"
	"github.com/coldroom/coldroom-ctl/internal/logging"
	"github.com/coldroom/coldroom-ctl/internal/world"
)

const apiVersion = "1.0"

// AlarmResetter is the narrow slice of the alarm evaluator the API drives
// on POST /api/v1/alarms/reset, mirroring buttons.AlarmResetter.
type AlarmResetter interface {
	Reset()
}

// Server is the local HTTPS API server.
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	handlers   *Handlers
}

// New wires a Server over its collaborators. listenAddr is a host:port
// string. The API's own TLS material (api.tls_cert, api.tls_key), distinct
// from the telemetry client's mTLS material, is passed to ListenAndServeTLS.
func New(listenAddr string, w *world.World, cfg *config.Config, log *logging.Log, alarms AlarmResetter) *Server {
	h := &Handlers{world: w, cfg: cfg, log: log, alarms: alarms}

	router := mux.NewRouter()
	limiter := NewRateLimiter(1000, 100, 200)
	router.Use(rateLimitMiddleware(limiter))
	router.Use(apiKeyMiddleware(cfg))

	router.HandleFunc("/health", h.handleHealth).Methods("GET")
	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/health", h.handleHealth).Methods("GET")
	api.HandleFunc("/status", h.handleStatus).Methods("GET")
	api.HandleFunc("/sensors", h.handleSensors).Methods("GET")
	api.HandleFunc("/relays", h.handleRelays).Methods("GET")
	api.HandleFunc("/setpoint", h.handleSetpointGet).Methods("GET")
	api.HandleFunc("/setpoint", h.handleSetpointPost).Methods("POST")
	api.HandleFunc("/alarms/reset", h.handleAlarmsReset).Methods("POST")
	api.HandleFunc("/defrost/trigger", h.handleDefrostTrigger).Methods("POST")
	api.HandleFunc("/demo-mode", h.handleDemoModeGet).Methods("GET")
	api.HandleFunc("/demo-mode", h.handleDemoModePost).Methods("POST")
	api.HandleFunc("/system-info", h.handleSystemInfo).Methods("GET")
	api.HandleFunc("/config", h.handleConfigPost).Methods("POST")
	api.HandleFunc("/logs/events", h.handleLogsEvents).Methods("GET")
	api.HandleFunc("/logs/conditions", h.handleLogsConditions).Methods("GET")
	api.HandleFunc("/live", h.handleLive).Methods("GET")

	return &Server{
		handlers: h,
		router:   router,
		httpServer: &http.Server{
			Addr:         listenAddr,
			Handler:      router,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// ListenAndServeTLS starts serving over TLS using certFile/keyFile. It
// blocks until the server is shut down.
func (s *Server) ListenAndServeTLS(certFile, keyFile string) error {
	return s.httpServer.ListenAndServeTLS(certFile, keyFile)
}

// ListenAndServe starts serving without TLS, for demo mode where no
// certificate has been provisioned. Production use should call
// ListenAndServeTLS instead.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on an already-bound listener. Useful for
// tests that need a known, ephemeral port ahead of starting the server.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

package main

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/soundscape-labs/noisewatch/internal/config"
	"github.com/soundscape-labs/noisewatch/internal/monitor"
	"github.com/soundscape-labs/noisewatch/internal/server"
	"github.com/soundscape-labs/noisewatch/internal/types"
)

// Server exposes the monitor over HTTP: a JSON status endpoint and a
// WebSocket feed of completed measurements.
type Server struct {
	config  *config.Config
	monitor *monitor.Monitor
	version *VersionChecker
}

// NewServer returns a Server for the given monitor.
func NewServer(cfg *config.Config, mon *monitor.Monitor) *Server {
	return &Server{
		config:  cfg,
		monitor: mon,
		version: NewVersionChecker(),
	}
}

// statusResponse is the body of GET /api/status.
type statusResponse struct {
	DeviceID string              `json:"device_id"`
	Monitor  types.MonitorStatus `json:"monitor"`
	Version  VersionInfo         `json:"version"`
}

// wsStatusMessage is the periodic status frame on the WebSocket feed.
type wsStatusMessage struct {
	Type    string              `json:"type"` // "status"
	Monitor types.MonitorStatus `json:"monitor"`
}

// wsMeasurementMessage carries one completed measurement.
type wsMeasurementMessage struct {
	Type        string            `json:"type"` // "measurement"
	Measurement types.Measurement `json:"measurement"`
}

// SetupRoutes returns an [http.Handler] configured with all routes.
func (s *Server) SetupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", s.apiKeyAuth(s.handleStatus))
	mux.HandleFunc("/ws", s.apiKeyAuth(s.handleWebSocket))

	return securityHeaders(mux)
}

// securityHeaders returns middleware that wraps handlers with security headers.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// apiKeyAuth returns middleware for API key authentication. No
// configured key means the server is open, for monitors on trusted
// local networks. WebSocket clients may pass the key as a query
// parameter since browsers cannot set headers on upgrade requests.
func (s *Server) apiKeyAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		apiKey := s.config.Server.APIKey
		if apiKey == "" {
			next(w, r)
			return
		}

		providedKey := r.Header.Get("X-API-Key")
		if providedKey == "" {
			providedKey = r.URL.Query().Get("key")
		}
		if subtle.ConstantTimeCompare([]byte(providedKey), []byte(apiKey)) != 1 {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// handleStatus handles GET /api/status.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	resp := statusResponse{
		DeviceID: s.config.DeviceID,
		Monitor:  s.monitor.Status(),
		Version:  s.version.Info(),
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode status response", "error", err)
	}
}

// handleWebSocket streams measurements and periodic status frames.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := server.UpgradeConnection(w, r)
	if err != nil {
		slog.Error("WebSocket upgrade failed", "error", err)
		return
	}

	// Buffered send channel for thread-safe writes. Only the writer
	// goroutine writes to the connection.
	send := make(chan any, 16)
	done := make(chan struct{})

	go runWebSocketWriter(conn, send)
	go runWebSocketReader(conn, done)

	s.runWebSocketEventLoop(send, done)
}

// runWebSocketWriter writes messages from the send channel to the connection.
func runWebSocketWriter(conn server.WebSocketConn, send <-chan any) {
	defer func() {
		if err := conn.Close(); err != nil {
			slog.Debug("WebSocket close error", "error", err)
		}
	}()
	for msg := range send {
		if err := conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// runWebSocketReader discards client frames and signals when the
// connection is gone.
func runWebSocketReader(conn server.WebSocketConn, done chan<- struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// runWebSocketEventLoop forwards measurements from the monitor and
// sends status frames on a fixed ticker.
func (s *Server) runWebSocketEventLoop(send chan any, done <-chan struct{}) {
	measurements := s.monitor.Subscribe()
	defer s.monitor.Unsubscribe(measurements)

	statusTicker := time.NewTicker(3 * time.Second)
	defer statusTicker.Stop()

	trySend := func(msg any) bool {
		select {
		case send <- msg:
			return true
		case <-done:
			return false
		}
	}

	if !trySend(wsStatusMessage{Type: "status", Monitor: s.monitor.Status()}) {
		close(send)
		return
	}

	for {
		select {
		case <-done:
			close(send)
			return
		case m, ok := <-measurements:
			if !ok || !trySend(wsMeasurementMessage{Type: "measurement", Measurement: m}) {
				close(send)
				return
			}
		case <-statusTicker.C:
			if !trySend(wsStatusMessage{Type: "status", Monitor: s.monitor.Status()}) {
				close(send)
				return
			}
		}
	}
}

// Start begins the HTTP server. Returns an *http.Server for graceful
// shutdown, or nil when the server is disabled.
func (s *Server) Start() *http.Server {
	if s.config.Server.Port == 0 {
		slog.Info("status server disabled")
		return nil
	}

	addr := fmt.Sprintf(":%d", s.config.Server.Port)
	slog.Info("starting status server", "addr", addr)

	srv := &http.Server{
		Addr:    addr,
		Handler: s.SetupRoutes(),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	return srv
}

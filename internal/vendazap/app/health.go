package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/vendazap/vendazap/common/version"
	"github.com/vendazap/vendazap/internal/vendazap/intent"
)

// rootBanner is the plain-text body of GET /. Uptime monitors pinging the
// root path have depended on this exact string since the first deployment.
const rootBanner = "Bot rodando com sucesso 🚀"

// HealthServer exposes /, /health, /status, /qr and the intent probe.
// It is optional; the bot runs without it when HTTPAddr is empty.
type HealthServer struct {
	addr      string
	transport transportStatus
	probe     intentProber
	startedAt time.Time
	server    *http.Server
	mux       *http.ServeMux
}

// transportStatus is the minimal interface the health server needs from the
// WhatsApp client.
type transportStatus interface {
	Ready() bool
	ConnectedAt() time.Time
	QRPNG() []byte
}

// intentProber classifies a message for the debug endpoint.
type intentProber interface {
	Classify(text string) intent.Intent
}

// healthResponse is returned by GET /health.
type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
}

// statusResponse is returned by GET /status.
type statusResponse struct {
	Status      string     `json:"status"`
	Version     string     `json:"version"`
	Commit      string     `json:"commit"`
	BuildTime   string     `json:"build_time"`
	StartedAt   time.Time  `json:"started_at"`
	UptimeSecs  float64    `json:"uptime_seconds"`
	Connected   bool       `json:"connected"`
	ConnectedAt *time.Time `json:"connected_at,omitempty"`
	PairingQR   bool       `json:"pairing_qr_available"`
}

// NewHealthServer creates and configures the HTTP server (does not start it).
func NewHealthServer(addr string, ts transportStatus, probe intentProber) *HealthServer {
	mux := http.NewServeMux()
	hs := &HealthServer{
		addr:      addr,
		transport: ts,
		probe:     probe,
		startedAt: time.Now(),
		mux:       mux,
	}
	mux.HandleFunc("/", hs.handleRoot)
	mux.HandleFunc("/health", hs.handleHealth)
	mux.HandleFunc("/status", hs.handleStatus)
	mux.HandleFunc("/qr", hs.handleQR)
	mux.HandleFunc("/debug/intent", hs.handleIntent)
	return hs
}

// ServeHTTP implements http.Handler so the server can be tested without a
// live network listener (e.g. with httptest.NewRecorder).
func (h *HealthServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// Start begins listening in the background. Blocks until the listener is
// established so the caller knows the port is open before returning.
func (h *HealthServer) Start() error {
	ln, err := net.Listen("tcp", h.addr)
	if err != nil {
		return fmt.Errorf("health server: listen %s: %w", h.addr, err)
	}

	h.server = &http.Server{
		Handler:      h,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("health server listening", "addr", ln.Addr().String())
		if err := h.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("health server stopped", "err", err)
		}
	}()

	return nil
}

// Stop shuts down the HTTP server.
func (h *HealthServer) Stop() {
	if h.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.server.Shutdown(ctx); err != nil {
		slog.Warn("health server shutdown error", "err", err)
	}
}

// handleRoot answers the uptime-monitor banner on the exact root path only.
func (h *HealthServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, rootBanner)
}

// handleHealth responds with a simple ok JSON payload.
func (h *HealthServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:  "ok",
		Version: version.Version,
		Commit:  version.GitCommit,
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleStatus responds with runtime and pairing state.
func (h *HealthServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Status:     "ok",
		Version:    version.Version,
		Commit:     version.GitCommit,
		BuildTime:  version.BuildTime,
		StartedAt:  h.startedAt,
		UptimeSecs: time.Since(h.startedAt).Seconds(),
	}
	if h.transport != nil {
		resp.Connected = h.transport.Ready()
		if at := h.transport.ConnectedAt(); !at.IsZero() {
			resp.ConnectedAt = &at
		}
		resp.PairingQR = len(h.transport.QRPNG()) > 0
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleQR serves the pending pairing QR as PNG, 404 when none is pending.
// Pairing from a browser tab beats copying the terminal on headless hosts.
func (h *HealthServer) handleQR(w http.ResponseWriter, r *http.Request) {
	var png []byte
	if h.transport != nil {
		png = h.transport.QRPNG()
	}
	if len(png) == 0 {
		http.Error(w, "no pairing in progress", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

// handleIntent classifies ?q= and returns the tag. Debug aid for tuning the
// keyword lexicons without driving real chat traffic.
func (h *HealthServer) handleIntent(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		http.Error(w, "missing q parameter", http.StatusBadRequest)
		return
	}
	if h.probe == nil {
		http.Error(w, "classifier unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"text":   q,
		"intent": h.probe.Classify(q),
	})
}

// writeJSON serialises v as JSON and writes it to w with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("health: failed to encode JSON response", "err", err)
	}
}

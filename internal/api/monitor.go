package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hearthlab/hearth-core/internal/hub"
)

// maxEventLimit caps the /events page size.
const maxEventLimit = 100

// handleHealth returns the hub's liveness summary.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := "ok"
	phase := s.controller.Phase()
	if phase != hub.PhaseRunning {
		status = "degraded"
	}

	resp := map[string]any{
		"status":         status,
		"phase":          phase.String(),
		"version":        s.version,
		"uptime_seconds": int64(time.Since(s.startTime).Seconds()),
	}
	if err := s.controller.Err(); err != nil {
		resp["error"] = err.Error()
	}
	if s.channel != nil {
		resp["channel"] = map[string]int{
			"depth":    s.channel.Len(),
			"capacity": s.channel.Cap(),
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleState returns the current hub snapshot: latest readings,
// actuator states, occupancy mode, overrides, and failed sensors.
func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.GetSnapshot())
}

// handleEvents returns the most recent events, newest first.
// The limit query parameter caps the page size (default and max 100).
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := maxEventLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		if n < limit {
			limit = n
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"events":  s.events.Recent(limit),
		"dropped": s.events.Dropped(),
	})
}

// setModeRequest is the body for PUT /mode.
type setModeRequest struct {
	Mode string `json:"mode"`
}

// handleSetMode switches the hub between home and away.
func (s *Server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	var req setModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	mode := hub.Mode(req.Mode)
	if err := s.controller.SetMode(mode); err != nil {
		writeHubError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"mode": string(mode)})
}

// setOverrideRequest is the body for PUT /actuators/{kind}/override.
type setOverrideRequest struct {
	On bool `json:"on"`
}

// handleSetOverride pins an actuator to the requested state. While
// pinned, rule evaluation cannot change it.
func (s *Server) handleSetOverride(w http.ResponseWriter, r *http.Request) {
	kind := hub.ActuatorKind(chi.URLParam(r, "kind"))

	var req setOverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.controller.SetOverride(kind, req.On); err != nil {
		writeHubError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"actuator":   kind,
		"on":         req.On,
		"overridden": true,
	})
}

// handleClearOverride returns an actuator to rule control.
func (s *Server) handleClearOverride(w http.ResponseWriter, r *http.Request) {
	kind := hub.ActuatorKind(chi.URLParam(r, "kind"))

	if err := s.controller.ClearOverride(kind); err != nil {
		writeHubError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"actuator":   kind,
		"overridden": false,
	})
}

// SystemMetrics represents the system metrics response.
type SystemMetrics struct {
	Timestamp     string         `json:"timestamp"`
	Version       string         `json:"version"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	Runtime       RuntimeMetrics `json:"runtime"`
	WebSocket     WSMetrics      `json:"websocket"`
	Channel       ChannelMetrics `json:"channel"`
	Events        EventMetrics   `json:"events"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int `json:"connected_clients"`
}

// ChannelMetrics contains reading channel statistics.
type ChannelMetrics struct {
	Depth    int `json:"depth"`
	Capacity int `json:"capacity"`
}

// EventMetrics contains event sink statistics.
type EventMetrics struct {
	Dropped uint64 `json:"dropped"`
}

// handleSystemMetrics returns process-level metrics as JSON, a
// human-friendly complement to the Prometheus endpoint.
func (s *Server) handleSystemMetrics(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	m := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		Events: EventMetrics{
			Dropped: s.events.Dropped(),
		},
	}
	if s.hub != nil {
		m.WebSocket.ConnectedClients = s.hub.ClientCount()
	}
	if s.channel != nil {
		m.Channel = ChannelMetrics{
			Depth:    s.channel.Len(),
			Capacity: s.channel.Cap(),
		}
	}

	writeJSON(w, http.StatusOK, m)
}

// writeHubError maps controller errors to HTTP status codes.
func writeHubError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, hub.ErrUnknownActuator):
		writeNotFound(w, err.Error())
	case errors.Is(err, hub.ErrUnknownMode):
		writeBadRequest(w, err.Error())
	case errors.Is(err, hub.ErrNotRunning):
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, err.Error())
	default:
		writeInternalError(w, err.Error())
	}
}

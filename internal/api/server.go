// Package api serves live run telemetry over HTTP.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cmfunderburk/vmt-dev-sub000/internal/engine"
	"github.com/cmfunderburk/vmt-dev-sub000/internal/persistence"
)

const maxStreamConns = 4

// Server serves run state over HTTP. It only reads what the Hub has copied
// out of the simulation, never the simulation itself.
type Server struct {
	Hub      *Hub
	Eng      *engine.Engine  // Optional; enables /speed
	DB       *persistence.DB // Optional; enables /runs and agent history
	RunID    string
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.

	streamConns atomic.Int32
	upgrader    websocket.Upgrader
}

// Handler builds the routed, CORS-wrapped handler.
func (s *Server) Handler() http.Handler {
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4 * 1024,
		WriteBufferSize: 64 * 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
	dbLimiter := NewRateLimiter(120, time.Minute)

	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/agents", s.handleAgents)
	mux.HandleFunc("GET /api/v1/agent/{id}", s.handleAgentDetail)
	mux.HandleFunc("GET /api/v1/trades", s.handleTrades)
	mux.HandleFunc("GET /api/v1/resources", s.handleResources)
	mux.HandleFunc("GET /api/v1/runs", RateLimitMiddleware(dbLimiter, s.handleRuns))

	// Websocket stream of tick reports.
	mux.HandleFunc("GET /api/v1/stream", s.handleStream)

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))

	return corsMiddleware(mux)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// CORS_ORIGINS adds a comma-separated list of allowed origins to the
// localhost dev servers.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth on POST requests.
// GET requests pass through.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no admin key set)", http.StatusForbidden)
				return
			}
			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"run_id":       s.RunID,
		"tick":         uint64(0),
		"trades_total": s.Hub.TotalTrades(),
		"subscribers":  s.Hub.Subscribers(),
	}
	if s.Eng != nil {
		status["speed"] = s.Eng.Speed()
	}
	if rep := s.Hub.Latest(); rep != nil {
		totals := map[string]int{}
		welfare := 0.0
		paired := 0
		for _, a := range rep.Agents {
			for g, q := range a.Inventory {
				totals[g] += q
			}
			welfare += a.Utility
			if a.PairedWith != nil {
				paired++
			}
		}
		status["tick"] = rep.Tick
		status["mode"] = rep.Mode
		status["agents"] = len(rep.Agents)
		status["paired"] = paired
		status["totals"] = totals
		status["welfare"] = welfare
		status["digest"] = rep.Digest
	}
	writeJSON(w, status)
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	rep := s.Hub.Latest()
	if rep == nil {
		writeJSON(w, []engine.AgentSnapshot{})
		return
	}
	decision := r.URL.Query().Get("decision")
	result := make([]engine.AgentSnapshot, 0, len(rep.Agents))
	for _, a := range rep.Agents {
		if decision != "" && a.Decision != decision {
			continue
		}
		result = append(result, a)
	}
	writeJSON(w, result)
}

func (s *Server) handleAgentDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id < 0 {
		http.Error(w, "invalid agent id", http.StatusBadRequest)
		return
	}
	rep := s.Hub.Latest()
	if rep == nil || id >= len(rep.Agents) {
		http.Error(w, "agent not found", http.StatusNotFound)
		return
	}

	resp := map[string]any{"agent": rep.Agents[id]}
	if s.DB != nil && s.RunID != "" && r.URL.Query().Get("history") != "" {
		hist, err := s.DB.AgentHistory(s.RunID, id)
		if err != nil {
			slog.Error("agent history query failed", "agent", id, "error", err)
			http.Error(w, "history unavailable", http.StatusInternalServerError)
			return
		}
		resp["history"] = hist
	}
	writeJSON(w, resp)
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 1000 {
			http.Error(w, "limit must be 1-1000", http.StatusBadRequest)
			return
		}
		limit = n
	}
	writeJSON(w, s.Hub.RecentTrades(limit))
}

func (s *Server) handleResources(w http.ResponseWriter, r *http.Request) {
	rep := s.Hub.Latest()
	if rep == nil {
		writeJSON(w, []engine.ResourceSnapshot{})
		return
	}
	if r.URL.Query().Get("stocked") != "" {
		out := make([]engine.ResourceSnapshot, 0, len(rep.Resources))
		for _, c := range rep.Resources {
			if c.Amount > 0 {
				out = append(out, c)
			}
		}
		writeJSON(w, out)
		return
	}
	writeJSON(w, rep.Resources)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "no run database configured", http.StatusNotFound)
		return
	}
	runs, err := s.DB.Runs()
	if err != nil {
		slog.Error("runs query failed", "error", err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, runs)
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if s.Eng == nil {
		http.Error(w, "no live engine", http.StatusNotFound)
		return
	}
	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Speed < 0 || req.Speed > 1000 {
			http.Error(w, "speed must be 0-1000", http.StatusBadRequest)
			return
		}
		s.Eng.SetSpeed(req.Speed)
		slog.Info("speed changed", "speed", req.Speed)
	}
	writeJSON(w, map[string]float64{"speed": s.Eng.Speed()})
}

// handleStream upgrades to a websocket and pushes every tick report as a
// JSON text message. Limits concurrent connections.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if n := s.streamConns.Add(1); n > maxStreamConns {
		s.streamConns.Add(-1)
		http.Error(w, "too many stream connections", http.StatusServiceUnavailable)
		return
	}
	defer s.streamConns.Add(-1)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	subID, ch := s.Hub.Subscribe()
	defer s.Hub.Unsubscribe(subID)
	slog.Info("stream client connected", "sub_id", subID)

	// Catch-up: the latest report, if any.
	if rep := s.Hub.Latest(); rep != nil {
		if b, err := json.Marshal(rep); err == nil {
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		}
	}

	// Reader goroutine only watches for the client going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(15 * time.Second)
	defer ping.Stop()

	for {
		select {
		case b, ok := <-ch:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second)); err != nil {
				return
			}
		case <-gone:
			slog.Info("stream client disconnected", "sub_id", subID)
			return
		case <-r.Context().Done():
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}

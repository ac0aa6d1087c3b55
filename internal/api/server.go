// Package api provides the read-only HTTP API for observing the simulation
// and a websocket stream of display events. All endpoints are GET; the
// simulation is driven by the engine, not by clients.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/arlott/railfront/internal/engine"
)

// Server serves the world state over HTTP.
type Server struct {
	Sim  *engine.Simulation
	Eng  *engine.Engine
	Hub  *Hub
	Port int
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	wsLimiter := NewRateLimiter(30, time.Minute)

	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/topology", s.handleTopology)
	mux.HandleFunc("/api/v1/players", s.handlePlayers)
	mux.HandleFunc("/api/v1/deltas", s.handleDeltas)
	mux.HandleFunc("/api/v1/events", s.handleEvents)

	mux.HandleFunc("/ws", RateLimitMiddleware(wsLimiter, func(w http.ResponseWriter, r *http.Request) {
		ServeWs(s.Hub, w, r)
	}))

	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr)

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	topo := s.Sim.Topology()
	trains, ships := s.Sim.AgentCounts()
	writeJSON(w, map[string]any{
		"name":      "railfront",
		"tick":      s.Sim.CurrentTick(),
		"speed":     s.Eng.Speed,
		"running":   s.Eng.Running,
		"stations":  len(topo.Stations),
		"railroads": len(topo.Railroads),
		"clusters":  len(topo.Clusters),
		"trains":    trains,
		"ships":     ships,
		"players":   len(s.Sim.Players),
	})
}

func (s *Server) handleTopology(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.Topology())
}

func (s *Server) handlePlayers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.PlayerList())
}

func (s *Server) handleDeltas(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"tick":   s.Sim.CurrentTick(),
		"deltas": s.Sim.Deltas(),
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}
	writeJSON(w, s.Sim.RecentEvents(limit))
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}

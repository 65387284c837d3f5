// Package api provides the HTTP API for querying world state and the
// WebSocket endpoint for state synchronization.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/talgya/railworld/internal/economy"
	"github.com/talgya/railworld/internal/engine"
	"github.com/talgya/railworld/internal/persistence"
	"github.com/talgya/railworld/internal/vehicle"
	"github.com/talgya/railworld/internal/world"
)

// Server serves the world state over HTTP and WebSocket.
type Server struct {
	Eng      *engine.Engine
	Hub      *Hub
	DB       *persistence.Store
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.

	httpSrv *http.Server
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	queryLimiter := NewRateLimiter(600, time.Minute)

	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/world", RateLimitMiddleware(queryLimiter, s.handleWorld))
	mux.HandleFunc("/api/v1/stations", s.handleStations)
	mux.HandleFunc("/api/v1/vehicles", s.handleVehicles)
	mux.HandleFunc("/api/v1/companies", s.handleCompanies)
	mux.HandleFunc("/api/v1/market", s.handleMarket)
	mux.HandleFunc("/api/v1/events", s.handleEvents)

	// State sync (WebSocket).
	mux.HandleFunc("/ws", s.Hub.ServeWS)

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))
	mux.HandleFunc("/api/v1/pause", s.adminOnly(s.handlePause))
	mux.HandleFunc("/api/v1/save", s.adminOnly(s.handleSave))

	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	s.httpSrv = &http.Server{Addr: addr, Handler: corsMiddleware(mux)}
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS env var to a comma-separated list of allowed origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
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

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth on POST requests.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no RAILWORLD_ADMIN_KEY set)", http.StatusForbidden)
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
	// Engine accessors and the hub query must happen outside View: View
	// already holds the engine read lock, and the hub goroutine takes it
	// when serving snapshots.
	clients := s.Hub.ClientCount()
	seq, speed, paused := s.Eng.Seq(), s.Eng.Speed(), s.Eng.Paused()

	var status map[string]any
	s.Eng.View(func(sim *engine.Simulation) {
		status = map[string]any{
			"name":      "Railworld",
			"tick":      sim.Tick,
			"seq":       seq,
			"speed":     speed,
			"paused":    paused,
			"phase":     economy.PhaseName(sim.Market.Phase),
			"towns":     len(sim.Towns),
			"stations":  len(sim.Stations),
			"vehicles":  len(sim.Vehicles),
			"companies": len(sim.Companies),
			"clients":   clients,
		}
	})
	writeJSON(w, status)
}

func (s *Server) handleWorld(w http.ResponseWriter, r *http.Request) {
	type townEntry struct {
		ID         uint64 `json:"id"`
		Name       string `json:"name"`
		X          int    `json:"x"`
		Y          int    `json:"y"`
		Population uint32 `json:"population"`
	}
	type industryEntry struct {
		ID   uint64 `json:"id"`
		Kind string `json:"kind"`
		X    int    `json:"x"`
		Y    int    `json:"y"`
	}

	var out map[string]any
	s.Eng.View(func(sim *engine.Simulation) {
		terrain := make([]uint8, len(sim.Grid.Tiles))
		content := make([]uint8, len(sim.Grid.Tiles))
		for i, t := range sim.Grid.Tiles {
			terrain[i] = uint8(t.Terrain)
			content[i] = uint8(t.Content)
		}

		towns := make([]townEntry, 0, len(sim.Towns))
		sim.EachTown(func(t *world.Town) {
			x, y := sim.Grid.Coords(t.Node)
			towns = append(towns, townEntry{ID: t.ID, Name: t.Name, X: x, Y: y, Population: t.Population})
		})

		industries := make([]industryEntry, 0, len(sim.Industries))
		sim.EachIndustry(func(in *world.Industry) {
			x, y := sim.Grid.Coords(in.Node)
			industries = append(industries, industryEntry{
				ID: in.ID, Kind: world.IndustryName(in.Kind), X: x, Y: y,
			})
		})

		out = map[string]any{
			"width":      sim.Grid.Width,
			"height":     sim.Grid.Height,
			"terrain":    terrain,
			"content":    content,
			"towns":      towns,
			"industries": industries,
			"edges":      sim.Graph.EdgeCount(),
		}
	})
	writeJSON(w, out)
}

func (s *Server) handleStations(w http.ResponseWriter, r *http.Request) {
	type stationEntry struct {
		ID      uint64         `json:"id"`
		Name    string         `json:"name"`
		Kind    string         `json:"kind"`
		Owner   uint64         `json:"owner"`
		X       int            `json:"x"`
		Y       int            `json:"y"`
		Waiting map[string]int `json:"waiting"`
	}

	var out []stationEntry
	s.Eng.View(func(sim *engine.Simulation) {
		sim.EachStation(func(st *world.Station) {
			x, y := sim.Grid.Coords(st.Node)
			waiting := make(map[string]int)
			for c, q := range st.Inventory {
				if q > 0 {
					waiting[world.CargoName(c)] = q
				}
			}
			out = append(out, stationEntry{
				ID: st.ID, Name: st.Name, Kind: world.StationKindName(st.Kind),
				Owner: st.Owner, X: x, Y: y, Waiting: waiting,
			})
		})
	})
	writeJSON(w, map[string]any{"stations": out})
}

func (s *Server) handleVehicles(w http.ResponseWriter, r *http.Request) {
	type vehicleEntry struct {
		ID       uint64 `json:"id"`
		Company  uint64 `json:"company"`
		Model    string `json:"model"`
		State    string `json:"state"`
		X        int    `json:"x"`
		Y        int    `json:"y"`
		Cargo    string `json:"cargo"`
		CargoQty int    `json:"cargo_qty"`
		Profit   int64  `json:"profit"`
	}

	var out []vehicleEntry
	s.Eng.View(func(sim *engine.Simulation) {
		sim.EachVehicle(func(v *vehicle.Vehicle) {
			x, y := sim.Grid.Coords(v.Node)
			out = append(out, vehicleEntry{
				ID: v.ID, Company: v.Company, Model: v.Profile().Name,
				State: vehicle.StateName(v.State), X: x, Y: y,
				Cargo: world.CargoName(v.Cargo), CargoQty: v.CargoQty,
				Profit: v.Profit,
			})
		})
	})
	writeJSON(w, map[string]any{"vehicles": out})
}

func (s *Server) handleCompanies(w http.ResponseWriter, r *http.Request) {
	type companyEntry struct {
		ID         uint64  `json:"id"`
		Name       string  `json:"name"`
		Cash       string  `json:"cash"`
		CashRaw    int64   `json:"cash_raw"`
		Reputation float64 `json:"reputation"`
		Bankrupt   bool    `json:"bankrupt"`
		Vehicles   int     `json:"vehicles"`
		Stations   int     `json:"stations"`
		Routes     int     `json:"routes"`
		AI         bool    `json:"ai"`
	}

	var out []companyEntry
	s.Eng.View(func(sim *engine.Simulation) {
		sim.EachCompany(func(c *engine.CompanyView) {
			out = append(out, companyEntry{
				ID: c.ID, Name: c.Name,
				Cash: humanize.Comma(c.Cash), CashRaw: c.Cash,
				Reputation: c.Reputation, Bankrupt: c.Bankrupt,
				Vehicles: c.VehicleCount, Stations: c.StationCount,
				Routes: c.RouteCount, AI: c.AI,
			})
		})
	})
	writeJSON(w, map[string]any{"companies": out})
}

func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	type priceEntry struct {
		Cargo string  `json:"cargo"`
		Price float64 `json:"price"`
		Base  float64 `json:"base"`
	}

	var out map[string]any
	s.Eng.View(func(sim *engine.Simulation) {
		prices := make([]priceEntry, 0, world.CargoTypeCount)
		for _, c := range world.AllCargoTypes {
			prices = append(prices, priceEntry{
				Cargo: world.CargoName(c),
				Price: sim.Market.Price(c),
				Base:  world.BaseRates[c],
			})
		}
		out = map[string]any{
			"phase":     economy.PhaseName(sim.Market.Phase),
			"inflation": sim.Market.Inflation,
			"prices":    prices,
		}
	})
	writeJSON(w, out)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	var events []engine.Event
	s.Eng.View(func(sim *engine.Simulation) {
		events = sim.RecentEvents(50)
	})
	writeJSON(w, map[string]any{"events": events})
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, map[string]any{"speed": s.Eng.Speed()})
		return
	}
	var req struct {
		Speed int `json:"speed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	s.Eng.SetSpeed(req.Speed)
	writeJSON(w, map[string]any{"speed": s.Eng.Speed()})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, map[string]any{"paused": s.Eng.Paused()})
		return
	}
	var req struct {
		Paused bool `json:"paused"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	s.Eng.SetPaused(req.Paused)
	writeJSON(w, map[string]any{"paused": s.Eng.Paused()})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.DB == nil {
		http.Error(w, "persistence disabled", http.StatusServiceUnavailable)
		return
	}
	raw, err := s.Eng.SnapshotJSON()
	if err != nil {
		http.Error(w, "snapshot failed", http.StatusInternalServerError)
		return
	}
	tick := s.Eng.Tick()
	if err := s.DB.SaveSnapshot(tick, s.Eng.Seq(), raw); err != nil {
		slog.Error("manual save failed", "error", err)
		http.Error(w, "save failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"saved": true, "tick": tick})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}

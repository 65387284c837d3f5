// Command railworld runs the transport-economy simulation server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/talgya/railworld/internal/api"
	"github.com/talgya/railworld/internal/config"
	"github.com/talgya/railworld/internal/engine"
	"github.com/talgya/railworld/internal/persistence"
	"github.com/talgya/railworld/internal/world"
)

func main() {
	configPath := flag.String("config", "railworld.yaml", "path to config file")
	fresh := flag.Bool("fresh", false, "ignore saved state and generate a new world")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// ── Database ──────────────────────────────────────────────────────
	if dir := filepath.Dir(cfg.Server.DBPath); dir != "." {
		os.MkdirAll(dir, 0755)
	}
	db, err := persistence.Open(cfg.Server.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// ── Load or Generate World ────────────────────────────────────────
	var sim *engine.Simulation
	if !*fresh {
		sim = loadSavedWorld(db, logger)
	}
	if sim == nil {
		slog.Info("generating new world",
			"seed", cfg.World.Seed,
			"size", cfg.World.Width*cfg.World.Height,
		)
		gen := world.Generate(cfg.World)
		sim = engine.NewSimulation(cfg.Engine, cfg.Market, gen, cfg.World.Seed, logger)

		for _, spec := range cfg.AI {
			params, err := spec.Params()
			if err != nil {
				slog.Error("bad AI company config", "name", spec.Name, "error", err)
				os.Exit(1)
			}
			c := sim.AddCompany(spec.Name, params.Difficulty.StartingCash(), params)
			slog.Info("AI company founded",
				"name", c.Name,
				"cash", humanize.Comma(c.Cash),
			)
		}
		// The human player's company.
		player := sim.AddCompany("Player Transport", 1_000_000, nil)
		slog.Info("player company founded", "name", player.Name, "cash", humanize.Comma(player.Cash))

		db.SetMeta("seed", strconv.FormatInt(cfg.World.Seed, 10))
	}

	sim.EachTown(func(t *world.Town) {
		slog.Info("town", "name", t.Name, "population", t.Population)
	})

	// ── Engine and API ────────────────────────────────────────────────
	eng := engine.New(sim, logger)
	eng.AutosavePeriod = cfg.Server.AutosavePeriod

	hub := api.NewHub(eng)
	eng.OnDelta = func(d *engine.TickDelta) {
		hub.BroadcastDelta(d)
		persistEvents(db, d)
	}
	eng.OnSnapshot = func(snap *engine.Snapshot) {
		raw, err := json.Marshal(snap)
		if err != nil {
			slog.Error("autosave marshal failed", "error", err)
			return
		}
		if err := db.SaveSnapshot(snap.Tick, snap.Seq, raw); err != nil {
			slog.Error("autosave failed", "error", err)
		}
	}
	go hub.Run()

	srv := &api.Server{
		Eng:      eng,
		Hub:      hub,
		DB:       db,
		Port:     cfg.Server.Port,
		AdminKey: cfg.Server.AdminKey,
	}
	srv.Start()

	ctx, cancel := context.WithCancel(context.Background())
	go eng.Run(ctx)

	// ── Shutdown ──────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("received signal, shutting down", "signal", sig)

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)

	// Final save so a restart resumes close to where we stopped.
	raw, err := eng.SnapshotJSON()
	if err == nil {
		err = db.SaveSnapshot(eng.Tick(), eng.Seq(), raw)
	}
	if err != nil {
		slog.Error("final save failed", "error", err)
	} else {
		slog.Info("world saved", "tick", eng.Tick())
	}
}

// loadSavedWorld restores the newest snapshot, or returns nil when none
// exists or it cannot be read.
func loadSavedWorld(db *persistence.Store, logger *slog.Logger) *engine.Simulation {
	raw, tick, err := db.LoadLatestSnapshot()
	if err != nil {
		if err != persistence.ErrNoSnapshot {
			slog.Warn("saved world unreadable, generating fresh", "error", err)
		}
		return nil
	}
	var snap engine.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		slog.Warn("saved world corrupt, generating fresh", "error", err)
		return nil
	}
	sim, err := engine.Import(&snap, logger)
	if err != nil {
		slog.Warn("saved world rejected, generating fresh", "error", err)
		return nil
	}
	slog.Info("world restored", "tick", tick, "companies", len(sim.Companies), "vehicles", len(sim.Vehicles))
	return sim
}

// persistEvents appends the tick's events to the database.
func persistEvents(db *persistence.Store, d *engine.TickDelta) {
	if len(d.Events) == 0 {
		return
	}
	records := make([]persistence.EventRecord, len(d.Events))
	for i, ev := range d.Events {
		records[i] = persistence.EventRecord{
			Tick:        ev.Tick,
			Category:    ev.Category,
			Description: ev.Description,
		}
	}
	if err := db.AppendEvents(d.Tick, records); err != nil {
		slog.Error("event persistence failed", "tick", d.Tick, "error", err)
	}
}

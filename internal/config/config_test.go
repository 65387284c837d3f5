package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/talgya/railworld/internal/company"
	"github.com/talgya/railworld/internal/world"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Server.Port != 8080 {
		t.Fatalf("default port %d", cfg.Server.Port)
	}
	if cfg.World.Width == 0 || cfg.World.Height == 0 {
		t.Fatal("default world has no size")
	}
	if len(cfg.AI) == 0 {
		t.Fatal("default config seeds no AI opponents")
	}
	for _, a := range cfg.AI {
		if _, err := a.Params(); err != nil {
			t.Fatalf("default AI company %q invalid: %v", a.Name, err)
		}
	}
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing file errored: %v", err)
	}
	if cfg.Server.Port != Default().Server.Port {
		t.Fatal("missing file did not yield defaults")
	}
}

func TestLoadOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "railworld.yaml")
	data := []byte(`
server:
  port: 9090
  db_path: /tmp/other.db
world:
  seed: 99
engine:
  tick_ms: 50
ai:
  - name: Solo Freight
    strategy: aggressive
    difficulty: hard
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9090 || cfg.Server.DBPath != "/tmp/other.db" {
		t.Fatalf("server section not overlaid: %+v", cfg.Server)
	}
	if cfg.World.Seed != 99 {
		t.Fatalf("world seed %d, want 99", cfg.World.Seed)
	}
	if cfg.Engine.TickMS != 50 {
		t.Fatalf("tick_ms %d, want 50", cfg.Engine.TickMS)
	}
	// Untouched fields keep their defaults.
	if cfg.Engine.RepairTicks != Default().Engine.RepairTicks {
		t.Fatal("unset engine field lost its default")
	}
	if len(cfg.AI) != 1 || cfg.AI[0].Name != "Solo Freight" {
		t.Fatalf("ai section not overlaid: %+v", cfg.AI)
	}
}

func TestAdminKeyEnvOverride(t *testing.T) {
	t.Setenv("RAILWORLD_ADMIN_KEY", "sesame")
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.AdminKey != "sesame" {
		t.Fatalf("admin key %q, want env value", cfg.Server.AdminKey)
	}
}

func TestAICompanyParams(t *testing.T) {
	p, err := AICompany{Strategy: "specialist", Difficulty: "hard", Focus: "Coal"}.Params()
	if err != nil {
		t.Fatal(err)
	}
	if p.Strategy != company.StrategySpecialist || p.FocusCargo != world.CargoCoal {
		t.Fatalf("specialist params %+v", p)
	}
	if p.Difficulty.StartingCash() <= 0 {
		t.Fatal("difficulty has no starting cash")
	}

	// Blank strategy and difficulty fall back to balanced medium.
	p, err = AICompany{}.Params()
	if err != nil {
		t.Fatal(err)
	}
	if p.Strategy != company.StrategyBalanced || p.Difficulty != company.DifficultyMedium {
		t.Fatalf("blank params %+v", p)
	}

	if _, err := (AICompany{Strategy: "reckless"}).Params(); err == nil {
		t.Fatal("unknown strategy accepted")
	}
	if _, err := (AICompany{Difficulty: "nightmare"}).Params(); err == nil {
		t.Fatal("unknown difficulty accepted")
	}
	if _, err := (AICompany{Strategy: "specialist", Focus: "Unobtainium"}).Params(); err == nil {
		t.Fatal("unknown focus cargo accepted")
	}
}

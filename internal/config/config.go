// Package config loads server configuration from YAML, layered over
// defaults. A missing file is not an error; every field has a workable
// default so the server runs with no configuration at all.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/talgya/railworld/internal/company"
	"github.com/talgya/railworld/internal/economy"
	"github.com/talgya/railworld/internal/engine"
	"github.com/talgya/railworld/internal/world"
)

// ServerConfig holds network and persistence settings.
type ServerConfig struct {
	Port           int    `yaml:"port"`
	AdminKey       string `yaml:"admin_key"` // overridden by RAILWORLD_ADMIN_KEY
	DBPath         string `yaml:"db_path"`
	AutosavePeriod uint64 `yaml:"autosave_period"` // ticks between autosaves, 0 disables
}

// AICompany describes one AI opponent to seed at world creation.
type AICompany struct {
	Name       string `yaml:"name"`
	Strategy   string `yaml:"strategy"`   // aggressive | conservative | balanced | specialist
	Difficulty string `yaml:"difficulty"` // easy | medium | hard
	Focus      string `yaml:"focus"`      // cargo name, specialist only
}

// Config is the full server configuration.
type Config struct {
	Server ServerConfig    `yaml:"server"`
	World  world.GenConfig `yaml:"world"`
	Market economy.Config  `yaml:"market"`
	Engine engine.Params   `yaml:"engine"`
	AI     []AICompany     `yaml:"ai"`
}

// Default returns the configuration used when no file is present: a
// medium world with three AI opponents.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:           8080,
			DBPath:         "railworld.db",
			AutosavePeriod: 1000,
		},
		World:  world.DefaultGenConfig(),
		Market: economy.DefaultConfig(),
		Engine: engine.DefaultParams(),
		AI: []AICompany{
			{Name: "Ironclad Haulage", Strategy: "aggressive", Difficulty: "medium"},
			{Name: "Prudent Transit", Strategy: "conservative", Difficulty: "medium"},
			{Name: "Grainline Express", Strategy: "specialist", Difficulty: "medium", Focus: "Food"},
		},
	}
}

// Load reads the config file at path over the defaults. An empty path or
// missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if key := os.Getenv("RAILWORLD_ADMIN_KEY"); key != "" {
		cfg.Server.AdminKey = key
	}
	return cfg, nil
}

// Params converts an AICompany block into engine-level AI parameters.
func (a AICompany) Params() (*company.AIParams, error) {
	p := &company.AIParams{}

	switch a.Strategy {
	case "aggressive":
		p.Strategy = company.StrategyAggressive
	case "conservative":
		p.Strategy = company.StrategyConservative
	case "", "balanced":
		p.Strategy = company.StrategyBalanced
	case "specialist":
		p.Strategy = company.StrategySpecialist
	default:
		return nil, fmt.Errorf("unknown strategy %q", a.Strategy)
	}

	switch a.Difficulty {
	case "easy":
		p.Difficulty = company.DifficultyEasy
	case "", "medium":
		p.Difficulty = company.DifficultyMedium
	case "hard":
		p.Difficulty = company.DifficultyHard
	default:
		return nil, fmt.Errorf("unknown difficulty %q", a.Difficulty)
	}

	if p.Strategy == company.StrategySpecialist {
		found := false
		for _, c := range world.AllCargoTypes {
			if world.CargoName(c) == a.Focus {
				p.FocusCargo = c
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown focus cargo %q", a.Focus)
		}
	}
	return p, nil
}

// Package economy provides per-cargo market pricing driven by aggregate
// supply and demand, a cyclical macro-economic phase, and inflation drift.
package economy

import (
	"math"

	"github.com/talgya/railworld/internal/world"
)

// Phase is the shared macro-economic state multiplying all prices.
type Phase uint8

const (
	PhaseBoom Phase = iota
	PhaseStable
	PhaseRecession
)

var phaseNames = []string{"Boom", "Stable", "Recession"}

// PhaseName returns a display name for a macro phase.
func PhaseName(p Phase) string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "Unknown"
}

// Multiplier returns the price multiplier for the phase.
func (p Phase) Multiplier() float64 {
	switch p {
	case PhaseBoom:
		return 1.2
	case PhaseRecession:
		return 0.8
	}
	return 1.0
}

// phaseCycle is the fixed transition order: boom → stable → recession →
// stable → boom. Deterministic so replays converge.
var phaseCycle = [4]Phase{PhaseBoom, PhaseStable, PhaseRecession, PhaseStable}

// Config holds market tuning constants.
type Config struct {
	FloorFrac       float64 `yaml:"floor_frac"`       // price floor as fraction of base
	CeilFrac        float64 `yaml:"ceil_frac"`        // price ceiling as fraction of base
	StepFrac        float64 `yaml:"step_frac"`        // max per-tick move as fraction of base
	PhasePeriod     uint64  `yaml:"phase_period"`     // ticks between phase transitions
	InflationRate   float64 `yaml:"inflation_rate"`   // base-rate growth per inflation period
	InflationPeriod uint64  `yaml:"inflation_period"` // ticks between inflation steps
}

// DefaultConfig returns the standard market tuning.
func DefaultConfig() Config {
	return Config{
		FloorFrac:       0.5,
		CeilFrac:        2.0,
		StepFrac:        0.05,
		PhasePeriod:     600,
		InflationRate:   0.02,
		InflationPeriod: 900,
	}
}

// Entry is the market state for one cargo type.
type Entry struct {
	Cargo  world.CargoType `json:"cargo"`
	Price  float64         `json:"price"`
	Supply float64         `json:"supply"` // accumulated this tick, reset on resolve
	Demand float64         `json:"demand"`
}

// PriceChange records one resolved price for the tick delta.
type PriceChange struct {
	Cargo world.CargoType `json:"cargo"`
	Price float64         `json:"price"`
}

// Market owns all per-cargo entries plus the shared macro state.
type Market struct {
	Entries    [world.CargoTypeCount]Entry `json:"entries"`
	Phase      Phase                       `json:"phase"`
	CycleIndex int                         `json:"cycle_index"`
	Inflation  float64                     `json:"inflation"` // cumulative base-rate multiplier

	Config Config `json:"config"`
}

// New creates a market with every price at its base rate.
func New(cfg Config) *Market {
	m := &Market{Phase: PhaseBoom, Inflation: 1.0, Config: cfg}
	for i, c := range world.AllCargoTypes {
		m.Entries[i] = Entry{Cargo: c, Price: world.BaseRates[c]}
	}
	return m
}

// base returns the inflation-adjusted price anchor for a cargo type.
func (m *Market) base(c world.CargoType) float64 {
	return world.BaseRates[c] * m.Inflation
}

// Price returns the current unit price for a cargo type.
func (m *Market) Price(c world.CargoType) float64 {
	return m.Entries[c].Price
}

// AddSupply accumulates observed supply for this tick.
func (m *Market) AddSupply(c world.CargoType, qty float64) {
	m.Entries[c].Supply += qty
}

// AddDemand accumulates observed unmet demand for this tick.
func (m *Market) AddDemand(c world.CargoType, qty float64) {
	m.Entries[c].Demand += qty
}

// Resolve advances the market one tick and returns the changed prices in
// cargo-id order. Each price moves toward base × (demand/supply) × phase
// multiplier by at most StepFrac of base, then is clamped to the
// [FloorFrac, CeilFrac] band around base. Supply/demand accumulators reset.
func (m *Market) Resolve(tick uint64) []PriceChange {
	if m.Config.PhasePeriod > 0 && tick > 0 && tick%m.Config.PhasePeriod == 0 {
		m.CycleIndex = (m.CycleIndex + 1) % len(phaseCycle)
		m.Phase = phaseCycle[m.CycleIndex]
	}
	if m.Config.InflationPeriod > 0 && tick > 0 && tick%m.Config.InflationPeriod == 0 {
		m.Inflation *= 1.0 + m.Config.InflationRate
	}

	var changes []PriceChange
	for i := range m.Entries {
		e := &m.Entries[i]
		base := m.base(e.Cargo)

		supply := math.Max(e.Supply, 1)
		demand := math.Max(e.Demand, 1)
		ratio := demand / supply
		if ratio > 1.5 {
			ratio = 1.5
		}
		if ratio < 0.5 {
			ratio = 0.5
		}

		target := base * ratio * m.Phase.Multiplier()

		// Monotone-bounded step: one tick never jumps more than StepFrac
		// of base toward the target.
		step := base * m.Config.StepFrac
		prev := e.Price
		switch {
		case target > prev+step:
			e.Price = prev + step
		case target < prev-step:
			e.Price = prev - step
		default:
			e.Price = target
		}

		// Band clamp.
		floor := base * m.Config.FloorFrac
		ceil := base * m.Config.CeilFrac
		if e.Price < floor {
			e.Price = floor
		}
		if e.Price > ceil {
			e.Price = ceil
		}

		if e.Price != prev {
			changes = append(changes, PriceChange{Cargo: e.Cargo, Price: e.Price})
		}

		e.Supply = 0
		e.Demand = 0
	}
	return changes
}

// Payment computes the revenue for a completed delivery: the current unit
// price (which carries the phase multiplier and inflation) scaled by
// distance traveled and by how full the hold was. Hauling nothing pays
// nothing.
func (m *Market) Payment(c world.CargoType, qty int, distance, loadFactor float64) int64 {
	if qty <= 0 {
		return 0
	}
	return int64(m.Price(c) * distance * loadFactor)
}

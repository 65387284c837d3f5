// Package company provides transport companies, their routes, and the AI
// parameterization for computer-controlled opponents. Companies reference
// vehicles and stations by id; the simulation owns the entity tables.
package company

import "github.com/talgya/railworld/internal/world"

// Strategy selects how an AI company scores opportunities.
type Strategy uint8

const (
	StrategyAggressive Strategy = iota
	StrategyConservative
	StrategyBalanced
	StrategySpecialist
)

var strategyNames = []string{"Aggressive", "Conservative", "Balanced", "Specialist"}

// StrategyName returns a display name for a strategy.
func StrategyName(s Strategy) string {
	if int(s) < len(strategyNames) {
		return strategyNames[s]
	}
	return "Unknown"
}

// Difficulty scales AI starting capital, cadence, and risk tolerance.
type Difficulty uint8

const (
	DifficultyEasy Difficulty = iota
	DifficultyMedium
	DifficultyHard
)

var difficultyNames = []string{"Easy", "Medium", "Hard"}

// DifficultyName returns a display name for a difficulty.
func DifficultyName(d Difficulty) string {
	if int(d) < len(difficultyNames) {
		return difficultyNames[d]
	}
	return "Unknown"
}

// StartingCash returns the AI starting capital for a difficulty.
func (d Difficulty) StartingCash() int64 {
	switch d {
	case DifficultyEasy:
		return 500_000
	case DifficultyHard:
		return 1_200_000
	}
	return 800_000
}

// DecisionPeriod returns how many ticks pass between AI evaluations.
func (d Difficulty) DecisionPeriod() uint64 {
	switch d {
	case DifficultyEasy:
		return 300
	case DifficultyHard:
		return 100
	}
	return 200
}

// ReserveFrac returns the fraction of cash an AI keeps in reserve.
// Harder opponents tolerate thinner reserves.
func (d Difficulty) ReserveFrac() float64 {
	switch d {
	case DifficultyEasy:
		return 0.5
	case DifficultyHard:
		return 0.1
	}
	return 0.25
}

// AIParams carries the strategy variant and its scoring parameters.
type AIParams struct {
	Strategy   Strategy        `json:"strategy"`
	Difficulty Difficulty      `json:"difficulty"`
	FocusCargo world.CargoType `json:"focus_cargo"` // Specialist only
}

// Route is an ordered sequence of station ids vehicles cycle through.
type Route struct {
	ID       uint64          `json:"id"`
	Name     string          `json:"name"`
	Stations []uint64        `json:"stations"`
	Cargo    world.CargoType `json:"cargo"`
	Vehicles []uint64        `json:"vehicles"`
	Profit   int64           `json:"profit"`
}

// Company is a transport operator, human- or AI-controlled.
type Company struct {
	ID         uint64   `json:"id"`
	Name       string   `json:"name"`
	Cash       int64    `json:"cash"` // may go negative
	Reputation float64  `json:"reputation"`
	Bankrupt   bool     `json:"bankrupt"`
	Vehicles   []uint64 `json:"vehicles"`
	Stations   []uint64 `json:"stations"`
	Routes     []*Route `json:"routes"`

	// AI is nil for human-controlled companies.
	AI *AIParams `json:"ai,omitempty"`
}

// New creates a company with the given starting cash.
func New(id uint64, name string, cash int64) *Company {
	return &Company{ID: id, Name: name, Cash: cash, Reputation: 50}
}

// IsAI reports whether the company is computer-controlled.
func (c *Company) IsAI() bool {
	return c.AI != nil
}

// CanAfford reports whether the company can spend the amount.
func (c *Company) CanAfford(amount int64) bool {
	return c.Cash >= amount
}

// Spend deducts cash. Negative balances are allowed only through running
// costs, which is why commands check CanAfford first.
func (c *Company) Spend(amount int64) {
	c.Cash -= amount
}

// Credit adds revenue to the balance.
func (c *Company) Credit(amount int64) {
	c.Cash += amount
}

// Route returns the route with the given id, or nil.
func (c *Company) Route(id uint64) *Route {
	for _, r := range c.Routes {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// AdjustReputation nudges reputation toward the company's on-time delivery
// ratio, clamped to [0, 100].
func (c *Company) AdjustReputation(onTimeRatio float64) {
	switch {
	case onTimeRatio > 0.8:
		c.Reputation++
	case onTimeRatio < 0.5:
		c.Reputation--
	}
	if c.Reputation > 100 {
		c.Reputation = 100
	}
	if c.Reputation < 0 {
		c.Reputation = 0
	}
}

// Package engine runs the simulation: the per-tick update cycle, the
// command queue, vehicle movement, production, market resolution, and the
// AI companies. All state mutation happens on the engine goroutine in a
// fixed order so a seed and a command log replay to an identical world.
package engine

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/talgya/railworld/internal/company"
	"github.com/talgya/railworld/internal/economy"
	"github.com/talgya/railworld/internal/entropy"
	"github.com/talgya/railworld/internal/pathfind"
	"github.com/talgya/railworld/internal/vehicle"
	"github.com/talgya/railworld/internal/world"
)

// Params holds simulation tuning constants.
type Params struct {
	TickMS          int     `yaml:"tick_ms"`          // base tick interval in milliseconds
	PathBudget      int     `yaml:"path_budget"`      // node expansions per search per tick
	RunningPeriod   uint64  `yaml:"running_period"`   // ticks between running-cost charges
	GrowthPeriod    uint64  `yaml:"growth_period"`    // ticks between town growth steps
	SupplyPeriod    uint64  `yaml:"supply_period"`    // ticks between town passenger/mail spawns
	BreakdownFactor float64 `yaml:"breakdown_factor"` // per-tick failure scale while moving
	RepairTicks     int     `yaml:"repair_ticks"`     // ticks a breakdown immobilizes a vehicle
	RepairCostFrac  float64 `yaml:"repair_cost_frac"` // maintenance bill as a fraction of running cost
	RepairBoost     float64 `yaml:"repair_boost"`     // reliability restored by a repair
	DwellTicks      int     `yaml:"dwell_ticks"`      // ticks spent loading or unloading
	StationCapacity int     `yaml:"station_capacity"` // per-cargo inventory cap at stations
	EventLogSize    int     `yaml:"event_log_size"`   // recent events kept in memory
}

// DefaultParams returns the standard tuning.
func DefaultParams() Params {
	return Params{
		TickMS:          100,
		PathBudget:      2048,
		RunningPeriod:   100,
		GrowthPeriod:    500,
		SupplyPeriod:    10,
		BreakdownFactor: 0.002,
		RepairTicks:     20,
		RepairCostFrac:  0.5,
		RepairBoost:     0.05,
		DwellTicks:      4,
		StationCapacity: 500,
		EventLogSize:    1000,
	}
}

// Event is one notable occurrence, kept for the API and the tick delta.
type Event struct {
	Tick        uint64 `json:"tick"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// Simulation is the complete mutable world state. It is not safe for
// concurrent use; the Engine serializes all access.
type Simulation struct {
	Params Params
	Seed   int64

	Grid   *world.Grid
	Graph  *world.Graph
	Finder *pathfind.Finder
	Market *economy.Market

	Towns      map[uint64]*world.Town
	Industries map[uint64]*world.Industry
	Stations   map[uint64]*world.Station
	Companies  map[uint64]*company.Company
	Vehicles   map[uint64]*vehicle.Vehicle

	Tick uint64

	nextStationID uint64
	nextVehicleID uint64
	nextRouteID   uint64

	rng    *entropy.Stream
	logger *slog.Logger

	eventLog []Event
	// per-tick scratch, collected into the delta
	tickEvents []Event

	// pauseRequest carries an accepted set_pause command out to the
	// engine, which owns the tick loop.
	pauseRequest *bool
}

// takePauseRequest returns and clears any pause request applied this tick.
func (s *Simulation) takePauseRequest() *bool {
	p := s.pauseRequest
	s.pauseRequest = nil
	return p
}

// NewSimulation builds a simulation over a generated world.
func NewSimulation(params Params, marketCfg economy.Config, gen *world.GenResult, seed int64, logger *slog.Logger) *Simulation {
	root := entropy.NewStream(seed)
	s := &Simulation{
		Params:     params,
		Seed:       seed,
		Grid:       gen.Grid,
		Graph:      world.NewGraph(),
		Market:     economy.New(marketCfg),
		Towns:      make(map[uint64]*world.Town),
		Industries: make(map[uint64]*world.Industry),
		Stations:   make(map[uint64]*world.Station),
		Companies:  make(map[uint64]*company.Company),
		Vehicles:   make(map[uint64]*vehicle.Vehicle),
		rng:        root.Fork(1),
		logger:     logger,
	}
	s.Finder = pathfind.NewFinder(s.Graph, params.PathBudget)
	for _, t := range gen.Towns {
		s.Towns[t.ID] = t
	}
	for _, in := range gen.Industries {
		s.Industries[in.ID] = in
	}
	return s
}

// AddCompany registers a company with the next free id.
func (s *Simulation) AddCompany(name string, cash int64, ai *company.AIParams) *company.Company {
	id := uint64(len(s.Companies) + 1)
	c := company.New(id, name, cash)
	c.AI = ai
	s.Companies[id] = c
	return c
}

// sortedIDs returns the keys of an id-indexed map in ascending order.
// Every per-tick loop iterates these instead of ranging over the map.
func sortedIDs[V any](m map[uint64]V) []uint64 {
	ids := make([]uint64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// EachTown visits towns in id order.
func (s *Simulation) EachTown(f func(*world.Town)) {
	for _, id := range sortedIDs(s.Towns) {
		f(s.Towns[id])
	}
}

// EachIndustry visits industries in id order.
func (s *Simulation) EachIndustry(f func(*world.Industry)) {
	for _, id := range sortedIDs(s.Industries) {
		f(s.Industries[id])
	}
}

// EachStation visits stations in id order.
func (s *Simulation) EachStation(f func(*world.Station)) {
	for _, id := range sortedIDs(s.Stations) {
		f(s.Stations[id])
	}
}

// EachVehicle visits vehicles in id order.
func (s *Simulation) EachVehicle(f func(*vehicle.Vehicle)) {
	for _, id := range sortedIDs(s.Vehicles) {
		f(s.Vehicles[id])
	}
}

// CompanyView is a read-only company summary for API consumers.
type CompanyView struct {
	ID           uint64
	Name         string
	Cash         int64
	Reputation   float64
	Bankrupt     bool
	VehicleCount int
	StationCount int
	RouteCount   int
	AI           bool
}

// EachCompany visits company summaries in id order.
func (s *Simulation) EachCompany(f func(*CompanyView)) {
	for _, id := range sortedIDs(s.Companies) {
		c := s.Companies[id]
		f(&CompanyView{
			ID:           c.ID,
			Name:         c.Name,
			Cash:         c.Cash,
			Reputation:   c.Reputation,
			Bankrupt:     c.Bankrupt,
			VehicleCount: len(c.Vehicles),
			StationCount: len(c.Stations),
			RouteCount:   len(c.Routes),
			AI:           c.IsAI(),
		})
	}
}

// event records an occurrence for this tick's delta and the rolling log.
func (s *Simulation) event(category, format string, args ...any) {
	ev := Event{Tick: s.Tick, Category: category, Description: fmt.Sprintf(format, args...)}
	s.tickEvents = append(s.tickEvents, ev)
	s.eventLog = append(s.eventLog, ev)
	if max := s.Params.EventLogSize; max > 0 && len(s.eventLog) > max {
		s.eventLog = s.eventLog[len(s.eventLog)-max:]
	}
}

// RecentEvents returns up to n most recent events, newest last.
func (s *Simulation) RecentEvents(n int) []Event {
	if n <= 0 || n > len(s.eventLog) {
		n = len(s.eventLog)
	}
	out := make([]Event, n)
	copy(out, s.eventLog[len(s.eventLog)-n:])
	return out
}

// stationsNear returns ids of stations whose catchment covers the node,
// ascending.
func (s *Simulation) stationsNear(n world.NodeID) []uint64 {
	var ids []uint64
	for _, id := range sortedIDs(s.Stations) {
		st := s.Stations[id]
		if s.Grid.Distance(st.Node, n) <= float64(st.Catchment) {
			ids = append(ids, id)
		}
	}
	return ids
}

// stationAt returns the station occupying the node, or nil.
func (s *Simulation) stationAt(n world.NodeID) *world.Station {
	for _, id := range sortedIDs(s.Stations) {
		if s.Stations[id].Node == n {
			return s.Stations[id]
		}
	}
	return nil
}

// Step advances the world one tick. Commands are applied first, then
// vehicles move, industries produce, towns consume, the market resolves,
// and the AI companies act. The order is fixed so a seed and a command
// log replay to identical deltas. The returned delta describes everything
// that changed.
func (s *Simulation) Step(cmds []Command) *TickDelta {
	s.Tick++
	s.tickEvents = nil

	d := &TickDelta{Tick: s.Tick}

	for _, cmd := range cmds {
		d.Commands = append(d.Commands, s.apply(cmd))
	}

	s.stepVehicles(d)
	s.stepIndustries(d)
	s.stepTowns(d)

	d.Prices = s.Market.Resolve(s.Tick)

	s.stepAI(d)
	s.stepFinances(d)

	d.Events = s.tickEvents
	d.Companies = s.companyUpdates()
	return d
}

// companyUpdates reports every company's balance sheet, id-ascending.
func (s *Simulation) companyUpdates() []CompanyUpdate {
	ids := sortedIDs(s.Companies)
	out := make([]CompanyUpdate, 0, len(ids))
	for _, id := range ids {
		c := s.Companies[id]
		out = append(out, CompanyUpdate{
			ID:         c.ID,
			Cash:       c.Cash,
			Reputation: c.Reputation,
			Bankrupt:   c.Bankrupt,
		})
	}
	return out
}

// stepFinances charges running costs, decays reliability, grows towns, and
// declares bankruptcies on their respective cadences.
func (s *Simulation) stepFinances(d *TickDelta) {
	if s.Params.RunningPeriod > 0 && s.Tick%s.Params.RunningPeriod == 0 {
		for _, id := range sortedIDs(s.Vehicles) {
			v := s.Vehicles[id]
			if v.State == vehicle.StateScrapped {
				continue
			}
			cost := v.RunningCost()
			if c, ok := s.Companies[v.Company]; ok {
				c.Spend(cost)
				v.Profit -= cost
			}
			v.Reliability -= 0.002
			if v.Reliability < 0.3 {
				v.Reliability = 0.3
			}
		}
		for _, id := range sortedIDs(s.Companies) {
			c := s.Companies[id]
			if c.Bankrupt {
				continue
			}
			if c.Cash < 0 {
				s.declareBankrupt(c)
				continue
			}
			c.AdjustReputation(s.companyOnTimeRatio(c))
		}
	}

	if s.Params.GrowthPeriod > 0 && s.Tick%s.Params.GrowthPeriod == 0 {
		for _, id := range sortedIDs(s.Towns) {
			t := s.Towns[id]
			before := t.Population
			t.Grow()
			if t.Population != before {
				s.event("town", "%s grew to %d residents", t.Name, t.Population)
			}
		}
	}
}

// companyOnTimeRatio aggregates on-time delivery performance over the
// company's fleet.
func (s *Simulation) companyOnTimeRatio(c *company.Company) float64 {
	var deliveries, onTime uint32
	for _, vid := range c.Vehicles {
		if v, ok := s.Vehicles[vid]; ok {
			deliveries += v.Deliveries
			onTime += v.OnTime
		}
	}
	if deliveries == 0 {
		return 1
	}
	return float64(onTime) / float64(deliveries)
}

// declareBankrupt retires a company: its vehicles are scrapped and its
// stations remain but stop dwelling anyone new.
func (s *Simulation) declareBankrupt(c *company.Company) {
	c.Bankrupt = true
	for _, vid := range c.Vehicles {
		if v, ok := s.Vehicles[vid]; ok && v.State != vehicle.StateScrapped {
			s.releasePlatform(v)
			v.State = vehicle.StateScrapped
		}
	}
	s.event("company", "%s declared bankruptcy", c.Name)
	s.logger.Warn("company bankrupt", "company", c.Name, "cash", c.Cash)
}

// AI companies. Each AI wakes on its difficulty cadence, staggered by
// company id, and issues the same commands a player would: build a pair of
// stations, link them, buy a vehicle, assign a route. Strategies differ
// only in how they score candidate cargo flows.
package engine

import (
	"github.com/talgya/railworld/internal/company"
	"github.com/talgya/railworld/internal/vehicle"
	"github.com/talgya/railworld/internal/world"
)

// opportunity is a candidate cargo flow from a producing node to a
// consuming node.
type opportunity struct {
	cargo    world.CargoType
	from, to world.NodeID
	dist     float64
	score    float64
}

// stepAI runs due AI companies in id order.
func (s *Simulation) stepAI(d *TickDelta) {
	for _, id := range sortedIDs(s.Companies) {
		c := s.Companies[id]
		if !c.IsAI() || c.Bankrupt {
			continue
		}
		period := c.AI.Difficulty.DecisionPeriod()
		if period == 0 || (s.Tick+c.ID)%period != 0 {
			continue
		}
		for _, cmd := range s.planAI(c) {
			cmd.Company = c.ID
			d.Commands = append(d.Commands, s.apply(cmd))
		}
	}
}

// planAI decides the company's next move. Plans are staged across wakeups:
// put an unrouted vehicle to work, then crew an uncrewed line, then
// reinforce a profitable route, and only then open a new connection.
func (s *Simulation) planAI(c *company.Company) []Command {
	reserve := int64(float64(c.Cash) * c.AI.Difficulty.ReserveFrac())
	budget := c.Cash - reserve

	// Stage 1: an idle vehicle with no route gets one.
	for _, vid := range c.Vehicles {
		v, ok := s.Vehicles[vid]
		if !ok || v.State != vehicle.StateIdle || len(v.Route) > 0 {
			continue
		}
		if cmd, ok := s.routeForVehicle(c, v); ok {
			return []Command{cmd}
		}
	}

	// Stage 2: a station pair without a vehicle gets one. The purchase
	// result becomes visible as an unrouted vehicle on the next wakeup.
	if len(c.Stations) >= 2 && len(c.Vehicles) < len(c.Stations)/2 {
		st, ok := s.Stations[c.Stations[len(c.Stations)-1]]
		if ok {
			model := modelForKind(st.Kind)
			if vehicle.ProfileFor(model).Cost <= budget {
				return []Command{{Type: CmdPurchaseVehicle, Model: model, Station: st.ID}}
			}
		}
	}

	// Stage 3: reinforce a profitable single-vehicle route.
	if r := bestRoute(c); r != nil && r.Profit > 0 && len(r.Vehicles) < 2 && len(r.Stations) > 0 {
		if st, ok := s.Stations[r.Stations[0]]; ok {
			model := modelForKind(st.Kind)
			if vehicle.ProfileFor(model).Cost <= budget {
				return []Command{{Type: CmdPurchaseVehicle, Model: model, Station: st.ID}}
			}
		}
	}

	// Stage 4: open a new line.
	opp := s.bestOpportunity(c)
	if opp == nil {
		return nil
	}

	kind, model := transportFor(opp.cargo)
	setupCost := stationCost[kind]*2 +
		s.TrackCost(opp.from, opp.to, vehicle.ProfileFor(model).Class) +
		vehicle.ProfileFor(model).Cost
	if setupCost > budget {
		return nil
	}

	fromSite := s.buildSiteNear(opp.from)
	toSite := s.buildSiteNear(opp.to)
	if fromSite < 0 || toSite < 0 || fromSite == toSite {
		return nil
	}
	return []Command{
		{Type: CmdBuildStation, Node: fromSite, Kind: kind},
		{Type: CmdBuildStation, Node: toSite, Kind: kind},
		{Type: CmdBuildTrack, From: fromSite, To: toSite, Class: vehicle.ProfileFor(model).Class},
	}
}

// routeForVehicle pairs the vehicle's station with the nearest other
// company station of the same kind and picks a cargo produced nearby.
func (s *Simulation) routeForVehicle(c *company.Company, v *vehicle.Vehicle) (Command, bool) {
	home := s.stationAt(v.Node)
	if home == nil || home.Owner != c.ID {
		return Command{}, false
	}
	var other *world.Station
	for _, sid := range c.Stations {
		st, ok := s.Stations[sid]
		if !ok || st.ID == home.ID || st.Kind != home.Kind {
			continue
		}
		if other == nil || s.Grid.Distance(home.Node, st.Node) < s.Grid.Distance(home.Node, other.Node) {
			other = st
		}
	}
	if other == nil {
		return Command{}, false
	}

	// Freight flows producer → consumer; flip the station order when the
	// match runs the other way. No match means a passenger shuttle.
	cargo := world.CargoPassengers
	stations := []uint64{home.ID, other.ID}
	if c, ok := s.cargoNear(home, other); ok {
		cargo = c
	} else if c, ok := s.cargoNear(other, home); ok {
		cargo = c
		stations = []uint64{other.ID, home.ID}
	}
	return Command{
		Type:     CmdAssignRoute,
		Vehicle:  v.ID,
		Stations: stations,
		Cargo:    cargo,
	}, true
}

// cargoNear picks what a route between two stations should carry: the
// first cargo produced in the origin's catchment that something near the
// destination wants.
func (s *Simulation) cargoNear(from, to *world.Station) (world.CargoType, bool) {
	for _, cargo := range world.AllCargoTypes {
		produced := false
		for _, id := range sortedIDs(s.Industries) {
			in := s.Industries[id]
			if in.Produces(cargo) && s.Grid.Distance(in.Node, from.Node) <= float64(from.Catchment) {
				produced = true
				break
			}
		}
		if !produced {
			continue
		}
		for _, id := range sortedIDs(s.Industries) {
			in := s.Industries[id]
			if in.Consumes(cargo) && s.Grid.Distance(in.Node, to.Node) <= float64(to.Catchment) {
				return cargo, true
			}
		}
		if cargo == world.CargoFood || cargo == world.CargoGoods {
			for _, id := range sortedIDs(s.Towns) {
				t := s.Towns[id]
				if s.Grid.Distance(t.Node, to.Node) <= float64(to.Catchment) {
					return cargo, true
				}
			}
		}
	}
	return world.CargoPassengers, false
}

// bestOpportunity scores producer → consumer flows by strategy. Candidates
// are walked in id order so equal scores resolve deterministically.
func (s *Simulation) bestOpportunity(c *company.Company) *opportunity {
	var best *opportunity
	consider := func(o opportunity) {
		o.score = s.scoreOpportunity(c, o)
		if o.score <= 0 {
			return
		}
		if best == nil || o.score > best.score {
			best = &o
		}
	}

	for _, pid := range sortedIDs(s.Industries) {
		prod := s.Industries[pid]
		for _, cargo := range world.AllCargoTypes {
			if !prod.Produces(cargo) {
				continue
			}
			if s.served(prod.Node) {
				continue
			}
			for _, cid := range sortedIDs(s.Industries) {
				cons := s.Industries[cid]
				if cid == pid || !cons.Consumes(cargo) {
					continue
				}
				consider(opportunity{
					cargo: cargo, from: prod.Node, to: cons.Node,
					dist: s.Grid.Distance(prod.Node, cons.Node),
				})
			}
			if cargo == world.CargoFood || cargo == world.CargoGoods {
				for _, tid := range sortedIDs(s.Towns) {
					t := s.Towns[tid]
					consider(opportunity{
						cargo: cargo, from: prod.Node, to: t.Node,
						dist: s.Grid.Distance(prod.Node, t.Node),
					})
				}
			}
		}
	}

	// Passenger links between towns.
	townIDs := sortedIDs(s.Towns)
	for i, aid := range townIDs {
		for _, bid := range townIDs[i+1:] {
			a, b := s.Towns[aid], s.Towns[bid]
			if s.served(a.Node) {
				continue
			}
			consider(opportunity{
				cargo: world.CargoPassengers, from: a.Node, to: b.Node,
				dist: s.Grid.Distance(a.Node, b.Node),
			})
		}
	}
	return best
}

// scoreOpportunity applies the strategy weighting.
func (s *Simulation) scoreOpportunity(c *company.Company, o opportunity) float64 {
	if o.dist < 2 {
		return 0
	}
	revenue := s.Market.Price(o.cargo) * o.dist
	cost := o.dist

	switch c.AI.Strategy {
	case company.StrategyAggressive:
		return revenue * o.dist
	case company.StrategyConservative:
		return revenue / (cost * cost)
	case company.StrategySpecialist:
		if o.cargo != c.AI.FocusCargo {
			return 0
		}
		return revenue / cost
	default: // Balanced
		return revenue / cost
	}
}

// served reports whether any station already covers the node.
func (s *Simulation) served(n world.NodeID) bool {
	return len(s.stationsNear(n)) > 0
}

// buildSiteNear finds the nearest buildable tile around a target node,
// scanning a small ring in fixed order. Returns -1 when nothing fits.
func (s *Simulation) buildSiteNear(n world.NodeID) world.NodeID {
	x, y := s.Grid.Coords(n)
	for radius := 1; radius <= 3; radius++ {
		for dy := -radius; dy <= radius; dy++ {
			for dx := -radius; dx <= radius; dx++ {
				site := s.Grid.NodeAt(x+dx, y+dy)
				if site < 0 {
					continue
				}
				t := s.Grid.Tile(site)
				if t.Content == world.ContentEmpty && t.Terrain != world.TerrainWater {
					return site
				}
			}
		}
	}
	return -1
}

// bestRoute returns the company's most profitable route.
func bestRoute(c *company.Company) *company.Route {
	var best *company.Route
	for _, r := range c.Routes {
		if best == nil || r.Profit > best.Profit {
			best = r
		}
	}
	return best
}

// transportFor picks the station kind and vehicle model an AI uses for a
// cargo type.
func transportFor(c world.CargoType) (world.StationKind, vehicle.Model) {
	switch c {
	case world.CargoPassengers, world.CargoMail:
		return world.StationRoad, vehicle.ModelBus
	case world.CargoCoal, world.CargoIronOre, world.CargoSteel:
		return world.StationRail, vehicle.ModelDieselTrain
	default:
		return world.StationRoad, vehicle.ModelLargeTruck
	}
}

// modelForKind picks a default model deployable at a station kind.
func modelForKind(k world.StationKind) vehicle.Model {
	switch k {
	case world.StationRail:
		return vehicle.ModelDieselTrain
	case world.StationHarbor:
		return vehicle.ModelCargoShip
	case world.StationAirport:
		return vehicle.ModelSmallPlane
	default:
		return vehicle.ModelLargeTruck
	}
}

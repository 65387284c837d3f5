// Vehicle movement: the per-tick state machine. Vehicles cycle through
// Idle → Pathing → Moving → Unloading → Loading → Pathing along their
// route, with Breakdown interrupting Moving. Order of processing is
// vehicle-id ascending.
package engine

import (
	"errors"

	"github.com/dustin/go-humanize"
	"github.com/talgya/railworld/internal/company"
	"github.com/talgya/railworld/internal/pathfind"
	"github.com/talgya/railworld/internal/vehicle"
	"github.com/talgya/railworld/internal/world"
)

// stepVehicles advances every vehicle one tick.
func (s *Simulation) stepVehicles(d *TickDelta) {
	for _, id := range sortedIDs(s.Vehicles) {
		v := s.Vehicles[id]
		if v.State == vehicle.StateScrapped {
			continue
		}
		v.Age++

		switch v.State {
		case vehicle.StateIdle:
			s.vehicleIdle(v)
		case vehicle.StatePathing:
			s.vehiclePath(v)
		case vehicle.StateMoving:
			s.vehicleMove(v, d)
		case vehicle.StateLoading:
			s.vehicleLoad(v, d)
		case vehicle.StateUnloading:
			s.vehicleUnload(v, d)
		case vehicle.StateBreakdown:
			v.RepairTicks--
			if v.RepairTicks <= 0 {
				s.repairVehicle(v)
			}
		}

		d.Vehicles = append(d.Vehicles, VehicleUpdate{
			ID:         v.ID,
			State:      v.State,
			Node:       v.Node,
			EdgeIndex:  v.EdgeIndex,
			Progress:   v.Progress,
			Cargo:      v.Cargo,
			CargoQty:   v.CargoQty,
			RouteIndex: v.RouteIndex,
		})
	}
}

// vehicleIdle waits for a route, then heads for the next station.
func (s *Simulation) vehicleIdle(v *vehicle.Vehicle) {
	if len(v.Route) == 0 {
		return
	}
	target, ok := s.Stations[v.NextStation()]
	if !ok {
		return
	}
	if target.Node == v.Node {
		s.vehicleArrive(v, target)
		return
	}
	v.State = vehicle.StatePathing
}

// vehiclePath runs the route search. A budget miss leaves the vehicle in
// Pathing to retry next tick; an unreachable station idles it.
func (s *Simulation) vehiclePath(v *vehicle.Vehicle) {
	target, ok := s.Stations[v.NextStation()]
	if !ok {
		v.State = vehicle.StateIdle
		return
	}
	p, err := s.Finder.Route(v.Profile().Class, v.Node, target.Node)
	switch {
	case errors.Is(err, pathfind.ErrBudgetExceeded):
		return
	case errors.Is(err, pathfind.ErrNoRoute):
		s.event("fleet", "vehicle %d has no route to %s", v.ID, target.Name)
		v.State = vehicle.StateIdle
		return
	case err != nil:
		v.State = vehicle.StateIdle
		return
	}
	v.Path = p
	v.EdgeIndex = 0
	v.Progress = 0
	v.State = vehicle.StateMoving
}

// vehicleMove advances along the path by the vehicle's speed, checking for
// breakdowns first.
func (s *Simulation) vehicleMove(v *vehicle.Vehicle, d *TickDelta) {
	if s.rng.Chance((1.0 - v.Reliability) * s.Params.BreakdownFactor) {
		v.State = vehicle.StateBreakdown
		v.RepairTicks = s.Params.RepairTicks
		v.TripBreakdowns++
		s.event("fleet", "%s %d broke down", v.Profile().Name, v.ID)
		return
	}

	budget := v.Profile().Speed
	for budget > 0 && v.Path != nil && v.EdgeIndex < len(v.Path.Edges) {
		e := v.Path.Edges[v.EdgeIndex]
		remaining := e.Cost * (1.0 - v.Progress)
		if budget < remaining {
			v.Progress += budget / e.Cost
			budget = 0
			break
		}
		budget -= remaining
		v.Node = e.To
		v.TripDistance += e.Cost
		v.EdgeIndex++
		v.Progress = 0
	}

	if v.Path == nil || v.EdgeIndex >= len(v.Path.Edges) {
		target, ok := s.Stations[v.NextStation()]
		if !ok || target.Node != v.Node {
			// Route changed under us; replan.
			v.Path = nil
			v.State = vehicle.StateIdle
			return
		}
		s.vehicleArrive(v, target)
	}
}

// repairVehicle returns a broken-down vehicle to service: the company
// pays the maintenance bill and the work restores some reliability. The
// vehicle goes back to Idle and replans from wherever it stopped.
func (s *Simulation) repairVehicle(v *vehicle.Vehicle) {
	cost := int64(float64(v.RunningCost()) * s.Params.RepairCostFrac)
	if c, ok := s.Companies[v.Company]; ok {
		c.Spend(cost)
	}
	v.Profit -= cost
	if limit := v.Profile().Reliability; v.Reliability < limit {
		v.Reliability = min(limit, v.Reliability+s.Params.RepairBoost)
	}
	v.Path = nil
	v.State = vehicle.StateIdle
}

// releasePlatform frees the dwell slot of a vehicle pulled out of a
// station outside the normal load cycle (sale, reassignment, bankruptcy).
// Only Loading/Unloading vehicles hold a slot.
func (s *Simulation) releasePlatform(v *vehicle.Vehicle) {
	if v.State != vehicle.StateLoading && v.State != vehicle.StateUnloading {
		return
	}
	if st := s.stationAt(v.Node); st != nil && st.Dwelling > 0 {
		st.Dwelling--
	}
}

// vehicleArrive tries to take a platform. When the station is full the
// vehicle waits outside and retries next tick.
func (s *Simulation) vehicleArrive(v *vehicle.Vehicle, st *world.Station) {
	if st.Dwelling >= st.Platforms {
		v.Path = nil
		v.State = vehicle.StateMoving
		return
	}
	st.Dwelling++
	v.Path = nil
	v.DwellTicks = s.Params.DwellTicks
	if v.CargoQty > 0 {
		v.State = vehicle.StateUnloading
	} else {
		v.State = vehicle.StateLoading
		v.AdvanceRoute()
	}
}

// vehicleUnload drops cargo when the dwell timer expires. Delivered units
// go straight to consumers in the catchment; what nothing wants stays in
// the hold.
func (s *Simulation) vehicleUnload(v *vehicle.Vehicle, d *TickDelta) {
	v.DwellTicks--
	if v.DwellTicks > 0 {
		return
	}

	st := s.stationAt(v.Node)
	if st == nil {
		v.State = vehicle.StateIdle
		return
	}

	loadFactor := 0.5 + 0.5*v.LoadFactor()
	unloaded := s.deliverCargo(st, v.Cargo, v.CargoQty)
	v.CargoQty -= unloaded

	if unloaded > 0 {
		revenue := s.Market.Payment(v.Cargo, unloaded, v.TripDistance, loadFactor)
		if c, ok := s.Companies[v.Company]; ok {
			c.Credit(revenue)
			if r := routeOfVehicle(c, v.ID); r != nil {
				r.Profit += revenue
			}
		}
		v.Profit += revenue
		v.Deliveries++
		if v.TripBreakdowns == 0 {
			v.OnTime++
		}
		d.Transfers = append(d.Transfers, CargoTransfer{
			Vehicle: v.ID, Station: st.ID, Cargo: v.Cargo,
			Qty: unloaded, Unload: true, Revenue: revenue,
		})
		s.event("delivery", "vehicle %d delivered %d %s to %s for %s",
			v.ID, unloaded, world.CargoName(v.Cargo), st.Name, humanize.Comma(revenue))
	}

	v.TripDistance = 0
	v.TripBreakdowns = 0
	v.DwellTicks = s.Params.DwellTicks
	v.State = vehicle.StateLoading
	v.AdvanceRoute()
}

// vehicleLoad picks up route cargo when the dwell timer expires, then
// releases the platform and departs.
func (s *Simulation) vehicleLoad(v *vehicle.Vehicle, d *TickDelta) {
	v.DwellTicks--
	if v.DwellTicks > 0 {
		return
	}

	st := s.stationAt(v.Node)
	if st != nil {
		got := st.Take(v.Cargo, v.CapacityLeft())
		if got > 0 {
			v.CargoQty += got
			d.Transfers = append(d.Transfers, CargoTransfer{
				Vehicle: v.ID, Station: st.ID, Cargo: v.Cargo, Qty: got,
			})
		}
		if st.Dwelling > 0 {
			st.Dwelling--
		}
	}

	v.TripDistance = 0
	v.TripBreakdowns = 0
	v.State = vehicle.StatePathing
}

func routeOfVehicle(c *company.Company, vid uint64) *company.Route {
	for _, r := range c.Routes {
		for _, id := range r.Vehicles {
			if id == vid {
				return r
			}
		}
	}
	return nil
}

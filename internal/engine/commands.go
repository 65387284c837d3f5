// Player commands: validation and application. A command either applies
// fully or is rejected with a reason; there is no partial application.
package engine

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/talgya/railworld/internal/company"
	"github.com/talgya/railworld/internal/vehicle"
	"github.com/talgya/railworld/internal/world"
)

var (
	// ErrInvalidCommand marks a structurally or semantically bad command.
	ErrInvalidCommand = errors.New("invalid command")
	// ErrInsufficientFunds marks a command the company cannot pay for.
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// CommandType names a player operation.
type CommandType string

const (
	CmdBuildTrack      CommandType = "build_track"
	CmdBuildStation    CommandType = "build_station"
	CmdPurchaseVehicle CommandType = "purchase_vehicle"
	CmdAssignRoute     CommandType = "assign_route"
	CmdSellVehicle     CommandType = "sell_vehicle"
	CmdSetPause        CommandType = "set_pause"
)

// Command is one player (or AI) instruction, applied at a tick boundary.
// Fields beyond ID/Company/Type are populated per command type.
type Command struct {
	ID      uint64      `json:"id"` // client-assigned, echoed in the result
	Company uint64      `json:"company"`
	Type    CommandType `json:"type"`

	// build_track
	From  world.NodeID       `json:"from,omitempty"`
	To    world.NodeID       `json:"to,omitempty"`
	Class world.VehicleClass `json:"class,omitempty"`

	// build_station
	Node world.NodeID      `json:"node,omitempty"`
	Kind world.StationKind `json:"kind,omitempty"`
	Name string            `json:"name,omitempty"`

	// purchase_vehicle
	Model   vehicle.Model `json:"model,omitempty"`
	Station uint64        `json:"station,omitempty"`

	// assign_route / sell_vehicle
	Vehicle  uint64          `json:"vehicle,omitempty"`
	Stations []uint64        `json:"stations,omitempty"`
	Cargo    world.CargoType `json:"cargo,omitempty"`

	// set_pause
	Paused bool `json:"paused,omitempty"`
}

// CommandResult reports acceptance or rejection of one command.
type CommandResult struct {
	ID      uint64 `json:"id"`
	Company uint64 `json:"company"`
	Type    string `json:"type"`
	OK      bool   `json:"ok"`
	Reason  string `json:"reason,omitempty"`
	// Entity is the id of a created entity (station, vehicle, route).
	Entity uint64 `json:"entity,omitempty"`
}

// Track cost per tile of distance, by class. Aircraft links are flight
// corridors and cost nothing; airports carry the capital cost instead.
var trackCostPerTile = map[world.VehicleClass]int64{
	world.ClassTrain:    500,
	world.ClassRoad:     200,
	world.ClassShip:     100,
	world.ClassAircraft: 0,
}

var stationCost = map[world.StationKind]int64{
	world.StationRail:    20_000,
	world.StationRoad:    10_000,
	world.StationHarbor:  30_000,
	world.StationAirport: 100_000,
}

// TrackCost returns the money cost of a track segment.
func (s *Simulation) TrackCost(from, to world.NodeID, class world.VehicleClass) int64 {
	return int64(s.Grid.Distance(from, to)) * trackCostPerTile[class]
}

// apply validates and executes one command against the simulation.
func (s *Simulation) apply(cmd Command) CommandResult {
	res := CommandResult{ID: cmd.ID, Company: cmd.Company, Type: string(cmd.Type)}

	c, ok := s.Companies[cmd.Company]
	if !ok {
		res.Reason = "unknown company"
		return res
	}
	if c.Bankrupt {
		res.Reason = "company is bankrupt"
		return res
	}

	var err error
	var entity uint64
	switch cmd.Type {
	case CmdBuildTrack:
		err = s.buildTrack(c, cmd)
	case CmdBuildStation:
		entity, err = s.buildStation(c, cmd)
	case CmdPurchaseVehicle:
		entity, err = s.purchaseVehicle(c, cmd)
	case CmdAssignRoute:
		entity, err = s.assignRoute(c, cmd)
	case CmdSellVehicle:
		err = s.sellVehicle(c, cmd)
	case CmdSetPause:
		s.setPause(c, cmd)
	default:
		err = fmt.Errorf("%w: unknown type %q", ErrInvalidCommand, cmd.Type)
	}

	if err != nil {
		res.Reason = err.Error()
		return res
	}
	res.OK = true
	res.Entity = entity
	return res
}

func (s *Simulation) buildTrack(c *company.Company, cmd Command) error {
	from, to := s.Grid.Tile(cmd.From), s.Grid.Tile(cmd.To)
	if from == nil || to == nil {
		return fmt.Errorf("%w: track endpoint out of bounds", ErrInvalidCommand)
	}
	if cmd.From == cmd.To {
		return fmt.Errorf("%w: track endpoints are the same tile", ErrInvalidCommand)
	}
	switch cmd.Class {
	case world.ClassTrain, world.ClassRoad:
		if from.Terrain == world.TerrainWater || to.Terrain == world.TerrainWater {
			return fmt.Errorf("%w: cannot lay %s on water", ErrInvalidCommand, world.ClassName(cmd.Class))
		}
	case world.ClassShip:
		if from.Terrain != world.TerrainWater || to.Terrain != world.TerrainWater {
			return fmt.Errorf("%w: shipping lanes require water at both ends", ErrInvalidCommand)
		}
	}
	if s.Graph.HasLink(cmd.From, cmd.To, cmd.Class) {
		return fmt.Errorf("%w: link already exists", ErrInvalidCommand)
	}

	cost := s.TrackCost(cmd.From, cmd.To, cmd.Class)
	if !c.CanAfford(cost) {
		return fmt.Errorf("%w: need %s", ErrInsufficientFunds, humanize.Comma(cost))
	}

	c.Spend(cost)
	dist := s.Grid.Distance(cmd.From, cmd.To)
	s.Graph.AddLink(cmd.From, cmd.To, dist, cmd.Class)
	if cmd.Class == world.ClassTrain && from.Content == world.ContentEmpty {
		from.Content = world.ContentTrack
	}
	s.event("build", "%s laid %s link %d-%d", c.Name, world.ClassName(cmd.Class), cmd.From, cmd.To)
	return nil
}

func (s *Simulation) buildStation(c *company.Company, cmd Command) (uint64, error) {
	tile := s.Grid.Tile(cmd.Node)
	if tile == nil {
		return 0, fmt.Errorf("%w: station site out of bounds", ErrInvalidCommand)
	}
	if tile.Content == world.ContentStation || tile.Content == world.ContentTown || tile.Content == world.ContentIndustry {
		return 0, fmt.Errorf("%w: tile is occupied", ErrInvalidCommand)
	}
	if cmd.Kind == world.StationHarbor {
		if tile.Terrain != world.TerrainWater {
			return 0, fmt.Errorf("%w: harbors require water", ErrInvalidCommand)
		}
	} else if tile.Terrain == world.TerrainWater {
		return 0, fmt.Errorf("%w: cannot build on water", ErrInvalidCommand)
	}

	cost := stationCost[cmd.Kind]
	if !c.CanAfford(cost) {
		return 0, fmt.Errorf("%w: need %s", ErrInsufficientFunds, humanize.Comma(cost))
	}

	c.Spend(cost)
	s.nextStationID++
	name := cmd.Name
	if name == "" {
		name = fmt.Sprintf("%s Station %d", c.Name, s.nextStationID)
	}
	st := &world.Station{
		ID:        s.nextStationID,
		Name:      name,
		Node:      cmd.Node,
		Owner:     c.ID,
		Kind:      cmd.Kind,
		Inventory: make(map[world.CargoType]int),
		Capacity:  s.Params.StationCapacity,
		Platforms: 2,
		Catchment: 4,
	}
	s.Stations[st.ID] = st
	c.Stations = append(c.Stations, st.ID)
	tile.Content = world.ContentStation
	s.event("build", "%s opened %s", c.Name, st.Name)
	return st.ID, nil
}

func (s *Simulation) purchaseVehicle(c *company.Company, cmd Command) (uint64, error) {
	st, ok := s.Stations[cmd.Station]
	if !ok {
		return 0, fmt.Errorf("%w: unknown station %d", ErrInvalidCommand, cmd.Station)
	}
	if st.Owner != c.ID {
		return 0, fmt.Errorf("%w: station %d is not yours", ErrInvalidCommand, cmd.Station)
	}
	p := vehicle.ProfileFor(cmd.Model)
	if !st.Kind.ServesClass(p.Class) {
		return 0, fmt.Errorf("%w: %s cannot deploy at a %s station",
			ErrInvalidCommand, p.Name, world.StationKindName(st.Kind))
	}
	if !c.CanAfford(p.Cost) {
		return 0, fmt.Errorf("%w: need %s", ErrInsufficientFunds, humanize.Comma(p.Cost))
	}

	c.Spend(p.Cost)
	s.nextVehicleID++
	v := vehicle.New(s.nextVehicleID, c.ID, cmd.Model, st.Node)
	s.Vehicles[v.ID] = v
	c.Vehicles = append(c.Vehicles, v.ID)
	s.event("fleet", "%s bought a %s for %s", c.Name, p.Name, humanize.Comma(p.Cost))
	return v.ID, nil
}

func (s *Simulation) assignRoute(c *company.Company, cmd Command) (uint64, error) {
	v, ok := s.Vehicles[cmd.Vehicle]
	if !ok || v.Company != c.ID {
		return 0, fmt.Errorf("%w: unknown vehicle %d", ErrInvalidCommand, cmd.Vehicle)
	}
	if v.State == vehicle.StateScrapped {
		return 0, fmt.Errorf("%w: vehicle %d is scrapped", ErrInvalidCommand, cmd.Vehicle)
	}
	if len(cmd.Stations) < 2 {
		return 0, fmt.Errorf("%w: a route needs at least two stations", ErrInvalidCommand)
	}
	class := v.Profile().Class
	for _, sid := range cmd.Stations {
		st, ok := s.Stations[sid]
		if !ok {
			return 0, fmt.Errorf("%w: unknown station %d", ErrInvalidCommand, sid)
		}
		if !st.Kind.ServesClass(class) {
			return 0, fmt.Errorf("%w: %s does not serve %s vehicles",
				ErrInvalidCommand, st.Name, world.ClassName(class))
		}
	}

	s.nextRouteID++
	r := &company.Route{
		ID:       s.nextRouteID,
		Name:     fmt.Sprintf("Route %d", s.nextRouteID),
		Stations: append([]uint64(nil), cmd.Stations...),
		Cargo:    cmd.Cargo,
		Vehicles: []uint64{v.ID},
	}
	c.Routes = append(c.Routes, r)

	s.releasePlatform(v)
	v.Route = append([]uint64(nil), cmd.Stations...)
	v.RouteIndex = 0
	v.Cargo = cmd.Cargo
	v.Path = nil
	if v.State != vehicle.StateBreakdown {
		v.State = vehicle.StateIdle
	}
	s.event("fleet", "%s assigned %s to carry %s", c.Name, r.Name, world.CargoName(cmd.Cargo))
	return r.ID, nil
}

// setPause records a pause request for the engine, which owns the tick
// loop. It takes effect after the current tick completes.
func (s *Simulation) setPause(c *company.Company, cmd Command) {
	val := cmd.Paused
	s.pauseRequest = &val
	if val {
		s.event("control", "%s paused the simulation", c.Name)
	} else {
		s.event("control", "%s resumed the simulation", c.Name)
	}
}

func (s *Simulation) sellVehicle(c *company.Company, cmd Command) error {
	v, ok := s.Vehicles[cmd.Vehicle]
	if !ok || v.Company != c.ID {
		return fmt.Errorf("%w: unknown vehicle %d", ErrInvalidCommand, cmd.Vehicle)
	}
	if v.State == vehicle.StateScrapped {
		return fmt.Errorf("%w: vehicle %d already scrapped", ErrInvalidCommand, cmd.Vehicle)
	}

	value := v.CurrentValue()
	c.Credit(value)
	s.releasePlatform(v)
	v.State = vehicle.StateScrapped
	v.CargoQty = 0
	v.Path = nil
	s.event("fleet", "%s sold a %s for %s", c.Name, v.Profile().Name, humanize.Comma(value))
	return nil
}

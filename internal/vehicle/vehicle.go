// Package vehicle provides the vehicle data model: models with capacity,
// speed, and cost profiles, and the lifecycle state machine advanced each
// tick by the engine.
package vehicle

import (
	"github.com/talgya/railworld/internal/pathfind"
	"github.com/talgya/railworld/internal/world"
)

// Model identifies a purchasable vehicle design.
type Model uint8

const (
	ModelSteamTrain Model = iota
	ModelDieselTrain
	ModelElectricTrain
	ModelBus
	ModelSmallTruck
	ModelLargeTruck
	ModelCargoShip
	ModelSmallPlane

	ModelCount = 8
)

// Profile is the static stat block for a model.
type Profile struct {
	Name        string             `json:"name"`
	Class       world.VehicleClass `json:"class"`
	Capacity    int                `json:"capacity"`
	Speed       float64            `json:"speed"` // edge-cost units per tick
	Cost        int64              `json:"cost"`
	RunningCost int64              `json:"running_cost"` // per running-cost period
	Reliability float64            `json:"reliability"`  // starting reliability 0-1
}

var profiles = [ModelCount]Profile{
	ModelSteamTrain:    {Name: "Steam Train", Class: world.ClassTrain, Capacity: 80, Speed: 0.60, Cost: 230_000, RunningCost: 1000, Reliability: 0.80},
	ModelDieselTrain:   {Name: "Diesel Train", Class: world.ClassTrain, Capacity: 100, Speed: 0.80, Cost: 330_000, RunningCost: 1200, Reliability: 0.85},
	ModelElectricTrain: {Name: "Electric Train", Class: world.ClassTrain, Capacity: 120, Speed: 1.00, Cost: 480_000, RunningCost: 1500, Reliability: 0.92},
	ModelBus:           {Name: "Bus", Class: world.ClassRoad, Capacity: 40, Speed: 0.85, Cost: 120_000, RunningCost: 200, Reliability: 0.88},
	ModelSmallTruck:    {Name: "Small Truck", Class: world.ClassRoad, Capacity: 30, Speed: 0.90, Cost: 75_000, RunningCost: 200, Reliability: 0.85},
	ModelLargeTruck:    {Name: "Large Truck", Class: world.ClassRoad, Capacity: 60, Speed: 0.70, Cost: 150_000, RunningCost: 250, Reliability: 0.80},
	ModelCargoShip:     {Name: "Cargo Ship", Class: world.ClassShip, Capacity: 200, Speed: 0.40, Cost: 500_000, RunningCost: 800, Reliability: 0.90},
	ModelSmallPlane:    {Name: "Small Plane", Class: world.ClassAircraft, Capacity: 30, Speed: 3.00, Cost: 2_000_000, RunningCost: 3000, Reliability: 0.75},
}

// ProfileFor returns the stat block for a model.
func ProfileFor(m Model) Profile {
	if int(m) < len(profiles) {
		return profiles[m]
	}
	return profiles[ModelSmallTruck]
}

// State is the vehicle lifecycle state.
type State uint8

const (
	StateIdle State = iota
	StatePathing
	StateMoving
	StateLoading
	StateUnloading
	StateBreakdown
	StateScrapped
)

var stateNames = []string{
	"Idle", "Pathing", "Moving", "Loading", "Unloading", "Breakdown", "Scrapped",
}

// StateName returns a display name for a state.
func StateName(s State) string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "Unknown"
}

// Vehicle is one unit of rolling stock (or ship, or plane).
type Vehicle struct {
	ID      uint64 `json:"id"`
	Company uint64 `json:"company"`
	Model   Model  `json:"model"`
	State   State  `json:"state"`

	// Position: Node is the last node reached. While Moving, Path,
	// EdgeIndex, and Progress refine the position along an edge. While
	// Loading/Unloading, DwellTicks counts down at a station.
	Node       world.NodeID   `json:"node"`
	Path       *pathfind.Path `json:"path,omitempty"`
	EdgeIndex  int            `json:"edge_index"`
	Progress   float64        `json:"progress"` // fraction of current edge
	DwellTicks int            `json:"dwell_ticks"`

	// Route is an ordered list of station ids. RouteIndex points at the
	// station the vehicle is currently heading for.
	Route      []uint64 `json:"route"`
	RouteIndex int      `json:"route_index"`

	Cargo    world.CargoType `json:"cargo"`
	CargoQty int             `json:"cargo_qty"`

	Age         uint64  `json:"age"` // ticks since purchase
	Reliability float64 `json:"reliability"`
	RepairTicks int     `json:"repair_ticks"`
	Profit      int64   `json:"profit"`

	// TripDistance accumulates edge cost since the last load, feeding the
	// distance term of delivery revenue. TripBreakdowns counts failures on
	// the current trip; a clean trip counts as an on-time delivery.
	TripDistance   float64 `json:"trip_distance"`
	TripBreakdowns uint32  `json:"trip_breakdowns"`

	Deliveries uint32 `json:"deliveries"`
	OnTime     uint32 `json:"on_time"`
}

// New creates a vehicle of the given model at a node.
func New(id, companyID uint64, m Model, at world.NodeID) *Vehicle {
	p := ProfileFor(m)
	return &Vehicle{
		ID:          id,
		Company:     companyID,
		Model:       m,
		State:       StateIdle,
		Node:        at,
		Reliability: p.Reliability,
	}
}

// Profile returns the vehicle's stat block.
func (v *Vehicle) Profile() Profile {
	return ProfileFor(v.Model)
}

// CapacityLeft returns remaining hold space.
func (v *Vehicle) CapacityLeft() int {
	return v.Profile().Capacity - v.CargoQty
}

// LoadFactor returns how full the hold is, used to reward full loads.
func (v *Vehicle) LoadFactor() float64 {
	cap := v.Profile().Capacity
	if cap == 0 {
		return 0
	}
	return float64(v.CargoQty) / float64(cap)
}

// NextStation returns the station id the vehicle is heading for, or 0 when
// it has no route.
func (v *Vehicle) NextStation() uint64 {
	if len(v.Route) == 0 {
		return 0
	}
	return v.Route[v.RouteIndex%len(v.Route)]
}

// AdvanceRoute moves the route pointer to the following station.
func (v *Vehicle) AdvanceRoute() {
	if len(v.Route) > 0 {
		v.RouteIndex = (v.RouteIndex + 1) % len(v.Route)
	}
}

// CurrentValue returns the depreciated resale value.
func (v *Vehicle) CurrentValue() int64 {
	p := v.Profile()
	depreciation := float64(v.Age) / 100_000.0 * 0.15
	if depreciation > 0.8 {
		depreciation = 0.8
	}
	return int64(float64(p.Cost) * (1.0 - depreciation))
}

// RunningCost returns the per-period upkeep, growing with age and
// degraded reliability.
func (v *Vehicle) RunningCost() int64 {
	p := v.Profile()
	ageMul := 1.0 + float64(v.Age)/100_000.0
	relMul := 2.0 - v.Reliability
	return int64(float64(p.RunningCost) * ageMul * relMul)
}

// OnTimeRatio returns the fraction of deliveries completed on time.
// A vehicle with no deliveries counts as on time.
func (v *Vehicle) OnTimeRatio() float64 {
	if v.Deliveries == 0 {
		return 1
	}
	return float64(v.OnTime) / float64(v.Deliveries)
}

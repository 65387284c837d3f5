// Snapshots: the full world state, exported for late joiners and saves.
// Export and Import round-trip: a simulation imported from a snapshot
// continues with the same tick, entities, and market state.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/talgya/railworld/internal/company"
	"github.com/talgya/railworld/internal/economy"
	"github.com/talgya/railworld/internal/entropy"
	"github.com/talgya/railworld/internal/pathfind"
	"github.com/talgya/railworld/internal/vehicle"
	"github.com/talgya/railworld/internal/world"
)

// Snapshot is the serializable full world state. Entity slices are sorted
// by id so encoding is deterministic.
type Snapshot struct {
	Seq  uint64 `json:"seq"`
	Tick uint64 `json:"tick"`
	Seed int64  `json:"seed"`

	Params Params          `json:"params"`
	Grid   *world.Grid     `json:"grid"`
	Graph  *world.Graph    `json:"graph"`
	Market *economy.Market `json:"market"`

	Towns      []*world.Town      `json:"towns"`
	Industries []*world.Industry  `json:"industries"`
	Stations   []*world.Station   `json:"stations"`
	Companies  []*company.Company `json:"companies"`
	Vehicles   []*vehicle.Vehicle `json:"vehicles"`

	NextStationID uint64 `json:"next_station_id"`
	NextVehicleID uint64 `json:"next_vehicle_id"`
	NextRouteID   uint64 `json:"next_route_id"`

	Events []Event `json:"events"`
}

// Export captures the current world state. The returned snapshot shares
// entity pointers with the live simulation; callers that hand it to other
// goroutines must serialize it while the engine is not ticking.
func (s *Simulation) Export(seq uint64) *Snapshot {
	snap := &Snapshot{
		Seq:           seq,
		Tick:          s.Tick,
		Seed:          s.Seed,
		Params:        s.Params,
		Grid:          s.Grid,
		Graph:         s.Graph,
		Market:        s.Market,
		NextStationID: s.nextStationID,
		NextVehicleID: s.nextVehicleID,
		NextRouteID:   s.nextRouteID,
		Events:        s.RecentEvents(100),
	}
	for _, id := range sortedIDs(s.Towns) {
		snap.Towns = append(snap.Towns, s.Towns[id])
	}
	for _, id := range sortedIDs(s.Industries) {
		snap.Industries = append(snap.Industries, s.Industries[id])
	}
	for _, id := range sortedIDs(s.Stations) {
		snap.Stations = append(snap.Stations, s.Stations[id])
	}
	for _, id := range sortedIDs(s.Companies) {
		snap.Companies = append(snap.Companies, s.Companies[id])
	}
	for _, id := range sortedIDs(s.Vehicles) {
		snap.Vehicles = append(snap.Vehicles, s.Vehicles[id])
	}
	return snap
}

// Import rebuilds a simulation from a snapshot. The random streams are
// re-derived from the seed and the snapshot tick; a world saved and
// reloaded diverges from one that kept running, but remains internally
// deterministic.
func Import(snap *Snapshot, logger *slog.Logger) (*Simulation, error) {
	if snap.Grid == nil || snap.Graph == nil || snap.Market == nil {
		return nil, fmt.Errorf("snapshot missing world state (tick %d)", snap.Tick)
	}
	root := entropy.NewStream(snap.Seed ^ int64(snap.Tick))
	s := &Simulation{
		Params:        snap.Params,
		Seed:          snap.Seed,
		Grid:          snap.Grid,
		Graph:         snap.Graph,
		Market:        snap.Market,
		Towns:         make(map[uint64]*world.Town, len(snap.Towns)),
		Industries:    make(map[uint64]*world.Industry, len(snap.Industries)),
		Stations:      make(map[uint64]*world.Station, len(snap.Stations)),
		Companies:     make(map[uint64]*company.Company, len(snap.Companies)),
		Vehicles:      make(map[uint64]*vehicle.Vehicle, len(snap.Vehicles)),
		Tick:          snap.Tick,
		nextStationID: snap.NextStationID,
		nextVehicleID: snap.NextVehicleID,
		nextRouteID:   snap.NextRouteID,
		rng:           root.Fork(1),
		logger:        logger,
		eventLog:      snap.Events,
	}
	s.Finder = pathfind.NewFinder(s.Graph, snap.Params.PathBudget)

	for _, t := range snap.Towns {
		s.Towns[t.ID] = t
	}
	for _, in := range snap.Industries {
		if in.Stock == nil {
			in.Stock = make(map[world.CargoType]int)
		}
		if in.Waste == nil {
			in.Waste = make(map[world.CargoType]int)
		}
		s.Industries[in.ID] = in
	}
	for _, st := range snap.Stations {
		if st.Inventory == nil {
			st.Inventory = make(map[world.CargoType]int)
		}
		s.Stations[st.ID] = st
	}
	for _, c := range snap.Companies {
		s.Companies[c.ID] = c
	}
	for _, v := range snap.Vehicles {
		s.Vehicles[v.ID] = v
	}
	return s, nil
}

package engine

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/talgya/railworld/internal/company"
	"github.com/talgya/railworld/internal/economy"
	"github.com/talgya/railworld/internal/vehicle"
	"github.com/talgya/railworld/internal/world"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// flatWorld builds a hand-placed world on an all-grass grid: an oil rig
// and a refinery eight tiles apart, plus one town in the corner.
func flatWorld() *world.GenResult {
	g := world.NewGrid(16, 16)
	rig := world.NewIndustry(1, world.IndustryOilRig, g.NodeAt(1, 1), 10, 400)
	refinery := world.NewIndustry(2, world.IndustryRefinery, g.NodeAt(9, 1), 10, 400)
	g.Tile(rig.Node).Content = world.ContentIndustry
	g.Tile(refinery.Node).Content = world.ContentIndustry

	town := &world.Town{ID: 1, Name: "Springfield", Node: g.NodeAt(13, 13), Population: 2000, GrowthRate: 1}
	g.Tile(town.Node).Content = world.ContentTown

	return &world.GenResult{
		Grid:       g,
		Towns:      []*world.Town{town},
		Industries: []*world.Industry{rig, refinery},
	}
}

func testParams() Params {
	p := DefaultParams()
	p.BreakdownFactor = 0 // keep scenarios deterministic without draws
	return p
}

func newTestSim(t *testing.T) *Simulation {
	t.Helper()
	return NewSimulation(testParams(), economy.DefaultConfig(), flatWorld(), 7, testLogger())
}

// setupLine issues the standard test commands: two rail-free road
// stations bracketing the oil chain, a link, a truck, and an oil route.
func setupLine(t *testing.T, s *Simulation, c *company.Company) *TickDelta {
	t.Helper()
	stA := s.Grid.NodeAt(2, 1) // next to the oil rig
	stB := s.Grid.NodeAt(8, 1) // next to the refinery
	d := s.Step([]Command{
		{ID: 1, Company: c.ID, Type: CmdBuildStation, Node: stA, Kind: world.StationRoad},
		{ID: 2, Company: c.ID, Type: CmdBuildStation, Node: stB, Kind: world.StationRoad},
		{ID: 3, Company: c.ID, Type: CmdBuildTrack, From: stA, To: stB, Class: world.ClassRoad},
		{ID: 4, Company: c.ID, Type: CmdPurchaseVehicle, Model: vehicle.ModelLargeTruck, Station: 1},
		{ID: 5, Company: c.ID, Type: CmdAssignRoute, Vehicle: 1, Stations: []uint64{1, 2}, Cargo: world.CargoOil},
	})
	for i, r := range d.Commands {
		if !r.OK {
			t.Fatalf("setup command %d rejected: %s", i+1, r.Reason)
		}
	}
	return d
}

func TestFreightChain(t *testing.T) {
	s := newTestSim(t)
	c := s.AddCompany("Test Haulage", 1_000_000, nil)
	setupLine(t, s, c)

	for i := 0; i < 200; i++ {
		s.Step(nil)
	}

	v := s.Vehicles[1]
	if v.Deliveries < 2 {
		t.Fatalf("truck made %d deliveries in 200 ticks, want at least 2", v.Deliveries)
	}
	refinery := s.Industries[2]
	if refinery.Stock[world.CargoGoods] == 0 && s.Stations[2].Inventory[world.CargoGoods] == 0 {
		t.Fatal("refinery never produced goods from delivered oil")
	}
	if r := c.Routes[0]; r.Profit <= 0 {
		t.Fatalf("route profit %d, want positive", r.Profit)
	}
}

func TestDeliveryConservation(t *testing.T) {
	s := newTestSim(t)
	c := s.AddCompany("Test Haulage", 1_000_000, nil)
	setupLine(t, s, c)

	// The refinery is nearly full; only the remaining room may be
	// delivered, the rest stays with the carrier.
	refinery := s.Industries[2]
	refinery.Stock[world.CargoOil] = 395
	before := refinery.Stock[world.CargoOil]

	delivered := s.deliverCargo(s.Stations[2], world.CargoOil, 60)
	if delivered != 5 {
		t.Fatalf("delivered %d into 5 units of room, want 5", delivered)
	}
	if refinery.Stock[world.CargoOil] != before+delivered {
		t.Fatalf("stock grew by %d, want exactly the delivered amount %d",
			refinery.Stock[world.CargoOil]-before, delivered)
	}
}

func TestCommandRejection(t *testing.T) {
	s := newTestSim(t)
	poor := s.AddCompany("Shoestring", 1_000, nil)

	d := s.Step([]Command{
		{ID: 1, Company: poor.ID, Type: CmdBuildStation, Node: s.Grid.NodeAt(3, 3), Kind: world.StationRail},
		{ID: 2, Company: 99, Type: CmdBuildStation, Node: s.Grid.NodeAt(3, 3), Kind: world.StationRail},
		{ID: 3, Company: poor.ID, Type: CommandType("teleport")},
		{ID: 4, Company: poor.ID, Type: CmdAssignRoute, Vehicle: 1, Stations: []uint64{1}},
	})
	for i, r := range d.Commands {
		if r.OK {
			t.Fatalf("command %d accepted, want rejection", i+1)
		}
	}
	if poor.Cash != 1_000 {
		t.Fatalf("rejected commands changed cash to %d", poor.Cash)
	}
	if len(s.Stations) != 0 {
		t.Fatal("rejected commands created entities")
	}
}

func TestTrackValidation(t *testing.T) {
	s := newTestSim(t)
	c := s.AddCompany("Test", 1_000_000, nil)
	water := s.Grid.NodeAt(5, 5)
	s.Grid.Tile(water).Terrain = world.TerrainWater

	d := s.Step([]Command{
		{ID: 1, Company: c.ID, Type: CmdBuildTrack, From: s.Grid.NodeAt(4, 5), To: water, Class: world.ClassTrain},
		{ID: 2, Company: c.ID, Type: CmdBuildTrack, From: water, To: water, Class: world.ClassShip},
		{ID: 3, Company: c.ID, Type: CmdBuildStation, Node: water, Kind: world.StationRoad},
	})
	for i, r := range d.Commands {
		if r.OK {
			t.Fatalf("command %d accepted, want rejection", i+1)
		}
	}
}

func TestProductionThrottledByScarcestInput(t *testing.T) {
	g := world.NewGrid(8, 8)
	mill := world.NewIndustry(1, world.IndustrySteelMill, g.NodeAt(4, 4), 10, 400)
	mill.Stock[world.CargoCoal] = 100
	mill.Stock[world.CargoIronOre] = 30
	gen := &world.GenResult{Grid: g, Industries: []*world.Industry{mill}}
	s := NewSimulation(testParams(), economy.DefaultConfig(), gen, 7, testLogger())

	for i := 0; i < 3; i++ {
		s.Step(nil)
	}
	if mill.Stock[world.CargoSteel] != 30 {
		t.Fatalf("steel stock %d after 3 ticks, want 30", mill.Stock[world.CargoSteel])
	}
	if mill.Stock[world.CargoIronOre] != 0 || mill.Stock[world.CargoCoal] != 70 {
		t.Fatalf("inputs coal=%d ore=%d, want 70/0", mill.Stock[world.CargoCoal], mill.Stock[world.CargoIronOre])
	}

	// Ore exhausted: production stops, coal is not consumed.
	s.Step(nil)
	if mill.Stock[world.CargoSteel] != 30 || mill.Stock[world.CargoCoal] != 70 {
		t.Fatalf("starved mill kept running: steel=%d coal=%d",
			mill.Stock[world.CargoSteel], mill.Stock[world.CargoCoal])
	}
}

func TestMultiOutputConsumesInputsOnce(t *testing.T) {
	g := world.NewGrid(8, 8)
	mill := world.NewIndustry(1, world.IndustrySteelMill, g.NodeAt(4, 4), 10, 400)
	mill.Production[world.CargoGoods] = 10 // second output line off the same inputs
	mill.Stock[world.CargoCoal] = 50
	mill.Stock[world.CargoIronOre] = 50
	gen := &world.GenResult{Grid: g, Industries: []*world.Industry{mill}}
	s := NewSimulation(testParams(), economy.DefaultConfig(), gen, 7, testLogger())

	s.Step(nil)

	if mill.Stock[world.CargoCoal] != 40 || mill.Stock[world.CargoIronOre] != 40 {
		t.Fatalf("one tick consumed coal=%d ore=%d, want 10 of each once",
			50-mill.Stock[world.CargoCoal], 50-mill.Stock[world.CargoIronOre])
	}
	if mill.Stock[world.CargoSteel] != 10 || mill.Stock[world.CargoGoods] != 10 {
		t.Fatalf("outputs steel=%d goods=%d, want 10 each",
			mill.Stock[world.CargoSteel], mill.Stock[world.CargoGoods])
	}
}

func TestBreakdownAndRepair(t *testing.T) {
	s := NewSimulation(DefaultParams(), economy.DefaultConfig(), flatWorld(), 7, testLogger())
	s.Params.BreakdownFactor = 1 // (1 - reliability) becomes the failure chance
	c := s.AddCompany("Test Haulage", 1_000_000, nil)
	setupLine(t, s, c)
	v := s.Vehicles[1]
	v.Reliability = 0 // certain failure on the first moving tick

	broke := false
	for i := 0; i < 50 && !broke; i++ {
		s.Step(nil)
		broke = v.State == vehicle.StateBreakdown
	}
	if !broke {
		t.Fatal("unreliable vehicle never broke down")
	}
	if v.TripBreakdowns == 0 {
		t.Fatal("breakdown not counted against the trip")
	}

	v.Reliability = 1 // repaired properly this time
	for i := 0; i < s.Params.RepairTicks+1; i++ {
		s.Step(nil)
	}
	if v.State == vehicle.StateBreakdown {
		t.Fatal("vehicle still broken after repair time")
	}
}

func TestBankruptcy(t *testing.T) {
	s := newTestSim(t)
	c := s.AddCompany("Doomed Freight", 50, nil)
	v := vehicle.New(1, c.ID, vehicle.ModelBus, s.Grid.NodeAt(3, 3))
	s.Vehicles[1] = v
	c.Vehicles = append(c.Vehicles, 1)

	for i := uint64(0); i <= s.Params.RunningPeriod; i++ {
		s.Step(nil)
	}
	if !c.Bankrupt {
		t.Fatalf("company with cash %d not bankrupt after running costs", c.Cash)
	}
	if v.State != vehicle.StateScrapped {
		t.Fatal("bankrupt company's vehicle not scrapped")
	}

	// A bankrupt company can no longer act.
	d := s.Step([]Command{{ID: 1, Company: c.ID, Type: CmdBuildStation, Node: s.Grid.NodeAt(4, 4), Kind: world.StationRoad}})
	if d.Commands[0].OK {
		t.Fatal("bankrupt company's command accepted")
	}
}

func TestSellVehicleReleasesPlatform(t *testing.T) {
	s := newTestSim(t)
	c := s.AddCompany("Test Haulage", 1_000_000, nil)
	setupLine(t, s, c)
	s.Stations[1].Platforms = 1

	v := s.Vehicles[1]
	for i := 0; i < 20 && v.State != vehicle.StateLoading; i++ {
		s.Step(nil)
	}
	if v.State != vehicle.StateLoading {
		t.Fatalf("truck never reached the platform, state %d", v.State)
	}

	// Selling a dwelling vehicle must give its platform slot back.
	d := s.Step([]Command{{ID: 10, Company: c.ID, Type: CmdSellVehicle, Vehicle: 1}})
	if !d.Commands[0].OK {
		t.Fatalf("sell rejected: %s", d.Commands[0].Reason)
	}
	if got := s.Stations[1].Dwelling; got != 0 {
		t.Fatalf("sold vehicle left %d platform slots occupied", got)
	}

	// The single platform must be usable by a replacement.
	d = s.Step([]Command{
		{ID: 11, Company: c.ID, Type: CmdPurchaseVehicle, Model: vehicle.ModelLargeTruck, Station: 1},
		{ID: 12, Company: c.ID, Type: CmdAssignRoute, Vehicle: 2, Stations: []uint64{1, 2}, Cargo: world.CargoOil},
	})
	for i, r := range d.Commands {
		if !r.OK {
			t.Fatalf("replacement command %d rejected: %s", i+1, r.Reason)
		}
	}
	for i := 0; i < 100; i++ {
		s.Step(nil)
	}
	if s.Vehicles[2].Deliveries == 0 {
		t.Fatal("replacement truck never delivered; platform still held by the sold vehicle")
	}
}

func TestReassignReleasesPlatform(t *testing.T) {
	s := newTestSim(t)
	c := s.AddCompany("Test Haulage", 1_000_000, nil)
	setupLine(t, s, c)

	v := s.Vehicles[1]
	for i := 0; i < 20 && v.State != vehicle.StateLoading; i++ {
		s.Step(nil)
	}
	if v.State != vehicle.StateLoading {
		t.Fatalf("truck never reached the platform, state %d", v.State)
	}

	d := s.Step([]Command{{ID: 10, Company: c.ID, Type: CmdAssignRoute, Vehicle: 1, Stations: []uint64{2, 1}, Cargo: world.CargoOil}})
	if !d.Commands[0].OK {
		t.Fatalf("reassign rejected: %s", d.Commands[0].Reason)
	}
	if got := s.Stations[1].Dwelling; got != 0 {
		t.Fatalf("reassigned vehicle left %d platform slots occupied", got)
	}
	if v.State == vehicle.StateLoading || v.State == vehicle.StateUnloading {
		t.Fatalf("reassigned vehicle still dwelling, state %d", v.State)
	}
}

func TestDeterministicReplay(t *testing.T) {
	build := func() *Engine {
		gen := world.Generate(world.SmallTestConfig())
		sim := NewSimulation(DefaultParams(), economy.DefaultConfig(), gen, 42, testLogger())
		sim.AddCompany("Alpha", 1_200_000, &company.AIParams{
			Strategy: company.StrategyBalanced, Difficulty: company.DifficultyHard,
		})
		sim.AddCompany("Beta", 800_000, &company.AIParams{
			Strategy: company.StrategyAggressive, Difficulty: company.DifficultyMedium,
		})
		return New(sim, testLogger())
	}

	e1, e2 := build(), build()
	for i := 0; i < 300; i++ {
		d1 := e1.StepOnce(nil)
		d2 := e2.StepOnce(nil)
		if d1.Digest != d2.Digest {
			t.Fatalf("digests diverged at tick %d", i+1)
		}
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := newTestSim(t)
	c := s.AddCompany("Test Haulage", 1_000_000, nil)
	setupLine(t, s, c)
	for i := 0; i < 50; i++ {
		s.Step(nil)
	}

	raw, err := json.Marshal(s.Export(50))
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	restored, err := Import(&snap, testLogger())
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	if restored.Tick != s.Tick {
		t.Fatalf("tick %d after round-trip, want %d", restored.Tick, s.Tick)
	}
	if restored.Companies[c.ID].Cash != c.Cash {
		t.Fatalf("cash %d after round-trip, want %d", restored.Companies[c.ID].Cash, c.Cash)
	}
	if len(restored.Vehicles) != len(s.Vehicles) || len(restored.Stations) != len(s.Stations) {
		t.Fatal("entity counts differ after round-trip")
	}

	// With no entropy draws pending, both worlds must continue in
	// lockstep.
	for i := 0; i < 50; i++ {
		d1 := s.Step(nil)
		d2 := restored.Step(nil)
		_ = d1.Seal()
		_ = d2.Seal()
		if d1.Digest != d2.Digest {
			t.Fatalf("restored world diverged at tick %d", i+1)
		}
	}
}

func TestAIBuildsAndOperates(t *testing.T) {
	g := world.NewGrid(16, 16)
	farm := world.NewIndustry(1, world.IndustryFarm, g.NodeAt(2, 2), 10, 400)
	g.Tile(farm.Node).Content = world.ContentIndustry
	town := &world.Town{ID: 1, Name: "Riverside", Node: g.NodeAt(11, 2), Population: 3000, GrowthRate: 1}
	g.Tile(town.Node).Content = world.ContentTown
	gen := &world.GenResult{Grid: g, Towns: []*world.Town{town}, Industries: []*world.Industry{farm}}

	s := NewSimulation(testParams(), economy.DefaultConfig(), gen, 7, testLogger())
	ai := s.AddCompany("Grainline", 1_200_000, &company.AIParams{
		Strategy: company.StrategyBalanced, Difficulty: company.DifficultyHard,
	})

	for i := 0; i < 600; i++ {
		s.Step(nil)
	}

	if len(ai.Stations) < 2 {
		t.Fatalf("AI built %d stations, want 2", len(ai.Stations))
	}
	if s.Graph.EdgeCount() == 0 {
		t.Fatal("AI never laid a link")
	}
	if len(ai.Vehicles) == 0 {
		t.Fatal("AI never bought a vehicle")
	}
	if len(ai.Routes) == 0 {
		t.Fatal("AI never assigned a route")
	}
	if s.Vehicles[ai.Vehicles[0]].Deliveries == 0 {
		t.Fatal("AI vehicle never delivered")
	}
}

func TestSetPauseCommand(t *testing.T) {
	s := newTestSim(t)
	c := s.AddCompany("Test", 1_000_000, nil)
	e := New(s, testLogger())

	d := e.StepOnce([]Command{{ID: 1, Company: c.ID, Type: CmdSetPause, Paused: true}})
	if !d.Commands[0].OK {
		t.Fatalf("set_pause rejected: %s", d.Commands[0].Reason)
	}
	if !e.Paused() {
		t.Fatal("engine not paused after set_pause command")
	}

	e.StepOnce([]Command{{ID: 2, Company: c.ID, Type: CmdSetPause, Paused: false}})
	if e.Paused() {
		t.Fatal("engine still paused after resume command")
	}
}

func TestEngineCommandQueue(t *testing.T) {
	s := newTestSim(t)
	s.AddCompany("Test", 1_000_000, nil)
	e := New(s, testLogger())

	for i := 0; i < commandQueueSize; i++ {
		if err := e.Submit(Command{Company: 1, Type: CmdBuildStation}); err != nil {
			t.Fatalf("submit %d failed: %v", i, err)
		}
	}
	if err := e.Submit(Command{Company: 1}); err != ErrQueueFull {
		t.Fatalf("got %v on overflow, want ErrQueueFull", err)
	}
}

func TestDeltaDigestVerify(t *testing.T) {
	s := newTestSim(t)
	c := s.AddCompany("Test", 1_000_000, nil)
	d := setupLine(t, s, c)
	d.Seq = 1
	if err := d.Seal(); err != nil {
		t.Fatalf("seal: %v", err)
	}
	if ok, err := d.Verify(); err != nil || !ok {
		t.Fatalf("sealed delta failed verification: ok=%v err=%v", ok, err)
	}
	d.Companies[0].Cash++
	if ok, _ := d.Verify(); ok {
		t.Fatal("tampered delta passed verification")
	}
}

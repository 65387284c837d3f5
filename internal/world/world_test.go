package world

import "testing"

func TestGenerateDeterministic(t *testing.T) {
	cfg := SmallTestConfig()
	a := Generate(cfg)
	b := Generate(cfg)

	for i := range a.Grid.Tiles {
		if a.Grid.Tiles[i] != b.Grid.Tiles[i] {
			t.Fatalf("tile %d differs between runs", i)
		}
	}
	if len(a.Towns) != len(b.Towns) {
		t.Fatalf("town counts differ: %d vs %d", len(a.Towns), len(b.Towns))
	}
	for i := range a.Towns {
		if a.Towns[i].Node != b.Towns[i].Node || a.Towns[i].Population != b.Towns[i].Population {
			t.Fatalf("town %d differs between runs", i)
		}
	}
	for i := range a.Industries {
		if a.Industries[i].Node != b.Industries[i].Node || a.Industries[i].Kind != b.Industries[i].Kind {
			t.Fatalf("industry %d differs between runs", i)
		}
	}
}

func TestGenerateSeedChangesWorld(t *testing.T) {
	cfg := SmallTestConfig()
	a := Generate(cfg)
	cfg.Seed++
	b := Generate(cfg)

	same := true
	for i := range a.Grid.Tiles {
		if a.Grid.Tiles[i].Terrain != b.Grid.Tiles[i].Terrain {
			same = false
			break
		}
	}
	if same {
		t.Fatal("different seeds produced identical terrain")
	}
}

func TestNodeAddressing(t *testing.T) {
	g := NewGrid(8, 4)
	if n := g.NodeAt(3, 2); n != 19 {
		t.Fatalf("NodeAt(3,2) = %d, want 19", n)
	}
	x, y := g.Coords(19)
	if x != 3 || y != 2 {
		t.Fatalf("Coords(19) = (%d,%d), want (3,2)", x, y)
	}
	if g.NodeAt(8, 0) != -1 || g.NodeAt(0, 4) != -1 || g.NodeAt(-1, 0) != -1 {
		t.Fatal("out-of-bounds coordinates must map to -1")
	}
	if g.Tile(NodeID(len(g.Tiles))) != nil {
		t.Fatal("out-of-range tile lookup must return nil")
	}
}

func TestStationBackPressure(t *testing.T) {
	st := &Station{Inventory: make(map[CargoType]int), Capacity: 100}

	if got := st.Accept(CargoCoal, 80); got != 80 {
		t.Fatalf("accepted %d, want 80", got)
	}
	if got := st.Accept(CargoCoal, 50); got != 20 {
		t.Fatalf("accepted %d over cap, want 20", got)
	}
	if got := st.Accept(CargoCoal, 10); got != 0 {
		t.Fatalf("accepted %d at cap, want 0", got)
	}
	// Per-cargo cap: other cargo still fits.
	if got := st.Accept(CargoWood, 30); got != 30 {
		t.Fatalf("accepted %d wood, want 30", got)
	}

	if got := st.Take(CargoCoal, 150); got != 100 {
		t.Fatalf("took %d, want 100", got)
	}
	if st.TotalWaiting() != 30 {
		t.Fatalf("waiting %d, want 30", st.TotalWaiting())
	}
}

func TestIndustryChainRates(t *testing.T) {
	prod, cons := IndustryRates(IndustrySteelMill, 10)
	if prod[CargoSteel] != 10 {
		t.Fatalf("steel mill produces %d steel, want 10", prod[CargoSteel])
	}
	if cons[CargoCoal] != 10 || cons[CargoIronOre] != 10 {
		t.Fatalf("steel mill consumes %d coal %d ore, want 10 each", cons[CargoCoal], cons[CargoIronOre])
	}

	prod, cons = IndustryRates(IndustryCoalMine, 10)
	if prod[CargoCoal] != 10 || len(cons) != 0 {
		t.Fatal("coal mine must produce coal and consume nothing")
	}

	prod, cons = IndustryRates(IndustryRefinery, 5)
	if prod[CargoGoods] != 5 || cons[CargoOil] != 5 {
		t.Fatal("refinery must convert oil to goods")
	}
}

func TestTownDemand(t *testing.T) {
	town := &Town{Population: 2000}
	if got := town.Demand(CargoFood); got != 50 {
		t.Fatalf("food demand %d, want 50", got)
	}
	if got := town.Demand(CargoGoods); got != 60 {
		t.Fatalf("goods demand %d, want 60", got)
	}
	if got := town.Demand(CargoCoal); got != 0 {
		t.Fatalf("coal demand %d, want 0", got)
	}
	if got := town.PassengerSupply(); got != 10 {
		t.Fatalf("passenger supply %d, want 10", got)
	}
}

func TestGraphIdempotentEdges(t *testing.T) {
	g := NewGraph()
	g.AddLink(1, 2, 1.5, ClassTrain)
	v := g.Version
	g.AddLink(1, 2, 1.5, ClassTrain)
	if g.Version != v {
		t.Fatal("duplicate link bumped the graph version")
	}
	if g.EdgeCount() != 2 {
		t.Fatalf("edge count %d, want 2", g.EdgeCount())
	}
	// Same nodes, different class, is a distinct link.
	g.AddLink(1, 2, 1.5, ClassRoad)
	if g.EdgeCount() != 4 {
		t.Fatalf("edge count %d after road link, want 4", g.EdgeCount())
	}
}

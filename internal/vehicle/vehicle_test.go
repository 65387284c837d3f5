package vehicle

import (
	"testing"

	"github.com/talgya/railworld/internal/world"
)

func TestProfilesCoverAllClasses(t *testing.T) {
	seen := map[world.VehicleClass]bool{}
	for m := Model(0); m < ModelCount; m++ {
		p := ProfileFor(m)
		if p.Capacity <= 0 || p.Speed <= 0 || p.Cost <= 0 {
			t.Fatalf("%s has a non-positive stat", p.Name)
		}
		if p.Reliability <= 0 || p.Reliability > 1 {
			t.Fatalf("%s reliability %.2f out of range", p.Name, p.Reliability)
		}
		seen[p.Class] = true
	}
	for _, c := range []world.VehicleClass{world.ClassTrain, world.ClassRoad, world.ClassShip, world.ClassAircraft} {
		if !seen[c] {
			t.Fatalf("no model for class %s", world.ClassName(c))
		}
	}
}

func TestDepreciation(t *testing.T) {
	v := New(1, 1, ModelDieselTrain, 0)
	cost := v.Profile().Cost
	if v.CurrentValue() != cost {
		t.Fatalf("new vehicle value %d, want purchase price %d", v.CurrentValue(), cost)
	}
	v.Age = 100_000
	aged := v.CurrentValue()
	if aged >= cost {
		t.Fatalf("aged value %d not below purchase price %d", aged, cost)
	}
	// Resale never drops below 20% of purchase price.
	v.Age = 10_000_000
	if floor := v.CurrentValue(); floor < cost/5-1 {
		t.Fatalf("value %d fell below the floor", floor)
	}
}

func TestRunningCostGrowsWithWear(t *testing.T) {
	v := New(1, 1, ModelBus, 0)
	fresh := v.RunningCost()
	v.Age = 50_000
	v.Reliability = 0.5
	if worn := v.RunningCost(); worn <= fresh {
		t.Fatalf("worn cost %d not above fresh cost %d", worn, fresh)
	}
}

func TestRouteCycling(t *testing.T) {
	v := New(1, 1, ModelBus, 0)
	if v.NextStation() != 0 {
		t.Fatal("routeless vehicle must report station 0")
	}
	v.Route = []uint64{7, 9, 11}
	if v.NextStation() != 7 {
		t.Fatalf("next station %d, want 7", v.NextStation())
	}
	v.AdvanceRoute()
	v.AdvanceRoute()
	if v.NextStation() != 11 {
		t.Fatalf("next station %d, want 11", v.NextStation())
	}
	v.AdvanceRoute()
	if v.NextStation() != 7 {
		t.Fatalf("route did not wrap, got %d", v.NextStation())
	}
}

func TestOnTimeRatio(t *testing.T) {
	v := New(1, 1, ModelBus, 0)
	if v.OnTimeRatio() != 1 {
		t.Fatal("vehicle with no deliveries must count as on time")
	}
	v.Deliveries = 4
	v.OnTime = 3
	if v.OnTimeRatio() != 0.75 {
		t.Fatalf("ratio %.2f, want 0.75", v.OnTimeRatio())
	}
}

// Industries — cargo producers and consumers forming production chains.
package world

// IndustryKind enumerates the industry types and, implicitly, the
// production chain (mine → mill → factory).
type IndustryKind uint8

const (
	IndustryCoalMine IndustryKind = iota
	IndustryIronOreMine
	IndustrySteelMill
	IndustryFactory
	IndustryFarm
	IndustrySawmill
	IndustryOilRig
	IndustryRefinery

	IndustryKindCount = 8
)

var industryNames = [IndustryKindCount]string{
	"Coal Mine", "Iron Ore Mine", "Steel Mill", "Factory",
	"Farm", "Sawmill", "Oil Rig", "Refinery",
}

// IndustryName returns a display name for an industry kind.
func IndustryName(k IndustryKind) string {
	if int(k) < len(industryNames) {
		return industryNames[k]
	}
	return "Unknown"
}

// RateTable maps cargo type to units per tick.
type RateTable map[CargoType]int

// Industry produces output cargo from input cargo each tick.
type Industry struct {
	ID   uint64       `json:"id"`
	Kind IndustryKind `json:"kind"`
	Node NodeID       `json:"node"`

	Production  RateTable `json:"production"`  // output cargo → units/tick
	Consumption RateTable `json:"consumption"` // input cargo → units/tick

	// Stock holds both input cargo awaiting processing and output cargo
	// awaiting transfer to a station. Each cargo type caps at StockLimit;
	// overflow is dropped and accumulated in Waste.
	Stock      map[CargoType]int `json:"stock"`
	StockLimit int               `json:"stock_limit"`
	Waste      map[CargoType]int `json:"waste"`
}

// IndustryRates returns the production and consumption tables for a kind.
// Rates follow the chain: raw producers have no inputs, processors convert
// inputs one-to-one.
func IndustryRates(kind IndustryKind, rate int) (prod, cons RateTable) {
	switch kind {
	case IndustryCoalMine:
		return RateTable{CargoCoal: rate}, RateTable{}
	case IndustryIronOreMine:
		return RateTable{CargoIronOre: rate}, RateTable{}
	case IndustrySteelMill:
		return RateTable{CargoSteel: rate}, RateTable{CargoCoal: rate, CargoIronOre: rate}
	case IndustryFactory:
		return RateTable{CargoGoods: rate}, RateTable{CargoSteel: rate}
	case IndustryFarm:
		return RateTable{CargoFood: rate}, RateTable{}
	case IndustrySawmill:
		return RateTable{CargoWood: rate}, RateTable{}
	case IndustryOilRig:
		return RateTable{CargoOil: rate}, RateTable{}
	case IndustryRefinery:
		return RateTable{CargoGoods: rate}, RateTable{CargoOil: rate}
	}
	return RateTable{}, RateTable{}
}

// NewIndustry creates an industry of the given kind at a node.
func NewIndustry(id uint64, kind IndustryKind, node NodeID, rate, stockLimit int) *Industry {
	prod, cons := IndustryRates(kind, rate)
	return &Industry{
		ID:          id,
		Kind:        kind,
		Node:        node,
		Production:  prod,
		Consumption: cons,
		Stock:       make(map[CargoType]int),
		Waste:       make(map[CargoType]int),
		StockLimit:  stockLimit,
	}
}

// Produces reports whether the industry outputs the given cargo type.
func (in *Industry) Produces(c CargoType) bool {
	return in.Production[c] > 0
}

// Consumes reports whether the industry takes the given cargo type as input.
func (in *Industry) Consumes(c CargoType) bool {
	return in.Consumption[c] > 0
}

// Cargo types and their base rates.
package world

// CargoType enumerates everything a vehicle can carry.
type CargoType uint8

const (
	CargoPassengers CargoType = iota
	CargoMail
	CargoCoal
	CargoIronOre
	CargoSteel
	CargoWood
	CargoOil
	CargoGoods
	CargoFood

	CargoTypeCount = 9
)

var cargoNames = [CargoTypeCount]string{
	"Passengers", "Mail", "Coal", "Iron Ore", "Steel",
	"Wood", "Oil", "Goods", "Food",
}

// CargoName returns a display name for a cargo type.
func CargoName(c CargoType) string {
	if int(c) < len(cargoNames) {
		return cargoNames[c]
	}
	return "Unknown"
}

// BaseRates holds the per-unit base payment rate for each cargo type.
// These are the price anchors the market oscillates around.
var BaseRates = [CargoTypeCount]float64{
	CargoPassengers: 5,
	CargoMail:       8,
	CargoCoal:       3,
	CargoIronOre:    4,
	CargoSteel:      12,
	CargoWood:       6,
	CargoOil:        8,
	CargoGoods:      15,
	CargoFood:       7,
}

// AllCargoTypes lists every cargo type in id order. Iterating this slice
// instead of a map keeps per-tick processing order stable.
var AllCargoTypes = [CargoTypeCount]CargoType{
	CargoPassengers, CargoMail, CargoCoal, CargoIronOre, CargoSteel,
	CargoWood, CargoOil, CargoGoods, CargoFood,
}

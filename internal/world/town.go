// Towns — population centers that demand finished goods and supply
// passengers and mail.
package world

// Town is a population center on the grid.
type Town struct {
	ID         uint64  `json:"id"`
	Name       string  `json:"name"`
	Node       NodeID  `json:"node"`
	Population uint32  `json:"population"`
	GrowthRate float64 `json:"growth_rate"` // percent per growth period
}

// Demand returns the town's per-tick demand for a cargo type, derived from
// population. Towns want food, goods, and mail; everything else is zero.
func (t *Town) Demand(c CargoType) int {
	per1000 := float64(t.Population) / 1000.0
	switch c {
	case CargoFood:
		return int(per1000 * 25)
	case CargoGoods:
		return int(per1000 * 30)
	case CargoMail:
		return int(per1000 * 20)
	case CargoPassengers:
		return int(per1000 * 50)
	}
	return 0
}

// PassengerSupply returns how many passengers the town generates per
// supply period.
func (t *Town) PassengerSupply() int {
	return int(t.Population / 200)
}

// Grow advances the town's population by one growth period.
func (t *Town) Grow() {
	t.Population = uint32(float64(t.Population) * (1.0 + t.GrowthRate/100.0))
}

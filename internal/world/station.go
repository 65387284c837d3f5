// Stations — cargo transfer points between industries, towns, and vehicles.
package world

// StationKind matches a station to the vehicle class it serves.
type StationKind uint8

const (
	StationRail StationKind = iota
	StationRoad
	StationHarbor
	StationAirport
)

var stationKindNames = []string{"Rail", "Road", "Harbor", "Airport"}

// StationKindName returns a display name for a station kind.
func StationKindName(k StationKind) string {
	if int(k) < len(stationKindNames) {
		return stationKindNames[k]
	}
	return "Unknown"
}

// ServesClass reports whether this station kind handles the vehicle class.
func (k StationKind) ServesClass(c VehicleClass) bool {
	switch k {
	case StationRail:
		return c == ClassTrain
	case StationRoad:
		return c == ClassRoad
	case StationHarbor:
		return c == ClassShip
	case StationAirport:
		return c == ClassAircraft
	}
	return false
}

// Station holds cargo awaiting pickup and bounds concurrent loading.
type Station struct {
	ID    uint64      `json:"id"`
	Name  string      `json:"name"`
	Node  NodeID      `json:"node"`
	Owner uint64      `json:"owner"` // company id
	Kind  StationKind `json:"kind"`

	// Inventory maps cargo type to waiting quantity. Each cargo type is
	// capped at Capacity; arriving cargo beyond the cap is refused.
	Inventory map[CargoType]int `json:"inventory"`
	Capacity  int               `json:"capacity"`

	// Platforms bounds how many vehicles may load/unload at once.
	Platforms int `json:"platforms"`
	Dwelling  int `json:"dwelling"` // vehicles currently at a platform

	// Catchment is the radius (in tiles) within which industries and towns
	// exchange cargo with this station.
	Catchment int `json:"catchment"`
}

// Accept adds cargo to the station inventory, returning the quantity
// actually stored. The remainder is back-pressure for the caller.
func (s *Station) Accept(c CargoType, qty int) int {
	if qty <= 0 {
		return 0
	}
	have := s.Inventory[c]
	room := s.Capacity - have
	if room <= 0 {
		return 0
	}
	if qty > room {
		qty = room
	}
	s.Inventory[c] = have + qty
	return qty
}

// Take removes up to qty units of cargo from the inventory and returns the
// quantity removed.
func (s *Station) Take(c CargoType, qty int) int {
	if qty <= 0 {
		return 0
	}
	have := s.Inventory[c]
	if have == 0 {
		return 0
	}
	if qty > have {
		qty = have
	}
	s.Inventory[c] = have - qty
	return qty
}

// TotalWaiting returns the total units of cargo waiting at the station.
func (s *Station) TotalWaiting() int {
	n := 0
	for _, q := range s.Inventory {
		n += q
	}
	return n
}

// Track graph — per-class directed edges over grid nodes.
package world

// VehicleClass restricts which edges a vehicle may traverse.
type VehicleClass uint8

const (
	ClassTrain VehicleClass = iota
	ClassRoad
	ClassShip
	ClassAircraft
)

var classNames = []string{"Train", "Road", "Ship", "Aircraft"}

// ClassName returns a display name for a vehicle class.
func ClassName(c VehicleClass) string {
	if int(c) < len(classNames) {
		return classNames[c]
	}
	return "Unknown"
}

// Edge is one traversable directed segment.
type Edge struct {
	From  NodeID       `json:"from"`
	To    NodeID       `json:"to"`
	Cost  float64      `json:"cost"` // distance normalized by class speed factor
	Class VehicleClass `json:"class"`
}

// Graph holds the traversable infrastructure. Version increments on every
// mutation so cached routes can detect staleness.
type Graph struct {
	Adj     map[NodeID][]Edge `json:"adj"`
	Version uint64            `json:"version"`
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{Adj: make(map[NodeID][]Edge)}
}

// AddEdge inserts a single directed edge. Duplicate (from, to, class)
// edges are ignored so repeated build commands are idempotent.
func (g *Graph) AddEdge(from, to NodeID, cost float64, class VehicleClass) {
	for _, e := range g.Adj[from] {
		if e.To == to && e.Class == class {
			return
		}
	}
	g.Adj[from] = append(g.Adj[from], Edge{From: from, To: to, Cost: cost, Class: class})
	g.Version++
}

// AddLink inserts edges in both directions. Track and road segments are
// always traversable both ways.
func (g *Graph) AddLink(a, b NodeID, cost float64, class VehicleClass) {
	g.AddEdge(a, b, cost, class)
	g.AddEdge(b, a, cost, class)
}

// Neighbors returns the outgoing edges of a node for one vehicle class.
func (g *Graph) Neighbors(n NodeID, class VehicleClass) []Edge {
	all := g.Adj[n]
	out := make([]Edge, 0, len(all))
	for _, e := range all {
		if e.Class == class {
			out = append(out, e)
		}
	}
	return out
}

// HasLink reports whether a directed edge exists for the given class.
func (g *Graph) HasLink(from, to NodeID, class VehicleClass) bool {
	for _, e := range g.Adj[from] {
		if e.To == to && e.Class == class {
			return true
		}
	}
	return false
}

// EdgeCount returns the total number of directed edges.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, edges := range g.Adj {
		n += len(edges)
	}
	return n
}

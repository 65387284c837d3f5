// Package pathfind computes least-cost routes over the track graph.
// The search is a plain Dijkstra with deterministic tie-breaking: lower
// total cost wins, then fewer edges, then lower node id. Results are pure
// functions of (graph, class, endpoints); the cache is an optimization
// invalidated by the graph version counter.
package pathfind

import (
	"container/heap"
	"errors"
	"fmt"

	"github.com/talgya/railworld/internal/world"
)

// ErrNoRoute is returned when no path exists for the vehicle class under
// current infrastructure. It is a reportable condition, never fatal.
var ErrNoRoute = errors.New("no route found")

// ErrBudgetExceeded is returned when the search ran past its node-expansion
// budget for this tick. The caller retries on a later tick.
var ErrBudgetExceeded = errors.New("pathfinding budget exceeded")

// Path is an ordered sequence of edges from start to destination.
type Path struct {
	Edges []world.Edge `json:"edges"`
	Cost  float64      `json:"cost"`
}

// Distance returns the summed edge cost, which is distance normalized by
// class speed factor.
func (p *Path) Distance() float64 {
	return p.Cost
}

// Finder runs searches and caches results until the graph changes.
type Finder struct {
	graph *world.Graph

	// MaxExpansions bounds nodes expanded per search. Zero means unbounded.
	MaxExpansions int

	cache        map[cacheKey]*Path
	cacheVersion uint64
}

type cacheKey struct {
	class    world.VehicleClass
	from, to world.NodeID
}

// NewFinder creates a Finder over the given graph.
func NewFinder(g *world.Graph, maxExpansions int) *Finder {
	return &Finder{
		graph:         g,
		MaxExpansions: maxExpansions,
		cache:         make(map[cacheKey]*Path),
		cacheVersion:  g.Version,
	}
}

// Route returns the least-cost path from start to dest for the class.
func (f *Finder) Route(class world.VehicleClass, from, to world.NodeID) (*Path, error) {
	if f.cacheVersion != f.graph.Version {
		// Infrastructure changed — every cached route is suspect.
		f.cache = make(map[cacheKey]*Path)
		f.cacheVersion = f.graph.Version
	}

	key := cacheKey{class: class, from: from, to: to}
	if p, ok := f.cache[key]; ok {
		return p, nil
	}

	p, err := dijkstra(f.graph, class, from, to, f.MaxExpansions)
	if err != nil {
		return nil, err
	}
	f.cache[key] = p
	return p, nil
}

// item is a priority queue entry. hops and node break cost ties so the
// search result is independent of map iteration order.
type item struct {
	node world.NodeID
	cost float64
	hops int
}

type queue []item

func (q queue) Len() int { return len(q) }
func (q queue) Less(i, j int) bool {
	if q[i].cost != q[j].cost {
		return q[i].cost < q[j].cost
	}
	if q[i].hops != q[j].hops {
		return q[i].hops < q[j].hops
	}
	return q[i].node < q[j].node
}
func (q queue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *queue) Push(x any)   { *q = append(*q, x.(item)) }
func (q *queue) Pop() any {
	old := *q
	n := len(old)
	it := old[n-1]
	*q = old[:n-1]
	return it
}

type visit struct {
	cost float64
	hops int
	prev world.NodeID
	via  world.Edge
	done bool
}

func dijkstra(g *world.Graph, class world.VehicleClass, from, to world.NodeID, budget int) (*Path, error) {
	if from == to {
		return &Path{}, nil
	}

	best := map[world.NodeID]*visit{from: {prev: -1}}
	q := &queue{{node: from}}
	expanded := 0

	for q.Len() > 0 {
		cur := heap.Pop(q).(item)
		v := best[cur.node]
		if v.done {
			continue
		}
		v.done = true

		if cur.node == to {
			return buildPath(best, from, to), nil
		}

		expanded++
		if budget > 0 && expanded > budget {
			return nil, fmt.Errorf("%w: expanded %d nodes", ErrBudgetExceeded, expanded)
		}

		for _, e := range g.Neighbors(cur.node, class) {
			next := cur.cost + e.Cost
			nb, seen := best[e.To]
			if !seen {
				best[e.To] = &visit{cost: next, hops: cur.hops + 1, prev: cur.node, via: e}
				heap.Push(q, item{node: e.To, cost: next, hops: cur.hops + 1})
				continue
			}
			if nb.done {
				continue
			}
			// Relax, preferring lower cost, then fewer hops, then lower
			// predecessor id for full determinism.
			if next < nb.cost ||
				(next == nb.cost && cur.hops+1 < nb.hops) ||
				(next == nb.cost && cur.hops+1 == nb.hops && cur.node < nb.prev) {
				nb.cost = next
				nb.hops = cur.hops + 1
				nb.prev = cur.node
				nb.via = e
				heap.Push(q, item{node: e.To, cost: next, hops: cur.hops + 1})
			}
		}
	}

	return nil, fmt.Errorf("%w: %d -> %d (class %s)", ErrNoRoute, from, to, world.ClassName(class))
}

func buildPath(best map[world.NodeID]*visit, from, to world.NodeID) *Path {
	var rev []world.Edge
	for n := to; n != from; {
		v := best[n]
		rev = append(rev, v.via)
		n = v.prev
	}
	edges := make([]world.Edge, len(rev))
	for i := range rev {
		edges[i] = rev[len(rev)-1-i]
	}
	p := &Path{Edges: edges}
	for _, e := range edges {
		p.Cost += e.Cost
	}
	return p
}

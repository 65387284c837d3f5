// Package world provides the tile grid, terrain, the track graph, and the
// static entities (stations, industries, towns) the simulation runs over.
// Tiles are addressed by NodeID = y*Width + x.
package world

import "math"

// Terrain classifies a tile's ground type.
type Terrain uint8

const (
	TerrainGrass Terrain = iota
	TerrainWater
	TerrainMountain
	TerrainDesert
	TerrainForest
)

var terrainNames = []string{"Grass", "Water", "Mountain", "Desert", "Forest"}

// TerrainName returns a display name for a terrain type.
func TerrainName(t Terrain) string {
	if int(t) < len(terrainNames) {
		return terrainNames[t]
	}
	return "Unknown"
}

// Content marks what occupies a tile beyond bare terrain.
type Content uint8

const (
	ContentEmpty Content = iota
	ContentTrack
	ContentRoad
	ContentStation
	ContentIndustry
	ContentTown
)

// NodeID identifies a tile (and graph node) as y*Width + x.
type NodeID int

// Tile is a single cell of the world grid.
type Tile struct {
	Terrain   Terrain `json:"terrain"`
	Elevation float64 `json:"elevation"` // 0.0 (sea level) to 1.0 (peak)
	Content   Content `json:"content"`
}

// Grid is the world's tile map. Dimensions are fixed after generation;
// only tile content changes (construction).
type Grid struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Tiles  []Tile `json:"tiles"` // row-major, len = Width*Height
}

// NewGrid allocates an empty grass grid.
func NewGrid(width, height int) *Grid {
	return &Grid{
		Width:  width,
		Height: height,
		Tiles:  make([]Tile, width*height),
	}
}

// NodeAt returns the node id for tile coordinates, or -1 if out of bounds.
func (g *Grid) NodeAt(x, y int) NodeID {
	if x < 0 || y < 0 || x >= g.Width || y >= g.Height {
		return -1
	}
	return NodeID(y*g.Width + x)
}

// Coords returns the tile coordinates of a node id.
func (g *Grid) Coords(n NodeID) (x, y int) {
	return int(n) % g.Width, int(n) / g.Width
}

// Tile returns the tile at a node id, or nil if out of bounds.
func (g *Grid) Tile(n NodeID) *Tile {
	if n < 0 || int(n) >= len(g.Tiles) {
		return nil
	}
	return &g.Tiles[n]
}

// Distance returns the euclidean distance between two nodes in tile units.
func (g *Grid) Distance(a, b NodeID) float64 {
	ax, ay := g.Coords(a)
	bx, by := g.Coords(b)
	dx := float64(bx - ax)
	dy := float64(by - ay)
	return math.Sqrt(dx*dx + dy*dy)
}

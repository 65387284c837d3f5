// World generation using layered simplex noise.
// Elevation and moisture maps are derived from two independent noise
// generators, then terrain, towns, and industries are placed in a fixed
// scan order so identical seeds yield identical worlds.
package world

import (
	"fmt"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// GenConfig holds world generation parameters.
type GenConfig struct {
	Width        int     `yaml:"width"`
	Height       int     `yaml:"height"`
	Seed         int64   `yaml:"seed"`
	SeaLevel     float64 `yaml:"sea_level"`     // elevation below this is water
	MountainLvl  float64 `yaml:"mountain_lvl"`  // elevation above this is mountain
	Towns        int     `yaml:"towns"`         // target town count
	Industries   int     `yaml:"industries"`    // target industry count
	IndustryRate int     `yaml:"industry_rate"` // units produced per tick
	StockLimit   int     `yaml:"stock_limit"`   // industry stock cap per cargo
}

// DefaultGenConfig returns a reasonable starting configuration.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Width:        64,
		Height:       64,
		Seed:         42,
		SeaLevel:     0.28,
		MountainLvl:  0.75,
		Towns:        6,
		Industries:   10,
		IndustryRate: 10,
		StockLimit:   400,
	}
}

// SmallTestConfig returns a tiny world for tests.
func SmallTestConfig() GenConfig {
	cfg := DefaultGenConfig()
	cfg.Width = 16
	cfg.Height = 16
	cfg.Towns = 2
	cfg.Industries = 4
	return cfg
}

// GenResult bundles the generated world pieces.
type GenResult struct {
	Grid       *Grid
	Towns      []*Town
	Industries []*Industry
}

var townNames = []string{
	"Springfield", "Riverside", "Madison", "Georgetown", "Franklin",
	"Clinton", "Chester", "Marion", "Greenwood", "Fairview",
}

// Generate creates a complete world from the configuration. The same
// configuration always produces the same world.
func Generate(cfg GenConfig) *GenResult {
	elevNoise := opensimplex.NewNormalized(cfg.Seed)
	moistNoise := opensimplex.NewNormalized(cfg.Seed + 1)

	g := NewGrid(cfg.Width, cfg.Height)

	for y := 0; y < cfg.Height; y++ {
		for x := 0; x < cfg.Width; x++ {
			// Two octaves for broad shape plus local variation.
			fx, fy := float64(x)/18.0, float64(y)/18.0
			elev := 0.7*elevNoise.Eval2(fx, fy) + 0.3*elevNoise.Eval2(fx*3, fy*3)
			moist := moistNoise.Eval2(fx, fy)

			t := g.Tile(g.NodeAt(x, y))
			t.Elevation = elev
			switch {
			case elev < cfg.SeaLevel:
				t.Terrain = TerrainWater
			case elev > cfg.MountainLvl:
				t.Terrain = TerrainMountain
			case moist < 0.25:
				t.Terrain = TerrainDesert
			case moist > 0.65:
				t.Terrain = TerrainForest
			default:
				t.Terrain = TerrainGrass
			}
		}
	}

	rng := rand.New(rand.NewSource(cfg.Seed + 100))
	res := &GenResult{Grid: g}
	res.Towns = placeTowns(g, cfg, rng)
	res.Industries = placeIndustries(g, cfg, rng)
	return res
}

// placeTowns puts towns on habitable tiles. Candidate positions are drawn
// from the seeded rng; unsuitable draws are skipped, bounded by attempts.
func placeTowns(g *Grid, cfg GenConfig, rng *rand.Rand) []*Town {
	var towns []*Town
	attempts := cfg.Towns * 20
	for i := 0; i < attempts && len(towns) < cfg.Towns; i++ {
		x, y := rng.Intn(g.Width), rng.Intn(g.Height)
		n := g.NodeAt(x, y)
		tile := g.Tile(n)
		if tile.Content != ContentEmpty {
			continue
		}
		if tile.Terrain != TerrainGrass && tile.Terrain != TerrainForest {
			continue
		}
		id := uint64(len(towns) + 1)
		name := townNames[int(id-1)%len(townNames)]
		if int(id) > len(townNames) {
			name = fmt.Sprintf("%s %d", name, (int(id)-1)/len(townNames)+1)
		}
		towns = append(towns, &Town{
			ID:         id,
			Name:       name,
			Node:       n,
			Population: uint32(500 + rng.Intn(4500)),
			GrowthRate: 0.1 + rng.Float64()*1.9,
		})
		tile.Content = ContentTown
	}
	return towns
}

// placeIndustries distributes industry kinds round-robin so every chain has
// its raw producers before its processors.
func placeIndustries(g *Grid, cfg GenConfig, rng *rand.Rand) []*Industry {
	var industries []*Industry
	attempts := cfg.Industries * 20
	for i := 0; i < attempts && len(industries) < cfg.Industries; i++ {
		x, y := rng.Intn(g.Width), rng.Intn(g.Height)
		n := g.NodeAt(x, y)
		tile := g.Tile(n)
		if tile.Content != ContentEmpty {
			continue
		}
		kind := IndustryKind(len(industries) % IndustryKindCount)
		if !terrainSuits(kind, tile.Terrain) {
			continue
		}
		id := uint64(len(industries) + 1)
		industries = append(industries, NewIndustry(id, kind, n, cfg.IndustryRate, cfg.StockLimit))
		tile.Content = ContentIndustry
	}
	return industries
}

func terrainSuits(kind IndustryKind, t Terrain) bool {
	switch kind {
	case IndustryCoalMine, IndustryIronOreMine:
		return t == TerrainMountain || t == TerrainGrass
	case IndustryFarm:
		return t == TerrainGrass
	case IndustrySawmill:
		return t == TerrainForest || t == TerrainGrass
	case IndustryOilRig:
		return t == TerrainDesert || t == TerrainGrass
	default:
		return t == TerrainGrass || t == TerrainDesert
	}
}

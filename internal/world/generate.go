// Demo terrain generation using layered simplex noise. Produces a single
// continent with an ocean border so ships always have coastal water and the
// interior is rail-buildable. This is a fixture for the demo binary and
// tests; production worlds arrive from the surrounding game state.
package world

import (
	"math"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// GenConfig holds terrain generation parameters.
type GenConfig struct {
	Width       int     // Grid width in tiles
	Height      int     // Grid height in tiles
	Seed        int64   // Random seed (0 = random)
	SeaLevel    float64 // Elevation threshold for ocean (0.0–1.0)
	MountainLvl float64 // Elevation threshold for mountains (0.0–1.0)
}

// DefaultGenConfig returns a reasonable starting configuration.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Width:       256,
		Height:      256,
		Seed:        0,
		SeaLevel:    0.32,
		MountainLvl: 0.78,
	}
}

// SmallTestConfig returns a tiny world for rapid iteration.
func SmallTestConfig() GenConfig {
	return GenConfig{
		Width:       64,
		Height:      64,
		Seed:        42,
		SeaLevel:    0.30,
		MountainLvl: 0.80,
	}
}

// Generate creates a complete grid with terrain and derived shorelines.
func Generate(cfg GenConfig) *Grid {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}

	noise := opensimplex.NewNormalized(seed)
	g := NewGrid(cfg.Width, cfg.Height)

	cx := float64(cfg.Width) / 2
	cy := float64(cfg.Height) / 2
	maxDist := math.Min(cx, cy)

	for y := 0; y < cfg.Height; y++ {
		for x := 0; x < cfg.Width; x++ {
			elev := octaveNoise(noise, float64(x), float64(y), 4, 0.02, 0.5)

			// Continental shaping: push elevation down near the border so the
			// map is ringed by ocean.
			dx := (float64(x) - cx) / maxDist
			dy := (float64(y) - cy) / maxDist
			distFromCenter := math.Sqrt(dx*dx + dy*dy)
			falloff := 1.0 - math.Pow(distFromCenter, 3.0)
			if falloff < 0 {
				falloff = 0
			}
			elev *= falloff

			t := Tile{X: x, Y: y}
			switch {
			case elev < cfg.SeaLevel:
				g.SetTerrain(t, TerrainOcean)
			case elev > cfg.MountainLvl:
				g.SetTerrain(t, TerrainMountain)
			default:
				g.SetTerrain(t, TerrainPlains)
			}
		}
	}

	g.DeriveShores()
	return g
}

// octaveNoise samples multi-octave simplex noise normalized to [0, 1].
func octaveNoise(n opensimplex.Noise, x, y float64, octaves int, freq, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxValue := 0.0
	f := freq

	for i := 0; i < octaves; i++ {
		total += n.Eval2(x*f, y*f) * amplitude
		maxValue += amplitude
		amplitude *= persistence
		f *= 2
	}

	return total / maxValue
}

// Procedural airspace generation using layered simplex noise. Adapted from
// the teacher's world/generation.go, which generated elevation/rainfall/
// temperature fields to derive terrain; here the same octaveNoise machinery
// generates a congestion field (used by pilot's trader valuation) and an
// elevation field (used by Region.Climb), with the terrain/resource/river
// post-passes dropped since airspace has no analogous concept.
package hexspace

import (
	"math"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// GenConfig controls procedural airspace generation.
type GenConfig struct {
	Radius int   // grid radius
	Seed   int64 // 0 = random
}

// DefaultGenConfig returns a reasonable starting configuration.
func DefaultGenConfig() GenConfig {
	return GenConfig{Radius: 12, Seed: 0}
}

// Generate builds a Grid with a procedurally seeded congestion and elevation
// field per hex.
func Generate(cfg GenConfig) *Grid {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}

	congestionNoise := opensimplex.NewNormalized(seed)
	elevationNoise := opensimplex.NewNormalized(seed + 1)

	g := NewGrid(cfg.Radius)

	for q := -cfg.Radius; q <= cfg.Radius; q++ {
		for r := -cfg.Radius; r <= cfg.Radius; r++ {
			coord := Coord{Q: q, R: r}
			if !g.inBounds(coord) {
				continue
			}

			x, y := axialToCartesian(coord)

			congestion := octaveNoise(congestionNoise, x, y, 4, 0.10, 0.5)
			elevation := octaveNoise(elevationNoise, x, y, 3, 0.07, 0.5)

			// Traffic concentrates near the center and thins toward the
			// grid's edge, the way a real terminal area's busiest cells
			// cluster near the hub.
			distFromCenter := math.Sqrt(x*x+y*y) / float64(cfg.Radius+1)
			core := 1.0 - math.Pow(distFromCenter, 2)
			if core < 0 {
				core = 0
			}
			congestion = congestion*0.5 + core*0.5

			g.set(&cell{coord: coord, congestion: clamp01(congestion), elevation: clamp01(elevation)})
		}
	}

	return g
}

// octaveNoise layers multiple noise frequencies into fractal detail.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

package world

import (
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// SeedResources visits every cell in row-major order and, with probability
// density, stocks it with amount units of A or B (a fair draw from the same
// rng). Returns the number of cells stocked.
func (g *Grid) SeedResources(rng *rand.Rand, density float64, amount int) int {
	n := 0
	for i := range g.cells {
		if rng.Float64() >= density {
			continue
		}
		typ := ResourceA
		if rng.Float64() >= 0.5 {
			typ = ResourceB
		}
		g.cells[i].Resource = Resource{Type: typ, Amount: amount, Original: amount}
		n++
	}
	return n
}

// ClusterConfig controls noise-based resource placement.
type ClusterConfig struct {
	Seed    int64
	Density float64 // Mean fraction of stocked cells
	Amount  int
	Scale   float64 // Base noise frequency; smaller means larger regions
}

// SeedClustered stocks the grid from two simplex noise layers: one modulates
// placement probability, the other splits the map into A-rich and B-rich
// regions. Fully determined by cfg.Seed. Returns the number of cells stocked.
func (g *Grid) SeedClustered(cfg ClusterConfig) int {
	placeNoise := opensimplex.NewNormalized(cfg.Seed)
	typeNoise := opensimplex.NewNormalized(cfg.Seed + 1)
	jitter := opensimplex.NewNormalized(cfg.Seed + 2)

	scale := cfg.Scale
	if scale <= 0 {
		scale = 0.15
	}

	n := 0
	for i := range g.cells {
		x, y := float64(g.cells[i].Pos.X), float64(g.cells[i].Pos.Y)

		// Normalized noise is centered near 0.5, so doubling keeps the mean
		// placement rate close to Density.
		p := cfg.Density * 2 * octaveNoise(placeNoise, x, y, 3, scale, 0.5)
		if jitter.Eval2(x*7.31, y*7.31) >= p {
			continue
		}
		typ := ResourceA
		if octaveNoise(typeNoise, x, y, 2, scale*0.5, 0.5) >= 0.5 {
			typ = ResourceB
		}
		g.cells[i].Resource = Resource{Type: typ, Amount: cfg.Amount, Original: cfg.Amount}
		n++
	}
	return n
}

// octaveNoise generates fractal noise by layering multiple frequencies.
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

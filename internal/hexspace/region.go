package hexspace

import (
	"math"
	"math/rand"

	"uatsim/internal/region"
)

// Region is one hex cell of a Grid. It is a small value type — a grid
// pointer plus a coordinate — so two Region values are Go-== equal exactly
// when Eq reports them equal, which is what lets package uat use
// region.Permit directly as a map key.
type Region struct {
	grid  *Grid
	coord Coord
}

var _ region.Region = Region{}

// Coord exposes the underlying axial coordinate.
func (r Region) Coord() Coord { return r.coord }

// Congestion returns the cell's generated congestion field, 0..1.
func (r Region) Congestion() float64 {
	if c := r.grid.get(r.coord); c != nil {
		return c.congestion
	}
	return 0
}

// Elevation returns the cell's generated elevation field, 0..1.
func (r Region) Elevation() float64 {
	if c := r.grid.get(r.coord); c != nil {
		return c.elevation
	}
	return 0
}

// Eq reports whether other is the same cell of the same grid.
func (r Region) Eq(other region.Region) bool {
	o, ok := other.(Region)
	if !ok {
		return false
	}
	return r.grid == o.grid && r.coord == o.coord
}

// Hash combines the coordinate into a total hash. Two regions from
// different grids that share a coordinate hash equal — Eq still tells them
// apart — which mirrors the teacher's coordinate-only map keys in
// world.Map, where a single grid was always assumed.
func (r Region) Hash() uint64 {
	const prime = 1099511628211
	h := uint64(14695981039346656037)
	h = (h ^ uint64(uint32(r.coord.Q))) * prime
	h = (h ^ uint64(uint32(r.coord.R))) * prime
	return h
}

// AdjacentRegions returns the neighboring cells that exist in this region's
// grid — the six axial neighbors, filtered to those the grid actually
// contains.
func (r Region) AdjacentRegions() []region.Region {
	var out []region.Region
	for _, nc := range r.coord.neighbors() {
		if r.grid.get(nc) != nil {
			out = append(out, Region{grid: r.grid, coord: nc})
		}
	}
	return out
}

// Distance returns the hex (cube) distance to other, which must be a Region
// on the same grid.
func (r Region) Distance(other region.Region) uint {
	o := mustSameGrid(r, other)
	return uint(cubeDistance(r.coord, o.coord))
}

// HeuristicDistance returns the straight-line cartesian distance, an
// admissible heuristic for the hex grid's uniform step cost.
func (r Region) HeuristicDistance(other region.Region) float64 {
	o := mustSameGrid(r, other)
	ax, ay := axialToCartesian(r.coord)
	bx, by := axialToCartesian(o.coord)
	dx, dy := ax-bx, ay-by
	return math.Sqrt(dx*dx + dy*dy)
}

// ShortestPath returns an adjacency-connected sequence of regions from r to
// other, inclusive. At each step it greedily moves to whichever unvisited
// neighbor most reduces cube distance to other, breaking ties uniformly at
// random using seed. Returns an empty sequence if other is unreachable
// within the grid (e.g. a different grid, or no connecting path).
func (r Region) ShortestPath(other region.Region, seed int64) []region.Region {
	o, ok := other.(Region)
	if !ok || o.grid != r.grid {
		return nil
	}
	if r.grid.get(o.coord) == nil || r.grid.get(r.coord) == nil {
		return nil
	}

	rng := rand.New(rand.NewSource(seed))
	visited := map[Coord]bool{r.coord: true}
	path := []region.Region{Region{grid: r.grid, coord: r.coord}}
	current := r.coord

	const maxSteps = 4096
	for step := 0; current != o.coord && step < maxSteps; step++ {
		if r.grid.get(current) == nil {
			return nil
		}
		best := -1
		var next []Coord
		for _, nc := range current.neighbors() {
			if visited[nc] || r.grid.get(nc) == nil {
				continue
			}
			d := cubeDistance(nc, o.coord)
			switch {
			case best < 0 || d < best:
				best = d
				next = []Coord{nc}
			case d == best:
				next = append(next, nc)
			}
		}
		if len(next) == 0 {
			return nil
		}
		chosen := next[rng.Intn(len(next))]
		visited[chosen] = true
		path = append(path, Region{grid: r.grid, coord: chosen})
		current = chosen
	}

	if current != o.coord {
		return nil
	}
	return path
}

// Turn reports whether arriving from before and continuing on to `to`
// requires a change of heading — i.e. the incoming and outgoing directions
// differ.
func (r Region) Turn(before, to region.Region) bool {
	b, ok1 := before.(Region)
	t, ok2 := to.(Region)
	if !ok1 || !ok2 {
		return false
	}
	in := directionIndex(b.coord, r.coord)
	out := directionIndex(r.coord, t.coord)
	if in < 0 || out < 0 {
		return true
	}
	return in != out
}

// Climb reports whether moving to `to` crosses a meaningful elevation band.
func (r Region) Climb(to region.Region) bool {
	t, ok := to.(Region)
	if !ok {
		return false
	}
	const climbThreshold = 0.15
	return math.Abs(r.Elevation()-t.Elevation()) >= climbThreshold
}

func mustSameGrid(r Region, other region.Region) Region {
	o, ok := other.(Region)
	if !ok || o.grid != r.grid {
		panic("hexspace: region from a different grid")
	}
	return o
}

func axialToCartesian(c Coord) (x, y float64) {
	x = float64(c.Q) + float64(c.R)*0.5
	y = float64(c.R) * math.Sqrt(3.0) / 2.0
	return x, y
}

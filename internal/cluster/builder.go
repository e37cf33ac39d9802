package cluster

import (
	"math"
	"sort"

	"imagination/pkg/models"
)

const (
	// EarthRadiusKm is the sphere radius used for haversine distances.
	EarthRadiusKm = 6371.0
	kmPerDegree   = 2 * math.Pi * EarthRadiusKm / 360

	// baseRadiusKm is the grouping radius at baseZoom, matching the
	// 200 km grouping the map uses at its default Europe view.
	baseRadiusKm = 200.0
	baseZoom     = 4
)

// Options controls one clustering pass.
type Options struct {
	// RadiusKm is the proximity threshold: two places whose great-circle
	// distance is at most RadiusKm join the same cluster (transitively).
	RadiusKm float64
	// WrapMinLon/WrapMaxLon are the horizontal bounds of the visible
	// world. Zero values mean the native [-180, 180] range.
	WrapMinLon float64
	WrapMaxLon float64
}

// RadiusForZoom scales the grouping radius with map zoom: halving per
// zoom step from 200 km at zoom 4.
func RadiusForZoom(zoom int) float64 {
	return baseRadiusKm * math.Exp2(float64(baseZoom-zoom))
}

// Build groups places into clusters by transitive proximity and attaches
// render-ready geometry to each. Order of the result is not significant.
// An empty input yields an empty result.
func Build(places []models.Place, opts Options) []models.Cluster {
	if len(places) == 0 {
		return nil
	}
	if opts.RadiusKm <= 0 {
		opts.RadiusKm = baseRadiusKm
	}
	if opts.WrapMinLon == 0 && opts.WrapMaxLon == 0 {
		opts.WrapMinLon, opts.WrapMaxLon = -180, 180
	}

	groups := group(places, opts.RadiusKm)

	out := make([]models.Cluster, 0, len(groups))
	for _, members := range groups {
		out = append(out, shape(places, members, opts))
	}
	return out
}

// group partitions place indexes into transitive proximity groups. A
// lat/lon grid with cells roughly radius-sized keeps the pair tests
// near-linear: only places in the same or adjacent cells are compared.
func group(places []models.Place, radiusKm float64) [][]int {
	cellDeg := radiusKm / kmPerDegree
	if cellDeg <= 0 {
		cellDeg = 1e-6
	}
	// flooring the cell count makes every lon cell at least cellDeg wide,
	// so two places within the radius are never more than one cell apart
	// at the equator, even across the wrap
	lonCells := int(math.Floor(360 / cellDeg))
	if lonCells < 1 {
		lonCells = 1
	}
	lonCellDeg := 360 / float64(lonCells)

	type cellKey struct{ x, y int }
	grid := make(map[cellKey][]int, len(places))
	cellOf := func(p models.Place) cellKey {
		x := int(math.Floor((p.Longitude + 180) / lonCellDeg))
		// keep the seam cells adjacent: x wraps modulo the lon cell count
		x = ((x % lonCells) + lonCells) % lonCells
		y := int(math.Floor((p.Latitude + 90) / cellDeg))
		return cellKey{x, y}
	}
	for i, p := range places {
		k := cellOf(p)
		grid[k] = append(grid[k], i)
	}

	uf := newUnionFind(len(places))
	for i, p := range places {
		k := cellOf(p)

		// longitude degrees shrink with latitude, so the lon search
		// widens towards the poles. Each pair is only tested from its
		// lower-indexed point, so the span must cover the pole-most
		// latitude of the whole scanned band, not just p's own.
		span := 1
		bandLat := math.Abs(p.Latitude) + 2*cellDeg
		if bandLat > 90 {
			bandLat = 90
		}
		cosLat := math.Cos(bandLat * math.Pi / 180)
		if cosLat > 1e-3 {
			span = int(math.Ceil(cellDeg / (lonCellDeg * cosLat)))
		} else {
			span = lonCells / 2
		}
		if span > lonCells/2 {
			span = lonCells / 2
		}
		if span < 1 {
			span = 1
		}

		for dy := -1; dy <= 1; dy++ {
			for dx := -span; dx <= span; dx++ {
				nx := ((k.x+dx)%lonCells + lonCells) % lonCells
				for _, j := range grid[cellKey{nx, k.y + dy}] {
					if j <= i || uf.find(i) == uf.find(j) {
						continue
					}
					if haversineKm(p.Latitude, p.Longitude,
						places[j].Latitude, places[j].Longitude) <= radiusKm {
						uf.union(i, j)
					}
				}
			}
		}
	}

	byRoot := make(map[int][]int)
	for i := range places {
		r := uf.find(i)
		byRoot[r] = append(byRoot[r], i)
	}

	out := make([][]int, 0, len(byRoot))
	for _, members := range byRoot {
		sort.Ints(members)
		out = append(out, members)
	}
	return out
}

type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(i int) int {
	for uf.parent[i] != i {
		uf.parent[i] = uf.parent[uf.parent[i]]
		i = uf.parent[i]
	}
	return i
}

func (uf *unionFind) union(i, j int) {
	ri, rj := uf.find(i), uf.find(j)
	if ri != rj {
		uf.parent[rj] = ri
	}
}

func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	const degToRad = math.Pi / 180
	lat1, lon1 = lat1*degToRad, lon1*degToRad
	lat2, lon2 = lat2*degToRad, lon2*degToRad

	dLat := lat2 - lat1
	dLon := lon2 - lon1
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return EarthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

package cluster

import (
	"sort"

	"imagination/pkg/models"
)

// convexHull computes the convex hull of the points with Andrew's
// monotone chain, returned counterclockwise without the closing vertex.
// Collinear boundary points are dropped. Degenerate input (all points on
// a line) yields fewer than 3 vertices.
func convexHull(pts []models.Coordinate) []models.Coordinate {
	if len(pts) < 3 {
		return append([]models.Coordinate(nil), pts...)
	}

	sorted := append([]models.Coordinate(nil), pts...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Lon != sorted[j].Lon {
			return sorted[i].Lon < sorted[j].Lon
		}
		return sorted[i].Lat < sorted[j].Lat
	})

	// drop duplicates so they cannot stall the chain
	uniq := sorted[:1]
	for _, p := range sorted[1:] {
		if p != uniq[len(uniq)-1] {
			uniq = append(uniq, p)
		}
	}
	if len(uniq) < 3 {
		return uniq
	}

	var lower []models.Coordinate
	for _, p := range uniq {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], p) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, p)
	}

	var upper []models.Coordinate
	for i := len(uniq) - 1; i >= 0; i-- {
		p := uniq[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], p) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, p)
	}

	// each chain's last point is the other's first
	return append(lower[:len(lower)-1], upper[:len(upper)-1]...)
}

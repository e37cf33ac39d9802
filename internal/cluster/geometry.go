package cluster

import (
	"math"

	"imagination/pkg/models"
)

const (
	coincidentEps = 1e-7 // degrees; below this points render as one
	collinearEps  = 1e-9
	ovalMargin    = 0.1 // visual margin around the two-point segment
	ovalSamples   = 24
	seamLon       = 180.0
)

// shape computes the cluster record for one proximity group. Geometry is
// computed in a date-line-contiguous longitude space and re-split onto
// the native [-180, 180] range afterwards.
func shape(places []models.Place, members []int, opts Options) models.Cluster {
	ids := make([]int64, len(members))
	pts := make([]models.Coordinate, len(members))
	for i, m := range members {
		ids[i] = places[m].ID
		pts[i] = models.Coordinate{
			Lat: places[m].Latitude,
			Lon: normLon(places[m].Longitude),
		}
	}
	unwrapSeam(pts)

	centroid := meanOf(pts)

	cl := models.Cluster{
		PlaceIDs: ids,
		Centroid: models.Coordinate{Lat: centroid.Lat, Lon: normLon(centroid.Lon)},
	}

	switch {
	case allCoincident(pts):
		cl.Geometry = models.Geometry{
			Kind:  models.GeometryPoint,
			Rings: [][]models.Coordinate{{cl.Centroid}},
		}
	case len(pts) == 2 || allCollinear(pts):
		a, b := extremePair(pts)
		cl.Geometry = models.Geometry{
			Kind:  models.GeometryOval,
			Rings: rewrapRings(ovalRing(a, b), opts),
		}
	default:
		hull := convexHull(pts)
		if len(hull) < 3 {
			// hull degenerated despite the collinearity check
			a, b := extremePair(pts)
			cl.Geometry = models.Geometry{
				Kind:  models.GeometryOval,
				Rings: rewrapRings(ovalRing(a, b), opts),
			}
			break
		}
		cl.Geometry = models.Geometry{
			Kind:  models.GeometryPolygon,
			Rings: rewrapRings(closeRing(hull), opts),
		}
	}
	return cl
}

// normLon brings a longitude into [-180, 180).
func normLon(lon float64) float64 {
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}

// unwrapSeam makes the point set longitude-contiguous: when the spread
// exceeds half the world the group straddles the date line, so western
// members are shifted +360°.
func unwrapSeam(pts []models.Coordinate) {
	minLon, maxLon := pts[0].Lon, pts[0].Lon
	for _, p := range pts[1:] {
		minLon = math.Min(minLon, p.Lon)
		maxLon = math.Max(maxLon, p.Lon)
	}
	if maxLon-minLon <= 180 {
		return
	}
	for i := range pts {
		if pts[i].Lon < 0 {
			pts[i].Lon += 360
		}
	}
}

func meanOf(pts []models.Coordinate) models.Coordinate {
	var lat, lon float64
	for _, p := range pts {
		lat += p.Lat
		lon += p.Lon
	}
	n := float64(len(pts))
	return models.Coordinate{Lat: lat / n, Lon: lon / n}
}

func allCoincident(pts []models.Coordinate) bool {
	for _, p := range pts[1:] {
		if math.Abs(p.Lat-pts[0].Lat) > coincidentEps ||
			math.Abs(p.Lon-pts[0].Lon) > coincidentEps {
			return false
		}
	}
	return true
}

func allCollinear(pts []models.Coordinate) bool {
	if len(pts) < 3 {
		return true
	}
	for i := 2; i < len(pts); i++ {
		if math.Abs(cross(pts[0], pts[1], pts[i])) > collinearEps {
			return false
		}
	}
	return true
}

// extremePair returns the two mutually farthest points of the set, the
// endpoints an oval is stretched over.
func extremePair(pts []models.Coordinate) (models.Coordinate, models.Coordinate) {
	a, b := pts[0], pts[0]
	best := -1.0
	for i := range pts {
		for j := i + 1; j < len(pts); j++ {
			dLat := pts[i].Lat - pts[j].Lat
			dLon := pts[i].Lon - pts[j].Lon
			d := dLat*dLat + dLon*dLon
			if d > best {
				best = d
				a, b = pts[i], pts[j]
			}
		}
	}
	return a, b
}

// ovalRing samples an ellipse around the segment ab, expanded by a small
// margin so the shape reads as an area rather than a line. Longitudes are
// scaled by cos(lat) while sampling so the oval keeps its proportions on
// screen away from the equator.
func ovalRing(a, b models.Coordinate) []models.Coordinate {
	cLat := (a.Lat + b.Lat) / 2
	cLon := (a.Lon + b.Lon) / 2

	sx := math.Cos(cLat * math.Pi / 180)
	if sx < 0.01 {
		sx = 0.01
	}

	dx := (b.Lon - a.Lon) * sx
	dy := b.Lat - a.Lat
	halfLen := math.Hypot(dx, dy) / 2

	major := halfLen * (1 + ovalMargin)
	minor := major * 0.35
	if minor < coincidentEps {
		minor = coincidentEps
	}

	// unit vectors along and across the segment
	ux, uy := dx/(2*halfLen), dy/(2*halfLen)
	vx, vy := -uy, ux

	ring := make([]models.Coordinate, 0, ovalSamples+1)
	for i := 0; i < ovalSamples; i++ {
		t := 2 * math.Pi * float64(i) / ovalSamples
		x := major*math.Cos(t)*ux + minor*math.Sin(t)*vx
		y := major*math.Cos(t)*uy + minor*math.Sin(t)*vy
		ring = append(ring, models.Coordinate{
			Lat: cLat + y,
			Lon: cLon + x/sx,
		})
	}
	return append(ring, ring[0])
}

func closeRing(ring []models.Coordinate) []models.Coordinate {
	if len(ring) == 0 {
		return ring
	}
	if ring[0] != ring[len(ring)-1] {
		ring = append(ring, ring[0])
	}
	return ring
}

// rewrapRings maps a closed ring computed in seam-contiguous space (lons
// possibly beyond 180°) back onto the map's coordinate range. When the
// visible world extends past the seam the contiguous ring is kept; a
// ring that would leave the viewport is split at the 180° meridian into
// an eastern and a western ring so no drawn edge spans the map width.
func rewrapRings(ring []models.Coordinate, opts Options) [][]models.Coordinate {
	crosses := false
	for _, p := range ring {
		if p.Lon > seamLon {
			crosses = true
			break
		}
	}
	if !crosses {
		return [][]models.Coordinate{ring}
	}

	if opts.WrapMaxLon > seamLon {
		fits := true
		for _, p := range ring {
			if p.Lon < opts.WrapMinLon || p.Lon > opts.WrapMaxLon {
				fits = false
				break
			}
		}
		if fits {
			return [][]models.Coordinate{ring}
		}
	}

	east := clipRing(ring, func(lon float64) bool { return lon <= seamLon })
	west := clipRing(ring, func(lon float64) bool { return lon >= seamLon })
	for i := range west {
		west[i].Lon -= 360
	}

	var out [][]models.Coordinate
	if len(east) >= 3 {
		out = append(out, closeRing(east))
	}
	if len(west) >= 3 {
		out = append(out, closeRing(west))
	}
	if len(out) == 0 {
		out = append(out, ring)
	}
	return out
}

// clipRing is Sutherland–Hodgman against a longitude half-plane.
func clipRing(ring []models.Coordinate, inside func(lon float64) bool) []models.Coordinate {
	if len(ring) == 0 {
		return nil
	}
	// open ring for clipping
	open := ring
	if open[0] == open[len(open)-1] {
		open = open[:len(open)-1]
	}

	var out []models.Coordinate
	for i := range open {
		cur := open[i]
		prev := open[(i+len(open)-1)%len(open)]

		curIn, prevIn := inside(cur.Lon), inside(prev.Lon)
		if curIn != prevIn {
			out = append(out, intersectSeam(prev, cur))
		}
		if curIn {
			out = append(out, cur)
		}
	}
	return out
}

// intersectSeam interpolates the latitude where the segment crosses the
// 180° meridian.
func intersectSeam(a, b models.Coordinate) models.Coordinate {
	t := (seamLon - a.Lon) / (b.Lon - a.Lon)
	return models.Coordinate{
		Lat: a.Lat + t*(b.Lat-a.Lat),
		Lon: seamLon,
	}
}

func cross(o, a, b models.Coordinate) float64 {
	return (a.Lon-o.Lon)*(b.Lat-o.Lat) - (a.Lat-o.Lat)*(b.Lon-o.Lon)
}

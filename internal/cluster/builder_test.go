package cluster

import (
	"math"
	"testing"

	"imagination/pkg/models"
)

func place(id int64, lat, lon float64) models.Place {
	return models.Place{ID: id, Token: "t", Name: "n", Latitude: lat, Longitude: lon}
}

func TestBuildEmpty(t *testing.T) {
	if got := Build(nil, Options{RadiusKm: 200}); len(got) != 0 {
		t.Fatalf("expected no clusters, got %d", len(got))
	}
}

func TestBuildSinglePlace(t *testing.T) {
	clusters := Build([]models.Place{place(1, 59.91, 10.75)}, Options{RadiusKm: 200})
	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(clusters))
	}
	c := clusters[0]
	if c.Geometry.Kind != models.GeometryPoint {
		t.Errorf("kind = %q, want point", c.Geometry.Kind)
	}
	if len(c.PlaceIDs) != 1 || c.PlaceIDs[0] != 1 {
		t.Errorf("place ids = %v", c.PlaceIDs)
	}
	got := c.Geometry.Rings[0][0]
	if got.Lat != 59.91 || got.Lon != 10.75 {
		t.Errorf("point = %+v", got)
	}
}

func TestBuildFarApartStaySeparate(t *testing.T) {
	// Oslo and Rome are ~2000 km apart
	places := []models.Place{
		place(1, 59.91, 10.75),
		place(2, 41.90, 12.50),
	}
	clusters := Build(places, Options{RadiusKm: 200})
	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(clusters))
	}
	for _, c := range clusters {
		if c.Geometry.Kind != models.GeometryPoint {
			t.Errorf("kind = %q, want point", c.Geometry.Kind)
		}
	}
}

func TestBuildPairBecomesOval(t *testing.T) {
	// Oslo and Drammen, ~40 km
	places := []models.Place{
		place(1, 59.91, 10.75),
		place(2, 59.74, 10.20),
	}
	clusters := Build(places, Options{RadiusKm: 200})
	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(clusters))
	}
	c := clusters[0]
	if c.Geometry.Kind != models.GeometryOval {
		t.Fatalf("kind = %q, want oval", c.Geometry.Kind)
	}
	ring := c.Geometry.Rings[0]
	if ring[0] != ring[len(ring)-1] {
		t.Error("oval ring is not closed")
	}
}

func TestBuildTransitiveChain(t *testing.T) {
	// each point within radius of its neighbor, endpoints far apart
	places := []models.Place{
		place(1, 60, 10.0),
		place(2, 60, 13.0),
		place(3, 60, 16.0),
		place(4, 60, 19.0),
	}
	// neighbor distance ~167 km, end-to-end ~500 km
	clusters := Build(places, Options{RadiusKm: 200})
	if len(clusters) != 1 {
		t.Fatalf("chain should merge into 1 cluster, got %d", len(clusters))
	}
	if len(clusters[0].PlaceIDs) != 4 {
		t.Errorf("members = %v", clusters[0].PlaceIDs)
	}
}

func TestBuildChainBreaksOutsideRadius(t *testing.T) {
	places := []models.Place{
		place(1, 60, 10.0),
		place(2, 60, 13.0),
		place(3, 60, 40.0), // far from both
	}
	clusters := Build(places, Options{RadiusKm: 200})
	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(clusters))
	}
}

func TestBuildDateLineCluster(t *testing.T) {
	// visually adjacent across the date line plus a third point to force
	// a polygon
	places := []models.Place{
		place(1, 0, 179.5),
		place(2, 0, -179.5),
		place(3, 0.5, 179.7),
	}
	clusters := Build(places, Options{RadiusKm: 200})
	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(clusters))
	}

	g := clusters[0].Geometry
	if g.Kind != models.GeometryPolygon && g.Kind != models.GeometryOval {
		t.Fatalf("kind = %q", g.Kind)
	}
	for _, ring := range g.Rings {
		minLon, maxLon := 180.0, -180.0
		for _, p := range ring {
			minLon = math.Min(minLon, p.Lon)
			maxLon = math.Max(maxLon, p.Lon)
			if p.Lon < -180 || p.Lon > 180 {
				t.Errorf("lon out of native range: %v", p.Lon)
			}
		}
		if maxLon-minLon > 180 {
			t.Errorf("ring spans the map width: [%v, %v]", minLon, maxLon)
		}
	}
}

func TestBuildHighLatitudePairOrderIndependent(t *testing.T) {
	// ~183 km apart, but at 88°N a degree of longitude is only ~3.9 km;
	// the pair must merge no matter which point the grid scan starts from
	low := place(1, 88, 0)
	high := place(2, 89, 55)
	for _, places := range [][]models.Place{{low, high}, {high, low}} {
		clusters := Build(places, Options{RadiusKm: 200})
		if len(clusters) != 1 {
			t.Fatalf("expected 1 cluster with id %d first, got %d",
				places[0].ID, len(clusters))
		}
		if len(clusters[0].PlaceIDs) != 2 {
			t.Errorf("members = %v", clusters[0].PlaceIDs)
		}
	}
}

func TestBuildPolarPointsCluster(t *testing.T) {
	// longitudes diverge wildly near the pole but the points are close
	places := []models.Place{
		place(1, 89.5, 0),
		place(2, 89.5, 120),
	}
	clusters := Build(places, Options{RadiusKm: 200})
	if len(clusters) != 1 {
		t.Fatalf("polar neighbors should cluster, got %d clusters", len(clusters))
	}
}

func TestRadiusForZoom(t *testing.T) {
	tests := []struct {
		zoom int
		want float64
	}{
		{4, 200},
		{5, 100},
		{3, 400},
		{2, 800},
	}
	for _, tt := range tests {
		if got := RadiusForZoom(tt.zoom); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("RadiusForZoom(%d) = %v, want %v", tt.zoom, got, tt.want)
		}
	}
}

func TestHaversineKnownDistance(t *testing.T) {
	// Oslo to Bergen is roughly 305 km
	d := haversineKm(59.9139, 10.7522, 60.3913, 5.3221)
	if d < 290 || d > 320 {
		t.Errorf("haversine Oslo-Bergen = %v km", d)
	}
}

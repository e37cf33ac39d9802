package models

type GeometryKind string

const (
	GeometryPoint   GeometryKind = "point"
	GeometryOval    GeometryKind = "oval"
	GeometryPolygon GeometryKind = "polygon"
)

type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Geometry is render-ready. Point geometries carry a single ring with a
// single coordinate. Oval and polygon rings are closed (first coordinate
// repeated as last). A ring split at the date line yields two rings.
type Geometry struct {
	Kind  GeometryKind   `json:"kind"`
	Rings [][]Coordinate `json:"rings"`
}

// Cluster is an ephemeral grouping of nearby places. It has no identity
// across recomputations.
type Cluster struct {
	PlaceIDs []int64    `json:"place_ids"`
	Centroid Coordinate `json:"centroid"`
	Geometry Geometry   `json:"geometry"`
}

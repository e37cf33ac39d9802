package models

// Place is an immutable gazetteer record. Token is the surface form found
// in the text, Name the modern place name.
type Place struct {
	ID           int64   `json:"id"`
	Token        string  `json:"token"`
	Name         string  `json:"name"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	FeatureClass string  `json:"feature_class,omitempty"`
}

// Mention records that a book references a place frequency times.
type Mention struct {
	BookID    int64 `json:"book_id"`
	PlaceID   int64 `json:"place_id"`
	Frequency int   `json:"frequency"`
}

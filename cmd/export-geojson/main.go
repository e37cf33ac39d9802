package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	"imagination/internal/gazetteer"
	"imagination/pkg/database"
)

type feature struct {
	Type       string         `json:"type"`
	Geometry   pointGeom      `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

type pointGeom struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"` // lon, lat per GeoJSON
}

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

func main() {
	var (
		out      = flag.String("out", "data/places.geojson", "output GeoJSON path")
		author   = flag.String("author", "", "restrict to books by this author")
		category = flag.String("category", "", "restrict to books in this category")
		yearFrom = flag.Int("year-from", 0, "restrict to books published in or after this year")
		yearTo   = flag.Int("year-to", 0, "restrict to books published in or before this year")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	store := gazetteer.NewRepo(db)

	bookIDs, err := store.BookIDsMatching(ctx, gazetteer.Filter{
		Author:   *author,
		Category: *category,
		YearFrom: *yearFrom,
		YearTo:   *yearTo,
	})
	if err != nil {
		log.Fatalf("select books failed: %v", err)
	}
	if len(bookIDs) == 0 {
		log.Fatalf("no books match the given filter")
	}

	hits, err := store.PlacesFor(ctx, bookIDs)
	if err != nil {
		log.Fatalf("load places failed: %v", err)
	}

	fc := featureCollection{Type: "FeatureCollection", Features: make([]feature, 0, len(hits))}
	for _, h := range hits {
		fc.Features = append(fc.Features, feature{
			Type: "Feature",
			Geometry: pointGeom{
				Type:        "Point",
				Coordinates: [2]float64{h.Longitude, h.Latitude},
			},
			Properties: map[string]any{
				"id":            h.ID,
				"token":         h.Token,
				"name":          h.Name,
				"feature_class": h.FeatureClass,
				"frequency":     h.Frequency,
				"book_count":    h.BookCount,
			},
		})
	}

	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		log.Fatalf("ensure output dir failed: %v", err)
	}
	f, err := os.Create(*out)
	if err != nil {
		log.Fatalf("create output failed: %v", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(fc); err != nil {
		log.Fatalf("write geojson failed: %v", err)
	}

	log.Printf("exported %d places from %d books to %s", len(fc.Features), len(bookIDs), *out)
}

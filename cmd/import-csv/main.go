package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"imagination/pkg/database"
)

func main() {
	var (
		booksIn    = flag.String("books", "data/books.csv", "input CSV path for books")
		placesIn   = flag.String("places", "data/places.csv", "input CSV path for places")
		mentionsIn = flag.String("mentions", "data/mentions.csv", "input CSV path for mentions")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	if err := importBooks(ctx, db, *booksIn); err != nil {
		log.Fatalf("import books failed: %v", err)
	}
	if err := importPlaces(ctx, db, *placesIn); err != nil {
		log.Fatalf("import places failed: %v", err)
	}
	rejected, err := importMentions(ctx, db, *mentionsIn)
	if err != nil {
		log.Fatalf("import mentions failed: %v", err)
	}
	if rejected > 0 {
		log.Printf("rejected %d mentions referencing unknown books or places", rejected)
	}

	log.Printf("imported gazetteer from %s, %s and %s", *booksIn, *placesIn, *mentionsIn)
}

func importBooks(ctx context.Context, db *sql.DB, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := readHeader(r)
	if err != nil {
		return err
	}

	stmt, err := db.PrepareContext(ctx, `
		INSERT INTO books (id, urn, title, author, year, category)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		  urn = excluded.urn,
		  title = excluded.title,
		  author = excluded.author,
		  year = excluded.year,
		  category = excluded.category
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if len(row) == 0 {
			continue
		}

		id := valueAt(header, row, "id")
		urn := valueAt(header, row, "urn")
		title := valueAt(header, row, "title")
		if id == "" || urn == "" || title == "" {
			continue
		}

		year, err := parseNullInt(valueAt(header, row, "year"))
		if err != nil {
			return fmt.Errorf("parse year for book %s: %w", id, err)
		}

		if _, err := stmt.ExecContext(
			ctx,
			id,
			urn,
			title,
			nullString(valueAt(header, row, "author")),
			year,
			nullString(valueAt(header, row, "category")),
		); err != nil {
			return err
		}
	}

	return nil
}

func importPlaces(ctx context.Context, db *sql.DB, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := readHeader(r)
	if err != nil {
		return err
	}

	stmt, err := db.PrepareContext(ctx, `
		INSERT INTO places (id, token, name, latitude, longitude, feature_class)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		  token = excluded.token,
		  name = excluded.name,
		  latitude = excluded.latitude,
		  longitude = excluded.longitude,
		  feature_class = excluded.feature_class
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if len(row) == 0 {
			continue
		}

		id := valueAt(header, row, "id")
		token := valueAt(header, row, "token")
		name := valueAt(header, row, "name")
		if name == "" {
			name = token
		}
		if id == "" || token == "" {
			continue
		}

		lat, err := strconv.ParseFloat(valueAt(header, row, "latitude"), 64)
		if err != nil {
			return fmt.Errorf("parse latitude for place %s: %w", id, err)
		}
		lon, err := strconv.ParseFloat(valueAt(header, row, "longitude"), 64)
		if err != nil {
			return fmt.Errorf("parse longitude for place %s: %w", id, err)
		}

		if _, err := stmt.ExecContext(
			ctx,
			id,
			token,
			name,
			lat,
			lon,
			nullString(valueAt(header, row, "feature_class")),
		); err != nil {
			return err
		}
	}

	return nil
}

// importMentions skips rows referencing unknown books or places instead
// of aborting the import; the caller reports the reject count.
func importMentions(ctx context.Context, db *sql.DB, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := readHeader(r)
	if err != nil {
		return 0, err
	}

	stmt, err := db.PrepareContext(ctx, `
		INSERT INTO mentions (book_id, place_id, frequency)
		SELECT b.id, p.id, ?
		FROM books b, places p
		WHERE b.id = ? AND p.id = ?
		ON CONFLICT(book_id, place_id) DO UPDATE SET
			frequency = excluded.frequency
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	rejected := 0
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return rejected, err
		}
		if len(row) == 0 {
			continue
		}

		bookID := valueAt(header, row, "book_id")
		placeID := valueAt(header, row, "place_id")
		if bookID == "" || placeID == "" {
			rejected++
			continue
		}

		freq, err := parseNullInt(valueAt(header, row, "frequency"))
		if err != nil {
			return rejected, fmt.Errorf("parse frequency for %s/%s: %w", bookID, placeID, err)
		}
		if !freq.Valid {
			freq = sql.NullInt64{Int64: 1, Valid: true}
		}

		res, err := stmt.ExecContext(ctx, freq.Int64, bookID, placeID)
		if err != nil {
			return rejected, err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			rejected++
		}
	}

	return rejected, nil
}

func readHeader(r *csv.Reader) (map[string]int, error) {
	row, err := r.Read()
	if err != nil {
		return nil, err
	}
	header := make(map[string]int, len(row))
	for idx, name := range row {
		header[strings.TrimSpace(strings.ToLower(name))] = idx
	}
	return header, nil
}

func valueAt(header map[string]int, row []string, key string) string {
	idx, ok := header[key]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func parseNullInt(raw string) (sql.NullInt64, error) {
	if raw == "" {
		return sql.NullInt64{}, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return sql.NullInt64{}, err
	}
	return sql.NullInt64{Int64: n, Valid: true}, nil
}

func nullString(raw string) sql.NullString {
	if raw == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: raw, Valid: true}
}

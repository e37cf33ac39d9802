package gazetteer

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"imagination/pkg/models"
)

// Repo is the read-only store over the three gazetteer relations:
// books, places and mentions. It never mutates state.
type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// sqlite limits the number of bound variables per statement; large id
// sets are chunked to stay under it.
const inChunkSize = 500

type ListQuery struct {
	Q        string // keyword search in title/author
	Author   string
	Category string
	YearFrom int
	YearTo   int
	Limit    int
	Offset   int
}

// Filter selects books for corpus sampling.
type Filter struct {
	Author   string
	Category string
	YearFrom int
	YearTo   int
}

// BookMention is a book together with how often it mentions a place.
type BookMention struct {
	models.Book
	Frequency int `json:"frequency"`
}

// PlaceHit is a place aggregated over a set of books: total occurrence
// frequency and the number of distinct books mentioning it.
type PlaceHit struct {
	models.Place
	Frequency int `json:"frequency"`
	BookCount int `json:"book_count"`
}

func (r *Repo) Book(ctx context.Context, id int64) (*models.Book, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, urn, title, author, year, category
		FROM books
		WHERE id = ?
	`, id)

	b, err := scanBook(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan book: %w", err)
	}
	return b, nil
}

func (r *Repo) Place(ctx context.Context, id int64) (*models.Place, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, token, name, latitude, longitude, feature_class
		FROM places
		WHERE id = ?
	`, id)

	var (
		p       models.Place
		feature sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Token, &p.Name, &p.Latitude, &p.Longitude, &feature); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan place: %w", err)
	}
	p.FeatureClass = feature.String
	return &p, nil
}

// BooksFor returns every book mentioning the place, most frequent first.
// An unknown place id yields an empty slice, not an error.
func (r *Repo) BooksFor(ctx context.Context, placeID int64) ([]BookMention, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT b.id, b.urn, b.title, b.author, b.year, b.category, m.frequency
		FROM books b
		JOIN mentions m ON m.book_id = b.id
		WHERE m.place_id = ?
		ORDER BY m.frequency DESC, b.title ASC
	`, placeID)
	if err != nil {
		return nil, fmt.Errorf("books for place: %w", err)
	}
	defer rows.Close()

	var out []BookMention
	for rows.Next() {
		var (
			bm       BookMention
			author   sql.NullString
			year     sql.NullInt64
			category sql.NullString
		)
		if err := rows.Scan(&bm.ID, &bm.URN, &bm.Title, &author, &year, &category, &bm.Frequency); err != nil {
			return nil, fmt.Errorf("scan book mention: %w", err)
		}
		bm.Author = author.String
		bm.Year = int(year.Int64)
		bm.Category = category.String
		out = append(out, bm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// PlacesFor aggregates the places mentioned by any of the given books.
// Frequencies are summed and book counts deduplicated across the set.
func (r *Repo) PlacesFor(ctx context.Context, bookIDs []int64) ([]PlaceHit, error) {
	if len(bookIDs) == 0 {
		return nil, nil
	}

	// chunked aggregation merged by place id
	merged := make(map[int64]*PlaceHit)
	for start := 0; start < len(bookIDs); start += inChunkSize {
		end := start + inChunkSize
		if end > len(bookIDs) {
			end = len(bookIDs)
		}
		chunk := bookIDs[start:end]

		q := fmt.Sprintf(`
			SELECT p.id, p.token, p.name, p.latitude, p.longitude, p.feature_class,
			       SUM(m.frequency), COUNT(DISTINCT m.book_id)
			FROM places p
			JOIN mentions m ON m.place_id = p.id
			WHERE m.book_id IN (%s)
			GROUP BY p.id
		`, placeholders(len(chunk)))

		rows, err := r.DB.QueryContext(ctx, q, int64Args(chunk)...)
		if err != nil {
			return nil, fmt.Errorf("places for books: %w", err)
		}
		for rows.Next() {
			var (
				h       PlaceHit
				feature sql.NullString
			)
			if err := rows.Scan(&h.ID, &h.Token, &h.Name, &h.Latitude, &h.Longitude,
				&feature, &h.Frequency, &h.BookCount); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan place hit: %w", err)
			}
			h.FeatureClass = feature.String
			if prev, ok := merged[h.ID]; ok {
				prev.Frequency += h.Frequency
				prev.BookCount += h.BookCount
			} else {
				hit := h
				merged[h.ID] = &hit
			}
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("rows err: %w", err)
		}
		rows.Close()
	}

	out := make([]PlaceHit, 0, len(merged))
	for _, h := range merged {
		out = append(out, *h)
	}
	return out, nil
}

// FilterKnownBooks returns the subset of ids that exist in the books
// relation, in no particular order.
func (r *Repo) FilterKnownBooks(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var out []int64
	for start := 0; start < len(ids); start += inChunkSize {
		end := start + inChunkSize
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]

		q := fmt.Sprintf(`SELECT id FROM books WHERE id IN (%s)`, placeholders(len(chunk)))
		rows, err := r.DB.QueryContext(ctx, q, int64Args(chunk)...)
		if err != nil {
			return nil, fmt.Errorf("filter known books: %w", err)
		}
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan book id: %w", err)
			}
			out = append(out, id)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("rows err: %w", err)
		}
		rows.Close()
	}
	return out, nil
}

// BookIDsMatching returns the ids of all books matching the filter,
// ordered by id so sampling stays reproducible under a fixed seed.
func (r *Repo) BookIDsMatching(ctx context.Context, f Filter) ([]int64, error) {
	var where []string
	var args []any

	if strings.TrimSpace(f.Author) != "" {
		where = append(where, "author = ?")
		args = append(args, strings.TrimSpace(f.Author))
	}
	if strings.TrimSpace(f.Category) != "" {
		where = append(where, "category = ?")
		args = append(args, strings.TrimSpace(f.Category))
	}
	if f.YearFrom != 0 {
		where = append(where, "year >= ?")
		args = append(args, f.YearFrom)
	}
	if f.YearTo != 0 {
		where = append(where, "year <= ?")
		args = append(args, f.YearTo)
	}

	q := `SELECT id FROM books`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY id ASC"

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("book ids matching: %w", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan book id: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func (r *Repo) Count(ctx context.Context, q ListQuery) (int, error) {
	sqlStr, args := buildListSQL(q, true)
	var total int
	if err := r.DB.QueryRowContext(ctx, sqlStr, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count scan: %w", err)
	}
	return total, nil
}

func (r *Repo) List(ctx context.Context, q ListQuery) ([]models.Book, error) {
	sqlStr, args := buildListSQL(q, false)

	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list query: %w", err)
	}
	defer rows.Close()

	out := make([]models.Book, 0, q.Limit)
	for rows.Next() {
		b, err := scanBook(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("list scan: %w", err)
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// ValidateIntegrity checks that every mention resolves to a known book
// and place. A non-zero orphan count means the backing store is corrupt
// and the process must not be considered ready.
func (r *Repo) ValidateIntegrity(ctx context.Context) error {
	var orphanBooks, orphanPlaces int

	err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM mentions m
		LEFT JOIN books b ON b.id = m.book_id
		WHERE b.id IS NULL
	`).Scan(&orphanBooks)
	if err != nil {
		return fmt.Errorf("count orphan book mentions: %w", err)
	}

	err = r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM mentions m
		LEFT JOIN places p ON p.id = m.place_id
		WHERE p.id IS NULL
	`).Scan(&orphanPlaces)
	if err != nil {
		return fmt.Errorf("count orphan place mentions: %w", err)
	}

	if orphanBooks > 0 || orphanPlaces > 0 {
		return fmt.Errorf(
			"mentions reference %d missing books and %d missing places",
			orphanBooks, orphanPlaces,
		)
	}
	return nil
}

func buildListSQL(q ListQuery, countOnly bool) (string, []any) {
	baseSelect := `
		SELECT id, urn, title, author, year, category
		FROM books
	`
	if countOnly {
		baseSelect = `SELECT COUNT(*) FROM books`
	}

	var where []string
	var args []any

	if strings.TrimSpace(q.Q) != "" {
		where = append(where, "(LOWER(title) LIKE ? OR LOWER(author) LIKE ?)")
		kw := "%" + strings.ToLower(strings.TrimSpace(q.Q)) + "%"
		args = append(args, kw, kw)
	}
	if strings.TrimSpace(q.Author) != "" {
		where = append(where, "author = ?")
		args = append(args, strings.TrimSpace(q.Author))
	}
	if strings.TrimSpace(q.Category) != "" {
		where = append(where, "category = ?")
		args = append(args, strings.TrimSpace(q.Category))
	}
	if q.YearFrom != 0 {
		where = append(where, "year >= ?")
		args = append(args, q.YearFrom)
	}
	if q.YearTo != 0 {
		where = append(where, "year <= ?")
		args = append(args, q.YearTo)
	}

	sqlStr := baseSelect
	if len(where) > 0 {
		sqlStr += " WHERE " + strings.Join(where, " AND ")
	}

	if !countOnly {
		sqlStr += " ORDER BY title ASC"
		sqlStr += " LIMIT ? OFFSET ?"
		limit := q.Limit
		if limit <= 0 || limit > 100 {
			limit = 20
		}
		offset := q.Offset
		if offset < 0 {
			offset = 0
		}
		args = append(args, limit, offset)
	}

	return sqlStr, args
}

func scanBook(scan func(dest ...any) error) (*models.Book, error) {
	var (
		b        models.Book
		author   sql.NullString
		year     sql.NullInt64
		category sql.NullString
	)
	if err := scan(&b.ID, &b.URN, &b.Title, &author, &year, &category); err != nil {
		return nil, err
	}
	b.Author = author.String
	b.Year = int(year.Int64)
	b.Category = category.String
	return &b, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

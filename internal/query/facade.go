package query

import (
	"context"
	"fmt"

	"imagination/internal/corpus"
	"imagination/internal/gazetteer"
	"imagination/pkg/models"
)

// Facade is the single read path the presentation layer queries. Every
// answer is derived from the session's current book set on the spot;
// nothing is cached across corpus mutations, so the map, the place list
// and the detail panel can never disagree.
type Facade struct {
	Store *gazetteer.Repo
}

func NewFacade(store *gazetteer.Repo) *Facade {
	return &Facade{Store: store}
}

// BookLink is a corpus-scoped book hit with its external viewer URL.
type BookLink struct {
	gazetteer.BookMention
	URL string `json:"url"`
}

type PlaceDetails struct {
	Place models.Place `json:"place"`
	Books []BookLink   `json:"books"`
}

type BookDetails struct {
	Book models.Book `json:"book"`
	URL  string      `json:"url"`
}

// PlacesForMap returns the aggregated place set implied by the session's
// current books.
func (f *Facade) PlacesForMap(ctx context.Context, s *corpus.Session) ([]gazetteer.PlaceHit, error) {
	hits, err := f.Store.PlacesFor(ctx, s.Current())
	if err != nil {
		return nil, fmt.Errorf("places for corpus: %w", err)
	}
	return hits, nil
}

// PlaceDetails returns the place and the corpus-scoped books mentioning
// it, most frequent first. The global mention list is intersected with
// the current corpus; books outside it never appear. Returns nil when
// the place id is unknown.
func (f *Facade) PlaceDetails(ctx context.Context, s *corpus.Session, placeID int64) (*PlaceDetails, error) {
	p, err := f.Store.Place(ctx, placeID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, nil
	}

	all, err := f.Store.BooksFor(ctx, placeID)
	if err != nil {
		return nil, err
	}

	books := make([]BookLink, 0, len(all))
	for _, bm := range all {
		if !s.Contains(bm.ID) {
			continue
		}
		books = append(books, BookLink{
			BookMention: bm,
			URL:         bm.DeepLink(p.Token),
		})
	}

	return &PlaceDetails{Place: *p, Books: books}, nil
}

// BookDetails returns the book together with its deep link into the
// external digital-library viewer. Returns nil when unknown.
func (f *Facade) BookDetails(ctx context.Context, id int64) (*BookDetails, error) {
	b, err := f.Store.Book(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, nil
	}
	return &BookDetails{Book: *b, URL: b.DeepLink("")}, nil
}

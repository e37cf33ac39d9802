package corpus

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"imagination/internal/gazetteer"
	"imagination/pkg/database"
)

func newTestStore(t *testing.T) *gazetteer.Repo {
	t.Helper()
	db, err := database.OpenMemory()
	if err != nil {
		t.Fatalf("open memory db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	seedBooks(t, db)
	return gazetteer.NewRepo(db)
}

func seedBooks(t *testing.T, db *sql.DB) {
	t.Helper()
	_, err := db.Exec(`
		INSERT INTO books (id, urn, title, author, year, category) VALUES
			(1, 'URN:NBN:no-nb_digibok_1', 'Synnøve Solbakken', 'Bjørnson', 1857, 'Fiksjon'),
			(2, 'URN:NBN:no-nb_digibok_2', 'Et dukkehjem', 'Ibsen', 1879, 'Drama'),
			(3, 'URN:NBN:no-nb_digibok_3', 'Brand', 'Ibsen', 1866, 'Drama'),
			(4, 'URN:NBN:no-nb_digibok_4', 'Amtmandens Døttre', 'Collett', 1854, 'Fiksjon'),
			(5, 'URN:NBN:no-nb_digibok_5', 'Garman & Worse', 'Kielland', 1880, 'Fiksjon');
	`)
	if err != nil {
		t.Fatalf("seed books: %v", err)
	}
}

func knownIDs(t *testing.T, store *gazetteer.Repo) map[int64]struct{} {
	t.Helper()
	ids, err := store.BookIDsMatching(context.Background(), gazetteer.Filter{})
	if err != nil {
		t.Fatalf("known ids: %v", err)
	}
	out := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

func assertSubsetOfKnown(t *testing.T, s *Session, store *gazetteer.Repo) {
	t.Helper()
	known := knownIDs(t, store)
	seen := make(map[int64]struct{})
	for _, id := range s.Current() {
		if _, ok := known[id]; !ok {
			t.Errorf("corpus contains unknown book id %d", id)
		}
		if _, dup := seen[id]; dup {
			t.Errorf("corpus contains duplicate book id %d", id)
		}
		seen[id] = struct{}{}
	}
}

func TestLoadDropsUnknownIDs(t *testing.T) {
	store := newTestStore(t)
	m := NewManager(store, 400, 1)
	s := NewSession()

	dropped, err := m.Load(context.Background(), s, []int64{1, 2, 999, 1000})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if dropped != 2 {
		t.Errorf("dropped = %d, want 2", dropped)
	}
	if s.Size() != 2 {
		t.Errorf("size = %d, want 2", s.Size())
	}
	assertSubsetOfKnown(t, s, store)
}

func TestLoadDeduplicates(t *testing.T) {
	store := newTestStore(t)
	m := NewManager(store, 400, 1)
	s := NewSession()

	dropped, err := m.Load(context.Background(), s, []int64{1, 1, 1, 2})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if dropped != 0 {
		t.Errorf("dropped = %d, want 0", dropped)
	}
	if s.Size() != 2 {
		t.Errorf("size = %d, want 2", s.Size())
	}
	assertSubsetOfKnown(t, s, store)
}

func TestLoadAllUnknownFails(t *testing.T) {
	store := newTestStore(t)
	m := NewManager(store, 400, 1)
	s := NewSession()

	if _, err := m.Load(context.Background(), s, []int64{1}); err != nil {
		t.Fatalf("seed load: %v", err)
	}

	_, err := m.Load(context.Background(), s, []int64{998, 999})
	if !errors.Is(err, ErrNoValidBooks) {
		t.Fatalf("err = %v, want ErrNoValidBooks", err)
	}
	// a rejected load leaves the corpus untouched
	if s.Size() != 1 || !s.Contains(1) {
		t.Errorf("corpus changed after rejected load: %v", s.Current())
	}
}

func TestSampleShortfall(t *testing.T) {
	store := newTestStore(t)
	m := NewManager(store, 400, 1)
	s := NewSession()

	shortfall, err := m.Sample(context.Background(), s, gazetteer.Filter{Author: "Ibsen"}, 10)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	if shortfall != 8 {
		t.Errorf("shortfall = %d, want 8", shortfall)
	}
	if s.Size() != 2 {
		t.Errorf("size = %d, want 2", s.Size())
	}
	assertSubsetOfKnown(t, s, store)
}

func TestSampleWithoutReplacement(t *testing.T) {
	store := newTestStore(t)
	m := NewManager(store, 400, 42)
	s := NewSession()

	shortfall, err := m.Sample(context.Background(), s, gazetteer.Filter{}, 3)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	if shortfall != 0 {
		t.Errorf("shortfall = %d, want 0", shortfall)
	}
	if s.Size() != 3 {
		t.Errorf("size = %d, want 3", s.Size())
	}
	assertSubsetOfKnown(t, s, store)
}

func TestSampleNoMatches(t *testing.T) {
	store := newTestStore(t)
	m := NewManager(store, 400, 1)
	s := NewSession()

	_, err := m.Sample(context.Background(), s, gazetteer.Filter{Author: "Hamsun"}, 3)
	if !errors.Is(err, ErrNoMatches) {
		t.Fatalf("err = %v, want ErrNoMatches", err)
	}
}

func TestSampleYearRange(t *testing.T) {
	store := newTestStore(t)
	m := NewManager(store, 400, 1)
	s := NewSession()

	if _, err := m.Sample(context.Background(), s, gazetteer.Filter{YearFrom: 1860, YearTo: 1880}, 10); err != nil {
		t.Fatalf("sample: %v", err)
	}
	// books 2 (1879), 3 (1866) and 5 (1880)
	want := []int64{2, 3, 5}
	got := s.Current()
	if len(got) != len(want) {
		t.Fatalf("current = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("current = %v, want %v", got, want)
		}
	}
}

func TestResetUsesDefaultSize(t *testing.T) {
	store := newTestStore(t)
	m := NewManager(store, 3, 7)
	s := NewSession()

	if err := m.Reset(context.Background(), s); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if s.Size() != 3 {
		t.Errorf("size = %d, want default sample size 3", s.Size())
	}
	assertSubsetOfKnown(t, s, store)
}

func TestResetEmptyStoreYieldsEmptyCorpus(t *testing.T) {
	db, err := database.OpenMemory()
	if err != nil {
		t.Fatalf("open memory db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	store := gazetteer.NewRepo(db)

	m := NewManager(store, 400, 1)
	s := NewSession()
	if err := m.Reset(context.Background(), s); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if s.Size() != 0 {
		t.Errorf("size = %d, want 0", s.Size())
	}
}

func TestCurrentReturnsCopy(t *testing.T) {
	store := newTestStore(t)
	m := NewManager(store, 400, 1)
	s := NewSession()

	if _, err := m.Load(context.Background(), s, []int64{1, 2}); err != nil {
		t.Fatalf("load: %v", err)
	}
	ids := s.Current()
	ids[0] = 999
	if s.Contains(999) {
		t.Error("mutating the returned slice changed the session")
	}
}

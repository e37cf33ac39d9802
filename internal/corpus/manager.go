package corpus

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"imagination/internal/gazetteer"
)

var (
	// ErrNoValidBooks means a load request contained no ids known to the
	// book store.
	ErrNoValidBooks = errors.New("no valid book ids in request")
	// ErrNoMatches means a sample filter matched zero books.
	ErrNoMatches = errors.New("filter matched no books")
)

// Manager owns every mutation of a session's current book set. The set
// is always validated against the book store, so after any operation it
// is a subset of the known book ids.
type Manager struct {
	Store       *gazetteer.Repo
	DefaultSize int

	mu  sync.Mutex
	rng *rand.Rand
}

func NewManager(store *gazetteer.Repo, defaultSize int, seed int64) *Manager {
	if defaultSize <= 0 {
		defaultSize = 400
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Manager{
		Store:       store,
		DefaultSize: defaultSize,
		rng:         rand.New(rand.NewSource(seed)),
	}
}

// Reset replaces the session's corpus with the default sample.
func (m *Manager) Reset(ctx context.Context, s *Session) error {
	_, err := m.Sample(ctx, s, gazetteer.Filter{}, m.DefaultSize)
	if errors.Is(err, ErrNoMatches) {
		// empty book store: an empty corpus, not a failure
		s.replace(nil)
		return nil
	}
	return err
}

// Load replaces the corpus wholesale with the subset of the given ids
// that exist in the store. Unknown ids are dropped, not fatal; the
// returned count reports how many were dropped. A request with no valid
// ids at all returns ErrNoValidBooks and leaves the corpus untouched.
func (m *Manager) Load(ctx context.Context, s *Session, ids []int64) (dropped int, err error) {
	ids = dedupe(ids)

	known, err := m.Store.FilterKnownBooks(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("validate book ids: %w", err)
	}
	if len(known) == 0 {
		return 0, ErrNoValidBooks
	}

	s.replace(known)
	return len(ids) - len(known), nil
}

// Sample replaces the corpus with up to size books drawn without
// replacement from those matching the filter. When fewer books match
// than requested, all matches are used and the shortfall is reported.
func (m *Manager) Sample(ctx context.Context, s *Session, f gazetteer.Filter, size int) (shortfall int, err error) {
	if size <= 0 {
		size = m.DefaultSize
	}

	matches, err := m.Store.BookIDsMatching(ctx, f)
	if err != nil {
		return 0, fmt.Errorf("match filter: %w", err)
	}
	if len(matches) == 0 {
		return 0, ErrNoMatches
	}

	if len(matches) <= size {
		shortfall = size - len(matches)
		s.replace(matches)
		return shortfall, nil
	}

	m.mu.Lock()
	perm := m.rng.Perm(len(matches))
	m.mu.Unlock()

	picked := make([]int64, size)
	for i := 0; i < size; i++ {
		picked[i] = matches[perm[i]]
	}
	s.replace(picked)
	return 0, nil
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

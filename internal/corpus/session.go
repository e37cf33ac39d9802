package corpus

import (
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Session holds one user's working set of book ids. Mutations swap the
// whole set under the lock, so readers never observe a partial update.
type Session struct {
	mu    sync.RWMutex
	books map[int64]struct{}
}

func NewSession() *Session {
	return &Session{books: make(map[int64]struct{})}
}

// Current returns a sorted copy of the selected book ids. Every
// downstream component learns "what is selected" through this method.
func (s *Session) Current() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int64, 0, len(s.books))
	for id := range s.books {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *Session) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.books)
}

func (s *Session) Contains(id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.books[id]
	return ok
}

func (s *Session) replace(ids []int64) {
	books := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		books[id] = struct{}{}
	}
	s.mu.Lock()
	s.books = books
	s.mu.Unlock()
}

// sessionTTL bounds how long an idle session is kept; a client that
// returns later simply starts over with a fresh default corpus.
const sessionTTL = 12 * time.Hour

type sessionEntry struct {
	s        *Session
	lastSeen time.Time
}

// SessionStore hands out per-session corpora keyed by an opaque cookie
// id. Sessions are never persisted; idle ones are evicted after
// sessionTTL so first-contact crawler traffic cannot grow the map
// unboundedly.
type SessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]*sessionEntry
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		ttl:      sessionTTL,
		sessions: make(map[string]*sessionEntry),
	}
}

func (st *SessionStore) Get(id string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := time.Now()
	st.evictLocked(now)

	e, ok := st.sessions[id]
	if !ok {
		e = &sessionEntry{s: NewSession()}
		st.sessions[id] = e
	}
	e.lastSeen = now
	return e.s
}

func (st *SessionStore) evictLocked(now time.Time) {
	for id, e := range st.sessions {
		if now.Sub(e.lastSeen) > st.ttl {
			delete(st.sessions, id)
		}
	}
}

func (st *SessionStore) Count() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

const (
	sessionCookie   = "session_id"
	ctxSessionKey   = "corpus_session"
	ctxSessionIDKey = "corpus_session_id"
)

// SessionMiddleware attaches the caller's corpus session to the gin
// context, minting an anonymous session cookie on first contact.
func SessionMiddleware(store *SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(sessionCookie)
		if err != nil || id == "" {
			id = uuid.NewString()
			c.SetCookie(sessionCookie, id, 0, "/", "", false, true)
		}
		c.Set(ctxSessionKey, store.Get(id))
		c.Set(ctxSessionIDKey, id)
		c.Next()
	}
}

// SessionID returns the cookie id for the current request, or "".
func SessionID(c *gin.Context) string {
	v, _ := c.Get(ctxSessionIDKey)
	id, _ := v.(string)
	return id
}

// MustGetSession returns the session placed by SessionMiddleware.
func MustGetSession(c *gin.Context) *Session {
	v, ok := c.Get(ctxSessionKey)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "no session"})
		c.Abort()
		return nil
	}
	s, _ := v.(*Session)
	return s
}

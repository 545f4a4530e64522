package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cryptobrief/internal/dashboard"
	"github.com/cryptobrief/internal/logging"
	"github.com/cryptobrief/internal/timer"
)

// Deps are the collaborators every new session is built with
type Deps struct {
	Clock         timer.Clock
	Briefs        dashboard.BriefSource
	Trending      dashboard.TrendingSource
	SettingsDelay time.Duration
	UpgradeDelay  time.Duration
	BannerDismiss time.Duration
	Logger        *logging.Logger
}

// Store keeps live sessions in memory, keyed by id
type Store struct {
	deps Deps

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates an empty store
func NewStore(deps Deps) *Store {
	if deps.Clock == nil {
		deps.Clock = timer.Real()
	}
	if deps.Logger == nil {
		deps.Logger = logging.GetGlobalLogger()
	}
	return &Store{deps: deps, sessions: make(map[string]*Session)}
}

// Create starts a new signed-out session
func (st *Store) Create() *Session {
	s := newSession(uuid.NewString(), st.deps)

	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()

	st.deps.Logger.WithSession(s.ID).Debug("Session created")
	return s
}

// Get returns the session for id and marks it as seen
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return nil, false
	}
	s.touch(st.deps.Clock.Now())
	return s, true
}

// Destroy tears the session down and forgets it. Unknown ids are ignored.
func (st *Store) Destroy(id string) {
	st.mu.Lock()
	s, ok := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()

	if ok {
		s.teardown()
		st.deps.Logger.WithSession(id).Debug("Session destroyed")
	}
}

// Len returns the number of live sessions
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// PruneIdle destroys sessions not seen for maxIdle and returns how many
func (st *Store) PruneIdle(now time.Time, maxIdle time.Duration) int {
	var stale []string
	st.mu.RLock()
	for id, s := range st.sessions {
		if now.Sub(s.LastSeen()) >= maxIdle {
			stale = append(stale, id)
		}
	}
	st.mu.RUnlock()

	for _, id := range stale {
		st.Destroy(id)
	}
	if len(stale) > 0 {
		st.deps.Logger.WithField("count", len(stale)).Info("Pruned idle sessions")
	}
	return len(stale)
}

// Close destroys every session
func (st *Store) Close() {
	st.mu.RLock()
	ids := make([]string, 0, len(st.sessions))
	for id := range st.sessions {
		ids = append(ids, id)
	}
	st.mu.RUnlock()

	for _, id := range ids {
		st.Destroy(id)
	}
}

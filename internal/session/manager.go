// Package session tracks dashboard sessions and their run state.
package session

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ycsa-dashboard/backend/internal/models"
)

// DefaultMaxSessions limits concurrent sessions to bound memory held by
// uploaded files.
const DefaultMaxSessions = 50

// SessionMaxAge is how long an idle session is kept before cleanup.
const SessionMaxAge = 30 * time.Minute

// SessionKeepAliveWindow is how long a recently touched session is
// protected from cleanup regardless of age.
const SessionKeepAliveWindow = 5 * time.Minute

var (
	ErrNotFound          = errors.New("session not found")
	ErrRunInProgress     = errors.New("a chart run is already in progress for this session")
	ErrTooManySessions   = errors.New("too many active sessions")
	ErrInvalidTransition = errors.New("invalid session transition")
)

// transitions lists the statuses reachable from each status.
var transitions = map[models.SessionStatus][]models.SessionStatus{
	models.SessionStatusUploaded:   {models.SessionStatusPreviewed, models.SessionStatusFailed},
	models.SessionStatusPreviewed:  {models.SessionStatusExecuting},
	models.SessionStatusExecuting:  {models.SessionStatusSucceeded, models.SessionStatusFailed},
	models.SessionStatusSucceeded:  {models.SessionStatusExtracting, models.SessionStatusFailed},
	models.SessionStatusExtracting: {models.SessionStatusRendered, models.SessionStatusFailed},
	models.SessionStatusRendered:   {models.SessionStatusExecuting},
	models.SessionStatusFailed:     {models.SessionStatusExecuting},
}

// CanTransition reports whether from → to is a legal move.
func CanTransition(from, to models.SessionStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Options configures a Manager.
type Options struct {
	MaxSessions     int
	KeepAliveWindow time.Duration
	// OnRemove runs after a session is removed by Delete, eviction or
	// cleanup, outside the manager lock.
	OnRemove func(models.Session)
}

// Manager holds active dashboard sessions.
type Manager struct {
	sessions map[string]*state
	mu       sync.RWMutex
	opts     Options
	logger   *zap.Logger
}

type state struct {
	session      models.Session
	lastAccessed time.Time
}

// NewManager creates a session manager.
func NewManager(opts Options, logger *zap.Logger) *Manager {
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = DefaultMaxSessions
	}
	if opts.KeepAliveWindow <= 0 {
		opts.KeepAliveWindow = SessionKeepAliveWindow
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		sessions: make(map[string]*state),
		opts:     opts,
		logger:   logger.Named("session"),
	}
}

// snapshot copies a session so callers never share manager state.
func snapshot(s models.Session) models.Session {
	if s.LastRun != nil {
		run := *s.LastRun
		s.LastRun = &run
	}
	return s
}

// Create registers a session for an uploaded file.
func (m *Manager) Create(file *models.FileInfo) (models.Session, error) {
	evicted, err := m.makeRoom()
	m.notifyRemoved(evicted)
	if err != nil {
		return models.Session{}, err
	}

	now := time.Now()
	s := models.Session{
		ID:        uuid.New().String(),
		FileID:    file.ID,
		FileName:  file.Name,
		FileSize:  file.Size,
		Status:    models.SessionStatusUploaded,
		CreatedAt: now,
		UpdatedAt: now,
	}

	m.mu.Lock()
	m.sessions[s.ID] = &state{session: s, lastAccessed: now}
	m.mu.Unlock()

	m.logger.Info("session created",
		zap.String("session", shortID(s.ID)),
		zap.String("file", file.Name),
		zap.Int64("size", file.Size))
	return snapshot(s), nil
}

// makeRoom evicts the least recently used idle sessions when at capacity.
func (m *Manager) makeRoom() ([]models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions) < m.opts.MaxSessions {
		return nil, nil
	}

	idle := make([]*state, 0, len(m.sessions))
	for _, st := range m.sessions {
		if st.session.Status != models.SessionStatusExecuting &&
			st.session.Status != models.SessionStatusSucceeded &&
			st.session.Status != models.SessionStatusExtracting {
			idle = append(idle, st)
		}
	}
	sort.Slice(idle, func(i, j int) bool {
		return idle[i].lastAccessed.Before(idle[j].lastAccessed)
	})

	toFree := len(m.sessions) - m.opts.MaxSessions + 1
	var evicted []models.Session
	for _, st := range idle {
		if len(evicted) >= toFree {
			break
		}
		delete(m.sessions, st.session.ID)
		evicted = append(evicted, st.session)
		m.logger.Info("evicted session to free memory", zap.String("session", shortID(st.session.ID)))
	}
	if len(evicted) < toFree {
		return evicted, ErrTooManySessions
	}
	return evicted, nil
}

func (m *Manager) notifyRemoved(removed []models.Session) {
	if m.opts.OnRemove == nil {
		return
	}
	for _, s := range removed {
		m.opts.OnRemove(s)
	}
}

// Get returns a session by ID.
func (m *Manager) Get(id string) (models.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st, ok := m.sessions[id]
	if !ok {
		return models.Session{}, false
	}
	return snapshot(st.session), true
}

// Touch updates the last access time so the session survives cleanup.
func (m *Manager) Touch(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.sessions[id]
	if !ok {
		return false
	}
	st.lastAccessed = time.Now()
	return true
}

// Transition moves a session to a new status.
func (m *Manager) Transition(id string, to models.SessionStatus) (models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.sessions[id]
	if !ok {
		return models.Session{}, ErrNotFound
	}
	from := st.session.Status
	if !CanTransition(from, to) {
		return snapshot(st.session), fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	st.session.Status = to
	st.session.UpdatedAt = time.Now()
	st.lastAccessed = st.session.UpdatedAt
	return snapshot(st.session), nil
}

// MarkPreviewed moves a fresh upload to previewed. Sessions past that
// point are left as they are.
func (m *Manager) MarkPreviewed(id string) (models.Session, error) {
	m.mu.Lock()
	st, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return models.Session{}, ErrNotFound
	}
	if st.session.Status != models.SessionStatusUploaded {
		st.lastAccessed = time.Now()
		s := snapshot(st.session)
		m.mu.Unlock()
		return s, nil
	}
	m.mu.Unlock()
	return m.Transition(id, models.SessionStatusPreviewed)
}

// BeginRun atomically claims the session for a chart run.
func (m *Manager) BeginRun(id string) (models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.sessions[id]
	if !ok {
		return models.Session{}, ErrNotFound
	}
	switch s := st.session.Status; {
	case s == models.SessionStatusExecuting || s == models.SessionStatusSucceeded || s == models.SessionStatusExtracting:
		return snapshot(st.session), ErrRunInProgress
	case !s.CanStartRun():
		return snapshot(st.session), fmt.Errorf("%w: cannot run from %s", ErrInvalidTransition, s)
	}
	st.session.Status = models.SessionStatusExecuting
	st.session.UpdatedAt = time.Now()
	st.lastAccessed = st.session.UpdatedAt
	return snapshot(st.session), nil
}

// FinishRun records the outcome of a run. The session must be in a
// status that can reach the run's final status.
func (m *Manager) FinishRun(id string, summary models.RunSummary) (models.Session, error) {
	to := models.SessionStatusRendered
	if summary.Status == models.RunStatusFailed {
		to = models.SessionStatusFailed
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.sessions[id]
	if !ok {
		return models.Session{}, ErrNotFound
	}
	if st.session.Status != to && !CanTransition(st.session.Status, to) {
		return snapshot(st.session), fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, st.session.Status, to)
	}
	st.session.Status = to
	st.session.LastRun = &summary
	st.session.UpdatedAt = time.Now()
	st.lastAccessed = st.session.UpdatedAt
	return snapshot(st.session), nil
}

// Delete removes a session. It refuses while a run is in progress.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	st, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	if st.session.Status == models.SessionStatusExecuting ||
		st.session.Status == models.SessionStatusSucceeded ||
		st.session.Status == models.SessionStatusExtracting {
		m.mu.Unlock()
		return ErrRunInProgress
	}
	delete(m.sessions, id)
	m.mu.Unlock()

	m.notifyRemoved([]models.Session{st.session})
	return nil
}

// List returns all sessions, most recently updated first.
func (m *Manager) List() []models.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Session, 0, len(m.sessions))
	for _, st := range m.sessions {
		out = append(out, snapshot(st.session))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

// Len returns the number of active sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CleanupOldSessions removes idle sessions last accessed more than maxAge
// ago, but keeps sessions touched within the keep-alive window and any
// session with a run in progress. It returns the number removed.
func (m *Manager) CleanupOldSessions(maxAge time.Duration) int {
	now := time.Now()
	cutoff := now.Add(-maxAge)
	keepAliveCutoff := now.Add(-m.opts.KeepAliveWindow)

	m.mu.Lock()
	var removed []models.Session
	for id, st := range m.sessions {
		switch st.session.Status {
		case models.SessionStatusExecuting, models.SessionStatusSucceeded, models.SessionStatusExtracting:
			continue
		}
		if st.lastAccessed.After(keepAliveCutoff) {
			continue
		}
		if st.lastAccessed.Before(cutoff) {
			delete(m.sessions, id)
			removed = append(removed, st.session)
			m.logger.Info("cleaned up aged session",
				zap.String("session", shortID(id)),
				zap.Duration("idle", now.Sub(st.lastAccessed).Round(time.Second)))
		}
	}
	m.mu.Unlock()

	m.notifyRemoved(removed)
	return len(removed)
}

// shortID truncates an ID for logging.
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

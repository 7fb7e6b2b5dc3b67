package handoff

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Store keeps string values per session. It stands in for the browser's
// local storage of the upload and results pages.
type Store interface {
	// Get returns the value of key, and false when it is not set
	Get(ctx context.Context, session, key string) (string, bool, error)

	// Set stores value under key
	Set(ctx context.Context, session, key, value string) error

	// Delete removes keys; missing keys are ignored
	Delete(ctx context.Context, session string, keys ...string) error
}

const defaultTTL = 24 * time.Hour

type memorySession struct {
	values  map[string]string
	expires time.Time
}

// MemoryStore is an in-process Store. A session expires ttl after its last
// write; expired sessions are dropped on read and by Sweep.
type MemoryStore struct {
	mu       sync.RWMutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]*memorySession
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &MemoryStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*memorySession),
	}
}

func (s *MemoryStore) Get(ctx context.Context, session, key string) (string, bool, error) {
	s.mu.RLock()
	sess, ok := s.sessions[session]
	if !ok {
		s.mu.RUnlock()
		return "", false, nil
	}
	if s.now().Before(sess.expires) {
		value, ok := sess.values[key]
		s.mu.RUnlock()
		return value, ok, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	// re-check, a Set may have refreshed it in between
	if sess, ok := s.sessions[session]; ok && !s.now().Before(sess.expires) {
		delete(s.sessions, session)
	}
	return "", false, nil
}

func (s *MemoryStore) Set(ctx context.Context, session, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sess, ok := s.sessions[session]
	if !ok || !now.Before(sess.expires) {
		sess = &memorySession{values: make(map[string]string)}
		s.sessions[session] = sess
	}
	sess.values[key] = value
	sess.expires = now.Add(s.ttl)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, session string, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[session]
	if !ok {
		return nil
	}
	for _, key := range keys {
		delete(sess.values, key)
	}
	if len(sess.values) == 0 {
		delete(s.sessions, session)
	}
	return nil
}

// Sweep drops every expired session and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, sess := range s.sessions {
		if !now.Before(sess.expires) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Len reports the number of sessions currently held, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *MemoryStore) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				slog.Debug("Swept expired hand-off sessions", "removed", n)
			}
		}
	}
}

var _ Store = (*MemoryStore)(nil)

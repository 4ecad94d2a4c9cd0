package auth

import (
	"context"
	"sync"
	"time"

	"github.com/juju/clock"

	"github.com/2beens/portfoliocms/pkg"
)

var _ SessionStore = (*MemorySessionStore)(nil)

// MemorySessionStore keeps session tokens in process memory. Sessions do not
// survive a restart; meant for local development and tests.
type MemorySessionStore struct {
	mutex    sync.Mutex
	ttl      time.Duration
	sessions map[string]time.Time
	clock    clock.Clock

	RandStringFunc func(s int) (string, error)
}

func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return NewMemorySessionStoreWithClock(ttl, clock.WallClock)
}

// NewMemorySessionStoreWithClock returns a store that measures session age with clk.
func NewMemorySessionStoreWithClock(ttl time.Duration, clk clock.Clock) *MemorySessionStore {
	return &MemorySessionStore{
		ttl:            ttl,
		sessions:       map[string]time.Time{},
		clock:          clk,
		RandStringFunc: pkg.GenerateRandomString,
	}
}

func (s *MemorySessionStore) Login(_ context.Context, createdAt time.Time) (string, error) {
	token, err := s.RandStringFunc(tokenLength)
	if err != nil {
		return "", err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.sessions[token] = createdAt
	return token, nil
}

func (s *MemorySessionStore) Logout(_ context.Context, token string) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	_, ok := s.sessions[token]
	delete(s.sessions, token)
	return ok, nil
}

func (s *MemorySessionStore) IsLogged(_ context.Context, token string) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	createdAt, ok := s.sessions[token]
	if !ok {
		return false, nil
	}
	if s.clock.Now().Sub(createdAt) > s.ttl {
		delete(s.sessions, token)
		return false, nil
	}
	return true, nil
}

// Count returns the number of stored sessions, expired ones included.
func (s *MemorySessionStore) Count() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.sessions)
}

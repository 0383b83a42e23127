package authcode

import (
	"context"
	"sync"
	"time"

	"github.com/cannerai/cannerd/domain"
)

// MemoryStore keeps authorization codes in process memory. Codes survive
// only for the process lifetime, which matches the flow: they are minted and
// exchanged within minutes.
type MemoryStore struct {
	mu    sync.Mutex
	codes map[string]*domain.AuthCode

	janitorStop chan struct{}
	janitorOnce sync.Once
}

// NewMemoryStore creates a new MemoryStore and starts a background janitor
// that sweeps expired entries on the given interval. A non-positive interval
// disables the janitor; sweeps then only happen opportunistically.
func NewMemoryStore(janitorInterval time.Duration) *MemoryStore {
	s := &MemoryStore{
		codes:       make(map[string]*domain.AuthCode),
		janitorStop: make(chan struct{}),
	}
	if janitorInterval > 0 {
		go s.janitor(janitorInterval)
	}
	return s
}

func (s *MemoryStore) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			_ = s.SweepExpired(context.Background())
		case <-s.janitorStop:
			return
		}
	}
}

// Close stops the background janitor.
func (s *MemoryStore) Close() {
	s.janitorOnce.Do(func() { close(s.janitorStop) })
}

// Put implements Store.Put.
func (s *MemoryStore) Put(_ context.Context, code, userID string, ttl time.Duration) error {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[code] = &domain.AuthCode{
		Code:      code,
		UserID:    userID,
		ExpiresAt: now.Add(ttl),
		Used:      false,
		CreatedAt: now,
	}
	return nil
}

// TryConsume implements Store.TryConsume. The existence check, expiry check
// and used-flag set happen under one lock so that concurrent exchanges of
// the same code have exactly one winner. A consumed entry stays behind as a
// used tombstone until the sweep removes it, so a replayed code reports
// ErrCodeUsed instead of falling through to the remote authority.
func (s *MemoryStore) TryConsume(_ context.Context, code string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.codes[code]
	if !ok {
		return "", ErrCodeNotFound
	}
	if entry.Used {
		return "", ErrCodeUsed
	}
	if entry.IsExpired(time.Now()) {
		delete(s.codes, code)
		return "", ErrCodeExpired
	}
	entry.Used = true
	return entry.UserID, nil
}

// SweepExpired implements Store.SweepExpired.
func (s *MemoryStore) SweepExpired(_ context.Context) error {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for code, entry := range s.codes {
		if entry.IsExpired(now) {
			delete(s.codes, code)
		}
	}
	return nil
}

// Len reports the number of live entries, used tombstones included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.codes)
}

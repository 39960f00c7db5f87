package adminauth

import (
	"context"
	"sync"
	"time"
)

// KeyTTL is the validity window of an access key measured from CreatedAt.
const KeyTTL = 2 * time.Minute

// AccessKey is the single outstanding shared secret issued to the admin
// identity. At most one live record exists per email; a new issuance
// silently replaces any unused predecessor.
type AccessKey struct {
	Key       string    `json:"key"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the key has aged past KeyTTL at the given time.
func (k AccessKey) Expired(now time.Time) bool {
	return now.Sub(k.CreatedAt) > KeyTTL
}

// KeyStore holds issued access keys, keyed by email. Set overwrites
// unconditionally (last-issued-wins).
type KeyStore interface {
	Set(ctx context.Context, email string, key AccessKey) error
	Get(ctx context.Context, email string) (AccessKey, bool, error)
	Delete(ctx context.Context, email string) (bool, error)
}

// MemoryKeyStore is the single-instance implementation: a mutex-guarded map
// with a background sweep so abandoned keys do not accumulate.
type MemoryKeyStore struct {
	mu   sync.Mutex
	keys map[string]AccessKey
	now  func() time.Time
	stop chan struct{}
	once sync.Once
}

// NewMemoryKeyStore constructs a MemoryKeyStore and starts its sweeper.
func NewMemoryKeyStore() *MemoryKeyStore {
	s := &MemoryKeyStore{
		keys: make(map[string]AccessKey),
		now:  time.Now,
		stop: make(chan struct{}),
	}
	go s.sweep(time.Minute)
	return s
}

func (s *MemoryKeyStore) Set(_ context.Context, email string, key AccessKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[email] = key
	return nil
}

func (s *MemoryKeyStore) Get(_ context.Context, email string) (AccessKey, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.keys[email]
	return key, ok, nil
}

func (s *MemoryKeyStore) Delete(_ context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.keys[email]
	delete(s.keys, email)
	return ok, nil
}

// Close stops the background sweeper.
func (s *MemoryKeyStore) Close() {
	s.once.Do(func() { close(s.stop) })
}

func (s *MemoryKeyStore) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			now := s.now()
			s.mu.Lock()
			for email, key := range s.keys {
				if key.Expired(now) {
					delete(s.keys, email)
				}
			}
			s.mu.Unlock()
		}
	}
}

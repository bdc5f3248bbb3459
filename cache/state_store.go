package cache

import (
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// StateStore keeps the one-time anti-forgery nonces issued when a login
// redirect is built. Each nonce maps to the caller's state-ssi value and
// is consumed on first use, so a replayed callback fails closed.
type StateStore struct {
	cache *ttlcache.Cache[string, string]
}

// NewStateStore creates a state store whose entries expire after ttl.
func NewStateStore(ttl time.Duration) *StateStore {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, string](ttl),
		ttlcache.WithDisableTouchOnHit[string, string](),
	)

	// Start the cleanup process
	go cache.Start()

	return &StateStore{cache: cache}
}

// Put stores ssi under nonce until it is consumed or expires.
func (s *StateStore) Put(nonce, ssi string) {
	s.cache.Set(nonce, ssi, ttlcache.DefaultTTL)
}

// Consume returns the ssi stored under nonce and removes it. The second
// return is false when the nonce is unknown, expired, or already used.
// Lookup and removal are a single atomic step, so concurrent callbacks
// racing on the same nonce see at most one winner.
func (s *StateStore) Consume(nonce string) (string, bool) {
	item, present := s.cache.GetAndDelete(nonce)
	if !present || item == nil {
		return "", false
	}
	return item.Value(), true
}

// Stop halts the background cleanup.
func (s *StateStore) Stop() {
	s.cache.Stop()
}

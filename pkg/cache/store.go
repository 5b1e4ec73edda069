package cache

import "time"

// Store is the backing KV the Smart Cache layers fingerprinting,
// single-flight, and TTL-disable semantics on top of. SetNX must be
// atomic when the backing store can offer it (Redis SET NX EX); a
// non-atomic backend (MapStore) still satisfies the interface but loses
// the cross-process half of the single-flight guarantee — the
// in-process group in singleflight.go covers same-process races
// regardless of which Store is configured.
type Store interface {
	// Get returns the raw value and whether it was present (and not
	// expired, for stores that track TTL themselves).
	Get(key string) ([]byte, bool, error)

	// SetNX writes value only if key is absent, returning whether the
	// write happened.
	SetNX(key string, value []byte, ttl time.Duration) (bool, error)

	// Set writes value unconditionally.
	Set(key string, value []byte, ttl time.Duration) error
}

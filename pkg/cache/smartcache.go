package cache

import (
	"encoding/json"
	"log/slog"
	"time"
)

// SmartCache implements the §4.1 contract: get/set/get_or_set over a
// Store, with fingerprint keys, TTL policy, and single-flight collapse
// of concurrent producers for the same key.
type SmartCache struct {
	store Store
	sf    *group
	log   *slog.Logger
}

// New builds a SmartCache over store.
func New(store Store) *SmartCache {
	return &SmartCache{store: store, sf: newGroup(), log: slog.With("component", "smart_cache")}
}

// Get returns the deserialized value for key, or ok=false on a miss or
// a deserialization failure (logged, never returned as an error — a
// corrupt cache entry is treated the same as absent).
func (c *SmartCache) Get(key string, out interface{}) bool {
	raw, ok, err := c.store.Get(key)
	if err != nil {
		c.log.Warn("cache get failed", "key", key, "error", err)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		c.log.Warn("cache entry unreadable, treating as miss", "key", key, "error", err)
		return false
	}
	return true
}

// Set stores value with ttl. ttl<=0 is a no-op (TTL≤0 disables caching
// for that call).
func (c *SmartCache) Set(key string, value interface{}, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		c.log.Warn("cache value not serializable, skipping set", "key", key, "error", err)
		return
	}
	if err := c.store.Set(key, raw, ttl); err != nil {
		c.log.Warn("cache set failed", "key", key, "error", err)
	}
}

// Producer is the no-argument computation GetOrSet memoizes. It must be
// JSON-serializable.
type Producer func() (interface{}, error)

// GetOrSet returns the cached value for key if present; otherwise it
// calls producer at most once per process (single-flight, via group),
// writes the result with SetNX when ttl>0, and returns it. Returns
// wasHit=true only on an actual cache hit. A ttl≤0 always calls
// producer directly, bypassing both the store and single-flight.
//
// Invariants upheld: a miss followed by a successful producer call
// writes exactly once with the producer's value and the given ttl;
// serialization/deserialization failures degrade to a direct producer
// call; producer errors propagate to the caller; a successful
// producer result is always returned even if the subsequent write
// fails.
func (c *SmartCache) GetOrSet(key string, ttl time.Duration, producer Producer) (interface{}, bool, error) {
	if ttl <= 0 {
		v, err := producer()
		return v, false, err
	}

	var cached interface{}
	if c.Get(key, &cached) {
		return cached, true, nil
	}

	result, err := c.sf.do(key, func() (interface{}, error) {
		var raced interface{}
		if c.Get(key, &raced) {
			return raced, nil
		}
		v, err := producer()
		if err != nil {
			return nil, err
		}
		c.writeOnce(key, v, ttl)
		return v, nil
	})
	if err != nil {
		return nil, false, err
	}
	return result, false, nil
}

// writeOnce persists v under key using SetNX so a concurrent writer
// that already populated the key (e.g. a different process) is not
// overwritten. A serialization failure logs and is otherwise silent —
// the caller already has the value in hand.
func (c *SmartCache) writeOnce(key string, v interface{}, ttl time.Duration) {
	raw, err := json.Marshal(v)
	if err != nil {
		c.log.Warn("cache value not serializable, skipping write", "key", key, "error", err)
		return
	}
	if _, err := c.store.SetNX(key, raw, ttl); err != nil {
		c.log.Warn("cache write failed", "key", key, "error", err)
	}
}

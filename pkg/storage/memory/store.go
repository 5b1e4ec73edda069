// Package memory (storage) is the map-backed reference implementation
// of the §3 persisted-state interfaces (types.UserProfileStore,
// types.InteractionHistoryStore, types.SessionStore), the default for
// tests and for the cmd/ demo wiring without a Postgres instance
// configured (§6.1). Grounded on the teacher's session.Manager
// (RWMutex-guarded map, sessions created/read/expired in place).
package memory

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/marketing-ai/thinkengine/pkg/types"
)

// ProfileStore is an in-memory types.UserProfileStore.
type ProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]types.UserProfile
}

// NewProfileStore builds an empty ProfileStore.
func NewProfileStore() *ProfileStore {
	return &ProfileStore{profiles: map[string]types.UserProfile{}}
}

// Get returns userID's profile, or a bare default profile if none was
// ever upserted — the Memory Service always has something to render.
func (s *ProfileStore) Get(userID string) (*types.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.profiles[userID]; ok {
		cp := p
		return &cp, nil
	}
	return &types.UserProfile{UserID: userID, Tags: []string{}}, nil
}

// Upsert replaces userID's stored profile wholesale.
func (s *ProfileStore) Upsert(profile *types.UserProfile) error {
	if profile == nil || profile.UserID == "" {
		return fmt.Errorf("storage/memory: profile requires a user_id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	profile.UpdatedAt = time.Now()
	if profile.CreatedAt.IsZero() {
		if existing, ok := s.profiles[profile.UserID]; ok {
			profile.CreatedAt = existing.CreatedAt
		} else {
			profile.CreatedAt = profile.UpdatedAt
		}
	}
	s.profiles[profile.UserID] = *profile
	return nil
}

// InteractionStore is an in-memory, append-only types.InteractionHistoryStore.
type InteractionStore struct {
	mu      sync.RWMutex
	entries []types.InteractionHistory
}

// NewInteractionStore builds an empty InteractionStore.
func NewInteractionStore() *InteractionStore {
	return &InteractionStore{}
}

// Append adds entry to the log. Append-only: never mutates or removes
// an existing row.
func (s *InteractionStore) Append(entry types.InteractionHistory) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

// Recent selects up to limit of userID's newest rows, preferring
// sessionID's rows when non-empty (§4.2's "get_recent_conversation_text
// ... biased to the same session when provided"), and returns them
// oldest first.
func (s *InteractionStore) Recent(userID, sessionID string, limit int) ([]types.InteractionHistory, error) {
	if limit <= 0 {
		limit = 5
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sameSession, other []types.InteractionHistory
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if e.UserID != userID {
			continue
		}
		if sessionID != "" && e.SessionID == sessionID {
			sameSession = append(sameSession, e)
		} else {
			other = append(other, e)
		}
	}
	combined := append(sameSession, other...)
	if len(combined) > limit {
		combined = combined[:limit]
	}
	// Return chronological order (oldest first) for transcript
	// rendering, matching the Memory Service's auxiliary view contract.
	sort.SliceStable(combined, func(i, j int) bool {
		return combined[i].CreatedAt.Before(combined[j].CreatedAt)
	})
	return combined, nil
}

// RecordFeedback mutates the most recent matching row's rating/comment
// — the only mutation append-only InteractionHistory ever permits
// (§3 lifecycle: "rating/comment mutated only through the feedback
// path").
func (s *InteractionStore) RecordFeedback(userID, sessionID string, createdAt time.Time, rating *int, comment string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := &s.entries[i]
		if e.UserID == userID && e.SessionID == sessionID && e.CreatedAt.Equal(createdAt) {
			e.UserRating = rating
			e.UserComment = comment
			return nil
		}
	}
	return fmt.Errorf("storage/memory: no interaction found for %s/%s at %s", userID, sessionID, createdAt)
}

// SessionStore is an in-memory types.SessionStore with the two
// newest-first indices (user→threads, thread→sessions) from §3.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]sessionEntry
	byUser   map[string][]string // userID -> threadIDs, newest first
	byThread map[string][]string // threadID -> sessionIDs, newest first
}

type sessionEntry struct {
	record  types.SessionRecord
	expires time.Time
}

// NewSessionStore builds an empty SessionStore.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: map[string]sessionEntry{},
		byUser:   map[string][]string{},
		byThread: map[string][]string{},
	}
}

// Create stores rec with ttl and prepends it to both indices.
func (s *SessionStore) Create(rec types.SessionRecord, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[rec.SessionID] = sessionEntry{record: rec, expires: time.Now().Add(ttl)}
	s.byUser[rec.UserID] = prepend(s.byUser[rec.UserID], rec.ThreadID)
	s.byThread[rec.ThreadID] = prepend(s.byThread[rec.ThreadID], rec.SessionID)
	return nil
}

func prepend(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append([]string{v}, list...)
}

// Get returns sessionID's record, or nil if absent or TTL-expired.
func (s *SessionStore) Get(sessionID string) (*types.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.sessions[sessionID]
	if !ok || time.Now().After(entry.expires) {
		return nil, nil
	}
	cp := entry.record
	return &cp, nil
}

// ThreadsForUser returns up to limit thread IDs, newest first.
func (s *SessionStore) ThreadsForUser(userID string, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.byUser[userID]
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return append([]string(nil), list...), nil
}

// SessionsForThread returns up to limit session IDs, newest first.
func (s *SessionStore) SessionsForThread(threadID string, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.byThread[threadID]
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return append([]string(nil), list...), nil
}

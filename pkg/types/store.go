package types

import "time"

// CacheEntry is the shape persisted by the Smart Cache's backing store.
type CacheEntry struct {
	Key        string
	Value      []byte // JSON
	TTLSeconds int
}

// BrandFact is one fact known about the user's brand, ranked by
// Category for display priority in the Memory Service's preference
// block.
type BrandFact struct {
	Fact     string `json:"fact"`
	Category string `json:"category"`
}

// SuccessCase is a past campaign the Memory Service may surface.
type SuccessCase struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Outcome     string `json:"outcome"`
}

// UserProfile is the read-mostly view the core consumes; the relational
// store that owns it is out of scope (see SPEC_FULL.md §6.1 for the
// reference adapter).
type UserProfile struct {
	UserID          string        `json:"user_id"`
	BrandName       string        `json:"brand_name,omitempty"`
	Industry        string        `json:"industry,omitempty"`
	PreferredStyle  string        `json:"preferred_style,omitempty"`
	Tags            []string      `json:"tags"`
	BrandFacts      []BrandFact   `json:"brand_facts"`
	SuccessCases    []SuccessCase `json:"success_cases"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// InteractionHistory is one append-only row per assistant turn.
type InteractionHistory struct {
	UserID      string    `json:"user_id"`
	SessionID   string    `json:"session_id"`
	UserInput   string    `json:"user_input"` // serialized ProcessedInput JSON
	AIOutput    string    `json:"ai_output"`
	CreatedAt   time.Time `json:"created_at"`
	UserRating  *int      `json:"user_rating,omitempty"`
	UserComment string    `json:"user_comment,omitempty"`
}

// SessionRecord is the external KV-backed session record.
type SessionRecord struct {
	SessionID   string                 `json:"session_id"`
	UserID      string                 `json:"user_id"`
	ThreadID    string                 `json:"thread_id"`
	CreatedAt   time.Time              `json:"created_at"`
	InitialData map[string]interface{} `json:"initial_data"`
}

// UserProfileStore is the interface the Memory Service consumes;
// pkg/storage/postgres and pkg/storage/memory implement it.
type UserProfileStore interface {
	Get(userID string) (*UserProfile, error)
	Upsert(profile *UserProfile) error
}

// InteractionHistoryStore is append-only, rating/comment mutated only
// through the feedback path.
type InteractionHistoryStore interface {
	Append(entry InteractionHistory) error
	Recent(userID, sessionID string, limit int) ([]InteractionHistory, error)
	RecordFeedback(userID, sessionID string, createdAt time.Time, rating *int, comment string) error
}

// SessionStore backs SessionRecord plus its two newest-first indices.
type SessionStore interface {
	Create(rec SessionRecord, ttl time.Duration) error
	Get(sessionID string) (*SessionRecord, error)
	ThreadsForUser(userID string, limit int) ([]string, error)
	SessionsForThread(threadID string, limit int) ([]string, error)
}

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marketing-ai/thinkengine/pkg/types"
)

// Config mirrors the teacher's pool-sizing knobs (db.Config): a DSN plus
// conservative connection-count defaults suitable for a PgBouncer front.
type Config struct {
	DSN      string
	MaxConns int32
	MinConns int32
}

// Pool wraps a pgxpool.Pool and hands out the three store adapters below;
// all three share one pool rather than opening a connection each.
type Pool struct {
	pool *pgxpool.Pool
}

// Open parses cfg.DSN, applies the pool-sizing defaults and pings once so
// construction fails fast instead of on the first query.
func Open(ctx context.Context, cfg Config) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	} else {
		poolCfg.MaxConns = 10
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	} else {
		poolCfg.MinConns = 2
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Pool{pool: pool}, nil
}

// Close releases every pooled connection.
func (p *Pool) Close() { p.pool.Close() }

// Profiles returns a types.UserProfileStore backed by this pool.
func (p *Pool) Profiles() *ProfileStore { return &ProfileStore{pool: p.pool} }

// Interactions returns a types.InteractionHistoryStore backed by this pool.
func (p *Pool) Interactions() *InteractionStore { return &InteractionStore{pool: p.pool} }

// Sessions returns a types.SessionStore backed by this pool.
func (p *Pool) Sessions() *SessionStore { return &SessionStore{pool: p.pool} }

// ProfileStore is the pgx-backed types.UserProfileStore.
type ProfileStore struct{ pool *pgxpool.Pool }

// Get loads userID's profile, or a bare default profile if no row exists
// — matching pkg/storage/memory.ProfileStore.Get so callers never need
// to special-case "no profile yet" across the two adapters.
func (s *ProfileStore) Get(userID string) (*types.UserProfile, error) {
	ctx := context.Background()
	var (
		profile             types.UserProfile
		tagsJSON, factsJSON []byte
		casesJSON           []byte
	)
	profile.UserID = userID
	row := s.pool.QueryRow(ctx, `
		SELECT brand_name, industry, preferred_style, tags, brand_facts, success_cases, created_at, updated_at
		FROM user_profiles WHERE user_id = $1`, userID)
	err := row.Scan(&profile.BrandName, &profile.Industry, &profile.PreferredStyle,
		&tagsJSON, &factsJSON, &casesJSON, &profile.CreatedAt, &profile.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		profile.Tags = []string{}
		return &profile, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get profile %s: %w", userID, err)
	}
	if err := unmarshalIfSet(tagsJSON, &profile.Tags); err != nil {
		return nil, err
	}
	if err := unmarshalIfSet(factsJSON, &profile.BrandFacts); err != nil {
		return nil, err
	}
	if err := unmarshalIfSet(casesJSON, &profile.SuccessCases); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Upsert inserts or replaces userID's profile row wholesale.
func (s *ProfileStore) Upsert(profile *types.UserProfile) error {
	if profile == nil || profile.UserID == "" {
		return fmt.Errorf("postgres: profile requires a user_id")
	}
	tags, err := json.Marshal(nonNilStrings(profile.Tags))
	if err != nil {
		return fmt.Errorf("postgres: marshal tags: %w", err)
	}
	facts, err := json.Marshal(nonNilFacts(profile.BrandFacts))
	if err != nil {
		return fmt.Errorf("postgres: marshal brand_facts: %w", err)
	}
	cases, err := json.Marshal(nonNilCases(profile.SuccessCases))
	if err != nil {
		return fmt.Errorf("postgres: marshal success_cases: %w", err)
	}

	_, err = s.pool.Exec(context.Background(), `
		INSERT INTO user_profiles (user_id, brand_name, industry, preferred_style, tags, brand_facts, success_cases, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		ON CONFLICT (user_id) DO UPDATE SET
			brand_name = EXCLUDED.brand_name,
			industry = EXCLUDED.industry,
			preferred_style = EXCLUDED.preferred_style,
			tags = EXCLUDED.tags,
			brand_facts = EXCLUDED.brand_facts,
			success_cases = EXCLUDED.success_cases,
			updated_at = now()`,
		profile.UserID, profile.BrandName, profile.Industry, profile.PreferredStyle, tags, facts, cases)
	if err != nil {
		return fmt.Errorf("postgres: upsert profile %s: %w", profile.UserID, err)
	}
	return nil
}

// InteractionStore is the pgx-backed, append-only types.InteractionHistoryStore.
type InteractionStore struct{ pool *pgxpool.Pool }

// Append inserts one row; a zero created_at is replaced with the current
// time before the insert.
func (s *InteractionStore) Append(entry types.InteractionHistory) error {
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.pool.Exec(context.Background(), `
		INSERT INTO interaction_histories (user_id, session_id, user_input, ai_output, created_at, user_rating, user_comment)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.UserID, entry.SessionID, entry.UserInput, entry.AIOutput, createdAt, entry.UserRating, entry.UserComment)
	if err != nil {
		return fmt.Errorf("postgres: append interaction: %w", err)
	}
	return nil
}

// Recent returns up to limit rows for userID, biased to sessionID when
// given, oldest first — mirroring pkg/storage/memory.InteractionStore.Recent.
func (s *InteractionStore) Recent(userID, sessionID string, limit int) ([]types.InteractionHistory, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.pool.Query(context.Background(), `
		SELECT user_id, session_id, user_input, ai_output, created_at, user_rating, user_comment
		FROM interaction_histories
		WHERE user_id = $1
		ORDER BY (session_id = $2) DESC, created_at DESC
		LIMIT $3`, userID, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: recent interactions for %s: %w", userID, err)
	}
	defer rows.Close()

	var out []types.InteractionHistory
	for rows.Next() {
		var e types.InteractionHistory
		if err := rows.Scan(&e.UserID, &e.SessionID, &e.UserInput, &e.AIOutput, &e.CreatedAt, &e.UserRating, &e.UserComment); err != nil {
			return nil, fmt.Errorf("postgres: scan interaction: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Chronological order for transcript rendering, same contract as the
	// in-memory adapter.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// RecordFeedback mutates the matching row's rating/comment in place —
// the only permitted mutation of an append-only history row.
func (s *InteractionStore) RecordFeedback(userID, sessionID string, createdAt time.Time, rating *int, comment string) error {
	tag, err := s.pool.Exec(context.Background(), `
		UPDATE interaction_histories
		SET user_rating = $1, user_comment = $2
		WHERE user_id = $3 AND session_id = $4 AND created_at = $5`,
		rating, comment, userID, sessionID, createdAt)
	if err != nil {
		return fmt.Errorf("postgres: record feedback: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: no interaction found for %s/%s at %s", userID, sessionID, createdAt)
	}
	return nil
}

// SessionStore is the pgx-backed types.SessionStore; the two newest-first
// indices the in-memory adapter keeps in maps are ordinary indexed
// queries here (idx_sessions_user_thread, idx_sessions_thread).
type SessionStore struct{ pool *pgxpool.Pool }

// Create inserts rec with an expires_at computed from ttl.
func (s *SessionStore) Create(rec types.SessionRecord, ttl time.Duration) error {
	data, err := json.Marshal(nonNilMap(rec.InitialData))
	if err != nil {
		return fmt.Errorf("postgres: marshal initial_data: %w", err)
	}
	_, err = s.pool.Exec(context.Background(), `
		INSERT INTO sessions (session_id, user_id, thread_id, created_at, expires_at, initial_data)
		VALUES ($1, $2, $3, now(), now() + $4, $5)
		ON CONFLICT (session_id) DO UPDATE SET expires_at = EXCLUDED.expires_at`,
		rec.SessionID, rec.UserID, rec.ThreadID, ttl, data)
	if err != nil {
		return fmt.Errorf("postgres: create session %s: %w", rec.SessionID, err)
	}
	return nil
}

// Get returns sessionID's record, or nil if absent or TTL-expired.
func (s *SessionStore) Get(sessionID string) (*types.SessionRecord, error) {
	var (
		rec      types.SessionRecord
		dataJSON []byte
		expires  time.Time
	)
	row := s.pool.QueryRow(context.Background(), `
		SELECT session_id, user_id, thread_id, created_at, expires_at, initial_data
		FROM sessions WHERE session_id = $1`, sessionID)
	err := row.Scan(&rec.SessionID, &rec.UserID, &rec.ThreadID, &rec.CreatedAt, &expires, &dataJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get session %s: %w", sessionID, err)
	}
	if time.Now().After(expires) {
		return nil, nil
	}
	if err := unmarshalIfSet(dataJSON, &rec.InitialData); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ThreadsForUser returns up to limit distinct thread IDs for userID,
// newest first.
func (s *SessionStore) ThreadsForUser(userID string, limit int) ([]string, error) {
	return s.distinctIDs(`
		SELECT thread_id FROM sessions
		WHERE user_id = $1 AND expires_at > now()
		ORDER BY created_at DESC`, userID, limit)
}

// SessionsForThread returns up to limit session IDs for threadID, newest
// first.
func (s *SessionStore) SessionsForThread(threadID string, limit int) ([]string, error) {
	return s.distinctIDs(`
		SELECT session_id FROM sessions
		WHERE thread_id = $1 AND expires_at > now()
		ORDER BY created_at DESC`, threadID, limit)
}

func (s *SessionStore) distinctIDs(query, key string, limit int) ([]string, error) {
	rows, err := s.pool.Query(context.Background(), query, key)
	if err != nil {
		return nil, fmt.Errorf("postgres: query session ids: %w", err)
	}
	defer rows.Close()

	seen := map[string]bool{}
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("postgres: scan session id: %w", err)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, rows.Err()
}

func unmarshalIfSet(data []byte, v interface{}) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("postgres: unmarshal: %w", err)
	}
	return nil
}

func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func nonNilFacts(v []types.BrandFact) []types.BrandFact {
	if v == nil {
		return []types.BrandFact{}
	}
	return v
}

func nonNilCases(v []types.SuccessCase) []types.SuccessCase {
	if v == nil {
		return []types.SuccessCase{}
	}
	return v
}

func nonNilMap(v map[string]interface{}) map[string]interface{} {
	if v == nil {
		return map[string]interface{}{}
	}
	return v
}

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/marketing-ai/thinkengine/pkg/types"
)

// newTestPool starts a throwaway Postgres container, applies the
// embedded migrations, and opens a Pool against it.
func newTestPool(t *testing.T) *Pool {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, Migrate(dsn))

	pool, err := Open(ctx, Config{DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return pool
}

func TestProfileStore_UpsertThenGet(t *testing.T) {
	pool := newTestPool(t)
	store := pool.Profiles()

	profile := &types.UserProfile{
		UserID:         "u1",
		BrandName:      "Acme",
		Industry:       "toys",
		PreferredStyle: "playful",
		Tags:           []string{"seasonal", "family"},
		BrandFacts:     []types.BrandFact{{Fact: "eco-friendly packaging", Category: "sustainability"}},
		SuccessCases:   []types.SuccessCase{{Title: "Spring launch", Description: "new line", Outcome: "+20% sales"}},
	}
	require.NoError(t, store.Upsert(profile))

	got, err := store.Get("u1")
	require.NoError(t, err)
	require.Equal(t, "Acme", got.BrandName)
	require.Equal(t, []string{"seasonal", "family"}, got.Tags)
	require.Len(t, got.BrandFacts, 1)
	require.Equal(t, "eco-friendly packaging", got.BrandFacts[0].Fact)
	require.Len(t, got.SuccessCases, 1)

	got.Industry = "games"
	require.NoError(t, store.Upsert(got))
	updated, err := store.Get("u1")
	require.NoError(t, err)
	require.Equal(t, "games", updated.Industry)
}

func TestProfileStore_GetReturnsDefaultWhenAbsent(t *testing.T) {
	pool := newTestPool(t)
	got, err := pool.Profiles().Get("missing")
	require.NoError(t, err)
	require.Equal(t, "missing", got.UserID)
	require.Empty(t, got.Tags)
}

func TestInteractionStore_AppendRecentAndFeedback(t *testing.T) {
	pool := newTestPool(t)
	store := pool.Interactions()

	first := time.Now().Add(-time.Minute)
	require.NoError(t, store.Append(types.InteractionHistory{UserID: "u1", SessionID: "s1", UserInput: "hi", AIOutput: "hello", CreatedAt: first}))
	second := time.Now()
	require.NoError(t, store.Append(types.InteractionHistory{UserID: "u1", SessionID: "s1", UserInput: "plan a campaign", AIOutput: "sure", CreatedAt: second}))

	recent, err := store.Recent("u1", "s1", 5)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.True(t, recent[0].CreatedAt.Before(recent[1].CreatedAt))

	rating := 4
	require.NoError(t, store.RecordFeedback("u1", "s1", second, &rating, "useful"))

	recent, err = store.Recent("u1", "s1", 5)
	require.NoError(t, err)
	require.NotNil(t, recent[1].UserRating)
	require.Equal(t, 4, *recent[1].UserRating)
	require.Equal(t, "useful", recent[1].UserComment)
}

func TestSessionStore_CreateGetAndIndices(t *testing.T) {
	pool := newTestPool(t)
	store := pool.Sessions()

	require.NoError(t, store.Create(types.SessionRecord{
		SessionID: "sess1", UserID: "u1", ThreadID: "th1",
		InitialData: map[string]interface{}{"topic": "launch"},
	}, time.Hour))
	require.NoError(t, store.Create(types.SessionRecord{SessionID: "sess2", UserID: "u1", ThreadID: "th2"}, time.Hour))

	got, err := store.Get("sess1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "launch", got.InitialData["topic"])

	threads, err := store.ThreadsForUser("u1", 0)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"th1", "th2"}, threads)

	sessions, err := store.SessionsForThread("th1", 0)
	require.NoError(t, err)
	require.Equal(t, []string{"sess1"}, sessions)
}

func TestSessionStore_ExpiredSessionIsHidden(t *testing.T) {
	pool := newTestPool(t)
	store := pool.Sessions()

	require.NoError(t, store.Create(types.SessionRecord{SessionID: "gone", UserID: "u1", ThreadID: "th1"}, -time.Second))
	got, err := store.Get("gone")
	require.NoError(t, err)
	require.Nil(t, got)
}

package draft

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/portfolio-api/internal/workflow"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mini, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mini.Close)

	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStore(client, time.Hour, zerolog.Nop()), mini
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store, mini := newRedisStore(t)
	ctx := context.Background()
	key := Key{UserID: 3, DraftID: NewDraftID}

	_, ok := store.Load(ctx, key)
	require.False(t, ok)

	store.Save(ctx, key, Draft{
		Values: workflow.Values{Title: "Robot arm", YouTubeLinks: []workflow.YouTubeLink{{URL: "https://youtu.be/r", Title: "demo"}}},
		Step:   workflow.StepRoleOriginality,
	})
	require.True(t, mini.Exists("draft:3:new"))
	require.Equal(t, time.Hour, mini.TTL("draft:3:new"))

	loaded, ok := store.Load(ctx, key)
	require.True(t, ok)
	require.Equal(t, workflow.StepRoleOriginality, loaded.Step)
	require.Equal(t, "Robot arm", loaded.Values.Title)
	require.Len(t, loaded.Values.ExternalLinks, 1)
	require.False(t, loaded.SavedAt.IsZero())
}

func TestRedisStoreLastWriteWins(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()
	key := Key{UserID: 1, DraftID: "abc"}

	store.Save(ctx, key, Draft{Values: workflow.Values{Title: "first"}, Step: workflow.StepBasicInfo})
	store.Save(ctx, key, Draft{Values: workflow.Values{Title: "second"}, Step: workflow.StepSkillsReflection})

	loaded, ok := store.Load(ctx, key)
	require.True(t, ok)
	require.Equal(t, "second", loaded.Values.Title)
}

func TestRedisStoreDiscardsCorruptPayload(t *testing.T) {
	store, mini := newRedisStore(t)
	ctx := context.Background()
	key := Key{UserID: 9, DraftID: "x"}

	require.NoError(t, mini.Set(key.String(), "{not json"))
	_, ok := store.Load(ctx, key)
	require.False(t, ok)
	require.False(t, mini.Exists(key.String()))

	require.NoError(t, mini.Set(key.String(), `{"values":{},"step":"checkout"}`))
	_, ok = store.Load(ctx, key)
	require.False(t, ok)
	require.False(t, mini.Exists(key.String()))
}

func TestRedisStoreSwallowsBackendErrors(t *testing.T) {
	store, mini := newRedisStore(t)
	mini.Close()

	ctx := context.Background()
	key := Key{UserID: 2}
	require.NotPanics(t, func() {
		store.Save(ctx, key, Draft{Step: workflow.StepBasicInfo})
		store.Clear(ctx, key)
	})
	_, ok := store.Load(ctx, key)
	require.False(t, ok)
}

func TestMemoryStoreClear(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	key := Key{UserID: 5, DraftID: "a1"}

	store.Save(ctx, key, Draft{Step: workflow.StepProcessChallenges})
	_, ok := store.Load(ctx, key)
	require.True(t, ok)

	store.Clear(ctx, key)
	_, ok = store.Load(ctx, key)
	require.False(t, ok)
}

func TestKeyDefaultsToNewDraft(t *testing.T) {
	require.Equal(t, "draft:4:new", Key{UserID: 4}.String())
}

package game

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests need a live Redis; set REDIS_TEST_ADDR to run them.
func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())
	return client
}

func TestRedisStore_Directory(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()
	roomID := uuid.NewString()

	shardA := NewRedisStore(client, "shard-a", time.Minute)
	shardB := NewRedisStore(client, "shard-b", time.Minute)

	_, err := shardA.Lookup(ctx, roomID)
	require.ErrorIs(t, err, ErrRoomNotFound)

	require.NoError(t, shardA.Register(ctx, roomID))
	owner, err := shardB.Lookup(ctx, roomID)
	require.NoError(t, err)
	assert.Equal(t, "shard-a", owner)

	require.NoError(t, shardB.Unregister(ctx, roomID))
	owner, err = shardA.Lookup(ctx, roomID)
	require.NoError(t, err)
	assert.Equal(t, "shard-a", owner, "only the owner may unregister")

	require.NoError(t, shardA.Unregister(ctx, roomID))
	_, err = shardA.Lookup(ctx, roomID)
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestRedisStore_RecordMatch(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()
	store := NewRedisStore(client, "shard-a", time.Minute)

	before, err := client.XLen(ctx, MatchResultsStream).Result()
	require.NoError(t, err)

	require.NoError(t, store.RecordMatch(ctx, MatchResult{
		RoomID:   uuid.NewString(),
		GameSlug: "tap-speed",
		WinnerID: "a",
		EndTime:  time.Now(),
		Scores:   map[string]int{"a": 120, "b": 95},
	}))

	after, err := client.XLen(ctx, MatchResultsStream).Result()
	require.NoError(t, err)
	assert.Equal(t, before+1, after)
}

func TestNewMatchResult(t *testing.T) {
	end := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	result := newMatchResult(RoomSnapshot{
		ID:       "room",
		GameSlug: "tap-speed",
		Players: []PlayerState{
			{ID: "a", Score: 120},
			{ID: "b", Score: 95},
		},
		State: GameState{Status: StatusFinished, EndTime: &end, Winner: "a"},
	})

	assert.Equal(t, "room", result.RoomID)
	assert.Equal(t, "a", result.WinnerID)
	assert.Equal(t, end, result.EndTime)
	assert.Equal(t, map[string]int{"a": 120, "b": 95}, result.Scores)
}

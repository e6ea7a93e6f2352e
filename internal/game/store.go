package game

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	roomDirectoryPrefix = "grepcoin:room:"
	MatchResultsStream  = "grepcoin:match-results"
)

// RoomDirectory records which coordinator instance holds a room, so a sticky
// router can send clients to the right shard. Room state is never stored.
type RoomDirectory interface {
	Register(ctx context.Context, roomID string) error
	Unregister(ctx context.Context, roomID string) error
	Lookup(ctx context.Context, roomID string) (string, error)
}

// MatchRecorder hands finished matches to downstream consumers (rewards,
// leaderboards).
type MatchRecorder interface {
	RecordMatch(ctx context.Context, result MatchResult) error
}

type MatchResult struct {
	RoomID    string         `json:"roomId"`
	GameSlug  string         `json:"gameSlug"`
	WinnerID  string         `json:"winnerId,omitempty"`
	StartTime *time.Time     `json:"startTime,omitempty"`
	EndTime   time.Time      `json:"endTime"`
	Scores    map[string]int `json:"scores"`
	Players   []PlayerState  `json:"players"`
}

func newMatchResult(snapshot RoomSnapshot) MatchResult {
	scores := make(map[string]int, len(snapshot.Players))
	for _, p := range snapshot.Players {
		scores[p.ID] = p.Score
	}
	result := MatchResult{
		RoomID:    snapshot.ID,
		GameSlug:  snapshot.GameSlug,
		WinnerID:  snapshot.State.Winner,
		StartTime: snapshot.State.StartTime,
		Scores:    scores,
		Players:   snapshot.Players,
	}
	if snapshot.State.EndTime != nil {
		result.EndTime = *snapshot.State.EndTime
	}
	return result
}

type RedisStore struct {
	redis      *redis.Client
	instanceID string
	ttl        time.Duration
}

func NewRedisStore(redisClient *redis.Client, instanceID string, ttl time.Duration) *RedisStore {
	return &RedisStore{
		redis:      redisClient,
		instanceID: instanceID,
		ttl:        ttl,
	}
}

func (store *RedisStore) GetRedis() *redis.Client {
	return store.redis
}

func (store *RedisStore) Register(ctx context.Context, roomID string) error {
	if err := store.redis.Set(ctx, roomDirectoryPrefix+roomID, store.instanceID, store.ttl).Err(); err != nil {
		log.Error().Err(err).Msg("Failed to save room owner to Redis.")
		return err
	}
	return nil
}

// Unregister deletes the entry only while this instance still owns it.
func (store *RedisStore) Unregister(ctx context.Context, roomID string) error {
	key := roomDirectoryPrefix + roomID

	for {
		err := store.redis.Watch(ctx, func(tx *redis.Tx) error {
			owner, err := tx.Get(ctx, key).Result()
			if err == redis.Nil {
				return nil
			}
			if err != nil {
				return err
			}
			if owner != store.instanceID {
				return nil
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				return nil
			})
			return err
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
}

func (store *RedisStore) Lookup(ctx context.Context, roomID string) (string, error) {
	owner, err := store.redis.Get(ctx, roomDirectoryPrefix+roomID).Result()
	if err == redis.Nil {
		return "", ErrRoomNotFound
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to get room owner from Redis.")
		return "", err
	}
	return owner, nil
}

func (store *RedisStore) RecordMatch(ctx context.Context, result MatchResult) error {
	serialized, err := json.Marshal(result)
	if err != nil {
		log.Error().Err(err).Msg("Failed to serialize match result.")
		return err
	}

	return store.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: MatchResultsStream,
		Values: map[string]any{
			"roomId":   result.RoomID,
			"gameSlug": result.GameSlug,
			"winnerId": result.WinnerID,
			"endTime":  result.EndTime.Format(time.RFC3339Nano),
			"instance": store.instanceID,
			"result":   string(serialized),
		},
	}).Err()
}

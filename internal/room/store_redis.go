package room

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	roomKeyPrefix     = "chess2:room:"
	defaultSessionTTL = 24 * time.Hour

	// Attempts before giving up on a contended optimistic transaction.
	mutateRetries = 5
)

// RedisStore persists sessions as JSON values with a sliding TTL. Mutations
// run under WATCH, so two writers racing on the same room never interleave:
// the loser's transaction fails and is retried on fresh state.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore wraps an established client. A non-positive ttl selects the
// default of 24 hours.
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func roomKey(roomID string) string {
	return roomKeyPrefix + strings.TrimSpace(roomID)
}

func (s *RedisStore) Create(ctx context.Context, sess *GameSession) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	ok, err := s.rdb.SetNX(ctx, roomKey(sess.ID), raw, s.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("room %s already exists", sess.ID)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, roomID string) (*GameSession, error) {
	raw, err := s.rdb.Get(ctx, roomKey(roomID)).Bytes()
	if err == redis.Nil {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeSession(raw)
}

func (s *RedisStore) Mutate(ctx context.Context, roomID string, fn func(*GameSession) error) (*GameSession, error) {
	key := roomKey(roomID)
	var out *GameSession
	for attempt := 0; attempt < mutateRetries; attempt++ {
		err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			raw, err := tx.Get(ctx, key).Bytes()
			if err == redis.Nil {
				return ErrRoomNotFound
			}
			if err != nil {
				return err
			}
			cur, err := decodeSession(raw)
			if err != nil {
				return err
			}
			if err := fn(cur); err != nil {
				return err
			}
			next, err := json.Marshal(cur)
			if err != nil {
				return fmt.Errorf("marshal session: %w", err)
			}
			pipe := tx.TxPipeline()
			pipe.Set(ctx, key, next, s.ttl)
			if _, err := pipe.Exec(ctx); err != nil {
				return err
			}
			out = cur
			return nil
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, fmt.Errorf("room %s: too many concurrent updates", roomID)
}

func (s *RedisStore) Delete(ctx context.Context, roomID string) error {
	return s.rdb.Del(ctx, roomKey(roomID)).Err()
}

func decodeSession(raw []byte) (*GameSession, error) {
	var sess GameSession
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

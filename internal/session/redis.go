package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "authform:session:"

// RedisStore keeps sessions as JSON blobs whose key expires with the session.
type RedisStore struct {
	client redis.UniversalClient
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) PutSession(
	ctx context.Context,
	session *Session,
) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return ErrSessionExpired
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("couldn't encode session: %v", err)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+session.ID, data, ttl).Err(); err != nil {
		return fmt.Errorf("couldn't store session: %w", err)
	}
	return nil
}

func (s *RedisStore) GetSession(
	ctx context.Context,
	id string,
) (
	*Session,
	error,
) {
	data, err := s.client.Get(ctx, redisKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("couldn't read session: %w", err)
	}

	session := &Session{}
	if err := json.Unmarshal(data, session); err != nil {
		return nil, fmt.Errorf("couldn't decode session: %v", err)
	}
	return session, nil
}

func (s *RedisStore) DeleteSession(
	ctx context.Context,
	id string,
) (
	bool,
	error,
) {
	n, err := s.client.Del(ctx, redisKeyPrefix+id).Result()
	if err != nil {
		return false, fmt.Errorf("couldn't delete session: %w", err)
	}
	return n > 0, nil
}

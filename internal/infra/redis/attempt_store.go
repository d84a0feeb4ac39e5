package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mcq-quiz-service/internal/domain"

	"github.com/redis/go-redis/v9"
)

var errEmptyAttempt = errors.New("attempt has no id")

// AttemptStore keeps issued attempts in Redis so any instance can grade a submission.
// Keys expire after ttl, which also bounds how long a test may stay open.
type AttemptStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewAttemptStore(client *redis.Client, ttl time.Duration) *AttemptStore {
	return &AttemptStore{client: client, ttl: ttl}
}

func (s *AttemptStore) Save(ctx context.Context, attempt domain.Attempt) error {
	if attempt.ID == "" {
		return errEmptyAttempt
	}
	payload, err := json.Marshal(attempt)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(attempt.ID), payload, s.ttl).Err()
}

func (s *AttemptStore) Get(ctx context.Context, id string) (domain.Attempt, error) {
	payload, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.Attempt{}, err
	}
	var attempt domain.Attempt
	if err := json.Unmarshal(payload, &attempt); err != nil {
		return domain.Attempt{}, fmt.Errorf("decode attempt %s: %w", id, err)
	}
	return attempt, nil
}

func (s *AttemptStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.key(id)).Err()
}

func (s *AttemptStore) key(id string) string {
	return "quiz:attempt:" + id
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/enroll-web/internal/config"
)

// SessionRepository tracks live login sessions by token id.
type SessionRepository interface {
	Save(ctx context.Context, tokenID string, studentID int, ttl time.Duration) error
	// Lookup returns the student id of a live session or ErrNotFound.
	Lookup(ctx context.Context, tokenID string) (int, error)
	Delete(ctx context.Context, tokenID string) error
}

type redisSessionRepository struct {
	rdb *redis.Client
}

// NewSessionRepository creates a Redis-backed SessionRepository.
func NewSessionRepository(rdb *redis.Client) SessionRepository {
	return &redisSessionRepository{rdb: rdb}
}

func (r *redisSessionRepository) Save(ctx context.Context, tokenID string, studentID int, ttl time.Duration) error {
	key := config.CacheKey.SessionKey(tokenID)
	if err := r.rdb.Set(ctx, key, strconv.Itoa(studentID), ttl).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func (r *redisSessionRepository) Lookup(ctx context.Context, tokenID string) (int, error) {
	val, err := r.rdb.Get(ctx, config.CacheKey.SessionKey(tokenID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("check session: %w", err)
	}
	id, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("corrupt session value %q: %w", val, err)
	}
	return id, nil
}

func (r *redisSessionRepository) Delete(ctx context.Context, tokenID string) error {
	return r.rdb.Del(ctx, config.CacheKey.SessionKey(tokenID)).Err()
}

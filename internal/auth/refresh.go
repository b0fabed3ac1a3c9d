package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrRefreshNotFound = errors.New("refresh session not found")

// RefreshStore keeps refresh sessions. A refresh token is an opaque id that
// maps to the user it was issued to until it expires or is revoked.
type RefreshStore interface {
	Issue(ctx context.Context, userID int64, ttl time.Duration) (string, error)
	Lookup(ctx context.Context, token string) (int64, error)
	Revoke(ctx context.Context, token string) error
}

type RedisRefreshStore struct {
	client *redis.Client
	prefix string
}

func NewRedisRefreshStore(client *redis.Client) *RedisRefreshStore {
	return &RedisRefreshStore{
		client: client,
		prefix: "refresh:",
	}
}

func (r *RedisRefreshStore) key(token string) string {
	return r.prefix + token
}

func (r *RedisRefreshStore) Issue(ctx context.Context, userID int64, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", fmt.Errorf("refresh: ttl must be positive")
	}
	token := uuid.NewString()
	if err := r.client.Set(ctx, r.key(token), strconv.FormatInt(userID, 10), ttl).Err(); err != nil {
		return "", fmt.Errorf("refresh: store: %w", err)
	}
	return token, nil
}

func (r *RedisRefreshStore) Lookup(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, ErrRefreshNotFound
	}
	val, err := r.client.Get(ctx, r.key(token)).Result()
	if err == redis.Nil {
		return 0, ErrRefreshNotFound
	}
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("refresh: corrupt session: %w", err)
	}
	return id, nil
}

func (r *RedisRefreshStore) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return r.client.Del(ctx, r.key(token)).Err()
}

// NewRedisClient connects and pings.
func NewRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

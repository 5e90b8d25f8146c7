package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/praghad/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix   = "praghad:session:"
	redisMaxAttempts = 3
)

// RedisBackend stores each session as a hash with a key TTL matching its expiry.
//
// Insert and Extend run inside WATCH/MULTI so two writers racing on the same
// token cannot both succeed.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

// NewRedisBackend creates a RedisBackend on an existing client
func NewRedisBackend(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client, prefix: redisKeyPrefix}
}

// DialRedis parses redisURL, connects and pings the server.
func DialRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}

	return client, nil
}

func (b *RedisBackend) key(token string) string {
	return b.prefix + token
}

// Insert stores s unless its token is live at now
func (b *RedisBackend) Insert(ctx context.Context, s models.Session, now time.Time) error {
	key := b.key(s.Token)

	err := b.client.Watch(ctx, func(tx *redis.Tx) error {
		existing, err := b.read(ctx, tx, s.Token)
		switch {
		case err == nil && existing.IsLive(now):
			return ErrTokenConflict
		case err != nil && !errors.Is(err, ErrSessionNotFound):
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			b.write(ctx, pipe, s, now)
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return ErrTokenConflict
	}
	if err != nil && !errors.Is(err, ErrTokenConflict) {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return err
}

// Get returns the stored session
func (b *RedisBackend) Get(ctx context.Context, token string) (*models.Session, error) {
	return b.read(ctx, b.client, token)
}

// Extend adds by to a live session's expiry, retrying when another writer touches the key mid-update
func (b *RedisBackend) Extend(ctx context.Context, token string, by time.Duration, now time.Time) (*models.Session, error) {
	key := b.key(token)

	var updated *models.Session
	txf := func(tx *redis.Tx) error {
		s, err := b.read(ctx, tx, token)
		if errors.Is(err, ErrSessionNotFound) {
			return ErrSessionExpired
		}
		if err != nil {
			return err
		}
		if !s.IsLive(now) {
			return ErrSessionExpired
		}

		s.ExpiresAt += int64(by / time.Second)
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			b.write(ctx, pipe, *s, now)
			return nil
		})
		if err == nil {
			updated = s
		}
		return err
	}

	for range redisMaxAttempts {
		err := b.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if errors.Is(err, ErrSessionExpired) {
			return nil, err
		}
		if err != nil {
			return nil, fmt.Errorf("failed to extend session: %w", err)
		}
		return updated, nil
	}

	return nil, fmt.Errorf("failed to extend session: %w", redis.TxFailedErr)
}

// hashReader is satisfied by both [redis.Client] and [redis.Tx].
type hashReader interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

func (b *RedisBackend) read(ctx context.Context, c hashReader, token string) (*models.Session, error) {
	fields, err := c.HGetAll(ctx, b.key(token)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrSessionNotFound
	}

	ownerID, err := strconv.ParseInt(fields["owner_id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt session owner: %w", err)
	}
	expiresAt, err := strconv.ParseInt(fields["expires_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt session expiry: %w", err)
	}

	return &models.Session{Token: token, OwnerID: ownerID, ExpiresAt: expiresAt}, nil
}

// write queues the hash fields and a key TTL ending at the session expiry.
func (b *RedisBackend) write(ctx context.Context, pipe redis.Pipeliner, s models.Session, now time.Time) {
	key := b.key(s.Token)
	pipe.HSet(ctx, key, "owner_id", s.OwnerID, "expires_at", s.ExpiresAt)

	if ttl := s.Expiry().Sub(now); ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
}

// List returns every session key under the backend prefix, ordered by expiry.
// Keys that vanish between SCAN and read are skipped.
func (b *RedisBackend) List(ctx context.Context) ([]*models.Session, error) {
	var sessions []*models.Session

	iter := b.client.Scan(ctx, 0, b.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		s, err := b.read(ctx, b.client, strings.TrimPrefix(iter.Val(), b.prefix))
		if errors.Is(err, ErrSessionNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan sessions: %w", err)
	}

	sortByExpiry(sessions)
	return sessions, nil
}

// DeleteAll removes every session key under the backend prefix
func (b *RedisBackend) DeleteAll(ctx context.Context) (int64, error) {
	var deleted int64

	iter := b.client.Scan(ctx, 0, b.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		n, err := b.client.Del(ctx, iter.Val()).Result()
		if err != nil {
			return deleted, fmt.Errorf("failed to delete session: %w", err)
		}
		deleted += n
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("failed to scan sessions: %w", err)
	}

	return deleted, nil
}

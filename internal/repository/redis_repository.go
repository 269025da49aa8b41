package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"mushtrack/internal/models"
)

const (
	sessionKeyPrefix = "session:"
	maxTxRetries     = 5
)

// NewRedisClient connects to Redis and checks the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("could not connect to Redis at %s: %w", addr, err)
	}
	return client, nil
}

// RedisSessionRepository stores each session as JSON under session:<id>
// with the session TTL as key expiry.
type RedisSessionRepository struct {
	client   *redis.Client
	ttl      time.Duration
	defaults models.AlertSettings
	logger   *zap.Logger
}

func NewRedisSessionRepository(client *redis.Client, ttl time.Duration, defaults models.AlertSettings, logger *zap.Logger) *RedisSessionRepository {
	return &RedisSessionRepository{
		client:   client,
		ttl:      ttl,
		defaults: defaults,
		logger:   logger,
	}
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

func (r *RedisSessionRepository) Load(ctx context.Context, id string) (*models.Session, error) {
	key := sessionKey(id)
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("loading session %s: %w", id, err)
	}

	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decoding session %s: %w", id, err)
	}

	if err := r.client.Expire(ctx, key, r.ttl).Err(); err != nil {
		r.logger.Warn("Failed to refresh session TTL", zap.String("session", id), zap.Error(err))
	}
	return &session, nil
}

func (r *RedisSessionRepository) Update(ctx context.Context, id string, fn func(*models.Session) error) (*models.Session, error) {
	key := sessionKey(id)
	var updated *models.Session

	txf := func(tx *redis.Tx) error {
		session := models.NewSession(id, r.defaults)
		data, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return fmt.Errorf("loading session %s: %w", id, err)
		default:
			if err := json.Unmarshal(data, session); err != nil {
				return fmt.Errorf("decoding session %s: %w", id, err)
			}
		}

		if err := fn(session); err != nil {
			return err
		}
		session.UpdatedAt = time.Now()

		payload, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("encoding session %s: %w", id, err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, r.ttl)
			return nil
		})
		if err == nil {
			updated = session
		}
		return err
	}

	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			r.logger.Debug("Session update conflicted, retrying", zap.String("session", id), zap.Int("attempt", attempt+1))
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
	return nil, fmt.Errorf("updating session %s: too many concurrent writers", id)
}

func (r *RedisSessionRepository) Close() error {
	return r.client.Close()
}

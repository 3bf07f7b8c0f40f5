package store

import (
	"context"
	"encoding/json"
	"time"

	"consignment-reconciliation-service/pkg/errors"
	"consignment-reconciliation-service/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "reconciliation:session:"

// RedisStore keeps sessions in Redis with a server-side TTL, for
// deployments where several hosts share the override workflow.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

// RedisStoreOptions configures a RedisStore.
type RedisStoreOptions struct {
	Addr     string
	Password string
	DB       int
	// TTL overrides DefaultTTL when positive.
	TTL    time.Duration
	Logger logger.Logger
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, opts RedisStoreOptions) (*RedisStore, error) {
	log := opts.Logger
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(err, errors.CategoryStore, errors.CodeStoreUnavailable,
			"cannot connect to redis at "+opts.Addr)
	}

	return &RedisStore{
		client: client,
		ttl:    ttl,
		logger: log.WithComponent("redisstore"),
	}, nil
}

func (rs *RedisStore) key(id string) string {
	return sessionKeyPrefix + id
}

// Save writes the session with the store TTL. Redis expires the key
// itself, so there is no sweeper.
func (rs *RedisStore) Save(ctx context.Context, session *Session) error {
	session.Touch(time.Now().UTC(), rs.ttl)

	data, err := json.Marshal(session)
	if err != nil {
		return errors.StoreError(errors.CodeStoreUnavailable, session.ID, err)
	}
	if err := rs.client.Set(ctx, rs.key(session.ID), data, rs.ttl).Err(); err != nil {
		return errors.StoreError(errors.CodeStoreUnavailable, session.ID, err)
	}

	rs.logger.WithFields(logger.Fields{
		"session_id": session.ID,
		"lines":      len(session.Table),
	}).Debug("Session saved")
	return nil
}

// Load reads a session. A key Redis already expired reads as not found;
// the distinction the file store makes is not observable here.
func (rs *RedisStore) Load(ctx context.Context, id string) (*Session, error) {
	data, err := rs.client.Get(ctx, rs.key(id)).Bytes()
	if err == redis.Nil {
		return nil, errors.StoreError(errors.CodeSessionNotFound, id, nil)
	}
	if err != nil {
		return nil, errors.StoreError(errors.CodeStoreUnavailable, id, err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, errors.StoreError(errors.CodeStoreUnavailable, id, err)
	}
	return &session, nil
}

// Update rewrites an existing session, failing when the key is gone.
func (rs *RedisStore) Update(ctx context.Context, session *Session) error {
	exists, err := rs.client.Exists(ctx, rs.key(session.ID)).Result()
	if err != nil {
		return errors.StoreError(errors.CodeStoreUnavailable, session.ID, err)
	}
	if exists == 0 {
		return errors.StoreError(errors.CodeSessionNotFound, session.ID, nil)
	}
	return rs.Save(ctx, session)
}

// Delete removes a session key. Deleting a missing key is a no-op.
func (rs *RedisStore) Delete(ctx context.Context, id string) error {
	if err := rs.client.Del(ctx, rs.key(id)).Err(); err != nil {
		return errors.StoreError(errors.CodeStoreUnavailable, id, err)
	}
	return nil
}

// Close releases the Redis client.
func (rs *RedisStore) Close() error {
	return rs.client.Close()
}

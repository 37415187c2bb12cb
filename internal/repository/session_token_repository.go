package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/perizinan-backend/internal/config"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionTokenRepository tracks which client sessions are signed in.
// A session id maps to the identity it belongs to until sign-out or expiry,
// and every identity keeps a set of its session ids.
type SessionTokenRepository struct {
	rdb *redis.Client
}

// NewSessionTokenRepository creates a new SessionTokenRepository.
func NewSessionTokenRepository(rdb *redis.Client) *SessionTokenRepository {
	return &SessionTokenRepository{rdb: rdb}
}

// Save marks sessionID as signed in as identityID for ttl.
func (r *SessionTokenRepository) Save(ctx context.Context, sessionID, identityID string, ttl time.Duration) error {
	indexKey := config.CacheKey.IdentitySessionsKey(identityID)
	pipe := r.rdb.TxPipeline()
	pipe.Set(ctx, config.CacheKey.SessionTokenKey(sessionID), identityID, ttl)
	pipe.SAdd(ctx, indexKey, sessionID)
	pipe.Expire(ctx, indexKey, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// Get returns the identity id signed in under sessionID.
func (r *SessionTokenRepository) Get(ctx context.Context, sessionID string) (string, error) {
	identityID, err := r.rdb.Get(ctx, config.CacheKey.SessionTokenKey(sessionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrSessionNotFound
		}
		return "", fmt.Errorf("check session: %w", err)
	}
	return identityID, nil
}

// Delete signs sessionID out. Deleting an unknown session is not an error.
func (r *SessionTokenRepository) Delete(ctx context.Context, sessionID string) error {
	identityID, err := r.Get(ctx, sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	pipe := r.rdb.TxPipeline()
	pipe.Del(ctx, config.CacheKey.SessionTokenKey(sessionID))
	pipe.SRem(ctx, config.CacheKey.IdentitySessionsKey(identityID), sessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// ListByIdentity returns the signed-in sessions of identityID. Expired
// entries found in the index are pruned.
func (r *SessionTokenRepository) ListByIdentity(ctx context.Context, identityID string) ([]string, error) {
	indexKey := config.CacheKey.IdentitySessionsKey(identityID)
	ids, err := r.rdb.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	pipe := r.rdb.Pipeline()
	checks := make([]*redis.IntCmd, len(ids))
	for i, id := range ids {
		checks[i] = pipe.Exists(ctx, config.CacheKey.SessionTokenKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("check sessions: %w", err)
	}

	live := make([]string, 0, len(ids))
	var stale []interface{}
	for i, id := range ids {
		if checks[i].Val() > 0 {
			live = append(live, id)
		} else {
			stale = append(stale, id)
		}
	}
	if len(stale) > 0 {
		if err := r.rdb.SRem(ctx, indexKey, stale...).Err(); err != nil {
			return nil, fmt.Errorf("prune sessions: %w", err)
		}
	}
	return live, nil
}

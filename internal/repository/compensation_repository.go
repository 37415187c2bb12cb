package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/perizinan-backend/internal/config"
)

// OrphanIdentity is an identity left behind by a failed provisioning whose
// immediate cleanup also failed.
type OrphanIdentity struct {
	IdentityID string    `json:"identity_id"`
	Email      string    `json:"email"`
	Attempts   int       `json:"attempts"`
	QueuedAt   time.Time `json:"queued_at"`
}

// CompensationRepository is the Redis list of orphan identities awaiting deletion.
type CompensationRepository struct {
	rdb *redis.Client
}

// NewCompensationRepository creates a new CompensationRepository.
func NewCompensationRepository(rdb *redis.Client) *CompensationRepository {
	return &CompensationRepository{rdb: rdb}
}

// Enqueue appends an orphan identity to the queue.
func (r *CompensationRepository) Enqueue(ctx context.Context, o OrphanIdentity) error {
	raw, err := json.Marshal(o)
	if err != nil {
		return err
	}
	if err := r.rdb.RPush(ctx, config.WorkerKey.ProvisioningCompensationQueue, raw).Err(); err != nil {
		return fmt.Errorf("enqueue compensation: %w", err)
	}
	return nil
}

// Dequeue blocks up to timeout for the next orphan identity. It returns
// redis.Nil when the queue stayed empty.
func (r *CompensationRepository) Dequeue(ctx context.Context, timeout time.Duration) (*OrphanIdentity, error) {
	item, err := r.rdb.BLPop(ctx, timeout, config.WorkerKey.ProvisioningCompensationQueue).Result()
	if err != nil {
		return nil, err
	}
	if len(item) < 2 {
		return nil, redis.Nil
	}
	var o OrphanIdentity
	if err := json.Unmarshal([]byte(item[1]), &o); err != nil {
		return nil, fmt.Errorf("invalid compensation payload: %w", err)
	}
	return &o, nil
}

// Len returns the number of queued orphan identities.
func (r *CompensationRepository) Len(ctx context.Context) (int64, error) {
	return r.rdb.LLen(ctx, config.WorkerKey.ProvisioningCompensationQueue).Result()
}

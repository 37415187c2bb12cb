package worker

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/perizinan-backend/internal/metrics"
	"github.com/stemsi/perizinan-backend/internal/repository"
)

const (
	CompensationPollTimeout = 1 * time.Second
	CompensationMaxAttempts = 10
	CompensationBaseBackoff = 2 * time.Second
	CompensationMaxBackoff  = 5 * time.Minute
)

// OrphanQueue is the queue of identities left behind by partial provisioning.
type OrphanQueue interface {
	Enqueue(ctx context.Context, o repository.OrphanIdentity) error
	Dequeue(ctx context.Context, timeout time.Duration) (*repository.OrphanIdentity, error)
}

// AccountDeleter removes identities.
type AccountDeleter interface {
	DeleteAccount(ctx context.Context, identityID string) error
}

// RoleRecordRemover removes role records.
type RoleRecordRemover interface {
	Delete(ctx context.Context, identityID string) error
}

// CompensationWorker finishes the rollback of partially provisioned accounts:
// for each queued identity it removes the role record and the identity.
type CompensationWorker struct {
	queue    OrphanQueue
	accounts AccountDeleter
	roles    RoleRecordRemover
	log      zerolog.Logger
	sleep    func(ctx context.Context, d time.Duration)
}

func NewCompensationWorker(queue OrphanQueue, accounts AccountDeleter, roles RoleRecordRemover, log zerolog.Logger) *CompensationWorker {
	return &CompensationWorker{
		queue:    queue,
		accounts: accounts,
		roles:    roles,
		log:      log.With().Str("component", "compensation_worker").Logger(),
		sleep:    sleepCtx,
	}
}

// ----------------------------------------------------------------
// Worker loop
// ----------------------------------------------------------------

func (w *CompensationWorker) Start(ctx context.Context) {
	w.log.Info().Msg("CompensationWorker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("CompensationWorker stopped")
			return
		default:
		}

		o, err := w.queue.Dequeue(ctx, CompensationPollTimeout)
		if err != nil {
			if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
				w.log.Error().Err(err).Msg("Dequeue error")
				w.sleep(ctx, CompensationPollTimeout)
			}
			continue
		}

		w.Process(ctx, o)
	}
}

// Process attempts one cleanup. On failure the identity is requeued after a
// backoff until CompensationMaxAttempts is reached.
func (w *CompensationWorker) Process(ctx context.Context, o *repository.OrphanIdentity) {
	log := w.log.With().Str("identity_id", o.IdentityID).Int("attempt", o.Attempts+1).Logger()

	err := w.roles.Delete(ctx, o.IdentityID)
	if err == nil {
		err = w.accounts.DeleteAccount(ctx, o.IdentityID)
	}
	if err == nil {
		log.Info().Str("email", o.Email).Msg("Orphan identity removed")
		return
	}

	o.Attempts++
	metrics.ProvisioningFailuresTotal.WithLabelValues("compensation_retry").Inc()
	if o.Attempts >= CompensationMaxAttempts {
		log.Error().Err(err).Str("email", o.Email).Msg("Giving up on orphan identity, run audit-provisioning")
		return
	}

	log.Warn().Err(err).Msg("Orphan cleanup failed, requeueing")
	w.sleep(ctx, backoff(o.Attempts))
	// The requeue must survive shutdown so the identity is retried on the next start.
	if qerr := w.queue.Enqueue(context.WithoutCancel(ctx), *o); qerr != nil {
		log.Error().Err(qerr).Msg("Failed to requeue orphan identity")
	}
}

func backoff(attempts int) time.Duration {
	d := CompensationBaseBackoff << (attempts - 1)
	if d <= 0 || d > CompensationMaxBackoff {
		return CompensationMaxBackoff
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

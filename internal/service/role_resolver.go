package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/perizinan-backend/internal/metrics"
	"github.com/stemsi/perizinan-backend/internal/model"
	"github.com/stemsi/perizinan-backend/internal/store"
)

// RoleRecordReader reads role records keyed by identity id.
type RoleRecordReader interface {
	Get(ctx context.Context, identityID string) (*model.RoleRecord, error)
}

// ResolutionState is the terminal state of a role resolution.
type ResolutionState int

const (
	Unresolved ResolutionState = iota
	Resolved
)

func (s ResolutionState) String() string {
	if s == Resolved {
		return "resolved"
	}
	return "unresolved"
}

// Resolution is the outcome of resolving an identity's role.
type Resolution struct {
	State    ResolutionState
	Record   model.RoleRecord
	Attempts int
}

// RoleResolver maps an identity to its application role. A role record that
// is missing or holds an unrecognized role counts as not yet written: the
// resolver waits RetryDelay and reads once more before reporting Unresolved.
type RoleResolver struct {
	users      RoleRecordReader
	retryDelay time.Duration
	log        zerolog.Logger
}

// NewRoleResolver creates a new RoleResolver.
func NewRoleResolver(users RoleRecordReader, retryDelay time.Duration, log zerolog.Logger) *RoleResolver {
	return &RoleResolver{
		users:      users,
		retryDelay: retryDelay,
		log:        log.With().Str("component", "role_resolver").Logger(),
	}
}

// Resolve reads the role record of identityID with at most one retry. The
// only error returned is the context's, when it ends during the retry wait.
func (r *RoleResolver) Resolve(ctx context.Context, identityID string) (Resolution, error) {
	if rec, ok := r.attempt(ctx, identityID); ok {
		metrics.RoleResolutionsTotal.WithLabelValues("resolved").Inc()
		return Resolution{State: Resolved, Record: rec, Attempts: 1}, nil
	}

	r.log.Info().Str("identity_id", identityID).Dur("delay", r.retryDelay).Msg("Role record not ready, retrying once")

	timer := time.NewTimer(r.retryDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return Resolution{State: Unresolved, Attempts: 1}, ctx.Err()
	case <-timer.C:
	}

	if rec, ok := r.attempt(ctx, identityID); ok {
		metrics.RoleResolutionsTotal.WithLabelValues("retried").Inc()
		return Resolution{State: Resolved, Record: rec, Attempts: 2}, nil
	}

	metrics.RoleResolutionsTotal.WithLabelValues("unresolved").Inc()
	r.log.Warn().Str("identity_id", identityID).Msg("Role record missing after retry")
	return Resolution{State: Unresolved, Attempts: 2}, nil
}

func (r *RoleResolver) attempt(ctx context.Context, identityID string) (model.RoleRecord, bool) {
	rec, err := r.users.Get(ctx, identityID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			r.log.Warn().Err(err).Str("identity_id", identityID).Msg("Role record read failed")
		}
		return model.RoleRecord{}, false
	}
	role, ok := model.ParseRole(string(rec.Role))
	if !ok {
		return model.RoleRecord{}, false
	}
	return model.RoleRecord{Email: rec.Email, Role: role}, true
}

package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/stemsi/perizinan-backend/internal/model"
	"github.com/stemsi/perizinan-backend/internal/policy"
	"github.com/stemsi/perizinan-backend/internal/repository"
	"github.com/stemsi/perizinan-backend/internal/store"
	"golang.org/x/sync/errgroup"
)

// Backup is a full copy of the record store: collection, then key, then fields.
type Backup map[string]map[string]store.Fields

// BackupService dumps and restores every collection.
type BackupService struct {
	store store.Store
	authz Authorizer
	log   zerolog.Logger
}

// NewBackupService creates a new BackupService.
func NewBackupService(s store.Store, authz Authorizer, log zerolog.Logger) *BackupService {
	return &BackupService{
		store: s,
		authz: authz,
		log:   log.With().Str("component", "backup_service").Logger(),
	}
}

// Backup reads every collection.
func (s *BackupService) Backup(ctx context.Context, actor model.Role) (Backup, error) {
	if err := authorize(s.authz, actor, policy.ObjectBackup, policy.ActionManage); err != nil {
		return nil, err
	}

	var mu sync.Mutex
	out := make(Backup, len(repository.Collections))
	g, gctx := errgroup.WithContext(ctx)
	for _, collection := range repository.Collections {
		g.Go(func() error {
			records, err := s.store.ReadCollection(gctx, collection)
			if err != nil {
				return fmt.Errorf("read %s: %w", collection, err)
			}
			byKey := make(map[string]store.Fields, len(records))
			for _, r := range records {
				byKey[r.Key] = r.Fields
			}
			mu.Lock()
			out[collection] = byKey
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Restore replaces every collection with the content of b. Collections
// missing from b end up empty.
func (s *BackupService) Restore(ctx context.Context, actor model.Role, b Backup) error {
	if err := authorize(s.authz, actor, policy.ObjectBackup, policy.ActionManage); err != nil {
		return err
	}

	known := make(map[string]bool, len(repository.Collections))
	for _, c := range repository.Collections {
		known[c] = true
	}
	for c := range b {
		if !known[c] {
			return fmt.Errorf("%w: unknown collection %q", ErrInvalidField, c)
		}
	}

	for _, collection := range repository.Collections {
		records := make([]store.Record, 0, len(b[collection]))
		for key, fields := range b[collection] {
			records = append(records, store.Record{Key: key, Fields: fields})
		}
		if err := s.store.Replace(ctx, collection, records); err != nil {
			return fmt.Errorf("restore %s: %w", collection, err)
		}
	}
	s.log.Warn().Int("collections", len(repository.Collections)).Msg("Record store restored from backup")
	return nil
}

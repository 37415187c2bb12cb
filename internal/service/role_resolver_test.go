package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/perizinan-backend/internal/model"
	"github.com/stemsi/perizinan-backend/internal/store"
)

type stubRoleRecords struct {
	mu    sync.Mutex
	recs  map[string]*model.RoleRecord
	err   error
	reads int
}

func (s *stubRoleRecords) Get(_ context.Context, identityID string) (*model.RoleRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if s.err != nil {
		return nil, s.err
	}
	rec, ok := s.recs[identityID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *stubRoleRecords) put(id string, rec *model.RoleRecord) {
	s.mu.Lock()
	s.recs[id] = rec
	s.mu.Unlock()
}

func TestResolvePresentRoleSkipsDelay(t *testing.T) {
	recs := &stubRoleRecords{recs: map[string]*model.RoleRecord{"u1": {Email: "a@x", Role: model.RoleApprover}}}
	r := NewRoleResolver(recs, time.Hour, zerolog.Nop())

	res, err := r.Resolve(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.State != Resolved || res.Attempts != 1 || res.Record.Role != model.RoleApprover {
		t.Fatalf("Resolve() = %+v", res)
	}
}

func TestResolveLegacyRoleName(t *testing.T) {
	recs := &stubRoleRecords{recs: map[string]*model.RoleRecord{"u1": {Role: "gurupiket"}}}
	r := NewRoleResolver(recs, time.Hour, zerolog.Nop())
	res, _ := r.Resolve(context.Background(), "u1")
	if res.State != Resolved || res.Record.Role != model.RoleSubmitter {
		t.Fatalf("Resolve() = %+v", res)
	}
}

func TestResolveRetriesExactlyOnce(t *testing.T) {
	recs := &stubRoleRecords{recs: map[string]*model.RoleRecord{}}
	r := NewRoleResolver(recs, 10*time.Millisecond, zerolog.Nop())

	res, err := r.Resolve(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.State != Unresolved || res.Attempts != 2 || recs.reads != 2 {
		t.Fatalf("Resolve() = %+v after %d reads", res, recs.reads)
	}
}

func TestResolveUnrecognizedRoleIsNotReady(t *testing.T) {
	recs := &stubRoleRecords{recs: map[string]*model.RoleRecord{"u1": {Role: "kepala"}}}
	r := NewRoleResolver(recs, 30*time.Millisecond, zerolog.Nop())

	go func() {
		time.Sleep(5 * time.Millisecond)
		recs.put("u1", &model.RoleRecord{Role: model.RoleAdmin})
	}()

	res, _ := r.Resolve(context.Background(), "u1")
	if res.State != Resolved || res.Attempts != 2 || res.Record.Role != model.RoleAdmin {
		t.Fatalf("Resolve() = %+v", res)
	}
}

func TestResolveStoreErrorTreatedAsNotReady(t *testing.T) {
	recs := &stubRoleRecords{err: errors.New("connection refused")}
	r := NewRoleResolver(recs, time.Millisecond, zerolog.Nop())
	res, err := r.Resolve(context.Background(), "u1")
	if err != nil || res.State != Unresolved {
		t.Fatalf("Resolve() = %+v, %v", res, err)
	}
}

func TestResolveCancelledDuringWait(t *testing.T) {
	recs := &stubRoleRecords{recs: map[string]*model.RoleRecord{}}
	r := NewRoleResolver(recs, time.Hour, zerolog.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	res, err := r.Resolve(ctx, "u1")
	if !errors.Is(err, context.DeadlineExceeded) || res.State != Unresolved {
		t.Fatalf("Resolve() = %+v, %v", res, err)
	}
}

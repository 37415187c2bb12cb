package service

import (
	"context"
	"sync"

	"github.com/stemsi/perizinan-backend/internal/model"
	"github.com/stemsi/perizinan-backend/internal/policy"
	"github.com/stemsi/perizinan-backend/internal/repository"
	"github.com/stemsi/perizinan-backend/internal/store"
)

// Watch delivers the enriched request list once both the requests and the
// roster have loaded, and again after every change of either. A transport
// failure of either collection is delivered as a store.ErrDisconnected error.
// handler is never called concurrently.
func (s *PerizinanService) Watch(ctx context.Context, actor model.Role, handler func([]model.Perizinan, error)) (func(), error) {
	if err := authorize(s.authz, actor, policy.ObjectPerizinan, policy.ActionRead); err != nil {
		return nil, err
	}

	var (
		mu         sync.Mutex
		requests   []model.Perizinan
		roster     []model.Student
		haveReqs   bool
		haveRoster bool
	)
	emit := func() {
		if haveReqs && haveRoster {
			handler(Enrich(requests, roster), nil)
		}
	}

	stopRequests, err := s.repo.Subscribe(ctx, func(snap store.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		if snap.Err != nil {
			handler(nil, snap.Err)
			return
		}
		requests, haveReqs = repository.DecodePerizinan(snap.Records), true
		emit()
	})
	if err != nil {
		return nil, err
	}

	stopRoster, err := s.students.Subscribe(ctx, func(snap store.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		if snap.Err != nil {
			handler(nil, snap.Err)
			return
		}
		roster, haveRoster = repository.DecodeStudents(snap.Records), true
		emit()
	})
	if err != nil {
		stopRequests()
		return nil, err
	}

	return func() {
		stopRequests()
		stopRoster()
	}, nil
}

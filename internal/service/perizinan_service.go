package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/perizinan-backend/internal/metrics"
	"github.com/stemsi/perizinan-backend/internal/model"
	"github.com/stemsi/perizinan-backend/internal/policy"
	"github.com/stemsi/perizinan-backend/internal/repository"
	"github.com/stemsi/perizinan-backend/internal/store"
	"golang.org/x/sync/errgroup"
)

// Sentinel errors for permission requests.
var (
	ErrInvalidField    = errors.New("invalid field")
	ErrInvalidStatus   = errors.New("invalid status transition")
	ErrStudentNotFound = errors.New("student not found")
)

const timeLayout = "2006-01-02T15:04"

// PerizinanService manages the lifecycle of permission requests:
// pending, then approved or rejected. Every mutation names the acting role.
type PerizinanService struct {
	repo     *repository.PerizinanRepository
	students *repository.StudentRepository
	authz    Authorizer
	log      zerolog.Logger
}

// NewPerizinanService creates a new PerizinanService.
func NewPerizinanService(repo *repository.PerizinanRepository, students *repository.StudentRepository, authz Authorizer, log zerolog.Logger) *PerizinanService {
	return &PerizinanService{
		repo:     repo,
		students: students,
		authz:    authz,
		log:      log.With().Str("component", "perizinan_service").Logger(),
	}
}

// Create submits a new request. The status is always pending. With a
// student id, name, class and dormitory are copied from the roster entry.
func (s *PerizinanService) Create(ctx context.Context, actor model.Role, req model.CreatePerizinanRequest) (*model.Perizinan, error) {
	if err := authorize(s.authz, actor, policy.ObjectPerizinan, policy.ActionCreate); err != nil {
		return nil, err
	}

	p := &model.Perizinan{
		SubjectName: req.SubjectName,
		ClassName:   req.ClassName,
		Dormitory:   req.Dormitory,
		Reason:      req.Reason,
		DepartTime:  req.DepartTime,
		ReturnTime:  req.ReturnTime,
		DocumentURL: req.DocumentURL,
		Status:      model.StatusPending,
	}

	if req.StudentID != "" {
		st, err := s.students.GetByID(ctx, req.StudentID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, ErrStudentNotFound
			}
			return nil, fmt.Errorf("load student: %w", err)
		}
		p.SubjectName = st.Name
		p.ClassName = st.Class
		p.Dormitory = st.Dormitory
	}
	if p.SubjectName == "" {
		return nil, fmt.Errorf("%w: subjectName is required", ErrInvalidField)
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	metrics.RequestsCreatedTotal.Inc()
	s.log.Info().Str("id", p.ID).Str("subject", p.SubjectName).Msg("Request submitted")
	return p, nil
}

// Get returns one request.
func (s *PerizinanService) Get(ctx context.Context, actor model.Role, id string) (*model.Perizinan, error) {
	if err := authorize(s.authz, actor, policy.ObjectPerizinan, policy.ActionRead); err != nil {
		return nil, err
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

// Listen delivers the whole request collection, in key order, now and after
// every change until the returned func is called or ctx ends. Key order
// follows insertion but is not a reliable recency order. A transport failure
// is delivered as a store.ErrDisconnected error.
func (s *PerizinanService) Listen(ctx context.Context, actor model.Role, handler func([]model.Perizinan, error)) (func(), error) {
	if err := authorize(s.authz, actor, policy.ObjectPerizinan, policy.ActionRead); err != nil {
		return nil, err
	}
	return s.repo.Subscribe(ctx, func(snap store.Snapshot) {
		if snap.Err != nil {
			handler(nil, snap.Err)
			return
		}
		handler(repository.DecodePerizinan(snap.Records), nil)
	})
}

// SetField updates exactly one non-status field of an existing request.
// Concurrent edits of different fields do not conflict.
func (s *PerizinanService) SetField(ctx context.Context, actor model.Role, id, field, value string) error {
	if err := authorize(s.authz, actor, policy.ObjectPerizinan, policy.ActionEdit); err != nil {
		return err
	}
	f, err := model.ParseEditableField(field)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidField, err)
	}
	switch f {
	case model.FieldDepartTime, model.FieldReturnTime:
		if _, err := time.Parse(timeLayout, value); err != nil {
			return fmt.Errorf("%w: %s must use %s", ErrInvalidField, f, timeLayout)
		}
	case model.FieldSubjectName, model.FieldReason:
		if value == "" {
			return fmt.Errorf("%w: %s must not be empty", ErrInvalidField, f)
		}
	}

	if err := s.repo.SetField(ctx, id, f, value); err != nil {
		return notFound(err)
	}
	s.log.Info().Str("id", id).Str("field", string(f)).Msg("Request field updated")
	return nil
}

// SetStatus approves or rejects a request. A decided request may be decided
// again.
func (s *PerizinanService) SetStatus(ctx context.Context, actor model.Role, id, status string) error {
	if err := authorize(s.authz, actor, policy.ObjectPerizinan, policy.ActionDecide); err != nil {
		return err
	}
	st, ok := model.ParseStatus(status)
	if !ok || st == model.StatusPending {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	if err := s.repo.SetField(ctx, id, model.FieldStatus, string(st)); err != nil {
		return notFound(err)
	}
	metrics.StatusTransitionsTotal.WithLabelValues(string(st)).Inc()
	s.log.Info().Str("id", id).Str("status", string(st)).Msg("Request decided")
	return nil
}

// Remove hard-deletes a request. Removing a missing request succeeds.
func (s *PerizinanService) Remove(ctx context.Context, actor model.Role, id string) error {
	if err := authorize(s.authz, actor, policy.ObjectPerizinan, policy.ActionDelete); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("remove request: %w", err)
	}
	s.log.Info().Str("id", id).Msg("Request removed")
	return nil
}

// Load reads requests and roster concurrently and returns the enriched list.
func (s *PerizinanService) Load(ctx context.Context, actor model.Role) ([]model.Perizinan, error) {
	if err := authorize(s.authz, actor, policy.ObjectPerizinan, policy.ActionRead); err != nil {
		return nil, err
	}

	var (
		requests []model.Perizinan
		roster   []model.Student
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		requests, err = s.repo.List(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		roster, err = s.students.List(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load requests: %w", err)
	}
	return Enrich(requests, roster), nil
}

// Query loads, filters, sorts and paginates the enriched request list.
func (s *PerizinanService) Query(ctx context.Context, actor model.Role, f Filter, sortSpec SortSpec, page, perPage int) (*Page, error) {
	all, err := s.Load(ctx, actor)
	if err != nil {
		return nil, err
	}
	result := Paginate(SortRequests(ApplyFilter(all, f), sortSpec), page, perPage)
	return &result, nil
}

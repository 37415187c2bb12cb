package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stemsi/perizinan-backend/internal/model"
	"github.com/stemsi/perizinan-backend/internal/policy"
	"github.com/stemsi/perizinan-backend/internal/repository"
	"github.com/stemsi/perizinan-backend/internal/store"
)

// ErrInvalidSchedule is returned when a schedule references the wrong staff.
var ErrInvalidSchedule = errors.New("invalid schedule")

// ScheduleService manages the duty roster.
type ScheduleService struct {
	schedules *repository.ScheduleRepository
	teachers  *repository.TeacherRepository
	authz     Authorizer
	log       zerolog.Logger
}

// NewScheduleService creates a new ScheduleService.
func NewScheduleService(schedules *repository.ScheduleRepository, teachers *repository.TeacherRepository, authz Authorizer, log zerolog.Logger) *ScheduleService {
	return &ScheduleService{
		schedules: schedules,
		teachers:  teachers,
		authz:     authz,
		log:       log.With().Str("component", "schedule_service").Logger(),
	}
}

// List returns every schedule.
func (s *ScheduleService) List(ctx context.Context, actor model.Role) ([]model.Schedule, error) {
	if err := authorize(s.authz, actor, policy.ObjectSchedules, policy.ActionRead); err != nil {
		return nil, err
	}
	return s.schedules.List(ctx)
}

// Create adds a schedule. Every staff id must name a submitter and the
// approver id an approver.
func (s *ScheduleService) Create(ctx context.Context, actor model.Role, req model.CreateScheduleRequest) (*model.Schedule, error) {
	if err := authorize(s.authz, actor, policy.ObjectSchedules, policy.ActionManage); err != nil {
		return nil, err
	}
	sc := &model.Schedule{Date: req.Date, StaffIDs: req.StaffIDs, ApproverID: req.ApproverID}
	if err := s.validate(ctx, sc); err != nil {
		return nil, err
	}
	if err := s.schedules.Create(ctx, sc); err != nil {
		return nil, fmt.Errorf("create schedule: %w", err)
	}
	s.log.Info().Str("id", sc.ID).Str("date", sc.Date).Msg("Schedule created")
	return sc, nil
}

// Update changes the provided fields of a schedule.
func (s *ScheduleService) Update(ctx context.Context, actor model.Role, id string, req model.UpdateScheduleRequest) (*model.Schedule, error) {
	if err := authorize(s.authz, actor, policy.ObjectSchedules, policy.ActionManage); err != nil {
		return nil, err
	}
	sc, err := s.schedules.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	if req.Date != "" {
		sc.Date = req.Date
	}
	if len(req.StaffIDs) > 0 {
		sc.StaffIDs = req.StaffIDs
	}
	if req.ApproverID != "" {
		sc.ApproverID = req.ApproverID
	}
	if err := s.validate(ctx, sc); err != nil {
		return nil, err
	}
	if err := s.schedules.Update(ctx, sc); err != nil {
		return nil, notFound(err)
	}
	return sc, nil
}

// Delete removes a schedule.
func (s *ScheduleService) Delete(ctx context.Context, actor model.Role, id string) error {
	if err := authorize(s.authz, actor, policy.ObjectSchedules, policy.ActionManage); err != nil {
		return err
	}
	return s.schedules.Delete(ctx, id)
}

func (s *ScheduleService) validate(ctx context.Context, sc *model.Schedule) error {
	if sc.Date == "" || len(sc.StaffIDs) == 0 || sc.ApproverID == "" {
		return fmt.Errorf("%w: date, staff and approver are required", ErrInvalidSchedule)
	}
	for _, id := range sc.StaffIDs {
		if err := s.expectRole(ctx, id, model.RoleSubmitter); err != nil {
			return err
		}
	}
	return s.expectRole(ctx, sc.ApproverID, model.RoleApprover)
}

func (s *ScheduleService) expectRole(ctx context.Context, teacherID string, role model.Role) error {
	t, err := s.teachers.GetByID(ctx, teacherID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: unknown teacher %s", ErrInvalidSchedule, teacherID)
		}
		return err
	}
	if t.Role != role {
		return fmt.Errorf("%w: %s is not %s", ErrInvalidSchedule, t.Name, role)
	}
	return nil
}

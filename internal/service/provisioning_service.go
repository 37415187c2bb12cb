package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/perizinan-backend/internal/metrics"
	"github.com/stemsi/perizinan-backend/internal/model"
	"github.com/stemsi/perizinan-backend/internal/policy"
	"github.com/stemsi/perizinan-backend/internal/repository"
)

// ErrPartialProvisioning means a failed provisioning could not be fully
// rolled back: an identity or role record may exist without an account.
var ErrPartialProvisioning = errors.New("partial provisioning")

// AccountGateway is the part of the identity provider used by provisioning.
type AccountGateway interface {
	CreateAccount(ctx context.Context, email, password string) (*model.Identity, error)
	DeleteAccount(ctx context.Context, identityID string) error
	Reauthenticate(ctx context.Context, sessionID, password string) error
	RevokeIdentity(ctx context.Context, identityID string) error
}

// OrphanQueue receives identities whose cleanup must be retried later.
type OrphanQueue interface {
	Enqueue(ctx context.Context, o repository.OrphanIdentity) error
}

// ProvisioningService creates and removes staff accounts. An account spans
// three records written in order: identity, role record, account record.
type ProvisioningService struct {
	accounts AccountGateway
	users    *repository.UserRepository
	teachers *repository.TeacherRepository
	orphans  OrphanQueue
	authz    Authorizer
	log      zerolog.Logger
}

// NewProvisioningService creates a new ProvisioningService.
func NewProvisioningService(accounts AccountGateway, users *repository.UserRepository, teachers *repository.TeacherRepository, orphans OrphanQueue, authz Authorizer, log zerolog.Logger) *ProvisioningService {
	return &ProvisioningService{
		accounts: accounts,
		users:    users,
		teachers: teachers,
		orphans:  orphans,
		authz:    authz,
		log:      log.With().Str("component", "provisioning_service").Logger(),
	}
}

// Provision creates identity, role record and account record. When the
// second or third step fails the earlier steps are undone; if undoing fails
// too, ErrPartialProvisioning is returned and the identity is queued so the
// compensation worker can finish the cleanup.
func (s *ProvisioningService) Provision(ctx context.Context, actor model.Role, req model.CreateTeacherRequest) (*model.Teacher, error) {
	if err := authorize(s.authz, actor, policy.ObjectTeachers, policy.ActionManage); err != nil {
		return nil, err
	}
	role, ok := model.ParseRole(req.Role)
	if !ok {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidField, req.Role)
	}

	identity, err := s.accounts.CreateAccount(ctx, req.Email, req.Password)
	if err != nil {
		metrics.ProvisioningFailuresTotal.WithLabelValues("identity").Inc()
		return nil, err
	}

	if err := s.users.Put(ctx, identity.ID, model.RoleRecord{Email: identity.Email, Role: role}); err != nil {
		metrics.ProvisioningFailuresTotal.WithLabelValues("role").Inc()
		return nil, s.compensate(ctx, identity, false, fmt.Errorf("write role record: %w", err))
	}

	t := &model.Teacher{
		IdentityID: identity.ID,
		Name:       strings.TrimSpace(req.Name),
		Email:      identity.Email,
		Role:       role,
	}
	if err := s.teachers.Create(ctx, t); err != nil {
		metrics.ProvisioningFailuresTotal.WithLabelValues("account").Inc()
		return nil, s.compensate(ctx, identity, true, fmt.Errorf("write account record: %w", err))
	}

	s.log.Info().
		Str("teacher_id", t.ID).
		Str("identity_id", identity.ID).
		Str("role", string(role)).
		Msg("Account provisioned")
	return t, nil
}

func (s *ProvisioningService) compensate(ctx context.Context, identity *model.Identity, roleWritten bool, cause error) error {
	cctx := context.WithoutCancel(ctx)
	var failures []error

	if roleWritten {
		if err := s.users.Delete(cctx, identity.ID); err != nil {
			failures = append(failures, fmt.Errorf("remove role record: %w", err))
		}
	}
	if err := s.accounts.DeleteAccount(cctx, identity.ID); err != nil {
		failures = append(failures, fmt.Errorf("delete identity: %w", err))
	}

	if len(failures) > 0 {
		orphan := repository.OrphanIdentity{IdentityID: identity.ID, Email: identity.Email, QueuedAt: time.Now()}
		if qerr := s.orphans.Enqueue(cctx, orphan); qerr != nil {
			s.log.Error().Err(qerr).Str("identity_id", identity.ID).Msg("Failed to queue orphan identity")
		}
		metrics.ProvisioningFailuresTotal.WithLabelValues("compensation").Inc()
		compErr := errors.Join(failures...)
		s.log.Error().
			Err(cause).
			AnErr("compensation", compErr).
			Str("identity_id", identity.ID).
			Msg("Partial provisioning")
		return fmt.Errorf("%w: %v (rollback: %v)", ErrPartialProvisioning, cause, compErr)
	}

	s.log.Warn().Err(cause).Str("identity_id", identity.ID).Msg("Provisioning rolled back")
	return fmt.Errorf("provision account: %w", cause)
}

// ListTeachers returns every account record.
func (s *ProvisioningService) ListTeachers(ctx context.Context, actor model.Role) ([]model.Teacher, error) {
	if err := authorize(s.authz, actor, policy.ObjectTeachers, policy.ActionManage); err != nil {
		return nil, err
	}
	return s.teachers.List(ctx)
}

// UpdateTeacherField edits one account field. A role change is mirrored into
// the role record and signs the account out everywhere, so it takes effect
// at the next sign-in.
func (s *ProvisioningService) UpdateTeacherField(ctx context.Context, actor model.Role, id, field, value string) error {
	if err := authorize(s.authz, actor, policy.ObjectTeachers, policy.ActionManage); err != nil {
		return err
	}
	t, err := s.teachers.GetByID(ctx, id)
	if err != nil {
		return notFound(err)
	}

	value = strings.TrimSpace(value)
	switch field {
	case "name", "email":
		if value == "" {
			return fmt.Errorf("%w: %s must not be empty", ErrInvalidField, field)
		}
	case "role":
		role, ok := model.ParseRole(value)
		if !ok {
			return fmt.Errorf("%w: unknown role %q", ErrInvalidField, value)
		}
		value = string(role)
	default:
		return fmt.Errorf("%w: %q", ErrInvalidField, field)
	}

	if err := s.teachers.SetField(ctx, id, field, value); err != nil {
		return notFound(err)
	}
	if field == "role" {
		if err := s.users.SetField(ctx, t.IdentityID, "role", value); err != nil {
			return fmt.Errorf("mirror role: %w", err)
		}
		if err := s.accounts.RevokeIdentity(ctx, t.IdentityID); err != nil {
			return fmt.Errorf("revoke sessions: %w", err)
		}
		s.log.Info().Str("teacher_id", id).Str("role", value).Msg("Role changed")
	}
	return nil
}

// DeleteTeacher removes an account and its role record after the acting
// session re-enters its password, then signs out every session of the
// identity. The identity itself remains but can no longer sign in.
func (s *ProvisioningService) DeleteTeacher(ctx context.Context, actor model.Role, sessionID, password, id string) error {
	if err := authorize(s.authz, actor, policy.ObjectTeachers, policy.ActionManage); err != nil {
		return err
	}
	if err := s.accounts.Reauthenticate(ctx, sessionID, password); err != nil {
		return err
	}
	t, err := s.teachers.GetByID(ctx, id)
	if err != nil {
		return notFound(err)
	}
	if err := s.teachers.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete account record: %w", err)
	}
	if err := s.users.Delete(ctx, t.IdentityID); err != nil {
		return fmt.Errorf("delete role record: %w", err)
	}
	if err := s.accounts.RevokeIdentity(ctx, t.IdentityID); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	s.log.Info().Str("teacher_id", id).Str("identity_id", t.IdentityID).Msg("Account removed")
	return nil
}

// IdentityLister lists every identity of the identity provider.
type IdentityLister interface {
	List(ctx context.Context) ([]model.Identity, error)
}

// AuditReport lists records left behind by partial provisioning.
type AuditReport struct {
	IdentitiesWithoutRole   []model.Identity `json:"identities_without_role"`
	RolesWithoutAccount     []string         `json:"roles_without_account"`
	AccountsWithoutRole     []model.Teacher  `json:"accounts_without_role"`
	AccountsWithoutIdentity []model.Teacher  `json:"accounts_without_identity"`
}

// Clean reports whether no inconsistency was found.
func (r *AuditReport) Clean() bool {
	return len(r.IdentitiesWithoutRole) == 0 && len(r.RolesWithoutAccount) == 0 &&
		len(r.AccountsWithoutRole) == 0 && len(r.AccountsWithoutIdentity) == 0
}

// Audit cross-checks identities, role records and account records.
func (s *ProvisioningService) Audit(ctx context.Context, identities IdentityLister) (*AuditReport, error) {
	all, err := identities.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	roles, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list role records: %w", err)
	}
	teachers, err := s.teachers.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	known := make(map[string]bool, len(all))
	report := &AuditReport{}
	for _, i := range all {
		known[i.ID] = true
		if _, ok := roles[i.ID]; !ok {
			report.IdentitiesWithoutRole = append(report.IdentitiesWithoutRole, i)
		}
	}

	accounted := make(map[string]bool, len(teachers))
	for _, t := range teachers {
		accounted[t.IdentityID] = true
		if _, ok := roles[t.IdentityID]; !ok {
			report.AccountsWithoutRole = append(report.AccountsWithoutRole, t)
		}
		if !known[t.IdentityID] {
			report.AccountsWithoutIdentity = append(report.AccountsWithoutIdentity, t)
		}
	}
	for identityID := range roles {
		if !accounted[identityID] {
			report.RolesWithoutAccount = append(report.RolesWithoutAccount, identityID)
		}
	}
	sort.Strings(report.RolesWithoutAccount)
	return report, nil
}

package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stemsi/perizinan-backend/internal/model"
	"github.com/stemsi/perizinan-backend/internal/policy"
	"github.com/stemsi/perizinan-backend/internal/repository"
	"github.com/stemsi/perizinan-backend/internal/store"
)

func TestBackupRoundTrip(t *testing.T) {
	authz, err := policy.New()
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	ctx := context.Background()
	s := store.NewMemoryStore()
	students := repository.NewStudentRepository(s)
	svc := NewBackupService(s, authz, zerolog.Nop())

	st := &model.Student{NISN: "1", Name: "Ana", Class: "X-1", Gender: model.GenderFemale, Dormitory: "Asrama A"}
	if err := students.Create(ctx, st); err != nil {
		t.Fatalf("create student: %v", err)
	}

	if _, err := svc.Backup(ctx, model.RoleApprover); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("approver Backup() error = %v", err)
	}
	dump, err := svc.Backup(ctx, model.RoleAdmin)
	if err != nil {
		t.Fatalf("Backup: %v", err)
	}
	if len(dump) != len(repository.Collections) || len(dump[repository.CollectionStudents]) != 1 {
		t.Fatalf("Backup() = %+v", dump)
	}

	if err := students.Delete(ctx, st.ID); err != nil {
		t.Fatalf("delete student: %v", err)
	}
	if err := svc.Restore(ctx, model.RoleAdmin, dump); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	got, err := students.GetByID(ctx, st.ID)
	if err != nil || got.Name != "Ana" {
		t.Fatalf("restored student = %+v, %v", got, err)
	}

	if err := svc.Restore(ctx, model.RoleAdmin, Backup{"exams": {}}); !errors.Is(err, ErrInvalidField) {
		t.Fatalf("Restore(unknown collection) error = %v", err)
	}

	if err := svc.Restore(ctx, model.RoleAdmin, Backup{}); err != nil {
		t.Fatalf("Restore(empty): %v", err)
	}
	all, _ := students.List(ctx)
	if len(all) != 0 {
		t.Fatalf("collections absent from the backup must be emptied, got %d students", len(all))
	}
}

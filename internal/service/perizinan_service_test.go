package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/perizinan-backend/internal/model"
	"github.com/stemsi/perizinan-backend/internal/policy"
	"github.com/stemsi/perizinan-backend/internal/repository"
	"github.com/stemsi/perizinan-backend/internal/store"
)

func newPerizinanService(t *testing.T) (*PerizinanService, *repository.StudentRepository) {
	t.Helper()
	authz, err := policy.New()
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	s := store.NewMemoryStore()
	students := repository.NewStudentRepository(s)
	return NewPerizinanService(repository.NewPerizinanRepository(s), students, authz, zerolog.Nop()), students
}

func validDraft() model.CreatePerizinanRequest {
	return model.CreatePerizinanRequest{
		SubjectName: "Ana",
		ClassName:   "X-1",
		Dormitory:   "Asrama A",
		Reason:      "Sakit",
		DepartTime:  "2024-05-01T08:00",
		ReturnTime:  "2024-05-02T17:00",
		Status:      "approved",
	}
}

func TestCreateAlwaysPending(t *testing.T) {
	svc, _ := newPerizinanService(t)
	p, err := svc.Create(context.Background(), model.RoleSubmitter, validDraft())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.Status != model.StatusPending || p.ID == "" {
		t.Fatalf("Create() = %+v", p)
	}
	stored, err := svc.Get(context.Background(), model.RoleApprover, p.ID)
	if err != nil || stored.Status != model.StatusPending {
		t.Fatalf("Get() = %+v, %v", stored, err)
	}
}

func TestCreateCopiesRosterEntry(t *testing.T) {
	svc, students := newPerizinanService(t)
	st := &model.Student{NISN: "0051234567", Name: "Budi", Class: "XI-2", Gender: model.GenderMale, Dormitory: "Asrama B"}
	if err := students.Create(context.Background(), st); err != nil {
		t.Fatalf("create student: %v", err)
	}

	draft := validDraft()
	draft.StudentID = st.ID
	draft.SubjectName = ""
	p, err := svc.Create(context.Background(), model.RoleSubmitter, draft)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.SubjectName != "Budi" || p.ClassName != "XI-2" || p.Dormitory != "Asrama B" {
		t.Fatalf("roster fields not copied: %+v", p)
	}

	draft.StudentID = "missing"
	if _, err := svc.Create(context.Background(), model.RoleSubmitter, draft); !errors.Is(err, ErrStudentNotFound) {
		t.Fatalf("Create() with unknown student error = %v", err)
	}
}

func TestMutationsCheckActorRole(t *testing.T) {
	svc, _ := newPerizinanService(t)
	ctx := context.Background()
	p, err := svc.Create(ctx, model.RoleSubmitter, validDraft())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.Create(ctx, model.RoleApprover, validDraft()); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("approver Create() error = %v", err)
	}
	if err := svc.SetStatus(ctx, model.RoleSubmitter, p.ID, "approved"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("submitter SetStatus() error = %v", err)
	}
	if err := svc.SetField(ctx, model.RoleAdmin, p.ID, "reason", "x"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("admin SetField() error = %v", err)
	}
	if err := svc.Remove(ctx, model.RoleApprover, p.ID); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("approver Remove() error = %v", err)
	}
	if err := svc.Remove(ctx, model.Role(""), p.ID); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("empty role Remove() error = %v", err)
	}
}

func TestSetStatus(t *testing.T) {
	svc, _ := newPerizinanService(t)
	ctx := context.Background()
	p, _ := svc.Create(ctx, model.RoleSubmitter, validDraft())

	if err := svc.SetStatus(ctx, model.RoleApprover, p.ID, "pending"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("SetStatus(pending) error = %v", err)
	}
	if err := svc.SetStatus(ctx, model.RoleApprover, p.ID, "done"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("SetStatus(done) error = %v", err)
	}
	if err := svc.SetStatus(ctx, model.RoleApprover, "missing", "approved"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("SetStatus(missing) error = %v", err)
	}
	if err := svc.SetStatus(ctx, model.RoleApprover, p.ID, "rejected"); err != nil {
		t.Fatalf("SetStatus(rejected): %v", err)
	}
	if err := svc.SetStatus(ctx, model.RoleApprover, p.ID, "approved"); err != nil {
		t.Fatalf("re-deciding must be allowed: %v", err)
	}
	got, _ := svc.Get(ctx, model.RoleAdmin, p.ID)
	if got.Status != model.StatusApproved {
		t.Fatalf("status = %s", got.Status)
	}
}

func TestSetFieldEditsOneField(t *testing.T) {
	svc, _ := newPerizinanService(t)
	ctx := context.Background()
	p, _ := svc.Create(ctx, model.RoleSubmitter, validDraft())

	if err := svc.SetField(ctx, model.RoleSubmitter, p.ID, "reason", "Acara keluarga"); err != nil {
		t.Fatalf("SetField(reason): %v", err)
	}
	if err := svc.SetField(ctx, model.RoleApprover, p.ID, "dormitory", "Asrama C"); err != nil {
		t.Fatalf("SetField(dormitory): %v", err)
	}
	got, _ := svc.Get(ctx, model.RoleAdmin, p.ID)
	if got.Reason != "Acara keluarga" || got.Dormitory != "Asrama C" || got.SubjectName != "Ana" {
		t.Fatalf("after edits = %+v", got)
	}

	if err := svc.SetField(ctx, model.RoleSubmitter, p.ID, "status", "approved"); !errors.Is(err, ErrInvalidField) {
		t.Fatalf("SetField(status) error = %v", err)
	}
	if err := svc.SetField(ctx, model.RoleSubmitter, p.ID, "departTime", "besok"); !errors.Is(err, ErrInvalidField) {
		t.Fatalf("SetField(bad time) error = %v", err)
	}
	if err := svc.SetField(ctx, model.RoleSubmitter, "missing", "reason", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("SetField(missing) error = %v", err)
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	svc, _ := newPerizinanService(t)
	ctx := context.Background()
	p, _ := svc.Create(ctx, model.RoleSubmitter, validDraft())

	for i := 0; i < 2; i++ {
		if err := svc.Remove(ctx, model.RoleAdmin, p.ID); err != nil {
			t.Fatalf("Remove #%d: %v", i+1, err)
		}
	}
	if _, err := svc.Get(ctx, model.RoleAdmin, p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() after remove error = %v", err)
	}
}

func TestListenDeliversStatusChangeToEverySubscriber(t *testing.T) {
	svc, _ := newPerizinanService(t)
	ctx := context.Background()
	p, _ := svc.Create(ctx, model.RoleSubmitter, validDraft())

	type listener struct {
		mu   sync.Mutex
		seen bool
		done chan struct{}
	}
	listeners := make([]*listener, 3)
	for i := range listeners {
		l := &listener{done: make(chan struct{})}
		listeners[i] = l
		unsubscribe, err := svc.Listen(ctx, model.AllRoles[i], func(all []model.Perizinan, err error) {
			if err != nil {
				return
			}
			for _, r := range all {
				if r.ID == p.ID && r.Status == model.StatusApproved {
					l.mu.Lock()
					if !l.seen {
						l.seen = true
						close(l.done)
					}
					l.mu.Unlock()
				}
			}
		})
		if err != nil {
			t.Fatalf("Listen: %v", err)
		}
		defer unsubscribe()
	}

	if err := svc.SetStatus(ctx, model.RoleApprover, p.ID, "approved"); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	for i, l := range listeners {
		select {
		case <-l.done:
		case <-time.After(2 * time.Second):
			t.Fatalf("listener %d never saw the approved request", i)
		}
	}
}

func TestQueryEnrichesFiltersAndPaginates(t *testing.T) {
	svc, students := newPerizinanService(t)
	ctx := context.Background()
	_ = students.Create(ctx, &model.Student{Name: "Ana", Class: "X-9", Dormitory: "Asrama Z"})

	for i := 0; i < 12; i++ {
		if _, err := svc.Create(ctx, model.RoleSubmitter, validDraft()); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	page, err := svc.Query(ctx, model.RoleApprover, Filter{Search: "x-9"}, SortSpec{}, 2, 10)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if page.Total != 12 || len(page.Items) != 2 || page.TotalPages != 2 {
		t.Fatalf("page = %+v", page)
	}
	if page.Items[0].ClassName != "X-9" {
		t.Fatalf("items not enriched: %+v", page.Items[0])
	}
}

func TestWatchDeliversEnrichedListOnRosterChange(t *testing.T) {
	svc, students := newPerizinanService(t)
	ctx := context.Background()

	draft := validDraft()
	draft.ClassName = ""
	draft.Dormitory = ""
	if _, err := svc.Create(ctx, model.RoleSubmitter, draft); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got := make(chan []model.Perizinan, 16)
	stop, err := svc.Watch(ctx, model.RoleApprover, func(requests []model.Perizinan, err error) {
		if err == nil {
			got <- requests
		}
	})
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer stop()

	waitFor := func(want string) {
		t.Helper()
		deadline := time.After(2 * time.Second)
		for {
			select {
			case requests := <-got:
				if len(requests) == 1 && requests[0].ClassName == want {
					return
				}
			case <-deadline:
				t.Fatalf("no snapshot with class %q", want)
			}
		}
	}
	waitFor(UnknownValue)

	st := &model.Student{NISN: "1", Name: "Ana", Class: "XII-3", Gender: model.GenderFemale, Dormitory: "Asrama A"}
	if err := students.Create(ctx, st); err != nil {
		t.Fatalf("create student: %v", err)
	}
	waitFor("XII-3")
}

package session

import (
	"testing"

	"github.com/stemsi/perizinan-backend/internal/model"
)

func TestDecide(t *testing.T) {
	submitter := &model.Session{ID: "u1", Role: model.RoleSubmitter}
	admin := &model.Session{ID: "u2", Role: model.RoleAdmin}
	bogus := &model.Session{ID: "u3", Role: model.Role("janitor")}

	tests := []struct {
		name     string
		state    State
		required []model.Role
		want     Decision
	}{
		{"loading without session", State{Loading: true}, []model.Role{model.RoleAdmin}, ShowLoadingPlaceholder},
		{"loading with session", State{Loading: true, Session: admin}, []model.Role{model.RoleAdmin}, ShowLoadingPlaceholder},
		{"signed out", State{}, []model.Role{model.RoleAdmin}, RedirectToLogin},
		{"role not permitted", State{Session: submitter}, []model.Role{model.RoleApprover}, RedirectToDefaultDashboard},
		{"unrecognized role", State{Session: bogus}, []model.Role{model.RoleAdmin}, RedirectToDefaultDashboard},
		{"role permitted", State{Session: admin}, []model.Role{model.RoleAdmin}, RenderProtectedContent},
		{"one of several", State{Session: submitter}, []model.Role{model.RoleApprover, model.RoleSubmitter}, RenderProtectedContent},
		{"no roles permitted", State{Session: admin}, nil, RedirectToDefaultDashboard},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.state, "/teacher", tt.required...)
			if got.Decision != tt.want {
				t.Fatalf("Decide() = %s, want %s", got.Decision, tt.want)
			}
		})
	}
}

func TestDecideCapturesRequestedLocation(t *testing.T) {
	v := Decide(State{}, "/deputy?status=pending", model.RoleApprover)
	if v.Decision != RedirectToLogin || v.From != "/deputy?status=pending" {
		t.Fatalf("Decide() = %+v", v)
	}
}

func TestDefaultDestination(t *testing.T) {
	cases := map[model.Role]string{
		model.RoleAdmin:     "/admin",
		model.RoleSubmitter: "/teacher",
		model.RoleApprover:  "/deputy",
	}
	for role, want := range cases {
		if got, ok := DefaultDestination(role); !ok || got != want {
			t.Fatalf("DefaultDestination(%s) = %q, %v", role, got, ok)
		}
	}
	if _, ok := DefaultDestination("janitor"); ok {
		t.Fatal("unrecognized role must not have a destination")
	}
}

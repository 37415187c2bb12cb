package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/perizinan-backend/internal/config"
	"github.com/stemsi/perizinan-backend/internal/model"
	"github.com/stemsi/perizinan-backend/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

type stubIdentities struct {
	byID map[string]*model.Identity
	next int
}

func newStubIdentities() *stubIdentities {
	return &stubIdentities{byID: map[string]*model.Identity{}}
}

func (s *stubIdentities) GetByID(_ context.Context, id string) (*model.Identity, error) {
	if i, ok := s.byID[id]; ok {
		return i, nil
	}
	return nil, repository.ErrIdentityNotFound
}

func (s *stubIdentities) GetByEmail(_ context.Context, email string) (*model.Identity, error) {
	for _, i := range s.byID {
		if i.Email == email {
			return i, nil
		}
	}
	return nil, repository.ErrIdentityNotFound
}

func (s *stubIdentities) Create(_ context.Context, i *model.Identity) error {
	if _, err := s.GetByEmail(context.Background(), i.Email); err == nil {
		return repository.ErrEmailTaken
	}
	s.next++
	i.ID = "identity-" + string(rune('0'+s.next))
	i.CreatedAt = time.Now()
	s.byID[i.ID] = i
	return nil
}

func (s *stubIdentities) Delete(_ context.Context, id string) error {
	delete(s.byID, id)
	return nil
}

type stubSessions struct {
	m map[string]string
}

func (s *stubSessions) Save(_ context.Context, sessionID, identityID string, _ time.Duration) error {
	s.m[sessionID] = identityID
	return nil
}

func (s *stubSessions) Get(_ context.Context, sessionID string) (string, error) {
	if id, ok := s.m[sessionID]; ok {
		return id, nil
	}
	return "", repository.ErrSessionNotFound
}

func (s *stubSessions) Delete(_ context.Context, sessionID string) error {
	delete(s.m, sessionID)
	return nil
}

func (s *stubSessions) ListByIdentity(_ context.Context, identityID string) ([]string, error) {
	var ids []string
	for sessionID, id := range s.m {
		if id == identityID {
			ids = append(ids, sessionID)
		}
	}
	return ids, nil
}

func newTestGateway() (*IdentityGateway, *stubIdentities, *stubSessions) {
	cfg := &config.Config{JWTSecret: "test-secret", JWTExpiry: time.Hour, BcryptCost: bcrypt.MinCost}
	ids := newStubIdentities()
	sessions := &stubSessions{m: map[string]string{}}
	return NewIdentityGateway(cfg, ids, sessions, zerolog.Nop()), ids, sessions
}

func TestSignInEmitsOneEvent(t *testing.T) {
	gw, _, sessions := newTestGateway()
	ctx := context.Background()
	if _, err := gw.CreateAccount(ctx, "guru@x.sch.id", "secret123"); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}

	var events []IdentityEvent
	unsubscribe := gw.OnIdentityChange(func(ev IdentityEvent) { events = append(events, ev) })
	defer unsubscribe()

	res, err := gw.SignIn(ctx, "guru@x.sch.id", "secret123")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if len(events) != 1 || events[0].SessionID != res.SessionID || events[0].Identity == nil {
		t.Fatalf("events = %+v", events)
	}
	if sessions.m[res.SessionID] != res.Identity.ID {
		t.Fatal("session token not stored")
	}

	claims, err := gw.ValidateToken(res.Token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.ID != res.SessionID || claims.Subject != res.Identity.ID {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestCreateAccountDoesNotEmit(t *testing.T) {
	gw, _, _ := newTestGateway()
	called := false
	unsubscribe := gw.OnIdentityChange(func(IdentityEvent) { called = true })
	defer unsubscribe()
	if _, err := gw.CreateAccount(context.Background(), "a@x.sch.id", "secret123"); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if called {
		t.Fatal("creating an account must not change any session")
	}
}

func TestSignOutEmitsSignedOut(t *testing.T) {
	gw, _, sessions := newTestGateway()
	ctx := context.Background()
	_, _ = gw.CreateAccount(ctx, "a@x.sch.id", "secret123")
	res, _ := gw.SignIn(ctx, "a@x.sch.id", "secret123")

	var last IdentityEvent
	unsubscribe := gw.OnIdentityChange(func(ev IdentityEvent) { last = ev })
	defer unsubscribe()

	if err := gw.SignOut(ctx, res.SessionID); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if last.SessionID != res.SessionID || last.Identity != nil {
		t.Fatalf("last event = %+v", last)
	}
	if _, ok := sessions.m[res.SessionID]; ok {
		t.Fatal("session token not removed")
	}
}

func TestReauthenticateWithoutSession(t *testing.T) {
	gw, _, _ := newTestGateway()
	if err := gw.Reauthenticate(context.Background(), "nope", "secret123"); !errors.Is(err, ErrNotSignedIn) {
		t.Fatalf("Reauthenticate() error = %v, want ErrNotSignedIn", err)
	}
}

func TestUnsubscribeStopsEvents(t *testing.T) {
	gw, _, _ := newTestGateway()
	count := 0
	unsubscribe := gw.OnIdentityChange(func(IdentityEvent) { count++ })
	_ = gw.Restore(context.Background(), "s1")
	unsubscribe()
	unsubscribe()
	_ = gw.Restore(context.Background(), "s1")
	if count != 1 {
		t.Fatalf("handler called %d times, want 1", count)
	}
}

func TestRevokeIdentitySignsOutEverySession(t *testing.T) {
	gw, _, sessions := newTestGateway()
	ctx := context.Background()
	_, _ = gw.CreateAccount(ctx, "a@x.sch.id", "secret123")
	_, _ = gw.CreateAccount(ctx, "b@x.sch.id", "secret123")
	first, _ := gw.SignIn(ctx, "a@x.sch.id", "secret123")
	second, _ := gw.SignIn(ctx, "a@x.sch.id", "secret123")
	other, _ := gw.SignIn(ctx, "b@x.sch.id", "secret123")

	signedOut := map[string]bool{}
	unsubscribe := gw.OnIdentityChange(func(ev IdentityEvent) {
		if ev.Identity == nil {
			signedOut[ev.SessionID] = true
		}
	})
	defer unsubscribe()

	if err := gw.RevokeIdentity(ctx, first.Identity.ID); err != nil {
		t.Fatalf("RevokeIdentity: %v", err)
	}
	if len(signedOut) != 2 || !signedOut[first.SessionID] || !signedOut[second.SessionID] {
		t.Fatalf("signed-out events = %v", signedOut)
	}
	for _, id := range []string{first.SessionID, second.SessionID} {
		if active, err := gw.Active(ctx, id); err != nil || active {
			t.Fatalf("Active(%s) = %v, %v after revoke", id, active, err)
		}
	}
	if active, _ := gw.Active(ctx, other.SessionID); !active {
		t.Fatal("another identity's session was revoked")
	}
	if _, ok := sessions.m[other.SessionID]; !ok {
		t.Fatal("another identity's token was removed")
	}
}

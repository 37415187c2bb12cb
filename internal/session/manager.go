package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/perizinan-backend/internal/metrics"
	"github.com/stemsi/perizinan-backend/internal/service"
)

// ErrAccountNotProvisioned is returned by Login when the identity has no
// usable role record. The sign-in is reversed before returning.
var ErrAccountNotProvisioned = errors.New("account not provisioned")

const sweepInterval = time.Minute

// Gateway is the identity gateway consumed by the Manager.
type Gateway interface {
	SignIn(ctx context.Context, email, password string) (*service.SignInResult, error)
	SignOut(ctx context.Context, sessionID string) error
	Reauthenticate(ctx context.Context, sessionID, password string) error
	Restore(ctx context.Context, sessionID string) error
	Active(ctx context.Context, sessionID string) (bool, error)
	OnIdentityChange(handler func(service.IdentityEvent)) func()
}

// Resolver resolves the role of an identity.
type Resolver interface {
	Resolve(ctx context.Context, identityID string) (service.Resolution, error)
}

// Manager owns the session stores of all client sessions and the single
// identity change subscription that feeds them. It lives from NewManager
// until Close.
type Manager struct {
	gateway     Gateway
	resolver    Resolver
	waitTimeout time.Duration
	log         zerolog.Logger

	mu     sync.Mutex
	stores map[string]*Store

	unsubscribe func()
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

// NewManager creates a Manager and subscribes it to gateway.
func NewManager(gateway Gateway, resolver Resolver, waitTimeout time.Duration, log zerolog.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		gateway:     gateway,
		resolver:    resolver,
		waitTimeout: waitTimeout,
		log:         log.With().Str("component", "session_manager").Logger(),
		stores:      make(map[string]*Store),
		ctx:         ctx,
		cancel:      cancel,
	}
	m.unsubscribe = gateway.OnIdentityChange(m.handle)
	return m
}

func (m *Manager) storeFor(sessionID string) (*Store, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.stores[sessionID]; ok {
		return st, false
	}
	st := newStore()
	m.stores[sessionID] = st
	return st, true
}

func (m *Manager) drop(sessionID string) {
	m.mu.Lock()
	delete(m.stores, sessionID)
	m.mu.Unlock()
}

// handle is the identity change handler. Role resolution runs in the
// background; a newer event for the same session makes it stale.
func (m *Manager) handle(ev service.IdentityEvent) {
	if m.ctx.Err() != nil {
		return
	}
	st, _ := m.storeFor(ev.SessionID)

	if ev.Identity == nil {
		st.signedOut()
		m.log.Debug().Str("session_id", ev.SessionID).Msg("Session signed out")
		return
	}

	gen, needed := st.begin(ev.Identity.ID)
	if !needed {
		return
	}

	identity := ev.Identity
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		res, err := m.resolver.Resolve(m.ctx, identity.ID)
		if err != nil {
			// Only a cancelled context ends here, during shutdown.
			return
		}
		if !st.finish(gen, identity, res) {
			m.log.Debug().Str("session_id", ev.SessionID).Msg("Discarded stale role resolution")
			return
		}
		m.log.Info().
			Str("session_id", ev.SessionID).
			Str("identity_id", identity.ID).
			Str("resolution", res.State.String()).
			Str("role", string(res.Record.Role)).
			Msg("Session resolved")
	}()
}

// LoginResult is a completed login.
type LoginResult struct {
	service.SignInResult
	State State
}

// Login signs in and waits for the session to resolve. An identity without a
// role record is signed back out and ErrAccountNotProvisioned is returned.
func (m *Manager) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	res, err := m.gateway.SignIn(ctx, email, password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
		} else {
			metrics.LoginsTotal.WithLabelValues("error").Inc()
		}
		return nil, err
	}

	st, _ := m.storeFor(res.SessionID)
	if !st.Wait(ctx) {
		_ = m.gateway.SignOut(context.WithoutCancel(ctx), res.SessionID)
		m.drop(res.SessionID)
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return nil, ctx.Err()
	}

	state := st.State()
	if state.Session == nil || state.Session.ID != res.Identity.ID {
		if err := m.gateway.SignOut(ctx, res.SessionID); err != nil {
			m.log.Error().Err(err).Str("session_id", res.SessionID).Msg("Failed to reverse sign-in")
		}
		m.drop(res.SessionID)
		metrics.LoginsTotal.WithLabelValues("not_provisioned").Inc()
		m.log.Warn().Str("identity_id", res.Identity.ID).Msg("Login rejected: account not provisioned")
		return nil, ErrAccountNotProvisioned
	}

	metrics.LoginsTotal.WithLabelValues("ok").Inc()
	return &LoginResult{SignInResult: *res, State: state}, nil
}

// Logout signs the session out and clears its store without waiting for the
// signed-out notification.
func (m *Manager) Logout(ctx context.Context, sessionID string) error {
	if st, ok := m.peek(sessionID); ok {
		st.signedOut()
	}
	err := m.gateway.SignOut(ctx, sessionID)
	m.drop(sessionID)
	if err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

// Reauthenticate re-validates the password of the session's identity.
func (m *Manager) Reauthenticate(ctx context.Context, sessionID, password string) error {
	return m.gateway.Reauthenticate(ctx, sessionID, password)
}

// Resolve returns the state of a client session. A session unknown to this
// process is restored from the gateway first. A known signed-in session is
// checked against the gateway on every call, so a session revoked by another
// process reads as signed out. The call waits at most the configured timeout
// for a loading session; the state may still be loading when it returns.
func (m *Manager) Resolve(ctx context.Context, sessionID string) State {
	st, created := m.storeFor(sessionID)
	st.touch()
	if created {
		if err := m.gateway.Restore(ctx, sessionID); err != nil {
			m.log.Warn().Err(err).Str("session_id", sessionID).Msg("Session restore failed")
			m.drop(sessionID)
			return State{}
		}
	}

	waitCtx, cancel := context.WithTimeout(ctx, m.waitTimeout)
	defer cancel()
	st.Wait(waitCtx)
	state := st.State()
	if created || state.Session == nil {
		return state
	}

	active, err := m.gateway.Active(ctx, sessionID)
	if err != nil {
		m.log.Warn().Err(err).Str("session_id", sessionID).Msg("Session check failed")
		return State{}
	}
	if !active {
		st.signedOut()
		m.drop(sessionID)
		m.log.Debug().Str("session_id", sessionID).Msg("Revoked session dropped")
		return State{}
	}
	return state
}

func (m *Manager) peek(sessionID string) (*Store, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.stores[sessionID]
	return st, ok
}

// Len returns the number of tracked client sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stores)
}

// Sweep forgets stores idle for longer than maxIdle. A forgotten session is
// restored from the gateway on its next request.
func (m *Manager) Sweep(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, st := range m.stores {
		if st.idleSince().Before(cutoff) {
			delete(m.stores, id)
			removed++
		}
	}
	return removed
}

// Start runs the idle sweeper until ctx is done.
func (m *Manager) Start(ctx context.Context, maxIdle time.Duration) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(maxIdle); n > 0 {
				m.log.Debug().Int("removed", n).Msg("Idle sessions swept")
			}
		}
	}
}

// Close ends the identity change subscription and waits for in-flight
// resolutions.
func (m *Manager) Close() {
	m.unsubscribe()
	m.cancel()
	m.wg.Wait()
}

package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/perizinan-backend/internal/config"
	"github.com/stemsi/perizinan-backend/internal/model"
	"github.com/stemsi/perizinan-backend/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// Common identity errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotSignedIn        = errors.New("no identity is signed in")
)

// IdentityStore is the persistence of the identity provider.
type IdentityStore interface {
	GetByID(ctx context.Context, id string) (*model.Identity, error)
	GetByEmail(ctx context.Context, email string) (*model.Identity, error)
	Create(ctx context.Context, i *model.Identity) error
	Delete(ctx context.Context, id string) error
}

// SessionTokenStore records which client sessions are signed in.
type SessionTokenStore interface {
	Save(ctx context.Context, sessionID, identityID string, ttl time.Duration) error
	Get(ctx context.Context, sessionID string) (string, error)
	Delete(ctx context.Context, sessionID string) error
	ListByIdentity(ctx context.Context, identityID string) ([]string, error)
}

// Claims extends JWT standard claims with the signed-in email.
// The token ID is the client session id.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// IdentityEvent is one identity transition of a client session. Identity is
// nil when the session signed out.
type IdentityEvent struct {
	SessionID string
	Identity  *model.Identity
}

// SignInResult is returned by a successful sign-in.
type SignInResult struct {
	Identity  *model.Identity
	SessionID string
	Token     string
	ExpiresAt time.Time
}

// IdentityGateway wraps the identity provider: sign-in, sign-out,
// re-authentication, account creation and identity change notifications.
type IdentityGateway struct {
	cfg        *config.Config
	identities IdentityStore
	sessions   SessionTokenStore
	log        zerolog.Logger

	// emitMu keeps events in emission order across handlers.
	emitMu   sync.Mutex
	mu       sync.RWMutex
	handlers map[int]func(IdentityEvent)
	nextID   int
}

// NewIdentityGateway creates a new IdentityGateway.
func NewIdentityGateway(cfg *config.Config, identities IdentityStore, sessions SessionTokenStore, log zerolog.Logger) *IdentityGateway {
	return &IdentityGateway{
		cfg:        cfg,
		identities: identities,
		sessions:   sessions,
		log:        log.With().Str("component", "identity_gateway").Logger(),
		handlers:   make(map[int]func(IdentityEvent)),
	}
}

// OnIdentityChange registers handler for every identity transition. Handlers
// run synchronously in emission order and must not call back into the gateway.
func (g *IdentityGateway) OnIdentityChange(handler func(IdentityEvent)) func() {
	g.mu.Lock()
	id := g.nextID
	g.nextID++
	g.handlers[id] = handler
	g.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.handlers, id)
			g.mu.Unlock()
		})
	}
}

func (g *IdentityGateway) emit(ev IdentityEvent) {
	g.emitMu.Lock()
	defer g.emitMu.Unlock()

	g.mu.RLock()
	handlers := make([]func(IdentityEvent), 0, len(g.handlers))
	for _, h := range g.handlers {
		handlers = append(handlers, h)
	}
	g.mu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
}

// SignIn checks the credentials, opens a new client session and emits its
// signed-in event before returning.
func (g *IdentityGateway) SignIn(ctx context.Context, email, password string) (*SignInResult, error) {
	identity, err := g.identities.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrIdentityNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup identity: %w", err)
	}
	if err := g.CheckPassword(identity.PasswordHash, password); err != nil {
		return nil, err
	}

	sessionID := uuid.New().String()
	now := time.Now()
	expiresAt := now.Add(g.cfg.JWTExpiry)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email: identity.Email,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(g.cfg.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	if err := g.sessions.Save(ctx, sessionID, identity.ID, g.cfg.JWTExpiry); err != nil {
		return nil, err
	}

	g.log.Info().Str("session_id", sessionID).Str("identity_id", identity.ID).Msg("Signed in")
	g.emit(IdentityEvent{SessionID: sessionID, Identity: identity})

	return &SignInResult{
		Identity:  identity,
		SessionID: sessionID,
		Token:     signed,
		ExpiresAt: expiresAt,
	}, nil
}

// SignOut closes a client session and emits its signed-out event.
func (g *IdentityGateway) SignOut(ctx context.Context, sessionID string) error {
	if err := g.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	g.log.Info().Str("session_id", sessionID).Msg("Signed out")
	g.emit(IdentityEvent{SessionID: sessionID})
	return nil
}

// RevokeIdentity signs out every client session of identityID and emits a
// signed-out event for each.
func (g *IdentityGateway) RevokeIdentity(ctx context.Context, identityID string) error {
	sessionIDs, err := g.sessions.ListByIdentity(ctx, identityID)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}
	for _, sessionID := range sessionIDs {
		if err := g.SignOut(ctx, sessionID); err != nil {
			return err
		}
	}
	if len(sessionIDs) > 0 {
		g.log.Info().Str("identity_id", identityID).Int("sessions", len(sessionIDs)).Msg("Identity sessions revoked")
	}
	return nil
}

// Active reports whether sessionID is still signed in.
func (g *IdentityGateway) Active(ctx context.Context, sessionID string) (bool, error) {
	if _, err := g.sessions.Get(ctx, sessionID); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Reauthenticate re-validates the password of the identity signed in under
// sessionID without touching the session.
func (g *IdentityGateway) Reauthenticate(ctx context.Context, sessionID, password string) error {
	identity, err := g.current(ctx, sessionID)
	if err != nil {
		return err
	}
	if identity == nil {
		return ErrNotSignedIn
	}
	return g.CheckPassword(identity.PasswordHash, password)
}

// Restore emits the current state of a client session: signed-in with its
// identity, or signed-out when the session is unknown or its identity is gone.
func (g *IdentityGateway) Restore(ctx context.Context, sessionID string) error {
	identity, err := g.current(ctx, sessionID)
	if err != nil {
		return err
	}
	g.emit(IdentityEvent{SessionID: sessionID, Identity: identity})
	return nil
}

func (g *IdentityGateway) current(ctx context.Context, sessionID string) (*model.Identity, error) {
	identityID, err := g.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, nil
		}
		return nil, err
	}
	identity, err := g.identities.GetByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, repository.ErrIdentityNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup identity: %w", err)
	}
	return identity, nil
}

// CreateAccount registers a new identity. The caller's own session is not affected.
func (g *IdentityGateway) CreateAccount(ctx context.Context, email, password string) (*model.Identity, error) {
	hash, err := g.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	identity := &model.Identity{Email: email, PasswordHash: hash}
	if err := g.identities.Create(ctx, identity); err != nil {
		return nil, err
	}
	g.log.Info().Str("identity_id", identity.ID).Str("email", identity.Email).Msg("Identity created")
	return identity, nil
}

// DeleteAccount removes an identity.
func (g *IdentityGateway) DeleteAccount(ctx context.Context, identityID string) error {
	if err := g.identities.Delete(ctx, identityID); err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	g.log.Info().Str("identity_id", identityID).Msg("Identity deleted")
	return nil
}

// HashPassword hashes a password with the configured bcrypt cost.
func (g *IdentityGateway) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), g.cfg.BcryptCost)
	return string(hash), err
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func (g *IdentityGateway) CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// ValidateToken parses and validates a JWT, returning the claims.
func (g *IdentityGateway) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(g.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

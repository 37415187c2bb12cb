package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/perizinan-backend/internal/middleware"
	"github.com/stemsi/perizinan-backend/internal/model"
	"github.com/stemsi/perizinan-backend/internal/response"
	"github.com/stemsi/perizinan-backend/internal/service"
	"github.com/stemsi/perizinan-backend/internal/session"
	"github.com/stemsi/perizinan-backend/internal/validator"
)

// SessionManager is the session lifecycle used by the auth endpoints.
type SessionManager interface {
	Login(ctx context.Context, email, password string) (*session.LoginResult, error)
	Logout(ctx context.Context, sessionID string) error
	Reauthenticate(ctx context.Context, sessionID, password string) error
}

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	sessions SessionManager
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(sessions SessionManager) *AuthHandler {
	return &AuthHandler{sessions: sessions}
}

// Login godoc
// POST /api/v1/auth/login
// Signs in with email + password. The response carries the token, the
// resolved session and the dashboard of its role.
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.sessions.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			response.Fail(c, http.StatusServiceUnavailable, response.ErrSessionLoading)
			return
		}
		failService(c, err)
		return
	}

	destination, _ := session.DefaultDestination(res.State.Session.Role)
	response.Success(c, http.StatusOK, gin.H{
		"token":       res.Token,
		"expires_at":  res.ExpiresAt,
		"session":     res.State.Session,
		"destination": destination,
	})
}

// Logout godoc
// POST /api/v1/auth/logout
// Ends the current client session.
func (h *AuthHandler) Logout(c *gin.Context) {
	sessionID := middleware.SessionID(c)
	if sessionID == "" {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	if err := h.sessions.Logout(c.Request.Context(), sessionID); err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// Reauthenticate godoc
// POST /api/v1/auth/reauthenticate
// Re-validates the password of the signed-in user before a destructive action.
func (h *AuthHandler) Reauthenticate(c *gin.Context) {
	var req model.ReauthenticateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	err := h.sessions.Reauthenticate(c.Request.Context(), middleware.SessionID(c), req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Fail(c, http.StatusForbidden, response.ErrReauthRequired)
			return
		}
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"reauthenticated": true})
}

// Me godoc
// GET /api/v1/auth/me
// Returns the session state of the caller, including while it is loading.
func (h *AuthHandler) Me(c *gin.Context) {
	response.Success(c, http.StatusOK, middleware.GetState(c))
}

package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/perizinan-backend/internal/model"
	"github.com/stemsi/perizinan-backend/internal/session"
)

// ContextKeySessionState is the Gin context key for the resolved session state.
const ContextKeySessionState = "session_state"

// SessionResolver returns the state of a client session.
type SessionResolver interface {
	Resolve(ctx context.Context, sessionID string) session.State
}

// ResolveSession loads the session state of the token's client session. It
// must run after ParseToken. Requests without valid claims get the
// signed-out state.
func ResolveSession(sessions SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		state := session.State{}
		if id := SessionID(c); id != "" {
			state = sessions.Resolve(c.Request.Context(), id)
		}
		c.Set(ContextKeySessionState, state)
		c.Next()
	}
}

// GetState retrieves the session state from the Gin context. Without
// ResolveSession in the chain the request counts as signed out.
func GetState(c *gin.Context) session.State {
	val, exists := c.Get(ContextKeySessionState)
	if !exists {
		return session.State{}
	}
	state, _ := val.(session.State)
	return state
}

// Actor returns the signed-in session, or nil.
func Actor(c *gin.Context) *model.Session {
	return GetState(c).Session
}

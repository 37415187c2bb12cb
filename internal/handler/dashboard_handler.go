package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/perizinan-backend/internal/middleware"
	"github.com/stemsi/perizinan-backend/internal/response"
	"github.com/stemsi/perizinan-backend/internal/session"
)

// DashboardHandler resolves the role-neutral dashboard.
type DashboardHandler struct{}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler() *DashboardHandler {
	return &DashboardHandler{}
}

// Destination godoc
// GET /api/v1/dashboard
// Returns the dashboard of the caller's role. The route is not behind
// RequireRoles: an unrecognized role gets UNAUTHORIZED_ROLE here without a
// redirect, otherwise the gate would send it back to this endpoint.
func (h *DashboardHandler) Destination(c *gin.Context) {
	state := middleware.GetState(c)
	if state.Loading {
		response.FailRetry(c, http.StatusServiceUnavailable, response.ErrSessionLoading, time.Second)
		return
	}
	actor := state.Session
	if actor == nil {
		response.AbortRedirect(c, http.StatusUnauthorized, response.ErrNotSignedIn, session.LoginPath, session.DashboardPath)
		return
	}

	destination, ok := session.DefaultDestination(actor.Role)
	if !ok {
		response.Fail(c, http.StatusForbidden, response.ErrUnauthorizedRole)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"destination": destination,
		"role":        actor.Role,
	})
}

package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/perizinan-backend/internal/model"
	"github.com/stemsi/perizinan-backend/internal/response"
	"github.com/stemsi/perizinan-backend/internal/session"
)

// RequireRoles applies the authorization gate to the route. A loading session
// gets 503 with Retry-After, a missing session 401 with a redirect to the
// login view, and a session with another role 403 with a redirect to the
// role-neutral dashboard.
func RequireRoles(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		verdict := session.Decide(GetState(c), c.Request.URL.RequestURI(), roles...)

		switch verdict.Decision {
		case session.ShowLoadingPlaceholder:
			response.AbortFailRetry(c, http.StatusServiceUnavailable, response.ErrSessionLoading, time.Second)
		case session.RedirectToLogin:
			response.AbortRedirect(c, http.StatusUnauthorized, response.ErrNotSignedIn, session.LoginPath, verdict.From)
		case session.RedirectToDefaultDashboard:
			response.AbortRedirect(c, http.StatusForbidden, response.ErrUnauthorizedRole, session.DashboardPath, "")
		default:
			c.Next()
		}
	}
}

// RequireSession admits any signed-in session regardless of role.
func RequireSession() gin.HandlerFunc {
	return RequireRoles(model.AllRoles...)
}

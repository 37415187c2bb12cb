package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stemsi/perizinan-backend/internal/model"
	"github.com/stemsi/perizinan-backend/internal/response"
	"github.com/stemsi/perizinan-backend/internal/service"
	"github.com/stemsi/perizinan-backend/internal/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubTokens struct{}

func (stubTokens) ValidateToken(tokenStr string) (*service.Claims, error) {
	if !strings.HasPrefix(tokenStr, "sess-") {
		return nil, errors.New("bad token")
	}
	return &service.Claims{RegisteredClaims: jwt.RegisteredClaims{ID: tokenStr}}, nil
}

type stubSessions map[string]session.State

func (s stubSessions) Resolve(_ context.Context, sessionID string) session.State {
	return s[sessionID]
}

func newGateRouter(sessions stubSessions) *gin.Engine {
	r := gin.New()
	r.Use(ParseToken(stubTokens{}), ResolveSession(sessions))
	r.GET("/admin/report", RequireRoles(model.RoleAdmin), func(c *gin.Context) {
		c.String(http.StatusOK, "ok:"+string(Actor(c).Role))
	})
	return r
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) *response.ErrorBody {
	t.Helper()
	var body response.Response
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	if body.Error == nil {
		t.Fatalf("expected error body, got %s", w.Body.String())
	}
	return body.Error
}

func TestRequireRolesDecisions(t *testing.T) {
	sessions := stubSessions{
		"sess-admin":   {Session: &model.Session{ID: "i1", Role: model.RoleAdmin}},
		"sess-teacher": {Session: &model.Session{ID: "i2", Role: model.RoleSubmitter}},
		"sess-loading": {Loading: true},
	}
	r := newGateRouter(sessions)

	tests := []struct {
		name     string
		token    string
		status   int
		code     response.ErrCode
		redirect string
	}{
		{"admin renders", "sess-admin", http.StatusOK, "", ""},
		{"loading waits", "sess-loading", http.StatusServiceUnavailable, response.ErrSessionLoading, ""},
		{"no token goes to login", "", http.StatusUnauthorized, response.ErrNotSignedIn, session.LoginPath},
		{"invalid token goes to login", "garbage", http.StatusUnauthorized, response.ErrNotSignedIn, session.LoginPath},
		{"wrong role goes to dashboard", "sess-teacher", http.StatusForbidden, response.ErrUnauthorizedRole, session.DashboardPath},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/report?format=csv", nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.status, w.Body.String())
			}
			if tt.code == "" {
				return
			}
			body := decodeError(t, w)
			if body.Code != tt.code {
				t.Fatalf("code = %s, want %s", body.Code, tt.code)
			}
			if tt.redirect == "" {
				if body.Redirect != nil {
					t.Fatalf("unexpected redirect %+v", body.Redirect)
				}
				return
			}
			if body.Redirect == nil || body.Redirect.To != tt.redirect {
				t.Fatalf("redirect = %+v, want %s", body.Redirect, tt.redirect)
			}
			if tt.redirect == session.LoginPath && body.Redirect.From != "/admin/report?format=csv" {
				t.Fatalf("redirect.from = %q", body.Redirect.From)
			}
		})
	}
}

func TestTokenFromQuery(t *testing.T) {
	r := newGateRouter(stubSessions{"sess-admin": {Session: &model.Session{ID: "i1", Role: model.RoleAdmin}}})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/report?token=sess-admin", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2)
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if !rl.allow("1.1.1.1") || !rl.allow("1.1.1.1") {
		t.Fatalf("burst not allowed")
	}
	if rl.allow("1.1.1.1") {
		t.Fatalf("third request allowed")
	}
	if !rl.allow("2.2.2.2") {
		t.Fatalf("other IP limited")
	}

	now = now.Add(31 * time.Second)
	if !rl.allow("1.1.1.1") {
		t.Fatalf("token not refilled")
	}

	now = now.Add(10 * time.Minute)
	rl.Cleanup(3 * time.Minute)
	if len(rl.visitors) != 0 {
		t.Fatalf("visitors not cleaned: %d", len(rl.visitors))
	}
}

func TestRateLimiterMiddleware(t *testing.T) {
	r := gin.New()
	r.POST("/login", NewRateLimiter(1).Middleware(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for i, want := range []int{http.StatusNoContent, http.StatusTooManyRequests} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
		if w.Code != want {
			t.Fatalf("request %d status = %d, want %d", i, w.Code, want)
		}
	}
}

func TestBrotliCompressesLargeJSON(t *testing.T) {
	payload := strings.Repeat("perizinan ", 500)
	r := gin.New()
	r.Use(Brotli())
	r.GET("/big", func(c *gin.Context) { c.String(http.StatusOK, payload) })
	r.GET("/small", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/pdf", func(c *gin.Context) { c.Data(http.StatusOK, "application/pdf", []byte(payload)) })

	get := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Accept-Encoding", "gzip, br")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := get("/big")
	if w.Header().Get("Content-Encoding") != "br" {
		t.Fatalf("large body not compressed")
	}
	plain, err := io.ReadAll(brotli.NewReader(w.Body))
	if err != nil || string(plain) != payload {
		t.Fatalf("decompressed body mismatch: %v", err)
	}

	if w := get("/small"); w.Header().Get("Content-Encoding") != "" || w.Body.String() != "ok" {
		t.Fatalf("small body = %q encoding %q", w.Body.String(), w.Header().Get("Content-Encoding"))
	}
	if w := get("/pdf"); w.Header().Get("Content-Encoding") != "" || w.Body.Len() != len(payload) {
		t.Fatalf("pdf body compressed")
	}
}

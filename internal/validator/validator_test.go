package validator

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

type payload struct {
	Email string `json:"email" binding:"required,email"`
	Role  string `json:"role" binding:"required,staffrole"`
}

func bind(t *testing.T, body string) map[string]string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	c.Request.Header.Set("Content-Type", "application/json")
	var p payload
	return Bind(c, &p)
}

func TestBindUsesJSONNames(t *testing.T) {
	Setup()
	fields := bind(t, `{"email":"bukan-email","role":"kepala"}`)
	if fields["email"] == "" || fields["role"] == "" {
		t.Fatalf("fields = %v", fields)
	}
}

func TestStaffRoleAcceptsLegacyNames(t *testing.T) {
	Setup()
	for _, role := range []string{"admin", "approver", "submitter", "wakil", "GuruPiket"} {
		if fields := bind(t, `{"email":"guru@school.id","role":"`+role+`"}`); fields != nil {
			t.Fatalf("role %q rejected: %v", role, fields)
		}
	}
}

func TestMalformedJSONReportsDetail(t *testing.T) {
	Setup()
	if fields := bind(t, `{"email":`); fields["detail"] == "" {
		t.Fatalf("fields = %v", fields)
	}
}

package router

import (
	"bufio"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/perizinan-backend/internal/config"
	"github.com/stemsi/perizinan-backend/internal/middleware"
	"github.com/stemsi/perizinan-backend/internal/policy"
)

func newTestEngine(t *testing.T) *gin.Engine {
	t.Helper()
	authz, err := policy.New()
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	deps := Deps{Authz: authz, LoginLimiter: middleware.NewRateLimiter(10)}
	cfg := &config.Config{GinMode: gin.TestMode, UploadDir: t.TempDir()}
	return SetupRouter(deps, &Handlers{}, cfg)
}

var routeDoc = regexp.MustCompile(`^// (GET|POST|PUT|PATCH|DELETE|WS) (/[^?\s]+)`)

// documentedRoutes collects the "METHOD /path" lines of the handler godocs.
func documentedRoutes(t *testing.T) []string {
	t.Helper()
	files, err := filepath.Glob(filepath.Join("..", "handler", "*.go"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	var routes []string
	for _, name := range files {
		if strings.HasSuffix(name, "_test.go") {
			continue
		}
		f, err := os.Open(name)
		if err != nil {
			t.Fatalf("open %s: %v", name, err)
		}
		sc := bufio.NewScanner(f)
		for sc.Scan() {
			m := routeDoc.FindStringSubmatch(sc.Text())
			if m == nil {
				continue
			}
			method := m[1]
			if method == "WS" {
				method = http.MethodGet
			}
			routes = append(routes, method+" "+m[2])
		}
		f.Close()
	}
	return routes
}

func TestDocumentedRoutesAreMounted(t *testing.T) {
	mounted := map[string]bool{}
	for _, r := range newTestEngine(t).Routes() {
		mounted[r.Method+" "+r.Path] = true
	}

	documented := documentedRoutes(t)
	if len(documented) < 30 {
		t.Fatalf("found only %d documented routes", len(documented))
	}
	for _, route := range documented {
		if !mounted[route] {
			t.Errorf("%s is documented but not mounted", route)
		}
	}
	for _, route := range []string{"GET /api/v1/teachers", "DELETE /api/v1/teachers/:id", "GET /api/v1/teachers/audit"} {
		if !mounted[route] {
			t.Errorf("%s not mounted", route)
		}
	}
}

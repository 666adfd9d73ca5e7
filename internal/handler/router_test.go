package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/arbaazshaikh08/job-app/internal/middleware"
	"github.com/arbaazshaikh08/job-app/internal/model"
)

// stubAccessVerifier は "valid-token" のみを受け付ける。
type stubAccessVerifier struct{}

func (stubAccessVerifier) VerifyAccess(raw string) (*model.Identity, error) {
	if raw == "valid-token" {
		return &model.Identity{UserID: "user-123"}, nil
	}
	return nil, model.NewUnauthorizedError("Invalid access token")
}

type stubHealthChecker struct {
	err error
}

func (s stubHealthChecker) PingContext(context.Context) error { return s.err }

func newTestRouter(deps *RouterDeps) http.Handler {
	if deps.AccessVerifier == nil {
		deps.AccessVerifier = stubAccessVerifier{}
	}
	if deps.UserService == nil {
		deps.UserService = &mockUserService{}
	}
	if deps.AuthService == nil {
		deps.AuthService = &mockAuthService{}
	}
	if deps.JobService == nil {
		deps.JobService = &mockJobService{}
	}
	if deps.CORSAllowedOrigin == "" {
		deps.CORSAllowedOrigin = "http://localhost:3000"
	}
	if deps.BodyLimitBytes == 0 {
		deps.BodyLimitBytes = 16 * 1024
	}
	return NewRouter(deps)
}

func TestNewRouter_Liveness(t *testing.T) {
	router := newTestRouter(&RouterDeps{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if w.Body.String() != "Server is live ✅" {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestNewRouter_Health(t *testing.T) {
	tests := []struct {
		name       string
		checker    HealthChecker
		wantStatus int
		wantBody   string
	}{
		{"no checker", nil, http.StatusOK, `"ok"`},
		{"db reachable", stubHealthChecker{}, http.StatusOK, `"ok"`},
		{"db down", stubHealthChecker{err: errors.New("down")}, http.StatusServiceUnavailable, `"unavailable"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&RouterDeps{HealthChecker: tt.checker})

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if !strings.Contains(w.Body.String(), tt.wantBody) {
				t.Errorf("body = %q, want to contain %s", w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestNewRouter_MetricsEndpoint(t *testing.T) {
	metricsHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# metrics"))
	})
	router := newTestRouter(&RouterDeps{MetricsHandler: metricsHandler})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK || w.Body.String() != "# metrics" {
		t.Errorf("status = %d, body = %q", w.Code, w.Body.String())
	}
}

func TestNewRouter_ProtectedRoutesRequireToken(t *testing.T) {
	router := newTestRouter(&RouterDeps{})

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/users/logout-user"},
		{http.MethodPost, "/api/v1/users/update-user"},
		{http.MethodPost, "/api/v1/jobs/create-job"},
		{http.MethodGet, "/api/v1/jobs/get-jobs"},
		{http.MethodPost, "/api/v1/jobs/update-job/job-1"},
		{http.MethodDelete, "/api/v1/jobs/delete-job/job-1"},
		{http.MethodPost, "/api/v1/jobs/job-stats"},
	}

	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(rt.method, rt.path, nil))
			if w.Code != http.StatusUnauthorized {
				t.Errorf("without token: status = %d, want %d", w.Code, http.StatusUnauthorized)
			}

			req := httptest.NewRequest(rt.method, rt.path, nil)
			req.Header.Set("Authorization", "Bearer invalid")
			w = httptest.NewRecorder()
			router.ServeHTTP(w, req)
			if w.Code != http.StatusUnauthorized {
				t.Errorf("invalid token: status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
		})
	}
}

func TestNewRouter_ProtectedRouteWithCookie(t *testing.T) {
	router := newTestRouter(&RouterDeps{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/get-jobs", nil)
	req.AddCookie(&http.Cookie{Name: middleware.AccessTokenCookie, Value: "valid-token"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestNewRouter_PublicUserRoutesSkipGate(t *testing.T) {
	router := newTestRouter(&RouterDeps{})

	req := jsonRequest(t, http.MethodPost, "/api/v1/users/register-user", map[string]string{"email": "a@b.c"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", w.Code, http.StatusCreated)
	}
}

func TestNewRouter_AuthRoutesAreRateLimitedPerIP(t *testing.T) {
	rl := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(100, 1))
	defer rl.Stop()
	router := newTestRouter(&RouterDeps{RateLimiter: rl})

	send := func() int {
		req := jsonRequest(t, http.MethodPost, "/api/v1/users/register-user", map[string]string{})
		req.RemoteAddr = "203.0.113.7:5555"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	if code := send(); code != http.StatusCreated {
		t.Fatalf("first request status = %d, want %d", code, http.StatusCreated)
	}
	if code := send(); code != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want %d", code, http.StatusTooManyRequests)
	}
}

func TestNewRouter_CORSPreflight(t *testing.T) {
	router := newTestRouter(&RouterDeps{})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/jobs/get-jobs", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestNewRouter_SetsSecurityHeaders(t *testing.T) {
	router := newTestRouter(&RouterDeps{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
}

func TestNewRouter_RequestBodyLimit(t *testing.T) {
	router := newTestRouter(&RouterDeps{BodyLimitBytes: 32})

	body := `{"username":"` + strings.Repeat("x", 256) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register-user", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want %d", w.Code, http.StatusRequestEntityTooLarge)
	}
}

func TestNewRouter_UnknownRoute(t *testing.T) {
	router := newTestRouter(&RouterDeps{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/unknown", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dividify/dividify-backend/api/controllers"
	"github.com/dividify/dividify-backend/api/middleware"
	"github.com/dividify/dividify-backend/internal/processor"
	"github.com/dividify/dividify-backend/internal/schedules"
	pkgAuth "github.com/dividify/dividify-backend/pkg/auth"
	"github.com/dividify/dividify-backend/pkg/config"
	"github.com/dividify/dividify-backend/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubRunner struct {
	calls int
}

func (s *stubRunner) Run(context.Context) (processor.BatchSummary, error) {
	s.calls++
	return processor.BatchSummary{Results: []processor.ScheduleResult{}}, nil
}

type stubSchedules struct {
	schedules.Service
	listed bool
}

func (s *stubSchedules) List(ctx context.Context, userID uuid.UUID, companyID *uuid.UUID) ([]schedules.ScheduleDTO, error) {
	s.listed = true
	return []schedules.ScheduleDTO{}, nil
}

func (s *stubSchedules) Runs(ctx context.Context, userID, id uuid.UUID, limit int) ([]schedules.RunDTO, error) {
	return []schedules.RunDTO{}, nil
}

type stubRateStore struct{}

func (stubRateStore) IncrWithTTL(context.Context, string, time.Duration) (int64, error) {
	return 1, nil
}

func (stubRateStore) RateLimitKey(policy, subject string) string {
	return policy + ":" + subject
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", CORSOrigins: []string{"http://localhost:3000"}},
		JWT: config.JWTConfig{Secret: "jwt-secret", Issuer: "dividify", ExpirationMinutes: 60},
		Cron: config.CronConfig{
			Secret:            "cron-secret",
			TriggerRateLimit:  10,
			TriggerRateWindow: time.Minute,
		},
	}
}

func newTestRouter(t *testing.T) (http.Handler, *stubRunner, *stubSchedules) {
	t.Helper()
	runner := &stubRunner{}
	svc := &stubSchedules{}
	cfg := testConfig()
	verifier, err := pkgAuth.NewVerifier(cfg.JWT)
	if err != nil {
		t.Fatalf("verifier: %v", err)
	}
	router := NewRouter(Deps{
		Config:     cfg,
		Tokens:     verifier,
		Logger:     logger.Nop(),
		Schedules:  svc,
		Runner:     runner,
		RateLimits: stubRateStore{},
		Readiness:  []controllers.ReadinessCheck{{Name: "db", Pinger: stubPinger{}}},
		Gatherer:   prometheus.NewRegistry(),
	})
	return router, runner, svc
}

func bearer(t *testing.T, cfg config.JWTConfig) string {
	t.Helper()
	token, err := pkgAuth.Sign(cfg, time.Now(), uuid.New())
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return "Bearer " + token
}

func TestHealthRoutes(t *testing.T) {
	router, _, _ := newTestRouter(t)
	for _, path := range []string{"/health/live", "/health/ready"} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, resp.Code)
		}
		if resp.Header().Get("X-Request-Id") == "" {
			t.Fatalf("%s: expected request id header", path)
		}
	}
}

func TestMetricsRoute(t *testing.T) {
	router, _, _ := newTestRouter(t)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestCronTriggerRequiresSecret(t *testing.T) {
	router, runner, _ := newTestRouter(t)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/cron/scheduled-dividends", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
	if runner.calls != 0 {
		t.Fatal("runner must not be called without the secret")
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cron/scheduled-dividends", nil)
	req.Header.Set(middleware.CronSecretHeader, "cron-secret")
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"success":true`) {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
	if runner.calls != 1 {
		t.Fatalf("expected one batch, got %d", runner.calls)
	}
}

func TestScheduleRoutesRequireAuth(t *testing.T) {
	router, _, svc := newTestRouter(t)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/schedules", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/schedules", nil)
	req.Header.Set("Authorization", bearer(t, testConfig().JWT))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if !svc.listed {
		t.Fatal("expected list to reach the service")
	}
}

func TestScheduleRunsRoute(t *testing.T) {
	router, _, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/schedules/"+uuid.NewString()+"/runs", nil)
	req.Header.Set("Authorization", bearer(t, testConfig().JWT))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestCORSPreflight(t *testing.T) {
	router, _, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/schedules", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if got := resp.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("expected allowed origin, got %q", got)
	}
}

package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dividify/dividify-backend/pkg/config"
	"github.com/dividify/dividify-backend/pkg/logger"
)

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func testConfig() *config.Config {
	return &config.Config{App: config.AppConfig{Env: "test"}}
}

func TestHealthLive(t *testing.T) {
	resp := httptest.NewRecorder()
	HealthLive(testConfig())(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if resp.Header().Get(envHeader) != "test" {
		t.Fatalf("expected env header, got %q", resp.Header().Get(envHeader))
	}
}

func TestHealthReadyAllUp(t *testing.T) {
	ok := pingFunc(func(context.Context) error { return nil })
	checks := []ReadinessCheck{{Name: "db", Pinger: ok}, {Name: "redis", Pinger: ok}}

	resp := httptest.NewRecorder()
	HealthReady(testConfig(), checks, logger.Nop())(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data struct {
			Status string            `json:"status"`
			Checks map[string]string `json:"checks"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.Status != "ready" || envelope.Data.Checks["redis"] != "up" {
		t.Fatalf("unexpected payload %+v", envelope.Data)
	}
}

func TestHealthReadyReportsFailingDependency(t *testing.T) {
	checks := []ReadinessCheck{
		{Name: "db", Pinger: pingFunc(func(context.Context) error { return nil })},
		{Name: "redis", Pinger: pingFunc(func(context.Context) error { return errors.New("dial tcp: refused") })},
	}

	resp := httptest.NewRecorder()
	HealthReady(testConfig(), checks, logger.Nop())(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
	var envelope struct {
		Error struct {
			Details map[string]string `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Error.Details["redis"] != "dial tcp: refused" || envelope.Error.Details["db"] != "up" {
		t.Fatalf("unexpected details %+v", envelope.Error.Details)
	}
}

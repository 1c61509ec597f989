package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/dividify/dividify-backend/pkg/errors"
)

type fakeStore struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value.(string)
	f.ttls[key] = ttl
	return nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	f.data[key] = value.(string)
	f.ttls[key] = ttl
	return true, nil
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func postWithKey(path, body, key string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	if key != "" {
		req.Header.Set(IdempotencyKeyHeader, key)
	}
	return req
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload.Error.Code
}

func TestMatchIdempotentRoute(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		path     string
		ttl      time.Duration
		required bool
		ok       bool
	}{
		{"create schedule", http.MethodPost, "/api/v1/schedules", creationIdempotencyTTL, true, true},
		{"pause", http.MethodPost, "/api/v1/schedules/9b2c/pause", toggleIdempotencyTTL, false, true},
		{"resume", http.MethodPost, "/api/v1/schedules/9b2c/resume", toggleIdempotencyTTL, false, true},
		{"missing id", http.MethodPost, "/api/v1/schedules//pause", 0, false, false},
		{"nested action", http.MethodPost, "/api/v1/schedules/9b2c/runs/pause", 0, false, false},
		{"update is not covered", http.MethodPatch, "/api/v1/schedules/9b2c", 0, false, false},
		{"cron trigger", http.MethodPost, "/api/v1/cron/scheduled-dividends", 0, false, false},
		{"runs listing", http.MethodGet, "/api/v1/schedules/9b2c/runs", 0, false, false},
	}
	for _, tt := range tests {
		route, ok := matchIdempotentRoute(tt.method, tt.path)
		assert.Equal(t, tt.ok, ok, tt.name)
		if ok {
			assert.Equal(t, tt.ttl, route.ttl, tt.name)
			assert.Equal(t, tt.required, route.required, tt.name)
		}
	}
}

func TestIdempotencyRequiresKeyOnCreate(t *testing.T) {
	called := false
	handler := Idempotency(newFakeStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, postWithKey("/api/v1/schedules", `{"frequency":"monthly"}`, ""))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, called)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, postWithKey("/api/v1/schedules", `{}`, strings.Repeat("k", maxIdempotencyKeyLength+1)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIdempotencyOptionalOnPause(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	for i := 0; i < 2; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), postWithKey("/api/v1/schedules/9b2c/pause", "", ""))
	}
	assert.Equal(t, 2, calls)
	assert.Empty(t, store.data)
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"s1"}}`))
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, postWithKey("/api/v1/schedules", `{"frequency":"monthly"}`, "abc"))
	require.Equal(t, http.StatusCreated, first.Code)
	assert.Empty(t, first.Header().Get(IdempotentReplayHeader))

	replay := httptest.NewRecorder()
	handler.ServeHTTP(replay, postWithKey("/api/v1/schedules/", `{"frequency":"monthly"}`, "abc"))
	assert.Equal(t, http.StatusCreated, replay.Code)
	assert.Equal(t, "application/json", replay.Header().Get("Content-Type"))
	assert.Equal(t, "true", replay.Header().Get(IdempotentReplayHeader))
	assert.Equal(t, `{"data":{"id":"s1"}}`, replay.Body.String())
	assert.Equal(t, 1, calls)

	for key, ttl := range store.ttls {
		assert.Equal(t, creationIdempotencyTTL, ttl, key)
	}
}

func TestIdempotencyReleasesKeyAfterServerError(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))

	for i := 0; i < 2; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), postWithKey("/api/v1/schedules", `{}`, "retry-me"))
	}
	assert.Equal(t, 2, calls)
	assert.Len(t, store.data, 1)
}

func TestIdempotencyRejectsDifferentBody(t *testing.T) {
	handler := Idempotency(newFakeStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), postWithKey("/api/v1/schedules", `{"day_of_month":1}`, "xyz"))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, postWithKey("/api/v1/schedules", `{"day_of_month":2}`, "xyz"))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeIdempotency), errorCode(t, rec))
}

func TestIdempotencyRefusesConcurrentRepeat(t *testing.T) {
	store := newFakeStore()
	inner := Idempotency(store, nil)
	var repeat *httptest.ResponseRecorder
	var handler http.Handler
	handler = inner(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if repeat == nil {
			repeat = httptest.NewRecorder()
			handler.ServeHTTP(repeat, postWithKey("/api/v1/schedules", `{}`, "dup"))
		}
		w.WriteHeader(http.StatusCreated)
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, postWithKey("/api/v1/schedules", `{}`, "dup"))

	assert.Equal(t, http.StatusCreated, first.Code)
	require.NotNil(t, repeat)
	assert.Equal(t, http.StatusConflict, repeat.Code)
	assert.Contains(t, repeat.Body.String(), "still in progress")
}

func TestIdempotencyScopesKeysPerUser(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))
	for _, user := range []string{"user-a", "user-b"} {
		req := postWithKey("/api/v1/schedules", `{}`, "same-key")
		req = req.WithContext(WithUserID(req.Context(), user))
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
	assert.Equal(t, 2, calls)
}

func TestRequestPathTrimsTrailingSlash(t *testing.T) {
	assert.Equal(t, "/api/v1/schedules", requestPath(httptest.NewRequest(http.MethodPost, "/api/v1/schedules/", nil)))
	assert.Equal(t, "/", requestPath(httptest.NewRequest(http.MethodGet, "/", nil)))
}

func TestIdempotencyIgnoresUnlistedRoutes(t *testing.T) {
	called := false
	handler := Idempotency(newFakeStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/schedules", nil))
	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
}

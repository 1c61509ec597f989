package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/dividify/dividify-backend/pkg/errors"
)

type sampleBody struct {
	Frequency  string   `json:"frequency" validate:"required,frequency"`
	DayOfMonth int      `json:"day_of_month" validate:"min=1,max=28"`
	StartDate  string   `json:"start_date" validate:"required,datetime=2006-01-02"`
	Recipients []string `json:"email_recipients" validate:"omitempty,dive,email"`
}

func TestDecodeJSONBodyValid(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"frequency":"monthly","day_of_month":15,"start_date":"2025-01-01","email_recipients":["a@example.com"]}`))
	var body sampleBody
	if err := DecodeJSONBody(req, &body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body.DayOfMonth != 15 || body.Frequency != "monthly" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestDecodeJSONBodyReportsFieldErrors(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"frequency":"weekly","day_of_month":31,"start_date":"01/01/2025","email_recipients":["nope"]}`))
	var body sampleBody
	err := DecodeJSONBody(req, &body)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("expected field details, got %T", typed.Details())
	}
	if details["frequency"] != "must be one of monthly, quarterly, annually" {
		t.Fatalf("unexpected frequency message %q", details["frequency"])
	}
	if details["day_of_month"] != "must be at most 28" {
		t.Fatalf("unexpected day message %q", details["day_of_month"])
	}
	if details["start_date"] != "must be a date formatted YYYY-MM-DD" {
		t.Fatalf("unexpected date message %q", details["start_date"])
	}
	if details["email_recipients[0]"] != "must be a valid email" {
		t.Fatalf("unexpected recipient message %q (all: %v)", details["email_recipients[0]"], details)
	}
}

func TestDecodeJSONBodyRejectsMalformedBodies(t *testing.T) {
	cases := map[string]string{
		"empty":      ``,
		"trailing":   `{"frequency":"monthly","day_of_month":1,"start_date":"2025-01-01"} {}`,
		"wrong type": `{"frequency":"monthly","day_of_month":"first","start_date":"2025-01-01"}`,
		"too large":  `{"frequency":"` + strings.Repeat("m", maxBodyBytes) + `"}`,
		"not json":   `frequency=monthly`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(raw))
			var body sampleBody
			if err := DecodeJSONBody(req, &body); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"frequency":"monthly","day_of_month":1,"start_date":"2025-01-01","surprise":true}`))
	var body sampleBody
	if err := DecodeJSONBody(req, &body); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=20", nil)
	if v, err := ParseQueryInt(req, "limit", 50, 1, 100); err != nil || v != 20 {
		t.Fatalf("expected 20, got %d (%v)", v, err)
	}
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	if v, err := ParseQueryInt(req, "limit", 50, 1, 100); err != nil || v != 50 {
		t.Fatalf("expected default 50, got %d (%v)", v, err)
	}
	req = httptest.NewRequest(http.MethodGet, "/?limit=500", nil)
	if _, err := ParseQueryInt(req, "limit", 50, 1, 100); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected range error, got %v", err)
	}
}

func TestParseUUIDParam(t *testing.T) {
	id := uuid.New()
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("scheduleID", id.String())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	got, err := ParseUUIDParam(req, "scheduleID")
	if err != nil || got != id {
		t.Fatalf("expected %s, got %s (%v)", id, got, err)
	}
	if _, err := ParseUUIDParam(req, "missing"); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for missing param, got %v", err)
	}
}

func TestParseOptionalUUIDQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got, err := ParseOptionalUUIDQuery(req, "company_id"); err != nil || got != nil {
		t.Fatalf("expected nil, got %v (%v)", got, err)
	}
	req = httptest.NewRequest(http.MethodGet, "/?company_id=bad", nil)
	if _, err := ParseOptionalUUIDQuery(req, "company_id"); err == nil {
		t.Fatal("expected error for malformed id")
	}
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("start_date", "2025-03-31")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if !got.Equal(time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date %v", got)
	}
	if _, err := ParseDate("start_date", "31/03/2025"); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

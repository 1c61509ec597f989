package documents

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestRenderVoucherProducesPDF(t *testing.T) {
	r := NewRenderer(fixedClock(generatedAt))
	out, err := r.RenderVoucher(sampleSnapshot(), paymentDate, 7)
	if err != nil {
		t.Fatalf("RenderVoucher: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF-")) {
		t.Fatalf("expected PDF header, got %q", out[:min(len(out), 8)])
	}
}

func TestRenderMinutesProducesPDF(t *testing.T) {
	r := NewRenderer(fixedClock(generatedAt))
	out, err := r.RenderMinutes(sampleSnapshot(), paymentDate)
	if err != nil {
		t.Fatalf("RenderMinutes: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF-")) {
		t.Fatal("expected PDF header")
	}
}

func TestRenderIsDeterministicForFixedClock(t *testing.T) {
	r := NewRenderer(fixedClock(generatedAt))
	first, err := r.RenderVoucher(sampleSnapshot(), paymentDate, 3)
	if err != nil {
		t.Fatalf("first render: %v", err)
	}
	second, err := r.RenderVoucher(sampleSnapshot(), paymentDate, 3)
	if err != nil {
		t.Fatalf("second render: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatal("expected identical output for identical inputs")
	}

	minutesA, _ := r.RenderMinutes(sampleSnapshot(), paymentDate)
	minutesB, _ := r.RenderMinutes(sampleSnapshot(), paymentDate)
	if !bytes.Equal(minutesA, minutesB) {
		t.Fatal("expected identical minutes output")
	}
}

func TestRenderFailsWithoutCompanyName(t *testing.T) {
	r := NewRenderer(fixedClock(generatedAt))
	snap := sampleSnapshot()
	snap.CompanyName = " "
	if _, err := r.RenderVoucher(snap, paymentDate, 1); !errors.Is(err, ErrMissingCompanyName) {
		t.Fatalf("expected ErrMissingCompanyName, got %v", err)
	}
	if _, err := r.RenderMinutes(snap, paymentDate); !errors.Is(err, ErrMissingCompanyName) {
		t.Fatalf("expected ErrMissingCompanyName, got %v", err)
	}
}

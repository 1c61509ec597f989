package documents

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func sampleSnapshot() Snapshot {
	return Snapshot{
		CompanyName:               "Acme Widgets Ltd",
		CompanyRegistrationNumber: "01234567",
		CompanyAddress:            "1 High Street, London, EC1A 1AA",
		ShareholderName:           "Jane Director",
		ShareholderAddress:        "2 Low Road, Leeds, LS1 1AA",
		ShareClass:                "Ordinary",
		NumberOfShares:            1000,
		AmountPerShare:            decimal.RequireFromString("2.50"),
		TotalAmount:               decimal.RequireFromString("2500.00"),
	}
}

var (
	paymentDate = time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC)
	generatedAt = time.Date(2025, time.January, 15, 6, 0, 0, 0, time.UTC)
)

func TestBuildVoucherContent(t *testing.T) {
	content, err := BuildVoucherContent(sampleSnapshot(), paymentDate, 7, generatedAt)
	if err != nil {
		t.Fatalf("BuildVoucherContent: %v", err)
	}
	if content.TotalAmount != "£2,500.00" {
		t.Fatalf("expected total £2,500.00, got %q", content.TotalAmount)
	}
	if content.AmountPerShare != "£2.50" {
		t.Fatalf("expected per share £2.50, got %q", content.AmountPerShare)
	}
	if content.PaymentDate != "15/01/2025" {
		t.Fatalf("expected payment date 15/01/2025, got %q", content.PaymentDate)
	}
	if content.VoucherNumber != "7" || content.NumberOfShares != "1,000" {
		t.Fatalf("unexpected voucher fields: %+v", content)
	}
	for _, want := range []string{"Acme Widgets Ltd", "Jane Director", "£2,500.00", "15/01/2025"} {
		if !strings.Contains(content.Declaration, want) {
			t.Fatalf("declaration %q missing %q", content.Declaration, want)
		}
	}
	if content.GeneratedAt != "15/01/2025 06:00 UTC" {
		t.Fatalf("unexpected generated at %q", content.GeneratedAt)
	}
}

func TestBuildVoucherContentDefaultsBlankShareholder(t *testing.T) {
	snap := sampleSnapshot()
	snap.ShareholderName = "   "
	content, err := BuildVoucherContent(snap, paymentDate, 1, generatedAt)
	if err != nil {
		t.Fatalf("BuildVoucherContent: %v", err)
	}
	if content.ShareholderName != "Shareholder" {
		t.Fatalf("expected default shareholder name, got %q", content.ShareholderName)
	}
}

func TestBuildContentRequiresCompanyName(t *testing.T) {
	snap := sampleSnapshot()
	snap.CompanyName = ""
	if _, err := BuildVoucherContent(snap, paymentDate, 1, generatedAt); !errors.Is(err, ErrMissingCompanyName) {
		t.Fatalf("voucher: expected ErrMissingCompanyName, got %v", err)
	}
	if _, err := BuildMinutesContent(snap, paymentDate, generatedAt); !errors.Is(err, ErrMissingCompanyName) {
		t.Fatalf("minutes: expected ErrMissingCompanyName, got %v", err)
	}
}

func TestBuildVoucherContentRejectsBadInputs(t *testing.T) {
	if _, err := BuildVoucherContent(sampleSnapshot(), paymentDate, 0, generatedAt); !errors.Is(err, ErrInvalidVoucher) {
		t.Fatalf("expected ErrInvalidVoucher, got %v", err)
	}
	if _, err := BuildVoucherContent(sampleSnapshot(), time.Time{}, 1, generatedAt); !errors.Is(err, ErrMissingPaymentDate) {
		t.Fatalf("expected ErrMissingPaymentDate, got %v", err)
	}
}

func TestBuildMinutesContent(t *testing.T) {
	content, err := BuildMinutesContent(sampleSnapshot(), paymentDate, generatedAt)
	if err != nil {
		t.Fatalf("BuildMinutesContent: %v", err)
	}
	if content.MeetingDate != "15/01/2025" {
		t.Fatalf("expected meeting date 15/01/2025, got %q", content.MeetingDate)
	}
	if len(content.Attendees) != 1 || content.Attendees[0] != "Jane Director" {
		t.Fatalf("unexpected attendees %v", content.Attendees)
	}
	joined := strings.Join(content.Resolutions, "\n")
	for _, want := range []string{"£2.50 per Ordinary share", "totalling £2,500.00", "paid on 15/01/2025"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("resolutions missing %q:\n%s", want, joined)
		}
	}
}

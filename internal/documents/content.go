package documents

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const defaultShareholderName = "Shareholder"

var (
	// ErrMissingCompanyName is fatal for a run: documents are never issued without the declaring company.
	ErrMissingCompanyName = errors.New("missing company name: cannot render documents without the declaring company")
	ErrMissingPaymentDate = errors.New("missing payment date")
	ErrInvalidVoucher     = errors.New("voucher number must be positive")
)

// Snapshot is the schedule data a document is rendered from.
type Snapshot struct {
	CompanyName               string
	CompanyRegistrationNumber string
	CompanyAddress            string
	ShareholderName           string
	ShareholderAddress        string
	ShareClass                string
	NumberOfShares            int64
	AmountPerShare            decimal.Decimal
	TotalAmount               decimal.Decimal
}

// VoucherContent is every string printed on a dividend voucher.
type VoucherContent struct {
	VoucherNumber      string
	CompanyName        string
	RegistrationNumber string
	CompanyAddress     string
	ShareholderName    string
	ShareholderAddress string
	ShareClass         string
	NumberOfShares     string
	AmountPerShare     string
	TotalAmount        string
	PaymentDate        string
	Declaration        string
	GeneratedAt        string
}

// MinutesContent is every string printed on board minutes.
type MinutesContent struct {
	CompanyName        string
	RegistrationNumber string
	CompanyAddress     string
	MeetingDate        string
	Attendees          []string
	Resolutions        []string
	GeneratedAt        string
}

// BuildVoucherContent validates snap and lays out the voucher text.
func BuildVoucherContent(snap Snapshot, paymentDate time.Time, voucherNumber int64, generatedAt time.Time) (VoucherContent, error) {
	if err := validate(snap, paymentDate); err != nil {
		return VoucherContent{}, err
	}
	if voucherNumber <= 0 {
		return VoucherContent{}, ErrInvalidVoucher
	}
	company := strings.TrimSpace(snap.CompanyName)
	shareholder := shareholderName(snap)
	total := FormatCurrency(snap.TotalAmount)
	payment := FormatDate(paymentDate)

	return VoucherContent{
		VoucherNumber:      fmt.Sprintf("%d", voucherNumber),
		CompanyName:        company,
		RegistrationNumber: strings.TrimSpace(snap.CompanyRegistrationNumber),
		CompanyAddress:     strings.TrimSpace(snap.CompanyAddress),
		ShareholderName:    shareholder,
		ShareholderAddress: strings.TrimSpace(snap.ShareholderAddress),
		ShareClass:         shareClass(snap),
		NumberOfShares:     FormatShares(snap.NumberOfShares),
		AmountPerShare:     FormatPerShare(snap.AmountPerShare),
		TotalAmount:        total,
		PaymentDate:        payment,
		Declaration: fmt.Sprintf(
			"%s has paid %s a dividend of %s on %s %s shares, being %s per share, on %s.",
			company, shareholder, total, FormatShares(snap.NumberOfShares), shareClass(snap), FormatPerShare(snap.AmountPerShare), payment,
		),
		GeneratedAt: generatedAt.UTC().Format("02/01/2006 15:04 MST"),
	}, nil
}

// BuildMinutesContent validates snap and lays out the minutes of the board meeting declaring the dividend.
func BuildMinutesContent(snap Snapshot, paymentDate time.Time, generatedAt time.Time) (MinutesContent, error) {
	if err := validate(snap, paymentDate); err != nil {
		return MinutesContent{}, err
	}
	company := strings.TrimSpace(snap.CompanyName)
	date := FormatDate(paymentDate)
	return MinutesContent{
		CompanyName:        company,
		RegistrationNumber: strings.TrimSpace(snap.CompanyRegistrationNumber),
		CompanyAddress:     strings.TrimSpace(snap.CompanyAddress),
		MeetingDate:        date,
		Attendees:          []string{shareholderName(snap)},
		Resolutions: []string{
			"The directors reviewed the company's accounts and confirmed that sufficient distributable reserves are available to pay the proposed dividend.",
			fmt.Sprintf(
				"It was resolved that an interim dividend of %s per %s share be declared, totalling %s on %s shares.",
				FormatPerShare(snap.AmountPerShare), shareClass(snap), FormatCurrency(snap.TotalAmount), FormatShares(snap.NumberOfShares),
			),
			fmt.Sprintf("The dividend is to be paid on %s to shareholders on the register at that date.", date),
			"A dividend voucher is to be issued to each recipient shareholder.",
		},
		GeneratedAt: generatedAt.UTC().Format("02/01/2006 15:04 MST"),
	}, nil
}

func validate(snap Snapshot, paymentDate time.Time) error {
	if strings.TrimSpace(snap.CompanyName) == "" {
		return ErrMissingCompanyName
	}
	if paymentDate.IsZero() {
		return ErrMissingPaymentDate
	}
	return nil
}

func shareholderName(snap Snapshot) string {
	return ShareholderDisplayName(snap.ShareholderName)
}

// ShareholderDisplayName is the name printed for a shareholder, "Shareholder" when blank.
func ShareholderDisplayName(name string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return defaultShareholderName
}

func shareClass(snap Snapshot) string {
	if class := strings.TrimSpace(snap.ShareClass); class != "" {
		return class
	}
	return "Ordinary"
}

package dividends

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dividify/dividify-backend/internal/activity"
	"github.com/dividify/dividify-backend/internal/repo"
	"github.com/dividify/dividify-backend/pkg/config"
	pkgdb "github.com/dividify/dividify-backend/pkg/db"
	"github.com/dividify/dividify-backend/pkg/db/models"
	"github.com/dividify/dividify-backend/pkg/enums"
)

const pdfContentType = "application/pdf"

// ErrCompanyNotFound is returned when a voucher number is requested for an unknown company.
var ErrCompanyNotFound = errors.New("company not found")

// ErrDuplicateVoucher is returned when a company already has a dividend with the voucher number.
var ErrDuplicateVoucher = errors.New("voucher number already used")

const voucherUniqueIndex = "ux_dividends_company_voucher"

// ObjectStore uploads rendered documents.
type ObjectStore interface {
	UploadObject(ctx context.Context, bucket, object, contentType string, data []byte) error
}

// VoucherInput is everything needed to store one voucher and its dividends row.
type VoucherInput struct {
	ScheduleID      uuid.UUID
	UserID          uuid.UUID
	CompanyID       uuid.UUID
	ShareholderID   uuid.UUID
	ShareholderName string
	ShareClass      string
	NumberOfShares  int64
	AmountPerShare  decimal.Decimal
	TotalAmount     decimal.Decimal
	PaymentDate     time.Time
	VoucherNumber   int64
	GeneratedAt     time.Time
	PDF             []byte
}

// MinutesInput is everything needed to store board minutes linked to a dividend.
type MinutesInput struct {
	ScheduleID     uuid.UUID
	UserID         uuid.UUID
	CompanyID      uuid.UUID
	DividendID     uuid.UUID
	MeetingDate    time.Time
	Attendees      string
	ShareClass     string
	AmountPerShare decimal.Decimal
	TotalAmount    decimal.Decimal
	GeneratedAt    time.Time
	PDF            []byte
}

// Writer persists generated documents: blob first, then the row that points at it.
type Writer struct {
	repo.Base
	store    ObjectStore
	buckets  config.StorageConfig
	activity activity.Logger
}

func NewWriter(db *gorm.DB, store ObjectStore, buckets config.StorageConfig, act activity.Logger) *Writer {
	return &Writer{
		Base:     repo.NewBase(db),
		store:    store,
		buckets:  buckets,
		activity: act,
	}
}

// VoucherPath is the object name of a scheduled voucher.
func VoucherPath(userID, companyID uuid.UUID, paymentDate time.Time, voucherNumber int64) string {
	return fmt.Sprintf("%s/%s/scheduled-%s-voucher-%d.pdf", userID, companyID, paymentDate.Format("2006-01-02"), voucherNumber)
}

// MinutesPath is the object name of scheduled board minutes.
func MinutesPath(userID, companyID uuid.UUID, meetingDate time.Time) string {
	return fmt.Sprintf("%s/%s/scheduled-%s-minutes.pdf", userID, companyID, meetingDate.Format("2006-01-02"))
}

// AllocateVoucherNumber atomically increments and returns the company's voucher counter.
func (w *Writer) AllocateVoucherNumber(ctx context.Context, companyID uuid.UUID, at time.Time) (int64, error) {
	var next int64
	res := w.DB(ctx).Raw(
		`UPDATE companies
		SET last_voucher_number = last_voucher_number + 1, updated_at = ?
		WHERE id = ?
		RETURNING last_voucher_number`,
		at.UTC(), companyID,
	).Scan(&next)
	if res.Error != nil {
		return 0, fmt.Errorf("allocate voucher number: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, ErrCompanyNotFound
	}
	return next, nil
}

// PersistVoucher uploads the voucher PDF and inserts its dividends row.
func (w *Writer) PersistVoucher(ctx context.Context, in VoucherInput) (*models.Dividend, error) {
	if len(in.PDF) == 0 {
		return nil, errors.New("voucher pdf is empty")
	}
	path := VoucherPath(in.UserID, in.CompanyID, in.PaymentDate, in.VoucherNumber)
	if err := w.store.UploadObject(ctx, w.buckets.VouchersBucket, path, pdfContentType, in.PDF); err != nil {
		return nil, fmt.Errorf("upload voucher: %w", err)
	}

	formData, err := json.Marshal(map[string]any{
		"scheduled":        true,
		"schedule_id":      in.ScheduleID,
		"generated_at":     in.GeneratedAt.UTC().Format(time.RFC3339),
		"shareholder_name": in.ShareholderName,
		"share_class":      in.ShareClass,
		"number_of_shares": in.NumberOfShares,
		"amount_per_share": in.AmountPerShare.String(),
		"total_amount":     in.TotalAmount.StringFixed(2),
		"payment_date":     in.PaymentDate.Format("2006-01-02"),
		"voucher_number":   in.VoucherNumber,
	})
	if err != nil {
		return nil, fmt.Errorf("encode voucher form data: %w", err)
	}

	row := &models.Dividend{
		UserID:          in.UserID,
		CompanyID:       in.CompanyID,
		ShareholderID:   in.ShareholderID,
		ShareholderName: in.ShareholderName,
		ShareClass:      in.ShareClass,
		NumberOfShares:  in.NumberOfShares,
		AmountPerShare:  in.AmountPerShare,
		TotalAmount:     in.TotalAmount,
		PaymentDate:     in.PaymentDate.UTC(),
		VoucherNumber:   in.VoucherNumber,
		FilePath:        path,
		FormData:        datatypes.JSON(formData),
	}
	if err := w.DB(ctx).Create(row).Error; err != nil {
		if pkgdb.IsUniqueViolation(err, voucherUniqueIndex) || pkgdb.IsUniqueViolation(err, "dividends.voucher_number") {
			return nil, fmt.Errorf("%w: company %s voucher %d", ErrDuplicateVoucher, in.CompanyID, in.VoucherNumber)
		}
		return nil, fmt.Errorf("insert dividend: %w", err)
	}
	return row, nil
}

// PersistMinutes uploads the minutes PDF, inserts the board_minutes row and links the dividend back to it.
func (w *Writer) PersistMinutes(ctx context.Context, in MinutesInput) (*models.BoardMinutes, error) {
	if len(in.PDF) == 0 {
		return nil, errors.New("minutes pdf is empty")
	}
	path := MinutesPath(in.UserID, in.CompanyID, in.MeetingDate)
	if err := w.store.UploadObject(ctx, w.buckets.MinutesBucket, path, pdfContentType, in.PDF); err != nil {
		return nil, fmt.Errorf("upload minutes: %w", err)
	}

	formData, err := json.Marshal(map[string]any{
		"scheduled":        true,
		"schedule_id":      in.ScheduleID,
		"generated_at":     in.GeneratedAt.UTC().Format(time.RFC3339),
		"attendees":        in.Attendees,
		"share_class":      in.ShareClass,
		"amount_per_share": in.AmountPerShare.String(),
		"total_amount":     in.TotalAmount.StringFixed(2),
		"meeting_date":     in.MeetingDate.Format("2006-01-02"),
	})
	if err != nil {
		return nil, fmt.Errorf("encode minutes form data: %w", err)
	}

	dividendID := in.DividendID
	row := &models.BoardMinutes{
		UserID:           in.UserID,
		CompanyID:        in.CompanyID,
		MeetingDate:      in.MeetingDate.UTC(),
		Attendees:        in.Attendees,
		ShareClass:       in.ShareClass,
		AmountPerShare:   in.AmountPerShare,
		TotalAmount:      in.TotalAmount,
		FilePath:         path,
		FormData:         datatypes.JSON(formData),
		LinkedDividendID: &dividendID,
	}
	err = w.Transaction(ctx, func(tx repo.Base) error {
		if err := tx.DB(ctx).Create(row).Error; err != nil {
			return fmt.Errorf("insert minutes: %w", err)
		}
		res := tx.DB(ctx).Model(&models.Dividend{}).
			Where("id = ?", dividendID).
			Update("linked_minutes_id", row.ID)
		if err := repo.Affected(res); err != nil {
			return fmt.Errorf("link dividend to minutes: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

// IncrementUsage bumps the user's monthly counter for kind in one upsert.
func (w *Writer) IncrementUsage(ctx context.Context, userID uuid.UUID, kind enums.DocumentKind, at time.Time) error {
	at = at.UTC()
	row := models.UsageCounter{UserID: userID, Period: at.Format("2006-01")}
	var column string
	switch kind {
	case enums.DocumentKindVoucher:
		column = "dividends_count"
		row.DividendsCount = 1
	case enums.DocumentKindMinutes:
		column = "minutes_count"
		row.MinutesCount = 1
	default:
		return fmt.Errorf("unknown document kind %q", kind)
	}

	return w.DB(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "period"}},
		DoUpdates: clause.Assignments(map[string]any{
			column:       gorm.Expr("usage_counters." + column + " + 1"),
			"updated_at": at,
		}),
	}).Create(&row).Error
}

// LogActivity records entry in the activity log.
func (w *Writer) LogActivity(ctx context.Context, entry activity.Entry) error {
	if w.activity == nil {
		return nil
	}
	return w.activity.Log(ctx, entry)
}

package processor

import (
	"time"

	"github.com/google/uuid"

	"github.com/dividify/dividify-backend/pkg/enums"
)

// DocumentOutcome reports what happened to one generated document.
type DocumentOutcome struct {
	Kind          enums.DocumentKind `json:"kind"`
	ID            *uuid.UUID         `json:"id,omitempty"`
	Path          string             `json:"path,omitempty"`
	VoucherNumber int64              `json:"voucher_number,omitempty"`
	Error         string             `json:"error,omitempty"`
}

// OK reports whether the document was rendered and stored.
func (d *DocumentOutcome) OK() bool {
	return d != nil && d.ID != nil && d.Error == ""
}

// ScheduleResult is the outcome of processing one due schedule.
type ScheduleResult struct {
	ScheduleID uuid.UUID        `json:"schedule_id"`
	RunID      *uuid.UUID       `json:"run_id,omitempty"`
	Success    bool             `json:"success"`
	Error      string           `json:"error,omitempty"`
	Voucher    *DocumentOutcome `json:"voucher,omitempty"`
	Minutes    *DocumentOutcome `json:"minutes,omitempty"`
	EmailSent  bool             `json:"email_sent"`
	Skipped    bool             `json:"skipped,omitempty"`
	AutoPaused bool             `json:"auto_paused,omitempty"`
	Completed  bool             `json:"schedule_completed,omitempty"`
	NextRunAt  *time.Time       `json:"next_run_at,omitempty"`
}

// Failed reports whether the result counts against the batch.
func (r ScheduleResult) Failed() bool {
	return !r.Success && !r.Skipped
}

// BatchSummary aggregates a ProcessDue call.
type BatchSummary struct {
	Processed  int              `json:"processed"`
	Successful int              `json:"successful"`
	Failed     int              `json:"failed"`
	Results    []ScheduleResult `json:"results"`
}

func summarize(results []ScheduleResult) BatchSummary {
	if results == nil {
		results = []ScheduleResult{}
	}
	summary := BatchSummary{Processed: len(results), Results: results}
	for _, r := range results {
		if r.Success {
			summary.Successful++
		}
		if r.Failed() {
			summary.Failed++
		}
	}
	return summary
}

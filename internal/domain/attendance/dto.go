package attendance

import (
	"mime/multipart"
	"strings"

	"github.com/opsportal/backend-go/internal/pkg/validator"
)

// Stage is the UI-observable position in the check-in/out flow. IDLE is
// both initial and terminal.
type Stage string

const (
	StageIdle       Stage = "IDLE"
	StageLateReason Stage = "LATE_REASON"
	StageSelfie     Stage = "SELFIE"
	StageSuccess    Stage = "SUCCESS"
)

// ========================================
// ATTENDANCE DTOs
// ========================================

type ReportLocationRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
}

func (r *ReportLocationRequest) Validate() error {
	var errs validator.ValidationErrors

	if r.Latitude < -90 || r.Latitude > 90 {
		errs = append(errs, validator.ValidationError{
			Field:   "latitude",
			Message: "latitude must be between -90 and 90",
		})
	}

	if r.Longitude < -180 || r.Longitude > 180 {
		errs = append(errs, validator.ValidationError{
			Field:   "longitude",
			Message: "longitude must be between -180 and 180",
		})
	}

	if r.Accuracy < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "accuracy",
			Message: "accuracy must not be negative",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type BeginCheckInRequest struct {
	ShiftID *string `json:"shift_id,omitempty"`
}

type LateReasonRequest struct {
	Reason string `json:"reason"`
}

func (r *LateReasonRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.Reason) {
		errs = append(errs, validator.ValidationError{
			Field:   "reason",
			Message: "reason is required for a late check-in",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// FinalizeRequest carries the captured selfie. The file may be absent on a
// retry after a transient failure, in which case the frame preserved from
// the previous attempt is reused.
type FinalizeRequest struct {
	File       multipart.File        `json:"-"`
	FileHeader *multipart.FileHeader `json:"-"`
}

func (r *FinalizeRequest) Validate() error {
	var errs validator.ValidationErrors

	if r.FileHeader != nil {
		filename := r.FileHeader.Filename
		idx := strings.LastIndex(filename, ".")
		ext := ""
		if idx >= 0 {
			ext = strings.ToLower(filename[idx:])
		}
		if ext != ".jpg" && ext != ".jpeg" && ext != ".png" {
			errs = append(errs, validator.ValidationError{
				Field:   "photo",
				Message: "invalid file type: only jpg, jpeg, png allowed",
			})
		} else if r.FileHeader.Size > 10<<20 { // 10MB
			errs = append(errs, validator.ValidationError{
				Field:   "photo",
				Message: "selfie size must not exceed 10MB",
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type FlowResponse struct {
	Stage      Stage   `json:"stage"`
	IsLate     *bool   `json:"is_late,omitempty"`
	LateReason *string `json:"late_reason,omitempty"`
	ShiftID    *string `json:"shift_id,omitempty"`
	CheckOut   bool    `json:"check_out"`
}

type LocationReadingResponse struct {
	Distance *float64 `json:"distance"`
	Accuracy float64  `json:"accuracy"`
	Loading  bool     `json:"loading"`
	InRange  *bool    `json:"in_range,omitempty"`
}

type RecordResponse struct {
	ID                string  `json:"id"`
	UserID            string  `json:"user_id"`
	Date              string  `json:"date"`
	TimeIn            string  `json:"time_in"`
	TimeOut           *string `json:"time_out,omitempty"`
	Status            Status  `json:"status"`
	IsLate            bool    `json:"is_late"`
	LateReason        *string `json:"late_reason,omitempty"`
	Latitude          float64 `json:"latitude"`
	Longitude         float64 `json:"longitude"`
	ShiftID           *string `json:"shift_id,omitempty"`
	SelfieURL         *string `json:"selfie_url,omitempty"`
	CheckOutSelfieURL *string `json:"check_out_selfie_url,omitempty"`
	CreatedAt         string  `json:"created_at"`
}

type StatusResponse struct {
	Stage       Stage                   `json:"stage"`
	Now         string                  `json:"now"` // synchronized, RFC3339
	ClockSynced bool                    `json:"clock_synced"`
	Location    LocationReadingResponse `json:"location"`
	OpenSession *RecordResponse         `json:"open_session,omitempty"`
}

type ListFilter struct {
	// Search & Filter
	UserID    *string `json:"user_id,omitempty"`
	Date      *string `json:"date,omitempty"`       // YYYY-MM-DD
	StartDate *string `json:"start_date,omitempty"` // YYYY-MM-DD
	EndDate   *string `json:"end_date,omitempty"`   // YYYY-MM-DD
	Status    *Status `json:"status,omitempty"`     // OPEN / CLOSED

	// Pagination
	Page  int `json:"page"`
	Limit int `json:"limit"`

	// Sorting
	SortBy    string `json:"sort_by"`    // date, time_in, time_out
	SortOrder string `json:"sort_order"` // asc, desc
}

func (f *ListFilter) Validate() error {
	var errs validator.ValidationErrors

	if f.Page < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "page",
			Message: "page must be a positive number",
		})
	}
	if f.Page == 0 {
		f.Page = 1 // Default page
	}

	if f.Limit < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must be a positive number",
		})
	}
	if f.Limit == 0 {
		f.Limit = 20 // Default limit
	}
	if f.Limit > 100 {
		f.Limit = 100
	}

	for _, d := range []*string{f.Date, f.StartDate, f.EndDate} {
		if d != nil {
			if _, ok := validator.IsValidDate(*d); !ok {
				errs = append(errs, validator.ValidationError{
					Field:   "date",
					Message: "dates must use the YYYY-MM-DD format",
				})
				break
			}
		}
	}

	if f.Status != nil && *f.Status != StatusOpen && *f.Status != StatusClosed {
		errs = append(errs, validator.ValidationError{
			Field:   "status",
			Message: "status must be OPEN or CLOSED",
		})
	}

	if f.SortBy != "" && !validator.IsInSlice(f.SortBy, []string{"date", "time_in", "time_out", "created_at"}) {
		errs = append(errs, validator.ValidationError{
			Field:   "sort_by",
			Message: "sort_by must be one of date, time_in, time_out, created_at",
		})
	}

	if f.SortOrder != "" && f.SortOrder != "asc" && f.SortOrder != "desc" {
		errs = append(errs, validator.ValidationError{
			Field:   "sort_order",
			Message: "sort_order must be asc or desc",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type ListRecordsResponse struct {
	TotalCount int64            `json:"total_count"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	TotalPages int              `json:"total_pages"`
	Records    []RecordResponse `json:"records"`
}

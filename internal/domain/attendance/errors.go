package attendance

import "errors"

// Attendance domain errors
var (
	// Policy violations: transition refused, nothing written.
	ErrOutsideRadius      = errors.New("you are outside the allowed check-in radius")
	ErrNoLocation         = errors.New("no location fix available yet")
	ErrShiftNotSelected   = errors.New("a shift must be selected before checking in")
	ErrLateReasonRequired = errors.New("a reason is required for a late check-in")
	ErrAlreadyCheckedIn   = errors.New("you already have an open session")
	ErrNotCheckedIn       = errors.New("you have no open session to check out of")

	// Flow errors
	ErrNoActiveFlow       = errors.New("no attendance flow in progress")
	ErrInvalidStage       = errors.New("operation not allowed in the current stage")
	ErrSubmissionInFlight = errors.New("a submission is already in progress")
	ErrSelfieRequired     = errors.New("a selfie is required to finalize attendance")

	// Transient I/O: flow returns to SELFIE, retry allowed.
	ErrUploadFailed = errors.New("selfie upload failed")
	ErrStoreFailed  = errors.New("attendance store call failed")

	// General errors
	ErrRecordNotFound = errors.New("attendance record not found")
)

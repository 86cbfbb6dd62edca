package response

import (
	"errors"
	"net/http"

	"github.com/opsportal/backend-go/internal/domain/attendance"
	"github.com/opsportal/backend-go/internal/domain/auth"
	"github.com/opsportal/backend-go/internal/domain/shift"
	"github.com/opsportal/backend-go/internal/domain/tenant"
	"github.com/opsportal/backend-go/internal/domain/user"
	"github.com/opsportal/backend-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Auth domain errors
	case errors.Is(err, auth.ErrInvalidCredentials):
		Unauthorized(w, err.Error())
	case errors.Is(err, auth.ErrInvalidToken):
		Unauthorized(w, "Invalid or expired token")
	case errors.Is(err, auth.ErrInvalidOAuthState):
		Unauthorized(w, "Invalid OAuth state")
	case errors.Is(err, user.ErrUserNotFound):
		NotFound(w, "User not found")
	case errors.Is(err, user.ErrEmailExists):
		Conflict(w, "Email already registered")

	// Attendance transition guards
	case errors.Is(err, attendance.ErrOutsideRadius):
		Forbidden(w, "You are outside the allowed office radius")
	case errors.Is(err, attendance.ErrNoLocation):
		BadRequest(w, "No location fix yet, wait for the distance reading", nil)
	case errors.Is(err, attendance.ErrShiftNotSelected):
		BadRequest(w, "A shift must be selected before checking in", nil)
	case errors.Is(err, attendance.ErrLateReasonRequired):
		BadRequest(w, "A late reason is required before submitting", nil)
	case errors.Is(err, attendance.ErrAlreadyCheckedIn):
		Conflict(w, "You already have a session for today")
	case errors.Is(err, attendance.ErrNotCheckedIn):
		Conflict(w, "No open session to check out from")
	case errors.Is(err, attendance.ErrNoActiveFlow):
		Conflict(w, "No check-in or check-out in progress")
	case errors.Is(err, attendance.ErrInvalidStage):
		Conflict(w, "This step is not available from the current stage")
	case errors.Is(err, attendance.ErrSubmissionInFlight):
		Conflict(w, "A submission is already in progress")
	case errors.Is(err, attendance.ErrSelfieRequired):
		BadRequest(w, "A selfie capture is required", nil)

	// Retryable submit failures
	case errors.Is(err, attendance.ErrUploadFailed):
		BadGateway(w, "Selfie upload failed, please retry")
	case errors.Is(err, attendance.ErrStoreFailed):
		BadGateway(w, "Saving the record failed, please retry")

	case errors.Is(err, attendance.ErrRecordNotFound):
		NotFound(w, "Attendance record not found")

	// Directory domain errors
	case errors.Is(err, shift.ErrShiftNotFound):
		NotFound(w, "Shift not found")
	case errors.Is(err, shift.ErrShiftNameTaken):
		Conflict(w, "A shift with that name already exists")
	case errors.Is(err, tenant.ErrPolicyNotFound):
		NotFound(w, "Tenant attendance policy not found")
	case errors.Is(err, tenant.ErrInvalidWorkStrategy):
		BadRequest(w, "Invalid work strategy", nil)

	// Default
	default:
		InternalServerError(w, "An unexpected error occurred")
	}
}

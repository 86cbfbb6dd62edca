package attendance

import "context"

// AttendanceService is the attendance integrity engine. Identity (user,
// tenant, geofence exemption) comes from the JWT claims in ctx.
type AttendanceService interface {
	// ReportLocation feeds one device location fix into the geofence
	// monitor and returns the live reading.
	ReportLocation(ctx context.Context, req ReportLocationRequest) (LocationReadingResponse, error)

	// Status exposes the current stage, synchronized now, live reading and
	// resolved open session to the presentation layer.
	Status(ctx context.Context) (StatusResponse, error)

	// BeginCheckIn runs the transition guards and freezes lateness. The
	// returned stage is LATE_REASON when late, SELFIE otherwise.
	BeginCheckIn(ctx context.Context, req BeginCheckInRequest) (FlowResponse, error)

	// SubmitLateReason records the reason and advances LATE_REASON -> SELFIE.
	SubmitLateReason(ctx context.Context, req LateReasonRequest) (FlowResponse, error)

	// FinalizeCheckIn uploads the selfie and creates the record. On a
	// transient failure the flow stays in SELFIE with the frame preserved.
	FinalizeCheckIn(ctx context.Context, req FinalizeRequest) (RecordResponse, error)

	// BeginCheckOut requires an open session and advances IDLE -> SELFIE.
	BeginCheckOut(ctx context.Context) (FlowResponse, error)

	// FinalizeCheckOut patches the open record with time_out and the
	// check-out selfie. Never creates a record.
	FinalizeCheckOut(ctx context.Context, req FinalizeRequest) (RecordResponse, error)

	// CancelFlow aborts from SELFIE or LATE_REASON back to IDLE, releasing
	// any captured frame.
	CancelFlow(ctx context.Context) error

	// GetMyAttendance lists the authenticated worker's records.
	GetMyAttendance(ctx context.Context, filter ListFilter) (ListRecordsResponse, error)

	// ListAttendance lists records across the tenant (admin surface).
	ListAttendance(ctx context.Context, filter ListFilter) (ListRecordsResponse, error)

	// GetRecord retrieves a single record by ID.
	GetRecord(ctx context.Context, id string) (RecordResponse, error)
}

package attendance

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/opsportal/backend-go/internal/domain/attendance"
	"github.com/opsportal/backend-go/internal/domain/shift"
	"github.com/opsportal/backend-go/internal/domain/tenant"
	"github.com/opsportal/backend-go/internal/pkg/clock"
	"github.com/opsportal/backend-go/internal/pkg/geo"
	"github.com/opsportal/backend-go/internal/pkg/geofence"
	"github.com/opsportal/backend-go/internal/pkg/timeutil"
	"github.com/opsportal/backend-go/internal/service/file"
)

type AttendanceServiceImpl struct {
	attendance.AttendanceRepository
	shift.ShiftRepository
	tenant.PolicyRepository
	fileService file.FileService
	clock       clock.Clock
	monitor     *geofence.Monitor
	flows       *FlowStore
}

func NewAttendanceService(
	attendanceRepo attendance.AttendanceRepository,
	shiftRepo shift.ShiftRepository,
	policyRepo tenant.PolicyRepository,
	fileService file.FileService,
	clockSync clock.Clock,
	monitor *geofence.Monitor,
	flows *FlowStore,
) attendance.AttendanceService {
	return &AttendanceServiceImpl{
		AttendanceRepository: attendanceRepo,
		ShiftRepository:      shiftRepo,
		PolicyRepository:     policyRepo,
		fileService:          fileService,
		clock:                clockSync,
		monitor:              monitor,
		flows:                flows,
	}
}

type identity struct {
	userID   string
	tenantID string
	exempt   bool
}

func identityFromContext(ctx context.Context) (identity, error) {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return identity{}, fmt.Errorf("failed to extract claims from context: %w", err)
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return identity{}, fmt.Errorf("user_id claim is missing or invalid")
	}

	tenantID, ok := claims["tenant_id"].(string)
	if !ok || tenantID == "" {
		return identity{}, fmt.Errorf("tenant_id claim is missing or invalid")
	}

	exempt, _ := claims["geofence_exempt"].(bool)

	return identity{userID: userID, tenantID: tenantID, exempt: exempt}, nil
}

// policyLocation resolves the organization's reference timezone.
func policyLocation(p tenant.Policy) *time.Location {
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// recentRecords fetches the worker's history from yesterday onward, which
// is all the session resolver needs.
func (a *AttendanceServiceImpl) recentRecords(ctx context.Context, id identity, nowLocal time.Time, loc *time.Location) ([]attendance.Record, error) {
	from := timeutil.DateString(nowLocal.AddDate(0, 0, -1), loc)
	return a.AttendanceRepository.ListByUserSince(ctx, id.userID, id.tenantID, from)
}

// ReportLocation implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) ReportLocation(ctx context.Context, req attendance.ReportLocationRequest) (attendance.LocationReadingResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.LocationReadingResponse{}, err
	}

	id, err := identityFromContext(ctx)
	if err != nil {
		return attendance.LocationReadingResponse{}, err
	}

	policy, err := a.PolicyRepository.GetPolicy(ctx, id.tenantID)
	if err != nil {
		if errors.Is(err, tenant.ErrPolicyNotFound) {
			return attendance.LocationReadingResponse{}, err
		}
		return attendance.LocationReadingResponse{}, fmt.Errorf("failed to get tenant policy: %w", err)
	}

	fix := geofence.Fix{
		Point:    geo.Point{Lat: req.Latitude, Lng: req.Longitude},
		Accuracy: req.Accuracy,
	}
	reading := a.monitor.Report(id.userID, fix, policy.OfficeLocation)

	return mapReading(reading, policy, id.exempt), nil
}

// Status implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) Status(ctx context.Context) (attendance.StatusResponse, error) {
	id, err := identityFromContext(ctx)
	if err != nil {
		return attendance.StatusResponse{}, err
	}

	policy, err := a.PolicyRepository.GetPolicy(ctx, id.tenantID)
	if err != nil {
		if errors.Is(err, tenant.ErrPolicyNotFound) {
			return attendance.StatusResponse{}, err
		}
		return attendance.StatusResponse{}, fmt.Errorf("failed to get tenant policy: %w", err)
	}

	loc := policyLocation(policy)
	nowLocal := a.clock.Now().In(loc)

	records, err := a.recentRecords(ctx, id, nowLocal, loc)
	if err != nil {
		return attendance.StatusResponse{}, fmt.Errorf("failed to list attendance records: %w", err)
	}

	resp := attendance.StatusResponse{
		Stage:       a.flows.stage(id.userID),
		Now:         nowLocal.Format(time.RFC3339),
		ClockSynced: a.clock.Synced(),
		Location:    mapReading(a.monitor.Reading(id.userID), policy, id.exempt),
	}

	if open := ResolveOpenSession(records, nowLocal, loc); open != nil {
		mapped := mapRecordToResponse(*open)
		resp.OpenSession = &mapped
	}

	return resp, nil
}

// BeginCheckIn implements attendance.AttendanceService.
// Runs every transition guard and freezes the lateness verdict; nothing is
// written to the store here.
func (a *AttendanceServiceImpl) BeginCheckIn(ctx context.Context, req attendance.BeginCheckInRequest) (attendance.FlowResponse, error) {
	id, err := identityFromContext(ctx)
	if err != nil {
		return attendance.FlowResponse{}, err
	}

	policy, err := a.PolicyRepository.GetPolicy(ctx, id.tenantID)
	if err != nil {
		if errors.Is(err, tenant.ErrPolicyNotFound) {
			return attendance.FlowResponse{}, err
		}
		return attendance.FlowResponse{}, fmt.Errorf("failed to get tenant policy: %w", err)
	}

	loc := policyLocation(policy)
	nowLocal := a.clock.Now().In(loc)

	records, err := a.recentRecords(ctx, id, nowLocal, loc)
	if err != nil {
		return attendance.FlowResponse{}, fmt.Errorf("failed to list attendance records: %w", err)
	}
	if ResolveOpenSession(records, nowLocal, loc) != nil {
		return attendance.FlowResponse{}, attendance.ErrAlreadyCheckedIn
	}

	// Under SHIFT the lateness limit comes from the selected shift; the
	// transition is refused outright when none has been chosen.
	limitClock := policy.OfficeHours.Start
	var shiftID *string
	if policy.WorkStrategy == tenant.StrategyShift {
		if req.ShiftID == nil || *req.ShiftID == "" {
			return attendance.FlowResponse{}, attendance.ErrShiftNotSelected
		}
		sh, err := a.ShiftRepository.GetByID(ctx, *req.ShiftID, id.tenantID)
		if err != nil {
			if errors.Is(err, shift.ErrShiftNotFound) {
				return attendance.FlowResponse{}, err
			}
			return attendance.FlowResponse{}, fmt.Errorf("failed to get shift: %w", err)
		}
		limitClock = sh.StartTime
		shiftID = &sh.ID
	}

	// Geofence guard. A nil distance means no fix yet and is refused with
	// a distinct error; it is never treated as in range.
	reading := a.monitor.Reading(id.userID)
	if !id.exempt {
		if reading.Distance == nil {
			return attendance.FlowResponse{}, attendance.ErrNoLocation
		}
		if *reading.Distance > policy.RadiusTolerance {
			return attendance.FlowResponse{}, attendance.ErrOutsideRadius
		}
	}

	var location geo.Point
	if fix, ok := a.monitor.LastFix(id.userID); ok {
		location = fix.Point
	}

	// Lateness is computed exactly once per transition, from the
	// synchronized clock, and frozen on the flow.
	isLate, err := EvaluateLateness(policy.WorkStrategy, nowLocal, limitClock, policy.LateGracePeriod)
	if err != nil {
		return attendance.FlowResponse{}, fmt.Errorf("failed to evaluate lateness: %w", err)
	}

	stage := attendance.StageSelfie
	if isLate {
		stage = attendance.StageLateReason
	}

	a.flows.put(&flow{
		userID:   id.userID,
		tenantID: id.tenantID,
		stage:    stage,
		isLate:   isLate,
		shiftID:  shiftID,
		location: location,
	})

	return attendance.FlowResponse{Stage: stage, IsLate: &isLate, ShiftID: shiftID}, nil
}

// SubmitLateReason implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) SubmitLateReason(ctx context.Context, req attendance.LateReasonRequest) (attendance.FlowResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.FlowResponse{}, err
	}

	id, err := identityFromContext(ctx)
	if err != nil {
		return attendance.FlowResponse{}, err
	}

	var resp attendance.FlowResponse
	err = a.flows.withFlow(id.userID, func(f *flow) error {
		if f.checkOut || f.stage != attendance.StageLateReason {
			return attendance.ErrInvalidStage
		}
		reason := req.Reason
		f.lateReason = &reason
		f.stage = attendance.StageSelfie
		resp = attendance.FlowResponse{
			Stage:      f.stage,
			IsLate:     &f.isLate,
			LateReason: f.lateReason,
			ShiftID:    f.shiftID,
		}
		return nil
	})
	if err != nil {
		return attendance.FlowResponse{}, err
	}

	return resp, nil
}

// FinalizeCheckIn implements attendance.AttendanceService.
// Uploads the selfie, then creates the record in one atomic store call. A
// transient failure of either leaves the flow in SELFIE with the captured
// frame preserved so the worker can retry without recapturing.
func (a *AttendanceServiceImpl) FinalizeCheckIn(ctx context.Context, req attendance.FinalizeRequest) (attendance.RecordResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.RecordResponse{}, err
	}

	id, err := identityFromContext(ctx)
	if err != nil {
		return attendance.RecordResponse{}, err
	}

	if err := a.flows.beginSubmit(id.userID); err != nil {
		return attendance.RecordResponse{}, err
	}
	defer a.flows.endSubmit(id.userID)

	var frame []byte
	var frameName string
	var isLate bool
	var lateReason, shiftID *string
	var location geo.Point

	err = a.flows.withFlow(id.userID, func(f *flow) error {
		if f.checkOut {
			return attendance.ErrInvalidStage
		}
		if f.isLate && f.lateReason == nil {
			return attendance.ErrLateReasonRequired
		}
		if req.File != nil {
			data, err := io.ReadAll(req.File)
			if err != nil {
				return fmt.Errorf("failed to read selfie: %w", err)
			}
			f.frame = data
			f.frameName = req.FileHeader.Filename
		}
		if f.frame == nil {
			return attendance.ErrSelfieRequired
		}
		frame, frameName = f.frame, f.frameName
		isLate, lateReason, shiftID, location = f.isLate, f.lateReason, f.shiftID, f.location
		return nil
	})
	if err != nil {
		return attendance.RecordResponse{}, err
	}

	policy, err := a.PolicyRepository.GetPolicy(ctx, id.tenantID)
	if err != nil {
		return attendance.RecordResponse{}, fmt.Errorf("failed to get tenant policy: %w", err)
	}
	loc := policyLocation(policy)
	nowLocal := a.clock.Now().In(loc)
	date := timeutil.DateString(nowLocal, loc)

	selfieURL, err := a.fileService.UploadSelfie(ctx, id.userID, date, bytes.NewReader(frame), frameName, file.PhaseCheckIn)
	if err != nil {
		slog.Error("Check-in selfie upload failed", "user_id", id.userID, "error", err)
		return attendance.RecordResponse{}, fmt.Errorf("%w: %s", attendance.ErrUploadFailed, err)
	}

	rec := attendance.Record{
		UserID:     id.userID,
		TenantID:   id.tenantID,
		Date:       date,
		TimeIn:     timeutil.FormatClock(nowLocal, loc),
		IsLate:     isLate,
		LateReason: lateReason,
		Location:   location,
		ShiftID:    shiftID,
		SelfieURL:  &selfieURL,
	}

	created, err := a.AttendanceRepository.Create(ctx, rec)
	if err != nil {
		slog.Error("Attendance record creation failed", "user_id", id.userID, "error", err)
		return attendance.RecordResponse{}, fmt.Errorf("%w: %s", attendance.ErrStoreFailed, err)
	}

	// SUCCESS: release the frame and return to IDLE.
	a.flows.remove(id.userID)
	a.monitor.Forget(id.userID)

	return mapRecordToResponse(created), nil
}

// BeginCheckOut implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) BeginCheckOut(ctx context.Context) (attendance.FlowResponse, error) {
	id, err := identityFromContext(ctx)
	if err != nil {
		return attendance.FlowResponse{}, err
	}

	policy, err := a.PolicyRepository.GetPolicy(ctx, id.tenantID)
	if err != nil {
		if errors.Is(err, tenant.ErrPolicyNotFound) {
			return attendance.FlowResponse{}, err
		}
		return attendance.FlowResponse{}, fmt.Errorf("failed to get tenant policy: %w", err)
	}

	loc := policyLocation(policy)
	nowLocal := a.clock.Now().In(loc)

	records, err := a.recentRecords(ctx, id, nowLocal, loc)
	if err != nil {
		return attendance.FlowResponse{}, fmt.Errorf("failed to list attendance records: %w", err)
	}

	open := ResolveOpenSession(records, nowLocal, loc)
	if open == nil || open.Status() != attendance.StatusOpen {
		return attendance.FlowResponse{}, attendance.ErrNotCheckedIn
	}

	a.flows.put(&flow{
		userID:       id.userID,
		tenantID:     id.tenantID,
		stage:        attendance.StageSelfie,
		checkOut:     true,
		openRecordID: open.ID,
	})

	return attendance.FlowResponse{Stage: attendance.StageSelfie, CheckOut: true}, nil
}

// FinalizeCheckOut implements attendance.AttendanceService.
// Patches the open record with time_out and the check-out selfie; never
// creates a record.
func (a *AttendanceServiceImpl) FinalizeCheckOut(ctx context.Context, req attendance.FinalizeRequest) (attendance.RecordResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.RecordResponse{}, err
	}

	id, err := identityFromContext(ctx)
	if err != nil {
		return attendance.RecordResponse{}, err
	}

	if err := a.flows.beginSubmit(id.userID); err != nil {
		return attendance.RecordResponse{}, err
	}
	defer a.flows.endSubmit(id.userID)

	var frame []byte
	var frameName, recordID string

	err = a.flows.withFlow(id.userID, func(f *flow) error {
		if !f.checkOut {
			return attendance.ErrInvalidStage
		}
		if req.File != nil {
			data, err := io.ReadAll(req.File)
			if err != nil {
				return fmt.Errorf("failed to read selfie: %w", err)
			}
			f.frame = data
			f.frameName = req.FileHeader.Filename
		}
		if f.frame == nil {
			return attendance.ErrSelfieRequired
		}
		frame, frameName = f.frame, f.frameName
		recordID = f.openRecordID
		return nil
	})
	if err != nil {
		return attendance.RecordResponse{}, err
	}

	policy, err := a.PolicyRepository.GetPolicy(ctx, id.tenantID)
	if err != nil {
		return attendance.RecordResponse{}, fmt.Errorf("failed to get tenant policy: %w", err)
	}
	loc := policyLocation(policy)
	nowLocal := a.clock.Now().In(loc)

	selfieURL, err := a.fileService.UploadSelfie(ctx, id.userID, timeutil.DateString(nowLocal, loc), bytes.NewReader(frame), frameName, file.PhaseCheckOut)
	if err != nil {
		slog.Error("Check-out selfie upload failed", "user_id", id.userID, "error", err)
		return attendance.RecordResponse{}, fmt.Errorf("%w: %s", attendance.ErrUploadFailed, err)
	}

	// The record keeps its original date even when the check-out lands
	// after local midnight; only time_out is written.
	timeOut := timeutil.FormatClock(nowLocal, loc)
	if err := a.AttendanceRepository.SetTimeOut(ctx, recordID, id.tenantID, timeOut, &selfieURL); err != nil {
		if errors.Is(err, attendance.ErrRecordNotFound) {
			return attendance.RecordResponse{}, err
		}
		slog.Error("Attendance record patch failed", "user_id", id.userID, "record_id", recordID, "error", err)
		return attendance.RecordResponse{}, fmt.Errorf("%w: %s", attendance.ErrStoreFailed, err)
	}

	updated, err := a.AttendanceRepository.GetByID(ctx, recordID, id.tenantID)
	if err != nil {
		return attendance.RecordResponse{}, fmt.Errorf("failed to get updated record: %w", err)
	}

	a.flows.remove(id.userID)
	a.monitor.Forget(id.userID)

	return mapRecordToResponse(updated), nil
}

// CancelFlow implements attendance.AttendanceService.
// Aborts from SELFIE or LATE_REASON back to IDLE; the captured frame is
// released on this path exactly as on success.
func (a *AttendanceServiceImpl) CancelFlow(ctx context.Context) error {
	id, err := identityFromContext(ctx)
	if err != nil {
		return err
	}

	err = a.flows.withFlow(id.userID, func(f *flow) error {
		if f.submitting {
			return attendance.ErrSubmissionInFlight
		}
		return nil
	})
	if err != nil {
		return err
	}

	a.flows.remove(id.userID)
	a.monitor.Forget(id.userID)
	return nil
}

// GetMyAttendance implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) GetMyAttendance(ctx context.Context, filter attendance.ListFilter) (attendance.ListRecordsResponse, error) {
	if err := filter.Validate(); err != nil {
		return attendance.ListRecordsResponse{}, err
	}

	id, err := identityFromContext(ctx)
	if err != nil {
		return attendance.ListRecordsResponse{}, err
	}

	records, total, err := a.AttendanceRepository.ListMine(ctx, id.userID, filter, id.tenantID)
	if err != nil {
		return attendance.ListRecordsResponse{}, fmt.Errorf("failed to list my attendance: %w", err)
	}

	return buildListResponse(records, total, filter), nil
}

// ListAttendance implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) ListAttendance(ctx context.Context, filter attendance.ListFilter) (attendance.ListRecordsResponse, error) {
	if err := filter.Validate(); err != nil {
		return attendance.ListRecordsResponse{}, err
	}

	id, err := identityFromContext(ctx)
	if err != nil {
		return attendance.ListRecordsResponse{}, err
	}

	records, total, err := a.AttendanceRepository.List(ctx, filter, id.tenantID)
	if err != nil {
		return attendance.ListRecordsResponse{}, fmt.Errorf("failed to list attendance: %w", err)
	}

	return buildListResponse(records, total, filter), nil
}

// GetRecord implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) GetRecord(ctx context.Context, id string) (attendance.RecordResponse, error) {
	ident, err := identityFromContext(ctx)
	if err != nil {
		return attendance.RecordResponse{}, err
	}

	rec, err := a.AttendanceRepository.GetByID(ctx, id, ident.tenantID)
	if err != nil {
		if errors.Is(err, attendance.ErrRecordNotFound) {
			return attendance.RecordResponse{}, err
		}
		return attendance.RecordResponse{}, fmt.Errorf("failed to get record: %w", err)
	}

	return mapRecordToResponse(rec), nil
}

func mapReading(r geofence.Reading, policy tenant.Policy, exempt bool) attendance.LocationReadingResponse {
	resp := attendance.LocationReadingResponse{
		Distance: r.Distance,
		Accuracy: r.Accuracy,
		Loading:  r.Loading,
	}
	if r.Distance != nil && !exempt {
		in := *r.Distance <= policy.RadiusTolerance
		resp.InRange = &in
	}
	return resp
}

func mapRecordToResponse(rec attendance.Record) attendance.RecordResponse {
	return attendance.RecordResponse{
		ID:                rec.ID,
		UserID:            rec.UserID,
		Date:              rec.Date,
		TimeIn:            rec.TimeIn,
		TimeOut:           rec.TimeOut,
		Status:            rec.Status(),
		IsLate:            rec.IsLate,
		LateReason:        rec.LateReason,
		Latitude:          rec.Location.Lat,
		Longitude:         rec.Location.Lng,
		ShiftID:           rec.ShiftID,
		SelfieURL:         rec.SelfieURL,
		CheckOutSelfieURL: rec.CheckOutSelfieURL,
		CreatedAt:         rec.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

func buildListResponse(records []attendance.Record, total int64, filter attendance.ListFilter) attendance.ListRecordsResponse {
	responses := make([]attendance.RecordResponse, 0, len(records))
	for _, rec := range records {
		responses = append(responses, mapRecordToResponse(rec))
	}

	totalPages := int(math.Ceil(float64(total) / float64(filter.Limit)))

	return attendance.ListRecordsResponse{
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: totalPages,
		Records:    responses,
	}
}

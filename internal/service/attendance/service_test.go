package attendance

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/opsportal/backend-go/internal/domain/attendance"
	"github.com/opsportal/backend-go/internal/domain/shift"
	"github.com/opsportal/backend-go/internal/domain/tenant"
	"github.com/opsportal/backend-go/internal/pkg/geo"
	"github.com/opsportal/backend-go/internal/pkg/geofence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==================== FAKES ====================

type fakeClock struct {
	now    time.Time
	synced bool
}

func (c *fakeClock) Now() time.Time { return c.now }
func (c *fakeClock) Synced() bool   { return c.synced }

type fakeAttendanceRepo struct {
	mu         sync.Mutex
	records    map[string]attendance.Record
	seq        int
	failCreate bool
}

func newFakeAttendanceRepo() *fakeAttendanceRepo {
	return &fakeAttendanceRepo{records: make(map[string]attendance.Record)}
}

func (r *fakeAttendanceRepo) Create(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate {
		return attendance.Record{}, fmt.Errorf("connection refused")
	}
	r.seq++
	rec.ID = fmt.Sprintf("rec-%d", r.seq)
	r.records[rec.ID] = rec
	return rec, nil
}

func (r *fakeAttendanceRepo) GetByID(ctx context.Context, id string, tenantID string) (attendance.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok || rec.TenantID != tenantID {
		return attendance.Record{}, attendance.ErrRecordNotFound
	}
	return rec, nil
}

func (r *fakeAttendanceRepo) ListByUserSince(ctx context.Context, userID string, tenantID string, fromDate string) ([]attendance.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []attendance.Record
	for _, rec := range r.records {
		if rec.UserID == userID && rec.TenantID == tenantID && rec.Date >= fromDate {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *fakeAttendanceRepo) SetTimeOut(ctx context.Context, id string, tenantID string, timeOut string, checkOutSelfieURL *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok || rec.TenantID != tenantID || rec.TimeOut != nil {
		return attendance.ErrRecordNotFound
	}
	rec.TimeOut = &timeOut
	rec.CheckOutSelfieURL = checkOutSelfieURL
	r.records[id] = rec
	return nil
}

func (r *fakeAttendanceRepo) List(ctx context.Context, filter attendance.ListFilter, tenantID string) ([]attendance.Record, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []attendance.Record
	for _, rec := range r.records {
		if rec.TenantID == tenantID {
			out = append(out, rec)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeAttendanceRepo) ListMine(ctx context.Context, userID string, filter attendance.ListFilter, tenantID string) ([]attendance.Record, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []attendance.Record
	for _, rec := range r.records {
		if rec.UserID == userID && rec.TenantID == tenantID {
			out = append(out, rec)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeAttendanceRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

type fakeShiftRepo struct {
	shifts map[string]shift.Shift
}

func (r *fakeShiftRepo) Create(ctx context.Context, s shift.Shift) (shift.Shift, error) {
	return s, nil
}

func (r *fakeShiftRepo) GetByID(ctx context.Context, id string, tenantID string) (shift.Shift, error) {
	s, ok := r.shifts[id]
	if !ok || s.TenantID != tenantID {
		return shift.Shift{}, shift.ErrShiftNotFound
	}
	return s, nil
}

func (r *fakeShiftRepo) ListByTenant(ctx context.Context, tenantID string) ([]shift.Shift, error) {
	return nil, nil
}

func (r *fakeShiftRepo) Update(ctx context.Context, s shift.Shift) error { return nil }

func (r *fakeShiftRepo) Delete(ctx context.Context, id string, tenantID string) error { return nil }

type fakePolicyRepo struct {
	policy tenant.Policy
}

func (r *fakePolicyRepo) GetPolicy(ctx context.Context, tenantID string) (tenant.Policy, error) {
	if r.policy.TenantID != tenantID {
		return tenant.Policy{}, tenant.ErrPolicyNotFound
	}
	return r.policy, nil
}

type fakeFileService struct {
	mu         sync.Mutex
	uploads    int
	failUpload bool
}

func (f *fakeFileService) UploadSelfie(ctx context.Context, userID string, date string, file io.Reader, filename string, phase string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpload {
		return "", fmt.Errorf("storage unavailable")
	}
	f.uploads++
	return fmt.Sprintf("attendance/%s/%s-%s.jpg", date, userID, phase), nil
}

func (f *fakeFileService) DeleteFile(ctx context.Context, path string) error { return nil }

func (f *fakeFileService) GetFileURL(ctx context.Context, path string, expiry time.Duration) (string, error) {
	return path, nil
}

type memFile struct{ *bytes.Reader }

func (memFile) Close() error { return nil }

func selfieRequest() attendance.FinalizeRequest {
	data := []byte("jpeg-bytes")
	return attendance.FinalizeRequest{
		File:       memFile{bytes.NewReader(data)},
		FileHeader: &multipart.FileHeader{Filename: "selfie.jpg", Size: int64(len(data))},
	}
}

// ==================== HARNESS ====================

type harness struct {
	svc      attendance.AttendanceService
	repo     *fakeAttendanceRepo
	shifts   *fakeShiftRepo
	policies *fakePolicyRepo
	files    *fakeFileService
	clock    *fakeClock
	monitor  *geofence.Monitor
	flows    *FlowStore
}

const (
	testTenant = "tenant-1"
	testUser   = "worker-1"
)

var officePoint = geo.Point{Lat: -6.2, Lng: 106.816666}

func newHarness(t *testing.T, strategy tenant.WorkStrategy, now time.Time) *harness {
	t.Helper()

	h := &harness{
		repo: newFakeAttendanceRepo(),
		shifts: &fakeShiftRepo{shifts: map[string]shift.Shift{
			"shift-night": {ID: "shift-night", TenantID: testTenant, Name: "Night", StartTime: "22:00", EndTime: "06:00", IsOvernight: true},
		}},
		policies: &fakePolicyRepo{policy: tenant.Policy{
			TenantID:        testTenant,
			WorkStrategy:    strategy,
			RadiusTolerance: 100,
			LateGracePeriod: 15,
			OfficeLocation:  officePoint,
			OfficeHours:     tenant.OfficeHours{Start: "08:00", End: "17:00"},
			Timezone:        "Asia/Jakarta",
		}},
		files:   &fakeFileService{},
		clock:   &fakeClock{now: now, synced: true},
		monitor: geofence.NewMonitor(10 * time.Minute),
		flows:   NewFlowStore(15 * time.Minute),
	}

	h.svc = NewAttendanceService(h.repo, h.shifts, h.policies, h.files, h.clock, h.monitor, h.flows)
	return h
}

func (h *harness) reportAtOffice() {
	h.monitor.Report(testUser, geofence.Fix{Point: officePoint, Accuracy: 5}, officePoint)
}

func authedContext(t *testing.T, userID string, exempt bool) context.Context {
	t.Helper()
	auth := jwtauth.New("HS256", []byte("test-secret"), nil)
	tok, _, err := auth.Encode(map[string]interface{}{
		"user_id":         userID,
		"tenant_id":       testTenant,
		"geofence_exempt": exempt,
	})
	require.NoError(t, err)
	return jwtauth.NewContext(context.Background(), tok, nil)
}

func jakartaAt(t *testing.T, hour, min int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Jakarta")
	require.NoError(t, err)
	return time.Date(2025, 3, 14, hour, min, 0, 0, loc)
}

// ==================== TESTS ====================

func TestBeginCheckIn_NoLocationFix(t *testing.T) {
	h := newHarness(t, tenant.StrategyFixed, jakartaAt(t, 7, 55))
	ctx := authedContext(t, testUser, false)

	_, err := h.svc.BeginCheckIn(ctx, attendance.BeginCheckInRequest{})
	assert.ErrorIs(t, err, attendance.ErrNoLocation)
	assert.Equal(t, 0, h.repo.count())
	assert.Equal(t, attendance.StageIdle, h.flows.stage(testUser))
}

func TestBeginCheckIn_OutsideRadius(t *testing.T) {
	h := newHarness(t, tenant.StrategyFixed, jakartaAt(t, 7, 55))
	ctx := authedContext(t, testUser, false)

	// Roughly 1.1km north of the office.
	far := geo.Point{Lat: officePoint.Lat + 0.01, Lng: officePoint.Lng}
	h.monitor.Report(testUser, geofence.Fix{Point: far, Accuracy: 5}, officePoint)

	_, err := h.svc.BeginCheckIn(ctx, attendance.BeginCheckInRequest{})
	assert.ErrorIs(t, err, attendance.ErrOutsideRadius)
	assert.Equal(t, 0, h.repo.count())
}

func TestBeginCheckIn_GeofenceExemptSkipsRadius(t *testing.T) {
	h := newHarness(t, tenant.StrategyFixed, jakartaAt(t, 7, 55))
	ctx := authedContext(t, testUser, true)

	resp, err := h.svc.BeginCheckIn(ctx, attendance.BeginCheckInRequest{})
	require.NoError(t, err)
	assert.Equal(t, attendance.StageSelfie, resp.Stage)
}

func TestBeginCheckIn_ShiftStrategyRequiresShift(t *testing.T) {
	h := newHarness(t, tenant.StrategyShift, jakartaAt(t, 21, 30))
	ctx := authedContext(t, testUser, false)
	h.reportAtOffice()

	_, err := h.svc.BeginCheckIn(ctx, attendance.BeginCheckInRequest{})
	assert.ErrorIs(t, err, attendance.ErrShiftNotSelected)
	assert.Equal(t, 0, h.repo.count())
}

func TestBeginCheckIn_ShiftStrategyUsesShiftStart(t *testing.T) {
	// 22:20 against a 22:00 shift with 15 minutes of grace is late.
	h := newHarness(t, tenant.StrategyShift, jakartaAt(t, 22, 20))
	ctx := authedContext(t, testUser, false)
	h.reportAtOffice()

	shiftID := "shift-night"
	resp, err := h.svc.BeginCheckIn(ctx, attendance.BeginCheckInRequest{ShiftID: &shiftID})
	require.NoError(t, err)
	assert.Equal(t, attendance.StageLateReason, resp.Stage)
	require.NotNil(t, resp.IsLate)
	assert.True(t, *resp.IsLate)
}

func TestBeginCheckIn_FlexibleNeverLate(t *testing.T) {
	h := newHarness(t, tenant.StrategyFlexible, jakartaAt(t, 14, 0))
	ctx := authedContext(t, testUser, false)
	h.reportAtOffice()

	resp, err := h.svc.BeginCheckIn(ctx, attendance.BeginCheckInRequest{})
	require.NoError(t, err)
	assert.Equal(t, attendance.StageSelfie, resp.Stage)
	require.NotNil(t, resp.IsLate)
	assert.False(t, *resp.IsLate)
}

func TestCheckIn_OnTimeEndToEnd(t *testing.T) {
	h := newHarness(t, tenant.StrategyFixed, jakartaAt(t, 7, 55))
	ctx := authedContext(t, testUser, false)
	h.reportAtOffice()

	resp, err := h.svc.BeginCheckIn(ctx, attendance.BeginCheckInRequest{})
	require.NoError(t, err)
	assert.Equal(t, attendance.StageSelfie, resp.Stage)

	rec, err := h.svc.FinalizeCheckIn(ctx, selfieRequest())
	require.NoError(t, err)
	assert.False(t, rec.IsLate)
	assert.Nil(t, rec.LateReason)
	assert.Equal(t, "2025-03-14", rec.Date)
	assert.Equal(t, "07:55:00", rec.TimeIn)
	assert.Equal(t, attendance.StatusOpen, rec.Status)
	require.NotNil(t, rec.SelfieURL)

	// Back to IDLE, geofence entry released.
	assert.Equal(t, attendance.StageIdle, h.flows.stage(testUser))
	assert.True(t, h.monitor.Reading(testUser).Loading)
}

func TestCheckIn_LateRequiresReason(t *testing.T) {
	h := newHarness(t, tenant.StrategyFixed, jakartaAt(t, 8, 20))
	ctx := authedContext(t, testUser, false)
	h.reportAtOffice()

	resp, err := h.svc.BeginCheckIn(ctx, attendance.BeginCheckInRequest{})
	require.NoError(t, err)
	assert.Equal(t, attendance.StageLateReason, resp.Stage)

	// Cannot skip straight to the selfie submit.
	_, err = h.svc.FinalizeCheckIn(ctx, selfieRequest())
	assert.ErrorIs(t, err, attendance.ErrInvalidStage)

	resp, err = h.svc.SubmitLateReason(ctx, attendance.LateReasonRequest{Reason: "traffic jam"})
	require.NoError(t, err)
	assert.Equal(t, attendance.StageSelfie, resp.Stage)

	rec, err := h.svc.FinalizeCheckIn(ctx, selfieRequest())
	require.NoError(t, err)
	assert.True(t, rec.IsLate)
	require.NotNil(t, rec.LateReason)
	assert.Equal(t, "traffic jam", *rec.LateReason)
}

func TestCheckIn_AlreadyCheckedIn(t *testing.T) {
	h := newHarness(t, tenant.StrategyFixed, jakartaAt(t, 7, 55))
	ctx := authedContext(t, testUser, false)
	h.reportAtOffice()

	_, err := h.svc.BeginCheckIn(ctx, attendance.BeginCheckInRequest{})
	require.NoError(t, err)
	_, err = h.svc.FinalizeCheckIn(ctx, selfieRequest())
	require.NoError(t, err)

	h.reportAtOffice()
	_, err = h.svc.BeginCheckIn(ctx, attendance.BeginCheckInRequest{})
	assert.ErrorIs(t, err, attendance.ErrAlreadyCheckedIn)
	assert.Equal(t, 1, h.repo.count())
}

func TestFinalizeCheckIn_UploadFailurePreservesFrame(t *testing.T) {
	h := newHarness(t, tenant.StrategyFixed, jakartaAt(t, 7, 55))
	ctx := authedContext(t, testUser, false)
	h.reportAtOffice()

	_, err := h.svc.BeginCheckIn(ctx, attendance.BeginCheckInRequest{})
	require.NoError(t, err)

	h.files.failUpload = true
	_, err = h.svc.FinalizeCheckIn(ctx, selfieRequest())
	assert.ErrorIs(t, err, attendance.ErrUploadFailed)
	assert.Equal(t, 0, h.repo.count())
	assert.Equal(t, attendance.StageSelfie, h.flows.stage(testUser))

	// Retry without recapturing: the preserved frame is reused.
	h.files.failUpload = false
	rec, err := h.svc.FinalizeCheckIn(ctx, attendance.FinalizeRequest{})
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusOpen, rec.Status)
	assert.Equal(t, 1, h.repo.count())
}

func TestFinalizeCheckIn_StoreFailureKeepsSelfieStage(t *testing.T) {
	h := newHarness(t, tenant.StrategyFixed, jakartaAt(t, 7, 55))
	ctx := authedContext(t, testUser, false)
	h.reportAtOffice()

	_, err := h.svc.BeginCheckIn(ctx, attendance.BeginCheckInRequest{})
	require.NoError(t, err)

	h.repo.failCreate = true
	_, err = h.svc.FinalizeCheckIn(ctx, selfieRequest())
	assert.ErrorIs(t, err, attendance.ErrStoreFailed)
	assert.Equal(t, attendance.StageSelfie, h.flows.stage(testUser))

	h.repo.failCreate = false
	_, err = h.svc.FinalizeCheckIn(ctx, attendance.FinalizeRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, h.repo.count())
}

func TestFinalizeCheckIn_NoFrameNoFile(t *testing.T) {
	h := newHarness(t, tenant.StrategyFixed, jakartaAt(t, 7, 55))
	ctx := authedContext(t, testUser, false)
	h.reportAtOffice()

	_, err := h.svc.BeginCheckIn(ctx, attendance.BeginCheckInRequest{})
	require.NoError(t, err)

	_, err = h.svc.FinalizeCheckIn(ctx, attendance.FinalizeRequest{})
	assert.ErrorIs(t, err, attendance.ErrSelfieRequired)
}

func TestCheckOut_WithoutOpenSession(t *testing.T) {
	h := newHarness(t, tenant.StrategyFixed, jakartaAt(t, 17, 30))
	ctx := authedContext(t, testUser, false)

	_, err := h.svc.BeginCheckOut(ctx)
	assert.ErrorIs(t, err, attendance.ErrNotCheckedIn)
}

func TestCheckOut_PatchesOpenRecord(t *testing.T) {
	h := newHarness(t, tenant.StrategyFixed, jakartaAt(t, 7, 55))
	ctx := authedContext(t, testUser, false)
	h.reportAtOffice()

	_, err := h.svc.BeginCheckIn(ctx, attendance.BeginCheckInRequest{})
	require.NoError(t, err)
	checkedIn, err := h.svc.FinalizeCheckIn(ctx, selfieRequest())
	require.NoError(t, err)

	h.clock.now = jakartaAt(t, 17, 5)

	resp, err := h.svc.BeginCheckOut(ctx)
	require.NoError(t, err)
	assert.Equal(t, attendance.StageSelfie, resp.Stage)
	assert.True(t, resp.CheckOut)

	rec, err := h.svc.FinalizeCheckOut(ctx, selfieRequest())
	require.NoError(t, err)
	assert.Equal(t, checkedIn.ID, rec.ID)
	require.NotNil(t, rec.TimeOut)
	assert.Equal(t, "17:05:00", *rec.TimeOut)
	assert.Equal(t, attendance.StatusClosed, rec.Status)
	require.NotNil(t, rec.CheckOutSelfieURL)

	// Patch, never a second record.
	assert.Equal(t, 1, h.repo.count())
}

func TestCheckOut_CrossMidnightKeepsOriginalDate(t *testing.T) {
	h := newHarness(t, tenant.StrategyFlexible, jakartaAt(t, 23, 50))
	ctx := authedContext(t, testUser, false)
	h.reportAtOffice()

	_, err := h.svc.BeginCheckIn(ctx, attendance.BeginCheckInRequest{})
	require.NoError(t, err)
	checkedIn, err := h.svc.FinalizeCheckIn(ctx, selfieRequest())
	require.NoError(t, err)
	assert.Equal(t, "2025-03-14", checkedIn.Date)

	// Clock rolls past local midnight.
	h.clock.now = jakartaAt(t, 23, 50).Add(30 * time.Minute)

	_, err = h.svc.BeginCheckOut(ctx)
	require.NoError(t, err)
	rec, err := h.svc.FinalizeCheckOut(ctx, selfieRequest())
	require.NoError(t, err)

	assert.Equal(t, "2025-03-14", rec.Date)
	require.NotNil(t, rec.TimeOut)
	assert.Equal(t, "00:20:00", *rec.TimeOut)
	assert.Equal(t, 1, h.repo.count())
}

func TestCancelFlow_ReturnsToIdle(t *testing.T) {
	h := newHarness(t, tenant.StrategyFixed, jakartaAt(t, 8, 20))
	ctx := authedContext(t, testUser, false)
	h.reportAtOffice()

	_, err := h.svc.BeginCheckIn(ctx, attendance.BeginCheckInRequest{})
	require.NoError(t, err)
	assert.Equal(t, attendance.StageLateReason, h.flows.stage(testUser))

	require.NoError(t, h.svc.CancelFlow(ctx))
	assert.Equal(t, attendance.StageIdle, h.flows.stage(testUser))
	assert.Equal(t, 0, h.repo.count())
}

func TestStatus_ReportsClockAndOpenSession(t *testing.T) {
	h := newHarness(t, tenant.StrategyFixed, jakartaAt(t, 7, 55))
	ctx := authedContext(t, testUser, false)
	h.reportAtOffice()

	_, err := h.svc.BeginCheckIn(ctx, attendance.BeginCheckInRequest{})
	require.NoError(t, err)
	_, err = h.svc.FinalizeCheckIn(ctx, selfieRequest())
	require.NoError(t, err)

	h.clock.now = jakartaAt(t, 10, 0)

	status, err := h.svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, attendance.StageIdle, status.Stage)
	assert.True(t, status.ClockSynced)
	require.NotNil(t, status.OpenSession)
	assert.Equal(t, attendance.StatusOpen, status.OpenSession.Status)
}

func TestReportLocation_InRangeFlag(t *testing.T) {
	h := newHarness(t, tenant.StrategyFixed, jakartaAt(t, 7, 55))
	ctx := authedContext(t, testUser, false)

	reading, err := h.svc.ReportLocation(ctx, attendance.ReportLocationRequest{
		Latitude:  officePoint.Lat,
		Longitude: officePoint.Lng,
		Accuracy:  8,
	})
	require.NoError(t, err)
	require.NotNil(t, reading.Distance)
	assert.InDelta(t, 0, *reading.Distance, 1)
	require.NotNil(t, reading.InRange)
	assert.True(t, *reading.InRange)
	assert.False(t, reading.Loading)
}

package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/opsportal/backend-go/internal/domain/attendance"
	"github.com/opsportal/backend-go/internal/handler/http/response"
)

type AttendanceHandler interface {
	ReportLocation(w http.ResponseWriter, r *http.Request)
	Status(w http.ResponseWriter, r *http.Request)
	BeginCheckIn(w http.ResponseWriter, r *http.Request)
	SubmitLateReason(w http.ResponseWriter, r *http.Request)
	FinalizeCheckIn(w http.ResponseWriter, r *http.Request)
	BeginCheckOut(w http.ResponseWriter, r *http.Request)
	FinalizeCheckOut(w http.ResponseWriter, r *http.Request)
	CancelFlow(w http.ResponseWriter, r *http.Request)
	GetMyAttendance(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
}

type attendanceHandlerImpl struct {
	attendanceService attendance.AttendanceService
}

func NewAttendanceHandler(attendanceService attendance.AttendanceService) AttendanceHandler {
	return &attendanceHandlerImpl{
		attendanceService: attendanceService,
	}
}

// ReportLocation implements AttendanceHandler.
func (h *attendanceHandlerImpl) ReportLocation(w http.ResponseWriter, r *http.Request) {
	var req attendance.ReportLocationRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("ReportLocation decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	result, err := h.attendanceService.ReportLocation(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// Status implements AttendanceHandler.
func (h *attendanceHandlerImpl) Status(w http.ResponseWriter, r *http.Request) {
	result, err := h.attendanceService.Status(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// BeginCheckIn implements AttendanceHandler.
func (h *attendanceHandlerImpl) BeginCheckIn(w http.ResponseWriter, r *http.Request) {
	var req attendance.BeginCheckInRequest

	// Body is optional; only SHIFT tenants send a shift_id.
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			slog.Error("BeginCheckIn decode error", "error", err)
			response.BadRequest(w, "Invalid request format", nil)
			return
		}
	}

	result, err := h.attendanceService.BeginCheckIn(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// SubmitLateReason implements AttendanceHandler.
func (h *attendanceHandlerImpl) SubmitLateReason(w http.ResponseWriter, r *http.Request) {
	var req attendance.LateReasonRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("SubmitLateReason decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	result, err := h.attendanceService.SubmitLateReason(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// FinalizeCheckIn implements AttendanceHandler.
func (h *attendanceHandlerImpl) FinalizeCheckIn(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseSelfieForm(w, r)
	if !ok {
		return
	}
	if req.File != nil {
		defer req.File.Close()
	}

	result, err := h.attendanceService.FinalizeCheckIn(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Check-in successful", result)
}

// BeginCheckOut implements AttendanceHandler.
func (h *attendanceHandlerImpl) BeginCheckOut(w http.ResponseWriter, r *http.Request) {
	result, err := h.attendanceService.BeginCheckOut(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// FinalizeCheckOut implements AttendanceHandler.
func (h *attendanceHandlerImpl) FinalizeCheckOut(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseSelfieForm(w, r)
	if !ok {
		return
	}
	if req.File != nil {
		defer req.File.Close()
	}

	result, err := h.attendanceService.FinalizeCheckOut(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// CancelFlow implements AttendanceHandler.
func (h *attendanceHandlerImpl) CancelFlow(w http.ResponseWriter, r *http.Request) {
	if err := h.attendanceService.CancelFlow(r.Context()); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Flow cancelled", nil)
}

// GetMyAttendance implements AttendanceHandler.
func (h *attendanceHandlerImpl) GetMyAttendance(w http.ResponseWriter, r *http.Request) {
	filter := parseListFilter(r)

	result, err := h.attendanceService.GetMyAttendance(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result.Records, &response.Meta{
		Page:       result.Page,
		Limit:      result.Limit,
		TotalItems: result.TotalCount,
		TotalPages: result.TotalPages,
	})
}

// List implements AttendanceHandler.
func (h *attendanceHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	filter := parseListFilter(r)

	if userID := r.URL.Query().Get("user_id"); userID != "" {
		filter.UserID = &userID
	}

	result, err := h.attendanceService.ListAttendance(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result.Records, &response.Meta{
		Page:       result.Page,
		Limit:      result.Limit,
		TotalItems: result.TotalCount,
		TotalPages: result.TotalPages,
	})
}

// Get implements AttendanceHandler.
func (h *attendanceHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	result, err := h.attendanceService.GetRecord(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// parseSelfieForm reads the multipart finalize form. The photo is optional:
// a retry after a transient failure reuses the frame preserved server-side.
func (h *attendanceHandlerImpl) parseSelfieForm(w http.ResponseWriter, r *http.Request) (attendance.FinalizeRequest, bool) {
	var req attendance.FinalizeRequest

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		slog.Error("Failed to parse multipart form", "error", err)
		response.BadRequest(w, "Failed to parse form data", nil)
		return req, false
	}

	file, fileHeader, err := r.FormFile("photo")
	if err != nil {
		if err != http.ErrMissingFile {
			slog.Error("Failed to get file from form", "error", err)
			response.BadRequest(w, "Invalid file upload", nil)
			return req, false
		}
	} else {
		req.File = file
		req.FileHeader = fileHeader
	}

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return req, false
	}

	return req, true
}

func parseListFilter(r *http.Request) attendance.ListFilter {
	filter := attendance.ListFilter{}
	query := r.URL.Query()

	if date := query.Get("date"); date != "" {
		filter.Date = &date
	}
	if startDate := query.Get("start_date"); startDate != "" {
		filter.StartDate = &startDate
	}
	if endDate := query.Get("end_date"); endDate != "" {
		filter.EndDate = &endDate
	}
	if status := query.Get("status"); status != "" {
		s := attendance.Status(status)
		filter.Status = &s
	}

	if page := query.Get("page"); page != "" {
		if p, err := strconv.Atoi(page); err == nil {
			filter.Page = p
		}
	}
	if limit := query.Get("limit"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil {
			filter.Limit = l
		}
	}

	filter.SortBy = query.Get("sort_by")
	filter.SortOrder = query.Get("sort_order")

	return filter
}

package postgresql

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/opsportal/backend-go/internal/domain/attendance"
	"github.com/opsportal/backend-go/internal/pkg/database"
)

type attendanceRepository struct {
	db *database.DB
}

func NewAttendanceRepository(db *database.DB) attendance.AttendanceRepository {
	return &attendanceRepository{db: db}
}

const attendanceColumns = `
	id, user_id, tenant_id, date, time_in, time_out, is_late, late_reason,
	latitude, longitude, shift_id, selfie_url, check_out_selfie_url, created_at
`

func scanRecord(row pgx.Row) (attendance.Record, error) {
	var rec attendance.Record
	err := row.Scan(
		&rec.ID, &rec.UserID, &rec.TenantID, &rec.Date, &rec.TimeIn, &rec.TimeOut,
		&rec.IsLate, &rec.LateReason, &rec.Location.Lat, &rec.Location.Lng,
		&rec.ShiftID, &rec.SelfieURL, &rec.CheckOutSelfieURL, &rec.CreatedAt,
	)
	return rec, err
}

// Create implements attendance.AttendanceRepository.
func (a *attendanceRepository) Create(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		INSERT INTO attendance_records (
			id, user_id, tenant_id, date, time_in, is_late, late_reason,
			latitude, longitude, shift_id, selfie_url
		) VALUES (
			uuidv7(), $1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		) RETURNING id, created_at
	`

	err := q.QueryRow(ctx, query,
		rec.UserID,
		rec.TenantID,
		rec.Date,
		rec.TimeIn,
		rec.IsLate,
		rec.LateReason,
		rec.Location.Lat,
		rec.Location.Lng,
		rec.ShiftID,
		rec.SelfieURL,
	).Scan(&rec.ID, &rec.CreatedAt)

	if err != nil {
		return attendance.Record{}, fmt.Errorf("failed to create attendance record: %w", err)
	}

	return rec, nil
}

// GetByID implements attendance.AttendanceRepository.
func (a *attendanceRepository) GetByID(ctx context.Context, id string, tenantID string) (attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	query := `SELECT ` + attendanceColumns + ` FROM attendance_records WHERE id = $1 AND tenant_id = $2`

	rec, err := scanRecord(q.QueryRow(ctx, query, id, tenantID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return attendance.Record{}, attendance.ErrRecordNotFound
		}
		return attendance.Record{}, fmt.Errorf("failed to get attendance record by ID: %w", err)
	}

	return rec, nil
}

// ListByUserSince implements attendance.AttendanceRepository.
func (a *attendanceRepository) ListByUserSince(ctx context.Context, userID string, tenantID string, fromDate string) ([]attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		SELECT ` + attendanceColumns + `
		FROM attendance_records
		WHERE user_id = $1 AND tenant_id = $2 AND date >= $3
		ORDER BY date DESC, time_in DESC
	`

	rows, err := q.Query(ctx, query, userID, tenantID, fromDate)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance records: %w", err)
	}
	defer rows.Close()

	var records []attendance.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attendance records: %w", err)
	}

	return records, nil
}

// SetTimeOut implements attendance.AttendanceRepository.
// One atomic patch of the open record; rows with a time_out already set are
// not matched, so a double check-out surfaces as not found.
func (a *attendanceRepository) SetTimeOut(ctx context.Context, id string, tenantID string, timeOut string, checkOutSelfieURL *string) error {
	q := GetQuerier(ctx, a.db)

	query := `
		UPDATE attendance_records
		SET time_out = $1, check_out_selfie_url = $2
		WHERE id = $3 AND tenant_id = $4 AND time_out IS NULL
	`

	tag, err := q.Exec(ctx, query, timeOut, checkOutSelfieURL, id, tenantID)
	if err != nil {
		return fmt.Errorf("failed to set time out: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return attendance.ErrRecordNotFound
	}

	return nil
}

// List implements attendance.AttendanceRepository.
func (a *attendanceRepository) List(ctx context.Context, filter attendance.ListFilter, tenantID string) ([]attendance.Record, int64, error) {
	baseWhere := "tenant_id = $1"
	args := []interface{}{tenantID}

	if filter.UserID != nil && *filter.UserID != "" {
		args = append(args, *filter.UserID)
		baseWhere += fmt.Sprintf(" AND user_id = $%d", len(args))
	}

	return a.list(ctx, filter, baseWhere, args)
}

// ListMine implements attendance.AttendanceRepository.
func (a *attendanceRepository) ListMine(ctx context.Context, userID string, filter attendance.ListFilter, tenantID string) ([]attendance.Record, int64, error) {
	baseWhere := "tenant_id = $1 AND user_id = $2"
	args := []interface{}{tenantID, userID}

	return a.list(ctx, filter, baseWhere, args)
}

func (a *attendanceRepository) list(ctx context.Context, filter attendance.ListFilter, baseWhere string, args []interface{}) ([]attendance.Record, int64, error) {
	q := GetQuerier(ctx, a.db)

	if filter.Date != nil && *filter.Date != "" {
		args = append(args, *filter.Date)
		baseWhere += fmt.Sprintf(" AND date = $%d", len(args))
	}
	if filter.StartDate != nil && *filter.StartDate != "" {
		args = append(args, *filter.StartDate)
		baseWhere += fmt.Sprintf(" AND date >= $%d", len(args))
	}
	if filter.EndDate != nil && *filter.EndDate != "" {
		args = append(args, *filter.EndDate)
		baseWhere += fmt.Sprintf(" AND date <= $%d", len(args))
	}
	if filter.Status != nil {
		switch *filter.Status {
		case attendance.StatusOpen:
			baseWhere += " AND time_out IS NULL"
		case attendance.StatusClosed:
			baseWhere += " AND time_out IS NOT NULL"
		}
	}

	countQuery := "SELECT COUNT(*) FROM attendance_records WHERE " + baseWhere
	var total int64
	if err := q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count attendance records: %w", err)
	}

	// Sort columns come from a validated whitelist, never raw input.
	sortBy := "date"
	if filter.SortBy != "" {
		sortBy = filter.SortBy
	}
	sortOrder := "DESC"
	if filter.SortOrder == "asc" {
		sortOrder = "ASC"
	}

	args = append(args, filter.Limit)
	limitIdx := len(args)
	args = append(args, (filter.Page-1)*filter.Limit)
	offsetIdx := len(args)

	query := fmt.Sprintf(`
		SELECT %s
		FROM attendance_records
		WHERE %s
		ORDER BY %s %s, created_at DESC
		LIMIT $%d OFFSET $%d
	`, attendanceColumns, baseWhere, sortBy, sortOrder, limitIdx, offsetIdx)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list attendance records: %w", err)
	}
	defer rows.Close()

	var records []attendance.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan attendance record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate attendance records: %w", err)
	}

	return records, total, nil
}

package attendance

import "context"

// AttendanceRepository is the Attendance Store collaborator boundary.
// All methods take tenantID to prevent cross-tenant data access.
type AttendanceRepository interface {
	// Create persists a new record (check-in). A single atomic call;
	// nothing is half-written.
	Create(ctx context.Context, rec Record) (Record, error)

	// GetByID retrieves a record with tenant isolation.
	GetByID(ctx context.Context, id string, tenantID string) (Record, error)

	// ListByUserSince returns a worker's records dated on or after fromDate
	// ("YYYY-MM-DD"), newest first. Feeds the session resolver.
	ListByUserSince(ctx context.Context, userID string, tenantID string, fromDate string) ([]Record, error)

	// SetTimeOut patches an open record with its check-out fields in one
	// atomic call. Never creates.
	SetTimeOut(ctx context.Context, id string, tenantID string, timeOut string, checkOutSelfieURL *string) error

	// List retrieves records with filters and pagination (admin surface).
	List(ctx context.Context, filter ListFilter, tenantID string) ([]Record, int64, error)

	// ListMine retrieves records for one worker with filters and pagination.
	ListMine(ctx context.Context, userID string, filter ListFilter, tenantID string) ([]Record, int64, error)
}

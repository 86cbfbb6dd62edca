package shift

import "context"

// ShiftRepository defines data access for shift templates. All methods take
// tenantID to prevent cross-tenant reads.
type ShiftRepository interface {
	Create(ctx context.Context, s Shift) (Shift, error)
	GetByID(ctx context.Context, id string, tenantID string) (Shift, error)
	ListByTenant(ctx context.Context, tenantID string) ([]Shift, error)
	Update(ctx context.Context, s Shift) error
	Delete(ctx context.Context, id string, tenantID string) error
}

package postgresql

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/opsportal/backend-go/internal/domain/tenant"
	"github.com/opsportal/backend-go/internal/pkg/database"
)

type tenantRepository struct {
	db *database.DB
}

func NewTenantRepository(db *database.DB) tenant.PolicyRepository {
	return &tenantRepository{db: db}
}

// GetPolicy implements tenant.PolicyRepository.
func (r *tenantRepository) GetPolicy(ctx context.Context, tenantID string) (tenant.Policy, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT tenant_id, work_strategy, radius_tolerance, late_grace_period,
		       office_latitude, office_longitude, office_start, office_end, timezone
		FROM tenant_policies
		WHERE tenant_id = $1
	`

	var p tenant.Policy
	err := q.QueryRow(ctx, query, tenantID).Scan(
		&p.TenantID, &p.WorkStrategy, &p.RadiusTolerance, &p.LateGracePeriod,
		&p.OfficeLocation.Lat, &p.OfficeLocation.Lng,
		&p.OfficeHours.Start, &p.OfficeHours.End, &p.Timezone,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return tenant.Policy{}, tenant.ErrPolicyNotFound
		}
		return tenant.Policy{}, fmt.Errorf("failed to get tenant policy: %w", err)
	}

	return p, nil
}

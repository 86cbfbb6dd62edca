package tenant

import "context"

// PolicyRepository is the Directory collaborator boundary for tenant
// attendance configuration.
type PolicyRepository interface {
	GetPolicy(ctx context.Context, tenantID string) (Policy, error)
}

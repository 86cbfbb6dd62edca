package tenant

import "context"

type PolicyService interface {
	// GetMyPolicy returns the calling user's tenant attendance policy.
	GetMyPolicy(ctx context.Context) (PolicyResponse, error)
}

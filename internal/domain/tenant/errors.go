package tenant

import "errors"

var (
	ErrPolicyNotFound      = errors.New("attendance policy not found for tenant")
	ErrInvalidWorkStrategy = errors.New("invalid work strategy")
)

package user

import "context"

type UserRepository interface {
	GetByID(ctx context.Context, id string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByOAuthProviderID(ctx context.Context, provider string, providerID string) (User, error)
	Create(ctx context.Context, u User) (User, error)
}

package auth

import (
	"context"

	"schoolpay/internal/domain"
)

type userRepo interface {
	Create(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

type tokenIssuer interface {
	GenerateToken(userID int64, role, schoolID string) (string, error)
}

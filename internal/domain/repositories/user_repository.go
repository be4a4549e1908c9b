package repositories

import (
	"context"

	"github.com/google/uuid"
	"winmore.backend/internal/domain/entities"
)

// UserRepository defines user data operations
type UserRepository interface {
	Create(ctx context.Context, user *entities.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error)
	GetByWalletAddress(ctx context.Context, address string) (*entities.User, error)
}

package repository

import (
	"context"
	"errors"

	"github.com/oksasatya/go-ddd-task-tracker/internal/domain/entity"
)

var (
	// ErrNotFound is returned when no row matches, including rows owned by
	// someone else.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateEmail is returned when the unique email index rejects an insert.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrOwnerMissing is returned when a row references a user that no
	// longer exists.
	ErrOwnerMissing = errors.New("owner does not exist")
)

// UserRepository defines the interface for user-related database operations.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	Update(ctx context.Context, u *entity.User) error
	Delete(ctx context.Context, id string) error
}

package repository

import (
	"context"

	"github.com/oksasatya/go-ddd-task-tracker/internal/domain/entity"
)

// TaskRepository persists tasks. Every method takes the owner id and filters
// by (id, owner) jointly; a task owned by someone else is ErrNotFound.
type TaskRepository interface {
	Create(ctx context.Context, ownerID string, t *entity.Task) error
	ListByOwner(ctx context.Context, ownerID string) ([]*entity.Task, error)
	GetByIDAndOwner(ctx context.Context, id, ownerID string) (*entity.Task, error)
	UpdateByIDAndOwner(ctx context.Context, id, ownerID string, patch entity.TaskPatch) (*entity.Task, error)
	ToggleCompleted(ctx context.Context, id, ownerID string) (*entity.Task, error)
	DeleteByIDAndOwner(ctx context.Context, id, ownerID string) error
	SearchByOwner(ctx context.Context, ownerID, query string, limit int) ([]*entity.Task, error)
}

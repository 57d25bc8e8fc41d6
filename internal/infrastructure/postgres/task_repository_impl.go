package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/oksasatya/go-ddd-task-tracker/internal/domain/entity"
	"github.com/oksasatya/go-ddd-task-tracker/internal/domain/repository"
)

// TaskRepository stores tasks. Every statement carries both id and user_id
// in its WHERE clause.
type TaskRepository struct {
	db DBTX
}

func NewTaskRepository(db DBTX) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `id, user_id, title, description, completed, created_at, updated_at`

func (r *TaskRepository) Create(ctx context.Context, ownerID string, t *entity.Task) error {
	t.UserID = ownerID
	row := r.db.QueryRow(ctx, `
		INSERT INTO tasks (user_id, title, description, completed)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, ownerID, t.Title, t.Description, t.Completed)

	if err := row.Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return fmt.Errorf("insert task: %w", mapError(err))
	}
	return nil
}

func (r *TaskRepository) ListByOwner(ctx context.Context, ownerID string) ([]*entity.Task, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", mapError(err))
	}
	return collectTasks(rows)
}

func (r *TaskRepository) GetByIDAndOwner(ctx context.Context, id, ownerID string) (*entity.Task, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE id = $1 AND user_id = $2
	`, id, ownerID)
	return scanTask(row)
}

// UpdateByIDAndOwner applies patch in a single statement so concurrent
// writers never overwrite columns they did not set.
func (r *TaskRepository) UpdateByIDAndOwner(ctx context.Context, id, ownerID string, patch entity.TaskPatch) (*entity.Task, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE tasks
		SET title = COALESCE($3, title),
		    description = COALESCE($4, description),
		    completed = COALESCE($5, completed),
		    updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING `+taskColumns,
		id, ownerID, patch.Title, patch.Description, patch.Completed)
	return scanTask(row)
}

// ToggleCompleted flips completion atomically; two concurrent toggles
// serialise on the row lock and both take effect.
func (r *TaskRepository) ToggleCompleted(ctx context.Context, id, ownerID string) (*entity.Task, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE tasks
		SET completed = NOT completed, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING `+taskColumns,
		id, ownerID)
	return scanTask(row)
}

func (r *TaskRepository) DeleteByIDAndOwner(ctx context.Context, id, ownerID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM tasks WHERE id = $1 AND user_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete task: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// SearchByOwner is the fallback search used when Elasticsearch is not configured.
func (r *TaskRepository) SearchByOwner(ctx context.Context, ownerID, query string, limit int) ([]*entity.Task, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE user_id = $1 AND (title ILIKE $2 OR description ILIKE $2)
		ORDER BY updated_at DESC
		LIMIT $3
	`, ownerID, likePattern(query), limit)
	if err != nil {
		return nil, fmt.Errorf("search tasks: %w", mapError(err))
	}
	return collectTasks(rows)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(q string) string {
	return "%" + likeEscaper.Replace(strings.TrimSpace(q)) + "%"
}

func scanTask(row scanner) (*entity.Task, error) {
	t := &entity.Task{}
	if err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Completed,
		&t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, mapError(err)
	}
	return t, nil
}

func collectTasks(rows pgx.Rows) ([]*entity.Task, error) {
	defer rows.Close()
	tasks := make([]*entity.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return tasks, nil
}

var _ repository.TaskRepository = (*TaskRepository)(nil)

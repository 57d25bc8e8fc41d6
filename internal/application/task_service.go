package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-task-tracker/internal/domain/entity"
	"github.com/oksasatya/go-ddd-task-tracker/internal/domain/policy"
	repo "github.com/oksasatya/go-ddd-task-tracker/internal/domain/repository"
)

const (
	MaxTitleLength    = 255
	DefaultSearchSize = 10
	MaxSearchSize     = 50
)

// TaskSearcher is the optional full-text index kept next to Postgres.
// *search.TaskIndex satisfies it.
type TaskSearcher interface {
	Index(ctx context.Context, t *entity.Task) error
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, ownerID, q string, size int) ([]*entity.Task, error)
}

// TaskService scopes every operation to the caller. A task that exists but
// belongs to someone else is reported as ErrNotFound.
type TaskService struct {
	Repo   repo.TaskRepository
	Search TaskSearcher // optional
	Logger *logrus.Logger
}

func NewTaskService(r repo.TaskRepository, search TaskSearcher, logger *logrus.Logger) *TaskService {
	return &TaskService{Repo: r, Search: search, Logger: logger}
}

type TaskList struct {
	Tasks   []*entity.Task
	Summary entity.TaskSummary
}

type CreateTaskInput struct {
	Title       string
	Description string
	Completed   bool
}

func (s *TaskService) List(ctx context.Context, caller policy.Subject) (*TaskList, error) {
	owner, err := callerID(caller)
	if err != nil {
		return nil, err
	}
	tasks, err := s.Repo.ListByOwner(ctx, owner)
	if err != nil {
		return nil, s.storageErr("list tasks", err)
	}
	return &TaskList{Tasks: tasks, Summary: entity.Summarize(tasks)}, nil
}

// Create always assigns the caller as owner.
func (s *TaskService) Create(ctx context.Context, caller policy.Subject, in CreateTaskInput) (*entity.Task, error) {
	owner, err := callerID(caller)
	if err != nil {
		return nil, err
	}
	title, err := cleanTitle(in.Title)
	if err != nil {
		return nil, err
	}
	t := &entity.Task{
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Completed:   in.Completed,
	}
	if err := s.Repo.Create(ctx, owner, t); err != nil {
		return nil, s.storageErr("create task", err)
	}
	s.index(ctx, t)
	return t, nil
}

func (s *TaskService) Get(ctx context.Context, caller policy.Subject, id string) (*entity.Task, error) {
	owner, id, err := s.scope(caller, id)
	if err != nil {
		return nil, err
	}
	t, err := s.Repo.GetByIDAndOwner(ctx, id, owner)
	if err != nil {
		return nil, s.storageErr("get task", err)
	}
	return s.owned(caller, t)
}

func (s *TaskService) Update(ctx context.Context, caller policy.Subject, id string, patch entity.TaskPatch) (*entity.Task, error) {
	owner, id, err := s.scope(caller, id)
	if err != nil {
		return nil, err
	}
	if patch.Title != nil {
		title, err := cleanTitle(*patch.Title)
		if err != nil {
			return nil, err
		}
		patch.Title = &title
	}
	if patch.Description != nil {
		d := strings.TrimSpace(*patch.Description)
		patch.Description = &d
	}
	current, err := s.guard(ctx, caller, id, owner, "update task")
	if err != nil || patch.IsEmpty() {
		return current, err
	}
	t, err := s.Repo.UpdateByIDAndOwner(ctx, id, owner, patch)
	if err != nil {
		return nil, s.storageErr("update task", err)
	}
	if t, err = s.owned(caller, t); err != nil {
		return nil, err
	}
	s.index(ctx, t)
	return t, nil
}

// ToggleComplete flips completed in one statement, so concurrent toggles on
// the same row serialise in Postgres.
func (s *TaskService) ToggleComplete(ctx context.Context, caller policy.Subject, id string) (*entity.Task, error) {
	owner, id, err := s.scope(caller, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.guard(ctx, caller, id, owner, "toggle task"); err != nil {
		return nil, err
	}
	t, err := s.Repo.ToggleCompleted(ctx, id, owner)
	if err != nil {
		return nil, s.storageErr("toggle task", err)
	}
	if t, err = s.owned(caller, t); err != nil {
		return nil, err
	}
	s.index(ctx, t)
	return t, nil
}

func (s *TaskService) Delete(ctx context.Context, caller policy.Subject, id string) error {
	owner, id, err := s.scope(caller, id)
	if err != nil {
		return err
	}
	if _, err := s.guard(ctx, caller, id, owner, "delete task"); err != nil {
		return err
	}
	if err := s.Repo.DeleteByIDAndOwner(ctx, id, owner); err != nil {
		return s.storageErr("delete task", err)
	}
	if s.Search != nil {
		if err := s.Search.Delete(ctx, id); err != nil {
			s.Logger.WithError(err).WithField("task_id", id).Warn("unindex task failed")
		}
	}
	return nil
}

// SearchTasks queries the index when one is configured and falls back to
// Postgres otherwise or when the index errors. Hits from the index are
// re-checked against the caller before they are returned.
func (s *TaskService) SearchTasks(ctx context.Context, caller policy.Subject, q string, size int) ([]*entity.Task, error) {
	owner, err := callerID(caller)
	if err != nil {
		return nil, err
	}
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, invalid("q", "is required")
	}
	if size <= 0 || size > MaxSearchSize {
		size = DefaultSearchSize
	}

	if s.Search != nil {
		hits, err := s.Search.Search(ctx, owner, q, size)
		if err == nil {
			out := make([]*entity.Task, 0, len(hits))
			for _, t := range hits {
				if policy.IsCrossOwnerAccess(caller, t.UserID) {
					s.Logger.WithField("task_id", t.ID).Warn("search index returned foreign task")
					continue
				}
				out = append(out, t)
			}
			return out, nil
		}
		s.Logger.WithError(err).Warn("task index search failed, falling back to postgres")
	}

	tasks, err := s.Repo.SearchByOwner(ctx, owner, q, size)
	if err != nil {
		return nil, s.storageErr("search tasks", err)
	}
	return tasks, nil
}

// scope resolves the caller and validates the task id before any storage
// access. A non-UUID id is a validation error, not a lookup miss.
func (s *TaskService) scope(caller policy.Subject, id string) (owner, taskID string, err error) {
	owner, err = callerID(caller)
	if err != nil {
		return "", "", err
	}
	u, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return "", "", invalid("id", "must be a UUID")
	}
	return owner, u.String(), nil
}

// guard loads the row through the owner filter and applies the ownership rule
// to it before any write is issued. Both checks must pass.
func (s *TaskService) guard(ctx context.Context, caller policy.Subject, id, owner, op string) (*entity.Task, error) {
	t, err := s.Repo.GetByIDAndOwner(ctx, id, owner)
	if err != nil {
		return nil, s.storageErr(op, err)
	}
	t, err = s.owned(caller, t)
	if err != nil {
		s.Logger.WithFields(logrus.Fields{
			"subject": caller.SubjectID(),
			"task_id": id,
		}).Warn("task owner filter returned a foreign row")
	}
	return t, err
}

// owned re-checks a row returned by storage against the caller.
func (s *TaskService) owned(caller policy.Subject, t *entity.Task) (*entity.Task, error) {
	if t == nil || policy.IsCrossOwnerAccess(caller, t.UserID) {
		return nil, ErrNotFound
	}
	return t, nil
}

func (s *TaskService) index(ctx context.Context, t *entity.Task) {
	if s.Search == nil {
		return
	}
	if err := s.Search.Index(ctx, t); err != nil {
		s.Logger.WithError(err).WithField("task_id", t.ID).Warn("index task failed")
	}
}

func (s *TaskService) storageErr(op string, err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return ErrNotFound
	}
	// the account behind a still-valid token is gone
	if errors.Is(err, repo.ErrOwnerMissing) {
		return ErrUnauthorized
	}
	s.Logger.WithError(err).Error(op + " failed")
	return fmt.Errorf("%w: %s", ErrInternal, op)
}

// callerID returns the caller's canonical id. A missing caller never reaches
// storage.
func callerID(caller policy.Subject) (string, error) {
	if caller == nil {
		return "", ErrUnauthorized
	}
	id := policy.Normalize(caller.SubjectID())
	if id == "" {
		return "", ErrUnauthorized
	}
	return id, nil
}

func cleanTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", invalid("title", "is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return "", invalid("title", fmt.Sprintf("must be at most %d characters", MaxTitleLength))
	}
	return title, nil
}

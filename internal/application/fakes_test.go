package application

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/go-ddd-task-tracker/internal/domain/entity"
	repo "github.com/oksasatya/go-ddd-task-tracker/internal/domain/repository"
	"github.com/oksasatya/go-ddd-task-tracker/pkg/helpers"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestJWT(t *testing.T) *helpers.JWTManager {
	t.Helper()
	m, err := helpers.NewJWTManager(helpers.DefaultTokenOptions(testSecret))
	require.NoError(t, err)
	return m
}

type fakeUserRepo struct {
	mu      sync.Mutex
	byID    map[string]*entity.User
	lookups int
	err     error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: map[string]*entity.User{}}
}

func (r *fakeUserRepo) Create(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	for _, existing := range r.byID {
		if existing.Email == u.Email {
			return repo.ErrDuplicateEmail
		}
	}
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	r.byID[u.ID] = &cp
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	u, ok := r.byID[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookups++
	if r.err != nil {
		return nil, r.err
	}
	for _, u := range r.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (r *fakeUserRepo) Update(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[u.ID]; !ok {
		return repo.ErrNotFound
	}
	u.UpdatedAt = time.Now()
	cp := *u
	r.byID[u.ID] = &cp
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return repo.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

// fakeTaskRepo mirrors the joint (id, owner) filtering of the SQL store.
// With ignoreOwner set it filters by id only, like a store whose owner
// clause went missing.
type fakeTaskRepo struct {
	mu          sync.Mutex
	tasks       map[string]*entity.Task
	calls       int
	ignoreOwner bool
	createErr   error
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: map[string]*entity.Task{}}
}

func (r *fakeTaskRepo) Create(_ context.Context, ownerID string, t *entity.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.createErr != nil {
		return r.createErr
	}
	t.ID = uuid.NewString()
	t.UserID = ownerID
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	cp := *t
	r.tasks[t.ID] = &cp
	return nil
}

func (r *fakeTaskRepo) ListByOwner(_ context.Context, ownerID string) ([]*entity.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	out := make([]*entity.Task, 0)
	for _, t := range r.tasks {
		if t.UserID == ownerID {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeTaskRepo) find(id, ownerID string) (*entity.Task, bool) {
	t, ok := r.tasks[id]
	if !ok || (!r.ignoreOwner && t.UserID != ownerID) {
		return nil, false
	}
	return t, true
}

func (r *fakeTaskRepo) GetByIDAndOwner(_ context.Context, id, ownerID string) (*entity.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	t, ok := r.find(id, ownerID)
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTaskRepo) UpdateByIDAndOwner(_ context.Context, id, ownerID string, p entity.TaskPatch) (*entity.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	t, ok := r.find(id, ownerID)
	if !ok {
		return nil, repo.ErrNotFound
	}
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	t.UpdatedAt = time.Now()
	cp := *t
	return &cp, nil
}

func (r *fakeTaskRepo) ToggleCompleted(_ context.Context, id, ownerID string) (*entity.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	t, ok := r.find(id, ownerID)
	if !ok {
		return nil, repo.ErrNotFound
	}
	t.Completed = !t.Completed
	cp := *t
	return &cp, nil
}

func (r *fakeTaskRepo) DeleteByIDAndOwner(_ context.Context, id, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if _, ok := r.find(id, ownerID); !ok {
		return repo.ErrNotFound
	}
	delete(r.tasks, id)
	return nil
}

func (r *fakeTaskRepo) SearchByOwner(_ context.Context, ownerID, q string, limit int) ([]*entity.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	out := make([]*entity.Task, 0)
	for _, t := range r.tasks {
		if t.UserID == ownerID && strings.Contains(strings.ToLower(t.Title+" "+t.Description), strings.ToLower(q)) {
			cp := *t
			out = append(out, &cp)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	jobs []any
	err  error
}

func (n *fakeNotifier) PublishJSON(_ context.Context, body any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.jobs = append(n.jobs, body)
	return n.err
}

type fakeSearcher struct {
	hits    []*entity.Task
	err     error
	indexed []string
	deleted []string
	purged  []string
}

func (s *fakeSearcher) DeleteByOwner(_ context.Context, ownerID string) error {
	s.purged = append(s.purged, ownerID)
	return s.err
}

func (s *fakeSearcher) Index(_ context.Context, t *entity.Task) error {
	s.indexed = append(s.indexed, t.ID)
	return nil
}

func (s *fakeSearcher) Delete(_ context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *fakeSearcher) Search(context.Context, string, string, int) ([]*entity.Task, error) {
	return s.hits, s.err
}

type fakeObjectStore struct {
	path, contentType string
	body              string
}

func (s *fakeObjectStore) Upload(_ context.Context, objectPath, contentType string, r io.Reader) (string, error) {
	b, _ := io.ReadAll(r)
	s.path, s.contentType, s.body = objectPath, contentType, string(b)
	return "https://storage.googleapis.com/bucket/" + objectPath, nil
}

var testCost = bcrypt.MinCost

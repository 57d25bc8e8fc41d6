package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-task-tracker/internal/domain/entity"
	"github.com/oksasatya/go-ddd-task-tracker/internal/domain/policy"
	repo "github.com/oksasatya/go-ddd-task-tracker/internal/domain/repository"
	"github.com/oksasatya/go-ddd-task-tracker/pkg/helpers"
)

// ObjectStore uploads a blob and returns its public URL. *helpers.GCSBucket
// satisfies it.
type ObjectStore interface {
	Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error)
}

// OwnerPurger drops derived data held outside Postgres for a deleted
// account. *search.TaskIndex satisfies it.
type OwnerPurger interface {
	DeleteByOwner(ctx context.Context, ownerID string) error
}

// UserService manages a user's own profile. Touching another user's profile
// is ErrForbidden.
type UserService struct {
	Repo    repo.UserRepository
	Hasher  *helpers.PasswordHasher
	Avatars ObjectStore // optional
	Index   OwnerPurger // optional
	Logger  *logrus.Logger
}

func NewUserService(r repo.UserRepository, hasher *helpers.PasswordHasher, avatars ObjectStore, logger *logrus.Logger) *UserService {
	return &UserService{Repo: r, Hasher: hasher, Avatars: avatars, Logger: logger}
}

type UpdateProfileInput struct {
	Name     *string
	Password *string
}

var allowedAvatarTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

func (s *UserService) GetProfile(ctx context.Context, caller policy.Subject, userID string) (*entity.User, error) {
	id, err := s.authorize(caller, userID)
	if err != nil {
		return nil, err
	}
	u, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.storageErr("get user", err)
	}
	return u, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, caller policy.Subject, userID string, in UpdateProfileInput) (*entity.User, error) {
	id, err := s.authorize(caller, userID)
	if err != nil {
		return nil, err
	}
	u, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.storageErr("get user", err)
	}
	if in.Name != nil {
		u.Name = strings.TrimSpace(*in.Name)
	}
	if in.Password != nil {
		hash, err := s.Hasher.Hash(*in.Password)
		if err != nil {
			if errors.Is(err, helpers.ErrEmptyPassword) {
				return nil, invalid("password", "is required")
			}
			s.Logger.WithError(err).Error("hash password failed")
			return nil, fmt.Errorf("%w: hash password", ErrInternal)
		}
		u.Password = hash
	}
	if err := s.Repo.Update(ctx, u); err != nil {
		return nil, s.storageErr("update user", err)
	}
	return u, nil
}

// Delete removes the caller's account. The database cascades their tasks and
// the search index is purged.
func (s *UserService) Delete(ctx context.Context, caller policy.Subject, userID string) error {
	id, err := s.authorize(caller, userID)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		return s.storageErr("delete user", err)
	}
	if s.Index != nil {
		if err := s.Index.DeleteByOwner(ctx, id); err != nil {
			s.Logger.WithError(err).WithField("user_id", id).Warn("purge indexed tasks failed")
		}
	}
	s.Logger.WithField("user_id", id).Info("user deleted")
	return nil
}

// UploadAvatar stores the image under avatars/<user>/ and saves its URL on
// the profile.
func (s *UserService) UploadAvatar(ctx context.Context, caller policy.Subject, userID string, r io.Reader, contentType string) (string, error) {
	id, err := s.authorize(caller, userID)
	if err != nil {
		return "", err
	}
	if s.Avatars == nil {
		return "", ErrStorageUnavailable
	}
	ext, ok := allowedAvatarTypes[strings.ToLower(contentType)]
	if !ok {
		return "", invalid("file", "must be a jpeg, png, webp or gif image")
	}
	u, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return "", s.storageErr("get user", err)
	}

	objectPath := path.Join("avatars", id, uuid.NewString()+ext)
	url, err := s.Avatars.Upload(ctx, objectPath, contentType, r)
	if err != nil {
		s.Logger.WithError(err).WithField("user_id", id).Error("avatar upload failed")
		return "", fmt.Errorf("%w: upload avatar", ErrInternal)
	}
	u.AvatarURL = url
	if err := s.Repo.Update(ctx, u); err != nil {
		return "", s.storageErr("update user", err)
	}
	return url, nil
}

// authorize validates the path id and then applies the ownership rule.
func (s *UserService) authorize(caller policy.Subject, userID string) (string, error) {
	if _, err := callerID(caller); err != nil {
		return "", err
	}
	u, err := uuid.Parse(strings.TrimSpace(userID))
	if err != nil {
		return "", invalid("id", "must be a UUID")
	}
	if policy.IsCrossOwnerAccess(caller, u.String()) {
		s.Logger.WithFields(logrus.Fields{
			"subject":   caller.SubjectID(),
			"requested": u.String(),
		}).Warn("cross-user access denied")
		return "", ErrForbidden
	}
	return u.String(), nil
}

func (s *UserService) storageErr(op string, err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return ErrNotFound
	}
	s.Logger.WithError(err).Error(op + " failed")
	return fmt.Errorf("%w: %s", ErrInternal, op)
}

package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-task-tracker/internal/domain/entity"
	repo "github.com/oksasatya/go-ddd-task-tracker/internal/domain/repository"
	"github.com/oksasatya/go-ddd-task-tracker/pkg/helpers"
	"github.com/oksasatya/go-ddd-task-tracker/pkg/mailer"
)

// Notifier publishes background jobs. *helpers.RabbitPublisher satisfies it.
type Notifier interface {
	PublishJSON(ctx context.Context, body any) error
}

// AttemptRecorder observes authentication outcomes, e.g. for metrics.
type AttemptRecorder func(event string, success bool)

// Authenticator owns both credential flows: email+password and bearer token.
type Authenticator struct {
	Users    repo.UserRepository
	Hasher   *helpers.PasswordHasher
	JWT      *helpers.JWTManager
	Logger   *logrus.Logger
	Notifier Notifier // optional
	Record   AttemptRecorder
	AppName  string
}

func NewAuthenticator(users repo.UserRepository, hasher *helpers.PasswordHasher, jwt *helpers.JWTManager, logger *logrus.Logger) *Authenticator {
	return &Authenticator{Users: users, Hasher: hasher, JWT: jwt, Logger: logger}
}

// AuthResult is what sign-up and sign-in hand back to the caller.
type AuthResult struct {
	User        *entity.User
	AccessToken string
	ExpiresAt   time.Time
}

type SignUpInput struct {
	Email    string
	Password string
	Name     string
}

// NormalizeEmail is the single email policy: trimmed and lower-cased, applied
// before storing and before every lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (a *Authenticator) SignUp(ctx context.Context, in SignUpInput) (*AuthResult, error) {
	email := NormalizeEmail(in.Email)
	if email == "" {
		return nil, invalid("email", "is required")
	}
	if in.Password == "" {
		return nil, invalid("password", "is required")
	}

	if _, err := a.Users.GetByEmail(ctx, email); err == nil {
		a.record("sign_up", false)
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repo.ErrNotFound) {
		a.Logger.WithError(err).Error("sign-up lookup failed")
		return nil, fmt.Errorf("%w: lookup user", ErrInternal)
	}

	hash, err := a.Hasher.Hash(in.Password)
	if err != nil {
		if errors.Is(err, helpers.ErrEmptyPassword) {
			return nil, invalid("password", "is required")
		}
		a.Logger.WithError(err).Error("hash password failed")
		return nil, fmt.Errorf("%w: hash password", ErrInternal)
	}

	u := &entity.User{Email: email, Password: hash, Name: strings.TrimSpace(in.Name)}
	if err := a.Users.Create(ctx, u); err != nil {
		// two concurrent sign-ups race past the lookup; the unique index decides
		if errors.Is(err, repo.ErrDuplicateEmail) {
			a.record("sign_up", false)
			return nil, ErrEmailTaken
		}
		a.Logger.WithError(err).Error("create user failed")
		return nil, fmt.Errorf("%w: create user", ErrInternal)
	}

	res, err := a.issue(u)
	if err != nil {
		return nil, err
	}
	a.record("sign_up", true)
	a.Logger.WithField("user_id", u.ID).Info("user registered")
	a.notifyWelcome(ctx, u)
	return res, nil
}

// Authenticate checks email and password. An unknown email and a wrong
// password are indistinguishable to the caller, and both cost one bcrypt run.
func (a *Authenticator) Authenticate(ctx context.Context, email, password string) (*entity.User, error) {
	u, err := a.Users.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			a.Logger.WithError(err).Error("sign-in lookup failed")
			return nil, fmt.Errorf("%w: lookup user", ErrInternal)
		}
		a.Hasher.Burn(password)
		return nil, ErrInvalidCredentials
	}
	if !a.Hasher.Verify(password, u.Password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (a *Authenticator) SignIn(ctx context.Context, email, password string) (*AuthResult, error) {
	u, err := a.Authenticate(ctx, email, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			a.record("sign_in", false)
		}
		return nil, err
	}
	res, err := a.issue(u)
	if err != nil {
		return nil, err
	}
	a.record("sign_in", true)
	return res, nil
}

// AuthenticateHeader resolves an Authorization header value of the form
// "Bearer <token>". The scheme is case-insensitive.
func (a *Authenticator) AuthenticateHeader(header string) (entity.Identity, error) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" || strings.Contains(token, " ") {
		a.record("token", false)
		return entity.Identity{}, ErrMissingOrMalformedHeader
	}
	return a.AuthenticateToken(token)
}

// AuthenticateToken decodes token without touching storage. Every decode
// failure collapses into ErrUnauthorized; the cause is only logged.
func (a *Authenticator) AuthenticateToken(token string) (entity.Identity, error) {
	claims, err := a.JWT.ParseAccessToken(token)
	if err != nil {
		a.record("token", false)
		a.Logger.WithError(err).Debug("token rejected")
		return entity.Identity{}, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		a.record("token", false)
		a.Logger.WithField("sub_len", len(claims.Subject)).Debug("token subject is not a uuid")
		return entity.Identity{}, fmt.Errorf("%w: subject is not a uuid", ErrUnauthorized)
	}
	a.record("token", true)
	return entity.Identity{
		Subject:   claims.Subject,
		Email:     claims.Email,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (a *Authenticator) issue(u *entity.User) (*AuthResult, error) {
	token, exp, err := a.JWT.GenerateAccessToken(u.ID, u.Email)
	if err != nil {
		a.Logger.WithError(err).WithField("user_id", u.ID).Error("generate access token failed")
		return nil, fmt.Errorf("%w: sign token", ErrInternal)
	}
	return &AuthResult{User: u, AccessToken: token, ExpiresAt: exp}, nil
}

func (a *Authenticator) record(event string, success bool) {
	if a.Record != nil {
		a.Record(event, success)
	}
}

// notifyWelcome queues the welcome email. Failure never fails the sign-up.
func (a *Authenticator) notifyWelcome(ctx context.Context, u *entity.User) {
	if a.Notifier == nil {
		return
	}
	job := mailer.EmailJob{
		To:       u.Email,
		Template: mailer.TemplateWelcome,
		Data: map[string]any{
			"Name":    u.Name,
			"Email":   u.Email,
			"AppName": a.AppName,
		},
	}
	if err := a.Notifier.PublishJSON(ctx, job); err != nil {
		a.Logger.WithError(err).WithField("user_id", u.ID).Warn("publish welcome email failed")
	}
}

package service

import (
	"context"
	"errors"

	"github.com/Nerzal/gocloak/v13"
	"github.com/deppfellow/backend-resources/internal/errs"
	"github.com/deppfellow/backend-resources/internal/keycloak"
	"github.com/deppfellow/backend-resources/internal/lib/auth"
	"github.com/deppfellow/backend-resources/internal/lib/job"
	"github.com/deppfellow/backend-resources/internal/middleware"
	"github.com/deppfellow/backend-resources/internal/model/audit"
	"github.com/deppfellow/backend-resources/internal/model/user"
	"github.com/deppfellow/backend-resources/internal/sqlerr"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

const (
	msgUserNotFound = "User not found"
	msgUserExists   = "User already exists"
)

// IdentityProvider is the subset of the Keycloak admin API the service needs.
type IdentityProvider interface {
	Search(ctx context.Context, username string) ([]*gocloak.User, error)
	Get(ctx context.Context, id string) (*gocloak.User, error)
	Create(ctx context.Context, user gocloak.User) (string, error)
	Remove(ctx context.Context, id string) error
	RealmRoles(ctx context.Context, id string) ([]string, error)
	Groups(ctx context.Context, id string) ([]string, error)
}

// AuditLog stores and lists user-management events.
type AuditLog interface {
	Record(ctx context.Context, event *audit.Event) error
	ListByTarget(ctx context.Context, targetUserID string, limit int) ([]audit.Event, error)
}

type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// UserService proxies user management to the identity provider. Every call
// is a single synchronous round trip; nothing is cached.
//
// The audit log and task enqueuer are optional. Their failures are logged
// and never fail a write.
type UserService struct {
	logger   *zerolog.Logger
	provider IdentityProvider
	audit    AuditLog
	tasks    TaskEnqueuer
}

func NewUserService(logger *zerolog.Logger, provider IdentityProvider, auditLog AuditLog, tasks TaskEnqueuer) *UserService {
	return &UserService{
		logger:   logger,
		provider: provider,
		audit:    auditLog,
		tasks:    tasks,
	}
}

// CreateUser registers a new enabled identity. A duplicate username or email
// is reported by the provider and surfaces as a 409.
func (s *UserService) CreateUser(ctx context.Context, req *user.UserRequest) error {
	logger := s.loggerFor(ctx)

	id, err := s.provider.Create(ctx, req.Representation())
	if err != nil {
		if errors.Is(err, keycloak.ErrConflict) {
			logger.Warn().Str("username", req.Username).Msg("identity already exists")
			return errs.NewConflictError(msgUserExists, true, nil)
		}
		logger.Error().Err(err).Str("username", req.Username).Msg("failed to create identity")
		return errs.NewInternalServerError()
	}

	logger.Info().Str("target_user_id", id).Msg("identity created")

	s.record(ctx, audit.ActionUserCreated, id)
	s.enqueueWelcome(ctx, req)

	return nil
}

// GetUserByID returns the public view of an identity, without roles or groups.
func (s *UserService) GetUserByID(ctx context.Context, id uuid.UUID) (*user.UserResponse, error) {
	rep, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return user.FromRepresentation(rep), nil
}

// GetUserAccessByID returns the identity together with its realm roles and
// group names.
func (s *UserService) GetUserAccessByID(ctx context.Context, id uuid.UUID) (*user.UserAccessResponse, error) {
	rep, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	roles, err := s.provider.RealmRoles(ctx, id.String())
	if err != nil {
		return nil, s.lookupError(ctx, id, err)
	}

	groups, err := s.provider.Groups(ctx, id.String())
	if err != nil {
		return nil, s.lookupError(ctx, id, err)
	}

	return &user.UserAccessResponse{
		UserResponse: *user.FromRepresentation(rep),
		Role:         roles,
		Groups:       groups,
	}, nil
}

// SearchUsers lists identities whose username matches exactly. Usernames
// are lower-cased by the provider, so the lookup is case-insensitive.
func (s *UserService) SearchUsers(ctx context.Context, username string) ([]*gocloak.User, error) {
	users, err := s.provider.Search(ctx, username)
	if err != nil {
		s.loggerFor(ctx).Error().Err(err).Str("username", username).Msg("failed to search identities")
		return nil, errs.NewInternalServerError()
	}
	return users, nil
}

// DeleteUser removes an identity.
func (s *UserService) DeleteUser(ctx context.Context, id uuid.UUID) error {
	if err := s.provider.Remove(ctx, id.String()); err != nil {
		return s.lookupError(ctx, id, err)
	}

	s.loggerFor(ctx).Info().Str("target_user_id", id.String()).Msg("identity removed")
	s.record(ctx, audit.ActionUserDeleted, id.String())

	return nil
}

// GetUserAuditTrail lists the recorded events for an identity, newest first.
// Events outlive the identity, so the provider is not consulted.
func (s *UserService) GetUserAuditTrail(ctx context.Context, id uuid.UUID, limit int) ([]audit.Event, error) {
	if s.audit == nil {
		return []audit.Event{}, nil
	}

	events, err := s.audit.ListByTarget(ctx, id.String(), limit)
	if err != nil {
		s.loggerFor(ctx).Error().Err(err).Str("target_user_id", id.String()).Msg("failed to list audit events")
		return nil, sqlerr.HandleError(err)
	}
	if events == nil {
		events = []audit.Event{}
	}
	return events, nil
}

// Hello returns the username of the authenticated caller.
func (s *UserService) Hello(ctx context.Context) (string, error) {
	principal, ok := auth.FromContext(ctx)
	if !ok {
		return "", errs.NewUnauthorizedError("Unauthorized", false)
	}
	return principal.Username, nil
}

func (s *UserService) get(ctx context.Context, id uuid.UUID) (*gocloak.User, error) {
	rep, err := s.provider.Get(ctx, id.String())
	if err != nil {
		return nil, s.lookupError(ctx, id, err)
	}
	return rep, nil
}

func (s *UserService) lookupError(ctx context.Context, id uuid.UUID, err error) error {
	if errors.Is(err, keycloak.ErrNotFound) {
		return errs.NewNotFoundError(msgUserNotFound, true, nil)
	}
	s.loggerFor(ctx).Error().Err(err).Str("target_user_id", id.String()).Msg("identity lookup failed")
	return errs.NewInternalServerError()
}

func (s *UserService) record(ctx context.Context, action audit.Action, targetUserID string) {
	if s.audit == nil {
		return
	}

	actor := ""
	if principal, ok := auth.FromContext(ctx); ok {
		actor = principal.Username
	}

	if err := s.audit.Record(ctx, audit.NewEvent(action, targetUserID, actor)); err != nil {
		s.loggerFor(ctx).Error().
			Err(err).
			Str("action", string(action)).
			Str("target_user_id", targetUserID).
			Msg("failed to record audit event")
	}
}

func (s *UserService) enqueueWelcome(ctx context.Context, req *user.UserRequest) {
	if s.tasks == nil {
		return
	}

	logger := s.loggerFor(ctx)

	task, err := job.NewWelcomeEmailTask(req.Email, req.FirstName, req.Username)
	if err != nil {
		logger.Error().Err(err).Msg("failed to build welcome email task")
		return
	}

	info, err := s.tasks.EnqueueContext(ctx, task)
	if err != nil {
		logger.Error().Err(err).Msg("failed to enqueue welcome email task")
		return
	}

	logger.Debug().Str("task_id", info.ID).Msg("welcome email task enqueued")
}

func (s *UserService) loggerFor(ctx context.Context) *zerolog.Logger {
	return middleware.LoggerFromContext(ctx, s.logger)
}

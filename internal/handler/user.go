package handler

import (
	"context"

	"github.com/deppfellow/backend-resources/internal/model/audit"
	"github.com/deppfellow/backend-resources/internal/model/user"
	"github.com/deppfellow/backend-resources/internal/server"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type userService interface {
	CreateUser(ctx context.Context, req *user.UserRequest) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*user.UserResponse, error)
	GetUserAccessByID(ctx context.Context, id uuid.UUID) (*user.UserAccessResponse, error)
	GetUserAuditTrail(ctx context.Context, id uuid.UUID, limit int) ([]audit.Event, error)
	Hello(ctx context.Context) (string, error)
}

type UserHandler struct {
	Handler
	userService userService
}

func NewUserHandler(s *server.Server, userService userService) *UserHandler {
	return &UserHandler{
		Handler:     NewHandler(s),
		userService: userService,
	}
}

func (h *UserHandler) CreateUser(c echo.Context, req *user.UserRequest) error {
	return h.userService.CreateUser(c.Request().Context(), req)
}

func (h *UserHandler) GetUser(c echo.Context, req *user.GetUserRequest) (*user.UserResponse, error) {
	return h.userService.GetUserByID(c.Request().Context(), req.UserID())
}

func (h *UserHandler) GetUserAccess(c echo.Context, req *user.GetUserRequest) (*user.UserAccessResponse, error) {
	return h.userService.GetUserAccessByID(c.Request().Context(), req.UserID())
}

func (h *UserHandler) GetUserAuditTrail(c echo.Context, req *user.AuditTrailRequest) ([]audit.Event, error) {
	return h.userService.GetUserAuditTrail(c.Request().Context(), req.UserID(), req.Limit)
}

// Hello echoes the caller's username.
func (h *UserHandler) Hello(c echo.Context, _ *user.HelloRequest) (string, error) {
	return h.userService.Hello(c.Request().Context())
}

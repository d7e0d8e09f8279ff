// Package router builds the echo instance: global middleware, the error
// handler, system routes and the versionless /api routes.
package router

import (
	"net/http"

	"github.com/deppfellow/backend-resources/internal/handler"
	"github.com/deppfellow/backend-resources/internal/middleware"
	"github.com/deppfellow/backend-resources/internal/model/user"
	"github.com/deppfellow/backend-resources/internal/server"
	"github.com/labstack/echo/v4"
)

func NewRouter(s *server.Server, h *handler.Handlers, mw *middleware.Middlewares) *echo.Echo {
	router := echo.New()
	router.HideBanner = true
	router.HidePort = true
	router.HTTPErrorHandler = mw.Global.GlobalErrorHandler

	router.Use(
		mw.Global.CORS(),
		mw.Global.Secure(),
		middleware.RequestID(),
		mw.Tracing.NewRelicMiddleware(),
		mw.Tracing.EnhanceTracing(),
		mw.ContextEnhancer.EnhanceContext(),
		mw.Global.RequestLogger(),
		mw.RateLimit.Limit(),
		mw.Global.Recover(),
	)

	registerSystemRoutes(router, h)

	api := router.Group("/api")
	registerUserRoutes(api, s, h, mw)

	return router
}

func registerUserRoutes(api *echo.Group, s *server.Server, h *handler.Handlers, mw *middleware.Middlewares) {
	users := api.Group("/users",
		mw.Auth.RequireAuth,
		middleware.RequireRole(s.Config.Auth.RequiredRole),
	)

	users.POST("", handler.HandleNoContent(h.User.Handler, h.User.CreateUser, http.StatusOK, &user.UserRequest{}))
	users.GET("/hello", handler.HandleText(h.User.Handler, h.User.Hello, &user.HelloRequest{}))
	users.GET("/:id", handler.Handle(h.User.Handler, h.User.GetUser, http.StatusOK, &user.GetUserRequest{}))
	users.GET("/:id/access", handler.Handle(h.User.Handler, h.User.GetUserAccess, http.StatusOK, &user.GetUserRequest{}))
	users.GET("/:id/audit", handler.Handle(h.User.Handler, h.User.GetUserAuditTrail, http.StatusOK, &user.AuditTrailRequest{}))
}

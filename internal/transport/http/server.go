package http

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ragdesk/internal/bootstrap"
	"ragdesk/internal/console"
	"ragdesk/internal/identity"
	"ragdesk/internal/transport/http/handler"
	"ragdesk/internal/transport/http/middleware"
)

var errConnectionClosed = errors.New("connection closed")

// Deps is everything the router wires into handlers.
type Deps struct {
	Logger     *zap.Logger
	GinMode    string
	Identity   *identity.LocalProvider
	Guard      *console.Guard
	Consoles   *console.Registry
	Ingestions handler.IngestionLister
	Limits     handler.UploadLimits
	Health     *handler.HealthHandler
}

func NewRouter(app *bootstrap.App) *gin.Engine {
	return NewRouterWithDeps(Deps{
		Logger:     app.Logger,
		GinMode:    app.Config.App.GinMode,
		Identity:   app.Identity,
		Guard:      app.Guard,
		Consoles:   app.Consoles,
		Ingestions: app.Ingestions,
		Limits: handler.UploadLimits{
			MaxFiles:     app.Config.Upload.MaxFiles,
			MaxFileBytes: app.Config.Upload.MaxFileBytes,
		},
		Health: handler.NewHealthHandler(app.Config.App.Name, app.Config.App.Env, app.StartedAt, map[string]handler.Check{
			"mysql": func(ctx context.Context) error {
				sqlDB, err := app.MySQL.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
			"redis": func(ctx context.Context) error {
				return app.Redis.Ping(ctx).Err()
			},
			"rabbitmq": func(context.Context) error {
				if app.MQConn == nil || app.MQConn.IsClosed() {
					return errConnectionClosed
				}
				return nil
			},
		}),
	})
}

func NewRouterWithDeps(deps Deps) *gin.Engine {
	if deps.GinMode != "" {
		gin.SetMode(deps.GinMode)
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(middleware.RequestLogger(logger), gin.Recovery())
	router.MaxMultipartMemory = 32 << 20

	if deps.Health != nil {
		router.GET("/healthz", deps.Health.Check)
	}

	authHandler := handler.NewAuthHandler(deps.Identity, deps.Guard, deps.Consoles)
	chatHandler := handler.NewChatHandler()
	adminHandler := handler.NewAdminHandler(deps.Consoles, deps.Ingestions, deps.Limits)

	chatGuard := middleware.GuardView(deps.Guard, deps.Consoles, console.ViewChat)
	adminGuard := middleware.GuardView(deps.Guard, deps.Consoles, console.ViewAdmin)

	v1 := router.Group("/api/v1")
	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/logout", authHandler.Logout)
	authGroup.GET("/me", chatGuard, authHandler.Me)

	chatGroup := v1.Group("/chat")
	chatGroup.Use(chatGuard)
	chatGroup.GET("", chatHandler.Show)
	chatGroup.PUT("/draft", chatHandler.PutDraft)
	chatGroup.POST("/messages", chatHandler.SendMessage)

	adminGroup := v1.Group("/admin")
	adminGroup.Use(adminGuard)
	adminGroup.GET("", adminHandler.Show)
	adminGroup.PUT("/selection", adminHandler.SelectFiles)
	adminGroup.POST("/uploads", adminHandler.Upload)
	adminGroup.POST("/status", adminHandler.RefreshStatus)
	adminGroup.GET("/ingestions", adminHandler.ListIngestions)

	return router
}

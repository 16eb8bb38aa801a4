package http

import (
	"github.com/gin-gonic/gin"

	"prayogai-rag/internal/bootstrap"
	"prayogai-rag/internal/transport/http/handler"
	"prayogai-rag/internal/transport/http/middleware"
)

type Handlers struct {
	Health *handler.HealthHandler
	Auth   *handler.AuthHandler
	Bots   *handler.BotHandler
	Chat   *handler.ChatHandler
}

func NewRouter(app *bootstrap.App) *gin.Engine {
	cfg := app.Config
	gin.SetMode(cfg.App.GinMode)
	router := gin.New()
	router.Use(middleware.RequestLogger(app.Logger), gin.Recovery(), middleware.CORS())
	router.MaxMultipartMemory = 32 << 20

	Register(router, cfg.Auth.JWTSecret, Handlers{
		Health: handler.NewHealthHandler(cfg.App.Name, cfg.App.Env, app.StartedAt, app.HealthChecks()),
		Auth:   handler.NewAuthHandler(app.Services.Auth),
		Bots: handler.NewBotHandler(app.Services.Ingest, app.Services.Bots, app.Services.Chat, handler.UploadLimits{
			MaxFileBytes: cfg.RAG.MaxUploadBytes,
			MaxFiles:     cfg.RAG.MaxFiles,
		}),
		Chat: handler.NewChatHandler(app.Services.Chat),
	})
	return router
}

// Register mounts the public widget routes and the JWT-protected owner routes.
func Register(router gin.IRouter, jwtSecret string, h Handlers) {
	router.GET("/healthz", h.Health.Check)

	api := router.Group("/api")
	authGroup := api.Group("/auth")
	authGroup.POST("/register", h.Auth.Register)
	authGroup.POST("/login", h.Auth.Login)
	authGroup.GET("/me", middleware.AuthJWT(jwtSecret), h.Auth.Me)

	api.POST("/chat", h.Chat.Chat)
	api.POST("/bots/:bot_id/chat", h.Chat.Chat)

	owner := api.Group("")
	owner.Use(middleware.AuthJWT(jwtSecret))
	owner.POST("/upload", h.Bots.Upload)
	owner.GET("/bots", h.Bots.List)
	owner.GET("/bots/stats", h.Bots.Stats)
	owner.GET("/bots/:bot_id", h.Bots.Get)
	owner.GET("/bots/:bot_id/documents", h.Bots.Documents)
	owner.GET("/bots/:bot_id/messages", h.Bots.Messages)
	owner.DELETE("/bots/:bot_id", h.Bots.Delete)
}

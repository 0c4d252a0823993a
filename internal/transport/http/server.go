package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-relay/internal/auth"
	"github.com/vovakirdan/wirechat-relay/internal/config"
	"github.com/vovakirdan/wirechat-relay/internal/core"
)

// NewServer builds the HTTP server serving the REST API and the WebSocket endpoint.
func NewServer(coord *core.Coordinator, authService *auth.Service, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(coord, authService, cfg, logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewRouter registers every route on a gin engine.
func NewRouter(coord *core.Coordinator, authService *auth.Service, cfg *config.Config, logger *zerolog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))
	router.Use(CORSMiddleware(cfg.AllowedOrigins))

	router.GET("/health", healthHandler)
	router.GET("/ws", gin.WrapH(NewWSHandler(coord, authService, cfg, logger)))

	apiHandlers := NewAPIHandlers(authService, logger)
	messageHandlers := NewMessageHandlers(coord, cfg.HistoryLimit, logger)
	userHandlers := NewUserHandlers(coord, logger)

	api := router.Group("/api")
	api.POST("/login", apiHandlers.Login)

	api.GET("/messages", messageHandlers.ListMessages)
	api.DELETE("/messages/all", messageHandlers.DeleteAllMessages)
	api.DELETE("/messages/:id", messageHandlers.DeleteMessage)

	api.GET("/users", userHandlers.ListUsers)
	api.DELETE("/users/all", userHandlers.DeleteAllUsers)
	api.DELETE("/users/:id", userHandlers.DeleteUser)

	api.DELETE("/clear_all", messageHandlers.ClearAll)

	return router
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}

package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/LHYWilliam/roomchat/internal/auth"
	"github.com/LHYWilliam/roomchat/internal/config"
	"github.com/LHYWilliam/roomchat/internal/core"
)

// NewServer builds the HTTP server carrying the auth endpoints, the chat
// admin surface, and the WebSocket chat route.
func NewServer(reg *core.Registry, router *core.Router, authService *auth.Service, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), LoggerMiddleware(logger))

	engine.GET("/health", healthHandler)

	apiHandlers := NewAPIHandlers(authService, logger)
	api := engine.Group("/api")
	api.POST("/register", apiHandlers.Register)
	api.POST("/login", apiHandlers.Login)

	chatHandlers := NewChatHandlers(reg, logger)
	wsHandler := NewWSHandler(reg, router, cfg.MaxMessageBytes, logger)

	chat := engine.Group("/chat", AuthMiddleware(authService, logger))
	chat.GET("", wsHandler.Handle)
	chat.POST("/user", chatHandlers.CreateUser)
	chat.GET("/user", chatHandlers.ListUsers)
	chat.DELETE("/user", chatHandlers.DeleteUser)
	chat.POST("/room", chatHandlers.CreateRoom)
	chat.GET("/room", chatHandlers.ListRooms)
	chat.DELETE("/room", chatHandlers.DeleteRoom)
	chat.GET("/user_rooms", chatHandlers.ListUserRooms)
	chat.GET("/room_users", chatHandlers.ListRoomUsers)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           engine,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}

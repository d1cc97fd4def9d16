package server

import (
	"log/slog"
	"net/http"
	"time"

	"ctchen222/tictactoe-minimax/internal/api/controller"
	"ctchen222/tictactoe-minimax/internal/api/service"
	"ctchen222/tictactoe-minimax/internal/auth"
	"ctchen222/tictactoe-minimax/internal/hub"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("server")

type Server struct {
	engine   *gin.Engine
	hub      *hub.Hub
	issuer   *auth.Issuer
	games    service.GameService
	upgrader websocket.Upgrader
}

// NewServer builds the gin engine and registers all routes.
func NewServer(h *hub.Hub, issuer *auth.Issuer, userController *controller.UserController, gameService service.GameService) *Server {
	s := &Server{
		engine: gin.New(),
		hub:    h,
		issuer: issuer,
		games:  gameService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	s.engine.Use(gin.Recovery(), requestLogger())
	s.registerHandlers(userController, controller.NewGameController(gameService))
	return s
}

// Engine returns the HTTP handler of the server.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerHandlers(uc *controller.UserController, gc *controller.GameController) {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	api := s.engine.Group("/api")
	users := api.Group("/users")
	users.POST("/register", uc.Register)
	users.POST("/login", uc.Login)
	users.POST("/guest", uc.GuestLogin)

	authed := api.Group("", Authenticate(s.issuer))
	authed.POST("/games", gc.Create)
	authed.GET("/games/:id", gc.Get)
	authed.POST("/games/:id/moves", gc.Move)
	authed.GET("/games/:id/hint", gc.Hint)
	authed.GET("/players/me/stats", gc.Stats)
	authed.GET("/players/me/games", gc.History)

	s.engine.GET("/ws/games/:id", Authenticate(s.issuer), s.handleGameSocket)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.InfoContext(c.Request.Context(), "HTTP request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/0xmhha/session-analytics/pkg/logger"
	"github.com/0xmhha/session-analytics/pkg/session"
)

// Server routes HTTP requests to a session.Manager.
type Server struct {
	engine *gin.Engine
	mgr    session.Manager
	auth   *Authenticator
	logger logger.Logger
	config Config
}

// New builds the gin engine with middleware and routes.
//
// Parameters:
//   - cfg: HTTP settings
//   - mgr: Session manager serving every route
//   - log: Logger instance
//
// Returns:
//   - Configured Server
//   - Error if a trusted proxy entry is invalid
func New(cfg Config, mgr session.Manager, log logger.Logger) (*Server, error) {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 15 * time.Second
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}

	s := &Server{
		engine: engine,
		mgr:    mgr,
		auth:   NewAuthenticator(cfg.Auth),
		logger: log,
		config: cfg,
	}

	engine.Use(RequestID(), AccessLog(log), Recovery(log), CORS(cfg.AllowedOrigins))
	s.routes()

	log.Info("http api configured",
		"allowed_origins", cfg.AllowedOrigins,
		"admin_auth", s.auth.Enabled())

	return s, nil
}

func (s *Server) routes() {
	s.engine.GET("/healthz", s.health)

	api := s.engine.Group("/api")
	{
		sessions := api.Group("/sessions")
		sessions.POST("", s.createSession)
		sessions.PATCH("/:id", s.updateSession)
		sessions.POST("/:id/events", s.addEvent)

		admin := api.Group("/admin")
		admin.Use(RequireAdmin(s.auth, s.logger))
		{
			admin.GET("/sessions", s.listSessions)
			admin.GET("/sessions/:id", s.getSession)
			admin.GET("/summary", s.summary)
			admin.GET("/export", s.export)
			admin.POST("/cleanup", s.cleanup)
			admin.POST("/reindex", s.reindex)
		}
	}
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Authenticator returns the authenticator guarding admin routes.
func (s *Server) Authenticator() *Authenticator {
	return s.auth
}

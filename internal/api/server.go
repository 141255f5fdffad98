package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/statrelay-project/statrelay/internal/config"
	"github.com/statrelay-project/statrelay/internal/dispatch"
	"github.com/statrelay-project/statrelay/internal/session"
)

// Server is the HTTP front of StatRelay. The stats endpoint translates
// gin requests into dispatcher Params and writes back whatever the
// dispatcher produced; all protocol semantics live behind that boundary.
type Server struct {
	cfg        *config.Config
	dispatcher *dispatch.Dispatcher
	sessions   *session.Registry
	startedAt  time.Time

	httpServer *http.Server
	router     *gin.Engine
}

// NewServer creates the API server.
func NewServer(cfg *config.Config, dispatcher *dispatch.Dispatcher, sessions *session.Registry) *Server {
	if cfg.GetApplicationData().Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	return &Server{
		cfg:        cfg,
		dispatcher: dispatcher,
		sessions:   sessions,
		startedAt:  time.Now(),
	}
}

// Router builds (once) and returns the gin engine. Exposed for tests.
func (s *Server) Router() *gin.Engine {
	if s.router == nil {
		s.router = s.buildRouter()
	}
	return s.router
}

// Start runs the HTTP server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.cfg.GetServer().ListenPort)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Info().Str("addr", addr).Msg("HTTP server starting")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

// buildRouter creates the gin router with all routes and middleware.
func (s *Server) buildRouter() *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(RequestLogger())
	router.Use(SecurityHeaders())

	security := s.cfg.GetApplicationData().Security

	allowedOrigins := security.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	router.Use(NewRateLimiter(security.RateLimitRPS).Middleware())
	router.Use(IPWhitelist(security.IPWhitelist))

	// ---- Legacy stats protocol endpoint ----
	// Clients hit /<game> or /<game>/<path...> with GET or POST. Every
	// method reaches the dispatcher: the protocol answers non-GET/POST
	// with its own 400, not a router-level 405.
	router.Any("/stats/:game", s.handleStats)
	router.Any("/stats/:game/*action", s.handleStats)

	// ---- Public status surface ----
	public := router.Group("/api/public")
	{
		public.GET("/ping", s.handlePing)
		public.GET("/status", s.handleStatus)
		public.GET("/games", s.handleGames)
	}

	return router
}

// handleStats feeds one request through the dispatcher.
func (s *Server) handleStats(c *gin.Context) {
	// ParseForm merges the query string with an urlencoded POST body,
	// which is exactly the legacy parameter surface.
	if err := c.Request.ParseForm(); err != nil {
		c.String(http.StatusBadRequest, "Bad request")
		return
	}

	params := dispatch.ParamsFromValues(c.Request.Method, c.Request.URL.Path, c.Request.Form)
	result := s.dispatcher.Dispatch(c.Request.Context(), c.Param("game"), params)

	if result.Fault != nil {
		c.Data(result.Status, "text/plain; charset=utf-8", result.Body)
		return
	}
	if len(result.Body) == 0 {
		c.Status(result.Status)
		return
	}
	c.Data(result.Status, "application/octet-stream", result.Body)
}

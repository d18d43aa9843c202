package mcp

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// HTTPConfig configures the HTTP transport.
type HTTPConfig struct {
	Addr         string
	EnableCORS   bool
	Debug        bool
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
}

// DefaultHTTPConfig returns the HTTP transport defaults.
func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		Addr:         "127.0.0.1:8765",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 15 * time.Minute,
	}
}

// NewHTTPHandler exposes s as POST /mcp plus GET /healthz and, when
// configured, GET /metrics.
func NewHTTPHandler(s *Server, cfg HTTPConfig) http.Handler {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())

	if cfg.EnableCORS {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
		corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Mcp-Session-Id"}
		engine.Use(cors.New(corsConfig))
	}

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if cfg.Metrics != nil {
		engine.GET("/metrics", gin.WrapH(cfg.Metrics))
	}
	engine.POST("/mcp", func(c *gin.Context) {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxMessageSize+1))
		if err != nil {
			c.JSON(http.StatusBadRequest, NewErrorResponse(nil, ParseError, "failed to read request body", err.Error()))
			return
		}
		if len(body) > maxMessageSize {
			c.JSON(http.StatusRequestEntityTooLarge, NewErrorResponse(nil, InvalidRequest, "request too large", nil))
			return
		}
		resp := s.HandleMessage(c.Request.Context(), body)
		if resp == nil {
			c.Status(http.StatusAccepted)
			return
		}
		c.JSON(http.StatusOK, resp)
	})
	return engine
}

// ServeHTTP runs the HTTP transport until ctx ends, then shuts down
// gracefully.
func (s *Server) ServeHTTP(ctx context.Context, cfg HTTPConfig) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      NewHTTPHandler(s, cfg),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("MCP HTTP transport listening on %s", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

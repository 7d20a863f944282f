// Package web hosts the embedded HTTP server: liveness, a status
// descriptor, and the payment confirmation webhook.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	coreconfig "regbot/core/config"
	"regbot/core/logger"
)

// New builds the gin engine with all routes attached. The verify handler is
// supplied by the payment package.
func New(cfg *coreconfig.Config, verify gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	g := gin.New()
	g.Use(gin.Recovery(), requestLogger())
	attachRoutes(g, cfg, verify)
	return g
}

func attachRoutes(g *gin.Engine, cfg *coreconfig.Config, verify gin.HandlerFunc) {
	g.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "✅ Bot is running 🚀")
	})

	g.GET("/config", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "running",
			"public_url":  cfg.HTTP.PublicURL,
			"webhook_url": cfg.CallbackURL(),
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
		})
	})

	g.POST("/verify", verify)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WEB.Info("request",
			slog.String("event", "http.request"),
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Int64("duration_ms", logger.Took(start).Milliseconds()),
		)
	}
}

// Run serves the engine until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, cfg *coreconfig.Config, engine *gin.Engine) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Listen, cfg.HTTP.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WEB.Info("listening",
			slog.String("event", "http.listen"),
			slog.String("addr", srv.Addr),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("web: shutdown: %w", err)
		}
		return <-errCh
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("web: serve: %w", err)
		}
		return nil
	}
}

// Package server wires the HTTP API: routing, middleware, and handlers.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/receiptvault/receiptvault/internal/config"
	"github.com/receiptvault/receiptvault/internal/repository"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Receipts   *ReceiptHandler
	Categories *CategoryHandler
	Reports    *ReportHandler
	Admin      *AdminHandler
}

// Server is the HTTP front of the application.
type Server struct {
	logger *slog.Logger
	cfg    config.ServerConfig
	http   *http.Server
}

// New builds the router and returns a server ready to run.
func New(cfg config.ServerConfig, cronSecret string, users repository.UserRepository, h Handlers, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogging(logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")

	authed := api.Group("")
	authed.Use(Identity(users, logger))
	{
		authed.POST("/receipts/upload", h.Receipts.Upload)
		authed.GET("/receipts", h.Receipts.List)
		authed.GET("/receipts/warranties", h.Receipts.Warranties)
		authed.GET("/receipts/:id", h.Receipts.Get)
		authed.PATCH("/receipts/:id", h.Receipts.Update)
		authed.DELETE("/receipts/:id", h.Receipts.Delete)
		authed.POST("/receipts/:id/process", h.Receipts.Process)

		authed.GET("/categories", h.Categories.List)
		authed.POST("/categories", h.Categories.Create)

		authed.GET("/reports", h.Reports.Get)
		authed.GET("/reports/export", h.Reports.Export)
		authed.GET("/insights", h.Reports.Insights)
	}

	cron := api.Group("")
	cron.Use(CronAuth(cronSecret, logger))
	{
		cron.POST("/forwards", h.Admin.IngestForward)
		cron.POST("/cron/process-receipts", h.Admin.ProcessPending)
	}

	return &Server{
		logger: logger,
		cfg:    cfg,
		http: &http.Server{
			Addr:              cfg.Addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Run serves until ctx is cancelled, then drains connections within the
// configured shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server.listening", "addr", s.cfg.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	s.logger.Info("server.shutting_down")
	return s.http.Shutdown(shutdownCtx)
}

// Package api exposes the scheduling service over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"

	"github.com/julianstephens/dayplan/internal/constants"
	"github.com/julianstephens/dayplan/internal/engine"
	apperrors "github.com/julianstephens/dayplan/internal/errors"
	"github.com/julianstephens/dayplan/internal/logger"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	svc     *engine.Service
	handler http.Handler
}

// New builds the router. origins lists the browser origins allowed by CORS.
func New(svc *engine.Service, origins []string) *Server {
	s := &Server{svc: svc}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger())

	router.GET("/health", s.health)

	api := router.Group("/api")
	{
		api.POST("/schedules/generate", s.generate)
		api.GET("/schedules/current", s.current)
		api.POST("/schedules/modify", s.modify)
		api.GET("/candidates", s.candidates)
		api.POST("/candidates/:id/apply", s.apply)
		api.POST("/tasks/:id/completion", s.complete)
		api.GET("/notifications", s.notifications)
		api.GET("/notifications/stream", s.stream)
		api.POST("/notifications/:id/actions/:action", s.action)
	}

	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	s.handler = c.Handler(router)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("HTTP server stopped")
	return nil
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": constants.Version,
		"sinks":   s.svc.Sinks(),
	})
}

// fail maps service errors onto status codes.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case apperrors.Is(err, apperrors.ErrNotFound),
		apperrors.Is(err, apperrors.ErrUnknownTask),
		apperrors.Is(err, apperrors.ErrUnknownNotification):
		status = http.StatusNotFound
	case apperrors.Is(err, apperrors.ErrNoCurrentSchedule),
		apperrors.Is(err, apperrors.ErrAlreadyCompleted):
		status = http.StatusConflict
	case apperrors.Is(err, apperrors.ErrReasonerUnavailable):
		status = http.StatusServiceUnavailable
	case apperrors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		logger.Error("Request failed", "path", c.Request.URL.Path, "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

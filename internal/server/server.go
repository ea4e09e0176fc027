// Package server exposes the document question answering service over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"docqa/internal/domain"
	"docqa/internal/service"
)

var (
	documentsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docqa_documents_ingested_total",
		Help: "Documents successfully ingested into sessions.",
	})
	questionsAnswered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docqa_questions_total",
		Help: "Questions asked, by outcome.",
	}, []string{"outcome"})
)

// Server hosts the REST API in front of a DocumentService.
type Server struct {
	svc *service.DocumentService
	log *zap.SugaredLogger
	e   *echo.Echo
}

func New(svc *service.DocumentService, log *zap.SugaredLogger) *Server {
	s := &Server{svc: svc, log: log}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.HTTPErrorHandler = s.errorHandler

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api")
	api.POST("/documents", s.handleIngest)
	api.POST("/documents/upload", s.handleUpload)
	api.GET("/sessions", s.handleListSessions)
	api.GET("/sessions/:id", s.handleGetSession)
	api.DELETE("/sessions/:id", s.handleDeleteSession)
	api.POST("/sessions/:id/ask", s.handleAsk)

	s.e = e
	return s
}

// Start blocks serving HTTP on addr until Shutdown or a listener error.
func (s *Server) Start(addr string) error {
	s.log.Infow("http server listening", "addr", addr)
	err := s.e.Start(addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

// Handler exposes the routing tree for tests.
func (s *Server) Handler() http.Handler { return s.e }

// errorHandler maps domain errors onto HTTP statuses and renders every error
// as a JSON body with a single "error" field.
func (s *Server) errorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	msg := err.Error()

	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		code = he.Code
		if he.Message != nil {
			msg = he.Error()
			if str, ok := he.Message.(string); ok {
				msg = str
			}
		}
	case errors.Is(err, domain.ErrInvalidInput):
		code = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, domain.ErrUpstream), errors.Is(err, domain.ErrSynthesisFailed):
		code = http.StatusBadGateway
	case errors.Is(err, domain.ErrCorruptState):
		code = http.StatusInternalServerError
	}

	req := c.Request()
	s.log.Warnw("request failed", "status", code, "method", req.Method, "path", req.URL.Path, "err", err)
	if !c.Response().Committed {
		_ = c.JSON(code, map[string]string{"error": msg})
	}
}

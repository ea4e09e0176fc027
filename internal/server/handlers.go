package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"docqa/internal/domain"
	"docqa/internal/extract"
)

type ingestRequest struct {
	Filename string         `json:"filename"`
	Blocks   []domain.Block `json:"blocks"`
}

type askRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k"`
}

// handleIngest creates a session from pre-extracted text blocks.
func (s *Server) handleIngest(c echo.Context) error {
	var req ingestRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	sess, err := s.svc.Ingest(c.Request().Context(), req.Filename, req.Blocks)
	if err != nil {
		return err
	}
	documentsIngested.Inc()
	return c.JSON(http.StatusCreated, sess)
}

// handleUpload creates a session from an uploaded file, extracting blocks
// according to the file extension.
func (s *Server) handleUpload(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return fmt.Errorf("%w: form field \"file\" required", domain.ErrInvalidInput)
	}
	ex, err := extract.ForFilename(fh.Filename)
	if err != nil {
		return err
	}
	f, err := fh.Open()
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	defer f.Close()

	blocks, err := ex.Extract(f)
	if err != nil {
		return err
	}
	sess, err := s.svc.Ingest(c.Request().Context(), fh.Filename, blocks)
	if err != nil {
		return err
	}
	documentsIngested.Inc()
	return c.JSON(http.StatusCreated, sess)
}

func (s *Server) handleAsk(c echo.Context) error {
	var req askRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if strings.TrimSpace(req.Question) == "" {
		return fmt.Errorf("%w: question required", domain.ErrInvalidInput)
	}
	result, err := s.svc.Ask(c.Request().Context(), c.Param("id"), req.Question, req.TopK)
	if err != nil {
		questionsAnswered.WithLabelValues("error").Inc()
		return err
	}
	questionsAnswered.WithLabelValues("ok").Inc()
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleListSessions(c echo.Context) error {
	sessions, err := s.svc.Sessions(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sessions)
}

func (s *Server) handleGetSession(c echo.Context) error {
	sess, err := s.svc.Session(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sess)
}

func (s *Server) handleDeleteSession(c echo.Context) error {
	if err := s.svc.Dispose(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

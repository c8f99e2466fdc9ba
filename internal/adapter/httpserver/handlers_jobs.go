package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/resumeinsider/internal/domain"
	apperrors "github.com/pscheid92/resumeinsider/internal/platform/errors"
	"github.com/pscheid92/resumeinsider/internal/reconciler"
)

const acceptedExtension = ".pdf"

func (s *Server) registerJobRoutes(csrfMiddleware echo.MiddlewareFunc) {
	s.echo.GET("/upload", s.handleUploadPage, s.requireAuth, csrfMiddleware)
	s.echo.POST("/upload", s.handleUpload, s.requireAuth, csrfMiddleware)
	s.echo.GET("/history", s.handleHistory, s.requireAuth)
}

func (s *Server) handleUploadPage(c echo.Context) error {
	return s.sendJSON(c, http.StatusOK, map[string]string{
		"username":   c.Get("username").(string),
		"accept":     acceptedExtension,
		"csrf_token": csrfToken(c),
	})
}

func (s *Server) handleUpload(c echo.Context) error {
	upload := &domain.Upload{}

	header, err := c.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		// An empty upload is reported as no_file_selected below.
	case err != nil:
		return apperrors.ValidationError("invalid multipart form")
	default:
		if !strings.EqualFold(filepath.Ext(header.Filename), acceptedExtension) {
			return apperrors.ValidationError("Only PDF files are accepted.").
				WithContext("file", header.Filename)
		}
		file, err := header.Open()
		if err != nil {
			return apperrors.InternalError("failed to read uploaded file", err)
		}
		defer file.Close()
		upload.Name = header.Filename
		upload.Content = file
	}

	job, err := s.app.Upload(c.Request().Context(), upload)
	if err != nil {
		return s.fail(c, err)
	}

	view, err := reconciler.Present(job)
	if err != nil {
		return toHTTPError(err)
	}
	return s.sendJSON(c, http.StatusCreated, map[string]any{
		"message": fmt.Sprintf("Upload successful! Document ID: %s", job.ID),
		"job":     view,
	})
}

func (s *Server) handleHistory(c echo.Context) error {
	refresh := c.QueryParam("refresh") == "1" || c.QueryParam("refresh") == "true"

	views, err := s.app.History(c.Request().Context(), refresh)
	if err != nil {
		return s.fail(c, err)
	}
	if views == nil {
		views = []reconciler.View{}
	}
	return s.sendJSON(c, http.StatusOK, map[string]any{"jobs": views})
}

package httpserver

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/resumeinsider/internal/domain"
	"github.com/pscheid92/resumeinsider/internal/platform/correlation"
	apperrors "github.com/pscheid92/resumeinsider/internal/platform/errors"
)

const correlationHeader = "X-Correlation-ID"

// correlationMiddleware keeps a caller-supplied correlation id, or assigns one,
// and echoes it back. Requests the gateway makes upstream reuse the same id.
func correlationMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Request().Header.Get(correlationHeader)
		if id == "" {
			id = correlation.NewID()
		}
		ctx := correlation.WithID(c.Request().Context(), id)
		c.SetRequest(c.Request().WithContext(ctx))
		c.Response().Header().Set(correlationHeader, id)
		return next(c)
	}
}

// requireAuth waits for the persisted session to be restored, then sends
// requests without a credential to the login page.
func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		select {
		case <-s.app.Ready():
		case <-c.Request().Context().Done():
			return c.Request().Context().Err()
		}

		cred, ok := s.app.Current()
		if !ok {
			return s.redirect(c, "/login")
		}

		c.Set("username", cred.Username)
		return next(c)
	}
}

func ErrorHandlingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			var httpErr *echo.HTTPError
			if errors.As(err, &httpErr) {
				return err
			}

			structuredErr := apperrors.AsStructuredError(err)
			logError(c, structuredErr)

			if err := c.JSON(structuredErr.HTTPStatus(), structuredErr.ToResponse()); err != nil {
				return fmt.Errorf("failed to write error response: %w", err)
			}
			return nil
		}
	}
}

func logError(c echo.Context, err *apperrors.Error) {
	attrs := []any{
		"error_type", err.Type,
		"message", err.Message,
		"path", c.Request().URL.Path,
		"method", c.Request().Method,
		"status", err.HTTPStatus(),
	}

	for k, v := range err.Context {
		attrs = append(attrs, k, v)
	}

	if username := c.Get("username"); username != nil {
		attrs = append(attrs, "username", username)
	}

	ctx := c.Request().Context()
	switch err.Type {
	case apperrors.TypeValidation, apperrors.TypeUnauthorized:
		slog.InfoContext(ctx, "Request rejected", attrs...)
	case apperrors.TypeRejected:
		slog.WarnContext(ctx, "Upstream rejected request", attrs...)
	case apperrors.TypeInternal:
		if err.Cause != nil {
			attrs = append(attrs, "cause", err.Cause)
		}
		slog.ErrorContext(ctx, "Internal error", attrs...)
	case apperrors.TypeExternal:
		if err.Cause != nil {
			attrs = append(attrs, "cause", err.Cause)
		}
		slog.ErrorContext(ctx, "External service error", attrs...)
	default:
		slog.ErrorContext(ctx, "Unknown error type", attrs...)
	}
}

// toHTTPError maps the client error taxonomy onto structured gateway errors.
func toHTTPError(err error) error {
	var (
		authErr     *domain.AuthError
		fetchErr    *domain.FetchError
		submitErr   *domain.SubmitError
		contractErr *domain.DataContractError
		regErr      *domain.RegistrationError
	)

	switch {
	case errors.As(err, &authErr):
		if authErr.Reason == domain.AuthInvalidCredentials {
			return apperrors.UnauthorizedError("Invalid username or password.", err)
		}
		return apperrors.ExternalError("Could not sign in, please try again later.", err).
			WithContext("reason", string(authErr.Reason))

	case errors.As(err, &regErr):
		if regErr.Err != nil {
			return apperrors.ExternalError("Could not register, please try again later.", err)
		}
		e := apperrors.ValidationError(regErr.Message())
		if len(regErr.Fields) > 0 {
			e = e.WithContext("fields", regErr.Fields)
		}
		return e

	case errors.As(err, &submitErr):
		switch submitErr.Reason {
		case domain.SubmitNoFileSelected:
			return apperrors.ValidationError("Please select a file first.")
		case domain.SubmitUnauthenticated:
			return apperrors.UnauthorizedError("Please log in first.", err)
		case domain.SubmitServerRejected:
			return apperrors.RejectedError(submitErr.Detail, err)
		default:
			return apperrors.ExternalError("Upload failed, please try again later.", err)
		}

	case errors.As(err, &contractErr):
		return apperrors.ExternalError("The server returned inconsistent data.", err).
			WithContext("job_id", contractErr.JobID)

	case errors.As(err, &fetchErr):
		if fetchErr.Reason == domain.FetchUnauthenticated {
			return apperrors.UnauthorizedError("Please log in first.", err)
		}
		return apperrors.ExternalError("Could not load history, please try again later.", err).
			WithContext("reason", string(fetchErr.Reason))

	case domain.IsUnauthenticated(err):
		return apperrors.UnauthorizedError("Please log in first.", err)
	}

	return err
}

// fail answers a privileged request whose credential went away with a
// redirect to the login page and maps every other error.
func (s *Server) fail(c echo.Context, err error) error {
	if domain.IsUnauthenticated(err) {
		return s.redirect(c, "/login")
	}
	return toHTTPError(err)
}

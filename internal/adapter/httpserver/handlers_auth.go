package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/resumeinsider/internal/domain"
	apperrors "github.com/pscheid92/resumeinsider/internal/platform/errors"
)

type loginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

type registerRequest struct {
	Email     string `json:"email" form:"email"`
	Username  string `json:"username" form:"username"`
	Password  string `json:"password" form:"password"`
	Password2 string `json:"password2" form:"password2"`
}

type sessionResponse struct {
	Authenticated bool   `json:"authenticated"`
	Username      string `json:"username,omitempty"`
	CSRFToken     string `json:"csrf_token"`
}

func (s *Server) registerAuthRoutes(csrfMiddleware, rateLimiter echo.MiddlewareFunc) {
	s.echo.GET("/login", s.handleLoginPage, csrfMiddleware)
	s.echo.POST("/login", s.handleLogin, rateLimiter, csrfMiddleware)
	s.echo.POST("/register", s.handleRegister, rateLimiter, csrfMiddleware)
	s.echo.POST("/logout", s.handleLogout, csrfMiddleware)
}

// handleLoginPage reports the session state and hands out the CSRF token the
// other forms need.
func (s *Server) handleLoginPage(c echo.Context) error {
	select {
	case <-s.app.Ready():
	case <-c.Request().Context().Done():
		return c.Request().Context().Err()
	}

	resp := sessionResponse{CSRFToken: csrfToken(c)}
	if cred, ok := s.app.Current(); ok {
		resp.Authenticated = true
		resp.Username = cred.Username
	}
	return s.sendJSON(c, http.StatusOK, resp)
}

func (s *Server) handleLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if req.Username == "" || req.Password == "" {
		return apperrors.ValidationError("Username and password are required.")
	}

	cred, err := s.app.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return toHTTPError(err)
	}

	return s.sendJSON(c, http.StatusOK, sessionResponse{
		Authenticated: true,
		Username:      cred.Username,
		CSRFToken:     csrfToken(c),
	})
}

func (s *Server) handleRegister(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	err := s.app.Register(c.Request().Context(), domain.Registration{
		Email:           req.Email,
		Username:        req.Username,
		Password:        req.Password,
		PasswordConfirm: req.Password2,
	})
	if err != nil {
		return toHTTPError(err)
	}

	return s.sendJSON(c, http.StatusCreated, map[string]string{
		"message": "Registration successful! Please log in.",
	})
}

func (s *Server) handleLogout(c echo.Context) error {
	s.app.Logout(c.Request().Context())
	return s.redirect(c, "/login")
}

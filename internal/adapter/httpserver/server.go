package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/pscheid92/resumeinsider/internal/adapter/metrics"
	"github.com/pscheid92/resumeinsider/internal/domain"
	"github.com/pscheid92/resumeinsider/internal/platform/config"
	"github.com/pscheid92/resumeinsider/internal/reconciler"
)

type appService interface {
	Login(ctx context.Context, username, password string) (domain.Credential, error)
	Logout(ctx context.Context)
	Register(ctx context.Context, reg domain.Registration) error
	Upload(ctx context.Context, upload *domain.Upload) (domain.Job, error)
	History(ctx context.Context, refresh bool) ([]reconciler.View, error)
	Current() (domain.Credential, bool)
	Ready() <-chan struct{}
}

// Server is the local gateway that lets a browser drive the session and the
// job collection of this process.
type Server struct {
	echo   *echo.Echo
	config *config.Config

	app          appService
	registry     *prometheus.Registry
	httpMetrics  *metrics.HTTPMetrics
	healthChecks []HealthCheck
	startTime    time.Time
}

func NewServer(cfg *config.Config, app appService, registry *prometheus.Registry) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:        e,
		config:      cfg,
		app:         app,
		registry:    registry,
		httpMetrics: metrics.NewHTTPMetrics(registry),
		healthChecks: []HealthCheck{
			{Name: "session", Check: sessionRestored(app)},
		},
		startTime: time.Now(),
	}

	srv.registerRoutes()

	return srv
}

// Start serves on the loopback interface until Shutdown is called.
func (s *Server) Start() error {
	addr := "127.0.0.1:" + s.config.GatewayPort
	slog.Info("Starting gateway", "addr", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

func (s *Server) redirect(c echo.Context, target string) error {
	if err := c.Redirect(http.StatusFound, target); err != nil {
		return fmt.Errorf("failed to redirect: %w", err)
	}
	return nil
}

func (s *Server) sendJSON(c echo.Context, status int, body any) error {
	if err := c.JSON(status, body); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

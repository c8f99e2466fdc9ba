package httpserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/pscheid92/resumeinsider/internal/domain"
	"github.com/pscheid92/resumeinsider/internal/platform/config"
	"github.com/pscheid92/resumeinsider/internal/reconciler"
	"github.com/stretchr/testify/require"
)

type mockAppService struct {
	loginFn    func(ctx context.Context, username, password string) (domain.Credential, error)
	registerFn func(ctx context.Context, reg domain.Registration) error
	uploadFn   func(ctx context.Context, upload *domain.Upload) (domain.Job, error)
	historyFn  func(ctx context.Context, refresh bool) ([]reconciler.View, error)

	cred      *domain.Credential
	ready     chan struct{}
	loggedOut bool
}

func newMockApp(cred *domain.Credential) *mockAppService {
	ready := make(chan struct{})
	close(ready)
	return &mockAppService{cred: cred, ready: ready}
}

func (m *mockAppService) Login(ctx context.Context, username, password string) (domain.Credential, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, username, password)
	}
	return domain.Credential{Token: "tok", Username: username}, nil
}

func (m *mockAppService) Logout(context.Context) {
	m.loggedOut = true
	m.cred = nil
}

func (m *mockAppService) Register(ctx context.Context, reg domain.Registration) error {
	if m.registerFn != nil {
		return m.registerFn(ctx, reg)
	}
	return nil
}

func (m *mockAppService) Upload(ctx context.Context, upload *domain.Upload) (domain.Job, error) {
	if m.uploadFn != nil {
		return m.uploadFn(ctx, upload)
	}
	return domain.Job{ID: "1", FileName: upload.Name, Status: domain.JobPending}, nil
}

func (m *mockAppService) History(ctx context.Context, refresh bool) ([]reconciler.View, error) {
	if m.historyFn != nil {
		return m.historyFn(ctx, refresh)
	}
	return nil, nil
}

func (m *mockAppService) Current() (domain.Credential, bool) {
	if m.cred == nil {
		return domain.Credential{}, false
	}
	return *m.cred, true
}

func (m *mockAppService) Ready() <-chan struct{} {
	return m.ready
}

func signedIn() *domain.Credential {
	return &domain.Credential{Token: "tok", Username: "alice"}
}

func newTestServer(t *testing.T, app appService) *Server {
	t.Helper()
	cfg := &config.Config{AppEnv: "test", GatewayPort: "0"}
	return NewServer(cfg, app, prometheus.NewRegistry())
}

// csrfSession performs a GET on path and returns the CSRF cookie and token.
func csrfSession(t *testing.T, srv *Server, path string) (*http.Cookie, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == csrfCookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie, "CSRF cookie should be set")

	var body struct {
		CSRFToken string `json:"csrf_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.CSRFToken)
	return cookie, body.CSRFToken
}

// post sends body to path with a valid CSRF token.
func post(t *testing.T, srv *Server, path, contentType string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	cookie, token := csrfSession(t, srv, "/login")

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-CSRF-Token", token)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	return rec
}

func postJSON(t *testing.T, srv *Server, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	return post(t, srv, path, "application/json", strings.NewReader(body))
}

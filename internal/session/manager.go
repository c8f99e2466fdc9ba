package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/pscheid92/resumeinsider/internal/domain"
	"github.com/pscheid92/resumeinsider/internal/platform/logging"
)

// State is the lifecycle phase of a Manager.
type State int

const (
	// Loading means RestoreSession has not completed yet.
	Loading State = iota
	Anonymous
	Authenticated
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Anonymous:
		return "anonymous"
	case Authenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Metrics receives session lifecycle events.
type Metrics interface {
	AuthAttempt(outcome string)
	SessionInvalidated()
}

type noopMetrics struct{}

func (noopMetrics) AuthAttempt(string)  {}
func (noopMetrics) SessionInvalidated() {}

// Option configures a Manager.
type Option func(*Manager)

// WithMetrics records auth attempts and invalidations.
func WithMetrics(m Metrics) Option {
	return func(mgr *Manager) {
		mgr.metrics = m
	}
}

// Manager holds the single current credential.
type Manager struct {
	auth    domain.AuthService
	store   domain.TokenStore
	metrics Metrics

	// authMu serializes Authenticate so two logins never race on the store.
	authMu sync.Mutex

	mu        sync.RWMutex
	cred      *domain.Credential
	loaded    bool
	ready     chan struct{}
	readyOnce sync.Once
	cleared   map[int]func()
	nextSub   int
}

// NewManager creates a Manager in the Loading state. Call RestoreSession once at start-up.
func NewManager(auth domain.AuthService, store domain.TokenStore, opts ...Option) *Manager {
	m := &Manager{
		auth:    auth,
		store:   store,
		metrics: noopMetrics{},
		ready:   make(chan struct{}),
		cleared: make(map[int]func()),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Authenticate exchanges username and password for a credential and persists it.
// On failure the current credential, if any, is left as it was.
func (m *Manager) Authenticate(ctx context.Context, username, password string) (domain.Credential, error) {
	m.authMu.Lock()
	defer m.authMu.Unlock()

	token, err := m.auth.ObtainToken(ctx, username, password)
	if err != nil {
		var authErr *domain.AuthError
		if !errors.As(err, &authErr) {
			authErr = &domain.AuthError{Reason: domain.AuthNetwork, Err: err}
		}
		m.metrics.AuthAttempt(string(authErr.Reason))
		slog.InfoContext(ctx, "Authentication failed", "username", username, "reason", authErr.Reason)
		return domain.Credential{}, authErr
	}
	if token == "" {
		m.metrics.AuthAttempt(string(domain.AuthMalformedResponse))
		return domain.Credential{}, &domain.AuthError{Reason: domain.AuthMalformedResponse, Err: errors.New("empty access token")}
	}

	if err := m.store.Save(ctx, token); err != nil {
		m.metrics.AuthAttempt("storage_error")
		return domain.Credential{}, fmt.Errorf("persist credential: %w", err)
	}

	cred := newCredential(token, username)
	m.mu.Lock()
	m.cred = &cred
	m.loaded = true
	m.mu.Unlock()
	m.markReady()

	m.metrics.AuthAttempt("success")
	logging.WithUser(cred.Username).InfoContext(ctx, "Session established")
	return cred, nil
}

// Register creates an account. It does not sign the user in.
func (m *Manager) Register(ctx context.Context, reg domain.Registration) error {
	if reg.Password != reg.PasswordConfirm {
		return &domain.RegistrationError{Fields: map[string][]string{
			domain.FieldPasswordConfirm: {"Passwords do not match."},
		}}
	}

	if err := m.auth.CreateAccount(ctx, reg); err != nil {
		var regErr *domain.RegistrationError
		if !errors.As(err, &regErr) {
			regErr = &domain.RegistrationError{Err: err}
		}
		return regErr
	}

	slog.InfoContext(ctx, "Account registered", "username", reg.Username)
	return nil
}

// RestoreSession loads a persisted token and makes it current without asking the
// server whether it is still valid; the first privileged request decides that.
// It returns (nil, nil) when nothing was stored. The session leaves Loading
// when this returns, whatever the outcome.
func (m *Manager) RestoreSession(ctx context.Context) (*domain.Credential, error) {
	defer m.markReady()

	token, err := m.store.Load(ctx)
	if err != nil {
		m.setLoaded()
		slog.WarnContext(ctx, "Failed to read stored credential", "error", err)
		return nil, fmt.Errorf("restore session: %w", err)
	}
	if token == "" {
		m.setLoaded()
		return nil, nil
	}

	cred := newCredential(token, "")
	m.mu.Lock()
	// An Authenticate that finished first wins over the stored token.
	if m.cred == nil {
		m.cred = &cred
	} else {
		cred = *m.cred
	}
	m.loaded = true
	m.mu.Unlock()

	logging.WithUser(cred.Username).InfoContext(ctx, "Session restored")
	return &cred, nil
}

// ClearSession removes the credential from memory and storage. It is idempotent
// and never fails; a storage error is logged and the in-memory state is still cleared.
func (m *Manager) ClearSession(ctx context.Context) {
	m.mu.Lock()
	hadCred := m.cred != nil
	m.cred = nil
	m.loaded = true
	m.mu.Unlock()
	m.markReady()

	if err := m.store.Delete(ctx); err != nil {
		slog.WarnContext(ctx, "Failed to delete stored credential", "error", err)
	}
	if hadCred {
		slog.InfoContext(ctx, "Session cleared")
		m.notifyCleared()
	}
}

// SubscribeCleared registers fn to run whenever a credential is removed, by
// logout or because the server rejected it. The returned func unsubscribes.
func (m *Manager) SubscribeCleared(fn func()) func() {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.cleared[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.cleared, id)
		m.mu.Unlock()
	}
}

func (m *Manager) notifyCleared() {
	m.mu.RLock()
	handlers := make([]func(), 0, len(m.cleared))
	for _, fn := range m.cleared {
		handlers = append(handlers, fn)
	}
	m.mu.RUnlock()

	for _, fn := range handlers {
		fn()
	}
}

// invalidate clears the session after the server rejected token. A token that is
// no longer current (the user logged in again meanwhile) is ignored.
func (m *Manager) invalidate(ctx context.Context, token string) {
	m.mu.Lock()
	if m.cred == nil || m.cred.Token != token {
		m.mu.Unlock()
		return
	}
	username := m.cred.Username
	m.cred = nil
	m.mu.Unlock()

	m.metrics.SessionInvalidated()
	if err := m.store.Delete(ctx); err != nil {
		slog.WarnContext(ctx, "Failed to delete rejected credential", "error", err)
	}
	logging.WithUser(username).WarnContext(ctx, "Server rejected credential, session cleared")
	m.notifyCleared()
}

// Current returns the current credential. It never blocks on I/O.
func (m *Manager) Current() (domain.Credential, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cred == nil {
		return domain.Credential{}, false
	}
	return *m.cred, true
}

// State reports the lifecycle phase.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	switch {
	case !m.loaded:
		return Loading
	case m.cred == nil:
		return Anonymous
	default:
		return Authenticated
	}
}

// Ready is closed once the session has left Loading.
func (m *Manager) Ready() <-chan struct{} {
	return m.ready
}

// Attach returns a copy of req carrying the bearer header. Without a credential
// req is returned unmodified.
func (m *Manager) Attach(req *http.Request) *http.Request {
	cred, ok := m.Current()
	if !ok {
		return req
	}
	return withBearer(req, cred.Token)
}

func withBearer(req *http.Request, token string) *http.Request {
	out := req.Clone(req.Context())
	out.Header.Set("Authorization", "Bearer "+token)
	return out
}

func (m *Manager) setLoaded() {
	m.mu.Lock()
	m.loaded = true
	m.mu.Unlock()
}

func (m *Manager) markReady() {
	m.readyOnce.Do(func() { close(m.ready) })
}

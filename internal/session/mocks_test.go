package session

import (
	"context"
	"sync"

	"github.com/pscheid92/resumeinsider/internal/domain"
)

type mockAuthService struct {
	obtainTokenFn   func(ctx context.Context, username, password string) (string, error)
	createAccountFn func(ctx context.Context, reg domain.Registration) error
}

func (m *mockAuthService) ObtainToken(ctx context.Context, username, password string) (string, error) {
	if m.obtainTokenFn != nil {
		return m.obtainTokenFn(ctx, username, password)
	}
	return "token", nil
}

func (m *mockAuthService) CreateAccount(ctx context.Context, reg domain.Registration) error {
	if m.createAccountFn != nil {
		return m.createAccountFn(ctx, reg)
	}
	return nil
}

type mockTokenStore struct {
	mu      sync.Mutex
	token   string
	loads   int
	deletes int

	loadErr   error
	saveErr   error
	deleteErr error
}

func (m *mockTokenStore) Load(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	if m.loadErr != nil {
		return "", m.loadErr
	}
	return m.token, nil
}

func (m *mockTokenStore) Save(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.token = token
	return nil
}

func (m *mockTokenStore) Delete(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes++
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.token = ""
	return nil
}

func (m *mockTokenStore) stored() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

type recordingMetrics struct {
	mu            sync.Mutex
	attempts      []string
	invalidations int
}

func (r *recordingMetrics) AuthAttempt(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, outcome)
}

func (r *recordingMetrics) SessionInvalidated() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalidations++
}

package session

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pscheid92/resumeinsider/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func credentialsAuth(validPassword, token string) *mockAuthService {
	return &mockAuthService{
		obtainTokenFn: func(_ context.Context, _, password string) (string, error) {
			if password != validPassword {
				return "", &domain.AuthError{Reason: domain.AuthInvalidCredentials}
			}
			return token, nil
		},
	}
}

func TestAuthenticate_WrongThenCorrectPassword(t *testing.T) {
	store := &mockTokenStore{}
	metrics := &recordingMetrics{}
	m := NewManager(credentialsAuth("correct", "tok-1"), store, WithMetrics(metrics))

	_, err := m.Authenticate(context.Background(), "alice", "wrong")
	var authErr *domain.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, domain.AuthInvalidCredentials, authErr.Reason)
	assert.Empty(t, store.stored())
	_, ok := m.Current()
	assert.False(t, ok)

	cred, err := m.Authenticate(context.Background(), "alice", "correct")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", cred.Token)
	assert.Equal(t, "alice", cred.Username)
	assert.Equal(t, "tok-1", store.stored())

	current, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, cred, current)
	assert.Equal(t, Authenticated, m.State())
	assert.Equal(t, []string{"invalid_credentials", "success"}, metrics.attempts)
}

func TestAuthenticate_FailureKeepsPriorCredential(t *testing.T) {
	store := &mockTokenStore{}
	m := NewManager(credentialsAuth("correct", "tok-1"), store)

	_, err := m.Authenticate(context.Background(), "alice", "correct")
	require.NoError(t, err)

	_, err = m.Authenticate(context.Background(), "bob", "wrong")
	require.Error(t, err)

	cred, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, "alice", cred.Username)
	assert.Equal(t, "tok-1", store.stored())
}

func TestAuthenticate_UntypedErrorBecomesNetwork(t *testing.T) {
	auth := &mockAuthService{obtainTokenFn: func(context.Context, string, string) (string, error) {
		return "", errors.New("dial tcp: connection refused")
	}}
	m := NewManager(auth, &mockTokenStore{})

	_, err := m.Authenticate(context.Background(), "alice", "pw")

	var authErr *domain.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, domain.AuthNetwork, authErr.Reason)
}

func TestAuthenticate_EmptyTokenIsMalformed(t *testing.T) {
	m := NewManager(credentialsAuth("pw", ""), &mockTokenStore{})

	_, err := m.Authenticate(context.Background(), "alice", "pw")

	var authErr *domain.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, domain.AuthMalformedResponse, authErr.Reason)
}

func TestAuthenticate_StorageFailureLeavesSessionUnchanged(t *testing.T) {
	store := &mockTokenStore{saveErr: errors.New("read-only file system")}
	m := NewManager(credentialsAuth("pw", "tok"), store)

	_, err := m.Authenticate(context.Background(), "alice", "pw")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "persist credential")
	_, ok := m.Current()
	assert.False(t, ok)
}

func TestRestoreSession_NoStoredToken(t *testing.T) {
	m := NewManager(&mockAuthService{}, &mockTokenStore{})
	assert.Equal(t, Loading, m.State())

	cred, err := m.RestoreSession(context.Background())

	require.NoError(t, err)
	assert.Nil(t, cred)
	assert.Equal(t, Anonymous, m.State())
	_, ok := m.Current()
	assert.False(t, ok)
}

func TestRestoreSession_TrustsStoredTokenWithoutNetwork(t *testing.T) {
	auth := &mockAuthService{obtainTokenFn: func(context.Context, string, string) (string, error) {
		t.Fatal("restore must not contact the authentication service")
		return "", nil
	}}
	token := signedToken(t, jwt.MapClaims{"username": "alice"})
	m := NewManager(auth, &mockTokenStore{token: token})

	cred, err := m.RestoreSession(context.Background())

	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.Equal(t, token, cred.Token)
	assert.Equal(t, "alice", cred.Username)

	current, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, *cred, current)
	assert.Equal(t, Authenticated, m.State())
}

func TestRestoreSession_OpaqueTokenGetsGenericName(t *testing.T) {
	m := NewManager(&mockAuthService{}, &mockTokenStore{token: "not-a-jwt"})

	cred, err := m.RestoreSession(context.Background())

	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.Equal(t, "User", cred.Username)
}

func TestRestoreSession_StorageError(t *testing.T) {
	m := NewManager(&mockAuthService{}, &mockTokenStore{loadErr: errors.New("permission denied")})

	cred, err := m.RestoreSession(context.Background())

	require.Error(t, err)
	assert.Nil(t, cred)
	assert.Equal(t, Anonymous, m.State())
	select {
	case <-m.Ready():
	default:
		t.Fatal("Ready should be closed after restore")
	}
}

func TestClearSession_Idempotent(t *testing.T) {
	store := &mockTokenStore{}
	m := NewManager(credentialsAuth("pw", "tok"), store)
	_, err := m.Authenticate(context.Background(), "alice", "pw")
	require.NoError(t, err)

	m.ClearSession(context.Background())
	_, ok := m.Current()
	assert.False(t, ok)
	assert.Empty(t, store.stored())

	m.ClearSession(context.Background())
	_, ok = m.Current()
	assert.False(t, ok)
	assert.Equal(t, Anonymous, m.State())
}

func TestClearSession_NotifiesOnce(t *testing.T) {
	m := NewManager(credentialsAuth("pw", "tok"), &mockTokenStore{})
	_, err := m.Authenticate(context.Background(), "alice", "pw")
	require.NoError(t, err)

	calls := 0
	unsubscribe := m.SubscribeCleared(func() { calls++ })

	m.ClearSession(context.Background())
	m.ClearSession(context.Background())
	assert.Equal(t, 1, calls)

	unsubscribe()
	_, err = m.Authenticate(context.Background(), "alice", "pw")
	require.NoError(t, err)
	m.ClearSession(context.Background())
	assert.Equal(t, 1, calls)
}

func TestClearSession_StorageErrorStillClearsMemory(t *testing.T) {
	store := &mockTokenStore{}
	m := NewManager(credentialsAuth("pw", "tok"), store)
	_, err := m.Authenticate(context.Background(), "alice", "pw")
	require.NoError(t, err)
	store.deleteErr = errors.New("disk gone")

	m.ClearSession(context.Background())

	_, ok := m.Current()
	assert.False(t, ok)
}

func TestInvalidate_IgnoresStaleToken(t *testing.T) {
	metrics := &recordingMetrics{}
	m := NewManager(credentialsAuth("pw", "fresh"), &mockTokenStore{}, WithMetrics(metrics))
	_, err := m.Authenticate(context.Background(), "alice", "pw")
	require.NoError(t, err)

	m.invalidate(context.Background(), "stale")

	cred, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, "fresh", cred.Token)
	assert.Zero(t, metrics.invalidations)
}

func TestAttach(t *testing.T) {
	m := NewManager(credentialsAuth("pw", "tok"), &mockTokenStore{})
	req, err := http.NewRequest(http.MethodGet, "http://api.test/api/history/", nil)
	require.NoError(t, err)

	assert.Same(t, req, m.Attach(req), "no credential leaves the request unmodified")

	_, err = m.Authenticate(context.Background(), "alice", "pw")
	require.NoError(t, err)

	attached := m.Attach(req)
	assert.Equal(t, "Bearer tok", attached.Header.Get("Authorization"))
	assert.Empty(t, req.Header.Get("Authorization"), "original request is not mutated")
}

func TestRegister_PasswordMismatchIsLocal(t *testing.T) {
	auth := &mockAuthService{createAccountFn: func(context.Context, domain.Registration) error {
		t.Fatal("mismatched passwords must not reach the server")
		return nil
	}}
	m := NewManager(auth, &mockTokenStore{})

	err := m.Register(context.Background(), domain.Registration{
		Email: "a@example.com", Username: "alice", Password: "one", PasswordConfirm: "two",
	})

	var regErr *domain.RegistrationError
	require.ErrorAs(t, err, &regErr)
	assert.Equal(t, "Passwords do not match.", regErr.Message())
}

func TestRegister_FieldErrorsPassThrough(t *testing.T) {
	auth := &mockAuthService{createAccountFn: func(context.Context, domain.Registration) error {
		return &domain.RegistrationError{Fields: map[string][]string{domain.FieldUsername: {"taken"}}}
	}}
	m := NewManager(auth, &mockTokenStore{})

	err := m.Register(context.Background(), domain.Registration{Username: "alice", Password: "pw", PasswordConfirm: "pw"})

	var regErr *domain.RegistrationError
	require.ErrorAs(t, err, &regErr)
	assert.Equal(t, "Username: taken", regErr.Message())
	_, ok := m.Current()
	assert.False(t, ok, "registration does not sign in")
}

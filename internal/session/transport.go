package session

import (
	"io"
	"net/http"

	"github.com/pscheid92/resumeinsider/internal/domain"
)

// drainLimit bounds how much of a rejected response body is read before closing.
const drainLimit = 4 << 10

type transport struct {
	base    http.RoundTripper
	session *Manager
}

// Transport wraps base so every request carries the current credential.
// Without a credential the request is not sent and domain.ErrUnauthenticated is
// returned. A 401 or 403 response clears the session and is reported as
// domain.ErrUnauthenticated instead of being returned to the caller.
func (m *Manager) Transport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &transport{base: base, session: m}
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	cred, ok := t.session.Current()
	if !ok {
		if req.Body != nil {
			_ = req.Body.Close()
		}
		return nil, domain.ErrUnauthenticated
	}

	resp, err := t.base.RoundTrip(withBearer(req, cred.Token))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		_, _ = io.CopyN(io.Discard, resp.Body, drainLimit)
		_ = resp.Body.Close()
		t.session.invalidate(req.Context(), cred.Token)
		return nil, domain.ErrUnauthenticated
	}
	return resp, nil
}

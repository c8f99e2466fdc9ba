package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/pscheid92/resumeinsider/internal/domain"
)

const (
	maxBodyBytes    = 1 << 20
	maxHistoryBytes = 16 << 20
)

var _ domain.AuthService = (*Client)(nil)

// ObtainToken exchanges credentials for an access token. The refresh token in
// the response is ignored.
func (c *Client) ObtainToken(ctx context.Context, username, password string) (string, error) {
	req, err := newJSONRequest(ctx, http.MethodPost, c.endpoint(pathObtainToken), credentialsPayload{Username: username, Password: password})
	if err != nil {
		return "", &domain.AuthError{Reason: domain.AuthNetwork, Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &domain.AuthError{Reason: domain.AuthNetwork, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", &domain.AuthError{Reason: domain.AuthNetwork, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized:
		return "", &domain.AuthError{Reason: domain.AuthInvalidCredentials, Err: fmt.Errorf("status %d", resp.StatusCode)}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return "", &domain.AuthError{Reason: domain.AuthNetwork, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	var pair tokenPair
	if err := json.Unmarshal(body, &pair); err != nil {
		return "", &domain.AuthError{Reason: domain.AuthMalformedResponse, Err: err}
	}
	if pair.Access == "" {
		return "", &domain.AuthError{Reason: domain.AuthMalformedResponse, Err: errors.New("response has no access token")}
	}
	return pair.Access, nil
}

// CreateAccount registers a user. A 400 response is decoded into per-field messages.
func (c *Client) CreateAccount(ctx context.Context, reg domain.Registration) error {
	payload := accountPayload{Email: reg.Email, Username: reg.Username, Password: reg.Password}
	req, err := newJSONRequest(ctx, http.MethodPost, c.endpoint(pathUsers), payload)
	if err != nil {
		return &domain.RegistrationError{Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &domain.RegistrationError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &domain.RegistrationError{Err: err}
	}
	if resp.StatusCode != http.StatusBadRequest {
		return &domain.RegistrationError{Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	fields, err := fieldErrors(body)
	if err != nil {
		return &domain.RegistrationError{Err: fmt.Errorf("decode validation errors: %w", err)}
	}
	return &domain.RegistrationError{Fields: fields}
}

package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnauthenticated means there is no usable credential: either none was ever
// acquired or the server rejected it with 401/403 and the session was cleared.
var ErrUnauthenticated = errors.New("unauthenticated")

// IsUnauthenticated reports whether err should send the user back to login.
func IsUnauthenticated(err error) bool {
	return errors.Is(err, ErrUnauthenticated)
}

// --- Authentication ---

type AuthReason string

const (
	AuthInvalidCredentials AuthReason = "invalid_credentials"
	AuthNetwork            AuthReason = "network"
	AuthMalformedResponse  AuthReason = "malformed_response"
)

type AuthError struct {
	Reason AuthReason
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("authentication failed (%s)", e.Reason)
}

func (e *AuthError) Unwrap() error { return e.Err }

// --- History fetch ---

type FetchReason string

const (
	FetchUnauthenticated   FetchReason = "unauthenticated"
	FetchNetwork           FetchReason = "network"
	FetchMalformedResponse FetchReason = "malformed_response"
)

type FetchError struct {
	Reason FetchReason
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch failed (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("fetch failed (%s)", e.Reason)
}

func (e *FetchError) Unwrap() error { return e.Err }

// --- Upload ---

type SubmitReason string

const (
	SubmitUnauthenticated SubmitReason = "unauthenticated"
	SubmitNoFileSelected  SubmitReason = "no_file_selected"
	SubmitNetwork         SubmitReason = "network"
	SubmitServerRejected  SubmitReason = "server_rejected"
)

type SubmitError struct {
	Reason SubmitReason
	// Detail is the server-provided message for server_rejected.
	Detail string
	Err    error
}

func (e *SubmitError) Error() string {
	msg := fmt.Sprintf("upload failed (%s)", e.Reason)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SubmitError) Unwrap() error { return e.Err }

// --- Data contract ---

type DataContractReason string

const TerminalStatusMissingPayload DataContractReason = "terminal_status_missing_payload"

// DataContractError means the server sent a job whose terminal status lacks the
// payload that status requires. It is never swallowed.
type DataContractError struct {
	Reason DataContractReason
	JobID  string
	Status JobStatus
}

func (e *DataContractError) Error() string {
	return fmt.Sprintf("data contract violation (%s): job %s has status %s", e.Reason, e.JobID, e.Status)
}

// --- Registration ---

const (
	FieldEmail           = "email"
	FieldUsername        = "username"
	FieldPassword        = "password"
	FieldPasswordConfirm = "password2"
)

// RegistrationError carries per-field validation messages from account creation,
// or a transport failure in Err.
type RegistrationError struct {
	Fields map[string][]string
	Err    error
}

func (e *RegistrationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("registration failed: %v", e.Err)
	}
	return "registration failed: " + e.Message()
}

func (e *RegistrationError) Unwrap() error { return e.Err }

// Message returns the headline shown to the user: a confirmation mismatch
// first, then the first field with messages in email, username, password order.
func (e *RegistrationError) Message() string {
	headlines := []struct {
		field string
		label string
	}{
		{FieldPasswordConfirm, "Passwords do not match"},
		{FieldEmail, "Email"},
		{FieldUsername, "Username"},
		{FieldPassword, "Password"},
	}
	for _, h := range headlines {
		msgs := e.Fields[h.field]
		if len(msgs) == 0 {
			continue
		}
		if h.field == FieldPasswordConfirm {
			return h.label + "."
		}
		return h.label + ": " + strings.Join(msgs, ", ")
	}
	return "Registration failed. Please try again."
}

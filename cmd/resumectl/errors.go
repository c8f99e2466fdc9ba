package main

import (
	"errors"

	"github.com/pscheid92/resumeinsider/internal/domain"
)

// describe turns a command error into the message shown to the user.
func describe(err error) string {
	var (
		authErr     *domain.AuthError
		regErr      *domain.RegistrationError
		submitErr   *domain.SubmitError
		fetchErr    *domain.FetchError
		contractErr *domain.DataContractError
	)

	switch {
	case errors.As(err, &authErr):
		switch authErr.Reason {
		case domain.AuthInvalidCredentials:
			return "Invalid username or password."
		case domain.AuthMalformedResponse:
			return "The server sent an unexpected response while signing in."
		default:
			return "Could not reach the server: " + err.Error()
		}
	case errors.As(err, &regErr):
		if regErr.Err != nil {
			return "Could not reach the server: " + err.Error()
		}
		return regErr.Message()
	case errors.As(err, &submitErr):
		switch submitErr.Reason {
		case domain.SubmitNoFileSelected:
			return "Please select a file first."
		case domain.SubmitUnauthenticated:
			return "Please log in first."
		case domain.SubmitServerRejected:
			return "Upload rejected: " + submitErr.Detail
		default:
			return "Upload failed: " + err.Error()
		}
	case errors.As(err, &contractErr):
		return "The server returned inconsistent data for document " + contractErr.JobID + "."
	case errors.As(err, &fetchErr):
		if fetchErr.Reason == domain.FetchUnauthenticated {
			return "Please log in first."
		}
		return "Could not load history: " + err.Error()
	case domain.IsUnauthenticated(err), errors.Is(err, errNotSignedIn):
		return "Please log in first."
	}
	return err.Error()
}

func exitCode(err error) int {
	if errors.Is(err, errUsage) {
		return 2
	}
	return 1
}

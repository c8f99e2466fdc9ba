package domain

import "context"

// TokenStore persists the bearer token across restarts. Load returns ("", nil)
// when nothing is stored.
type TokenStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Delete(ctx context.Context) error
}

// AuthService is the remote authentication collaborator.
type AuthService interface {
	// ObtainToken exchanges a username and password for a bearer token.
	// Failures are reported as *AuthError.
	ObtainToken(ctx context.Context, username, password string) (string, error)
	// CreateAccount registers a new user. Failures are reported as *RegistrationError.
	CreateAccount(ctx context.Context, reg Registration) error
}

// JobAPI is the authorized document API: upload and history.
type JobAPI interface {
	// ListJobs returns the full job collection. Failures are reported as *FetchError.
	ListJobs(ctx context.Context) ([]Job, error)
	// UploadDocument submits a document and returns the created job.
	// Failures are reported as *SubmitError.
	UploadDocument(ctx context.Context, upload *Upload) (Job, error)
}

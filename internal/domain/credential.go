package domain

// Credential is the bearer token plus the display identity of an authenticated session.
// The username is display-only and never verified client-side.
type Credential struct {
	Token    string
	Username string
}

// IsZero reports whether the credential carries no token.
func (c Credential) IsZero() bool {
	return c.Token == ""
}

// Registration bundles the fields of an account creation request.
// PasswordConfirm is checked locally and never sent to the server.
type Registration struct {
	Email           string
	Username        string
	Password        string
	PasswordConfirm string
}

package session

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/pscheid92/resumeinsider/internal/domain"
)

const fallbackUsername = "User"

var usernameClaims = []string{"username", "preferred_username", "name"}

// displayName reads a display username out of an access token without
// verifying it. The token is opaque to the client; an unparsable token or one
// without a username claim yields a generic name.
func displayName(token string) string {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return fallbackUsername
	}
	for _, key := range usernameClaims {
		if name, ok := claims[key].(string); ok && name != "" {
			return name
		}
	}
	return fallbackUsername
}

func newCredential(token, username string) domain.Credential {
	if username == "" {
		username = displayName(token)
	}
	return domain.Credential{Token: token, Username: username}
}

package driven

import "context"

// TokenProvider provides access tokens for authenticated API calls.
// Implementations handle token refresh transparently.
type TokenProvider interface {
	// GetToken returns a valid access token.
	GetToken(ctx context.Context) (string, error)

	// IsAuthenticated returns true if valid authentication is available.
	IsAuthenticated() bool
}

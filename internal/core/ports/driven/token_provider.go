package driven

import (
	"context"

	"golang.org/x/oauth2"
)

// TokenProvider provides OAuth tokens for the Drive store.
// Implementations handle token refresh and persistence transparently.
type TokenProvider interface {
	// Token returns a valid token, refreshing it if it has expired.
	// Returns domain.ErrAuthRequired when no token has been stored yet.
	Token(ctx context.Context) (*oauth2.Token, error)

	// IsAuthenticated returns true if a token is available.
	IsAuthenticated() bool
}

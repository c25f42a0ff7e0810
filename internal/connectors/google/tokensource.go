package google

import (
	"context"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/scoresync/internal/core/ports/driven"
)

// TokenSourceAdapter adapts a driven.TokenProvider to oauth2.TokenSource
// so Google API clients refresh through the provider.
type TokenSourceAdapter struct {
	provider driven.TokenProvider
	ctx      context.Context
}

// NewTokenSource creates an oauth2.TokenSource from a TokenProvider.
// The returned TokenSource can be used with option.WithTokenSource() when
// creating Google API services.
func NewTokenSource(ctx context.Context, provider driven.TokenProvider) oauth2.TokenSource {
	return &TokenSourceAdapter{
		provider: provider,
		ctx:      ctx,
	}
}

// Token implements oauth2.TokenSource.
func (t *TokenSourceAdapter) Token() (*oauth2.Token, error) {
	token, err := t.provider.Token(t.ctx)
	if err != nil {
		return nil, err
	}
	if token.TokenType == "" {
		copied := *token
		copied.TokenType = "Bearer"
		return &copied, nil
	}
	return token, nil
}

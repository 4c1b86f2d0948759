package google

import (
	"context"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/distill/internal/core/ports/driven"
)

// TokenSourceAdapter adapts the TokenProvider port to oauth2.TokenSource.
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

// Token implements oauth2.TokenSource interface.
func (t *TokenSourceAdapter) Token() (*oauth2.Token, error) {
	accessToken, err := t.provider.GetToken(t.ctx)
	if err != nil {
		return nil, err
	}

	return &oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}, nil
}

// StaticTokenProvider serves one pre-issued access token.
type StaticTokenProvider struct {
	token string
}

var _ driven.TokenProvider = (*StaticTokenProvider)(nil)

// NewStaticTokenProvider returns a provider for token.
func NewStaticTokenProvider(token string) *StaticTokenProvider {
	return &StaticTokenProvider{token: token}
}

// GetToken returns the token, or ErrUnauthorized if none was configured.
func (p *StaticTokenProvider) GetToken(_ context.Context) (string, error) {
	if p.token == "" {
		return "", ErrUnauthorized
	}
	return p.token, nil
}

// IsAuthenticated reports whether a token is configured.
func (p *StaticTokenProvider) IsAuthenticated() bool {
	return p.token != ""
}

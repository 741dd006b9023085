package sharepoint

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/spsync/spsync/internal/core/ports/driven"
)

// TokenSourceAdapter adapts the TokenProvider port to oauth2.TokenSource,
// so the standard oauth2 transport injects the bearer header on every
// API request.
type TokenSourceAdapter struct {
	provider driven.TokenProvider
	ctx      context.Context
}

// NewTokenSource creates an oauth2.TokenSource from a TokenProvider.
func NewTokenSource(ctx context.Context, provider driven.TokenProvider) oauth2.TokenSource {
	return &TokenSourceAdapter{provider: provider, ctx: ctx}
}

// Token implements oauth2.TokenSource.
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

// newAuthedClient builds an HTTP client whose transport attaches tokens
// from the provider. The base transport keeps the caller's timeout.
func newAuthedClient(provider driven.TokenProvider, base *http.Client) *http.Client {
	if base == nil {
		base = &http.Client{}
	}
	return &http.Client{
		Timeout: base.Timeout,
		Transport: &oauth2.Transport{
			Source: NewTokenSource(context.Background(), provider),
			Base:   base.Transport,
		},
	}
}

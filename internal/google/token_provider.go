package google

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

// TokenProvider supplies OAuth tokens for Google APIs. The file-based
// provider serves the CLI and the STDIO transport; other deployments can
// plug in their own source.
type TokenProvider interface {
	// GetTokenForAccount retrieves an OAuth token for the specified account
	GetTokenForAccount(ctx context.Context, account string) (*oauth2.Token, error)

	// HasTokenForAccount checks if a token exists for the specified account
	HasTokenForAccount(account string) bool
}

// FileTokenProvider provides tokens from disk files (for STDIO transport)
type FileTokenProvider struct{}

// NewFileTokenProvider creates a new file-based token provider
func NewFileTokenProvider() *FileTokenProvider {
	return &FileTokenProvider{}
}

// GetTokenForAccount retrieves a token from disk for the specified account
func (p *FileTokenProvider) GetTokenForAccount(ctx context.Context, account string) (*oauth2.Token, error) {
	ts, err := GetTokenSourceForAccount(ctx, account)
	if err != nil {
		return nil, err
	}

	token, err := ts.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to get token from file: %w", err)
	}

	return token, nil
}

// HasTokenForAccount checks if a token file exists for the specified account
func (p *FileTokenProvider) HasTokenForAccount(account string) bool {
	return HasTokenForAccount(account)
}

// providerTokenSource adapts a TokenProvider to oauth2.TokenSource for a
// fixed account.
type providerTokenSource struct {
	ctx      context.Context
	provider TokenProvider
	account  string
}

func (s *providerTokenSource) Token() (*oauth2.Token, error) {
	return s.provider.GetTokenForAccount(s.ctx, s.account)
}

// TokenSourceForProvider returns an oauth2.TokenSource that pulls tokens for
// the account from the given provider, re-fetching only when the cached token
// expires.
func TokenSourceForProvider(ctx context.Context, provider TokenProvider, account string) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(nil, &providerTokenSource{
		ctx:      ctx,
		provider: provider,
		account:  account,
	})
}

// HTTPClientForProvider returns an HTTP client authenticated through the
// given token provider. Like GetHTTPClientForAccount it pins HTTP/1.1 to
// avoid HTTP/2 protocol errors against googleapis endpoints.
func HTTPClientForProvider(ctx context.Context, provider TokenProvider, account string) (*http.Client, error) {
	if !provider.HasTokenForAccount(account) {
		return nil, fmt.Errorf("no token available for account %s", account)
	}

	client := oauth2.NewClient(ctx, TokenSourceForProvider(ctx, provider, account))

	transport := client.Transport.(*oauth2.Transport)
	transport.Base = &http.Transport{
		ForceAttemptHTTP2: false,
	}
	return client, nil
}

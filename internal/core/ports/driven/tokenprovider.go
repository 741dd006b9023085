package driven

import "context"

// TokenProvider supplies access tokens for authenticated API calls.
// Implementations cache the token in memory and refresh it transparently
// when it is expired or inside the expiry skew window. Tokens are never
// written to disk.
type TokenProvider interface {
	// GetToken returns a valid bearer token, refreshing if needed.
	// Concurrent callers share a single in-flight exchange.
	GetToken(ctx context.Context) (string, error)

	// Invalidate discards the cached token so the next GetToken performs
	// a fresh exchange. Called after an authorisation failure mid-run.
	Invalidate()
}

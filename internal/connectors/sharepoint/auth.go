package sharepoint

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/spsync/spsync/internal/core/domain"
	"github.com/spsync/spsync/internal/core/ports/driven"
	"github.com/spsync/spsync/internal/logger"
)

// Ensure AuthClient implements the port.
var _ driven.TokenProvider = (*AuthClient)(nil)

const (
	// sharePointPrincipal is the well-known app principal id of the
	// SharePoint Online service, used in the ACS resource string.
	sharePointPrincipal = "00000003-0000-0ff1-ce00-000000000000"

	// expirySkew refreshes tokens this long before their stated expiry,
	// so a token never dies mid-request.
	expirySkew = 300 * time.Second

	// defaultTokenLifetime applies when the token response omits or
	// mangles expires_in.
	defaultTokenLifetime = time.Hour
)

// acsTokenURL builds the Azure ACS token endpoint for a tenant.
func acsTokenURL(tenantID string) string {
	return fmt.Sprintf("https://accounts.accesscontrol.windows.net/%s/tokens/OAuth/2", tenantID)
}

// AuthClient exchanges app-only credentials for SharePoint access
// tokens at the ACS endpoint and caches the result in memory. The
// cached token is reused until it enters the expiry skew window.
// Concurrent callers share one exchange; the mutex is held across the
// network call on purpose.
type AuthClient struct {
	creds      domain.Credentials
	httpClient *http.Client
	retry      domain.RetryPolicy
	tokenURL   string
	now        func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewAuthClient creates an auth client for the given credentials.
// A nil httpClient uses a client with the configured timeout.
func NewAuthClient(cfg domain.SyncConfig, httpClient *http.Client) *AuthClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.ConnectionTimeout}
	}
	retry := domain.DefaultRetryPolicy()
	if cfg.MaxAuthRetries > 0 {
		retry.MaxAttempts = cfg.MaxAuthRetries
	}
	return &AuthClient{
		creds:      cfg.Credentials,
		httpClient: httpClient,
		retry:      retry,
		tokenURL:   acsTokenURL(cfg.Credentials.TenantID),
		now:        time.Now,
	}
}

// GetToken returns a valid bearer token, performing the ACS exchange
// when the cache is empty or inside the skew window.
func (a *AuthClient) GetToken(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.token != "" && a.now().Add(expirySkew).Before(a.expiresAt) {
		return a.token, nil
	}

	token, expiresAt, err := a.exchange(ctx)
	if err != nil {
		return "", &domain.AuthenticationError{Err: err}
	}
	a.token = token
	a.expiresAt = expiresAt
	logger.Debug("acquired access token, valid until %s", expiresAt.Format(time.RFC3339))
	return token, nil
}

// Invalidate discards the cached token.
func (a *AuthClient) Invalidate() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.token = ""
	a.expiresAt = time.Time{}
}

// tokenResponse is the ACS token endpoint's reply. ACS serialises
// numbers as JSON strings; json.Number tolerates both.
type tokenResponse struct {
	AccessToken string      `json:"access_token"`
	ExpiresIn   json.Number `json:"expires_in"`
}

// exchange performs the client-credentials POST with retries. Caller
// holds the mutex.
func (a *AuthClient) exchange(ctx context.Context) (string, time.Time, error) {
	domainName, err := a.creds.SiteDomain()
	if err != nil {
		return "", time.Time{}, err
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {fmt.Sprintf("%s@%s", a.creds.ClientID, a.creds.TenantID)},
		"client_secret": {a.creds.ClientSecret},
		"resource":      {fmt.Sprintf("%s/%s@%s", sharePointPrincipal, domainName, a.creds.TenantID)},
	}

	var parsed tokenResponse
	err = a.retry.Do(ctx, func(attempt int) error {
		if attempt > 1 {
			logger.Debug("token exchange attempt %d", attempt)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.tokenURL, strings.NewReader(form.Encode()))
		if err != nil {
			return domain.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := a.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("token request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			apiErr := newAPIError(resp)
			if IsAuthError(apiErr) {
				// Rejected credentials do not heal on retry.
				return domain.Permanent(apiErr)
			}
			return apiErr
		}

		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return fmt.Errorf("decode token response: %w", err)
		}
		if parsed.AccessToken == "" {
			return domain.Permanent(fmt.Errorf("token response carried no access_token"))
		}
		return nil
	})
	if err != nil {
		return "", time.Time{}, err
	}

	lifetime := defaultTokenLifetime
	if secs, err := parsed.ExpiresIn.Int64(); err == nil && secs > 0 {
		lifetime = time.Duration(secs) * time.Second
	}
	return parsed.AccessToken, a.now().Add(lifetime), nil
}

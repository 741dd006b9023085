package sharepoint

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/spsync/spsync/internal/core/domain"
	"github.com/spsync/spsync/internal/core/ports/driven"
	"github.com/spsync/spsync/internal/logger"
)

// Ensure ListFetcher implements the port.
var _ driven.ListSource = (*ListFetcher)(nil)

// ListFetcher retrieves list items from the SharePoint REST API,
// walking odata pagination until the final page. Authentication rides
// on the oauth2 transport; pacing on the rate limiter.
type ListFetcher struct {
	siteURL  string
	pageSize int
	client   *http.Client
	tokens   driven.TokenProvider
	limiter  *RateLimiter
	retry    domain.RetryPolicy
}

// NewListFetcher creates a fetcher for the configured site.
func NewListFetcher(cfg domain.SyncConfig, tokens driven.TokenProvider) *ListFetcher {
	base := &http.Client{Timeout: cfg.ConnectionTimeout}
	return &ListFetcher{
		siteURL:  strings.TrimRight(cfg.Credentials.SiteURL, "/"),
		pageSize: cfg.PageSize,
		client:   newAuthedClient(tokens, base),
		tokens:   tokens,
		limiter:  NewRateLimiter(DefaultRateLimit),
		retry:    domain.DefaultRetryPolicy(),
	}
}

// Validate makes a lightweight authenticated call against the site
// root to prove the credentials and site URL work.
func (f *ListFetcher) Validate(ctx context.Context) error {
	resp, err := f.get(ctx, f.siteURL+"/_api/web")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		apiErr := newAPIError(resp)
		if IsAuthError(apiErr) {
			f.tokens.Invalidate()
		}
		return apiErr
	}
	return nil
}

// FetchList retrieves every item of the named list. A failure on any
// page discards the whole fetch; partial data is never returned.
func (f *ListFetcher) FetchList(ctx context.Context, listName string) (*domain.TabularResult, error) {
	result := domain.NewTabularResult()

	next := f.itemsURL(listName)
	pages := 0
	for next != "" {
		page, err := f.fetchPage(ctx, next)
		if err != nil {
			return nil, &domain.FetchError{Err: err}
		}
		pages++
		for _, raw := range page.D.Results {
			result.Append(flattenRecord(raw))
		}
		next = page.D.Next
	}

	logger.Info("fetched %d records from list %q across %d pages", result.Len(), listName, pages)
	return result, nil
}

// Close releases idle transport connections.
func (f *ListFetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}

// itemsURL builds the first page URL for a list. Embedded quotes in the
// list title are doubled per odata literal rules.
func (f *ListFetcher) itemsURL(listName string) string {
	title := url.PathEscape(strings.ReplaceAll(listName, "'", "''"))
	u := fmt.Sprintf("%s/_api/web/lists/GetByTitle('%s')/items", f.siteURL, title)
	if f.pageSize > 0 {
		u += "?$top=" + strconv.Itoa(f.pageSize)
	}
	return u
}

// pageEnvelope is the odata=verbose response shape: results plus the
// opaque next-page URL.
type pageEnvelope struct {
	D struct {
		Results []map[string]any `json:"results"`
		Next    string           `json:"__next"`
	} `json:"d"`
}

// fetchPage retrieves one page with retries. 429 responses open a
// backoff window from Retry-After before the next attempt; 401 drops
// the cached token so the retry re-authenticates.
func (f *ListFetcher) fetchPage(ctx context.Context, pageURL string) (*pageEnvelope, error) {
	var page *pageEnvelope
	err := f.retry.Do(ctx, func(attempt int) error {
		if attempt > 1 {
			logger.Debug("retrying page fetch, attempt %d", attempt)
		}
		resp, err := f.get(ctx, pageURL)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			apiErr := newAPIError(resp)
			switch {
			case resp.StatusCode == http.StatusTooManyRequests:
				f.limiter.RecordRetryAfter(retryAfterSeconds(resp))
			case resp.StatusCode == http.StatusUnauthorized:
				f.tokens.Invalidate()
			case resp.StatusCode == http.StatusForbidden,
				resp.StatusCode == http.StatusNotFound:
				return domain.Permanent(apiErr)
			}
			return apiErr
		}

		dec := json.NewDecoder(resp.Body)
		dec.UseNumber()
		var env pageEnvelope
		if err := dec.Decode(&env); err != nil {
			return domain.Permanent(fmt.Errorf("decode page: %w", err))
		}
		page = &env
		return nil
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

// get performs one rate-limited authenticated GET.
func (f *ListFetcher) get(ctx context.Context, rawURL string) (*http.Response, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json;odata=verbose")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", req.URL.Path, err)
	}
	return resp, nil
}

// retryAfterSeconds parses the Retry-After header; zero when absent.
func retryAfterSeconds(resp *http.Response) int {
	secs, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if err != nil {
		return 0
	}
	return secs
}

// flattenRecord turns one raw item into a ListRecord. Metadata fields
// (any key with a "__" prefix) are dropped, nested objects are
// flattened with their path joined by underscores, and everything else
// becomes a tagged scalar.
func flattenRecord(raw map[string]any) domain.ListRecord {
	rec := make(domain.ListRecord, len(raw))
	flattenInto(rec, "", raw)
	return rec
}

func flattenInto(rec domain.ListRecord, prefix string, obj map[string]any) {
	for key, val := range obj {
		if strings.HasPrefix(key, "__") {
			continue
		}
		name := key
		if prefix != "" {
			name = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok {
			flattenInto(rec, name, nested)
			continue
		}
		rec[strings.ReplaceAll(name, ".", "_")] = domain.ValueFromJSON(val)
	}
}

package sharepoint

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spsync/spsync/internal/core/domain"
)

func authConfig() domain.SyncConfig {
	cfg := domain.SyncConfig{
		Credentials: domain.Credentials{
			TenantID:     "tenant-guid",
			ClientID:     "client-guid",
			ClientSecret: "s3cret",
			SiteURL:      "https://contoso.sharepoint.com/sites/team",
		},
		ListName: "Tasks",
		Table:    "tasks",
		Database: domain.DatabaseConfig{Type: domain.DatabaseSQLite, File: "sync.db"},
	}
	cfg.Normalise()
	return cfg
}

// tokenServer fakes the ACS endpoint, recording each exchange.
type tokenServer struct {
	mu       sync.Mutex
	calls    int
	lastForm map[string]string
	statuses []int // per-call status; exhausted means 200
	expires  string
}

func (s *tokenServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls++
		call := s.calls
		r.ParseForm()
		s.lastForm = map[string]string{}
		for k := range r.PostForm {
			s.lastForm[k] = r.PostForm.Get(k)
		}
		s.mu.Unlock()

		if call <= len(s.statuses) && s.statuses[call-1] != http.StatusOK {
			w.WriteHeader(s.statuses[call-1])
			return
		}

		expires := s.expires
		if expires == "" {
			expires = "3600"
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok-` + strconv.Itoa(call) + `","expires_in":"` + expires + `"}`))
	}
}

func (s *tokenServer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newTestAuth(t *testing.T, srv *tokenServer) (*AuthClient, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(srv.handler())
	t.Cleanup(ts.Close)

	auth := NewAuthClient(authConfig(), ts.Client())
	auth.tokenURL = ts.URL
	auth.retry.Sleep = func(context.Context, time.Duration) error { return nil }
	return auth, ts
}

func TestAuthClient_ExchangeAndCache(t *testing.T) {
	srv := &tokenServer{}
	auth, _ := newTestAuth(t, srv)

	token, err := auth.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)

	// The ACS form carries the tenant-scoped identifiers.
	assert.Equal(t, "client_credentials", srv.lastForm["grant_type"])
	assert.Equal(t, "client-guid@tenant-guid", srv.lastForm["client_id"])
	assert.Equal(t, "s3cret", srv.lastForm["client_secret"])
	assert.Equal(t, "00000003-0000-0ff1-ce00-000000000000/contoso.sharepoint.com@tenant-guid", srv.lastForm["resource"])

	// A second call reuses the cached token.
	token, err = auth.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)
	assert.Equal(t, 1, srv.callCount())
}

func TestAuthClient_RefreshInsideSkewWindow(t *testing.T) {
	srv := &tokenServer{expires: "600"}
	auth, _ := newTestAuth(t, srv)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	auth.now = func() time.Time { return now }

	token, err := auth.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)

	// Well before the skew window the token is reused.
	now = now.Add(100 * time.Second)
	token, err = auth.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)

	// 400s into a 600s lifetime is inside the 300s skew: refresh.
	now = now.Add(300 * time.Second)
	token, err = auth.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-2", token)
	assert.Equal(t, 2, srv.callCount())
}

func TestAuthClient_RetriesTransientFailures(t *testing.T) {
	srv := &tokenServer{statuses: []int{http.StatusInternalServerError, http.StatusInternalServerError, http.StatusOK}}
	auth, _ := newTestAuth(t, srv)

	token, err := auth.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-3", token)
	assert.Equal(t, 3, srv.callCount())
}

func TestAuthClient_RejectedCredentialsNotRetried(t *testing.T) {
	srv := &tokenServer{statuses: []int{http.StatusUnauthorized}}
	auth, _ := newTestAuth(t, srv)

	_, err := auth.GetToken(context.Background())

	var authErr *domain.AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.True(t, IsAuthError(err))
	assert.Equal(t, 1, srv.callCount())
}

func TestAuthClient_Invalidate(t *testing.T) {
	srv := &tokenServer{}
	auth, _ := newTestAuth(t, srv)

	_, err := auth.GetToken(context.Background())
	require.NoError(t, err)

	auth.Invalidate()

	token, err := auth.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-2", token)
	assert.Equal(t, 2, srv.callCount())
}

func TestAuthClient_ExhaustedRetries(t *testing.T) {
	srv := &tokenServer{statuses: []int{
		http.StatusInternalServerError,
		http.StatusInternalServerError,
		http.StatusInternalServerError,
	}}
	auth, _ := newTestAuth(t, srv)

	_, err := auth.GetToken(context.Background())

	var authErr *domain.AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, 3, srv.callCount())
}

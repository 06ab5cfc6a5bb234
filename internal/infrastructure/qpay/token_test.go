package qpay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/badrakh/monshop-api/internal/config"
	"github.com/badrakh/monshop-api/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthServer(t *testing.T, calls *int, status int, expiresIn int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/token", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "merchant", user)
		require.Equal(t, "secret", pass)

		*calls++
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		json.NewEncoder(w).Encode(authResponse{
			AccessToken: "tok-1",
			TokenType:   "Bearer",
			ExpiresIn:   expiresIn,
		})
	}))
}

func testQPayConfig(baseURL string) config.QPayConfig {
	return config.QPayConfig{
		BaseURL:        baseURL,
		Username:       "merchant",
		Password:       "secret",
		RequestTimeout: 5 * time.Second,
		TokenMargin:    60 * time.Second,
	}
}

func TestTokenSource_CachesWithinEpoch(t *testing.T) {
	calls := 0
	srv := newAuthServer(t, &calls, http.StatusOK, 3600)
	defer srv.Close()

	ts := newTokenSource(testQPayConfig(srv.URL), srv.Client())

	tok1, err := ts.Token(context.Background())
	require.NoError(t, err)
	tok2, err := ts.Token(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Same(t, tok1, tok2)
	assert.Equal(t, "tok-1", tok1.AccessToken)
}

func TestTokenSource_AppliesExpiryMargin(t *testing.T) {
	calls := 0
	srv := newAuthServer(t, &calls, http.StatusOK, 3600)
	defer srv.Close()

	ts := newTokenSource(testQPayConfig(srv.URL), srv.Client())
	now := time.Now()
	ts.now = func() time.Time { return now }

	tok, err := ts.Token(context.Background())
	require.NoError(t, err)

	// Lifetime minus the 60s safety margin.
	assert.WithinDuration(t, now.Add(3540*time.Second), tok.Expiry, time.Second)
}

func TestTokenSource_RefreshesExpiredToken(t *testing.T) {
	calls := 0
	srv := newAuthServer(t, &calls, http.StatusOK, 3600)
	defer srv.Close()

	ts := newTokenSource(testQPayConfig(srv.URL), srv.Client())
	now := time.Now()
	ts.now = func() time.Time { return now }

	_, err := ts.Token(context.Background())
	require.NoError(t, err)

	// Past the margin-adjusted expiry, same calendar day would normally hold
	// the cache, so jump less than a day but more than the token lifetime.
	now = now.Add(2 * time.Hour)
	_, err = ts.Token(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
}

func TestTokenSource_RefreshesOnEpochRollover(t *testing.T) {
	calls := 0
	srv := newAuthServer(t, &calls, http.StatusOK, 7*24*3600)
	defer srv.Close()

	ts := newTokenSource(testQPayConfig(srv.URL), srv.Client())
	now := time.Date(2025, 3, 10, 23, 0, 0, 0, time.UTC)
	ts.now = func() time.Time { return now }

	_, err := ts.Token(context.Background())
	require.NoError(t, err)

	// Token still valid for days, but issued under yesterday's epoch.
	now = now.Add(2 * time.Hour)
	_, err = ts.Token(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
}

func TestTokenSource_UnixTimestampExpiry(t *testing.T) {
	calls := 0
	expiresAt := time.Now().Add(90 * time.Minute).Unix()
	srv := newAuthServer(t, &calls, http.StatusOK, expiresAt)
	defer srv.Close()

	ts := newTokenSource(testQPayConfig(srv.URL), srv.Client())

	tok, err := ts.Token(context.Background())
	require.NoError(t, err)
	assert.WithinDuration(t, time.Unix(expiresAt, 0).Add(-60*time.Second), tok.Expiry, time.Second)
}

func TestTokenSource_AuthenticationFailed(t *testing.T) {
	calls := 0
	srv := newAuthServer(t, &calls, http.StatusUnauthorized, 0)
	defer srv.Close()

	ts := newTokenSource(testQPayConfig(srv.URL), srv.Client())

	_, err := ts.Token(context.Background())
	require.ErrorIs(t, err, apperror.ErrAuthenticationFailed)
}

func TestTokenSource_GatewayUnreachable(t *testing.T) {
	cfg := testQPayConfig("http://127.0.0.1:1")
	ts := newTokenSource(cfg, &http.Client{Timeout: time.Second})

	_, err := ts.Token(context.Background())
	require.ErrorIs(t, err, apperror.ErrGatewayUnreachable)
}

func TestTokenSource_ActiveDoesNotRefresh(t *testing.T) {
	calls := 0
	srv := newAuthServer(t, &calls, http.StatusOK, 3600)
	defer srv.Close()

	ts := newTokenSource(testQPayConfig(srv.URL), srv.Client())

	_, ok := ts.Active()
	assert.False(t, ok)
	assert.Equal(t, 0, calls)

	_, err := ts.Token(context.Background())
	require.NoError(t, err)

	tok, ok := ts.Active()
	require.True(t, ok)
	assert.Equal(t, "tok-1", tok.AccessToken)
	assert.Equal(t, 1, calls)
}

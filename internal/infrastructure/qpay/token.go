package qpay

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/badrakh/monshop-api/internal/config"
	"github.com/badrakh/monshop-api/pkg/apperror"
	"golang.org/x/oauth2"
)

// tokenEpochLayout is the coarse-grained issuance epoch: the gateway mandates
// at most one token issuance per calendar day (UTC).
const tokenEpochLayout = "2006-01-02"

type authResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// tokenSource obtains and caches the gateway bearer credential. A cached
// token is reused until it expires (with the configured safety margin already
// applied to its expiry) or until the issuance epoch rolls over.
type tokenSource struct {
	cfg        config.QPayConfig
	httpClient *http.Client
	now        func() time.Time

	mu    sync.Mutex
	tok   *oauth2.Token
	epoch string
}

func newTokenSource(cfg config.QPayConfig, httpClient *http.Client) *tokenSource {
	return &tokenSource{
		cfg:        cfg,
		httpClient: httpClient,
		now:        time.Now,
	}
}

// Token returns a valid bearer credential, requesting a new one from the
// gateway's auth endpoint only when no usable cached token exists. It never
// returns a stale or about-to-expire token.
func (s *tokenSource) Token(ctx context.Context) (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	epoch := s.now().UTC().Format(tokenEpochLayout)
	if s.tok != nil && s.epoch == epoch && s.now().Before(s.tok.Expiry) {
		return s.tok, nil
	}

	tok, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	s.tok = tok
	s.epoch = epoch
	return tok, nil
}

// Active returns the cached token without refreshing, for callers that only
// want to know what credential was presented on a prior call.
func (s *tokenSource) Active() (*oauth2.Token, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tok == nil || !s.now().Before(s.tok.Expiry) {
		return nil, false
	}
	return s.tok, true
}

func (s *tokenSource) fetch(ctx context.Context) (*oauth2.Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+"/auth/token", nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(s.cfg.Username, s.cfg.Password)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		log.Printf("qpay: auth request failed: %v", err)
		return nil, apperror.ErrGatewayUnreachable
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, apperror.ErrAuthenticationFailed
	}
	if resp.StatusCode != http.StatusOK {
		log.Printf("qpay: auth endpoint returned %d", resp.StatusCode)
		return nil, apperror.ErrGatewayUnreachable
	}

	var body authResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		log.Printf("qpay: failed to decode auth response: %v", err)
		return nil, apperror.ErrGatewayUnreachable
	}
	if body.AccessToken == "" {
		return nil, apperror.ErrAuthenticationFailed
	}

	return &oauth2.Token{
		AccessToken: body.AccessToken,
		TokenType:   body.TokenType,
		Expiry:      s.expiryFor(body.ExpiresIn),
	}, nil
}

// expiryFor converts the gateway's expires_in field to an absolute expiry with
// the safety margin subtracted. Some gateway versions send a lifetime in
// seconds, others an absolute unix timestamp.
func (s *tokenSource) expiryFor(expiresIn int64) time.Time {
	var expiry time.Time
	if expiresIn > 1e9 {
		expiry = time.Unix(expiresIn, 0)
	} else {
		expiry = s.now().Add(time.Duration(expiresIn) * time.Second)
	}
	return expiry.Add(-s.cfg.TokenMargin)
}

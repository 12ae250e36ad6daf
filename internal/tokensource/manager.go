package tokensource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/zentriq/crmagent/internal/tokenstore"
)

// DefaultRefreshMargin is how long before expiry an access token is
// considered stale and refreshed.
const DefaultRefreshMargin = 5 * time.Minute

// ErrAuthRequired indicates the stored credentials cannot produce an access
// token (missing or revoked refresh token). Recovery is manual: delete the
// token record and run the setup flow again.
var ErrAuthRequired = errors.New("authentication required")

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithRefreshMargin sets the safety margin before expiry at which the access
// token is refreshed. Defaults to DefaultRefreshMargin.
func WithRefreshMargin(margin time.Duration) ManagerOption {
	return func(m *Manager) {
		m.margin = margin
	}
}

// WithClock sets the time source used for expiry checks. Defaults to time.Now.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

// WithHTTPClient sets a custom HTTP client for token exchange requests
// (e.g. for proxies or custom timeouts).
func WithHTTPClient(client *http.Client) ManagerOption {
	return func(m *Manager) {
		m.httpClient = client
	}
}

// Manager owns the access token lifecycle: it serves cached tokens while they
// are fresh, performs a single refresh exchange when they are stale, and
// persists rotated records to the store.
type Manager struct {
	oauth      *oauth2.Config
	store      tokenstore.Store
	margin     time.Duration
	now        func() time.Time
	httpClient *http.Client

	mu     sync.Mutex
	cached *tokenstore.Token
}

// Compile-time check to ensure Manager implements oauth2.TokenSource
var _ oauth2.TokenSource = (*Manager)(nil)

// NewManager creates a Manager. No I/O is performed until the first token
// request.
func NewManager(cfg *oauth2.Config, store tokenstore.Store, opts ...ManagerOption) (*Manager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("missing oauth config")
	}
	if store == nil {
		return nil, fmt.Errorf("missing token store")
	}

	m := &Manager{
		oauth:  cfg,
		store:  store,
		margin: DefaultRefreshMargin,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// AccessToken returns a non-expired access token, transparently refreshing if
// the cached token expires within the refresh margin.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	record, err := m.current(ctx)
	if err != nil {
		return "", err
	}
	return record.AccessToken, nil
}

// Token implements oauth2.TokenSource so the Manager can back an
// oauth2.Transport. The interface has no context parameter (legacy
// limitation); a background context is used.
func (m *Manager) Token() (*oauth2.Token, error) {
	record, err := m.current(context.Background())
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken:  record.AccessToken,
		RefreshToken: record.RefreshToken,
		Expiry:       record.Expiry,
		TokenType:    "Bearer",
	}, nil
}

// current returns the cached record if it is still fresh, refreshing it
// otherwise. Serialized under the mutex so concurrent callers trigger at most
// one refresh exchange.
func (m *Manager) current(ctx context.Context) (*tokenstore.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cached == nil {
		record, err := m.store.Read(ctx)
		if errors.Is(err, tokenstore.ErrNoToken) {
			return nil, fmt.Errorf("%w: no token record found, run the setup flow first", ErrAuthRequired)
		}
		if err != nil {
			return nil, fmt.Errorf("reading token record: %w", err)
		}
		m.cached = record
	}

	if m.cached.AccessToken != "" && !needsRefresh(m.now(), m.cached.Expiry, m.margin) {
		record := *m.cached
		return &record, nil
	}

	refreshed, err := m.refresh(ctx, m.cached)
	if err != nil {
		// The previous record stays untouched on disk so the refresh token
		// survives transient failures.
		return nil, err
	}

	if err := m.store.Write(ctx, refreshed); err != nil {
		// The refreshed access token is still usable for this run, but future
		// runs will refresh again from the previous record.
		slog.ErrorContext(ctx, "failed to persist refreshed token record", "error", err)
	}

	m.cached = refreshed
	record := *refreshed
	return &record, nil
}

// refresh performs a single token exchange against the accounts server using
// the stored refresh token. No retries, no backoff: failures surface to the
// caller.
func (m *Manager) refresh(ctx context.Context, cur *tokenstore.Token) (*tokenstore.Token, error) {
	if cur.RefreshToken == "" {
		return nil, fmt.Errorf("%w: token record has no refresh token, run the setup flow again", ErrAuthRequired)
	}

	if m.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
	}

	// Seeding the source with only the refresh token forces exactly one
	// refresh exchange on Token().
	seed := &oauth2.Token{RefreshToken: cur.RefreshToken}
	fresh, err := m.oauth.TokenSource(ctx, seed).Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return nil, fmt.Errorf("%w: accounts server rejected the refresh token: %v", ErrAuthRequired, err)
		}
		return nil, fmt.Errorf("refreshing access token: %w", err)
	}

	record := &tokenstore.Token{
		AccessToken:  fresh.AccessToken,
		RefreshToken: fresh.RefreshToken,
		Expiry:       fresh.Expiry,
		APIDomain:    cur.APIDomain,
	}
	// Zoho refresh responses omit the refresh token; the issued one stays valid
	if record.RefreshToken == "" {
		record.RefreshToken = cur.RefreshToken
	}
	if domain, ok := fresh.Extra("api_domain").(string); ok && domain != "" {
		record.APIDomain = domain
	}

	return record, nil
}

// needsRefresh reports whether a token expiring at expiry should be refreshed
// at time now, given the safety margin. A zero expiry always refreshes.
func needsRefresh(now, expiry time.Time, margin time.Duration) bool {
	if expiry.IsZero() {
		return true
	}
	return !expiry.After(now.Add(margin))
}

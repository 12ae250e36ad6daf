// Package tokensource provides OAuth2 access token acquisition and automatic
// refresh for the Zoho accounts server, backed by a persistent token store.
//
// Zoho's OAuth2 implementation follows the standard form-encoded token
// endpoint but has two behaviors that require handling:
//   - Refresh responses omit the refresh token; the previously issued refresh
//     token stays valid and must be preserved across refreshes.
//   - Tokens are issued per data center; the accounts server base URL
//     (accounts.zoho.com, accounts.zoho.eu, ...) selects the endpoints.
//
// # Manager
//
// Use NewManager with an oauth2.Config from NewConfig and a tokenstore.Store:
//
//	cfg := tokensource.NewConfig(clientID, clientSecret, redirectURI, scope, accountsServer)
//	mgr, err := tokensource.NewManager(cfg, store)
//	token, err := mgr.AccessToken(ctx)
//
// AccessToken returns the cached access token unchanged while it is valid for
// more than the refresh margin (5 minutes by default), and performs exactly
// one refresh exchange otherwise. Manager also implements oauth2.TokenSource.
package tokensource

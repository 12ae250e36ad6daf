package tokensource

import (
	"strings"

	"golang.org/x/oauth2"
)

const (
	// DefaultAccountsServer is the Zoho accounts server for the US data center.
	// EU/IN/AU deployments use their regional accounts hosts.
	DefaultAccountsServer = "https://accounts.zoho.com"

	// DefaultScope grants full CRM module access.
	DefaultScope = "ZohoCRM.modules.ALL"
)

// Endpoint builds the OAuth2 endpoints for the given Zoho accounts server
// base URL.
func Endpoint(accountsServer string) oauth2.Endpoint {
	base := strings.TrimRight(accountsServer, "/")
	return oauth2.Endpoint{
		AuthURL:  base + "/oauth/v2/auth",
		TokenURL: base + "/oauth/v2/token",
		// Zoho expects client credentials in the request body
		AuthStyle: oauth2.AuthStyleInParams,
	}
}

// NewConfig builds an oauth2.Config for a Zoho confidential client.
func NewConfig(clientID, clientSecret, redirectURI, scope, accountsServer string) *oauth2.Config {
	if scope == "" {
		scope = DefaultScope
	}
	if accountsServer == "" {
		accountsServer = DefaultAccountsServer
	}
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		// Zoho separates scopes with commas, not spaces. Kept as one opaque
		// element so the consent URL carries the string unchanged.
		Scopes:   []string{scope},
		Endpoint: Endpoint(accountsServer),
	}
}

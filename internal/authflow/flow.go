package authflow

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/zentriq/crmagent/internal/tokenstore"
)

// FlowOption configures a Flow.
type FlowOption func(*Flow)

// WithHTTPClient sets a custom HTTP client for the code exchange request.
func WithHTTPClient(client *http.Client) FlowOption {
	return func(f *Flow) {
		f.httpClient = client
	}
}

// Flow performs the interactive authorization-code exchange and writes the
// initial token record.
type Flow struct {
	oauth      *oauth2.Config
	store      tokenstore.Store
	state      string
	httpClient *http.Client
}

// New creates a Flow with a random state parameter.
func New(cfg *oauth2.Config, store tokenstore.Store, opts ...FlowOption) (*Flow, error) {
	if cfg == nil {
		return nil, fmt.Errorf("missing oauth config")
	}
	if store == nil {
		return nil, fmt.Errorf("missing token store")
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("oauth client credentials are required for the setup flow")
	}

	f := &Flow{
		oauth: cfg,
		store: store,
		state: uuid.NewString(),
	}
	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

// AuthorizationURL returns the URL the user must visit to authorize the
// application. access_type=offline makes Zoho issue a refresh token.
func (f *Flow) AuthorizationURL() string {
	return f.oauth.AuthCodeURL(f.state, oauth2.AccessTypeOffline)
}

// ExtractCode parses a pasted redirect URL and returns the authorization code.
// The state parameter, when echoed back by the accounts server, must match the
// one issued with the authorization URL.
func (f *Flow) ExtractCode(redirectURL string) (string, error) {
	parsed, err := url.Parse(redirectURL)
	if err != nil {
		return "", fmt.Errorf("parsing redirect URL: %w", err)
	}

	query := parsed.Query()
	if errParam := query.Get("error"); errParam != "" {
		return "", fmt.Errorf("authorization failed: %s", errParam)
	}
	if state := query.Get("state"); state != "" && state != f.state {
		return "", fmt.Errorf("state parameter mismatch, authorization response does not belong to this setup run")
	}

	code := query.Get("code")
	if code == "" {
		return "", fmt.Errorf("no code parameter found in redirect URL")
	}
	return code, nil
}

// Exchange trades the authorization code for the first access/refresh token
// pair and persists the initial token record.
func (f *Flow) Exchange(ctx context.Context, code string) (*tokenstore.Token, error) {
	if f.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, f.httpClient)
	}

	token, err := f.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging authorization code: %w", err)
	}
	if token.RefreshToken == "" {
		return nil, fmt.Errorf("accounts server returned no refresh token, re-run authorization with offline access")
	}

	record := &tokenstore.Token{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
	}
	if domain, ok := token.Extra("api_domain").(string); ok {
		record.APIDomain = domain
	}

	if err := f.store.Write(ctx, record); err != nil {
		return nil, fmt.Errorf("persisting initial token record: %w", err)
	}

	return record, nil
}

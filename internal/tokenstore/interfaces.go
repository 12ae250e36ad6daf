package tokenstore

import (
	"context"
	"errors"
	"time"
)

// ErrNoToken indicates that the backend holds no token record yet.
// Callers should direct the user to the one-time setup flow.
var ErrNoToken = errors.New("no stored token record")

// Token is a persisted OAuth token record.
//
// RefreshToken, once obtained, is never discarded by this program: refresh
// responses that omit it keep the previous value. Only deleting the backing
// storage removes it.
type Token struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	Expiry       time.Time `json:"expiry"`

	// APIDomain is the Zoho data-center base URL returned alongside tokens
	// (e.g. https://www.zohoapis.com). Informational, may be empty.
	APIDomain string `json:"api_domain,omitempty"`
}

// Store reads and writes token records to persistent storage.
//
// The OAuth refresh cycle requires writable storage.
type Store interface {
	// Read returns the stored token record. Returns ErrNoToken if the backend
	// holds no record.
	Read(ctx context.Context) (*Token, error)

	// Write persists the token record. Returns an error if the storage backend
	// is read-only (e.g. environment variables) or if the write fails.
	Write(ctx context.Context, token *Token) error
}

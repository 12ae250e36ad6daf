package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// KeyringStore provides OS-native secure credential storage for token records.
// Uses macOS Keychain, Windows Credential Manager, or Linux Secret Service.
// The record is stored as a JSON document in a single keyring entry.
type KeyringStore struct {
	service string
	user    string
}

// Compile-time check to ensure KeyringStore implements Store
var _ Store = (*KeyringStore)(nil)

// NewKeyringStore creates a KeyringStore using the given service and user
// identifiers.
func NewKeyringStore(service, user string) (*KeyringStore, error) {
	if service == "" {
		return nil, fmt.Errorf("service cannot be empty")
	}
	if user == "" {
		return nil, fmt.Errorf("user cannot be empty")
	}

	return &KeyringStore{
		service: service,
		user:    user,
	}, nil
}

// Read returns the token record from the system keyring. Returns ErrNoToken
// if no entry exists.
func (k *KeyringStore) Read(ctx context.Context) (*Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	secret, err := keyring.Get(k.service, k.user)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, err
	}

	var token Token
	if err := json.Unmarshal([]byte(secret), &token); err != nil {
		return nil, fmt.Errorf("malformed token record in keyring for service %s, user %s: %w", k.service, k.user, err)
	}
	if token.RefreshToken == "" && token.AccessToken == "" {
		return nil, ErrNoToken
	}
	return &token, nil
}

// Write persists the token record to the system keyring, overwriting any
// existing entry.
func (k *KeyringStore) Write(ctx context.Context, token *Token) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if token == nil {
		return fmt.Errorf("token record cannot be nil")
	}

	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("encoding token record: %w", err)
	}

	return keyring.Set(k.service, k.user, string(data))
}

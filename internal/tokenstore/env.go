package tokenstore

import (
	"context"
	"fmt"
	"os"
)

// EnvStore provides read-only access to a refresh token stored in an
// environment variable. The returned record carries no access token, so the
// first use always performs a refresh exchange. Not suitable as the backing
// store for the OAuth refresh cycle (rotated tokens cannot be persisted).
type EnvStore struct {
	envKey string
}

// Compile-time check to ensure EnvStore implements Store
var _ Store = (*EnvStore)(nil)

// NewEnvStore creates an EnvStore for the given environment variable.
// Returns error if the variable name is empty or not set in the environment.
func NewEnvStore(envKey string) (*EnvStore, error) {
	if envKey == "" {
		return nil, fmt.Errorf("environment key cannot be empty")
	}

	if _, exists := os.LookupEnv(envKey); !exists {
		return nil, fmt.Errorf("environment variable %s not set", envKey)
	}

	return &EnvStore{
		envKey: envKey,
	}, nil
}

// Read returns a record seeded from the refresh token in the environment
// variable. Returns ErrNoToken if the variable is empty.
func (e *EnvStore) Read(ctx context.Context) (*Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	refreshToken := os.Getenv(e.envKey)
	if refreshToken == "" {
		return nil, ErrNoToken
	}
	return &Token{RefreshToken: refreshToken}, nil
}

// Write is not supported for environment variables (they are read-only).
func (e *EnvStore) Write(ctx context.Context, token *Token) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return fmt.Errorf("environment variable storage is read-only")
}

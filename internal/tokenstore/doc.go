// Package tokenstore provides persistent storage for Zoho OAuth token records.
//
// A token record carries the access token, the long-lived refresh token, and
// the access token's expiry. Records are serialized as JSON at rest.
//
// Three storage backends with different security and deployment tradeoffs:
//   - File: Local filesystem storage with atomic writes and secure permissions
//   - Keyring: OS-native credential storage (macOS Keychain, Windows Credential Manager, etc.)
//   - Env: Read-only environment variable access holding only a refresh token
//
// The OAuth refresh cycle requires writable storage (file or keyring); the env
// backend exists for deployments where an external secret manager injects a
// refresh token and persisting rotated tokens is not wanted.
package tokenstore

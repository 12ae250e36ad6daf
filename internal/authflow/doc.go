// Package authflow implements the one-time OAuth authorization-code flow that
// seeds the persistent token store.
//
// The flow builds a Zoho authorization URL, collects the authorization code
// either through a short-lived loopback callback server on the configured
// redirect URI or from a pasted redirect URL, exchanges the code for the first
// access/refresh token pair, and writes the initial token record.
//
// It runs once, out of band from the steady-state agent loop.
package authflow

package authflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"
)

// callbackTimeouts bound the loopback server against stuck clients; the
// authorization redirect is a single tiny GET request.
const (
	callbackReadTimeout  = 10 * time.Second
	callbackWriteTimeout = 10 * time.Second
	shutdownTimeout      = 5 * time.Second
)

const successPage = `<!DOCTYPE html>
<html>
<head><title>crmagent</title></head>
<body>
<p>Authorization received. You can close this window and return to the terminal.</p>
</body>
</html>
`

// WaitForCode runs a loopback HTTP server on the redirect URI's host:port and
// blocks until the accounts server redirects the browser there with an
// authorization code, the context is canceled, or the server fails.
func (f *Flow) WaitForCode(ctx context.Context) (string, error) {
	redirect, err := url.Parse(f.oauth.RedirectURL)
	if err != nil {
		return "", fmt.Errorf("invalid redirect URI: %w", err)
	}
	if redirect.Port() == "" {
		return "", fmt.Errorf("redirect URI %s has no port, the loopback callback server cannot bind", f.oauth.RedirectURL)
	}

	callbackPath := redirect.Path
	if callbackPath == "" {
		callbackPath = "/"
	}

	// Buffered so the handler never blocks on a departed waiter
	codeCh := make(chan string, 1)

	mux := http.NewServeMux()
	mux.Handle("GET "+callbackPath, applyMiddlewares(f.callbackHandler(codeCh),
		Logging(slog.Default()),
		Recovery,
	))

	// Create listener synchronously to catch port-in-use errors immediately
	listener, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return "", fmt.Errorf("failed to listen on %s: %w", redirect.Host, err)
	}

	server := &http.Server{
		Handler:      mux,
		ReadTimeout:  callbackReadTimeout,
		WriteTimeout: callbackWriteTimeout,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("callback server: %w", err)
		}
		return nil
	})

	var code string
	var waitErr error
	select {
	case code = <-codeCh:
	case <-gCtx.Done():
		waitErr = gCtx.Err()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		_ = server.Close()
	}

	if err := g.Wait(); err != nil {
		return "", err
	}
	if waitErr != nil {
		return "", fmt.Errorf("waiting for authorization callback: %w", waitErr)
	}
	return code, nil
}

// callbackHandler validates the redirected authorization response and hands
// the code to the waiting flow.
func (f *Flow) callbackHandler(codeCh chan<- string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()

		if errParam := query.Get("error"); errParam != "" {
			http.Error(w, "authorization failed: "+errParam, http.StatusBadRequest)
			return
		}
		if state := query.Get("state"); state != "" && state != f.state {
			http.Error(w, "state parameter mismatch", http.StatusBadRequest)
			return
		}
		code := query.Get("code")
		if code == "" {
			http.Error(w, "missing code parameter", http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(successPage))

		select {
		case codeCh <- code:
		default:
			// A code was already delivered; ignore duplicate redirects
		}
	})
}

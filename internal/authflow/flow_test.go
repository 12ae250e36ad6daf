package authflow

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/zentriq/crmagent/internal/tokensource"
	"github.com/zentriq/crmagent/internal/tokenstore"
)

func newTestFlow(t *testing.T, accountsServer, redirectURI string, opts ...FlowOption) (*Flow, tokenstore.Store) {
	t.Helper()

	store, err := tokenstore.NewFileStore(filepath.Join(t.TempDir(), "tokens.json"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	cfg := tokensource.NewConfig("client-id", "client-secret", redirectURI, "", accountsServer)
	flow, err := New(cfg, store, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return flow, store
}

func TestAuthorizationURL(t *testing.T) {
	flow, _ := newTestFlow(t, "https://accounts.zoho.com", "http://localhost:8080/oauth/callback")

	u := flow.AuthorizationURL()
	if !strings.HasPrefix(u, "https://accounts.zoho.com/oauth/v2/auth?") {
		t.Errorf("authorization URL %q has wrong base", u)
	}
	for _, param := range []string{"client_id=client-id", "response_type=code", "access_type=offline", "state=" + flow.state} {
		if !strings.Contains(u, param) {
			t.Errorf("authorization URL %q missing %q", u, param)
		}
	}
}

func TestExtractCode(t *testing.T) {
	flow, _ := newTestFlow(t, "https://accounts.zoho.com", "http://localhost:8080/oauth/callback")

	tests := []struct {
		name     string
		url      string
		wantCode string
		wantErr  bool
	}{
		{
			name:     "code with matching state",
			url:      "http://localhost:8080/oauth/callback?state=" + flow.state + "&code=abc123",
			wantCode: "abc123",
		},
		{
			name:     "code without state",
			url:      "http://localhost:8080/oauth/callback?code=abc123",
			wantCode: "abc123",
		},
		{
			name:    "state mismatch",
			url:     "http://localhost:8080/oauth/callback?state=other&code=abc123",
			wantErr: true,
		},
		{
			name:    "authorization error",
			url:     "http://localhost:8080/oauth/callback?error=access_denied",
			wantErr: true,
		},
		{
			name:    "missing code",
			url:     "http://localhost:8080/oauth/callback?state=" + flow.state,
			wantErr: true,
		},
		{
			name:    "unparseable URL",
			url:     "://not-a-url",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := flow.ExtractCode(tt.url)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractCode: %v", err)
			}
			if code != tt.wantCode {
				t.Errorf("code = %q, want %q", code, tt.wantCode)
			}
		})
	}
}

func TestExchangeWritesInitialRecord(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth/v2/token" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parsing form: %v", err)
		}
		if got := r.Form.Get("grant_type"); got != "authorization_code" {
			t.Errorf("grant_type = %q, want authorization_code", got)
		}
		if got := r.Form.Get("code"); got != "abc123" {
			t.Errorf("code = %q, want abc123", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"access-1","refresh_token":"refresh-1","token_type":"Bearer","expires_in":3600,"api_domain":"https://www.zohoapis.com"}`))
	}))
	defer server.Close()

	flow, store := newTestFlow(t, server.URL, "http://localhost:8080/oauth/callback",
		WithHTTPClient(server.Client()))

	record, err := flow.Exchange(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if record.RefreshToken != "refresh-1" {
		t.Errorf("RefreshToken = %q, want refresh-1", record.RefreshToken)
	}

	persisted, err := store.Read(context.Background())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if persisted.AccessToken != "access-1" || persisted.RefreshToken != "refresh-1" {
		t.Errorf("persisted record = %+v", persisted)
	}
	if persisted.APIDomain != "https://www.zohoapis.com" {
		t.Errorf("APIDomain = %q", persisted.APIDomain)
	}
}

func TestExchangeRejectsMissingRefreshToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"access-1","token_type":"Bearer","expires_in":3600}`))
	}))
	defer server.Close()

	flow, store := newTestFlow(t, server.URL, "http://localhost:8080/oauth/callback",
		WithHTTPClient(server.Client()))

	if _, err := flow.Exchange(context.Background(), "abc123"); err == nil {
		t.Fatal("expected error when no refresh token is returned")
	}

	if _, err := store.Read(context.Background()); err == nil {
		t.Error("no record should be persisted on a failed exchange")
	}
}

func TestCallbackHandler(t *testing.T) {
	flow, _ := newTestFlow(t, "https://accounts.zoho.com", "http://127.0.0.1:18080/oauth/callback")

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "valid redirect",
			query:      "state=" + flow.state + "&code=abc123",
			wantStatus: http.StatusOK,
			wantCode:   "abc123",
		},
		{
			name:       "state mismatch",
			query:      "state=other&code=abc123",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "authorization error",
			query:      "error=access_denied",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing code",
			query:      "state=" + flow.state,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			codeCh := make(chan string, 1)
			handler := flow.callbackHandler(codeCh)

			req := httptest.NewRequest(http.MethodGet, "/oauth/callback?"+tt.query, nil)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			select {
			case code := <-codeCh:
				if code != tt.wantCode {
					t.Errorf("delivered code = %q, want %q", code, tt.wantCode)
				}
			default:
				if tt.wantCode != "" {
					t.Error("no code delivered")
				}
			}
		})
	}
}

func TestWaitForCode(t *testing.T) {
	// Reserve a free loopback port for the callback server
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	addr := listener.Addr().String()
	_ = listener.Close()

	redirectURI := fmt.Sprintf("http://%s/oauth/callback", addr)
	flow, _ := newTestFlow(t, "https://accounts.zoho.com", redirectURI)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resultCh := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		code, err := flow.WaitForCode(ctx)
		if err != nil {
			errCh <- err
			return
		}
		resultCh <- code
	}()

	// Simulate the browser redirect once the server is up
	redirect := redirectURI + "?state=" + flow.state + "&code=abc123"
	var resp *http.Response
	for range 50 {
		resp, err = http.Get(redirect)
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("callback request never succeeded: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("callback status = %d, want 200", resp.StatusCode)
	}

	select {
	case code := <-resultCh:
		if code != "abc123" {
			t.Errorf("code = %q, want abc123", code)
		}
	case err := <-errCh:
		t.Fatalf("WaitForCode: %v", err)
	case <-ctx.Done():
		t.Fatal("timed out waiting for code")
	}
}

func TestWaitForCodeRejectsPortlessRedirect(t *testing.T) {
	flow, _ := newTestFlow(t, "https://accounts.zoho.com", "https://example.com/oauth/callback")

	if _, err := flow.WaitForCode(context.Background()); err == nil {
		t.Error("expected error for redirect URI without a port")
	}
}

func TestNewRequiresClientCredentials(t *testing.T) {
	store, err := tokenstore.NewFileStore(filepath.Join(t.TempDir(), "tokens.json"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	cfg := tokensource.NewConfig("", "", "http://localhost:8080/oauth/callback", "", "")
	if _, err := New(cfg, store); err == nil {
		t.Error("expected error for missing client credentials")
	}
}

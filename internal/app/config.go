package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"golang.org/x/oauth2"

	"github.com/zentriq/crmagent/internal/agent"
	"github.com/zentriq/crmagent/internal/tokensource"
	"github.com/zentriq/crmagent/internal/tokenstore"
)

// LogFormat represents the logging output format.
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// TokenStorageType represents the different storage types supported for token records.
type TokenStorageType string

const (
	TokenStorageTypeFile    TokenStorageType = "file"
	TokenStorageTypeEnv     TokenStorageType = "env"
	TokenStorageTypeKeyring TokenStorageType = "keyring"
)

// Default configuration values
const (
	DefaultConfigLogFormat      = LogFormatText
	DefaultConfigLLMProvider    = agent.ProviderGoogle
	DefaultConfigGoogleModel    = "gemini-2.5-flash"
	DefaultConfigAnthropicModel = "claude-sonnet-4-20250514"
	DefaultConfigRedirectURI    = "http://localhost:8080/oauth/callback"
	DefaultConfigAuthStorage    = TokenStorageTypeFile
	DefaultConfigMaxIterations  = agent.DefaultMaxIterations
)

// MCPConfig holds the remote tool server configuration.
type MCPConfig struct {
	// Endpoint is the MCP server's streamable HTTP URL.
	Endpoint string `json:"endpoint" validate:"required,url"`
}

// LLMConfig holds the language model provider configuration.
type LLMConfig struct {
	Provider    agent.Provider `json:"provider" validate:"required,oneof=google anthropic"`
	APIKey      string         `json:"api_key" validate:"required"`
	Model       string         `json:"model"`
	Temperature float64        `json:"temperature" validate:"gte=0,lte=2"`
}

// ZohoConfig holds the OAuth client credentials for the Zoho accounts server.
// When ClientID is empty, the agent connects to the MCP endpoint without a
// bearer token (the endpoint URL itself must then carry the authentication).
type ZohoConfig struct {
	ClientID       string `json:"client_id"`
	ClientSecret   string `json:"client_secret" validate:"required_with=ClientID"`
	RedirectURI    string `json:"redirect_uri" validate:"omitempty,url"`
	Scope          string `json:"scope"`
	AccountsServer string `json:"accounts_server" validate:"omitempty,url"`
}

// AuthConfig describes where token records are persisted.
type AuthConfig struct {
	// Storage configuration - where the token record lives
	Storage TokenStorageType `json:"storage" validate:"required,oneof=file env keyring"`

	// Storage-specific settings (mutually exclusive based on Storage type)
	File        string `json:"file,omitempty"`         // For file storage: path to token record file
	EnvKey      string `json:"env_key,omitempty"`      // For env storage: environment variable holding a refresh token
	KeyringUser string `json:"keyring_user,omitempty"` // For keyring storage: user identifier
}

// NewTokenStore creates a Store from the authentication configuration.
func (a *AuthConfig) NewTokenStore() (tokenstore.Store, error) {
	switch a.Storage {
	case TokenStorageTypeFile:
		return tokenstore.NewFileStore(a.File)
	case TokenStorageTypeEnv:
		return tokenstore.NewEnvStore(a.EnvKey)
	case TokenStorageTypeKeyring:
		return tokenstore.NewKeyringStore("crmagent-token", a.KeyringUser)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", a.Storage)
	}
}

// AgentConfig tunes the reasoning loop.
type AgentConfig struct {
	MaxIterations int  `json:"max_iterations" validate:"gte=0"`
	Verbose       bool `json:"verbose"`
}

// Config holds the application's configuration.
type Config struct {
	// LogLevel for logging output (defaults to Info if unset).
	LogLevel  slog.Level  `json:"log_level"`
	LogFormat LogFormat   `json:"log_format" validate:"oneof=text json"`
	MCP       MCPConfig   `json:"mcp"`
	LLM       LLMConfig   `json:"llm"`
	Zoho      ZohoConfig  `json:"zoho"`
	Auth      AuthConfig  `json:"auth"`
	Agent     AgentConfig `json:"agent"`
}

// Default creates a new Config with default values applied.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}
	return cfg, nil
}

// ApplyDefaults fills unset config fields with sensible defaults.
func (c *Config) ApplyDefaults() error {
	if c.LogFormat == "" {
		c.LogFormat = DefaultConfigLogFormat
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = DefaultConfigLLMProvider
	}
	if c.LLM.Model == "" {
		switch c.LLM.Provider {
		case agent.ProviderAnthropic:
			c.LLM.Model = DefaultConfigAnthropicModel
		default:
			c.LLM.Model = DefaultConfigGoogleModel
		}
	}
	if c.LLM.APIKey == "" {
		// Provider-native variables, same as the SDKs themselves honor
		switch c.LLM.Provider {
		case agent.ProviderAnthropic:
			c.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		default:
			c.LLM.APIKey = os.Getenv("GOOGLE_API_KEY")
		}
	}
	if c.Zoho.RedirectURI == "" {
		c.Zoho.RedirectURI = DefaultConfigRedirectURI
	}
	if c.Zoho.Scope == "" {
		c.Zoho.Scope = tokensource.DefaultScope
	}
	if c.Zoho.AccountsServer == "" {
		c.Zoho.AccountsServer = tokensource.DefaultAccountsServer
	}
	if c.Auth.Storage == "" {
		c.Auth.Storage = DefaultConfigAuthStorage
	}
	if c.Agent.MaxIterations == 0 {
		c.Agent.MaxIterations = DefaultConfigMaxIterations
	}

	// Dynamic defaults based on storage type
	switch c.Auth.Storage {
	case TokenStorageTypeFile:
		if c.Auth.File == "" {
			configDir, err := os.UserConfigDir()
			if err != nil {
				return fmt.Errorf("auth.file required (auto-detect failed: %w)", err)
			}
			c.Auth.File = filepath.Join(configDir, "crmagent", "tokens.json")
		}
	case TokenStorageTypeKeyring:
		if c.Auth.KeyringUser == "" {
			currentUser, err := user.Current()
			if err != nil {
				return fmt.Errorf("auth.keyring_user required (auto-detect failed: %w)", err)
			}
			c.Auth.KeyringUser = currentUser.Username
		}
	case TokenStorageTypeEnv:
		// env_key must be explicitly configured (no sensible default)
	}

	return nil
}

// Validate validates the configuration using struct tags and cross-field rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	switch c.Auth.Storage {
	case TokenStorageTypeFile:
		if c.Auth.File == "" {
			return errors.New("file path required for file storage")
		}
	case TokenStorageTypeEnv:
		if c.Auth.EnvKey == "" {
			return errors.New("env_key required for env storage")
		}
	case TokenStorageTypeKeyring:
		if c.Auth.KeyringUser == "" {
			return errors.New("keyring_user required for keyring storage")
		}
	}

	return nil
}

// OAuthConfigured reports whether Zoho OAuth credentials are present.
func (c *Config) OAuthConfigured() bool {
	return c.Zoho.ClientID != ""
}

// NewOAuthConfig builds the oauth2 configuration for the Zoho accounts server.
func (c *Config) NewOAuthConfig() *oauth2.Config {
	return tokensource.NewConfig(
		c.Zoho.ClientID,
		c.Zoho.ClientSecret,
		c.Zoho.RedirectURI,
		c.Zoho.Scope,
		c.Zoho.AccountsServer,
	)
}

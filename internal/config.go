package internal

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Embedding providers.
const (
	ProviderHash   = "hash"
	ProviderOpenAI = "openai"
)

// EnvUserDir overrides journal.user_root when set.
const EnvUserDir = "JOURNAL_USER_DIR"

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Journal   JournalConfig     `yaml:"journal"`
	Embedding EmbeddingConfig   `yaml:"embedding"`
	Search    SearchConfig      `yaml:"search"`
	Auth      AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Journal.Validate(); err != nil {
		return err
	}
	if err := c.Embedding.Validate(); err != nil {
		return err
	}
	if err := c.Search.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplyEnv applies environment overrides that are not expressed through
// ${VAR} expansion in the config file.
func (c *Config) ApplyEnv() {
	if dir := os.Getenv(EnvUserDir); dir != "" {
		c.Journal.UserRoot = dir
	}
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// JournalConfig locates the two journal roots.
type JournalConfig struct {
	ProjectRoot string `yaml:"project_root"`
	UserRoot    string `yaml:"user_root"`
}

// Validate validates the journal configuration.
func (c *JournalConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ProjectRoot, validation.Required),
		validation.Field(&c.UserRoot, validation.Required),
	)
}

// EmbeddingConfig selects and configures the embedding provider.
//
// Provider "hash" runs offline and needs nothing else. Provider "openai"
// talks to any OpenAI-compatible /embeddings endpoint (OpenAI, llama.cpp,
// Ollama) and requires Model; Dimensions, when set, is enforced on every
// returned vector.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	Dimensions int    `yaml:"dimensions"`
	MaxRetries int    `yaml:"max_retries"`
}

// Validate validates the embedding configuration.
func (c *EmbeddingConfig) Validate() error {
	if c.Provider == "" {
		c.Provider = ProviderHash
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Provider, validation.Required, validation.In(ProviderHash, ProviderOpenAI)),
		validation.Field(&c.Model, validation.When(c.Provider == ProviderOpenAI, validation.Required)),
		validation.Field(&c.Dimensions, validation.Min(0)),
		validation.Field(&c.MaxRetries, validation.Min(0)),
	)
}

// SearchConfig tunes search result shaping.
type SearchConfig struct {
	DefaultLimit  int `yaml:"default_limit"`
	ExcerptLength int `yaml:"excerpt_length"`
	Workers       int `yaml:"workers"`
}

// Validate validates the search configuration.
func (c *SearchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DefaultLimit, validation.Min(0)),
		validation.Field(&c.ExcerptLength, validation.Min(0)),
		validation.Field(&c.Workers, validation.Min(0), validation.Max(256)),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	userRoot := ".ai-journal"
	if home, err := os.UserHomeDir(); err == nil {
		userRoot = filepath.Join(home, ".ai-journal")
	}
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Journal: JournalConfig{
			ProjectRoot: "./.ai-journal",
			UserRoot:    userRoot,
		},
		Embedding: EmbeddingConfig{
			Provider:   ProviderHash,
			MaxRetries: 2,
		},
		Search: SearchConfig{
			DefaultLimit:  10,
			ExcerptLength: 200,
			Workers:       8,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}

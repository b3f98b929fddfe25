// Package config loads application configuration from environment variables.
// A .env file in the working directory, when present, is loaded first; real
// environment variables win over it.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// minSecretLen is the shortest JWT signing secret Load accepts.
const minSecretLen = 16

// Config holds all application configuration.
type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"development"`
	Port   int    `env:"PORT" envDefault:"5002"`

	DBPath string `env:"DB_PATH" envDefault:"data/qi.db"`

	// Auth
	JWTSecret  string        `env:"JWT_SECRET,required"`
	TokenTTL   time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	BcryptCost int           `env:"BCRYPT_COST" envDefault:"10"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:""`

	// Literature-search microservice
	LiteratureBaseURL string        `env:"LITERATURE_BASE_URL" envDefault:"http://127.0.0.1:5001"`
	LiteratureTimeout time.Duration `env:"LITERATURE_TIMEOUT" envDefault:"120s"`

	// LLM (OpenAI-compatible chat completions)
	OpenAIBaseURL string        `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	OpenAIModel   string        `env:"OPENAI_MODEL" envDefault:"gpt-4"`
	OpenAITimeout time.Duration `env:"OPENAI_TIMEOUT" envDefault:"30s"`

	// Google Drive. Document generation is disabled when no credentials file is set.
	GoogleCredentialsFile string `env:"GOOGLE_CREDENTIALS_FILE"`
	DriveFolderID         string `env:"DRIVE_FOLDER_ID"`
	DriveShareRole        string `env:"DRIVE_SHARE_ROLE" envDefault:"reader"`

	// Mail. Without SMTP_HOST notifications are only logged.
	SMTPHost string `env:"SMTP_HOST"`
	SMTPPort int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser string `env:"SMTP_USER"`
	SMTPPass string `env:"SMTP_PASS"`
	MailFrom string `env:"MAIL_FROM"`

	// Directory for generated CSV files before upload. Empty means os.TempDir().
	TmpDir string `env:"TMP_DIR"`

	// Comma-separated list of allowed origins; "*" allows any.
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`

	// Per-client-IP limit: RateLimitRequests per RateLimitWindow.
	RateLimitEnabled  bool          `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitRequests int           `env:"RATE_LIMIT_REQUESTS" envDefault:"100"`
	RateLimitWindow   time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"15m"`

	// Server timeouts. WriteTimeout must outlast a full document generation.
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"180s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// JSONLogs reports whether logs should be emitted as JSON. An explicit
// LOG_FORMAT wins; otherwise development logs are text.
func (c *Config) JSONLogs() bool {
	switch strings.ToLower(c.LogFormat) {
	case "json":
		return true
	case "text":
		return false
	}
	return !c.IsDevelopment()
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// DriveEnabled reports whether Drive credentials were configured.
func (c *Config) DriveEnabled() bool {
	return c.GoogleCredentialsFile != ""
}

// SMTPEnabled reports whether an SMTP relay was configured.
func (c *Config) SMTPEnabled() bool {
	return c.SMTPHost != ""
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))
	for _, origin := range origins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// Load reads an optional .env file, parses the environment and validates the
// result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.JWTSecret) < minSecretLen {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", minSecretLen)
	}
	if c.RateLimitEnabled && (c.RateLimitRequests <= 0 || c.RateLimitWindow <= 0) {
		return errors.New("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be positive")
	}
	if c.MailFrom == "" {
		c.MailFrom = c.SMTPUser
	}
	return nil
}

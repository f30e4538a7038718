package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
//
// Values from the file can be overridden by the environment variables named in the env tags.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Log         LogConfig         `toml:"log"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Tidal TidalConfig `toml:"tidal"`
}

// TidalConfig contains Tidal API credentials and client settings.
type TidalConfig struct {
	ClientID          string   `toml:"client_id" env:"TIDAL_CLIENT_ID" env-description:"Tidal application client id"`
	ClientSecret      string   `toml:"client_secret" env:"TIDAL_CLIENT_SECRET" env-description:"Tidal application client secret"`
	RedirectURI       string   `toml:"redirect_uri" env:"TIDAL_REDIRECT_URI" env-description:"OAuth redirect URI registered with Tidal"`
	Scopes            []string `toml:"scopes" env:"TIDAL_SCOPES" env-separator:" " env-description:"Space separated OAuth scopes"`
	CountryCode       string   `toml:"country_code" env:"TIDAL_COUNTRY_CODE" env-description:"Country code sent with every API request"`
	RequestsPerSecond float64  `toml:"requests_per_second" env:"TIDAL_REQUESTS_PER_SECOND" env-description:"Outbound request rate limit"`
	TimeoutSeconds    int      `toml:"timeout_seconds" env:"TIDAL_TIMEOUT_SECONDS" env-description:"HTTP timeout for Tidal calls, 0 disables it"`
}

// Map returns the credentials in the form accepted by services.NewTidalService.
func (c TidalConfig) Map() map[string]string {
	return map[string]string{
		"client_id":     c.ClientID,
		"client_secret": c.ClientSecret,
		"redirect_uri":  c.RedirectURI,
		"country_code":  c.CountryCode,
		"scopes":        strings.Join(c.Scopes, " "),
	}
}

// Timeout returns the configured HTTP timeout as a [time.Duration].
func (c TidalConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path" env:"DATABASE_PATH" env-description:"SQLite database file"`
	MaxOpenConns int    `toml:"max_open_conns" env:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns int    `toml:"max_idle_conns" env:"DATABASE_MAX_IDLE_CONNS"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host           string   `toml:"host" env:"HOST" env-description:"Address the HTTP server binds to"`
	Port           int      `toml:"port" env:"PORT" env-description:"HTTP server port"`
	FrontendURL    string   `toml:"frontend_url" env:"FRONTEND_URL" env-description:"Base URL the OAuth callback redirects to"`
	StaticDir      string   `toml:"static_dir" env:"STATIC_DIR" env-description:"Built front end served at /, empty to disable"`
	AllowedOrigins []string `toml:"allowed_origins" env:"ALLOWED_ORIGINS" env-separator:"," env-description:"CORS origins, * for any"`
	UserKey        string   `toml:"user_key" env:"USER_KEY" env-description:"Key the Tidal credential is stored under"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level" env:"LOG_LEVEL" env-description:"debug, info, warn or error"`
}

// Validate reports configuration that would make the Tidal client unusable.
func (c *Config) Validate() error {
	if c.Credentials.Tidal.ClientID == "" || c.Credentials.Tidal.ClientSecret == "" {
		return fmt.Errorf("%w: tidal client_id and client_secret must be set", ErrMissingCredentials)
	}
	if c.Server.UserKey == "" {
		return fmt.Errorf("%w: server.user_key must not be empty", ErrInvalidConfig)
	}
	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrMissingConfig, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// ResolveConfig loads path when it exists (defaults otherwise) and applies environment overrides.
func ResolveConfig(path string) (*Config, error) {
	config := DefaultConfig()
	if path != "" {
		loaded, err := LoadConfig(path)
		switch {
		case errors.Is(err, ErrMissingConfig):
			// defaults
		case err != nil:
			return nil, err
		default:
			config = loaded
		}
	}

	if err := ApplyEnv(config); err != nil {
		return nil, err
	}
	return config, nil
}

// ApplyEnv overrides config fields with any environment variables that are set.
func ApplyEnv(config *Config) error {
	if err := cleanenv.ReadEnv(config); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// LoadDotEnv loads variables from a .env file into the process environment.
//
// A missing file is not an error; variables already set are left untouched.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// EnvHelp describes every environment variable understood by [ApplyEnv].
func EnvHelp() (string, error) {
	var config Config
	return cleanenv.GetDescription(&config, nil)
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	// Check if file already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

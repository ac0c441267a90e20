package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	OAuth         OAuthConfig        `toml:"oauth"`
	Database      DatabaseConfig     `toml:"database"`
	Notifications NotificationConfig `toml:"notifications"`
}

// OAuthConfig contains the loopback listener settings and the identity provider credentials.
//
// Port is part of the redirect URI registered with the provider and is never renegotiated at runtime.
type OAuthConfig struct {
	Port         int      `toml:"port"`
	AppName      string   `toml:"app_name"`
	Timeout      Duration `toml:"timeout"`
	ClientID     string   `toml:"client_id"`
	ClientSecret string   `toml:"client_secret"`
	AuthURL      string   `toml:"auth_url"`
	TokenURL     string   `toml:"token_url"`
	Scopes       []string `toml:"scopes"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// NotificationConfig controls desktop notifications for delivered callbacks.
type NotificationConfig struct {
	Enabled bool   `toml:"enabled"`
	Title   string `toml:"title"`
}

// Duration wraps [time.Duration] so it can be written as a string ("2m", "90s") in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: duration %q: %v", ErrInvalidConfig, text, err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ListenPort returns the configured port after validating it.
func (c OAuthConfig) ListenPort() (uint16, error) {
	if c.Port < 1 || c.Port > 65535 {
		return 0, fmt.Errorf("%w: %d is outside 1-65535", ErrInvalidPort, c.Port)
	}
	return uint16(c.Port), nil
}

// RedirectURI returns the loopback redirect URI that must be registered with the identity provider.
func (c OAuthConfig) RedirectURI() string {
	return fmt.Sprintf("http://127.0.0.1:%d/", c.Port)
}

// Validate checks the settings the listener and the host wait loop depend on.
func (c *Config) Validate() error {
	if _, err := c.OAuth.ListenPort(); err != nil {
		return err
	}
	if c.OAuth.Timeout.Duration <= 0 {
		return fmt.Errorf("%w: oauth.timeout must be positive", ErrInvalidConfig)
	}
	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values of [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
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

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: config file already exists at %s", ErrInvalidArgument, path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	DefaultAddr        = ":8080"
	DefaultUpstreamURL = "http://localhost:1339"
	DefaultRelayURL    = "http://localhost:8080"
)

// Config is built once at startup and handed to the relay and the client.
type Config struct {
	Addr        string `toml:"addr"`
	UpstreamURL string `toml:"upstream_url"`
	RelayURL    string `toml:"relay_url"`
	Dev         bool   `toml:"dev"`
	LogPath     string `toml:"log_path"`

	// Credentials only ever come from the process environment.
	Credentials Credentials `toml:"-"`
}

// Credentials are the provider tokens forwarded to the upstream.
type Credentials struct {
	DeepSeekAPIKey  string
	AnthropicAPIKey string
}

// Present reports whether both tokens are set.
func (c Credentials) Present() bool {
	return c.DeepSeekAPIKey != "" && c.AnthropicAPIKey != ""
}

func (c Credentials) String() string {
	return "Credentials{redacted}"
}

func (c Credentials) GoString() string {
	return c.String()
}

func Default() Config {
	return Config{
		Addr:        DefaultAddr,
		UpstreamURL: DefaultUpstreamURL,
		RelayURL:    DefaultRelayURL,
	}
}

// Load layers defaults, the optional TOML file at path, and environment
// variables (a .env file in the working directory is read first).
func Load(path string) (Config, error) {
	cfg := Default()

	// a missing .env is normal outside development
	_ = godotenv.Load()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return cfg, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if v := os.Getenv("RELAY_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("UPSTREAM_URL"); v != "" {
		cfg.UpstreamURL = v
	}
	if v := os.Getenv("RELAY_URL"); v != "" {
		cfg.RelayURL = v
	}

	cfg.Credentials = Credentials{
		DeepSeekAPIKey:  os.Getenv("DEEPSEEK_API_KEY"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
	}

	return cfg, nil
}

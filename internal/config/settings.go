package config

import (
	"errors"
	"os"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const defaultBaseURL = "http://127.0.0.1:8000"

const (
	envBaseURL = "CONDUIT_BASE_URL"
	envTenant  = "CONDUIT_TENANT"
)

type Config struct {
	Backend BackendConfig `toml:"backend"`
	Logging LoggingConfig `toml:"logging"`
	Debug   DebugConfig   `toml:"debug"`
}

type BackendConfig struct {
	BaseURL        string `toml:"base_url"`
	Tenant         string `toml:"tenant"`
	RequestTimeout string `toml:"request_timeout"`
}

type LoggingConfig struct {
	Level string `toml:"level"`
}

type DebugConfig struct {
	StreamDebug bool `toml:"stream_debug"`
}

func Default() Config {
	return Config{
		Backend: BackendConfig{
			BaseURL: defaultBaseURL,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the config file (if present), applies environment overrides
// and returns the effective configuration.
func Load() (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Config{}, err
	}
	return loadFromPath(path)
}

func loadFromPath(path string) (Config, error) {
	cfg := Default()
	if err := readTOML(path, &cfg); err != nil {
		return Config{}, err
	}
	if raw := strings.TrimSpace(os.Getenv(envBaseURL)); raw != "" {
		cfg.Backend.BaseURL = raw
	}
	if raw := strings.TrimSpace(os.Getenv(envTenant)); raw != "" {
		cfg.Backend.Tenant = raw
	}
	return cfg, nil
}

func (c Config) BaseURL() string {
	url := strings.TrimSpace(c.Backend.BaseURL)
	if url == "" {
		return defaultBaseURL
	}
	return strings.TrimRight(url, "/")
}

func (c Config) Tenant() string {
	return strings.TrimSpace(c.Backend.Tenant)
}

func (c Config) RequestTimeout() time.Duration {
	raw := strings.TrimSpace(c.Backend.RequestTimeout)
	if raw == "" {
		return 10 * time.Second
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

func (c Config) LogLevel() string {
	level := strings.TrimSpace(c.Logging.Level)
	if level == "" {
		return "info"
	}
	return level
}

func (c Config) StreamDebugEnabled() bool {
	return c.Debug.StreamDebug
}

// Render returns the effective configuration as TOML.
func (c Config) Render() (string, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func readTOML(path string, out any) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	return toml.Unmarshal(data, out)
}

// EnsureDataDir creates the data directory if it does not exist yet.
func EnsureDataDir() (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return "", err
	}
	return dataDir, nil
}

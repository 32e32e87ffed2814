package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"
)

// EnvConfigFile names the environment variable pointing at a YAML config file.
const EnvConfigFile = "FSCTL_CONFIG"

// Config holds the client settings. Values come from, in increasing order of
// precedence: defaults, the YAML file, the environment, command-line flags.
type Config struct {
	// Service endpoint
	Endpoint string        `yaml:"endpoint" env:"FILESTORE_API_URL,overwrite,default=http://localhost:8181"`
	Timeout  time.Duration `yaml:"timeout" env:"FILESTORE_TIMEOUT,overwrite"`

	// Logging
	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL,overwrite,default=warn"`
	LogFormat string `yaml:"log_format" env:"LOG_FORMAT,overwrite,default=text"`
}

// Load reads the optional YAML file at path and applies environment overrides.
func Load(ctx context.Context, path string) (*Config, error) {
	var cfg Config
	if strings.TrimSpace(path) != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("config: process environment: %w", err)
	}
	return &cfg, nil
}

// Validate checks the settings a client cannot start without.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return fmt.Errorf("config: invalid endpoint %q: %w", c.Endpoint, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: endpoint %q must be an absolute http(s) URL", c.Endpoint)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("config: timeout must not be negative, got %s", c.Timeout)
	}
	return nil
}

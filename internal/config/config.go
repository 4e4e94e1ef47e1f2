// Package config loads gateway settings from an optional YAML or TOML file
// and the process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// DefaultAllowedOrigins are the origins granted CORS access when none are configured.
var DefaultAllowedOrigins = []string{
	"https://claude.ai",
	"https://sm-gateway-a.jstewart-12a.workers.dev",
	"https://sm-gateway-c.jstewart-12a.workers.dev",
}

type Config struct {
	Port           string   `yaml:"port" toml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" toml:"allowed_origins"`
	Catalog        string   `yaml:"catalog" toml:"catalog"`
	TLSCertFile    string   `yaml:"tls_cert_file" toml:"tls_cert_file"`
	TLSKeyFile     string   `yaml:"tls_key_file" toml:"tls_key_file"`
	Azure          Azure    `yaml:"azure" toml:"azure"`
	Log            Log      `yaml:"log" toml:"log"`

	// ProviderTimeout bounds each cloud call, as a Go duration string.
	ProviderTimeout string `yaml:"provider_timeout" toml:"provider_timeout"`
}

type Azure struct {
	TenantID       string `yaml:"tenant_id" toml:"tenant_id"`
	ClientID       string `yaml:"client_id" toml:"client_id"`
	ClientSecret   string `yaml:"client_secret" toml:"client_secret"`
	SubscriptionID string `yaml:"subscription_id" toml:"subscription_id"`
}

type Log struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

func defaults() Config {
	return Config{
		Port:            "3000",
		AllowedOrigins:  append([]string(nil), DefaultAllowedOrigins...),
		Catalog:         "full",
		ProviderTimeout: "30s",
		Log:             Log{Level: "info", Format: "text"},
	}
}

// Load reads path (if non-empty) over the defaults, then applies environment
// overrides. Files ending in .toml are TOML; anything else is YAML.
func Load(path string) (Config, error) {
	cfg := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if strings.EqualFold(filepath.Ext(path), ".toml") {
			err = toml.Unmarshal(data, &cfg)
		} else {
			err = yaml.Unmarshal(data, &cfg)
		}
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Port, "PORT")
	setString(&cfg.Catalog, "TOOL_CATALOG")
	setString(&cfg.ProviderTimeout, "PROVIDER_TIMEOUT")
	setString(&cfg.TLSCertFile, "TLS_CERT_FILE")
	setString(&cfg.TLSKeyFile, "TLS_KEY_FILE")
	setString(&cfg.Azure.TenantID, "AZURE_TENANT_ID")
	setString(&cfg.Azure.ClientID, "AZURE_CLIENT_ID")
	setString(&cfg.Azure.ClientSecret, "AZURE_CLIENT_SECRET")
	setString(&cfg.Azure.SubscriptionID, "AZURE_SUBSCRIPTION_ID")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.Format, "LOG_FORMAT")
	if v, ok := os.LookupEnv("CORS_ALLOWED_ORIGINS"); ok {
		cfg.AllowedOrigins = splitCSV(v)
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func splitCSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Timeout parses ProviderTimeout.
func (c Config) Timeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.ProviderTimeout)
	if err != nil {
		return 0, fmt.Errorf("provider_timeout: %w", err)
	}
	return d, nil
}

// HasCredentials reports whether a full service principal is configured.
func (c Config) HasCredentials() bool {
	a := c.Azure
	return a.TenantID != "" && a.ClientID != "" && a.ClientSecret != "" && a.SubscriptionID != ""
}

// Validate checks the settings the server cannot start without.
func (c Config) Validate() error {
	var errs []error
	switch c.Catalog {
	case "full", "minimal":
	default:
		errs = append(errs, fmt.Errorf("catalog must be full or minimal, got %q", c.Catalog))
	}
	if d, err := c.Timeout(); err != nil {
		errs = append(errs, err)
	} else if d <= 0 {
		errs = append(errs, errors.New("provider_timeout must be positive"))
	}
	if c.Catalog == "full" && c.Azure.SubscriptionID == "" {
		errs = append(errs, errors.New("azure subscription id is required for the full catalog"))
	}
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		errs = append(errs, errors.New("tls_cert_file and tls_key_file must be set together"))
	}
	return errors.Join(errs...)
}

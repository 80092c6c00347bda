package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"go.uber.org/zap/zapcore"

	"github.com/ekaya-inc/sqlparams/pkg/sql"
)

// DefaultConfigPath is read when SQLPARAMS_CONFIG is not set.
const DefaultConfigPath = "config.yaml"

// Injection screening modes for supplied parameter values.
const (
	InjectionModeOff    = "off"
	InjectionModeWarn   = "warn"
	InjectionModeReject = "reject"
)

// Config holds all configuration for sqlparams.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"3480"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	Log       LogConfig       `yaml:"log"`
	Templates TemplatesConfig `yaml:"templates"`
	Auth      AuthConfig      `yaml:"auth"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"` // json or console
}

// TemplatesConfig controls template processing.
type TemplatesConfig struct {
	// File is an optional YAML template library.
	File string `yaml:"file" env:"TEMPLATES_FILE" env-default:""`
	// Scanner selects placeholder scanning: "regex" (default) or "lexical".
	Scanner string `yaml:"scanner" env:"TEMPLATES_SCANNER" env-default:"regex"`
	// MaxBytes rejects templates larger than this.
	MaxBytes int `yaml:"max_bytes" env:"TEMPLATES_MAX_BYTES" env-default:"65536"`
	// InjectionMode is off, warn or reject.
	InjectionMode string `yaml:"injection_mode" env:"TEMPLATES_INJECTION_MODE" env-default:"warn"`
}

// AuthConfig holds authentication-related configuration.
type AuthConfig struct {
	// Required puts JWT authentication in front of /api and /mcp.
	Required bool `yaml:"required" env:"AUTH_REQUIRED" env-default:"false"`

	// EnableVerification controls whether JWT signatures are verified.
	// Set to false for local development without an auth server.
	EnableVerification bool `yaml:"enable_verification" env:"AUTH_ENABLE_VERIFICATION" env-default:"true"`

	// JWKSEndpointsStr is a comma-separated list of issuer=jwks_url pairs.
	// Format: "issuer1=url1,issuer2=url2"
	JWKSEndpointsStr string `yaml:"jwks_endpoints" env:"JWKS_ENDPOINTS" env-default:""`

	// JWKSEndpoints is the parsed map from JWKSEndpointsStr (not from config file).
	JWKSEndpoints map[string]string `yaml:"-"`

	// MCPRole, when set, is required in the token roles claim for /mcp.
	MCPRole string `yaml:"mcp_role" env:"AUTH_MCP_ROLE" env-default:""`
}

// Load reads configuration from the file named by SQLPARAMS_CONFIG (or
// config.yaml) with environment variable overrides. A missing file is not an
// error; configuration then comes from the environment alone.
func Load(version string) (*Config, error) {
	path := os.Getenv("SQLPARAMS_CONFIG")
	if path == "" {
		path = DefaultConfigPath
	}
	return LoadFile(path, version)
}

// LoadFile is Load with an explicit path.
func LoadFile(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	cfg.Auth.JWKSEndpoints = parseJWKSEndpoints(cfg.Auth.JWKSEndpointsStr)
	cfg.BindAddr = ResolveBindAddr(cfg.BindAddr)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks values that cleanenv cannot.
func (c *Config) Validate() error {
	if _, err := sql.ScannerByName(c.Templates.Scanner); err != nil {
		return fmt.Errorf("templates.scanner: %w", err)
	}

	switch c.Templates.InjectionMode {
	case InjectionModeOff, InjectionModeWarn, InjectionModeReject:
	default:
		return fmt.Errorf("templates.injection_mode must be one of off, warn, reject (got %q)", c.Templates.InjectionMode)
	}

	if c.Templates.MaxBytes <= 0 {
		return fmt.Errorf("templates.max_bytes must be positive (got %d)", c.Templates.MaxBytes)
	}

	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console (got %q)", c.Log.Format)
	}

	if c.Auth.Required && c.Auth.EnableVerification && len(c.Auth.JWKSEndpoints) == 0 {
		return errors.New("auth.jwks_endpoints is required when auth is required and verification is enabled")
	}

	return nil
}

// ListenAddr returns host:port for the HTTP server.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.BindAddr, c.Port)
}

// parseJWKSEndpoints parses the JWKS endpoints string into a map.
// Format: "issuer1=url1,issuer2=url2"
func parseJWKSEndpoints(value string) map[string]string {
	endpoints := make(map[string]string)
	if value == "" {
		return endpoints
	}

	for _, pair := range strings.Split(value, ",") {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) == 2 {
			endpoints[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	return endpoints
}

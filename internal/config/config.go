// Package config loads moorage configuration.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// environment variables. Environment variables always win.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	DynamoDB DynamoDBConfig `yaml:"dynamodb"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port"`
	Timeouts TimeoutConfig `yaml:"timeouts"`
}

// TimeoutConfig contains HTTP timeouts in seconds.
type TimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// DynamoDBConfig contains document store settings.
type DynamoDBConfig struct {
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`

	// Static credentials, typically for DynamoDB Local.
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`

	// InMemory replaces DynamoDB with process-local repositories.
	InMemory bool `yaml:"in_memory"`

	Tables        TablesConfig `yaml:"tables"`
	Indexes       IndexConfig  `yaml:"indexes"`
	MaxIDAttempts int          `yaml:"max_id_attempts"`
}

// TablesConfig names the table of each entity kind.
type TablesConfig struct {
	Boats string `yaml:"boats"`
	Loads string `yaml:"loads"`
	Users string `yaml:"users"`
}

// IndexConfig names the global secondary indexes.
type IndexConfig struct {
	Owner   string `yaml:"owner"`
	Carrier string `yaml:"carrier"`
}

// AuthConfig contains bearer token verification settings.
type AuthConfig struct {
	Algorithm     string `yaml:"algorithm"`
	Secret        string `yaml:"secret"`
	PublicKeyFile string `yaml:"public_key_file"`
	Issuer        string `yaml:"issuer"`
	Audience      string `yaml:"audience"`
	LeewaySeconds int    `yaml:"leeway_seconds"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from path (optional, "" skips the file),
// applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	return load(path, (*Config).Validate)
}

// LoadStore is Load for processes that only talk to the document store,
// such as the stream sweeper. Server and auth settings are not validated.
func LoadStore(path string) (*Config, error) {
	return load(path, (*Config).ValidateStore)
}

func load(path string, validate func(*Config) error) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: TimeoutConfig{
				Read:  10,
				Write: 30,
				Idle:  60,
			},
		},
		DynamoDB: DynamoDBConfig{
			Region: "us-east-1",
			Tables: TablesConfig{
				Boats: "boats",
				Loads: "loads",
				Users: "users",
			},
			Indexes: IndexConfig{
				Owner:   "owner-index",
				Carrier: "carrier-index",
			},
			MaxIDAttempts: 5,
		},
		Auth: AuthConfig{
			Algorithm: "RS256",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies MOORAGE_* variables, plus the PORT and
// identity provider variables used by common hosting setups.
func applyEnvOverrides(cfg *Config) error {
	strs := []struct {
		keys []string
		dst  *string
	}{
		{[]string{"MOORAGE_SERVER_HOST"}, &cfg.Server.Host},
		{[]string{"MOORAGE_DYNAMODB_REGION", "AWS_REGION"}, &cfg.DynamoDB.Region},
		{[]string{"MOORAGE_DYNAMODB_ENDPOINT"}, &cfg.DynamoDB.Endpoint},
		{[]string{"MOORAGE_DYNAMODB_ACCESS_KEY_ID"}, &cfg.DynamoDB.AccessKeyID},
		{[]string{"MOORAGE_DYNAMODB_SECRET_ACCESS_KEY"}, &cfg.DynamoDB.SecretAccessKey},
		{[]string{"MOORAGE_TABLE_BOATS"}, &cfg.DynamoDB.Tables.Boats},
		{[]string{"MOORAGE_TABLE_LOADS"}, &cfg.DynamoDB.Tables.Loads},
		{[]string{"MOORAGE_TABLE_USERS"}, &cfg.DynamoDB.Tables.Users},
		{[]string{"MOORAGE_AUTH_ALGORITHM", "TOKEN_SIGNING_ALG"}, &cfg.Auth.Algorithm},
		{[]string{"MOORAGE_AUTH_SECRET"}, &cfg.Auth.Secret},
		{[]string{"MOORAGE_AUTH_PUBLIC_KEY_FILE"}, &cfg.Auth.PublicKeyFile},
		{[]string{"MOORAGE_AUTH_ISSUER", "ISSUER_BASE_URL"}, &cfg.Auth.Issuer},
		{[]string{"MOORAGE_AUTH_AUDIENCE", "CLIENT_ID"}, &cfg.Auth.Audience},
		{[]string{"MOORAGE_LOG_LEVEL"}, &cfg.Logging.Level},
		{[]string{"MOORAGE_LOG_FORMAT"}, &cfg.Logging.Format},
	}
	for _, s := range strs {
		if v, ok := firstEnv(s.keys...); ok {
			*s.dst = v
		}
	}

	if v, ok := firstEnv("MOORAGE_SERVER_PORT", "PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing server port %q: %w", v, err)
		}
		cfg.Server.Port = port
	}
	if v, ok := firstEnv("MOORAGE_DYNAMODB_IN_MEMORY"); ok {
		inMemory, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parsing MOORAGE_DYNAMODB_IN_MEMORY %q: %w", v, err)
		}
		cfg.DynamoDB.InMemory = inMemory
	}
	return nil
}

// firstEnv returns the first non-empty variable among keys.
func firstEnv(keys ...string) (string, bool) {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v, true
		}
	}
	return "", false
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}
	errs = append(errs, c.storeErrors()...)
	errs = append(errs, c.authErrors()...)

	return joinErrors(errs)
}

// ValidateStore checks only the document store settings.
func (c *Config) ValidateStore() error {
	return joinErrors(c.storeErrors())
}

func (c *Config) storeErrors() []string {
	var errs []string
	if !c.DynamoDB.InMemory {
		if c.DynamoDB.Region == "" {
			errs = append(errs, "dynamodb.region is required")
		}
		if c.DynamoDB.Tables.Boats == "" || c.DynamoDB.Tables.Loads == "" || c.DynamoDB.Tables.Users == "" {
			errs = append(errs, "dynamodb.tables must name boats, loads and users")
		}
		if c.DynamoDB.Indexes.Owner == "" || c.DynamoDB.Indexes.Carrier == "" {
			errs = append(errs, "dynamodb.indexes must name owner and carrier")
		}
	}
	return errs
}

func (c *Config) authErrors() []string {
	var errs []string
	switch strings.ToUpper(c.Auth.Algorithm) {
	case "HS256":
		if c.Auth.Secret == "" {
			errs = append(errs, "auth.secret is required for HS256 (set MOORAGE_AUTH_SECRET)")
		}
	case "RS256":
		if c.Auth.PublicKeyFile == "" {
			errs = append(errs, "auth.public_key_file is required for RS256")
		}
	default:
		errs = append(errs, "auth.algorithm must be HS256 or RS256")
	}
	return errs
}

func joinErrors(errs []string) error {
	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Addr returns the HTTP listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ReadTimeout returns the read timeout as a duration.
func (c ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(c.Timeouts.Read) * time.Second
}

// WriteTimeout returns the write timeout as a duration.
func (c ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(c.Timeouts.Write) * time.Second
}

// IdleTimeout returns the idle timeout as a duration.
func (c ServerConfig) IdleTimeout() time.Duration {
	return time.Duration(c.Timeouts.Idle) * time.Second
}

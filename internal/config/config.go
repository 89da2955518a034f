package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Run modes. Each one needs a different set of credentials.
const (
	ModeSocket = "socket"
	ModeLambda = "lambda"
	ModeServe  = "serve"
)

// Database drivers.
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverValkey   = "valkey"
	DriverDynamoDB = "dynamodb"
)

// defaultsYAML is used when no config file is found (e.g. a Lambda bundle
// carrying only the binary).
//
//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds the geminibot configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Slack    SlackConfig    `yaml:"slack"`
	Gemini   GeminiConfig   `yaml:"gemini"`
	Quota    QuotaConfig    `yaml:"quota"`
	Database DatabaseConfig `yaml:"database"`
	Storage  StorageConfig  `yaml:"storage"`
	Auth     AuthConfig     `yaml:"auth"`
	Messages MessagesConfig `yaml:"messages"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig protects the operational HTTP routes.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// SlackConfig holds Slack app credentials.
type SlackConfig struct {
	BotToken      string `yaml:"bot_token"`
	AppToken      string `yaml:"app_token"`      // socket mode only
	SigningSecret string `yaml:"signing_secret"` // empty = signatures not checked
	IgnoreRetries bool   `yaml:"ignore_retries"`
}

// GeminiConfig holds generation provider settings.
type GeminiConfig struct {
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	BaseURL    string `yaml:"base_url"`
	TimeoutSec int    `yaml:"timeout_sec"` // 0 = no deadline
}

// QuotaConfig holds the daily generation quota.
type QuotaConfig struct {
	DailyLimit int64  `yaml:"daily_limit"`
	Timezone   string `yaml:"timezone"` // IANA name; empty = process local time
}

// DatabaseConfig holds quota store settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // memory, redis, valkey, dynamodb
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	Table            string   `yaml:"table"`
	Region           string   `yaml:"region"`
	Endpoint         string   `yaml:"endpoint"`
	TTLAttribute     string   `yaml:"ttl_attribute"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// MessagesConfig overrides user-facing reply texts. Empty fields keep the built-in texts.
type MessagesConfig struct {
	EmptyPrompt     string `yaml:"empty_prompt"`
	Placeholder     string `yaml:"placeholder"`
	OverLimit       string `yaml:"over_limit"`
	ErrorPrefix     string `yaml:"error_prefix"`
	ConvertMarkdown *bool  `yaml:"convert_markdown"`
}

// Load reads configuration by environment name (local, dev, prod).
// .env.local and .env are loaded into the process environment first.
func Load(env string) (Config, error) {
	if err := LoadEnvFiles(); err != nil {
		return Config{}, err
	}

	data, err := os.ReadFile(filepath.Clean(findConfigPath(env)))
	if errors.Is(err, fs.ErrNotExist) {
		data, err = defaultsYAML, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config for %s: %w", env, err)
	}
	return parse(data)
}

// LoadFile reads configuration from an explicit path.
func LoadFile(path string) (Config, error) {
	if err := LoadEnvFiles(); err != nil {
		return Config{}, err
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return parse(data)
}

func parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// LoadEnvFiles loads .env.local then .env. Variables already set win.
func LoadEnvFiles() error {
	for _, file := range []string{".env.local", ".env"} {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
	}
	return nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 3000
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// Events are answered synchronously, generation included.
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-2.0-flash"
	}
	if c.Quota.DailyLimit == 0 {
		c.Quota.DailyLimit = 1000
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverMemory
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.Table == "" {
		c.Database.Table = "GeminiApiUsage"
	}
	if c.Database.TTLAttribute == "" {
		c.Database.TTLAttribute = "expires_at"
	}
	if c.Storage.KeyPrefix == "" && c.Database.Driver != DriverDynamoDB {
		c.Storage.KeyPrefix = "geminibot:usage:"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Quota.DailyLimit < 0 {
		return fmt.Errorf("quota.daily_limit must not be negative, got %d", c.Quota.DailyLimit)
	}
	if c.Gemini.TimeoutSec < 0 {
		return fmt.Errorf("gemini.timeout_sec must not be negative, got %d", c.Gemini.TimeoutSec)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	switch c.Database.Driver {
	case DriverMemory, DriverDynamoDB:
	case DriverRedis, DriverValkey:
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for driver %q", c.Database.Driver)
		}
	default:
		return fmt.Errorf(
			"database.driver must be one of memory, redis, valkey, dynamodb, got %q",
			c.Database.Driver,
		)
	}
	return nil
}

// Location returns the time zone that defines quota days.
func (c *Config) Location() (*time.Location, error) {
	if c.Quota.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Quota.Timezone)
	if err != nil {
		return nil, fmt.Errorf("quota.timezone %q: %w", c.Quota.Timezone, err)
	}
	return loc, nil
}

// MissingCredentials lists the secrets mode needs that are not configured.
func (c *Config) MissingCredentials(mode string) []string {
	var missing []string
	if c.Slack.BotToken == "" {
		missing = append(missing, "slack.bot_token")
	}
	if mode == ModeSocket && c.Slack.AppToken == "" {
		missing = append(missing, "slack.app_token")
	}
	if c.Gemini.APIKey == "" {
		missing = append(missing, "gemini.api_key")
	}
	return missing
}

// ConvertMarkdownEnabled reports whether generated Markdown is converted to mrkdwn.
func (m MessagesConfig) ConvertMarkdownEnabled() bool {
	return m.ConvertMarkdown == nil || *m.ConvertMarkdown
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}

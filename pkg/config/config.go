package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix shared by every environment variable the loader reads
const EnvPrefix = "USERETL_"

// Fetch failure policies for the ingestion loop
const (
	OnFetchFailureSkip = "skip"
	OnFetchFailureStop = "stop"
)

// Config holds all configuration options for the ingestion job
type Config struct {
	// Upstream API settings
	API APIConfig `yaml:"api" json:"api"`

	// Retry policy for fetches
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Destination database
	Database DatabaseConfig `yaml:"database" json:"database"`

	// Batch and checkpoint settings
	Ingest IngestConfig `yaml:"ingest" json:"ingest"`

	// End-of-run report
	Report ReportConfig `yaml:"report" json:"report"`

	// Prometheus textfile export
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// APIConfig holds settings for the random user API
type APIConfig struct {
	URL               string        `yaml:"url" json:"url" default:"https://randomuser.me/api/" validate:"required,url"`
	Timeout           time.Duration `yaml:"timeout" json:"timeout" default:"30s" validate:"gt=0"`
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute" default:"60" validate:"gte=1,lte=600"`
}

// RetryConfig holds the fetch retry policy
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts" default:"5" validate:"gte=1,lte=20"`
	Delay       time.Duration `yaml:"delay" json:"delay" default:"5s" validate:"gte=0"`
	Strategy    string        `yaml:"strategy" json:"strategy" default:"constant" validate:"oneof=constant exponential"`
	MaxDelay    time.Duration `yaml:"max_delay" json:"max_delay" default:"60s" validate:"gte=0"`
	OnStatus    bool          `yaml:"on_status" json:"on_status" default:"true"` // also retry 429 and 5xx
}

// DatabaseConfig holds the PostgreSQL connection settings
type DatabaseConfig struct {
	Host       string `yaml:"host" json:"host" default:"localhost" validate:"required"`
	Port       int    `yaml:"port" json:"port" default:"5432" validate:"gte=1,lte=65535"`
	Database   string `yaml:"database" json:"database" default:"assessment" validate:"required"`
	User       string `yaml:"user" json:"user" default:"postgres" validate:"required"`
	Password   string `yaml:"password" json:"password"`
	SSLMode    string `yaml:"ssl_mode" json:"ssl_mode" default:"disable" validate:"oneof=disable require"`
	UseKeyring bool   `yaml:"use_keyring" json:"use_keyring" default:"true"`
}

// IngestConfig holds settings for the batch loop
type IngestConfig struct {
	BatchSize      int    `yaml:"batch_size" json:"batch_size" default:"150" validate:"gte=1"`
	CheckpointFile string `yaml:"checkpoint_file" json:"checkpoint_file" default:"last_successful_index.txt" validate:"required"`
	OnFetchFailure string `yaml:"on_fetch_failure" json:"on_fetch_failure" default:"skip" validate:"oneof=skip stop"`
}

// ReportConfig holds settings for the end-of-run report
type ReportConfig struct {
	Enabled    bool `yaml:"enabled" json:"enabled" default:"true"`
	ChartWidth int  `yaml:"chart_width" json:"chart_width" validate:"gte=0"` // 0 means terminal width
	Color      bool `yaml:"color" json:"color" default:"true"`
}

// MetricsConfig holds the Prometheus textfile path
type MetricsConfig struct {
	Textfile string `yaml:"textfile" json:"textfile"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level" default:"info" validate:"oneof=debug info warn warning error"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with the defaults declared on its fields
func DefaultConfig() *Config {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		// Only reachable if a default tag above is malformed.
		panic(fmt.Sprintf("config: invalid default tag: %v", err))
	}
	return cfg
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	setString := func(key string, dst *string) {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	setDuration := func(key string, dst *time.Duration) {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = d
		}
	}

	setString("API_URL", &c.API.URL)
	setDuration("API_TIMEOUT", &c.API.Timeout)
	setInt("REQUESTS_PER_MINUTE", &c.API.RequestsPerMinute)

	setInt("MAX_ATTEMPTS", &c.Retry.MaxAttempts)
	setDuration("RETRY_DELAY", &c.Retry.Delay)
	setString("RETRY_STRATEGY", &c.Retry.Strategy)

	setString("DB_HOST", &c.Database.Host)
	setInt("DB_PORT", &c.Database.Port)
	setString("DB_NAME", &c.Database.Database)
	setString("DB_USER", &c.Database.User)
	setString("DB_PASSWORD", &c.Database.Password)
	setString("DB_SSLMODE", &c.Database.SSLMode)

	setInt("BATCH_SIZE", &c.Ingest.BatchSize)
	setString("CHECKPOINT_FILE", &c.Ingest.CheckpointFile)
	setString("ON_FETCH_FAILURE", &c.Ingest.OnFetchFailure)

	setString("METRICS_TEXTFILE", &c.Metrics.Textfile)

	setString("LOG_LEVEL", &c.Logging.Level)
	setString("LOG_FILE", &c.Logging.File)

	if v := os.Getenv(EnvPrefix + "REPORT_ENABLED"); v != "" {
		c.Report.Enabled = strings.ToLower(v) == "true"
	}
	if v := os.Getenv(EnvPrefix + "RETRY_ON_STATUS"); v != "" {
		c.Retry.OnStatus = strings.ToLower(v) == "true"
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		"useretl.yaml",
		".useretl.yaml",
		".useretl.yml",
		filepath.Join(home, ".config", "useretl", "config.yaml"),
		filepath.Join(home, ".useretl.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				errs = append(errs, fmt.Errorf("%s: failed %q (value %v)", fieldPath(fe), fe.Tag(), fe.Value()))
			}
		} else {
			errs = append(errs, err)
		}
	}

	if c.Retry.Strategy == "exponential" && c.Retry.MaxDelay < c.Retry.Delay {
		errs = append(errs, errors.New("retry.max_delay must not be smaller than retry.delay"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// fieldPath turns "Config.Database.Port" into "database.port"
func fieldPath(fe validator.FieldError) string {
	ns := fe.StructNamespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	return strings.ToLower(ns)
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["api-url"].(string); ok && v != "" {
		c.API.URL = v
	}
	if v, ok := flags["batch-size"].(int); ok && v > 0 {
		c.Ingest.BatchSize = v
	}
	if v, ok := flags["checkpoint-file"].(string); ok && v != "" {
		c.Ingest.CheckpointFile = v
	}
	if v, ok := flags["on-fetch-failure"].(string); ok && v != "" {
		c.Ingest.OnFetchFailure = v
	}
	if v, ok := flags["max-attempts"].(int); ok && v > 0 {
		c.Retry.MaxAttempts = v
	}
	if v, ok := flags["retry-delay"].(time.Duration); ok && v >= 0 {
		c.Retry.Delay = v
	}
	if v, ok := flags["db-host"].(string); ok && v != "" {
		c.Database.Host = v
	}
	if v, ok := flags["db-port"].(int); ok && v > 0 {
		c.Database.Port = v
	}
	if v, ok := flags["db-name"].(string); ok && v != "" {
		c.Database.Database = v
	}
	if v, ok := flags["db-user"].(string); ok && v != "" {
		c.Database.User = v
	}
	if v, ok := flags["metrics-textfile"].(string); ok && v != "" {
		c.Metrics.Textfile = v
	}
	if v, ok := flags["report-enabled"].(bool); ok {
		c.Report.Enabled = v
	}
	if v, ok := flags["color"].(bool); ok {
		c.Report.Color = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".useretl.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

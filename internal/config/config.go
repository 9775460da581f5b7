package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Pipeline  PipelineConfig  `yaml:"pipeline" envconfig:"PIPELINE"`
	Scheduler SchedulerConfig `yaml:"scheduler" envconfig:"SCHEDULER"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`

	resolved *Paths
}

// ResolvedPaths returns the filesystem layout computed by Load. It is nil on
// a Config that never went through Load.
func (c *Config) ResolvedPaths() *Paths {
	return c.resolved
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES" default:"1048576"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" default:"60s"`
}

// SecurityConfig contains security-related configuration.
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS" default:"true"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration.
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"100"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"50"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"stdout"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/trawlscope.log"`
}

// PathsConfig contains file system paths configuration. Relative paths are
// resolved against the executable directory.
type PathsConfig struct {
	DataDir         string `yaml:"data_dir" envconfig:"DATA_DIR" default:"data"`
	LogsDir         string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
	WebDir          string `yaml:"web_dir" envconfig:"WEB_DIR" default:"web"`
	RawSnapshot     string `yaml:"raw_snapshot" envconfig:"RAW_SNAPSHOT" default:"data/raw/survdat_raw.csv"`
	SpeciesCodes    string `yaml:"species_codes" envconfig:"SPECIES_CODES" default:"data/raw/species_codes.csv"`
	CleanSnapshot   string `yaml:"clean_snapshot" envconfig:"CLEAN_SNAPSHOT" default:"data/snapshots/survdat_clean.csv"`
	AnnualSummary   string `yaml:"annual_summary" envconfig:"ANNUAL_SUMMARY" default:"data/snapshots/species_annual.csv"`
	SeasonalSummary string `yaml:"seasonal_summary" envconfig:"SEASONAL_SUMMARY" default:"data/snapshots/species_seasonal.csv"`
}

// PipelineConfig controls cleaning and aggregation behavior that is
// environment-dependent. Survey-domain thresholds themselves are fixed
// constants, not configuration.
type PipelineConfig struct {
	// RawFormat selects the default raw snapshot reader: "csv" or "xlsx".
	RawFormat string `yaml:"raw_format" envconfig:"RAW_FORMAT" default:"csv"`
	// Parallelism bounds the per-species fan-out in the aggregation engine.
	// Zero means GOMAXPROCS.
	Parallelism int `yaml:"parallelism" envconfig:"PARALLELISM" default:"0"`
	// WriteBOM prefixes exported CSV snapshots with a UTF-8 BOM for
	// spreadsheet consumers.
	WriteBOM bool `yaml:"write_bom" envconfig:"WRITE_BOM" default:"false"`
	// RunTimeout caps a full pipeline run.
	RunTimeout time.Duration `yaml:"run_timeout" envconfig:"RUN_TIMEOUT" default:"30m"`
}

// SchedulerConfig controls the periodic snapshot refresh.
type SchedulerConfig struct {
	Enabled bool `yaml:"enabled" envconfig:"ENABLED" default:"false"`
	// Spec is a standard cron expression; the default refreshes nightly.
	Spec string `yaml:"spec" envconfig:"SPEC" default:"0 3 * * *"`
}

// WebSocketConfig contains WebSocket configuration.
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE" default:"1024"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE" default:"1024"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD" default:"30s"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT" default:"60s"`
}

// Load loads configuration from environment variables and an optional YAML
// file. Environment variables take precedence over file values.
func Load() (*Config, error) {
	cfg := Default()

	if path := findConfigFile(); path != "" {
		fileCfg, err := loadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		*cfg = *fileCfg
	}

	if err := envconfig.Process("TRAWL", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.resolvePaths(); err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile loads configuration from a YAML file, starting from defaults
// so absent keys keep their default values.
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolvePaths anchors relative paths at the executable directory and
// creates the data and log directories.
func (c *Config) resolvePaths() error {
	paths, err := ResolvePaths(&c.Paths)
	if err != nil {
		return err
	}

	c.Paths.DataDir = paths.DataDir
	c.Paths.LogsDir = paths.LogsDir
	c.Paths.WebDir = paths.WebDir
	c.Paths.RawSnapshot = paths.RawSnapshot
	c.Paths.SpeciesCodes = paths.SpeciesCodes
	c.Paths.CleanSnapshot = paths.CleanSnapshot
	c.Paths.AnnualSummary = paths.AnnualSummary
	c.Paths.SeasonalSummary = paths.SeasonalSummary
	c.resolved = paths

	return paths.EnsureDirectories()
}

// validate checks configuration invariants that would otherwise surface as
// confusing runtime failures.
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}
	if len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}
	if c.Pipeline.RawFormat != "csv" && c.Pipeline.RawFormat != "xlsx" {
		return fmt.Errorf("invalid raw snapshot format: %q", c.Pipeline.RawFormat)
	}
	if c.Pipeline.Parallelism < 0 {
		return fmt.Errorf("pipeline parallelism cannot be negative")
	}
	if c.Scheduler.Enabled && c.Scheduler.Spec == "" {
		return fmt.Errorf("scheduler enabled without a cron spec")
	}

	switch c.Logging.Format {
	case "json", "text":
	default:
		c.Logging.Format = "json"
	}
	switch c.Logging.Output {
	case "stdout", "file", "both":
	default:
		c.Logging.Output = "stdout"
	}
	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/trawlscope.log"
	}

	return nil
}

// findConfigFile probes the conventional config file locations.
func findConfigFile() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		filepath.Join("..", "configs", "config.yaml"),
	}
	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20,
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  60 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     100,
				Burst:   50,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "stdout",
			FilePath: "logs/trawlscope.log",
		},
		Paths: PathsConfig{
			DataDir:         "data",
			LogsDir:         "logs",
			WebDir:          "web",
			RawSnapshot:     filepath.Join("data", "raw", "survdat_raw.csv"),
			SpeciesCodes:    filepath.Join("data", "raw", "species_codes.csv"),
			CleanSnapshot:   filepath.Join("data", "snapshots", "survdat_clean.csv"),
			AnnualSummary:   filepath.Join("data", "snapshots", "species_annual.csv"),
			SeasonalSummary: filepath.Join("data", "snapshots", "species_seasonal.csv"),
		},
		Pipeline: PipelineConfig{
			RawFormat:   "csv",
			Parallelism: 0,
			WriteBOM:    false,
			RunTimeout:  30 * time.Minute,
		},
		Scheduler: SchedulerConfig{
			Enabled: false,
			Spec:    "0 3 * * *",
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      30 * time.Second,
			PongWait:        60 * time.Second,
		},
	}
}

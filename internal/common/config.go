package common

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config is the cascade tool configuration
type Config struct {
	Environment string          `toml:"environment"`
	Service     ServiceConfig   `toml:"service"`
	Batch       BatchConfig     `toml:"batch"`
	Logging     LoggingConfig   `toml:"logging"`
	WebSocket   WebSocketConfig `toml:"websocket"`
	Tracing     TracingConfig   `toml:"tracing"`

	// Passkey is never read from config files (CASCADE_PASSKEY or --passkey)
	Passkey string `toml:"-"`
}

// ServiceConfig describes the remote job/task service
type ServiceConfig struct {
	BaseURL   string  `toml:"base_url" validate:"required,url"`
	Timeout   string  `toml:"timeout"`                      // per request, e.g. "60s"
	RateLimit int     `toml:"rate_limit" validate:"gte=0"` // requests per second, 0 = unlimited
	UserAgent string  `toml:"user_agent"`
}

// BatchConfig bounds bulk requests and concurrent lookups
type BatchConfig struct {
	ChunkSize        int `toml:"chunk_size" validate:"min=1,max=50000"`
	FanOutWidth      int `toml:"fan_out_width" validate:"min=1,max=100"`
	LogProgressEvery int `toml:"log_progress_every" validate:"min=1"`
}

type LoggingConfig struct {
	Level      string   `toml:"level" validate:"oneof=debug info warn error"`
	Output     []string `toml:"output" validate:"dive,oneof=stdout console file"`
	TimeFormat string   `toml:"time_format"` // default "15:04:05"
}

// WebSocketConfig contains configuration for the progress WebSocket
type WebSocketConfig struct {
	Enabled          bool     `toml:"enabled"`
	Host             string   `toml:"host"`
	Port             int      `toml:"port" validate:"min=0,max=65535"`
	ThrottleInterval string   `toml:"throttle_interval"` // minimum gap between progress messages, e.g. "250ms"
	ExcludePatterns  []string `toml:"exclude_patterns"`  // progress messages containing any of these are not sent
}

type TracingConfig struct {
	Exporter    string `toml:"exporter" validate:"oneof=none stdout"`
	ServiceName string `toml:"service_name"`
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "production",
		Service: ServiceConfig{
			Timeout:   "60s",
			RateLimit: 50,
			UserAgent: "cascade/" + Version,
		},
		Batch: BatchConfig{
			ChunkSize:        50000,
			FanOutWidth:      10,
			LogProgressEvery: 10,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05",
		},
		WebSocket: WebSocketConfig{
			Enabled: false,
			Host:    "localhost",
			Port:    8087,
		},
		Tracing: TracingConfig{
			Exporter:    "none",
			ServiceName: "cascade",
		},
	}
}

// LoadFromFile loads configuration from a single file
func LoadFromFile(path string) (*Config, error) {
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration with priority: defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier ones; empty paths are skipped.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

func applyEnvOverrides(config *Config) {
	if env := os.Getenv("CASCADE_ENV"); env != "" {
		config.Environment = env
	}

	// Service
	if baseURL := os.Getenv("CASCADE_BASE_URL"); baseURL != "" {
		config.Service.BaseURL = baseURL
	}
	if timeout := os.Getenv("CASCADE_TIMEOUT"); timeout != "" {
		config.Service.Timeout = timeout
	}
	if rateLimit := os.Getenv("CASCADE_RATE_LIMIT"); rateLimit != "" {
		if r, err := strconv.Atoi(rateLimit); err == nil {
			config.Service.RateLimit = r
		}
	}
	if userAgent := os.Getenv("CASCADE_USER_AGENT"); userAgent != "" {
		config.Service.UserAgent = userAgent
	}
	if passkey := os.Getenv("CASCADE_PASSKEY"); passkey != "" {
		config.Passkey = passkey
	}

	// Batch
	if chunkSize := os.Getenv("CASCADE_CHUNK_SIZE"); chunkSize != "" {
		if c, err := strconv.Atoi(chunkSize); err == nil {
			config.Batch.ChunkSize = c
		}
	}
	if width := os.Getenv("CASCADE_FAN_OUT_WIDTH"); width != "" {
		if w, err := strconv.Atoi(width); err == nil {
			config.Batch.FanOutWidth = w
		}
	}
	if every := os.Getenv("CASCADE_LOG_PROGRESS_EVERY"); every != "" {
		if e, err := strconv.Atoi(every); err == nil {
			config.Batch.LogProgressEvery = e
		}
	}

	// Logging
	if level := os.Getenv("CASCADE_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("CASCADE_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// WebSocket
	if enabled := os.Getenv("CASCADE_WS_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.WebSocket.Enabled = e
		}
	}
	if host := os.Getenv("CASCADE_WS_HOST"); host != "" {
		config.WebSocket.Host = host
	}
	if port := os.Getenv("CASCADE_WS_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.WebSocket.Port = p
		}
	}

	// Tracing
	if exporter := os.Getenv("CASCADE_TRACING_EXPORTER"); exporter != "" {
		config.Tracing.Exporter = exporter
	}
}

// ApplyFlagOverrides applies command-line flags, which have the highest priority
func ApplyFlagOverrides(config *Config, baseURL, passkey string, serveWS bool) {
	if baseURL != "" {
		config.Service.BaseURL = baseURL
	}
	if passkey != "" {
		config.Passkey = passkey
	}
	if serveWS {
		config.WebSocket.Enabled = true
	}
}

// Validate checks field constraints and duration strings
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	if _, err := c.RequestTimeout(); err != nil {
		return fmt.Errorf("invalid config: service.timeout: %w", err)
	}
	if c.WebSocket.ThrottleInterval != "" {
		if _, err := time.ParseDuration(c.WebSocket.ThrottleInterval); err != nil {
			return fmt.Errorf("invalid config: websocket.throttle_interval: %w", err)
		}
	}
	return nil
}

// RequestTimeout parses Service.Timeout. Empty means no client timeout.
func (c *Config) RequestTimeout() (time.Duration, error) {
	if c.Service.Timeout == "" {
		return 0, nil
	}
	return time.ParseDuration(c.Service.Timeout)
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Environment)
	return env == "production" || env == "prod"
}

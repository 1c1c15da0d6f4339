package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/rpggio/seedsort/internal/pipeline"
	"github.com/rpggio/seedsort/internal/scheduler"
)

// Config defines server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	DB        DBConfig        `yaml:"db"`
	Log       LogConfig       `yaml:"log"`
	Batch     BatchConfig     `yaml:"batch"`
	Sample    SampleConfig    `yaml:"sample"`
	Redis     RedisConfig     `yaml:"redis"`
	Transport TransportConfig `yaml:"transport"`
}

type ServerConfig struct {
	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"min=0,max=65535"`
	// CORSOrigins restricts browser origins. Empty allows all.
	CORSOrigins []string `yaml:"cors_origins"`
}

type DBConfig struct {
	Path string `yaml:"path" validate:"required"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn warning error"`
	Format string `yaml:"format" validate:"oneof=text json pretty"`
	// Path, when set, sends logs to a size-capped file.
	Path string `yaml:"path"`
}

// BatchConfig holds batch formation thresholds. Durations are in milliseconds.
type BatchConfig struct {
	MaxSize        int `yaml:"max_size" validate:"min=1"`
	MaxLatencyMS   int `yaml:"max_latency_ms" validate:"min=0"`
	PollIntervalMS int `yaml:"poll_interval_ms" validate:"min=1"`
	CostMS         int `yaml:"cost_ms" validate:"min=0"`
	Workers        int `yaml:"workers" validate:"min=1"`
}

type SampleConfig struct {
	Percentage int    `yaml:"percentage" validate:"min=0,max=100"`
	Dir        string `yaml:"dir" validate:"required_if=Sink file"`
	Sink       string `yaml:"sink" validate:"oneof=file redis"`
}

type RedisConfig struct {
	Addr       string `yaml:"addr" validate:"required_if=Enabled true"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db" validate:"min=0"`
	Prefix     string `yaml:"prefix"`
	TTLSeconds int    `yaml:"ttl_seconds" validate:"min=0"`
	Enabled    bool   `yaml:"-"`
}

type TransportConfig struct {
	Mode string `yaml:"mode" validate:"oneof=http stdio"`
}

// Default returns the stock configuration.
func Default() Config {
	policy := scheduler.DefaultPolicy()
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8000,
		},
		DB: DBConfig{
			Path: "seedsort.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Batch: BatchConfig{
			MaxSize:        policy.MaxBatchSize,
			MaxLatencyMS:   int(policy.MaxItemLatency / time.Millisecond),
			PollIntervalMS: int(policy.PollInterval / time.Millisecond),
			CostMS:         50,
			Workers:        1,
		},
		Sample: SampleConfig{
			Percentage: 10,
			Dir:        "sampled_images",
			Sink:       "file",
		},
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "seedsort:sample:",
		},
		Transport: TransportConfig{
			Mode: "http",
		},
	}
}

// Load reads configuration from an optional YAML file and environment variables.
// An empty path falls back to SEEDSORT_CONFIG_PATH.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("SEEDSORT_CONFIG_PATH")
	}
	if path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func applyEnv(cfg *Config) error {
	strs := []struct {
		name string
		dst  *string
	}{
		{"SEEDSORT_SERVER_HOST", &cfg.Server.Host},
		{"SEEDSORT_DB_PATH", &cfg.DB.Path},
		{"SEEDSORT_LOG_LEVEL", &cfg.Log.Level},
		{"SEEDSORT_LOG_FORMAT", &cfg.Log.Format},
		{"SEEDSORT_LOG_PATH", &cfg.Log.Path},
		{"SAMPLE_DIR", &cfg.Sample.Dir},
		{"SEEDSORT_SAMPLE_SINK", &cfg.Sample.Sink},
		{"SEEDSORT_REDIS_ADDR", &cfg.Redis.Addr},
		{"SEEDSORT_REDIS_PASSWORD", &cfg.Redis.Password},
		{"SEEDSORT_TRANSPORT", &cfg.Transport.Mode},
	}
	for _, s := range strs {
		if v := os.Getenv(s.name); v != "" {
			*s.dst = v
		}
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"SEEDSORT_SERVER_PORT", &cfg.Server.Port},
		{"MAX_BATCH_SIZE", &cfg.Batch.MaxSize},
		{"MAX_SINGLE_IMAGE_LATENCY_MS", &cfg.Batch.MaxLatencyMS},
		{"SEEDSORT_POLL_INTERVAL_MS", &cfg.Batch.PollIntervalMS},
		{"SEEDSORT_BATCH_COST_MS", &cfg.Batch.CostMS},
		{"SEEDSORT_BATCH_WORKERS", &cfg.Batch.Workers},
		{"SAMPLE_PERCENTAGE", &cfg.Sample.Percentage},
		{"SEEDSORT_REDIS_DB", &cfg.Redis.DB},
	}
	for _, i := range ints {
		v := os.Getenv(i.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", i.name, err)
		}
		*i.dst = n
	}

	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

var validate = validator.New()

// Validate checks field ranges and cross-field requirements.
func (c *Config) Validate() error {
	c.Redis.Enabled = c.Sample.Sink == "redis"
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Addr returns the HTTP listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Policy converts the batch settings to a scheduler policy.
func (c Config) Policy() scheduler.Policy {
	return scheduler.Policy{
		PollInterval:   time.Duration(c.Batch.PollIntervalMS) * time.Millisecond,
		MaxItemLatency: time.Duration(c.Batch.MaxLatencyMS) * time.Millisecond,
		MaxBatchSize:   c.Batch.MaxSize,
	}
}

// Pipeline converts the sampling and batch settings to a pipeline config.
func (c Config) Pipeline() pipeline.Config {
	return pipeline.Config{
		SamplePercentage: c.Sample.Percentage,
		Workers:          c.Batch.Workers,
		BatchCost:        time.Duration(c.Batch.CostMS) * time.Millisecond,
	}
}

// RedisTTL returns the sample expiry; zero means no expiry.
func (c Config) RedisTTL() time.Duration {
	return time.Duration(c.Redis.TTLSeconds) * time.Second
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// PathEnvVar overrides the config file location.
const PathEnvVar = "PORTARIA_CONFIG"

const envPrefix = "PORTARIA_"

// DefaultPaths are searched in order when no path is given.
var DefaultPaths = []string{
	"portaria.yaml",
	"portaria.yml",
	"/etc/portaria/portaria.yaml",
}

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Timezone TimezoneConfig `koanf:"timezone"`
	Storage  StorageConfig  `koanf:"storage"`
	Encoder  EncoderConfig  `koanf:"encoder"`
	Ingest   IngestConfig   `koanf:"ingest"`
	Export   ExportConfig   `koanf:"export"`
	Logging  LoggingConfig  `koanf:"logging"`
}

type ServerConfig struct {
	Env         string   `koanf:"env" validate:"oneof=dev prod"`
	HTTPAddr    string   `koanf:"http_addr" validate:"required"`
	GRPCAddr    string   `koanf:"grpc_addr"` // empty disables gRPC
	CORSOrigins []string `koanf:"cors_origins"`
}

type DatabaseConfig struct {
	Path    string `koanf:"path" validate:"required"`
	SeedDev bool   `koanf:"seed_dev"`
}

type TimezoneConfig struct {
	Name string `koanf:"name" validate:"required"`
}

type StorageConfig struct {
	UploadDir string `koanf:"upload_dir" validate:"required"`
}

// EncoderConfig points at the face-encoding service. An empty URL disables
// encoding; photos are still stored.
type EncoderConfig struct {
	URL              string        `koanf:"url" validate:"omitempty,url"`
	Timeout          time.Duration `koanf:"timeout" validate:"gt=0"`
	FailureThreshold uint32        `koanf:"failure_threshold" validate:"gte=1"`
	OpenTimeout      time.Duration `koanf:"open_timeout" validate:"gt=0"`
}

type IngestConfig struct {
	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"gte=0"` // 0 = unlimited
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
}

type ExportConfig struct {
	LookaheadDays int `koanf:"lookahead_days" validate:"gte=0,lte=7"`
}

type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn warning error fatal panic disabled off"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// IsDev reports whether the server runs in the dev environment.
func (c Config) IsDev() bool { return c.Server.Env == "dev" }

func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Env:      "dev",
			HTTPAddr: ":8080",
		},
		Database: DatabaseConfig{
			Path: "./data/portaria.db",
		},
		Timezone: TimezoneConfig{
			Name: "America/Sao_Paulo",
		},
		Storage: StorageConfig{
			UploadDir: "./data/uploads",
		},
		Encoder: EncoderConfig{
			Timeout:          15 * time.Second,
			FailureThreshold: 5,
			OpenTimeout:      30 * time.Second,
		},
		Ingest: IngestConfig{
			RateLimitRequests: 120,
			RateLimitWindow:   time.Minute,
		},
		Export: ExportConfig{
			LookaheadDays: 1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load layers defaults, an optional YAML file and PORTARIA_* environment
// variables, in that order. path may be empty to search PathEnvVar and
// DefaultPaths; a path given explicitly must exist.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		path = findFile()
	} else if _, err := os.Stat(path); err != nil {
		return Config{}, fmt.Errorf("config file: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	if err := splitLists(k); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func findFile() string {
	if p := os.Getenv(PathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

var envKeys = map[string]string{
	"env":                       "server.env",
	"http_addr":                 "server.http_addr",
	"grpc_addr":                 "server.grpc_addr",
	"cors_origins":              "server.cors_origins",
	"db_path":                   "database.path",
	"seed_dev":                  "database.seed_dev",
	"timezone":                  "timezone.name",
	"upload_dir":                "storage.upload_dir",
	"encoder_url":               "encoder.url",
	"encoder_timeout":           "encoder.timeout",
	"encoder_failure_threshold": "encoder.failure_threshold",
	"encoder_open_timeout":      "encoder.open_timeout",
	"ingest_rate_limit":         "ingest.rate_limit_requests",
	"ingest_rate_window":        "ingest.rate_limit_window",
	"export_lookahead_days":     "export.lookahead_days",
	"log_level":                 "logging.level",
	"log_format":                "logging.format",
}

// envKey maps PORTARIA_DB_PATH to database.path. Unknown variables are
// skipped.
func envKey(key string) string {
	return envKeys[strings.ToLower(strings.TrimPrefix(key, envPrefix))]
}

var listKeys = []string{"server.cors_origins"}

// splitLists turns comma-separated env values into slices. YAML lists pass
// through untouched.
func splitLists(k *koanf.Koanf) error {
	for _, key := range listKeys {
		s, ok := k.Get(key).(string)
		if !ok {
			continue
		}
		if err := k.Set(key, splitCSV(s)); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}
	return nil
}

func splitCSV(v string) []string {
	v = strings.TrimSpace(v)
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

func (c *Config) normalize() {
	c.Server.Env = strings.ToLower(strings.TrimSpace(c.Server.Env))
	if c.Server.Env != "dev" && c.Server.Env != "prod" {
		// fail-soft: treat unknown as dev
		c.Server.Env = "dev"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Timezone.Name = strings.TrimSpace(c.Timezone.Name)
	c.Encoder.URL = strings.TrimSpace(c.Encoder.URL)
}

// Validate checks every section and reports all problems at once.
func (c Config) Validate() error {
	err := validator.New(validator.WithRequiredStructEnabled()).Struct(c)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, 0, len(ves))
	for _, fe := range ves {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// Package config provides configuration parsing and validation for the predictor.
//
// Settings come from four sources. In order of precedence:
//  1. Command-line flags
//  2. Environment variables
//  3. YAML file named by -config-file (or CONFIG_FILE)
//  4. Default values
//
// Example usage:
//
//	cfg := config.ParseFlags()
//	// cfg is validated; invalid settings exit with status 2
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/HatiCode/autompg/pkg/models"
	"github.com/HatiCode/autompg/pkg/tls"
)

// Cache backends.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config holds all predictor configuration.
type Config struct {
	Listen     string `yaml:"listen"`
	GRPCListen string `yaml:"grpc_listen"`
	ModelPath  string `yaml:"model_path"`

	LogFormat     string `yaml:"log_format"`
	LogLevel      string `yaml:"log_level"`
	LogFile       string `yaml:"log_file"`
	LogMaxSizeMB  int    `yaml:"log_max_size_mb"`
	LogMaxBackups int    `yaml:"log_max_backups"`

	Cache         string        `yaml:"cache"`
	CacheSize     int           `yaml:"cache_size"`
	CacheTTL      time.Duration `yaml:"cache_ttl"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`

	BYOMTimeout     time.Duration `yaml:"byom_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	TLS     tls.Config `yaml:"tls"`
	BYOMTLS tls.Config `yaml:"byom_tls"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Listen:          ":8080",
		ModelPath:       models.DefaultPath,
		LogFormat:       "text",
		LogLevel:        "info",
		LogMaxSizeMB:    100,
		LogMaxBackups:   3,
		Cache:           CacheNone,
		CacheSize:       1024,
		CacheTTL:        10 * time.Minute,
		RedisAddr:       "localhost:6379",
		BYOMTimeout:     5 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// ParseFlags parses os.Args and the environment into a validated Config.
// It exits the process when parsing or validation fails.
func ParseFlags() *Config {
	cfg, err := Parse(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	return cfg
}

// Parse builds a Config from args, the environment and an optional YAML file,
// then validates it.
func Parse(args []string) (*Config, error) {
	cfg := Default()

	configFile := getEnv("CONFIG_FILE", "")
	if path, ok := lookupArg(args, "config-file"); ok {
		configFile = path
	}
	if configFile != "" {
		if err := loadFile(configFile, &cfg); err != nil {
			return nil, err
		}
	}

	fs := flag.NewFlagSet("predictor", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.String("config-file", configFile, "YAML configuration file")

	fs.StringVar(&cfg.Listen, "listen", getEnv("LISTEN", cfg.Listen), "HTTP listen address")
	fs.StringVar(&cfg.GRPCListen, "grpc-listen", getEnv("GRPC_LISTEN", cfg.GRPCListen), "gRPC health listen address (empty disables)")
	fs.StringVar(&cfg.ModelPath, "model-path", getEnv("MODEL_PATH", cfg.ModelPath), "Path to the model artifact")

	fs.StringVar(&cfg.LogFormat, "log-format", getEnv("LOG_FORMAT", cfg.LogFormat), "Log format: text or json")
	fs.StringVar(&cfg.LogLevel, "log-level", getEnv("LOG_LEVEL", cfg.LogLevel), "Log level: debug, info, warn, error")
	fs.StringVar(&cfg.LogFile, "log-file", getEnv("LOG_FILE", cfg.LogFile), "Log file path (empty logs to stdout)")
	fs.IntVar(&cfg.LogMaxSizeMB, "log-max-size-mb", getEnvInt("LOG_MAX_SIZE_MB", cfg.LogMaxSizeMB), "Log file size before rotation")
	fs.IntVar(&cfg.LogMaxBackups, "log-max-backups", getEnvInt("LOG_MAX_BACKUPS", cfg.LogMaxBackups), "Rotated log files to keep")

	fs.StringVar(&cfg.Cache, "cache", getEnv("CACHE", cfg.Cache), "Prediction cache: none, memory or redis")
	fs.IntVar(&cfg.CacheSize, "cache-size", getEnvInt("CACHE_SIZE", cfg.CacheSize), "Memory cache entries")
	fs.DurationVar(&cfg.CacheTTL, "cache-ttl", getEnvDuration("CACHE_TTL", cfg.CacheTTL), "Prediction cache TTL")
	fs.StringVar(&cfg.RedisAddr, "redis-addr", getEnv("REDIS_ADDR", cfg.RedisAddr), "Redis server address")
	fs.StringVar(&cfg.RedisPassword, "redis-password", getEnv("REDIS_PASSWORD", cfg.RedisPassword), "Redis password")
	fs.IntVar(&cfg.RedisDB, "redis-db", getEnvInt("REDIS_DB", cfg.RedisDB), "Redis database number")

	fs.DurationVar(&cfg.BYOMTimeout, "byom-timeout", getEnvDuration("BYOM_TIMEOUT", cfg.BYOMTimeout), "Timeout of one call to a byom model service")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", getEnvDuration("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout), "Graceful shutdown timeout")

	fs.BoolVar(&cfg.TLS.Enabled, "tls-enabled", getEnvBool("TLS_ENABLED", cfg.TLS.Enabled), "Serve HTTPS")
	fs.StringVar(&cfg.TLS.CertFile, "tls-cert-file", getEnv("TLS_CERT_FILE", cfg.TLS.CertFile), "TLS certificate file")
	fs.StringVar(&cfg.TLS.KeyFile, "tls-key-file", getEnv("TLS_KEY_FILE", cfg.TLS.KeyFile), "TLS private key file")
	fs.StringVar(&cfg.TLS.CAFile, "tls-ca-file", getEnv("TLS_CA_FILE", cfg.TLS.CAFile), "TLS CA file for client verification (enables mTLS)")

	fs.BoolVar(&cfg.BYOMTLS.Enabled, "byom-tls-enabled", getEnvBool("BYOM_TLS_ENABLED", cfg.BYOMTLS.Enabled), "Use TLS settings below for byom model services")
	fs.StringVar(&cfg.BYOMTLS.CertFile, "byom-tls-cert-file", getEnv("BYOM_TLS_CERT_FILE", cfg.BYOMTLS.CertFile), "Client certificate for byom model services")
	fs.StringVar(&cfg.BYOMTLS.KeyFile, "byom-tls-key-file", getEnv("BYOM_TLS_KEY_FILE", cfg.BYOMTLS.KeyFile), "Client key for byom model services")
	fs.StringVar(&cfg.BYOMTLS.CAFile, "byom-tls-ca-file", getEnv("BYOM_TLS_CA_FILE", cfg.BYOMTLS.CAFile), "CA file for verifying byom model services")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for invalid or inconsistent values.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return errors.New("listen address cannot be empty")
	}
	if c.ModelPath == "" {
		return errors.New("model path cannot be empty")
	}

	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("invalid log format %q (must be text or json)", c.LogFormat)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.LogFile != "" && (c.LogMaxSizeMB <= 0 || c.LogMaxBackups < 0) {
		return errors.New("log-max-size-mb must be > 0 and log-max-backups >= 0")
	}

	switch c.Cache {
	case CacheNone:
	case CacheMemory:
		if c.CacheSize <= 0 {
			return fmt.Errorf("cache-size must be > 0, got %d", c.CacheSize)
		}
	case CacheRedis:
		if c.RedisAddr == "" {
			return errors.New("redis-addr is required when cache=redis")
		}
		if c.RedisDB < 0 {
			return fmt.Errorf("redis-db must be >= 0, got %d", c.RedisDB)
		}
	default:
		return fmt.Errorf("invalid cache %q (must be none, memory, or redis)", c.Cache)
	}
	if c.Cache != CacheNone && c.CacheTTL <= 0 {
		return errors.New("cache-ttl must be > 0")
	}

	if c.BYOMTimeout <= 0 {
		return errors.New("byom-timeout must be > 0")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("shutdown-timeout must be > 0")
	}

	if c.TLS.Enabled && (c.TLS.CertFile == "" || c.TLS.KeyFile == "") {
		return errors.New("tls enabled but cert/key files not specified")
	}
	if err := c.TLS.Validate(); err != nil {
		return err
	}
	if err := c.BYOMTLS.Validate(); err != nil {
		return fmt.Errorf("byom %w", err)
	}

	return nil
}

// ParseLevel maps a level name to its slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q (must be debug, info, warn, or error)", s)
	}
}

func loadFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}
	return nil
}

// lookupArg finds -name or --name in args before flags are parsed, so the
// file can supply defaults for every other flag.
func lookupArg(args []string, name string) (string, bool) {
	for i, arg := range args {
		if arg == "--" {
			break
		}
		trimmed := strings.TrimLeft(arg, "-")
		if trimmed == arg || len(arg)-len(trimmed) > 2 {
			continue
		}
		if trimmed == name && i+1 < len(args) {
			return args[i+1], true
		}
		if value, ok := strings.CutPrefix(trimmed, name+"="); ok {
			return value, true
		}
	}
	return "", false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

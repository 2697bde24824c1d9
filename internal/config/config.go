// Package config provides configuration management for the thumbnail service.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Storage  StorageConfig
	Upload   UploadConfig
	Queue    QueueConfig
	RabbitMQ RabbitMQConfig
	Cleanup  CleanupConfig
	Worker   WorkerConfig
	Logging  LoggingConfig
}

// ServerConfig contains HTTP server configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type ServerConfig struct {
	Port int
	// PublicBaseURL prefixes links handed to clients, such as password reset
	// links. Empty means http://localhost:<port>.
	PublicBaseURL   string
	CORSOrigins     []string
	ReadTimeout     time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// BaseURL returns the externally visible base URL without a trailing slash.
func (s ServerConfig) BaseURL() string {
	if s.PublicBaseURL != "" {
		return strings.TrimRight(s.PublicBaseURL, "/")
	}
	return fmt.Sprintf("http://localhost:%d", s.Port)
}

// DatabaseConfig contains database connection configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type DatabaseConfig struct {
	// URL takes precedence over the discrete fields when set.
	URL            string
	Host           string
	Name           string
	User           string
	Password       string
	SSLMode        string
	Port           int
	MaxConnections int
	MinConnections int
	MaxIdleTime    time.Duration
	MaxLifetime    time.Duration
	AutoMigrate    bool
	MigrationsPath string
}

// DSN returns a postgres connection URL usable by both pgx and golang-migrate.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     d.Name,
		RawQuery: "sslmode=" + d.SSLMode,
	}
	return u.String()
}

// AuthConfig contains credential and token settings.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type AuthConfig struct {
	JWTSecret     string
	Issuer        string
	TokenTTL      time.Duration
	ResetTokenTTL time.Duration
	BcryptCost    int
	// ExposeResetLink echoes the reset link in the forgot-password response.
	ExposeResetLink bool
}

// StorageConfig describes where blobs live on disk and how they are addressed.
type StorageConfig struct {
	Root         string
	ThumbnailDir string
	URLPrefix    string
}

// UploadConfig bounds a single multipart upload.
type UploadConfig struct {
	MaxBytes     int64
	WriteTimeout time.Duration
}

// QueueConfig configures the asynq blob cleanup queue.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type QueueConfig struct {
	Enabled     bool
	RedisURL    string
	Concurrency int
	MaxRetry    int
}

// RabbitMQConfig contains RabbitMQ connection and exchange configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type RabbitMQConfig struct {
	Enabled  bool
	Host     string
	User     string
	Password string
	VHost    string
	Exchange string
	Port     int
}

// URL returns the AMQP connection URL.
func (r RabbitMQConfig) URL() string {
	u := url.URL{
		Scheme: "amqp",
		User:   url.UserPassword(r.User, r.Password),
		Host:   fmt.Sprintf("%s:%d", r.Host, r.Port),
		Path:   "/" + strings.TrimPrefix(r.VHost, "/"),
	}
	return u.String()
}

// CleanupConfig drives the orphan blob sweeper in the worker.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type CleanupConfig struct {
	Enabled     bool
	Interval    time.Duration
	GracePeriod time.Duration
}

// WorkerConfig configures the background worker process.
type WorkerConfig struct {
	// MetricsAddr is the listen address of the worker's /metrics endpoint.
	// Empty disables it.
	MetricsAddr string
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level string
	File  string
}

// legacyEnv maps config keys to the unprefixed variable names the service
// historically read.
var legacyEnv = map[string]string{
	"server.port":    "PORT",
	"database.url":   "DATABASE_URL",
	"auth.jwtsecret": "JWT_SECRET",
	"queue.redisurl": "REDIS_URL",
}

// Load loads configuration from an optional config.yaml and the environment.
// Every key can be overridden with APP_<SECTION>_<KEY>, e.g. APP_SERVER_PORT.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	setDefaults(v)

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, legacy := range legacyEnv {
		envName := "APP_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envName, legacy); err != nil {
			return nil, fmt.Errorf("failed to bind env %s: %w", legacy, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate reports configuration that would make the service unsafe or unusable.
func (c *Config) Validate() error {
	var errs []error

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwtsecret (JWT_SECRET) is required"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Upload.MaxBytes <= 0 {
		errs = append(errs, errors.New("upload.maxbytes must be positive"))
	}
	if c.Upload.WriteTimeout <= 0 {
		errs = append(errs, errors.New("upload.writetimeout must be positive"))
	}
	if c.Auth.ResetTokenTTL <= 0 {
		errs = append(errs, errors.New("auth.resettokenttl must be positive"))
	}
	if c.Storage.Root == "" || c.Storage.ThumbnailDir == "" {
		errs = append(errs, errors.New("storage.root and storage.thumbnaildir are required"))
	}
	errs = append(errs, c.backgroundErrors()...)

	return errors.Join(errs...)
}

// ValidateWorker checks only what the worker process depends on.
func (c *Config) ValidateWorker() error {
	var errs []error
	if c.Storage.Root == "" || c.Storage.ThumbnailDir == "" {
		errs = append(errs, errors.New("storage.root and storage.thumbnaildir are required"))
	}
	errs = append(errs, c.backgroundErrors()...)
	return errors.Join(errs...)
}

func (c *Config) backgroundErrors() []error {
	var errs []error
	if c.Queue.Enabled && c.Queue.RedisURL == "" {
		errs = append(errs, errors.New("queue.redisurl is required when the queue is enabled"))
	}
	if c.Cleanup.Enabled {
		// The grace period keeps a freshly saved blob alive until its record is inserted.
		if c.Cleanup.Interval <= 0 {
			errs = append(errs, fmt.Errorf("cleanup.interval %s must be positive", c.Cleanup.Interval))
		}
		if c.Cleanup.GracePeriod <= 0 {
			errs = append(errs, fmt.Errorf("cleanup.graceperiod %s must be positive", c.Cleanup.GracePeriod))
		}
	}
	return errs
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.publicbaseurl", "")
	v.SetDefault("server.corsorigins", []string{})
	v.SetDefault("server.readtimeout", 15*time.Second)
	v.SetDefault("server.idletimeout", 60*time.Second)
	v.SetDefault("server.shutdowntimeout", 30*time.Second)

	// Database
	v.SetDefault("database.url", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "thumbnails")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.maxconnections", 25)
	v.SetDefault("database.minconnections", 5)
	v.SetDefault("database.maxidletime", 10*time.Minute)
	v.SetDefault("database.maxlifetime", 1*time.Hour)
	v.SetDefault("database.automigrate", false)
	v.SetDefault("database.migrationspath", "./migrations")

	// Auth
	v.SetDefault("auth.jwtsecret", "")
	v.SetDefault("auth.issuer", "thumbnail-service")
	v.SetDefault("auth.tokenttl", 24*time.Hour)
	v.SetDefault("auth.resettokenttl", 10*time.Minute)
	v.SetDefault("auth.bcryptcost", 10)
	v.SetDefault("auth.exposeresetlink", true)

	// Storage
	v.SetDefault("storage.root", "uploads")
	v.SetDefault("storage.thumbnaildir", "thumbnails")
	v.SetDefault("storage.urlprefix", "/uploads")

	// Upload
	v.SetDefault("upload.maxbytes", 10<<20) // 10MB
	v.SetDefault("upload.writetimeout", 2*time.Minute)

	// Queue
	v.SetDefault("queue.enabled", false)
	v.SetDefault("queue.redisurl", "localhost:6379")
	v.SetDefault("queue.concurrency", 2)
	v.SetDefault("queue.maxretry", 5)

	// RabbitMQ
	v.SetDefault("rabbitmq.enabled", false)
	v.SetDefault("rabbitmq.host", "localhost")
	v.SetDefault("rabbitmq.port", 5672)
	v.SetDefault("rabbitmq.user", "guest")
	v.SetDefault("rabbitmq.password", "guest")
	v.SetDefault("rabbitmq.vhost", "/")
	v.SetDefault("rabbitmq.exchange", "thumbnails.events")

	// Cleanup
	v.SetDefault("cleanup.enabled", true)
	v.SetDefault("cleanup.interval", 1*time.Hour)
	v.SetDefault("cleanup.graceperiod", 24*time.Hour)

	// Worker
	v.SetDefault("worker.metricsaddr", ":9091")

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "")
}

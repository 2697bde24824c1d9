package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T)
		check func(t *testing.T, cfg *Config)
	}{
		{
			name:  "defaults without config file",
			setup: func(t *testing.T) {},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 3000, cfg.Server.Port)
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, 10*time.Minute, cfg.Auth.ResetTokenTTL)
				assert.Equal(t, int64(10<<20), cfg.Upload.MaxBytes)
				assert.Equal(t, "uploads", cfg.Storage.Root)
				assert.Equal(t, "thumbnails", cfg.Storage.ThumbnailDir)
				assert.Equal(t, "/uploads", cfg.Storage.URLPrefix)
				assert.True(t, cfg.Auth.ExposeResetLink)
				assert.False(t, cfg.Queue.Enabled)
				assert.False(t, cfg.RabbitMQ.Enabled)
				assert.Empty(t, cfg.Server.CORSOrigins)
				assert.True(t, cfg.Cleanup.Enabled)
				assert.Equal(t, time.Hour, cfg.Cleanup.Interval)
				assert.Equal(t, 24*time.Hour, cfg.Cleanup.GracePeriod)
				assert.Equal(t, ":9091", cfg.Worker.MetricsAddr)
			},
		},
		{
			name: "prefixed environment variables",
			setup: func(t *testing.T) {
				t.Setenv("APP_SERVER_PORT", "9090")
				t.Setenv("APP_DATABASE_HOST", "testdb")
				t.Setenv("APP_UPLOAD_WRITETIMEOUT", "45s")
				t.Setenv("APP_RABBITMQ_ENABLED", "true")
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, "testdb", cfg.Database.Host)
				assert.Equal(t, 45*time.Second, cfg.Upload.WriteTimeout)
				assert.True(t, cfg.RabbitMQ.Enabled)
			},
		},
		{
			name: "legacy environment variables",
			setup: func(t *testing.T) {
				t.Setenv("PORT", "4000")
				t.Setenv("JWT_SECRET", "s3cret")
				t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/thumbs?sslmode=disable")
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 4000, cfg.Server.Port)
				assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
				assert.Equal(t, "postgres://u:p@db:5432/thumbs?sslmode=disable", cfg.Database.DSN())
			},
		},
		{
			name: "prefixed variable wins over legacy name",
			setup: func(t *testing.T) {
				t.Setenv("PORT", "4000")
				t.Setenv("APP_SERVER_PORT", "5000")
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 5000, cfg.Server.Port)
			},
		},
		{
			name: "yaml config file",
			setup: func(t *testing.T) {
				dir := t.TempDir()
				yaml := "server:\n  port: 7070\nstorage:\n  root: /var/lib/thumbs\nauth:\n  tokenttl: 2h\n"
				require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))
				t.Chdir(dir)
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 7070, cfg.Server.Port)
				assert.Equal(t, "/var/lib/thumbs", cfg.Storage.Root)
				assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
				// untouched keys keep their defaults
				assert.Equal(t, "thumbnails", cfg.Storage.ThumbnailDir)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup(t)

			cfg, err := Load()
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:  ServerConfig{Port: 3000},
			Auth:    AuthConfig{JWTSecret: "x", ResetTokenTTL: 10 * time.Minute},
			Storage: StorageConfig{Root: "uploads", ThumbnailDir: "thumbnails"},
			Upload:  UploadConfig{MaxBytes: 1024, WriteTimeout: time.Minute},
		}
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("missing secret", func(t *testing.T) {
		cfg := valid()
		cfg.Auth.JWTSecret = ""
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "JWT_SECRET")
	})

	t.Run("queue without redis", func(t *testing.T) {
		cfg := valid()
		cfg.Queue = QueueConfig{Enabled: true}
		assert.Error(t, cfg.Validate())
	})

	t.Run("cleanup needs positive interval and grace period", func(t *testing.T) {
		tests := []struct {
			name     string
			interval time.Duration
			grace    time.Duration
			wantKey  string
		}{
			{name: "zero interval", interval: 0, grace: time.Hour, wantKey: "cleanup.interval"},
			{name: "negative interval", interval: -time.Second, grace: time.Hour, wantKey: "cleanup.interval"},
			{name: "zero grace", interval: time.Hour, grace: 0, wantKey: "cleanup.graceperiod"},
			{name: "negative grace", interval: time.Hour, grace: -time.Minute, wantKey: "cleanup.graceperiod"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				cfg := valid()
				cfg.Cleanup = CleanupConfig{Enabled: true, Interval: tt.interval, GracePeriod: tt.grace}

				err := cfg.Validate()
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantKey)

				err = cfg.ValidateWorker()
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantKey)
			})
		}
	})

	t.Run("disabled cleanup ignores its durations", func(t *testing.T) {
		cfg := valid()
		cfg.Cleanup = CleanupConfig{Enabled: false}
		assert.NoError(t, cfg.Validate())
		assert.NoError(t, cfg.ValidateWorker())
	})

	t.Run("worker does not need a jwt secret", func(t *testing.T) {
		cfg := valid()
		cfg.Auth.JWTSecret = ""
		cfg.Cleanup = CleanupConfig{Enabled: true, Interval: time.Hour, GracePeriod: 24 * time.Hour}
		assert.NoError(t, cfg.ValidateWorker())
	})

	t.Run("reports every problem", func(t *testing.T) {
		cfg := valid()
		cfg.Server.Port = 0
		cfg.Upload.MaxBytes = 0
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "server.port")
		assert.Contains(t, err.Error(), "upload.maxbytes")
	})
}

func TestBaseURLAndDSN(t *testing.T) {
	assert.Equal(t, "http://localhost:3000", ServerConfig{Port: 3000}.BaseURL())
	assert.Equal(t, "https://thumbs.example.com", ServerConfig{Port: 3000, PublicBaseURL: "https://thumbs.example.com/"}.BaseURL())

	db := DatabaseConfig{Host: "db", Port: 5433, Name: "thumbs", User: "app", Password: "p@ss", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss@db:5433/thumbs?sslmode=disable", db.DSN())

	mq := RabbitMQConfig{Host: "mq", Port: 5672, User: "guest", Password: "guest", VHost: "/"}
	assert.Equal(t, "amqp://guest:guest@mq:5672/", mq.URL())
}

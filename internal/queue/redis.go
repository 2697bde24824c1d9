package queue

import (
	"crypto/tls"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// ParseRedisURL accepts redis://[user:password@]host:port[/db], the TLS
// variant rediss://, or a bare host:port.
func ParseRedisURL(redisURL string) (asynq.RedisClientOpt, error) {
	var opt asynq.RedisClientOpt

	if !strings.Contains(redisURL, "://") {
		if redisURL == "" {
			return opt, fmt.Errorf("redis address is empty")
		}
		opt.Addr = redisURL
		return opt, nil
	}

	u, err := url.Parse(redisURL)
	if err != nil {
		return opt, fmt.Errorf("invalid redis URL: %w", err)
	}

	switch u.Scheme {
	case "redis":
	case "rediss":
		opt.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	default:
		return opt, fmt.Errorf("unsupported redis URL scheme %q (expected redis or rediss)", u.Scheme)
	}

	if u.Host == "" {
		return opt, fmt.Errorf("redis URL missing host")
	}
	opt.Addr = u.Host

	if u.User != nil {
		opt.Username = u.User.Username()
		opt.Password, _ = u.User.Password()
	}

	if dbStr := strings.Trim(u.Path, "/"); dbStr != "" {
		db, err := strconv.Atoi(dbStr)
		if err != nil || db < 0 {
			return opt, fmt.Errorf("invalid database number in redis URL: %s", dbStr)
		}
		opt.DB = db
	}

	return opt, nil
}

// NewRedisClient opens a go-redis client with the same connection settings
// asynq uses. It backs readiness checks.
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opt, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}

	return redis.NewClient(&redis.Options{
		Addr:      opt.Addr,
		Username:  opt.Username,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	}), nil
}

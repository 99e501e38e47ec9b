package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Client.URL == "" {
		return errors.New("client.url is required")
	}
	u, err := url.Parse(c.Client.URL)
	if err != nil {
		return fmt.Errorf("client.url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("client.url scheme must be ws or wss, got %q", u.Scheme)
	}
	if c.Client.ReconnectDelay <= 0 {
		return errors.New("client.reconnect_delay must be > 0")
	}
	if c.Client.RetryInterval <= 0 {
		return errors.New("client.retry_interval must be > 0")
	}
	if c.Client.PingTimeout <= c.Client.PingInterval {
		return fmt.Errorf("client.ping_timeout (%s) must exceed ping_interval (%s)", c.Client.PingTimeout, c.Client.PingInterval)
	}
	if o := c.Client.QueueOrder; o != "fifo" && o != "lifo" {
		return fmt.Errorf("client.queue_order must be fifo or lifo, got %q", c.Client.QueueOrder)
	}
	if c.Client.QueueLimit < 0 {
		return errors.New("client.queue_limit must be >= 0")
	}
	if c.Client.MaxPending < 1 {
		return errors.New("client.max_pending must be >= 1")
	}

	if c.Session.Key == "" {
		return errors.New("session.key is required")
	}

	switch c.Storage.Driver {
	case DriverMemory:
	case DriverBadger:
		if c.Storage.Badger.Dir == "" {
			return errors.New("storage.badger.dir is required")
		}
	case DriverRedis:
		if c.Storage.Redis.Addr == "" {
			return errors.New("storage.redis.addr is required")
		}
		if c.Storage.Redis.DB < 0 {
			return errors.New("storage.redis.db must be >= 0")
		}
	case DriverPostgres:
		if err := c.Storage.Postgres.validate("storage.postgres"); err != nil {
			return err
		}
	default:
		return fmt.Errorf("storage.driver must be one of memory, badger, redis, postgres, got %q", c.Storage.Driver)
	}

	if f := c.Logging.Format; f != "text" && f != "json" {
		return fmt.Errorf("logging.format must be text or json, got %q", f)
	}

	if !c.Status.Disabled && !strings.HasPrefix(c.Status.MetricsPath, "/") {
		return fmt.Errorf("status.metrics_path must start with /, got %q", c.Status.MetricsPath)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}

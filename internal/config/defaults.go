package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultURL              = "ws://localhost:8080/websocket"
	DefaultReconnectDelay   = 5000 * time.Millisecond
	DefaultRetryInterval    = 300 * time.Millisecond
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultPingInterval     = 30 * time.Second
	DefaultPingTimeout      = 60 * time.Second
	DefaultWriteTimeout     = 10 * time.Second
	DefaultQueueOrder       = "fifo"
	DefaultRequestTTL       = 2 * time.Minute
	DefaultMaxPending       = 10000
	DefaultSessionKey       = "session"
	DefaultStorageDriver    = DriverBadger
	DefaultBadgerDir        = "data/session"
	DefaultRedisAddr        = "localhost:6379"
	DefaultRedisPrefix      = "meshlink:"
	DefaultDBPort           = 5432
	DefaultDBSSLMode        = "prefer"
	DefaultDBAppName        = "meshlink"
	DefaultMaxConns         = 4
	DefaultMinConns         = 1
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "text"
	DefaultLogMaxSizeMB     = 100
	DefaultLogMaxBackups    = 3
	DefaultLogMaxAgeDays    = 28
	DefaultStatusAddr       = ":9090"
	DefaultMetricsPath      = "/metrics"
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	// Client defaults
	if c.Client.URL == "" {
		c.Client.URL = DefaultURL
	}
	if c.Client.ReconnectDelay == 0 {
		c.Client.ReconnectDelay = DefaultReconnectDelay
	}
	if c.Client.RetryInterval == 0 {
		c.Client.RetryInterval = DefaultRetryInterval
	}
	if c.Client.HandshakeTimeout == 0 {
		c.Client.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Client.PingInterval == 0 {
		c.Client.PingInterval = DefaultPingInterval
	}
	if c.Client.PingTimeout == 0 {
		c.Client.PingTimeout = DefaultPingTimeout
	}
	if c.Client.WriteTimeout == 0 {
		c.Client.WriteTimeout = DefaultWriteTimeout
	}
	if c.Client.QueueOrder == "" {
		c.Client.QueueOrder = DefaultQueueOrder
	}
	if c.Client.RequestTTL == 0 {
		c.Client.RequestTTL = DefaultRequestTTL
	}
	if c.Client.MaxPending == 0 {
		c.Client.MaxPending = DefaultMaxPending
	}

	// Session defaults
	if c.Session.Key == "" {
		c.Session.Key = DefaultSessionKey
	}

	// Storage defaults
	if c.Storage.Driver == "" {
		c.Storage.Driver = DefaultStorageDriver
	}
	if c.Storage.Badger.Dir == "" {
		c.Storage.Badger.Dir = DefaultBadgerDir
	}
	if c.Storage.Redis.Addr == "" {
		c.Storage.Redis.Addr = DefaultRedisAddr
	}
	if c.Storage.Redis.Prefix == "" {
		c.Storage.Redis.Prefix = DefaultRedisPrefix
	}
	applyDBDefaults(&c.Storage.Postgres)

	// Logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = DefaultLogMaxSizeMB
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = DefaultLogMaxBackups
	}
	if c.Logging.MaxAgeDays == 0 {
		c.Logging.MaxAgeDays = DefaultLogMaxAgeDays
	}

	// Status defaults
	if c.Status.Addr == "" {
		c.Status.Addr = DefaultStatusAddr
	}
	if c.Status.MetricsPath == "" {
		c.Status.MetricsPath = DefaultMetricsPath
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.AppName == "" {
		db.AppName = DefaultDBAppName
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}

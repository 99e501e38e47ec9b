package config

import "time"

// Config is the root configuration for a meshlink client.
type Config struct {
	Client  ClientConfig  `yaml:"client" toml:"client"`
	Session SessionConfig `yaml:"session" toml:"session"`
	Storage StorageConfig `yaml:"storage" toml:"storage"`
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
	Status  StatusConfig  `yaml:"status" toml:"status"`
}

// ClientConfig holds the connection manager settings.
type ClientConfig struct {
	URL              string        `yaml:"url" toml:"url"`
	ReconnectDelay   time.Duration `yaml:"reconnect_delay" toml:"reconnect_delay"`
	RetryInterval    time.Duration `yaml:"retry_interval" toml:"retry_interval"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout" toml:"handshake_timeout"`
	PingInterval     time.Duration `yaml:"ping_interval" toml:"ping_interval"`
	PingTimeout      time.Duration `yaml:"ping_timeout" toml:"ping_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout" toml:"write_timeout"`
	QueueOrder       string        `yaml:"queue_order" toml:"queue_order"` // "fifo" or "lifo"
	QueueLimit       int           `yaml:"queue_limit" toml:"queue_limit"` // 0 = unbounded
	RequestTTL       time.Duration `yaml:"request_ttl" toml:"request_ttl"`
	MaxPending       int           `yaml:"max_pending" toml:"max_pending"`
}

// SessionConfig holds the session identity settings.
type SessionConfig struct {
	Key string `yaml:"key" toml:"key"` // Storage key of the session identity
}

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverBadger   = "badger"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// StorageConfig selects and configures the session store.
type StorageConfig struct {
	Driver   string       `yaml:"driver" toml:"driver"`
	Badger   BadgerConfig `yaml:"badger" toml:"badger"`
	Redis    RedisConfig  `yaml:"redis" toml:"redis"`
	Postgres DBConfig     `yaml:"postgres" toml:"postgres"`
}

// BadgerConfig holds the embedded store settings.
type BadgerConfig struct {
	Dir string `yaml:"dir" toml:"dir"`
}

// RedisConfig holds the Redis store settings.
type RedisConfig struct {
	Addr     string `yaml:"addr" toml:"addr"`
	Password string `yaml:"password" toml:"password"`
	DB       int    `yaml:"db" toml:"db"`
	Prefix   string `yaml:"prefix" toml:"prefix"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host" toml:"host"`
	Port     int    `yaml:"port" toml:"port"`
	Name     string `yaml:"name" toml:"name"`
	User     string `yaml:"user" toml:"user"`
	Password string `yaml:"password" toml:"password"`
	SSLMode  string `yaml:"ssl_mode" toml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns" toml:"max_conns"`
	MinConns int    `yaml:"min_conns" toml:"min_conns"`
	AppName  string `yaml:"application_name" toml:"application_name"` // shown in pg_stat_activity
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level      string `yaml:"level" toml:"level"`   // debug, info, warn, error
	Format     string `yaml:"format" toml:"format"` // text or json
	File       string `yaml:"file" toml:"file"`     // empty = stderr
	MaxSizeMB  int    `yaml:"max_size_mb" toml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" toml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" toml:"max_age_days"`
	Compress   bool   `yaml:"compress" toml:"compress"`
}

// StatusConfig holds the health and metrics endpoint settings.
type StatusConfig struct {
	Disabled    bool   `yaml:"disabled" toml:"disabled"`
	Addr        string `yaml:"addr" toml:"addr"`
	MetricsPath string `yaml:"metrics_path" toml:"metrics_path"`
}

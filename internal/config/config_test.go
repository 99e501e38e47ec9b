package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
client:
  url: wss://mesh.example.org/websocket
  reconnect_delay: 2s
session:
  key: mesh-session
storage:
  driver: redis
  redis:
    addr: redis:6379
    db: 2
`
	path := writeTempFile(t, "config.yaml", yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Client.URL != "wss://mesh.example.org/websocket" {
		t.Errorf("Client.URL = %q, want %q", cfg.Client.URL, "wss://mesh.example.org/websocket")
	}
	if cfg.Client.ReconnectDelay != 2*time.Second {
		t.Errorf("Client.ReconnectDelay = %v, want 2s", cfg.Client.ReconnectDelay)
	}
	if cfg.Session.Key != "mesh-session" {
		t.Errorf("Session.Key = %q, want %q", cfg.Session.Key, "mesh-session")
	}
	if cfg.Storage.Redis.DB != 2 {
		t.Errorf("Storage.Redis.DB = %d, want 2", cfg.Storage.Redis.DB)
	}
}

func TestLoadTOML(t *testing.T) {
	toml := `
[client]
url = "ws://127.0.0.1:9000/websocket"
retry_interval = "150ms"
queue_order = "lifo"

[storage]
driver = "memory"

[logging]
level = "debug"
format = "json"
`
	path := writeTempFile(t, "config.toml", toml)

	cfg, err := LoadAndValidate(path)
	if err != nil {
		t.Fatalf("LoadAndValidate failed: %v", err)
	}

	if cfg.Client.RetryInterval != 150*time.Millisecond {
		t.Errorf("Client.RetryInterval = %v, want 150ms", cfg.Client.RetryInterval)
	}
	if cfg.Client.QueueOrder != "lifo" {
		t.Errorf("Client.QueueOrder = %q, want lifo", cfg.Client.QueueOrder)
	}
	if cfg.Storage.Driver != DriverMemory {
		t.Errorf("Storage.Driver = %q, want %q", cfg.Storage.Driver, DriverMemory)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want json", cfg.Logging.Format)
	}
	if cfg.Client.ReconnectDelay != DefaultReconnectDelay {
		t.Errorf("Client.ReconnectDelay = %v, want default %v", cfg.Client.ReconnectDelay, DefaultReconnectDelay)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "secret123")

	yaml := `
storage:
  driver: postgres
  postgres:
    host: localhost
    name: mesh
    user: mesh
    password: ${TEST_DB_PASSWORD}
`
	path := writeTempFile(t, "config.yaml", yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Storage.Postgres.Password != "secret123" {
		t.Errorf("Storage.Postgres.Password = %q, want %q", cfg.Storage.Postgres.Password, "secret123")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	path := writeTempFile(t, "config.yaml", "client:\n  url: ws://localhost:1234/ws\n")

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.Client.ReconnectDelay != DefaultReconnectDelay {
		t.Errorf("Client.ReconnectDelay = %v, want default %v", cfg.Client.ReconnectDelay, DefaultReconnectDelay)
	}
	if cfg.Client.RetryInterval != DefaultRetryInterval {
		t.Errorf("Client.RetryInterval = %v, want default %v", cfg.Client.RetryInterval, DefaultRetryInterval)
	}
	if cfg.Session.Key != DefaultSessionKey {
		t.Errorf("Session.Key = %q, want default %q", cfg.Session.Key, DefaultSessionKey)
	}
	if cfg.Storage.Driver != DefaultStorageDriver {
		t.Errorf("Storage.Driver = %q, want default %q", cfg.Storage.Driver, DefaultStorageDriver)
	}
	if cfg.Storage.Postgres.Port != DefaultDBPort {
		t.Errorf("Storage.Postgres.Port = %d, want default %d", cfg.Storage.Postgres.Port, DefaultDBPort)
	}
	if cfg.Storage.Postgres.AppName != DefaultDBAppName {
		t.Errorf("Storage.Postgres.AppName = %q, want default %q", cfg.Storage.Postgres.AppName, DefaultDBAppName)
	}
	if cfg.Status.Addr != DefaultStatusAddr {
		t.Errorf("Status.Addr = %q, want default %q", cfg.Status.Addr, DefaultStatusAddr)
	}
}

func TestLoadAndValidateEmptyPath(t *testing.T) {
	cfg, err := LoadAndValidate("")
	if err != nil {
		t.Fatalf("LoadAndValidate failed: %v", err)
	}
	if cfg.Client.URL != DefaultURL {
		t.Errorf("Client.URL = %q, want default %q", cfg.Client.URL, DefaultURL)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing url",
			mutate:  func(c *Config) { c.Client.URL = "" },
			wantErr: "client.url is required",
		},
		{
			name:    "http url",
			mutate:  func(c *Config) { c.Client.URL = "http://localhost/ws" },
			wantErr: `client.url scheme must be ws or wss, got "http"`,
		},
		{
			name:    "bad queue order",
			mutate:  func(c *Config) { c.Client.QueueOrder = "random" },
			wantErr: `client.queue_order must be fifo or lifo, got "random"`,
		},
		{
			name:    "negative queue limit",
			mutate:  func(c *Config) { c.Client.QueueLimit = -1 },
			wantErr: "client.queue_limit must be >= 0",
		},
		{
			name: "ping timeout not above interval",
			mutate: func(c *Config) {
				c.Client.PingInterval = 10 * time.Second
				c.Client.PingTimeout = 10 * time.Second
			},
			wantErr: "client.ping_timeout (10s) must exceed ping_interval (10s)",
		},
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.Storage.Driver = "etcd" },
			wantErr: `storage.driver must be one of memory, badger, redis, postgres, got "etcd"`,
		},
		{
			name: "missing postgres host",
			mutate: func(c *Config) {
				c.Storage.Driver = DriverPostgres
			},
			wantErr: "storage.postgres.host is required",
		},
		{
			name: "min_conns exceeds max_conns",
			mutate: func(c *Config) {
				c.Storage.Driver = DriverPostgres
				c.Storage.Postgres = DBConfig{Host: "localhost", Name: "db", User: "user", MaxConns: 5, MinConns: 10}
			},
			wantErr: "storage.postgres.min_conns (10) cannot exceed max_conns (5)",
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: `logging.format must be text or json, got "xml"`,
		},
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error containing %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

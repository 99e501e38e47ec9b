package database

import (
	"net"
	"net/url"
	"strconv"

	"github.com/rickgao/meshlink/internal/config"
)

// BuildConnString builds the PostgreSQL URL for the session store. Empty
// ssl_mode and application_name fall back to the config defaults so the
// connection is identifiable in pg_stat_activity.
func BuildConnString(cfg config.DBConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = config.DefaultDBSSLMode
	}
	appName := cfg.AppName
	if appName == "" {
		appName = config.DefaultDBAppName
	}

	q := url.Values{}
	q.Set("sslmode", sslMode)
	q.Set("application_name", appName)

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:     "/" + cfg.Name,
		RawQuery: q.Encode(),
	}
	return u.String()
}

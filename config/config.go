// Package config assembles database connection settings from the
// environment. The variable names and defaults follow the deployment
// convention of the platform this runner ships with.
package config

import (
	"fmt"
	"net/url"
	"os"
)

// Adapter names accepted by the runner.
const (
	AdapterPostgres = "postgres"
	AdapterMySQL    = "mysql"
	AdapterSQLite   = "sqlite"
)

// Config holds connection settings for the target database.
type Config struct {
	// Adapter selects the database: postgres (default), mysql or sqlite.
	Adapter string

	// PostgreSQL settings.
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string

	// MySQLDSN is a go-sql-driver DSN, e.g. user:pass@tcp(host:3306)/db.
	MySQLDSN string

	// SQLitePath is the database file path.
	SQLitePath string
}

// FromEnv builds a Config from environment variables:
//
//	MIGRATE_ADAPTER    postgres | mysql | sqlite (default: postgres)
//	POSTGRES_HOST      default: localhost
//	POSTGRES_PORT      default: 5432
//	POSTGRES_USER      default: ke_user
//	POSTGRES_PASSWORD  default: changeme
//	POSTGRES_DB        default: knowledge_engine
//	POSTGRES_SSLMODE   default: disable
//	MYSQL_DSN          no default
//	SQLITE_PATH        default: knowledge_engine.db
func FromEnv() Config {
	return Config{
		Adapter:    getenv("MIGRATE_ADAPTER", AdapterPostgres),
		Host:       getenv("POSTGRES_HOST", "localhost"),
		Port:       getenv("POSTGRES_PORT", "5432"),
		User:       getenv("POSTGRES_USER", "ke_user"),
		Password:   getenv("POSTGRES_PASSWORD", "changeme"),
		Database:   getenv("POSTGRES_DB", "knowledge_engine"),
		SSLMode:    getenv("POSTGRES_SSLMODE", "disable"),
		MySQLDSN:   os.Getenv("MYSQL_DSN"),
		SQLitePath: getenv("SQLITE_PATH", "knowledge_engine.db"),
	}
}

// DSN returns the driver-specific connection string for the selected
// adapter.
func (c Config) DSN() (string, error) {
	switch c.Adapter {
	case AdapterPostgres:
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(c.User, c.Password),
			Host:     c.Host + ":" + c.Port,
			Path:     "/" + c.Database,
			RawQuery: "sslmode=" + c.SSLMode,
		}
		return u.String(), nil
	case AdapterMySQL:
		if c.MySQLDSN == "" {
			return "", fmt.Errorf("MYSQL_DSN is required for the mysql adapter")
		}
		return c.MySQLDSN, nil
	case AdapterSQLite:
		return c.SQLitePath, nil
	default:
		return "", fmt.Errorf("unsupported adapter %q (expected postgres, mysql or sqlite)", c.Adapter)
	}
}

// DriverName returns the database/sql driver name for the selected adapter.
func (c Config) DriverName() (string, error) {
	switch c.Adapter {
	case AdapterPostgres:
		return "postgres", nil
	case AdapterMySQL:
		return "mysql", nil
	case AdapterSQLite:
		return "sqlite3", nil
	default:
		return "", fmt.Errorf("unsupported adapter %q (expected postgres, mysql or sqlite)", c.Adapter)
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

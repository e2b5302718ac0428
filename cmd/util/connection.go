package util

import (
	"context"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/pgschema/pgmerge/internal/config"
	"github.com/pgschema/pgmerge/internal/logger"
)

// ConnectionConfig holds database connection parameters
type ConnectionConfig struct {
	Host            string
	Port            int
	Database        string
	User            string
	Password        string
	SSLMode         string
	ApplicationName string
}

// Connect establishes a database connection using the provided configuration.
// The pool holds a single connection so that session settings such as
// lock_timeout apply to every statement of a run.
func Connect(ctx context.Context, config *ConnectionConfig) (*sqlx.DB, error) {
	log := logger.Get()

	log.Debug("Attempting database connection",
		"host", config.Host,
		"port", config.Port,
		"database", config.Database,
		"user", config.User,
		"sslmode", config.SSLMode,
		"application_name", config.ApplicationName,
	)

	conn, err := sqlx.Open("pgx", buildDSN(config))
	if err != nil {
		log.Debug("Database connection failed", "error", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.PingContext(ctx); err != nil {
		log.Debug("Database ping failed", "error", err)
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Debug("Database connection established successfully")
	return conn, nil
}

// fillFrom copies settings from the config file into fields still empty.
func (c *ConnectionConfig) fillFrom(file config.Connection) {
	if c.Host == "" {
		c.Host = file.Host
	}
	if c.Port == 0 {
		c.Port = file.Port
	}
	if c.Database == "" {
		c.Database = file.Database
	}
	if c.User == "" {
		c.User = file.User
	}
	if c.Password == "" {
		c.Password = file.Password
	}
	if c.SSLMode == "" {
		c.SSLMode = file.SSLMode
	}
	if c.ApplicationName == "" {
		c.ApplicationName = file.ApplicationName
	}
}

// buildDSN constructs a PostgreSQL connection string from connection parameters
func buildDSN(config *ConnectionConfig) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("host=%s", config.Host))
	parts = append(parts, fmt.Sprintf("port=%d", config.Port))
	parts = append(parts, fmt.Sprintf("dbname=%s", config.Database))
	parts = append(parts, fmt.Sprintf("user=%s", config.User))

	if config.Password != "" {
		parts = append(parts, fmt.Sprintf("password=%s", config.Password))
	}

	if config.SSLMode != "" {
		parts = append(parts, fmt.Sprintf("sslmode=%s", config.SSLMode))
	}

	if config.ApplicationName != "" {
		parts = append(parts, fmt.Sprintf("application_name=%s", config.ApplicationName))
	}

	return strings.Join(parts, " ")
}

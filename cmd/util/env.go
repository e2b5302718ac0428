package util

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pgschema/pgmerge/internal/config"
)

// Connection defaults used when neither a flag, the environment nor the
// config file provides a value.
const (
	DefaultHost            = "localhost"
	DefaultPort            = 5432
	DefaultSSLMode         = "prefer"
	DefaultApplicationName = "pgmerge"
)

// GetEnvWithDefault returns the value of an environment variable or a default value if not set
func GetEnvWithDefault(envVar, defaultValue string) string {
	if value := os.Getenv(envVar); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvIntWithDefault returns the value of an environment variable as int or a default value if not set
func GetEnvIntWithDefault(envVar string, defaultValue int) int {
	if value := os.Getenv(envVar); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// ConnectionFlags are the connection flags shared by plan and apply
type ConnectionFlags struct {
	Host            string
	Port            int
	Database        string
	User            string
	Password        string
	SSLMode         string
	ApplicationName string
}

// Register adds the connection flags to cmd
func (f *ConnectionFlags) Register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Host, "host", DefaultHost, "Database server host (env: PGHOST)")
	cmd.Flags().IntVar(&f.Port, "port", DefaultPort, "Database server port (env: PGPORT)")
	cmd.Flags().StringVar(&f.Database, "db", "", "Database name (required) (env: PGDATABASE)")
	cmd.Flags().StringVar(&f.User, "user", "", "Database user name (required) (env: PGUSER)")
	cmd.Flags().StringVar(&f.Password, "password", "", "Database password (optional, can also use PGPASSWORD env var)")
	cmd.Flags().StringVar(&f.SSLMode, "sslmode", DefaultSSLMode, "SSL mode (env: PGSSLMODE)")
	cmd.Flags().StringVar(&f.ApplicationName, "application-name", DefaultApplicationName, "Application name for database connection (visible in pg_stat_activity) (env: PGAPPNAME)")
}

// Resolve builds the connection settings. Each value comes from the first
// source that has it: an explicitly set flag, the PG* environment variable,
// the config file, then the flag default.
func (f *ConnectionFlags) Resolve(cmd *cobra.Command, file config.Connection) (*ConnectionConfig, error) {
	flags := cmd.Flags()
	pick := func(flag, env string, value string) string {
		if flags.Changed(flag) {
			return value
		}
		return GetEnvWithDefault(env, "")
	}

	cfg := &ConnectionConfig{
		Host:            pick("host", "PGHOST", f.Host),
		Database:        pick("db", "PGDATABASE", f.Database),
		User:            pick("user", "PGUSER", f.User),
		Password:        pick("password", "PGPASSWORD", f.Password),
		SSLMode:         pick("sslmode", "PGSSLMODE", f.SSLMode),
		ApplicationName: pick("application-name", "PGAPPNAME", f.ApplicationName),
	}
	if flags.Changed("port") {
		cfg.Port = f.Port
	} else {
		cfg.Port = GetEnvIntWithDefault("PGPORT", 0)
	}
	cfg.fillFrom(file)

	if cfg.Host == "" {
		cfg.Host = f.Host
	}
	if cfg.Port == 0 {
		cfg.Port = f.Port
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = f.SSLMode
	}
	if cfg.ApplicationName == "" {
		cfg.ApplicationName = f.ApplicationName
	}

	if cfg.Database == "" {
		return nil, fmt.Errorf("database name is required (use --db flag, PGDATABASE environment variable or the config file)")
	}
	if cfg.User == "" {
		return nil, fmt.Errorf("database user is required (use --user flag, PGUSER environment variable or the config file)")
	}
	return cfg, nil
}

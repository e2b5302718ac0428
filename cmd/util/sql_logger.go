package util

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/pgschema/pgmerge/internal/logger"
	"github.com/pgschema/pgmerge/internal/merge"
	"github.com/pgschema/pgmerge/schema"
)

// ExecContextWithLogging runs one statement, logging it and its outcome at debug level
func ExecContextWithLogging(ctx context.Context, db merge.Execer, sqlStmt string, description string) (sql.Result, error) {
	log := logger.Get()
	log.Debug("Executing SQL", "description", description, "sql", sqlStmt)

	start := time.Now()
	result, err := db.ExecContext(ctx, sqlStmt)
	if err != nil {
		log.Debug("SQL execution failed", "description", description, "error", err)
		return nil, err
	}
	log.Debug("SQL execution succeeded", "description", description, "duration", time.Since(start))
	return result, nil
}

// SetLockTimeout bounds how long every later statement of the session waits
// for a lock. An empty timeout keeps the server setting.
func SetLockTimeout(ctx context.Context, db merge.Execer, timeout string) error {
	if timeout == "" {
		return nil
	}
	setting, err := lockTimeoutSetting(timeout)
	if err != nil {
		return err
	}
	stmt := "SET lock_timeout = " + schema.QuoteLiteral(setting)
	if _, err := ExecContextWithLogging(ctx, db, stmt, "set lock timeout"); err != nil {
		return fmt.Errorf("failed to set lock timeout: %w", err)
	}
	return nil
}

// lockTimeoutSetting converts a Go duration such as "5m" to milliseconds,
// since PostgreSQL spells minutes "min". A bare number is already milliseconds.
func lockTimeoutSetting(timeout string) (string, error) {
	if _, err := strconv.ParseUint(timeout, 10, 64); err == nil {
		return timeout, nil
	}
	d, err := time.ParseDuration(timeout)
	if err != nil || d < 0 {
		return "", fmt.Errorf("invalid lock timeout %q: use a duration such as 30s, 5m or 1h", timeout)
	}
	return strconv.FormatInt(d.Milliseconds(), 10) + "ms", nil
}

package merge

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/pgschema/pgmerge/internal/logger"
)

// Execer runs one statement. *sql.DB, *sql.Conn and *sqlx.DB satisfy it.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// ExecError reports the statement that failed. Statements before it have
// already been applied.
type ExecError struct {
	Action Action
	SQL    string
	Err    error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("failed to execute %s: %v\nstatement: %s", e.Action, e.Err, e.SQL)
}

func (e *ExecError) Unwrap() error { return e.Err }

// Executor applies actions over one connection.
type Executor struct {
	conn Execer
	log  *slog.Logger
}

// NewExecutor returns an executor that runs statements on conn.
func NewExecutor(conn Execer) *Executor {
	return &Executor{conn: conn, log: logger.Get()}
}

// Run validates the actions and executes their statements in order. Nothing
// runs when any action is invalid.
func (e *Executor) Run(ctx context.Context, actions []Action) error {
	if errs := Validate(actions); len(errs) > 0 {
		return errs
	}
	for _, a := range actions {
		e.log.Debug("Executing action", "action", a.String())
		for _, stmt := range a.Commands() {
			if err := e.exec(ctx, a, stmt); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Executor) exec(ctx context.Context, a Action, stmt string) error {
	e.log.Debug("Executing SQL", "action", a.String(), "sql", stmt)
	if _, err := e.conn.ExecContext(ctx, stmt); err != nil {
		e.log.Debug("SQL execution failed", "action", a.String(), "error", err)
		return &ExecError{Action: a, SQL: stmt, Err: err}
	}
	return nil
}

// ExecScript runs a rendered script batch by batch.
func (e *Executor) ExecScript(ctx context.Context, script string) error {
	batches, err := SplitScript(script)
	if err != nil {
		return err
	}
	for i, batch := range batches {
		for _, stmt := range batch {
			e.log.Debug("Executing SQL", "batch", i+1, "sql", stmt)
			if _, err := e.conn.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to apply statement in batch %d '%s': %w", i+1, stmt, err)
			}
		}
	}
	return nil
}

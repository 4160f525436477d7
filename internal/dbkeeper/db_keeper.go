package dbkeeper

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/drstein77/receiptanalyzer/internal/models"
	"github.com/drstein77/receiptanalyzer/internal/normalize"
	"go.uber.org/zap"
)

type Log interface {
	Info(string, ...zap.Field)
	Warn(string, ...zap.Field)
	Error(string, ...zap.Field)
}

type DBKeeper struct {
	db      *sql.DB
	dialect Dialect
	timeout time.Duration
	log     Log
}

// NewDBKeeper opens the database behind dsn with the given driver
// (sqlite3, sqlite or pgx) and checks that it answers.
func NewDBKeeper(ctx context.Context, driver string, dsn func() string, timeout time.Duration, log Log) (*DBKeeper, error) {
	addr := dsn()
	if addr == "" {
		return nil, errors.New("database dsn is empty")
	}

	dialect, err := LookupDialect(driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(dialect.Driver, addr)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	kp := &DBKeeper{
		db:      db,
		dialect: dialect,
		timeout: timeout,
		log:     log,
	}

	if dialect.SQLite {
		// one writer, and in-memory databases live on a single connection
		db.SetMaxOpenConns(1)
	}

	if !kp.Ping(ctx) {
		_ = db.Close()
		return nil, fmt.Errorf("unable to connect to database %s", driver)
	}

	if dialect.SQLite {
		if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout=5000`); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set busy_timeout: %w", err)
		}
	}

	log.Info("Connected!", zap.String("driver", driver))

	return kp, nil
}

// Dialect returns the SQL dialect of the open database.
func (kp *DBKeeper) Dialect() Dialect {
	return kp.dialect
}

// QueryContext runs query under the keeper's statement timeout. Placeholders
// are written as '?' and rebound for the dialect. The returned cancel func
// must be called once the rows are consumed.
func (kp *DBKeeper) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, context.CancelFunc, error) {
	if kp.db == nil {
		return nil, nil, fmt.Errorf("database connection is nil")
	}

	ctx, cancel := kp.withTimeout(ctx)
	rows, err := kp.db.QueryContext(ctx, kp.dialect.Rebind(query), args...)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	return rows, cancel, nil
}

// WriteTable replaces table t.Name with the content of t: drop, create with
// inferred column types, insert every row. It all happens in one transaction.
func (kp *DBKeeper) WriteTable(ctx context.Context, t *normalize.Table) (err error) {
	if kp.db == nil {
		return fmt.Errorf("database connection is nil")
	}

	ctx, cancel := kp.withTimeout(ctx)
	defer cancel()

	tx, err := kp.db.BeginTx(ctx, nil)
	if err != nil {
		kp.log.Error("Failed to begin transaction", zap.Error(err))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	// Using deferred function to rollback transaction in case of an error
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				kp.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, `DROP TABLE IF EXISTS `+Quote(t.Name)); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", t.Name, err)
	}

	if len(t.Columns) == 0 {
		kp.log.Warn("table has no columns, nothing to create", zap.String("table", t.Name))
		if err = tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		return nil
	}

	kinds := t.Kinds()
	defs := make([]string, 0, len(t.Columns))
	cols := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		defs = append(defs, Quote(c)+" "+kp.dialect.Type(kinds[c]))
		cols = append(cols, Quote(c))
	}
	if _, err = tx.ExecContext(ctx, `CREATE TABLE `+Quote(t.Name)+` (`+strings.Join(defs, ", ")+`)`); err != nil {
		return fmt.Errorf("failed to create table %s: %w", t.Name, err)
	}

	ph := strings.TrimRight(strings.Repeat("?, ", len(cols)), ", ")
	insert := kp.dialect.Rebind(`INSERT INTO ` + Quote(t.Name) + ` (` + strings.Join(cols, ", ") + `) VALUES (` + ph + `)`)
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("failed to prepare insert into %s: %w", t.Name, err)
	}
	defer stmt.Close()

	for i, row := range t.Rows {
		args := make([]any, 0, len(t.Columns))
		for _, c := range t.Columns {
			v, convErr := columnValue(kinds[c], row[c])
			if convErr != nil {
				err = fmt.Errorf("row %d column %s: %w", i, c, convErr)
				return err
			}
			args = append(args, v)
		}
		if _, err = stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to insert row %d into %s: %w", i, t.Name, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	kp.log.Info("Table written", zap.String("table", t.Name), zap.Int("rows", len(t.Rows)), zap.Int("columns", len(t.Columns)))
	return nil
}

// Columns lists the columns of a persisted table in declaration order.
func (kp *DBKeeper) Columns(ctx context.Context, table string) ([]models.Column, error) {
	rows, cancel, err := kp.QueryContext(ctx, kp.dialect.columnsQuery, table)
	if err != nil {
		kp.log.Error("Failed to execute query", zap.Error(err))
		return nil, fmt.Errorf("failed to list columns of %s: %w", table, err)
	}
	defer cancel()
	defer rows.Close()

	var out []models.Column
	for rows.Next() {
		var c models.Column
		if err := rows.Scan(&c.Name, &c.Type); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return out, nil
}

func (kp *DBKeeper) Ping(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := kp.db.PingContext(ctx); err != nil {
		kp.log.Error("Database ping failed", zap.Error(err))
		return false
	}

	return true
}

func (kp *DBKeeper) Close() bool {
	if kp.db != nil {
		if err := kp.db.Close(); err != nil {
			kp.log.Error("Failed to close database", zap.Error(err))
			return false
		}
		kp.log.Info("Database connection closed")
		return true
	}
	kp.log.Info("Attempted to close a nil database connection")
	return false
}

func (kp *DBKeeper) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if kp.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, kp.timeout)
}

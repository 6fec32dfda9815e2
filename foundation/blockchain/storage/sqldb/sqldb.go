// Package sqldb implements the ledger storage over database/sql. Postgres is
// used in production and SQLite for development and tests; both share the
// same queries and differ only in schema types and row locking.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/btc2/ledgerchain/foundation/blockchain/ledger"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// sqliteParams are applied to SQLite URLs that carry no parameters. Writers
// take the database lock when the transaction begins.
const sqliteParams = "?_busy_timeout=5000&_txlock=immediate&_foreign_keys=on&_journal_mode=WAL"

// Config is the required properties to use the database.
type Config struct {
	Driver       string
	URL          string
	MaxIdleConns int
	MaxOpenConns int
}

// DB is the ledger storage.
type DB struct {
	db      *sql.DB
	dialect dialect
}

// Compile-time interface check.
var _ ledger.Storage = (*DB)(nil)

// Open knows how to open a database connection based on the configuration.
func Open(cfg Config) (*DB, error) {
	d, exists := dialects[cfg.Driver]
	if !exists {
		return nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}

	url := cfg.URL
	if cfg.Driver == DriverSQLite && !strings.Contains(url, "?") {
		url += sqliteParams
	}

	db, err := sql.Open(cfg.Driver, url)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	return &DB{db: db, dialect: d}, nil
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.db.Close()
}

// Migrate creates the schema when it does not exist yet.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.db.ExecContext(ctx, db.dialect.schema); err != nil {
		return fmt.Errorf("creating database schema: %w", err)
	}
	return nil
}

// StatusCheck returns nil if it can successfully talk to the database. It
// returns a non-nil error otherwise.
func (db *DB) StatusCheck(ctx context.Context) error {

	// If the user doesn't give us a deadline set 1 second.
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Second)
		defer cancel()
	}

	var pingError error
	for attempts := 1; ; attempts++ {
		pingError = db.db.PingContext(ctx)
		if pingError == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}

	// Run a simple query to determine connectivity.
	var tmp bool
	return db.db.QueryRowContext(ctx, "SELECT true").Scan(&tmp)
}

// Ping implements the ledger.Storage interface.
func (db *DB) Ping(ctx context.Context) error {
	return db.db.PingContext(ctx)
}

// Begin implements the ledger.Storage interface.
func (db *DB) Begin(ctx context.Context, iso ledger.Isolation) (ledger.StorageTx, error) {
	tx, err := db.db.BeginTx(ctx, db.dialect.txOptions(iso))
	if err != nil {
		return nil, dbErr(err)
	}

	return &Tx{tx: tx, dialect: db.dialect}, nil
}

// =============================================================================

// dbErr maps unique constraint violations of either driver onto
// ledger.ErrDuplicateKey.
func dbErr(err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return fmt.Errorf("%w: %v", ledger.ErrDuplicateKey, err)
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return fmt.Errorf("%w: %v", ledger.ErrDuplicateKey, err)
		}
	}

	return err
}

package sqldb

import (
	"database/sql"

	"github.com/btc2/ledgerchain/foundation/blockchain/ledger"
)

// dialect carries what differs between the supported databases.
type dialect struct {
	schema     string
	lockSuffix string
	isolation  bool
}

var dialects = map[string]dialect{
	DriverPostgres: {
		schema:     schemaPostgres,
		lockSuffix: " FOR UPDATE OF t",
		isolation:  true,
	},
	DriverSQLite: {
		schema: schemaSQLite,
	},
}

// txOptions returns the options for a transaction. SQLite serializes
// writers through the immediate transaction lock and takes no level.
func (d dialect) txOptions(iso ledger.Isolation) *sql.TxOptions {
	if !d.isolation {
		return nil
	}

	if iso == ledger.Serializable {
		return &sql.TxOptions{Isolation: sql.LevelSerializable}
	}
	return &sql.TxOptions{Isolation: sql.LevelReadCommitted}
}

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS accounts (
	id BIGSERIAL PRIMARY KEY,
	address BYTEA NOT NULL UNIQUE,
	balance BIGINT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS blocks (
	number BIGINT PRIMARY KEY,
	hash BYTEA NOT NULL UNIQUE,
	sealed_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS transactions (
	id BIGSERIAL PRIMARY KEY,
	hash BYTEA NOT NULL UNIQUE,
	signer_id BIGINT NOT NULL REFERENCES accounts (id),
	amount BIGINT NOT NULL,
	raw BYTEA NOT NULL,
	block_number BIGINT REFERENCES blocks (number)
);
CREATE INDEX IF NOT EXISTS transactions_signer_i ON transactions (signer_id);
CREATE INDEX IF NOT EXISTS transactions_block_i ON transactions (block_number);
CREATE INDEX IF NOT EXISTS transactions_pending_i ON transactions (id) WHERE block_number IS NULL;

CREATE TABLE IF NOT EXISTS entries (
	id BIGSERIAL PRIMARY KEY,
	transaction_id BIGINT NOT NULL REFERENCES transactions (id),
	debtor_id BIGINT NOT NULL REFERENCES accounts (id),
	creditor_id BIGINT NOT NULL REFERENCES accounts (id),
	amount BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS entries_debtor_i ON entries (debtor_id);
CREATE INDEX IF NOT EXISTS entries_creditor_i ON entries (creditor_id);

CREATE TABLE IF NOT EXISTS spent_legacy_outputs (
	hash BYTEA NOT NULL,
	output_index INTEGER NOT NULL,
	transaction_id BIGINT NOT NULL REFERENCES transactions (id),
	PRIMARY KEY (hash, output_index)
);
`

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS accounts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	address BLOB NOT NULL UNIQUE,
	balance INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS blocks (
	number INTEGER PRIMARY KEY,
	hash BLOB NOT NULL UNIQUE,
	sealed_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS transactions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	hash BLOB NOT NULL UNIQUE,
	signer_id INTEGER NOT NULL REFERENCES accounts (id),
	amount INTEGER NOT NULL,
	raw BLOB NOT NULL,
	block_number INTEGER REFERENCES blocks (number)
);
CREATE INDEX IF NOT EXISTS transactions_signer_i ON transactions (signer_id);
CREATE INDEX IF NOT EXISTS transactions_block_i ON transactions (block_number);
CREATE INDEX IF NOT EXISTS transactions_pending_i ON transactions (id) WHERE block_number IS NULL;

CREATE TABLE IF NOT EXISTS entries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	transaction_id INTEGER NOT NULL REFERENCES transactions (id),
	debtor_id INTEGER NOT NULL REFERENCES accounts (id),
	creditor_id INTEGER NOT NULL REFERENCES accounts (id),
	amount INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS entries_debtor_i ON entries (debtor_id);
CREATE INDEX IF NOT EXISTS entries_creditor_i ON entries (creditor_id);

CREATE TABLE IF NOT EXISTS spent_legacy_outputs (
	hash BLOB NOT NULL,
	output_index INTEGER NOT NULL,
	transaction_id INTEGER NOT NULL REFERENCES transactions (id),
	PRIMARY KEY (hash, output_index)
);
`

package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/btc2/ledgerchain/foundation/blockchain/ledger"
	"github.com/ethereum/go-ethereum/common"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// AccountCount implements the ledger.Storage interface.
func (db *DB) AccountCount(ctx context.Context) (int, error) {
	var n int
	if err := db.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Balance implements the ledger.Storage interface. Unknown accounts have a
// zero balance.
func (db *DB) Balance(ctx context.Context, addr common.Address) (int64, error) {
	const q = `SELECT balance FROM accounts WHERE address = $1`

	var balance int64
	err := db.db.QueryRowContext(ctx, q, addr.Bytes()).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// TransactionCount implements the ledger.Storage interface.
func (db *DB) TransactionCount(ctx context.Context, addr common.Address) (int64, error) {
	const q = `
	SELECT COUNT(*)
	FROM transactions t
	JOIN accounts a ON a.id = t.signer_id
	WHERE a.address = $1`

	var n int64
	if err := db.db.QueryRowContext(ctx, q, addr.Bytes()).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// TransactionByHash implements the ledger.Storage interface.
func (db *DB) TransactionByHash(ctx context.Context, hash common.Hash) (ledger.Transaction, error) {
	const q = `
	SELECT t.id, a.address, t.amount, t.raw, t.block_number
	FROM transactions t
	JOIN accounts a ON a.id = t.signer_id
	WHERE t.hash = $1`

	var tx ledger.Transaction
	var signer []byte
	var blockNumber sql.NullInt64

	err := db.db.QueryRowContext(ctx, q, hash.Bytes()).Scan(&tx.ID, &signer, &tx.Amount, &tx.Raw, &blockNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Transaction{}, ledger.ErrNotFound
	}
	if err != nil {
		return ledger.Transaction{}, err
	}

	tx.Hash = hash
	tx.Signer = common.BytesToAddress(signer)
	if blockNumber.Valid {
		n := blockNumber.Int64
		tx.BlockNumber = &n
	}

	return tx, nil
}

// Entries implements the ledger.Storage interface.
func (db *DB) Entries(ctx context.Context, addr common.Address) ([]ledger.Entry, error) {
	const q = `
	SELECT e.transaction_id, t.hash, d.address, c.address, e.amount
	FROM entries e
	JOIN transactions t ON t.id = e.transaction_id
	JOIN accounts d ON d.id = e.debtor_id
	JOIN accounts c ON c.id = e.creditor_id
	WHERE d.address = $1 OR c.address = $1
	ORDER BY e.id`

	rows, err := db.db.QueryContext(ctx, q, addr.Bytes())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []ledger.Entry
	for rows.Next() {
		var e ledger.Entry
		var hash, debtor, creditor []byte
		if err := rows.Scan(&e.TransactionID, &hash, &debtor, &creditor, &e.Amount); err != nil {
			return nil, err
		}
		e.TransactionHash = common.BytesToHash(hash)
		e.Debtor = common.BytesToAddress(debtor)
		e.Creditor = common.BytesToAddress(creditor)
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// BlockByNumber implements the ledger.Storage interface.
func (db *DB) BlockByNumber(ctx context.Context, number int64) (ledger.Block, error) {
	const q = `SELECT number, hash, sealed_at FROM blocks WHERE number = $1`
	return db.block(ctx, q, number)
}

// BlockByHash implements the ledger.Storage interface.
func (db *DB) BlockByHash(ctx context.Context, hash common.Hash) (ledger.Block, error) {
	const q = `SELECT number, hash, sealed_at FROM blocks WHERE hash = $1`
	return db.block(ctx, q, hash.Bytes())
}

// LatestBlock implements the ledger.Storage interface.
func (db *DB) LatestBlock(ctx context.Context) (ledger.Block, bool, error) {
	b, exists, err := latestBlock(ctx, db.db)
	if err != nil || !exists {
		return b, exists, err
	}

	b.Transactions, err = blockTransactions(ctx, db.db, b.Number)
	if err != nil {
		return ledger.Block{}, false, err
	}

	return b, true, nil
}

func (db *DB) block(ctx context.Context, q string, arg any) (ledger.Block, error) {
	b, err := scanBlock(db.db.QueryRowContext(ctx, q, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Block{}, ledger.ErrNotFound
	}
	if err != nil {
		return ledger.Block{}, err
	}

	b.Transactions, err = blockTransactions(ctx, db.db, b.Number)
	if err != nil {
		return ledger.Block{}, err
	}

	return b, nil
}

// =============================================================================

func latestBlock(ctx context.Context, q queryer) (ledger.Block, bool, error) {
	const stmt = `SELECT number, hash, sealed_at FROM blocks ORDER BY number DESC LIMIT 1`

	b, err := scanBlock(q.QueryRowContext(ctx, stmt))
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Block{}, false, nil
	}
	if err != nil {
		return ledger.Block{}, false, err
	}

	return b, true, nil
}

func scanBlock(row *sql.Row) (ledger.Block, error) {
	var b ledger.Block
	var hash []byte
	var sealedAt int64

	if err := row.Scan(&b.Number, &hash, &sealedAt); err != nil {
		return ledger.Block{}, err
	}

	b.Hash = common.BytesToHash(hash)
	b.Timestamp = time.Unix(sealedAt, 0).UTC()

	return b, nil
}

func blockTransactions(ctx context.Context, q queryer, number int64) ([]common.Hash, error) {
	const stmt = `SELECT hash FROM transactions WHERE block_number = $1 ORDER BY id`

	rows, err := q.QueryContext(ctx, stmt, number)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hashes []common.Hash
	for rows.Next() {
		var hash []byte
		if err := rows.Scan(&hash); err != nil {
			return nil, err
		}
		hashes = append(hashes, common.BytesToHash(hash))
	}

	return hashes, rows.Err()
}

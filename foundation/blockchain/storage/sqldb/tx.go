package sqldb

import (
	"context"
	"database/sql"
	"errors"

	"github.com/btc2/ledgerchain/foundation/blockchain/ledger"
	"github.com/btc2/ledgerchain/foundation/blockchain/utxo"
	"github.com/ethereum/go-ethereum/common"
)

// Tx is one ledger storage transaction.
type Tx struct {
	tx      *sql.Tx
	dialect dialect
}

// Compile-time interface check.
var _ ledger.StorageTx = (*Tx)(nil)

// Commit implements the ledger.StorageTx interface.
func (t *Tx) Commit() error {
	return dbErr(t.tx.Commit())
}

// Rollback implements the ledger.StorageTx interface.
func (t *Tx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

// UpsertAccount returns the id of the account, creating it with a zero
// balance on first reference. Neither statement locks an existing account
// row; rows are only locked by AdjustBalance.
func (t *Tx) UpsertAccount(ctx context.Context, addr common.Address) (int64, error) {
	const ins = `INSERT INTO accounts (address, balance) VALUES ($1, 0) ON CONFLICT (address) DO NOTHING`
	const sel = `SELECT id FROM accounts WHERE address = $1`

	if _, err := t.tx.ExecContext(ctx, ins, addr.Bytes()); err != nil {
		return 0, dbErr(err)
	}

	var id int64
	if err := t.tx.QueryRowContext(ctx, sel, addr.Bytes()).Scan(&id); err != nil {
		return 0, dbErr(err)
	}
	return id, nil
}

// AdjustBalance adds delta to the balance of the account and returns the
// new balance.
func (t *Tx) AdjustBalance(ctx context.Context, accountID int64, delta int64) (int64, error) {
	const q = `UPDATE accounts SET balance = balance + $1 WHERE id = $2 RETURNING balance`

	var balance int64
	if err := t.tx.QueryRowContext(ctx, q, delta, accountID).Scan(&balance); err != nil {
		return 0, dbErr(err)
	}
	return balance, nil
}

// InsertTransaction stores the transaction without a block number.
func (t *Tx) InsertTransaction(ctx context.Context, tx ledger.Transaction, signerID int64) (int64, error) {
	const q = `
	INSERT INTO transactions (hash, signer_id, amount, raw) VALUES ($1, $2, $3, $4)
	RETURNING id`

	var id int64
	if err := t.tx.QueryRowContext(ctx, q, tx.Hash.Bytes(), signerID, tx.Amount, tx.Raw).Scan(&id); err != nil {
		return 0, dbErr(err)
	}
	return id, nil
}

// InsertEntry implements the ledger.StorageTx interface.
func (t *Tx) InsertEntry(ctx context.Context, transactionID int64, debtorID int64, creditorID int64, amount int64) error {
	const q = `
	INSERT INTO entries (transaction_id, debtor_id, creditor_id, amount) VALUES ($1, $2, $3, $4)`

	_, err := t.tx.ExecContext(ctx, q, transactionID, debtorID, creditorID, amount)
	return dbErr(err)
}

// OutputSpent reports whether a migration already consumed the output.
func (t *Tx) OutputSpent(ctx context.Context, op utxo.Outpoint) (bool, error) {
	const q = `
	SELECT COUNT(*) FROM spent_legacy_outputs WHERE hash = $1 AND output_index = $2`

	var n int64
	if err := t.tx.QueryRowContext(ctx, q, op.Hash[:], int64(op.Index)).Scan(&n); err != nil {
		return false, dbErr(err)
	}
	return n > 0, nil
}

// InsertSpentOutput records the output as consumed by the transaction. A
// second insert for the same output fails with ledger.ErrDuplicateKey.
func (t *Tx) InsertSpentOutput(ctx context.Context, op utxo.Outpoint, transactionID int64) error {
	const q = `
	INSERT INTO spent_legacy_outputs (hash, output_index, transaction_id) VALUES ($1, $2, $3)`

	_, err := t.tx.ExecContext(ctx, q, op.Hash[:], int64(op.Index), transactionID)
	return dbErr(err)
}

// PendingTransactions returns the transactions without a block, oldest
// first. On Postgres the rows stay locked until the transaction ends.
func (t *Tx) PendingTransactions(ctx context.Context) ([]ledger.Transaction, error) {
	q := `
	SELECT t.id, t.hash, a.address, t.amount, t.raw
	FROM transactions t
	JOIN accounts a ON a.id = t.signer_id
	WHERE t.block_number IS NULL
	ORDER BY t.id` + t.dialect.lockSuffix

	rows, err := t.tx.QueryContext(ctx, q)
	if err != nil {
		return nil, dbErr(err)
	}
	defer rows.Close()

	var txs []ledger.Transaction
	for rows.Next() {
		var tx ledger.Transaction
		var hash, signer []byte
		if err := rows.Scan(&tx.ID, &hash, &signer, &tx.Amount, &tx.Raw); err != nil {
			return nil, err
		}
		tx.Hash = common.BytesToHash(hash)
		tx.Signer = common.BytesToAddress(signer)
		txs = append(txs, tx)
	}

	return txs, rows.Err()
}

// LatestBlock implements the ledger.StorageTx interface.
func (t *Tx) LatestBlock(ctx context.Context) (ledger.Block, bool, error) {
	return latestBlock(ctx, t.tx)
}

// InsertBlock implements the ledger.StorageTx interface.
func (t *Tx) InsertBlock(ctx context.Context, b ledger.Block) error {
	const q = `INSERT INTO blocks (number, hash, sealed_at) VALUES ($1, $2, $3)`

	_, err := t.tx.ExecContext(ctx, q, b.Number, b.Hash.Bytes(), b.Timestamp.Unix())
	return dbErr(err)
}

// StampTransaction assigns the block number to a transaction that has none.
// It reports false when the transaction was already sealed.
func (t *Tx) StampTransaction(ctx context.Context, transactionID int64, blockNumber int64) (bool, error) {
	const q = `UPDATE transactions SET block_number = $1 WHERE id = $2 AND block_number IS NULL`

	res, err := t.tx.ExecContext(ctx, q, blockNumber, transactionID)
	if err != nil {
		return false, dbErr(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

package ledger

import (
	"context"

	"github.com/btc2/ledgerchain/foundation/blockchain/utxo"
	"github.com/ethereum/go-ethereum/common"
)

// Isolation selects the isolation level of a storage transaction.
type Isolation int

// Set of isolation levels.
const (
	ReadCommitted Isolation = iota
	Serializable
)

// Storage is the behavior required of the row store holding the ledger.
// Read methods run outside of any transaction.
type Storage interface {
	Begin(ctx context.Context, iso Isolation) (StorageTx, error)
	Ping(ctx context.Context) error

	AccountCount(ctx context.Context) (int, error)
	Balance(ctx context.Context, addr common.Address) (int64, error)
	TransactionCount(ctx context.Context, addr common.Address) (int64, error)
	TransactionByHash(ctx context.Context, hash common.Hash) (Transaction, error)
	Entries(ctx context.Context, addr common.Address) ([]Entry, error)
	BlockByNumber(ctx context.Context, number int64) (Block, error)
	BlockByHash(ctx context.Context, hash common.Hash) (Block, error)
	LatestBlock(ctx context.Context) (Block, bool, error)
}

// StorageTx is one atomic unit of work against the row store. Rollback
// after Commit is a no-op.
type StorageTx interface {
	UpsertAccount(ctx context.Context, addr common.Address) (int64, error)
	AdjustBalance(ctx context.Context, accountID int64, delta int64) (int64, error)
	InsertTransaction(ctx context.Context, tx Transaction, signerID int64) (int64, error)
	InsertEntry(ctx context.Context, transactionID int64, debtorID int64, creditorID int64, amount int64) error
	OutputSpent(ctx context.Context, op utxo.Outpoint) (bool, error)
	InsertSpentOutput(ctx context.Context, op utxo.Outpoint, transactionID int64) error

	PendingTransactions(ctx context.Context) ([]Transaction, error)
	LatestBlock(ctx context.Context) (Block, bool, error)
	InsertBlock(ctx context.Context, b Block) error
	StampTransaction(ctx context.Context, transactionID int64, blockNumber int64) (bool, error)

	Commit() error
	Rollback() error
}

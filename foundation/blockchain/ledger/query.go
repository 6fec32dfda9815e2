package ledger

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Balance returns the balance of the account in ledger units. Unknown
// accounts have a zero balance.
func (l *Ledger) Balance(ctx context.Context, addr common.Address) (int64, error) {
	balance, err := l.storage.Balance(ctx, addr)
	if err != nil {
		return 0, storageErr("balance", err)
	}
	return balance, nil
}

// BalanceWei returns the balance of the account in wei.
func (l *Ledger) BalanceWei(ctx context.Context, addr common.Address) (*big.Int, error) {
	balance, err := l.Balance(ctx, addr)
	if err != nil {
		return nil, err
	}
	return LedgerToWei(balance, l.genesis.WeiPerLedgerUnit), nil
}

// TransactionCount returns the number of transactions signed by the account.
func (l *Ledger) TransactionCount(ctx context.Context, addr common.Address) (int64, error) {
	n, err := l.storage.TransactionCount(ctx, addr)
	if err != nil {
		return 0, storageErr("transaction count", err)
	}
	return n, nil
}

// TransactionByHash returns the transaction with the specified hash.
func (l *Ledger) TransactionByHash(ctx context.Context, hash common.Hash) (Transaction, error) {
	tx, err := l.storage.TransactionByHash(ctx, hash)
	if err != nil {
		return Transaction{}, queryErr("transaction by hash", err)
	}
	return tx, nil
}

// Entries returns the ledger entries where the account is the debtor or the
// creditor, oldest first.
func (l *Ledger) Entries(ctx context.Context, addr common.Address) ([]Entry, error) {
	entries, err := l.storage.Entries(ctx, addr)
	if err != nil {
		return nil, storageErr("entries", err)
	}
	return entries, nil
}

// Block returns the block with the specified number.
func (l *Ledger) Block(ctx context.Context, number int64) (Block, error) {
	b, err := l.storage.BlockByNumber(ctx, number)
	if err != nil {
		return Block{}, queryErr("block by number", err)
	}
	return b, nil
}

// BlockByHash returns the block with the specified hash.
func (l *Ledger) BlockByHash(ctx context.Context, hash common.Hash) (Block, error) {
	b, err := l.storage.BlockByHash(ctx, hash)
	if err != nil {
		return Block{}, queryErr("block by hash", err)
	}
	return b, nil
}

// LatestBlock returns the most recently sealed block. Before the first seal
// the last legacy block is returned.
func (l *Ledger) LatestBlock(ctx context.Context) (Block, error) {
	b, exists, err := l.storage.LatestBlock(ctx)
	if err != nil {
		return Block{}, storageErr("latest block", err)
	}
	if !exists {
		return l.fallbackBlock(), nil
	}
	return b, nil
}

func queryErr(op string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return err
	}
	return storageErr(op, err)
}

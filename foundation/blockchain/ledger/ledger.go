// Package ledger is the core API for the chain and implements all the
// business rules for transfers, migration credits and block sealing.
package ledger

import (
	"context"
	"errors"
	"math/big"

	"github.com/btc2/ledgerchain/foundation/blockchain/genesis"
	"github.com/btc2/ledgerchain/foundation/blockchain/migration"
	"github.com/ethereum/go-ethereum/common"
)

// EventHandler defines a function that is called when events
// occur in the processing of transactions and blocks.
type EventHandler func(v string, args ...any)

// ClaimDecoder is the behavior required to turn migration call data into a
// validated claim and the legacy amount of each claimed output.
type ClaimDecoder interface {
	DecodeAndValidate(ctx context.Context, payload []byte, claimant common.Address) (migration.Claim, []uint64, error)
}

// =============================================================================

// Config represents the configuration required to construct the ledger.
type Config struct {
	Storage        Storage
	Claims         ClaimDecoder
	Genesis        genesis.Genesis
	AllowOverdraft bool
	EvHandler      EventHandler
}

// Ledger manages the accounts, transactions and blocks of the chain. It holds
// no lock of its own: every mutation runs inside one storage transaction.
type Ledger struct {
	storage        Storage
	claims         ClaimDecoder
	genesis        genesis.Genesis
	allowOverdraft bool
	evHandler      EventHandler

	chainID *big.Int
	system  common.Address
	legacy  common.Address
}

// New constructs a ledger over the provided storage.
func New(cfg Config) (*Ledger, error) {
	if cfg.Storage == nil {
		return nil, errors.New("storage is required")
	}
	if cfg.Claims == nil {
		return nil, errors.New("claim decoder is required")
	}
	if err := cfg.Genesis.Validate(); err != nil {
		return nil, err
	}

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	l := Ledger{
		storage:        cfg.Storage,
		claims:         cfg.Claims,
		genesis:        cfg.Genesis,
		allowOverdraft: cfg.AllowOverdraft,
		evHandler:      ev,

		chainID: cfg.Genesis.ChainIDBig(),
		system:  cfg.Genesis.System(),
		legacy:  cfg.Genesis.Legacy(),
	}

	return &l, nil
}

// Genesis returns a copy of the genesis information.
func (l *Ledger) Genesis() genesis.Genesis {
	return l.genesis
}

// ChainID returns the chain id transactions must be signed for.
func (l *Ledger) ChainID() *big.Int {
	return new(big.Int).Set(l.chainID)
}

// StatusCheck reports whether the storage is reachable.
func (l *Ledger) StatusCheck(ctx context.Context) error {
	return l.storage.Ping(ctx)
}

// ApplyGenesis seeds the genesis balances when the ledger holds no accounts
// yet. It reports whether the balances were applied.
func (l *Ledger) ApplyGenesis(ctx context.Context) (bool, error) {
	n, err := l.storage.AccountCount(ctx)
	if err != nil {
		return false, storageErr("count accounts", err)
	}
	if n > 0 {
		return false, nil
	}

	for addr, balance := range l.genesis.Balances {
		if err := l.Deposit(ctx, common.HexToAddress(addr), balance); err != nil {
			return false, err
		}
	}

	l.evHandler("ledger: ApplyGenesis: seeded %d accounts", len(l.genesis.Balances))

	return true, nil
}

// Deposit credits an account without writing a transaction or an entry. It
// exists to seed balances.
func (l *Ledger) Deposit(ctx context.Context, addr common.Address, amount int64) error {
	if amount < 0 {
		return errors.New("deposit amount must not be negative")
	}

	stx, err := l.storage.Begin(ctx, ReadCommitted)
	if err != nil {
		return storageErr("begin", err)
	}
	defer stx.Rollback()

	id, err := stx.UpsertAccount(ctx, addr)
	if err != nil {
		return storageErr("upsert account", err)
	}

	if _, err := stx.AdjustBalance(ctx, id, amount); err != nil {
		return storageErr("adjust balance", err)
	}

	if err := stx.Commit(); err != nil {
		return storageErr("commit", err)
	}

	l.evHandler("ledger: Deposit: account[%s] amount[%d]", addr, amount)

	return nil
}

// fallbackBlock stands in for the latest block until one is sealed.
func (l *Ledger) fallbackBlock() Block {
	return Block{
		Number:    l.genesis.LastLegacyBlockNumber,
		Timestamp: l.genesis.LastLegacyBlockTime(),
	}
}

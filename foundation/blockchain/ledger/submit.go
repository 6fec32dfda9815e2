package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/btc2/ledgerchain/foundation/blockchain/signature"
	"github.com/btc2/ledgerchain/foundation/blockchain/utxo"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Submit decodes a raw signed transaction, validates it and applies its
// effect. Once Submit returns the transaction is committed and waits to be
// sealed into a block. Nothing is written when an error is returned.
func (l *Ledger) Submit(ctx context.Context, raw []byte) (common.Hash, error) {
	var tx types.Transaction
	if err := tx.UnmarshalBinary(raw); err != nil {
		return common.Hash{}, fmt.Errorf("%w: decoding transaction: %v", ErrParse, err)
	}

	from, err := signature.TxSender(&tx, l.chainID)
	if err != nil {
		return common.Hash{}, err
	}

	effect, err := l.DecodeEffect(&tx)
	if err != nil {
		return common.Hash{}, err
	}

	// Claims are validated before the storage transaction is opened. The
	// validation only reads the legacy output set.
	var outpoints []utxo.Outpoint
	var amount int64
	switch e := effect.(type) {
	case Transfer:
		amount = e.Amount

	case MigrationCredit:
		claim, legacyAmounts, err := l.claims.DecodeAndValidate(ctx, e.Payload, from)
		if err != nil {
			return common.Hash{}, err
		}
		outpoints = claim.Outpoints

		amount, err = ClaimToLedger(legacyAmounts, l.genesis.LegacyUnitsPerLedgerUnit)
		if err != nil {
			return common.Hash{}, err
		}
	}

	hash := tx.Hash()

	stx, err := l.storage.Begin(ctx, ReadCommitted)
	if err != nil {
		return common.Hash{}, storageErr("begin", err)
	}
	defer stx.Rollback()

	signerID, err := stx.UpsertAccount(ctx, from)
	if err != nil {
		return common.Hash{}, storageErr("upsert signer", err)
	}

	row := Transaction{
		Hash:   hash,
		Signer: from,
		Amount: amount,
		Raw:    raw,
	}

	txID, err := stx.InsertTransaction(ctx, row, signerID)
	if err != nil {
		if errors.Is(err, ErrDuplicateKey) {
			return common.Hash{}, fmt.Errorf("%w: %s", ErrDuplicateTransaction, hash)
		}
		return common.Hash{}, storageErr("insert transaction", err)
	}

	switch e := effect.(type) {
	case Transfer:
		toID, err := stx.UpsertAccount(ctx, e.To)
		if err != nil {
			return common.Hash{}, storageErr("upsert recipient", err)
		}

		if err := l.applyTransfer(ctx, stx, txID, signerID, toID, amount); err != nil {
			return common.Hash{}, err
		}

		l.evHandler("ledger: Submit: transfer: tx[%s] from[%s] to[%s] amount[%d]", hash, from, e.To, amount)

	case MigrationCredit:
		if err := l.applyMigration(ctx, stx, txID, outpoints, signerID, amount); err != nil {
			return common.Hash{}, err
		}

		l.evHandler("ledger: Submit: migration: tx[%s] signer[%s] outputs[%d] amount[%d]", hash, from, len(outpoints), amount)
	}

	if err := stx.Commit(); err != nil {
		if errors.Is(err, ErrDuplicateKey) {
			return common.Hash{}, fmt.Errorf("%w: %s", ErrDuplicateTransaction, hash)
		}
		return common.Hash{}, storageErr("commit", err)
	}

	return hash, nil
}

// applyTransfer records the entry for the transaction and moves amount from
// the debtor to the creditor. Balances are adjusted in account id order so
// concurrent transfers between the same accounts lock rows in the same order.
func (l *Ledger) applyTransfer(ctx context.Context, stx StorageTx, txID int64, debtorID int64, creditorID int64, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("%w: negative amount", ErrParse)
	}

	if err := stx.InsertEntry(ctx, txID, debtorID, creditorID, amount); err != nil {
		return storageErr("insert entry", err)
	}

	if debtorID == creditorID || amount == 0 {
		return nil
	}

	type adjustment struct {
		id    int64
		delta int64
	}

	adjs := []adjustment{{debtorID, -amount}, {creditorID, amount}}
	if creditorID < debtorID {
		adjs[0], adjs[1] = adjs[1], adjs[0]
	}

	var debtorBalance int64
	for _, adj := range adjs {
		balance, err := stx.AdjustBalance(ctx, adj.id, adj.delta)
		if err != nil {
			return storageErr("adjust balance", err)
		}
		if adj.id == debtorID {
			debtorBalance = balance
		}
	}

	if !l.allowOverdraft && debtorBalance < 0 {
		legacyID, err := stx.UpsertAccount(ctx, l.legacy)
		if err != nil {
			return storageErr("upsert legacy account", err)
		}
		if debtorID != legacyID {
			return fmt.Errorf("%w: balance would be %d", ErrInsufficientFunds, debtorBalance)
		}
	}

	return nil
}

// applyMigration marks every claimed output as spent by the transaction and
// credits the signer from the legacy account. The unique constraint on spent
// outputs decides between concurrent claims on the same output.
func (l *Ledger) applyMigration(ctx context.Context, stx StorageTx, txID int64, outpoints []utxo.Outpoint, signerID int64, amount int64) error {
	for _, op := range outpoints {
		spent, err := stx.OutputSpent(ctx, op)
		if err != nil {
			return storageErr("check spent output", err)
		}
		if spent {
			return fmt.Errorf("%w: %s", ErrOutpointAlreadySpent, op)
		}

		if err := stx.InsertSpentOutput(ctx, op, txID); err != nil {
			if errors.Is(err, ErrDuplicateKey) {
				return fmt.Errorf("%w: %s", ErrOutpointAlreadySpent, op)
			}
			return storageErr("insert spent output", err)
		}
	}

	legacyID, err := stx.UpsertAccount(ctx, l.legacy)
	if err != nil {
		return storageErr("upsert legacy account", err)
	}

	return l.applyTransfer(ctx, stx, txID, legacyID, signerID, amount)
}

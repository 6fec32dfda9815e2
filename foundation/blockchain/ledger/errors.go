package ledger

import (
	"errors"
	"fmt"

	"github.com/btc2/ledgerchain/foundation/blockchain/migration"
	"github.com/btc2/ledgerchain/foundation/blockchain/signature"
	"github.com/btc2/ledgerchain/foundation/blockchain/utxo"
)

// Errors surfaced by the packages the ledger builds on.
var (
	ErrParse               = migration.ErrParse
	ErrDestinationMismatch = migration.ErrDestinationMismatch
	ErrInvalidSignature    = signature.ErrInvalidSignature
	ErrWrongChain          = signature.ErrWrongChain
	ErrInvalidScript       = utxo.ErrInvalidScript
	ErrOutputNotFound      = utxo.ErrNotFound
)

// Set of error variables for ledger processing.
var (
	ErrOutpointAlreadySpent = errors.New("outpoint already spent")
	ErrDuplicateTransaction = errors.New("transaction already submitted")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrNoTransactions       = errors.New("no transactions to seal")
	ErrNotFound             = errors.New("not found")
	ErrStorage              = errors.New("storage failure")
)

// ErrDuplicateKey is returned by storage implementations when an insert
// violates a unique constraint.
var ErrDuplicateKey = errors.New("duplicate key")

// storageErr marks err as an infrastructure failure. The caller may retry
// the whole submission.
func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

// IsClientError reports whether err was caused by the submitted data rather
// than by the infrastructure.
func IsClientError(err error) bool {
	switch {
	case errors.Is(err, ErrStorage):
		return false
	case errors.Is(err, ErrParse),
		errors.Is(err, ErrDestinationMismatch),
		errors.Is(err, ErrInvalidSignature),
		errors.Is(err, ErrWrongChain),
		errors.Is(err, ErrInvalidScript),
		errors.Is(err, ErrOutputNotFound),
		errors.Is(err, ErrOutpointAlreadySpent),
		errors.Is(err, ErrDuplicateTransaction),
		errors.Is(err, ErrInsufficientFunds):
		return true
	}
	return false
}

// Package utxo validates claims against the legacy chain's set of unspent
// outputs. The set itself is a local, trusted snapshot; nothing here talks
// to a legacy node.
package utxo

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Set of error variables for output validation.
var (
	ErrNotFound      = errors.New("legacy output not found")
	ErrInvalidScript = errors.New("invalid script")
)

// Outpoint references a single output of a legacy transaction. Hash is in
// internal byte order, the reverse of how the legacy chain displays it.
type Outpoint struct {
	Hash  [32]byte
	Index uint16
}

// NewOutpoint constructs an outpoint from the legacy display form of the
// transaction hash. The hash must be the full 64 hex characters.
func NewOutpoint(displayHash string, index uint16) (Outpoint, error) {
	if len(displayHash) != chainhash.MaxHashStringSize {
		return Outpoint{}, fmt.Errorf("hash %q must be %d hex characters", displayHash, chainhash.MaxHashStringSize)
	}

	h, err := chainhash.NewHashFromStr(displayHash)
	if err != nil {
		return Outpoint{}, fmt.Errorf("parsing hash %q: %w", displayHash, err)
	}

	return Outpoint{Hash: *h, Index: index}, nil
}

// String implements the fmt.Stringer interface using the legacy display
// form of the hash.
func (op Outpoint) String() string {
	return fmt.Sprintf("%s:%d", chainhash.Hash(op.Hash), op.Index)
}

// key returns the storage key for the outpoint: the hash followed by the
// big endian index so outputs of one transaction sort together.
func (op Outpoint) key() []byte {
	k := make([]byte, 34)
	copy(k, op.Hash[:])
	binary.BigEndian.PutUint16(k[32:], op.Index)
	return k
}

// =============================================================================

// Lookup is the behavior required to read the legacy output set.
type Lookup interface {
	Lookup(ctx context.Context, txid [32]byte, index uint16) (amount uint64, compressedScript []byte, err error)
}

// Validator checks that a claimant controls a legacy output.
type Validator struct {
	lookup Lookup
}

// NewValidator constructs a validator over the provided output set.
func NewValidator(lookup Lookup) *Validator {
	return &Validator{
		lookup: lookup,
	}
}

// Validate returns the amount held by the outpoint when the unlocking proof
// satisfies its locking script. The proof is the claimant's compressed
// SEC1 public key.
func (v *Validator) Validate(ctx context.Context, op Outpoint, unlockingProof []byte) (uint64, error) {
	amount, script, err := v.lookup.Lookup(ctx, op.Hash, op.Index)
	if err != nil {
		return 0, fmt.Errorf("lookup %s: %w", op, err)
	}

	if err := CheckScript(script, unlockingProof); err != nil {
		return 0, fmt.Errorf("output %s: %w", op, err)
	}

	return amount, nil
}

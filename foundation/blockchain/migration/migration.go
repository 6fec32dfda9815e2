// Package migration decodes and validates claims that move value from the
// legacy chain onto the ledger. A claim is a signed, human readable message
// listing legacy outputs, carried as the call data of a transaction sent to
// the system address.
package migration

import (
	"context"
	"errors"
	"fmt"

	"github.com/btc2/ledgerchain/foundation/blockchain/signature"
	"github.com/btc2/ledgerchain/foundation/blockchain/utxo"
	"github.com/ethereum/go-ethereum/common"
)

// Set of error variables for claim decoding.
var (
	ErrParse               = errors.New("parse error")
	ErrDestinationMismatch = errors.New("destination address does not match signer")
)

// Selector is the 4 byte function selector that marks call data as a
// migration claim.
var Selector = [4]byte{0xe6, 0x0b, 0x06, 0x0d}

// ActionUpgrade is the only action a claim may request.
const ActionUpgrade = "upgrade"

// Claim is a decoded migration request.
type Claim struct {
	Action             string
	DestinationChainID int64
	Destination        common.Address
	Outpoints          []utxo.Outpoint
}

// OutputValidator is the behavior required to value a claimed output.
type OutputValidator interface {
	Validate(ctx context.Context, op utxo.Outpoint, unlockingProof []byte) (uint64, error)
}

// Decoder turns call data into a validated claim.
type Decoder struct {
	validator OutputValidator
	chainID   int64
}

// NewDecoder constructs a decoder. When chainID is not zero, claims must
// name it as their destination chain.
func NewDecoder(validator OutputValidator, chainID int64) *Decoder {
	return &Decoder{
		validator: validator,
		chainID:   chainID,
	}
}

// DecodeAndValidate decodes the call data arguments (selector already
// removed), recovers the legacy key that signed the message and values every
// claimed output with it. The returned amounts are in legacy units, one per
// outpoint in claim order. Any failing output fails the whole claim. Nothing
// is written.
func (d *Decoder) DecodeAndValidate(ctx context.Context, payload []byte, claimant common.Address) (Claim, []uint64, error) {
	message, sig, err := DecodeArgs(payload)
	if err != nil {
		return Claim{}, nil, err
	}

	publicKey, err := signature.RecoverLegacySigner([]byte(message), sig)
	if err != nil {
		return Claim{}, nil, err
	}
	proof := publicKey.SerializeCompressed()

	claim, err := ParseMessage(message)
	if err != nil {
		return Claim{}, nil, err
	}

	// The destination is checked before any output is looked up.
	if claim.Destination != claimant {
		return Claim{}, nil, fmt.Errorf("%w: message names %s, signer is %s", ErrDestinationMismatch, claim.Destination, claimant)
	}

	if d.chainID != 0 && claim.DestinationChainID != d.chainID {
		return Claim{}, nil, fmt.Errorf("%w: destination chain id %d, exp %d", ErrParse, claim.DestinationChainID, d.chainID)
	}

	amounts := make([]uint64, len(claim.Outpoints))
	for i, op := range claim.Outpoints {
		amount, err := d.validator.Validate(ctx, op, proof)
		if err != nil {
			return Claim{}, nil, err
		}
		amounts[i] = amount
	}

	return claim, amounts, nil
}

package ledger

import (
	"fmt"
	"math"
	"math/big"

	"github.com/holiman/uint256"
)

// WeiToLedger converts a transaction value in wei to ledger units. The
// remainder below one ledger unit is dropped.
func WeiToLedger(wei *big.Int, weiPerUnit uint64) (int64, error) {
	if wei.Sign() < 0 {
		return 0, fmt.Errorf("%w: negative value", ErrParse)
	}

	v, overflow := uint256.FromBig(wei)
	if overflow {
		return 0, fmt.Errorf("%w: value overflows", ErrParse)
	}

	q := new(uint256.Int).Div(v, uint256.NewInt(weiPerUnit))
	if !q.IsUint64() || q.Uint64() > math.MaxInt64 {
		return 0, fmt.Errorf("%w: value overflows", ErrParse)
	}

	return int64(q.Uint64()), nil
}

// LedgerToWei converts ledger units to wei. Negative balances are possible
// for the legacy account and convert to negative values.
func LedgerToWei(units int64, weiPerUnit uint64) *big.Int {
	abs := uint64(units)
	if units < 0 {
		abs = uint64(-(units + 1)) + 1
	}

	wei := new(uint256.Int).Mul(uint256.NewInt(abs), uint256.NewInt(weiPerUnit)).ToBig()
	if units < 0 {
		wei.Neg(wei)
	}

	return wei
}

// LegacyToLedger converts an amount of legacy units to ledger units. The
// remainder below one ledger unit is dropped.
func LegacyToLedger(amount uint64, legacyPerUnit uint64) int64 {
	q := amount / legacyPerUnit
	if q > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(q)
}

// ClaimToLedger converts the legacy amount of every claimed output to ledger
// units and sums them. Each output is truncated on its own.
func ClaimToLedger(amounts []uint64, legacyPerUnit uint64) (int64, error) {
	var total int64
	for _, amount := range amounts {
		units := LegacyToLedger(amount, legacyPerUnit)
		if units > math.MaxInt64-total {
			return 0, fmt.Errorf("%w: claimed amount overflows", ErrParse)
		}
		total += units
	}
	return total, nil
}

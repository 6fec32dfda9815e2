// Package genesis maintains access to the genesis file.
package genesis

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Genesis represents the genesis file. The chain continues the numbering of
// the legacy chain, so the last legacy block stands in for block zero.
type Genesis struct {
	Date                     time.Time        `json:"date"`
	ChainID                  uint64           `json:"chain_id"`                     // Ethereum chain id transactions are signed for.
	LastLegacyBlockNumber    int64            `json:"last_legacy_block_number"`     // Reported as the latest block until one is sealed.
	LastLegacyBlockTimestamp int64            `json:"last_legacy_block_timestamp"`  // Unix seconds.
	WeiPerLedgerUnit         uint64           `json:"wei_per_ledger_unit"`          // Transaction values are divided by this.
	LegacyUnitsPerLedgerUnit uint64           `json:"legacy_units_per_ledger_unit"` // Legacy output amounts are divided by this.
	MigrationChainID         int64            `json:"migration_chain_id"`           // Required claim destination chain, zero accepts any.
	SystemAddress            string           `json:"system_address"`               // Transactions sent here carry migration claims.
	LegacyAccount            string           `json:"legacy_account"`               // Debited by every migration credit.
	GasLimit                 uint64           `json:"gas_limit"`
	Balances                 map[string]int64 `json:"balances"`
}

// Default returns the parameters of the production chain.
func Default() Genesis {
	return Genesis{
		Date:                     time.Unix(1713557133, 0).UTC(),
		ChainID:                  178,
		LastLegacyBlockNumber:    83999,
		LastLegacyBlockTimestamp: 1713557133,
		WeiPerLedgerUnit:         100_000_000_000_000,
		LegacyUnitsPerLedgerUnit: 10_000,
		SystemAddress:            "0x0000000000000000000000000000000000000000",
		LegacyAccount:            "0x0000000000000000000000000000000000000000",
		GasLimit:                 21000,
		Balances:                 map[string]int64{},
	}
}

// =============================================================================

// Load opens and consumes the genesis file. Fields missing from the file
// keep their default value.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	genesis := Default()
	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, fmt.Errorf("decoding %s: %w", path, err)
	}

	if err := genesis.Validate(); err != nil {
		return Genesis{}, err
	}

	return genesis, nil
}

// Validate checks the parameters are usable.
func (g Genesis) Validate() error {
	if g.ChainID == 0 {
		return errors.New("chain_id must be set")
	}
	if g.WeiPerLedgerUnit == 0 {
		return errors.New("wei_per_ledger_unit must be positive")
	}
	if g.LegacyUnitsPerLedgerUnit == 0 {
		return errors.New("legacy_units_per_ledger_unit must be positive")
	}
	if !common.IsHexAddress(g.SystemAddress) {
		return fmt.Errorf("invalid system_address %q", g.SystemAddress)
	}
	if !common.IsHexAddress(g.LegacyAccount) {
		return fmt.Errorf("invalid legacy_account %q", g.LegacyAccount)
	}
	for addr, balance := range g.Balances {
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("invalid balance address %q", addr)
		}
		if balance < 0 {
			return fmt.Errorf("negative balance for %s", addr)
		}
	}

	return nil
}

// ChainIDBig returns the chain id in the form the Ethereum signers expect.
func (g Genesis) ChainIDBig() *big.Int {
	return new(big.Int).SetUint64(g.ChainID)
}

// System returns the address that receives migration claims.
func (g Genesis) System() common.Address {
	return common.HexToAddress(g.SystemAddress)
}

// Legacy returns the account debited by migration credits.
func (g Genesis) Legacy() common.Address {
	return common.HexToAddress(g.LegacyAccount)
}

// LastLegacyBlockTime returns the timestamp of the last legacy block.
func (g Genesis) LastLegacyBlockTime() time.Time {
	return time.Unix(g.LastLegacyBlockTimestamp, 0).UTC()
}

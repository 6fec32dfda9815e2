package ledger

import (
	"bytes"
	"fmt"

	"github.com/btc2/ledgerchain/foundation/blockchain/migration"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Effect is what a transaction does to the ledger. It is one of Transfer or
// MigrationCredit.
type Effect interface {
	effect()
}

// Transfer moves Amount ledger units from the signer to To.
type Transfer struct {
	To     common.Address
	Amount int64
}

// MigrationCredit credits the signer with the value of the legacy outputs
// claimed by Payload, the call data without its selector.
type MigrationCredit struct {
	Payload []byte
}

func (Transfer) effect()        {}
func (MigrationCredit) effect() {}

// DecodeEffect determines the effect of a transaction. Transactions sent to
// the system address must carry the migration selector. Value sent along a
// migration claim is ignored.
func (l *Ledger) DecodeEffect(tx *types.Transaction) (Effect, error) {
	to := tx.To()
	if to == nil {
		return nil, fmt.Errorf("%w: contract creation is not supported", ErrParse)
	}

	if *to == l.system {
		data := tx.Data()
		if len(data) < len(migration.Selector) || !bytes.Equal(data[:len(migration.Selector)], migration.Selector[:]) {
			return nil, fmt.Errorf("%w: unknown system call", ErrParse)
		}

		return MigrationCredit{Payload: data[len(migration.Selector):]}, nil
	}

	amount, err := WeiToLedger(tx.Value(), l.genesis.WeiPerLedgerUnit)
	if err != nil {
		return nil, err
	}

	return Transfer{To: *to, Amount: amount}, nil
}

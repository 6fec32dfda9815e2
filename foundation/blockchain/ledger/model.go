package ledger

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Transaction is a submitted transfer or migration credit. BlockNumber is nil
// until the transaction is sealed.
type Transaction struct {
	ID          int64
	Hash        common.Hash
	Signer      common.Address
	Amount      int64
	Raw         []byte
	BlockNumber *int64
}

// Entry is the double entry record of value moved by a transaction.
type Entry struct {
	TransactionID   int64
	TransactionHash common.Hash
	Debtor          common.Address
	Creditor        common.Address
	Amount          int64
}

// Block is a sealed batch of transactions.
type Block struct {
	Number       int64
	Hash         common.Hash
	Timestamp    time.Time
	Transactions []common.Hash
}

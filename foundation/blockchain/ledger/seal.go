package ledger

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/btc2/ledgerchain/foundation/blockchain/merkle"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Seal groups every committed transaction that has no block yet into the
// next block. Fetching and stamping run in one serializable storage
// transaction, so a transaction is sealed exactly once and one submitted
// during the seal waits for the next block. ErrNoTransactions is returned
// when there is nothing to seal; no empty blocks are produced.
func (l *Ledger) Seal(ctx context.Context, now time.Time) (Block, error) {
	stx, err := l.storage.Begin(ctx, Serializable)
	if err != nil {
		return Block{}, storageErr("begin", err)
	}
	defer stx.Rollback()

	pending, err := stx.PendingTransactions(ctx)
	if err != nil {
		return Block{}, storageErr("pending transactions", err)
	}

	if len(pending) == 0 {
		return Block{}, ErrNoTransactions
	}

	latest, exists, err := stx.LatestBlock(ctx)
	if err != nil {
		return Block{}, storageErr("latest block", err)
	}
	if !exists {
		latest = l.fallbackBlock()
	}

	hashes := make([]common.Hash, len(pending))
	for i, tx := range pending {
		hashes[i] = tx.Hash
	}

	block := Block{
		Number:       latest.Number + 1,
		Hash:         BlockHash(hashes),
		Timestamp:    now.UTC().Truncate(time.Second),
		Transactions: hashes,
	}

	if err := stx.InsertBlock(ctx, block); err != nil {
		return Block{}, storageErr("insert block", err)
	}

	for _, tx := range pending {
		stamped, err := stx.StampTransaction(ctx, tx.ID, block.Number)
		if err != nil {
			return Block{}, storageErr("stamp transaction", err)
		}
		if !stamped {
			return Block{}, storageErr("stamp transaction", fmt.Errorf("transaction %s already sealed", tx.Hash))
		}
	}

	if err := stx.Commit(); err != nil {
		return Block{}, storageErr("commit", err)
	}

	l.evHandler("ledger: Seal: block[%d] hash[%s] txs[%d]", block.Number, block.Hash, len(hashes))

	return block, nil
}

// BlockHash returns the SHA-256 of the concatenated transaction hashes.
func BlockHash(hashes []common.Hash) common.Hash {
	h := sha256.New()
	for _, hash := range hashes {
		h.Write(hash[:])
	}

	var out common.Hash
	copy(out[:], h.Sum(nil))
	return out
}

// TransactionsRoot returns the merkle root over a block's transaction
// hashes, or the empty trie root when there are none.
func TransactionsRoot(hashes []common.Hash) common.Hash {
	if len(hashes) == 0 {
		return types.EmptyRootHash
	}

	leafs := make([]txLeaf, len(hashes))
	for i, h := range hashes {
		leafs[i] = txLeaf(h)
	}

	tree, err := merkle.NewTree(leafs)
	if err != nil {
		return types.EmptyRootHash
	}

	return common.BytesToHash(tree.Root())
}

// txLeaf uses a transaction hash as its own leaf hash.
type txLeaf common.Hash

func (l txLeaf) Hash() ([]byte, error) { return l[:], nil }
func (l txLeaf) Equals(other txLeaf) bool { return l == other }

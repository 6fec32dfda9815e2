package ledger_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/btc2/ledgerchain/foundation/blockchain/genesis"
	"github.com/btc2/ledgerchain/foundation/blockchain/ledger"
	"github.com/btc2/ledgerchain/foundation/blockchain/migration"
	"github.com/btc2/ledgerchain/foundation/blockchain/utxo"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Key of a second wallet used to send value back to alice.
const carolKey = "9f332e3700d8fc2446eaf6d15034cf96e0c2745e40353deef032a5dbf1dfed93"

// stampFailStorage hands out storage transactions whose stamping stops
// working after a number of successful stamps.
type stampFailStorage struct {
	ledger.Storage
	stamps int
	err    error
}

func (s stampFailStorage) Begin(ctx context.Context, iso ledger.Isolation) (ledger.StorageTx, error) {
	stx, err := s.Storage.Begin(ctx, iso)
	if err != nil {
		return nil, err
	}
	return &stampFailTx{StorageTx: stx, left: s.stamps, err: s.err}, nil
}

type stampFailTx struct {
	ledger.StorageTx
	left int
	err  error
}

func (t *stampFailTx) StampTransaction(ctx context.Context, transactionID int64, blockNumber int64) (bool, error) {
	if t.left == 0 {
		return false, t.err
	}
	t.left--
	return t.StorageTx.StampTransaction(ctx, transactionID, blockNumber)
}

// =============================================================================

func Test_SealBatch(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1713557200, 0)

	t.Log("Given the need to seal every pending transaction into one block.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen three transfers are pending.", testID)
		{
			l, _ := newLedger(t, genesis.Default(), true)

			if err := l.Deposit(ctx, common.HexToAddress(alice), 100); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to deposit: %v", failed, testID, err)
			}

			hashes := submitTransfers(t, l, 3)

			block, err := l.Seal(ctx, now)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to seal a block: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to seal a block.", success, testID)

			if block.Number != 84000 || len(block.Transactions) != len(hashes) {
				t.Fatalf("\t%s\tTest %d:\tShould hold every pending transaction: %+v", failed, testID, block)
			}
			for i, hash := range hashes {
				if block.Transactions[i] != hash {
					t.Fatalf("\t%s\tTest %d:\tShould keep submission order at %d: got %s exp %s", failed, testID, i, block.Transactions[i], hash)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould hold every pending transaction in submission order.", success, testID)

			if block.Hash != ledger.BlockHash(hashes) {
				t.Fatalf("\t%s\tTest %d:\tShould hash the transaction hashes in order: %s", failed, testID, block.Hash)
			}
			t.Logf("\t%s\tTest %d:\tShould hash the transaction hashes in order.", success, testID)

			checkStamps(t, l, testID, hashes, 84000)

			if _, err := l.Seal(ctx, now.Add(time.Second)); !errors.Is(err, ledger.ErrNoTransactions) {
				t.Fatalf("\t%s\tTest %d:\tShould not seal a second block: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould not seal a second block.", success, testID)

			latest, err := l.LatestBlock(ctx)
			if err != nil || latest.Number != 84000 {
				t.Fatalf("\t%s\tTest %d:\tShould keep block 84000 as the latest: %+v %v", failed, testID, latest, err)
			}
			t.Logf("\t%s\tTest %d:\tShould keep block 84000 as the latest.", success, testID)
		}
	}
}

func Test_SealAbort(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1713557200, 0)

	tt := []struct {
		name string
		err  error
	}{
		{"stamp-error", errors.New("connection reset")},
		{"stamp-lost", nil},
	}

	t.Log("Given the need to leave no partial block behind.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen stamping fails after one transaction: %s.", testID, tst.name)
				{
					l, db := newLedger(t, genesis.Default(), true)

					if err := l.Deposit(ctx, common.HexToAddress(alice), 100); err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to deposit: %v", failed, testID, err)
					}

					hashes := submitTransfers(t, l, 3)

					broken, err := ledger.New(ledger.Config{
						Storage:        stampFailStorage{Storage: db, stamps: 1, err: tst.err},
						Claims:         migration.NewDecoder(utxo.NewValidator(nil), 0),
						Genesis:        genesis.Default(),
						AllowOverdraft: true,
					})
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to construct the ledger: %v", failed, testID, err)
					}

					_, err = broken.Seal(ctx, now)
					if err == nil || errors.Is(err, ledger.ErrNoTransactions) || ledger.IsClientError(err) {
						t.Fatalf("\t%s\tTest %d:\tShould fail the seal with a storage error: %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould fail the seal with a storage error.", success, testID)

					if _, exists, err := db.LatestBlock(ctx); err != nil || exists {
						t.Fatalf("\t%s\tTest %d:\tShould not store a block: %v %v", failed, testID, exists, err)
					}
					if _, err := l.Block(ctx, 84000); !errors.Is(err, ledger.ErrNotFound) {
						t.Fatalf("\t%s\tTest %d:\tShould not find block 84000: %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould not store a block.", success, testID)

					for _, hash := range hashes {
						tx, err := l.TransactionByHash(ctx, hash)
						if err != nil || tx.BlockNumber != nil {
							t.Fatalf("\t%s\tTest %d:\tShould leave %s unstamped: %+v %v", failed, testID, hash, tx, err)
						}
					}
					t.Logf("\t%s\tTest %d:\tShould leave every transaction unstamped.", success, testID)

					block, err := l.Seal(ctx, now)
					if err != nil || len(block.Transactions) != len(hashes) {
						t.Fatalf("\t%s\tTest %d:\tShould seal everything on the next tick: %+v %v", failed, testID, block, err)
					}
					t.Logf("\t%s\tTest %d:\tShould seal everything on the next tick.", success, testID)

					checkStamps(t, l, testID, hashes, block.Number)
				}
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_ConcurrentTransfers(t *testing.T) {
	ctx := context.Background()

	carolPK, err := crypto.HexToECDSA(carolKey)
	if err != nil {
		t.Fatalf("Should be able to load the private key: %s", err)
	}
	carol := crypto.PubkeyToAddress(carolPK.PublicKey)

	t.Log("Given the need to move value both ways between two accounts at once.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen alice and carol pay each other concurrently.", testID)
		{
			l, _ := newLedger(t, genesis.Default(), false)

			for _, addr := range []common.Address{common.HexToAddress(alice), carol} {
				if err := l.Deposit(ctx, addr, 1_000); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to deposit: %v", failed, testID, err)
				}
			}

			const rounds = 10
			raws := make([][]byte, 0, 2*rounds)
			for i := 0; i < rounds; i++ {
				raws = append(raws, transfer(t, uint64(i), carol.Hex(), 7))

				aliceAddr := common.HexToAddress(alice)
				raws = append(raws, signWith(t, carolPK, types.NewTx(&types.LegacyTx{
					Nonce: uint64(i),
					To:    &aliceAddr,
					Value: ledger.LedgerToWei(3, genesis.Default().WeiPerLedgerUnit),
					Gas:   21000,
				})))
			}

			errs := make([]error, len(raws))
			var wg sync.WaitGroup
			wg.Add(len(raws))
			for i := range raws {
				go func(i int) {
					defer wg.Done()
					_, errs[i] = l.Submit(ctx, raws[i])
				}(i)
			}
			wg.Wait()

			for i, err := range errs {
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould apply every transfer, %d failed: %v", failed, testID, i, err)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould apply every transfer.", success, testID)

			checkBalance(t, l, testID, alice, 1_000-rounds*7+rounds*3)
			checkBalance(t, l, testID, carol.Hex(), 1_000+rounds*7-rounds*3)
		}
	}
}

// =============================================================================

// submitTransfers submits n transfers of one unit from alice to bob and
// returns their hashes in submission order.
func submitTransfers(t *testing.T, l *ledger.Ledger, n int) []common.Hash {
	t.Helper()

	hashes := make([]common.Hash, n)
	for i := range hashes {
		hash, err := l.Submit(context.Background(), transfer(t, uint64(i), bob, 1))
		if err != nil {
			t.Fatalf("Should be able to submit transfer %d: %s", i, err)
		}
		hashes[i] = hash
	}
	return hashes
}

func checkStamps(t *testing.T, l *ledger.Ledger, testID int, hashes []common.Hash, number int64) {
	t.Helper()

	for _, hash := range hashes {
		tx, err := l.TransactionByHash(context.Background(), hash)
		if err != nil || tx.BlockNumber == nil || *tx.BlockNumber != number {
			t.Fatalf("\t%s\tTest %d:\tShould stamp %s with block %d: %+v %v", failed, testID, hash, number, tx, err)
		}
	}
	t.Logf("\t%s\tTest %d:\tShould stamp every transaction with block %d.", success, testID, number)
}

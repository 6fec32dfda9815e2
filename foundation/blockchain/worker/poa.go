package worker

import (
	"context"
	"errors"
	"time"

	"github.com/btc2/ledgerchain/foundation/blockchain/ledger"
)

// CORE NOTE: This node is the only authority sealing blocks. The seal
// operation runs on its own goroutine and wakes once per interval, counted
// from the timestamp of the latest block. Each wake seals every transaction
// committed since the last block. A wake that finds nothing produces no
// block. The next wake is counted from the start of the current one, so the
// time a seal takes does not push the cadence back. Wakes missed while a seal
// runs long are not made up.

// sealTimeout bounds a single seal against the store.
const sealTimeout = 30 * time.Second

// sealOperations handles block production.
func (w *Worker) sealOperations() {
	w.evHandler("worker: sealOperations: G started")
	defer w.evHandler("worker: sealOperations: G completed")

	timer := time.NewTimer(w.firstWake())
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			start := time.Now()
			if !w.isShutdown() {
				w.runSealOperation(start)
			}

			// Re-arm for one interval after this wake started.
			timer.Reset(NextWake(start, w.interval, time.Now()))

		case <-w.shut:
			w.evHandler("worker: sealOperations: received shut signal")
			return
		}
	}
}

// runSealOperation seals the pending transactions into a new block.
func (w *Worker) runSealOperation(start time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), sealTimeout)
	defer cancel()

	block, err := w.sealer.Seal(ctx, start)
	duration := time.Since(start)

	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrNoTransactions):
			w.evHandler(IdlePrefix + "runSealOperation: no transactions")
		default:
			w.evHandler("worker: runSealOperation: ERROR: %s", err)
		}
		return
	}

	w.evHandler("worker: runSealOperation: block[%d] hash[%s] txs[%d] duration[%v]", block.Number, block.Hash, len(block.Transactions), duration)
}

// firstWake returns how long to wait before the first seal.
func (w *Worker) firstWake() time.Duration {
	ctx, cancel := context.WithTimeout(context.Background(), sealTimeout)
	defer cancel()

	latest, err := w.sealer.LatestBlock(ctx)
	if err != nil {
		w.evHandler("worker: firstWake: ERROR: %s", err)
		return w.interval
	}

	return NextWake(latest.Timestamp, w.interval, time.Now())
}

// =============================================================================

// NextWake returns the wait until one interval after last. It is zero when
// that moment has already passed.
func NextWake(last time.Time, interval time.Duration, now time.Time) time.Duration {
	d := last.Add(interval).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

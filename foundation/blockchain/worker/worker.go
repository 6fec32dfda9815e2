// Package worker implements block production for the blockchain.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/btc2/ledgerchain/foundation/blockchain/ledger"
)

// defaultInterval is the block cadence when none is configured.
const defaultInterval = time.Second

// IdlePrefix starts every event raised for an interval that sealed nothing.
// Handlers match on it to keep idle ticks out of the event stream.
const IdlePrefix = "worker: idle: "

// Sealer is the behavior required to produce blocks.
type Sealer interface {
	Seal(ctx context.Context, now time.Time) (ledger.Block, error)
	LatestBlock(ctx context.Context) (ledger.Block, error)
}

// =============================================================================

// Worker manages the block production workflow for the ledger.
type Worker struct {
	sealer    Sealer
	interval  time.Duration
	wg        sync.WaitGroup
	shut      chan struct{}
	evHandler ledger.EventHandler
}

// Run creates a worker and starts up all the background processes.
func Run(sealer Sealer, interval time.Duration, evHandler ledger.EventHandler) *Worker {
	if interval <= 0 {
		interval = defaultInterval
	}

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	w := Worker{
		sealer:    sealer,
		interval:  interval,
		shut:      make(chan struct{}),
		evHandler: ev,
	}

	// Load the set of operations we need to run.
	operations := []func(){
		w.sealOperations,
	}

	// Set waitgroup to match the number of G's we need for the set
	// of operations we have.
	g := len(operations)
	w.wg.Add(g)

	// We don't want to return until we know all the G's are up and running.
	hasStarted := make(chan bool)

	// Start all the operational G's.
	for _, op := range operations {
		go func(op func()) {
			defer w.wg.Done()
			hasStarted <- true
			op()
		}(op)
	}

	// Wait for the G's to report they are running.
	for i := 0; i < g; i++ {
		<-hasStarted
	}

	return &w
}

// Shutdown terminates the goroutines performing work. A seal in progress
// is allowed to finish.
func (w *Worker) Shutdown() {
	w.evHandler("worker: shutdown: started")
	defer w.evHandler("worker: shutdown: completed")

	w.evHandler("worker: shutdown: terminate goroutines")
	close(w.shut)
	w.wg.Wait()
}

// =============================================================================

// isShutdown is used to test if a shutdown has been signaled.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}

package worker_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/btc2/ledgerchain/foundation/blockchain/ledger"
	"github.com/btc2/ledgerchain/foundation/blockchain/worker"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_NextWake(t *testing.T) {
	last := time.Unix(1713557133, 0)

	tt := []struct {
		name string
		now  time.Time
		exp  time.Duration
	}{
		{"before", last.Add(250 * time.Millisecond), 750 * time.Millisecond},
		{"exact", last.Add(time.Second), 0},
		{"past", last.Add(time.Hour), 0},
	}

	t.Log("Given the need to align the first seal with the latest block.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen the clock is %s the next wake.", testID, tst.name)
			{
				got := worker.NextWake(last, time.Second, tst.now)
				if got != tst.exp {
					t.Fatalf("\t%s\tTest %d:\tShould wait %v: got %v", failed, testID, tst.exp, got)
				}
				t.Logf("\t%s\tTest %d:\tShould wait %v.", success, testID, tst.exp)
			}
		}
	}
}

func Test_Run(t *testing.T) {
	t.Log("Given the need to seal blocks on a cadence.")
	{
		t.Logf("\tTest 0:\tWhen transactions keep arriving.")
		{
			s := sealer{pending: 3}
			w := worker.Run(&s, 10*time.Millisecond, func(v string, args ...any) { t.Logf(v, args...) })

			deadline := time.Now().Add(5 * time.Second)
			for s.calls() < 5 {
				if time.Now().After(deadline) {
					t.Fatalf("\t%s\tTest 0:\tShould keep sealing: calls[%d]", failed, s.calls())
				}
				time.Sleep(5 * time.Millisecond)
			}
			t.Logf("\t%s\tTest 0:\tShould keep sealing.", success)

			w.Shutdown()

			n := s.calls()
			time.Sleep(50 * time.Millisecond)
			if s.calls() != n {
				t.Fatalf("\t%s\tTest 0:\tShould stop sealing after shutdown: %d -> %d", failed, n, s.calls())
			}
			t.Logf("\t%s\tTest 0:\tShould stop sealing after shutdown.", success)

			if s.blocks != 3 {
				t.Fatalf("\t%s\tTest 0:\tShould seal only while transactions are pending: blocks[%d]", failed, s.blocks)
			}
			t.Logf("\t%s\tTest 0:\tShould seal only while transactions are pending.", success)
		}

		t.Logf("\tTest 1:\tWhen sealing fails.")
		{
			s := sealer{err: errors.New("connection refused")}
			w := worker.Run(&s, 10*time.Millisecond, nil)

			deadline := time.Now().Add(5 * time.Second)
			for s.calls() < 3 {
				if time.Now().After(deadline) {
					t.Fatalf("\t%s\tTest 1:\tShould keep running after a failure: calls[%d]", failed, s.calls())
				}
				time.Sleep(5 * time.Millisecond)
			}
			w.Shutdown()
			t.Logf("\t%s\tTest 1:\tShould keep running after a failure.", success)
		}

		t.Logf("\tTest 2:\tWhen every seal takes most of the interval.")
		{
			const interval = 60 * time.Millisecond
			const wakes = 6

			s := sealer{delay: 40 * time.Millisecond}
			w := worker.Run(&s, interval, nil)

			deadline := time.Now().Add(5 * time.Second)
			for s.calls() < wakes {
				if time.Now().After(deadline) {
					t.Fatalf("\t%s\tTest 2:\tShould keep sealing: calls[%d]", failed, s.calls())
				}
				time.Sleep(5 * time.Millisecond)
			}
			w.Shutdown()

			// Counting from the end of each seal would space wakes by 100ms.
			got := s.wakeTimes()
			avg := got[wakes-1].Sub(got[1]) / time.Duration(wakes-2)
			if avg >= interval+20*time.Millisecond {
				t.Fatalf("\t%s\tTest 2:\tShould wake once per interval from the previous wake: avg[%v]", failed, avg)
			}
			t.Logf("\t%s\tTest 2:\tShould wake once per interval from the previous wake.", success)
		}

		t.Logf("\tTest 3:\tWhen intervals pass without transactions.")
		{
			var e events
			s := sealer{}
			w := worker.Run(&s, 10*time.Millisecond, e.handler)

			deadline := time.Now().Add(5 * time.Second)
			for s.calls() < 3 {
				if time.Now().After(deadline) {
					t.Fatalf("\t%s\tTest 3:\tShould keep waking: calls[%d]", failed, s.calls())
				}
				time.Sleep(5 * time.Millisecond)
			}
			w.Shutdown()

			if idle, calls := e.idle(), s.calls(); idle != calls {
				t.Fatalf("\t%s\tTest 3:\tShould mark every empty interval idle: idle[%d] calls[%d]", failed, idle, calls)
			}
			t.Logf("\t%s\tTest 3:\tShould mark every empty interval idle.", success)
		}

		t.Logf("\tTest 4:\tWhen a seal error mentions idle.")
		{
			var e events
			s := sealer{err: errors.New("conn idle: reset by peer")}
			w := worker.Run(&s, 10*time.Millisecond, e.handler)

			deadline := time.Now().Add(5 * time.Second)
			for s.calls() < 2 {
				if time.Now().After(deadline) {
					t.Fatalf("\t%s\tTest 4:\tShould keep waking: calls[%d]", failed, s.calls())
				}
				time.Sleep(5 * time.Millisecond)
			}
			w.Shutdown()

			if idle := e.idle(); idle != 0 {
				t.Fatalf("\t%s\tTest 4:\tShould not mark errors idle: idle[%d]", failed, idle)
			}
			t.Logf("\t%s\tTest 4:\tShould not mark errors idle.", success)
		}
	}
}

// =============================================================================

type sealer struct {
	mu      sync.Mutex
	n       int
	pending int
	blocks  int
	err     error
	delay   time.Duration
	wakes   []time.Time
}

func (s *sealer) Seal(ctx context.Context, now time.Time) (ledger.Block, error) {
	time.Sleep(s.delay)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.n++
	s.wakes = append(s.wakes, now)

	if s.err != nil {
		return ledger.Block{}, s.err
	}

	if s.pending == 0 {
		return ledger.Block{}, ledger.ErrNoTransactions
	}

	s.pending--
	s.blocks++
	return ledger.Block{Number: int64(83999 + s.blocks), Timestamp: now}, nil
}

func (s *sealer) LatestBlock(ctx context.Context) (ledger.Block, error) {
	return ledger.Block{Number: 83999, Timestamp: time.Unix(1713557133, 0)}, nil
}

func (s *sealer) wakeTimes() []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Time(nil), s.wakes...)
}

type events struct {
	mu   sync.Mutex
	msgs []string
}

func (e *events) handler(v string, args ...any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.msgs = append(e.msgs, fmt.Sprintf(v, args...))
}

func (e *events) idle() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	var n int
	for _, m := range e.msgs {
		if strings.HasPrefix(m, worker.IdlePrefix) {
			n++
		}
	}
	return n
}

func (s *sealer) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}

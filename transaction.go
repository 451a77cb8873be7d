package ethcall

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Transaction is the handle returned by Send. It streams lifecycle events to
// subscribers and resolves to the final receipt once the transaction is
// confirmed, or to the terminal error. All methods are safe for concurrent use.
//
// Handlers run one at a time, in registration order, on the goroutine that
// tracks the transaction. A slow handler delays tracking.
type Transaction struct {
	hash   common.Hash
	method string

	mu        sync.Mutex
	subs      []*Subscription
	state     TrackerState
	cancelled bool

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once

	receipt *types.Receipt
	err     error
}

// Subscription is the token returned by On and OnAny.
type Subscription struct {
	kinds  []EventKind
	fn     func(Event)
	active atomic.Bool
	tx     *Transaction
}

func newTransaction(hash common.Hash, method string) *Transaction {
	return &Transaction{
		hash:   hash,
		method: method,
		state:  StateSubmitted,
		cancel: func() {},
		done:   make(chan struct{}),
	}
}

// Hash returns the transaction hash.
func (tx *Transaction) Hash() common.Hash {
	return tx.hash
}

// Method returns the name of the contract method the transaction invokes.
func (tx *Transaction) Method() string {
	return tx.method
}

// State returns the current tracker state.
func (tx *Transaction) State() TrackerState {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.state
}

// On registers fn for events of the given kind. Events that fired before the
// call are not replayed.
func (tx *Transaction) On(kind EventKind, fn func(Event)) *Subscription {
	return tx.subscribe([]EventKind{kind}, fn)
}

// OnAny registers fn for every event kind.
func (tx *Transaction) OnAny(fn func(Event)) *Subscription {
	return tx.subscribe(nil, fn)
}

func (tx *Transaction) subscribe(kinds []EventKind, fn func(Event)) *Subscription {
	sub := &Subscription{kinds: kinds, fn: fn, tx: tx}
	sub.active.Store(true)

	tx.mu.Lock()
	tx.subs = append(tx.subs, sub)
	tx.mu.Unlock()
	return sub
}

// Unsubscribe stops delivery to this subscriber only. It takes effect before
// the next event, including one already being dispatched to other subscribers.
func (s *Subscription) Unsubscribe() {
	if !s.active.Swap(false) {
		return
	}
	tx := s.tx
	tx.mu.Lock()
	defer tx.mu.Unlock()
	for i, sub := range tx.subs {
		if sub == s {
			tx.subs = append(tx.subs[:i:i], tx.subs[i+1:]...)
			break
		}
	}
}

func (s *Subscription) wants(kind EventKind) bool {
	if s.kinds == nil {
		return true
	}
	for _, k := range s.kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Cancel stops tracking and suppresses all further events. Wait and Result
// report ErrCancelled unless the transaction had already finished. Cancel does
// not withdraw the broadcast transaction.
func (tx *Transaction) Cancel() {
	tx.mu.Lock()
	tx.cancelled = true
	cancel := tx.cancel
	tx.mu.Unlock()

	cancel()
}

// Done is closed when tracking has finished, successfully or not.
func (tx *Transaction) Done() <-chan struct{} {
	return tx.done
}

// Wait blocks until tracking finishes or ctx is done. It returns the final
// receipt on confirmation and the terminal error otherwise.
func (tx *Transaction) Wait(ctx context.Context) (*types.Receipt, error) {
	select {
	case <-tx.done:
		return tx.receipt, tx.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Result returns the outcome without blocking. ok is false while tracking is
// still in progress.
func (tx *Transaction) Result() (receipt *types.Receipt, ok bool, err error) {
	select {
	case <-tx.done:
		return tx.receipt, true, tx.err
	default:
		return nil, false, nil
	}
}

// start runs the tracking loop in a new goroutine under a context derived from
// ctx. Cancellation of ctx behaves like Cancel.
func (tx *Transaction) start(ctx context.Context, run func(ctx context.Context)) {
	ctx, cancel := context.WithCancel(ctx)

	tx.mu.Lock()
	tx.cancel = cancel
	if tx.cancelled {
		cancel()
	}
	tx.mu.Unlock()

	go func() {
		defer cancel()
		run(ctx)

		// run returns without finishing only when ctx was cancelled.
		select {
		case <-tx.done:
		default:
			tx.markCancelled()
			tx.finish(nil, nil, StateCancelled)
		}
	}()
}

func (tx *Transaction) setState(s TrackerState) {
	tx.mu.Lock()
	if !tx.cancelled {
		tx.state = s
	}
	tx.mu.Unlock()
}

// emit delivers ev to the current subscribers. It reports false once the
// transaction has been cancelled, in which case nothing is delivered.
func (tx *Transaction) emit(ev Event) bool {
	ev.Hash = tx.hash

	tx.mu.Lock()
	if tx.cancelled {
		tx.mu.Unlock()
		return false
	}
	subs := make([]*Subscription, len(tx.subs))
	copy(subs, tx.subs)
	tx.mu.Unlock()

	for _, sub := range subs {
		if tx.isCancelled() {
			return false
		}
		if sub.active.Load() && sub.wants(ev.Kind) {
			sub.fn(ev)
		}
	}
	return true
}

func (tx *Transaction) isCancelled() bool {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.cancelled
}

// finish records the outcome and releases waiters. Only the first call has
// any effect. A cancelled transaction always finishes with ErrCancelled.
func (tx *Transaction) finish(receipt *types.Receipt, err error, state TrackerState) {
	tx.once.Do(func() {
		tx.mu.Lock()
		if tx.cancelled {
			receipt, state = nil, StateCancelled
			err = &TrackingError{State: StateCancelled, Hash: tx.hash}
		}
		tx.state = state
		tx.mu.Unlock()

		tx.receipt = receipt
		tx.err = err
		close(tx.done)
	})
}

// markCancelled flags the transaction as cancelled when the Send context ends.
func (tx *Transaction) markCancelled() {
	tx.mu.Lock()
	tx.cancelled = true
	tx.mu.Unlock()
}

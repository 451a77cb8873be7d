package ethcall

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// TrackerState is the position of a sent transaction in its lifecycle.
type TrackerState uint8

const (
	// StateSubmitted is the state right after a successful broadcast.
	StateSubmitted TrackerState = iota

	// StateAwaitingReceipt means the tracker is looking for a receipt.
	StateAwaitingReceipt

	// StateMined means a receipt was found.
	StateMined

	// StateConfirming means the tracker is counting blocks on top of the receipt.
	StateConfirming

	// StateConfirmed is the terminal success state.
	StateConfirmed

	// StateReverted means the receipt reports a failed execution. Terminal.
	StateReverted

	// StateTimedOut means no receipt arrived in time. Terminal.
	StateTimedOut

	// StateDisplaced means the receipt's block left the canonical chain. Terminal.
	StateDisplaced

	// StateProviderError means the transport kept failing. Terminal.
	StateProviderError

	// StateCancelled means the caller stopped tracking. Terminal.
	StateCancelled
)

var stateNames = [...]string{
	StateSubmitted:       "submitted",
	StateAwaitingReceipt: "awaiting_receipt",
	StateMined:           "mined",
	StateConfirming:      "confirming",
	StateConfirmed:       "confirmed",
	StateReverted:        "reverted",
	StateTimedOut:        "timed_out",
	StateDisplaced:       "displaced",
	StateProviderError:   "provider_error",
	StateCancelled:       "cancelled",
}

func (s TrackerState) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// Terminal reports whether the state ends tracking.
func (s TrackerState) Terminal() bool {
	return s >= StateConfirmed
}

// errReceiptDisplaced signals that the receipt's block is no longer canonical.
var errReceiptDisplaced = errors.New("receipt displaced")

// tracker drives a single Transaction from broadcast to a terminal state.
type tracker struct {
	tx        *Transaction
	transport Transport
	config    Config
	log       *zap.Logger
	metrics   *Metrics
	method    string
}

func (t *tracker) run(ctx context.Context) {
	started := time.Now()

	t.tx.setState(StateAwaitingReceipt)
	if !t.tx.emit(Event{Kind: EventTransactionHash}) {
		return
	}

	w := newHeadWatcher(ctx, t.transport, t.config, t.log)
	defer w.stop()

	var (
		emitted   uint64
		relocated int
		located   bool
	)
	for {
		receipt, err := t.awaitReceipt(ctx, w)
		if err != nil {
			t.fail(ctx, nil, err)
			return
		}
		if !located {
			t.metrics.receiptAfter(time.Since(started))
			located = true
		}
		t.log.Debug("receipt found",
			zap.Uint64("block", receipt.BlockNumber.Uint64()),
			zap.Uint64("status", receipt.Status))

		t.tx.setState(StateMined)
		if !t.tx.emit(Event{Kind: EventReceipt, Receipt: receipt}) {
			return
		}

		if receipt.Status == types.ReceiptStatusFailed {
			t.fail(ctx, receipt, &TrackingError{
				State: StateReverted,
				Hash:  t.tx.hash,
				Err:   &ExecutionRevertedError{Method: t.method, Receipt: receipt},
			})
			return
		}

		if t.config.RequiredConfirmations == 0 {
			t.succeed(receipt)
			return
		}

		t.tx.setState(StateConfirming)
		err = t.confirm(ctx, w, receipt, &emitted)
		switch {
		case err == nil:
			t.succeed(receipt)
			return
		case errors.Is(err, errReceiptDisplaced):
			if relocated < t.config.DisplacementRetries {
				relocated++
				t.log.Warn("receipt displaced, searching again",
					zap.Int("attempt", relocated),
					zap.Uint64("block", receipt.BlockNumber.Uint64()))
				t.tx.setState(StateAwaitingReceipt)
				continue
			}
			t.fail(ctx, nil, &TrackingError{
				State: StateDisplaced,
				Hash:  t.tx.hash,
				Err:   fmt.Errorf("block %s at height %d", receipt.BlockHash.Hex(), receipt.BlockNumber),
			})
			return
		default:
			t.fail(ctx, nil, err)
			return
		}
	}
}

// awaitReceipt checks for a receipt now and on every tick until one is found
// or the wall-clock or block deadline passes.
func (t *tracker) awaitReceipt(ctx context.Context, w *headWatcher) (*types.Receipt, error) {
	phaseCtx := ctx
	if t.config.Timeout > 0 {
		var cancel context.CancelFunc
		phaseCtx, cancel = context.WithTimeout(ctx, t.config.Timeout)
		defer cancel()
	}

	var (
		head       *types.Header
		startBlock uint64
		haveStart  bool
	)
	for {
		receipt, err := t.fetchReceipt(phaseCtx)
		if err != nil {
			return nil, t.phaseError(ctx, phaseCtx, err)
		}
		if receipt != nil {
			return receipt, nil
		}

		if t.config.BlockTimeout > 0 {
			n, err := t.headNumber(phaseCtx, head)
			if err != nil {
				return nil, t.phaseError(ctx, phaseCtx, err)
			}
			if !haveStart {
				startBlock, haveStart = n, true
			} else if n >= startBlock+t.config.BlockTimeout {
				return nil, &TrackingError{
					State: StateTimedOut,
					Hash:  t.tx.hash,
					Err:   fmt.Errorf("no receipt after %d blocks", t.config.BlockTimeout),
				}
			}
		}

		head, err = w.wait(phaseCtx)
		if err != nil {
			return nil, t.phaseError(ctx, phaseCtx, err)
		}
	}
}

// phaseError turns an expired receipt deadline into a timeout. Errors caused
// by the caller's cancellation are returned as they are.
func (t *tracker) phaseError(ctx, phaseCtx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(phaseCtx.Err(), context.DeadlineExceeded) {
		return &TrackingError{
			State: StateTimedOut,
			Hash:  t.tx.hash,
			Err:   fmt.Errorf("no receipt after %s", t.config.Timeout),
		}
	}
	return err
}

// confirm delivers confirmation counts until the threshold is reached. Every
// count above the highest one already delivered is emitted, even when the head
// advances by several blocks at once.
func (t *tracker) confirm(ctx context.Context, w *headWatcher, receipt *types.Receipt, emitted *uint64) error {
	block := receipt.BlockNumber.Uint64()
	required := t.config.RequiredConfirmations

	var head *types.Header
	for {
		n, err := t.headNumber(ctx, head)
		if err != nil {
			return err
		}

		var count uint64
		if n > block {
			count = min(n-block, required)
		}
		for c := *emitted + 1; c <= count; c++ {
			if !t.tx.emit(Event{Kind: EventConfirmation, Receipt: receipt, Confirmations: c}) {
				return context.Canceled
			}
			t.metrics.confirmation()
			*emitted = c
		}
		if count >= required {
			return nil
		}

		head, err = w.wait(ctx)
		if err != nil {
			return err
		}

		current, err := t.fetchReceipt(ctx)
		if err != nil {
			return err
		}
		if current == nil || current.BlockHash != receipt.BlockHash {
			return errReceiptDisplaced
		}
	}
}

func (t *tracker) fetchReceipt(ctx context.Context) (*types.Receipt, error) {
	var receipt *types.Receipt
	if err := t.request(ctx, &receipt, "eth_getTransactionReceipt", t.tx.hash); err != nil {
		return nil, err
	}
	// Some nodes report pending transactions with a receipt lacking a block.
	if receipt == nil || receipt.BlockNumber == nil || receipt.BlockHash == (common.Hash{}) {
		return nil, nil
	}
	return receipt, nil
}

// headNumber returns the number of head when the subscription delivered one,
// and asks the node otherwise.
func (t *tracker) headNumber(ctx context.Context, head *types.Header) (uint64, error) {
	if head != nil && head.Number != nil {
		return head.Number.Uint64(), nil
	}
	var n hexutil.Uint64
	if err := t.request(ctx, &n, "eth_blockNumber"); err != nil {
		return 0, err
	}
	return uint64(n), nil
}

// request performs a polling request, retrying failures with exponential
// backoff. Running out of retries is a terminal provider error.
func (t *tracker) request(ctx context.Context, result any, method string, params ...any) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = t.config.RetryInitialBackoff
	b.MaxInterval = t.config.RetryMaxBackoff
	b.MaxElapsedTime = 0

	op := func() error {
		err := t.transport.Request(ctx, result, method, params...)
		if err != nil && ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}
	notify := func(err error, next time.Duration) {
		t.metrics.retry(method)
		t.log.Warn("polling request failed, retrying",
			zap.String("rpc", method),
			zap.Duration("backoff", next),
			zap.Error(err))
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(t.config.RetryCount)), ctx)
	err := backoff.RetryNotify(op, policy, notify)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return &TrackingError{
		State: StateProviderError,
		Hash:  t.tx.hash,
		Err:   &TransportError{Method: method, Err: err},
	}
}

func (t *tracker) succeed(receipt *types.Receipt) {
	t.log.Debug("transaction confirmed", zap.Uint64("confirmations", t.config.RequiredConfirmations))
	t.metrics.outcome(StateConfirmed)
	t.tx.finish(receipt, nil, StateConfirmed)
}

// fail delivers the terminal Error event and rejects the transaction. Errors
// caused by cancellation are left to the caller of run.
func (t *tracker) fail(ctx context.Context, receipt *types.Receipt, err error) {
	if ctx.Err() != nil {
		return
	}
	var te *TrackingError
	if !errors.As(err, &te) {
		te = &TrackingError{State: StateProviderError, Hash: t.tx.hash, Err: err}
	}

	t.log.Debug("tracking failed", zap.Stringer("state", te.State), zap.Error(te))
	t.tx.setState(te.State)
	if !t.tx.emit(Event{Kind: EventError, Receipt: receipt, Err: te}) {
		return
	}
	t.metrics.outcome(te.State)
	t.tx.finish(receipt, te, te.State)
}

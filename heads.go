package ethcall

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// headWatcher paces the tracker: it fires on every polling tick, or on every
// new head when subscribed.
type headWatcher struct {
	interval time.Duration
	log      *zap.Logger

	ticker *time.Ticker

	sub   ethereum.Subscription
	heads chan *types.Header
}

// newHeadWatcher subscribes to new heads when the configured strategy asks for
// it and the transport supports it, and polls otherwise.
func newHeadWatcher(ctx context.Context, transport Transport, cfg Config, log *zap.Logger) *headWatcher {
	w := &headWatcher{
		interval: cfg.PollingInterval,
		log:      log,
	}
	if cfg.Strategy == SubscriptionStrategy {
		if hs, ok := transport.(HeadSubscriber); ok {
			heads := make(chan *types.Header, 16)
			sub, err := hs.SubscribeNewHeads(ctx, heads)
			if err == nil {
				w.sub = sub
				w.heads = heads
				return w
			}
			log.Warn("head subscription failed, falling back to polling", zap.Error(err))
		} else {
			log.Warn("transport cannot subscribe to heads, falling back to polling")
		}
	}
	w.ticker = time.NewTicker(w.interval)
	return w
}

// wait blocks until the next check is due. It returns the new head when one
// was delivered by the subscription and nil otherwise.
func (w *headWatcher) wait(ctx context.Context) (*types.Header, error) {
	if w.sub != nil {
		select {
		case head := <-w.heads:
			return head, nil
		case err := <-w.sub.Err():
			w.log.Warn("head subscription ended, falling back to polling", zap.Error(err))
			w.sub.Unsubscribe()
			w.sub = nil
			w.ticker = time.NewTicker(w.interval)
			// Check right away, a head may have been missed.
			return nil, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	select {
	case <-w.ticker.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (w *headWatcher) stop() {
	if w.sub != nil {
		w.sub.Unsubscribe()
	}
	if w.ticker != nil {
		w.ticker.Stop()
	}
}

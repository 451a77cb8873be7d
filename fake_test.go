package ethcall

import (
	"context"
	"fmt"
	"math/big"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
)

const testABI = `[
	{
		"name": "balanceOf",
		"type": "function",
		"stateMutability": "view",
		"inputs": [{"name": "owner", "type": "address"}],
		"outputs": [{"name": "", "type": "uint256"}]
	},
	{
		"name": "transfer",
		"type": "function",
		"stateMutability": "nonpayable",
		"inputs": [
			{"name": "to", "type": "address"},
			{"name": "amount", "type": "uint256"}
		],
		"outputs": [{"name": "", "type": "bool"}]
	},
	{
		"name": "deposit",
		"type": "function",
		"stateMutability": "payable",
		"inputs": [],
		"outputs": []
	},
	{
		"name": "version",
		"type": "function",
		"stateMutability": "pure",
		"inputs": [],
		"outputs": [{"name": "", "type": "string"}]
	},
	{
		"name": "InsufficientBalance",
		"type": "error",
		"inputs": [
			{"name": "available", "type": "uint256"},
			{"name": "required", "type": "uint256"}
		]
	}
]`

var (
	testContractAddr = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testFrom         = common.HexToAddress("0x2222222222222222222222222222222222222222")
	testRecipient    = common.HexToAddress("0x3333333333333333333333333333333333333333")
	testTxHash       = common.HexToHash("0xabcdef")
)

// rpcError mimics the JSON-RPC errors returned by rpc.Client.
type rpcError struct {
	code int
	msg  string
	data any
}

func (e *rpcError) Error() string  { return e.msg }
func (e *rpcError) ErrorCode() int { return e.code }
func (e *rpcError) ErrorData() any { return e.data }

// fakeChain is a scripted Transport. Each RPC method is answered by a
// handler; n is the zero-based index of the call to that method.
type fakeChain struct {
	mu       sync.Mutex
	handlers map[string]func(n int, params []any) (any, error)
	calls    map[string]int
	params   map[string][][]any
}

func newFakeChain() *fakeChain {
	f := &fakeChain{
		handlers: make(map[string]func(int, []any) (any, error)),
		calls:    make(map[string]int),
		params:   make(map[string][][]any),
	}
	f.handle("eth_sendTransaction", func(int, []any) (any, error) {
		return testTxHash, nil
	})
	return f
}

func (f *fakeChain) handle(method string, fn func(n int, params []any) (any, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[method] = fn
}

// receipts answers eth_getTransactionReceipt from a script.
func (f *fakeChain) receipts(fn func(n int) *types.Receipt) {
	f.handle("eth_getTransactionReceipt", func(n int, _ []any) (any, error) {
		return fn(n), nil
	})
}

// heads answers eth_blockNumber from a script.
func (f *fakeChain) heads(fn func(n int) uint64) {
	f.handle("eth_blockNumber", func(n int, _ []any) (any, error) {
		return hexutil.Uint64(fn(n)), nil
	})
}

func (f *fakeChain) Request(ctx context.Context, result any, method string, params ...any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	fn, ok := f.handlers[method]
	n := f.calls[method]
	f.calls[method]++
	f.params[method] = append(f.params[method], params)
	f.mu.Unlock()

	if !ok {
		return fmt.Errorf("fake: unexpected method %s", method)
	}
	v, err := fn(n, params)
	if err != nil {
		return err
	}
	return assign(result, v)
}

func (f *fakeChain) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeChain) lastParams(method string) []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.params[method]
	if len(p) == 0 {
		return nil
	}
	return p[len(p)-1]
}

// assign stores v into the pointer result the way a JSON decode would.
func assign(result any, v any) error {
	if result == nil {
		return nil
	}
	dst := reflect.ValueOf(result).Elem()
	if v == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}
	src := reflect.ValueOf(v)
	if !src.Type().AssignableTo(dst.Type()) {
		return fmt.Errorf("fake: cannot assign %T to %s", v, dst.Type())
	}
	dst.Set(src)
	return nil
}

// subscribingChain adds a newHeads subscription fed by the test.
type subscribingChain struct {
	*fakeChain

	subErr     error
	headCh     chan *types.Header
	drop       chan error
	subscribed chan struct{}
	once       sync.Once
}

func newSubscribingChain() *subscribingChain {
	return &subscribingChain{
		fakeChain:  newFakeChain(),
		headCh:     make(chan *types.Header),
		drop:       make(chan error),
		subscribed: make(chan struct{}),
	}
}

func (s *subscribingChain) SubscribeNewHeads(_ context.Context, ch chan<- *types.Header) (ethereum.Subscription, error) {
	if s.subErr != nil {
		return nil, s.subErr
	}
	sub := event.NewSubscription(func(quit <-chan struct{}) error {
		for {
			select {
			case h := <-s.headCh:
				select {
				case ch <- h:
				case <-quit:
					return nil
				}
			case err := <-s.drop:
				return err
			case <-quit:
				return nil
			}
		}
	})
	s.once.Do(func() { close(s.subscribed) })
	return sub, nil
}

// sendHead delivers a header with the given number to the subscriber.
func (s *subscribingChain) sendHead(t *testing.T, number uint64) {
	t.Helper()
	select {
	case s.headCh <- &types.Header{Number: new(big.Int).SetUint64(number)}:
	case <-time.After(5 * time.Second):
		t.Fatalf("head %d was not consumed", number)
	}
}

func newReceipt(block uint64, status uint64) *types.Receipt {
	return &types.Receipt{
		Status:      status,
		TxHash:      testTxHash,
		BlockNumber: new(big.Int).SetUint64(block),
		BlockHash:   common.BigToHash(new(big.Int).SetUint64(block)),
		GasUsed:     21000,
	}
}

// fastConfig keeps tracker tests quick.
func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.PollingInterval = time.Millisecond
	cfg.RetryInitialBackoff = time.Millisecond
	cfg.RetryMaxBackoff = 2 * time.Millisecond
	cfg.Timeout = 0
	cfg.BlockTimeout = 0
	return cfg
}

func newTestContract(t *testing.T, transport Transport, opts ...ContractOption) *Contract {
	t.Helper()
	parsed, err := ParseABI(testABI)
	if err != nil {
		t.Fatalf("Failed to parse ABI: %v", err)
	}
	opts = append([]ContractOption{WithFrom(testFrom)}, opts...)
	return NewContract(testContractAddr, parsed, transport, opts...)
}

// recorder collects events delivered to a handler.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) record(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]EventKind, len(r.events))
	for i, ev := range r.events {
		kinds[i] = ev.Kind
	}
	return kinds
}

func (r *recorder) confirmations() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var counts []uint64
	for _, ev := range r.events {
		if ev.Kind == EventConfirmation {
			counts = append(counts, ev.Confirmations)
		}
	}
	return counts
}

func waitTx(t *testing.T, tx *Transaction) (*types.Receipt, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	receipt, err := tx.Wait(ctx)
	if ctx.Err() != nil {
		t.Fatalf("Transaction %s did not finish, state %s", tx.Hash().Hex(), tx.State())
	}
	return receipt, err
}

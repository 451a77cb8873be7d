package ethcall

import (
	"context"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
)

// Transport performs JSON-RPC requests against a node. result is a pointer the
// response is decoded into, as with rpc.Client.CallContext. Implementations
// must be safe for concurrent use.
type Transport interface {
	Request(ctx context.Context, result any, method string, params ...any) error
}

// HeadSubscriber is implemented by transports that can stream new block
// headers. SubscriptionStrategy requires it.
type HeadSubscriber interface {
	SubscribeNewHeads(ctx context.Context, ch chan<- *types.Header) (ethereum.Subscription, error)
}

// RPCTransport adapts a go-ethereum rpc.Client. Head subscriptions need a
// websocket or IPC endpoint; over HTTP they fail and tracking falls back to
// polling.
type RPCTransport struct {
	client *rpc.Client
}

var (
	_ Transport      = (*RPCTransport)(nil)
	_ HeadSubscriber = (*RPCTransport)(nil)
)

// NewRPCTransport wraps an existing client.
func NewRPCTransport(client *rpc.Client) *RPCTransport {
	return &RPCTransport{client: client}
}

// Dial connects to the node at rawurl (http, ws or ipc).
func Dial(ctx context.Context, rawurl string) (*RPCTransport, error) {
	client, err := rpc.DialContext(ctx, rawurl)
	if err != nil {
		return nil, err
	}
	return NewRPCTransport(client), nil
}

// Request implements Transport.
func (t *RPCTransport) Request(ctx context.Context, result any, method string, params ...any) error {
	return t.client.CallContext(ctx, result, method, params...)
}

// SubscribeNewHeads implements HeadSubscriber.
func (t *RPCTransport) SubscribeNewHeads(ctx context.Context, ch chan<- *types.Header) (ethereum.Subscription, error) {
	sub, err := t.client.EthSubscribe(ctx, ch, "newHeads")
	if err != nil {
		// Avoid returning a non-nil interface holding a nil pointer.
		return nil, err
	}
	return sub, nil
}

// Close closes the underlying client.
func (t *RPCTransport) Close() {
	t.client.Close()
}

// toTxArgs builds the transaction-args object shared by eth_call,
// eth_estimateGas and eth_sendTransaction.
func toTxArgs(r ResolvedOptions, data []byte) map[string]any {
	arg := map[string]any{
		"to": r.To,
	}
	if r.From != nil {
		arg["from"] = *r.From
	}
	if len(data) > 0 {
		arg["input"] = hexutil.Bytes(data)
	}
	if r.Value != nil {
		arg["value"] = (*hexutil.Big)(r.Value)
	}
	if r.Gas != nil {
		arg["gas"] = hexutil.Uint64(*r.Gas)
	}
	if r.GasPrice != nil {
		arg["gasPrice"] = (*hexutil.Big)(r.GasPrice)
	}
	if r.MaxFeePerGas != nil {
		arg["maxFeePerGas"] = (*hexutil.Big)(r.MaxFeePerGas)
	}
	if r.MaxPriorityFeePerGas != nil {
		arg["maxPriorityFeePerGas"] = (*hexutil.Big)(r.MaxPriorityFeePerGas)
	}
	if r.Nonce != nil {
		arg["nonce"] = hexutil.Uint64(*r.Nonce)
	}
	if r.Type != nil {
		arg["type"] = hexutil.Uint64(*r.Type)
	}
	if r.ChainID != nil {
		arg["chainId"] = (*hexutil.Big)(r.ChainID)
	}
	return arg
}

func toBlockArg(block rpc.BlockNumberOrHash) string {
	if hash, ok := block.Hash(); ok {
		return hash.Hex()
	}
	if number, ok := block.Number(); ok {
		return number.String()
	}
	return rpc.LatestBlockNumber.String()
}

package ethcall

import (
	"context"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

// revertErrorCode is the JSON-RPC error code geth and most other clients use
// for "execution reverted" responses carrying revert data.
const revertErrorCode = 3

// executeCall runs eth_call. It returns the raw return data, an
// *ExecutionRevertedError holding the undecoded revert payload, or a
// *TransportError.
func executeCall(ctx context.Context, transport Transport, r ResolvedOptions, data []byte, block rpc.BlockNumberOrHash) ([]byte, error) {
	var out hexutil.Bytes
	err := transport.Request(ctx, &out, "eth_call", toTxArgs(r, data), toBlockArg(block))
	if err != nil {
		return nil, classifyExecutionError("eth_call", err)
	}
	return out, nil
}

// classifyExecutionError separates revert responses from transport failures.
func classifyExecutionError(method string, err error) error {
	if rev, ok := revertFromError(err); ok {
		return rev
	}
	return &TransportError{Method: method, Err: err}
}

// revertFromError extracts revert data from a JSON-RPC error. Nodes report a
// revert either with code 3 and hex data, or with an "execution reverted"
// message, optionally followed by the reason.
func revertFromError(err error) (*ExecutionRevertedError, bool) {
	var rpcErr rpc.Error
	if !errors.As(err, &rpcErr) {
		return nil, false
	}

	msg := rpcErr.Error()
	if rpcErr.ErrorCode() != revertErrorCode && !strings.Contains(strings.ToLower(msg), "execution reverted") {
		return nil, false
	}

	rev := &ExecutionRevertedError{}
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if s, ok := dataErr.ErrorData().(string); ok {
			if raw, err := hexutil.Decode(s); err == nil {
				rev.Data = raw
			}
		}
	}
	if _, reason, found := strings.Cut(msg, "execution reverted: "); found {
		rev.Reason = reason
	}
	return rev, true
}

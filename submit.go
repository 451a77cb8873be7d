package ethcall

import (
	"context"
	"errors"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
)

// submit broadcasts one transaction and returns its hash. Without a signer the
// node signs with a remotely managed account (eth_sendTransaction); with one,
// the transaction is filled, signed locally and sent raw. The broadcast itself
// is never retried.
func submit(ctx context.Context, transport Transport, signer Signer, r ResolvedOptions, data []byte) (common.Hash, error) {
	if signer == nil {
		var hash common.Hash
		if err := transport.Request(ctx, &hash, "eth_sendTransaction", toTxArgs(r, data)); err != nil {
			return common.Hash{}, classifyBroadcastError("eth_sendTransaction", err)
		}
		return hash, nil
	}

	tx, chainID, err := fillTransaction(ctx, transport, signer, r, data)
	if err != nil {
		return common.Hash{}, err
	}
	signed, err := signer.SignTx(tx, chainID)
	if err != nil {
		return common.Hash{}, err
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		return common.Hash{}, err
	}

	var hash common.Hash
	if err := transport.Request(ctx, &hash, "eth_sendRawTransaction", hexutil.Bytes(raw)); err != nil {
		return common.Hash{}, classifyBroadcastError("eth_sendRawTransaction", err)
	}
	return hash, nil
}

// fillTransaction completes the fields a locally signed transaction needs,
// asking the node for whatever the resolved options leave unset.
func fillTransaction(ctx context.Context, transport Transport, signer Signer, r ResolvedOptions, data []byte) (*types.Transaction, *big.Int, error) {
	from := signer.Address()
	if r.From != nil && *r.From != from {
		return nil, nil, ErrSignerMismatch
	}
	r.From = &from

	chainID := r.ChainID
	if chainID == nil {
		var id hexutil.Big
		if err := request(ctx, transport, &id, "eth_chainId"); err != nil {
			return nil, nil, err
		}
		chainID = id.ToInt()
	}

	var nonce uint64
	if r.Nonce != nil {
		nonce = *r.Nonce
	} else {
		var n hexutil.Uint64
		if err := request(ctx, transport, &n, "eth_getTransactionCount", from, "pending"); err != nil {
			return nil, nil, err
		}
		nonce = uint64(n)
	}

	var gas uint64
	if r.Gas != nil {
		gas = *r.Gas
	} else {
		estimated, err := estimateGas(ctx, transport, r, data)
		if err != nil {
			return nil, nil, err
		}
		gas = uint64(estimated)
	}

	to := r.To
	legacy := r.GasPrice != nil || (r.Type != nil && *r.Type < types.DynamicFeeTxType)
	if !legacy {
		tip, feeCap, ok, err := dynamicFees(ctx, transport, r)
		if err != nil {
			return nil, nil, err
		}
		if ok {
			return types.NewTx(&types.DynamicFeeTx{
				ChainID:   chainID,
				Nonce:     nonce,
				GasTipCap: tip,
				GasFeeCap: feeCap,
				Gas:       gas,
				To:        &to,
				Value:     valueOrZero(r.Value),
				Data:      data,
			}), chainID, nil
		}
	}

	price := r.GasPrice
	if price == nil {
		var p hexutil.Big
		if err := request(ctx, transport, &p, "eth_gasPrice"); err != nil {
			return nil, nil, err
		}
		price = p.ToInt()
	}
	if r.Type != nil && *r.Type == types.AccessListTxType {
		return types.NewTx(&types.AccessListTx{
			ChainID:  chainID,
			Nonce:    nonce,
			GasPrice: price,
			Gas:      gas,
			To:       &to,
			Value:    valueOrZero(r.Value),
			Data:     data,
		}), chainID, nil
	}
	return types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: price,
		Gas:      gas,
		To:       &to,
		Value:    valueOrZero(r.Value),
		Data:     data,
	}), chainID, nil
}

// dynamicFees returns the tip and fee cap for an EIP-1559 transaction. ok is
// false when the chain has no base fee and a legacy transaction must be used.
func dynamicFees(ctx context.Context, transport Transport, r ResolvedOptions) (tip, feeCap *big.Int, ok bool, err error) {
	tip = r.MaxPriorityFeePerGas
	if tip == nil {
		var t hexutil.Big
		if err := request(ctx, transport, &t, "eth_maxPriorityFeePerGas"); err != nil {
			return nil, nil, false, err
		}
		tip = t.ToInt()
	}
	if r.MaxFeePerGas != nil {
		return tip, r.MaxFeePerGas, true, nil
	}

	var head *types.Header
	if err := request(ctx, transport, &head, "eth_getBlockByNumber", rpc.LatestBlockNumber.String(), false); err != nil {
		return nil, nil, false, err
	}
	if head == nil || head.BaseFee == nil {
		return nil, nil, false, nil
	}
	// Leave room for the base fee to double before the transaction is mined.
	feeCap = new(big.Int).Add(tip, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
	return tip, feeCap, true, nil
}

// request performs a single non-retried request, wrapping failures as TransportError.
func request(ctx context.Context, transport Transport, result any, method string, params ...any) error {
	if err := transport.Request(ctx, result, method, params...); err != nil {
		return &TransportError{Method: method, Err: err}
	}
	return nil
}

func valueOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

// classifyBroadcastError maps a node's JSON-RPC error to a RejectedByNodeError.
// Errors that never reached the node stay TransportErrors.
func classifyBroadcastError(method string, err error) error {
	var rpcErr rpc.Error
	if !errors.As(err, &rpcErr) {
		return &TransportError{Method: method, Err: err}
	}
	return &RejectedByNodeError{Kind: rejectionKind(rpcErr.Error()), Err: err}
}

// Substrings of the txpool errors reported by geth, erigon, nethermind and anvil.
var rejectionPatterns = []struct {
	kind     RejectionKind
	patterns []string
}{
	{RejectAlreadyKnown, []string{"already known", "known transaction", "already imported", "already exists"}},
	{RejectInvalidNonce, []string{"nonce too low", "nonce too high", "invalid nonce", "nonce has max value", "oldnonce"}},
	{RejectInsufficientFunds, []string{"insufficient funds", "insufficient balance"}},
	{RejectUnderpriced, []string{"underpriced", "less than block base fee", "fee cap less than", "feetoolow"}},
	{RejectMalformed, []string{
		"rlp", "invalid sender", "invalid signature", "oversized data", "intrinsic gas too low",
		"exceeds block gas limit", "tip higher than fee cap", "higher than max fee per gas",
		"transaction type not supported", "invalid transaction", "malformed", "unexpected eof",
	}},
}

func rejectionKind(msg string) RejectionKind {
	msg = strings.ToLower(msg)
	for _, class := range rejectionPatterns {
		for _, p := range class.patterns {
			if strings.Contains(msg, p) {
				return class.kind
			}
		}
	}
	return RejectUnknown
}

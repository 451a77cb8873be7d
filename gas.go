package ethcall

import (
	"context"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

// Gas is a gas quantity returned by EstimateGas. It converts to whichever
// numeric representation the caller needs.
type Gas uint64

// Uint64 returns the quantity as a uint64.
func (g Gas) Uint64() uint64 {
	return uint64(g)
}

// Big returns the quantity as a new *big.Int.
func (g Gas) Big() *big.Int {
	return new(big.Int).SetUint64(uint64(g))
}

// Uint256 returns the quantity as a new *uint256.Int.
func (g Gas) Uint256() *uint256.Int {
	return uint256.NewInt(uint64(g))
}

// Hex returns the 0x-prefixed hexadecimal form used on the wire.
func (g Gas) Hex() string {
	return hexutil.EncodeUint64(uint64(g))
}

// String returns the decimal form.
func (g Gas) String() string {
	return strconv.FormatUint(uint64(g), 10)
}

// estimateGas runs eth_estimateGas with the same error taxonomy as executeCall.
func estimateGas(ctx context.Context, transport Transport, r ResolvedOptions, data []byte) (Gas, error) {
	var gas hexutil.Uint64
	if err := transport.Request(ctx, &gas, "eth_estimateGas", toTxArgs(r, data)); err != nil {
		return 0, classifyExecutionError("eth_estimateGas", err)
	}
	return Gas(gas), nil
}

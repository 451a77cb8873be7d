package ethcall

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		msg  string
	}{
		{"ErrMissingAddress", ErrMissingAddress, "ethcall: no contract address configured"},
		{"ErrSignerMismatch", ErrSignerMismatch, "ethcall: sender does not match signer account"},
		{"ErrCancelled", ErrCancelled, "ethcall: transaction tracking cancelled"},
		{"ErrReverted", ErrReverted, "ethcall: transaction reverted"},
		{"ErrTimedOut", ErrTimedOut, "ethcall: timed out waiting for receipt"},
		{"ErrDisplaced", ErrDisplaced, "ethcall: receipt displaced from canonical chain"},
		{"ErrProviderError", ErrProviderError, "ethcall: provider failed repeatedly"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.msg {
				t.Errorf("Expected error message %q, got %q", tt.msg, tt.err.Error())
			}
		})
	}
}

func TestMethodNotFoundError(t *testing.T) {
	addr := common.HexToAddress("0x1234567890123456789012345678901234567890")
	err := &MethodNotFoundError{
		Contract: addr,
		Method:   "transfer",
	}

	expected := `ethcall: method "transfer" not found in contract 0x1234567890123456789012345678901234567890`
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}
}

func TestArgumentError(t *testing.T) {
	innerErr := &TypeMismatchError{Expected: "uint256", Got: "bool"}
	err := &ArgumentError{
		Method: "transfer",
		Index:  1,
		Err:    innerErr,
	}

	expected := `ethcall: argument 1 for method "transfer": ethcall: type mismatch: expected uint256, got bool`
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}

	var mismatch *TypeMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatal("errors.As should find TypeMismatchError in chain")
	}
	if mismatch.Expected != "uint256" {
		t.Errorf("Expected uint256, got %s", mismatch.Expected)
	}
}

func TestInvalidValueError(t *testing.T) {
	err := &InvalidValueError{Method: "transfer", Mutability: NonPayable, Value: big.NewInt(5)}

	expected := `ethcall: method "transfer" is nonpayable and cannot receive value 5`
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}
}

func TestEncodingErrorChain(t *testing.T) {
	arg := &ArgumentError{Method: "transfer", Index: 0, Err: errors.New("invalid address")}
	err := &EncodingError{Method: "transfer", Err: arg}

	var got *ArgumentError
	if !errors.As(err, &got) {
		t.Fatal("errors.As should find ArgumentError through EncodingError")
	}
	if got.Index != 0 {
		t.Errorf("Expected index 0, got %d", got.Index)
	}
}

func TestDecodingError(t *testing.T) {
	inner := errors.New("abi: cannot marshal")
	err := &DecodingError{Method: "balanceOf", Data: []byte{1, 2, 3}, Err: inner}

	expected := `ethcall: decoding "balanceOf" result (3 bytes): abi: cannot marshal`
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}
	if !errors.Is(err, inner) {
		t.Error("errors.Is should find the inner error")
	}
}

func TestExecutionRevertedErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *ExecutionRevertedError
		msg  string
	}{
		{
			name: "reason",
			err:  &ExecutionRevertedError{Method: "transfer", Reason: "not owner"},
			msg:  `ethcall: "transfer" execution reverted: not owner`,
		},
		{
			name: "custom error",
			err:  &ExecutionRevertedError{Method: "transfer", ErrorName: "InsufficientBalance", Args: []any{big.NewInt(1), big.NewInt(2)}},
			msg:  `ethcall: "transfer" execution reverted: InsufficientBalance[1 2]`,
		},
		{
			name: "raw data",
			err:  &ExecutionRevertedError{Method: "transfer", Data: []byte{0xde, 0xad, 0xbe, 0xef}},
			msg:  `ethcall: "transfer" execution reverted: 0xdeadbeef`,
		},
		{
			name: "receipt",
			err:  &ExecutionRevertedError{Method: "transfer", Receipt: &types.Receipt{BlockNumber: big.NewInt(42)}},
			msg:  `ethcall: "transfer" execution reverted in block 42`,
		},
		{
			name: "bare",
			err:  &ExecutionRevertedError{Method: "transfer"},
			msg:  `ethcall: "transfer" execution reverted`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.msg {
				t.Errorf("Expected error message %q, got %q", tt.msg, tt.err.Error())
			}
		})
	}
}

func TestRejectionKindString(t *testing.T) {
	tests := []struct {
		kind RejectionKind
		want string
	}{
		{RejectUnknown, "unknown"},
		{RejectInvalidNonce, "invalid nonce"},
		{RejectInsufficientFunds, "insufficient funds"},
		{RejectMalformed, "malformed transaction"},
		{RejectUnderpriced, "underpriced"},
		{RejectAlreadyKnown, "already known"},
		{RejectionKind(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Expected %q, got %q", tt.want, got)
		}
	}
}

func TestRejectedByNodeError(t *testing.T) {
	inner := errors.New("nonce too low")
	err := &RejectedByNodeError{Kind: RejectInvalidNonce, Err: inner}

	expected := "ethcall: transaction rejected by node (invalid nonce): nonce too low"
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}
	if !errors.Is(err, inner) {
		t.Error("errors.Is should find the node error")
	}
}

func TestTransportError(t *testing.T) {
	inner := errors.New("connection refused")
	err := &TransportError{Method: "eth_call", Err: inner}

	expected := "ethcall: eth_call request failed: connection refused"
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}
	if !errors.Is(err, inner) {
		t.Error("errors.Is should find the inner error")
	}
}

func TestTrackingErrorMatchesSentinel(t *testing.T) {
	hash := common.HexToHash("0x01")
	tests := []struct {
		state    TrackerState
		sentinel error
	}{
		{StateReverted, ErrReverted},
		{StateTimedOut, ErrTimedOut},
		{StateDisplaced, ErrDisplaced},
		{StateProviderError, ErrProviderError},
		{StateCancelled, ErrCancelled},
	}

	all := []error{ErrReverted, ErrTimedOut, ErrDisplaced, ErrProviderError, ErrCancelled}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			err := &TrackingError{State: tt.state, Hash: hash}
			for _, sentinel := range all {
				if got, want := errors.Is(err, sentinel), sentinel == tt.sentinel; got != want {
					t.Errorf("errors.Is(%v, %v) = %v, want %v", err, sentinel, got, want)
				}
			}
		})
	}
}

func TestTrackingErrorCause(t *testing.T) {
	cause := &TransportError{Method: "eth_blockNumber", Err: errors.New("503")}
	err := &TrackingError{State: StateProviderError, Hash: common.HexToHash("0x01"), Err: cause}

	if !errors.Is(err, ErrProviderError) {
		t.Error("errors.Is should match ErrProviderError")
	}
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatal("errors.As should find the TransportError cause")
	}
	if transportErr.Method != "eth_blockNumber" {
		t.Errorf("Expected eth_blockNumber, got %s", transportErr.Method)
	}

	expected := "ethcall: tx 0x0000000000000000000000000000000000000000000000000000000000000001: ethcall: provider failed repeatedly: ethcall: eth_blockNumber request failed: 503"
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}
}

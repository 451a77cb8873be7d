package ethcall

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// Sentinel errors for common failure conditions.
var (
	// ErrMissingAddress indicates neither the call options nor the contract defaults name a recipient.
	ErrMissingAddress = errors.New("ethcall: no contract address configured")

	// ErrSignerMismatch indicates the sender differs from the configured signer's account.
	ErrSignerMismatch = errors.New("ethcall: sender does not match signer account")

	// ErrCancelled is returned by a Transaction that was cancelled before reaching a terminal state.
	ErrCancelled = errors.New("ethcall: transaction tracking cancelled")

	// ErrReverted indicates the mined receipt reports a failed execution.
	ErrReverted = errors.New("ethcall: transaction reverted")

	// ErrTimedOut indicates no receipt was obtained before the tracking deadline.
	ErrTimedOut = errors.New("ethcall: timed out waiting for receipt")

	// ErrDisplaced indicates the block containing the receipt left the canonical chain.
	ErrDisplaced = errors.New("ethcall: receipt displaced from canonical chain")

	// ErrProviderError indicates the transport kept failing past the retry ceiling.
	ErrProviderError = errors.New("ethcall: provider failed repeatedly")
)

// MethodNotFoundError indicates the contract doesn't have the requested method.
type MethodNotFoundError struct {
	Contract common.Address
	Method   string
}

func (e *MethodNotFoundError) Error() string {
	return fmt.Sprintf("ethcall: method %q not found in contract %s", e.Method, e.Contract.Hex())
}

// ArgumentError indicates an issue with a function argument.
type ArgumentError struct {
	Method string
	Index  int
	Err    error
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("ethcall: argument %d for method %q: %v", e.Index, e.Method, e.Err)
}

func (e *ArgumentError) Unwrap() error {
	return e.Err
}

// TypeMismatchError indicates a value's type doesn't match the expected parameter type.
type TypeMismatchError struct {
	Expected string
	Got      string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("ethcall: type mismatch: expected %s, got %s", e.Expected, e.Got)
}

// InvalidValueError indicates a value transfer was attached to a method that cannot accept one.
type InvalidValueError struct {
	Method     string
	Mutability Mutability
	Value      *big.Int
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("ethcall: method %q is %s and cannot receive value %s", e.Method, e.Mutability, e.Value)
}

// ConflictingFeeFieldsError indicates legacy and EIP-1559 fee fields were mixed.
type ConflictingFeeFieldsError struct {
	Method string
	Reason string
}

func (e *ConflictingFeeFieldsError) Error() string {
	return fmt.Sprintf("ethcall: conflicting fee fields for method %q: %s", e.Method, e.Reason)
}

// EncodingError indicates the codec could not encode the call data.
type EncodingError struct {
	Method string
	Err    error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("ethcall: encoding %q: %v", e.Method, e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// DecodingError indicates the codec could not decode a call result.
type DecodingError struct {
	Method string
	Data   []byte
	Err    error
}

func (e *DecodingError) Error() string {
	return fmt.Sprintf("ethcall: decoding %q result (%d bytes): %v", e.Method, len(e.Data), e.Err)
}

func (e *DecodingError) Unwrap() error {
	return e.Err
}

// ExecutionRevertedError reports a remote execution failure. For calls and
// estimates Data holds the raw revert payload; for mined transactions Receipt
// holds the failed receipt.
type ExecutionRevertedError struct {
	Method string
	// Reason is the decoded Error(string) message or Panic description, if any.
	Reason string
	// ErrorName and Args are set when Data matches a custom error declared in the ABI.
	ErrorName string
	Args      []any
	Data      []byte
	Receipt   *types.Receipt
}

func (e *ExecutionRevertedError) Error() string {
	switch {
	case e.Reason != "":
		return fmt.Sprintf("ethcall: %q execution reverted: %s", e.Method, e.Reason)
	case e.ErrorName != "":
		return fmt.Sprintf("ethcall: %q execution reverted: %s%v", e.Method, e.ErrorName, e.Args)
	case len(e.Data) > 0:
		return fmt.Sprintf("ethcall: %q execution reverted: %s", e.Method, hexutil.Encode(e.Data))
	case e.Receipt != nil:
		return fmt.Sprintf("ethcall: %q execution reverted in block %v", e.Method, e.Receipt.BlockNumber)
	default:
		return fmt.Sprintf("ethcall: %q execution reverted", e.Method)
	}
}

// RejectionKind classifies why a node refused a transaction.
type RejectionKind uint8

const (
	// RejectUnknown is a node error that matched no known class.
	RejectUnknown RejectionKind = iota

	// RejectInvalidNonce covers nonce too low / too high.
	RejectInvalidNonce

	// RejectInsufficientFunds means the sender can't pay for gas * price + value.
	RejectInsufficientFunds

	// RejectMalformed covers undecodable, oversized or badly signed transactions.
	RejectMalformed

	// RejectUnderpriced covers fee caps below the pool minimum or replacement rules.
	RejectUnderpriced

	// RejectAlreadyKnown means the pool already holds this exact transaction.
	RejectAlreadyKnown
)

func (k RejectionKind) String() string {
	switch k {
	case RejectInvalidNonce:
		return "invalid nonce"
	case RejectInsufficientFunds:
		return "insufficient funds"
	case RejectMalformed:
		return "malformed transaction"
	case RejectUnderpriced:
		return "underpriced"
	case RejectAlreadyKnown:
		return "already known"
	default:
		return "unknown"
	}
}

// RejectedByNodeError indicates the node refused to accept a broadcast transaction.
type RejectedByNodeError struct {
	Kind RejectionKind
	Err  error
}

func (e *RejectedByNodeError) Error() string {
	return fmt.Sprintf("ethcall: transaction rejected by node (%s): %v", e.Kind, e.Err)
}

func (e *RejectedByNodeError) Unwrap() error {
	return e.Err
}

// TransportError wraps a network or protocol failure of a single request.
type TransportError struct {
	Method string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("ethcall: %s request failed: %v", e.Method, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// TrackingError is the terminal failure of a tracked transaction. It matches
// the sentinel for its state (ErrReverted, ErrTimedOut, ErrDisplaced or
// ErrProviderError) as well as the underlying cause.
type TrackingError struct {
	State TrackerState
	Hash  common.Hash
	Err   error
}

func (e *TrackingError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("ethcall: tx %s: %v", e.Hash.Hex(), e.sentinel())
	}
	return fmt.Sprintf("ethcall: tx %s: %v: %v", e.Hash.Hex(), e.sentinel(), e.Err)
}

func (e *TrackingError) Unwrap() []error {
	errs := []error{e.sentinel()}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func (e *TrackingError) sentinel() error {
	switch e.State {
	case StateReverted:
		return ErrReverted
	case StateTimedOut:
		return ErrTimedOut
	case StateDisplaced:
		return ErrDisplaced
	case StateCancelled:
		return ErrCancelled
	default:
		return ErrProviderError
	}
}

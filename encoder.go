package ethcall

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Codec turns bound arguments into call data and call results into Go values.
type Codec interface {
	EncodeCall(desc MethodDescriptor, args []any) ([]byte, error)
	DecodeResult(desc MethodDescriptor, data []byte) ([]any, error)
}

// ABICodec is the default Codec, backed by go-ethereum's abi package.
// Arguments are coerced to the Go types the abi package expects before packing.
type ABICodec struct{}

// EncodeCall returns the 4-byte selector followed by the packed arguments.
func (ABICodec) EncodeCall(desc MethodDescriptor, args []any) ([]byte, error) {
	if len(args) != len(desc.Inputs) {
		return nil, &EncodingError{
			Method: desc.Name,
			Err:    fmt.Errorf("expected %d arguments, got %d", len(desc.Inputs), len(args)),
		}
	}

	coerced := make([]any, len(args))
	for i, arg := range args {
		v, err := coerceArg(arg, desc.Inputs[i].Type)
		if err != nil {
			return nil, &EncodingError{
				Method: desc.Name,
				Err:    &ArgumentError{Method: desc.Name, Index: i, Err: err},
			}
		}
		coerced[i] = v
	}

	packed, err := desc.Inputs.Pack(coerced...)
	if err != nil {
		return nil, &EncodingError{Method: desc.Name, Err: err}
	}

	data := make([]byte, 0, 4+len(packed))
	data = append(data, desc.Selector[:]...)
	return append(data, packed...), nil
}

// DecodeResult unpacks return data into one value per declared output.
func (ABICodec) DecodeResult(desc MethodDescriptor, data []byte) ([]any, error) {
	if len(desc.Outputs) == 0 {
		return []any{}, nil
	}
	values, err := desc.Outputs.Unpack(data)
	if err != nil {
		return nil, &DecodingError{Method: desc.Name, Data: data, Err: err}
	}
	return values, nil
}

// decodeRevert fills in the reason of a revert payload. Error(string) and
// Panic(uint256) are decoded by the abi package; anything else is matched
// against the custom errors declared in the contract ABI. Unknown payloads are
// kept as raw bytes.
func decodeRevert(contractABI abi.ABI, method string, data []byte) *ExecutionRevertedError {
	revert := &ExecutionRevertedError{Method: method, Data: data}
	if len(data) < 4 {
		return revert
	}

	if reason, err := abi.UnpackRevert(data); err == nil {
		revert.Reason = reason
		return revert
	}

	for name, abiErr := range contractABI.Errors {
		if !bytes.Equal(abiErr.ID[:4], data[:4]) {
			continue
		}
		args, err := abiErr.Inputs.Unpack(data[4:])
		if err != nil {
			continue
		}
		revert.ErrorName = name
		revert.Args = args
		return revert
	}
	return revert
}

// asEncodingError makes sure a failure from a custom Codec still surfaces as
// an EncodingError.
func asEncodingError(method string, err error) error {
	var encErr *EncodingError
	if errors.As(err, &encErr) {
		return err
	}
	return &EncodingError{Method: method, Err: err}
}

// asDecodingError is the DecodeResult counterpart of asEncodingError.
func asDecodingError(method string, data []byte, err error) error {
	var decErr *DecodingError
	if errors.As(err, &decErr) {
		return err
	}
	return &DecodingError{Method: method, Data: data, Err: err}
}

package ethcall

import (
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
)

var bigIntType = reflect.TypeOf((*big.Int)(nil))

// coerceArg converts a loosely typed Go value to the exact type the abi
// package packs for t. Supported conversions:
//   - Go integers, *big.Int and decimal or 0x strings for intN/uintN
//   - 0x strings and [20]byte for address
//   - 0x strings and []byte for bytes and bytesN
//   - "true"/"false" strings for bool
//   - []any or typed slices for T[] and T[N], element by element
//
// Values already of the expected type are returned unchanged.
func coerceArg(value any, t abi.Type) (any, error) {
	if value == nil {
		return nil, fmt.Errorf("nil value for %s", t.String())
	}

	want := t.GetType()
	rv := reflect.ValueOf(value)
	if rv.Type() == want {
		return value, nil
	}

	switch t.T {
	case abi.IntTy, abi.UintTy:
		return coerceInteger(value, t, want)
	case abi.AddressTy:
		return coerceAddress(value)
	case abi.BoolTy:
		if s, ok := value.(string); ok {
			return strconv.ParseBool(s)
		}
	case abi.StringTy:
		if s, ok := value.(fmt.Stringer); ok {
			return s.String(), nil
		}
	case abi.BytesTy:
		return coerceBytes(value)
	case abi.FixedBytesTy:
		return coerceFixedBytes(value, t, want)
	case abi.SliceTy, abi.ArrayTy:
		return coerceList(value, t, want)
	}

	if rv.Type().ConvertibleTo(want) && rv.Kind() == want.Kind() {
		return rv.Convert(want).Interface(), nil
	}
	return nil, &TypeMismatchError{Expected: t.String(), Got: fmt.Sprintf("%T", value)}
}

func coerceInteger(value any, t abi.Type, want reflect.Type) (any, error) {
	var n *big.Int
	switch v := value.(type) {
	case *big.Int:
		n = v
	case big.Int:
		n = &v
	case string:
		parsed, ok := math.ParseBig256(strings.TrimSpace(v))
		if !ok {
			// ParseBig256 rejects negative numbers; int types still accept them.
			parsed, ok = new(big.Int).SetString(strings.TrimSpace(v), 0)
		}
		if !ok {
			return nil, fmt.Errorf("invalid %s %q", t.String(), v)
		}
		n = parsed
	default:
		rv := reflect.ValueOf(value)
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			n = big.NewInt(rv.Int())
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
			n = new(big.Int).SetUint64(rv.Uint())
		default:
			return nil, &TypeMismatchError{Expected: t.String(), Got: fmt.Sprintf("%T", value)}
		}
	}

	if !fitsInteger(n, t) {
		return nil, fmt.Errorf("value %s out of range for %s", n, t.String())
	}

	if want == bigIntType {
		return new(big.Int).Set(n), nil
	}
	out := reflect.New(want).Elem()
	if t.T == abi.UintTy {
		out.SetUint(n.Uint64())
	} else {
		out.SetInt(n.Int64())
	}
	return out.Interface(), nil
}

func fitsInteger(n *big.Int, t abi.Type) bool {
	if t.T == abi.UintTy {
		return n.Sign() >= 0 && n.BitLen() <= t.Size
	}
	bound := new(big.Int).Lsh(big.NewInt(1), uint(t.Size-1))
	if n.Sign() < 0 {
		return new(big.Int).Neg(n).Cmp(bound) <= 0
	}
	return n.Cmp(bound) < 0
}

func coerceAddress(value any) (any, error) {
	switch v := value.(type) {
	case *common.Address:
		if v == nil {
			return nil, fmt.Errorf("nil address")
		}
		return *v, nil
	case string:
		if !common.IsHexAddress(v) {
			return nil, fmt.Errorf("invalid address %q", v)
		}
		return common.HexToAddress(v), nil
	case [common.AddressLength]byte:
		return common.Address(v), nil
	case []byte:
		if len(v) != common.AddressLength {
			return nil, fmt.Errorf("address must be %d bytes, got %d", common.AddressLength, len(v))
		}
		return common.BytesToAddress(v), nil
	}
	return nil, &TypeMismatchError{Expected: "address", Got: fmt.Sprintf("%T", value)}
}

func coerceBytes(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return hexutil.Decode(v)
	case hexutil.Bytes:
		return []byte(v), nil
	case common.Hash:
		return v.Bytes(), nil
	}
	return nil, &TypeMismatchError{Expected: "bytes", Got: fmt.Sprintf("%T", value)}
}

func coerceFixedBytes(value any, t abi.Type, want reflect.Type) (any, error) {
	var raw []byte
	switch v := value.(type) {
	case string:
		decoded, err := hexutil.Decode(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", t.String(), v, err)
		}
		raw = decoded
	case []byte:
		raw = v
	case hexutil.Bytes:
		raw = v
	case common.Hash:
		raw = v.Bytes()
	default:
		return nil, &TypeMismatchError{Expected: t.String(), Got: fmt.Sprintf("%T", value)}
	}
	if len(raw) > t.Size {
		return nil, fmt.Errorf("%d bytes do not fit %s", len(raw), t.String())
	}
	// Shorter input is right-padded, the same way Solidity pads bytesN literals.
	out := reflect.New(want).Elem()
	reflect.Copy(out, reflect.ValueOf(raw))
	return out.Interface(), nil
}

func coerceList(value any, t abi.Type, want reflect.Type) (any, error) {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, &TypeMismatchError{Expected: t.String(), Got: fmt.Sprintf("%T", value)}
	}
	if t.T == abi.ArrayTy && rv.Len() != t.Size {
		return nil, fmt.Errorf("%s needs %d elements, got %d", t.String(), t.Size, rv.Len())
	}

	var out reflect.Value
	if t.T == abi.ArrayTy {
		out = reflect.New(want).Elem()
	} else {
		out = reflect.MakeSlice(want, rv.Len(), rv.Len())
	}
	for i := 0; i < rv.Len(); i++ {
		elem, err := coerceArg(rv.Index(i).Interface(), *t.Elem)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out.Index(i).Set(reflect.ValueOf(elem))
	}
	return out.Interface(), nil
}

package ethcall

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustType(t *testing.T, s string) abi.Type {
	t.Helper()
	typ, err := abi.NewType(s, "", nil)
	if err != nil {
		t.Fatalf("Failed to create type %s: %v", s, err)
	}
	return typ
}

func TestCoerceInteger(t *testing.T) {
	tests := []struct {
		name    string
		typ     string
		value   any
		want    any
		wantErr bool
	}{
		{"int to uint256", "uint256", 42, big.NewInt(42), false},
		{"decimal string to uint256", "uint256", "1000000000000000000", new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil), false},
		{"hex string to uint256", "uint256", "0xff", big.NewInt(255), false},
		{"big.Int passes through", "uint256", big.NewInt(7), big.NewInt(7), false},
		{"negative string to int256", "int256", "-5", big.NewInt(-5), false},
		{"int to uint8", "uint8", 200, uint8(200), false},
		{"uint64 to uint32", "uint32", uint64(70000), uint32(70000), false},
		{"int to int64", "int64", -3, int64(-3), false},
		{"int8 minimum", "int8", -128, int8(-128), false},
		{"uint8 overflow", "uint8", 256, nil, true},
		{"int8 overflow", "int8", 128, nil, true},
		{"negative uint", "uint256", -1, nil, true},
		{"garbage string", "uint256", "twelve", nil, true},
		{"bool to uint", "uint256", true, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := coerceArg(tt.value, mustType(t, tt.typ))
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error, got %v", got)
				}
				return
			}
			require.NoError(t, err)
			if want, ok := tt.want.(*big.Int); ok {
				gotBig, ok := got.(*big.Int)
				require.True(t, ok, "expected *big.Int, got %T", got)
				assert.Equal(t, 0, want.Cmp(gotBig), "want %s got %s", want, gotBig)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCoerceAddress(t *testing.T) {
	addrType := mustType(t, "address")
	want := common.HexToAddress("0x3333333333333333333333333333333333333333")

	tests := []struct {
		name    string
		value   any
		wantErr bool
	}{
		{"address", want, false},
		{"pointer", &want, false},
		{"hex string", "0x3333333333333333333333333333333333333333", false},
		{"byte array", [20]byte(want), false},
		{"byte slice", want.Bytes(), false},
		{"short slice", []byte{1, 2}, true},
		{"bad string", "0x1234", true},
		{"int", 5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := coerceArg(tt.value, addrType)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error, got %v", got)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestCoerceBoolAndString(t *testing.T) {
	got, err := coerceArg("true", mustType(t, "bool"))
	require.NoError(t, err)
	assert.Equal(t, true, got)

	_, err = coerceArg("yes please", mustType(t, "bool"))
	assert.Error(t, err)

	got, err = coerceArg(big.NewInt(12), mustType(t, "string"))
	require.NoError(t, err)
	assert.Equal(t, "12", got)
}

func TestCoerceBytes(t *testing.T) {
	t.Run("dynamic bytes from hex", func(t *testing.T) {
		got, err := coerceArg("0xdeadbeef", mustType(t, "bytes"))
		require.NoError(t, err)
		assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, got)
	})

	t.Run("dynamic bytes from hexutil", func(t *testing.T) {
		got, err := coerceArg(hexutil.Bytes{1, 2}, mustType(t, "bytes"))
		require.NoError(t, err)
		assert.Equal(t, []byte{1, 2}, got)
	})

	t.Run("bytes32 from hash", func(t *testing.T) {
		h := common.HexToHash("0x01")
		got, err := coerceArg(h, mustType(t, "bytes32"))
		require.NoError(t, err)
		assert.Equal(t, [32]byte(h), got)
	})

	t.Run("bytes4 right-padded", func(t *testing.T) {
		got, err := coerceArg("0xab", mustType(t, "bytes4"))
		require.NoError(t, err)
		assert.Equal(t, [4]byte{0xab, 0, 0, 0}, got)
	})

	t.Run("bytes4 too long", func(t *testing.T) {
		_, err := coerceArg("0x0102030405", mustType(t, "bytes4"))
		assert.Error(t, err)
	})

	t.Run("invalid hex", func(t *testing.T) {
		_, err := coerceArg("0xzz", mustType(t, "bytes"))
		assert.Error(t, err)
	})
}

func TestCoerceList(t *testing.T) {
	t.Run("slice of loose ints", func(t *testing.T) {
		got, err := coerceArg([]any{1, "2", "0x3"}, mustType(t, "uint256[]"))
		require.NoError(t, err)
		values := got.([]*big.Int)
		require.Len(t, values, 3)
		for i, v := range values {
			assert.Equal(t, int64(i+1), v.Int64())
		}
	})

	t.Run("fixed array", func(t *testing.T) {
		got, err := coerceArg([]string{
			"0x1111111111111111111111111111111111111111",
			"0x2222222222222222222222222222222222222222",
		}, mustType(t, "address[2]"))
		require.NoError(t, err)
		assert.Equal(t, [2]common.Address{testContractAddr, testFrom}, got)
	})

	t.Run("fixed array length mismatch", func(t *testing.T) {
		_, err := coerceArg([]any{1}, mustType(t, "uint8[2]"))
		assert.Error(t, err)
	})

	t.Run("bad element", func(t *testing.T) {
		_, err := coerceArg([]any{1, "x"}, mustType(t, "uint256[]"))
		assert.ErrorContains(t, err, "element 1")
	})

	t.Run("not a list", func(t *testing.T) {
		_, err := coerceArg(5, mustType(t, "uint256[]"))
		var mismatch *TypeMismatchError
		assert.ErrorAs(t, err, &mismatch)
	})
}

func TestCoerceNil(t *testing.T) {
	if _, err := coerceArg(nil, mustType(t, "uint256")); err == nil {
		t.Error("Expected error for nil value")
	}
}

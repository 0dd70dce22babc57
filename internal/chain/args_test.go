package chain

import (
	"math/big"
	"strings"
	"testing"

	gethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestDecodeArgs_ScalarTypes(t *testing.T) {
	args := []Arg{
		NewArg("string", "MyToken"),
		NewArg("uint256", "1000000"),
		NewArg("address", "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"),
		NewArg("bool", true),
		NewArg("uint8", 18),
	}

	vals, err := DecodeArgs(args)
	require.NoError(t, err)
	require.Len(t, vals, 5)

	require.Equal(t, "MyToken", vals[0])
	require.Equal(t, 0, vals[1].(*big.Int).Cmp(big.NewInt(1000000)))
	require.Equal(t, gethcommon.HexToAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"), vals[2])
	require.Equal(t, true, vals[3])
	require.Equal(t, 0, vals[4].(*big.Int).Cmp(big.NewInt(18)))
}

func TestDecodeArgs_BigUint256FromString(t *testing.T) {
	// 2^200, far beyond float64 precision
	huge := new(big.Int).Lsh(big.NewInt(1), 200)

	vals, err := DecodeArgs([]Arg{NewArg("uint256", huge.String())})
	require.NoError(t, err)
	require.Equal(t, 0, vals[0].(*big.Int).Cmp(huge))
}

func TestDecodeArgs_HexInteger(t *testing.T) {
	vals, err := DecodeArgs([]Arg{NewArg("uint256", "0xff")})
	require.NoError(t, err)
	require.Equal(t, 0, vals[0].(*big.Int).Cmp(big.NewInt(255)))
}

func TestDecodeArgs_Bytes32(t *testing.T) {
	vals, err := DecodeArgs([]Arg{
		NewArg("bytes32", "0xab"+strings.Repeat("00", 31)),
	})
	require.NoError(t, err)
	b := vals[0].([32]byte)
	require.Equal(t, byte(0xab), b[0])
}

func TestDecodeArgs_Arrays(t *testing.T) {
	vals, err := DecodeArgs([]Arg{
		NewArg("uint256[]", []string{"1", "2", "3"}),
		NewArg("address[]", []string{"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"}),
	})
	require.NoError(t, err)

	nums := vals[0].([]*big.Int)
	require.Len(t, nums, 3)
	require.Equal(t, 0, nums[2].Cmp(big.NewInt(3)))

	addrs := vals[1].([]gethcommon.Address)
	require.Len(t, addrs, 1)
}

func TestDecodeArgs_Invalid(t *testing.T) {
	tests := []struct {
		name string
		arg  Arg
	}{
		{"unknown type", NewArg("tuple", "x")},
		{"bad address", NewArg("address", "not-an-address")},
		{"bad integer", NewArg("uint256", "twelve")},
		{"bool from string", NewArg("bool", "yes")},
		{"bytes32 wrong length", NewArg("bytes32", "0xabcd")},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeArgs([]Arg{tc.arg})
			require.Error(t, err)
		})
	}
}

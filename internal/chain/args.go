// Package chain constructs, signs, submits, and reads Ethereum-compatible
// contract transactions against a JSON-RPC provider.
package chain

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	gethcommon "github.com/ethereum/go-ethereum/common"
)

// Arg is the tagged-variant encoding of one ABI parameter. Callers supply
// {"type":"uint256","value":"1000000"} style pairs; the decode boundary is
// here and nowhere else, so the signer never packs untyped blobs.
type Arg struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// NewArg builds an Arg from a Go value, mostly for tests and internal calls.
func NewArg(typ string, value any) Arg {
	raw, _ := json.Marshal(value)
	return Arg{Type: typ, Value: raw}
}

// DecodeArgs converts tagged arguments into the Go values go-ethereum's abi
// package expects for packing: *big.Int for integer types, common.Address
// for addresses, and so on. Array types decode element-wise.
func DecodeArgs(args []Arg) ([]any, error) {
	out := make([]any, 0, len(args))
	for i, a := range args {
		typ, err := abi.NewType(a.Type, "", nil)
		if err != nil {
			return nil, fmt.Errorf("argument %d: invalid type %q: %w", i, a.Type, err)
		}
		v, err := decodeValue(typ, a.Value)
		if err != nil {
			return nil, fmt.Errorf("argument %d (%s): %w", i, a.Type, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func decodeValue(typ abi.Type, raw json.RawMessage) (any, error) {
	switch typ.T {
	case abi.UintTy, abi.IntTy:
		return decodeBigInt(raw)

	case abi.AddressTy:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("address must be a hex string: %w", err)
		}
		if !gethcommon.IsHexAddress(s) {
			return nil, fmt.Errorf("invalid address %q", s)
		}
		return gethcommon.HexToAddress(s), nil

	case abi.StringTy:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("expected string: %w", err)
		}
		return s, nil

	case abi.BoolTy:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, fmt.Errorf("expected bool: %w", err)
		}
		return b, nil

	case abi.BytesTy:
		b, err := decodeHexBytes(raw)
		if err != nil {
			return nil, err
		}
		return b, nil

	case abi.FixedBytesTy:
		b, err := decodeHexBytes(raw)
		if err != nil {
			return nil, err
		}
		if len(b) != typ.Size {
			return nil, fmt.Errorf("bytes%d requires %d bytes, got %d", typ.Size, typ.Size, len(b))
		}
		if typ.Size == 32 {
			var out [32]byte
			copy(out[:], b)
			return out, nil
		}
		return nil, fmt.Errorf("unsupported fixed bytes size %d", typ.Size)

	case abi.SliceTy, abi.ArrayTy:
		var elems []json.RawMessage
		if err := json.Unmarshal(raw, &elems); err != nil {
			return nil, fmt.Errorf("expected array: %w", err)
		}
		return decodeSlice(*typ.Elem, elems)

	default:
		return nil, fmt.Errorf("unsupported ABI type %s", typ.String())
	}
}

// decodeSlice produces a concretely typed slice: abi.Pack rejects []any.
func decodeSlice(elem abi.Type, elems []json.RawMessage) (any, error) {
	switch elem.T {
	case abi.UintTy, abi.IntTy:
		out := make([]*big.Int, 0, len(elems))
		for _, e := range elems {
			v, err := decodeBigInt(e)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case abi.AddressTy:
		out := make([]gethcommon.Address, 0, len(elems))
		for _, e := range elems {
			v, err := decodeValue(elem, e)
			if err != nil {
				return nil, err
			}
			out = append(out, v.(gethcommon.Address))
		}
		return out, nil
	case abi.StringTy:
		out := make([]string, 0, len(elems))
		for _, e := range elems {
			var s string
			if err := json.Unmarshal(e, &s); err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	case abi.BoolTy:
		out := make([]bool, 0, len(elems))
		for _, e := range elems {
			var b bool
			if err := json.Unmarshal(e, &b); err != nil {
				return nil, err
			}
			out = append(out, b)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported array element type %s", elem.String())
	}
}

// decodeBigInt accepts both JSON numbers and decimal/hex strings; large
// uint256 values do not fit in a float64, so strings are the reliable form.
func decodeBigInt(raw json.RawMessage) (*big.Int, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		base := 10
		if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
			s, base = s[2:], 16
		}
		v, ok := new(big.Int).SetString(s, base)
		if !ok {
			return nil, fmt.Errorf("invalid integer %q", s)
		}
		return v, nil
	}

	var n json.Number
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return nil, fmt.Errorf("expected integer: %w", err)
	}
	v, ok := new(big.Int).SetString(n.String(), 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", n.String())
	}
	return v, nil
}

func decodeHexBytes(raw json.RawMessage) ([]byte, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("bytes must be a hex string: %w", err)
	}
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	return b, nil
}

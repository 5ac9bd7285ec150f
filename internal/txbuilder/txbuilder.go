package txbuilder

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
)

var (
	ErrInvalidAddress  = errors.New("invalid address")
	ErrUnsupportedType = errors.New("unsupported argument type")
)

// MaxUint256 is the infinite-approval amount.
var MaxUint256 = new(big.Int).Set(math.MaxBig256)

type Selector [4]byte

func MustSelector(hex string) Selector {
	s, err := ParseSelector(hex)
	if err != nil {
		panic(err)
	}
	return s
}

func ParseSelector(hex string) (Selector, error) {
	b, err := hexutil.Decode(hex)
	if err != nil {
		return Selector{}, err
	}
	if len(b) != 4 {
		return Selector{}, errors.New("selector must be 4 bytes")
	}
	var s Selector
	copy(s[:], b)
	return s, nil
}

func (s Selector) Hex() string {
	return hexutil.Encode(s[:])
}

// Arg encodes a single 32-byte calldata word.
type Arg interface {
	Word() ([]byte, error)
}

type addressArg string

// Address encodes a 0x-prefixed 20-byte hex address, validated at encode time.
func Address(v string) Arg { return addressArg(v) }

func (a addressArg) Word() ([]byte, error) {
	addr, err := ParseAddress(string(a))
	if err != nil {
		return nil, err
	}
	return encodeAddress(addr), nil
}

type commonAddressArg common.Address

func AddressOf(addr common.Address) Arg { return commonAddressArg(addr) }

func (a commonAddressArg) Word() ([]byte, error) {
	return encodeAddress(common.Address(a)), nil
}

type uint256Arg struct{ v *big.Int }

func Uint256(v *big.Int) Arg { return uint256Arg{v: v} }

func Uint64(v uint64) Arg { return uint256Arg{v: new(big.Int).SetUint64(v)} }

func (a uint256Arg) Word() ([]byte, error) {
	return encodeUint256(a.v)
}

// Encode packs the selector followed by one word per argument.
func Encode(sel Selector, args ...Arg) ([]byte, error) {
	data := make([]byte, 0, 4+32*len(args))
	data = append(data, sel[:]...)
	for i, arg := range args {
		word, err := arg.Word()
		if err != nil {
			return nil, fmt.Errorf("arg %d: %w", i, err)
		}
		data = append(data, word...)
	}
	return data, nil
}

func EncodeHex(sel Selector, args ...Arg) (string, error) {
	data, err := Encode(sel, args...)
	if err != nil {
		return "", err
	}
	return hexutil.Encode(data), nil
}

// EncodeTyped encodes string values by their declared solidity type. Only
// "address" and "uint256" are supported.
func EncodeTyped(sel Selector, types []string, values []string) ([]byte, error) {
	if len(types) != len(values) {
		return nil, fmt.Errorf("got %d types for %d values", len(types), len(values))
	}
	args := make([]Arg, 0, len(types))
	for i, typ := range types {
		switch typ {
		case "address":
			args = append(args, Address(values[i]))
		case "uint256":
			v, err := ParseBigInt(values[i])
			if err != nil {
				return nil, fmt.Errorf("arg %d: %w", i, err)
			}
			args = append(args, Uint256(v))
		default:
			return nil, fmt.Errorf("arg %d: %w: %s", i, ErrUnsupportedType, typ)
		}
	}
	return Encode(sel, args...)
}

// ParseAddress accepts only the canonical 0x + 40 hex form.
func ParseAddress(value string) (common.Address, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return common.Address{}, fmt.Errorf("%w: address is required", ErrInvalidAddress)
	}
	hasPrefix := strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X")
	if len(value) != 42 || !hasPrefix || !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, value)
	}
	return common.HexToAddress(value), nil
}

func encodeUint256(v *big.Int) ([]byte, error) {
	if v == nil {
		return nil, errors.New("value is nil")
	}
	if v.Sign() < 0 {
		return nil, errors.New("value must be non-negative")
	}
	if v.BitLen() > 256 {
		return nil, errors.New("value exceeds uint256")
	}
	return common.LeftPadBytes(v.Bytes(), 32), nil
}

func encodeAddress(addr common.Address) []byte {
	return common.LeftPadBytes(addr.Bytes(), 32)
}

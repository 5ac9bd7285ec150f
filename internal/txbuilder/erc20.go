package txbuilder

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"
)

var (
	SelectorAllowance = MustSelector("0xdd62ed3e")
	SelectorApprove   = MustSelector("0x095ea7b3")
	SelectorBalanceOf = MustSelector("0x70a08231")
	SelectorDecimals  = MustSelector("0x313ce567")
	SelectorName      = MustSelector("0x06fdde03")
	SelectorSymbol    = MustSelector("0x95d89b41")
)

func BuildApproveCallData(spender common.Address, amount *big.Int) ([]byte, error) {
	return Encode(SelectorApprove, AddressOf(spender), Uint256(amount))
}

func ReadAllowance(ctx context.Context, p Provider, token, owner, spender common.Address) (*big.Int, error) {
	data, err := Encode(SelectorAllowance, AddressOf(owner), AddressOf(spender))
	if err != nil {
		return nil, err
	}
	return readUint(ctx, p, token, data)
}

func ReadERC20Balance(ctx context.Context, p Provider, token common.Address, owner common.Address) (*big.Int, error) {
	data, err := Encode(SelectorBalanceOf, AddressOf(owner))
	if err != nil {
		return nil, err
	}
	return readUint(ctx, p, token, data)
}

func ReadERC20Decimals(ctx context.Context, p Provider, token common.Address) (uint8, error) {
	v, err := readUint(ctx, p, token, SelectorDecimals[:])
	if err != nil {
		return 0, err
	}
	if v.Sign() < 0 || v.BitLen() > 8 {
		return 0, fmt.Errorf("decimals out of range: %s", v.String())
	}
	return uint8(v.Uint64()), nil
}

func ReadNativeBalance(ctx context.Context, p Provider, owner common.Address) (*big.Int, error) {
	var out hexutil.Big
	if err := p.CallContext(ctx, &out, "eth_getBalance", owner, "latest"); err != nil {
		return nil, err
	}
	return out.ToInt(), nil
}

type TokenInfo struct {
	Address  string `json:"address"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

// ProbeToken reads ERC-20 metadata. Name and symbol are best effort;
// decimals must be readable.
func ProbeToken(ctx context.Context, p Provider, token common.Address) (TokenInfo, error) {
	info := TokenInfo{Address: token.Hex()}
	decimals, err := ReadERC20Decimals(ctx, p, token)
	if err != nil {
		return info, fmt.Errorf("decimals: %w", err)
	}
	info.Decimals = decimals
	if name, err := readString(ctx, p, token, SelectorName); err == nil {
		info.Name = name
	}
	if symbol, err := readString(ctx, p, token, SelectorSymbol); err == nil {
		info.Symbol = symbol
	}
	return info, nil
}

func readUint(ctx context.Context, p Provider, to common.Address, data []byte) (*big.Int, error) {
	out, err := CallRaw(ctx, p, to, data)
	if err != nil {
		return nil, err
	}
	return decodeHexBig(out)
}

func readString(ctx context.Context, p Provider, to common.Address, sel Selector) (string, error) {
	b, err := Call(ctx, p, to, sel[:])
	if err != nil {
		return "", err
	}
	return decodeABIString(b)
}

// decodeABIString handles both dynamic string returns and legacy bytes32
// returns (e.g. MKR-style tokens).
func decodeABIString(b []byte) (string, error) {
	switch {
	case len(b) == 32:
		return strings.TrimRight(string(b), "\x00"), nil
	case len(b) >= 64:
		offset := new(big.Int).SetBytes(b[:32])
		if !offset.IsUint64() || offset.Uint64()+32 > uint64(len(b)) {
			return "", errors.New("string offset out of range")
		}
		start := offset.Uint64()
		length := new(big.Int).SetBytes(b[start : start+32])
		if !length.IsUint64() || start+32+length.Uint64() > uint64(len(b)) {
			return "", errors.New("string length out of range")
		}
		s := b[start+32 : start+32+length.Uint64()]
		if !utf8.Valid(s) {
			return "", errors.New("string is not valid utf-8")
		}
		return string(s), nil
	default:
		return "", fmt.Errorf("unexpected string result length %d", len(b))
	}
}

func ParseUnits(amount string, decimals uint8) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, errors.New("amount is empty")
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid number format: %w", err)
	}
	if d.IsNegative() {
		return nil, errors.New("amount must be non-negative")
	}
	if -d.Exponent() > int32(decimals) && !d.Equal(d.Truncate(int32(decimals))) {
		return nil, fmt.Errorf("too many decimal places for %d decimals", decimals)
	}
	return d.Shift(int32(decimals)).BigInt(), nil
}

// FormatUnits renders a smallest-unit amount as a decimal string.
func FormatUnits(amount *big.Int, decimals uint8) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -int32(decimals)).String()
}

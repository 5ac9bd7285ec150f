// Package decoder explains calldata produced for the supported contracts.
package decoder

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"moonroute/internal/txbuilder"
	"moonroute/internal/venue"
	"moonroute/internal/verify"
)

var ErrUnknownSelector = errors.New("unknown selector")

// knownABI covers the ERC-20 and router methods the client builds. Factory
// methods are laid out as plain words and decoded by layout instead.
const knownABI = `[
 {"name":"approve","type":"function","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
 {"name":"allowance","type":"function","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
 {"name":"balanceOf","type":"function","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
 {"name":"transfer","type":"function","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
 {"name":"swapExactETHForTokens","type":"function","stateMutability":"payable","inputs":[{"name":"amountOutMin","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],"outputs":[{"name":"amounts","type":"uint256[]"}]},
 {"name":"swapExactTokensForETH","type":"function","inputs":[{"name":"amountIn","type":"uint256"},{"name":"amountOutMin","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],"outputs":[{"name":"amounts","type":"uint256[]"}]},
 {"name":"swapETHForExactTokens","type":"function","stateMutability":"payable","inputs":[{"name":"amountOut","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],"outputs":[{"name":"amounts","type":"uint256[]"}]},
 {"name":"swapTokensForExactETH","type":"function","inputs":[{"name":"amountOut","type":"uint256"},{"name":"amountInMax","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],"outputs":[{"name":"amounts","type":"uint256[]"}]}
]`

type Method struct {
	Selector string                 `json:"selector"`
	Name     string                 `json:"name"`
	Contract string                 `json:"contract"`
	Args     map[string]interface{} `json:"args"`
}

type param struct {
	name string
	typ  string
}

type wordMethod struct {
	name   string
	params []param
}

type Decoder struct {
	abi   abi.ABI
	words map[txbuilder.Selector]wordMethod
}

func New() (*Decoder, error) {
	parsed, err := abi.JSON(strings.NewReader(knownABI))
	if err != nil {
		return nil, err
	}
	token := param{"token", "address"}
	return &Decoder{
		abi: parsed,
		words: map[txbuilder.Selector]wordMethod{
			venue.SelectorMoonshotBuyExactIn:   {"buyExactIn", []param{token, {"amountOutMin", "uint256"}}},
			venue.SelectorMoonshotBuyExactOut:  {"buyExactOut", []param{token, {"tokenAmount", "uint256"}, {"maxCollateral", "uint256"}}},
			venue.SelectorMoonshotSellExactIn:  {"sellExactIn", []param{token, {"tokenAmount", "uint256"}, {"amountCollateralMin", "uint256"}}},
			venue.SelectorMoonshotSellExactOut: {"sellExactOut", []param{token, {"collateralAmount", "uint256"}, {"maxTokens", "uint256"}}},
			verify.SelectorMoonshotTokens:      {"moonshotTokens", []param{token}},
			verify.SelectorReadyForMigration:   {"readyForMigration", []param{token}},
		},
	}, nil
}

// DecodeHex accepts 0x-prefixed calldata.
func (d *Decoder) DecodeHex(data string) (*Method, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(data), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid calldata: %w", err)
	}
	return d.DecodeInput(b)
}

func (d *Decoder) DecodeInput(data []byte) (*Method, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("calldata too short: %d bytes", len(data))
	}
	var sel txbuilder.Selector
	copy(sel[:], data[:4])

	if wm, ok := d.words[sel]; ok {
		args, err := decodeWords(wm.params, data[4:])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", wm.name, err)
		}
		return &Method{Selector: sel.Hex(), Name: wm.name, Contract: "moonshot", Args: args}, nil
	}

	method, err := d.abi.MethodById(data[:4])
	if err != nil {
		return nil, fmt.Errorf("%w %s", ErrUnknownSelector, sel.Hex())
	}
	args := map[string]interface{}{}
	if err := method.Inputs.UnpackIntoMap(args, data[4:]); err != nil {
		return nil, fmt.Errorf("%s: %w", method.Name, err)
	}
	contract := "router"
	if !strings.HasPrefix(method.Name, "swap") {
		contract = "erc20"
	}
	return &Method{Selector: sel.Hex(), Name: method.Name, Contract: contract, Args: normalizeMap(args)}, nil
}

func decodeWords(params []param, body []byte) (map[string]interface{}, error) {
	if len(body) != 32*len(params) {
		return nil, fmt.Errorf("expected %d words, got %d bytes", len(params), len(body))
	}
	out := make(map[string]interface{}, len(params))
	for i, p := range params {
		w := body[32*i : 32*(i+1)]
		switch p.typ {
		case "address":
			out[p.name] = common.BytesToAddress(w).Hex()
		default:
			out[p.name] = new(big.Int).SetBytes(w).String()
		}
	}
	return out, nil
}

func normalizeMap(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case common.Address:
		return t.Hex()
	case *big.Int:
		if t == nil {
			return "0"
		}
		return t.String()
	case []byte:
		return "0x" + hex.EncodeToString(t)
	case []common.Address:
		out := make([]string, 0, len(t))
		for _, a := range t {
			out = append(out, a.Hex())
		}
		return out
	case []*big.Int:
		out := make([]string, 0, len(t))
		for _, n := range t {
			out = append(out, normalizeValue(n).(string))
		}
		return out
	default:
		return t
	}
}

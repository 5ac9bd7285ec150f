// Package txbuildertest provides an in-memory wallet provider for tests.
package txbuildertest

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Handler answers one JSON-RPC method. The returned value is round-tripped
// through JSON into the caller's result, as the real rpc client does.
type Handler func(args []json.RawMessage) (interface{}, error)

type Call struct {
	Method string
	Args   []json.RawMessage
}

// SentTx is an eth_sendTransaction parameter object as the provider saw it.
type SentTx struct {
	From                 string `json:"from"`
	To                   string `json:"to"`
	Data                 string `json:"data"`
	Value                string `json:"value"`
	Gas                  string `json:"gas"`
	MaxFeePerGas         string `json:"maxFeePerGas"`
	MaxPriorityFeePerGas string `json:"maxPriorityFeePerGas"`
	GasPrice             string `json:"gasPrice"`
}

// Selector returns the 0x-prefixed 4-byte selector of the calldata.
func (t SentTx) Selector() string {
	if len(t.Data) < 10 {
		return t.Data
	}
	return strings.ToLower(t.Data[:10])
}

// ValueInt parses the value quantity; a missing value is zero.
func (t SentTx) ValueInt() *big.Int {
	if t.Value == "" {
		return big.NewInt(0)
	}
	v, err := hexutil.DecodeBig(t.Value)
	if err != nil {
		return big.NewInt(-1)
	}
	return v
}

type Provider struct {
	mu       sync.Mutex
	handlers map[string]Handler
	calls    []Call
	sent     int
}

// New returns a provider that answers eth_sendTransaction with sequential
// hashes and eth_getTransactionReceipt with a successful receipt.
func New() *Provider {
	p := &Provider{handlers: map[string]Handler{}}
	p.Handle("eth_sendTransaction", func(args []json.RawMessage) (interface{}, error) {
		p.mu.Lock()
		p.sent++
		n := p.sent
		p.mu.Unlock()
		return common.BigToHash(big.NewInt(int64(n))).Hex(), nil
	})
	p.Handle("eth_getTransactionReceipt", func(args []json.RawMessage) (interface{}, error) {
		var hash string
		_ = json.Unmarshal(args[0], &hash)
		return map[string]string{
			"transactionHash": hash,
			"status":          "0x1",
			"blockNumber":     "0x10",
			"gasUsed":         "0x5208",
		}, nil
	})
	return p
}

func (p *Provider) Handle(method string, h Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[method] = h
}

// Value registers a handler that always returns v.
func (p *Provider) Value(method string, v interface{}) {
	p.Handle(method, func([]json.RawMessage) (interface{}, error) { return v, nil })
}

// Fail registers a handler that always returns err.
func (p *Provider) Fail(method string, err error) {
	p.Handle(method, func([]json.RawMessage) (interface{}, error) { return nil, err })
}

func (p *Provider) CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw := make([]json.RawMessage, 0, len(args))
	for _, a := range args {
		b, err := json.Marshal(a)
		if err != nil {
			return err
		}
		raw = append(raw, b)
	}
	p.mu.Lock()
	p.calls = append(p.calls, Call{Method: method, Args: raw})
	h := p.handlers[method]
	p.mu.Unlock()
	if h == nil {
		return fmt.Errorf("method %s not handled", method)
	}
	v, err := h(raw)
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, result)
}

// Calls returns recorded calls, optionally filtered by method.
func (p *Provider) Calls(methods ...string) []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(methods) == 0 {
		return append([]Call(nil), p.calls...)
	}
	var out []Call
	for _, c := range p.calls {
		for _, m := range methods {
			if c.Method == m {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

func (p *Provider) Sent() []SentTx {
	var out []SentTx
	for _, c := range p.Calls("eth_sendTransaction") {
		var tx SentTx
		if len(c.Args) > 0 {
			_ = json.Unmarshal(c.Args[0], &tx)
		}
		out = append(out, tx)
	}
	return out
}

// EthCall is a decoded eth_call request.
type EthCall struct {
	To   string `json:"to"`
	Data string `json:"data"`
}

// EthCallRouter answers eth_call by the 4-byte selector of the call data.
func (p *Provider) EthCallRouter(bySelector map[string]func(call EthCall) (string, error)) {
	p.Handle("eth_call", func(args []json.RawMessage) (interface{}, error) {
		var call EthCall
		if err := json.Unmarshal(args[0], &call); err != nil {
			return nil, err
		}
		sel := strings.ToLower(call.Data)
		if len(sel) > 10 {
			sel = sel[:10]
		}
		fn, ok := bySelector[sel]
		if !ok {
			return nil, fmt.Errorf("execution reverted: unknown selector %s", sel)
		}
		return fn(call)
	})
}

// Word renders v as a 32-byte 0x-prefixed hex word.
func Word(v *big.Int) string {
	return hexutil.Encode(common.LeftPadBytes(v.Bytes(), 32))
}

func BoolWord(b bool) string {
	if b {
		return Word(big.NewInt(1))
	}
	return Word(big.NewInt(0))
}

// StandardFees answers eth_estimateGas, eth_feeHistory and eth_gasPrice with
// fixed values.
func (p *Provider) StandardFees(gas uint64, baseFee int64) {
	p.Value("eth_estimateGas", hexutil.Uint64(gas))
	p.Value("eth_feeHistory", map[string]interface{}{
		"oldestBlock":   "0x1",
		"baseFeePerGas": []string{hexutil.EncodeBig(big.NewInt(baseFee)), hexutil.EncodeBig(big.NewInt(baseFee))},
		"gasUsedRatio":  []float64{0.5},
	})
	p.Value("eth_gasPrice", hexutil.EncodeBig(big.NewInt(baseFee)))
}

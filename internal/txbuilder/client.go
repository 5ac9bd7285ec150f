package txbuilder

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Provider is the wallet JSON-RPC boundary. *rpc.Client satisfies it.
type Provider interface {
	CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error
}

// TxArgs is the eth_sendTransaction / eth_estimateGas parameter object.
type TxArgs struct {
	From                 common.Address  `json:"from"`
	To                   *common.Address `json:"to,omitempty"`
	Data                 hexutil.Bytes   `json:"data,omitempty"`
	Value                *hexutil.Big    `json:"value,omitempty"`
	Gas                  *hexutil.Uint64 `json:"gas,omitempty"`
	MaxFeePerGas         *hexutil.Big    `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas *hexutil.Big    `json:"maxPriorityFeePerGas,omitempty"`
	GasPrice             *hexutil.Big    `json:"gasPrice,omitempty"`
}

func NewTx(from, to common.Address, data []byte, value *big.Int) TxArgs {
	tx := TxArgs{From: from, To: &to, Data: data}
	if value != nil && value.Sign() > 0 {
		tx.Value = (*hexutil.Big)(new(big.Int).Set(value))
	}
	return tx
}

// callArgs drops gas fields so estimation is not capped by a stale limit.
func (t TxArgs) callArgs() TxArgs {
	t.Gas = nil
	t.MaxFeePerGas = nil
	t.MaxPriorityFeePerGas = nil
	t.GasPrice = nil
	return t
}

func (t TxArgs) ValueInt() *big.Int {
	if t.Value == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(t.Value.ToInt())
}

type callObject struct {
	To   common.Address `json:"to"`
	Data hexutil.Bytes  `json:"data"`
}

// CallRaw performs eth_call against the latest block and returns the raw hex result.
func CallRaw(ctx context.Context, p Provider, to common.Address, data []byte) (string, error) {
	var out string
	if err := p.CallContext(ctx, &out, "eth_call", callObject{To: to, Data: data}, "latest"); err != nil {
		return "", err
	}
	return out, nil
}

func Call(ctx context.Context, p Provider, to common.Address, data []byte) ([]byte, error) {
	out, err := CallRaw(ctx, p, to, data)
	if err != nil {
		return nil, err
	}
	return decodeHexBytes(out)
}

// DecodeBool reads the low-order byte of a 32-byte word; short or empty
// results are false.
func DecodeBool(b []byte) bool {
	if len(b) < 32 {
		return false
	}
	return b[31] != 0
}

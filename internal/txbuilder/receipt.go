package txbuilder

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"moonroute/internal/util"
)

var ErrReverted = errors.New("transaction reverted")

type Receipt struct {
	TxHash      common.Hash    `json:"transactionHash"`
	Status      hexutil.Uint64 `json:"status"`
	BlockNumber *hexutil.Big   `json:"blockNumber"`
	GasUsed     hexutil.Uint64 `json:"gasUsed"`
}

// WaitMined polls eth_getTransactionReceipt until the transaction is included.
// A receipt with status 0 is returned together with ErrReverted.
func WaitMined(ctx context.Context, p Provider, hash common.Hash, interval time.Duration) (*Receipt, error) {
	var receipt *Receipt
	err := util.Poll(ctx, interval, func() (bool, error) {
		var r *Receipt
		if err := p.CallContext(ctx, &r, "eth_getTransactionReceipt", hash); err != nil {
			return false, err
		}
		if r == nil || r.BlockNumber == nil {
			return false, nil
		}
		receipt = r
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if receipt.Status == 0 {
		return receipt, ErrReverted
	}
	return receipt, nil
}

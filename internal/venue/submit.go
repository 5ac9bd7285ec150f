package venue

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"moonroute/internal/approval"
	"moonroute/internal/txbuilder"
)

// submitter is the path shared by both adapters: optional approval, then
// estimate, merge and send.
type submitter struct {
	sender      *txbuilder.Sender
	approvals   *approval.Manager
	fallbackGas uint64
	logger      *slog.Logger
}

func (s submitter) submit(ctx context.Context, account, to common.Address, data []byte, value *big.Int) (common.Hash, error) {
	return s.sender.Send(ctx, txbuilder.NewTx(account, to, data, value), s.fallbackGas)
}

// approveThenSubmit runs the allowance check to completion before the trade
// transaction is built; an approval failure aborts the trade.
func (s submitter) approveThenSubmit(ctx context.Context, account, token, spender common.Address, amount *big.Int, data []byte) (common.Hash, error) {
	if _, err := s.approvals.Ensure(ctx, approval.Request{
		Owner:   account,
		Token:   token,
		Spender: spender,
		Amount:  amount,
	}); err != nil {
		return common.Hash{}, err
	}
	return s.submit(ctx, account, spender, data, nil)
}

type namedAmount struct {
	name  string
	value *big.Int
}

func amt(name string, v *big.Int) namedAmount { return namedAmount{name: name, value: v} }

func checkAmounts(amounts ...namedAmount) error {
	for _, a := range amounts {
		if a.value == nil {
			return fmt.Errorf("%s is required", a.name)
		}
		if a.value.Sign() < 0 {
			return fmt.Errorf("%s must be non-negative", a.name)
		}
	}
	return nil
}

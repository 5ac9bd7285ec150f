package trade

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"moonroute/internal/txbuilder"
	"moonroute/internal/venue"
)

const (
	previewTradeGas        = 150_000
	previewApproveTradeGas = 250_000
)

// PreviewFee prices a trade before it is built. Units are a flat allowance per
// trade, larger when a sell still needs its approval; the price comes from the
// same fee path the sender uses.
func (s *Service) PreviewFee(ctx context.Context, req FeeRequest) (FeeEstimate, error) {
	side, err := venue.ParseSide(string(req.Side))
	if err != nil {
		return FeeEstimate{}, err
	}
	account, err := txbuilder.ParseAddress(req.Account)
	if err != nil {
		return FeeEstimate{}, fmt.Errorf("account: %w", err)
	}
	token, err := txbuilder.ParseAddress(req.Token)
	if err != nil {
		return FeeEstimate{}, fmt.Errorf("token: %w", err)
	}

	est := FeeEstimate{GasUnits: previewTradeGas}
	if side == venue.Sell {
		spender, err := s.spenderFor(ctx, req.Venue, req.Token)
		if err != nil {
			return FeeEstimate{}, err
		}
		allowance, err := txbuilder.ReadAllowance(ctx, s.provider, token, account, spender)
		if err != nil {
			return FeeEstimate{}, fmt.Errorf("read allowance: %w", err)
		}
		if allowance.Sign() == 0 {
			est.GasUnits = previewApproveTradeGas
			est.NeedsApproval = true
		}
	}

	fees := s.gas.Fees(ctx)
	price := fees.Value.PricePerGas()
	total := new(big.Int).Mul(price, new(big.Int).SetUint64(est.GasUnits))
	est.PricePerGas = price.String()
	est.TotalWei = total.String()
	est.TotalEth = txbuilder.FormatUnits(total, 18)
	est.Fallback = fees.FellBack()
	return est, nil
}

func (s *Service) spenderFor(ctx context.Context, v venue.Venue, token string) (common.Address, error) {
	if v == "" {
		v = s.verifier.Verify(ctx, token).RecommendedDex
	}
	parsed, err := venue.ParseVenue(string(v))
	if err != nil {
		return common.Address{}, err
	}
	if parsed == venue.Moonshot {
		return s.opts.MoonshotFactory, nil
	}
	return s.opts.Router, nil
}

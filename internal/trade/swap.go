package trade

import (
	"context"
	"fmt"

	"moonroute/internal/notify"
	"moonroute/internal/txbuilder"
	"moonroute/internal/venue"
)

// Swap is the interactive flow around an exact-in trade: pick the venue when
// the caller did not, make sure a buy is funded, trade and report progress.
// The swap is not awaited; a returned hash means the wallet accepted it.
func (s *Service) Swap(ctx context.Context, req SwapRequest) SwapResult {
	out := SwapResult{Result: Result{Side: req.Side, Mode: venue.ExactIn, Token: req.Token, Amount: req.Amount}}

	if req.Venue == "" {
		s.indicator.Show("Verifying Token...", notify.KindLoading)
		vr := s.verifier.Verify(ctx, req.Token)
		out.Verification = &VerificationSummary{Verified: vr.Verified, RecommendedDex: vr.RecommendedDex}
		if vr.Error != "" {
			out.Error = vr.Error
			s.fail("Verification Failed", out.Error)
			return out
		}
		req.Venue = vr.RecommendedDex
	}
	out.Venue = req.Venue

	if req.Side == venue.Buy {
		if msg := s.checkFunds(ctx, req.Request); msg != "" {
			out.Error = msg
			s.fail("Trade Failed", msg)
			return out
		}
	}

	s.indicator.Show(fmt.Sprintf("Trading on %s...", req.Venue), notify.KindLoading)
	s.indicator.Update(fmt.Sprintf("Trading on %s...", req.Venue), "Please confirm in your wallet")
	res := s.TradeExactIn(ctx, req.Request)
	out.Result = res
	if !res.Success {
		s.fail("Trade Failed", res.Error)
		return out
	}
	if s.opts.ExplorerTxURL != nil {
		out.ExplorerURL = s.opts.ExplorerTxURL(res.TxHash)
	}
	s.indicator.SetKind(notify.KindSuccess)
	s.indicator.Update("Transaction Submitted", "TX: "+res.TxHash)
	s.indicator.Hide()
	return out
}

// checkFunds returns a user message when the account cannot cover the buy.
// A failed balance read does not block the trade.
func (s *Service) checkFunds(ctx context.Context, req Request) string {
	account, err := txbuilder.ParseAddress(req.Account)
	if err != nil {
		return ""
	}
	amount, err := txbuilder.ParseBigInt(req.Amount)
	if err != nil {
		return ""
	}
	balance, err := txbuilder.ReadNativeBalance(ctx, s.provider, account)
	if err != nil {
		s.logger.Warn("balance check skipped", "account", account.Hex(), "error", err)
		return ""
	}
	if balance.Cmp(amount) < 0 {
		return fmt.Sprintf("Insufficient ETH balance: have %s, need %s",
			txbuilder.FormatUnits(balance, 18), txbuilder.FormatUnits(amount, 18))
	}
	return ""
}

func (s *Service) fail(title, msg string) {
	s.indicator.SetKind(notify.KindError)
	s.indicator.Update(title, msg)
	s.indicator.Hide()
}

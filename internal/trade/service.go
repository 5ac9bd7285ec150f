// Package trade is the public entry point for trades: it validates requests,
// derives slippage bounds, dispatches to a venue adapter and folds every
// outcome into a Result.
package trade

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"moonroute/internal/approval"
	"moonroute/internal/metrics"
	"moonroute/internal/notify"
	"moonroute/internal/txbuilder"
	"moonroute/internal/venue"
	"moonroute/internal/verify"
)

type Options struct {
	// DefaultSlippage applies when a request carries none.
	DefaultSlippage decimal.Decimal
	// Spender addresses used by the fee preview allowance check.
	MoonshotFactory common.Address
	Router          common.Address
	// ExplorerTxURL renders a link for a submitted hash; nil disables links.
	ExplorerTxURL func(hash string) string
}

type Service struct {
	registry  *venue.Registry
	verifier  *verify.Verifier
	provider  txbuilder.Provider
	gas       *txbuilder.GasEstimator
	indicator notify.Indicator
	opts      Options
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

func NewService(registry *venue.Registry, verifier *verify.Verifier, sender *txbuilder.Sender, indicator notify.Indicator, opts Options, logger *slog.Logger, m *metrics.Metrics) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		registry:  registry,
		verifier:  verifier,
		provider:  sender.Provider(),
		gas:       sender.Gas(),
		indicator: notify.OrNop(indicator),
		opts:      opts,
		logger:    logger,
		metrics:   m,
	}
}

func (s *Service) TradeExactIn(ctx context.Context, req Request) Result {
	return s.execute(ctx, req, venue.ExactIn)
}

func (s *Service) TradeExactOut(ctx context.Context, req Request) Result {
	return s.execute(ctx, req, venue.ExactOut)
}

// Execute runs a trade in the given mode. Nothing escapes as an error; every
// failure is reported through Result.Error.
func (s *Service) Execute(ctx context.Context, req Request, mode venue.Mode) Result {
	return s.execute(ctx, req, mode)
}

func (s *Service) Verify(ctx context.Context, token string) verify.Result {
	return s.verifier.Verify(ctx, token)
}

func (s *Service) Venues() map[venue.Venue]venue.Capabilities {
	return s.registry.Matrix()
}

// plan is a validated request with its slippage bound resolved.
type plan struct {
	adapter venue.Adapter
	account common.Address
	token   common.Address
	amount  *big.Int
	bound   *big.Int
	side    venue.Side
	mode    venue.Mode
}

func (s *Service) execute(ctx context.Context, req Request, mode venue.Mode) Result {
	res := Result{Venue: req.Venue, Side: req.Side, Mode: mode, Token: req.Token, Amount: req.Amount}
	started := time.Now()

	p, err := s.prepare(req, mode)
	if err != nil {
		res.Error = errorMessage(err)
		s.logger.Warn("trade rejected", "venue", req.Venue, "side", req.Side, "mode", mode, "error", err)
		s.metrics.Trade(string(req.Venue), string(req.Side), string(mode), false, time.Since(started))
		return res
	}

	hash, err := s.dispatch(ctx, p)
	s.metrics.Trade(string(req.Venue), string(req.Side), string(mode), err == nil, time.Since(started))
	if err != nil {
		res.Error = errorMessage(err)
		s.logger.Error("trade failed", "venue", req.Venue, "side", req.Side, "mode", mode, "token", req.Token, "error", err)
		return res
	}
	res.Success = true
	res.TxHash = hash.Hex()
	s.logger.Info("trade submitted", "venue", req.Venue, "side", req.Side, "mode", mode, "token", req.Token, "tx", res.TxHash)
	return res
}

// prepare validates everything it can without touching the network.
func (s *Service) prepare(req Request, mode venue.Mode) (plan, error) {
	if !mode.Valid() {
		return plan{}, fmt.Errorf("mode must be %q or %q", venue.ExactIn, venue.ExactOut)
	}
	side, err := venue.ParseSide(string(req.Side))
	if err != nil {
		return plan{}, err
	}
	account, err := txbuilder.ParseAddress(req.Account)
	if err != nil {
		return plan{}, fmt.Errorf("account: %w", err)
	}
	if strings.TrimSpace(req.Token) == "" {
		return plan{}, errors.New("token address is required")
	}
	token, err := txbuilder.ParseAddress(req.Token)
	if err != nil {
		return plan{}, fmt.Errorf("token: %w", err)
	}
	amount, err := parsePositive("amount", req.Amount)
	if err != nil {
		return plan{}, err
	}
	slippage := s.opts.DefaultSlippage
	if req.Slippage.Valid {
		slippage = req.Slippage.Decimal
	}
	bps, err := SlippageBps(slippage)
	if err != nil {
		return plan{}, err
	}
	v, err := venue.ParseVenue(string(req.Venue))
	if err != nil {
		return plan{}, err
	}
	adapter, ok := s.registry.Get(v)
	if !ok {
		return plan{}, fmt.Errorf("venue %s is not configured", v)
	}
	if !adapter.Capabilities().Supports(side, mode) {
		return plan{}, &venue.UnsupportedError{Venue: v, Side: side, Mode: mode}
	}

	var estimate *big.Int
	if strings.TrimSpace(req.Estimate) != "" {
		if estimate, err = parsePositive("estimate", req.Estimate); err != nil {
			return plan{}, err
		}
	}
	var bound *big.Int
	switch {
	case mode == venue.ExactIn && estimate != nil:
		bound = MinAmountOut(estimate, bps)
	case mode == venue.ExactIn:
		bound = big.NewInt(0)
	case estimate != nil:
		bound = MaxAmountIn(estimate, bps)
	default:
		bound = new(big.Int).Set(amount)
	}
	return plan{adapter: adapter, account: account, token: token, amount: amount, bound: bound, side: side, mode: mode}, nil
}

func (s *Service) dispatch(ctx context.Context, p plan) (common.Hash, error) {
	a := p.adapter
	switch {
	case p.side == venue.Buy && p.mode == venue.ExactIn:
		return a.BuyExactIn(ctx, p.account, p.token, p.amount, p.bound)
	case p.side == venue.Buy:
		return a.BuyExactOut(ctx, p.account, p.token, p.amount, p.bound)
	case p.mode == venue.ExactIn:
		return a.SellExactIn(ctx, p.account, p.token, p.amount, p.bound)
	default:
		return a.SellExactOut(ctx, p.account, p.token, p.amount, p.bound)
	}
}

// errorMessage picks the caller-facing text for a trade failure.
func errorMessage(err error) string {
	var approvalErr *approval.Error
	if errors.As(err, &approvalErr) {
		return approvalErr.UserMessage()
	}
	var unsupported *venue.UnsupportedError
	if errors.As(err, &unsupported) {
		return unsupported.Error()
	}
	return txbuilder.ClassifyWalletError(err).TradeMessage()
}

func parsePositive(name, value string) (*big.Int, error) {
	if strings.TrimSpace(value) == "" {
		return nil, fmt.Errorf("%s is required", name)
	}
	v, err := txbuilder.ParseBigInt(value)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if v.Sign() <= 0 {
		return nil, fmt.Errorf("%s must be positive", name)
	}
	return v, nil
}

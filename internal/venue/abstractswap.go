package venue

import (
	"context"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"moonroute/internal/approval"
	"moonroute/internal/txbuilder"
)

var (
	SelectorSwapExactETHForTokens = txbuilder.MustSelector("0x7ff36ab5")
	SelectorSwapExactTokensForETH = txbuilder.MustSelector("0x18cbafe5")
	SelectorSwapETHForExactTokens = txbuilder.MustSelector("0xfb3bdb41")
	SelectorSwapTokensForExactETH = txbuilder.MustSelector("0x4a25d94a")
)

type AbstractSwapConfig struct {
	Router      common.Address
	WETH        common.Address
	Deadline    time.Duration
	FallbackGas uint64
}

// AbstractSwapAdapter trades through the Uniswap-V2-style router. Only
// exact-in trades are wired.
type AbstractSwapAdapter struct {
	cfg AbstractSwapConfig
	now func() time.Time
	submitter
}

func NewAbstractSwap(cfg AbstractSwapConfig, sender *txbuilder.Sender, approvals *approval.Manager, logger *slog.Logger) *AbstractSwapAdapter {
	return NewAbstractSwapWithClock(cfg, sender, approvals, logger, time.Now)
}

func NewAbstractSwapWithClock(cfg AbstractSwapConfig, sender *txbuilder.Sender, approvals *approval.Manager, logger *slog.Logger, now func() time.Time) *AbstractSwapAdapter {
	if cfg.Deadline <= 0 {
		cfg.Deadline = 1200 * time.Second
	}
	if cfg.FallbackGas == 0 {
		cfg.FallbackGas = 0x16E360
	}
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &AbstractSwapAdapter{
		cfg: cfg,
		now: now,
		submitter: submitter{
			sender:      sender,
			approvals:   approvals,
			fallbackGas: cfg.FallbackGas,
			logger:      logger.With("venue", AbstractSwap),
		},
	}
}

func (a *AbstractSwapAdapter) Venue() Venue { return AbstractSwap }

func (a *AbstractSwapAdapter) Capabilities() Capabilities {
	return Capabilities{BuyExactIn: true, SellExactIn: true}
}

func (a *AbstractSwapAdapter) BuyExactIn(ctx context.Context, account, token common.Address, ethIn, minTokensOut *big.Int) (common.Hash, error) {
	if err := checkAmounts(amt("ethIn", ethIn), amt("minTokensOut", minTokensOut)); err != nil {
		return common.Hash{}, err
	}
	data, err := BuildSwapExactETHForTokens(minTokensOut, account, a.deadline(), a.cfg.WETH, token)
	if err != nil {
		return common.Hash{}, err
	}
	a.logger.Info("buy exact in", "token", token.Hex(), "eth_in", ethIn, "min_tokens_out", minTokensOut)
	return a.submit(ctx, account, a.cfg.Router, data, ethIn)
}

func (a *AbstractSwapAdapter) BuyExactOut(context.Context, common.Address, common.Address, *big.Int, *big.Int) (common.Hash, error) {
	return common.Hash{}, &UnsupportedError{Venue: AbstractSwap, Side: Buy, Mode: ExactOut}
}

func (a *AbstractSwapAdapter) SellExactIn(ctx context.Context, account, token common.Address, tokensIn, minEthOut *big.Int) (common.Hash, error) {
	if err := checkAmounts(amt("tokensIn", tokensIn), amt("minEthOut", minEthOut)); err != nil {
		return common.Hash{}, err
	}
	data, err := BuildSwapExactTokensForETH(tokensIn, minEthOut, account, a.deadline(), token, a.cfg.WETH)
	if err != nil {
		return common.Hash{}, err
	}
	a.logger.Info("sell exact in", "token", token.Hex(), "tokens_in", tokensIn, "min_eth_out", minEthOut)
	return a.approveThenSubmit(ctx, account, token, a.cfg.Router, tokensIn, data)
}

func (a *AbstractSwapAdapter) SellExactOut(context.Context, common.Address, common.Address, *big.Int, *big.Int) (common.Hash, error) {
	return common.Hash{}, &UnsupportedError{Venue: AbstractSwap, Side: Sell, Mode: ExactOut}
}

func (a *AbstractSwapAdapter) deadline() uint64 {
	return uint64(a.now().Add(a.cfg.Deadline).Unix())
}

// BuildSwapExactETHForTokens lays out
// swapExactETHForTokens(uint256 amountOutMin, address[] path, address to, uint256 deadline)
// with path [weth, token].
func BuildSwapExactETHForTokens(amountOutMin *big.Int, to common.Address, deadline uint64, weth, token common.Address) ([]byte, error) {
	return txbuilder.Encode(SelectorSwapExactETHForTokens,
		txbuilder.Uint256(amountOutMin),
		txbuilder.Uint64(0x80),
		txbuilder.AddressOf(to),
		txbuilder.Uint64(deadline),
		txbuilder.Uint64(2),
		txbuilder.AddressOf(weth),
		txbuilder.AddressOf(token),
	)
}

// BuildSwapExactTokensForETH lays out
// swapExactTokensForETH(uint256 amountIn, uint256 amountOutMin, address[] path, address to, uint256 deadline)
// with path [token, weth].
func BuildSwapExactTokensForETH(amountIn, amountOutMin *big.Int, to common.Address, deadline uint64, token, weth common.Address) ([]byte, error) {
	return txbuilder.Encode(SelectorSwapExactTokensForETH,
		txbuilder.Uint256(amountIn),
		txbuilder.Uint256(amountOutMin),
		txbuilder.Uint64(0xa0),
		txbuilder.AddressOf(to),
		txbuilder.Uint64(deadline),
		txbuilder.Uint64(2),
		txbuilder.AddressOf(token),
		txbuilder.AddressOf(weth),
	)
}

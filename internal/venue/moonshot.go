package venue

import (
	"context"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"moonroute/internal/approval"
	"moonroute/internal/txbuilder"
)

var (
	SelectorMoonshotBuyExactIn   = txbuilder.MustSelector("0x758b647a")
	SelectorMoonshotBuyExactOut  = txbuilder.MustSelector("0xc68255a5")
	SelectorMoonshotSellExactIn  = txbuilder.MustSelector("0x30a2aa20")
	SelectorMoonshotSellExactOut = txbuilder.MustSelector("0x94b6c160")
)

type MoonshotConfig struct {
	Factory common.Address
	// ExactInGuard passes the slippage-derived minimum output on exact-in
	// trades. When false the factory receives a zero minimum.
	ExactInGuard bool
	FallbackGas  uint64
}

// MoonshotAdapter trades against the bonding-curve factory. Buys attach ETH
// directly; sells approve the factory first.
type MoonshotAdapter struct {
	cfg MoonshotConfig
	submitter
}

func NewMoonshot(cfg MoonshotConfig, sender *txbuilder.Sender, approvals *approval.Manager, logger *slog.Logger) *MoonshotAdapter {
	if cfg.FallbackGas == 0 {
		cfg.FallbackGas = 0x16E360
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MoonshotAdapter{
		cfg: cfg,
		submitter: submitter{
			sender:      sender,
			approvals:   approvals,
			fallbackGas: cfg.FallbackGas,
			logger:      logger.With("venue", Moonshot),
		},
	}
}

func (m *MoonshotAdapter) Venue() Venue { return Moonshot }

func (m *MoonshotAdapter) Capabilities() Capabilities {
	return Capabilities{BuyExactIn: true, BuyExactOut: true, SellExactIn: true, SellExactOut: true}
}

func (m *MoonshotAdapter) BuyExactIn(ctx context.Context, account, token common.Address, ethIn, minTokensOut *big.Int) (common.Hash, error) {
	if err := checkAmounts(amt("ethIn", ethIn)); err != nil {
		return common.Hash{}, err
	}
	data, err := txbuilder.Encode(SelectorMoonshotBuyExactIn,
		txbuilder.AddressOf(token),
		txbuilder.Uint256(m.exactInMin(minTokensOut)),
	)
	if err != nil {
		return common.Hash{}, err
	}
	m.logger.Info("buy exact in", "token", token.Hex(), "eth_in", ethIn)
	return m.submit(ctx, account, m.cfg.Factory, data, ethIn)
}

func (m *MoonshotAdapter) BuyExactOut(ctx context.Context, account, token common.Address, tokensOut, maxEthIn *big.Int) (common.Hash, error) {
	if err := checkAmounts(amt("tokensOut", tokensOut), amt("maxEthIn", maxEthIn)); err != nil {
		return common.Hash{}, err
	}
	data, err := txbuilder.Encode(SelectorMoonshotBuyExactOut,
		txbuilder.AddressOf(token),
		txbuilder.Uint256(tokensOut),
		txbuilder.Uint256(maxEthIn),
	)
	if err != nil {
		return common.Hash{}, err
	}
	m.logger.Info("buy exact out", "token", token.Hex(), "tokens_out", tokensOut, "max_eth_in", maxEthIn)
	return m.submit(ctx, account, m.cfg.Factory, data, maxEthIn)
}

func (m *MoonshotAdapter) SellExactIn(ctx context.Context, account, token common.Address, tokensIn, minEthOut *big.Int) (common.Hash, error) {
	if err := checkAmounts(amt("tokensIn", tokensIn)); err != nil {
		return common.Hash{}, err
	}
	data, err := txbuilder.Encode(SelectorMoonshotSellExactIn,
		txbuilder.AddressOf(token),
		txbuilder.Uint256(tokensIn),
		txbuilder.Uint256(m.exactInMin(minEthOut)),
	)
	if err != nil {
		return common.Hash{}, err
	}
	m.logger.Info("sell exact in", "token", token.Hex(), "tokens_in", tokensIn)
	return m.approveThenSubmit(ctx, account, token, m.cfg.Factory, tokensIn, data)
}

func (m *MoonshotAdapter) SellExactOut(ctx context.Context, account, token common.Address, ethOut, maxTokensIn *big.Int) (common.Hash, error) {
	if err := checkAmounts(amt("ethOut", ethOut), amt("maxTokensIn", maxTokensIn)); err != nil {
		return common.Hash{}, err
	}
	data, err := txbuilder.Encode(SelectorMoonshotSellExactOut,
		txbuilder.AddressOf(token),
		txbuilder.Uint256(ethOut),
		txbuilder.Uint256(maxTokensIn),
	)
	if err != nil {
		return common.Hash{}, err
	}
	m.logger.Info("sell exact out", "token", token.Hex(), "eth_out", ethOut, "max_tokens_in", maxTokensIn)
	return m.approveThenSubmit(ctx, account, token, m.cfg.Factory, maxTokensIn, data)
}

func (m *MoonshotAdapter) exactInMin(bound *big.Int) *big.Int {
	if !m.cfg.ExactInGuard || bound == nil || bound.Sign() < 0 {
		return big.NewInt(0)
	}
	return bound
}

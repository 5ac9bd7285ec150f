package trade

import (
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"moonroute/internal/config"
	"moonroute/internal/metrics"
	"moonroute/internal/notify"
	"moonroute/internal/txbuilder"
	"moonroute/internal/venue"
	"moonroute/internal/verify"
)

func NewServiceFromConfig(cfg *config.Config, registry *venue.Registry, verifier *verify.Verifier, sender *txbuilder.Sender, indicator notify.Indicator, logger *slog.Logger, m *metrics.Metrics) (*Service, error) {
	slippage, err := decimal.NewFromString(cfg.Tx.DefaultSlippagePercent)
	if err != nil {
		return nil, fmt.Errorf("tx.default_slippage_percent: %w", err)
	}
	if _, err := SlippageBps(slippage); err != nil {
		return nil, fmt.Errorf("tx.default_slippage_percent: %w", err)
	}
	return NewService(registry, verifier, sender, indicator, Options{
		DefaultSlippage: slippage,
		MoonshotFactory: common.HexToAddress(cfg.Venues.MoonshotFactory),
		Router:          common.HexToAddress(cfg.Venues.Router),
		ExplorerTxURL:   cfg.ExplorerTxURL,
	}, logger, m), nil
}

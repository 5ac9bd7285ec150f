package txbuilder

import (
	"fmt"
	"log/slog"

	"moonroute/internal/config"
	"moonroute/internal/metrics"
)

func NewGasEstimatorFromConfig(p Provider, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (*GasEstimator, error) {
	fallbackPrice, err := ParseBigInt(cfg.Tx.FallbackGasPriceWei)
	if err != nil {
		return nil, fmt.Errorf("tx.fallback_gas_price_wei: %w", err)
	}
	priority, err := ParseBigInt(cfg.Tx.PriorityFeeWei)
	if err != nil {
		return nil, fmt.Errorf("tx.priority_fee_wei: %w", err)
	}
	return NewGasEstimator(p, GasConfig{
		BufferPercent:    cfg.Tx.GasBufferPercent,
		FallbackGasPrice: fallbackPrice,
		PriorityFee:      priority,
		Percentile:       cfg.Tx.FeeHistoryPercentile,
	}, logger, m), nil
}

func NewSenderFromConfig(p Provider, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (*Sender, error) {
	gas, err := NewGasEstimatorFromConfig(p, cfg, logger, m)
	if err != nil {
		return nil, err
	}
	return NewSender(p, gas, logger), nil
}

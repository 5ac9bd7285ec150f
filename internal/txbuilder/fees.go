package txbuilder

import (
	"context"
	"errors"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"moonroute/internal/fallible"
	"moonroute/internal/metrics"
)

var errNoBaseFee = errors.New("fee history returned no base fee")

// GasParams merges into a TxArgs. Either the EIP-1559 pair or GasPrice is
// set, never both.
type GasParams struct {
	Gas                  hexutil.Uint64 `json:"gas"`
	MaxFeePerGas         *hexutil.Big   `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas *hexutil.Big   `json:"maxPriorityFeePerGas,omitempty"`
	GasPrice             *hexutil.Big   `json:"gasPrice,omitempty"`
}

func (g GasParams) IsDynamic() bool {
	return g.MaxFeePerGas != nil
}

// PricePerGas is the worst-case price paid per gas unit.
func (g GasParams) PricePerGas() *big.Int {
	switch {
	case g.MaxFeePerGas != nil:
		return new(big.Int).Set(g.MaxFeePerGas.ToInt())
	case g.GasPrice != nil:
		return new(big.Int).Set(g.GasPrice.ToInt())
	default:
		return big.NewInt(0)
	}
}

func (g GasParams) Apply(tx *TxArgs) {
	gas := g.Gas
	tx.Gas = &gas
	tx.MaxFeePerGas = g.MaxFeePerGas
	tx.MaxPriorityFeePerGas = g.MaxPriorityFeePerGas
	tx.GasPrice = g.GasPrice
}

type GasConfig struct {
	BufferPercent    uint64
	FallbackGasPrice *big.Int
	PriorityFee      *big.Int
	Percentile       float64
}

type GasEstimator struct {
	provider Provider
	cfg      GasConfig
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func NewGasEstimator(provider Provider, cfg GasConfig, logger *slog.Logger, m *metrics.Metrics) *GasEstimator {
	if cfg.BufferPercent == 0 {
		cfg.BufferPercent = 150
	}
	if cfg.FallbackGasPrice == nil {
		cfg.FallbackGasPrice = big.NewInt(0x2B29711)
	}
	if cfg.PriorityFee == nil {
		cfg.PriorityFee = big.NewInt(1)
	}
	if cfg.Percentile == 0 {
		cfg.Percentile = 50
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GasEstimator{provider: provider, cfg: cfg, logger: logger, metrics: m}
}

// Estimate never fails: each step that errors is replaced by its default and
// the result is marked FellBack.
func (e *GasEstimator) Estimate(ctx context.Context, tx TxArgs, fallbackGas uint64) fallible.Result[GasParams] {
	limit := e.Limit(ctx, tx, fallbackGas)
	fees := e.Fees(ctx)
	params := fees.Value
	params.Gas = hexutil.Uint64(limit.Value)
	if limit.OK() && fees.OK() {
		return fallible.Ok(params)
	}
	return fallible.Fallback(params, errors.Join(limit.Err, fees.Err))
}

func (e *GasEstimator) Limit(ctx context.Context, tx TxArgs, fallbackGas uint64) fallible.Result[uint64] {
	var estimated hexutil.Uint64
	if err := e.provider.CallContext(ctx, &estimated, "eth_estimateGas", tx.callArgs()); err != nil {
		e.logger.Warn("gas estimation failed, using fallback limit", "fallback", fallbackGas, "error", err)
		e.metrics.GasFallback("limit")
		return fallible.Fallback(fallbackGas, &EstimateGasError{Err: err, Args: tx})
	}
	return fallible.Ok(applyGasBuffer(uint64(estimated), e.cfg.BufferPercent))
}

// Fees prefers EIP-1559 pricing from eth_feeHistory and falls back to
// eth_gasPrice, then to the configured legacy price.
func (e *GasEstimator) Fees(ctx context.Context) fallible.Result[GasParams] {
	baseFee, histErr := e.baseFee(ctx)
	if histErr == nil {
		maxFee := new(big.Int).Mul(baseFee, big.NewInt(2))
		maxFee.Add(maxFee, big.NewInt(1))
		return fallible.Ok(GasParams{
			MaxFeePerGas:         (*hexutil.Big)(maxFee),
			MaxPriorityFeePerGas: (*hexutil.Big)(new(big.Int).Set(e.cfg.PriorityFee)),
		})
	}
	e.logger.Debug("fee history unavailable, using legacy gas price", "error", histErr)

	var price hexutil.Big
	if err := e.provider.CallContext(ctx, &price, "eth_gasPrice"); err != nil {
		e.logger.Warn("gas price unavailable, using fallback price", "fallback", e.cfg.FallbackGasPrice, "error", err)
		e.metrics.GasFallback("price")
		return fallible.Fallback(
			GasParams{GasPrice: (*hexutil.Big)(new(big.Int).Set(e.cfg.FallbackGasPrice))},
			errors.Join(histErr, err),
		)
	}
	e.metrics.GasFallback("legacy")
	return fallible.Fallback(GasParams{GasPrice: &price}, histErr)
}

type feeHistory struct {
	BaseFeePerGas []*hexutil.Big `json:"baseFeePerGas"`
}

func (e *GasEstimator) baseFee(ctx context.Context) (*big.Int, error) {
	var fh feeHistory
	if err := e.provider.CallContext(ctx, &fh, "eth_feeHistory", hexutil.Uint64(1), "latest", []float64{e.cfg.Percentile}); err != nil {
		return nil, err
	}
	if len(fh.BaseFeePerGas) == 0 {
		return nil, errNoBaseFee
	}
	// For blockCount=1 the last entry is the next block's base fee.
	last := fh.BaseFeePerGas[len(fh.BaseFeePerGas)-1]
	if last == nil {
		return nil, errNoBaseFee
	}
	return new(big.Int).Set(last.ToInt()), nil
}

func applyGasBuffer(gas uint64, percent uint64) uint64 {
	if percent <= 100 {
		return gas
	}
	adjusted := new(big.Int).SetUint64(gas)
	adjusted.Mul(adjusted, new(big.Int).SetUint64(percent))
	adjusted.Div(adjusted, big.NewInt(100))
	if !adjusted.IsUint64() {
		return gas
	}
	return adjusted.Uint64()
}

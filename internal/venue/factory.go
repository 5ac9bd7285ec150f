package venue

import (
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"moonroute/internal/approval"
	"moonroute/internal/config"
	"moonroute/internal/txbuilder"
)

// NewRegistryFromConfig wires both venues against one sender and approval manager.
func NewRegistryFromConfig(cfg *config.Config, sender *txbuilder.Sender, approvals *approval.Manager, logger *slog.Logger) *Registry {
	moonshot := NewMoonshot(MoonshotConfig{
		Factory:      common.HexToAddress(cfg.Venues.MoonshotFactory),
		ExactInGuard: cfg.Venues.MoonshotExactInGuard,
		FallbackGas:  cfg.Tx.FallbackGasLimit,
	}, sender, approvals, logger)
	router := NewAbstractSwap(AbstractSwapConfig{
		Router:      common.HexToAddress(cfg.Venues.Router),
		WETH:        common.HexToAddress(cfg.Venues.WETH),
		Deadline:    cfg.Tx.Deadline.Duration,
		FallbackGas: cfg.Tx.FallbackGasLimit,
	}, sender, approvals, logger)
	return NewRegistry(moonshot, router)
}

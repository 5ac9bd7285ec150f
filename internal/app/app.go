// Package app wires the trade core against one wallet provider.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/sync/errgroup"

	"moonroute/internal/api"
	"moonroute/internal/approval"
	"moonroute/internal/config"
	"moonroute/internal/decoder"
	"moonroute/internal/journal"
	"moonroute/internal/metrics"
	"moonroute/internal/notify"
	"moonroute/internal/trade"
	"moonroute/internal/txbuilder"
	"moonroute/internal/venue"
	"moonroute/internal/verify"
)

type App struct {
	cfg    *config.Config
	logger *slog.Logger

	Provider  txbuilder.Provider
	Metrics   *metrics.Metrics
	Sender    *txbuilder.Sender
	Approvals *approval.Manager
	Registry  *venue.Registry
	Verifier  *verify.Verifier
	Trade     *trade.Service
	Decoder   *decoder.Decoder
}

// New builds the component graph. A nil indicator reports progress to the
// logger.
func New(cfg *config.Config, logger *slog.Logger, provider txbuilder.Provider, indicator notify.Indicator) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if indicator == nil {
		indicator = notify.NewLog(logger)
	}
	m := metrics.New(cfg.Metrics.Namespace)

	sender, err := txbuilder.NewSenderFromConfig(provider, cfg, logger, m)
	if err != nil {
		return nil, err
	}
	approvals := approval.NewManager(sender, approval.Config{
		FallbackGas:  cfg.Tx.ApproveFallbackGasLimit,
		PollInterval: cfg.Approval.ConfirmPollInterval.Duration,
		Timeout:      cfg.Approval.ConfirmTimeout.Duration,
	}, indicator, logger, m)
	registry := venue.NewRegistryFromConfig(cfg, sender, approvals, logger)
	verifier := verify.New(provider, common.HexToAddress(cfg.Venues.MoonshotFactory), logger, m)
	svc, err := trade.NewServiceFromConfig(cfg, registry, verifier, sender, indicator, logger, m)
	if err != nil {
		return nil, err
	}
	dec, err := decoder.New()
	if err != nil {
		return nil, fmt.Errorf("decoder: %w", err)
	}
	return &App{
		cfg:       cfg,
		logger:    logger,
		Provider:  provider,
		Metrics:   m,
		Sender:    sender,
		Approvals: approvals,
		Registry:  registry,
		Verifier:  verifier,
		Trade:     svc,
		Decoder:   dec,
	}, nil
}

// CheckChain compares the provider's chain id with the configured one.
func (a *App) CheckChain(ctx context.Context) error {
	var id hexutil.Uint64
	if err := a.Provider.CallContext(ctx, &id, "eth_chainId"); err != nil {
		return fmt.Errorf("eth_chainId: %w", err)
	}
	if uint64(id) != a.cfg.ChainID {
		return fmt.Errorf("provider is on chain %d, configured for %d", uint64(id), a.cfg.ChainID)
	}
	return nil
}

// Serve runs the HTTP API until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	if err := a.CheckChain(ctx); err != nil {
		a.logger.Warn("chain check failed", "error", err)
	}
	store, err := journal.Open(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	defer store.Close()

	server := api.NewServer(a.cfg, a.logger, a.Trade, a.Provider, store, a.Decoder, a.Metrics)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(gctx)
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
	return nil
}

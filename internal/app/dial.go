package app

import (
	"context"
	"log/slog"

	"github.com/ethereum/go-ethereum/rpc"

	"moonroute/internal/config"
)

// Dial connects to the wallet provider. eth_sendTransaction requires an
// endpoint that manages the account, such as a signer or an unlocked node.
func Dial(ctx context.Context, cfg *config.Config, logger *slog.Logger, userAgent string) (*rpc.Client, error) {
	client, err := rpc.DialContext(ctx, cfg.RPC.HTTP)
	if err != nil {
		return nil, err
	}
	client.SetHeader("User-Agent", userAgent)
	logger.Info("rpc connected", "url", cfg.RPC.HTTP)
	return client, nil
}

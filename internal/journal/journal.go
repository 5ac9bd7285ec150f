// Package journal records submitted trades so they can be listed later.
package journal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"moonroute/internal/config"
)

const (
	KindTrade = "trade"
	KindSwap  = "swap"
)

type Entry struct {
	Time    time.Time `json:"time"`
	Kind    string    `json:"kind"`
	Account string    `json:"account"`
	Token   string    `json:"tokenAddress"`
	Venue   string    `json:"dex"`
	Side    string    `json:"tradeType"`
	Mode    string    `json:"mode"`
	Amount  string    `json:"amount"`
	Success bool      `json:"success"`
	TxHash  string    `json:"txHash,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// Store persists entries. Recent returns newest first; an empty account
// matches every entry.
type Store interface {
	Append(ctx context.Context, e Entry) error
	Recent(ctx context.Context, account string, limit int) ([]Entry, error)
	Close() error
}

// Nop drops every entry.
type Nop struct{}

func (Nop) Append(context.Context, Entry) error { return nil }

func (Nop) Recent(context.Context, string, int) ([]Entry, error) { return nil, nil }

func (Nop) Close() error { return nil }

// Open builds the store selected by journal.driver.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Journal.Driver {
	case "none":
		return Nop{}, nil
	case "file":
		logger.Info("journal: file", "path", cfg.Journal.Path)
		return NewFileStore(cfg.Journal.Path)
	case "postgres":
		logger.Info("journal: postgres")
		return OpenPostgres(ctx, cfg.Journal.DSN)
	default:
		return nil, fmt.Errorf("unknown journal driver %q", cfg.Journal.Driver)
	}
}

func matchAccount(want, got string) bool {
	return want == "" || strings.EqualFold(want, got)
}

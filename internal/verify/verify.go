// Package verify decides which venue a token trades on by asking the
// Moonshot factory about it.
package verify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"moonroute/internal/fallible"
	"moonroute/internal/metrics"
	"moonroute/internal/txbuilder"
	"moonroute/internal/venue"
)

var (
	SelectorMoonshotTokens    = txbuilder.MustSelector("0xe228b1b3")
	SelectorReadyForMigration = txbuilder.MustSelector("0xace1bfab")
)

// ErrInvalidAddress is reported as "invalid_address" in Result.Error.
var ErrInvalidAddress = errors.New("invalid_address")

type Result struct {
	Address             string      `json:"address"`
	IsMoonshotToken     bool        `json:"isMoonshotToken"`
	IsReadyForMigration bool        `json:"isReadyForMigration"`
	RecommendedDex      venue.Venue `json:"recommendedDex"`
	Verified            bool        `json:"verified"`
	Error               string      `json:"error,omitempty"`

	// Per-read outcome, so a substituted false is distinguishable from a real one.
	MoonshotRead  fallible.Status `json:"-"`
	MigrationRead fallible.Status `json:"-"`
}

// Recommend is the routing rule: Moonshot only for a bonding-curve token that
// has not reached migration.
func Recommend(isMoonshotToken, isReadyForMigration bool) venue.Venue {
	if isMoonshotToken && !isReadyForMigration {
		return venue.Moonshot
	}
	return venue.AbstractSwap
}

type Verifier struct {
	provider txbuilder.Provider
	factory  common.Address
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func New(provider txbuilder.Provider, factory common.Address, logger *slog.Logger, m *metrics.Metrics) *Verifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Verifier{provider: provider, factory: factory, logger: logger, metrics: m}
}

// Verify never returns an error: a failed read becomes false, and a failure of
// the whole check yields verified=false with the router recommended.
func (v *Verifier) Verify(ctx context.Context, token string) Result {
	res := Result{Address: token, RecommendedDex: venue.AbstractSwap}
	addr, err := txbuilder.ParseAddress(token)
	if err != nil {
		res.Error = ErrInvalidAddress.Error()
		v.metrics.Verification(string(res.RecommendedDex), false)
		return res
	}

	var moon, ready fallible.Result[bool]
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		moon = v.readBool(gctx, SelectorMoonshotTokens, addr)
		return nil
	})
	g.Go(func() error {
		ready = v.readBool(gctx, SelectorReadyForMigration, addr)
		return nil
	})
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		res.Error = err.Error()
		v.logger.Warn("token verification aborted", "token", addr.Hex(), "error", err)
		v.metrics.Verification(string(res.RecommendedDex), false)
		return res
	}

	res.Address = addr.Hex()
	res.IsMoonshotToken = moon.Value
	res.IsReadyForMigration = ready.Value
	res.MoonshotRead = moon.Status
	res.MigrationRead = ready.Status
	res.RecommendedDex = Recommend(moon.Value, ready.Value)
	res.Verified = true
	v.logger.Info("token verified",
		"token", addr.Hex(),
		"moonshot", res.IsMoonshotToken,
		"ready_for_migration", res.IsReadyForMigration,
		"dex", res.RecommendedDex,
	)
	v.metrics.Verification(string(res.RecommendedDex), true)
	return res
}

func (v *Verifier) readBool(ctx context.Context, sel txbuilder.Selector, token common.Address) fallible.Result[bool] {
	r := fallible.Or(false, func() (bool, error) {
		data, err := txbuilder.Encode(sel, txbuilder.AddressOf(token))
		if err != nil {
			return false, err
		}
		out, err := txbuilder.Call(ctx, v.provider, v.factory, data)
		if err != nil {
			return false, err
		}
		return txbuilder.DecodeBool(out), nil
	})
	if r.FellBack() {
		v.logger.Warn("factory read failed, assuming false", "selector", sel.Hex(), "token", token.Hex(), "error", r.Err)
	}
	return r
}

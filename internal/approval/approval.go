// Package approval makes sure a spender holds enough ERC-20 allowance before
// a trade that pulls tokens from the owner.
package approval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"moonroute/internal/metrics"
	"moonroute/internal/notify"
	"moonroute/internal/txbuilder"
)

type State string

const (
	StateCheckAllowance State = "check_allowance"
	StateDone           State = "done"
	StateApproving      State = "approving"
	StateSubmitted      State = "submitted"
	StateConfirmed      State = "confirmed"
	StateFailed         State = "failed"
)

type Request struct {
	Owner   common.Address
	Token   common.Address
	Spender common.Address
	Amount  *big.Int
}

type Outcome struct {
	State     State
	Allowance *big.Int
	TxHash    common.Hash
	Receipt   *txbuilder.Receipt
}

// Approved reports whether an approval transaction was sent.
func (o Outcome) Approved() bool {
	return o.TxHash != (common.Hash{})
}

// Error is an aborted approval. Message is already user-facing.
type Error struct {
	State   State
	Kind    txbuilder.WalletErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string { return "token approval failed: " + e.Message }

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) UserMessage() string { return "Token approval failed: " + e.Message }

type Config struct {
	FallbackGas  uint64
	PollInterval time.Duration
	// Timeout bounds the wait for the approval to be mined; zero leaves it to ctx.
	Timeout time.Duration
}

type Manager struct {
	sender    *txbuilder.Sender
	cfg       Config
	indicator notify.Indicator
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

func NewManager(sender *txbuilder.Sender, cfg Config, indicator notify.Indicator, logger *slog.Logger, m *metrics.Metrics) *Manager {
	if cfg.FallbackGas == 0 {
		cfg.FallbackGas = 0x186A0
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		sender:    sender,
		cfg:       cfg,
		indicator: notify.OrNop(indicator),
		logger:    logger,
		metrics:   m,
	}
}

// Ensure approves the maximum amount when the current allowance is below
// req.Amount and waits for the approval to be mined. Any failure aborts.
func (m *Manager) Ensure(ctx context.Context, req Request) (Outcome, error) {
	if req.Amount == nil || req.Amount.Sign() < 0 {
		return Outcome{State: StateFailed}, &Error{State: StateCheckAllowance, Message: "invalid amount", Err: errors.New("amount must be non-negative")}
	}
	log := m.logger.With("token", req.Token.Hex(), "spender", req.Spender.Hex(), "owner", req.Owner.Hex())
	out := Outcome{State: StateCheckAllowance}

	allowance, err := txbuilder.ReadAllowance(ctx, m.sender.Provider(), req.Token, req.Owner, req.Spender)
	if err != nil {
		return m.fail(log, out, err)
	}
	out.Allowance = allowance
	if allowance.Cmp(req.Amount) >= 0 {
		out.State = StateDone
		log.Debug("allowance sufficient", "allowance", allowance, "required", req.Amount)
		m.metrics.Approval("sufficient")
		return out, nil
	}

	out.State = StateApproving
	log.Info("allowance insufficient, approving", "allowance", allowance, "required", req.Amount)
	m.indicator.Show("Approving Token...", notify.KindLoading)
	m.indicator.Update("Approving Token...", "Please confirm in your wallet")

	data, err := txbuilder.BuildApproveCallData(req.Spender, txbuilder.MaxUint256)
	if err != nil {
		return m.fail(log, out, err)
	}
	hash, err := m.sender.Send(ctx, txbuilder.NewTx(req.Owner, req.Token, data, nil), m.cfg.FallbackGas)
	if err != nil {
		return m.fail(log, out, err)
	}
	out.State = StateSubmitted
	out.TxHash = hash
	log.Info("approval submitted", "tx", hash.Hex())
	m.indicator.Update("Waiting for confirmation", "TX: "+shortHash(hash))

	waitCtx := ctx
	if m.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, m.cfg.Timeout)
		defer cancel()
	}
	receipt, err := txbuilder.WaitMined(waitCtx, m.sender.Provider(), hash, m.cfg.PollInterval)
	out.Receipt = receipt
	if err != nil {
		if errors.Is(err, txbuilder.ErrReverted) {
			err = fmt.Errorf("approval transaction reverted: %w", err)
		}
		return m.fail(log, out, err)
	}

	out.State = StateConfirmed
	log.Info("approval confirmed", "tx", hash.Hex(), "block", receipt.BlockNumber)
	m.metrics.Approval("confirmed")
	m.indicator.SetKind(notify.KindSuccess)
	m.indicator.Update("Token Approved!", "TX: "+shortHash(hash))
	m.indicator.Hide()
	return out, nil
}

func (m *Manager) fail(log *slog.Logger, out Outcome, err error) (Outcome, error) {
	we := txbuilder.ClassifyWalletError(err)
	failedAt := out.State
	out.State = StateFailed
	msg := we.ApprovalMessage()
	log.Error("approval failed", "state", failedAt, "kind", we.Kind, "error", err)
	m.metrics.Approval("failed")
	if failedAt != StateCheckAllowance {
		m.indicator.SetKind(notify.KindError)
		m.indicator.Update("Approval Failed", msg)
		m.indicator.Hide()
	}
	return out, &Error{State: failedAt, Kind: we.Kind, Message: msg, Err: err}
}

func shortHash(h common.Hash) string {
	s := h.Hex()
	return s[:10] + "..." + s[len(s)-8:]
}

package txbuilder

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/rpc"
)

type EstimateGasError struct {
	Err  error
	Args TxArgs
}

func (e *EstimateGasError) Error() string {
	if e == nil {
		return "estimate gas failed"
	}
	if e.Err == nil {
		return "estimate gas failed"
	}
	return "estimate gas failed: " + e.Err.Error()
}

func (e *EstimateGasError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

type WalletErrorKind int

const (
	WalletErrorOther WalletErrorKind = iota
	WalletErrorUserRejected
	WalletErrorInsufficientFunds
	WalletErrorNonce
)

func (k WalletErrorKind) String() string {
	switch k {
	case WalletErrorUserRejected:
		return "user_rejected"
	case WalletErrorInsufficientFunds:
		return "insufficient_funds"
	case WalletErrorNonce:
		return "nonce"
	default:
		return "other"
	}
}

// eip1193UserRejected is the provider error code for a declined request.
const eip1193UserRejected = 4001

// WalletError is a provider failure with its recognised category.
type WalletError struct {
	Kind WalletErrorKind
	Err  error
}

func (e *WalletError) Error() string { return e.Err.Error() }

func (e *WalletError) Unwrap() error { return e.Err }

// ApprovalMessage is the user-facing text for a failed approval.
func (e *WalletError) ApprovalMessage() string {
	switch e.Kind {
	case WalletErrorUserRejected:
		return "User rejected approval"
	case WalletErrorInsufficientFunds:
		return "Insufficient ETH for gas"
	case WalletErrorNonce:
		return "Transaction nonce error. Try again"
	default:
		return e.Err.Error()
	}
}

// TradeMessage is the user-facing text for a failed trade submission.
func (e *WalletError) TradeMessage() string {
	switch e.Kind {
	case WalletErrorUserRejected:
		return "Transaction rejected by user"
	case WalletErrorInsufficientFunds:
		return "Insufficient funds for transaction + gas"
	case WalletErrorNonce:
		return "Transaction nonce error. Try again"
	default:
		return e.Err.Error()
	}
}

// ClassifyWalletError matches known provider error codes and messages. It
// returns nil for a nil error.
func ClassifyWalletError(err error) *WalletError {
	if err == nil {
		return nil
	}
	var we *WalletError
	if errors.As(err, &we) {
		return we
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == eip1193UserRejected {
		return &WalletError{Kind: WalletErrorUserRejected, Err: err}
	}
	msg := err.Error()
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "user rejected"), strings.Contains(msg, "User denied"):
		return &WalletError{Kind: WalletErrorUserRejected, Err: err}
	case strings.Contains(lower, "insufficient funds"):
		return &WalletError{Kind: WalletErrorInsufficientFunds, Err: err}
	case strings.Contains(lower, "nonce"):
		return &WalletError{Kind: WalletErrorNonce, Err: err}
	default:
		return &WalletError{Kind: WalletErrorOther, Err: err}
	}
}

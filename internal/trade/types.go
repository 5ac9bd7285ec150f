package trade

import (
	"github.com/shopspring/decimal"

	"moonroute/internal/venue"
)

// Request is one trade. Amount and Estimate are smallest-unit integers,
// decimal or 0x-hex. Estimate is the expected output for exact-in trades and
// the expected input for exact-out trades.
type Request struct {
	Account  string              `json:"account"`
	Token    string              `json:"tokenAddress"`
	Amount   string              `json:"amount"`
	Side     venue.Side          `json:"tradeType"`
	Slippage decimal.NullDecimal `json:"slippage"`
	Estimate string              `json:"estimate,omitempty"`
	Venue    venue.Venue         `json:"dex"`
}

type Result struct {
	Success bool        `json:"success"`
	TxHash  string      `json:"txHash,omitempty"`
	Venue   venue.Venue `json:"dex,omitempty"`
	Side    venue.Side  `json:"tradeType,omitempty"`
	Mode    venue.Mode  `json:"mode,omitempty"`
	Token   string      `json:"tokenAddress,omitempty"`
	Amount  string      `json:"amount,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// SwapRequest drives the full swap flow. An empty Venue asks the verifier.
type SwapRequest struct {
	Request
}

type SwapResult struct {
	Result
	Verification *VerificationSummary `json:"verification,omitempty"`
	ExplorerURL  string               `json:"explorerUrl,omitempty"`
}

type VerificationSummary struct {
	Verified       bool        `json:"verified"`
	RecommendedDex venue.Venue `json:"recommendedDex"`
}

type FeeRequest struct {
	Account string      `json:"account"`
	Token   string      `json:"tokenAddress"`
	Side    venue.Side  `json:"tradeType"`
	Venue   venue.Venue `json:"dex"`
}

type FeeEstimate struct {
	GasUnits      uint64 `json:"gasUnits"`
	PricePerGas   string `json:"pricePerGasWei"`
	TotalWei      string `json:"totalWei"`
	TotalEth      string `json:"totalEth"`
	NeedsApproval bool   `json:"needsApproval"`
	Fallback      bool   `json:"fallback"`
}

// Package venue holds the two trading venues and the adapters that build and
// submit their transactions.
package venue

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

type Venue string

const (
	Moonshot     Venue = "Moonshot"
	AbstractSwap Venue = "AbstractSwap"
)

func ParseVenue(s string) (Venue, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "moonshot":
		return Moonshot, nil
	case "abstractswap", "abstract_swap", "abstract-swap":
		return AbstractSwap, nil
	default:
		return "", fmt.Errorf("unknown venue %q", s)
	}
}

type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

func ParseSide(s string) (Side, error) {
	switch Side(strings.ToLower(strings.TrimSpace(s))) {
	case Buy:
		return Buy, nil
	case Sell:
		return Sell, nil
	default:
		return "", fmt.Errorf("trade type must be %q or %q", Buy, Sell)
	}
}

type Mode string

const (
	ExactIn  Mode = "exactIn"
	ExactOut Mode = "exactOut"
)

func (m Mode) Valid() bool {
	return m == ExactIn || m == ExactOut
}

var ErrUnsupported = errors.New("operation not supported by venue")

// UnsupportedError names the venue/side/mode combination that has no
// implementation.
type UnsupportedError struct {
	Venue Venue
	Side  Side
	Mode  Mode
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s %s %s not implemented in this version", e.Venue, e.Mode, e.Side)
}

func (e *UnsupportedError) Is(target error) bool { return target == ErrUnsupported }

// Capabilities is the static support matrix of a venue.
type Capabilities struct {
	BuyExactIn   bool `json:"buyExactIn"`
	BuyExactOut  bool `json:"buyExactOut"`
	SellExactIn  bool `json:"sellExactIn"`
	SellExactOut bool `json:"sellExactOut"`
}

func (c Capabilities) Supports(side Side, mode Mode) bool {
	switch {
	case side == Buy && mode == ExactIn:
		return c.BuyExactIn
	case side == Buy && mode == ExactOut:
		return c.BuyExactOut
	case side == Sell && mode == ExactIn:
		return c.SellExactIn
	case side == Sell && mode == ExactOut:
		return c.SellExactOut
	default:
		return false
	}
}

// Adapter executes the four trade shapes on one venue. Amounts are smallest
// units; each call returns the submitted transaction hash.
type Adapter interface {
	Venue() Venue
	Capabilities() Capabilities
	BuyExactIn(ctx context.Context, account, token common.Address, ethIn, minTokensOut *big.Int) (common.Hash, error)
	BuyExactOut(ctx context.Context, account, token common.Address, tokensOut, maxEthIn *big.Int) (common.Hash, error)
	SellExactIn(ctx context.Context, account, token common.Address, tokensIn, minEthOut *big.Int) (common.Hash, error)
	SellExactOut(ctx context.Context, account, token common.Address, ethOut, maxTokensIn *big.Int) (common.Hash, error)
}

// Registry resolves adapters by venue.
type Registry struct {
	adapters map[Venue]Adapter
	order    []Venue
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[Venue]Adapter, len(adapters))}
	for _, a := range adapters {
		if _, ok := r.adapters[a.Venue()]; !ok {
			r.order = append(r.order, a.Venue())
		}
		r.adapters[a.Venue()] = a
	}
	return r
}

func (r *Registry) Get(v Venue) (Adapter, bool) {
	a, ok := r.adapters[v]
	return a, ok
}

// Matrix lists every registered venue with its capabilities.
func (r *Registry) Matrix() map[Venue]Capabilities {
	out := make(map[Venue]Capabilities, len(r.adapters))
	for _, v := range r.order {
		out[v] = r.adapters[v].Capabilities()
	}
	return out
}

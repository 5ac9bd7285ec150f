package trade

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moonroute/internal/approval"
	"moonroute/internal/config"
	"moonroute/internal/notify"
	"moonroute/internal/txbuilder"
	"moonroute/internal/txbuilder/txbuildertest"
	"moonroute/internal/venue"
	"moonroute/internal/verify"
)

const (
	account = "0x1111111111111111111111111111111111111111"
	token   = "0x3333333333333333333333333333333333333333"
)

type fixture struct {
	provider  *txbuildertest.Provider
	indicator *notify.Recorder
	service   *Service
}

type chainState struct {
	allowance int64
	moonshot  bool
	ready     bool
	balance   *big.Int
}

func newFixture(t *testing.T, st chainState) fixture {
	t.Helper()
	p := txbuildertest.New()
	p.StandardFees(100000, 100)
	p.EthCallRouter(map[string]func(txbuildertest.EthCall) (string, error){
		txbuilder.SelectorAllowance.Hex(): func(txbuildertest.EthCall) (string, error) {
			return txbuildertest.Word(big.NewInt(st.allowance)), nil
		},
		verify.SelectorMoonshotTokens.Hex(): func(txbuildertest.EthCall) (string, error) {
			return txbuildertest.BoolWord(st.moonshot), nil
		},
		verify.SelectorReadyForMigration.Hex(): func(txbuildertest.EthCall) (string, error) {
			return txbuildertest.BoolWord(st.ready), nil
		},
	})
	if st.balance != nil {
		p.Value("eth_getBalance", hexutil.EncodeBig(st.balance))
	}

	factory := common.HexToAddress(config.DefaultMoonshotFactory)
	router := common.HexToAddress(config.DefaultRouter)
	rec := &notify.Recorder{}
	sender := txbuilder.NewSender(p, txbuilder.NewGasEstimator(p, txbuilder.GasConfig{}, nil, nil), nil)
	approvals := approval.NewManager(sender, approval.Config{PollInterval: time.Millisecond}, rec, nil, nil)
	registry := venue.NewRegistry(
		venue.NewMoonshot(venue.MoonshotConfig{Factory: factory}, sender, approvals, nil),
		venue.NewAbstractSwap(venue.AbstractSwapConfig{
			Router: router,
			WETH:   common.HexToAddress(config.DefaultWETH),
		}, sender, approvals, nil),
	)
	svc := NewService(registry, verify.New(p, factory, nil, nil), sender, rec, Options{
		DefaultSlippage: decimal.RequireFromString("1"),
		MoonshotFactory: factory,
		Router:          router,
		ExplorerTxURL:   func(h string) string { return "https://abscan.org/tx/" + h },
	}, nil, nil)
	return fixture{provider: p, indicator: rec, service: svc}
}

func pct(s string) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: decimal.RequireFromString(s), Valid: true}
}

func word(v *big.Int) string {
	return hexutil.Encode(common.LeftPadBytes(v.Bytes(), 32))[2:]
}

func TestMinAmountOutNeverExceedsAmount(t *testing.T) {
	amounts := []*big.Int{big.NewInt(1), big.NewInt(999), big.NewInt(1000), txbuilder.MaxUint256}
	for _, a := range amounts {
		for _, s := range []string{"0", "0.01", "0.5", "1", "12.345", "99.99"} {
			bps, err := SlippageBps(decimal.RequireFromString(s))
			require.NoError(t, err)
			minOut := MinAmountOut(a, bps)
			maxIn := MaxAmountIn(a, bps)
			assert.True(t, minOut.Cmp(a) <= 0, "min %s > %s at %s%%", minOut, a, s)
			assert.True(t, maxIn.Cmp(a) >= 0, "max %s < %s at %s%%", maxIn, a, s)
			if bps == 0 {
				assert.Equal(t, 0, minOut.Cmp(a))
				assert.Equal(t, 0, maxIn.Cmp(a))
			}
		}
	}
}

func TestSlippageBounds(t *testing.T) {
	bps, err := SlippageBps(decimal.RequireFromString("0.5"))
	require.NoError(t, err)
	assert.Equal(t, int64(50), bps)
	assert.Equal(t, "995", MinAmountOut(big.NewInt(1000), bps).String())
	assert.Equal(t, "1005", MaxAmountIn(big.NewInt(1000), bps).String())

	bps, err = SlippageBps(decimal.RequireFromString("0.555"))
	require.NoError(t, err)
	assert.Equal(t, int64(55), bps, "basis points truncate")

	_, err = SlippageBps(decimal.RequireFromString("100"))
	assert.Error(t, err)
	_, err = SlippageBps(decimal.RequireFromString("-0.1"))
	assert.Error(t, err)
}

func TestAutoSlippage(t *testing.T) {
	cases := map[string]string{
		"50":         "0.01",
		"500":        "0.1",
		"5000":       "0.5",
		"100000":     "10",
		"1000000000": "15",
	}
	for in, want := range cases {
		got := AutoSlippage(decimal.RequireFromString(in))
		assert.True(t, got.Equal(decimal.RequireFromString(want)), "AutoSlippage(%s) = %s", in, got)
	}
}

func TestTradeExactInMoonshotBuyOneEther(t *testing.T) {
	f := newFixture(t, chainState{})
	res := f.service.TradeExactIn(context.Background(), Request{
		Account:  account,
		Token:    token,
		Amount:   "1000000000000000000",
		Side:     venue.Buy,
		Slippage: pct("0.5"),
		Estimate: "5000",
		Venue:    venue.Moonshot,
	})
	require.True(t, res.Success, res.Error)
	assert.True(t, strings.HasPrefix(res.TxHash, "0x"))
	assert.Equal(t, venue.ExactIn, res.Mode)
	assert.Equal(t, venue.Moonshot, res.Venue)
	assert.Equal(t, venue.Buy, res.Side)
	assert.Equal(t, token, res.Token)
	assert.Equal(t, "1000000000000000000", res.Amount)

	sent := f.provider.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "0xde0b6b3a7640000", sent[0].Value)
	assert.Equal(t, "0x758b647a"+word(common.HexToAddress(token).Big())+word(big.NewInt(0)), sent[0].Data)
}

func TestTradeExactOutAbstractSwapIsUnsupported(t *testing.T) {
	for _, side := range []venue.Side{venue.Buy, venue.Sell} {
		f := newFixture(t, chainState{})
		res := f.service.TradeExactOut(context.Background(), Request{
			Account:  account,
			Token:    token,
			Amount:   "1000",
			Side:     side,
			Estimate: "1000",
			Venue:    venue.AbstractSwap,
		})
		assert.False(t, res.Success)
		assert.Contains(t, res.Error, "not implemented")
		assert.Empty(t, f.provider.Calls(), "%s must not touch the network", side)
	}
}

func TestTradeExactOutBound(t *testing.T) {
	f := newFixture(t, chainState{})
	res := f.service.TradeExactOut(context.Background(), Request{
		Account:  account,
		Token:    token,
		Amount:   "5000",
		Side:     venue.Buy,
		Slippage: pct("1"),
		Estimate: "1000",
		Venue:    venue.Moonshot,
	})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, int64(1010), f.provider.Sent()[0].ValueInt().Int64())

	f = newFixture(t, chainState{})
	res = f.service.TradeExactOut(context.Background(), Request{
		Account: account,
		Token:   token,
		Amount:  "5000",
		Side:    venue.Buy,
		Venue:   venue.Moonshot,
	})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, int64(5000), f.provider.Sent()[0].ValueInt().Int64(), "bound falls back to the amount")
}

func TestTradeValidatesBeforeNetwork(t *testing.T) {
	valid := Request{Account: account, Token: token, Amount: "100", Side: venue.Buy, Venue: venue.Moonshot}
	cases := []struct {
		name string
		mode venue.Mode
		edit func(*Request)
		want string
	}{
		{"mode", venue.Mode("sideways"), func(*Request) {}, "mode must be"},
		{"token", venue.ExactIn, func(r *Request) { r.Token = "" }, "token address is required"},
		{"account", venue.ExactIn, func(r *Request) { r.Account = "0x1234" }, "account"},
		{"zero amount", venue.ExactIn, func(r *Request) { r.Amount = "0" }, "amount must be positive"},
		{"bad amount", venue.ExactIn, func(r *Request) { r.Amount = "1.5" }, "amount"},
		{"side", venue.ExactIn, func(r *Request) { r.Side = "hold" }, "trade type"},
		{"slippage", venue.ExactIn, func(r *Request) { r.Slippage = pct("100") }, "slippage"},
		{"venue", venue.ExactIn, func(r *Request) { r.Venue = "Uniswap" }, "unknown venue"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, chainState{})
			req := valid
			tc.edit(&req)
			res := f.service.Execute(context.Background(), req, tc.mode)
			assert.False(t, res.Success)
			assert.Contains(t, res.Error, tc.want)
			assert.Empty(t, f.provider.Calls())
		})
	}
}

func TestSellOnAbstractSwapApprovesThenSwaps(t *testing.T) {
	f := newFixture(t, chainState{allowance: 50})
	res := f.service.TradeExactIn(context.Background(), Request{
		Account: account,
		Token:   token,
		Amount:  "100",
		Side:    venue.Sell,
		Venue:   venue.AbstractSwap,
	})
	require.True(t, res.Success, res.Error)

	sent := f.provider.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, "0x095ea7b3", sent[0].Selector())
	assert.Equal(t, "0x18cbafe5", sent[1].Selector())
	assert.Equal(t, "0x0000000000000000000000000000000000000000000000000000000000000002", res.TxHash)
}

func TestTradeMapsWalletErrors(t *testing.T) {
	f := newFixture(t, chainState{})
	f.provider.Fail("eth_sendTransaction", errors.New("MetaMask Tx Signature: User denied transaction signature."))
	res := f.service.TradeExactIn(context.Background(), Request{
		Account: account, Token: token, Amount: "100", Side: venue.Buy, Venue: venue.Moonshot,
	})
	assert.False(t, res.Success)
	assert.Equal(t, "Transaction rejected by user", res.Error)

	f = newFixture(t, chainState{})
	f.provider.Fail("eth_sendTransaction", errors.New("user rejected the request"))
	res = f.service.TradeExactIn(context.Background(), Request{
		Account: account, Token: token, Amount: "100", Side: venue.Sell, Venue: venue.Moonshot,
	})
	assert.False(t, res.Success)
	assert.Equal(t, "Token approval failed: User rejected approval", res.Error)
	assert.Len(t, f.provider.Calls("eth_sendTransaction"), 1, "trade must not follow a failed approval")
}

func TestSwapVerifiesVenue(t *testing.T) {
	f := newFixture(t, chainState{moonshot: true, balance: big.NewInt(1_000_000)})
	res := f.service.Swap(context.Background(), SwapRequest{Request{
		Account: account, Token: token, Amount: "1000", Side: venue.Buy,
	}})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, venue.Moonshot, res.Venue)
	require.NotNil(t, res.Verification)
	assert.True(t, res.Verification.Verified)
	assert.Equal(t, "https://abscan.org/tx/"+res.TxHash, res.ExplorerURL)

	var titles []string
	for _, e := range f.indicator.Events() {
		if e.Op == "show" {
			titles = append(titles, e.Title)
		}
	}
	assert.Equal(t, []string{"Verifying Token...", "Trading on Moonshot..."}, titles)
}

func TestSwapStopsOnInsufficientBalance(t *testing.T) {
	f := newFixture(t, chainState{balance: big.NewInt(10)})
	res := f.service.Swap(context.Background(), SwapRequest{Request{
		Account: account, Token: token, Amount: "1000", Side: venue.Buy, Venue: venue.AbstractSwap,
	}})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "Insufficient ETH balance")
	assert.Empty(t, f.provider.Sent())
}

func TestPreviewFee(t *testing.T) {
	f := newFixture(t, chainState{allowance: 0})
	est, err := f.service.PreviewFee(context.Background(), FeeRequest{
		Account: account, Token: token, Side: venue.Sell, Venue: venue.AbstractSwap,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(250000), est.GasUnits)
	assert.True(t, est.NeedsApproval)
	assert.Equal(t, "201", est.PricePerGas)
	assert.Equal(t, "50250000", est.TotalWei)
	assert.False(t, est.Fallback)

	est, err = f.service.PreviewFee(context.Background(), FeeRequest{
		Account: account, Token: token, Side: venue.Buy, Venue: venue.AbstractSwap,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(150000), est.GasUnits)
	assert.Equal(t, "30150000", est.TotalWei)
}

func TestPreviewFeeLegacyPrice(t *testing.T) {
	f := newFixture(t, chainState{allowance: 7})
	f.provider.Fail("eth_feeHistory", errors.New("method not found"))
	f.provider.Value("eth_gasPrice", "0x3b9aca00")

	est, err := f.service.PreviewFee(context.Background(), FeeRequest{
		Account: account, Token: token, Side: venue.Sell, Venue: venue.Moonshot,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(150000), est.GasUnits)
	assert.False(t, est.NeedsApproval)
	assert.Equal(t, "1000000000", est.PricePerGas)
	assert.True(t, est.Fallback)

	calls := f.provider.Calls("eth_call")
	require.Len(t, calls, 1)
	assert.Contains(t, strings.ToLower(string(calls[0].Args[0])), strings.ToLower(config.DefaultMoonshotFactory[2:]))
}

package venue

import (
	"context"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moonroute/internal/approval"
	"moonroute/internal/config"
	"moonroute/internal/txbuilder"
	"moonroute/internal/txbuilder/txbuildertest"
)

const routerABI = `[
 {"name":"swapExactETHForTokens","type":"function","stateMutability":"payable",
  "inputs":[{"name":"amountOutMin","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],
  "outputs":[{"name":"amounts","type":"uint256[]"}]},
 {"name":"swapExactTokensForETH","type":"function","stateMutability":"nonpayable",
  "inputs":[{"name":"amountIn","type":"uint256"},{"name":"amountOutMin","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],
  "outputs":[{"name":"amounts","type":"uint256[]"}]}
]`

var (
	account = common.HexToAddress("0x1111111111111111111111111111111111111111")
	token   = common.HexToAddress("0x3333333333333333333333333333333333333333")
	fixedAt = time.Unix(1700000000, 0)
)

type fixture struct {
	provider *txbuildertest.Provider
	moonshot *MoonshotAdapter
	router   *AbstractSwapAdapter
}

func newFixture(t *testing.T, allowance int64, guard bool) fixture {
	t.Helper()
	p := txbuildertest.New()
	p.StandardFees(120000, 25000000)
	p.EthCallRouter(map[string]func(txbuildertest.EthCall) (string, error){
		txbuilder.SelectorAllowance.Hex(): func(txbuildertest.EthCall) (string, error) {
			return txbuildertest.Word(big.NewInt(allowance)), nil
		},
	})
	sender := txbuilder.NewSender(p, txbuilder.NewGasEstimator(p, txbuilder.GasConfig{}, nil, nil), nil)
	approvals := approval.NewManager(sender, approval.Config{PollInterval: time.Millisecond}, nil, nil, nil)
	return fixture{
		provider: p,
		moonshot: NewMoonshot(MoonshotConfig{
			Factory:      common.HexToAddress(config.DefaultMoonshotFactory),
			ExactInGuard: guard,
		}, sender, approvals, nil),
		router: NewAbstractSwapWithClock(AbstractSwapConfig{
			Router: common.HexToAddress(config.DefaultRouter),
			WETH:   common.HexToAddress(config.DefaultWETH),
		}, sender, approvals, nil, func() time.Time { return fixedAt }),
	}
}

func word(v *big.Int) string {
	return hexutil.Encode(common.LeftPadBytes(v.Bytes(), 32))[2:]
}

func TestMoonshotBuyExactInOneEther(t *testing.T) {
	f := newFixture(t, 0, false)
	oneEther, _ := new(big.Int).SetString("1000000000000000000", 10)

	hash, err := f.moonshot.BuyExactIn(context.Background(), account, token, oneEther, big.NewInt(12345))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash.Hex(), "0x"))

	sent := f.provider.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, 0, sent[0].ValueInt().Cmp(oneEther))
	assert.Equal(t, "0xde0b6b3a7640000", sent[0].Value)
	assert.Equal(t, strings.ToLower(config.DefaultMoonshotFactory), strings.ToLower(sent[0].To))
	assert.Equal(t, "0x758b647a"+word(token.Big())+word(big.NewInt(0)), sent[0].Data)
	assert.Empty(t, f.provider.Calls("eth_call"), "buys must not check allowance")
}

func TestMoonshotExactInGuardOptIn(t *testing.T) {
	f := newFixture(t, 0, true)
	_, err := f.moonshot.BuyExactIn(context.Background(), account, token, big.NewInt(1000), big.NewInt(990))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(f.provider.Sent()[0].Data, word(big.NewInt(990))))
}

func TestMoonshotBuyExactOutAttachesMaxCollateral(t *testing.T) {
	f := newFixture(t, 0, false)
	_, err := f.moonshot.BuyExactOut(context.Background(), account, token, big.NewInt(5000), big.NewInt(1010))
	require.NoError(t, err)

	tx := f.provider.Sent()[0]
	assert.Equal(t, int64(1010), tx.ValueInt().Int64())
	assert.Equal(t, "0xc68255a5"+word(token.Big())+word(big.NewInt(5000))+word(big.NewInt(1010)), tx.Data)
}

func TestMoonshotSellExactOutApprovesMaxTokens(t *testing.T) {
	f := newFixture(t, 0, false)
	_, err := f.moonshot.SellExactOut(context.Background(), account, token, big.NewInt(700), big.NewInt(2020))
	require.NoError(t, err)

	sent := f.provider.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, "0x095ea7b3", sent[0].Selector())
	assert.Equal(t, "0x94b6c160"+word(token.Big())+word(big.NewInt(700))+word(big.NewInt(2020)), sent[1].Data)
	assert.Empty(t, sent[1].Value)
}

func TestAbstractSwapSellApprovesBeforeSwap(t *testing.T) {
	f := newFixture(t, 10, false)
	_, err := f.router.SellExactIn(context.Background(), account, token, big.NewInt(500), big.NewInt(3))
	require.NoError(t, err)

	sent := f.provider.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, "0x095ea7b3", sent[0].Selector())
	assert.Equal(t, strings.ToLower(token.Hex()), strings.ToLower(sent[0].To))
	assert.Equal(t, "0x18cbafe5", sent[1].Selector())
	assert.Equal(t, strings.ToLower(config.DefaultRouter), strings.ToLower(sent[1].To))

	methods := []string{}
	for _, c := range f.provider.Calls("eth_sendTransaction", "eth_getTransactionReceipt") {
		methods = append(methods, c.Method)
	}
	assert.Equal(t, []string{"eth_sendTransaction", "eth_getTransactionReceipt", "eth_sendTransaction"}, methods)
}

func TestAbstractSwapSellSkipsApprovalWhenAllowed(t *testing.T) {
	f := newFixture(t, 1000, false)
	_, err := f.router.SellExactIn(context.Background(), account, token, big.NewInt(500), big.NewInt(3))
	require.NoError(t, err)
	require.Len(t, f.provider.Sent(), 1)
	assert.Equal(t, "0x18cbafe5", f.provider.Sent()[0].Selector())
}

func TestAbstractSwapExactOutUnsupported(t *testing.T) {
	f := newFixture(t, 0, false)
	assert.False(t, f.router.Capabilities().Supports(Buy, ExactOut))
	assert.False(t, f.router.Capabilities().Supports(Sell, ExactOut))

	_, err := f.router.BuyExactOut(context.Background(), account, token, big.NewInt(1), big.NewInt(1))
	require.ErrorIs(t, err, ErrUnsupported)
	assert.Contains(t, err.Error(), "not implemented")
	_, err = f.router.SellExactOut(context.Background(), account, token, big.NewInt(1), big.NewInt(1))
	require.ErrorIs(t, err, ErrUnsupported)
	assert.Empty(t, f.provider.Calls())
}

func TestRouterCalldataMatchesABI(t *testing.T) {
	parsed, err := abi.JSON(strings.NewReader(routerABI))
	require.NoError(t, err)
	weth := common.HexToAddress(config.DefaultWETH)
	deadline := uint64(fixedAt.Add(1200 * time.Second).Unix())

	buy, err := BuildSwapExactETHForTokens(big.NewInt(42), account, deadline, weth, token)
	require.NoError(t, err)
	want, err := parsed.Pack("swapExactETHForTokens", big.NewInt(42), []common.Address{weth, token}, account, new(big.Int).SetUint64(deadline))
	require.NoError(t, err)
	assert.Equal(t, hexutil.Encode(want), hexutil.Encode(buy))

	sell, err := BuildSwapExactTokensForETH(big.NewInt(500), big.NewInt(3), account, deadline, token, weth)
	require.NoError(t, err)
	want, err = parsed.Pack("swapExactTokensForETH", big.NewInt(500), big.NewInt(3), []common.Address{token, weth}, account, new(big.Int).SetUint64(deadline))
	require.NoError(t, err)
	assert.Equal(t, hexutil.Encode(want), hexutil.Encode(sell))
}

func TestAbstractSwapBuyUsesDeadlineFromClock(t *testing.T) {
	f := newFixture(t, 0, false)
	_, err := f.router.BuyExactIn(context.Background(), account, token, big.NewInt(1000), big.NewInt(0))
	require.NoError(t, err)

	data := f.provider.Sent()[0].Data
	deadlineWord := data[10+64*3 : 10+64*4]
	assert.Equal(t, word(big.NewInt(fixedAt.Unix()+1200)), deadlineWord)
}

func TestRegistryMatrix(t *testing.T) {
	f := newFixture(t, 0, false)
	reg := NewRegistry(f.moonshot, f.router)

	m := reg.Matrix()
	assert.True(t, m[Moonshot].Supports(Sell, ExactOut))
	assert.True(t, m[AbstractSwap].Supports(Buy, ExactIn))
	assert.False(t, m[AbstractSwap].Supports(Buy, ExactOut))

	a, ok := reg.Get(AbstractSwap)
	require.True(t, ok)
	assert.Equal(t, AbstractSwap, a.Venue())
}

func TestParseHelpers(t *testing.T) {
	v, err := ParseVenue("moonshot")
	require.NoError(t, err)
	assert.Equal(t, Moonshot, v)
	_, err = ParseVenue("uniswap")
	assert.Error(t, err)

	s, err := ParseSide("SELL")
	require.NoError(t, err)
	assert.Equal(t, Sell, s)
	assert.False(t, Mode("exactish").Valid())
}

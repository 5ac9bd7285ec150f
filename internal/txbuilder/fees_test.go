package txbuilder

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"moonroute/internal/fallible"
	"moonroute/internal/txbuilder/txbuildertest"
)

func draftTx() TxArgs {
	return NewTx(
		common.HexToAddress("0x1111111111111111111111111111111111111111"),
		common.HexToAddress("0x2222222222222222222222222222222222222222"),
		[]byte{0x01, 0x02, 0x03, 0x04},
		big.NewInt(1000),
	)
}

func TestEstimateUsesFeeHistory(t *testing.T) {
	p := txbuildertest.New()
	p.StandardFees(100000, 100)

	est := NewGasEstimator(p, GasConfig{}, nil, nil).Estimate(context.Background(), draftTx(), 1_500_000)
	if est.Status != fallible.Succeeded {
		t.Fatalf("unexpected status %s: %v", est.Status, est.Err)
	}
	if uint64(est.Value.Gas) != 150000 {
		t.Fatalf("unexpected gas: %d", est.Value.Gas)
	}
	if est.Value.MaxFeePerGas.ToInt().Int64() != 201 {
		t.Fatalf("unexpected max fee: %s", est.Value.MaxFeePerGas)
	}
	if est.Value.MaxPriorityFeePerGas.ToInt().Int64() != 1 {
		t.Fatalf("unexpected priority fee: %s", est.Value.MaxPriorityFeePerGas)
	}
	if est.Value.GasPrice != nil {
		t.Fatalf("legacy and dynamic fees mixed")
	}
}

func TestEstimateFeeHistoryRequestShape(t *testing.T) {
	p := txbuildertest.New()
	p.StandardFees(21000, 7)

	NewGasEstimator(p, GasConfig{}, nil, nil).Estimate(context.Background(), draftTx(), 1)

	calls := p.Calls("eth_feeHistory")
	if len(calls) != 1 || len(calls[0].Args) != 3 {
		t.Fatalf("unexpected fee history calls: %+v", calls)
	}
	var percentiles []float64
	if err := json.Unmarshal(calls[0].Args[2], &percentiles); err != nil || len(percentiles) != 1 || percentiles[0] != 50 {
		t.Fatalf("unexpected percentiles: %s", calls[0].Args[2])
	}
	var block string
	_ = json.Unmarshal(calls[0].Args[1], &block)
	if block != "latest" {
		t.Fatalf("unexpected block tag: %s", block)
	}
}

func TestEstimateFallsBackToGasPrice(t *testing.T) {
	p := txbuildertest.New()
	p.Value("eth_estimateGas", hexutil.Uint64(50000))
	p.Value("eth_feeHistory", map[string]interface{}{"baseFeePerGas": []string{}})
	p.Value("eth_gasPrice", "0x3b9aca00")

	est := NewGasEstimator(p, GasConfig{}, nil, nil).Estimate(context.Background(), draftTx(), 1_500_000)
	if est.Status != fallible.FellBack {
		t.Fatalf("unexpected status: %s", est.Status)
	}
	if est.Value.MaxFeePerGas != nil || est.Value.MaxPriorityFeePerGas != nil {
		t.Fatalf("dynamic fields set on legacy path")
	}
	if est.Value.GasPrice.ToInt().Int64() != 1_000_000_000 {
		t.Fatalf("unexpected gas price: %s", est.Value.GasPrice)
	}
	if uint64(est.Value.Gas) != 75000 {
		t.Fatalf("unexpected gas: %d", est.Value.Gas)
	}
}

func TestEstimateAbsorbsEveryFailure(t *testing.T) {
	p := txbuildertest.New()
	p.Fail("eth_estimateGas", errors.New("execution reverted"))
	p.Fail("eth_feeHistory", errors.New("method not found"))
	p.Fail("eth_gasPrice", errors.New("rate limited"))

	est := NewGasEstimator(p, GasConfig{}, nil, nil).Estimate(context.Background(), draftTx(), 0x16E360)
	params, err := est.Get()
	if err != nil {
		t.Fatalf("estimate must not be fatal: %v", err)
	}
	if uint64(params.Gas) != 0x16E360 {
		t.Fatalf("unexpected fallback gas: %d", params.Gas)
	}
	if params.GasPrice.ToInt().Cmp(big.NewInt(0x2B29711)) != 0 {
		t.Fatalf("unexpected fallback price: %s", params.GasPrice)
	}
	var estErr *EstimateGasError
	if !errors.As(est.Err, &estErr) {
		t.Fatalf("expected EstimateGasError in %v", est.Err)
	}
}

func TestSenderMergesGasAndSubmits(t *testing.T) {
	p := txbuildertest.New()
	p.StandardFees(100000, 100)
	sender := NewSender(p, NewGasEstimator(p, GasConfig{}, nil, nil), nil)

	hash, err := sender.Send(context.Background(), draftTx(), 1_500_000)
	if err != nil {
		t.Fatalf("Send error: %v", err)
	}
	if hash == (common.Hash{}) {
		t.Fatalf("empty hash")
	}
	sent := p.Sent()
	if len(sent) != 1 {
		t.Fatalf("unexpected sends: %d", len(sent))
	}
	if sent[0].Gas != "0x249f0" || sent[0].MaxFeePerGas != "0xc9" || sent[0].MaxPriorityFeePerGas != "0x1" {
		t.Fatalf("gas not merged: %+v", sent[0])
	}
	if sent[0].ValueInt().Int64() != 1000 {
		t.Fatalf("value lost: %s", sent[0].Value)
	}
}

func TestClassifyWalletError(t *testing.T) {
	cases := []struct {
		err      error
		kind     WalletErrorKind
		approval string
		trade    string
	}{
		{errors.New("MetaMask Tx Signature: User denied transaction signature."), WalletErrorUserRejected, "User rejected approval", "Transaction rejected by user"},
		{errors.New("user rejected the request"), WalletErrorUserRejected, "User rejected approval", "Transaction rejected by user"},
		{errors.New("insufficient funds for gas * price + value"), WalletErrorInsufficientFunds, "Insufficient ETH for gas", "Insufficient funds for transaction + gas"},
		{errors.New("nonce too low"), WalletErrorNonce, "Transaction nonce error. Try again", "Transaction nonce error. Try again"},
		{errors.New("execution reverted"), WalletErrorOther, "execution reverted", "execution reverted"},
	}
	for _, tc := range cases {
		we := ClassifyWalletError(tc.err)
		if we.Kind != tc.kind {
			t.Fatalf("%q: kind %s want %s", tc.err, we.Kind, tc.kind)
		}
		if we.ApprovalMessage() != tc.approval || we.TradeMessage() != tc.trade {
			t.Fatalf("%q: messages %q / %q", tc.err, we.ApprovalMessage(), we.TradeMessage())
		}
	}
	if ClassifyWalletError(nil) != nil {
		t.Fatalf("nil error classified")
	}
}

func TestWaitMined(t *testing.T) {
	p := txbuildertest.New()
	polls := 0
	p.Handle("eth_getTransactionReceipt", func(args []json.RawMessage) (interface{}, error) {
		polls++
		if polls < 3 {
			return nil, nil
		}
		return map[string]string{"status": "0x1", "blockNumber": "0x2", "gasUsed": "0x1"}, nil
	})
	r, err := WaitMined(context.Background(), p, common.HexToHash("0x01"), time.Millisecond)
	if err != nil {
		t.Fatalf("WaitMined error: %v", err)
	}
	if polls != 3 || r.BlockNumber.ToInt().Int64() != 2 {
		t.Fatalf("unexpected polls=%d receipt=%+v", polls, r)
	}
}

func TestWaitMinedReverted(t *testing.T) {
	p := txbuildertest.New()
	p.Value("eth_getTransactionReceipt", map[string]string{"status": "0x0", "blockNumber": "0x2", "gasUsed": "0x1"})
	_, err := WaitMined(context.Background(), p, common.HexToHash("0x01"), time.Millisecond)
	if !errors.Is(err, ErrReverted) {
		t.Fatalf("expected ErrReverted, got %v", err)
	}
}

func TestReadAllowanceAndProbe(t *testing.T) {
	p := txbuildertest.New()
	p.EthCallRouter(map[string]func(txbuildertest.EthCall) (string, error){
		SelectorAllowance.Hex(): func(txbuildertest.EthCall) (string, error) { return txbuildertest.Word(big.NewInt(50)), nil },
		SelectorDecimals.Hex():  func(txbuildertest.EthCall) (string, error) { return txbuildertest.Word(big.NewInt(18)), nil },
		SelectorSymbol.Hex(): func(txbuildertest.EthCall) (string, error) {
			return "0x" + hex32(big.NewInt(32)) + hex32(big.NewInt(4)) + "4d4f4f4e" + "00000000000000000000000000000000000000000000000000000000", nil
		},
	})
	token := common.HexToAddress("0x3333333333333333333333333333333333333333")
	owner := common.HexToAddress("0x1111111111111111111111111111111111111111")

	allowance, err := ReadAllowance(context.Background(), p, token, owner, owner)
	if err != nil || allowance.Int64() != 50 {
		t.Fatalf("ReadAllowance: %v %v", allowance, err)
	}
	info, err := ProbeToken(context.Background(), p, token)
	if err != nil {
		t.Fatalf("ProbeToken error: %v", err)
	}
	if info.Decimals != 18 || info.Symbol != "MOON" || info.Name != "" {
		t.Fatalf("unexpected info: %+v", info)
	}
}

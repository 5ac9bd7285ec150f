package txbuilder

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
)

// Sender estimates gas for a draft, merges the parameters and submits it
// through the wallet provider. Nonces are assigned by the wallet.
type Sender struct {
	provider Provider
	gas      *GasEstimator
	logger   *slog.Logger
}

func NewSender(provider Provider, gas *GasEstimator, logger *slog.Logger) *Sender {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sender{provider: provider, gas: gas, logger: logger}
}

func (s *Sender) Send(ctx context.Context, tx TxArgs, fallbackGas uint64) (common.Hash, error) {
	if s.provider == nil || s.gas == nil {
		return common.Hash{}, errors.New("provider and gas estimator are required")
	}
	est := s.gas.Estimate(ctx, tx, fallbackGas)
	if est.FellBack() {
		s.logger.Warn("submitting with fallback gas parameters", "to", addrToHex(tx.To), "error", est.Err)
	}
	params, err := est.Get()
	if err != nil {
		return common.Hash{}, err
	}
	params.Apply(&tx)

	var hash common.Hash
	if err := s.provider.CallContext(ctx, &hash, "eth_sendTransaction", tx); err != nil {
		return common.Hash{}, err
	}
	s.logger.Info("transaction submitted", "hash", hash.Hex(), "to", addrToHex(tx.To), "gas", uint64(params.Gas), "dynamic_fee", params.IsDynamic())
	return hash, nil
}

func (s *Sender) Provider() Provider { return s.provider }

func (s *Sender) Gas() *GasEstimator { return s.gas }

func addrToHex(addr *common.Address) string {
	if addr == nil {
		return ""
	}
	return addr.Hex()
}

package proofcache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/brojonat/railsync/service/evm"
	"github.com/brojonat/railsync/service/gas"
	"github.com/brojonat/railsync/service/metrics"
	"github.com/brojonat/railsync/service/network"
)

// GasDetailsSetter applies gas details to a transaction about to be broadcast.
type GasDetailsSetter interface {
	SetGasDetails(name network.Name, tx *evm.ContractTransaction, details gas.Details, sendWithPublicWallet bool) error
}

// BatchGasPolicy reports whether a network's proofs commit to an overall
// batch minimum gas price.
type BatchGasPolicy interface {
	ShouldSetOverallBatchMinGasPrice(name network.Name) bool
}

// Prover generates a proof for a request. Proof construction itself lives
// outside this service.
type Prover interface {
	Prove(ctx context.Context, req ProofRequest) (*ProofResult, error)
}

// Cache holds at most one proved transaction. A new proof replaces the old
// one; a proof is only ever released for a request whose declared
// parameters match it exactly.
type Cache struct {
	mu     sync.Mutex
	proved *ProvedTransaction

	gas      GasDetailsSetter
	batchGas BatchGasPolicy
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New creates an empty cache.
func New(gasSetter GasDetailsSetter, batchGas BatchGasPolicy, m *metrics.Metrics, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	if m != nil {
		types := make([]string, 0, len(policies))
		for _, pt := range proofTypes() {
			types = append(types, string(pt))
		}
		m.InitProofValidations(types)
	}
	return &Cache{
		gas:      gasSetter,
		batchGas: batchGas,
		metrics:  m,
		logger:   logger,
	}
}

// Set replaces the cached proof with a copy of tx. A nil tx clears the slot.
func (c *Cache) Set(tx *ProvedTransaction) error {
	if tx != nil {
		if tx.Transaction.From != nil {
			return ErrInvalidState
		}
		if _, err := policyFor(tx.ProofType); err != nil {
			return err
		}
	}

	owned := tx.Clone()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.proved = owned
	return nil
}

// Get returns a copy of the cached proof, if any.
func (c *Cache) Get() (*ProvedTransaction, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.proved.Clone(), c.proved != nil
}

// Clear empties the slot.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.proved = nil
}

// Validate checks params against the cached proof. Checks run in a fixed
// order and the first mismatch is returned.
func (c *Cache) Validate(name network.Name, params ProofParams) error {
	c.mu.Lock()
	proved := c.proved
	c.mu.Unlock()

	err := c.validate(proved, name, params)
	if c.metrics != nil {
		c.metrics.RecordProofValidation(string(params.ProofType), mismatchLabel(err))
	}
	return err
}

func (c *Cache) validate(cached *ProvedTransaction, name network.Name, params ProofParams) error {
	if cached == nil {
		return ErrNoProof
	}
	if cached.ProofType != params.ProofType {
		return ErrProofTypeMismatch
	}
	policy, err := policyFor(params.ProofType)
	if err != nil {
		return err
	}
	if cached.RailgunWalletID != params.RailgunWalletID {
		return ErrWalletMismatch
	}
	if policy.transferFields {
		if cached.ShowSenderAddressToRecipient != params.ShowSenderAddressToRecipient {
			return ErrSenderVisibilityMismatch
		}
		if !sameMemo(cached.MemoText, params.MemoText) {
			return ErrMemoMismatch
		}
	}
	if policy.erc20Recipients &&
		!sameUnordered(params.ERC20AmountRecipients, cached.ERC20AmountRecipients, sameERC20AmountRecipient) {
		return ErrERC20RecipientsMismatch
	}
	if !sameUnordered(params.NFTAmountRecipients, cached.NFTAmountRecipients, sameNFTAmountRecipient) {
		return ErrNFTRecipientsMismatch
	}
	if policy.relayAdaptLegs {
		if !sameOrdered(params.RelayAdaptUnshieldERC20Amounts, cached.RelayAdaptUnshieldERC20Amounts, sameERC20Amount) {
			return ErrRelayAdaptUnshieldERC20AmountsMismatch
		}
		if !sameOrdered(params.RelayAdaptUnshieldNFTAmounts, cached.RelayAdaptUnshieldNFTAmounts, sameNFTAmount) {
			return ErrRelayAdaptUnshieldNFTAmountsMismatch
		}
		if !sameOrdered(params.RelayAdaptShieldERC20Recipients, cached.RelayAdaptShieldERC20Recipients, sameERC20Recipient) {
			return ErrRelayAdaptShieldERC20RecipientsMismatch
		}
		if !sameOrdered(params.RelayAdaptShieldNFTRecipients, cached.RelayAdaptShieldNFTRecipients, sameNFTAmount) {
			return ErrRelayAdaptShieldNFTRecipientsMismatch
		}
	}
	if policy.crossContractCalls && !evm.SameCalls(params.CrossContractCalls, cached.CrossContractCalls) {
		return ErrCrossContractCallsMismatch
	}
	if !sameRelayerFee(cached.RelayerFeeERC20AmountRecipient, params.RelayerFeeERC20AmountRecipient) {
		return ErrRelayerFeeMismatch
	}
	if cached.SendWithPublicWallet != params.SendWithPublicWallet {
		return ErrPublicWalletMismatch
	}
	if c.batchGas != nil && c.batchGas.ShouldSetOverallBatchMinGasPrice(name) &&
		!evm.EqualBig(cached.OverallBatchMinGasPrice, params.OverallBatchMinGasPrice) {
		return ErrBatchGasPriceMismatch
	}
	return nil
}

// Finalize validates params against the cached proof and returns a copy of
// its transaction with gas details applied. The cached proof is not modified.
func (c *Cache) Finalize(name network.Name, params ProofParams, details gas.Details) (*FinalizedTransaction, error) {
	c.mu.Lock()
	proved := c.proved
	c.mu.Unlock()

	err := c.validate(proved, name, params)
	if c.metrics != nil {
		c.metrics.RecordProofValidation(string(params.ProofType), mismatchLabel(err))
	}
	if err != nil {
		c.logger.Warn("rejected cached proof",
			"network", name,
			"proof_type", params.ProofType,
			"error", err,
		)
		return nil, fmt.Errorf("invalid proof for this transaction: %w", err)
	}

	tx := proved.Transaction.Clone()
	if err := c.gas.SetGasDetails(name, &tx, details, params.SendWithPublicWallet); err != nil {
		return nil, fmt.Errorf("failed to set gas details: %w", err)
	}

	return &FinalizedTransaction{
		Transaction: tx,
		Nullifiers:  append([]string(nil), proved.Nullifiers...),
	}, nil
}

// GenerateProof clears the slot, asks the prover for a proof and caches the
// result. A failed attempt leaves the slot empty.
func (c *Cache) GenerateProof(ctx context.Context, prover Prover, req ProofRequest) error {
	if _, err := policyFor(req.ProofType); err != nil {
		return err
	}

	c.Clear()

	c.logger.DebugContext(ctx, "generating proof",
		"network", req.Network,
		"proof_type", req.ProofType,
		"wallet_id", req.RailgunWalletID,
	)

	result, err := prover.Prove(ctx, req)
	if err != nil {
		return fmt.Errorf("generate %s proof: %w", req.ProofType, err)
	}

	proved := &ProvedTransaction{
		ProofParams: req.ProofParams,
		Transaction: result.Transaction,
		Nullifiers:  result.Nullifiers,
	}
	if err := c.Set(proved); err != nil {
		return fmt.Errorf("generate %s proof: %w", req.ProofType, err)
	}

	c.logger.InfoContext(ctx, "cached proof",
		"network", req.Network,
		"proof_type", req.ProofType,
		"nullifiers", len(result.Nullifiers),
	)
	return nil
}

package proofcache

import (
	"math/big"

	"github.com/brojonat/railsync/service/evm"
)

// Clone returns a deep copy. Amounts, lists, the memo, the relayer fee and
// the transaction are all copied, so neither copy can change the other.
func (p *ProvedTransaction) Clone() *ProvedTransaction {
	if p == nil {
		return nil
	}
	return &ProvedTransaction{
		ProofParams: p.ProofParams.Clone(),
		Transaction: p.Transaction.Clone(),
		Nullifiers:  cloneSlice(p.Nullifiers, func(s string) string { return s }),
	}
}

// Clone returns a deep copy of the parameters.
func (p ProofParams) Clone() ProofParams {
	out := p
	if p.MemoText != nil {
		memo := *p.MemoText
		out.MemoText = &memo
	}
	out.ERC20AmountRecipients = cloneSlice(p.ERC20AmountRecipients, cloneERC20AmountRecipient)
	out.NFTAmountRecipients = cloneSlice(p.NFTAmountRecipients, func(r NFTAmountRecipient) NFTAmountRecipient {
		r.NFTAmount = cloneNFTAmount(r.NFTAmount)
		return r
	})
	out.RelayAdaptUnshieldERC20Amounts = cloneSlice(p.RelayAdaptUnshieldERC20Amounts, func(a ERC20Amount) ERC20Amount {
		a.Amount = cloneBig(a.Amount)
		return a
	})
	out.RelayAdaptUnshieldNFTAmounts = cloneSlice(p.RelayAdaptUnshieldNFTAmounts, cloneNFTAmount)
	out.RelayAdaptShieldERC20Recipients = cloneSlice(p.RelayAdaptShieldERC20Recipients, func(r ERC20Recipient) ERC20Recipient { return r })
	out.RelayAdaptShieldNFTRecipients = cloneSlice(p.RelayAdaptShieldNFTRecipients, cloneNFTAmount)
	out.CrossContractCalls = cloneSlice(p.CrossContractCalls, evm.ContractTransaction.Clone)
	if p.RelayerFeeERC20AmountRecipient != nil {
		fee := cloneERC20AmountRecipient(*p.RelayerFeeERC20AmountRecipient)
		out.RelayerFeeERC20AmountRecipient = &fee
	}
	out.OverallBatchMinGasPrice = cloneBig(p.OverallBatchMinGasPrice)
	return out
}

func cloneERC20AmountRecipient(r ERC20AmountRecipient) ERC20AmountRecipient {
	r.Amount = cloneBig(r.Amount)
	return r
}

func cloneNFTAmount(a NFTAmount) NFTAmount {
	a.Amount = cloneBig(a.Amount)
	return a
}

// cloneSlice copies s element-wise. nil stays nil.
func cloneSlice[T any](s []T, clone func(T) T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	for i, v := range s {
		out[i] = clone(v)
	}
	return out
}

func cloneBig(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

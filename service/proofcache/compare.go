package proofcache

import (
	"strings"

	"github.com/brojonat/railsync/service/evm"
)

// Addresses are hex and compared case-insensitively. A nil slice equals an
// empty one.

func sameAddress(a, b string) bool {
	return strings.EqualFold(a, b)
}

func sameMemo(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func sameERC20AmountRecipient(a, b ERC20AmountRecipient) bool {
	return sameAddress(a.TokenAddress, b.TokenAddress) &&
		sameAddress(a.RecipientAddress, b.RecipientAddress) &&
		evm.EqualBig(a.Amount, b.Amount)
}

func sameNFTAmount(a, b NFTAmount) bool {
	return sameAddress(a.NFTAddress, b.NFTAddress) &&
		a.NFTTokenType == b.NFTTokenType &&
		strings.EqualFold(a.TokenSubID, b.TokenSubID) &&
		evm.EqualBig(a.Amount, b.Amount)
}

func sameNFTAmountRecipient(a, b NFTAmountRecipient) bool {
	return sameNFTAmount(a.NFTAmount, b.NFTAmount) &&
		sameAddress(a.RecipientAddress, b.RecipientAddress)
}

func sameERC20Amount(a, b ERC20Amount) bool {
	return sameAddress(a.TokenAddress, b.TokenAddress) && evm.EqualBig(a.Amount, b.Amount)
}

func sameERC20Recipient(a, b ERC20Recipient) bool {
	return sameAddress(a.TokenAddress, b.TokenAddress) &&
		sameAddress(a.RecipientAddress, b.RecipientAddress)
}

// sameRelayerFee compares optional relayer fees. Absent only equals absent.
func sameRelayerFee(a, b *ERC20AmountRecipient) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return sameERC20AmountRecipient(*a, *b)
}

// sameUnordered reports whether a and b hold the same elements with the same
// multiplicity, in any order.
func sameUnordered[T any](a, b []T, eq func(T, T) bool) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
	for _, x := range a {
		found := false
		for j, y := range b {
			if !used[j] && eq(x, y) {
				used[j] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// sameOrdered compares element-wise in order.
func sameOrdered[T any](a, b []T, eq func(T, T) bool) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !eq(a[i], b[i]) {
			return false
		}
	}
	return true
}

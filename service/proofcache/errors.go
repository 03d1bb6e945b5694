package proofcache

import "errors"

var (
	// ErrInvalidState is returned when a proved transaction cannot be cached.
	ErrInvalidState = errors.New("cannot cache a transaction with a 'from' address")

	// ErrUnknownProofType is returned for proof types with no validation policy.
	ErrUnknownProofType = errors.New("unknown proof type")

	// Validation failures. Each names the first field that did not match.
	ErrNoProof                                 = errors.New("no proof found")
	ErrProofTypeMismatch                       = errors.New("mismatch: proof type")
	ErrWalletMismatch                          = errors.New("mismatch: railgun wallet id")
	ErrSenderVisibilityMismatch                = errors.New("mismatch: show sender address to recipient")
	ErrMemoMismatch                            = errors.New("mismatch: memo text")
	ErrERC20RecipientsMismatch                 = errors.New("mismatch: erc20 amount recipients")
	ErrNFTRecipientsMismatch                   = errors.New("mismatch: nft amount recipients")
	ErrRelayAdaptUnshieldERC20AmountsMismatch  = errors.New("mismatch: relay adapt unshield erc20 amounts")
	ErrRelayAdaptUnshieldNFTAmountsMismatch    = errors.New("mismatch: relay adapt unshield nft amounts")
	ErrRelayAdaptShieldERC20RecipientsMismatch = errors.New("mismatch: relay adapt shield erc20 recipients")
	ErrRelayAdaptShieldNFTRecipientsMismatch   = errors.New("mismatch: relay adapt shield nft recipients")
	ErrCrossContractCallsMismatch              = errors.New("mismatch: cross contract calls")
	ErrRelayerFeeMismatch                      = errors.New("mismatch: relayer fee erc20 amount recipient")
	ErrPublicWalletMismatch                    = errors.New("mismatch: send with public wallet")
	ErrBatchGasPriceMismatch                   = errors.New("mismatch: overall batch min gas price")
)

// mismatchLabel returns a short metrics label for a validation error.
func mismatchLabel(err error) string {
	switch {
	case err == nil:
		return "valid"
	case errors.Is(err, ErrNoProof):
		return "no_proof"
	case errors.Is(err, ErrProofTypeMismatch):
		return "proof_type"
	case errors.Is(err, ErrWalletMismatch):
		return "wallet"
	case errors.Is(err, ErrSenderVisibilityMismatch):
		return "sender_visibility"
	case errors.Is(err, ErrMemoMismatch):
		return "memo"
	case errors.Is(err, ErrERC20RecipientsMismatch):
		return "erc20_recipients"
	case errors.Is(err, ErrNFTRecipientsMismatch):
		return "nft_recipients"
	case errors.Is(err, ErrRelayAdaptUnshieldERC20AmountsMismatch),
		errors.Is(err, ErrRelayAdaptUnshieldNFTAmountsMismatch),
		errors.Is(err, ErrRelayAdaptShieldERC20RecipientsMismatch),
		errors.Is(err, ErrRelayAdaptShieldNFTRecipientsMismatch):
		return "relay_adapt"
	case errors.Is(err, ErrCrossContractCallsMismatch):
		return "cross_contract_calls"
	case errors.Is(err, ErrRelayerFeeMismatch):
		return "relayer_fee"
	case errors.Is(err, ErrPublicWalletMismatch):
		return "public_wallet"
	case errors.Is(err, ErrBatchGasPriceMismatch):
		return "batch_gas_price"
	default:
		return "error"
	}
}

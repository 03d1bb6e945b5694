package proofcache

import (
	"math/big"

	"github.com/brojonat/railsync/service/evm"
	"github.com/brojonat/railsync/service/network"
)

// ProofType is the kind of transaction action a proof was generated for.
type ProofType string

const (
	ProofTypeTransfer           ProofType = "Transfer"
	ProofTypeUnshield           ProofType = "Unshield"
	ProofTypeUnshieldBaseToken  ProofType = "UnshieldBaseToken"
	ProofTypeCrossContractCalls ProofType = "CrossContractCalls"
)

// ERC20Amount is a token and an amount.
type ERC20Amount struct {
	TokenAddress string   `json:"token_address"`
	Amount       *big.Int `json:"amount"`
}

// ERC20AmountRecipient is a token amount sent to a recipient.
type ERC20AmountRecipient struct {
	TokenAddress     string   `json:"token_address"`
	Amount           *big.Int `json:"amount"`
	RecipientAddress string   `json:"recipient_address"`
}

// ERC20Recipient is a token shielded to a recipient.
type ERC20Recipient struct {
	TokenAddress     string `json:"token_address"`
	RecipientAddress string `json:"recipient_address"`
}

// NFTTokenType distinguishes NFT standards.
type NFTTokenType int

const (
	NFTTokenTypeERC721  NFTTokenType = 1
	NFTTokenTypeERC1155 NFTTokenType = 2
)

// NFTAmount is an NFT (address, standard, sub id) and an amount.
type NFTAmount struct {
	NFTAddress   string       `json:"nft_address"`
	NFTTokenType NFTTokenType `json:"nft_token_type"`
	TokenSubID   string       `json:"token_sub_id"`
	Amount       *big.Int     `json:"amount"`
}

// NFTAmountRecipient is an NFT amount sent to a recipient.
type NFTAmountRecipient struct {
	NFTAmount
	RecipientAddress string `json:"recipient_address"`
}

// ProofParams are the declared parameters a proof commits to. The same
// struct describes a cached proof and a live request validated against it.
type ProofParams struct {
	ProofType       ProofType `json:"proof_type"`
	RailgunWalletID string    `json:"railgun_wallet_id"`

	// Transfer only.
	ShowSenderAddressToRecipient bool    `json:"show_sender_address_to_recipient"`
	MemoText                     *string `json:"memo_text,omitempty"`

	ERC20AmountRecipients []ERC20AmountRecipient `json:"erc20_amount_recipients"`
	NFTAmountRecipients   []NFTAmountRecipient   `json:"nft_amount_recipients"`

	// Relay-adapt legs, CrossContractCalls and UnshieldBaseToken only.
	RelayAdaptUnshieldERC20Amounts  []ERC20Amount    `json:"relay_adapt_unshield_erc20_amounts,omitempty"`
	RelayAdaptUnshieldNFTAmounts    []NFTAmount      `json:"relay_adapt_unshield_nft_amounts,omitempty"`
	RelayAdaptShieldERC20Recipients []ERC20Recipient `json:"relay_adapt_shield_erc20_recipients,omitempty"`
	RelayAdaptShieldNFTRecipients   []NFTAmount      `json:"relay_adapt_shield_nft_recipients,omitempty"`

	// CrossContractCalls only.
	CrossContractCalls []evm.ContractTransaction `json:"cross_contract_calls,omitempty"`

	RelayerFeeERC20AmountRecipient *ERC20AmountRecipient `json:"relayer_fee_erc20_amount_recipient,omitempty"`
	SendWithPublicWallet           bool                  `json:"send_with_public_wallet"`
	OverallBatchMinGasPrice        *big.Int              `json:"overall_batch_min_gas_price,omitempty"`
}

// ProvedTransaction is a generated proof together with the parameters it
// was generated for. Transaction.From is never set on a cached value.
type ProvedTransaction struct {
	ProofParams
	Transaction evm.ContractTransaction `json:"transaction"`
	Nullifiers  []string                `json:"nullifiers"`
}

// FinalizedTransaction is a cached transaction with gas details applied,
// ready to be signed and broadcast.
type FinalizedTransaction struct {
	Transaction evm.ContractTransaction `json:"transaction"`
	Nullifiers  []string                `json:"nullifiers"`
}

// ProofRequest asks a Prover to generate a proof for the given parameters.
type ProofRequest struct {
	Network network.Name `json:"network"`
	ProofParams
}

// ProofResult is what a Prover returns.
type ProofResult struct {
	Transaction evm.ContractTransaction `json:"transaction"`
	Nullifiers  []string                `json:"nullifiers"`
}

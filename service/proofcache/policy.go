package proofcache

import "fmt"

// validationPolicy lists which conditional checks apply to a proof type.
type validationPolicy struct {
	transferFields     bool
	erc20Recipients    bool
	relayAdaptLegs     bool
	crossContractCalls bool
}

var policies = map[ProofType]validationPolicy{
	ProofTypeTransfer: {
		transferFields:  true,
		erc20Recipients: true,
	},
	ProofTypeUnshield: {
		erc20Recipients: true,
	},
	ProofTypeUnshieldBaseToken: {
		erc20Recipients: true,
		relayAdaptLegs:  true,
	},
	ProofTypeCrossContractCalls: {
		relayAdaptLegs:     true,
		crossContractCalls: true,
	},
}

func policyFor(t ProofType) (validationPolicy, error) {
	p, ok := policies[t]
	if !ok {
		return validationPolicy{}, fmt.Errorf("%w: %q", ErrUnknownProofType, t)
	}
	return p, nil
}

// proofTypes returns every proof type that has a validation policy.
func proofTypes() []ProofType {
	return []ProofType{
		ProofTypeTransfer,
		ProofTypeUnshield,
		ProofTypeUnshieldBaseToken,
		ProofTypeCrossContractCalls,
	}
}

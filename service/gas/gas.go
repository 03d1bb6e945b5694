package gas

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/brojonat/railsync/service/evm"
	"github.com/brojonat/railsync/service/network"
)

// ErrGasTypeMismatch is returned when gas details were estimated for a
// different EVM transaction type than the network/wallet combination requires.
var ErrGasTypeMismatch = errors.New("invalid evm gas type for transaction")

// Details carries the gas parameters chosen for a broadcast.
// GasPrice applies to types 0 and 1; the fee caps apply to type 2.
type Details struct {
	EVMGasType           network.EVMGasType `json:"evm_gas_type"`
	GasEstimate          *big.Int           `json:"gas_estimate"`
	GasPrice             *big.Int           `json:"gas_price,omitempty"`
	MaxFeePerGas         *big.Int           `json:"max_fee_per_gas,omitempty"`
	MaxPriorityFeePerGas *big.Int           `json:"max_priority_fee_per_gas,omitempty"`
}

// gasLimitBufferBasisPoints pads the estimate by 20%.
const gasLimitBufferBasisPoints = 12000

// NetworkLookup resolves a network descriptor by name.
type NetworkLookup interface {
	ByName(name network.Name) (*network.Network, bool)
}

// Setter applies gas details to contract transactions.
type Setter struct {
	networks NetworkLookup
}

// NewSetter creates a Setter backed by the given network lookup.
func NewSetter(networks NetworkLookup) *Setter {
	return &Setter{networks: networks}
}

// CalculateGasLimit adds the standard buffer to a gas estimate.
func CalculateGasLimit(estimate *big.Int) *big.Int {
	limit := new(big.Int).Mul(estimate, big.NewInt(gasLimitBufferBasisPoints))
	return limit.Div(limit, big.NewInt(10000))
}

// EVMGasTypeForTransaction returns the transaction type a broadcast must use.
// Networks without EIP-1559 always use type 0. Otherwise a public wallet
// sends type 2 and a relayed transaction uses type 1.
func EVMGasTypeForTransaction(n *network.Network, sendWithPublicWallet bool) network.EVMGasType {
	if !n.SupportsEIP1559 {
		return network.EVMGasType0
	}
	if sendWithPublicWallet {
		return network.EVMGasType2
	}
	return network.EVMGasType1
}

// SetGasDetails writes gas limit, type and price fields onto tx.
func (s *Setter) SetGasDetails(name network.Name, tx *evm.ContractTransaction, details Details, sendWithPublicWallet bool) error {
	if tx == nil {
		return errors.New("transaction is required")
	}
	if details.GasEstimate == nil {
		return errors.New("gas estimate is required")
	}
	n, ok := s.networks.ByName(name)
	if !ok {
		return fmt.Errorf("unknown network: %s", name)
	}

	want := EVMGasTypeForTransaction(n, sendWithPublicWallet)
	if details.EVMGasType != want {
		return fmt.Errorf("%w: got %d, expected %d for %s", ErrGasTypeMismatch, details.EVMGasType, want, name)
	}

	typ := uint8(want)
	tx.Type = &typ
	tx.GasLimit = CalculateGasLimit(details.GasEstimate)

	switch details.EVMGasType {
	case network.EVMGasType0, network.EVMGasType1:
		if details.GasPrice == nil {
			return fmt.Errorf("gas price is required for evm gas type %d", details.EVMGasType)
		}
		tx.GasPrice = new(big.Int).Set(details.GasPrice)
		tx.MaxFeePerGas = nil
		tx.MaxPriorityFeePerGas = nil
	case network.EVMGasType2:
		if details.MaxFeePerGas == nil || details.MaxPriorityFeePerGas == nil {
			return errors.New("max fee and max priority fee are required for evm gas type 2")
		}
		tx.GasPrice = nil
		tx.MaxFeePerGas = new(big.Int).Set(details.MaxFeePerGas)
		tx.MaxPriorityFeePerGas = new(big.Int).Set(details.MaxPriorityFeePerGas)
	default:
		return fmt.Errorf("unsupported evm gas type %d", details.EVMGasType)
	}
	return nil
}

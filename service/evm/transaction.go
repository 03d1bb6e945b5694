package evm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ContractTransaction is an unsigned contract call built by the proof engine.
// Gas fields are filled in at broadcast time.
type ContractTransaction struct {
	To    common.Address  `json:"to"`
	Data  hexutil.Bytes   `json:"data"`
	Value *big.Int        `json:"value,omitempty"`
	From  *common.Address `json:"from,omitempty"`

	Type                 *uint8   `json:"type,omitempty"`
	GasLimit             *big.Int `json:"gasLimit,omitempty"`
	GasPrice             *big.Int `json:"gasPrice,omitempty"`
	MaxFeePerGas         *big.Int `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas *big.Int `json:"maxPriorityFeePerGas,omitempty"`
}

// Clone returns a deep copy so callers can mutate gas fields without touching the original.
func (t ContractTransaction) Clone() ContractTransaction {
	out := ContractTransaction{
		To:                   t.To,
		Data:                 append(hexutil.Bytes(nil), t.Data...),
		Value:                cloneBig(t.Value),
		GasLimit:             cloneBig(t.GasLimit),
		GasPrice:             cloneBig(t.GasPrice),
		MaxFeePerGas:         cloneBig(t.MaxFeePerGas),
		MaxPriorityFeePerGas: cloneBig(t.MaxPriorityFeePerGas),
	}
	if t.From != nil {
		from := *t.From
		out.From = &from
	}
	if t.Type != nil {
		typ := *t.Type
		out.Type = &typ
	}
	return out
}

// SameCall reports whether two transactions make the same call: same target,
// calldata, and value. Gas fields and sender are ignored.
func SameCall(a, b ContractTransaction) bool {
	return a.To == b.To &&
		string(a.Data) == string(b.Data) &&
		EqualBig(a.Value, b.Value)
}

// SameCalls compares two call lists element-wise, in order.
func SameCalls(a, b []ContractTransaction) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !SameCall(a[i], b[i]) {
			return false
		}
	}
	return true
}

// EqualBig compares two optional big integers. A nil value only equals nil.
func EqualBig(a, b *big.Int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Cmp(b) == 0
}

func cloneBig(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

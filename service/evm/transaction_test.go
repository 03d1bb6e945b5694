package evm

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

func TestClone_IsDeep(t *testing.T) {
	from := common.HexToAddress("0x01")
	typ := uint8(2)
	orig := ContractTransaction{
		To:       common.HexToAddress("0xabc"),
		Data:     []byte{0x12, 0x34},
		Value:    big.NewInt(7),
		From:     &from,
		Type:     &typ,
		GasLimit: big.NewInt(21000),
	}

	c := orig.Clone()
	c.Data[0] = 0xff
	c.Value.SetInt64(8)
	c.GasLimit.SetInt64(1)
	*c.Type = 0

	assert.Equal(t, byte(0x12), orig.Data[0])
	assert.Equal(t, int64(7), orig.Value.Int64())
	assert.Equal(t, int64(21000), orig.GasLimit.Int64())
	assert.Equal(t, uint8(2), *orig.Type)
	assert.Equal(t, from, *c.From)
}

func TestSameCalls(t *testing.T) {
	a := ContractTransaction{To: common.HexToAddress("0x4567"), Data: []byte{1}, Value: big.NewInt(0)}
	b := ContractTransaction{To: common.HexToAddress("0x4567"), Data: []byte{1}, Value: big.NewInt(0), GasLimit: big.NewInt(5)}
	c := ContractTransaction{To: common.HexToAddress("0x4567"), Data: []byte{2}}

	assert.True(t, SameCalls([]ContractTransaction{a}, []ContractTransaction{b}), "gas fields are ignored")
	assert.False(t, SameCalls([]ContractTransaction{a}, []ContractTransaction{c}))
	assert.False(t, SameCalls([]ContractTransaction{a, c}, []ContractTransaction{c, a}), "order matters")
	assert.False(t, SameCalls([]ContractTransaction{a}, nil))
	assert.True(t, SameCalls(nil, []ContractTransaction{}))
}

func TestEqualBig(t *testing.T) {
	assert.True(t, EqualBig(nil, nil))
	assert.False(t, EqualBig(big.NewInt(0), nil))
	assert.True(t, EqualBig(big.NewInt(4096), big.NewInt(0x1000)))
}

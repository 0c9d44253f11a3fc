package tropic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeAccessPolicy(t *testing.T) {
	policy := DecodeAccessPolicy(0x04030201)

	assert.Equal(t, SlotMask(0x01), policy[0])
	assert.Equal(t, SlotMask(0x02), policy[1])
	assert.Equal(t, SlotMask(0x03), policy[2])
	assert.Equal(t, SlotMask(0x04), policy[3])

	assert.Equal(t, SlotMask(0x01), policy.Cfg())
	assert.Equal(t, SlotMask(0x02), policy.Func())

	assert.Equal(t, uint32(0x04030201), policy.Encode())
}

func TestDecodeAccessPolicy_Erased(t *testing.T) {
	policy := DecodeAccessPolicy(ConfigErased)
	for _, field := range policy {
		for slot := uint8(0); slot <= PairingSlotMax; slot++ {
			assert.True(t, field.Has(slot))
		}
	}
}

func TestSlotMask(t *testing.T) {
	mask := SlotMask(0b0101)

	assert.True(t, mask.Has(0))
	assert.False(t, mask.Has(1))
	assert.True(t, mask.Has(2))
	assert.False(t, mask.Has(3))
	assert.Equal(t, []uint8{0, 2}, mask.Slots())
	assert.Equal(t, "slots 0,2", mask.String())

	// Bits above the last pairing slot are not slots.
	assert.False(t, SlotMask(0xF0).Has(4))
	assert.Empty(t, SlotMask(0xF0).Slots())
	assert.Equal(t, "none", SlotMask(0).String())
}

func TestConfigAddr_String(t *testing.T) {
	assert.Equal(t, "CFG_START_UP", CfgStartUp.String())
	assert.Equal(t, "CFG_UAP_ECDSA_SIGN", CfgUapEcdsaSign.String())
	assert.Equal(t, "config@0x0FE", ConfigAddr(0xFE).String())
}

func TestConfigAddrs(t *testing.T) {
	addrs := ConfigAddrs()
	assert.Len(t, addrs, len(configAddrNames))

	// Address order, every entry named.
	for i := 1; i < len(addrs); i++ {
		assert.Less(t, uint16(addrs[i-1]), uint16(addrs[i]))
	}
	for _, addr := range addrs {
		assert.Contains(t, configAddrNames, addr)
	}
}

package tropic

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// ConfigAddr addresses one 32-bit configuration object. The same address
// space exists twice: R-CONFIG (rewritable after an erase) and I-CONFIG
// (irreversible, bits can only be cleared). The chip applies the bitwise
// AND of both.
type ConfigAddr uint16

// Behavior configuration objects.
const (
	CfgStartUp   ConfigAddr = 0x00
	CfgSensors   ConfigAddr = 0x08
	CfgDebug     ConfigAddr = 0x10
	CfgGpo       ConfigAddr = 0x14
	CfgSleepMode ConfigAddr = 0x18
)

// User access privilege objects, one per command of the encrypted command
// set. Their values decode with DecodeAccessPolicy.
const (
	CfgUapPairingKeyWrite      ConfigAddr = 0x20
	CfgUapPairingKeyRead       ConfigAddr = 0x24
	CfgUapPairingKeyInvalidate ConfigAddr = 0x28
	CfgUapRConfigWriteErase    ConfigAddr = 0x30
	CfgUapRConfigRead          ConfigAddr = 0x34
	CfgUapIConfigWrite         ConfigAddr = 0x40
	CfgUapIConfigRead          ConfigAddr = 0x44
	CfgUapPing                 ConfigAddr = 0x100
	CfgUapMemDataWrite         ConfigAddr = 0x110
	CfgUapMemDataRead          ConfigAddr = 0x114
	CfgUapMemDataErase         ConfigAddr = 0x118
	CfgUapRandomValueGet       ConfigAddr = 0x120
	CfgUapEccKeyGenerate       ConfigAddr = 0x130
	CfgUapEccKeyStore          ConfigAddr = 0x134
	CfgUapEccKeyRead           ConfigAddr = 0x138
	CfgUapEccKeyErase          ConfigAddr = 0x13C
	CfgUapEcdsaSign            ConfigAddr = 0x140
	CfgUapEddsaSign            ConfigAddr = 0x144
	CfgUapMCounterInit         ConfigAddr = 0x150
	CfgUapMCounterGet          ConfigAddr = 0x154
	CfgUapMCounterUpdate       ConfigAddr = 0x158
	CfgUapMacAndDestroy        ConfigAddr = 0x160
)

// ConfigErased is the value of every configuration object before its first
// write: all features enabled, all permissions granted.
const ConfigErased uint32 = 0xFFFFFFFF

// Bits of the CfgStartUp object.
const (
	StartUpMBISTDisable      uint32 = 1 << 1
	StartUpRNGTestDisable    uint32 = 1 << 2
	StartUpMaintenanceEnable uint32 = 1 << 3
)

// Bits of the CfgSensors object. Each cleared bit disables one tamper or
// integrity monitor.
const (
	SensorPtrng0Test      uint32 = 1 << 0
	SensorPtrng1Test      uint32 = 1 << 1
	SensorOscillatorMon   uint32 = 1 << 2
	SensorShield          uint32 = 1 << 3
	SensorVoltageMon      uint32 = 1 << 4
	SensorGlitchDetector  uint32 = 1 << 5
	SensorTempSensor      uint32 = 1 << 6
	SensorLaserDetector   uint32 = 1 << 7
	SensorEMPulseDetector uint32 = 1 << 8
	SensorCPUAlert        uint32 = 1 << 9
	SensorPinVerifBitFlip uint32 = 1 << 10
	SensorSCBBitFlip      uint32 = 1 << 11
	SensorCPBBitFlip      uint32 = 1 << 12
	SensorECCBitFlip      uint32 = 1 << 13
	SensorRMemBitFlip     uint32 = 1 << 14
	SensorEKDBBitFlip     uint32 = 1 << 15
	SensorIMemBitFlip     uint32 = 1 << 16
	SensorPlatformBitFlip uint32 = 1 << 17
)

// Bits of the CfgDebug object.
const (
	DebugFwLogEnable uint32 = 1 << 0
)

// Bits of the CfgSleepMode object.
const (
	SleepModeEnable uint32 = 1 << 0
)

var configAddrNames = map[ConfigAddr]string{
	CfgStartUp:                 "CFG_START_UP",
	CfgSensors:                 "CFG_SENSORS",
	CfgDebug:                   "CFG_DEBUG",
	CfgGpo:                     "CFG_GPO",
	CfgSleepMode:               "CFG_SLEEP_MODE",
	CfgUapPairingKeyWrite:      "CFG_UAP_PAIRING_KEY_WRITE",
	CfgUapPairingKeyRead:       "CFG_UAP_PAIRING_KEY_READ",
	CfgUapPairingKeyInvalidate: "CFG_UAP_PAIRING_KEY_INVALIDATE",
	CfgUapRConfigWriteErase:    "CFG_UAP_R_CONFIG_WRITE_ERASE",
	CfgUapRConfigRead:          "CFG_UAP_R_CONFIG_READ",
	CfgUapIConfigWrite:         "CFG_UAP_I_CONFIG_WRITE",
	CfgUapIConfigRead:          "CFG_UAP_I_CONFIG_READ",
	CfgUapPing:                 "CFG_UAP_PING",
	CfgUapMemDataWrite:         "CFG_UAP_R_MEM_DATA_WRITE",
	CfgUapMemDataRead:          "CFG_UAP_R_MEM_DATA_READ",
	CfgUapMemDataErase:         "CFG_UAP_R_MEM_DATA_ERASE",
	CfgUapRandomValueGet:       "CFG_UAP_RANDOM_VALUE_GET",
	CfgUapEccKeyGenerate:       "CFG_UAP_ECC_KEY_GENERATE",
	CfgUapEccKeyStore:          "CFG_UAP_ECC_KEY_STORE",
	CfgUapEccKeyRead:           "CFG_UAP_ECC_KEY_READ",
	CfgUapEccKeyErase:          "CFG_UAP_ECC_KEY_ERASE",
	CfgUapEcdsaSign:            "CFG_UAP_ECDSA_SIGN",
	CfgUapEddsaSign:            "CFG_UAP_EDDSA_SIGN",
	CfgUapMCounterInit:         "CFG_UAP_MCOUNTER_INIT",
	CfgUapMCounterGet:          "CFG_UAP_MCOUNTER_GET",
	CfgUapMCounterUpdate:       "CFG_UAP_MCOUNTER_UPDATE",
	CfgUapMacAndDestroy:        "CFG_UAP_MAC_AND_DESTROY",
}

// ConfigAddrs lists every known configuration object in address order.
func ConfigAddrs() []ConfigAddr {
	return []ConfigAddr{
		CfgStartUp, CfgSensors, CfgDebug, CfgGpo, CfgSleepMode,
		CfgUapPairingKeyWrite, CfgUapPairingKeyRead, CfgUapPairingKeyInvalidate,
		CfgUapRConfigWriteErase, CfgUapRConfigRead,
		CfgUapIConfigWrite, CfgUapIConfigRead,
		CfgUapPing,
		CfgUapMemDataWrite, CfgUapMemDataRead, CfgUapMemDataErase,
		CfgUapRandomValueGet,
		CfgUapEccKeyGenerate, CfgUapEccKeyStore, CfgUapEccKeyRead, CfgUapEccKeyErase,
		CfgUapEcdsaSign, CfgUapEddsaSign,
		CfgUapMCounterInit, CfgUapMCounterGet, CfgUapMCounterUpdate,
		CfgUapMacAndDestroy,
	}
}

func (a ConfigAddr) String() string {
	if name, ok := configAddrNames[a]; ok {
		return name
	}
	return fmt.Sprintf("config@0x%03X", uint16(a))
}

// --- Access policies ---

// SlotMask is a set of pairing key slots, bit i standing for slot i.
type SlotMask uint8

// Has reports whether the mask contains the given pairing slot.
func (m SlotMask) Has(slot uint8) bool {
	return slot <= PairingSlotMax && m&(1<<slot) != 0
}

// Slots lists the contained pairing slots in ascending order.
func (m SlotMask) Slots() []uint8 {
	var slots []uint8
	for s := uint8(0); s <= PairingSlotMax; s++ {
		if m.Has(s) {
			slots = append(slots, s)
		}
	}
	return slots
}

func (m SlotMask) String() string {
	slots := m.Slots()
	if len(slots) == 0 {
		return "none"
	}
	parts := make([]string, len(slots))
	for i, s := range slots {
		parts[i] = strconv.Itoa(int(s))
	}
	return "slots " + strings.Join(parts, ",")
}

// AccessPolicy is the decoded form of a user access privilege object: four
// 8-bit slot masks packed into the 32-bit value, lowest byte first. Most
// commands use two fields, configuration access and function access; the
// pairing key objects carry one field per target slot; single-permission
// objects use only the first.
type AccessPolicy [4]SlotMask

// DecodeAccessPolicy unpacks a user access privilege value.
func DecodeAccessPolicy(value uint32) AccessPolicy {
	return AccessPolicy{
		SlotMask(value),
		SlotMask(value >> 8),
		SlotMask(value >> 16),
		SlotMask(value >> 24),
	}
}

// Encode packs the policy back into a register value.
func (p AccessPolicy) Encode() uint32 {
	return uint32(p[0]) | uint32(p[1])<<8 | uint32(p[2])<<16 | uint32(p[3])<<24
}

// Cfg is the configuration-access field of a two-field policy.
func (p AccessPolicy) Cfg() SlotMask { return p[0] }

// Func is the function-access field of a two-field policy.
func (p AccessPolicy) Func() SlotMask { return p[1] }

// configPad separates the address from the value in config write commands.
const configPad byte = 0x4D

// --- Config commands ---

// RConfigWrite sets an R-CONFIG object. An object holds ConfigErased until
// written and accepts only one write between erases.
//
// Command: [0x20][addr:2][pad:1][value:4].
func (c *Client) RConfigWrite(addr ConfigAddr, value uint32) error {
	data := make([]byte, 7)
	binary.LittleEndian.PutUint16(data, uint16(addr))
	data[2] = configPad
	binary.LittleEndian.PutUint32(data[3:], value)

	_, err := c.execute(cmdRConfigWrite, data)
	return err
}

// RConfigRead returns the value of an R-CONFIG object.
//
// Command: [0x21][addr:2]. Response: [pad:3][value:4].
func (c *Client) RConfigRead(addr ConfigAddr) (uint32, error) {
	return c.configRead(cmdRConfigRead, addr)
}

// RConfigErase resets the whole R-CONFIG space to ConfigErased.
//
// Command: [0x22].
func (c *Client) RConfigErase() error {
	_, err := c.execute(cmdRConfigErase, nil)
	return err
}

// IConfigWrite clears bits in an I-CONFIG object. Set bits in value are
// ignored; cleared bits are cleared on the chip permanently.
//
// Command: [0x30][addr:2][pad:1][value:4].
func (c *Client) IConfigWrite(addr ConfigAddr, value uint32) error {
	data := make([]byte, 7)
	binary.LittleEndian.PutUint16(data, uint16(addr))
	data[2] = configPad
	binary.LittleEndian.PutUint32(data[3:], value)

	_, err := c.execute(cmdIConfigWrite, data)
	return err
}

// IConfigRead returns the value of an I-CONFIG object.
//
// Command: [0x31][addr:2]. Response: [pad:3][value:4].
func (c *Client) IConfigRead(addr ConfigAddr) (uint32, error) {
	return c.configRead(cmdIConfigRead, addr)
}

// EffectiveConfig returns the configuration the chip acts on: the bitwise
// AND of the object's R-CONFIG and I-CONFIG values.
func (c *Client) EffectiveConfig(addr ConfigAddr) (uint32, error) {
	r, err := c.RConfigRead(addr)
	if err != nil {
		return 0, err
	}
	i, err := c.IConfigRead(addr)
	if err != nil {
		return 0, err
	}
	return r & i, nil
}

// UserAccessPolicy reads and decodes the effective access policy of a user
// access privilege object.
func (c *Client) UserAccessPolicy(addr ConfigAddr) (AccessPolicy, error) {
	value, err := c.EffectiveConfig(addr)
	if err != nil {
		return AccessPolicy{}, err
	}
	return DecodeAccessPolicy(value), nil
}

func (c *Client) configRead(cmd byte, addr ConfigAddr) (uint32, error) {
	data := make([]byte, 2)
	binary.LittleEndian.PutUint16(data, uint16(addr))

	resp, err := c.execute(cmd, data)
	if err != nil {
		return 0, err
	}
	if len(resp) != 7 {
		return 0, fmt.Errorf("%w: config response is %d bytes", ErrResponseLength, len(resp))
	}
	return binary.LittleEndian.Uint32(resp[3:]), nil
}

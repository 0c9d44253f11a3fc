package chipmodel

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"math/big"

	"github.com/tropicsquare/go-tropic01/session"
)

// Encrypted command identifiers.
const (
	cmdPing                 byte = 0x01
	cmdPairingKeyWrite      byte = 0x10
	cmdPairingKeyRead       byte = 0x11
	cmdPairingKeyInvalidate byte = 0x12
	cmdRConfigWrite         byte = 0x20
	cmdRConfigRead          byte = 0x21
	cmdRConfigErase         byte = 0x22
	cmdIConfigWrite         byte = 0x30
	cmdIConfigRead          byte = 0x31
	cmdMemDataWrite         byte = 0x40
	cmdMemDataRead          byte = 0x41
	cmdMemDataErase         byte = 0x42
	cmdGetRandom            byte = 0x50
	cmdEccKeyGenerate       byte = 0x60
	cmdEccKeyStore          byte = 0x61
	cmdEccKeyRead           byte = 0x62
	cmdEccKeyErase          byte = 0x63
	cmdEcdsaSign            byte = 0x70
	cmdEddsaSign            byte = 0x71
	cmdMCounterInit         byte = 0x80
	cmdMCounterUpdate       byte = 0x81
	cmdMCounterGet          byte = 0x82
	cmdMacAndDestroy        byte = 0x90
)

const (
	curveP256    byte = 0x01
	curveEd25519 byte = 0x02

	originGenerated byte = 0x01
	originStored    byte = 0x02
)

// Configuration object addresses.
const (
	cfgStartUp   uint16 = 0x00
	cfgSensors   uint16 = 0x08
	cfgDebug     uint16 = 0x10
	cfgGpo       uint16 = 0x14
	cfgSleepMode uint16 = 0x18

	cfgUapPairingKeyWrite      uint16 = 0x20
	cfgUapPairingKeyRead       uint16 = 0x24
	cfgUapPairingKeyInvalidate uint16 = 0x28
	cfgUapRConfigWriteErase    uint16 = 0x30
	cfgUapRConfigRead          uint16 = 0x34
	cfgUapIConfigWrite         uint16 = 0x40
	cfgUapIConfigRead          uint16 = 0x44
	cfgUapPing                 uint16 = 0x100
	cfgUapMemDataWrite         uint16 = 0x110
	cfgUapMemDataRead          uint16 = 0x114
	cfgUapMemDataErase         uint16 = 0x118
	cfgUapRandomValueGet       uint16 = 0x120
	cfgUapEccKeyGenerate       uint16 = 0x130
	cfgUapEccKeyStore          uint16 = 0x134
	cfgUapEccKeyRead           uint16 = 0x138
	cfgUapEccKeyErase          uint16 = 0x13C
	cfgUapEcdsaSign            uint16 = 0x140
	cfgUapEddsaSign            uint16 = 0x144
	cfgUapMCounterInit         uint16 = 0x150
	cfgUapMCounterGet          uint16 = 0x154
	cfgUapMCounterUpdate       uint16 = 0x158
	cfgUapMacAndDestroy        uint16 = 0x160
)

const (
	configErased  uint32 = 0xFFFFFFFF
	debugFwLogBit uint32 = 1 << 0
)

var knownConfigAddrs = map[uint16]struct{}{
	cfgStartUp: {}, cfgSensors: {}, cfgDebug: {}, cfgGpo: {}, cfgSleepMode: {},
	cfgUapPairingKeyWrite: {}, cfgUapPairingKeyRead: {}, cfgUapPairingKeyInvalidate: {},
	cfgUapRConfigWriteErase: {}, cfgUapRConfigRead: {},
	cfgUapIConfigWrite: {}, cfgUapIConfigRead: {},
	cfgUapPing: {},
	cfgUapMemDataWrite: {}, cfgUapMemDataRead: {}, cfgUapMemDataErase: {},
	cfgUapRandomValueGet: {},
	cfgUapEccKeyGenerate: {}, cfgUapEccKeyStore: {}, cfgUapEccKeyRead: {}, cfgUapEccKeyErase: {},
	cfgUapEcdsaSign: {}, cfgUapEddsaSign: {},
	cfgUapMCounterInit: {}, cfgUapMCounterGet: {}, cfgUapMCounterUpdate: {},
	cfgUapMacAndDestroy: {},
}

// uapRules maps each command to the privilege object and permission field
// gating it. Field -1 selects the field by the target pairing slot in the
// command payload; the pairing key objects carry one field per slot.
type uapRule struct {
	addr  uint16
	field int
}

var uapRules = map[byte]uapRule{
	cmdPing:                 {cfgUapPing, 1},
	cmdPairingKeyWrite:      {cfgUapPairingKeyWrite, -1},
	cmdPairingKeyRead:       {cfgUapPairingKeyRead, -1},
	cmdPairingKeyInvalidate: {cfgUapPairingKeyInvalidate, -1},
	cmdRConfigWrite:         {cfgUapRConfigWriteErase, 0},
	cmdRConfigRead:          {cfgUapRConfigRead, 0},
	cmdRConfigErase:         {cfgUapRConfigWriteErase, 0},
	cmdIConfigWrite:         {cfgUapIConfigWrite, 0},
	cmdIConfigRead:          {cfgUapIConfigRead, 0},
	cmdMemDataWrite:         {cfgUapMemDataWrite, 1},
	cmdMemDataRead:          {cfgUapMemDataRead, 1},
	cmdMemDataErase:         {cfgUapMemDataErase, 1},
	cmdGetRandom:            {cfgUapRandomValueGet, 1},
	cmdEccKeyGenerate:       {cfgUapEccKeyGenerate, 1},
	cmdEccKeyStore:          {cfgUapEccKeyStore, 1},
	cmdEccKeyRead:           {cfgUapEccKeyRead, 1},
	cmdEccKeyErase:          {cfgUapEccKeyErase, 1},
	cmdEcdsaSign:            {cfgUapEcdsaSign, 1},
	cmdEddsaSign:            {cfgUapEddsaSign, 1},
	cmdMCounterInit:         {cfgUapMCounterInit, 1},
	cmdMCounterUpdate:       {cfgUapMCounterUpdate, 1},
	cmdMCounterGet:          {cfgUapMCounterGet, 1},
	cmdMacAndDestroy:        {cfgUapMacAndDestroy, 1},
}

// eccSlot holds one stored or generated key pair.
type eccSlot struct {
	curve  byte
	origin byte
	p256   *ecdsa.PrivateKey
	ed     ed25519.PrivateKey
}

// effectiveConfig is the value the chip acts on: R-CONFIG AND I-CONFIG,
// both defaulting to the erased value.
func (m *Model) effectiveConfig(addr uint16) uint32 {
	r, ok := m.rconfig[addr]
	if !ok {
		r = configErased
	}
	i, ok := m.iconfig[addr]
	if !ok {
		i = configErased
	}
	return r & i
}

// authorized checks the session's pairing slot against the command's
// access policy. Malformed payloads pass; the handler reports those.
func (m *Model) authorized(cmd []byte) bool {
	rule, ok := uapRules[cmd[0]]
	if !ok {
		return true
	}

	field := rule.field
	if field < 0 {
		if len(cmd) < 3 {
			return true
		}
		target := binary.LittleEndian.Uint16(cmd[1:3])
		if target >= session.PairingSlotCount {
			return true
		}
		field = int(target)
	}

	mask := byte(m.effectiveConfig(rule.addr) >> (8 * field)) //nolint:gosec // field is 0..3
	return mask&(1<<m.sess.slot) != 0
}

// runCommand executes one decrypted command and returns the result
// plaintext: a result code followed by the response payload.
func (m *Model) runCommand(cmd []byte) []byte {
	if len(cmd) == 0 {
		return []byte{byte(session.ResultInvalidCmd)}
	}

	if !m.authorized(cmd) {
		m.fwLogf("command 0x%02X denied for slot %d", cmd[0], m.sess.slot)
		return []byte{byte(session.ResultUnauthorized)}
	}

	payload := cmd[1:]

	switch cmd[0] {
	case cmdPing:
		return okResult(payload)

	case cmdGetRandom:
		return m.cmdRandom(payload)

	case cmdPairingKeyWrite:
		return m.cmdPairingKeyWrite(payload)
	case cmdPairingKeyRead:
		return m.cmdPairingKeyRead(payload)
	case cmdPairingKeyInvalidate:
		return m.cmdPairingKeyInvalidate(payload)

	case cmdRConfigWrite:
		return m.cmdConfigWrite(payload, false)
	case cmdRConfigRead:
		return m.cmdConfigRead(payload, m.rconfig)
	case cmdRConfigErase:
		return m.cmdRConfigErase(payload)
	case cmdIConfigWrite:
		return m.cmdConfigWrite(payload, true)
	case cmdIConfigRead:
		return m.cmdConfigRead(payload, m.iconfig)

	case cmdMemDataWrite:
		return m.cmdMemWrite(payload)
	case cmdMemDataRead:
		return m.cmdMemRead(payload)
	case cmdMemDataErase:
		return m.cmdMemErase(payload)

	case cmdEccKeyGenerate:
		return m.cmdEccGenerate(payload)
	case cmdEccKeyStore:
		return m.cmdEccStore(payload)
	case cmdEccKeyRead:
		return m.cmdEccRead(payload)
	case cmdEccKeyErase:
		return m.cmdEccErase(payload)

	case cmdEcdsaSign:
		return m.cmdEcdsaSign(payload)
	case cmdEddsaSign:
		return m.cmdEddsaSign(payload)

	case cmdMCounterInit:
		return m.cmdCounterInit(payload)
	case cmdMCounterUpdate:
		return m.cmdCounterUpdate(payload)
	case cmdMCounterGet:
		return m.cmdCounterGet(payload)

	case cmdMacAndDestroy:
		return m.cmdMacAndDestroy(payload)

	default:
		return []byte{byte(session.ResultInvalidCmd)}
	}
}

// okResult builds [RESULT_OK][data].
func okResult(data []byte) []byte {
	out := make([]byte, 0, 1+len(data))
	out = append(out, byte(session.ResultOK))
	out = append(out, data...)
	return out
}

// okPadded builds [RESULT_OK][pad zeros][data].
func okPadded(pad int, data []byte) []byte {
	out := make([]byte, 1+pad, 1+pad+len(data))
	out[0] = byte(session.ResultOK)
	return append(out, data...)
}

func fail(code session.Result) []byte {
	return []byte{byte(code)}
}

// --- Random ---

func (m *Model) cmdRandom(p []byte) []byte {
	if len(p) != 1 {
		return fail(session.ResultInvalidCmd)
	}
	data := make([]byte, int(p[0]))
	if _, err := rand.Read(data); err != nil {
		return fail(session.ResultFail)
	}
	return okPadded(3, data)
}

// --- Pairing keys ---

func (m *Model) cmdPairingKeyWrite(p []byte) []byte {
	if len(p) != 3+session.KeySize {
		return fail(session.ResultInvalidCmd)
	}
	slot := binary.LittleEndian.Uint16(p[:2])
	if slot >= session.PairingSlotCount {
		return fail(session.ResultFail)
	}
	if m.slots[slot].state != slotEmpty {
		return fail(session.ResultMemWriteFail)
	}

	m.slots[slot] = pairingSlot{
		state: slotOccupied,
		key:   append([]byte(nil), p[3:]...),
	}
	m.fwLogf("pairing key written, slot %d", slot)
	return okResult(nil)
}

func (m *Model) cmdPairingKeyRead(p []byte) []byte {
	if len(p) != 2 {
		return fail(session.ResultInvalidCmd)
	}
	slot := binary.LittleEndian.Uint16(p)
	if slot >= session.PairingSlotCount {
		return fail(session.ResultFail)
	}

	switch m.slots[slot].state {
	case slotEmpty:
		return fail(session.ResultKeyEmpty)
	case slotInvalidated:
		return fail(session.ResultKeyInvalid)
	default:
		return okPadded(3, m.slots[slot].key)
	}
}

func (m *Model) cmdPairingKeyInvalidate(p []byte) []byte {
	if len(p) != 2 {
		return fail(session.ResultInvalidCmd)
	}
	slot := binary.LittleEndian.Uint16(p)
	if slot >= session.PairingSlotCount {
		return fail(session.ResultFail)
	}
	if m.slots[slot].state == slotEmpty {
		return fail(session.ResultKeyEmpty)
	}

	m.slots[slot] = pairingSlot{state: slotInvalidated}
	m.fwLogf("pairing key invalidated, slot %d", slot)
	return okResult(nil)
}

// --- Configuration ---

func (m *Model) cmdConfigWrite(p []byte, irreversible bool) []byte {
	if len(p) != 7 {
		return fail(session.ResultInvalidCmd)
	}
	addr := binary.LittleEndian.Uint16(p[:2])
	value := binary.LittleEndian.Uint32(p[3:])
	if _, ok := knownConfigAddrs[addr]; !ok {
		return fail(session.ResultFail)
	}

	if irreversible {
		// I-CONFIG bits only ever go from one to zero.
		current, ok := m.iconfig[addr]
		if !ok {
			current = configErased
		}
		m.iconfig[addr] = current & value
		return okResult(nil)
	}

	if _, written := m.rconfig[addr]; written {
		return fail(session.ResultFail)
	}
	m.rconfig[addr] = value
	return okResult(nil)
}

func (m *Model) cmdConfigRead(p []byte, space map[uint16]uint32) []byte {
	if len(p) != 2 {
		return fail(session.ResultInvalidCmd)
	}
	addr := binary.LittleEndian.Uint16(p)
	if _, ok := knownConfigAddrs[addr]; !ok {
		return fail(session.ResultFail)
	}

	value, ok := space[addr]
	if !ok {
		value = configErased
	}
	out := make([]byte, 4)
	binary.LittleEndian.PutUint32(out, value)
	return okPadded(3, out)
}

func (m *Model) cmdRConfigErase(p []byte) []byte {
	if len(p) != 0 {
		return fail(session.ResultInvalidCmd)
	}
	m.rconfig = make(map[uint16]uint32)
	m.fwLogf("r-config erased")
	return okResult(nil)
}

// --- User memory ---

func (m *Model) cmdMemWrite(p []byte) []byte {
	if len(p) < 3 {
		return fail(session.ResultInvalidCmd)
	}
	slot := binary.LittleEndian.Uint16(p[:2])
	data := p[3:]
	if slot >= memSlotCount || len(data) > memSlotSize {
		return fail(session.ResultFail)
	}
	if _, occupied := m.memory[slot]; occupied {
		return fail(session.ResultMemWriteFail)
	}

	m.memory[slot] = append([]byte(nil), data...)
	return okResult(nil)
}

func (m *Model) cmdMemRead(p []byte) []byte {
	if len(p) != 2 {
		return fail(session.ResultInvalidCmd)
	}
	slot := binary.LittleEndian.Uint16(p)
	if slot >= memSlotCount {
		return fail(session.ResultFail)
	}

	data, ok := m.memory[slot]
	if !ok {
		return fail(session.ResultFail)
	}
	return okPadded(3, data)
}

func (m *Model) cmdMemErase(p []byte) []byte {
	if len(p) != 2 {
		return fail(session.ResultInvalidCmd)
	}
	slot := binary.LittleEndian.Uint16(p)
	if slot >= memSlotCount {
		return fail(session.ResultFail)
	}

	delete(m.memory, slot)
	return okResult(nil)
}

// --- Monotonic counters ---

func (m *Model) cmdCounterInit(p []byte) []byte {
	if len(p) != 7 {
		return fail(session.ResultInvalidCmd)
	}
	index := binary.LittleEndian.Uint16(p[:2])
	if index >= mcounterCount {
		return fail(session.ResultFail)
	}

	value := binary.LittleEndian.Uint32(p[3:])
	m.counters[index] = &value
	return okResult(nil)
}

func (m *Model) cmdCounterUpdate(p []byte) []byte {
	if len(p) != 2 {
		return fail(session.ResultInvalidCmd)
	}
	index := binary.LittleEndian.Uint16(p)
	if index >= mcounterCount {
		return fail(session.ResultFail)
	}

	counter := m.counters[index]
	if counter == nil {
		return fail(session.ResultCounterInvalid)
	}
	if *counter == 0 {
		return fail(session.ResultCounterUpdate)
	}
	*counter--
	return okResult(nil)
}

func (m *Model) cmdCounterGet(p []byte) []byte {
	if len(p) != 2 {
		return fail(session.ResultInvalidCmd)
	}
	index := binary.LittleEndian.Uint16(p)
	if index >= mcounterCount {
		return fail(session.ResultFail)
	}

	counter := m.counters[index]
	if counter == nil {
		return fail(session.ResultCounterInvalid)
	}
	out := make([]byte, 4)
	binary.LittleEndian.PutUint32(out, *counter)
	return okPadded(3, out)
}

// --- MAC and Destroy ---

func (m *Model) cmdMacAndDestroy(p []byte) []byte {
	if len(p) != 3+32 {
		return fail(session.ResultInvalidCmd)
	}
	slot := binary.LittleEndian.Uint16(p[:2])
	if slot >= macSlotCount {
		return fail(session.ResultFail)
	}

	mac := hmac.New(sha256.New, m.macSecrets[slot])
	mac.Write(p[3:])
	digest := mac.Sum(nil)

	// The slot secret is consumed by the computation.
	m.macSecrets[slot] = make([]byte, 32)

	return okPadded(3, digest)
}

// --- ECC keys ---

func (m *Model) cmdEccGenerate(p []byte) []byte {
	if len(p) != 3 {
		return fail(session.ResultInvalidCmd)
	}
	slot := binary.LittleEndian.Uint16(p[:2])
	if slot >= eccSlotCount {
		return fail(session.ResultFail)
	}
	if m.ecc[slot] != nil {
		return fail(session.ResultFail)
	}

	switch p[2] {
	case curveP256:
		key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			return fail(session.ResultFail)
		}
		m.ecc[slot] = &eccSlot{curve: curveP256, origin: originGenerated, p256: key}

	case curveEd25519:
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return fail(session.ResultFail)
		}
		m.ecc[slot] = &eccSlot{curve: curveEd25519, origin: originGenerated, ed: priv}

	default:
		return fail(session.ResultFail)
	}

	m.fwLogf("ecc key generated, slot %d", slot)
	return okResult(nil)
}

func (m *Model) cmdEccStore(p []byte) []byte {
	if len(p) != 15+32 {
		return fail(session.ResultInvalidCmd)
	}
	slot := binary.LittleEndian.Uint16(p[:2])
	if slot >= eccSlotCount {
		return fail(session.ResultFail)
	}
	if m.ecc[slot] != nil {
		return fail(session.ResultFail)
	}
	key := p[15:]

	switch p[2] {
	case curveP256:
		d := new(big.Int).SetBytes(key)
		if d.Sign() == 0 || d.Cmp(elliptic.P256().Params().N) >= 0 {
			return fail(session.ResultFail)
		}
		x, y := elliptic.P256().ScalarBaseMult(key) //nolint:staticcheck // raw scalar import
		m.ecc[slot] = &eccSlot{
			curve:  curveP256,
			origin: originStored,
			p256: &ecdsa.PrivateKey{
				PublicKey: ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y},
				D:         d,
			},
		}

	case curveEd25519:
		m.ecc[slot] = &eccSlot{
			curve:  curveEd25519,
			origin: originStored,
			ed:     ed25519.NewKeyFromSeed(key),
		}

	default:
		return fail(session.ResultFail)
	}

	m.fwLogf("ecc key stored, slot %d", slot)
	return okResult(nil)
}

func (m *Model) cmdEccRead(p []byte) []byte {
	if len(p) != 2 {
		return fail(session.ResultInvalidCmd)
	}
	slot := binary.LittleEndian.Uint16(p)
	if slot >= eccSlotCount {
		return fail(session.ResultFail)
	}
	entry := m.ecc[slot]
	if entry == nil {
		return fail(session.ResultECCInvalidKey)
	}

	var pub []byte
	if entry.curve == curveP256 {
		pub = make([]byte, 64)
		entry.p256.X.FillBytes(pub[:32])
		entry.p256.Y.FillBytes(pub[32:])
	} else {
		pub = append([]byte(nil), entry.ed.Public().(ed25519.PublicKey)...)
	}

	out := make([]byte, 16, 16+len(pub))
	out[0] = byte(session.ResultOK)
	out[1] = entry.curve
	out[2] = entry.origin
	return append(out, pub...)
}

func (m *Model) cmdEccErase(p []byte) []byte {
	if len(p) != 2 {
		return fail(session.ResultInvalidCmd)
	}
	slot := binary.LittleEndian.Uint16(p)
	if slot >= eccSlotCount {
		return fail(session.ResultFail)
	}

	m.ecc[slot] = nil
	return okResult(nil)
}

// --- Signing ---

func (m *Model) cmdEcdsaSign(p []byte) []byte {
	if len(p) != 15+32 {
		return fail(session.ResultInvalidCmd)
	}
	slot := binary.LittleEndian.Uint16(p[:2])
	if slot >= eccSlotCount {
		return fail(session.ResultFail)
	}
	entry := m.ecc[slot]
	if entry == nil || entry.curve != curveP256 {
		return fail(session.ResultECCInvalidKey)
	}

	r, s, err := ecdsa.Sign(rand.Reader, entry.p256, p[15:])
	if err != nil {
		return fail(session.ResultFail)
	}

	out := make([]byte, 16+64)
	out[0] = byte(session.ResultOK)
	r.FillBytes(out[16:48])
	s.FillBytes(out[48:80])
	return out
}

func (m *Model) cmdEddsaSign(p []byte) []byte {
	if len(p) < 15 {
		return fail(session.ResultInvalidCmd)
	}
	slot := binary.LittleEndian.Uint16(p[:2])
	if slot >= eccSlotCount {
		return fail(session.ResultFail)
	}
	entry := m.ecc[slot]
	if entry == nil || entry.curve != curveEd25519 {
		return fail(session.ResultECCInvalidKey)
	}

	sig := ed25519.Sign(entry.ed, p[15:])
	return okPadded(15, sig)
}

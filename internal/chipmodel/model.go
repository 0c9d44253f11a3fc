package chipmodel

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"sync"

	"golang.org/x/crypto/curve25519"

	"github.com/tropicsquare/go-tropic01/crc16"
	"github.com/tropicsquare/go-tropic01/internal/queue"
	"github.com/tropicsquare/go-tropic01/link"
	"github.com/tropicsquare/go-tropic01/logger"
	"github.com/tropicsquare/go-tropic01/session"
)

// Wire constants the model shares with the host stack.
const (
	probeByte  byte = 0xAA
	maxPayload      = 255
	tagSize         = 16
	cmdSizeLen      = 2

	infoBlockSize = 128
	certBlocks    = 4
)

// Resource dimensions of the emulated chip.
const (
	eccSlotCount  = 32
	mcounterCount = 16
	macSlotCount  = 128
	memSlotCount  = 512
	memSlotSize   = 444
)

type slotState int

const (
	slotEmpty slotState = iota
	slotOccupied
	slotInvalidated
)

type pairingSlot struct {
	state slotState
	key   []byte
}

// frame is one pending link-layer response.
type frame struct {
	status  link.Status
	payload []byte
}

// Model emulates a TROPIC01 chip. It implements link.Transport, so it plugs
// directly into the link driver or behind a bridge server.
//
// All methods are safe for concurrent use, but the protocol itself is
// half-duplex: callers must not interleave selection windows.
type Model struct {
	mu     sync.Mutex
	logger logger.Logger
	crypto session.Crypto

	chipPrivKey []byte
	chipPubKey  []byte
	certStore   []byte
	chipID      []byte
	riscvFw     []byte
	spectFw     []byte

	// Bus state.
	selected    bool
	closed      bool
	rxStream    []byte
	pending     *queue.FIFO[frame]
	lastResp    *frame
	busyPolls   int
	busyLeft    int
	alwaysBusy  bool
	alarmed     bool
	corruptCRC  bool
	maintenance bool

	// Secure element state.
	slots    [session.PairingSlotCount]pairingSlot
	sess     *chipSession
	cmdBuf   []byte
	cmdTotal int

	ecc        [eccSlotCount]*eccSlot
	counters   [mcounterCount]*uint32
	memory     map[uint16][]byte
	macSecrets [macSlotCount][]byte
	rconfig    map[uint16]uint32
	iconfig    map[uint16]uint32
	fwLog      *queue.FIFO[[]byte]
}

var _ link.Transport = (*Model)(nil)

// New creates a chip model. Without options it boots with a random static
// keypair, no pairing keys and everything erased.
func New(opts ...Option) (*Model, error) {
	cfg := defaultModelConfig()
	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	m := &Model{
		logger:  cfg.logger,
		crypto:  session.StdCrypto{},
		chipID:  cfg.chipID,
		riscvFw: cfg.riscvFw,
		spectFw: cfg.spectFw,
		pending: queue.New[frame](4),
		memory:  make(map[uint16][]byte),
		rconfig: make(map[uint16]uint32),
		iconfig: make(map[uint16]uint32),
		fwLog:   queue.New[[]byte](8),
	}

	if cfg.chipPrivKey != nil {
		pub, err := curve25519.X25519(cfg.chipPrivKey, curve25519.Basepoint)
		if err != nil {
			return nil, fmt.Errorf("chipmodel: deriving chip public key: %w", err)
		}
		m.chipPrivKey, m.chipPubKey = cfg.chipPrivKey, pub
	} else {
		priv, pub, err := m.crypto.GenerateKeypair()
		if err != nil {
			return nil, err
		}
		m.chipPrivKey, m.chipPubKey = priv, pub
	}

	m.certStore = buildCertStore(m.chipPubKey)
	if m.chipID == nil {
		m.chipID = buildChipID()
	}

	for slot, key := range cfg.pairingKeys {
		m.slots[slot] = pairingSlot{state: slotOccupied, key: key}
	}

	for i := range m.macSecrets {
		secret := make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("chipmodel: seeding mac slots: %w", err)
		}
		m.macSecrets[i] = secret
	}

	m.fwLogf("boot: fw %d.%d.%d.%d", m.riscvFw[3], m.riscvFw[2], m.riscvFw[1], m.riscvFw[0])

	return m, nil
}

// ChipPublicKey returns the chip's static X25519 public key, as a host
// would learn it from the certificate.
func (m *Model) ChipPublicKey() []byte {
	return append([]byte(nil), m.chipPubKey...)
}

// --- Test and bridge knobs ---

// SetBusyPolls makes every response require n not-ready probes before it is
// served. Zero restores immediate readiness.
func (m *Model) SetBusyPolls(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.busyPolls = n
	m.busyLeft = n
}

// SetAlwaysBusy makes every probe report a busy chip, without end.
func (m *Model) SetAlwaysBusy(busy bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alwaysBusy = busy
}

// SetAlarm raises or clears the alarm state.
func (m *Model) SetAlarm(alarmed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alarmed = alarmed
}

// CorruptNextResponseCRC flips a bit in the CRC trailer of the next staged
// response.
func (m *Model) CorruptNextResponseCRC() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.corruptCRC = true
}

// ProvisionPairingKey writes a pairing slot directly, bypassing the command
// set. Used to seed slot 0 before any session can exist.
func (m *Model) ProvisionPairingKey(slot uint8, publicKey []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if slot >= session.PairingSlotCount {
		return fmt.Errorf("chipmodel: pairing slot %d out of range", slot)
	}
	if len(publicKey) != session.KeySize {
		return fmt.Errorf("chipmodel: pairing key is %d bytes", len(publicKey))
	}
	m.slots[slot] = pairingSlot{state: slotOccupied, key: append([]byte(nil), publicKey...)}
	return nil
}

// --- link.Transport ---

// SelectLow asserts the chip-select line. Selecting an already selected
// chip is a protocol violation and fails loudly.
func (m *Model) SelectLow() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("chipmodel: model is closed")
	}
	if m.selected {
		return fmt.Errorf("chipmodel: select while already selected")
	}
	m.selected = true
	return nil
}

// SelectHigh releases the chip-select line and discards any staged but
// unread response bytes.
func (m *Model) SelectHigh() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("chipmodel: model is closed")
	}
	if !m.selected {
		return fmt.Errorf("chipmodel: release while not selected")
	}
	m.selected = false
	m.rxStream = nil
	return nil
}

// Transfer clocks tx into the chip. A single probe byte answers with the
// chip status; anything else is parsed as a request frame. The bytes
// clocked back for a request carry the bus idle value.
func (m *Model) Transfer(tx []byte) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, fmt.Errorf("chipmodel: model is closed")
	}
	if !m.selected {
		return nil, fmt.Errorf("chipmodel: transfer while deselected")
	}
	if len(tx) == 0 {
		return nil, fmt.Errorf("chipmodel: empty transfer")
	}

	rx := make([]byte, len(tx))
	for i := range rx {
		rx[i] = 0xFF
	}

	if len(tx) == 1 && tx[0] == probeByte {
		rx[0] = byte(m.probe())
		return rx, nil
	}

	m.handleRequest(tx)
	return rx, nil
}

// Read clocks n bytes out of the staged response stream, padding with the
// bus idle value once the stream is drained.
func (m *Model) Read(n int) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, fmt.Errorf("chipmodel: model is closed")
	}
	if !m.selected {
		return nil, fmt.Errorf("chipmodel: read while deselected")
	}

	out := make([]byte, n)
	copied := copy(out, m.rxStream)
	m.rxStream = m.rxStream[copied:]
	for i := copied; i < n; i++ {
		out[i] = 0xFF
	}
	return out, nil
}

// Close shuts the model down. Further transport calls fail.
func (m *Model) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// --- Frame handling ---

// probe answers one get-response probe and, when a response is ready,
// stages its bytes for the reads that follow.
func (m *Model) probe() link.ChipStatus {
	if m.alarmed {
		return link.ChipStatusAlarmBit
	}
	if m.alwaysBusy {
		return link.ChipStatusBusy
	}
	if m.busyLeft > 0 {
		m.busyLeft--
		return link.ChipStatusNotReady
	}
	f, ok := m.pending.Pop()
	if !ok {
		return link.ChipStatusBusy
	}
	m.lastResp = &f
	m.busyLeft = m.busyPolls
	m.stage(f)

	status := link.ChipStatusReady
	if m.maintenance {
		status |= link.ChipStatusStartBit
	}
	return status
}

// stage serializes one response frame into the read stream:
// [status][len][payload][crc lo][crc hi].
func (m *Model) stage(f frame) {
	resp := make([]byte, 0, 2+len(f.payload)+crc16.Size)
	resp = append(resp, byte(f.status), byte(len(f.payload)))
	resp = append(resp, f.payload...)
	resp = crc16.Append(resp, resp)

	if m.corruptCRC {
		resp[len(resp)-1] ^= 0x01
		m.corruptCRC = false
	}
	m.rxStream = resp
}

// enqueue appends one response frame to the pending queue.
func (m *Model) enqueue(status link.Status, payload []byte) {
	m.pending.Push(frame{status: status, payload: append([]byte(nil), payload...)})
	m.busyLeft = m.busyPolls
}

// enqueueSplit spreads a long result over continuation frames, each within
// the one-byte length field, the last one carrying the final status.
func (m *Model) enqueueSplit(data []byte) {
	for len(data) > maxPayload {
		m.enqueue(link.StatusResultCont, data[:maxPayload])
		data = data[maxPayload:]
	}
	m.enqueue(link.StatusResultOK, data)
}

// handleRequest validates one request frame and dispatches it. A new
// request invalidates any response the host never fetched.
func (m *Model) handleRequest(raw []byte) {
	m.pending.Reset()

	if len(raw) < 2+crc16.Size {
		m.enqueue(link.StatusGenErr, nil)
		return
	}

	payloadLen := int(raw[1])
	if len(raw) < 2+payloadLen+crc16.Size {
		m.enqueue(link.StatusGenErr, nil)
		return
	}

	body := raw[:2+payloadLen]
	trailer := raw[2+payloadLen : 2+payloadLen+crc16.Size]
	if !crc16.Valid(body, trailer) {
		m.logger.Debug("chipmodel: request crc mismatch", "reqID", fmt.Sprintf("0x%02X", raw[0]))
		m.enqueue(link.StatusCRCErr, nil)
		return
	}

	m.dispatch(raw[0], body[2:])
}

func (m *Model) dispatch(reqID byte, payload []byte) {
	// Maintenance mode disables the secure channel entirely.
	if m.maintenance && (reqID == link.ReqHandshake || reqID == link.ReqEncryptedCmd) {
		m.enqueue(link.StatusRespDisabled, nil)
		return
	}

	switch reqID {
	case link.ReqGetInfo:
		m.handleGetInfo(payload)

	case link.ReqHandshake:
		m.handleHandshake(payload)

	case link.ReqEncryptedCmd:
		m.handleEncryptedCmd(payload)

	case link.ReqSessionAbort:
		m.dropSession()
		m.enqueue(link.StatusRequestOK, nil)

	case link.ReqResend:
		if m.lastResp == nil {
			m.enqueue(link.StatusGenErr, nil)
			return
		}
		m.enqueue(m.lastResp.status, m.lastResp.payload)

	case link.ReqSleep:
		m.handleSleep(payload)

	case link.ReqStartup:
		m.handleStartup(payload)

	case link.ReqGetLog:
		m.handleGetLog()

	default:
		m.enqueue(link.StatusUnknownReq, nil)
	}
}

func (m *Model) handleGetInfo(payload []byte) {
	if len(payload) != 2 {
		m.enqueue(link.StatusGenErr, nil)
		return
	}

	object := link.InfoObject(payload[0])
	block := int(payload[1])

	switch object {
	case link.InfoCertificate:
		if block >= certBlocks {
			m.enqueue(link.StatusGenErr, nil)
			return
		}
		start := block * infoBlockSize
		m.enqueue(link.StatusResultOK, m.certStore[start:start+infoBlockSize])

	case link.InfoChipID:
		m.enqueue(link.StatusResultOK, m.chipID)

	case link.InfoRiscvFw:
		m.enqueue(link.StatusResultOK, m.riscvFw)

	case link.InfoSpectFw:
		m.enqueue(link.StatusResultOK, m.spectFw)

	case link.InfoFwBank:
		if !m.maintenance {
			m.enqueue(link.StatusGenErr, nil)
			return
		}
		m.enqueue(link.StatusResultOK, m.fwBankHeader())

	default:
		m.enqueue(link.StatusGenErr, nil)
	}
}

func (m *Model) handleSleep(payload []byte) {
	if len(payload) != 1 {
		m.enqueue(link.StatusGenErr, nil)
		return
	}
	mode := link.SleepMode(payload[0])
	if mode != link.SleepModeSleep && mode != link.SleepModeDeep {
		m.enqueue(link.StatusGenErr, nil)
		return
	}

	m.dropSession()
	m.fwLogf("entering sleep mode 0x%02X", payload[0])
	m.enqueue(link.StatusRequestOK, nil)
}

func (m *Model) handleStartup(payload []byte) {
	if len(payload) != 1 {
		m.enqueue(link.StatusGenErr, nil)
		return
	}

	switch link.StartupMode(payload[0]) {
	case link.StartupReboot:
		m.maintenance = false
	case link.StartupMaintenance:
		m.maintenance = true
	default:
		m.enqueue(link.StatusGenErr, nil)
		return
	}

	// A restart wipes the session, any half-received command, queued
	// responses and the RAM log.
	m.dropSession()
	m.pending.Reset()
	m.fwLog.Reset()
	m.lastResp = nil

	if m.maintenance {
		m.fwLogf("boot: maintenance mode")
	} else {
		m.fwLogf("boot: fw %d.%d.%d.%d", m.riscvFw[3], m.riscvFw[2], m.riscvFw[1], m.riscvFw[0])
	}

	m.enqueue(link.StatusRequestOK, nil)
}

func (m *Model) handleGetLog() {
	chunk, ok := m.fwLog.Pop()
	if !ok {
		m.enqueue(link.StatusResultOK, nil)
		return
	}
	m.enqueue(link.StatusResultOK, chunk)
}

// handleEncryptedCmd reassembles command chunks. Intermediate chunks are
// acknowledged with a continuation status; the final chunk gets a plain
// acknowledgment followed by the executed result.
func (m *Model) handleEncryptedCmd(chunk []byte) {
	if m.sess == nil {
		m.enqueue(link.StatusNoSession, nil)
		return
	}

	if m.cmdBuf == nil {
		if len(chunk) < cmdSizeLen {
			m.enqueue(link.StatusGenErr, nil)
			return
		}
		size := int(binary.LittleEndian.Uint16(chunk[:cmdSizeLen]))
		m.cmdTotal = cmdSizeLen + size + tagSize
		m.cmdBuf = make([]byte, 0, m.cmdTotal)
	}
	m.cmdBuf = append(m.cmdBuf, chunk...)

	if len(m.cmdBuf) < m.cmdTotal {
		m.enqueue(link.StatusRequestCont, nil)
		return
	}
	if len(m.cmdBuf) > m.cmdTotal {
		m.cmdBuf, m.cmdTotal = nil, 0
		m.enqueue(link.StatusGenErr, nil)
		return
	}

	l3 := m.cmdBuf
	m.cmdBuf, m.cmdTotal = nil, 0

	// Acknowledge the final chunk; the result follows as its own response.
	m.enqueue(link.StatusRequestOK, nil)

	ciphertext := l3[cmdSizeLen : len(l3)-tagSize]
	tag := l3[len(l3)-tagSize:]
	m.executeEncrypted(ciphertext, tag)
}

// executeEncrypted opens one sealed command, runs it, and seals the result.
// An authentication failure kills the session, as on the real chip.
func (m *Model) executeEncrypted(ciphertext, tag []byte) {
	plaintext, ok := m.sess.openCommand(ciphertext, tag)
	if !ok {
		m.fwLogf("command tag check failed, dropping session")
		m.dropSession()
		m.enqueue(link.StatusTagErr, nil)
		return
	}

	result := m.runCommand(plaintext)
	sealedCt, sealedTag := m.sess.sealResponse(result)

	resp := make([]byte, 0, cmdSizeLen+len(sealedCt)+tagSize)
	resp = binary.LittleEndian.AppendUint16(resp, uint16(len(sealedCt))) //nolint:gosec // bounded by command size
	resp = append(resp, sealedCt...)
	resp = append(resp, sealedTag...)
	m.enqueueSplit(resp)
}

package chipmodel

import (
	"crypto/cipher"
	"crypto/sha256"
	"encoding/binary"

	"github.com/tropicsquare/go-tropic01/link"
	"github.com/tropicsquare/go-tropic01/session"
)

const protocolNameString = "Noise_KK1_25519_AESGCM_SHA256"

func protocolName() []byte {
	padded := make([]byte, session.KeySize)
	copy(padded, protocolNameString)
	return padded
}

// chipSession is the chip's side of an established secure channel. decrypt
// opens host commands, encrypt seals results, and both directions share one
// nonce counter advanced once per executed command.
type chipSession struct {
	decrypt cipher.AEAD
	encrypt cipher.AEAD
	counter uint64
	slot    uint8
}

func (s *chipSession) nonce() []byte {
	nonce := make([]byte, session.NonceSize)
	binary.LittleEndian.PutUint64(nonce, s.counter)
	return nonce
}

// openCommand authenticates and decrypts one command. The counter advances
// only after the response is sealed, so a failed open leaves it untouched.
func (s *chipSession) openCommand(ciphertext, tag []byte) ([]byte, bool) {
	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := s.decrypt.Open(nil, s.nonce(), sealed, nil)
	if err != nil {
		return nil, false
	}
	return plaintext, true
}

// sealResponse encrypts one result under the nonce of the command it
// answers, then advances the counter.
func (s *chipSession) sealResponse(plaintext []byte) (ciphertext, tag []byte) {
	sealed := s.encrypt.Seal(nil, s.nonce(), plaintext, nil)
	s.counter++
	return sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]
}

// handshakeTranscript mirrors the host's chained SHA-256 transcript:
// d0 = SHA256(protocolName), then d_i = SHA256(d_{i-1} || m_i) over the
// host pairing key, chip static key, host ephemeral key, slot byte and
// chip ephemeral key, in that order.
func handshakeTranscript(hostPub, chipPub, hostEph []byte, slot byte, chipEph []byte) [sha256.Size]byte {
	digest := sha256.Sum256(protocolName())
	for _, material := range [][]byte{hostPub, chipPub, hostEph, {slot}, chipEph} {
		h := sha256.New()
		h.Write(digest[:])
		h.Write(material)
		copy(digest[:], h.Sum(nil))
	}
	return digest
}

// handleHandshake runs the chip side of session establishment: the three
// X25519 exchanges against the host's ephemeral key, the HKDF ladder, and
// the transcript tag the host verifies.
func (m *Model) handleHandshake(payload []byte) {
	if len(payload) != session.KeySize+1 {
		m.enqueue(link.StatusGenErr, nil)
		return
	}
	hostEph := payload[:session.KeySize]
	slot := payload[session.KeySize]

	if slot >= session.PairingSlotCount || m.slots[slot].state != slotOccupied {
		m.fwLogf("handshake rejected: slot %d", slot)
		m.enqueue(link.StatusHandshakeErr, nil)
		return
	}
	hostPub := m.slots[slot].key

	ephPriv, ephPub, err := m.crypto.GenerateKeypair()
	if err != nil {
		m.enqueue(link.StatusGenErr, nil)
		return
	}

	digest := handshakeTranscript(hostPub, m.chipPubKey, hostEph, slot, ephPub)

	secret1, err1 := m.crypto.X25519(ephPriv, hostEph)
	secret2, err2 := m.crypto.X25519(ephPriv, hostPub)
	secret3, err3 := m.crypto.X25519(m.chipPrivKey, hostEph)
	if err1 != nil || err2 != nil || err3 != nil {
		m.enqueue(link.StatusHandshakeErr, nil)
		return
	}

	ck1, err := m.crypto.HKDF(protocolName(), secret1, 1)
	if err != nil {
		m.enqueue(link.StatusGenErr, nil)
		return
	}
	ck2, err := m.crypto.HKDF(ck1[0], secret2, 1)
	if err != nil {
		m.enqueue(link.StatusGenErr, nil)
		return
	}
	chainAuth, err := m.crypto.HKDF(ck2[0], secret3, 2)
	if err != nil {
		m.enqueue(link.StatusGenErr, nil)
		return
	}
	directional, err := m.crypto.HKDF(chainAuth[0], nil, 2)
	if err != nil {
		m.enqueue(link.StatusGenErr, nil)
		return
	}

	authAEAD, err := m.crypto.NewAEAD(chainAuth[1])
	if err != nil {
		m.enqueue(link.StatusGenErr, nil)
		return
	}
	decrypt, err := m.crypto.NewAEAD(directional[0])
	if err != nil {
		m.enqueue(link.StatusGenErr, nil)
		return
	}
	encrypt, err := m.crypto.NewAEAD(directional[1])
	if err != nil {
		m.enqueue(link.StatusGenErr, nil)
		return
	}

	tag := authAEAD.Seal(nil, make([]byte, session.NonceSize), nil, digest[:])

	m.sess = &chipSession{decrypt: decrypt, encrypt: encrypt, slot: slot}
	m.cmdBuf, m.cmdTotal = nil, 0
	m.fwLogf("handshake: session open, slot %d", slot)

	resp := make([]byte, 0, session.KeySize+tagSize)
	resp = append(resp, ephPub...)
	resp = append(resp, tag...)
	m.enqueue(link.StatusResultOK, resp)
}

// dropSession discards the secure channel and any half-received command.
func (m *Model) dropSession() {
	if m.sess != nil {
		m.fwLogf("session closed, slot %d", m.sess.slot)
	}
	m.sess = nil
	m.cmdBuf = nil
	m.cmdTotal = 0
}

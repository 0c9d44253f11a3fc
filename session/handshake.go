package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
)

// protocolNameString identifies the Noise pattern the handshake follows.
const protocolNameString = "Noise_KK1_25519_AESGCM_SHA256"

// PairingSlotCount is the number of pairing key slots on the chip.
const PairingSlotCount = 4

// Link is the link-layer surface the session layer drives. It is satisfied
// by [github.com/tropicsquare/go-tropic01/link.Driver].
type Link interface {
	// Handshake performs the link-layer handshake exchange.
	Handshake(hostEphPub []byte, slot uint8) (chipEphPub, authTag []byte, err error)

	// EncryptedCommand transmits a sealed command and returns the chip's
	// sealed reply.
	EncryptedCommand(ciphertext, tag []byte) (respCiphertext, respTag []byte, err error)
}

// HandshakeParams carries the static key material for session establishment.
type HandshakeParams struct {
	// Slot is the pairing key slot index, 0 to PairingSlotCount-1.
	Slot uint8

	// HostPrivateKey is the static X25519 pairing private key.
	HostPrivateKey []byte

	// HostPublicKey is the public half of the pairing key, as written to
	// the chip's pairing slot.
	HostPublicKey []byte

	// ChipPublicKey is the chip's long-term X25519 public key, normally
	// extracted from the device certificate.
	ChipPublicKey []byte
}

// validate rejects bad slots and key lengths before any I/O happens.
func (p *HandshakeParams) validate() error {
	if p.Slot >= PairingSlotCount {
		return fmt.Errorf("%w: slot %d, valid range 0..%d", ErrSlotRange, p.Slot, PairingSlotCount-1)
	}
	if len(p.HostPrivateKey) != KeySize {
		return fmt.Errorf("%w: host private key is %d bytes, want %d", ErrKeyLength, len(p.HostPrivateKey), KeySize)
	}
	if len(p.HostPublicKey) != KeySize {
		return fmt.Errorf("%w: host public key is %d bytes, want %d", ErrKeyLength, len(p.HostPublicKey), KeySize)
	}
	if len(p.ChipPublicKey) != KeySize {
		return fmt.Errorf("%w: chip public key is %d bytes, want %d", ErrKeyLength, len(p.ChipPublicKey), KeySize)
	}

	return nil
}

// Establish runs the session handshake against the chip and returns the
// live secure channel.
//
// A fresh ephemeral keypair is generated and sent with the slot index; the
// directional session keys are then derived from three X25519 shared
// secrets chained through HKDF-SHA256, bound to the handshake transcript.
// The chip's authentication tag is verified before any session state is
// created; on mismatch every derived secret is discarded and
// [ErrHandshakeAuth] is returned.
func Establish(lnk Link, crypto Crypto, params HandshakeParams) (*Session, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	ephPriv, ephPub, err := crypto.GenerateKeypair()
	if err != nil {
		return nil, err
	}

	chipEphPub, chipTag, err := lnk.Handshake(ephPub, params.Slot)
	if err != nil {
		return nil, err
	}

	digest := transcript(
		params.HostPublicKey,
		params.ChipPublicKey,
		ephPub,
		[]byte{params.Slot},
		chipEphPub,
	)

	keys, err := deriveKeys(crypto, keyMaterial{
		ephPriv:    ephPriv,
		staticPriv: params.HostPrivateKey,
		chipEphPub: chipEphPub,
		chipPub:    params.ChipPublicKey,
	})
	if err != nil {
		return nil, err
	}

	if err := verifyAuthTag(crypto, keys.auth, digest[:], chipTag); err != nil {
		return nil, err
	}

	encrypt, err := crypto.NewAEAD(keys.command)
	if err != nil {
		return nil, err
	}
	decrypt, err := crypto.NewAEAD(keys.result)
	if err != nil {
		return nil, err
	}

	return &Session{lnk: lnk, encrypt: encrypt, decrypt: decrypt}, nil
}

// protocolName returns the Noise protocol identifier zero-padded to KeySize
// bytes. It doubles as the initial transcript input and the first HKDF salt.
func protocolName() []byte {
	padded := make([]byte, KeySize)
	copy(padded, protocolNameString)

	return padded
}

// transcript chains terminal SHA-256 calls over the public handshake
// material: d0 = SHA256(protocolName), then d_i = SHA256(d_{i-1} || m_i).
// Both sides must absorb the material in the same order.
func transcript(materials ...[]byte) [sha256.Size]byte {
	digest := sha256.Sum256(protocolName())
	for _, material := range materials {
		h := sha256.New()
		h.Write(digest[:])
		h.Write(material)
		copy(digest[:], h.Sum(nil))
	}

	return digest
}

// sessionKeys holds the outputs of the key-derivation ladder.
type sessionKeys struct {
	auth    []byte // authenticates the handshake transcript
	command []byte // seals host-to-chip commands
	result  []byte // opens chip-to-host results
}

// keyMaterial bundles the inputs of the three X25519 exchanges.
type keyMaterial struct {
	ephPriv    []byte
	staticPriv []byte
	chipEphPub []byte
	chipPub    []byte
}

// deriveKeys computes the three shared secrets (ephemeral-ephemeral,
// static-ephemeral, ephemeral-static) and runs the HKDF-SHA256 ladder over
// them. The final rung expands the chaining key alone, with empty input
// keying material.
func deriveKeys(crypto Crypto, material keyMaterial) (sessionKeys, error) {
	var keys sessionKeys

	secret1, err := crypto.X25519(material.ephPriv, material.chipEphPub)
	if err != nil {
		return keys, err
	}
	secret2, err := crypto.X25519(material.staticPriv, material.chipEphPub)
	if err != nil {
		return keys, err
	}
	secret3, err := crypto.X25519(material.ephPriv, material.chipPub)
	if err != nil {
		return keys, err
	}

	ck1, err := crypto.HKDF(protocolName(), secret1, 1)
	if err != nil {
		return keys, err
	}
	ck2, err := crypto.HKDF(ck1[0], secret2, 1)
	if err != nil {
		return keys, err
	}
	chainAuth, err := crypto.HKDF(ck2[0], secret3, 2)
	if err != nil {
		return keys, err
	}
	directional, err := crypto.HKDF(chainAuth[0], nil, 2)
	if err != nil {
		return keys, err
	}

	keys.auth = chainAuth[1]
	keys.command = directional[0]
	keys.result = directional[1]

	return keys, nil
}

// verifyAuthTag recomputes the expected handshake tag over the transcript
// digest and compares it to the chip's in constant time.
func verifyAuthTag(crypto Crypto, authKey, digest, chipTag []byte) error {
	aead, err := crypto.NewAEAD(authKey)
	if err != nil {
		return err
	}

	// Sealing an empty plaintext yields only the tag.
	sealed := aead.Seal(nil, make([]byte, NonceSize), nil, digest)
	expected := sealed[len(sealed)-TagSize:]

	if !hmac.Equal(expected, chipTag) {
		return ErrHandshakeAuth
	}

	return nil
}

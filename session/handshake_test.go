package session

import (
	"bytes"
	"crypto/cipher"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chipSide simulates the chip half of the handshake and secure channel. It
// mirrors the host key schedule from the chip's perspective and then serves
// commands over the derived directional keys.
type chipSide struct {
	t *testing.T

	staticPriv []byte
	staticPub  []byte
	pairingPub []byte // host public key provisioned in the pairing slot

	tamperTag bool

	counter uint64
	open    cipher.AEAD // opens host commands
	seal    cipher.AEAD // seals chip results
	handler func(command []byte) []byte
}

func newChipSide(t *testing.T, pairingPub []byte) *chipSide {
	t.Helper()

	priv, pub, err := StdCrypto{}.GenerateKeypair()
	require.NoError(t, err)

	return &chipSide{t: t, staticPriv: priv, staticPub: pub, pairingPub: pairingPub}
}

func (c *chipSide) Handshake(hostEphPub []byte, slot uint8) (chipEphPub, authTag []byte, err error) {
	crypto := StdCrypto{}

	ephPriv, ephPub, err := crypto.GenerateKeypair()
	require.NoError(c.t, err)

	digest := transcript(c.pairingPub, c.staticPub, hostEphPub, []byte{slot}, ephPub)

	// The chip computes the same three shared secrets from its side.
	secret1, err := crypto.X25519(ephPriv, hostEphPub)
	require.NoError(c.t, err)
	secret2, err := crypto.X25519(ephPriv, c.pairingPub)
	require.NoError(c.t, err)
	secret3, err := crypto.X25519(c.staticPriv, hostEphPub)
	require.NoError(c.t, err)

	ck1, err := crypto.HKDF(protocolName(), secret1, 1)
	require.NoError(c.t, err)
	ck2, err := crypto.HKDF(ck1[0], secret2, 1)
	require.NoError(c.t, err)
	chainAuth, err := crypto.HKDF(ck2[0], secret3, 2)
	require.NoError(c.t, err)
	directional, err := crypto.HKDF(chainAuth[0], nil, 2)
	require.NoError(c.t, err)

	auth, err := crypto.NewAEAD(chainAuth[1])
	require.NoError(c.t, err)
	sealed := auth.Seal(nil, make([]byte, NonceSize), nil, digest[:])
	tag := sealed[len(sealed)-TagSize:]
	if c.tamperTag {
		tag[0] ^= 0x01
	}

	c.open, err = crypto.NewAEAD(directional[0])
	require.NoError(c.t, err)
	c.seal, err = crypto.NewAEAD(directional[1])
	require.NoError(c.t, err)
	c.counter = 0

	return ephPub, tag, nil
}

func (c *chipSide) EncryptedCommand(ciphertext, tag []byte) (respCiphertext, respTag []byte, err error) {
	nonce := make([]byte, NonceSize)
	binary.LittleEndian.PutUint64(nonce, c.counter)
	c.counter++

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	command, err := c.open.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, nil, err
	}

	response := c.handle(command)
	out := c.seal.Seal(nil, nonce, response, nil)

	return out[:len(out)-TagSize], out[len(out)-TagSize:], nil
}

func (c *chipSide) handle(command []byte) []byte {
	if c.handler != nil {
		return c.handler(command)
	}

	// Default behavior: command 0x01 is ping, echo the payload back.
	if len(command) > 0 && command[0] == 0x01 {
		return append([]byte{byte(ResultOK)}, command[1:]...)
	}

	return []byte{byte(ResultInvalidCmd)}
}

// deadLink fails the test on any use; establishment parameter errors must
// surface before I/O.
type deadLink struct{ t *testing.T }

func (d deadLink) Handshake([]byte, uint8) ([]byte, []byte, error) {
	d.t.Fatal("link used before parameter validation")
	return nil, nil, nil
}

func (d deadLink) EncryptedCommand([]byte, []byte) ([]byte, []byte, error) {
	d.t.Fatal("link used before parameter validation")
	return nil, nil, nil
}

// --- Establishment tests ---

func TestEstablish_RoundTrip(t *testing.T) {
	hostPriv, hostPub, err := StdCrypto{}.GenerateKeypair()
	require.NoError(t, err)
	chip := newChipSide(t, hostPub)

	sess, err := Establish(chip, StdCrypto{}, HandshakeParams{
		Slot:           0,
		HostPrivateKey: hostPriv,
		HostPublicKey:  hostPub,
		ChipPublicKey:  chip.staticPub,
	})
	require.NoError(t, err)
	require.NotNil(t, sess)

	// Several pings in a row keep both nonce counters in lockstep.
	payloads := [][]byte{
		[]byte("Hello"),
		{},
		bytes.Repeat([]byte{0xA5}, 200),
	}
	for i, payload := range payloads {
		resp, err := sess.Execute(append([]byte{0x01}, payload...))
		require.NoError(t, err, "ping %d", i)
		assert.Equal(t, payload, resp, "ping %d echo", i)
	}
	assert.Equal(t, uint64(3), sess.counter)
	assert.Equal(t, uint64(3), chip.counter)
}

func TestEstablish_ParameterValidation(t *testing.T) {
	key := bytes.Repeat([]byte{0x01}, KeySize)

	tests := []struct {
		name    string
		params  HandshakeParams
		wantErr error
	}{
		{
			name:    "slot out of range",
			params:  HandshakeParams{Slot: PairingSlotCount, HostPrivateKey: key, HostPublicKey: key, ChipPublicKey: key},
			wantErr: ErrSlotRange,
		},
		{
			name:    "short host private key",
			params:  HandshakeParams{Slot: 0, HostPrivateKey: key[:31], HostPublicKey: key, ChipPublicKey: key},
			wantErr: ErrKeyLength,
		},
		{
			name:    "short host public key",
			params:  HandshakeParams{Slot: 0, HostPrivateKey: key, HostPublicKey: key[:16], ChipPublicKey: key},
			wantErr: ErrKeyLength,
		},
		{
			name:    "missing chip public key",
			params:  HandshakeParams{Slot: 0, HostPrivateKey: key, HostPublicKey: key},
			wantErr: ErrKeyLength,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess, err := Establish(deadLink{t}, StdCrypto{}, tt.params)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, sess)
		})
	}
}

func TestEstablish_TagMismatch(t *testing.T) {
	hostPriv, hostPub, err := StdCrypto{}.GenerateKeypair()
	require.NoError(t, err)
	chip := newChipSide(t, hostPub)
	chip.tamperTag = true

	sess, err := Establish(chip, StdCrypto{}, HandshakeParams{
		Slot:           1,
		HostPrivateKey: hostPriv,
		HostPublicKey:  hostPub,
		ChipPublicKey:  chip.staticPub,
	})
	require.ErrorIs(t, err, ErrHandshakeAuth)
	require.Nil(t, sess)

	// No partial session exists after a failed handshake.
	_, err = sess.Execute([]byte{0x01})
	assert.ErrorIs(t, err, ErrNoActiveSession)
}

func TestEstablish_WrongPairingKey(t *testing.T) {
	hostPriv, hostPub, err := StdCrypto{}.GenerateKeypair()
	require.NoError(t, err)

	// The chip has a different public key provisioned in the slot, so its
	// transcript and static exchange both diverge from the host's.
	_, otherPub, err := StdCrypto{}.GenerateKeypair()
	require.NoError(t, err)
	chip := newChipSide(t, otherPub)

	sess, err := Establish(chip, StdCrypto{}, HandshakeParams{
		Slot:           0,
		HostPrivateKey: hostPriv,
		HostPublicKey:  hostPub,
		ChipPublicKey:  chip.staticPub,
	})
	require.ErrorIs(t, err, ErrHandshakeAuth)
	assert.Nil(t, sess)
}

// --- Transcript tests ---

func TestTranscript_Vector(t *testing.T) {
	digest := transcript(
		bytes.Repeat([]byte{0x01}, 32),
		bytes.Repeat([]byte{0x02}, 32),
		bytes.Repeat([]byte{0x03}, 32),
		[]byte{0x00},
		bytes.Repeat([]byte{0x04}, 32),
	)
	assert.Equal(t, mustHex(t, "52fec57a01b747bcd9414918a8fde8b78cc226e8a3be021270ccdd9129d7e58c"), digest[:])
}

func TestTranscript_OrderMatters(t *testing.T) {
	a := bytes.Repeat([]byte{0x01}, 32)
	b := bytes.Repeat([]byte{0x02}, 32)

	first := transcript(a, b)
	second := transcript(b, a)
	assert.NotEqual(t, first, second)
}

func TestProtocolName(t *testing.T) {
	name := protocolName()
	require.Len(t, name, KeySize)
	assert.Equal(t, []byte(protocolNameString), name[:len(protocolNameString)])
	assert.Equal(t, make([]byte, KeySize-len(protocolNameString)), name[len(protocolNameString):],
		"padding must be zero bytes")
}

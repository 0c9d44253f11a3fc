package tropic

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tropicsquare/go-tropic01/logger"
	"github.com/tropicsquare/go-tropic01/session"
)

// bareClient has no driver and no session. Argument validation must reject
// bad calls before either is touched; a call that slips through panics on
// the nil driver and fails the test loudly.
func bareClient() *Client {
	return &Client{
		crypto: session.StdCrypto{},
		logger: logger.GetLogger(),
	}
}

func TestCommands_ArgumentValidation(t *testing.T) {
	key := bytes.Repeat([]byte{0xAB}, KeySize)
	hash := bytes.Repeat([]byte{0xCD}, 32)

	tests := []struct {
		name    string
		call    func(c *Client) error
		wantErr error
	}{
		{
			name:    "pairing key write slot",
			call:    func(c *Client) error { return c.PairingKeyWrite(PairingSlotMax+1, key) },
			wantErr: ErrPairingSlotRange,
		},
		{
			name:    "pairing key write key size",
			call:    func(c *Client) error { return c.PairingKeyWrite(0, key[:31]) },
			wantErr: ErrKeySize,
		},
		{
			name:    "pairing key read slot",
			call:    func(c *Client) error { _, err := c.PairingKeyRead(4); return err },
			wantErr: ErrPairingSlotRange,
		},
		{
			name:    "pairing key invalidate slot",
			call:    func(c *Client) error { return c.PairingKeyInvalidate(255) },
			wantErr: ErrPairingSlotRange,
		},
		{
			name:    "mem write slot",
			call:    func(c *Client) error { return c.MemDataWrite(MemSlotMax+1, []byte("x")) },
			wantErr: ErrMemSlotRange,
		},
		{
			name:    "mem write size",
			call:    func(c *Client) error { return c.MemDataWrite(0, make([]byte, MemDataMaxSize+1)) },
			wantErr: ErrDataTooLarge,
		},
		{
			name:    "mem read slot",
			call:    func(c *Client) error { _, err := c.MemDataRead(512); return err },
			wantErr: ErrMemSlotRange,
		},
		{
			name:    "mem erase slot",
			call:    func(c *Client) error { return c.MemDataErase(1000) },
			wantErr: ErrMemSlotRange,
		},
		{
			name:    "mcounter init index",
			call:    func(c *Client) error { return c.MCounterInit(MCounterMax+1, 42) },
			wantErr: ErrCounterRange,
		},
		{
			name:    "mcounter update index",
			call:    func(c *Client) error { return c.MCounterUpdate(16) },
			wantErr: ErrCounterRange,
		},
		{
			name:    "mcounter get index",
			call:    func(c *Client) error { _, err := c.MCounterGet(99); return err },
			wantErr: ErrCounterRange,
		},
		{
			name:    "mac slot",
			call:    func(c *Client) error { _, err := c.MacAndDestroy(MacSlotMax+1, hash); return err },
			wantErr: ErrMacSlotRange,
		},
		{
			name:    "mac data size",
			call:    func(c *Client) error { _, err := c.MacAndDestroy(0, hash[:16]); return err },
			wantErr: ErrMacDataSize,
		},
		{
			name:    "ecc generate slot",
			call:    func(c *Client) error { return c.EccKeyGenerate(EccSlotMax+1, CurveEd25519) },
			wantErr: ErrEccSlotRange,
		},
		{
			name:    "ecc generate curve",
			call:    func(c *Client) error { return c.EccKeyGenerate(0, Curve(0x7F)) },
			wantErr: ErrInvalidCurve,
		},
		{
			name:    "ecc store key size",
			call:    func(c *Client) error { return c.EccKeyStore(0, CurveP256, key[:16]) },
			wantErr: ErrKeySize,
		},
		{
			name:    "ecc read slot",
			call:    func(c *Client) error { _, err := c.EccKeyRead(32); return err },
			wantErr: ErrEccSlotRange,
		},
		{
			name:    "ecc erase slot",
			call:    func(c *Client) error { return c.EccKeyErase(40) },
			wantErr: ErrEccSlotRange,
		},
		{
			name:    "ecdsa hash size",
			call:    func(c *Client) error { _, err := c.EcdsaSign(0, hash[:20]); return err },
			wantErr: ErrHashSize,
		},
		{
			name:    "eddsa message size",
			call:    func(c *Client) error { _, err := c.EddsaSign(0, make([]byte, EddsaMsgMaxSize+1)); return err },
			wantErr: ErrDataTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call(bareClient())
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCommands_RequireSession(t *testing.T) {
	c := bareClient()

	// Valid arguments, no session: the session layer rejects the call
	// before any traffic is generated.
	_, err := c.Ping([]byte("hello"))
	require.ErrorIs(t, err, session.ErrNoActiveSession)

	_, err = c.GetRandom(16)
	require.ErrorIs(t, err, session.ErrNoActiveSession)

	err = c.MCounterInit(0, 100)
	require.ErrorIs(t, err, session.ErrNoActiveSession)

	assert.False(t, c.SessionActive())
}

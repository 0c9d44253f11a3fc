package tropic

import (
	"encoding/binary"
	"fmt"

	"github.com/tropicsquare/go-tropic01/session"
)

// Command identifiers of the encrypted command set.
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

// Capacity limits of the chip's resources.
const (
	// PairingSlotMax is the highest pairing key slot.
	PairingSlotMax = 3

	// EccSlotMax is the highest ECC key slot.
	EccSlotMax = 31

	// MCounterMax is the highest monotonic counter index.
	MCounterMax = 15

	// MacSlotMax is the highest MAC-and-Destroy slot.
	MacSlotMax = 127

	// MemSlotMax is the highest user memory slot.
	MemSlotMax = 511

	// MemDataMaxSize is the capacity of one user memory slot in bytes.
	MemDataMaxSize = 444

	// MacDataSize is the exact input and output size of MAC-and-Destroy.
	MacDataSize = 32

	// KeySize is the size of X25519 pairing keys.
	KeySize = session.KeySize
)

// Ping sends data through the secure channel and returns the chip's echo.
//
// Command: [0x01][data]. Response: [data].
func (c *Client) Ping(data []byte) ([]byte, error) {
	return c.execute(cmdPing, data)
}

// GetRandom returns n random bytes from the chip's TRNG.
//
// Command: [0x50][n:1]. Response: [pad:3][random:n].
func (c *Client) GetRandom(n uint8) ([]byte, error) {
	resp, err := c.execute(cmdGetRandom, []byte{n})
	if err != nil {
		return nil, err
	}
	if len(resp) != 3+int(n) {
		return nil, fmt.Errorf("%w: random response is %d bytes, want %d", ErrResponseLength, len(resp), 3+int(n))
	}
	return resp[3:], nil
}

// --- Pairing keys ---

// PairingKeyWrite stores an X25519 public key in a pairing slot. Writing an
// occupied slot fails; slots move from empty to written to invalidated,
// never back.
//
// Command: [0x10][slot:2][pad:1][key:32].
func (c *Client) PairingKeyWrite(slot uint8, publicKey []byte) error {
	if slot > PairingSlotMax {
		return fmt.Errorf("%w: %d", ErrPairingSlotRange, slot)
	}
	if len(publicKey) != KeySize {
		return fmt.Errorf("%w: got %d", ErrKeySize, len(publicKey))
	}

	data := make([]byte, 3, 3+KeySize)
	binary.LittleEndian.PutUint16(data, uint16(slot))
	data = append(data, publicKey...)

	_, err := c.execute(cmdPairingKeyWrite, data)
	return err
}

// PairingKeyRead returns the X25519 public key stored in a pairing slot.
//
// Command: [0x11][slot:2]. Response: [pad:3][key:32].
func (c *Client) PairingKeyRead(slot uint8) ([]byte, error) {
	if slot > PairingSlotMax {
		return nil, fmt.Errorf("%w: %d", ErrPairingSlotRange, slot)
	}

	data := make([]byte, 2)
	binary.LittleEndian.PutUint16(data, uint16(slot))

	resp, err := c.execute(cmdPairingKeyRead, data)
	if err != nil {
		return nil, err
	}
	if len(resp) != 3+KeySize {
		return nil, fmt.Errorf("%w: pairing key response is %d bytes", ErrResponseLength, len(resp))
	}
	return resp[3:], nil
}

// PairingKeyInvalidate permanently disables a pairing slot. Sessions keyed
// on the slot can no longer be established.
//
// Command: [0x12][slot:2].
func (c *Client) PairingKeyInvalidate(slot uint8) error {
	if slot > PairingSlotMax {
		return fmt.Errorf("%w: %d", ErrPairingSlotRange, slot)
	}

	data := make([]byte, 2)
	binary.LittleEndian.PutUint16(data, uint16(slot))

	_, err := c.execute(cmdPairingKeyInvalidate, data)
	return err
}

// --- User memory ---

// MemDataWrite stores data in a user memory slot. The slot must be empty;
// occupied slots are rejected by the chip until erased.
//
// Command: [0x40][slot:2][pad:1][data].
func (c *Client) MemDataWrite(slot uint16, data []byte) error {
	if slot > MemSlotMax {
		return fmt.Errorf("%w: %d", ErrMemSlotRange, slot)
	}
	if len(data) > MemDataMaxSize {
		return fmt.Errorf("%w: %d bytes, slot holds %d", ErrDataTooLarge, len(data), MemDataMaxSize)
	}

	payload := make([]byte, 3, 3+len(data))
	binary.LittleEndian.PutUint16(payload, slot)
	payload = append(payload, data...)

	_, err := c.execute(cmdMemDataWrite, payload)
	return err
}

// MemDataRead returns the contents of a user memory slot.
//
// Command: [0x41][slot:2]. Response: [pad:3][data].
func (c *Client) MemDataRead(slot uint16) ([]byte, error) {
	if slot > MemSlotMax {
		return nil, fmt.Errorf("%w: %d", ErrMemSlotRange, slot)
	}

	data := make([]byte, 2)
	binary.LittleEndian.PutUint16(data, slot)

	resp, err := c.execute(cmdMemDataRead, data)
	if err != nil {
		return nil, err
	}
	if len(resp) < 3 {
		return nil, fmt.Errorf("%w: memory response is %d bytes", ErrResponseLength, len(resp))
	}
	return resp[3:], nil
}

// MemDataErase clears a user memory slot so it can be written again.
//
// Command: [0x42][slot:2].
func (c *Client) MemDataErase(slot uint16) error {
	if slot > MemSlotMax {
		return fmt.Errorf("%w: %d", ErrMemSlotRange, slot)
	}

	data := make([]byte, 2)
	binary.LittleEndian.PutUint16(data, slot)

	_, err := c.execute(cmdMemDataErase, data)
	return err
}

// --- Monotonic counters ---

// MCounterInit sets a monotonic counter to an initial value.
//
// Command: [0x80][index:2][pad:1][value:4].
func (c *Client) MCounterInit(index uint16, value uint32) error {
	if index > MCounterMax {
		return fmt.Errorf("%w: %d", ErrCounterRange, index)
	}

	data := make([]byte, 7)
	binary.LittleEndian.PutUint16(data, index)
	binary.LittleEndian.PutUint32(data[3:], value)

	_, err := c.execute(cmdMCounterInit, data)
	return err
}

// MCounterUpdate decrements a monotonic counter by one. Updating a counter
// that already reached zero fails with ErrCounterUpdate.
//
// Command: [0x81][index:2].
func (c *Client) MCounterUpdate(index uint16) error {
	if index > MCounterMax {
		return fmt.Errorf("%w: %d", ErrCounterRange, index)
	}

	data := make([]byte, 2)
	binary.LittleEndian.PutUint16(data, index)

	_, err := c.execute(cmdMCounterUpdate, data)
	return err
}

// MCounterGet returns the current value of a monotonic counter.
//
// Command: [0x82][index:2]. Response: [pad:3][value:4].
func (c *Client) MCounterGet(index uint16) (uint32, error) {
	if index > MCounterMax {
		return 0, fmt.Errorf("%w: %d", ErrCounterRange, index)
	}

	data := make([]byte, 2)
	binary.LittleEndian.PutUint16(data, index)

	resp, err := c.execute(cmdMCounterGet, data)
	if err != nil {
		return 0, err
	}
	if len(resp) != 7 {
		return 0, fmt.Errorf("%w: counter response is %d bytes", ErrResponseLength, len(resp))
	}
	return binary.LittleEndian.Uint32(resp[3:]), nil
}

// --- MAC and Destroy ---

// MacAndDestroy runs one round of the MAC-and-Destroy PIN verification
// scheme: it computes a MAC over data with the key in the given slot and
// destroys the key in the process. data must be exactly MacDataSize bytes.
//
// Command: [0x90][slot:2][pad:1][data:32]. Response: [pad:3][mac:32].
func (c *Client) MacAndDestroy(slot uint16, data []byte) ([]byte, error) {
	if slot > MacSlotMax {
		return nil, fmt.Errorf("%w: %d", ErrMacSlotRange, slot)
	}
	if len(data) != MacDataSize {
		return nil, fmt.Errorf("%w: got %d", ErrMacDataSize, len(data))
	}

	payload := make([]byte, 3, 3+MacDataSize)
	binary.LittleEndian.PutUint16(payload, slot)
	payload = append(payload, data...)

	resp, err := c.execute(cmdMacAndDestroy, payload)
	if err != nil {
		return nil, err
	}
	if len(resp) != 3+MacDataSize {
		return nil, fmt.Errorf("%w: mac response is %d bytes", ErrResponseLength, len(resp))
	}
	return resp[3:], nil
}

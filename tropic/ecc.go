package tropic

import (
	"encoding/binary"
	"fmt"
)

// Curve identifies the curve type of an ECC key slot.
type Curve byte

const (
	// CurveP256 is NIST P-256, used for ECDSA.
	CurveP256 Curve = 0x01

	// CurveEd25519 is the twisted Edwards curve used for EdDSA.
	CurveEd25519 Curve = 0x02
)

func (c Curve) String() string {
	switch c {
	case CurveP256:
		return "P-256"
	case CurveEd25519:
		return "Ed25519"
	default:
		return fmt.Sprintf("unknown(0x%02X)", byte(c))
	}
}

func (c Curve) valid() bool {
	return c == CurveP256 || c == CurveEd25519
}

// publicKeySize returns the wire size of a public key on the curve.
func (c Curve) publicKeySize() int {
	if c == CurveP256 {
		return 64
	}
	return 32
}

// KeyOrigin reports how an ECC key slot was populated.
type KeyOrigin byte

const (
	// KeyOriginGenerated marks keys created on-chip by EccKeyGenerate.
	KeyOriginGenerated KeyOrigin = 0x01

	// KeyOriginStored marks keys imported by EccKeyStore.
	KeyOriginStored KeyOrigin = 0x02
)

func (o KeyOrigin) String() string {
	switch o {
	case KeyOriginGenerated:
		return "generated"
	case KeyOriginStored:
		return "stored"
	default:
		return fmt.Sprintf("unknown(0x%02X)", byte(o))
	}
}

// EccKey is the public description of an ECC key slot. PublicKey is the
// uncompressed X || Y point for P-256 and the compressed point for Ed25519.
type EccKey struct {
	Curve     Curve
	Origin    KeyOrigin
	PublicKey []byte
}

// Signature holds an ECC signature in raw R and S form, 32 bytes each.
type Signature struct {
	R []byte
	S []byte
}

// Bytes returns the R || S concatenation, the form ed25519.Verify and other
// raw-signature verifiers expect.
func (s *Signature) Bytes() []byte {
	out := make([]byte, 0, len(s.R)+len(s.S))
	out = append(out, s.R...)
	out = append(out, s.S...)
	return out
}

// EddsaMsgMaxSize is the longest message EddsaSign accepts.
const EddsaMsgMaxSize = 4096

// EccKeyGenerate creates a fresh key pair on the given curve inside an ECC
// slot. The private key never leaves the chip.
//
// Command: [0x60][slot:2][curve:1].
func (c *Client) EccKeyGenerate(slot uint16, curve Curve) error {
	if slot > EccSlotMax {
		return fmt.Errorf("%w: %d", ErrEccSlotRange, slot)
	}
	if !curve.valid() {
		return fmt.Errorf("%w: 0x%02X", ErrInvalidCurve, byte(curve))
	}

	data := make([]byte, 3)
	binary.LittleEndian.PutUint16(data, slot)
	data[2] = byte(curve)

	_, err := c.execute(cmdEccKeyGenerate, data)
	return err
}

// EccKeyStore imports a 32-byte private key into an ECC slot.
//
// Command: [0x61][slot:2][curve:1][pad:12][key:32].
func (c *Client) EccKeyStore(slot uint16, curve Curve, privateKey []byte) error {
	if slot > EccSlotMax {
		return fmt.Errorf("%w: %d", ErrEccSlotRange, slot)
	}
	if !curve.valid() {
		return fmt.Errorf("%w: 0x%02X", ErrInvalidCurve, byte(curve))
	}
	if len(privateKey) != KeySize {
		return fmt.Errorf("%w: got %d", ErrKeySize, len(privateKey))
	}

	data := make([]byte, 15, 15+KeySize)
	binary.LittleEndian.PutUint16(data, slot)
	data[2] = byte(curve)
	data = append(data, privateKey...)

	_, err := c.execute(cmdEccKeyStore, data)
	return err
}

// EccKeyRead returns the curve, origin and public key of an ECC slot.
// Reading an empty slot fails with ErrECCKeyInvalid.
//
// Command: [0x62][slot:2]. Response: [curve:1][origin:1][pad:13][pubkey].
func (c *Client) EccKeyRead(slot uint16) (*EccKey, error) {
	if slot > EccSlotMax {
		return nil, fmt.Errorf("%w: %d", ErrEccSlotRange, slot)
	}

	data := make([]byte, 2)
	binary.LittleEndian.PutUint16(data, slot)

	resp, err := c.execute(cmdEccKeyRead, data)
	if err != nil {
		return nil, err
	}
	if len(resp) < 15 {
		return nil, fmt.Errorf("%w: key response is %d bytes", ErrResponseLength, len(resp))
	}

	key := &EccKey{
		Curve:  Curve(resp[0]),
		Origin: KeyOrigin(resp[1]),
	}
	if !key.Curve.valid() {
		return nil, fmt.Errorf("%w: chip reported 0x%02X", ErrInvalidCurve, resp[0])
	}
	if len(resp) != 15+key.Curve.publicKeySize() {
		return nil, fmt.Errorf("%w: %d-byte public key for %s", ErrResponseLength, len(resp)-15, key.Curve)
	}
	key.PublicKey = resp[15:]
	return key, nil
}

// EccKeyErase clears an ECC slot.
//
// Command: [0x63][slot:2].
func (c *Client) EccKeyErase(slot uint16) error {
	if slot > EccSlotMax {
		return fmt.Errorf("%w: %d", ErrEccSlotRange, slot)
	}

	data := make([]byte, 2)
	binary.LittleEndian.PutUint16(data, slot)

	_, err := c.execute(cmdEccKeyErase, data)
	return err
}

// EcdsaSign signs a 32-byte message digest with the P-256 key in the given
// slot.
//
// Command: [0x70][slot:2][pad:13][hash:32]. Response: [pad:15][r:32][s:32].
func (c *Client) EcdsaSign(slot uint16, hash []byte) (*Signature, error) {
	if slot > EccSlotMax {
		return nil, fmt.Errorf("%w: %d", ErrEccSlotRange, slot)
	}
	if len(hash) != 32 {
		return nil, fmt.Errorf("%w: got %d", ErrHashSize, len(hash))
	}

	data := make([]byte, 15, 15+len(hash))
	binary.LittleEndian.PutUint16(data, slot)
	data = append(data, hash...)

	resp, err := c.execute(cmdEcdsaSign, data)
	if err != nil {
		return nil, err
	}
	return parseSignature(resp)
}

// EddsaSign signs a message of up to EddsaMsgMaxSize bytes with the Ed25519
// key in the given slot. The chip hashes the message itself.
//
// Command: [0x71][slot:2][pad:13][msg]. Response: [pad:15][r:32][s:32].
func (c *Client) EddsaSign(slot uint16, msg []byte) (*Signature, error) {
	if slot > EccSlotMax {
		return nil, fmt.Errorf("%w: %d", ErrEccSlotRange, slot)
	}
	if len(msg) > EddsaMsgMaxSize {
		return nil, fmt.Errorf("%w: message is %d bytes, limit %d", ErrDataTooLarge, len(msg), EddsaMsgMaxSize)
	}

	data := make([]byte, 15, 15+len(msg))
	binary.LittleEndian.PutUint16(data, slot)
	data = append(data, msg...)

	resp, err := c.execute(cmdEddsaSign, data)
	if err != nil {
		return nil, err
	}
	return parseSignature(resp)
}

// parseSignature splits a [pad:15][r:32][s:32] signing response.
func parseSignature(resp []byte) (*Signature, error) {
	if len(resp) != 15+64 {
		return nil, fmt.Errorf("%w: signature response is %d bytes", ErrResponseLength, len(resp))
	}
	return &Signature{R: resp[15:47], S: resp[47:79]}, nil
}

package tropic

import "errors"

// Validation errors, reported before any traffic reaches the chip.
var (
	// ErrPairingSlotRange is returned when a pairing key slot is outside
	// 0 through PairingSlotMax.
	ErrPairingSlotRange = errors.New("tropic: pairing key slot out of range")

	// ErrEccSlotRange is returned when an ECC key slot is outside
	// 0 through EccSlotMax.
	ErrEccSlotRange = errors.New("tropic: ecc key slot out of range")

	// ErrCounterRange is returned when a monotonic counter index is
	// outside 0 through MCounterMax.
	ErrCounterRange = errors.New("tropic: monotonic counter index out of range")

	// ErrMacSlotRange is returned when a MAC-and-Destroy slot is outside
	// 0 through MacSlotMax.
	ErrMacSlotRange = errors.New("tropic: mac-and-destroy slot out of range")

	// ErrMemSlotRange is returned when a user memory slot is outside
	// 0 through MemSlotMax.
	ErrMemSlotRange = errors.New("tropic: memory slot out of range")

	// ErrKeySize is returned when a key argument is not KeySize bytes.
	ErrKeySize = errors.New("tropic: key must be 32 bytes")

	// ErrHashSize is returned when an ECDSA digest is not 32 bytes.
	ErrHashSize = errors.New("tropic: digest must be 32 bytes")

	// ErrMacDataSize is returned when MAC-and-Destroy input is not
	// exactly 32 bytes.
	ErrMacDataSize = errors.New("tropic: mac-and-destroy data must be 32 bytes")

	// ErrDataTooLarge is returned when user memory data exceeds
	// MemDataMaxSize bytes.
	ErrDataTooLarge = errors.New("tropic: data exceeds memory slot capacity")

	// ErrInvalidCurve is returned for curve identifiers the chip does not
	// implement.
	ErrInvalidCurve = errors.New("tropic: invalid ecc curve")
)

// Response decoding errors.
var (
	// ErrCertMalformed is returned when the certificate store header is
	// inconsistent with the data read from the chip.
	ErrCertMalformed = errors.New("tropic: malformed certificate")

	// ErrChipKeyNotFound is returned when the chip certificate does not
	// contain an X25519 public key.
	ErrChipKeyNotFound = errors.New("tropic: chip public key not found in certificate")

	// ErrResponseLength is returned when a chip response does not match
	// the layout its command prescribes.
	ErrResponseLength = errors.New("tropic: unexpected response length")
)

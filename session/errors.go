package session

import "errors"

// Sentinel errors for session establishment and the secure channel.
var (
	// Handshake errors.
	ErrHandshakeAuth = errors.New("session: handshake authentication tag mismatch")
	ErrKeyLength     = errors.New("session: invalid key length")
	ErrSlotRange     = errors.New("session: pairing key slot out of range")

	// Secure-channel errors.
	ErrNoActiveSession = errors.New("session: no active secure session")
	ErrDecryptFailed   = errors.New("session: response authentication failed")
	ErrEmptyResponse   = errors.New("session: empty response plaintext")

	// Command-result errors, one per chip result code.
	ErrCmdFailed         = errors.New("session: command execution failed")
	ErrCmdUnauthorized   = errors.New("session: command not authorized")
	ErrCmdInvalid        = errors.New("session: invalid command")
	ErrMemWriteFailed    = errors.New("session: memory write operation failed")
	ErrMemSlotExpired    = errors.New("session: memory slot has expired")
	ErrECCKeyInvalid     = errors.New("session: ecc key is invalid or not found")
	ErrCounterUpdate     = errors.New("session: monotonic counter update failed")
	ErrCounterInvalid    = errors.New("session: invalid monotonic counter")
	ErrPairingKeyEmpty   = errors.New("session: pairing key slot is empty")
	ErrPairingKeyInvalid = errors.New("session: invalid pairing key")
	ErrUnknownResult     = errors.New("session: command failed")
)

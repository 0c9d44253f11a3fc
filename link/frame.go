package link

import (
	"fmt"

	"github.com/tropicsquare/go-tropic01/crc16"
)

// Request IDs.
const (
	// ReqGetInfo requests an information object (certificate, chip ID,
	// firmware versions). Payload: [objectID, blockIndex].
	ReqGetInfo byte = 0x01

	// ReqHandshake starts session establishment.
	// Payload: [hostEphPub(32), slot(1)].
	ReqHandshake byte = 0x02

	// ReqEncryptedCmd carries one chunk of an encrypted command.
	ReqEncryptedCmd byte = 0x04

	// ReqSessionAbort terminates the current secure session.
	ReqSessionAbort byte = 0x08

	// ReqResend asks the chip to resend its last response.
	ReqResend byte = 0x10

	// ReqSleep puts the chip into a sleep mode. Payload: [mode].
	ReqSleep byte = 0x20

	// ReqGetLog fetches one chunk of the RISC-V firmware log.
	ReqGetLog byte = 0xA2

	// ReqStartup reboots the chip. Payload: [mode].
	ReqStartup byte = 0xB3

	// probeByte is the single-byte get-response probe. It is transferred
	// without a length byte or CRC.
	probeByte byte = 0xAA
)

// InfoObject selects a GetInfo information object.
type InfoObject byte

const (
	InfoCertificate InfoObject = 0x00
	InfoChipID      InfoObject = 0x01
	InfoRiscvFw     InfoObject = 0x02
	InfoSpectFw     InfoObject = 0x04
	InfoFwBank      InfoObject = 0xB0
)

// SleepMode selects the power state entered by a sleep request.
type SleepMode byte

const (
	SleepModeSleep SleepMode = 0x05
	SleepModeDeep  SleepMode = 0x0A
)

// StartupMode selects the reboot flavor of a startup request.
type StartupMode byte

const (
	StartupReboot      StartupMode = 0x01
	StartupMaintenance StartupMode = 0x03
)

// ChunkSize is the fixed chunk size for outbound encrypted-command payloads.
const ChunkSize = 128

// cmdSizeLen is the width of the little-endian size prefix inside an
// encrypted-command payload.
const cmdSizeLen = 2

// handshakeKeyLen is the width of an X25519 public key in the handshake
// exchange.
const handshakeKeyLen = 32

// handshakeRespLen is the size of a handshake response:
// chip ephemeral public key + authentication tag.
const handshakeRespLen = handshakeKeyLen + tagLen

// tagLen is the width of the AEAD authentication tag carried after the
// ciphertext.
const tagLen = 16

// responseHeaderLen is the size of a response header: status + length.
const responseHeaderLen = 2

// maxPayloadLen is the largest payload expressible by the one-byte request
// length field.
const maxPayloadLen = 255

// buildRequest assembles a CRC-sealed request frame:
//
//	[reqID][len(payload)][payload][CRC16 lo][CRC16 hi]
func buildRequest(reqID byte, payload []byte) ([]byte, error) {
	if len(payload) > maxPayloadLen {
		return nil, fmt.Errorf("%w: got %d bytes, max %d", ErrPayloadTooLarge, len(payload), maxPayloadLen)
	}

	frame := make([]byte, 0, 2+len(payload)+crc16.Size)
	frame = append(frame, reqID, byte(len(payload)))
	frame = append(frame, payload...)

	return crc16.Append(frame, frame), nil
}

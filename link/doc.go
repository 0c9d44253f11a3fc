// Package link implements the TROPIC01 link layer (L2): request framing,
// CRC validation, the poll-until-ready retry protocol, and chunked
// transmission of encrypted commands.
//
// The chip is reachable only through a half-duplex, byte-oriented transport
// (an SPI-like duplex transfer plus explicit chip-select). The link layer
// turns that into reliable request/response exchanges.
//
// # Request Framing
//
// Every request is a CRC-sealed frame:
//
//	[reqID(1)][length(1)][payload(length)][CRC16(2, low byte first)]
//
// The CRC-16/BUYPASS checksum covers everything before it. The only frame
// without a CRC is the single-byte get-response probe (0xAA).
//
// # Response Protocol
//
// Responses are fetched by polling: the driver transfers the probe byte,
// inspects the chip-status octet clocked back during the transfer, and
// either retries (NOT_READY, BUSY — release the line, wait 25 ms), fails
// (ALARM bit set), or reads the response:
//
//	[status(1)][length(1)][payload(length)][CRC16(2, low byte first)]
//
// The chip-select line is released before any validation, on every path.
// Response status is validated before the CRC comparison, matching the
// chip's own ordering. A RES_CONT status means the payload continues in a
// further response; the driver accumulates continuations iteratively up to
// a configurable total-size cap.
//
// # Chunked Commands
//
// Encrypted command payloads larger than 128 bytes are split into chunks,
// each framed and acknowledged individually, followed by a single terminal
// response fetch. See [Driver.EncryptedCommand].
package link

package link

import (
	"encoding/binary"
	"fmt"

	"github.com/tropicsquare/go-tropic01/crc16"
	"github.com/tropicsquare/go-tropic01/internal/pool"
	"github.com/tropicsquare/go-tropic01/logger"
)

// Transport is the byte-level channel to the chip: a full-duplex transfer
// primitive plus explicit chip-select control.
//
// Implementations are provided by the transport package; any SPI-like
// carrier works. Transfer clocks tx out and returns the same number of
// bytes clocked in. Read clocks in n bytes while sending idle filler.
// Both are only meaningful between SelectLow and SelectHigh.
type Transport interface {
	Transfer(tx []byte) ([]byte, error)
	Read(n int) ([]byte, error)
	SelectLow() error
	SelectHigh() error
	Close() error
}

// Driver implements the link-layer request/response protocol on top of a
// Transport.
//
// Driver is NOT goroutine-safe: the protocol is half-duplex and every
// exchange owns the chip-select line for its whole duration. Callers must
// serialize access; the tropic client does this with a single mutex.
type Driver struct {
	tr      Transport
	cfg     *Config
	logger  logger.Logger
	metrics Metrics
}

// NewDriver creates a link driver over tr.
func NewDriver(tr Transport, opts ...Option) (*Driver, error) {
	if tr == nil {
		return nil, fmt.Errorf("link: transport must not be nil")
	}

	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}

	return &Driver{
		tr:     tr,
		cfg:    cfg,
		logger: cfg.logger,
	}, nil
}

// Metrics returns the driver's counters.
func (d *Driver) Metrics() *Metrics {
	return &d.metrics
}

// Close closes the underlying transport.
func (d *Driver) Close() error {
	return d.tr.Close()
}

// --- Request/response primitives ---

// sendRequest transmits one CRC-sealed frame: select the line, perform a
// single duplex transfer, release the line. Bytes clocked back during a
// request transfer carry no information and are discarded.
func (d *Driver) sendRequest(frame []byte) error {
	if err := d.tr.SelectLow(); err != nil {
		return fmt.Errorf("link: select line: %w", err)
	}

	_, err := d.tr.Transfer(frame)
	d.metrics.incTransferCount()

	if highErr := d.tr.SelectHigh(); highErr != nil && err == nil {
		err = highErr
	}
	if err != nil {
		return fmt.Errorf("link: send request: %w", err)
	}

	d.metrics.incRequestCount()

	return nil
}

// pollResult classifies one get-response poll so the retry loop can decide
// whether to return, wait, or abort.
type pollResult int

const (
	pollReady   pollResult = iota // Response read and line released.
	pollWaiting                   // Chip busy or not ready; wait and poll again.
	pollAbort                     // Non-retryable failure (alarm, transport error, bad response).
)

// pollOnce performs a single get-response attempt: transfer the probe byte,
// inspect the chip status, and on READY read and validate one response.
//
// The chip-select line is released exactly once on every path, and always
// before status or CRC validation.
func (d *Driver) pollOnce() (Status, []byte, pollResult, error) {
	if err := d.tr.SelectLow(); err != nil {
		return 0, nil, pollAbort, fmt.Errorf("link: select line: %w", err)
	}

	released := false
	release := func() {
		if released {
			return
		}
		released = true
		if err := d.tr.SelectHigh(); err != nil {
			d.logger.Warn("link: failed to release chip select", "error", err)
		}
	}
	defer release()

	rx, err := d.tr.Transfer([]byte{probeByte})
	d.metrics.incTransferCount()
	if err != nil {
		return 0, nil, pollAbort, fmt.Errorf("link: probe transfer: %w", err)
	}
	if len(rx) == 0 {
		return 0, nil, pollAbort, fmt.Errorf("link: probe transfer returned no data")
	}

	chipStatus := ChipStatus(rx[0])

	if chipStatus.Waiting() {
		return 0, nil, pollWaiting, nil
	}

	if chipStatus.Alarm() {
		d.metrics.incAlarmCount()
		return 0, nil, pollAbort, ErrAlarm
	}

	header, err := d.tr.Read(responseHeaderLen)
	if err != nil {
		return 0, nil, pollAbort, fmt.Errorf("link: read response header: %w", err)
	}
	if len(header) != responseHeaderLen {
		return 0, nil, pollAbort, fmt.Errorf("link: short response header: %d bytes", len(header))
	}

	status := Status(header[0])
	length := int(header[1])

	// A 0xFF status byte is the bus idle value: the chip accepted the probe
	// but has not produced the response yet.
	if status == StatusNoResp {
		return 0, nil, pollWaiting, nil
	}

	var payload []byte
	if length > 0 {
		payload, err = d.tr.Read(length)
		if err != nil {
			return 0, nil, pollAbort, fmt.Errorf("link: read response payload: %w", err)
		}
	}

	trailer, err := d.tr.Read(crc16.Size)
	if err != nil {
		return 0, nil, pollAbort, fmt.Errorf("link: read response crc: %w", err)
	}
	if len(trailer) != crc16.Size {
		return 0, nil, pollAbort, fmt.Errorf("link: short response crc: %d bytes", len(trailer))
	}

	release()

	if err := status.Check(); err != nil {
		return 0, nil, pollAbort, err
	}

	wireCRC := uint16(trailer[0]) | uint16(trailer[1])<<8
	calcCRC := crc16.Checksum(append(header[:responseHeaderLen:responseHeaderLen], payload...))
	if wireCRC != calcCRC {
		d.metrics.incCRCErrorCount()
		return 0, nil, pollAbort, fmt.Errorf("%w: wire=0x%04X, computed=0x%04X", ErrCRCMismatch, wireCRC, calcCRC)
	}

	return status, payload, pollReady, nil
}

// getResponse polls for a single response, waiting a fixed interval between
// attempts, up to the configured retry budget.
func (d *Driver) getResponse() (Status, []byte, error) {
	for retry := 1; retry <= d.cfg.maxRetries; retry++ {
		status, payload, result, err := d.pollOnce()

		switch result {
		case pollReady:
			d.metrics.incResponseCount()
			return status, payload, nil

		case pollWaiting:
			d.metrics.incBusyWaitCount()
			d.logger.Debug("link: chip not ready, polling again",
				"retry", retry,
				"maxRetries", d.cfg.maxRetries,
			)

			pool.Wait(d.cfg.pollInterval)

			continue

		case pollAbort:
			return 0, nil, err
		}
	}

	d.metrics.incTimeoutCount()

	return 0, nil, ErrTimeout
}

// response fetches one logical response, following RES_CONT continuations
// by accumulation. The total size is capped by MaxResponseSize; exceeding
// it fails the exchange rather than growing without bound.
func (d *Driver) response() ([]byte, error) {
	var data []byte

	for {
		status, payload, err := d.getResponse()
		if err != nil {
			return nil, err
		}

		if len(data)+len(payload) > d.cfg.maxResponseSize {
			return nil, fmt.Errorf("%w: got %d bytes, limit %d",
				ErrResponseTooLarge, len(data)+len(payload), d.cfg.maxResponseSize)
		}
		data = append(data, payload...)

		if status != StatusResultCont {
			return data, nil
		}

		d.metrics.incContinuationCount()
		d.logger.Debug("link: continued response", "accumulated", len(data))
	}
}

// request builds a frame, sends it, and fetches the complete response.
func (d *Driver) request(reqID byte, payload []byte) ([]byte, error) {
	frame, err := buildRequest(reqID, payload)
	if err != nil {
		return nil, err
	}

	if err := d.sendRequest(frame); err != nil {
		return nil, err
	}

	return d.response()
}

// --- Link-layer operations ---

// GetInfo retrieves one block of an information object.
func (d *Driver) GetInfo(object InfoObject, block uint8) ([]byte, error) {
	return d.request(ReqGetInfo, []byte{byte(object), block})
}

// Handshake sends the host's ephemeral public key and pairing slot, and
// returns the chip's ephemeral public key and authentication tag.
func (d *Driver) Handshake(hostEphPub []byte, slot uint8) (chipEphPub, authTag []byte, err error) {
	if len(hostEphPub) != handshakeKeyLen {
		return nil, nil, fmt.Errorf("link: ephemeral public key must be %d bytes, got %d",
			handshakeKeyLen, len(hostEphPub))
	}

	payload := make([]byte, 0, handshakeKeyLen+1)
	payload = append(payload, hostEphPub...)
	payload = append(payload, slot)

	data, err := d.request(ReqHandshake, payload)
	if err != nil {
		return nil, nil, err
	}
	if len(data) != handshakeRespLen {
		return nil, nil, fmt.Errorf("%w: handshake response %d bytes, want %d",
			ErrUnexpectedResponse, len(data), handshakeRespLen)
	}

	return data[:handshakeKeyLen], data[handshakeKeyLen:], nil
}

// EncryptedCommand transmits one encrypted command and returns the chip's
// encrypted reply.
//
// The logical payload [size(2 LE)][ciphertext][tag(16)] is split into
// chunks of at most ChunkSize bytes. Every chunk is framed and sent
// individually, and its empty acknowledgment consumed, before the next one
// goes out. One final response fetch then yields the reply in the same
// layout, which is unwrapped and size-checked.
func (d *Driver) EncryptedCommand(ciphertext, tag []byte) (respCiphertext, respTag []byte, err error) {
	if len(tag) != tagLen {
		return nil, nil, fmt.Errorf("link: command tag must be %d bytes, got %d", tagLen, len(tag))
	}

	l3 := make([]byte, 0, cmdSizeLen+len(ciphertext)+tagLen)
	l3 = binary.LittleEndian.AppendUint16(l3, uint16(len(ciphertext))) //nolint:gosec // bounded by chunked framing
	l3 = append(l3, ciphertext...)
	l3 = append(l3, tag...)

	for offset := 0; offset < len(l3); offset += ChunkSize {
		chunk := l3[offset:min(offset+ChunkSize, len(l3))]

		frame, err := buildRequest(ReqEncryptedCmd, chunk)
		if err != nil {
			return nil, nil, err
		}
		if err := d.sendRequest(frame); err != nil {
			return nil, nil, err
		}
		d.metrics.incChunkSendCount()

		// Consume the acknowledgment for this chunk before sending the next.
		if _, err := d.response(); err != nil {
			return nil, nil, err
		}

		d.logger.Debug("link: command chunk acknowledged",
			"offset", offset,
			"size", len(chunk),
		)
	}

	data, err := d.response()
	if err != nil {
		return nil, nil, err
	}
	if len(data) < cmdSizeLen+tagLen {
		return nil, nil, fmt.Errorf("%w: encrypted response %d bytes, want at least %d",
			ErrUnexpectedResponse, len(data), cmdSizeLen+tagLen)
	}

	declared := int(binary.LittleEndian.Uint16(data[:cmdSizeLen]))
	respCiphertext = data[cmdSizeLen : len(data)-tagLen]
	respTag = data[len(data)-tagLen:]

	if declared != len(respCiphertext) {
		return nil, nil, fmt.Errorf("%w: declared %d, got %d", ErrSizeMismatch, declared, len(respCiphertext))
	}

	return respCiphertext, respTag, nil
}

// SessionAbort terminates the chip side of the current secure session.
func (d *Driver) SessionAbort() error {
	_, err := d.request(ReqSessionAbort, nil)
	return err
}

// Sleep puts the chip into the given sleep mode.
func (d *Driver) Sleep(mode SleepMode) error {
	switch mode {
	case SleepModeSleep, SleepModeDeep:
	default:
		return fmt.Errorf("link: invalid sleep mode 0x%02X", byte(mode))
	}

	_, err := d.request(ReqSleep, []byte{byte(mode)})

	return err
}

// Startup reboots the chip into normal or maintenance mode.
func (d *Driver) Startup(mode StartupMode) error {
	switch mode {
	case StartupReboot, StartupMaintenance:
	default:
		return fmt.Errorf("link: invalid startup mode 0x%02X", byte(mode))
	}

	_, err := d.request(ReqStartup, []byte{byte(mode)})

	return err
}

// GetLog fetches one chunk of the RISC-V firmware log. An empty result
// means the log buffer is drained.
func (d *Driver) GetLog() ([]byte, error) {
	return d.request(ReqGetLog, nil)
}

// Resend asks the chip to transmit its last response again, e.g. after a
// CRC failure on the host side. It is never invoked automatically.
func (d *Driver) Resend() ([]byte, error) {
	return d.request(ReqResend, nil)
}

package transport

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"time"

	"github.com/tropicsquare/go-tropic01/link"
	"github.com/tropicsquare/go-tropic01/logger"
)

// DefaultTCPSPIPort is the listening port of the raw SPI bridge.
const DefaultTCPSPIPort = "12345"

// Raw SPI bridge commands. READ and WRITE_READINTO carry a big-endian
// 32-bit length; the chip-select commands are single bytes answered with a
// one-byte 0x00 acknowledgment.
const (
	spiCmdRead          byte = 0x01
	spiCmdWriteReadInto byte = 0x08
	spiCmdCSLow         byte = 0x10
	spiCmdCSHigh        byte = 0x20
)

// TCPSPI drives a raw SPI network bridge: a microcontroller that forwards
// bus operations received over TCP straight to its SPI peripheral.
type TCPSPI struct {
	io     *netIO
	logger logger.Logger
}

var _ link.Transport = (*TCPSPI)(nil)

// DialTCPSPI connects to a raw SPI bridge. addr is "host" or "host:port";
// without a port, [DefaultTCPSPIPort] is used.
func DialTCPSPI(addr string, opts ...Option) (*TCPSPI, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}

	address := withDefaultPort(addr, DefaultTCPSPIPort)
	dialer := &net.Dialer{KeepAlive: 30 * time.Second}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.dialTimeout)
	defer cancel()

	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("transport: dial spi bridge %s: %w", address, err)
	}

	cfg.logger.Debug("transport: connected to spi bridge", "address", address)

	return &TCPSPI{
		io:     newNetIO(conn, cfg.ioTimeout),
		logger: cfg.logger,
	}, nil
}

// Transfer sends tx over WRITE_READINTO and returns the bytes the bridge
// clocked in, always len(tx) of them.
func (t *TCPSPI) Transfer(tx []byte) ([]byte, error) {
	msg := make([]byte, 0, 5+len(tx))
	msg = append(msg, spiCmdWriteReadInto)
	msg = binary.BigEndian.AppendUint32(msg, uint32(len(tx))) //nolint:gosec // frame sizes are single-digit hundreds
	msg = append(msg, tx...)

	if err := t.io.writeAll(msg); err != nil {
		return nil, fmt.Errorf("transport: spi transfer: %w", err)
	}

	rx := make([]byte, len(tx))
	if err := t.io.readFull(rx); err != nil {
		return nil, fmt.Errorf("transport: spi transfer: %w", err)
	}

	return rx, nil
}

// Read clocks in n bytes via the READ command.
func (t *TCPSPI) Read(n int) ([]byte, error) {
	msg := make([]byte, 0, 5)
	msg = append(msg, spiCmdRead)
	msg = binary.BigEndian.AppendUint32(msg, uint32(n)) //nolint:gosec // frame sizes are single-digit hundreds

	if err := t.io.writeAll(msg); err != nil {
		return nil, fmt.Errorf("transport: spi read: %w", err)
	}

	rx := make([]byte, n)
	if err := t.io.readFull(rx); err != nil {
		return nil, fmt.Errorf("transport: spi read: %w", err)
	}

	return rx, nil
}

// SelectLow asserts the chip-select line.
func (t *TCPSPI) SelectLow() error {
	return t.setCS(spiCmdCSLow)
}

// SelectHigh releases the chip-select line.
func (t *TCPSPI) SelectHigh() error {
	return t.setCS(spiCmdCSHigh)
}

func (t *TCPSPI) setCS(cmd byte) error {
	if err := t.io.writeAll([]byte{cmd}); err != nil {
		return fmt.Errorf("transport: chip select: %w", err)
	}

	ack, err := t.io.readByte()
	if err != nil {
		return fmt.Errorf("transport: chip select: %w", err)
	}
	if ack != 0x00 {
		return fmt.Errorf("%w: ack 0x%02X", ErrBadAck, ack)
	}

	return nil
}

// Close closes the bridge connection.
func (t *TCPSPI) Close() error {
	return t.io.conn.Close()
}

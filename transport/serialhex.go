package transport

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"strings"

	"go.bug.st/serial"

	"github.com/tropicsquare/go-tropic01/link"
	"github.com/tropicsquare/go-tropic01/logger"
)

// SerialHex drives a UART bridge running the hex-line firmware: every bus
// operation is one text line out, one text line back.
type SerialHex struct {
	port   serial.Port
	reader *bufio.Reader
	logger logger.Logger
}

var _ link.Transport = (*SerialHex)(nil)

// OpenSerialHex opens a hex-line UART bridge on the given device
// (e.g. /dev/ttyACM0) at 8N1.
func OpenSerialHex(device string, opts ...Option) (*SerialHex, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: cfg.baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(device, mode)
	if err != nil {
		return nil, fmt.Errorf("transport: open serial port %s: %w", device, err)
	}

	if err := port.SetReadTimeout(cfg.ioTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("transport: set serial read timeout: %w", err)
	}

	cfg.logger.Debug("transport: opened serial bridge",
		"device", device,
		"baudRate", cfg.baudRate,
	)

	return &SerialHex{
		port:   port,
		reader: bufio.NewReader(port),
		logger: cfg.logger,
	}, nil
}

// hexLine encodes a transfer for the bridge firmware: uppercase hex of the
// tx bytes, terminated by "x\n".
func hexLine(tx []byte) []byte {
	line := make([]byte, 0, hex.EncodedLen(len(tx))+2)
	line = append(line, strings.ToUpper(hex.EncodeToString(tx))...)
	line = append(line, 'x', '\n')

	return line
}

// decodeHexLine parses one reply line into the rx bytes it carries.
func decodeHexLine(line string) ([]byte, error) {
	data, err := hex.DecodeString(strings.TrimSpace(line))
	if err != nil {
		return nil, fmt.Errorf("transport: malformed hex reply %q: %w", strings.TrimSpace(line), err)
	}

	return data, nil
}

func (t *SerialHex) exchangeLine(line []byte) ([]byte, error) {
	if _, err := t.port.Write(line); err != nil {
		return nil, fmt.Errorf("transport: serial write: %w", err)
	}

	reply, err := t.reader.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("transport: serial read: %w", err)
	}

	return decodeHexLine(reply)
}

// Transfer ships tx as one hex line and decodes the reply line as rx.
func (t *SerialHex) Transfer(tx []byte) ([]byte, error) {
	rx, err := t.exchangeLine(hexLine(tx))
	if err != nil {
		return nil, err
	}
	if len(rx) != len(tx) {
		return nil, fmt.Errorf("%w: sent %d bytes, received %d", ErrLengthMismatch, len(tx), len(rx))
	}

	return rx, nil
}

// Read clocks in n bytes by transferring n zero bytes.
func (t *SerialHex) Read(n int) ([]byte, error) {
	rx, err := t.exchangeLine(hexLine(make([]byte, n)))
	if err != nil {
		return nil, err
	}
	if len(rx) != n {
		return nil, fmt.Errorf("%w: requested %d bytes, received %d", ErrLengthMismatch, n, len(rx))
	}

	return rx, nil
}

// SelectLow asserts the chip-select line.
func (t *SerialHex) SelectLow() error {
	return t.setCS(0)
}

// SelectHigh releases the chip-select line.
func (t *SerialHex) SelectHigh() error {
	return t.setCS(1)
}

func (t *SerialHex) setCS(level int) error {
	if _, err := fmt.Fprintf(t.port, "CS=%d\n", level); err != nil {
		return fmt.Errorf("transport: chip select: %w", err)
	}

	// The firmware acknowledges with one line; its content is not
	// meaningful.
	if _, err := t.reader.ReadString('\n'); err != nil {
		return fmt.Errorf("transport: chip select ack: %w", err)
	}

	return nil
}

// Close closes the serial port.
func (t *SerialHex) Close() error {
	return t.port.Close()
}

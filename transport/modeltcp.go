package transport

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/tropicsquare/go-tropic01/link"
	"github.com/tropicsquare/go-tropic01/logger"
)

// DefaultModelPort is the listening port of the TROPIC01 model/simulator.
const DefaultModelPort = "28992"

// Model-socket protocol tags. Every message is [tag][length(2 LE)][payload];
// the server answers with the same tag, or one of the error tags. Exported
// because the bridge server speaks the other side of this protocol.
const (
	TagCSNLow  byte = 0x01
	TagCSNHigh byte = 0x02
	TagSPISend byte = 0x03

	// TagWait asks the model to let wall-clock time pass. The bridge
	// accepts and ignores it; this client never sends it.
	TagWait byte = 0x06

	TagInvalid     byte = 0xFD
	TagUnsupported byte = 0xFE
)

// MaxModelPayload is the largest payload one model-socket message carries.
const MaxModelPayload = 256

// ModelHeaderLen is the size of a model-socket message header.
const ModelHeaderLen = 3

// ModelTCP speaks the tagged model-socket protocol of the TROPIC01
// model/simulator, mapping bus operations onto SPI_SEND and CSN messages.
type ModelTCP struct {
	io     *netIO
	logger logger.Logger
}

var _ link.Transport = (*ModelTCP)(nil)

// DialModelTCP connects to a model/simulator server. addr is "host" or
// "host:port"; without a port, [DefaultModelPort] is used.
func DialModelTCP(addr string, opts ...Option) (*ModelTCP, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}

	address := withDefaultPort(addr, DefaultModelPort)
	dialer := &net.Dialer{KeepAlive: 30 * time.Second}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.dialTimeout)
	defer cancel()

	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("transport: dial model %s: %w", address, err)
	}

	cfg.logger.Debug("transport: connected to model", "address", address)

	return &ModelTCP{
		io:     newNetIO(conn, cfg.ioTimeout),
		logger: cfg.logger,
	}, nil
}

// communicate sends one tagged message and returns the response payload.
func (t *ModelTCP) communicate(tag byte, payload []byte) ([]byte, error) {
	if len(payload) > MaxModelPayload {
		return nil, fmt.Errorf("%w: %d bytes, max %d", ErrPayloadTooLarge, len(payload), MaxModelPayload)
	}

	msg := make([]byte, 0, ModelHeaderLen+len(payload))
	msg = append(msg, tag, byte(len(payload)), byte(len(payload)>>8))
	msg = append(msg, payload...)

	if err := t.io.writeAll(msg); err != nil {
		return nil, fmt.Errorf("transport: model send: %w", err)
	}

	header := make([]byte, ModelHeaderLen)
	if err := t.io.readFull(header); err != nil {
		return nil, fmt.Errorf("transport: model receive: %w", err)
	}

	respTag := header[0]
	respLen := int(header[1]) | int(header[2])<<8

	switch {
	case respTag == TagInvalid:
		return nil, fmt.Errorf("transport: model does not recognize tag 0x%02X", tag)
	case respTag == TagUnsupported:
		return nil, fmt.Errorf("transport: model does not support tag 0x%02X", tag)
	case respTag != tag:
		return nil, fmt.Errorf("%w: sent 0x%02X, received 0x%02X", ErrTagMismatch, tag, respTag)
	}

	if respLen > MaxModelPayload {
		return nil, fmt.Errorf("transport: model payload length %d exceeds %d", respLen, MaxModelPayload)
	}

	if respLen == 0 {
		return nil, nil
	}

	resp := make([]byte, respLen)
	if err := t.io.readFull(resp); err != nil {
		return nil, fmt.Errorf("transport: model receive: %w", err)
	}

	return resp, nil
}

// Transfer sends tx as one SPI_SEND message and returns the full-duplex rx.
func (t *ModelTCP) Transfer(tx []byte) ([]byte, error) {
	rx, err := t.communicate(TagSPISend, tx)
	if err != nil {
		return nil, err
	}
	if len(rx) != len(tx) {
		return nil, fmt.Errorf("%w: sent %d bytes, received %d", ErrLengthMismatch, len(tx), len(rx))
	}

	return rx, nil
}

// Read clocks in n bytes by transferring n zero bytes.
func (t *ModelTCP) Read(n int) ([]byte, error) {
	rx, err := t.communicate(TagSPISend, make([]byte, n))
	if err != nil {
		return nil, err
	}
	if len(rx) != n {
		return nil, fmt.Errorf("%w: requested %d bytes, received %d", ErrLengthMismatch, n, len(rx))
	}

	return rx, nil
}

// SelectLow asserts the chip-select line.
func (t *ModelTCP) SelectLow() error {
	_, err := t.communicate(TagCSNLow, nil)
	return err
}

// SelectHigh releases the chip-select line.
func (t *ModelTCP) SelectHigh() error {
	_, err := t.communicate(TagCSNHigh, nil)
	return err
}

// Close closes the model connection.
func (t *ModelTCP) Close() error {
	return t.io.conn.Close()
}

package transport

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tropicsquare/go-tropic01/link"
	"github.com/tropicsquare/go-tropic01/logger"
)

// WSHex carries the hex-line bridge conversation in WebSocket text
// messages: one message per line, same payloads as [SerialHex].
type WSHex struct {
	conn    *websocket.Conn
	timeout time.Duration
	logger  logger.Logger
}

var _ link.Transport = (*WSHex)(nil)

// DialWSHex connects to a hex-line bridge exposed over WebSocket. rawURL
// must use the ws or wss scheme.
func DialWSHex(rawURL string, opts ...Option) (*WSHex, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("transport: invalid websocket url: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("transport: unsupported url scheme %q (use ws or wss)", u.Scheme)
	}

	dialer := websocket.Dialer{HandshakeTimeout: cfg.dialTimeout}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.dialTimeout)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, rawURL, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("transport: dial websocket bridge (HTTP %d): %w", resp.StatusCode, err)
		}

		return nil, fmt.Errorf("transport: dial websocket bridge: %w", err)
	}

	cfg.logger.Debug("transport: connected to websocket bridge", "url", rawURL)

	return &WSHex{
		conn:    conn,
		timeout: cfg.ioTimeout,
		logger:  cfg.logger,
	}, nil
}

// exchange sends one text line and returns the next text line received.
// Non-text messages are skipped.
func (t *WSHex) exchange(line []byte) (string, error) {
	if err := t.conn.SetWriteDeadline(time.Now().Add(t.timeout)); err != nil {
		return "", err
	}
	if err := t.conn.WriteMessage(websocket.TextMessage, line); err != nil {
		return "", fmt.Errorf("transport: websocket write: %w", err)
	}

	for {
		if err := t.conn.SetReadDeadline(time.Now().Add(t.timeout)); err != nil {
			return "", err
		}

		messageType, data, err := t.conn.ReadMessage()
		if err != nil {
			return "", fmt.Errorf("transport: websocket read: %w", err)
		}
		if messageType != websocket.TextMessage {
			continue
		}

		return string(data), nil
	}
}

// Transfer ships tx as one hex line and decodes the reply as rx.
func (t *WSHex) Transfer(tx []byte) ([]byte, error) {
	reply, err := t.exchange(hexLine(tx))
	if err != nil {
		return nil, err
	}

	rx, err := decodeHexLine(reply)
	if err != nil {
		return nil, err
	}
	if len(rx) != len(tx) {
		return nil, fmt.Errorf("%w: sent %d bytes, received %d", ErrLengthMismatch, len(tx), len(rx))
	}

	return rx, nil
}

// Read clocks in n bytes by transferring n zero bytes.
func (t *WSHex) Read(n int) ([]byte, error) {
	reply, err := t.exchange(hexLine(make([]byte, n)))
	if err != nil {
		return nil, err
	}

	rx, err := decodeHexLine(reply)
	if err != nil {
		return nil, err
	}
	if len(rx) != n {
		return nil, fmt.Errorf("%w: requested %d bytes, received %d", ErrLengthMismatch, n, len(rx))
	}

	return rx, nil
}

// SelectLow asserts the chip-select line.
func (t *WSHex) SelectLow() error {
	return t.setCS(0)
}

// SelectHigh releases the chip-select line.
func (t *WSHex) SelectHigh() error {
	return t.setCS(1)
}

func (t *WSHex) setCS(level int) error {
	// One ack line comes back; its content is not meaningful.
	if _, err := t.exchange([]byte(fmt.Sprintf("CS=%d\n", level))); err != nil {
		return fmt.Errorf("transport: chip select: %w", err)
	}

	return nil
}

// Close closes the WebSocket connection.
func (t *WSHex) Close() error {
	return t.conn.Close()
}

package tropic

import (
	"fmt"

	"github.com/tropicsquare/go-tropic01/link"
	"github.com/tropicsquare/go-tropic01/logger"
	"github.com/tropicsquare/go-tropic01/session"
)

// The link driver carries both session-layer requests.
var _ session.Link = (*link.Driver)(nil)

// Client talks to a TROPIC01 chip through a Transport. It exposes the plain
// chip-information requests directly and the encrypted command set through a
// secure session established with StartSecureSession.
type Client struct {
	driver *link.Driver
	crypto session.Crypto
	logger logger.Logger

	session *session.Session

	certificate []byte
	chipPubKey  []byte
}

// NewClient wraps a transport in a TROPIC01 client.
func NewClient(tr link.Transport, opts ...Option) (*Client, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	linkOpts := append([]link.Option{link.WithLogger(cfg.logger)}, cfg.linkOptions...)
	driver, err := link.NewDriver(tr, linkOpts...)
	if err != nil {
		return nil, err
	}

	return &Client{
		driver:     driver,
		crypto:     cfg.crypto,
		logger:     cfg.logger,
		chipPubKey: cfg.chipPubKey,
	}, nil
}

// Link exposes the underlying link driver, mainly for its metrics.
func (c *Client) Link() *link.Driver {
	return c.driver
}

// SessionActive reports whether a secure session is currently established.
func (c *Client) SessionActive() bool {
	return c.session != nil
}

// StartSecureSession runs the X25519 handshake against the pairing key in
// the given slot and keeps the resulting session for subsequent commands.
// privateKey and publicKey are the host's halves of the pairing keypair.
//
// The chip's static public key is taken from the WithChipPublicKey option
// when provided, otherwise it is extracted from the chip certificate. Any
// previously established session is replaced.
func (c *Client) StartSecureSession(slot uint8, privateKey, publicKey []byte) error {
	chipKey, err := c.ChipPublicKey()
	if err != nil {
		return fmt.Errorf("reading chip public key: %w", err)
	}

	sess, err := session.Establish(c.driver, c.crypto, session.HandshakeParams{
		Slot:           slot,
		HostPrivateKey: privateKey,
		HostPublicKey:  publicKey,
		ChipPublicKey:  chipKey,
	})
	if err != nil {
		return err
	}

	c.session = sess
	c.logger.Info("secure session established", "slot", slot)
	return nil
}

// AbortSecureSession invalidates the session on the chip and drops the local
// session state. It is a no-op on the chip side when no session exists.
func (c *Client) AbortSecureSession() error {
	if err := c.driver.SessionAbort(); err != nil {
		return err
	}
	c.session = nil
	c.logger.Info("secure session aborted")
	return nil
}

// Close releases the transport. An established session is dropped locally;
// the chip invalidates its side on the next handshake or power cycle.
func (c *Client) Close() error {
	c.session = nil
	return c.driver.Close()
}

// execute runs one command through the secure session and returns the
// response payload with the result byte already checked and stripped.
func (c *Client) execute(cmd byte, data []byte) ([]byte, error) {
	command := make([]byte, 0, 1+len(data))
	command = append(command, cmd)
	command = append(command, data...)

	c.logger.Debug("executing command", "cmd", fmt.Sprintf("0x%02X", cmd), "len", len(data))
	return c.session.Execute(command)
}

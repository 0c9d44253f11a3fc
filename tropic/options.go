package tropic

import (
	"errors"
	"fmt"

	"github.com/tropicsquare/go-tropic01/link"
	"github.com/tropicsquare/go-tropic01/logger"
	"github.com/tropicsquare/go-tropic01/session"
)

// config carries the adjustable parts of a Client.
type config struct {
	crypto      session.Crypto
	logger      logger.Logger
	chipPubKey  []byte
	linkOptions []link.Option
}

func defaultConfig() *config {
	return &config{
		crypto: session.StdCrypto{},
		logger: logger.GetLogger(),
	}
}

// Option adjusts the configuration of a Client created by NewClient.
type Option interface {
	apply(*config) error
}

type optionFunc func(*config) error

func (f optionFunc) apply(c *config) error { return f(c) }

// WithCrypto replaces the cryptographic primitives used for session
// establishment and the secure channel.
func WithCrypto(crypto session.Crypto) Option {
	return optionFunc(func(c *config) error {
		if crypto == nil {
			return errors.New("tropic: crypto is nil")
		}
		c.crypto = crypto
		return nil
	})
}

// WithLogger sets the logger used by the client and its link driver.
func WithLogger(l logger.Logger) Option {
	return optionFunc(func(c *config) error {
		if l == nil {
			return errors.New("tropic: logger is nil")
		}
		c.logger = l
		return nil
	})
}

// WithChipPublicKey seeds the chip's static X25519 public key, skipping the
// certificate read that StartSecureSession otherwise performs to learn it.
func WithChipPublicKey(key []byte) Option {
	return optionFunc(func(c *config) error {
		if len(key) != session.KeySize {
			return fmt.Errorf("%w: chip public key is %d bytes", ErrKeySize, len(key))
		}
		c.chipPubKey = append([]byte(nil), key...)
		return nil
	})
}

// WithLinkOptions forwards options to the underlying link driver, for
// example link.WithMaxResponseSize or link.WithPollInterval.
func WithLinkOptions(opts ...link.Option) Option {
	return optionFunc(func(c *config) error {
		c.linkOptions = append(c.linkOptions, opts...)
		return nil
	})
}

package chipmodel

import (
	"fmt"

	"github.com/tropicsquare/go-tropic01/logger"
	"github.com/tropicsquare/go-tropic01/session"
)

type config struct {
	chipPrivKey []byte
	pairingKeys map[uint8][]byte
	chipID      []byte
	riscvFw     []byte
	spectFw     []byte
	logger      logger.Logger
}

func defaultModelConfig() *config {
	return &config{
		pairingKeys: make(map[uint8][]byte),
		riscvFw:     []byte{0x00, 0x03, 0x01, 0x01}, // 1.1.3.0 on the wire
		spectFw:     []byte{0x00, 0x01, 0x03, 0x00}, // 0.3.1.0
		logger:      logger.GetLogger(),
	}
}

// Option adjusts a Model created by New.
type Option interface {
	apply(*config) error
}

type optionFunc func(*config) error

func (f optionFunc) apply(c *config) error { return f(c) }

// WithChipPrivateKey fixes the chip's static X25519 private key instead of
// generating a random one.
func WithChipPrivateKey(key []byte) Option {
	return optionFunc(func(c *config) error {
		if len(key) != session.KeySize {
			return fmt.Errorf("chipmodel: chip private key is %d bytes", len(key))
		}
		c.chipPrivKey = append([]byte(nil), key...)
		return nil
	})
}

// WithPairingKey provisions a host public key into a pairing slot.
func WithPairingKey(slot uint8, publicKey []byte) Option {
	return optionFunc(func(c *config) error {
		if slot >= session.PairingSlotCount {
			return fmt.Errorf("chipmodel: pairing slot %d out of range", slot)
		}
		if len(publicKey) != session.KeySize {
			return fmt.Errorf("chipmodel: pairing key is %d bytes", len(publicKey))
		}
		c.pairingKeys[slot] = append([]byte(nil), publicKey...)
		return nil
	})
}

// WithChipID replaces the built-in chip identification object. data must be
// one information block.
func WithChipID(data []byte) Option {
	return optionFunc(func(c *config) error {
		if len(data) != infoBlockSize {
			return fmt.Errorf("chipmodel: chip id is %d bytes, want %d", len(data), infoBlockSize)
		}
		c.chipID = append([]byte(nil), data...)
		return nil
	})
}

// WithFwVersions sets the raw version objects reported for the RISC-V and
// SPECT firmware.
func WithFwVersions(riscv, spect []byte) Option {
	return optionFunc(func(c *config) error {
		if len(riscv) != 4 || len(spect) != 4 {
			return fmt.Errorf("chipmodel: firmware versions must be 4 bytes")
		}
		c.riscvFw = append([]byte(nil), riscv...)
		c.spectFw = append([]byte(nil), spect...)
		return nil
	})
}

// WithLogger sets the model's logger.
func WithLogger(l logger.Logger) Option {
	return optionFunc(func(c *config) error {
		if l == nil {
			return fmt.Errorf("chipmodel: logger is nil")
		}
		c.logger = l
		return nil
	})
}

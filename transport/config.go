package transport

import (
	"errors"
	"fmt"
	"time"

	"github.com/tropicsquare/go-tropic01/logger"
)

// Defaults shared by all carriers.
const (
	// DefaultDialTimeout bounds connection establishment (TCP connect or
	// WebSocket handshake).
	DefaultDialTimeout = 5 * time.Second

	// DefaultIOTimeout bounds each individual read and write once
	// connected.
	DefaultIOTimeout = 5 * time.Second

	// DefaultBaudRate is the UART speed of the hex-line bridge firmware.
	DefaultBaudRate = 115200
)

type config struct {
	dialTimeout time.Duration
	ioTimeout   time.Duration
	baudRate    int
	logger      logger.Logger
}

func newConfig(opts ...Option) (*config, error) {
	cfg := &config{
		dialTimeout: DefaultDialTimeout,
		ioTimeout:   DefaultIOTimeout,
		baudRate:    DefaultBaudRate,
		logger:      logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Option is a functional option for configuring a transport.
type Option interface {
	apply(*config) error
}

type optFunc func(*config) error

func (f optFunc) apply(cfg *config) error { return f(cfg) }

// WithDialTimeout sets the connection-establishment timeout.
func WithDialTimeout(d time.Duration) Option {
	return optFunc(func(cfg *config) error {
		if d <= 0 {
			return fmt.Errorf("transport: dial timeout must be positive, got %v", d)
		}
		cfg.dialTimeout = d

		return nil
	})
}

// WithIOTimeout sets the per-operation read/write timeout.
func WithIOTimeout(d time.Duration) Option {
	return optFunc(func(cfg *config) error {
		if d <= 0 {
			return fmt.Errorf("transport: io timeout must be positive, got %v", d)
		}
		cfg.ioTimeout = d

		return nil
	})
}

// WithBaudRate sets the UART speed for [OpenSerialHex].
func WithBaudRate(n int) Option {
	return optFunc(func(cfg *config) error {
		if n <= 0 {
			return fmt.Errorf("transport: baud rate must be positive, got %d", n)
		}
		cfg.baudRate = n

		return nil
	})
}

// WithLogger sets the logger for the transport.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *config) error {
		if l == nil {
			return errors.New("transport: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}

package link

import (
	"errors"
	"fmt"
	"time"

	"github.com/tropicsquare/go-tropic01/logger"
)

// Defaults matching the chip's documented poll protocol.
const (
	// DefaultMaxRetries is the number of get-response polls before the
	// driver gives up on a busy chip.
	DefaultMaxRetries = 10

	// DefaultPollInterval is the fixed wait between polls. No jitter, no
	// growth; the chip's readiness latency is bounded, not bursty.
	DefaultPollInterval = 25 * time.Millisecond

	// DefaultMaxResponseSize caps the total size a continued (RES_CONT)
	// response may accumulate to.
	DefaultMaxResponseSize = 4096
)

// Configuration bounds.
const (
	MinMaxRetries = 1
	MaxMaxRetries = 100

	MinPollInterval = time.Millisecond
	MaxPollInterval = time.Second

	// MinMaxResponseSize still admits one full-length response.
	MinMaxResponseSize = maxPayloadLen
	MaxMaxResponseSize = 1 << 16
)

// Config holds the link driver configuration.
type Config struct {
	// maxRetries is the poll budget per get-response call.
	maxRetries int

	// pollInterval is the wait after a NOT_READY or BUSY poll.
	pollInterval time.Duration

	// maxResponseSize bounds continued-response accumulation.
	maxResponseSize int

	logger logger.Logger
}

func newConfig(opts ...Option) (*Config, error) {
	cfg := &Config{
		maxRetries:      DefaultMaxRetries,
		pollInterval:    DefaultPollInterval,
		maxResponseSize: DefaultMaxResponseSize,
		logger:          logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// MaxRetries returns the poll budget per get-response call.
func (cfg *Config) MaxRetries() int { return cfg.maxRetries }

// PollInterval returns the wait between polls.
func (cfg *Config) PollInterval() time.Duration { return cfg.pollInterval }

// MaxResponseSize returns the continued-response accumulation limit.
func (cfg *Config) MaxResponseSize() int { return cfg.maxResponseSize }

// GetLogger returns the configured logger.
func (cfg *Config) GetLogger() logger.Logger { return cfg.logger }

// --- Option ---

// Option is a functional option for configuring a link driver.
type Option interface {
	apply(*Config) error
}

type optFunc func(*Config) error

func (f optFunc) apply(cfg *Config) error { return f(cfg) }

// WithMaxRetries sets the poll budget per get-response call.
// Must be in [1, 100].
func WithMaxRetries(n int) Option {
	return optFunc(func(cfg *Config) error {
		if n < MinMaxRetries || n > MaxMaxRetries {
			return fmt.Errorf("link: max retries %d out of range [%d, %d]", n, MinMaxRetries, MaxMaxRetries)
		}
		cfg.maxRetries = n

		return nil
	})
}

// WithPollInterval sets the wait between get-response polls.
// Must be in [1ms, 1s].
func WithPollInterval(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d < MinPollInterval || d > MaxPollInterval {
			return fmt.Errorf("link: poll interval %v out of range [%v, %v]", d, MinPollInterval, MaxPollInterval)
		}
		cfg.pollInterval = d

		return nil
	})
}

// WithMaxResponseSize sets the total size limit for continued responses.
// Must be in [255, 65536].
func WithMaxResponseSize(n int) Option {
	return optFunc(func(cfg *Config) error {
		if n < MinMaxResponseSize || n > MaxMaxResponseSize {
			return fmt.Errorf("link: max response size %d out of range [%d, %d]", n, MinMaxResponseSize, MaxMaxResponseSize)
		}
		cfg.maxResponseSize = n

		return nil
	})
}

// WithLogger sets the logger for the driver.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *Config) error {
		if l == nil {
			return errors.New("link: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}

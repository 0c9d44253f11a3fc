package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tropicsquare/go-tropic01/link"
	"github.com/tropicsquare/go-tropic01/logger"
	"github.com/tropicsquare/go-tropic01/transport"
	"github.com/tropicsquare/go-tropic01/tropic"
)

var (
	cfgPath string

	flagTransport string
	flagAddress   string
	flagDevice    string
	flagURL       string
	flagBaud      int
	flagSlot      uint8
	flagVerbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "tropicctl",
	Short: "TROPIC01 secure element utility",
	Long: `tropicctl - A CLI tool for talking to a TROPIC01 secure element.

Provides commands for chip identification, the secure-channel command set
(random numbers, ECC keys, user memory, monotonic counters) and for reading
and programming the chip configuration.

Transports:
  Chip model:  --transport model --address host[:port]   (default)
  SPI bridge:  --transport spi --address host[:port]
  Serial:      --device /dev/ttyUSB0 [--baud 115200]
  WebSocket:   --url ws://host/path

Secure-channel commands read the host pairing keypair from the config file
(default ~/.tropicctl.toml, see "tropicctl keygen"). Key flags are
intentionally not provided to avoid leaking secrets in shell history.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if flagVerbose {
			logger.SetLevel(logger.DebugLevel)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Config file (default ~/.tropicctl.toml)")
	rootCmd.PersistentFlags().StringVarP(&flagTransport, "transport", "t", "", "Transport: model, spi, serial or ws")
	rootCmd.PersistentFlags().StringVarP(&flagAddress, "address", "a", "", "TCP address for the model and spi transports")
	rootCmd.PersistentFlags().StringVarP(&flagDevice, "device", "d", "", "Serial device for the serial transport")
	rootCmd.PersistentFlags().StringVarP(&flagURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().IntVarP(&flagBaud, "baud", "b", transport.DefaultBaudRate, "Baud rate (serial only)")
	rootCmd.PersistentFlags().Uint8VarP(&flagSlot, "slot", "s", 0, "Pairing key slot for the secure session")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// resolveConfig merges the defaults, the config file and any flags the user
// set, in that order.
func resolveConfig(cmd *cobra.Command) (ctlConfig, error) {
	cfg := defaultCtlConfig()

	path, explicit := cfgPath, cfgPath != ""
	if !explicit {
		path = defaultConfigPath()
	}
	if path != "" {
		loaded, err := loadConfigFile(path)
		switch {
		case err == nil:
			cfg = loaded
		case !explicit && errors.Is(err, os.ErrNotExist):
			// No config file, stay on the defaults.
		default:
			return ctlConfig{}, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("transport") {
		cfg.Transport = flagTransport
	}
	if flags.Changed("address") {
		cfg.Address = flagAddress
	}
	if flags.Changed("device") {
		cfg.Device = flagDevice
	}
	if flags.Changed("url") {
		cfg.URL = flagURL
	}
	if flags.Changed("baud") {
		cfg.Baud = flagBaud
	}
	if flags.Changed("slot") {
		if flagSlot > tropic.PairingSlotMax {
			return ctlConfig{}, fmt.Errorf("pairing slot %d out of range 0-%d", flagSlot, tropic.PairingSlotMax)
		}
		cfg.Slot = flagSlot
	}
	return cfg, nil
}

// transportKind picks the carrier: an explicit transport setting wins,
// otherwise whichever endpoint was given implies it, defaulting to the chip
// model socket.
func transportKind(cfg ctlConfig) string {
	if cfg.Transport != "" {
		return cfg.Transport
	}
	switch {
	case cfg.Device != "":
		return "serial"
	case cfg.URL != "":
		return "ws"
	default:
		return "model"
	}
}

func openTransport(cfg ctlConfig) (link.Transport, error) {
	switch kind := transportKind(cfg); kind {
	case "model":
		return transport.DialModelTCP(cfg.Address)
	case "spi":
		return transport.DialTCPSPI(cfg.Address)
	case "serial":
		if cfg.Device == "" {
			return nil, errors.New("serial transport needs --device")
		}
		return transport.OpenSerialHex(cfg.Device, transport.WithBaudRate(cfg.Baud))
	case "ws":
		if cfg.URL == "" {
			return nil, errors.New("ws transport needs --url")
		}
		return transport.DialWSHex(cfg.URL)
	default:
		return nil, fmt.Errorf("unknown transport %q (model, spi, serial or ws)", kind)
	}
}

type clientFunc func(c *tropic.Client, args []string) error

// withClient wraps a command that only needs the plain chip-information
// channel.
func withClient(fn clientFunc) func(*cobra.Command, []string) error {
	return runClient(fn, false)
}

// withSession wraps a command from the encrypted command set; it establishes
// a secure session with the configured pairing keypair first and aborts it
// when the command returns.
func withSession(fn clientFunc) func(*cobra.Command, []string) error {
	return runClient(fn, true)
}

func runClient(fn clientFunc, secure bool) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := resolveConfig(cmd)
		if err != nil {
			return err
		}

		tr, err := openTransport(cfg)
		if err != nil {
			return err
		}

		var opts []tropic.Option
		if len(cfg.ChipPublicKey) > 0 {
			opts = append(opts, tropic.WithChipPublicKey(cfg.ChipPublicKey))
		}
		client, err := tropic.NewClient(tr, opts...)
		if err != nil {
			_ = tr.Close()
			return err
		}
		defer client.Close()

		if secure {
			if len(cfg.HostPrivateKey) == 0 || len(cfg.HostPublicKey) == 0 {
				return errors.New("this command needs a secure session: set host_private_key and host_public_key in the config file (see \"tropicctl keygen\")")
			}
			if err := client.StartSecureSession(cfg.Slot, cfg.HostPrivateKey, cfg.HostPublicKey); err != nil {
				return err
			}
			defer func() { _ = client.AbortSecureSession() }()
		}

		return fn(client, args)
	}
}

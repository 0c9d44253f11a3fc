package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/tropicsquare/go-tropic01/session"
	"github.com/tropicsquare/go-tropic01/transport"
	"github.com/tropicsquare/go-tropic01/tropic"
)

const defaultConfigName = ".tropicctl.toml"

// ctlConfig is the resolved tool configuration. Key fields hold decoded key
// bytes; empty slices mean the key was not configured.
type ctlConfig struct {
	Transport string
	Address   string
	Device    string
	URL       string
	Baud      int
	Slot      uint8

	HostPrivateKey []byte
	HostPublicKey  []byte
	ChipPublicKey  []byte
}

func defaultCtlConfig() ctlConfig {
	return ctlConfig{
		Address: "localhost",
		Baud:    transport.DefaultBaudRate,
	}
}

type fileConfig struct {
	Transport      string `toml:"transport"`
	Address        string `toml:"address"`
	Device         string `toml:"device"`
	URL            string `toml:"url"`
	BaudRate       int    `toml:"baud_rate"`
	Slot           int    `toml:"slot"`
	HostPrivateKey string `toml:"host_private_key"`
	HostPublicKey  string `toml:"host_public_key"`
	ChipPublicKey  string `toml:"chip_public_key"`
}

// loadConfigFile reads a TOML config file over the defaults. Only keys the
// file actually defines override anything.
func loadConfigFile(path string) (ctlConfig, error) {
	cfg := defaultCtlConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return ctlConfig{}, fmt.Errorf("load config: %w", err)
	}

	if meta.IsDefined("transport") {
		cfg.Transport = strings.TrimSpace(raw.Transport)
	}
	if meta.IsDefined("address") {
		cfg.Address = strings.TrimSpace(raw.Address)
	}
	if meta.IsDefined("device") {
		cfg.Device = strings.TrimSpace(raw.Device)
	}
	if meta.IsDefined("url") {
		cfg.URL = strings.TrimSpace(raw.URL)
	}
	if meta.IsDefined("baud_rate") {
		if raw.BaudRate <= 0 {
			return ctlConfig{}, fmt.Errorf("config: baud_rate %d is not positive", raw.BaudRate)
		}
		cfg.Baud = raw.BaudRate
	}
	if meta.IsDefined("slot") {
		if raw.Slot < 0 || raw.Slot > tropic.PairingSlotMax {
			return ctlConfig{}, fmt.Errorf("config: pairing slot %d out of range 0-%d", raw.Slot, tropic.PairingSlotMax)
		}
		cfg.Slot = uint8(raw.Slot)
	}
	if meta.IsDefined("host_private_key") {
		if cfg.HostPrivateKey, err = decodeKey("host_private_key", raw.HostPrivateKey); err != nil {
			return ctlConfig{}, err
		}
	}
	if meta.IsDefined("host_public_key") {
		if cfg.HostPublicKey, err = decodeKey("host_public_key", raw.HostPublicKey); err != nil {
			return ctlConfig{}, err
		}
	}
	if meta.IsDefined("chip_public_key") {
		if cfg.ChipPublicKey, err = decodeKey("chip_public_key", raw.ChipPublicKey); err != nil {
			return ctlConfig{}, err
		}
	}

	return cfg, nil
}

// decodeKey parses a hex-encoded X25519 key from the config file.
func decodeKey(name, value string) ([]byte, error) {
	key, err := hex.DecodeString(strings.TrimSpace(value))
	if err != nil {
		return nil, fmt.Errorf("config: %s is not valid hex: %w", name, err)
	}
	if len(key) != session.KeySize {
		return nil, fmt.Errorf("config: %s must be %d bytes, got %d", name, session.KeySize, len(key))
	}
	return key, nil
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, defaultConfigName)
}

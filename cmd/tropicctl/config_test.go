package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tropicsquare/go-tropic01/transport"
	"github.com/tropicsquare/go-tropic01/tropic"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tropicctl.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// --- Config file ---

func TestLoadConfigFile_Empty(t *testing.T) {
	cfg, err := loadConfigFile(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, "", cfg.Transport)
	assert.Equal(t, "localhost", cfg.Address)
	assert.Equal(t, transport.DefaultBaudRate, cfg.Baud)
	assert.Equal(t, uint8(0), cfg.Slot)
	assert.Nil(t, cfg.HostPrivateKey)
}

func TestLoadConfigFile_FullOverride(t *testing.T) {
	cfg, err := loadConfigFile(writeConfig(t, `
transport = "spi"
address = "bench-pi:12345"
device = "/dev/ttyACM0"
url = "ws://bench-pi/spi"
baud_rate = 921600
slot = 2
host_private_key = "`+strings.Repeat("ab", 32)+`"
host_public_key = "`+strings.Repeat("cd", 32)+`"
chip_public_key = "`+strings.Repeat("ef", 32)+`"
`))
	require.NoError(t, err)

	assert.Equal(t, "spi", cfg.Transport)
	assert.Equal(t, "bench-pi:12345", cfg.Address)
	assert.Equal(t, "/dev/ttyACM0", cfg.Device)
	assert.Equal(t, "ws://bench-pi/spi", cfg.URL)
	assert.Equal(t, 921600, cfg.Baud)
	assert.Equal(t, uint8(2), cfg.Slot)
	assert.Equal(t, bytes.Repeat([]byte{0xAB}, 32), cfg.HostPrivateKey)
	assert.Equal(t, bytes.Repeat([]byte{0xCD}, 32), cfg.HostPublicKey)
	assert.Equal(t, bytes.Repeat([]byte{0xEF}, 32), cfg.ChipPublicKey)
}

func TestLoadConfigFile_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"slot out of range", `slot = 4`},
		{"negative slot", `slot = -1`},
		{"zero baud rate", `baud_rate = 0`},
		{"key not hex", `host_private_key = "not hex at all"`},
		{"key too short", `host_public_key = "abcd"`},
		{"broken toml", `transport = `},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadConfigFile(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigFile_Missing(t *testing.T) {
	_, err := loadConfigFile(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

// --- Transport selection ---

func TestTransportKind(t *testing.T) {
	tests := []struct {
		name string
		cfg  ctlConfig
		want string
	}{
		{"default is model", ctlConfig{}, "model"},
		{"explicit wins", ctlConfig{Transport: "spi", Device: "/dev/ttyACM0"}, "spi"},
		{"device implies serial", ctlConfig{Device: "/dev/ttyACM0"}, "serial"},
		{"url implies ws", ctlConfig{URL: "ws://bench/spi"}, "ws"},
		{"address stays on model", ctlConfig{Address: "bench:28992"}, "model"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, transportKind(tt.cfg))
		})
	}
}

func TestOpenTransport_Unknown(t *testing.T) {
	_, err := openTransport(ctlConfig{Transport: "carrier-pigeon"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "carrier-pigeon")
}

// --- Argument parsing ---

func TestParseConfigAddr(t *testing.T) {
	tests := []struct {
		arg  string
		want tropic.ConfigAddr
	}{
		{"CFG_START_UP", tropic.CfgStartUp},
		{"cfg_sensors", tropic.CfgSensors},
		{"CFG_UAP_ECDSA_SIGN", tropic.CfgUapEcdsaSign},
		{"0x20", tropic.CfgUapPairingKeyWrite},
		{"16", tropic.CfgDebug},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			addr, err := parseConfigAddr(tt.arg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, addr)
		})
	}

	_, err := parseConfigAddr("CFG_NO_SUCH_OBJECT")
	assert.Error(t, err)
}

func TestParseCurve(t *testing.T) {
	for arg, want := range map[string]tropic.Curve{
		"p256":    tropic.CurveP256,
		"P-256":   tropic.CurveP256,
		"ed25519": tropic.CurveEd25519,
		"Ed25519": tropic.CurveEd25519,
	} {
		curve, err := parseCurve(arg)
		require.NoError(t, err, arg)
		assert.Equal(t, want, curve, arg)
	}

	_, err := parseCurve("p384")
	assert.Error(t, err)
}

func TestParseSlot(t *testing.T) {
	slot, err := parseSlot("0x1F", tropic.EccSlotMax)
	require.NoError(t, err)
	assert.Equal(t, uint16(31), slot)

	_, err = parseSlot("32", tropic.EccSlotMax)
	assert.Error(t, err)

	_, err = parseSlot("banana", tropic.EccSlotMax)
	assert.Error(t, err)
}

func TestParsePairingSlot(t *testing.T) {
	slot, err := parsePairingSlot("3")
	require.NoError(t, err)
	assert.Equal(t, uint8(3), slot)

	_, err = parsePairingSlot("4")
	assert.Error(t, err)
}

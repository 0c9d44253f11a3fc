package tropic

import (
	"fmt"
	"strings"

	"github.com/tropicsquare/go-tropic01/internal/util"
	"github.com/tropicsquare/go-tropic01/link"
)

// FwVersion is a four-component firmware version.
type FwVersion struct {
	Major uint8
	Minor uint8
	Patch uint8
	Build uint8
}

func (v FwVersion) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Patch, v.Build)
}

// parseFwVersion decodes a version object. The chip reports the components
// least significant first.
func parseFwVersion(data []byte) (FwVersion, error) {
	if len(data) < 4 {
		return FwVersion{}, fmt.Errorf("%w: version response is %d bytes", ErrResponseLength, len(data))
	}
	rev := util.ReverseBytes(data[:4])
	return FwVersion{Major: rev[0], Minor: rev[1], Patch: rev[2], Build: rev[3]}, nil
}

// RiscvFwVersion returns the version of the application firmware running on
// the RISC-V core.
func (c *Client) RiscvFwVersion() (FwVersion, error) {
	data, err := c.driver.GetInfo(link.InfoRiscvFw, 0)
	if err != nil {
		return FwVersion{}, err
	}
	return parseFwVersion(data)
}

// SpectFwVersion returns the version of the firmware running on the SPECT
// cryptography coprocessor.
func (c *Client) SpectFwVersion() (FwVersion, error) {
	data, err := c.driver.GetInfo(link.InfoSpectFw, 0)
	if err != nil {
		return FwVersion{}, err
	}
	return parseFwVersion(data)
}

// FwBank returns the raw header of the firmware bank object. The object is
// only available in maintenance mode.
func (c *Client) FwBank() ([]byte, error) {
	return c.driver.GetInfo(link.InfoFwBank, 0)
}

// ReadLog drains the chip's firmware log and returns it as text. Logging
// must be enabled through the CfgDebug configuration object for the chip to
// produce anything.
func (c *Client) ReadLog() (string, error) {
	var sb strings.Builder
	for {
		chunk, err := c.driver.GetLog()
		if err != nil {
			return sb.String(), err
		}
		if len(chunk) == 0 {
			return sb.String(), nil
		}
		sb.Write(chunk)
	}
}

// Sleep puts the chip into sleep mode. Any secure session is lost; the chip
// wakes on the next transfer.
func (c *Client) Sleep() error {
	c.session = nil
	return c.driver.Sleep(link.SleepModeSleep)
}

// DeepSleep puts the chip into deep sleep mode. Any secure session is lost.
func (c *Client) DeepSleep() error {
	c.session = nil
	return c.driver.Sleep(link.SleepModeDeep)
}

// Reboot restarts the chip into the application firmware. Any secure
// session is lost.
func (c *Client) Reboot() error {
	c.session = nil
	return c.driver.Startup(link.StartupReboot)
}

// MaintenanceReboot restarts the chip into its maintenance mode, where only
// the information objects and firmware update operations are available.
func (c *Client) MaintenanceReboot() error {
	c.session = nil
	return c.driver.Startup(link.StartupMaintenance)
}

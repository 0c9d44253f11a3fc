package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tropicsquare/go-tropic01/tropic"
)

var sleepDeep bool

var sleepCmd = &cobra.Command{
	Use:   "sleep",
	Short: "Put the chip to sleep",
	Long: `Put the chip into sleep mode. Any secure session is lost; the chip wakes
on the next transfer. Deep sleep additionally powers down retained state.`,
	Args: cobra.NoArgs,
	RunE: withClient(runSleep),
}

var rebootMaintenance bool

var rebootCmd = &cobra.Command{
	Use:   "reboot",
	Short: "Reboot the chip",
	Long: `Restart the chip into the application firmware, or with --maintenance
into the maintenance mode where only information objects and firmware
updates are available.`,
	Args: cobra.NoArgs,
	RunE: withClient(runReboot),
}

func init() {
	sleepCmd.Flags().BoolVar(&sleepDeep, "deep", false, "Enter deep sleep")
	rebootCmd.Flags().BoolVar(&rebootMaintenance, "maintenance", false, "Reboot into maintenance mode")
	rootCmd.AddCommand(sleepCmd, rebootCmd)
}

func runSleep(c *tropic.Client, _ []string) error {
	if sleepDeep {
		if err := c.DeepSleep(); err != nil {
			return err
		}
		fmt.Println("chip in deep sleep")
		return nil
	}

	if err := c.Sleep(); err != nil {
		return err
	}
	fmt.Println("chip sleeping")
	return nil
}

func runReboot(c *tropic.Client, _ []string) error {
	if rebootMaintenance {
		if err := c.MaintenanceReboot(); err != nil {
			return err
		}
		fmt.Println("chip in maintenance mode")
		return nil
	}

	if err := c.Reboot(); err != nil {
		return err
	}
	fmt.Println("chip rebooted")
	return nil
}

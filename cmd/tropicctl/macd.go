package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tropicsquare/go-tropic01/tropic"
)

var macdCmd = &cobra.Command{
	Use:   "mac-and-destroy SLOT DATA_HEX",
	Short: "Run one MAC-and-Destroy derivation",
	Long: `Derive a MAC over 32 bytes of input with the secret in a MAC-and-Destroy
slot, destroying the secret in the process. Each slot yields exactly one
derivation between initializations, which is what makes it suitable for
limited-attempt schemes like PIN verification.`,
	Args: cobra.ExactArgs(2),
	RunE: withSession(runMacAndDestroy),
}

func init() {
	rootCmd.AddCommand(macdCmd)
}

func runMacAndDestroy(c *tropic.Client, args []string) error {
	slot, err := parseSlot(args[0], tropic.MacSlotMax)
	if err != nil {
		return err
	}
	data, err := hex.DecodeString(args[1])
	if err != nil {
		return fmt.Errorf("data is not valid hex: %w", err)
	}

	mac, err := c.MacAndDestroy(slot, data)
	if err != nil {
		return err
	}
	fmt.Println(hex.EncodeToString(mac))
	return nil
}

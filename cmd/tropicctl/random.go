package main

import (
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/tropicsquare/go-tropic01/tropic"
)

var randomCmd = &cobra.Command{
	Use:   "random BYTES",
	Short: "Fetch random bytes from the chip's TRNG",
	Args:  cobra.ExactArgs(1),
	RunE:  withSession(runRandom),
}

func init() {
	rootCmd.AddCommand(randomCmd)
}

func runRandom(c *tropic.Client, args []string) error {
	n, err := strconv.ParseUint(args[0], 10, 8)
	if err != nil {
		return fmt.Errorf("byte count %q: want 0-255", args[0])
	}

	data, err := c.GetRandom(uint8(n))
	if err != nil {
		return err
	}
	fmt.Println(hex.EncodeToString(data))
	return nil
}

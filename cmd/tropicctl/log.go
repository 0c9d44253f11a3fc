package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tropicsquare/go-tropic01/tropic"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Read the RISC-V firmware log",
	Long: `Drain and print the chip's firmware log buffer.

The chip only produces log output when logging is enabled through the
CFG_DEBUG configuration object.`,
	Args: cobra.NoArgs,
	RunE: withClient(runLog),
}

func init() {
	rootCmd.AddCommand(logCmd)
}

func runLog(c *tropic.Client, _ []string) error {
	text, err := c.ReadLog()
	if err != nil {
		return err
	}
	if text == "" {
		fmt.Println("(log empty)")
		return nil
	}

	fmt.Print(text)
	if !strings.HasSuffix(text, "\n") {
		fmt.Println()
	}
	return nil
}

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/tropicsquare/go-tropic01/tropic"
)

var pingCmd = &cobra.Command{
	Use:   "ping [MESSAGE]",
	Short: "Round-trip a message through the secure channel",
	Args:  cobra.MaximumNArgs(1),
	RunE:  withSession(runPing),
}

func init() {
	rootCmd.AddCommand(pingCmd)
}

func runPing(c *tropic.Client, args []string) error {
	msg := "hello tropic01"
	if len(args) == 1 {
		msg = args[0]
	}

	start := time.Now()
	echo, err := c.Ping([]byte(msg))
	if err != nil {
		return err
	}
	if string(echo) != msg {
		return fmt.Errorf("echo mismatch: sent %q, got %q", msg, echo)
	}

	fmt.Printf("pong %q in %s\n", msg, time.Since(start).Round(time.Microsecond))
	return nil
}

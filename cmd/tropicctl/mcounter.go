package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/tropicsquare/go-tropic01/tropic"
)

var mcounterCmd = &cobra.Command{
	Use:   "mcounter",
	Short: "Manage monotonic counters",
}

var mcounterInitCmd = &cobra.Command{
	Use:   "init INDEX VALUE",
	Short: "Initialize a counter to a value",
	Args:  cobra.ExactArgs(2),
	RunE:  withSession(runMCounterInit),
}

var mcounterGetCmd = &cobra.Command{
	Use:   "get INDEX",
	Short: "Read a counter",
	Args:  cobra.ExactArgs(1),
	RunE:  withSession(runMCounterGet),
}

var mcounterUpdateCmd = &cobra.Command{
	Use:   "update INDEX",
	Short: "Decrement a counter by one",
	Args:  cobra.ExactArgs(1),
	RunE:  withSession(runMCounterUpdate),
}

func init() {
	mcounterCmd.AddCommand(mcounterInitCmd, mcounterGetCmd, mcounterUpdateCmd)
	rootCmd.AddCommand(mcounterCmd)
}

func runMCounterInit(c *tropic.Client, args []string) error {
	index, err := parseSlot(args[0], tropic.MCounterMax)
	if err != nil {
		return err
	}
	value, err := strconv.ParseUint(args[1], 0, 32)
	if err != nil {
		return fmt.Errorf("counter value %q: want a 32-bit number", args[1])
	}

	if err := c.MCounterInit(index, uint32(value)); err != nil {
		return err
	}
	fmt.Printf("counter %d = %d\n", index, value)
	return nil
}

func runMCounterGet(c *tropic.Client, args []string) error {
	index, err := parseSlot(args[0], tropic.MCounterMax)
	if err != nil {
		return err
	}

	value, err := c.MCounterGet(index)
	if err != nil {
		return err
	}
	fmt.Println(value)
	return nil
}

func runMCounterUpdate(c *tropic.Client, args []string) error {
	index, err := parseSlot(args[0], tropic.MCounterMax)
	if err != nil {
		return err
	}

	if err := c.MCounterUpdate(index); err != nil {
		return err
	}
	value, err := c.MCounterGet(index)
	if err != nil {
		return err
	}
	fmt.Printf("counter %d = %d\n", index, value)
	return nil
}

package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tropicsquare/go-tropic01/tropic"
)

var memCmd = &cobra.Command{
	Use:   "mem",
	Short: "Access the user memory slots",
}

var memWriteHex bool

var memReadCmd = &cobra.Command{
	Use:   "read SLOT",
	Short: "Read a user memory slot",
	Args:  cobra.ExactArgs(1),
	RunE:  withSession(runMemRead),
}

var memWriteCmd = &cobra.Command{
	Use:   "write SLOT DATA",
	Short: "Write a user memory slot",
	Long: `Write data into an empty user memory slot. A slot holds one write until
it is erased.`,
	Args: cobra.ExactArgs(2),
	RunE: withSession(runMemWrite),
}

var memEraseCmd = &cobra.Command{
	Use:   "erase SLOT",
	Short: "Erase a user memory slot",
	Args:  cobra.ExactArgs(1),
	RunE:  withSession(runMemErase),
}

func init() {
	memWriteCmd.Flags().BoolVar(&memWriteHex, "hex", false, "Treat DATA as hex instead of text")
	memCmd.AddCommand(memReadCmd, memWriteCmd, memEraseCmd)
	rootCmd.AddCommand(memCmd)
}

func runMemRead(c *tropic.Client, args []string) error {
	slot, err := parseSlot(args[0], tropic.MemSlotMax)
	if err != nil {
		return err
	}

	data, err := c.MemDataRead(slot)
	if err != nil {
		return err
	}
	fmt.Println(hex.EncodeToString(data))
	return nil
}

func runMemWrite(c *tropic.Client, args []string) error {
	slot, err := parseSlot(args[0], tropic.MemSlotMax)
	if err != nil {
		return err
	}

	data := []byte(args[1])
	if memWriteHex {
		if data, err = hex.DecodeString(args[1]); err != nil {
			return fmt.Errorf("data is not valid hex: %w", err)
		}
	}

	if err := c.MemDataWrite(slot, data); err != nil {
		return err
	}
	fmt.Printf("%d bytes written to slot %d\n", len(data), slot)
	return nil
}

func runMemErase(c *tropic.Client, args []string) error {
	slot, err := parseSlot(args[0], tropic.MemSlotMax)
	if err != nil {
		return err
	}

	if err := c.MemDataErase(slot); err != nil {
		return err
	}
	fmt.Printf("slot %d erased\n", slot)
	return nil
}

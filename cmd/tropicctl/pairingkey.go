package main

import (
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/tropicsquare/go-tropic01/tropic"
)

var pairingKeyCmd = &cobra.Command{
	Use:   "pairing-key",
	Short: "Manage X25519 pairing key slots",
}

var pairingKeyReadCmd = &cobra.Command{
	Use:   "read SLOT",
	Short: "Read the public key in a pairing slot",
	Args:  cobra.ExactArgs(1),
	RunE:  withSession(runPairingKeyRead),
}

var pairingKeyWriteCmd = &cobra.Command{
	Use:   "write SLOT PUBLIC_KEY_HEX",
	Short: "Write a host public key into an empty pairing slot",
	Args:  cobra.ExactArgs(2),
	RunE:  withSession(runPairingKeyWrite),
}

var pairingKeyInvalidateCmd = &cobra.Command{
	Use:   "invalidate SLOT",
	Short: "Permanently invalidate a pairing slot",
	Long: `Permanently invalidate a pairing key slot. An invalidated slot can never
hold a key again and can no longer establish sessions.`,
	Args: cobra.ExactArgs(1),
	RunE: withSession(runPairingKeyInvalidate),
}

func init() {
	pairingKeyCmd.AddCommand(pairingKeyReadCmd, pairingKeyWriteCmd, pairingKeyInvalidateCmd)
	rootCmd.AddCommand(pairingKeyCmd)
}

func parsePairingSlot(arg string) (uint8, error) {
	v, err := strconv.ParseUint(arg, 0, 8)
	if err != nil || v > tropic.PairingSlotMax {
		return 0, fmt.Errorf("pairing slot %q: want 0-%d", arg, tropic.PairingSlotMax)
	}
	return uint8(v), nil
}

func runPairingKeyRead(c *tropic.Client, args []string) error {
	slot, err := parsePairingSlot(args[0])
	if err != nil {
		return err
	}

	key, err := c.PairingKeyRead(slot)
	if err != nil {
		return err
	}
	fmt.Println(hex.EncodeToString(key))
	return nil
}

func runPairingKeyWrite(c *tropic.Client, args []string) error {
	slot, err := parsePairingSlot(args[0])
	if err != nil {
		return err
	}
	key, err := hex.DecodeString(args[1])
	if err != nil {
		return fmt.Errorf("public key is not valid hex: %w", err)
	}

	if err := c.PairingKeyWrite(slot, key); err != nil {
		return err
	}
	fmt.Printf("pairing slot %d written\n", slot)
	return nil
}

func runPairingKeyInvalidate(c *tropic.Client, args []string) error {
	slot, err := parsePairingSlot(args[0])
	if err != nil {
		return err
	}

	if err := c.PairingKeyInvalidate(slot); err != nil {
		return err
	}
	fmt.Printf("pairing slot %d invalidated\n", slot)
	return nil
}

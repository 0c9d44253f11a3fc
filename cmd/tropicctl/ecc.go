package main

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tropicsquare/go-tropic01/tropic"
)

var eccCmd = &cobra.Command{
	Use:   "ecc",
	Short: "Manage ECC key slots",
}

var eccCurveName string

var eccGenCmd = &cobra.Command{
	Use:   "gen SLOT",
	Short: "Generate a key pair inside a slot",
	Long: `Generate a fresh key pair inside an ECC slot. The private key is created
on-chip and never leaves it.`,
	Args: cobra.ExactArgs(1),
	RunE: withSession(runEccGen),
}

var eccStoreCmd = &cobra.Command{
	Use:   "store SLOT PRIVATE_KEY_HEX",
	Short: "Import a private key into a slot",
	Args:  cobra.ExactArgs(2),
	RunE:  withSession(runEccStore),
}

var eccReadCmd = &cobra.Command{
	Use:   "read SLOT",
	Short: "Read the public key of a slot",
	Args:  cobra.ExactArgs(1),
	RunE:  withSession(runEccRead),
}

var eccSignCmd = &cobra.Command{
	Use:   "sign SLOT MESSAGE",
	Short: "Sign a message with the key in a slot",
	Long: `Sign a message with the key in an ECC slot. The signature scheme follows
the slot's curve: SHA-256 then ECDSA for P-256, pure EdDSA for Ed25519.
Prints the raw R || S signature as hex.`,
	Args: cobra.ExactArgs(2),
	RunE: withSession(runEccSign),
}

var eccEraseCmd = &cobra.Command{
	Use:   "erase SLOT",
	Short: "Erase a key slot",
	Args:  cobra.ExactArgs(1),
	RunE:  withSession(runEccErase),
}

func init() {
	eccGenCmd.Flags().StringVar(&eccCurveName, "curve", "ed25519", "Curve: p256 or ed25519")
	eccStoreCmd.Flags().StringVar(&eccCurveName, "curve", "ed25519", "Curve: p256 or ed25519")
	eccCmd.AddCommand(eccGenCmd, eccStoreCmd, eccReadCmd, eccSignCmd, eccEraseCmd)
	rootCmd.AddCommand(eccCmd)
}

// parseSlot parses a numeric slot or counter argument, accepting 0x prefixes.
func parseSlot(arg string, max uint64) (uint16, error) {
	v, err := strconv.ParseUint(arg, 0, 16)
	if err != nil || v > max {
		return 0, fmt.Errorf("slot %q: want 0-%d", arg, max)
	}
	return uint16(v), nil
}

func parseCurve(name string) (tropic.Curve, error) {
	switch strings.ToLower(name) {
	case "p256", "p-256":
		return tropic.CurveP256, nil
	case "ed25519":
		return tropic.CurveEd25519, nil
	default:
		return 0, fmt.Errorf("unknown curve %q (p256 or ed25519)", name)
	}
}

func runEccGen(c *tropic.Client, args []string) error {
	slot, err := parseSlot(args[0], tropic.EccSlotMax)
	if err != nil {
		return err
	}
	curve, err := parseCurve(eccCurveName)
	if err != nil {
		return err
	}

	if err := c.EccKeyGenerate(slot, curve); err != nil {
		return err
	}
	key, err := c.EccKeyRead(slot)
	if err != nil {
		return err
	}

	printKV("Slot", "%d", slot)
	printKV("Curve", "%s", key.Curve)
	printKV("Public key", "%s", hex.EncodeToString(key.PublicKey))
	return nil
}

func runEccStore(c *tropic.Client, args []string) error {
	slot, err := parseSlot(args[0], tropic.EccSlotMax)
	if err != nil {
		return err
	}
	curve, err := parseCurve(eccCurveName)
	if err != nil {
		return err
	}
	privateKey, err := hex.DecodeString(args[1])
	if err != nil {
		return fmt.Errorf("private key is not valid hex: %w", err)
	}

	if err := c.EccKeyStore(slot, curve, privateKey); err != nil {
		return err
	}
	key, err := c.EccKeyRead(slot)
	if err != nil {
		return err
	}

	printKV("Slot", "%d", slot)
	printKV("Curve", "%s", key.Curve)
	printKV("Public key", "%s", hex.EncodeToString(key.PublicKey))
	return nil
}

func runEccRead(c *tropic.Client, args []string) error {
	slot, err := parseSlot(args[0], tropic.EccSlotMax)
	if err != nil {
		return err
	}

	key, err := c.EccKeyRead(slot)
	if err != nil {
		return err
	}

	printKV("Slot", "%d", slot)
	printKV("Curve", "%s", key.Curve)
	printKV("Origin", "%s", key.Origin)
	printKV("Public key", "%s", hex.EncodeToString(key.PublicKey))
	return nil
}

func runEccSign(c *tropic.Client, args []string) error {
	slot, err := parseSlot(args[0], tropic.EccSlotMax)
	if err != nil {
		return err
	}

	key, err := c.EccKeyRead(slot)
	if err != nil {
		return err
	}

	msg := []byte(args[1])
	var sig *tropic.Signature
	switch key.Curve {
	case tropic.CurveP256:
		digest := sha256.Sum256(msg)
		sig, err = c.EcdsaSign(slot, digest[:])
	case tropic.CurveEd25519:
		sig, err = c.EddsaSign(slot, msg)
	default:
		return fmt.Errorf("slot %d holds a key on an unknown curve", slot)
	}
	if err != nil {
		return err
	}

	fmt.Println(hex.EncodeToString(sig.Bytes()))
	return nil
}

func runEccErase(c *tropic.Client, args []string) error {
	slot, err := parseSlot(args[0], tropic.EccSlotMax)
	if err != nil {
		return err
	}
	if err := c.EccKeyErase(slot); err != nil {
		return err
	}
	fmt.Printf("slot %d erased\n", slot)
	return nil
}

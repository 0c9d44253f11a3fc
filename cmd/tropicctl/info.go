package main

import (
	"encoding/hex"

	"github.com/spf13/cobra"
	"github.com/tropicsquare/go-tropic01/tropic"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show chip identification and firmware versions",
	Args:  cobra.NoArgs,
	RunE:  withClient(runInfo),
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(c *tropic.Client, _ []string) error {
	id, err := c.ChipID()
	if err != nil {
		return err
	}
	riscv, err := c.RiscvFwVersion()
	if err != nil {
		return err
	}
	spect, err := c.SpectFwVersion()
	if err != nil {
		return err
	}
	chipKey, err := c.ChipPublicKey()
	if err != nil {
		return err
	}

	printTitle("TROPIC01")
	printKV("Part number", "%s", id.PartNumber)
	printKV("Silicon revision", "%s", id.SiliconRev)
	printKV("Package", "%s", id.PackageName())
	printKV("Fab", "%s", id.FabName())
	printKV("Serial number", "%s", id.SerialNumber)
	printKV("Batch", "%X", id.BatchID)
	printKV("RISC-V firmware", "%s", riscv)
	printKV("SPECT firmware", "%s", spect)
	printKV("Chip public key", "%s", hex.EncodeToString(chipKey))
	return nil
}

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tropicsquare/go-tropic01/tropic"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and program the chip configuration",
	Long: `Inspect and program the chip's configuration objects.

Objects are addressed by name (see "tropicctl config read") or by numeric
address. Each object exists in two layers: the rewritable R-CONFIG and the
irreversible I-CONFIG. The chip acts on their bitwise AND.`,
}

var configIrreversible bool

var configReadCmd = &cobra.Command{
	Use:   "read [OBJECT]",
	Short: "Read one configuration object, or dump all of them",
	Args:  cobra.MaximumNArgs(1),
	RunE:  withSession(runConfigRead),
}

var configWriteCmd = &cobra.Command{
	Use:   "write OBJECT VALUE",
	Short: "Write a configuration object",
	Long: `Write a configuration object. R-CONFIG objects accept one write between
erases. With --irreversible the write goes to the I-CONFIG layer instead,
where cleared bits can never be set again.`,
	Args: cobra.ExactArgs(2),
	RunE: withSession(runConfigWrite),
}

var configEraseCmd = &cobra.Command{
	Use:   "erase",
	Short: "Erase the whole R-CONFIG layer",
	Args:  cobra.NoArgs,
	RunE:  withSession(runConfigErase),
}

var configUapCmd = &cobra.Command{
	Use:   "uap OBJECT",
	Short: "Show the decoded access policy of a privilege object",
	Args:  cobra.ExactArgs(1),
	RunE:  withSession(runConfigUap),
}

func init() {
	configWriteCmd.Flags().BoolVar(&configIrreversible, "irreversible", false, "Write the I-CONFIG layer")
	configCmd.AddCommand(configReadCmd, configWriteCmd, configEraseCmd, configUapCmd)
	rootCmd.AddCommand(configCmd)
}

// parseConfigAddr resolves a configuration object by name or numeric
// address.
func parseConfigAddr(arg string) (tropic.ConfigAddr, error) {
	name := strings.ToUpper(strings.TrimSpace(arg))
	for _, addr := range tropic.ConfigAddrs() {
		if addr.String() == name {
			return addr, nil
		}
	}

	v, err := strconv.ParseUint(arg, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("unknown configuration object %q", arg)
	}
	return tropic.ConfigAddr(v), nil
}

// isUapAddr reports whether the object is a user access privilege object.
// The privilege space starts right after the behavior objects.
func isUapAddr(addr tropic.ConfigAddr) bool {
	return addr >= tropic.CfgUapPairingKeyWrite
}

func runConfigRead(c *tropic.Client, args []string) error {
	if len(args) == 0 {
		return dumpConfig(c)
	}

	addr, err := parseConfigAddr(args[0])
	if err != nil {
		return err
	}
	r, err := c.RConfigRead(addr)
	if err != nil {
		return err
	}
	i, err := c.IConfigRead(addr)
	if err != nil {
		return err
	}

	printTitle(addr.String())
	printKV("R-CONFIG", "0x%08X", r)
	printKV("I-CONFIG", "0x%08X", i)
	printKV("Effective", "0x%08X", r&i)
	if isUapAddr(addr) {
		printPolicy(addr, tropic.DecodeAccessPolicy(r&i))
	}
	return nil
}

func dumpConfig(c *tropic.Client) error {
	fmt.Printf("%-32s %-10s %-10s %-10s\n", "OBJECT", "R-CONFIG", "I-CONFIG", "EFFECTIVE")
	for _, addr := range tropic.ConfigAddrs() {
		r, err := c.RConfigRead(addr)
		if err != nil {
			return err
		}
		i, err := c.IConfigRead(addr)
		if err != nil {
			return err
		}
		fmt.Printf("%-32s 0x%08X 0x%08X 0x%08X\n", addr, r, i, r&i)
	}
	return nil
}

func runConfigWrite(c *tropic.Client, args []string) error {
	addr, err := parseConfigAddr(args[0])
	if err != nil {
		return err
	}
	value, err := strconv.ParseUint(args[1], 0, 32)
	if err != nil {
		return fmt.Errorf("value %q: want a 32-bit number", args[1])
	}

	if configIrreversible {
		if err := c.IConfigWrite(addr, uint32(value)); err != nil {
			return err
		}
		fmt.Printf("%s I-CONFIG = 0x%08X\n", addr, uint32(value))
		return nil
	}

	if err := c.RConfigWrite(addr, uint32(value)); err != nil {
		return err
	}
	fmt.Printf("%s R-CONFIG = 0x%08X\n", addr, uint32(value))
	return nil
}

func runConfigErase(c *tropic.Client, _ []string) error {
	if err := c.RConfigErase(); err != nil {
		return err
	}
	fmt.Println("R-CONFIG erased")
	return nil
}

func runConfigUap(c *tropic.Client, args []string) error {
	addr, err := parseConfigAddr(args[0])
	if err != nil {
		return err
	}
	if !isUapAddr(addr) {
		return fmt.Errorf("%s is not a privilege object", addr)
	}

	policy, err := c.UserAccessPolicy(addr)
	if err != nil {
		return err
	}

	printTitle(addr.String())
	printKV("Value", "0x%08X", policy.Encode())
	printPolicy(addr, policy)
	return nil
}

func printPolicy(addr tropic.ConfigAddr, policy tropic.AccessPolicy) {
	switch addr {
	case tropic.CfgUapPairingKeyWrite, tropic.CfgUapPairingKeyRead, tropic.CfgUapPairingKeyInvalidate:
		// One field per target pairing slot.
		for i, mask := range policy {
			printKV(fmt.Sprintf("Target slot %d", i), "%s", mask)
		}
	default:
		printKV("Cfg access", "%s", policy.Cfg())
		printKV("Func access", "%s", policy.Func())
	}
}

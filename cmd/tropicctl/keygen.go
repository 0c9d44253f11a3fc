package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tropicsquare/go-tropic01/session"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a host pairing keypair",
	Long: `Generate a fresh X25519 host keypair and print it as config file lines.

Write the public key into a chip pairing slot with "tropicctl pairing-key
write" (authenticated through an existing slot), or provision it out of band.`,
	Args: cobra.NoArgs,
	RunE: runKeygen,
}

func init() {
	rootCmd.AddCommand(keygenCmd)
}

func runKeygen(cmd *cobra.Command, args []string) error {
	priv, pub, err := session.StdCrypto{}.GenerateKeypair()
	if err != nil {
		return err
	}

	fmt.Printf("# add to %s\n", defaultConfigName)
	fmt.Printf("host_private_key = %q\n", hex.EncodeToString(priv))
	fmt.Printf("host_public_key = %q\n", hex.EncodeToString(pub))
	return nil
}

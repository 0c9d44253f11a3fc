package main

import (
	"encoding/pem"
	"os"

	"github.com/spf13/cobra"
	"github.com/tropicsquare/go-tropic01/tropic"
)

var certDER bool

var certCmd = &cobra.Command{
	Use:   "cert",
	Short: "Dump the chip's device certificate",
	Long: `Read the factory-provisioned X.509 device certificate and write it to
stdout, PEM-encoded by default.`,
	Args: cobra.NoArgs,
	RunE: withClient(runCert),
}

func init() {
	certCmd.Flags().BoolVar(&certDER, "der", false, "Write raw DER instead of PEM")
	rootCmd.AddCommand(certCmd)
}

func runCert(c *tropic.Client, _ []string) error {
	der, err := c.Certificate()
	if err != nil {
		return err
	}

	if certDER {
		_, err = os.Stdout.Write(der)
		return err
	}
	return pem.Encode(os.Stdout, &pem.Block{Type: "CERTIFICATE", Bytes: der})
}

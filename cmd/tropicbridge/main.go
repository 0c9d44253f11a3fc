// tropicbridge exposes a locally attached TROPIC01 to remote hosts over the
// model-socket protocol, or serves the in-process chip model for protocol
// bring-up without hardware.
package main

import (
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tropicsquare/go-tropic01/internal/bridge"
	"github.com/tropicsquare/go-tropic01/internal/chipmodel"
	"github.com/tropicsquare/go-tropic01/link"
	"github.com/tropicsquare/go-tropic01/logger"
	"github.com/tropicsquare/go-tropic01/session"
	"github.com/tropicsquare/go-tropic01/transport"
)

func main() {
	var (
		listen    = flag.String("listen", ":"+transport.DefaultModelPort, "listen address")
		spiAddr   = flag.String("spi", "", "forward to a raw SPI bridge at host[:port]")
		serialDev = flag.String("serial", "", "forward to a hex-line UART bridge device")
		wsURL     = flag.String("ws", "", "forward to a hex-line WebSocket bridge URL")
		baudRate  = flag.Int("baud", transport.DefaultBaudRate, "serial baud rate")
		loopback  = flag.Bool("loopback", false, "serve the in-process chip model instead of hardware")
		verbose   = flag.Bool("verbose", false, "enable debug logging")
	)
	flag.Parse()

	if *verbose {
		logger.SetLevel(logger.DebugLevel)
	}

	tr, err := openTransport(*spiAddr, *serialDev, *wsURL, *baudRate, *loopback)
	if err != nil {
		logger.Fatal("tropicbridge: no usable transport", "error", err)
	}
	defer tr.Close()

	srv, err := bridge.New(tr)
	if err != nil {
		logger.Fatal("tropicbridge: setup failed", "error", err)
	}

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig

		logger.Info("tropicbridge: shutting down")
		_ = srv.Shutdown()
	}()

	if err := srv.ListenAndServe(*listen); err != nil {
		logger.Fatal("tropicbridge: serve failed", "error", err)
	}
}

func openTransport(spiAddr, serialDev, wsURL string, baudRate int, loopback bool) (link.Transport, error) {
	switch {
	case loopback:
		return newLoopbackModel()
	case spiAddr != "":
		return transport.DialTCPSPI(spiAddr)
	case serialDev != "":
		return transport.OpenSerialHex(serialDev, transport.WithBaudRate(baudRate))
	case wsURL != "":
		return transport.DialWSHex(wsURL)
	default:
		return nil, errors.New("pass one of --loopback, --spi, --serial or --ws")
	}
}

// newLoopbackModel builds an in-process chip with a fresh pairing keypair in
// slot 0 and prints the host half, so a client can actually connect to it.
func newLoopbackModel() (link.Transport, error) {
	hostPriv, hostPub, err := session.StdCrypto{}.GenerateKeypair()
	if err != nil {
		return nil, err
	}

	model, err := chipmodel.New(chipmodel.WithPairingKey(0, hostPub))
	if err != nil {
		return nil, err
	}

	fmt.Println("loopback chip model, pairing slot 0:")
	fmt.Printf("  host private key: %s\n", hex.EncodeToString(hostPriv))
	fmt.Printf("  host public key:  %s\n", hex.EncodeToString(hostPub))

	return model, nil
}

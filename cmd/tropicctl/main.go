// tropicctl drives a TROPIC01 secure element from the command line, over any
// of the supported transports.
package main

import "os"

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}

// Package chipmodel emulates a TROPIC01 chip behind the link.Transport
// interface.
//
// The model speaks the full protocol stack: it parses and CRC-checks
// request frames, answers get-response probes with chip status bytes, runs
// the chip side of the X25519 handshake, and executes the encrypted command
// set against in-memory slots, counters and configuration.
//
// It backs the link and client tests and the loopback mode of the bridge
// daemon. It is not a security model: keys live in plain memory and no
// timing or power behavior is emulated.
package chipmodel

// Package tropic provides the high-level client for the TROPIC01 secure
// element. It combines the link-layer driver, the secure-session layer, and
// the chip's command set behind one type, [Client].
//
// # Basic Usage
//
// Connect a transport, read public chip information, then open a secure
// session for the command set:
//
//	tr, err := transport.DialTCPSPI("bridge-host:12345")
//	if err != nil {
//		// handle error
//	}
//	client, err := tropic.NewClient(tr)
//	if err != nil {
//		// handle error
//	}
//	defer client.Close()
//
//	id, err := client.ChipID()         // no session required
//	err = client.StartSecureSession(0, privKey, pubKey)
//	echo, err := client.Ping([]byte("Hello"))
//	random, err := client.GetRandom(32)
//	err = client.AbortSecureSession()
//
// # Sessions
//
// Commands in the secure command set (ping, random, keys, counters, memory,
// signing) require an established session; calling them without one fails
// with [session.ErrNoActiveSession] before any I/O. Chip-information
// requests (certificate, chip ID, firmware versions, log) ride the plain
// link layer and work at any time.
//
// A Client holds at most one session. Starting a new session replaces the
// previous one, matching the chip, which also keeps only one.
//
// # Concurrency
//
// Command execution is serialized by the session layer. Session lifecycle
// calls (StartSecureSession, AbortSecureSession, Close) are not safe to run
// concurrently with commands or with each other.
package tropic

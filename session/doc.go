// Package session implements the TROPIC01 secure-session layer: the X25519
// handshake that authenticates the host against a pairing key slot, and the
// AES-GCM secure channel that carries encrypted commands once the handshake
// succeeds.
//
// # Handshake
//
// Session establishment follows a Noise-style KK1 pattern
// ("Noise_KK1_25519_AESGCM_SHA256"). The host sends a fresh ephemeral X25519
// public key together with the pairing slot index; the chip answers with its
// own ephemeral public key and a 16-byte authentication tag. Both sides
// derive the session keys from three X25519 shared secrets mixed through an
// HKDF-SHA256 ladder, bound to a running SHA-256 transcript of all public
// handshake material. The host verifies the chip's tag against the
// transcript before any session state is created; on mismatch every derived
// secret is discarded.
//
// # Secure Channel
//
// An established session holds two AES-GCM keys (one per direction) and a
// monotonically increasing nonce counter shared with the chip. Each command
// is sealed with the little-endian 12-byte encoding of the counter, sent via
// the link layer's chunked encrypted-command exchange, and the response is
// opened with the same nonce. The counter advances exactly once per command
// attempt, whether or not the chip reports success, so both ends stay in
// lockstep. The first plaintext byte of every response is a result code
// mapped through the RESULT table; the remainder is the command's payload.
//
// The session layer performs no I/O of its own: it drives a [Link], normally
// a [github.com/tropicsquare/go-tropic01/link.Driver].
package session

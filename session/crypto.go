package session

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

// Primitive sizes used throughout the session layer.
const (
	// KeySize is the length of X25519 keys, shared secrets, and derived
	// AES-256-GCM keys.
	KeySize = 32

	// TagSize is the AES-GCM authentication tag length.
	TagSize = 16

	// NonceSize is the AES-GCM nonce length.
	NonceSize = 12
)

// Crypto supplies the cryptographic primitives the handshake and secure
// channel are built on. Implementations must be safe for concurrent use.
type Crypto interface {
	// GenerateKeypair returns a fresh X25519 keypair, KeySize bytes each.
	GenerateKeypair() (priv, pub []byte, err error)

	// X25519 computes the shared secret between a private key and a peer's
	// public key.
	X25519(priv, peerPub []byte) ([]byte, error)

	// HKDF derives n KeySize-byte output blocks from the input keying
	// material with HKDF-SHA256. An empty ikm is valid.
	HKDF(salt, ikm []byte, n int) ([][]byte, error)

	// NewAEAD constructs an AEAD cipher with NonceSize-byte nonces and
	// TagSize-byte tags from a KeySize-byte key.
	NewAEAD(key []byte) (cipher.AEAD, error)
}

// StdCrypto implements [Crypto] with crypto/rand, golang.org/x/crypto
// curve25519 and hkdf, and the standard library's AES-GCM.
type StdCrypto struct{}

var _ Crypto = StdCrypto{}

func (StdCrypto) GenerateKeypair() (priv, pub []byte, err error) {
	var private, public [KeySize]byte
	if _, err := rand.Read(private[:]); err != nil {
		return nil, nil, fmt.Errorf("session: generate keypair: %w", err)
	}
	curve25519.ScalarBaseMult(&public, &private)

	return private[:], public[:], nil
}

func (StdCrypto) X25519(priv, peerPub []byte) ([]byte, error) {
	secret, err := curve25519.X25519(priv, peerPub)
	if err != nil {
		return nil, fmt.Errorf("session: x25519 exchange: %w", err)
	}

	return secret, nil
}

func (StdCrypto) HKDF(salt, ikm []byte, n int) ([][]byte, error) {
	reader := hkdf.New(sha256.New, ikm, salt, nil)

	blocks := make([][]byte, n)
	for i := range blocks {
		block := make([]byte, KeySize)
		if _, err := io.ReadFull(reader, block); err != nil {
			return nil, fmt.Errorf("session: hkdf expand: %w", err)
		}
		blocks[i] = block
	}

	return blocks, nil
}

func (StdCrypto) NewAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("session: aead key: %w", err)
	}

	return cipher.NewGCM(block)
}

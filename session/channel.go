package session

import (
	"crypto/cipher"
	"encoding/binary"
	"fmt"
	"sync"
)

// Session is an established secure channel with the chip. The zero value is
// not usable; sessions are created by [Establish].
//
// A Session is safe for concurrent use: every encode, transmit, decode
// sequence runs under one mutex, since interleaving would race the nonce
// counter and desynchronize both ends.
type Session struct {
	mu      sync.Mutex
	lnk     Link
	encrypt cipher.AEAD
	decrypt cipher.AEAD
	counter uint64
}

// Execute seals one command, performs the encrypted-command exchange, and
// opens the chip's reply.
//
// The command layout is [commandID][data...]. The reply's leading result
// code is checked against the result table and stripped; the remainder is
// returned verbatim. The nonce counter advances exactly once per call,
// success or failure, to stay in lockstep with the chip.
//
// Calling Execute on a nil Session returns [ErrNoActiveSession] without any
// I/O.
func (s *Session) Execute(command []byte) ([]byte, error) {
	if s == nil {
		return nil, ErrNoActiveSession
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	nonce := s.nonce()
	s.counter++

	sealed := s.encrypt.Seal(nil, nonce, command, nil)
	ciphertext := sealed[:len(sealed)-TagSize]
	tag := sealed[len(sealed)-TagSize:]

	respCiphertext, respTag, err := s.lnk.EncryptedCommand(ciphertext, tag)
	if err != nil {
		return nil, err
	}

	sealedResp := make([]byte, 0, len(respCiphertext)+len(respTag))
	sealedResp = append(sealedResp, respCiphertext...)
	sealedResp = append(sealedResp, respTag...)

	plaintext, err := s.decrypt.Open(nil, nonce, sealedResp, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecryptFailed, err)
	}
	if len(plaintext) == 0 {
		return nil, ErrEmptyResponse
	}
	if err := Result(plaintext[0]).Check(); err != nil {
		return nil, err
	}

	return plaintext[1:], nil
}

// nonce renders the current counter as the little-endian NonceSize-byte
// AES-GCM nonce. The upper four bytes stay zero.
func (s *Session) nonce() []byte {
	nonce := make([]byte, NonceSize)
	binary.LittleEndian.PutUint64(nonce, s.counter)

	return nonce
}

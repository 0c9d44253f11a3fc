package tropic

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/tropicsquare/go-tropic01/internal/util"
	"github.com/tropicsquare/go-tropic01/link"
)

// Layout of the certificate store: four 128-byte blocks, a 10-byte header
// with the certificate length big-endian at offset 2, then the DER data.
const (
	certBlockCount = 4
	certBlockSize  = 128
	certHeaderLen  = 10
)

// chipKeyMarker locates the chip's static X25519 key inside the
// certificate: the tail of the X25519 algorithm OID followed by the
// 33-byte BIT STRING header of the subject public key. The key itself
// starts after the unused-bits byte.
var chipKeyMarker = []byte{0x65, 0x6E, 0x03, 0x21}

// chipKeySkip is the distance from the marker start to the first key byte:
// the marker itself plus the unused-bits byte.
const chipKeySkip = 5

// Certificate returns the chip's device certificate in DER form. The
// certificate is fetched once and cached for the life of the client.
func (c *Client) Certificate() ([]byte, error) {
	if c.certificate != nil {
		return util.CloneSlice(c.certificate, 0), nil
	}

	raw := make([]byte, 0, certBlockCount*certBlockSize)
	for block := uint8(0); block < certBlockCount; block++ {
		chunk, err := c.driver.GetInfo(link.InfoCertificate, block)
		if err != nil {
			return nil, fmt.Errorf("reading certificate block %d: %w", block, err)
		}
		raw = append(raw, chunk...)
	}

	if len(raw) < certHeaderLen {
		return nil, fmt.Errorf("%w: store is %d bytes", ErrCertMalformed, len(raw))
	}
	certLen := int(binary.BigEndian.Uint16(raw[2:4]))
	if certHeaderLen+certLen > len(raw) {
		return nil, fmt.Errorf("%w: header declares %d bytes, store holds %d",
			ErrCertMalformed, certLen, len(raw)-certHeaderLen)
	}

	c.certificate = raw[certHeaderLen : certHeaderLen+certLen]
	c.logger.Debug("chip certificate read", "len", certLen)
	return util.CloneSlice(c.certificate, 0), nil
}

// ChipPublicKey returns the chip's static X25519 public key. It is taken
// from the WithChipPublicKey option when set, otherwise extracted from the
// device certificate and cached.
func (c *Client) ChipPublicKey() ([]byte, error) {
	if c.chipPubKey != nil {
		return util.CloneSlice(c.chipPubKey, 0), nil
	}

	cert, err := c.Certificate()
	if err != nil {
		return nil, err
	}

	idx := bytes.Index(cert, chipKeyMarker)
	if idx < 0 || idx+chipKeySkip+KeySize > len(cert) {
		return nil, ErrChipKeyNotFound
	}

	c.chipPubKey = util.CloneSlice(cert[idx+chipKeySkip:idx+chipKeySkip+KeySize], 0)
	return util.CloneSlice(c.chipPubKey, 0), nil
}

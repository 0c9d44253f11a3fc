package chipmodel

import (
	"encoding/binary"
	"fmt"
)

const certHeaderLen = 10

// buildCertStore assembles the four-block certificate store. The body is a
// miniature stand-in for the chip's X.509 device certificate: just enough
// DER structure to carry the X25519 SubjectPublicKeyInfo that hosts scan
// for when extracting the chip public key.
func buildCertStore(chipPub []byte) []byte {
	spki := []byte{
		0x30, 0x2A, // SEQUENCE, 42 bytes
		0x30, 0x05, // AlgorithmIdentifier
		0x06, 0x03, 0x2B, 0x65, 0x6E, // OID 1.3.101.110, X25519
		0x03, 0x21, 0x00, // BIT STRING, 33 bytes, no unused bits
	}
	spki = append(spki, chipPub...)

	body := make([]byte, 0, 256)
	body = append(body, 0x30, 0x81, 0xF2) // certificate SEQUENCE
	body = append(body, 0x30, 0x81, 0xA5) // tbsCertificate
	body = append(body, make([]byte, 120)...)
	body = append(body, spki...)
	body = append(body, 0x30, 0x05, 0x06, 0x03, 0x2B, 0x65, 0x70) // signatureAlgorithm, Ed25519
	body = append(body, 0x03, 0x41, 0x00)
	body = append(body, make([]byte, 64)...)

	store := make([]byte, certBlocks*infoBlockSize)
	store[0] = 0x01 // store format version
	store[1] = 0x01 // certificate count
	binary.BigEndian.PutUint16(store[2:4], uint16(len(body))) //nolint:gosec // body fits the store
	copy(store[certHeaderLen:], body)
	return store
}

// buildChipID renders the default 128-byte chip identification block for a
// lab-provisioned QFN32 part.
func buildChipID() []byte {
	id := make([]byte, infoBlockSize)

	copy(id[0:4], []byte{0x01, 0x00, 0x00, 0x00})     // layout version 1.0.0.0
	copy(id[28:32], "ABAB")                           // silicon revision
	binary.BigEndian.PutUint16(id[32:34], 0x80AA)     // QFN32 package
	binary.BigEndian.PutUint32(id[36:40], 0x01F00123) // provisioning: ver 1, fab 0xF00, part 0x123
	binary.BigEndian.PutUint16(id[40:42], 2650)       // provisioning date
	copy(id[42:46], []byte{0x00, 0x01, 0x02, 0x00})   // HSM version
	copy(id[46:50], []byte{0x00, 0x01, 0x00, 0x00})   // programmer version

	// Serial number: s/n 1, fab 0xF00, part 0x123, date, lot, wafer, x/y.
	id[52] = 0x01
	id[53], id[54], id[55] = 0xF0, 0x01, 0x23
	binary.BigEndian.PutUint16(id[56:58], 2650)
	copy(id[58:63], "LT001")
	id[63] = 0x02
	binary.BigEndian.PutUint16(id[64:66], 11)
	binary.BigEndian.PutUint16(id[66:68], 42)

	copy(id[68:84], "TR01-C2S-T200")

	binary.BigEndian.PutUint16(id[84:86], 0x0001)     // provisioning template version
	binary.BigEndian.PutUint32(id[86:90], 0x6E0D5C10) // template tag
	binary.BigEndian.PutUint16(id[90:92], 0x0001)     // provisioning spec version
	binary.BigEndian.PutUint32(id[92:96], 0x221A67E3) // spec tag
	copy(id[96:101], []byte{0x01, 0x00, 0x00, 0x00, 0x07})

	return id
}

// fwBankHeader reports the firmware bank state: bank id, validity, and the
// versions resident in each bank.
func (m *Model) fwBankHeader() []byte {
	out := make([]byte, 0, 12)
	out = append(out, 0x01, 0x01, 0x00, 0x00) // bank 1, valid
	out = append(out, m.riscvFw...)
	out = append(out, m.spectFw...)
	return out
}

// fwLogf appends one line to the firmware log, honoring the effective
// debug configuration. Long lines are split across log chunks.
func (m *Model) fwLogf(format string, args ...any) {
	if m.effectiveConfig(cfgDebug)&debugFwLogBit == 0 {
		return
	}

	line := fmt.Sprintf(format, args...) + "\n"
	for len(line) > maxPayload {
		m.fwLog.Push([]byte(line[:maxPayload]))
		line = line[maxPayload:]
	}
	m.fwLog.Push([]byte(line))
}

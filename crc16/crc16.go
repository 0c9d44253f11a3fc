// Package crc16 implements the CRC-16/BUYPASS checksum used to seal every
// TROPIC01 link-layer frame.
//
// Parameters: polynomial 0x8005, initial value 0x0000, most-significant bit
// first, no input/output reflection, no final XOR. On the wire the checksum
// is appended low byte first.
package crc16

// polynomial is the CRC-16/BUYPASS generator polynomial.
const polynomial uint16 = 0x8005

// Size is the number of checksum bytes appended to a frame.
const Size = 2

// Checksum computes the CRC-16/BUYPASS value of data.
// The checksum of an empty slice is 0x0000.
func Checksum(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ polynomial
			} else {
				crc <<= 1
			}
		}
	}

	return crc
}

// Append appends the checksum of data to dst, low byte first, and returns
// the extended slice. Passing data as dst seals a frame in place:
//
//	frame = crc16.Append(frame, frame)
func Append(dst, data []byte) []byte {
	crc := Checksum(data)
	return append(dst, byte(crc), byte(crc>>8))
}

// Valid reports whether trailer holds the checksum of data, low byte first.
func Valid(data []byte, trailer []byte) bool {
	if len(trailer) != Size {
		return false
	}
	crc := Checksum(data)

	return trailer[0] == byte(crc) && trailer[1] == byte(crc>>8)
}

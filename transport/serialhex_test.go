package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The serial carrier itself needs a device node; the line codec is what can
// go wrong and is covered here. The same codec backs the WebSocket carrier,
// which exercises it end to end.

func TestHexLine(t *testing.T) {
	tests := []struct {
		name string
		tx   []byte
		want string
	}{
		{"single byte", []byte{0xAA}, "AAx\n"},
		{"frame", []byte{0x01, 0x02, 0x2B, 0x98}, "01022B98x\n"},
		{"empty", nil, "x\n"},
		{"zeros read", make([]byte, 3), "000000x\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(hexLine(tt.tx)))
		})
	}
}

func TestDecodeHexLine(t *testing.T) {
	data, err := decodeHexLine("2B98\r\n")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x2B, 0x98}, data)

	// Lowercase replies decode too; only the outbound side is normative.
	data, err = decodeHexLine("ff01\n")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0x01}, data)

	data, err = decodeHexLine("\n")
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestDecodeHexLine_Malformed(t *testing.T) {
	_, err := decodeHexLine("XYZ\n")
	assert.ErrorContains(t, err, "malformed hex reply")

	_, err = decodeHexLine("ABC\n") // odd number of digits
	assert.Error(t, err)
}

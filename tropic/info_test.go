package tropic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFwVersion(t *testing.T) {
	// The wire carries the components least significant first.
	v, err := parseFwVersion([]byte{0x04, 0x03, 0x02, 0x01})
	require.NoError(t, err)
	assert.Equal(t, FwVersion{Major: 1, Minor: 2, Patch: 3, Build: 4}, v)
	assert.Equal(t, "1.2.3.4", v.String())

	_, err = parseFwVersion([]byte{1, 2})
	require.ErrorIs(t, err, ErrResponseLength)
}

func TestDottedVersion(t *testing.T) {
	assert.Equal(t, "1.0.2.7", dottedVersion([]byte{1, 0, 2, 7}))
	assert.Equal(t, "", dottedVersion(nil))
}

package session

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResult_Check(t *testing.T) {
	tests := []struct {
		name    string
		result  Result
		wantErr error
	}{
		{"ok", ResultOK, nil},
		{"fail", ResultFail, ErrCmdFailed},
		{"unauthorized", ResultUnauthorized, ErrCmdUnauthorized},
		{"invalid command", ResultInvalidCmd, ErrCmdInvalid},
		{"memory write failed", ResultMemWriteFail, ErrMemWriteFailed},
		{"memory slot expired", ResultMemSlotExpired, ErrMemSlotExpired},
		{"ecc key invalid", ResultECCInvalidKey, ErrECCKeyInvalid},
		{"counter update failed", ResultCounterUpdate, ErrCounterUpdate},
		{"counter invalid", ResultCounterInvalid, ErrCounterInvalid},
		{"pairing key empty", ResultKeyEmpty, ErrPairingKeyEmpty},
		{"pairing key invalid", ResultKeyInvalid, ErrPairingKeyInvalid},
		{"unknown code falls back", Result(0xFF), ErrUnknownResult},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.result.Check()
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}

			require.ErrorIs(t, err, tt.wantErr)
			assert.Contains(t, err.Error(), fmt.Sprintf("result: 0x%02X", byte(tt.result)),
				"error must embed the numeric code")
		})
	}
}

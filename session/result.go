package session

import "fmt"

// Result is the first plaintext byte of every decrypted command response.
type Result byte

// Command result codes.
const (
	// ResultOK is the only success code.
	ResultOK Result = 0xC3

	// ResultFail is the generic execution failure.
	ResultFail Result = 0x3C

	ResultUnauthorized   Result = 0x01
	ResultInvalidCmd     Result = 0x02
	ResultMemWriteFail   Result = 0x10
	ResultMemSlotExpired Result = 0x11
	ResultECCInvalidKey  Result = 0x12
	ResultCounterUpdate  Result = 0x13
	ResultCounterInvalid Result = 0x14
	ResultKeyEmpty       Result = 0x15
	ResultKeyInvalid     Result = 0x16
)

// resultErrors maps every documented failure code to its sentinel.
var resultErrors = map[Result]error{
	ResultFail:           ErrCmdFailed,
	ResultUnauthorized:   ErrCmdUnauthorized,
	ResultInvalidCmd:     ErrCmdInvalid,
	ResultMemWriteFail:   ErrMemWriteFailed,
	ResultMemSlotExpired: ErrMemSlotExpired,
	ResultECCInvalidKey:  ErrECCKeyInvalid,
	ResultCounterUpdate:  ErrCounterUpdate,
	ResultCounterInvalid: ErrCounterInvalid,
	ResultKeyEmpty:       ErrPairingKeyEmpty,
	ResultKeyInvalid:     ErrPairingKeyInvalid,
}

// Check returns nil for [ResultOK] and the matching sentinel error otherwise,
// always annotated with the numeric code. Codes outside the documented set
// map to [ErrUnknownResult].
func (r Result) Check() error {
	if r == ResultOK {
		return nil
	}

	sentinel, ok := resultErrors[r]
	if !ok {
		sentinel = ErrUnknownResult
	}

	return fmt.Errorf("%w (result: 0x%02X)", sentinel, byte(r))
}

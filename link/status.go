package link

import "fmt"

// ChipStatus is the first octet clocked back from the chip during any
// transfer. NOT_READY, BUSY and READY are exact values; ALARM and START are
// bits that may coexist with others.
type ChipStatus byte

const (
	// ChipStatusNotReady means the chip has not yet parsed the request.
	ChipStatusNotReady ChipStatus = 0x00

	// ChipStatusReady means a response is ready to be read.
	ChipStatusReady ChipStatus = 0x01

	// ChipStatusAlarmBit is set when the chip entered the alarm state and
	// requires external recovery.
	ChipStatusAlarmBit ChipStatus = 0x02

	// ChipStatusStartBit is set while the chip runs in startup (maintenance)
	// mode.
	ChipStatusStartBit ChipStatus = 0x04

	// ChipStatusBusy is what an idle-high bus reads as while the chip is
	// still executing.
	ChipStatusBusy ChipStatus = 0xFF
)

// Waiting reports whether the chip asks the host to poll again.
func (s ChipStatus) Waiting() bool {
	return s == ChipStatusNotReady || s == ChipStatusBusy
}

// Alarm reports whether the alarm bit is set.
func (s ChipStatus) Alarm() bool {
	return s&ChipStatusAlarmBit != 0
}

// StartMode reports whether the startup-mode bit is set.
func (s ChipStatus) StartMode() bool {
	return s&ChipStatusStartBit != 0
}

// Status is the response status byte reported in a response header.
type Status byte

// Response status codes.
const (
	// StatusRequestOK acknowledges a request (or a non-final command chunk).
	StatusRequestOK Status = 0x01

	// StatusResultOK carries a complete result payload.
	StatusResultOK Status = 0x02

	// StatusRequestCont asks the host to send the next command chunk.
	StatusRequestCont Status = 0x03

	// StatusResultCont means the result payload continues in a further
	// response.
	StatusResultCont Status = 0x04

	StatusRespDisabled Status = 0x78
	StatusHandshakeErr Status = 0x79
	StatusNoSession    Status = 0x7A
	StatusTagErr       Status = 0x7B
	StatusCRCErr       Status = 0x7C
	StatusUnknownReq   Status = 0x7E
	StatusGenErr       Status = 0x7F

	// StatusNoResp doubles as the bus-idle value; the driver treats it as
	// "keep polling" when seen in a header.
	StatusNoResp Status = 0xFF
)

// OK reports whether the status is one of the four non-error codes.
func (s Status) OK() bool {
	switch s {
	case StatusRequestOK, StatusResultOK, StatusRequestCont, StatusResultCont:
		return true
	default:
		return false
	}
}

// statusErrors maps every documented error status to its sentinel.
var statusErrors = map[Status]error{
	StatusRespDisabled: ErrRespDisabled,
	StatusHandshakeErr: ErrHandshakeFailed,
	StatusNoSession:    ErrNoSession,
	StatusTagErr:       ErrTagInvalid,
	StatusCRCErr:       ErrRequestCRC,
	StatusUnknownReq:   ErrUnknownRequest,
	StatusGenErr:       ErrGeneral,
	StatusNoResp:       ErrNoResponse,
}

// Check returns nil for a non-error status and the matching sentinel error
// otherwise, always annotated with the numeric code. Statuses outside the
// documented set map to [ErrUnknownStatus].
func (s Status) Check() error {
	if s.OK() {
		return nil
	}

	sentinel, ok := statusErrors[s]
	if !ok {
		sentinel = ErrUnknownStatus
	}

	return fmt.Errorf("%w (status: 0x%02X)", sentinel, byte(s))
}

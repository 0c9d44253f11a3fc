package link

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// --- Chip status ---

func TestChipStatus(t *testing.T) {
	tests := []struct {
		status    ChipStatus
		waiting   bool
		alarm     bool
		startMode bool
	}{
		{ChipStatusNotReady, true, false, false},
		{ChipStatusReady, false, false, false},
		{ChipStatusAlarmBit, false, true, false},
		{ChipStatusStartBit, false, false, true},
		{ChipStatusBusy, true, true, true}, // idle-high bus: every bit reads as set
		{ChipStatusReady | ChipStatusStartBit, false, false, true},
		{ChipStatusAlarmBit | ChipStatusStartBit, false, true, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("0x%02X", byte(tt.status)), func(t *testing.T) {
			assert.Equal(t, tt.waiting, tt.status.Waiting(), "Waiting")
			assert.Equal(t, tt.alarm, tt.status.Alarm(), "Alarm")
			assert.Equal(t, tt.startMode, tt.status.StartMode(), "StartMode")
		})
	}
}

// --- Response status ---

func TestStatus_OK(t *testing.T) {
	ok := []Status{StatusRequestOK, StatusResultOK, StatusRequestCont, StatusResultCont}
	for _, s := range ok {
		assert.True(t, s.OK(), "status 0x%02X", byte(s))
	}

	bad := []Status{
		StatusRespDisabled, StatusHandshakeErr, StatusNoSession, StatusTagErr,
		StatusCRCErr, StatusUnknownReq, StatusGenErr, StatusNoResp, Status(0x55),
	}
	for _, s := range bad {
		assert.False(t, s.OK(), "status 0x%02X", byte(s))
	}
}

func TestStatus_Check(t *testing.T) {
	for _, s := range []Status{StatusRequestOK, StatusResultOK, StatusRequestCont, StatusResultCont} {
		assert.NoError(t, s.Check(), "status 0x%02X", byte(s))
	}

	tests := []struct {
		status   Status
		sentinel error
	}{
		{StatusRespDisabled, ErrRespDisabled},
		{StatusHandshakeErr, ErrHandshakeFailed},
		{StatusNoSession, ErrNoSession},
		{StatusTagErr, ErrTagInvalid},
		{StatusCRCErr, ErrRequestCRC},
		{StatusUnknownReq, ErrUnknownRequest},
		{StatusGenErr, ErrGeneral},
		{StatusNoResp, ErrNoResponse},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("0x%02X", byte(tt.status)), func(t *testing.T) {
			err := tt.status.Check()
			assert.ErrorIs(t, err, tt.sentinel)
			assert.ErrorContains(t, err, fmt.Sprintf("(status: 0x%02X)", byte(tt.status)))
		})
	}
}

func TestStatus_CheckUnknown(t *testing.T) {
	err := Status(0x55).Check()
	assert.ErrorIs(t, err, ErrUnknownStatus)
	assert.ErrorContains(t, err, "0x55")
}

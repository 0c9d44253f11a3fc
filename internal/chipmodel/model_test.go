package chipmodel

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tropicsquare/go-tropic01/crc16"
	"github.com/tropicsquare/go-tropic01/link"
	"github.com/tropicsquare/go-tropic01/session"
)

// requestFrame builds [reqID][len][payload][crc].
func requestFrame(reqID byte, payload []byte) []byte {
	f := make([]byte, 0, 2+len(payload)+crc16.Size)
	f = append(f, reqID, byte(len(payload)))
	f = append(f, payload...)
	return crc16.Append(f, f)
}

// sendRequest clocks one request frame into the model.
func sendRequest(t *testing.T, m *Model, reqID byte, payload []byte) {
	t.Helper()

	require.NoError(t, m.SelectLow())
	_, err := m.Transfer(requestFrame(reqID, payload))
	require.NoError(t, err)
	require.NoError(t, m.SelectHigh())
}

// probeOnce asserts the select line, clocks one probe byte and returns the
// chip status. The line stays asserted so the caller can read the response.
func probeOnce(t *testing.T, m *Model) link.ChipStatus {
	t.Helper()

	require.NoError(t, m.SelectLow())
	rx, err := m.Transfer([]byte{probeByte})
	require.NoError(t, err)
	return link.ChipStatus(rx[0])
}

// readResponse polls until a response is ready and returns its status and
// payload, verifying the frame CRC on the way.
func readResponse(t *testing.T, m *Model) (link.Status, []byte) {
	t.Helper()

	for i := 0; i < 32; i++ {
		status := probeOnce(t, m)
		if status.Waiting() {
			require.NoError(t, m.SelectHigh())
			continue
		}

		header, err := m.Read(2)
		require.NoError(t, err)
		rest, err := m.Read(int(header[1]) + crc16.Size)
		require.NoError(t, err)
		require.NoError(t, m.SelectHigh())

		payload := rest[:len(rest)-crc16.Size]
		body := append(append([]byte(nil), header...), payload...)
		require.True(t, crc16.Valid(body, rest[len(rest)-crc16.Size:]), "response crc")
		return link.Status(header[0]), payload
	}

	t.Fatal("no response after 32 probes")
	return 0, nil
}

func exchange(t *testing.T, m *Model, reqID byte, payload []byte) (link.Status, []byte) {
	t.Helper()
	sendRequest(t, m, reqID, payload)
	return readResponse(t, m)
}

// --- Bus protocol ---

func TestModel_ProbeWithoutRequest(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	status := probeOnce(t, m)
	assert.Equal(t, link.ChipStatusBusy, status)
	require.NoError(t, m.SelectHigh())
}

func TestModel_StrictBusProtocol(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	_, err = m.Transfer([]byte{probeByte})
	assert.Error(t, err, "transfer while deselected")
	_, err = m.Read(1)
	assert.Error(t, err, "read while deselected")
	assert.Error(t, m.SelectHigh(), "release while not selected")

	require.NoError(t, m.SelectLow())
	assert.Error(t, m.SelectLow(), "double select")
	_, err = m.Transfer(nil)
	assert.Error(t, err, "empty transfer")
	require.NoError(t, m.SelectHigh())

	require.NoError(t, m.Close())
	assert.Error(t, m.SelectLow())
}

func TestModel_ReleaseDiscardsStagedBytes(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	sendRequest(t, m, link.ReqGetInfo, []byte{byte(link.InfoChipID), 0x00})
	status := probeOnce(t, m)
	require.Equal(t, link.ChipStatusReady, status)

	// Drop the line before reading anything.
	require.NoError(t, m.SelectHigh())

	require.NoError(t, m.SelectLow())
	out, err := m.Read(4)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xFF}, out, "stream cleared on release")
	require.NoError(t, m.SelectHigh())
}

func TestModel_BusyScripting(t *testing.T) {
	m, err := New()
	require.NoError(t, err)
	m.SetBusyPolls(2)

	sendRequest(t, m, link.ReqGetInfo, []byte{byte(link.InfoChipID), 0x00})

	for i := 0; i < 2; i++ {
		status := probeOnce(t, m)
		assert.Equal(t, link.ChipStatusNotReady, status, "probe %d", i)
		require.NoError(t, m.SelectHigh())
	}

	status, payload := readResponse(t, m)
	assert.Equal(t, link.StatusResultOK, status)
	assert.Len(t, payload, infoBlockSize)
}

func TestModel_Alarm(t *testing.T) {
	m, err := New()
	require.NoError(t, err)
	m.SetAlarm(true)

	status := probeOnce(t, m)
	assert.True(t, status.Alarm())
	require.NoError(t, m.SelectHigh())
}

func TestModel_CorruptedResponseAndResend(t *testing.T) {
	m, err := New()
	require.NoError(t, err)
	m.CorruptNextResponseCRC()

	sendRequest(t, m, link.ReqGetInfo, []byte{byte(link.InfoRiscvFw), 0x00})

	status := probeOnce(t, m)
	require.Equal(t, link.ChipStatusReady, status)
	header, err := m.Read(2)
	require.NoError(t, err)
	rest, err := m.Read(int(header[1]) + crc16.Size)
	require.NoError(t, err)
	require.NoError(t, m.SelectHigh())

	body := append(append([]byte(nil), header...), rest[:len(rest)-crc16.Size]...)
	assert.False(t, crc16.Valid(body, rest[len(rest)-crc16.Size:]), "first copy corrupted")

	// A resend serves the same response again, this time intact.
	status2, payload := exchange(t, m, link.ReqResend, nil)
	assert.Equal(t, link.StatusResultOK, status2)
	assert.Equal(t, body[2:], payload)
}

// --- Request handling ---

func TestModel_BadRequestCRC(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	f := requestFrame(link.ReqGetInfo, []byte{byte(link.InfoChipID), 0x00})
	f[len(f)-1] ^= 0xFF

	require.NoError(t, m.SelectLow())
	_, err = m.Transfer(f)
	require.NoError(t, err)
	require.NoError(t, m.SelectHigh())

	status, _ := readResponse(t, m)
	assert.Equal(t, link.StatusCRCErr, status)
}

func TestModel_UnknownRequest(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	status, _ := exchange(t, m, 0x55, nil)
	assert.Equal(t, link.StatusUnknownReq, status)
}

func TestModel_GetInfoObjects(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	status, chipID := exchange(t, m, link.ReqGetInfo, []byte{byte(link.InfoChipID), 0x00})
	require.Equal(t, link.StatusResultOK, status)
	assert.Len(t, chipID, infoBlockSize)

	status, fw := exchange(t, m, link.ReqGetInfo, []byte{byte(link.InfoRiscvFw), 0x00})
	require.Equal(t, link.StatusResultOK, status)
	assert.Len(t, fw, 4)

	// The firmware bank header is a maintenance-mode object.
	status, _ = exchange(t, m, link.ReqGetInfo, []byte{byte(link.InfoFwBank), 0x00})
	assert.Equal(t, link.StatusGenErr, status)

	status, _ = exchange(t, m, link.ReqGetInfo, []byte{byte(link.InfoCertificate), certBlocks})
	assert.Equal(t, link.StatusGenErr, status, "certificate block out of range")
}

func TestModel_MaintenanceMode(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	status, _ := exchange(t, m, link.ReqStartup, []byte{byte(link.StartupMaintenance)})
	require.Equal(t, link.StatusRequestOK, status)

	// With a response pending, the probe carries the start-mode bit.
	sendRequest(t, m, link.ReqGetInfo, []byte{byte(link.InfoFwBank), 0x00})
	probed := probeOnce(t, m)
	require.False(t, probed.Waiting())
	assert.True(t, probed.StartMode())

	header, err := m.Read(2)
	require.NoError(t, err)
	rest, err := m.Read(int(header[1]) + crc16.Size)
	require.NoError(t, err)
	require.NoError(t, m.SelectHigh())
	require.Equal(t, link.StatusResultOK, link.Status(header[0]))
	assert.NotEmpty(t, rest[:len(rest)-crc16.Size])

	status, _ = exchange(t, m, link.ReqHandshake, make([]byte, session.KeySize+1))
	assert.Equal(t, link.StatusRespDisabled, status)

	status, _ = exchange(t, m, link.ReqStartup, []byte{byte(link.StartupReboot)})
	require.Equal(t, link.StatusRequestOK, status)
	status, _ = exchange(t, m, link.ReqGetInfo, []byte{byte(link.InfoFwBank), 0x00})
	assert.Equal(t, link.StatusGenErr, status)
}

func TestModel_EncryptedCmdWithoutSession(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	status, _ := exchange(t, m, link.ReqEncryptedCmd, []byte{0x01, 0x00, 0xAA})
	assert.Equal(t, link.StatusNoSession, status)
}

func TestModel_HandshakeRejectsUnpairedSlot(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	payload := make([]byte, session.KeySize+1)
	payload[session.KeySize] = 2 // slot 2 was never provisioned

	status, _ := exchange(t, m, link.ReqHandshake, payload)
	assert.Equal(t, link.StatusHandshakeErr, status)
}

// --- Firmware log ---

func TestModel_FwLog(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	status, line := exchange(t, m, link.ReqGetLog, nil)
	require.Equal(t, link.StatusResultOK, status)
	assert.Equal(t, "boot: fw 1.1.3.0\n", string(line))

	status, line = exchange(t, m, link.ReqGetLog, nil)
	require.Equal(t, link.StatusResultOK, status)
	assert.Empty(t, line, "log drained")
}

func TestModel_FwLogDebugGate(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	// Drain the boot line, then turn firmware logging off.
	_, _ = exchange(t, m, link.ReqGetLog, nil)
	m.iconfig[cfgDebug] = configErased &^ debugFwLogBit

	m.fwLogf("should not appear")

	status, line := exchange(t, m, link.ReqGetLog, nil)
	require.Equal(t, link.StatusResultOK, status)
	assert.Empty(t, line)
}

// --- Access privileges ---

func TestEffectiveConfig(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	assert.Equal(t, configErased, m.effectiveConfig(cfgUapPing), "erased by default")

	m.rconfig[cfgUapPing] = 0x00FF00FF
	m.iconfig[cfgUapPing] = 0x0F0F0F0F
	assert.Equal(t, uint32(0x000F000F), m.effectiveConfig(cfgUapPing))
}

func TestAuthorized(t *testing.T) {
	m, err := New()
	require.NoError(t, err)
	m.sess = &chipSession{slot: 1}

	ping := []byte{cmdPing, 0xAB}
	assert.True(t, m.authorized(ping), "erased config grants everything")

	// Clear slot 1's bit in the ping privilege's FUNC field.
	m.iconfig[cfgUapPing] = configErased &^ (uint32(1) << (8 + 1))
	assert.False(t, m.authorized(ping))

	// Other commands are untouched.
	assert.True(t, m.authorized([]byte{cmdGetRandom, 0x10}))
}

func TestAuthorized_PairingSlotFields(t *testing.T) {
	m, err := New()
	require.NoError(t, err)
	m.sess = &chipSession{slot: 0}

	write := func(target byte) []byte {
		return []byte{cmdPairingKeyWrite, target, 0x00}
	}

	// Deny slot 0 writes to target slot 2 only: field 2, bit 0.
	m.iconfig[cfgUapPairingKeyWrite] = configErased &^ (uint32(1) << (16 + 0))

	assert.True(t, m.authorized(write(1)))
	assert.False(t, m.authorized(write(2)))
	assert.True(t, m.authorized(write(3)))
}

// --- Identity blocks ---

func TestBuildCertStore_EmbedsChipKey(t *testing.T) {
	pub := bytes.Repeat([]byte{0x5A}, session.KeySize)
	store := buildCertStore(pub)
	require.Len(t, store, certBlocks*infoBlockSize)

	marker := []byte{0x65, 0x6E, 0x03, 0x21}
	idx := bytes.Index(store, marker)
	require.Positive(t, idx)
	assert.Equal(t, pub, store[idx+5:idx+5+session.KeySize])

	bodyLen := int(store[2])<<8 | int(store[3])
	assert.LessOrEqual(t, certHeaderLen+bodyLen, len(store))
	assert.Greater(t, bodyLen, idx, "key sits inside the declared body")
}

func TestBuildChipID(t *testing.T) {
	id := buildChipID()
	require.Len(t, id, infoBlockSize)
	assert.Equal(t, []byte{0x80, 0xAA}, id[32:34], "QFN32 package id")
	assert.Equal(t, "TR01-C2S-T200", string(bytes.TrimRight(id[68:84], "\x00")))
}

package transport

import (
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tropicsquare/go-tropic01/logger"
)

// startSPIBridge serves the raw SPI bridge protocol for a single
// connection: WRITE_READINTO replies with the bitwise complement of the tx
// bytes, READ replies with a counting pattern, chip-select commands reply
// with ack.
func startSPIBridge(t *testing.T, ack byte) string {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = lis.Close() })

	go func() {
		conn, err := lis.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			var cmd [1]byte
			if _, err := io.ReadFull(conn, cmd[:]); err != nil {
				return
			}

			switch cmd[0] {
			case spiCmdWriteReadInto:
				var lenBuf [4]byte
				if _, err := io.ReadFull(conn, lenBuf[:]); err != nil {
					return
				}
				data := make([]byte, binary.BigEndian.Uint32(lenBuf[:]))
				if _, err := io.ReadFull(conn, data); err != nil {
					return
				}
				for i := range data {
					data[i] = ^data[i]
				}
				if _, err := conn.Write(data); err != nil {
					return
				}

			case spiCmdRead:
				var lenBuf [4]byte
				if _, err := io.ReadFull(conn, lenBuf[:]); err != nil {
					return
				}
				data := make([]byte, binary.BigEndian.Uint32(lenBuf[:]))
				for i := range data {
					data[i] = byte(i)
				}
				if _, err := conn.Write(data); err != nil {
					return
				}

			case spiCmdCSLow, spiCmdCSHigh:
				if _, err := conn.Write([]byte{ack}); err != nil {
					return
				}

			default:
				return
			}
		}
	}()

	return lis.Addr().String()
}

func dialTestBridge(t *testing.T, addr string) *TCPSPI {
	t.Helper()

	tr, err := DialTCPSPI(addr,
		WithLogger(logger.NewNop()),
		WithDialTimeout(2*time.Second),
		WithIOTimeout(2*time.Second),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tr.Close() })

	return tr
}

func TestTCPSPI_Transfer(t *testing.T) {
	tr := dialTestBridge(t, startSPIBridge(t, 0x00))

	tx := []byte{0x01, 0x02, 0xAA, 0xFF}
	rx, err := tr.Transfer(tx)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFE, 0xFD, 0x55, 0x00}, rx, "bridge complements the tx bytes")
	assert.Len(t, rx, len(tx))
}

func TestTCPSPI_Read(t *testing.T) {
	tr := dialTestBridge(t, startSPIBridge(t, 0x00))

	rx, err := tr.Read(5)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 2, 3, 4}, rx)
}

func TestTCPSPI_ChipSelect(t *testing.T) {
	tr := dialTestBridge(t, startSPIBridge(t, 0x00))

	require.NoError(t, tr.SelectLow())
	require.NoError(t, tr.SelectHigh())
}

func TestTCPSPI_BadAck(t *testing.T) {
	tr := dialTestBridge(t, startSPIBridge(t, 0x07))

	err := tr.SelectLow()
	assert.ErrorIs(t, err, ErrBadAck)
	assert.ErrorContains(t, err, "0x07")
}

func TestDialTCPSPI_Unreachable(t *testing.T) {
	// A listener that is immediately closed: the port is known-dead.
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := lis.Addr().String()
	require.NoError(t, lis.Close())

	_, err = DialTCPSPI(addr,
		WithLogger(logger.NewNop()),
		WithDialTimeout(500*time.Millisecond),
	)
	assert.Error(t, err)
}

package transport

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tropicsquare/go-tropic01/logger"
)

// modelBehavior tweaks the scripted model server's replies.
type modelBehavior struct {
	// replyTag overrides the echoed tag when non-zero.
	replyTag byte
	// truncate drops one byte from every SPI_SEND reply.
	truncate bool
}

// startModelServer serves the tagged model-socket protocol for a single
// connection. SPI_SEND replies with the bitwise complement of the payload;
// other tags reply with an empty payload.
func startModelServer(t *testing.T, behavior modelBehavior) string {
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
			header := make([]byte, ModelHeaderLen)
			if _, err := io.ReadFull(conn, header); err != nil {
				return
			}

			tag := header[0]
			length := int(header[1]) | int(header[2])<<8
			payload := make([]byte, length)
			if _, err := io.ReadFull(conn, payload); err != nil {
				return
			}

			respTag := tag
			if behavior.replyTag != 0 {
				respTag = behavior.replyTag
			}

			var resp []byte
			if tag == TagSPISend {
				resp = make([]byte, len(payload))
				for i := range payload {
					resp[i] = ^payload[i]
				}
				if behavior.truncate && len(resp) > 0 {
					resp = resp[:len(resp)-1]
				}
			}

			msg := append([]byte{respTag, byte(len(resp)), byte(len(resp) >> 8)}, resp...)
			if _, err := conn.Write(msg); err != nil {
				return
			}
		}
	}()

	return lis.Addr().String()
}

func dialTestModel(t *testing.T, addr string) *ModelTCP {
	t.Helper()

	tr, err := DialModelTCP(addr,
		WithLogger(logger.NewNop()),
		WithDialTimeout(2*time.Second),
		WithIOTimeout(2*time.Second),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tr.Close() })

	return tr
}

func TestModelTCP_Transfer(t *testing.T) {
	tr := dialTestModel(t, startModelServer(t, modelBehavior{}))

	rx, err := tr.Transfer([]byte{0xAA, 0x00, 0xFF})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x55, 0xFF, 0x00}, rx)
}

func TestModelTCP_Read(t *testing.T) {
	tr := dialTestModel(t, startModelServer(t, modelBehavior{}))

	// Reading clocks out zeros; the scripted model complements them.
	rx, err := tr.Read(4)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xFF}, rx)
}

func TestModelTCP_ChipSelect(t *testing.T) {
	tr := dialTestModel(t, startModelServer(t, modelBehavior{}))

	require.NoError(t, tr.SelectLow())
	require.NoError(t, tr.SelectHigh())
}

func TestModelTCP_LengthMismatch(t *testing.T) {
	tr := dialTestModel(t, startModelServer(t, modelBehavior{truncate: true}))

	_, err := tr.Transfer([]byte{0x01, 0x02})
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestModelTCP_ShortRead(t *testing.T) {
	tr := dialTestModel(t, startModelServer(t, modelBehavior{truncate: true}))

	_, err := tr.Read(3)
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestModelTCP_TagMismatch(t *testing.T) {
	tr := dialTestModel(t, startModelServer(t, modelBehavior{replyTag: 0x55}))

	_, err := tr.Transfer([]byte{0x01})
	assert.ErrorIs(t, err, ErrTagMismatch)
}

func TestModelTCP_ErrorTags(t *testing.T) {
	t.Run("invalid", func(t *testing.T) {
		tr := dialTestModel(t, startModelServer(t, modelBehavior{replyTag: TagInvalid}))

		_, err := tr.Transfer([]byte{0x01})
		assert.ErrorContains(t, err, "recognize")
	})

	t.Run("unsupported", func(t *testing.T) {
		tr := dialTestModel(t, startModelServer(t, modelBehavior{replyTag: TagUnsupported}))

		_, err := tr.Transfer([]byte{0x01})
		assert.ErrorContains(t, err, "support")
	})
}

func TestModelTCP_PayloadTooLarge(t *testing.T) {
	tr := dialTestModel(t, startModelServer(t, modelBehavior{}))

	_, err := tr.Transfer(make([]byte, MaxModelPayload+1))
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
}

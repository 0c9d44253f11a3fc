package bridge

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tropicsquare/go-tropic01/internal/chipmodel"
	"github.com/tropicsquare/go-tropic01/logger"
	"github.com/tropicsquare/go-tropic01/session"
	"github.com/tropicsquare/go-tropic01/transport"
	"github.com/tropicsquare/go-tropic01/tropic"
)

// startLoopbackBridge runs a bridge backed by the in-process chip model and
// returns its address plus the pairing keypair provisioned in slot 0.
func startLoopbackBridge(t *testing.T) (addr string, hostPriv, hostPub []byte) {
	t.Helper()

	var err error
	hostPriv, hostPub, err = session.StdCrypto{}.GenerateKeypair()
	require.NoError(t, err)

	model, err := chipmodel.New(
		chipmodel.WithPairingKey(0, hostPub),
		chipmodel.WithLogger(logger.NewNop()),
	)
	require.NoError(t, err)

	srv, err := New(model, WithLogger(logger.NewNop()))
	require.NoError(t, err)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(func() { _ = srv.Shutdown() })

	return lis.Addr().String(), hostPriv, hostPub
}

func TestNew_NilTransport(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestServer_EndToEnd(t *testing.T) {
	addr, hostPriv, hostPub := startLoopbackBridge(t)

	tr, err := transport.DialModelTCP(addr,
		transport.WithLogger(logger.NewNop()),
		transport.WithIOTimeout(2*time.Second),
	)
	require.NoError(t, err)

	client, err := tropic.NewClient(tr, tropic.WithLogger(logger.NewNop()))
	require.NoError(t, err)
	defer client.Close()

	// Plain link-layer traffic across the wire.
	id, err := client.ChipID()
	require.NoError(t, err)
	assert.Equal(t, "TR01-C2S-T200", id.PartNumber)

	// And a full secure session: handshake, encrypted command, teardown.
	require.NoError(t, client.StartSecureSession(0, hostPriv, hostPub))

	echo, err := client.Ping([]byte("across the bridge"))
	require.NoError(t, err)
	assert.Equal(t, []byte("across the bridge"), echo)

	random, err := client.GetRandom(16)
	require.NoError(t, err)
	assert.Len(t, random, 16)

	require.NoError(t, client.AbortSecureSession())
}

func TestServer_TwoClientsSequentially(t *testing.T) {
	addr, hostPriv, hostPub := startLoopbackBridge(t)

	for i := 0; i < 2; i++ {
		tr, err := transport.DialModelTCP(addr, transport.WithLogger(logger.NewNop()))
		require.NoError(t, err)

		client, err := tropic.NewClient(tr, tropic.WithLogger(logger.NewNop()))
		require.NoError(t, err)

		require.NoError(t, client.StartSecureSession(0, hostPriv, hostPub))
		_, err = client.Ping([]byte("again"))
		require.NoError(t, err)

		require.NoError(t, client.Close())
	}
}

func TestServer_WaitTag(t *testing.T) {
	addr, _, _ := startLoopbackBridge(t)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	// WAIT carries a delay the loopback has no use for; it must still be
	// acknowledged with an empty payload of the same tag.
	_, err = conn.Write([]byte{transport.TagWait, 0x02, 0x00, 0x10, 0x27})
	require.NoError(t, err)

	reply := make([]byte, transport.ModelHeaderLen)
	_, err = io.ReadFull(conn, reply)
	require.NoError(t, err)
	assert.Equal(t, []byte{transport.TagWait, 0x00, 0x00}, reply)
}

func TestServer_InvalidTag(t *testing.T) {
	addr, _, _ := startLoopbackBridge(t)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte{0x99, 0x00, 0x00})
	require.NoError(t, err)

	reply := make([]byte, transport.ModelHeaderLen)
	_, err = io.ReadFull(conn, reply)
	require.NoError(t, err)
	assert.Equal(t, []byte{transport.TagInvalid, 0x00, 0x00}, reply)
}

func TestServer_ShutdownClosesConnections(t *testing.T) {
	model, err := chipmodel.New(chipmodel.WithLogger(logger.NewNop()))
	require.NoError(t, err)

	srv, err := New(model, WithLogger(logger.NewNop()))
	require.NoError(t, err)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() { _ = srv.Serve(lis) }()

	conn, err := net.Dial("tcp", lis.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return srv.ConnCount() == 1 },
		time.Second, 10*time.Millisecond)

	require.NoError(t, srv.Shutdown())
	assert.Zero(t, srv.ConnCount())

	// The served end is gone; the next read observes it.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, err = conn.Read(make([]byte, 1))
	assert.Error(t, err)
}

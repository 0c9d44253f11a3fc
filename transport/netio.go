package transport

import (
	"bufio"
	"net"
	"time"
)

// netIO bundles a net.Conn with deadline-scoped I/O helpers shared by the
// TCP-backed carriers.
type netIO struct {
	conn    net.Conn
	reader  *bufio.Reader
	timeout time.Duration
}

func newNetIO(conn net.Conn, timeout time.Duration) *netIO {
	return &netIO{
		conn:    conn,
		reader:  bufio.NewReader(conn),
		timeout: timeout,
	}
}

func (t *netIO) writeAll(buf []byte) error {
	if err := t.conn.SetWriteDeadline(time.Now().Add(t.timeout)); err != nil {
		return err
	}

	_, err := t.conn.Write(buf)

	return err
}

// readFull reads exactly len(buf) bytes. The deadline is reset before each
// read call, so it bounds silence on the wire rather than total duration.
func (t *netIO) readFull(buf []byte) error {
	for read := 0; read < len(buf); {
		if err := t.conn.SetReadDeadline(time.Now().Add(t.timeout)); err != nil {
			return err
		}

		n, err := t.reader.Read(buf[read:])
		read += n

		if err != nil {
			return err
		}
	}

	return nil
}

func (t *netIO) readByte() (byte, error) {
	var buf [1]byte
	if err := t.readFull(buf[:]); err != nil {
		return 0, err
	}

	return buf[0], nil
}

// withDefaultPort appends port when addr does not already carry one.
func withDefaultPort(addr, port string) string {
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr
	}

	return net.JoinHostPort(addr, port)
}

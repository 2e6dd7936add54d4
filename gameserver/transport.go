package gameserver

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/cyberinferno/tictactoe3d/protocol"
)

// Transport is the per-connection framing a client session reads and writes
// through: one encoded message per frame, no framing bytes included.
// ReadMessage blocks until a frame arrives or the connection dies; Close
// unblocks a pending read. WriteMessage is serialized by the session, so
// implementations need not support concurrent writers.
type Transport interface {
	// ReadMessage returns the next message without its framing.
	//
	// Returns:
	//   - The message bytes, valid until the next call
	//   - io.EOF on a clean peer close, or the transport error
	ReadMessage() ([]byte, error)

	// WriteMessage writes one message with framing.
	//
	// Parameters:
	//   - payload: The encoded message to frame and send
	//
	// Returns:
	//   - An error if the write failed
	WriteMessage(payload []byte) error

	// Close tears the connection down. Safe to call more than once.
	//
	// Returns:
	//   - An error if closing failed
	Close() error

	// RemoteAddr returns the peer address for logging.
	RemoteAddr() string
}

// lineTransport frames messages as newline-terminated lines over a TCP
// connection. Partial reads buffer until a newline arrives; a buffer holding
// several complete lines is drained without further blocking reads.
type lineTransport struct {
	conn         net.Conn
	scanner      *bufio.Scanner
	writeTimeout time.Duration
}

// newLineTransport wraps conn in line framing. Lines beyond
// protocol.MaxLineBytes poison the stream and surface as a read error.
func newLineTransport(conn net.Conn, writeTimeout time.Duration) *lineTransport {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), protocol.MaxLineBytes)

	return &lineTransport{
		conn:         conn,
		scanner:      scanner,
		writeTimeout: writeTimeout,
	}
}

// ReadMessage returns the next line without its terminator.
func (t *lineTransport) ReadMessage() ([]byte, error) {
	if !t.scanner.Scan() {
		if err := t.scanner.Err(); err != nil {
			return nil, err
		}

		return nil, io.EOF
	}

	return t.scanner.Bytes(), nil
}

// WriteMessage appends the line terminator and writes the frame.
func (t *lineTransport) WriteMessage(payload []byte) error {
	if t.writeTimeout > 0 {
		if err := t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout)); err != nil {
			return err
		}

		defer func() {
			_ = t.conn.SetWriteDeadline(time.Time{})
		}()
	}

	_, err := fmt.Fprintf(t.conn, "%s\n", payload)
	return err
}

// Close implements Transport.
func (t *lineTransport) Close() error {
	return t.conn.Close()
}

// RemoteAddr implements Transport.
func (t *lineTransport) RemoteAddr() string {
	return t.conn.RemoteAddr().String()
}

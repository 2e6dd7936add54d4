package webgate

import (
	"io"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cyberinferno/tictactoe3d/gameserver"
)

// wsTransport adapts a websocket connection to the game server's transport:
// one websocket text frame carries one encoded message, no newline needed.
type wsTransport struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
}

func newWSTransport(conn *websocket.Conn) *wsTransport {
	return &wsTransport{
		conn:         conn,
		writeTimeout: gameserver.DefaultWriteTimeout,
	}
}

// ReadMessage returns the next text frame. Non-text frames are skipped; a
// normal websocket closure surfaces as io.EOF so the session treats it like
// a clean TCP close.
func (t *wsTransport) ReadMessage() ([]byte, error) {
	for {
		messageType, data, err := t.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived) {
				return nil, io.EOF
			}

			return nil, err
		}

		if messageType != websocket.TextMessage {
			continue
		}

		return data, nil
	}
}

// WriteMessage sends one message as a text frame.
func (t *wsTransport) WriteMessage(payload []byte) error {
	if t.writeTimeout > 0 {
		if err := t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout)); err != nil {
			return err
		}
	}

	return t.conn.WriteMessage(websocket.TextMessage, payload)
}

// Close implements gameserver.Transport.
func (t *wsTransport) Close() error {
	return t.conn.Close()
}

// RemoteAddr implements gameserver.Transport.
func (t *wsTransport) RemoteAddr() string {
	return t.conn.RemoteAddr().String()
}

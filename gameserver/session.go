package gameserver

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/cyberinferno/tictactoe3d/logger"
	"github.com/cyberinferno/tictactoe3d/protocol"
	"github.com/cyberinferno/tictactoe3d/registry"
)

// session is one connected client. It moves through connecting, admitted,
// active, and disconnected: admission assigns the player slot, the active
// read loop feeds moves into the game, and any read error or peer close ends
// the session. The session is the registry.Conn for its connection.
type session struct {
	id        uint32
	remote    string
	transport Transport
	srv       *Server
	logger    logger.Logger

	sendMu sync.Mutex
	closed atomic.Bool
}

// ID implements registry.Conn.
func (s *session) ID() uint32 {
	return s.id
}

// RemoteAddr implements registry.Conn.
func (s *session) RemoteAddr() string {
	return s.remote
}

// Send writes one encoded message to the peer. Safe for concurrent use; the
// session's own replies and broadcast fan-outs never interleave bytes.
func (s *session) Send(payload []byte) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	return s.transport.WriteMessage(payload)
}

// Close shuts the transport down, unblocking a pending read. Safe to call
// more than once.
func (s *session) Close() error {
	if s.closed.Swap(true) {
		return nil
	}

	return s.transport.Close()
}

// handle runs the session from admission to teardown. A capacity refusal
// sends one error message and closes immediately; an admitted session reads
// until the connection ends. The init message and the admission broadcast
// are sent by the server during admit.
func (s *session) handle() {
	defer func() {
		_ = s.Close()
		s.srv.dropSession(s.id)
	}()

	client, err := s.srv.admit(s)
	if err != nil {
		if errors.Is(err, registry.ErrServerFull) {
			s.logger.Info("admission refused", logger.Field{Key: "error", Value: err})
			if payload, encErr := protocol.EncodeError(err.Error()); encErr == nil {
				_ = s.Send(payload)
			}
		} else {
			s.logger.Warn("admission failed", logger.Field{Key: "error", Value: err})
		}

		return
	}

	s.logger.Info("player joined", logger.Field{Key: "slot", Value: client.Slot})

	s.readLoop(client)
	s.srv.handleDisconnect(s, client)
}

// readLoop decodes inbound messages until the transport fails. One bad line
// never ends the session; it is logged and the loop moves to the next line.
func (s *session) readLoop(client *registry.Client) {
	for {
		frame, err := s.transport.ReadMessage()
		if err != nil {
			if !s.closed.Load() && !errors.Is(err, io.EOF) {
				s.logger.Debug("read ended", logger.Field{Key: "error", Value: err})
			}

			return
		}

		line := bytes.TrimSpace(frame)
		if len(line) == 0 {
			continue
		}

		msg, err := protocol.Decode(line)
		if err != nil {
			if errors.Is(err, protocol.ErrUnknownType) {
				s.logger.Debug("ignoring unknown message type")
			} else {
				s.logger.Debug("dropping malformed line", logger.Field{Key: "error", Value: err})
			}

			continue
		}

		move, ok := msg.(*protocol.Move)
		if !ok {
			continue
		}

		// A client-asserted player id is only trusted when it matches the
		// slot admission assigned to this connection.
		if move.Player != client.Slot {
			s.logger.Debug("dropping move for foreign slot",
				logger.Field{Key: "claimed", Value: move.Player},
				logger.Field{Key: "held", Value: client.Slot})
			continue
		}

		s.srv.applyAndBroadcast(client, move)
	}
}

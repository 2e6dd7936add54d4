package gameclient

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyberinferno/tictactoe3d/game"
	"github.com/cyberinferno/tictactoe3d/gameserver"
	"github.com/cyberinferno/tictactoe3d/protocol"
)

// scriptServer accepts one connection and lets the test speak the server's
// side of the protocol by hand.
type scriptServer struct {
	t    *testing.T
	ln   net.Listener
	conn net.Conn
	r    *bufio.Reader
}

func newScriptServer(t *testing.T) *scriptServer {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = ln.Close()
	})

	return &scriptServer{t: t, ln: ln}
}

func (s *scriptServer) addr() string {
	return s.ln.Addr().String()
}

// accept picks up the connection the client dialed. The dial completes
// against the listen backlog, so calling this after Connect is fine.
func (s *scriptServer) accept() {
	s.t.Helper()

	require.NoError(s.t, s.ln.(*net.TCPListener).SetDeadline(time.Now().Add(2*time.Second)))
	conn, err := s.ln.Accept()
	require.NoError(s.t, err)
	s.t.Cleanup(func() {
		_ = conn.Close()
	})

	s.conn = conn
	s.r = bufio.NewReader(conn)
}

func (s *scriptServer) sendLine(line string) {
	s.t.Helper()

	_, err := fmt.Fprintf(s.conn, "%s\n", line)
	require.NoError(s.t, err)
}

func (s *scriptServer) readMove() *protocol.Move {
	s.t.Helper()

	require.NoError(s.t, s.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	line, err := s.r.ReadBytes('\n')
	require.NoError(s.t, err)

	msg, err := protocol.Decode(bytes.TrimSpace(line))
	require.NoError(s.t, err)
	move, ok := msg.(*protocol.Move)
	require.True(s.t, ok, "expected a move message, got %T", msg)

	return move
}

func connectedClient(t *testing.T, srv *scriptServer) *Client {
	t.Helper()

	client := NewClient(DefaultConfig(srv.addr()))
	t.Cleanup(func() {
		_ = client.Close()
	})
	require.NoError(t, client.Connect())
	srv.accept()

	return client
}

func TestClient_resolves_player_slot_from_init(t *testing.T) {
	srv := newScriptServer(t)

	client := NewClient(DefaultConfig(srv.addr()))
	t.Cleanup(func() {
		_ = client.Close()
	})

	states := make(chan *protocol.State, 4)
	client.OnState(func(event StateEvent) {
		states <- event.State
	})

	_, ok := client.PlayerID()
	assert.False(t, ok)

	require.NoError(t, client.Connect())
	srv.accept()

	// The slot stays unresolved until the init message arrives.
	shortCtx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, client.WaitReady(shortCtx), context.DeadlineExceeded)

	srv.sendLine(`{"type":"init","player_id":1}`)

	ctx, cancelWait := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancelWait()
	require.NoError(t, client.WaitReady(ctx))

	id, ok := client.PlayerID()
	assert.True(t, ok)
	assert.Equal(t, 1, id)

	payload, err := protocol.EncodeState(game.NewSession().Snapshot())
	require.NoError(t, err)
	srv.sendLine(string(payload))

	select {
	case state := <-states:
		assert.Equal(t, 0, state.CurrentPlayer)
		assert.Nil(t, state.Winner)
		assert.Nil(t, state.LastMove)
	case <-time.After(2 * time.Second):
		t.Fatal("no state event before timeout")
	}
}

func TestClient_move_stamps_assigned_slot(t *testing.T) {
	srv := newScriptServer(t)
	client := connectedClient(t, srv)

	srv.sendLine(`{"type":"init","player_id":1}`)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, client.WaitReady(ctx))

	require.NoError(t, client.Move(3, 2, 1))

	move := srv.readMove()
	assert.Equal(t, 1, move.Player)
	assert.Equal(t, 3, move.Z)
	assert.Equal(t, 2, move.Y)
	assert.Equal(t, 1, move.X)
}

func TestClient_move_requires_connection_and_init(t *testing.T) {
	srv := newScriptServer(t)

	client := NewClient(DefaultConfig(srv.addr()))
	t.Cleanup(func() {
		_ = client.Close()
	})

	err := client.Move(0, 0, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not connected")

	require.NoError(t, client.Connect())
	srv.accept()

	require.ErrorIs(t, client.Move(0, 0, 0), ErrNotReady)
}

func TestClient_emits_server_error_and_close_events(t *testing.T) {
	srv := newScriptServer(t)

	client := NewClient(DefaultConfig(srv.addr()))
	t.Cleanup(func() {
		_ = client.Close()
	})

	errs := make(chan string, 1)
	closes := make(chan error, 1)
	client.OnServerError(func(event ServerErrorEvent) {
		errs <- event.Message
	})
	client.OnClose(func(event CloseEvent) {
		closes <- event.Error
	})

	require.NoError(t, client.Connect())
	srv.accept()

	srv.sendLine(`{"type":"error","message":"server full"}`)

	select {
	case message := <-errs:
		assert.Equal(t, "server full", message)
	case <-time.After(2 * time.Second):
		t.Fatal("no server error event before timeout")
	}

	require.NoError(t, srv.conn.Close())

	select {
	case err := <-closes:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("no close event before timeout")
	}
}

func TestClient_close_is_idempotent(t *testing.T) {
	srv := newScriptServer(t)
	client := connectedClient(t, srv)

	require.NoError(t, client.Close())
	require.NoError(t, client.Close())

	err := client.Connect()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "closed")

	err = client.Move(0, 0, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "closed")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.Error(t, client.WaitReady(ctx))
}

func TestClient_plays_against_live_server(t *testing.T) {
	srv := gameserver.NewServer(gameserver.ServerConfig{Addr: "127.0.0.1:0"})
	require.NoError(t, srv.Start())
	t.Cleanup(srv.Stop)

	readState := func(states chan *protocol.State) *protocol.State {
		t.Helper()
		select {
		case state := <-states:
			return state
		case <-time.After(2 * time.Second):
			t.Fatal("no state broadcast before timeout")
			return nil
		}
	}

	newPlayer := func(wantSlot int) (*Client, chan *protocol.State) {
		t.Helper()

		client := NewClient(DefaultConfig(srv.Addr().String()))
		t.Cleanup(func() {
			_ = client.Close()
		})

		states := make(chan *protocol.State, 16)
		client.OnState(func(event StateEvent) {
			states <- event.State
		})

		require.NoError(t, client.Connect())

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		require.NoError(t, client.WaitReady(ctx))

		slot, ok := client.PlayerID()
		require.True(t, ok)
		require.Equal(t, wantSlot, slot)

		return client, states
	}

	a, aStates := newPlayer(0)
	readState(aStates)

	b, bStates := newPlayer(1)
	readState(bStates)
	readState(aStates)

	require.NoError(t, a.Move(0, 0, 0))
	for _, states := range []chan *protocol.State{aStates, bStates} {
		state := readState(states)
		require.NotNil(t, state.LastMove)
		assert.Equal(t, 0, state.LastMove.Player)
		assert.Equal(t, 1, state.CurrentPlayer)
	}

	require.NoError(t, b.Move(1, 0, 0))
	for _, states := range []chan *protocol.State{aStates, bStates} {
		state := readState(states)
		require.NotNil(t, state.LastMove)
		assert.Equal(t, 1, state.LastMove.Player)
		assert.Equal(t, 0, state.CurrentPlayer)
	}
}

// Package gameclient provides an event-driven client for the game server.
// Register handlers for state updates, server errors, and connection close,
// then call Connect; the client resolves its player slot from the server's
// init message and stamps it on every move.
package gameclient

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/cyberinferno/tictactoe3d/protocol"
)

// ErrNotReady is returned by Move before the server has assigned a player
// slot via the init message.
var ErrNotReady = fmt.Errorf("player slot not assigned yet")

// StateEvent is emitted for every state broadcast from the server.
// It is passed to the handler registered with OnState.
type StateEvent struct {
	State     *protocol.State // The authoritative game state
	Timestamp time.Time       // When the state was received
}

// ServerErrorEvent is emitted when the server sends an error message, such
// as a capacity refusal. It is passed to the handler registered with OnServerError.
type ServerErrorEvent struct {
	Message   string    // The refusal text from the server
	Timestamp time.Time // When the message was received
}

// CloseEvent is emitted once when the connection ends.
// It is passed to the handler registered with OnClose.
type CloseEvent struct {
	Error     error     // Non-nil if the connection ended with a transport error
	Timestamp time.Time // When the connection ended
}

// StateHandler is called for each state broadcast, on the client's read
// goroutine and in the order the server sent them. A slow handler delays
// subsequent messages.
type StateHandler func(event StateEvent)

// ServerErrorHandler is called when the server sends an error message.
// It runs on the client's read goroutine.
type ServerErrorHandler func(event ServerErrorEvent)

// CloseHandler is called once when the connection ends.
// It runs on the client's read goroutine.
type CloseHandler func(event CloseEvent)

// Config holds configuration for the game client.
type Config struct {
	// Address is the "host:port" of the game server.
	Address string
	// DialTimeout is the max duration for establishing the connection.
	DialTimeout time.Duration
	// WriteTimeout is the max duration for a single write; 0 means no timeout.
	WriteTimeout time.Duration
}

// DefaultConfig returns a Config with default values for the given address.
//
// Parameters:
//   - address: The "host:port" of the game server
//
// Returns:
//   - A Config with defaults: DialTimeout 10s, WriteTimeout 10s.
func DefaultConfig(address string) Config {
	return Config{
		Address:      address,
		DialTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// Client is a game server client. Register handlers before Connect; the
// client is safe for concurrent use.
type Client struct {
	config Config
	conn   net.Conn

	onState       StateHandler
	onServerError ServerErrorHandler
	onClose       CloseHandler

	mu      sync.RWMutex
	slot    int
	slotSet bool
	closed  bool
	ready   chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewClient creates a game client with the given config. The client starts
// disconnected; call Connect to join the server.
//
// Parameters:
//   - config: Connection settings (e.g. from DefaultConfig)
//
// Returns:
//   - A new *Client ready to use; call Close when done to release resources.
func NewClient(config Config) *Client {
	return &Client{
		config: config,
		ready:  make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// OnState registers the handler for state broadcasts.
// Only one handler is active; repeated calls replace the previous handler.
// Pass nil to clear the handler.
//
// Parameters:
//   - handler: Function called with each state broadcast, in server order
func (c *Client) OnState(handler StateHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onState = handler
}

// OnServerError registers the handler for server error messages.
// Only one handler is active; repeated calls replace the previous handler.
// Pass nil to clear the handler.
//
// Parameters:
//   - handler: Function called when the server sends an error message
func (c *Client) OnServerError(handler ServerErrorHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onServerError = handler
}

// OnClose registers the handler for the end of the connection.
// Only one handler is active; repeated calls replace the previous handler.
// Pass nil to clear the handler.
//
// Parameters:
//   - handler: Function called once when the connection ends
func (c *Client) OnClose(handler CloseHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onClose = handler
}

// Connect dials the server and starts the read loop. The player slot is not
// assigned until the server's init message arrives; use WaitReady to block
// for it.
//
// Returns:
//   - nil on success; otherwise an error (e.g. "client is closed", "already connected", or dial error).
func (c *Client) Connect() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("client is closed")
	}
	if c.conn != nil {
		c.mu.Unlock()
		return fmt.Errorf("already connected")
	}
	c.mu.Unlock()

	dialer := net.Dialer{
		Timeout: c.config.DialTimeout,
	}

	conn, err := dialer.Dial("tcp", c.config.Address)
	if err != nil {
		return fmt.Errorf("connect to game server: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.wg.Add(1)
	go c.readLoop(conn)

	return nil
}

// Close shuts down the client and stops the read loop. Idempotent; calling
// Close multiple times is safe and returns nil.
//
// Returns:
//   - nil
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}

	c.closed = true
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}

	c.wg.Wait()

	return nil
}

// PlayerID returns the slot the server assigned to this client.
//
// Returns:
//   - The player slot, and whether the init message has arrived yet
func (c *Client) PlayerID() (int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.slot, c.slotSet
}

// WaitReady blocks until the server has assigned a player slot.
//
// Parameters:
//   - ctx: Bounds the wait
//
// Returns:
//   - nil once the slot is assigned; ctx.Err() on timeout or cancel; an
//     error if the connection ended before the init message arrived.
func (c *Client) WaitReady(ctx context.Context) error {
	select {
	case <-c.ready:
		return nil
	case <-c.done:
		if _, ok := c.PlayerID(); ok {
			return nil
		}
		return fmt.Errorf("connection closed before init")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Move sends a placement request for the given cell, stamped with the
// assigned player slot. The server replies with a state broadcast when the
// move is accepted and stays silent when it is rejected.
//
// Parameters:
//   - z, y, x: The target cell coordinate
//
// Returns:
//   - nil once the request is written; ErrNotReady before the init message;
//     an error if the client is closed, disconnected, or the write fails.
func (c *Client) Move(z, y, x int) error {
	c.mu.RLock()
	conn := c.conn
	closed := c.closed
	slot, slotSet := c.slot, c.slotSet
	c.mu.RUnlock()

	if closed {
		return fmt.Errorf("client is closed")
	}

	if conn == nil {
		return fmt.Errorf("not connected")
	}

	if !slotSet {
		return ErrNotReady
	}

	payload, err := protocol.EncodeMove(slot, z, y, x)
	if err != nil {
		return err
	}

	if c.config.WriteTimeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout)); err != nil {
			return err
		}

		defer func() {
			_ = conn.SetWriteDeadline(time.Time{}) // Best effort to clear deadline
		}()
	}

	_, err = fmt.Fprintf(conn, "%s\n", payload)
	return err
}

// readLoop decodes server messages until the connection ends. Malformed or
// unknown lines are skipped; the loop only stops on a transport error or
// close.
func (c *Client) readLoop(conn net.Conn) {
	defer c.wg.Done()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), protocol.MaxLineBytes)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		msg, err := protocol.Decode(line)
		if err != nil {
			continue
		}

		switch m := msg.(type) {
		case *protocol.Init:
			c.adoptSlot(m.PlayerID)
		case *protocol.State:
			c.emitState(m)
		case *protocol.Error:
			c.emitServerError(m.Message)
		}
	}

	err := scanner.Err()
	if c.isClosed() {
		err = nil
	}

	close(c.done)
	c.emitClose(err)
}

// adoptSlot records the slot from the first init message and unblocks
// WaitReady. Later init messages are ignored.
func (c *Client) adoptSlot(slot int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.slotSet {
		return
	}

	c.slot = slot
	c.slotSet = true
	close(c.ready)
}

func (c *Client) emitState(state *protocol.State) {
	c.mu.RLock()
	handler := c.onState
	c.mu.RUnlock()

	if handler != nil {
		handler(StateEvent{
			State:     state,
			Timestamp: time.Now(),
		})
	}
}

func (c *Client) emitServerError(message string) {
	c.mu.RLock()
	handler := c.onServerError
	c.mu.RUnlock()

	if handler != nil {
		handler(ServerErrorEvent{
			Message:   message,
			Timestamp: time.Now(),
		})
	}
}

func (c *Client) emitClose(err error) {
	c.mu.RLock()
	handler := c.onClose
	c.mu.RUnlock()

	if handler != nil {
		handler(CloseEvent{
			Error:     err,
			Timestamp: time.Now(),
		})
	}
}

func (c *Client) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

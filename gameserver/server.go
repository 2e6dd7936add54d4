// Package gameserver implements the authority server: it accepts client
// connections, admits them against the player registry, funnels their moves
// into the shared game session, and broadcasts every state change to all
// live connections.
package gameserver

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cyberinferno/tictactoe3d/game"
	"github.com/cyberinferno/tictactoe3d/idgenerator"
	"github.com/cyberinferno/tictactoe3d/logger"
	"github.com/cyberinferno/tictactoe3d/notify"
	"github.com/cyberinferno/tictactoe3d/perfmonitor"
	"github.com/cyberinferno/tictactoe3d/protocol"
	"github.com/cyberinferno/tictactoe3d/registry"
	"github.com/cyberinferno/tictactoe3d/safemap"
)

// DefaultWriteTimeout bounds a single message write on the TCP transport.
const DefaultWriteTimeout = 10 * time.Second

// ServerConfig wires a Server to its collaborators. Zero-value fields fall
// back to working defaults so tests can build a server from an address
// alone.
type ServerConfig struct {
	// Name appears in log lines about the server itself.
	Name string
	// Addr is the "host:port" to bind, e.g. "0.0.0.0:5555".
	Addr string
	// Game is the shared session mutated by every handler.
	Game *game.Session
	// Registry gates admission and tracks live connections.
	Registry *registry.Registry
	// Logger receives the server's structured log output.
	Logger logger.Logger
	// Notifier, when set, announces a decided game. Optional.
	Notifier *notify.Notifier
	// WriteTimeout bounds one message write; 0 means DefaultWriteTimeout.
	WriteTimeout time.Duration
}

// Server owns the listener and the broadcast path. One Server drives one
// game session for the process lifetime.
type Server struct {
	name         string
	addr         string
	game         *game.Session
	registry     *registry.Registry
	logger       logger.Logger
	notifier     *notify.Notifier
	writeTimeout time.Duration

	listener net.Listener
	sessions *safemap.SafeMap[uint32, *session]
	ids      *idgenerator.Generator
	running  atomic.Bool
	wg       sync.WaitGroup

	// broadcastMu serializes apply+encode+fanout so states reach clients in
	// the order the moves were committed. The game's own lock is never held
	// during a network write.
	broadcastMu sync.Mutex

	// matchClock times the match from the first accepted move to the
	// decision. Guarded by broadcastMu.
	matchClock *perfmonitor.PerformanceMonitor
}

// NewServer builds a Server from the given config, filling in defaults for
// absent collaborators.
//
// Parameters:
//   - cfg: The server wiring; only Addr is required
//
// Returns:
//   - A pointer to the new Server, not yet started
func NewServer(cfg ServerConfig) *Server {
	if cfg.Name == "" {
		cfg.Name = "game"
	}
	if cfg.Game == nil {
		cfg.Game = game.NewSession()
	}
	if cfg.Registry == nil {
		cfg.Registry = registry.NewRegistry(0)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}

	return &Server{
		name:         cfg.Name,
		addr:         cfg.Addr,
		game:         cfg.Game,
		registry:     cfg.Registry,
		logger:       cfg.Logger,
		notifier:     cfg.Notifier,
		writeTimeout: cfg.WriteTimeout,
		sessions:     safemap.NewSafeMap[uint32, *session](),
		ids:          idgenerator.NewGenerator(0),
		matchClock:   perfmonitor.NewPerformanceMonitor(),
	}
}

// Start binds the configured address and begins accepting connections in a
// goroutine. A bind failure is fatal to the caller; nothing is retried.
//
// Returns:
//   - An error if the server is already running or the bind fails
func (s *Server) Start() error {
	if s.running.Load() {
		s.logger.Error("server already running")
		return fmt.Errorf("server %s already running", s.name)
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.logger.Error("server failed to start", logger.Field{Key: "error", Value: err})
		return fmt.Errorf("server %s failed to start: %w", s.name, err)
	}

	s.listener = ln
	s.running.Store(true)

	s.logger.Info(fmt.Sprintf("%s server started", s.name),
		logger.Field{Key: "addr", Value: ln.Addr().String()},
		logger.Field{Key: "capacity", Value: s.registry.Capacity()})

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

// Stop closes the listener, closes every live session to unblock its read,
// and waits for the handlers to finish. Safe to call when not running.
func (s *Server) Stop() {
	if !s.running.Load() {
		s.logger.Info(fmt.Sprintf("%s server not running", s.name))
		return
	}

	s.running.Store(false)
	if s.listener != nil {
		_ = s.listener.Close()
	}

	s.sessions.Range(func(_ uint32, sess *session) bool {
		_ = sess.Close()
		return true
	})

	s.wg.Wait()
	s.logger.Info(fmt.Sprintf("%s server stopped", s.name))
}

// Addr returns the bound listener address, useful when the server was
// started on port 0.
//
// Returns:
//   - The listener address, or nil before Start
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}

	return s.listener.Addr()
}

// Game returns the session this server drives.
func (s *Server) Game() *game.Session {
	return s.game
}

// Registry returns the player registry gating admission.
func (s *Server) Registry() *registry.Registry {
	return s.registry
}

// acceptLoop admits incoming connections until the server stops. Accept
// errors after Stop end the loop silently; any other error is logged and the
// loop keeps serving.
func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for s.running.Load() {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.running.Load() {
				return
			}

			s.logger.Error(fmt.Sprintf("%s server accept error", s.name),
				logger.Field{Key: "error", Value: err})
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.ServeTransport(newLineTransport(conn, s.writeTimeout))
		}()
	}
}

// ServeTransport runs one full client session over t: admission, the init
// message, the read loop, and teardown with a final broadcast. It blocks
// until the peer disconnects or the server shuts down. The gateway feeds
// websocket connections through here so both transports share one handler.
//
// Parameters:
//   - t: The framed connection to serve
func (s *Server) ServeTransport(t Transport) {
	sess := &session{
		id:        s.ids.Next(),
		remote:    t.RemoteAddr(),
		transport: t,
		srv:       s,
	}
	sess.logger = s.logger.With(
		logger.Field{Key: "conn_id", Value: sess.id},
		logger.Field{Key: "remote", Value: sess.remote})

	s.sessions.Store(sess.id, sess)
	sess.handle()
}

// dropSession forgets a finished session.
func (s *Server) dropSession(id uint32) {
	s.sessions.Delete(id)
}

// admit registers the session, sends its init message, and fans the current
// state out to everyone, all under the broadcast lock. Holding the lock
// keeps a state committed by a concurrent move from reaching the new client
// before its init message.
func (s *Server) admit(sess *session) (*registry.Client, error) {
	s.broadcastMu.Lock()
	defer s.broadcastMu.Unlock()

	client, err := s.registry.Admit(sess)
	if err != nil {
		return nil, err
	}

	payload, err := protocol.EncodeInit(client.Slot)
	if err == nil {
		err = sess.Send(payload)
	}
	if err != nil {
		s.registry.Remove(sess.id)
		return nil, fmt.Errorf("init message: %w", err)
	}

	s.fanOutLocked(s.game.Snapshot())

	return client, nil
}

// handleDisconnect removes the client from the registry and pushes one final
// state broadcast to the remaining connections. During shutdown the
// broadcast is skipped; every peer is going away anyway.
func (s *Server) handleDisconnect(sess *session, client *registry.Client) {
	s.registry.Remove(sess.id)
	s.logger.Info("player left",
		logger.Field{Key: "slot", Value: client.Slot},
		logger.Field{Key: "remote", Value: sess.remote})

	if s.running.Load() {
		s.broadcastState()
	}
}

// broadcastState snapshots the game and fans the state out to every live
// connection. Admission and disconnect use this path.
func (s *Server) broadcastState() {
	s.broadcastMu.Lock()
	defer s.broadcastMu.Unlock()
	s.fanOutLocked(s.game.Snapshot())
}

// applyAndBroadcast funnels one slot-checked move into the game. A rejected
// move changes nothing and nothing is sent; an accepted move fans out the
// snapshot taken at commit time before the broadcast lock is released, so
// two rapid moves always reach clients in the order they were applied.
func (s *Server) applyAndBroadcast(client *registry.Client, move *protocol.Move) {
	s.broadcastMu.Lock()
	defer s.broadcastMu.Unlock()

	snap, err := s.game.ApplyMove(client.Slot, move.Z, move.Y, move.X)
	if err != nil {
		s.logger.Debug("move rejected",
			logger.Field{Key: "slot", Value: client.Slot},
			logger.Field{Key: "z", Value: move.Z},
			logger.Field{Key: "y", Value: move.Y},
			logger.Field{Key: "x", Value: move.X},
			logger.Field{Key: "error", Value: err})
		return
	}

	if snap.Rev == 1 {
		s.matchClock.Start()
	}

	s.logger.Info("move applied",
		logger.Field{Key: "slot", Value: client.Slot},
		logger.Field{Key: "z", Value: move.Z},
		logger.Field{Key: "y", Value: move.Y},
		logger.Field{Key: "x", Value: move.X})

	s.fanOutLocked(snap)

	if snap.Decided() {
		s.matchClock.Stop()
		s.logger.Info("game decided",
			logger.Field{Key: "winner", Value: snap.Winner},
			logger.Field{Key: "moves", Value: snap.Rev},
			logger.Field{Key: "duration_ms", Value: s.matchClock.ElapsedMilliseconds()})

		if s.notifier != nil {
			go s.notifier.GameDecided(snap.Winner, int(snap.Rev))
		}
	}
}

// fanOutLocked serializes the snapshot once and writes it to every live
// connection. A failed write drops only that connection; delivery to the
// others continues. Caller holds broadcastMu.
func (s *Server) fanOutLocked(snap game.Snapshot) {
	payload, err := protocol.EncodeState(snap)
	if err != nil {
		s.logger.Error("state encode failed", logger.Field{Key: "error", Value: err})
		return
	}

	for _, client := range s.registry.Live() {
		if !client.Alive() {
			continue
		}

		if err := client.Send(payload); err != nil {
			s.logger.Warn("dropping client after failed write",
				logger.Field{Key: "slot", Value: client.Slot},
				logger.Field{Key: "remote", Value: client.Conn.RemoteAddr()},
				logger.Field{Key: "error", Value: err})
			s.registry.Remove(client.Conn.ID())
			_ = client.Conn.Close()
		}
	}
}

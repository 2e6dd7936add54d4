// Package webgate exposes the game over HTTP: a websocket endpoint that
// funnels browser clients into the same handler as TCP clients, plus health
// and status endpoints for monitoring.
package webgate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cyberinferno/tictactoe3d/cacher"
	"github.com/cyberinferno/tictactoe3d/gameserver"
	"github.com/cyberinferno/tictactoe3d/logger"
)

// DefaultStatusTTL is how long one status report is served before it is
// rebuilt from the live game.
const DefaultStatusTTL = time.Second

// StatusReport is the monitoring view served by the status endpoint.
type StatusReport struct {
	PlayersConnected int   `json:"players_connected"`
	Capacity         int   `json:"capacity"`
	CurrentPlayer    int   `json:"current_player"`
	Winner           *int  `json:"winner"`
	Moves            int   `json:"moves"`
	BoardFull        bool  `json:"board_full"`
	GameOver         bool  `json:"game_over"`
	UptimeSeconds    int64 `json:"uptime_seconds"`
}

// GateConfig wires a Gate to the game server it fronts.
type GateConfig struct {
	// Addr is the "host:port" the HTTP listener binds, e.g. "0.0.0.0:8080".
	Addr string
	// Server is the game server whose handler serves websocket clients and
	// whose game backs the status report.
	Server *gameserver.Server
	// Logger receives the gateway's structured log output.
	Logger logger.Logger
	// StatusTTL overrides how long a status report is cached; 0 means
	// DefaultStatusTTL.
	StatusTTL time.Duration
}

// Gate is the HTTP front of the game server. Websocket clients admitted
// through it play in the same game, against the same registry, as TCP
// clients.
type Gate struct {
	addr      string
	srv       *gameserver.Server
	logger    logger.Logger
	statusTTL time.Duration
	status    cacher.Cacher[StatusReport]
	upgrader  websocket.Upgrader

	httpSrv   *http.Server
	listener  net.Listener
	startedAt time.Time
}

// NewGate builds a Gate for the given game server.
//
// Parameters:
//   - cfg: The gateway wiring; Addr and Server are required
//
// Returns:
//   - A pointer to the new Gate, not yet started
func NewGate(cfg GateConfig) *Gate {
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}
	if cfg.StatusTTL == 0 {
		cfg.StatusTTL = DefaultStatusTTL
	}

	return &Gate{
		addr:      cfg.Addr,
		srv:       cfg.Server,
		logger:    cfg.Logger,
		statusTTL: cfg.StatusTTL,
		status:    cacher.NewMemoryCacher[StatusReport](cfg.StatusTTL, time.Minute),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The game carries no credentials, so any page may connect.
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Start binds the HTTP listener and serves in a goroutine.
//
// Returns:
//   - An error if the bind fails
func (g *Gate) Start() error {
	ln, err := net.Listen("tcp", g.addr)
	if err != nil {
		g.logger.Error("web gateway failed to start", logger.Field{Key: "error", Value: err})
		return fmt.Errorf("web gateway failed to start: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", g.handleHealth)
	mux.HandleFunc("/status", g.handleStatus)
	mux.HandleFunc("/ws", g.handleWS)

	g.listener = ln
	g.startedAt = time.Now()
	g.httpSrv = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := g.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("web gateway serve error", logger.Field{Key: "error", Value: err})
		}
	}()

	g.logger.Info("web gateway started",
		logger.Field{Key: "addr", Value: ln.Addr().String()})

	return nil
}

// Addr returns the bound listener address, useful when the gateway was
// started on port 0.
//
// Returns:
//   - The listener address, or nil before Start
func (g *Gate) Addr() net.Addr {
	if g.listener == nil {
		return nil
	}

	return g.listener.Addr()
}

// Shutdown drains the HTTP server. Hijacked websocket connections are owned
// by the game server and close when it stops.
//
// Parameters:
//   - ctx: Bounds the drain
//
// Returns:
//   - The error from the underlying HTTP shutdown
func (g *Gate) Shutdown(ctx context.Context) error {
	if g.httpSrv == nil {
		return nil
	}

	err := g.httpSrv.Shutdown(ctx)
	g.logger.Info("web gateway stopped")

	return err
}

func (g *Gate) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (g *Gate) handleStatus(w http.ResponseWriter, r *http.Request) {
	report, err := g.status.GetOrFetch(r.Context(), "status", g.statusTTL, g.buildStatus)
	if err != nil {
		g.logger.Error("status report failed", logger.Field{Key: "error", Value: err})
		http.Error(w, "status unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(report)
}

// buildStatus assembles a fresh report from the live game and registry.
func (g *Gate) buildStatus(ctx context.Context) (StatusReport, error) {
	snap := g.srv.Game().Snapshot()

	report := StatusReport{
		PlayersConnected: g.srv.Registry().Count(),
		Capacity:         g.srv.Registry().Capacity(),
		CurrentPlayer:    snap.CurrentPlayer,
		Moves:            int(snap.Rev),
		BoardFull:        snap.Board.Full(),
		UptimeSeconds:    int64(time.Since(g.startedAt).Seconds()),
	}

	if snap.Winner >= 0 {
		winner := snap.Winner
		report.Winner = &winner
	}
	report.GameOver = snap.Winner >= 0 || report.BoardFull

	return report, nil
}

// handleWS upgrades the request and hands the connection to the game server.
// The handler blocks for the life of the websocket session, like any other
// connection handler.
func (g *Gate) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn("websocket upgrade failed",
			logger.Field{Key: "remote", Value: r.RemoteAddr},
			logger.Field{Key: "error", Value: err})
		return
	}

	g.srv.ServeTransport(newWSTransport(conn))
}

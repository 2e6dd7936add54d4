// Package game owns the authoritative state of one match: the board, the
// turn holder, the winner, and the last accepted move. All mutation funnels
// through a single synchronized entry point; callers only ever see immutable
// snapshots.
package game

import (
	"errors"
	"sync"

	"github.com/cyberinferno/tictactoe3d/board"
)

var (
	// ErrGameDecided is returned for any move made after a winner is set.
	ErrGameDecided = errors.New("game already decided")
	// ErrNotYourTurn is returned when the requesting player does not hold the
	// current turn.
	ErrNotYourTurn = errors.New("not your turn")
)

// Move records one accepted placement: who played and where.
type Move struct {
	Player int
	Z      int
	Y      int
	X      int
}

// Snapshot is an immutable copy of the session state taken at a specific
// instant. Rev counts the successful moves applied so far, so two snapshots
// of the same session are comparable by recency.
type Snapshot struct {
	Board         board.Grid
	CurrentPlayer int
	Winner        int // -1 while undecided
	LastMove      *Move
	Rev           uint64
}

// Decided reports whether the snapshot carries a winner.
func (s Snapshot) Decided() bool {
	return s.Winner >= 0
}

// Session is the shared game state. One Session is created at server start
// and lives for the process lifetime; every connection handler mutates it
// only through ApplyMove. Safe for concurrent use.
type Session struct {
	mu       sync.Mutex
	board    *board.Board
	turn     int
	winner   int
	lastMove *Move
	rev      uint64
}

// NewSession returns a fresh session with an empty board, slot 0 to move,
// and no winner.
//
// Returns:
//   - A pointer to the new Session
func NewSession() *Session {
	return &Session{
		board:  board.NewBoard(),
		winner: -1,
	}
}

// ApplyMove validates and applies one placement for the given player. The
// checks run in a fixed order: a decided game rejects everything, then the
// turn holder is enforced, then the coordinate must be on the board, then
// the target cell must be empty. On success the cell is marked, the move is
// recorded, and either the winner is frozen (turn left untouched) or the
// turn flips to the other slot. The whole check-then-act sequence holds the
// session lock, so no two calls interleave.
//
// Parameters:
//   - player: The slot attempting the move
//   - z, y, x: The target cell coordinate
//
// Returns:
//   - The snapshot taken at commit time on success
//   - ErrGameDecided, ErrNotYourTurn, board.ErrOutOfBounds, or
//     board.ErrCellOccupied on rejection; the state is unchanged then
func (s *Session) ApplyMove(player, z, y, x int) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.winner >= 0 {
		return Snapshot{}, ErrGameDecided
	}

	if player != s.turn {
		return Snapshot{}, ErrNotYourTurn
	}

	if err := s.board.Place(z, y, x, player); err != nil {
		return Snapshot{}, err
	}

	move := Move{Player: player, Z: z, Y: y, X: x}
	s.lastMove = &move
	s.rev++

	if slot, won := s.board.Winner(); won {
		s.winner = slot
	} else {
		s.turn = 1 - s.turn
	}

	return s.snapshotLocked(), nil
}

// Snapshot returns the current state under the session lock.
//
// Returns:
//   - An immutable Snapshot of the session
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// snapshotLocked builds a Snapshot; caller must hold s.mu.
func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		Board:         s.board.Grid(),
		CurrentPlayer: s.turn,
		Winner:        s.winner,
		Rev:           s.rev,
	}

	if s.lastMove != nil {
		move := *s.lastMove
		snap.LastMove = &move
	}

	return snap
}

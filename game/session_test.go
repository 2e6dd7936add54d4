package game

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyberinferno/tictactoe3d/board"
)

func TestNewSession(t *testing.T) {
	s := NewSession()
	require.NotNil(t, s)

	snap := s.Snapshot()
	assert.Equal(t, 0, snap.CurrentPlayer, "slot 0 moves first")
	assert.Equal(t, -1, snap.Winner)
	assert.False(t, snap.Decided())
	assert.Nil(t, snap.LastMove)
	assert.Equal(t, uint64(0), snap.Rev)
	assert.Equal(t, board.Grid{}, snap.Board)
}

func TestSession_ApplyMove_rejections(t *testing.T) {
	t.Run("rejects out of range coordinates without mutation", func(t *testing.T) {
		s := NewSession()
		before := s.Snapshot()

		for _, c := range [][3]int{
			{-1, 0, 0}, {4, 0, 0},
			{0, -1, 0}, {0, 4, 0},
			{0, 0, -1}, {0, 0, 4},
		} {
			_, err := s.ApplyMove(0, c[0], c[1], c[2])
			assert.ErrorIs(t, err, board.ErrOutOfBounds)
		}

		assert.Equal(t, before, s.Snapshot())
	})

	t.Run("rejects a move out of turn without mutation", func(t *testing.T) {
		s := NewSession()
		_, err := s.ApplyMove(0, 0, 0, 0)
		require.NoError(t, err)

		before := s.Snapshot()
		require.Equal(t, 1, before.CurrentPlayer)

		_, err = s.ApplyMove(0, 1, 1, 1)
		assert.ErrorIs(t, err, ErrNotYourTurn)
		assert.Equal(t, before, s.Snapshot(), "board unchanged and turn still with slot 1")
	})

	t.Run("rejects an occupied cell and keeps the original mark", func(t *testing.T) {
		s := NewSession()
		_, err := s.ApplyMove(0, 0, 0, 0)
		require.NoError(t, err)

		_, err = s.ApplyMove(1, 0, 0, 0)
		assert.ErrorIs(t, err, board.ErrCellOccupied)

		snap := s.Snapshot()
		assert.Equal(t, board.PlayerA, snap.Board[0][0][0])
		assert.Equal(t, 1, snap.CurrentPlayer, "failed move does not consume the turn")
	})

	t.Run("rejects everything once the game is decided", func(t *testing.T) {
		s := playScenarioA(t)
		before := s.Snapshot()
		require.True(t, before.Decided())

		_, err := s.ApplyMove(0, 3, 3, 3)
		assert.ErrorIs(t, err, ErrGameDecided)
		_, err = s.ApplyMove(1, 3, 3, 3)
		assert.ErrorIs(t, err, ErrGameDecided)

		assert.Equal(t, before, s.Snapshot())
	})
}

func TestSession_ApplyMove_accepted(t *testing.T) {
	t.Run("flips the turn and records the move", func(t *testing.T) {
		s := NewSession()
		snap, err := s.ApplyMove(0, 2, 1, 3)
		require.NoError(t, err)

		assert.Equal(t, 1, snap.CurrentPlayer)
		assert.Equal(t, -1, snap.Winner)
		assert.Equal(t, uint64(1), snap.Rev)
		require.NotNil(t, snap.LastMove)
		assert.Equal(t, Move{Player: 0, Z: 2, Y: 1, X: 3}, *snap.LastMove)
		assert.Equal(t, board.PlayerA, snap.Board[2][1][3])
	})

	t.Run("returns the state committed by this call", func(t *testing.T) {
		s := NewSession()
		first, err := s.ApplyMove(0, 0, 0, 0)
		require.NoError(t, err)
		second, err := s.ApplyMove(1, 3, 3, 3)
		require.NoError(t, err)

		assert.Equal(t, uint64(1), first.Rev)
		assert.Equal(t, uint64(2), second.Rev)
		assert.Equal(t, board.Empty, first.Board[3][3][3], "earlier snapshot never sees the later move")
	})

	t.Run("freezes the winner and stops flipping the turn", func(t *testing.T) {
		s := playScenarioA(t)
		snap := s.Snapshot()

		assert.Equal(t, 0, snap.Winner)
		assert.Equal(t, 0, snap.CurrentPlayer, "turn stays where it was at the winning move")
	})
}

// playScenarioA drives slot 0 to a win along the row (0,0,x) with slot 1
// answering on the row above.
func playScenarioA(t *testing.T) *Session {
	t.Helper()

	s := NewSession()
	for x := 0; x < board.Size; x++ {
		_, err := s.ApplyMove(0, 0, 0, x)
		require.NoError(t, err)

		if x < board.Size-1 {
			_, err = s.ApplyMove(1, 1, 0, x)
			require.NoError(t, err)
		}
	}

	return s
}

func TestSession_row_win_scenario(t *testing.T) {
	s := playScenarioA(t)
	snap := s.Snapshot()

	require.True(t, snap.Decided())
	assert.Equal(t, 0, snap.Winner)
	assert.Equal(t, uint64(7), snap.Rev)
	require.NotNil(t, snap.LastMove)
	assert.Equal(t, Move{Player: 0, Z: 0, Y: 0, X: 3}, *snap.LastMove)
}

func TestSession_Snapshot_isolation(t *testing.T) {
	s := NewSession()
	_, err := s.ApplyMove(0, 0, 0, 0)
	require.NoError(t, err)

	snap := s.Snapshot()
	snap.Board[0][0][0] = board.PlayerB
	*snap.LastMove = Move{Player: 1, Z: 3, Y: 3, X: 3}

	fresh := s.Snapshot()
	assert.Equal(t, board.PlayerA, fresh.Board[0][0][0])
	assert.Equal(t, Move{Player: 0, Z: 0, Y: 0, X: 0}, *fresh.LastMove)
}

func TestSession_ApplyMove_atomicity(t *testing.T) {
	s := NewSession()

	const n = 32
	var wg sync.WaitGroup
	errs := make([]error, n)

	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(idx int) {
			defer wg.Done()
			_, errs[idx] = s.ApplyMove(0, idx/16, (idx/4)%4, idx%4)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrNotYourTurn)
		}
	}

	assert.Equal(t, 1, succeeded, "only one slot 0 move can win the first turn")
	assert.Equal(t, uint64(1), s.Snapshot().Rev)
}

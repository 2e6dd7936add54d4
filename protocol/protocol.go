// Package protocol defines the messages exchanged between the server and its
// clients: a closed set of JSON variants discriminated by a "type" field, one
// message per line on the wire.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cyberinferno/tictactoe3d/board"
	"github.com/cyberinferno/tictactoe3d/game"
)

// Message type discriminants.
const (
	TypeInit  = "init"
	TypeError = "error"
	TypeState = "state"
	TypeMove  = "move"
)

// MaxLineBytes bounds one encoded message line. A peer whose line exceeds it
// is treated as broken rather than malformed, and disconnected.
const MaxLineBytes = 64 * 1024

// ErrUnknownType is returned by Decode for a well-formed message whose type
// is not part of the protocol. Receivers ignore such messages.
var ErrUnknownType = errors.New("unknown message type")

// Init tells a newly admitted client which player slot it holds. Sent once,
// immediately after admission.
type Init struct {
	Type     string `json:"type"`
	PlayerID int    `json:"player_id"`
}

// Error carries a refusal such as "server full". The server closes the
// connection after sending it.
type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// LastMove mirrors the most recent accepted placement inside a State.
type LastMove struct {
	Player int `json:"player"`
	Z      int `json:"z"`
	Y      int `json:"y"`
	X      int `json:"x"`
}

// State is the full authoritative game state, pushed to every client after
// each change. Board cells use -1 for the first player's mark, 1 for the
// second player's, 0 for empty; Winner is null while the game is undecided.
type State struct {
	Type          string     `json:"type"`
	Board         board.Grid `json:"board"`
	CurrentPlayer int        `json:"current_player"`
	Winner        *int       `json:"winner"`
	LastMove      *LastMove  `json:"last_move"`
}

// WinnerSlot returns the winning slot carried by the state, or -1 while the
// game is undecided.
func (s *State) WinnerSlot() int {
	if s.Winner == nil {
		return -1
	}

	return *s.Winner
}

// Move is a client's placement request. Player must match the slot the
// server assigned to the sending connection.
type Move struct {
	Type   string `json:"type"`
	Player int    `json:"player"`
	Z      int    `json:"z"`
	Y      int    `json:"y"`
	X      int    `json:"x"`
}

// EncodeInit builds the init message for an assigned slot.
//
// Parameters:
//   - slot: The player slot to announce
//
// Returns:
//   - The encoded message without a trailing newline, or a marshal error
func EncodeInit(slot int) ([]byte, error) {
	return json.Marshal(Init{Type: TypeInit, PlayerID: slot})
}

// EncodeError builds an error message with the given text.
//
// Parameters:
//   - message: The refusal text sent to the client
//
// Returns:
//   - The encoded message without a trailing newline, or a marshal error
func EncodeError(message string) ([]byte, error) {
	return json.Marshal(Error{Type: TypeError, Message: message})
}

// EncodeState serializes a game snapshot into a state message. The winner
// field is null while the snapshot is undecided and last_move is null before
// the first accepted move.
//
// Parameters:
//   - snap: The snapshot to serialize
//
// Returns:
//   - The encoded message without a trailing newline, or a marshal error
func EncodeState(snap game.Snapshot) ([]byte, error) {
	msg := State{
		Type:          TypeState,
		Board:         snap.Board,
		CurrentPlayer: snap.CurrentPlayer,
	}

	if snap.Winner >= 0 {
		winner := snap.Winner
		msg.Winner = &winner
	}

	if snap.LastMove != nil {
		msg.LastMove = &LastMove{
			Player: snap.LastMove.Player,
			Z:      snap.LastMove.Z,
			Y:      snap.LastMove.Y,
			X:      snap.LastMove.X,
		}
	}

	return json.Marshal(msg)
}

// EncodeMove builds a move message for the given player and coordinate.
//
// Parameters:
//   - player: The slot making the move
//   - z, y, x: The target cell coordinate
//
// Returns:
//   - The encoded message without a trailing newline, or a marshal error
func EncodeMove(player, z, y, x int) ([]byte, error) {
	return json.Marshal(Move{Type: TypeMove, Player: player, Z: z, Y: y, X: x})
}

// envelope reads only the discriminant of an incoming line.
type envelope struct {
	Type string `json:"type"`
}

// Decode parses one message line into its typed variant: *Init, *Error,
// *State, or *Move. A syntactically valid message with an unlisted type
// returns ErrUnknownType; anything unparseable returns the underlying
// unmarshal error.
//
// Parameters:
//   - line: One message line without the trailing newline
//
// Returns:
//   - The decoded variant, or an error when the line cannot be decoded
func Decode(line []byte) (any, error) {
	var env envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return nil, fmt.Errorf("decode message envelope: %w", err)
	}

	switch env.Type {
	case TypeInit:
		var msg Init
		if err := json.Unmarshal(line, &msg); err != nil {
			return nil, fmt.Errorf("decode init message: %w", err)
		}
		return &msg, nil
	case TypeError:
		var msg Error
		if err := json.Unmarshal(line, &msg); err != nil {
			return nil, fmt.Errorf("decode error message: %w", err)
		}
		return &msg, nil
	case TypeState:
		var msg State
		if err := json.Unmarshal(line, &msg); err != nil {
			return nil, fmt.Errorf("decode state message: %w", err)
		}
		return &msg, nil
	case TypeMove:
		var msg Move
		if err := json.Unmarshal(line, &msg); err != nil {
			return nil, fmt.Errorf("decode move message: %w", err)
		}
		return &msg, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
}

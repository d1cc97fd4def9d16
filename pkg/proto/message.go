package proto

import "ctchen222/tictactoe-minimax/internal/game"

// Client message types.
const (
	TypeMove = "move"
	TypeHint = "hint"
)

// Server message types.
const (
	TypeUpdate = "update"
	TypeError  = "error"
)

// ClientToServerMessage represents a message from the client to the server.
type ClientToServerMessage struct {
	Type     string `json:"type" validate:"required,oneof=move hint"`
	Position []int  `json:"position,omitempty" validate:"omitempty,len=2,dive,min=0,max=2"`
}

// Move returns the position of a move message.
func (m *ClientToServerMessage) Move() (game.Move, bool) {
	if m.Type != TypeMove || len(m.Position) != 2 {
		return game.Move{}, false
	}
	return game.Move{Row: m.Position[0], Col: m.Position[1]}, true
}

// ServerToClientMessage represents a message from the server to the client.
type ServerToClientMessage struct {
	Type        string              `json:"type" validate:"required"`
	Reason      string              `json:"reason,omitempty"`
	GameID      string              `json:"game_id,omitempty"`
	Board       [][]game.PlayerMark `json:"board,omitempty"`
	Next        game.PlayerMark     `json:"next,omitempty"`
	Winner      game.PlayerMark     `json:"winner,omitempty"`
	Outcome     game.Outcome        `json:"outcome,omitempty"`
	LastBotMove *game.Move          `json:"last_bot_move,omitempty"`
	Hint        *HintMessage        `json:"hint,omitempty"`
}

// HintMessage carries the engine's suggestion for the current position.
type HintMessage struct {
	Move  game.Move `json:"move"`
	Value int       `json:"value"`
	Nodes int64     `json:"nodes"`
}

// ErrorMessage builds an error reply.
func ErrorMessage(reason string) *ServerToClientMessage {
	return &ServerToClientMessage{Type: TypeError, Reason: reason}
}

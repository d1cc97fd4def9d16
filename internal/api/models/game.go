package models

import (
	"time"

	"ctchen222/tictactoe-minimax/internal/game"
)

// Game is a human-versus-bot match as stored in Redis.
type Game struct {
	ID         string
	PlayerID   string
	HumanMark  game.PlayerMark
	Difficulty string
	Board      game.Board
	CreatedAt  time.Time
}

// BotMark returns the mark played by the bot.
func (g *Game) BotMark() game.PlayerMark {
	return game.Opponent(g.HumanMark)
}

// IsHumanTurn reports whether the game is waiting for the human player.
func (g *Game) IsHumanTurn() bool {
	return !g.Board.IsTerminal() && g.Board.CurrentPlayer() == g.HumanMark
}

// MoveCount returns the number of marks on the board.
func (g *Game) MoveCount() int {
	x, o := g.Board.MarkCount()
	return x + o
}

// View converts the game to its JSON representation.
func (g *Game) View() GameView {
	view := GameView{
		ID:         g.ID,
		Board:      g.Board.Rows(),
		HumanMark:  g.HumanMark,
		Difficulty: g.Difficulty,
		Winner:     g.Board.Winner(),
		Outcome:    g.Board.Outcome(),
		CreatedAt:  g.CreatedAt,
	}
	if !g.Board.IsTerminal() {
		view.Next = g.Board.CurrentPlayer()
	}
	return view
}

// GameView is the API representation of a game.
type GameView struct {
	ID         string              `json:"id"`
	Board      [][]game.PlayerMark `json:"board"`
	HumanMark  game.PlayerMark     `json:"human_mark"`
	Difficulty string              `json:"difficulty"`
	Next       game.PlayerMark     `json:"next,omitempty"`
	Winner     game.PlayerMark     `json:"winner,omitempty"`
	Outcome    game.Outcome        `json:"outcome"`
	CreatedAt  time.Time           `json:"created_at"`
}

// CreateGameRequest defines the structure for starting a game against the bot.
type CreateGameRequest struct {
	Mark       string `json:"mark" binding:"omitempty,oneof=X O"`
	Difficulty string `json:"difficulty" binding:"omitempty,oneof=easy medium hard"`
}

// MoveRequest defines the structure for a human move.
type MoveRequest struct {
	Row *int `json:"row" binding:"required,min=0,max=2"`
	Col *int `json:"col" binding:"required,min=0,max=2"`
}

// HintResponse is the engine's suggestion for the current position.
type HintResponse struct {
	Move  game.Move `json:"move"`
	Value int       `json:"value"`
	Nodes int64     `json:"nodes"`
}

// GameResult is a finished game recorded in SQLite.
type GameResult struct {
	GameID     string       `json:"game_id" db:"game_id"`
	PlayerID   string       `json:"player_id" db:"player_id"`
	HumanMark  string       `json:"human_mark" db:"human_mark"`
	Difficulty string       `json:"difficulty" db:"difficulty"`
	Outcome    game.Outcome `json:"outcome" db:"outcome"`
	Moves      int          `json:"moves" db:"moves"`
	FinishedAt time.Time    `json:"finished_at" db:"finished_at"`
}

// PlayerStats aggregates a player's finished games.
type PlayerStats struct {
	PlayerID string `json:"player_id" db:"player_id"`
	Played   int    `json:"played" db:"played"`
	Wins     int    `json:"wins" db:"wins"`
	Losses   int    `json:"losses" db:"losses"`
	Draws    int    `json:"draws" db:"draws"`
}

package bot

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"ctchen222/tictactoe-minimax/internal/game"
)

// Difficulty selects how the bot chooses its moves.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// ErrUnknownDifficulty is returned for a difficulty outside easy, medium and hard.
var ErrUnknownDifficulty = errors.New("unknown difficulty")

// ParseDifficulty validates a difficulty name. The empty string selects Hard.
func ParseDifficulty(s string) (Difficulty, error) {
	switch d := Difficulty(s); d {
	case Easy, Medium, Hard:
		return d, nil
	case "":
		return Hard, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDifficulty, s)
	}
}

// CalculateNextMove determines the bot's next move based on the specified difficulty.
// The bot always plays the mark whose turn it is on board.
func CalculateNextMove(board game.Board, difficulty Difficulty) (game.Move, error) {
	if board.IsTerminal() {
		return game.Move{}, ErrNoMoveAvailable
	}

	switch difficulty {
	case Easy:
		return easyMove(board), nil
	case Medium:
		return mediumMove(board), nil
	case Hard:
		return BestMove(board)
	default:
		return game.Move{}, fmt.Errorf("%w: %q", ErrUnknownDifficulty, difficulty)
	}
}

// easyMove makes a completely random move.
func easyMove(board game.Board) game.Move {
	moves := board.LegalMoves()
	return moves[rand.IntN(len(moves))]
}

// mediumMove will win if it can, block if it must, otherwise move randomly.
func mediumMove(board game.Board) game.Move {
	botMark := board.CurrentPlayer()

	// 1. Win: Check if the bot can win in the next move
	if m, ok := findWinningMove(board, botMark); ok {
		return m
	}

	// 2. Block: Check if the opponent is about to win and block them
	if m, ok := findWinningMove(board, game.Opponent(botMark)); ok {
		return m
	}

	// 3. Random: Otherwise, make a random move
	return easyMove(board)
}

// findWinningMove checks if mark has two in a line with the third cell empty.
// Lines are checked in the board's scan order.
func findWinningMove(board game.Board, mark game.PlayerMark) (game.Move, bool) {
	for _, line := range game.Lines {
		var empty []game.Move
		owned := 0
		for _, cell := range line {
			switch board.At(cell) {
			case mark:
				owned++
			case game.None:
				empty = append(empty, cell)
			}
		}
		if owned == 2 && len(empty) == 1 {
			return empty[0], true
		}
	}
	return game.Move{}, false
}

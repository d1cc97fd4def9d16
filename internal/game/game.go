package game

import (
	"errors"
	"fmt"
	"strings"
)

// PlayerMark represents the mark of a player (X, O) or an empty cell.
type PlayerMark string

// Outcome is the state of a game derived from the board contents.
type Outcome string

const (
	// Player marks
	None    PlayerMark = ""
	PlayerX PlayerMark = "X"
	PlayerO PlayerMark = "O"

	// Game outcomes
	XWins      Outcome = "x_wins"
	OWins      Outcome = "o_wins"
	Draw       Outcome = "draw"
	InProgress Outcome = "in_progress"

	// Board boundaries
	BorderMin = 0
	BorderMax = 2
)

// ErrInvalidMove is returned when a move targets an occupied or out-of-range cell.
var ErrInvalidMove = errors.New("invalid move")

// Lines lists the winning lines in scan order: rows top to bottom, columns
// left to right, then the main and the anti diagonal.
var Lines = [8][3]Move{
	{{0, 0}, {0, 1}, {0, 2}},
	{{1, 0}, {1, 1}, {1, 2}},
	{{2, 0}, {2, 1}, {2, 2}},
	{{0, 0}, {1, 0}, {2, 0}},
	{{0, 1}, {1, 1}, {2, 1}},
	{{0, 2}, {1, 2}, {2, 2}},
	{{0, 0}, {1, 1}, {2, 2}},
	{{0, 2}, {1, 1}, {2, 0}},
}

// Move is a (row, column) coordinate on the board.
type Move struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// InBounds reports whether both coordinates are within the board.
func (m Move) InBounds() bool {
	return m.Row >= BorderMin && m.Row <= BorderMax && m.Col >= BorderMin && m.Col <= BorderMax
}

func (m Move) String() string {
	return fmt.Sprintf("(%d, %d)", m.Row, m.Col)
}

// Board is a 3x3 grid. It is a value type: transitions return a new board
// and never modify the receiver.
type Board [3][3]PlayerMark

// InitialBoard returns the empty board.
func InitialBoard() Board {
	return Board{}
}

// Opponent returns the other player's mark.
func Opponent(mark PlayerMark) PlayerMark {
	if mark == PlayerX {
		return PlayerO
	}
	return PlayerX
}

// At returns the mark stored in the cell targeted by m.
func (b Board) At(m Move) PlayerMark {
	return b[m.Row][m.Col]
}

// MarkCount returns the number of X and O marks on the board.
func (b Board) MarkCount() (x, o int) {
	for r := range [3]int{} {
		for c := range [3]int{} {
			switch b[r][c] {
			case PlayerX:
				x++
			case PlayerO:
				o++
			}
		}
	}
	return x, o
}

// CurrentPlayer derives whose turn it is from the parity of placed marks.
// X moves first, so equal counts mean X is next.
func (b Board) CurrentPlayer() PlayerMark {
	x, o := b.MarkCount()
	if x == o {
		return PlayerX
	}
	return PlayerO
}

// LegalMoves returns every empty cell in row-major order. A terminal board has no legal moves.
func (b Board) LegalMoves() []Move {
	if b.Winner() != None {
		return nil
	}
	moves := make([]Move, 0, 9)
	for r := range [3]int{} {
		for c := range [3]int{} {
			if b[r][c] == None {
				moves = append(moves, Move{Row: r, Col: c})
			}
		}
	}
	return moves
}

// Apply returns a copy of the board with the current player's mark placed at m.
func (b Board) Apply(m Move) (Board, error) {
	if !m.InBounds() {
		return b, fmt.Errorf("%w: %s is off the board", ErrInvalidMove, m)
	}
	if b[m.Row][m.Col] != None {
		return b, fmt.Errorf("%w: cell %s already occupied", ErrInvalidMove, m)
	}

	next := b
	next[m.Row][m.Col] = b.CurrentPlayer()
	return next, nil
}

// Winner returns the mark of the first complete line, or None.
func (b Board) Winner() PlayerMark {
	for _, line := range Lines {
		first := b.At(line[0])
		if first != None && first == b.At(line[1]) && first == b.At(line[2]) {
			return first
		}
	}
	return None
}

// IsFull reports whether no empty cell remains.
func (b Board) IsFull() bool {
	for r := range [3]int{} {
		for c := range [3]int{} {
			if b[r][c] == None {
				return false
			}
		}
	}
	return true
}

// IsTerminal reports whether the game is over.
func (b Board) IsTerminal() bool {
	return b.Winner() != None || b.IsFull()
}

// Utility scores a board from X's point of view: 1 if X won, -1 if O won, 0 otherwise.
func (b Board) Utility() int {
	switch b.Winner() {
	case PlayerX:
		return 1
	case PlayerO:
		return -1
	default:
		return 0
	}
}

// Outcome classifies the board.
func (b Board) Outcome() Outcome {
	switch b.Winner() {
	case PlayerX:
		return XWins
	case PlayerO:
		return OWins
	}
	if b.IsFull() {
		return Draw
	}
	return InProgress
}

// String renders the board as three rows separated by divider lines.
func (b Board) String() string {
	var sb strings.Builder
	for r := range [3]int{} {
		if r > 0 {
			sb.WriteString("-+-+-\n")
		}
		for c := range [3]int{} {
			if c > 0 {
				sb.WriteByte('|')
			}
			if b[r][c] == None {
				sb.WriteByte(' ')
			} else {
				sb.WriteString(string(b[r][c]))
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Rows converts the board to a slice of slices, the shape used on the wire.
func (b Board) Rows() [][]PlayerMark {
	rows := make([][]PlayerMark, 3)
	for i := range [3]int{} {
		rows[i] = make([]PlayerMark, 3)
		copy(rows[i], b[i][:])
	}
	return rows
}

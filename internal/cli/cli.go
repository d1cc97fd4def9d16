package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"ctchen222/tictactoe-minimax/internal/bot"
	"ctchen222/tictactoe-minimax/internal/game"
)

var (
	ErrBadInput    = errors.New("expected row,col with values 0-2")
	ErrInputClosed = errors.New("input closed before the game ended")
)

// ParseMove parses "row,col". Whitespace around either number is ignored.
func ParseMove(s string) (game.Move, error) {
	rowStr, colStr, ok := strings.Cut(s, ",")
	if !ok {
		return game.Move{}, fmt.Errorf("%w: %q", ErrBadInput, s)
	}
	row, err := strconv.Atoi(strings.TrimSpace(rowStr))
	if err != nil {
		return game.Move{}, fmt.Errorf("%w: %q", ErrBadInput, s)
	}
	col, err := strconv.Atoi(strings.TrimSpace(colStr))
	if err != nil {
		return game.Move{}, fmt.Errorf("%w: %q", ErrBadInput, s)
	}

	m := game.Move{Row: row, Col: col}
	if !m.InBounds() {
		return game.Move{}, fmt.Errorf("%w: %q", ErrBadInput, s)
	}
	return m, nil
}

// Game is an interactive human-versus-engine game on a text stream.
type Game struct {
	HumanMark  game.PlayerMark
	Difficulty bot.Difficulty

	in     *bufio.Scanner
	out    io.Writer
	engine func(game.Board, bot.Difficulty) (game.Move, error)
}

// NewGame creates a game reading moves from in and rendering to out.
func NewGame(in io.Reader, out io.Writer, humanMark game.PlayerMark, difficulty bot.Difficulty) *Game {
	return &Game{
		HumanMark:  humanMark,
		Difficulty: difficulty,
		in:         bufio.NewScanner(in),
		out:        out,
		engine:     bot.CalculateNextMove,
	}
}

type inputLine struct {
	text string
	err  error
}

// readLines scans input in its own goroutine so a pending read never holds up
// cancellation. The last value carries the scan error or ErrInputClosed.
func (g *Game) readLines(ctx context.Context) <-chan inputLine {
	lines := make(chan inputLine)
	go func() {
		defer close(lines)
		for {
			var line inputLine
			if g.in.Scan() {
				line.text = g.in.Text()
			} else if err := g.in.Err(); err != nil {
				line.err = fmt.Errorf("failed to read move: %w", err)
			} else {
				line.err = ErrInputClosed
			}

			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
			if line.err != nil {
				return
			}
		}
	}()
	return lines
}

// Run plays one game to the end and returns its outcome. Cancelling ctx
// aborts the game, including while it waits for input.
func (g *Game) Run(ctx context.Context) (game.Outcome, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	lines := g.readLines(ctx)

	board := game.InitialBoard()
	g.render(board)

	for !board.IsTerminal() {
		if err := ctx.Err(); err != nil {
			return game.InProgress, err
		}

		var (
			next game.Board
			err  error
		)
		if board.CurrentPlayer() == g.HumanMark {
			fmt.Fprintln(g.out, "Your turn!")
			next, err = g.humanMove(ctx, board, lines)
		} else {
			fmt.Fprintln(g.out, "AI is making its move...")
			next, err = g.engineMove(board)
		}
		if err != nil {
			return game.InProgress, err
		}

		board = next
		g.render(board)
	}

	switch board.Winner() {
	case g.HumanMark:
		fmt.Fprintln(g.out, "You win!")
	case game.None:
		fmt.Fprintln(g.out, "It's a tie!")
	default:
		fmt.Fprintln(g.out, "AI wins!")
	}
	return board.Outcome(), nil
}

func (g *Game) humanMove(ctx context.Context, board game.Board, lines <-chan inputLine) (game.Board, error) {
	for {
		fmt.Fprint(g.out, "Enter your move (row, column): ")

		var line inputLine
		select {
		case <-ctx.Done():
			fmt.Fprintln(g.out)
			return board, ctx.Err()
		case l, ok := <-lines:
			if !ok {
				return board, ErrInputClosed
			}
			line = l
		}
		if line.err != nil {
			return board, line.err
		}

		move, err := ParseMove(line.text)
		if err == nil {
			var next game.Board
			if next, err = board.Apply(move); err == nil {
				return next, nil
			}
		}
		fmt.Fprintln(g.out, "Invalid move, try again.")
	}
}

func (g *Game) engineMove(board game.Board) (game.Board, error) {
	move, err := g.engine(board, g.Difficulty)
	if err != nil {
		return board, fmt.Errorf("engine failed to move: %w", err)
	}
	return board.Apply(move)
}

func (g *Game) render(board game.Board) {
	fmt.Fprint(g.out, board.String())
	fmt.Fprintln(g.out)
}

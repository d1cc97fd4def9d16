package bot

import (
	"context"
	"errors"
	"testing"

	"ctchen222/tictactoe-minimax/internal/game"
)

const (
	X = game.PlayerX
	O = game.PlayerO
	E = game.None
)

func TestBestMove(t *testing.T) {
	tests := []struct {
		name  string
		board game.Board
		want  game.Move
		value int
	}{
		{
			name: "X completes the top row",
			board: game.Board{
				{X, X, E},
				{O, O, E},
				{E, E, E},
			},
			want:  game.Move{Row: 0, Col: 2},
			value: 1,
		},
		{
			name: "O completes the middle row",
			board: game.Board{
				{X, X, E},
				{O, O, E},
				{X, E, E},
			},
			want:  game.Move{Row: 1, Col: 2},
			value: -1,
		},
		{
			name: "O blocks the top row",
			board: game.Board{
				{X, X, E},
				{E, O, E},
				{E, E, E},
			},
			want:  game.Move{Row: 0, Col: 2},
			value: 0,
		},
		{
			name: "Single cell left",
			board: game.Board{
				{X, O, X},
				{X, O, O},
				{O, X, E},
			},
			want:  game.Move{Row: 2, Col: 2},
			value: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BestMove(tt.board)
			if err != nil {
				t.Fatalf("BestMove() failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("BestMove() = %v, want %v", got, tt.want)
			}

			res, err := Search(tt.board)
			if err != nil {
				t.Fatalf("Search() failed: %v", err)
			}
			if res.Value != tt.value {
				t.Errorf("Search().Value = %d, want %d", res.Value, tt.value)
			}
			if v := Value(tt.board); v != tt.value {
				t.Errorf("Value() = %d, want %d", v, tt.value)
			}
		})
	}
}

func TestBestMove_WinningMoveProducesWinner(t *testing.T) {
	board := game.Board{
		{X, X, E},
		{O, O, E},
		{E, E, E},
	}
	move, err := BestMove(board)
	if err != nil {
		t.Fatalf("BestMove() failed: %v", err)
	}
	next, err := board.Apply(move)
	if err != nil {
		t.Fatalf("Apply(%v) failed: %v", move, err)
	}
	if next.Winner() != X {
		t.Errorf("expected X to win after %v, board:\n%s", move, next)
	}
}

func TestBestMove_TerminalBoard(t *testing.T) {
	boards := map[string]game.Board{
		"full board": {
			{X, O, X},
			{O, X, O},
			{O, X, O},
		},
		"won board": {
			{X, X, X},
			{O, O, E},
			{E, E, E},
		},
	}
	for name, b := range boards {
		t.Run(name, func(t *testing.T) {
			if _, err := BestMove(b); !errors.Is(err, ErrNoMoveAvailable) {
				t.Errorf("expected ErrNoMoveAvailable, got %v", err)
			}
			if _, err := SearchParallel(context.Background(), b); !errors.Is(err, ErrNoMoveAvailable) {
				t.Errorf("SearchParallel: expected ErrNoMoveAvailable, got %v", err)
			}
		})
	}
}

func TestPerfectPlayIsADraw(t *testing.T) {
	board := game.InitialBoard()
	if v := Value(board); v != 0 {
		t.Fatalf("Value(empty) = %d, want 0", v)
	}

	for !board.IsTerminal() {
		move, err := BestMove(board)
		if err != nil {
			t.Fatalf("BestMove() failed: %v", err)
		}
		board, err = board.Apply(move)
		if err != nil {
			t.Fatalf("Apply(%v) failed: %v", move, err)
		}
	}

	if board.Utility() != 0 {
		t.Errorf("expected a draw, got utility %d on\n%s", board.Utility(), board)
	}
}

func TestSearch_VisitsWholeTree(t *testing.T) {
	res, err := Search(game.InitialBoard())
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	// The full game tree has 549946 nodes including the empty root.
	if res.Nodes != 549945 {
		t.Errorf("Search().Nodes = %d, want 549945", res.Nodes)
	}
}

// TestEngineNeverLoses plays the engine against every possible opponent line.
func TestEngineNeverLoses(t *testing.T) {
	var play func(t *testing.T, b game.Board, engine game.PlayerMark)
	play = func(t *testing.T, b game.Board, engine game.PlayerMark) {
		if b.IsTerminal() {
			if w := b.Winner(); w == game.Opponent(engine) {
				t.Fatalf("engine %s lost:\n%s", engine, b)
			}
			return
		}
		if b.CurrentPlayer() == engine {
			move, err := BestMove(b)
			if err != nil {
				t.Fatalf("BestMove() failed: %v", err)
			}
			next, _ := b.Apply(move)
			play(t, next, engine)
			return
		}
		for _, m := range b.LegalMoves() {
			next, _ := b.Apply(m)
			play(t, next, engine)
		}
	}

	t.Run("engine plays O", func(t *testing.T) {
		play(t, game.InitialBoard(), O)
	})
	t.Run("engine plays X", func(t *testing.T) {
		play(t, game.InitialBoard(), X)
	})
}

func TestSearchParallelMatchesSearch(t *testing.T) {
	ctx := context.Background()
	seen := make(map[game.Board]bool)
	var walk func(b game.Board)
	walk = func(b game.Board) {
		if seen[b] || b.IsTerminal() {
			return
		}
		seen[b] = true

		if x, o := b.MarkCount(); x+o >= 3 {
			want, err := Search(b)
			if err != nil {
				t.Fatalf("Search() failed: %v", err)
			}
			got, err := SearchParallel(ctx, b)
			if err != nil {
				t.Fatalf("SearchParallel() failed: %v", err)
			}
			if got != want {
				t.Fatalf("SearchParallel() = %+v, Search() = %+v on\n%s", got, want, b)
			}
		}

		for _, m := range b.LegalMoves() {
			next, _ := b.Apply(m)
			walk(next)
		}
	}
	walk(game.InitialBoard())
}

func TestSearchParallel_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := SearchParallel(ctx, game.InitialBoard()); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

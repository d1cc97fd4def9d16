package bot

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"

	"ctchen222/tictactoe-minimax/internal/game"

	"golang.org/x/sync/errgroup"
)

// ErrNoMoveAvailable is returned when the engine is asked to move on a finished board.
var ErrNoMoveAvailable = errors.New("no move available: board is terminal")

// Result is the outcome of a root search.
type Result struct {
	Move  game.Move
	Value int   // game value from X's point of view: 1, 0 or -1
	Nodes int64 // boards visited, root excluded
}

// searcher carries the node counter of one search.
type searcher struct {
	nodes int64
}

// value is the minimax value of b. X maximises and O minimises; the mover
// picks the comparison, so one function covers both sides.
func (s *searcher) value(b game.Board) int {
	s.nodes++
	if b.IsTerminal() {
		return b.Utility()
	}

	mover := b.CurrentPlayer()
	best := worstFor(mover)
	for _, m := range b.LegalMoves() {
		next, _ := b.Apply(m)
		if v := s.value(next); improves(mover, v, best) {
			best = v
		}
	}
	return best
}

// worstFor seeds a running best below anything the mover can reach.
func worstFor(mover game.PlayerMark) int {
	if mover == game.PlayerX {
		return -2
	}
	return 2
}

func improves(mover game.PlayerMark, candidate, best int) bool {
	if mover == game.PlayerX {
		return candidate > best
	}
	return candidate < best
}

// Value returns the game-theoretic value of b under optimal play by both sides.
func Value(b game.Board) int {
	var s searcher
	return s.value(b)
}

// BestMove returns the optimal move for the player to act on b.
func BestMove(b game.Board) (game.Move, error) {
	res, err := Search(b)
	if err != nil {
		return game.Move{}, err
	}
	return res.Move, nil
}

// Search evaluates every legal move of b in row-major order and returns the
// first one reaching the best value for the mover.
func Search(b game.Board) (Result, error) {
	if b.IsTerminal() {
		return Result{}, ErrNoMoveAvailable
	}

	moves := b.LegalMoves()
	values := make([]int, len(moves))
	var s searcher
	for i, m := range moves {
		next, _ := b.Apply(m)
		values[i] = s.value(next)
	}
	return pick(b.CurrentPlayer(), moves, values, s.nodes), nil
}

// SearchParallel is Search with root branches evaluated concurrently. The
// reduction runs in move order afterwards, so the chosen move matches Search.
func SearchParallel(ctx context.Context, b game.Board) (Result, error) {
	if b.IsTerminal() {
		return Result{}, ErrNoMoveAvailable
	}

	moves := b.LegalMoves()
	values := make([]int, len(moves))
	var nodes atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, m := range moves {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			next, _ := b.Apply(m)
			var s searcher
			values[i] = s.value(next)
			nodes.Add(s.nodes)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	return pick(b.CurrentPlayer(), moves, values, nodes.Load()), nil
}

func pick(mover game.PlayerMark, moves []game.Move, values []int, nodes int64) Result {
	res := Result{Value: worstFor(mover), Nodes: nodes}
	for i, m := range moves {
		if improves(mover, values[i], res.Value) {
			res.Value = values[i]
			res.Move = m
		}
	}
	return res
}

package bot

import (
	"context"
	"log/slog"
	"time"

	"ctchen222/tictactoe-minimax/internal/game"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "ctchen222/tictactoe-minimax/internal/bot"

var tracer = otel.Tracer(instrumentationName)

// Calculator computes bot moves and reports search statistics through OpenTelemetry.
type Calculator struct {
	parallel bool
	nodes    metric.Int64Counter
	duration metric.Float64Histogram
}

// NewCalculator creates a Calculator. With parallel set, hard moves are
// searched with SearchParallel.
func NewCalculator(parallel bool) (*Calculator, error) {
	meter := otel.Meter(instrumentationName)

	nodes, err := meter.Int64Counter("bot.search.nodes",
		metric.WithDescription("Boards visited by the minimax search"))
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("bot.search.duration",
		metric.WithDescription("Time spent choosing a bot move"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}

	return &Calculator{parallel: parallel, nodes: nodes, duration: duration}, nil
}

// CalculateNextMove picks the move for the player to act on board.
func (c *Calculator) CalculateNextMove(ctx context.Context, board game.Board, difficulty Difficulty) (game.Move, error) {
	ctx, span := tracer.Start(ctx, "bot.CalculateNextMove", trace.WithAttributes(
		attribute.String("bot.difficulty", string(difficulty)),
		attribute.String("bot.mark", string(board.CurrentPlayer())),
	))
	defer span.End()

	start := time.Now()
	attrs := metric.WithAttributes(attribute.String("bot.difficulty", string(difficulty)))

	var (
		move game.Move
		err  error
	)
	if difficulty == Hard {
		var res Result
		res, err = c.Evaluate(ctx, board)
		move = res.Move
	} else {
		move, err = CalculateNextMove(board, difficulty)
	}
	c.duration.Record(ctx, float64(time.Since(start).Microseconds())/1000, attrs)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to calculate bot move")
		return game.Move{}, err
	}

	span.SetAttributes(attribute.Int("move.row", move.Row), attribute.Int("move.col", move.Col))
	slog.DebugContext(ctx, "bot chose move", "difficulty", difficulty, "row", move.Row, "col", move.Col)
	return move, nil
}

// Evaluate runs a full minimax search on board.
func (c *Calculator) Evaluate(ctx context.Context, board game.Board) (Result, error) {
	ctx, span := tracer.Start(ctx, "bot.Evaluate", trace.WithAttributes(
		attribute.Bool("bot.parallel", c.parallel),
	))
	defer span.End()

	var (
		res Result
		err error
	)
	if c.parallel {
		res, err = SearchParallel(ctx, board)
	} else {
		res, err = Search(board)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Search failed")
		return Result{}, err
	}

	c.nodes.Add(ctx, res.Nodes)
	span.SetAttributes(attribute.Int64("bot.search.nodes", res.Nodes), attribute.Int("bot.search.value", res.Value))
	return res, nil
}

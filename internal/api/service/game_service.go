package service

//go:generate mockgen -source=game_service.go -destination=mocks/mock_game_service.go -package=mocks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ctchen222/tictactoe-minimax/internal/api/models"
	apirepository "ctchen222/tictactoe-minimax/internal/api/repository"
	"ctchen222/tictactoe-minimax/internal/bot"
	"ctchen222/tictactoe-minimax/internal/events"
	"ctchen222/tictactoe-minimax/internal/game"
	"ctchen222/tictactoe-minimax/internal/repository"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("service.game")

var (
	ErrGameFinished = errors.New("game is already finished")
	ErrNotYourTurn  = errors.New("it's not your turn")
	ErrForbidden    = errors.New("game belongs to another player")
	ErrInvalidMark  = errors.New("mark must be X or O")
)

// MoveCalculator defines an interface for an agent that can calculate a game move.
type MoveCalculator interface {
	CalculateNextMove(ctx context.Context, board game.Board, difficulty bot.Difficulty) (game.Move, error)
	Evaluate(ctx context.Context, board game.Board) (bot.Result, error)
}

// GameService defines the business logic of human-versus-bot games.
type GameService interface {
	Create(ctx context.Context, playerID string, req *models.CreateGameRequest) (*models.Game, error)
	Get(ctx context.Context, id, playerID string) (*models.Game, error)
	Play(ctx context.Context, id, playerID string, move game.Move) (*models.Game, error)
	Hint(ctx context.Context, id, playerID string) (*models.HintResponse, error)
	Stats(ctx context.Context, playerID string) (*models.PlayerStats, error)
	History(ctx context.Context, playerID string, limit int) ([]models.GameResult, error)
}

type gameService struct {
	games             repository.GameRepository
	results           apirepository.ResultRepository
	publisher         events.Publisher
	calculator        MoveCalculator
	defaultDifficulty bot.Difficulty
	now               func() time.Time
}

// NewGameService creates a new GameService.
func NewGameService(
	games repository.GameRepository,
	results apirepository.ResultRepository,
	publisher events.Publisher,
	calculator MoveCalculator,
	defaultDifficulty bot.Difficulty,
) GameService {
	return &gameService{
		games:             games,
		results:           results,
		publisher:         publisher,
		calculator:        calculator,
		defaultDifficulty: defaultDifficulty,
		now:               time.Now,
	}
}

// Create starts a new game. When the human plays O the bot opens.
func (s *gameService) Create(ctx context.Context, playerID string, req *models.CreateGameRequest) (*models.Game, error) {
	ctx, span := tracer.Start(ctx, "GameService.Create", trace.WithAttributes(
		attribute.String("player.id", playerID),
	))
	defer span.End()

	humanMark := game.PlayerX
	if req.Mark != "" {
		humanMark = game.PlayerMark(req.Mark)
	}
	if humanMark != game.PlayerX && humanMark != game.PlayerO {
		return nil, fmt.Errorf("%w: got %q", ErrInvalidMark, req.Mark)
	}

	difficulty := s.defaultDifficulty
	if req.Difficulty != "" {
		d, err := bot.ParseDifficulty(req.Difficulty)
		if err != nil {
			return nil, err
		}
		difficulty = d
	}

	g := &models.Game{
		ID:         uuid.New().String(),
		PlayerID:   playerID,
		HumanMark:  humanMark,
		Difficulty: string(difficulty),
		Board:      game.InitialBoard(),
		CreatedAt:  s.now(),
	}
	span.SetAttributes(
		attribute.String("game.id", g.ID),
		attribute.String("game.human_mark", string(humanMark)),
		attribute.String("game.difficulty", string(difficulty)),
	)

	if humanMark == game.PlayerO {
		move, err := s.calculator.CalculateNextMove(ctx, g.Board, difficulty)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Bot failed to open")
			return nil, fmt.Errorf("bot failed to open: %w", err)
		}
		if g.Board, err = g.Board.Apply(move); err != nil {
			return nil, fmt.Errorf("bot produced an invalid move: %w", err)
		}
	}

	if err := s.games.Create(ctx, g); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to store game")
		return nil, err
	}

	slog.InfoContext(ctx, "Game created", "game.id", g.ID, "player.id", playerID, "human_mark", humanMark, "difficulty", difficulty)
	return g, nil
}

// Get returns the player's game.
func (s *gameService) Get(ctx context.Context, id, playerID string) (*models.Game, error) {
	ctx, span := tracer.Start(ctx, "GameService.Get", trace.WithAttributes(
		attribute.String("game.id", id),
		attribute.String("player.id", playerID),
	))
	defer span.End()

	g, err := s.games.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if g.PlayerID != playerID {
		return nil, ErrForbidden
	}
	return g, nil
}

// Play applies the human move and the bot reply in one update.
func (s *gameService) Play(ctx context.Context, id, playerID string, move game.Move) (*models.Game, error) {
	ctx, span := tracer.Start(ctx, "GameService.Play", trace.WithAttributes(
		attribute.String("game.id", id),
		attribute.String("player.id", playerID),
		attribute.Int("move.row", move.Row),
		attribute.Int("move.col", move.Col),
	))
	defer span.End()

	var botMove *game.Move
	updated, err := s.games.Update(ctx, id, func(g *models.Game) error {
		botMove = nil

		if g.PlayerID != playerID {
			return ErrForbidden
		}
		if g.Board.IsTerminal() {
			return ErrGameFinished
		}
		if g.Board.CurrentPlayer() != g.HumanMark {
			return ErrNotYourTurn
		}

		board, err := g.Board.Apply(move)
		if err != nil {
			return err
		}

		if !board.IsTerminal() {
			reply, err := s.calculator.CalculateNextMove(ctx, board, bot.Difficulty(g.Difficulty))
			if err != nil {
				return fmt.Errorf("bot failed to move: %w", err)
			}
			if board, err = board.Apply(reply); err != nil {
				return fmt.Errorf("bot produced an invalid move: %w", err)
			}
			botMove = &reply
		}

		g.Board = board
		return nil
	})
	if err != nil {
		span.SetAttributes(attribute.Bool("move.valid", false))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Move rejected")
		return nil, err
	}
	span.SetAttributes(attribute.Bool("move.valid", true), attribute.String("game.outcome", string(updated.Board.Outcome())))

	s.publishUpdate(ctx, updated, botMove)
	if updated.Board.IsTerminal() {
		s.publishFinished(ctx, updated)
	}
	return updated, nil
}

// Hint asks the engine for the best move in the current position.
func (s *gameService) Hint(ctx context.Context, id, playerID string) (*models.HintResponse, error) {
	ctx, span := tracer.Start(ctx, "GameService.Hint", trace.WithAttributes(
		attribute.String("game.id", id),
	))
	defer span.End()

	g, err := s.Get(ctx, id, playerID)
	if err != nil {
		return nil, err
	}
	if g.Board.IsTerminal() {
		return nil, ErrGameFinished
	}

	res, err := s.calculator.Evaluate(ctx, g.Board)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Evaluation failed")
		return nil, err
	}
	return &models.HintResponse{Move: res.Move, Value: res.Value, Nodes: res.Nodes}, nil
}

// Stats returns the player's aggregated results.
func (s *gameService) Stats(ctx context.Context, playerID string) (*models.PlayerStats, error) {
	return s.results.StatsForPlayer(ctx, playerID)
}

// History returns the player's most recent finished games.
func (s *gameService) History(ctx context.Context, playerID string, limit int) ([]models.GameResult, error) {
	return s.results.ListByPlayer(ctx, playerID, limit)
}

func (s *gameService) publishUpdate(ctx context.Context, g *models.Game, botMove *game.Move) {
	view := g.View()
	payload := events.GameUpdatedPayload{
		GameID:      g.ID,
		Board:       view.Board,
		Next:        view.Next,
		Winner:      view.Winner,
		Outcome:     view.Outcome,
		LastBotMove: botMove,
	}
	if err := s.publisher.Publish(ctx, events.TypeGameUpdated, payload); err != nil {
		slog.ErrorContext(ctx, "failed to publish game update", "game.id", g.ID, "error", err)
		trace.SpanFromContext(ctx).RecordError(err)
	}
}

func (s *gameService) publishFinished(ctx context.Context, g *models.Game) {
	payload := events.GameFinishedPayload{
		GameID:     g.ID,
		PlayerID:   g.PlayerID,
		HumanMark:  g.HumanMark,
		Difficulty: g.Difficulty,
		Outcome:    g.Board.Outcome(),
		Moves:      g.MoveCount(),
		FinishedAt: s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, events.TypeGameFinished, payload); err != nil {
		slog.ErrorContext(ctx, "failed to publish game finished", "game.id", g.ID, "error", err)
		trace.SpanFromContext(ctx).RecordError(err)
	}
	slog.InfoContext(ctx, "Game finished", "game.id", g.ID, "outcome", payload.Outcome)
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"ctchen222/tictactoe-minimax/internal/api/models"
	repomocks "ctchen222/tictactoe-minimax/internal/api/repository/mocks"
	"ctchen222/tictactoe-minimax/internal/api/service/mocks"
	"ctchen222/tictactoe-minimax/internal/bot"
	"ctchen222/tictactoe-minimax/internal/events"
	eventmocks "ctchen222/tictactoe-minimax/internal/events/mocks"
	"ctchen222/tictactoe-minimax/internal/game"
	"ctchen222/tictactoe-minimax/internal/repository"
	gamemocks "ctchen222/tictactoe-minimax/internal/repository/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const (
	X = game.PlayerX
	O = game.PlayerO
	E = game.None
)

type gameServiceDeps struct {
	games      *gamemocks.MockGameRepository
	results    *repomocks.MockResultRepository
	publisher  *eventmocks.MockPublisher
	calculator *mocks.MockMoveCalculator
}

func newTestGameService(t *testing.T) (*gameService, gameServiceDeps) {
	ctrl := gomock.NewController(t)
	deps := gameServiceDeps{
		games:      gamemocks.NewMockGameRepository(ctrl),
		results:    repomocks.NewMockResultRepository(ctrl),
		publisher:  eventmocks.NewMockPublisher(ctrl),
		calculator: mocks.NewMockMoveCalculator(ctrl),
	}
	svc := NewGameService(deps.games, deps.results, deps.publisher, deps.calculator, bot.Hard).(*gameService)
	svc.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }
	return svc, deps
}

// updateOn emulates GameRepository.Update against a copy of stored.
func updateOn(stored *models.Game) func(context.Context, string, func(*models.Game) error) (*models.Game, error) {
	return func(_ context.Context, _ string, mutate func(*models.Game) error) (*models.Game, error) {
		g := *stored
		if err := mutate(&g); err != nil {
			return nil, err
		}
		return &g, nil
	}
}

func TestGameService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("Human plays X", func(t *testing.T) {
		svc, deps := newTestGameService(t)
		deps.games.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

		g, err := svc.Create(ctx, "p1", &models.CreateGameRequest{Mark: "X", Difficulty: "medium"})

		require.NoError(t, err)
		assert.NotEmpty(t, g.ID)
		assert.Equal(t, "p1", g.PlayerID)
		assert.Equal(t, X, g.HumanMark)
		assert.Equal(t, "medium", g.Difficulty)
		assert.Equal(t, game.InitialBoard(), g.Board)
		assert.True(t, g.IsHumanTurn())
	})

	t.Run("Bot opens when human plays O", func(t *testing.T) {
		svc, deps := newTestGameService(t)
		deps.calculator.EXPECT().
			CalculateNextMove(gomock.Any(), game.InitialBoard(), bot.Hard).
			Return(game.Move{Row: 1, Col: 1}, nil)
		deps.games.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

		g, err := svc.Create(ctx, "p1", &models.CreateGameRequest{Mark: "O"})

		require.NoError(t, err)
		assert.Equal(t, X, g.Board[1][1])
		assert.Equal(t, "hard", g.Difficulty)
		assert.True(t, g.IsHumanTurn())
	})

	t.Run("Defaults to X", func(t *testing.T) {
		svc, deps := newTestGameService(t)
		deps.games.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

		g, err := svc.Create(ctx, "p1", &models.CreateGameRequest{})

		require.NoError(t, err)
		assert.Equal(t, X, g.HumanMark)
	})

	t.Run("Invalid mark", func(t *testing.T) {
		svc, _ := newTestGameService(t)
		_, err := svc.Create(ctx, "p1", &models.CreateGameRequest{Mark: "Z"})
		assert.ErrorIs(t, err, ErrInvalidMark)
	})

	t.Run("Unknown difficulty", func(t *testing.T) {
		svc, _ := newTestGameService(t)
		_, err := svc.Create(ctx, "p1", &models.CreateGameRequest{Difficulty: "insane"})
		assert.ErrorIs(t, err, bot.ErrUnknownDifficulty)
	})

	t.Run("Store failure", func(t *testing.T) {
		svc, deps := newTestGameService(t)
		storeErr := errors.New("redis down")
		deps.games.EXPECT().Create(gomock.Any(), gomock.Any()).Return(storeErr)

		_, err := svc.Create(ctx, "p1", &models.CreateGameRequest{})
		assert.ErrorIs(t, err, storeErr)
	})
}

func TestGameService_Get(t *testing.T) {
	ctx := context.Background()
	stored := &models.Game{ID: "g1", PlayerID: "p1", HumanMark: X}

	t.Run("Owner", func(t *testing.T) {
		svc, deps := newTestGameService(t)
		deps.games.EXPECT().FindByID(gomock.Any(), "g1").Return(stored, nil)

		g, err := svc.Get(ctx, "g1", "p1")
		require.NoError(t, err)
		assert.Equal(t, stored, g)
	})

	t.Run("Another player", func(t *testing.T) {
		svc, deps := newTestGameService(t)
		deps.games.EXPECT().FindByID(gomock.Any(), "g1").Return(stored, nil)

		_, err := svc.Get(ctx, "g1", "p2")
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("Not found", func(t *testing.T) {
		svc, deps := newTestGameService(t)
		deps.games.EXPECT().FindByID(gomock.Any(), "nope").Return(nil, repository.ErrGameNotFound)

		_, err := svc.Get(ctx, "nope", "p1")
		assert.ErrorIs(t, err, repository.ErrGameNotFound)
	})
}

func TestGameService_Play(t *testing.T) {
	ctx := context.Background()

	t.Run("Human move and bot reply", func(t *testing.T) {
		svc, deps := newTestGameService(t)
		stored := &models.Game{ID: "g1", PlayerID: "p1", HumanMark: X, Difficulty: "hard", Board: game.InitialBoard()}
		afterHuman := game.Board{{E, E, E}, {E, X, E}, {E, E, E}}

		deps.games.EXPECT().Update(gomock.Any(), "g1", gomock.Any()).DoAndReturn(updateOn(stored))
		deps.calculator.EXPECT().
			CalculateNextMove(gomock.Any(), afterHuman, bot.Hard).
			Return(game.Move{Row: 0, Col: 0}, nil)

		var published events.GameUpdatedPayload
		deps.publisher.EXPECT().
			Publish(gomock.Any(), events.TypeGameUpdated, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, payload any) error {
				published = payload.(events.GameUpdatedPayload)
				return nil
			})

		g, err := svc.Play(ctx, "g1", "p1", game.Move{Row: 1, Col: 1})

		require.NoError(t, err)
		assert.Equal(t, game.Board{{O, E, E}, {E, X, E}, {E, E, E}}, g.Board)
		assert.Equal(t, "g1", published.GameID)
		assert.Equal(t, X, published.Next)
		assert.Equal(t, game.InProgress, published.Outcome)
		require.NotNil(t, published.LastBotMove)
		assert.Equal(t, game.Move{Row: 0, Col: 0}, *published.LastBotMove)
		// The stored game is untouched by the mutation of the copy.
		assert.Equal(t, game.InitialBoard(), stored.Board)
	})

	t.Run("Winning move finishes the game without a bot reply", func(t *testing.T) {
		svc, deps := newTestGameService(t)
		stored := &models.Game{
			ID: "g1", PlayerID: "p1", HumanMark: X, Difficulty: "easy",
			Board: game.Board{{X, X, E}, {O, O, E}, {E, E, E}},
		}

		deps.games.EXPECT().Update(gomock.Any(), "g1", gomock.Any()).DoAndReturn(updateOn(stored))
		var finished events.GameFinishedPayload
		gomock.InOrder(
			deps.publisher.EXPECT().Publish(gomock.Any(), events.TypeGameUpdated, gomock.Any()).Return(nil),
			deps.publisher.EXPECT().
				Publish(gomock.Any(), events.TypeGameFinished, gomock.Any()).
				DoAndReturn(func(_ context.Context, _ string, payload any) error {
					finished = payload.(events.GameFinishedPayload)
					return nil
				}),
		)

		g, err := svc.Play(ctx, "g1", "p1", game.Move{Row: 0, Col: 2})

		require.NoError(t, err)
		assert.Equal(t, X, g.Board.Winner())
		assert.Equal(t, game.XWins, finished.Outcome)
		assert.Equal(t, "p1", finished.PlayerID)
		assert.Equal(t, X, finished.HumanMark)
		assert.Equal(t, "easy", finished.Difficulty)
		assert.Equal(t, 5, finished.Moves)
		assert.Equal(t, svc.now(), finished.FinishedAt)
	})

	t.Run("Bot reply that wins finishes the game", func(t *testing.T) {
		svc, deps := newTestGameService(t)
		stored := &models.Game{
			ID: "g1", PlayerID: "p1", HumanMark: X, Difficulty: "hard",
			Board: game.Board{{X, E, E}, {O, O, E}, {X, E, E}},
		}

		deps.games.EXPECT().Update(gomock.Any(), "g1", gomock.Any()).DoAndReturn(updateOn(stored))
		deps.calculator.EXPECT().
			CalculateNextMove(gomock.Any(), gomock.Any(), bot.Hard).
			Return(game.Move{Row: 1, Col: 2}, nil)
		deps.publisher.EXPECT().Publish(gomock.Any(), events.TypeGameUpdated, gomock.Any()).Return(nil)
		deps.publisher.EXPECT().Publish(gomock.Any(), events.TypeGameFinished, gomock.Any()).Return(nil)

		g, err := svc.Play(ctx, "g1", "p1", game.Move{Row: 2, Col: 2})

		require.NoError(t, err)
		assert.Equal(t, game.OWins, g.Board.Outcome())
	})

	rejected := []struct {
		name     string
		stored   *models.Game
		playerID string
		move     game.Move
		wantErr  error
	}{
		{
			name:     "Another player's game",
			stored:   &models.Game{ID: "g1", PlayerID: "p1", HumanMark: X, Board: game.InitialBoard()},
			playerID: "p2",
			move:     game.Move{Row: 0, Col: 0},
			wantErr:  ErrForbidden,
		},
		{
			name: "Finished game",
			stored: &models.Game{ID: "g1", PlayerID: "p1", HumanMark: X,
				Board: game.Board{{X, X, X}, {O, O, E}, {E, E, E}}},
			playerID: "p1",
			move:     game.Move{Row: 2, Col: 2},
			wantErr:  ErrGameFinished,
		},
		{
			name:     "Bot to move",
			stored:   &models.Game{ID: "g1", PlayerID: "p1", HumanMark: O, Board: game.InitialBoard()},
			playerID: "p1",
			move:     game.Move{Row: 0, Col: 0},
			wantErr:  ErrNotYourTurn,
		},
		{
			name: "Occupied cell",
			stored: &models.Game{ID: "g1", PlayerID: "p1", HumanMark: X,
				Board: game.Board{{X, O, E}, {E, E, E}, {E, E, E}}},
			playerID: "p1",
			move:     game.Move{Row: 0, Col: 1},
			wantErr:  game.ErrInvalidMove,
		},
		{
			name:     "Out of range",
			stored:   &models.Game{ID: "g1", PlayerID: "p1", HumanMark: X, Board: game.InitialBoard()},
			playerID: "p1",
			move:     game.Move{Row: 3, Col: 0},
			wantErr:  game.ErrInvalidMove,
		},
	}
	for _, tc := range rejected {
		t.Run(tc.name, func(t *testing.T) {
			svc, deps := newTestGameService(t)
			deps.games.EXPECT().Update(gomock.Any(), "g1", gomock.Any()).DoAndReturn(updateOn(tc.stored))

			_, err := svc.Play(ctx, "g1", tc.playerID, tc.move)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}

	t.Run("Publish failure does not fail the move", func(t *testing.T) {
		svc, deps := newTestGameService(t)
		stored := &models.Game{ID: "g1", PlayerID: "p1", HumanMark: X, Difficulty: "hard", Board: game.InitialBoard()}

		deps.games.EXPECT().Update(gomock.Any(), "g1", gomock.Any()).DoAndReturn(updateOn(stored))
		deps.calculator.EXPECT().CalculateNextMove(gomock.Any(), gomock.Any(), bot.Hard).Return(game.Move{Row: 0, Col: 0}, nil)
		deps.publisher.EXPECT().Publish(gomock.Any(), events.TypeGameUpdated, gomock.Any()).Return(errors.New("redis down"))

		g, err := svc.Play(ctx, "g1", "p1", game.Move{Row: 2, Col: 2})
		require.NoError(t, err)
		assert.Equal(t, 2, g.MoveCount())
	})

	t.Run("Bot failure aborts the update", func(t *testing.T) {
		svc, deps := newTestGameService(t)
		stored := &models.Game{ID: "g1", PlayerID: "p1", HumanMark: X, Difficulty: "hard", Board: game.InitialBoard()}
		botErr := errors.New("boom")

		deps.games.EXPECT().Update(gomock.Any(), "g1", gomock.Any()).DoAndReturn(updateOn(stored))
		deps.calculator.EXPECT().CalculateNextMove(gomock.Any(), gomock.Any(), bot.Hard).Return(game.Move{}, botErr)

		_, err := svc.Play(ctx, "g1", "p1", game.Move{Row: 0, Col: 0})
		assert.ErrorIs(t, err, botErr)
	})
}

func TestGameService_Hint(t *testing.T) {
	ctx := context.Background()

	t.Run("Returns the engine result", func(t *testing.T) {
		svc, deps := newTestGameService(t)
		board := game.Board{{X, X, E}, {O, O, E}, {E, E, E}}
		deps.games.EXPECT().FindByID(gomock.Any(), "g1").
			Return(&models.Game{ID: "g1", PlayerID: "p1", HumanMark: X, Board: board}, nil)
		deps.calculator.EXPECT().Evaluate(gomock.Any(), board).
			Return(bot.Result{Move: game.Move{Row: 0, Col: 2}, Value: 1, Nodes: 42}, nil)

		hint, err := svc.Hint(ctx, "g1", "p1")

		require.NoError(t, err)
		assert.Equal(t, &models.HintResponse{Move: game.Move{Row: 0, Col: 2}, Value: 1, Nodes: 42}, hint)
	})

	t.Run("Finished game", func(t *testing.T) {
		svc, deps := newTestGameService(t)
		deps.games.EXPECT().FindByID(gomock.Any(), "g1").
			Return(&models.Game{ID: "g1", PlayerID: "p1", Board: game.Board{{X, X, X}, {O, O, E}, {E, E, E}}}, nil)

		_, err := svc.Hint(ctx, "g1", "p1")
		assert.ErrorIs(t, err, ErrGameFinished)
	})
}

func TestGameService_StatsAndHistory(t *testing.T) {
	ctx := context.Background()
	svc, deps := newTestGameService(t)

	stats := &models.PlayerStats{PlayerID: "p1", Played: 3, Wins: 1, Draws: 2}
	deps.results.EXPECT().StatsForPlayer(gomock.Any(), "p1").Return(stats, nil)
	history := []models.GameResult{{GameID: "g1", PlayerID: "p1", Outcome: game.Draw}}
	deps.results.EXPECT().ListByPlayer(gomock.Any(), "p1", 10).Return(history, nil)

	gotStats, err := svc.Stats(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, stats, gotStats)

	gotHistory, err := svc.History(ctx, "p1", 10)
	require.NoError(t, err)
	assert.Equal(t, history, gotHistory)
}

package repository

//go:generate mockgen -source=result_repository.go -destination=mocks/mock_result_repository.go -package=mocks

import (
	"context"
	"fmt"

	"ctchen222/tictactoe-minimax/internal/api/models"
	"ctchen222/tictactoe-minimax/internal/game"

	"github.com/jmoiron/sqlx"
)

// ResultRepository defines the interface for finished-game records.
type ResultRepository interface {
	Record(ctx context.Context, result *models.GameResult) error
	StatsForPlayer(ctx context.Context, playerID string) (*models.PlayerStats, error)
	ListByPlayer(ctx context.Context, playerID string, limit int) ([]models.GameResult, error)
}

type sqliteResultRepository struct {
	db *sqlx.DB
}

// NewResultRepository creates a new SQLite-based ResultRepository.
func NewResultRepository(db *sqlx.DB) ResultRepository {
	return &sqliteResultRepository{db: db}
}

// Record stores a finished game. Recording the same game twice is a no-op,
// so every server instance may react to the same event. Timestamps are
// stored in UTC so their text form sorts chronologically.
func (r *sqliteResultRepository) Record(ctx context.Context, result *models.GameResult) error {
	row := *result
	row.FinishedAt = result.FinishedAt.UTC()
	query := `INSERT OR IGNORE INTO game_results
		(game_id, player_id, human_mark, difficulty, outcome, moves, finished_at)
		VALUES (:game_id, :player_id, :human_mark, :difficulty, :outcome, :moves, :finished_at)`
	if _, err := r.db.NamedExecContext(ctx, query, &row); err != nil {
		return fmt.Errorf("failed to record game result: %w", err)
	}
	return nil
}

// StatsForPlayer aggregates wins, losses and draws from the human's side.
func (r *sqliteResultRepository) StatsForPlayer(ctx context.Context, playerID string) (*models.PlayerStats, error) {
	query := `SELECT
			COUNT(*) AS played,
			COALESCE(SUM(CASE WHEN (outcome = ? AND human_mark = 'X') OR (outcome = ? AND human_mark = 'O') THEN 1 ELSE 0 END), 0) AS wins,
			COALESCE(SUM(CASE WHEN (outcome = ? AND human_mark = 'O') OR (outcome = ? AND human_mark = 'X') THEN 1 ELSE 0 END), 0) AS losses,
			COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0) AS draws
		FROM game_results WHERE player_id = ?`

	stats := models.PlayerStats{PlayerID: playerID}
	err := r.db.QueryRowxContext(ctx, query,
		game.XWins, game.OWins,
		game.XWins, game.OWins,
		game.Draw,
		playerID,
	).Scan(&stats.Played, &stats.Wins, &stats.Losses, &stats.Draws)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats for player: %w", err)
	}
	return &stats, nil
}

// ListByPlayer returns the player's most recent results first.
func (r *sqliteResultRepository) ListByPlayer(ctx context.Context, playerID string, limit int) ([]models.GameResult, error) {
	var results []models.GameResult
	query := `SELECT game_id, player_id, human_mark, difficulty, outcome, moves, finished_at
		FROM game_results WHERE player_id = ? ORDER BY finished_at DESC LIMIT ?`
	if err := r.db.SelectContext(ctx, &results, query, playerID, limit); err != nil {
		return nil, fmt.Errorf("failed to list game results: %w", err)
	}
	return results, nil
}

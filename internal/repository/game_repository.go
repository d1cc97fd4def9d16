package repository

//go:generate mockgen -source=game_repository.go -destination=mocks/mock_game_repository.go -package=mocks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ctchen222/tictactoe-minimax/internal/api/models"
	"ctchen222/tictactoe-minimax/internal/game"

	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("repository.game")

// Hash fields of a stored game.
const (
	FieldBoard      = "board"
	FieldPlayerID   = "player_id"
	FieldHumanMark  = "human_mark"
	FieldDifficulty = "difficulty"
	FieldCreatedAt  = "created_at"
)

// maxUpdateRetries bounds optimistic retries when another writer touches the same game.
const maxUpdateRetries = 5

var (
	ErrGameNotFound     = errors.New("game not found")
	ErrConcurrentUpdate = errors.New("game was modified concurrently")
)

// GameRepository defines the interface for game data operations.
type GameRepository interface {
	Create(ctx context.Context, g *models.Game) error
	FindByID(ctx context.Context, id string) (*models.Game, error)
	Update(ctx context.Context, id string, mutate func(g *models.Game) error) (*models.Game, error)
	Delete(ctx context.Context, id string) error
}

type redisGameRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewGameRepository creates a new Redis-based GameRepository. Games expire
// ttl after their last update.
func NewGameRepository(rdb *redis.Client, ttl time.Duration) GameRepository {
	return &redisGameRepository{rdb: rdb, ttl: ttl}
}

func gameKey(id string) string {
	return fmt.Sprintf("game:%s", id)
}

// Create stores a new game in Redis.
func (r *redisGameRepository) Create(ctx context.Context, g *models.Game) error {
	ctx, span := tracer.Start(ctx, "GameRepository.Create", trace.WithAttributes(
		attribute.String("game.id", g.ID),
	))
	defer span.End()

	boardJSON, err := json.Marshal(g.Board)
	if err != nil {
		return fmt.Errorf("failed to marshal board: %w", err)
	}

	key := gameKey(g.ID)
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, map[string]interface{}{
			FieldBoard:      boardJSON,
			FieldPlayerID:   g.PlayerID,
			FieldHumanMark:  string(g.HumanMark),
			FieldDifficulty: g.Difficulty,
			FieldCreatedAt:  g.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		pipe.Expire(ctx, key, r.ttl)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create game in redis")
		return fmt.Errorf("failed to create game in redis: %w", err)
	}
	return nil
}

// FindByID retrieves a game from Redis.
func (r *redisGameRepository) FindByID(ctx context.Context, id string) (*models.Game, error) {
	ctx, span := tracer.Start(ctx, "GameRepository.FindByID", trace.WithAttributes(
		attribute.String("game.id", id),
	))
	defer span.End()

	data, err := r.rdb.HGetAll(ctx, gameKey(id)).Result()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to get game from redis")
		return nil, fmt.Errorf("failed to get game from redis: %w", err)
	}
	return decodeGame(id, data)
}

// Update loads the game, applies mutate and writes the new board back inside
// a WATCH transaction. A mutate error aborts the update and is returned as is.
func (r *redisGameRepository) Update(ctx context.Context, id string, mutate func(g *models.Game) error) (*models.Game, error) {
	ctx, span := tracer.Start(ctx, "GameRepository.Update", trace.WithAttributes(
		attribute.String("game.id", id),
	))
	defer span.End()

	key := gameKey(id)
	var updated *models.Game

	txf := func(tx *redis.Tx) error {
		data, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		g, err := decodeGame(id, data)
		if err != nil {
			return err
		}
		if err := mutate(g); err != nil {
			return err
		}

		boardJSON, err := json.Marshal(g.Board)
		if err != nil {
			return fmt.Errorf("failed to marshal updated board: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, FieldBoard, boardJSON)
			pipe.Expire(ctx, key, r.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		updated = g
		return nil
	}

	for attempt := 0; attempt < maxUpdateRetries; attempt++ {
		err := r.rdb.Watch(ctx, txf, key)
		if err == nil {
			span.SetAttributes(attribute.Int("update.attempts", attempt+1))
			return updated, nil
		}
		if err == redis.TxFailedErr {
			continue
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to update game")
		return nil, err
	}

	span.SetStatus(codes.Error, "Too many concurrent updates")
	return nil, ErrConcurrentUpdate
}

// Delete removes a game from Redis.
func (r *redisGameRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "GameRepository.Delete", trace.WithAttributes(
		attribute.String("game.id", id),
	))
	defer span.End()

	return r.rdb.Del(ctx, gameKey(id)).Err()
}

func decodeGame(id string, data map[string]string) (*models.Game, error) {
	if len(data) == 0 {
		return nil, ErrGameNotFound
	}

	var board game.Board
	if err := json.Unmarshal([]byte(data[FieldBoard]), &board); err != nil {
		return nil, fmt.Errorf("failed to unmarshal board: %w", err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, data[FieldCreatedAt])
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}

	return &models.Game{
		ID:         id,
		PlayerID:   data[FieldPlayerID],
		HumanMark:  game.PlayerMark(data[FieldHumanMark]),
		Difficulty: data[FieldDifficulty],
		Board:      board,
		CreatedAt:  createdAt,
	}, nil
}

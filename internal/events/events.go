package events

//go:generate mockgen -source=events.go -destination=mocks/mock_publisher.go -package=mocks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ctchen222/tictactoe-minimax/internal/game"

	"github.com/go-redis/redis/v8"
)

// Pub/Sub channel constants
const (
	EventsChannel = "channel:events"
)

// Event types
const (
	TypeGameUpdated  = "game_updated"
	TypeGameFinished = "game_finished"
)

// Event represents a global message published via Pub/Sub.
type Event struct {
	Type    string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// GameUpdatedPayload is the payload for the "game_updated" event.
type GameUpdatedPayload struct {
	GameID  string              `json:"game_id"`
	Board   [][]game.PlayerMark `json:"board"`
	Next    game.PlayerMark     `json:"next,omitempty"`
	Winner  game.PlayerMark     `json:"winner,omitempty"`
	Outcome game.Outcome        `json:"outcome"`
	// LastBotMove is set when the update includes a bot reply.
	LastBotMove *game.Move `json:"last_bot_move,omitempty"`
}

// GameFinishedPayload is the payload for the "game_finished" event.
type GameFinishedPayload struct {
	GameID     string          `json:"game_id"`
	PlayerID   string          `json:"player_id"`
	HumanMark  game.PlayerMark `json:"human_mark"`
	Difficulty string          `json:"difficulty"`
	Outcome    game.Outcome    `json:"outcome"`
	Moves      int             `json:"moves"`
	FinishedAt time.Time       `json:"finished_at"`
}

// New wraps payload into an Event envelope.
func New(eventType string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return Event{Type: eventType, Payload: raw}, nil
}

// Publisher publishes events to every server instance.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload any) error
}

type redisPublisher struct {
	rdb *redis.Client
}

// NewRedisPublisher creates a Publisher backed by Redis Pub/Sub.
func NewRedisPublisher(rdb *redis.Client) Publisher {
	return &redisPublisher{rdb: rdb}
}

// Publish marshals the event and publishes it on EventsChannel.
func (p *redisPublisher) Publish(ctx context.Context, eventType string, payload any) error {
	event, err := New(eventType, payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.rdb.Publish(ctx, EventsChannel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", eventType, err)
	}
	return nil
}

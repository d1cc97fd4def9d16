package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"ctchen222/tictactoe-minimax/internal/api/models"
	apirepository "ctchen222/tictactoe-minimax/internal/api/repository"
	"ctchen222/tictactoe-minimax/internal/events"
	"ctchen222/tictactoe-minimax/internal/player"
	"ctchen222/tictactoe-minimax/pkg/proto"

	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("hub")

// Hub tracks websocket watchers per game and relays game events to them.
// Updates are queued on each watcher, so a slow client never holds up the loop.
type Hub struct {
	rdb        *redis.Client
	results    apirepository.ResultRepository
	watchers   map[string]map[*player.Player]struct{}
	register   chan *player.Player
	unregister chan *player.Player
	done       chan struct{}
}

// NewHub creates a new hub.
func NewHub(rdb *redis.Client, results apirepository.ResultRepository) *Hub {
	return &Hub{
		rdb:        rdb,
		results:    results,
		watchers:   make(map[string]map[*player.Player]struct{}),
		register:   make(chan *player.Player),
		unregister: make(chan *player.Player),
		done:       make(chan struct{}),
	}
}

// Join adds p to the watchers of p.GameID. It reports false when the hub
// has stopped.
func (h *Hub) Join(p *player.Player) bool {
	select {
	case h.register <- p:
		return true
	case <-h.done:
		return false
	}
}

// Leave removes p from the watchers of its game.
func (h *Hub) Leave(p *player.Player) {
	select {
	case h.unregister <- p:
	case <-h.done:
	}
}

// Run subscribes to the events channel and serves the hub until ctx is done.
func (h *Hub) Run(ctx context.Context) error {
	pubsub := h.rdb.Subscribe(ctx, events.EventsChannel)
	defer pubsub.Close()

	// Wait for the subscription to be confirmed before serving.
	if _, err := pubsub.Receive(ctx); err != nil {
		close(h.done)
		return fmt.Errorf("failed to subscribe to %s: %w", events.EventsChannel, err)
	}
	slog.InfoContext(ctx, "Event subscriber started", "channel", events.EventsChannel)

	payloads := make(chan string)
	go func() {
		defer close(payloads)
		for msg := range pubsub.Channel() {
			select {
			case payloads <- msg.Payload:
			case <-ctx.Done():
				return
			}
		}
	}()

	return h.Serve(ctx, payloads)
}

// Serve runs the hub over a stream of raw event payloads until ctx is done or
// the stream closes.
func (h *Hub) Serve(ctx context.Context, payloads <-chan string) error {
	defer close(h.done)
	defer h.closeAll()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case p := <-h.register:
			if h.watchers[p.GameID] == nil {
				h.watchers[p.GameID] = make(map[*player.Player]struct{})
			}
			h.watchers[p.GameID][p] = struct{}{}
			slog.DebugContext(ctx, "Watcher registered", "game.id", p.GameID, "player.id", p.ID)

		case p := <-h.unregister:
			h.remove(p)
			slog.DebugContext(ctx, "Watcher unregistered", "game.id", p.GameID, "player.id", p.ID)

		case payload, ok := <-payloads:
			if !ok {
				if err := ctx.Err(); err != nil {
					return err
				}
				return fmt.Errorf("subscription to %s closed", events.EventsChannel)
			}
			h.HandleEvent(ctx, []byte(payload))
		}
	}
}

// HandleEvent dispatches one event published on the events channel.
func (h *Hub) HandleEvent(ctx context.Context, raw []byte) {
	ctx, span := tracer.Start(ctx, "hub.HandleEvent", trace.WithAttributes(
		attribute.String("event.channel", events.EventsChannel),
	))
	defer span.End()

	var event events.Event
	if err := json.Unmarshal(raw, &event); err != nil {
		slog.ErrorContext(ctx, "Could not unmarshal event", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Could not unmarshal event")
		return
	}
	span.SetAttributes(attribute.String("event.type", event.Type))

	switch event.Type {
	case events.TypeGameUpdated:
		var payload events.GameUpdatedPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			slog.ErrorContext(ctx, "Could not unmarshal game_updated payload", "error", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "Could not unmarshal game_updated payload")
			return
		}
		h.broadcast(ctx, &payload)

	case events.TypeGameFinished:
		var payload events.GameFinishedPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			slog.ErrorContext(ctx, "Could not unmarshal game_finished payload", "error", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "Could not unmarshal game_finished payload")
			return
		}
		h.recordResult(ctx, &payload)

	default:
		slog.WarnContext(ctx, "Unknown event type", "event.type", event.Type)
	}
}

// UpdateMessage converts a game_updated payload to the websocket update message.
func UpdateMessage(p *events.GameUpdatedPayload) *proto.ServerToClientMessage {
	return &proto.ServerToClientMessage{
		Type:        proto.TypeUpdate,
		GameID:      p.GameID,
		Board:       p.Board,
		Next:        p.Next,
		Winner:      p.Winner,
		Outcome:     p.Outcome,
		LastBotMove: p.LastBotMove,
	}
}

func (h *Hub) broadcast(ctx context.Context, payload *events.GameUpdatedPayload) {
	watchers := h.watchers[payload.GameID]
	if len(watchers) == 0 {
		return
	}

	data, err := json.Marshal(UpdateMessage(payload))
	if err != nil {
		slog.ErrorContext(ctx, "error marshalling update", "game.id", payload.GameID, "error", err)
		return
	}
	for p := range watchers {
		if !p.Enqueue(data) {
			slog.WarnContext(ctx, "Dropping watcher that is closed or not keeping up", "game.id", payload.GameID, "player.id", p.ID)
			h.remove(p)
			_ = p.Close()
		}
	}
}

func (h *Hub) recordResult(ctx context.Context, payload *events.GameFinishedPayload) {
	result := &models.GameResult{
		GameID:     payload.GameID,
		PlayerID:   payload.PlayerID,
		HumanMark:  string(payload.HumanMark),
		Difficulty: payload.Difficulty,
		Outcome:    payload.Outcome,
		Moves:      payload.Moves,
		FinishedAt: payload.FinishedAt,
	}
	if err := h.results.Record(ctx, result); err != nil {
		slog.ErrorContext(ctx, "Failed to record game result", "game.id", payload.GameID, "error", err)
		trace.SpanFromContext(ctx).RecordError(err)
		trace.SpanFromContext(ctx).SetStatus(codes.Error, "Failed to record game result")
		return
	}
	slog.InfoContext(ctx, "Game result recorded", "game.id", payload.GameID, "player.id", payload.PlayerID, "outcome", payload.Outcome)
}

func (h *Hub) remove(p *player.Player) {
	watchers, ok := h.watchers[p.GameID]
	if !ok {
		return
	}
	delete(watchers, p)
	if len(watchers) == 0 {
		delete(h.watchers, p.GameID)
	}
}

func (h *Hub) closeAll() {
	for gameID, watchers := range h.watchers {
		for p := range watchers {
			_ = p.Close()
		}
		delete(h.watchers, gameID)
	}
}

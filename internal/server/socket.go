package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"ctchen222/tictactoe-minimax/internal/api/controller"
	"ctchen222/tictactoe-minimax/internal/api/models"
	"ctchen222/tictactoe-minimax/internal/api/response"
	"ctchen222/tictactoe-minimax/internal/player"
	"ctchen222/tictactoe-minimax/internal/validator"
	"ctchen222/tictactoe-minimax/pkg/proto"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// handleGameSocket upgrades the connection, registers the player as a
// watcher of the game and serves its messages until it disconnects.
func (s *Server) handleGameSocket(c *gin.Context) {
	playerID := c.GetString(controller.PlayerIDKey)
	gameID := c.Param("id")

	ctx, span := tracer.Start(c.Request.Context(), "server.handleGameSocket", trace.WithAttributes(
		attribute.String("game.id", gameID),
		attribute.String("player.id", playerID),
	))
	defer span.End()

	if _, err := s.games.Get(ctx, gameID, playerID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Game not available")
		response.ErrorResponse(c, controller.StatusFor(err), err.Error())
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to upgrade connection", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to upgrade connection")
		return
	}

	p := player.NewPlayer(playerID, gameID, conn)
	if !s.hub.Join(p) {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		_ = p.Close()
		return
	}
	defer func() {
		s.hub.Leave(p)
		_ = p.Close()
	}()

	// The state is loaded after joining and written before the pump starts,
	// so every update queued in between arrives after it.
	g, err := s.games.Get(ctx, gameID, playerID)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load game after joining", "game.id", gameID, "error", err)
		span.RecordError(err)
		s.reply(ctx, p, proto.ErrorMessage(reason(err)))
		return
	}
	if err := p.Send(StateMessage(g)); err != nil {
		slog.WarnContext(ctx, "Failed to send initial state", "game.id", gameID, "player.id", playerID, "error", err)
		return
	}
	go p.WritePump()
	slog.InfoContext(ctx, "Watcher connected", "game.id", gameID, "player.id", playerID)

	s.readPump(ctx, p)
}

// readPump hands every client message to HandleMessage until the connection fails.
func (s *Server) readPump(ctx context.Context, p *player.Player) {
	for {
		_, msg, err := p.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.WarnContext(ctx, "Player connection error", "player.id", p.ID, "game.id", p.GameID, "error", err)
			}
			slog.InfoContext(ctx, "Watcher disconnected", "game.id", p.GameID, "player.id", p.ID)
			return
		}
		s.HandleMessage(ctx, p, msg)
	}
}

// HandleMessage handles a message from a player. It acts as a dispatcher.
// Accepted moves are not answered directly; the resulting update reaches the
// player through the hub like every other watcher of the game.
func (s *Server) HandleMessage(ctx context.Context, p *player.Player, rawMessage []byte) {
	ctx, span := tracer.Start(ctx, "server.HandleMessage", trace.WithAttributes(
		attribute.String("player.id", p.ID),
		attribute.String("game.id", p.GameID),
	))
	defer span.End()

	var message proto.ClientToServerMessage
	if err := json.Unmarshal(rawMessage, &message); err != nil {
		slog.WarnContext(ctx, "error unmarshalling message", "player.id", p.ID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Error unmarshalling message")
		s.reply(ctx, p, proto.ErrorMessage("malformed message"))
		return
	}

	if err := validator.GetValidator().Struct(message); err != nil {
		slog.WarnContext(ctx, "invalid message from player", "player.id", p.ID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid message format")
		s.reply(ctx, p, proto.ErrorMessage(validator.Describe(err)))
		return
	}
	span.SetAttributes(attribute.String("message.type", message.Type))

	switch message.Type {
	case proto.TypeMove:
		move, ok := message.Move()
		if !ok {
			s.reply(ctx, p, proto.ErrorMessage("position is required"))
			return
		}
		if _, err := s.games.Play(ctx, p.GameID, p.ID, move); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Move rejected")
			s.reply(ctx, p, proto.ErrorMessage(reason(err)))
		}

	case proto.TypeHint:
		hint, err := s.games.Hint(ctx, p.GameID, p.ID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Hint failed")
			s.reply(ctx, p, proto.ErrorMessage(reason(err)))
			return
		}
		s.reply(ctx, p, &proto.ServerToClientMessage{
			Type:   proto.TypeHint,
			GameID: p.GameID,
			Hint:   &proto.HintMessage{Move: hint.Move, Value: hint.Value, Nodes: hint.Nodes},
		})
	}
}

func (s *Server) reply(ctx context.Context, p *player.Player, msg *proto.ServerToClientMessage) {
	if err := p.Send(msg); err != nil {
		slog.WarnContext(ctx, "error writing message to player", "player.id", p.ID, "error", err)
	}
}

// StateMessage converts a stored game to the websocket update message.
func StateMessage(g *models.Game) *proto.ServerToClientMessage {
	view := g.View()
	return &proto.ServerToClientMessage{
		Type:    proto.TypeUpdate,
		GameID:  view.ID,
		Board:   view.Board,
		Next:    view.Next,
		Winner:  view.Winner,
		Outcome: view.Outcome,
	}
}

func reason(err error) string {
	if controller.StatusFor(err) == http.StatusInternalServerError {
		return "internal server error"
	}
	return err.Error()
}

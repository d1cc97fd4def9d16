package controller

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"ctchen222/tictactoe-minimax/internal/api/models"
	"ctchen222/tictactoe-minimax/internal/api/response"
	"ctchen222/tictactoe-minimax/internal/api/service"
	"ctchen222/tictactoe-minimax/internal/bot"
	"ctchen222/tictactoe-minimax/internal/game"
	"ctchen222/tictactoe-minimax/internal/repository"

	"github.com/gin-gonic/gin"
)

// PlayerIDKey is the gin context key holding the authenticated player ID.
const PlayerIDKey = "player_id"

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// GameController handles game-related HTTP requests.
type GameController struct {
	gameService service.GameService
}

// NewGameController creates a new GameController.
func NewGameController(gameService service.GameService) *GameController {
	return &GameController{gameService: gameService}
}

// Create starts a new game for the authenticated player.
func (gc *GameController) Create(c *gin.Context) {
	var req models.CreateGameRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.ErrorResponse(c, http.StatusBadRequest, err.Error())
			return
		}
	}

	g, err := gc.gameService.Create(c.Request.Context(), c.GetString(PlayerIDKey), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.CreatedResponse(c, g.View())
}

// Get returns a game owned by the authenticated player.
func (gc *GameController) Get(c *gin.Context) {
	g, err := gc.gameService.Get(c.Request.Context(), c.Param("id"), c.GetString(PlayerIDKey))
	if err != nil {
		writeError(c, err)
		return
	}
	response.SuccessResponse(c, g.View())
}

// Move plays the human move and returns the game after the bot replied.
func (gc *GameController) Move(c *gin.Context) {
	var req models.MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	move := game.Move{Row: *req.Row, Col: *req.Col}
	g, err := gc.gameService.Play(c.Request.Context(), c.Param("id"), c.GetString(PlayerIDKey), move)
	if err != nil {
		writeError(c, err)
		return
	}
	response.SuccessResponse(c, g.View())
}

// Hint returns the engine's best move for the current position.
func (gc *GameController) Hint(c *gin.Context) {
	hint, err := gc.gameService.Hint(c.Request.Context(), c.Param("id"), c.GetString(PlayerIDKey))
	if err != nil {
		writeError(c, err)
		return
	}
	response.SuccessResponse(c, hint)
}

// Stats returns the authenticated player's results.
func (gc *GameController) Stats(c *gin.Context) {
	stats, err := gc.gameService.Stats(c.Request.Context(), c.GetString(PlayerIDKey))
	if err != nil {
		writeError(c, err)
		return
	}
	response.SuccessResponse(c, stats)
}

// History lists the authenticated player's finished games, newest first.
func (gc *GameController) History(c *gin.Context) {
	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			response.ErrorResponse(c, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	results, err := gc.gameService.History(c.Request.Context(), c.GetString(PlayerIDKey), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	response.SuccessResponseList(c, results)
}

// StatusFor maps a service error to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, repository.ErrGameNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrGameFinished),
		errors.Is(err, service.ErrNotYourTurn),
		errors.Is(err, repository.ErrConcurrentUpdate):
		return http.StatusConflict
	case errors.Is(err, game.ErrInvalidMove):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrInvalidMark), errors.Is(err, bot.ErrUnknownDifficulty):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	code := StatusFor(err)
	if code == http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "Request failed", "path", c.FullPath(), "error", err)
		response.ErrorResponse(c, code, "internal server error")
		return
	}
	response.ErrorResponse(c, code, err.Error())
}

package events

import (
	"encoding/json"
	"testing"

	"ctchen222/tictactoe-minimax/internal/game"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	event, err := New(TypeGameUpdated, GameUpdatedPayload{
		GameID:  "g1",
		Board:   game.InitialBoard().Rows(),
		Next:    game.PlayerX,
		Outcome: game.InProgress,
	})
	require.NoError(t, err)
	assert.Equal(t, TypeGameUpdated, event.Type)

	data, err := json.Marshal(event)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"event": "game_updated",
		"payload": {
			"game_id": "g1",
			"board": [["","",""],["","",""],["","",""]],
			"next": "X",
			"outcome": "in_progress"
		}
	}`, string(data))
}

func TestNew_UnmarshalablePayload(t *testing.T) {
	_, err := New(TypeGameFinished, make(chan int))
	assert.Error(t, err)
}

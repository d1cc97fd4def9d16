package player

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// SendBufferSize is how many queued messages a player may fall behind
	// before Enqueue refuses more.
	SendBufferSize = 16
	writeWait      = 10 * time.Second
)

// Connection is an interface that abstracts the websocket connection.
type Connection interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (int, []byte, error)
	Close() error
}

type writeDeadliner interface {
	SetWriteDeadline(t time.Time) error
}

// Player is a websocket client watching one game.
type Player struct {
	ID     string
	GameID string
	Conn   Connection

	// writeMu serializes writes; a websocket connection allows one writer at a time.
	writeMu sync.Mutex

	send      chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

// NewPlayer creates a Player watching gameID. Queued messages are only
// written once WritePump runs.
func NewPlayer(id, gameID string, conn Connection) *Player {
	return &Player{
		ID:     id,
		GameID: gameID,
		Conn:   conn,
		send:   make(chan []byte, SendBufferSize),
		closed: make(chan struct{}),
	}
}

// Send writes v to the connection as a JSON text message.
func (p *Player) Send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return p.SendRaw(data)
}

// SendRaw writes an already encoded text message. Connections that support
// it get a write deadline.
func (p *Player) SendRaw(data []byte) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	if d, ok := p.Conn.(writeDeadliner); ok {
		if err := d.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			return fmt.Errorf("failed to set write deadline: %w", err)
		}
	}
	return p.Conn.WriteMessage(websocket.TextMessage, data)
}

// Enqueue queues data for WritePump without blocking. It reports false when
// the player is closed or its queue is full.
func (p *Player) Enqueue(data []byte) bool {
	select {
	case <-p.closed:
		return false
	default:
	}
	select {
	case p.send <- data:
		return true
	default:
		return false
	}
}

// WritePump writes queued messages until the player is closed or a write
// fails, in which case it closes the player.
func (p *Player) WritePump() {
	for {
		select {
		case <-p.closed:
			return
		case data := <-p.send:
			if err := p.SendRaw(data); err != nil {
				slog.Warn("error writing queued message", "player.id", p.ID, "game.id", p.GameID, "error", err)
				_ = p.Close()
				return
			}
		}
	}
}

// Close stops WritePump and closes the connection. It is safe to call more than once.
func (p *Player) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.closed)
		err = p.Conn.Close()
	})
	return err
}

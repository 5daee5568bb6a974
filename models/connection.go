// Package models holds the entities and wire types shared between the game
// state and the transport layer.
package models

import (
	"time"

	"github.com/gorilla/websocket"
)

// Connection is the server-side record for one live socket. The game state
// is authoritative: clients only ever see what snapshots derived from this
// struct tell them.
type Connection struct {
	ID       string    `json:"id"`
	Realm    string    `json:"realm"`
	X        float64   `json:"x"`
	Y        float64   `json:"y"`
	Name     string    `json:"name"`
	Hue      float64   `json:"hue"`
	XP       int64     `json:"xp"`
	LastSeen time.Time `json:"-"`

	Conn      *websocket.Conn    `json:"-"`
	WriteChan chan ServerMessage `json:"-"`
}

// Level derives the display level from XP. Progression rules proper are a
// collaborator concern; snapshots only need a stable monotonic value.
func (c *Connection) Level() int {
	return 1 + int(c.XP/100)
}

// View renders the connection for a world snapshot.
func (c *Connection) View() PlayerView {
	return PlayerView{
		ID:    c.ID,
		Name:  c.Name,
		X:     c.X,
		Y:     c.Y,
		Hue:   c.Hue,
		XP:    c.XP,
		Level: c.Level(),
	}
}

// Send queues msg on the connection's write channel without blocking. A full
// channel drops the message: the next full snapshot self-heals whatever the
// client missed.
func (c *Connection) Send(msg ServerMessage) bool {
	select {
	case c.WriteChan <- msg:
		return true
	default:
		return false
	}
}

// PlayerView is the per-player slice of a world snapshot.
type PlayerView struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Hue   float64 `json:"hue"`
	XP    int64   `json:"xp"`
	Level int     `json:"level"`
	IsBot bool    `json:"isBot"`
}

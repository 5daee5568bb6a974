package game

import (
	"time"

	"github.com/bytebloom/starfall/models"
)

// Gesture rebroadcasts a cosmetic gesture to the sender's realm and offers
// it to every bot in sensing range through the react entry point. Replies
// surface as realm-wide bot chat.
func (w *World) Gesture(c *models.Connection, action string, now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()

	r, ok := w.realms[c.Realm]
	if !ok {
		return
	}
	c.LastSeen = now

	w.broadcastRealmLocked(r.name, models.ServerMessage{
		Type: models.TypeGesture,
		Data: map[string]string{"playerId": c.ID, "action": action},
	}, c.ID)

	for _, b := range r.bots {
		d := dist(b.x, b.y, c.X, c.Y)
		if d > w.cfg.Bots.SenseRadius {
			continue
		}
		if msg, ok := w.reactBot(b, d, now); ok {
			w.broadcastRealmLocked(r.name, models.ServerMessage{
				Type: models.TypeBotChat,
				Data: models.BotChat{BotID: b.id, Name: b.name, Message: msg},
			}, "")
		}
	}
}

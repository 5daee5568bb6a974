package game

import (
	"fmt"
	"time"

	"github.com/bytebloom/starfall/models"
)

// DropEcho places a short-lived cosmetic marker at the sender's position.
// The per-realm cap evicts the oldest echo first.
func (w *World) DropEcho(c *models.Connection, now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()

	r, ok := w.realms[c.Realm]
	if !ok {
		return
	}
	w.nextEchoID++
	e := models.Echo{
		ID:        fmt.Sprintf("echo-%d", w.nextEchoID),
		PlayerID:  c.ID,
		X:         c.X,
		Y:         c.Y,
		Hue:       c.Hue,
		ExpiresAt: now.Add(w.cfg.World.EchoTTL),
	}
	r.echoes = append(r.echoes, e)
	if len(r.echoes) > w.cfg.World.EchoCap {
		r.echoes = r.echoes[len(r.echoes)-w.cfg.World.EchoCap:]
	}
	c.LastSeen = now
}

// pruneEchoesLocked drops expired echoes in place, keeping order.
func pruneEchoesLocked(r *realmState, now time.Time) {
	live := r.echoes[:0]
	for _, e := range r.echoes {
		if !e.Expired(now) {
			live = append(live, e)
		}
	}
	r.echoes = live
}

// EchoCount reports the live echo count for one realm.
func (w *World) EchoCount(realm string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	r, ok := w.realms[realm]
	if !ok {
		return 0
	}
	return len(r.echoes)
}

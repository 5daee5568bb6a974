package game

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"

	"github.com/bytebloom/starfall/models"
)

// Register creates and indexes a connection at the world center. The caller
// supplies a stable playerID (or a freshly generated one) and a realm name
// already checked against the fixed set. If the id is already connected, the
// previous socket is evicted first — one socket per player — and the new
// session inherits the evicted one's name, hue, and XP, so progress earned
// since the last flush survives a reconnect.
func (w *World) Register(ws *websocket.Conn, playerID, realm string, now time.Time) *models.Connection {
	w.mu.Lock()

	c := &models.Connection{
		ID:        playerID,
		Realm:     realm,
		Name:      "Wanderer",
		Hue:       w.rng.Float64() * 360,
		LastSeen:  now,
		Conn:      ws,
		WriteChan: make(chan models.ServerMessage, 64),
	}
	if old, ok := w.conns[playerID]; ok {
		c.Name = old.Name
		c.Hue = old.Hue
		c.XP = old.XP
		w.removeLocked(old, now)
		if old.Conn != nil {
			old.Conn.Close()
		}
	}
	w.conns[playerID] = c
	w.realms[realm].conns[playerID] = c
	w.mu.Unlock()

	if w.met != nil {
		w.met.ConnectionOpened()
	}
	w.BroadcastToRealm(realm, models.ServerMessage{
		Type: models.TypePlayerJoined,
		Data: c.View(),
	})
	return c
}

// ApplyPersisted folds stored player fields into a connection after an
// asynchronous load. The connection may have disconnected (or mutated) while
// the read was in flight, so membership is re-checked and live values win
// over stale stored ones where the client already spoke.
func (w *World) ApplyPersisted(playerID, name string, xp int64, hue float64, now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()

	c, ok := w.conns[playerID]
	if !ok {
		return
	}
	if name != "" && c.Name == "Wanderer" {
		c.Name = w.sanitizeName(name)
	}
	if xp > c.XP {
		c.XP = xp
	}
	if hue >= 0 && hue <= 360 && c.Hue != hue {
		c.Hue = hue
	}
}

// Remove deletes a connection from both indices and clears its ephemeral
// per-player state. Safe to call twice; the second call is a no-op.
func (w *World) Remove(playerID string, now time.Time) {
	w.mu.Lock()
	c, ok := w.conns[playerID]
	w.mu.Unlock()
	if ok {
		w.RemoveConn(c, now)
	}
}

// RemoveConn removes c only while it is still the registered connection for
// its id, so a stale socket's teardown cannot evict the session that already
// replaced it. It returns the final persistable state and whether anything
// was removed.
func (w *World) RemoveConn(c *models.Connection, now time.Time) (PlayerSave, bool) {
	w.mu.Lock()
	cur, ok := w.conns[c.ID]
	if !ok || cur != c {
		w.mu.Unlock()
		return PlayerSave{}, false
	}
	save := PlayerSave{ID: c.ID, Name: c.Name, XP: c.XP, Hue: c.Hue, LastSeen: c.LastSeen}
	w.removeLocked(c, now)
	w.mu.Unlock()

	if w.met != nil {
		w.met.ConnectionClosed()
	}
	w.BroadcastToRealm(c.Realm, models.ServerMessage{
		Type: models.TypePlayerLeft,
		Data: map[string]string{"id": c.ID},
	})
	return save, true
}

func (w *World) removeLocked(c *models.Connection, now time.Time) {
	delete(w.conns, c.ID)
	if r, ok := w.realms[c.Realm]; ok {
		delete(r.conns, c.ID)
	}
	delete(w.windows, c.ID)
	for _, r := range w.realms {
		for _, b := range r.bots {
			b.forget(c.ID)
		}
	}
}

// ChangeRealm atomically moves a connection between realm indices: deindex,
// flag update, and reindex happen in one locked sequence so the connection is
// never partially indexed. Both realms get leave/join notices and the mover
// gets a fresh initial state for its new realm.
func (w *World) ChangeRealm(c *models.Connection, newRealm string, now time.Time) error {
	w.mu.Lock()
	dst, ok := w.realms[newRealm]
	if !ok {
		w.mu.Unlock()
		return fmt.Errorf("game: unknown realm %q", newRealm)
	}
	oldRealm := c.Realm
	if oldRealm == newRealm {
		w.mu.Unlock()
		return nil
	}
	delete(w.realms[oldRealm].conns, c.ID)
	c.Realm = newRealm
	c.X, c.Y = 0, 0
	c.LastSeen = now
	dst.conns[c.ID] = c

	w.broadcastRealmLocked(oldRealm, models.ServerMessage{
		Type: models.TypePlayerLeft,
		Data: map[string]string{"id": c.ID},
	}, c.ID)
	w.broadcastRealmLocked(newRealm, models.ServerMessage{
		Type: models.TypePlayerJoined,
		Data: c.View(),
	}, c.ID)
	c.Send(w.snapshotLocked(dst, models.TypeInitialState, now))
	w.mu.Unlock()
	return nil
}

// UpdatePosition applies a movement update, clamped to the world bound.
func (w *World) UpdatePosition(c *models.Connection, x, y float64, now time.Time) {
	w.mu.Lock()
	c.X = w.clamp(x)
	c.Y = w.clamp(y)
	c.LastSeen = now
	w.mu.Unlock()
}

// UpdateName applies a sanitized, length-capped display name.
func (w *World) UpdateName(c *models.Connection, name string, now time.Time) {
	w.mu.Lock()
	c.Name = w.sanitizeName(name)
	c.LastSeen = now
	w.mu.Unlock()
}

// UpdateHue applies a hue clamped to [0,360].
func (w *World) UpdateHue(c *models.Connection, hue float64, now time.Time) {
	w.mu.Lock()
	switch {
	case hue < 0:
		c.Hue = 0
	case hue > 360:
		c.Hue = 360
	default:
		c.Hue = hue
	}
	c.LastSeen = now
	w.mu.Unlock()
}

func (w *World) sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == '\t' {
			return ' '
		}
		return r
	}, name)
	max := w.cfg.Limits.NameMaxRunes
	if utf8.RuneCountInString(name) > max {
		runes := []rune(name)
		name = string(runes[:max])
	}
	if name == "" {
		name = "Wanderer"
	}
	return name
}

// PlayerSave is the persistence-facing view of one connected player.
type PlayerSave struct {
	ID       string
	Name     string
	XP       int64
	Hue      float64
	LastSeen time.Time
}

// SaveSnapshot returns the persistable fields of every connected player.
func (w *World) SaveSnapshot() []PlayerSave {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]PlayerSave, 0, len(w.conns))
	for _, c := range w.conns {
		out = append(out, PlayerSave{ID: c.ID, Name: c.Name, XP: c.XP, Hue: c.Hue, LastSeen: c.LastSeen})
	}
	return out
}

// SaveOf returns the persistable fields of one player, if still connected.
func (w *World) SaveOf(playerID string) (PlayerSave, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	c, ok := w.conns[playerID]
	if !ok {
		return PlayerSave{}, false
	}
	return PlayerSave{ID: c.ID, Name: c.Name, XP: c.XP, Hue: c.Hue, LastSeen: c.LastSeen}, true
}

// CloseAll force-closes every live socket. Used on shutdown after a final
// save pass.
func (w *World) CloseAll() {
	w.mu.Lock()
	conns := make([]*models.Connection, 0, len(w.conns))
	for _, c := range w.conns {
		conns = append(conns, c)
	}
	w.mu.Unlock()
	for _, c := range conns {
		if c.Conn != nil {
			c.Conn.Close()
		}
	}
}

package game

import (
	"context"
	"time"

	"github.com/bytebloom/starfall/models"
)

// Advance runs one simulation tick at now: bot behavior and population,
// echo expiry, fragment spawn timers, the constellation scan on its coarser
// cadence, the idle sweep, and finally a full snapshot broadcast to every
// realm that has at least one connection. Empty realms are skipped, so
// per-tick cost tracks the active population.
//
// The scheduler calls this at a fixed rate; tests call it directly with
// simulated timestamps.
func (w *World) Advance(now time.Time) {
	started := time.Now()

	w.mu.Lock()
	w.tick++

	scanEvery := uint64(w.cfg.Constellations.ScanInterval / w.cfg.World.TickInterval)
	if scanEvery == 0 {
		scanEvery = 1
	}
	sweepEvery := uint64(w.cfg.Limits.IdleSweepInterval / w.cfg.World.TickInterval)
	if sweepEvery == 0 {
		sweepEvery = 1
	}

	for _, name := range w.cfg.World.Realms {
		r := w.realms[name]

		w.ensurePopulationLocked(r, now)

		for _, b := range r.bots {
			if msg := w.stepBot(b, r, now); msg != "" {
				w.broadcastRealmLocked(r.name, models.ServerMessage{
					Type: models.TypeBotChat,
					Data: models.BotChat{BotID: b.id, Name: b.name, Message: msg},
				}, "")
			}
		}

		pruneEchoesLocked(r, now)
		w.advanceFragmentsLocked(r, now)

		if w.tick%scanEvery == 0 {
			w.scanConstellationsLocked(r, now)
		}

		if len(r.conns) > 0 {
			snap := w.snapshotLocked(r, models.TypeWorldState, now)
			for _, c := range r.conns {
				c.Send(snap)
			}
		}
	}

	// Idle sweep: collect under the lock, close outside it. A closed socket
	// errors out its read loop, which runs the normal disconnect path
	// (save + deindex). Connections without a socket are removed directly.
	var stale []*models.Connection
	if w.tick%sweepEvery == 0 {
		cutoff := w.cfg.Limits.IdleCutoff
		for _, c := range w.conns {
			if now.Sub(c.LastSeen) > cutoff {
				stale = append(stale, c)
			}
		}
	}
	w.mu.Unlock()

	for _, c := range stale {
		w.log.Info("closing idle connection", "player", c.ID, "realm", c.Realm)
		if c.Conn != nil {
			c.Conn.Close()
		} else {
			w.Remove(c.ID, now)
		}
	}

	if w.met != nil {
		w.met.TickCompleted(time.Since(started))
	}
}

// InitialState pushes a fresh snapshot of the connection's realm to it.
func (w *World) InitialState(c *models.Connection, now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	r, ok := w.realms[c.Realm]
	if !ok {
		return
	}
	c.Send(w.snapshotLocked(r, models.TypeInitialState, now))
}

func (w *World) snapshotLocked(r *realmState, msgType string, now time.Time) models.ServerMessage {
	players := make([]models.PlayerView, 0, len(r.conns)+len(r.bots))
	for _, c := range r.conns {
		players = append(players, c.View())
	}
	bots := make([]models.BotView, 0, len(r.bots))
	for _, b := range r.bots {
		players = append(players, b.playerView())
		bots = append(bots, b.view(now))
	}
	fragments := make([]models.Fragment, 0, len(r.fragments))
	for _, f := range r.fragments {
		fragments = append(fragments, *f)
	}
	echoes := append([]models.Echo(nil), r.echoes...)

	return models.ServerMessage{
		Type: msgType,
		Data: models.WorldState{
			Realm:      r.name,
			Players:    players,
			Bots:       bots,
			Echoes:     echoes,
			Fragments:  fragments,
			LitStars:   append([]string(nil), w.litStars...),
			ServerTime: now.UnixMilli(),
		},
	}
}

// Scheduler drives World.Advance at the configured tick rate. The clock is
// injectable so tests can advance simulated time without wall-clock timers.
type Scheduler struct {
	world    *World
	interval time.Duration
	now      func() time.Time
}

// NewScheduler builds a scheduler for w. A nil now defaults to time.Now.
func NewScheduler(w *World, interval time.Duration, now func() time.Time) *Scheduler {
	if now == nil {
		now = time.Now
	}
	return &Scheduler{world: w, interval: interval, now: now}
}

// Run ticks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.world.Advance(s.now())
		}
	}
}

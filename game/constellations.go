package game

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bytebloom/starfall/models"
)

// constellationTier maps a cluster size to its tier name and per-head XP.
func (w *World) constellationTier(size int) (string, int, bool) {
	cc := w.cfg.Constellations
	switch {
	case size < 3:
		return "", 0, false
	case size == 3:
		return "triangle", cc.TriangleXP, true
	case size == 4:
		return "square", cc.SquareXP, true
	case size <= 6:
		return "star", cc.StarXP, true
	default:
		return "galaxy", cc.GalaxyXP, true
	}
}

// scanConstellationsLocked runs one detection pass over a realm. Only human
// connections count — bots forming pretty shapes is their own business. For
// each pivot, every other human within the radius joins the cluster; the
// first cluster that maps to a tier and is off cooldown wins, and the pass
// short-circuits so overlapping clusters cannot double-reward in one scan.
func (w *World) scanConstellationsLocked(r *realmState, now time.Time) {
	if len(r.conns) < 3 {
		return
	}

	// Expire stale cooldown entries while we are here.
	for key, at := range r.rewarded {
		if now.Sub(at) >= w.cfg.Constellations.Cooldown {
			delete(r.rewarded, key)
		}
	}

	for _, pivot := range r.conns {
		cluster := []*models.Connection{pivot}
		for _, other := range r.conns {
			if other.ID == pivot.ID {
				continue
			}
			if dist(pivot.X, pivot.Y, other.X, other.Y) <= w.cfg.Constellations.Radius {
				cluster = append(cluster, other)
			}
		}
		tier, xp, ok := w.constellationTier(len(cluster))
		if !ok {
			continue
		}

		ids := make([]string, len(cluster))
		for i, c := range cluster {
			ids[i] = c.ID
		}
		sort.Strings(ids)
		key := r.name + "|" + strings.Join(ids, ",")
		if _, cooling := r.rewarded[key]; cooling {
			continue
		}
		r.rewarded[key] = now

		w.nextStarID++
		starID := fmt.Sprintf("star-%s-%d", tier, w.nextStarID)
		w.litStars = append(w.litStars, starID)
		if limit := w.cfg.World.LitStarCap; len(w.litStars) > limit {
			w.litStars = w.litStars[len(w.litStars)-limit:]
		}

		event := models.ConstellationEvent{
			Tier:         tier,
			Participants: ids,
			XPEach:       xp,
			StarID:       starID,
		}
		for _, c := range cluster {
			c.XP += int64(xp)
			c.Send(models.ServerMessage{Type: models.TypeConstellation, Data: event})
		}
		w.broadcastRealmLocked(r.name, models.ServerMessage{
			Type: models.TypeConstellation,
			Data: event,
		}, "")

		w.log.Info("constellation rewarded",
			"realm", r.name, "tier", tier, "size", len(cluster))
		if w.met != nil {
			w.met.ConstellationRewarded()
		}
		return
	}
}

// LitStars returns the current global lit-star set.
func (w *World) LitStars() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.litStars...)
}

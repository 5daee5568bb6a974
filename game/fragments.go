package game

import (
	"fmt"
	"time"

	"github.com/bytebloom/starfall/models"
)

// seedFragments populates a fresh realm from its deterministic generator.
// Draw order matters: x, y, golden, phase per fragment, so the whole initial
// sequence replays identically on every boot.
func (w *World) seedFragments(r *realmState, now time.Time) {
	rr := newRealmRand(r.name)
	for i := 0; i < w.cfg.Fragments.InitialPerRealm; i++ {
		f := &models.Fragment{
			X:         rr.Range(w.cfg.Fragments.SpawnSpread),
			Y:         rr.Range(w.cfg.Fragments.SpawnSpread),
			IsGolden:  rr.Float64() < w.cfg.Fragments.GoldenChance,
			Phase:     rr.Float64(),
			SpawnedAt: now,
		}
		r.fragSeq++
		f.ID = fmt.Sprintf("frag-%s-%d", r.name, r.fragSeq)
		f.Value = w.fragmentValue(f.IsGolden)
		r.fragments[f.ID] = f
	}
}

func (w *World) fragmentValue(golden bool) int {
	if golden {
		return w.cfg.Fragments.GoldenValue
	}
	return w.cfg.Fragments.Value
}

// advanceFragments runs the spawn-interval check for one realm. Spawning is
// gated on at least one connected human so empty realms cost nothing and
// never accumulate fragments beyond their seed.
func (w *World) advanceFragmentsLocked(r *realmState, now time.Time) {
	if len(r.conns) == 0 {
		return
	}
	if len(r.fragments) >= w.cfg.Fragments.MaxPerRealm {
		return
	}
	if now.Sub(r.lastFragSpawn) < w.cfg.Fragments.SpawnInterval {
		return
	}
	r.lastFragSpawn = now

	spread := w.cfg.Fragments.SpawnSpread
	f := &models.Fragment{
		X:         (w.rng.Float64()*2 - 1) * spread,
		Y:         (w.rng.Float64()*2 - 1) * spread,
		IsGolden:  w.rng.Float64() < w.cfg.Fragments.GoldenChance,
		Phase:     w.rng.Float64(),
		SpawnedAt: now,
	}
	r.fragSeq++
	f.ID = fmt.Sprintf("frag-%s-%d", r.name, r.fragSeq)
	f.Value = w.fragmentValue(f.IsGolden)
	r.fragments[f.ID] = f

	w.broadcastRealmLocked(r.name, models.ServerMessage{
		Type: models.TypeFragmentSpawned,
		Data: f,
	}, "")
}

// CollectFragment runs the full collection protocol for one request:
// lookup, distance check against the slack-widened radius, removal, XP
// award, personal confirmation, and a removal notice to the rest of the
// realm. The lookup-then-delete runs in one locked sequence, so only the
// first valid request for a fragment ever wins; a miss (already collected or
// never existed) and an out-of-range request are both silent no-ops.
func (w *World) CollectFragment(c *models.Connection, fragmentID string, now time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	r, ok := w.realms[c.Realm]
	if !ok {
		return false
	}
	f, ok := r.fragments[fragmentID]
	if !ok {
		return false
	}
	maxDist := w.cfg.Fragments.CollectRadius * w.cfg.Fragments.CollectSlack
	if dist(c.X, c.Y, f.X, f.Y) > maxDist {
		w.log.Debug("fragment collect rejected",
			"player", c.ID, "fragment", fragmentID, "realm", c.Realm)
		if w.met != nil {
			w.met.CheatRejected()
		}
		return false
	}

	delete(r.fragments, fragmentID)
	c.XP += int64(f.Value)
	c.LastSeen = now

	c.Send(models.ServerMessage{
		Type: models.TypeFragmentCollected,
		Data: models.FragmentCollected{
			FragmentID: fragmentID,
			Value:      f.Value,
			IsGolden:   f.IsGolden,
			XP:         c.XP,
		},
	})
	w.broadcastRealmLocked(r.name, models.ServerMessage{
		Type: models.TypeFragmentRemoved,
		Data: models.FragmentRemoved{FragmentID: fragmentID, By: c.ID},
	}, c.ID)

	if w.met != nil {
		w.met.FragmentCollected(f.IsGolden)
	}
	return true
}

// FragmentCount reports the live fragment count for one realm.
func (w *World) FragmentCount(realm string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	r, ok := w.realms[realm]
	if !ok {
		return 0
	}
	return len(r.fragments)
}

// Package game owns the authoritative world state: connection and realm
// registries, the fragment economy, the bot population, constellation
// detection, and the fixed-rate tick that binds them together.
//
// Concurrency model: one mutex guards everything. Message handlers and the
// tick both run their whole read-modify-write under w.mu, which is what makes
// realm moves and fragment collections atomic. Socket writes never happen
// under the lock — they go through each connection's buffered write channel.
package game

import (
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/bytebloom/starfall/config"
	"github.com/bytebloom/starfall/models"
	"github.com/bytebloom/starfall/observe"
)

// World is the single authoritative state holder. Construct one per process
// (or one per test) with New; nothing in this package is a package-level
// singleton.
type World struct {
	mu  sync.Mutex
	cfg *config.Config
	log *slog.Logger
	met *observe.Metrics

	conns  map[string]*models.Connection
	realms map[string]*realmState

	// Per-connection fixed-window message throttle state. Cleared on Remove.
	windows map[string]*msgWindow

	litStars []string

	tick       uint64
	nextEchoID uint64
	nextBotID  uint64
	nextStarID uint64

	// rng drives everything non-reproducible: interval spawns, bot behavior.
	// Initial fragment layouts use the per-realm seeded generator instead.
	rng *rand.Rand
}

// realmState is one fixed world partition. Realms are created once in New
// and never destroyed.
type realmState struct {
	name      string
	conns     map[string]*models.Connection
	fragments map[string]*models.Fragment
	bots      map[string]*bot
	echoes    []models.Echo

	fragSeq       uint64
	lastFragSpawn time.Time

	// constellation cooldowns, keyed by realm + sorted participant ids
	rewarded map[string]time.Time
}

// New builds a world with every configured realm seeded to its deterministic
// initial fragment layout.
func New(cfg *config.Config, log *slog.Logger, met *observe.Metrics) *World {
	if log == nil {
		log = slog.Default()
	}
	w := &World{
		cfg:     cfg,
		log:     log,
		met:     met,
		conns:   make(map[string]*models.Connection),
		realms:  make(map[string]*realmState, len(cfg.World.Realms)),
		windows: make(map[string]*msgWindow),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	now := time.Now()
	for _, name := range cfg.World.Realms {
		r := &realmState{
			name:      name,
			conns:     make(map[string]*models.Connection),
			fragments: make(map[string]*models.Fragment),
			bots:      make(map[string]*bot),
			rewarded:  make(map[string]time.Time),
		}
		w.seedFragments(r, now)
		w.realms[name] = r
	}
	return w
}

// DefaultRealm is where connections land when the query string names nothing.
func (w *World) DefaultRealm() string {
	return w.cfg.World.Realms[0]
}

// HasRealm reports whether name is in the fixed realm set.
func (w *World) HasRealm(name string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.realms[name]
	return ok
}

// Realms lists the fixed realm names in configured order.
func (w *World) Realms() []string {
	return append([]string(nil), w.cfg.World.Realms...)
}

// ConnectionCount reports the number of live connections across all realms.
func (w *World) ConnectionCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.conns)
}

// Touch refreshes the liveness timestamp for a connection.
func (w *World) Touch(c *models.Connection, now time.Time) {
	w.mu.Lock()
	c.LastSeen = now
	w.mu.Unlock()
}

// SendTo queues a message for one player. Returns false if the player is
// gone or their write buffer is full.
func (w *World) SendTo(playerID string, msg models.ServerMessage) bool {
	w.mu.Lock()
	c, ok := w.conns[playerID]
	w.mu.Unlock()
	if !ok {
		return false
	}
	return c.Send(msg)
}

// BroadcastToRealm queues a message for every connection in one realm.
func (w *World) BroadcastToRealm(realm string, msg models.ServerMessage) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.broadcastRealmLocked(realm, msg, "")
}

// Broadcast queues a message for every connection in every realm.
func (w *World) Broadcast(msg models.ServerMessage) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, c := range w.conns {
		c.Send(msg)
	}
}

func (w *World) broadcastRealmLocked(realm string, msg models.ServerMessage, skipID string) {
	r, ok := w.realms[realm]
	if !ok {
		return
	}
	for id, c := range r.conns {
		if id == skipID {
			continue
		}
		c.Send(msg)
	}
}

func (w *World) clamp(v float64) float64 {
	b := w.cfg.World.Bound
	if v < -b {
		return -b
	}
	if v > b {
		return b
	}
	return v
}

func dist(x1, y1, x2, y2 float64) float64 {
	return math.Hypot(x1-x2, y1-y2)
}

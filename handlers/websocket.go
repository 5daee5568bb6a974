package handlers

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/bytebloom/starfall/config"
	"github.com/bytebloom/starfall/game"
	"github.com/bytebloom/starfall/models"
	"github.com/bytebloom/starfall/observe"
	"github.com/bytebloom/starfall/persistence"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler terminates websocket connections and runs their read/write pumps.
type Handler struct {
	world  *game.World
	router *Router
	store  *persistence.Store
	cfg    *config.Config
	log    *slog.Logger
	met    *observe.Metrics

	mu         sync.Mutex
	ipLimiters map[string]*rate.Limiter
}

// NewHandler wires the websocket edge. store may be nil to run without
// persistence.
func NewHandler(world *game.World, router *Router, store *persistence.Store, cfg *config.Config, log *slog.Logger, met *observe.Metrics) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		world:      world,
		router:     router,
		store:      store,
		cfg:        cfg,
		log:        log,
		met:        met,
		ipLimiters: make(map[string]*rate.Limiter),
	}
}

func (h *Handler) acceptLimiter(ip string) *rate.Limiter {
	h.mu.Lock()
	defer h.mu.Unlock()
	l, ok := h.ipLimiters[ip]
	if !ok {
		l = rate.NewLimiter(rate.Limit(h.cfg.Limits.AcceptPerSecond), h.cfg.Limits.AcceptBurst)
		h.ipLimiters[ip] = l
	}
	return l
}

// HandleWebSocket upgrades the request and runs the connection until the
// socket dies. Identity comes from the query string: a missing playerId gets
// a fresh uuid, an unknown or missing realm falls back to the default.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	if !h.acceptLimiter(ip).Allow() {
		http.Error(w, "too many connections", http.StatusTooManyRequests)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "ip", ip, "err", err)
		return
	}

	playerID := r.URL.Query().Get("playerId")
	if playerID == "" {
		playerID = uuid.New().String()
	}
	realm := r.URL.Query().Get("realm")
	if !h.world.HasRealm(realm) {
		realm = h.world.DefaultRealm()
	}

	now := time.Now()
	c := h.world.Register(ws, playerID, realm, now)
	h.log.Info("player connected", "player", playerID, "realm", realm, "ip", ip)

	done := make(chan struct{})
	go h.writePump(c, done)
	go h.hydrate(c, now)

	h.readPump(c)

	close(done)
	h.disconnect(c)
}

// hydrate loads persisted fields and then pushes the initial state. The
// world may have moved on while the read was in flight — ApplyPersisted
// re-checks registration and never overwrites live mutations.
func (h *Handler) hydrate(c *models.Connection, now time.Time) {
	if h.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		data, err := h.store.GetPlayer(ctx, c.ID)
		if err != nil {
			h.log.Error("player load failed", "player", c.ID, "err", err)
		} else if data != nil {
			h.world.ApplyPersisted(c.ID, data.Name, data.XP, data.Hue, now)
		}
	}
	h.world.InitialState(c, time.Now())
}

func (h *Handler) readPump(c *models.Connection) {
	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			return
		}
		h.router.Dispatch(c, raw, time.Now())
	}
}

// writePump drains the connection's buffered channel onto the socket. One
// goroutine per connection is the only writer, so gorilla's single-writer
// rule holds without further locking.
func (h *Handler) writePump(c *models.Connection, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case msg := <-c.WriteChan:
			data, err := msg.Encode(time.Now())
			if err != nil {
				h.log.Error("encode failed", "type", msg.Type, "err", err)
				continue
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.Conn.Close()
				return
			}
			if h.met != nil {
				h.met.BroadcastBytes(len(data))
			}
		}
	}
}

// disconnect runs the normal teardown path: deindex first so no further
// broadcasts target the connection, then a best-effort save. A save that
// fails is only logged — the periodic flush or the next session catches up.
func (h *Handler) disconnect(c *models.Connection) {
	save, removed := h.world.RemoveConn(c, time.Now())
	c.Conn.Close()
	if !removed {
		// A newer session for this id already replaced us; it inherited our
		// state at registration and owns the save from here on.
		return
	}
	h.log.Info("player disconnected", "player", c.ID)

	if h.store == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := h.store.UpdatePlayer(ctx, persistence.PlayerData{
			ID:       save.ID,
			Name:     save.Name,
			XP:       save.XP,
			Hue:      save.Hue,
			LastSeen: save.LastSeen,
		})
		if err != nil {
			h.log.Error("player save failed", "player", save.ID, "err", err)
		}
	}()
}

package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/bytebloom/starfall/game"
	"github.com/bytebloom/starfall/models"
	"github.com/bytebloom/starfall/observe"
)

// Router validates, rate-limits, and dispatches inbound messages. Core-owned
// types mutate the world inline; everything else goes to a registered
// feature handler behind the capability context.
type Router struct {
	world    *game.World
	log      *slog.Logger
	met      *observe.Metrics
	features map[string]FeatureHandler
}

// NewRouter builds a router over the world.
func NewRouter(world *game.World, log *slog.Logger, met *observe.Metrics) *Router {
	if log == nil {
		log = slog.Default()
	}
	return &Router{
		world:    world,
		log:      log,
		met:      met,
		features: make(map[string]FeatureHandler),
	}
}

// RegisterHandler attaches a feature handler for one message type. Core
// types cannot be overridden; registration for them is ignored.
func (rt *Router) RegisterHandler(msgType string, h FeatureHandler) {
	if _, err := models.DecodePayload(msgType, nil); !errors.Is(err, models.ErrUnknownType) {
		rt.log.Warn("ignoring feature handler for core message type", "type", msgType)
		return
	}
	rt.features[msgType] = h
}

// Dispatch processes one inbound frame. Rate limiting comes first so abusers
// pay nothing past the window check; then parse, validate, touch liveness,
// and route. Anti-cheat failures drop silently, schema failures answer with
// an error naming the message type but never the payload.
func (rt *Router) Dispatch(c *models.Connection, raw []byte, now time.Time) {
	if !rt.world.AllowMessage(c.ID, now) {
		return
	}
	if rt.met != nil {
		rt.met.MessageReceived()
	}

	var env models.Envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Type == "" {
		rt.sendError(c, "", "malformed message")
		return
	}

	payload, err := models.DecodePayload(env.Type, env.Data)
	if errors.Is(err, models.ErrUnknownType) {
		rt.world.Touch(c, now)
		rt.dispatchFeature(c, env)
		return
	}
	if err != nil {
		rt.sendError(c, env.Type, "invalid payload")
		return
	}

	rt.world.Touch(c, now)

	switch p := payload.(type) {
	case *models.MovePayload:
		rt.world.UpdatePosition(c, p.X, p.Y, now)
	case *models.SetNamePayload:
		rt.world.UpdateName(c, p.Name, now)
	case *models.SetHuePayload:
		rt.world.UpdateHue(c, p.Hue, now)
	case *models.ChangeRealmPayload:
		if !rt.world.HasRealm(p.Realm) {
			// Invalid realm targets drop without diagnostics.
			return
		}
		if err := rt.world.ChangeRealm(c, p.Realm, now); err != nil {
			rt.log.Error("realm change failed", "player", c.ID, "err", err)
		}
	case *models.CollectFragmentPayload:
		rt.world.CollectFragment(c, p.FragmentID, now)
	case *models.EchoPayload:
		rt.world.DropEcho(c, now)
	case *models.GesturePayload:
		rt.world.Gesture(c, p.Action, now)
	case *models.PingPayload:
		c.Send(models.ServerMessage{
			Type: models.TypePong,
			Data: map[string]int64{"serverTime": now.UnixMilli()},
		})
	}
}

// dispatchFeature hands a non-core message to its registered handler. Each
// invocation is isolated: a panicking or failing handler is logged and the
// connection, the tick loop, and every other handler carry on.
func (rt *Router) dispatchFeature(c *models.Connection, env models.Envelope) {
	h, ok := rt.features[env.Type]
	if !ok {
		rt.log.Debug("unknown message type", "type", env.Type, "player", c.ID)
		return
	}
	if len(env.Data) > 0 && !json.Valid(env.Data) {
		rt.sendError(c, env.Type, "invalid payload")
		return
	}

	defer func() {
		if r := recover(); r != nil {
			rt.log.Error("feature handler panicked", "type", env.Type, "player", c.ID, "panic", r)
		}
	}()
	if err := h(c, env.Data, rt.world); err != nil {
		rt.log.Error("feature handler failed", "type", env.Type, "player", c.ID, "err", err)
	}
}

func (rt *Router) sendError(c *models.Connection, msgType, reason string) {
	if rt.met != nil {
		rt.met.MessageInvalid()
	}
	c.Send(models.ServerMessage{
		Type: models.TypeError,
		Data: models.ErrorPayload{MessageType: msgType, Reason: reason},
	})
}

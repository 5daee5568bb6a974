package game

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/bytebloom/starfall/models"
)

// personality selects a bot's steering and chattiness profile.
type personality int

const (
	personalityWanderer personality = iota
	personalitySocial
	personalityExplorer
)

var botNames = []string{
	"Lyra", "Orion", "Vega", "Mira", "Atlas", "Juno", "Caelum", "Rigel",
	"Selene", "Castor", "Nadir", "Polaris",
}

var botGreetings = []string{
	"oh hey, you made it out here",
	"hello stranger!",
	"nice to drift past you",
	"hey! the fragments are good tonight",
}

var botChatter = []string{
	"I keep losing count of the stars",
	"the tide realm hums if you sit still",
	"seen any golden ones lately?",
	"this spot has a nice view",
	"I was here before the last reset... I think",
}

var botSongs = []string{
	"♪ mmm hmm mm ♪",
	"♪ la la laa ♪",
	"♪ ooooh oh ♪",
}

var botReactions = []string{
	"ha, nice one",
	"!!",
	"do that again",
	"I saw that",
}

// bot is one server-driven NPC. All fields are guarded by the world mutex;
// bots are stepped by the tick and poked by React from the dispatcher.
type bot struct {
	id          string
	name        string
	hue         float64
	x, y        float64
	vx, vy      float64
	personality personality

	// excitement rises with nearby humans and decays otherwise; it scales
	// chat and sing probability and drives pulsing past a high threshold.
	excitement float64

	cooldowns map[string]time.Time
	greeted   map[string]bool

	message      string
	messageUntil time.Time
	pulsingUntil time.Time
}

const (
	botGreetCooldown = 20 * time.Second
	botChatCooldown  = 8 * time.Second
	botSingCooldown  = 25 * time.Second
	botPulseCooldown = 6 * time.Second
	botBubbleTTL     = 4 * time.Second
	botPulseTTL      = 2 * time.Second

	botCrowdRadius    = 90.0
	botPulseThreshold = 0.85
)

func (w *World) newBot(now time.Time) *bot {
	w.nextBotID++
	p := personalityWanderer
	switch r := w.rng.Float64(); {
	case r < 0.35:
		p = personalitySocial
	case r < 0.6:
		p = personalityExplorer
	}
	return &bot{
		id:          uuid.New().String(),
		name:        fmt.Sprintf("%s-%d", botNames[w.rng.Intn(len(botNames))], w.nextBotID),
		hue:         w.rng.Float64() * 360,
		x:           (w.rng.Float64()*2 - 1) * w.cfg.Fragments.SpawnSpread,
		y:           (w.rng.Float64()*2 - 1) * w.cfg.Fragments.SpawnSpread,
		personality: p,
		cooldowns:   make(map[string]time.Time),
		greeted:     make(map[string]bool),
	}
}

// ensurePopulationLocked spawns enough bots to lift humans+bots to the
// configured minimum. Bots are never culled on surplus; humans leaving just
// means the realm stays lively.
func (w *World) ensurePopulationLocked(r *realmState, now time.Time) {
	deficit := w.cfg.Bots.MinPopulation - (len(r.conns) + len(r.bots))
	for i := 0; i < deficit; i++ {
		b := w.newBot(now)
		r.bots[b.id] = b
		if w.met != nil {
			w.met.BotSpawned()
		}
	}
}

// sense summarises the humans around a bot for one step.
type senseResult struct {
	closest     *models.Connection
	closestDist float64
	nearby      int
	avgDist     float64
}

func (b *bot) sense(r *realmState, radius float64) senseResult {
	res := senseResult{closestDist: math.MaxFloat64}
	var total float64
	for _, c := range r.conns {
		d := dist(b.x, b.y, c.X, c.Y)
		if d > radius {
			continue
		}
		res.nearby++
		total += d
		if d < res.closestDist {
			res.closest = c
			res.closestDist = d
		}
	}
	if res.nearby > 0 {
		res.avgDist = total / float64(res.nearby)
	}
	return res
}

func (b *bot) ready(key string, now time.Time, cd time.Duration) bool {
	return now.Sub(b.cooldowns[key]) >= cd
}

func (b *bot) arm(key string, now time.Time) {
	b.cooldowns[key] = now
}

func (b *bot) forget(playerID string) {
	delete(b.greeted, playerID)
}

// step advances the state machine one tick: sensing, excitement, steering,
// and the cooldown-gated probabilistic actions. It returns an utterance to
// broadcast, if the bot decided to speak this tick.
func (w *World) stepBot(b *bot, r *realmState, now time.Time) (utterance string) {
	cfg := w.cfg.Bots
	s := b.sense(r, cfg.SenseRadius)

	// Excitement tracks the crowd: each nearby human nudges it up, solitude
	// bleeds it away.
	if s.nearby > 0 {
		b.excitement += 0.03 * math.Min(float64(s.nearby), 3)
		if b.excitement > 1 {
			b.excitement = 1
		}
	} else {
		b.excitement *= 0.97
	}

	b.steer(s, w.rng, cfg.SenseRadius)

	b.vx *= cfg.Damping
	b.vy *= cfg.Damping

	// Soft recentering past the home radius keeps bots from drifting off
	// into the far clamp boundary.
	if d := math.Hypot(b.x, b.y); d > cfg.HomeRadius {
		b.vx -= b.x / d * 0.4
		b.vy -= b.y / d * 0.4
	}

	b.x = w.clamp(b.x + b.vx)
	b.y = w.clamp(b.y + b.vy)

	if now.After(b.messageUntil) {
		b.message = ""
	}

	// Greeting: once per human, personality-scaled, shared greet cooldown.
	if s.closest != nil && !b.greeted[s.closest.ID] && b.ready("greet", now, botGreetCooldown) {
		p := 0.3
		if b.personality == personalitySocial {
			p = 0.8
		}
		if w.rng.Float64() < p {
			b.greeted[s.closest.ID] = true
			b.arm("greet", now)
			return b.say(botGreetings[w.rng.Intn(len(botGreetings))], now)
		}
	}

	// Spontaneous chat, scaled by excitement and personality.
	if b.ready("chat", now, botChatCooldown) {
		p := 0.002 + b.excitement*0.01
		if b.personality == personalitySocial {
			p *= 2
		}
		if w.rng.Float64() < p {
			b.arm("chat", now)
			return b.say(botChatter[w.rng.Intn(len(botChatter))], now)
		}
	}

	// Singing, scaled by excitement alone.
	if b.ready("sing", now, botSingCooldown) && w.rng.Float64() < b.excitement*0.004 {
		b.arm("sing", now)
		return b.say(botSongs[w.rng.Intn(len(botSongs))], now)
	}

	// Pulsing is a pure render effect past the excitement threshold.
	if b.excitement > botPulseThreshold && b.ready("pulse", now, botPulseCooldown) {
		b.arm("pulse", now)
		b.pulsingUntil = now.Add(botPulseTTL)
	}
	return ""
}

func (b *bot) steer(s senseResult, rng *rand.Rand, senseRadius float64) {
	switch b.personality {
	case personalitySocial:
		// Drift toward the closest human while they are in the comfortable
		// band: not crowding, not out of reach.
		if s.closest != nil && s.closestDist > botCrowdRadius && s.closestDist < senseRadius {
			b.vx += (s.closest.X - b.x) / s.closestDist * 0.6
			b.vy += (s.closest.Y - b.y) / s.closestDist * 0.6
			return
		}
		b.jitter(rng, 0.2)
	case personalityExplorer:
		if rng.Float64() < 0.08 {
			theta := rng.Float64() * 2 * math.Pi
			b.vx += math.Cos(theta) * 1.4
			b.vy += math.Sin(theta) * 1.4
			return
		}
		b.jitter(rng, 0.1)
	default:
		b.jitter(rng, 0.3)
	}
}

func (b *bot) jitter(rng *rand.Rand, scale float64) {
	b.vx += (rng.Float64()*2 - 1) * scale
	b.vy += (rng.Float64()*2 - 1) * scale
}

func (b *bot) say(msg string, now time.Time) string {
	b.message = msg
	b.messageUntil = now.Add(botBubbleTTL)
	return msg
}

// react lets the dispatcher notify a bot of an observed player gesture. The
// response probability decays linearly with distance and shares the chat
// cooldown, so a gesturing crowd cannot make a bot spam.
func (w *World) reactBot(b *bot, distance float64, now time.Time) (string, bool) {
	if !b.ready("chat", now, botChatCooldown) {
		return "", false
	}
	p := 1 - distance/w.cfg.Bots.SenseRadius
	if p <= 0 {
		return "", false
	}
	if b.personality == personalitySocial {
		p *= 1.5
	}
	if w.rng.Float64() >= p {
		return "", false
	}
	b.arm("chat", now)
	b.excitement = math.Min(1, b.excitement+0.15)
	return b.say(botReactions[w.rng.Intn(len(botReactions))], now), true
}

func (b *bot) view(now time.Time) models.BotView {
	return models.BotView{
		ID:         b.id,
		Name:       b.name,
		X:          b.x,
		Y:          b.y,
		Hue:        b.hue,
		Excitement: b.excitement,
		Pulsing:    now.Before(b.pulsingUntil),
		Message:    b.message,
	}
}

func (b *bot) playerView() models.PlayerView {
	return models.PlayerView{
		ID:    b.id,
		Name:  b.name,
		X:     b.x,
		Y:     b.y,
		Hue:   b.hue,
		Level: 1,
		IsBot: true,
	}
}

// BotCount reports the live bot count for one realm.
func (w *World) BotCount(realm string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	r, ok := w.realms[realm]
	if !ok {
		return 0
	}
	return len(r.bots)
}

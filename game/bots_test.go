package game

import (
	"testing"
	"time"
)

func TestPopulationMinimumMaintained(t *testing.T) {
	w := newTestWorld(t, nil)
	now := testTime()
	w.Register(nil, "p1", "aurora", now)
	w.Register(nil, "p2", "aurora", now)

	w.Advance(now.Add(w.cfg.World.TickInterval))

	for _, realm := range w.Realms() {
		w.mu.Lock()
		humans := len(w.realms[realm].conns)
		bots := len(w.realms[realm].bots)
		w.mu.Unlock()
		if humans+bots < w.cfg.Bots.MinPopulation {
			t.Fatalf("realm %s under minimum: %d humans + %d bots", realm, humans, bots)
		}
	}

	// Aurora has 2 humans, so it should have topped up with exactly 3 bots.
	if got := w.BotCount("aurora"); got != w.cfg.Bots.MinPopulation-2 {
		t.Fatalf("expected %d bots in aurora, got %d", w.cfg.Bots.MinPopulation-2, got)
	}
}

func TestBotsNeverCulledOnSurplus(t *testing.T) {
	w := newTestWorld(t, nil)
	now := testTime()
	w.Advance(now)
	before := w.BotCount("aurora")
	if before != w.cfg.Bots.MinPopulation {
		t.Fatalf("expected %d bots in empty realm, got %d", w.cfg.Bots.MinPopulation, before)
	}

	// Humans arriving push the realm over the minimum; the bots stay.
	for i := 0; i < 4; i++ {
		c := w.Register(nil, string(rune('a'+i)), "aurora", now)
		w.Touch(c, now)
	}
	w.Advance(now.Add(w.cfg.World.TickInterval))

	if got := w.BotCount("aurora"); got != before {
		t.Fatalf("bot count changed on surplus: %d -> %d", before, got)
	}
}

func TestExcitementRisesNearHumansAndDecaysAlone(t *testing.T) {
	w := newTestWorld(t, nil)
	now := testTime()
	c := w.Register(nil, "p1", "aurora", now)
	w.UpdatePosition(c, 10, 10, now)

	w.mu.Lock()
	b := w.newBot(now)
	b.x, b.y = 0, 0
	r := w.realms["aurora"]
	r.bots[b.id] = b

	for i := 0; i < 20; i++ {
		w.stepBot(b, r, now.Add(time.Duration(i)*w.cfg.World.TickInterval))
	}
	excited := b.excitement
	w.mu.Unlock()
	if excited <= 0 {
		t.Fatal("excitement did not rise near a human")
	}

	w.Remove("p1", now)

	w.mu.Lock()
	for i := 0; i < 50; i++ {
		w.stepBot(b, r, now.Add(time.Duration(20+i)*w.cfg.World.TickInterval))
	}
	calmed := b.excitement
	w.mu.Unlock()
	if calmed >= excited {
		t.Fatalf("excitement did not decay alone: %v -> %v", excited, calmed)
	}
}

func TestBotVelocityDampens(t *testing.T) {
	w := newTestWorld(t, nil)
	now := testTime()
	w.mu.Lock()
	defer w.mu.Unlock()

	b := w.newBot(now)
	b.personality = personalitySocial // no humans nearby, so only jitter
	b.vx, b.vy = 50, 50
	r := w.realms["aurora"]

	w.stepBot(b, r, now)
	// Damping 0.94 on 50 shrinks well below 50 even with jitter noise.
	if b.vx >= 50 || b.vy >= 50 {
		t.Fatalf("velocity not damped: (%v,%v)", b.vx, b.vy)
	}
}

func TestBotStaysInsideWorldBound(t *testing.T) {
	cfg := testConfig()
	cfg.Bots.HomeRadius = 100
	w := newTestWorld(t, cfg)
	now := testTime()

	w.mu.Lock()
	defer w.mu.Unlock()
	b := w.newBot(now)
	b.x, b.y = 5000, 5000
	r := w.realms["aurora"]

	for i := 0; i < 2000; i++ {
		w.stepBot(b, r, now.Add(time.Duration(i)*w.cfg.World.TickInterval))
	}
	if dist(b.x, b.y, 0, 0) > 5100 {
		t.Fatalf("recentering failed, bot drifted to (%v,%v)", b.x, b.y)
	}
}

func TestReactDecaysWithDistanceAndSharesChatCooldown(t *testing.T) {
	w := newTestWorld(t, nil)
	now := testTime()

	w.mu.Lock()
	defer w.mu.Unlock()
	b := w.newBot(now)
	b.personality = personalitySocial

	// Beyond the sense radius the probability is zero, always silent.
	if _, ok := w.reactBot(b, w.cfg.Bots.SenseRadius+1, now); ok {
		t.Fatal("bot reacted beyond sensing range")
	}

	// Point blank, social bots respond with probability > 1, i.e. always.
	msg, ok := w.reactBot(b, 0, now)
	if !ok || msg == "" {
		t.Fatal("expected a point-blank reaction")
	}

	// The chat cooldown gates an immediate second reaction.
	if _, ok := w.reactBot(b, 0, now.Add(time.Second)); ok {
		t.Fatal("reaction ignored the chat cooldown")
	}
	if _, ok := w.reactBot(b, 0, now.Add(botChatCooldown+time.Second)); !ok {
		t.Fatal("expected reaction after the cooldown expired")
	}
}

func TestGreetingHappensOncePerHuman(t *testing.T) {
	w := newTestWorld(t, nil)
	now := testTime()
	c := w.Register(nil, "p1", "aurora", now)
	w.UpdatePosition(c, 5, 5, now)

	w.mu.Lock()
	defer w.mu.Unlock()
	b := w.newBot(now)
	b.personality = personalitySocial
	b.x, b.y = 0, 0
	r := w.realms["aurora"]

	greetings := 0
	for i := 0; i < 4000; i++ {
		at := now.Add(time.Duration(i) * w.cfg.World.TickInterval)
		if msg := w.stepBot(b, r, at); msg != "" && b.greeted["p1"] && greetings == 0 {
			greetings++
		}
	}
	if !b.greeted["p1"] {
		t.Fatal("social bot never greeted a nearby human over 4000 ticks")
	}

	// Once greeted, the flag blocks any further greeting of that human.
	before := len(b.greeted)
	for i := 0; i < 100; i++ {
		w.stepBot(b, r, now.Add(time.Duration(4000+i)*w.cfg.World.TickInterval))
	}
	if len(b.greeted) != before {
		t.Fatal("greeted set grew without new humans")
	}
}

func TestRemoveForgetsGreetings(t *testing.T) {
	w := newTestWorld(t, nil)
	now := testTime()
	w.Register(nil, "p1", "aurora", now)
	w.Advance(now.Add(w.cfg.World.TickInterval))

	w.mu.Lock()
	for _, b := range w.realms["aurora"].bots {
		b.greeted["p1"] = true
	}
	w.mu.Unlock()

	w.Remove("p1", now)

	w.mu.Lock()
	defer w.mu.Unlock()
	for _, b := range w.realms["aurora"].bots {
		if b.greeted["p1"] {
			t.Fatal("bot kept greeting state for a removed player")
		}
	}
}

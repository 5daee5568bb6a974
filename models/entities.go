package models

import "time"

// Fragment is a collectible star fragment. Fragments are created by the
// economy (seeded at boot, then on a spawn interval) and removed exactly once
// on a successful collection.
type Fragment struct {
	ID        string    `json:"id"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	IsGolden  bool      `json:"isGolden"`
	Value     int       `json:"value"`
	Phase     float64   `json:"phase"`
	SpawnedAt time.Time `json:"-"`
}

// Echo is a short-lived cosmetic marker dropped by a player. Expired echoes
// are pruned by the tick loop and never leave the server again.
type Echo struct {
	ID        string    `json:"id"`
	PlayerID  string    `json:"playerId"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Hue       float64   `json:"hue"`
	ExpiresAt time.Time `json:"-"`
}

// Expired reports whether the echo should be pruned at now.
func (e Echo) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// BotView is the render payload for one NPC. Bots also appear in the
// players[] slice of a snapshot with IsBot set, so clients can treat them as
// peers; this struct carries the extra presentation state.
type BotView struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Hue        float64 `json:"hue"`
	Excitement float64 `json:"excitement"`
	Pulsing    bool    `json:"pulsing"`
	Message    string  `json:"message,omitempty"`
}

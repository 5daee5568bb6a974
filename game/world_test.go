package game

import (
	"io"
	"log/slog"
	"math/rand"
	"testing"
	"time"

	"github.com/bytebloom/starfall/config"
	"github.com/bytebloom/starfall/models"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Persistence.Path = ""
	return cfg
}

func newTestWorld(t *testing.T, cfg *config.Config) *World {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}
	if err := config.Validate(cfg); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	w := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	w.rng = rand.New(rand.NewSource(42))
	return w
}

func testTime() time.Time {
	return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
}

// drain empties a connection's write channel and returns the queued messages.
func drain(c *models.Connection) []models.ServerMessage {
	var out []models.ServerMessage
	for {
		select {
		case msg := <-c.WriteChan:
			out = append(out, msg)
		default:
			return out
		}
	}
}

func messagesOfType(msgs []models.ServerMessage, msgType string) []models.ServerMessage {
	var out []models.ServerMessage
	for _, m := range msgs {
		if m.Type == msgType {
			out = append(out, m)
		}
	}
	return out
}

// realmMemberships counts how many realm indices hold the given id.
func realmMemberships(w *World, playerID string) (count int, realm string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for name, r := range w.realms {
		if _, ok := r.conns[playerID]; ok {
			count++
			realm = name
		}
	}
	return count, realm
}

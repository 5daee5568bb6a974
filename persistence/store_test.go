package persistence

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "players.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetPlayerUnknownReturnsNil(t *testing.T) {
	s := newTestStore(t)
	p, err := s.GetPlayer(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p != nil {
		t.Fatalf("expected nil for unseen player, got %+v", p)
	}
}

func TestUpdateThenGetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	lastSeen := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	in := PlayerData{ID: "p1", Name: "Vega", XP: 120, Hue: 210.5, LastSeen: lastSeen}
	if err := s.UpdatePlayer(ctx, in); err != nil {
		t.Fatalf("update: %v", err)
	}

	out, err := s.GetPlayer(ctx, "p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if out == nil {
		t.Fatal("player vanished")
	}
	if out.Name != in.Name || out.XP != in.XP || out.Hue != in.Hue {
		t.Fatalf("round trip mismatch: %+v", out)
	}
	if !out.LastSeen.Equal(lastSeen) {
		t.Fatalf("last seen mismatch: %v", out.LastSeen)
	}
}

func TestUpdateIsUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.UpdatePlayer(ctx, PlayerData{ID: "p1", Name: "Old", XP: 10}); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := s.UpdatePlayer(ctx, PlayerData{ID: "p1", Name: "New", XP: 35}); err != nil {
		t.Fatalf("second save: %v", err)
	}

	out, err := s.GetPlayer(ctx, "p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if out.Name != "New" || out.XP != 35 {
		t.Fatalf("upsert did not overwrite: %+v", out)
	}
}

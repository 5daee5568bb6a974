package game

import (
	"testing"
	"time"
)

func TestRegisterIndexesConnectionOnce(t *testing.T) {
	w := newTestWorld(t, nil)
	now := testTime()

	c := w.Register(nil, "p1", "aurora", now)

	if c.Realm != "aurora" {
		t.Fatalf("expected realm aurora, got %q", c.Realm)
	}
	count, realm := realmMemberships(w, "p1")
	if count != 1 || realm != "aurora" {
		t.Fatalf("expected exactly one membership in aurora, got %d in %q", count, realm)
	}
	if c.X != 0 || c.Y != 0 {
		t.Fatalf("expected world-center start, got (%v,%v)", c.X, c.Y)
	}
}

func TestChangeRealmMovesAtomically(t *testing.T) {
	w := newTestWorld(t, nil)
	now := testTime()
	c := w.Register(nil, "p1", "aurora", now)
	drain(c)

	if err := w.ChangeRealm(c, "ember", now); err != nil {
		t.Fatalf("change realm: %v", err)
	}

	count, realm := realmMemberships(w, "p1")
	if count != 1 || realm != "ember" {
		t.Fatalf("expected exactly one membership in ember, got %d in %q", count, realm)
	}
	if c.Realm != "ember" {
		t.Fatalf("connection realm field not updated: %q", c.Realm)
	}

	// The mover gets a fresh initial state for the destination realm.
	initial := messagesOfType(drain(c), "initial_state")
	if len(initial) != 1 {
		t.Fatalf("expected one initial_state push, got %d", len(initial))
	}
}

func TestChangeRealmUnknownTargetFails(t *testing.T) {
	w := newTestWorld(t, nil)
	now := testTime()
	c := w.Register(nil, "p1", "aurora", now)

	if err := w.ChangeRealm(c, "void", now); err == nil {
		t.Fatal("expected error for unknown realm")
	}
	count, realm := realmMemberships(w, "p1")
	if count != 1 || realm != "aurora" {
		t.Fatalf("expected membership unchanged, got %d in %q", count, realm)
	}
}

func TestChangeRealmNotifiesBothRealms(t *testing.T) {
	w := newTestWorld(t, nil)
	now := testTime()
	mover := w.Register(nil, "mover", "aurora", now)
	stayer := w.Register(nil, "stayer", "aurora", now)
	greeter := w.Register(nil, "greeter", "ember", now)
	drain(mover)
	drain(stayer)
	drain(greeter)

	if err := w.ChangeRealm(mover, "ember", now); err != nil {
		t.Fatalf("change realm: %v", err)
	}
	if got := messagesOfType(drain(stayer), "player_left"); len(got) != 1 {
		t.Fatalf("expected leave notice in old realm, got %d", len(got))
	}
	if got := messagesOfType(drain(greeter), "player_joined"); len(got) != 1 {
		t.Fatalf("expected join notice in new realm, got %d", len(got))
	}
}

func TestRemoveClearsEphemeralState(t *testing.T) {
	w := newTestWorld(t, nil)
	now := testTime()
	w.Register(nil, "p1", "aurora", now)
	w.AllowMessage("p1", now)

	w.Remove("p1", now)

	if count, _ := realmMemberships(w, "p1"); count != 0 {
		t.Fatalf("expected no realm membership after remove, got %d", count)
	}
	w.mu.Lock()
	_, hasWindow := w.windows["p1"]
	_, hasConn := w.conns["p1"]
	w.mu.Unlock()
	if hasWindow {
		t.Fatal("expected rate-limit window cleared on remove")
	}
	if hasConn {
		t.Fatal("expected connection deindexed on remove")
	}

	// Second remove is a no-op.
	w.Remove("p1", now)
}

func TestRemoveConnIgnoresReplacedSession(t *testing.T) {
	w := newTestWorld(t, nil)
	now := testTime()
	old := w.Register(nil, "p1", "aurora", now)
	old.XP = 10
	replacement := w.Register(nil, "p1", "aurora", now.Add(time.Second))

	if _, removed := w.RemoveConn(old, now.Add(2*time.Second)); removed {
		t.Fatal("stale session teardown must not evict the replacement")
	}
	count, realm := realmMemberships(w, "p1")
	if count != 1 || realm != "aurora" {
		t.Fatalf("replacement membership damaged: %d in %q", count, realm)
	}

	save, removed := w.RemoveConn(replacement, now.Add(3*time.Second))
	if !removed {
		t.Fatal("expected live session to be removable")
	}
	if save.ID != "p1" {
		t.Fatalf("unexpected save id %q", save.ID)
	}
}

func TestRegisterCarriesStateAcrossReconnect(t *testing.T) {
	w := newTestWorld(t, nil)
	now := testTime()
	old := w.Register(nil, "p1", "aurora", now)
	old.XP = 42
	w.UpdateName(old, "Lyra", now)
	w.UpdateHue(old, 200, now)

	// Reconnect with the same id: the replacement must inherit the evicted
	// session's progress, not restart at zero and wait for a stale load.
	replacement := w.Register(nil, "p1", "ember", now.Add(time.Second))
	if replacement.XP != 42 {
		t.Fatalf("XP lost across reconnect: %d", replacement.XP)
	}
	if replacement.Name != "Lyra" || replacement.Hue != 200 {
		t.Fatalf("identity lost across reconnect: name=%q hue=%v", replacement.Name, replacement.Hue)
	}

	// The stale socket's teardown skips its save; SaveOf must still see the
	// carried XP on the replacement.
	if _, removed := w.RemoveConn(old, now.Add(2*time.Second)); removed {
		t.Fatal("stale session teardown must not evict the replacement")
	}
	if save, ok := w.SaveOf("p1"); !ok || save.XP != 42 {
		t.Fatalf("carried XP not visible to persistence: %+v ok=%v", save, ok)
	}
}

func TestApplyPersistedRespectsLiveState(t *testing.T) {
	w := newTestWorld(t, nil)
	now := testTime()
	c := w.Register(nil, "p1", "aurora", now)

	// XP earned before the load resolves must not be clobbered by a smaller
	// stored value.
	c.XP = 50
	w.ApplyPersisted("p1", "Vireo", 20, 120, now)
	if c.XP != 50 {
		t.Fatalf("live XP overwritten: %d", c.XP)
	}
	if c.Name != "Vireo" {
		t.Fatalf("stored name not applied: %q", c.Name)
	}

	// Larger stored XP wins (a previous session saved more).
	w.ApplyPersisted("p1", "", 80, 120, now)
	if c.XP != 80 {
		t.Fatalf("stored XP not applied: %d", c.XP)
	}

	// Unknown player is a no-op, not a crash.
	w.ApplyPersisted("ghost", "Name", 10, 10, now)
}

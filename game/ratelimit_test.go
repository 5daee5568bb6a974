package game

import (
	"testing"
	"time"
)

func TestFiftyFirstMessageDropped(t *testing.T) {
	w := newTestWorld(t, nil)
	now := testTime()
	w.Register(nil, "p1", "aurora", now)

	for i := 0; i < 50; i++ {
		at := now.Add(time.Duration(i) * 10 * time.Millisecond)
		if !w.AllowMessage("p1", at) {
			t.Fatalf("message %d inside the cap was refused", i+1)
		}
	}
	if w.AllowMessage("p1", now.Add(990*time.Millisecond)) {
		t.Fatal("51st message within the window was allowed")
	}
}

func TestWindowResetsAfterDuration(t *testing.T) {
	w := newTestWorld(t, nil)
	now := testTime()
	w.Register(nil, "p1", "aurora", now)

	for i := 0; i < 50; i++ {
		w.AllowMessage("p1", now)
	}
	if w.AllowMessage("p1", now) {
		t.Fatal("cap not enforced")
	}
	if !w.AllowMessage("p1", now.Add(1100*time.Millisecond)) {
		t.Fatal("window did not reset after its duration elapsed")
	}
}

func TestAllowMessageRefusesAfterRemoval(t *testing.T) {
	w := newTestWorld(t, nil)
	now := testTime()
	w.Register(nil, "p1", "aurora", now)
	w.AllowMessage("p1", now)
	w.Remove("p1", now)

	// A frame that raced the removal must neither pass nor leave a window
	// entry behind for an id that no longer exists.
	if w.AllowMessage("p1", now.Add(time.Millisecond)) {
		t.Fatal("removed connection must not pass the limiter")
	}
	w.mu.Lock()
	_, leaked := w.windows["p1"]
	w.mu.Unlock()
	if leaked {
		t.Fatal("window entry re-created for a removed connection")
	}
}

func TestWindowsAreIndependentPerConnection(t *testing.T) {
	w := newTestWorld(t, nil)
	now := testTime()
	w.Register(nil, "p1", "aurora", now)
	w.Register(nil, "p2", "aurora", now)

	for i := 0; i < 50; i++ {
		w.AllowMessage("p1", now)
	}
	if w.AllowMessage("p1", now) {
		t.Fatal("p1 should be throttled")
	}
	if !w.AllowMessage("p2", now) {
		t.Fatal("p2 must not inherit p1's window")
	}
}

package game

import "time"

// msgWindow is one connection's fixed-window throttle state.
type msgWindow struct {
	count int
	start time.Time
}

// AllowMessage applies the per-connection fixed window: the window resets
// whenever more than the configured duration has elapsed since it opened;
// inside the window, messages beyond the cap are refused. Callers drop
// refused messages silently — no error frame goes back, so abusers get no
// feedback to tune against.
func (w *World) AllowMessage(playerID string, now time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	win, ok := w.windows[playerID]
	if !ok {
		// A frame racing its own removal must not re-create the window the
		// removal just cleared.
		if _, live := w.conns[playerID]; !live {
			return false
		}
		w.windows[playerID] = &msgWindow{count: 1, start: now}
		return true
	}
	if now.Sub(win.start) > w.cfg.Limits.Window {
		win.count = 1
		win.start = now
		return true
	}
	if win.count >= w.cfg.Limits.MessagesPerWindow {
		if w.met != nil {
			w.met.MessageDropped()
		}
		return false
	}
	win.count++
	return true
}

package dsp

// Hysteresis is a two-state flag that only flips after a condition has held
// for a run of consecutive updates.
type Hysteresis struct {
	onWindow  int
	offWindow int
	active    bool
	run       int
}

func NewHysteresis(onWindow, offWindow int) *Hysteresis {
	return &Hysteresis{onWindow: max(onWindow, 1), offWindow: max(offWindow, 1)}
}

// Update feeds one observation. on counts toward activation while inactive,
// off counts toward deactivation while active; any other update resets the
// run.
func (h *Hysteresis) Update(on, off bool) bool {
	hit := on
	if h.active {
		hit = off
	}
	if !hit {
		h.run = 0
		return h.active
	}
	h.run++
	want := h.onWindow
	if h.active {
		want = h.offWindow
	}
	if h.run >= want {
		h.active, h.run = !h.active, 0
	}
	return h.active
}

func (h *Hysteresis) Active() bool { return h.active }

func (h *Hysteresis) Reset() { h.active, h.run = false, 0 }

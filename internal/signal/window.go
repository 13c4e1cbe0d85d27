package signal

// DefaultWindowSize is the number of recent prices kept per (user, symbol).
const DefaultWindowSize = 20

// Window keeps the most recent prices for one (user, symbol) pair.
// The oldest sample is evicted when the window is full.
// A Window is not safe for concurrent use; the runner serializes access
// per user.
type Window struct {
	max int
	buf []float64
}

func NewWindow(max int) *Window {
	if max <= 0 {
		max = DefaultWindowSize
	}
	return &Window{max: max, buf: make([]float64, 0, max)}
}

func (w *Window) Add(v float64) {
	if len(w.buf) == w.max {
		copy(w.buf, w.buf[1:])
		w.buf = w.buf[:w.max-1]
	}
	w.buf = append(w.buf, v)
}

func (w *Window) Len() int { return len(w.buf) }

func (w *Window) Cap() int { return w.max }

// Values returns a copy of the samples, oldest first.
func (w *Window) Values() []float64 {
	out := make([]float64, len(w.buf))
	copy(out, w.buf)
	return out
}

func (w *Window) First() float64 {
	if len(w.buf) == 0 {
		return 0
	}
	return w.buf[0]
}

func (w *Window) Last() float64 {
	if len(w.buf) == 0 {
		return 0
	}
	return w.buf[len(w.buf)-1]
}

// Clone returns an independent copy. The runner evaluates ticks against a
// clone and installs it only after the tick has been persisted.
func (w *Window) Clone() *Window {
	out := &Window{max: w.max, buf: make([]float64, len(w.buf), w.max)}
	copy(out.buf, w.buf)
	return out
}

// Package gesture models pointer capture for drag-style tools as an explicit
// state machine: idle -> capturing(pointer, target, start) -> idle.
//
// The drag target is chosen once, when the gesture begins, and is held until
// it ends, so a drag can never switch targets mid-gesture.
package gesture

// Point is a position in whatever space the owning tool works in.
type Point struct {
	X, Y float64
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// State is the capture state of a Tracker.
type State uint8

const (
	Idle State = iota
	Capturing
)

func (s State) String() string {
	if s == Capturing {
		return "capturing"
	}
	return "idle"
}

// Tracker holds at most one captured gesture. T is the tool-specific drag
// target (a paint mode, a scene layer). The zero value is idle.
type Tracker[T any] struct {
	state   State
	pointer int
	target  T
	start   Point
	last    Point
}

// Begin captures pointer with target at p. It reports false and changes
// nothing if another gesture is already captured.
func (t *Tracker[T]) Begin(pointer int, target T, p Point) bool {
	if t.state == Capturing {
		return false
	}
	t.state = Capturing
	t.pointer = pointer
	t.target = target
	t.start = p
	t.last = p
	return true
}

// Move advances the captured gesture to p and returns the previous point and
// the captured target. ok is false, and nothing changes, when no gesture is
// captured or pointer is not the captured one.
func (t *Tracker[T]) Move(pointer int, p Point) (prev Point, target T, ok bool) {
	if t.state != Capturing || pointer != t.pointer {
		return Point{}, target, false
	}
	prev = t.last
	t.last = p
	return prev, t.target, true
}

// End releases the gesture if pointer owns it. The remembered points are
// forgotten so the next gesture starts fresh.
func (t *Tracker[T]) End(pointer int) bool {
	if t.state != Capturing || pointer != t.pointer {
		return false
	}
	t.Reset()
	return true
}

// Reset drops any capture unconditionally.
func (t *Tracker[T]) Reset() {
	var zero T
	t.state = Idle
	t.pointer = 0
	t.target = zero
	t.start = Point{}
	t.last = Point{}
}

func (t *Tracker[T]) State() State { return t.state }

// Target returns the captured target and whether a gesture is active.
func (t *Tracker[T]) Target() (T, bool) {
	return t.target, t.state == Capturing
}

// Start returns the point the active gesture began at.
func (t *Tracker[T]) Start() Point { return t.start }

// Last returns the most recent point of the active gesture.
func (t *Tracker[T]) Last() Point { return t.last }

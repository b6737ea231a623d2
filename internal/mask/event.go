package mask

import (
	"fmt"
	"strings"

	"github.com/youruser/fabricview/internal/gesture"
)

// EventKind unifies mouse and touch input.
type EventKind uint8

const (
	Start EventKind = iota
	Move
	End
	// Leave is the pointer leaving the drawing surface; it ends the stroke.
	Leave
)

func ParseEventKind(s string) (EventKind, error) {
	switch strings.ToLower(s) {
	case "start", "down", "mousedown", "touchstart":
		return Start, nil
	case "move", "mousemove", "touchmove":
		return Move, nil
	case "end", "up", "mouseup", "touchend", "touchcancel":
		return End, nil
	case "leave", "mouseleave":
		return Leave, nil
	}
	return 0, fmt.Errorf("mask: unknown event %q", s)
}

// Event is one pointer event in display coordinates.
type Event struct {
	Kind    EventKind
	Pointer int
	X, Y    float64
}

// Viewport is the size the working surface is displayed at. The zero value
// means events are already in surface pixels.
type Viewport struct {
	Width, Height float64
}

// ToPixel maps a display position onto a surface of w x h pixels.
func (v Viewport) ToPixel(x, y float64, w, h int) gesture.Point {
	if v.Width <= 0 || v.Height <= 0 {
		return gesture.Point{X: x, Y: y}
	}
	return gesture.Point{
		X: x * float64(w) / v.Width,
		Y: y * float64(h) / v.Height,
	}
}

package mask

import (
	"fmt"
	"strings"
)

// Tool is the paint mode a stroke is rendered with.
type Tool uint8

const (
	// ToolBrush adds to the mask (destination-over).
	ToolBrush Tool = iota
	// ToolEraser removes from the mask (destination-out).
	ToolEraser
)

func (t Tool) String() string {
	if t == ToolEraser {
		return "eraser"
	}
	return "brush"
}

func ParseTool(s string) (Tool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "brush", "paint":
		return ToolBrush, nil
	case "eraser", "erase":
		return ToolEraser, nil
	}
	return 0, fmt.Errorf("mask: unknown tool %q", s)
}

// State is the authoring session's readiness.
type State uint8

const (
	StateLoading State = iota
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	}
	return "loading"
}

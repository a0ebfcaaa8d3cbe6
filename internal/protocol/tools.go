package protocol

import (
	"encoding/json"
	"fmt"
)

// Tool selects how a stroke is rendered. Closed set: decoding
// anything else fails instead of falling back at dispatch time.
type Tool string

const (
	ToolPen    Tool = "pen"
	ToolEraser Tool = "eraser"
)

func (t Tool) Valid() bool {
	switch t {
	case ToolPen, ToolEraser:
		return true
	}
	return false
}

func (t *Tool) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: tool: %s", ErrInvalidMessage, err)
	}
	parsed := Tool(s)
	if !parsed.Valid() {
		return fmt.Errorf("%w: unknown tool %q", ErrInvalidMessage, s)
	}
	*t = parsed
	return nil
}

// Shape is the committed-shape variant of a draw event. Empty means a plain
// stroke point. The set mirrors the drawing core's shape types.
type Shape string

const (
	ShapeFreehand  Shape = "freehand"
	ShapeRectangle Shape = "rectangle"
	ShapeCircle    Shape = "circle"
	ShapeLine      Shape = "line"
	ShapeTriangle  Shape = "triangle"
)

func (s Shape) Valid() bool {
	switch s {
	case ShapeFreehand, ShapeRectangle, ShapeCircle, ShapeLine, ShapeTriangle:
		return true
	}
	return false
}

func (s *Shape) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: shape: %s", ErrInvalidMessage, err)
	}
	if raw == "" {
		*s = ""
		return nil
	}
	parsed := Shape(raw)
	if !parsed.Valid() {
		return fmt.Errorf("%w: unknown shape %q", ErrInvalidMessage, raw)
	}
	*s = parsed
	return nil
}

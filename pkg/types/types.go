package types

import (
	"fmt"
	"image"
	"strconv"
	"strings"
)

// BBox is an axis-aligned pixel box in (x1, y1, x2, y2) order, upper-left
// then lower-right. Input boxes are not required to be ordered.
type BBox struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Box is shorthand for BBox{x1, y1, x2, y2}
func Box(x1, y1, x2, y2 int) BBox {
	return BBox{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// Width returns x2 - x1
func (b BBox) Width() int {
	return b.X2 - b.X1
}

// Height returns y2 - y1
func (b BBox) Height() int {
	return b.Y2 - b.Y1
}

// Degenerate reports whether the box has no area
func (b BBox) Degenerate() bool {
	return b.Width() <= 0 || b.Height() <= 0
}

// Rect converts the box to an image.Rectangle
func (b BBox) Rect() image.Rectangle {
	return image.Rect(b.X1, b.Y1, b.X2, b.Y2)
}

func (b BBox) String() string {
	return fmt.Sprintf("(%d,%d,%d,%d)", b.X1, b.Y1, b.X2, b.Y2)
}

// SavedCrop describes one crop written to disk. Index is the position of the
// box in the input slice, not in the output.
type SavedCrop struct {
	Path  string `json:"path"`
	BBox  BBox   `json:"bbox"`
	Index int    `json:"index"`
}

// Buffer holds raw interleaved pixels in row-major order.
// Channels is 1 for grayscale, 3 for RGB or 4 for RGBA.
type Buffer struct {
	Width    int
	Height   int
	Channels int
	Pix      []uint8
}

// Validate checks the buffer shape against its pixel data
func (b Buffer) Validate() error {
	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("invalid buffer dimensions %dx%d", b.Width, b.Height)
	}
	switch b.Channels {
	case 1, 3, 4:
	default:
		return fmt.Errorf("unsupported channel count %d (want 1, 3 or 4)", b.Channels)
	}
	if want := b.Width * b.Height * b.Channels; len(b.Pix) != want {
		return fmt.Errorf("buffer has %d bytes, expected %d for %dx%dx%d",
			len(b.Pix), want, b.Width, b.Height, b.Channels)
	}
	return nil
}

// ParseBBox parses "x1,y1,x2,y2"
func ParseBBox(s string) (BBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return BBox{}, fmt.Errorf("box %q: expected 4 comma-separated values", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return BBox{}, fmt.Errorf("box %q: %w", s, err)
		}
		v[i] = n
	}
	return Box(v[0], v[1], v[2], v[3]), nil
}

// ParseBoxes parses a semicolon separated list of boxes, e.g. "0,0,10,10;5,5,20,20".
// Empty entries are ignored.
func ParseBoxes(s string) ([]BBox, error) {
	var boxes []BBox
	for _, item := range strings.Split(s, ";") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		b, err := ParseBBox(item)
		if err != nil {
			return nil, err
		}
		boxes = append(boxes, b)
	}
	return boxes, nil
}

package document

import "math"

// BBox is a rectangle in PDF points with a top-left origin.
type BBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Finite reports whether all four fields are finite numbers.
func (b BBox) Finite() bool {
	return isFinite(b.X) && isFinite(b.Y) && isFinite(b.Width) && isFinite(b.Height)
}

// Valid reports whether the box is finite with a non-negative size.
func (b BBox) Valid() bool {
	return b.Finite() && b.Width >= 0 && b.Height >= 0
}

func (b BBox) Right() float64  { return b.X + b.Width }
func (b BBox) Bottom() float64 { return b.Y + b.Height }
func (b BBox) Area() float64   { return b.Width * b.Height }

// Union returns the smallest box covering both.
func (b BBox) Union(o BBox) BBox {
	x0 := math.Min(b.X, o.X)
	y0 := math.Min(b.Y, o.Y)
	x1 := math.Max(b.Right(), o.Right())
	y1 := math.Max(b.Bottom(), o.Bottom())
	return BBox{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// Intersects reports whether the boxes share any area.
func (b BBox) Intersects(o BBox) bool {
	return b.X < o.Right() && o.X < b.Right() && b.Y < o.Bottom() && o.Y < b.Bottom()
}

// Within reports whether b lies entirely inside a w x h page.
func (b BBox) Within(w, h float64) bool {
	return b.X >= 0 && b.Y >= 0 && b.Right() <= w && b.Bottom() <= h
}

// Clip trims the box to a w x h page. The result may have zero size.
func (b BBox) Clip(w, h float64) BBox {
	x0 := clamp(b.X, 0, w)
	y0 := clamp(b.Y, 0, h)
	x1 := clamp(b.Right(), 0, w)
	y1 := clamp(b.Bottom(), 0, h)
	return BBox{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// UnionAll returns the union of the token boxes, or false when empty.
func UnionAll(tokens []Token) (BBox, bool) {
	if len(tokens) == 0 {
		return BBox{}, false
	}
	box := tokens[0].Box
	for _, t := range tokens[1:] {
		box = box.Union(t.Box)
	}
	return box, true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

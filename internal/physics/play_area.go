package physics

import "math"

// Bounds is an axis-aligned rectangle with y pointing up.
type Bounds struct {
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Top    float64 `json:"top"`
}

func (b Bounds) Width() float64 { return b.Right - b.Left }
func (b Bounds) Height() float64 { return b.Top - b.Bottom }

// PlayArea is the rectangle the balls move in.
type PlayArea struct {
	bounds           Bounds
	reflectingBorder bool
	elasticity       float64
}

// NewPlayArea creates a play area of the default size centered on the origin.
func NewPlayArea() *PlayArea {
	return &PlayArea{
		bounds: Bounds{
			Left:   -PlayAreaWidth / 2,
			Right:  PlayAreaWidth / 2,
			Bottom: -PlayAreaHeight / 2,
			Top:    PlayAreaHeight / 2,
		},
		reflectingBorder: true,
		elasticity:       DefaultElasticity,
	}
}

// NewPlayAreaWithBounds creates a reflecting play area with custom bounds.
func NewPlayAreaWithBounds(bounds Bounds, elasticity float64) *PlayArea {
	return &PlayArea{bounds: bounds, reflectingBorder: true, elasticity: elasticity}
}

func (pa *PlayArea) Bounds() Bounds { return pa.bounds }
func (pa *PlayArea) ReflectingBorder() bool { return pa.reflectingBorder }
func (pa *PlayArea) Elasticity() float64 { return pa.elasticity }
func (pa *PlayArea) SetReflectingBorder(r bool) { pa.reflectingBorder = r }

// SetElasticity sets the coefficient of restitution, clamped to [0, 1].
func (pa *PlayArea) SetElasticity(e float64) {
	pa.elasticity = math.Min(math.Max(e, 0), 1)
}

func (pa *PlayArea) IsBallTouchingLeft(b *Ball) bool {
	return b.Left() <= pa.bounds.Left+touchingEpsilon
}

func (pa *PlayArea) IsBallTouchingRight(b *Ball) bool {
	return b.Right() >= pa.bounds.Right-touchingEpsilon
}

func (pa *PlayArea) IsBallTouchingBottom(b *Ball) bool {
	return b.Bottom() <= pa.bounds.Bottom+touchingEpsilon
}

func (pa *PlayArea) IsBallTouchingTop(b *Ball) bool {
	return b.Top() >= pa.bounds.Top-touchingEpsilon
}

// FullyContainsBall reports whether the whole ball is inside the bounds.
func (pa *PlayArea) FullyContainsBall(b *Ball) bool {
	return b.Left() >= pa.bounds.Left-touchingEpsilon &&
		b.Right() <= pa.bounds.Right+touchingEpsilon &&
		b.Bottom() >= pa.bounds.Bottom-touchingEpsilon &&
		b.Top() <= pa.bounds.Top+touchingEpsilon
}

// ClampPosition returns the position closest to p at which a ball of the
// given radius fits inside the bounds.
func (pa *PlayArea) ClampPosition(p Vec2, radius float64) Vec2 {
	return Vec2{
		X: clampInto(p.X, pa.bounds.Left+radius, pa.bounds.Right-radius),
		Y: clampInto(p.Y, pa.bounds.Bottom+radius, pa.bounds.Top-radius),
	}
}

// BumpBallIntoPlayArea moves a ball that sticks out of the bounds back inside.
func (pa *PlayArea) BumpBallIntoPlayArea(b *Ball) {
	b.Position = pa.ClampPosition(b.Position, b.Radius)
}

// clampInto clamps v into [lo, hi]; a range too small for the ball collapses to its middle.
func clampInto(v, lo, hi float64) float64 {
	if lo > hi {
		return (lo + hi) / 2
	}
	return math.Min(math.Max(v, lo), hi)
}

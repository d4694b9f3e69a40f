package lab

import "github.com/playmatatu/collisionlab/internal/physics"

// placeBall moves b toward target, keeping it inside the play area. When the
// target overlaps another ball, b stops at the last free point on the straight
// path from its current position.
func (l *Lab) placeBall(b *physics.Ball, target physics.Vec2) {
	target = l.area.ClampPosition(target, b.Radius)
	start := b.Position

	if !l.overlapsAt(b, target) {
		b.Position = target
		return
	}
	if l.overlapsAt(b, start) {
		b.Position = target
		l.separate(b)
		return
	}

	along := func(s float64) physics.Vec2 {
		return start.Plus(target.Minus(start).Times(s))
	}
	s := physics.Bisection(func(s float64) int {
		if l.overlapsAt(b, along(s)) {
			return 1
		}
		if s+placementTolerance >= 1 || l.overlapsAt(b, along(s+placementTolerance)) {
			return 0
		}
		return -1
	}, 0, 1, physics.DefaultBisectionIterations)

	if p := along(s); !l.overlapsAt(b, p) {
		b.Position = p
	}
}

// separate pushes b out of any ball it overlaps, then back inside the play area.
func (l *Lab) separate(b *physics.Ball) {
	for attempt := 0; attempt < separationAttempts; attempt++ {
		moved := false
		for _, o := range l.system.Balls() {
			if o == b || !b.Overlaps(o, overlapEpsilon) {
				continue
			}
			away := b.Position.Minus(o.Position).Normalize()
			if away.IsZero() {
				away = physics.NewVec2(1, 0)
			}
			b.Position = o.Position.Plus(away.Times(b.Radius + o.Radius + overlapEpsilon))
			l.area.BumpBallIntoPlayArea(b)
			moved = true
		}
		if !moved {
			return
		}
	}
}

func (l *Lab) overlapsAt(b *physics.Ball, p physics.Vec2) bool {
	for _, o := range l.system.Balls() {
		if o == b {
			continue
		}
		sum := b.Radius + o.Radius - overlapEpsilon
		if p.Minus(o.Position).MagnitudeSquared() < sum*sum {
			return true
		}
	}
	return false
}

package physics

import (
	"fmt"
	"math"
)

// BallSource is the set of balls the engine moves.
type BallSource interface {
	Balls() []*Ball
	AdvanceUniformly(dt, elapsedTime float64)
}

// Border is the play area as seen by the engine.
type Border interface {
	ReflectingBorder() bool
	Elasticity() float64
	Bounds() Bounds
	IsBallTouchingLeft(b *Ball) bool
	IsBallTouchingRight(b *Ball) bool
	IsBallTouchingBottom(b *Ball) bool
	IsBallTouchingTop(b *Ball) bool
}

// StepStats describes what the last Step did.
type StepStats struct {
	Iterations       int  `json:"iterations"`
	BallCollisions   int  `json:"ball_collisions"`
	BorderCollisions int  `json:"border_collisions"`
	Exhausted        bool `json:"exhausted"`
}

// CollisionEngine predicts collisions ahead of time and resolves them in
// chronological order. It is not safe for concurrent use.
type CollisionEngine struct {
	balls  BallSource
	border Border
	pool   *CollisionPool

	live           []CollisionHandle
	index          map[pairKey]CollisionHandle
	pendingDispose []CollisionHandle
	batch          []CollisionHandle

	direction float64 // sign of the previous step, 0 before the first one
	stats     StepStats
}

func NewCollisionEngine(balls BallSource, border Border) *CollisionEngine {
	// one record per ball pair plus one per ball for the border
	capacity := MaxBalls*(MaxBalls-1)/2 + MaxBalls
	return &CollisionEngine{
		balls:  balls,
		border: border,
		pool:   NewCollisionPool(capacity),
		live:   make([]CollisionHandle, 0, capacity),
		index:  make(map[pairKey]CollisionHandle, capacity),
	}
}

// Step advances the balls by dt starting at elapsedTime, resolving every
// collision on the way. A negative dt runs time backward. At most
// maxIterations collision batches are resolved; past that the rest of the
// step is dropped.
func (e *CollisionEngine) Step(dt, elapsedTime float64, maxIterations int) {
	if !isFinite(dt) {
		panic(fmt.Sprintf("physics: step dt must be finite, got %v", dt))
	}
	if !isFinite(elapsedTime) || elapsedTime < 0 {
		panic(fmt.Sprintf("physics: elapsed time must be finite and non-negative, got %v", elapsedTime))
	}
	if maxIterations <= 0 {
		panic(fmt.Sprintf("physics: maxIterations must be positive, got %d", maxIterations))
	}
	if dt < 0 && !(e.border.Elasticity() > 0) {
		panic("physics: cannot rewind with zero elasticity")
	}

	e.stats = StepStats{}
	if dt == 0 {
		return
	}

	direction := 1.0
	if dt < 0 {
		direction = -1.0
	}
	// Predictions only hold for the direction they were made in.
	if direction != e.direction {
		e.Reset()
		e.direction = direction
	}

	for i := 0; i < maxIterations; i++ {
		e.stats.Iterations++
		e.DetectAllCollisions(elapsedTime, direction)

		batch, collisionTime, found := e.nextCollisions(elapsedTime, elapsedTime+dt*(1+stepEndSlack))
		if !found {
			e.balls.AdvanceUniformly(dt, elapsedTime+dt)
			e.flushDisposals()
			return
		}

		collisionTime = math.Max(collisionTime, 0)
		timeUntilCollision := collisionTime - elapsedTime
		e.balls.AdvanceUniformly(timeUntilCollision, collisionTime)

		for _, h := range batch {
			e.handleCollision(e.pool.Get(h), direction)
		}

		// A collision picked up in the slack past the step end leaves no time
		// to run; only contacts at this same instant are still resolved.
		dt -= timeUntilCollision
		if dt*direction < 0 {
			dt = 0
		}
		elapsedTime = collisionTime
		e.flushDisposals()
	}
	e.stats.Exhausted = true
}

// Reset disposes every outstanding prediction.
func (e *CollisionEngine) Reset() {
	e.pendingDispose = append(e.pendingDispose, e.live...)
	e.live = e.live[:0]
	clear(e.index)
	e.flushDisposals()
	e.direction = 0
}

// InvalidateCollisions discards every prediction involving the ball. Call it
// whenever the ball is moved or its velocity, mass or radius is edited.
func (e *CollisionEngine) InvalidateCollisions(b *Ball) {
	e.invalidateCollisions(b)
	e.flushDisposals()
}

// LiveCount returns the size of the working set.
func (e *CollisionEngine) LiveCount() int { return len(e.live) }

// LastStep returns the statistics of the most recent Step.
func (e *CollisionEngine) LastStep() StepStats { return e.stats }

func (e *CollisionEngine) Pool() *CollisionPool { return e.pool }

// Predictions calls f for each live prediction.
func (e *CollisionEngine) Predictions(f func(c *Collision)) {
	for _, h := range e.live {
		f(e.pool.Get(h))
	}
}

// NextCollisionTime returns the predicted collision time closest to
// elapsedTime in the direction of the previous step.
func (e *CollisionEngine) NextCollisionTime(elapsedTime float64) (float64, bool) {
	direction := e.direction
	if direction == 0 {
		direction = 1
	}
	best, found := 0.0, false
	for _, h := range e.live {
		t, ok := e.pool.Get(h).Time()
		if !ok || (t-elapsedTime)*direction < 0 {
			continue
		}
		if !found || math.Abs(t-elapsedTime) < math.Abs(best-elapsedTime) {
			best, found = t, true
		}
	}
	return best, found
}

// DetectAllCollisions predicts contacts for every pair and ball-wall that has
// no outstanding prediction. Calling it again without a state change is a no-op.
func (e *CollisionEngine) DetectAllCollisions(elapsedTime, direction float64) {
	e.detectBallToBallCollisions(elapsedTime, direction)
	e.detectBallToBorderCollisions(elapsedTime, direction)
}

func (e *CollisionEngine) detectBallToBallCollisions(elapsedTime, direction float64) {
	ForEachPossiblePair(e.balls.Balls(), func(a, b *Ball) {
		if e.hasPrediction(a, b) {
			return
		}
		if t, ok := ballToBallContactTime(a, b, direction); ok {
			e.register(KindBallBall, a, b, elapsedTime+t*direction, true)
		} else {
			e.register(KindBallBall, a, b, 0, false)
		}
	})
}

// ballToBallContactTime returns how long until the two balls touch, measured
// in the direction of time. The contact is where |dr + dv*t| = rA + rB.
func ballToBallContactTime(a, b *Ball, direction float64) (float64, bool) {
	deltaR := b.Position.Minus(a.Position)
	deltaV := b.Velocity.Minus(a.Velocity).Times(direction)

	speedSquared := deltaV.MagnitudeSquared()
	if speedSquared == 0 {
		return 0, false
	}

	relativeDot := deltaV.Dot(deltaR)
	if math.Abs(relativeDot) < parallelDotThreshold {
		return 0, false
	}

	sumRadii := a.Radius + b.Radius
	gap := ClampToZeroBelow(deltaR.MagnitudeSquared()-sumRadii*sumRadii, overlapClampThreshold)

	roots := SolveQuadraticRealRoots(speedSquared, 2*relativeDot, gap)
	if len(roots) == 0 {
		return 0, false
	}
	t := roots[0]
	if !isFinite(t) || t < 0 {
		return 0, false
	}
	return t, true
}

func (e *CollisionEngine) detectBallToBorderCollisions(elapsedTime, direction float64) {
	if !e.border.ReflectingBorder() {
		return
	}
	bounds := e.border.Bounds()
	for _, b := range e.balls.Balls() {
		if e.hasPrediction(b, nil) {
			continue
		}
		if t, ok := ballToBorderContactTime(b, bounds, direction); ok {
			e.register(KindBallBorder, b, nil, elapsedTime+t*direction, true)
		} else {
			e.register(KindBallBorder, b, nil, 0, false)
		}
	}
}

// ballToBorderContactTime returns how long until the ball reaches the first wall
// it is moving toward.
func ballToBorderContactTime(b *Ball, bounds Bounds, direction float64) (float64, bool) {
	v := b.Velocity.Times(direction)

	tx := axisContactTime(bounds.Left+b.Radius-b.Position.X, bounds.Right-b.Radius-b.Position.X, v.X)
	ty := axisContactTime(bounds.Bottom+b.Radius-b.Position.Y, bounds.Top-b.Radius-b.Position.Y, v.Y)

	t := math.Min(tx, ty)
	if !isFinite(t) || t < 0 {
		return 0, false
	}
	return t, true
}

// axisContactTime picks, of the two walls on one axis, the one the ball is
// moving toward. Offsets are wall minus center, reduced by the radius.
// A ball already past that wall touches it now.
func axisContactTime(lowOffset, highOffset, v float64) float64 {
	if v == 0 {
		return math.Inf(1)
	}
	offset := highOffset
	if v < 0 {
		offset = lowOffset
	}
	return math.Max(ClampToZeroBelow(offset, borderClampThreshold)/v, 0)
}

// nextCollisions collects the live predictions inside [from, to] that are
// closest to from. Predictions at exactly the same time are returned together.
func (e *CollisionEngine) nextCollisions(from, to float64) ([]CollisionHandle, float64, bool) {
	e.batch = e.batch[:0]
	var bestTime, bestDistance float64
	for _, h := range e.live {
		c := e.pool.Get(h)
		if !c.IsWithin(from, to) {
			continue
		}
		t, _ := c.Time()
		distance := math.Abs(t - from)
		switch {
		case len(e.batch) == 0 || distance < bestDistance:
			e.batch = append(e.batch[:0], h)
			bestTime, bestDistance = t, distance
		case t == bestTime:
			e.batch = append(e.batch, h)
		}
	}
	return e.batch, bestTime, len(e.batch) > 0
}

// handleCollision resolves one contact. direction is the sign of the whole
// step, not of the time left in it.
func (e *CollisionEngine) handleCollision(c *Collision, direction float64) {
	switch c.Kind() {
	case KindBallBorder:
		e.handleBallToBorderCollision(c.BallA(), direction)
		e.stats.BorderCollisions++
	case KindBallBall:
		e.handleBallToBallCollision(c.BallA(), c.BallB(), direction)
		e.stats.BallCollisions++
	}
}

// handleBallToBallCollision applies the 1-D restitution formula along the line
// of centers and keeps the tangential components.
func (e *CollisionEngine) handleBallToBallCollision(a, b *Ball, direction float64) {
	elasticity := e.restitution(direction)

	normal := b.Position.Minus(a.Position).Normalize()
	if normal.IsZero() {
		// coincident centers have no line of impact
		e.invalidateCollisions(a)
		e.invalidateCollisions(b)
		return
	}
	tangent := normal.Perpendicular()

	v1n, v1t := a.Velocity.Dot(normal), a.Velocity.Dot(tangent)
	v2n, v2t := b.Velocity.Dot(normal), b.Velocity.Dot(tangent)
	m1, m2 := a.Mass, b.Mass

	v1nAfter := ((m1-m2*elasticity)*v1n + m2*(1+elasticity)*v2n) / (m1 + m2)
	v2nAfter := ((m2-m1*elasticity)*v2n + m1*(1+elasticity)*v1n) / (m1 + m2)

	v1nAfter = ClampToZeroBelow(v1nAfter, velocitySnapThreshold)
	v2nAfter = ClampToZeroBelow(v2nAfter, velocitySnapThreshold)

	a.Velocity = normal.Times(v1nAfter).Plus(tangent.Times(v1t))
	b.Velocity = normal.Times(v2nAfter).Plus(tangent.Times(v2t))

	e.invalidateCollisions(a)
	e.invalidateCollisions(b)
}

// handleBallToBorderCollision reflects each velocity component that points
// into a wall the ball touches. Axes are independent, so a ball in a corner
// bounces off both walls.
func (e *CollisionEngine) handleBallToBorderCollision(b *Ball, direction float64) {
	elasticity := e.restitution(direction)
	v := b.Velocity.Times(direction)

	if (e.border.IsBallTouchingLeft(b) && v.X < 0) || (e.border.IsBallTouchingRight(b) && v.X > 0) {
		b.Velocity.X = -b.Velocity.X * elasticity
	}
	if (e.border.IsBallTouchingBottom(b) && v.Y < 0) || (e.border.IsBallTouchingTop(b) && v.Y > 0) {
		b.Velocity.Y = -b.Velocity.Y * elasticity
	}

	e.invalidateCollisions(b)
}

// restitution is the elasticity to apply in the given time direction. Running
// time backward undoes a collision, which divides by the elasticity instead.
func (e *CollisionEngine) restitution(direction float64) float64 {
	elasticity := e.border.Elasticity()
	if direction < 0 {
		if !(elasticity > 0) {
			panic("physics: cannot rewind with zero elasticity")
		}
		return 1 / elasticity
	}
	return elasticity
}

func (e *CollisionEngine) hasPrediction(a, b *Ball) bool {
	_, ok := e.index[keyFor(a, b)]
	return ok
}

func (e *CollisionEngine) register(kind CollisionKind, a, b *Ball, time float64, hasTime bool) {
	h := e.pool.Create(kind, a, b, time, hasTime)
	e.live = append(e.live, h)
	e.index[keyFor(a, b)] = h
}

// invalidateCollisions moves every live prediction involving the ball to the
// disposal queue. The queue is flushed by the caller once it is done with the
// current pass.
func (e *CollisionEngine) invalidateCollisions(b *Ball) {
	kept := e.live[:0]
	for _, h := range e.live {
		c := e.pool.Get(h)
		if c.Involves(b) {
			delete(e.index, keyFor(c.BallA(), c.BallB()))
			e.pendingDispose = append(e.pendingDispose, h)
			continue
		}
		kept = append(kept, h)
	}
	e.live = kept
}

func (e *CollisionEngine) flushDisposals() {
	for _, h := range e.pendingDispose {
		e.pool.Dispose(h)
	}
	e.pendingDispose = e.pendingDispose[:0]
}

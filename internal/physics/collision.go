package physics

import (
	"fmt"
	"math"
)

// CollisionKind tells which response a predicted collision needs.
type CollisionKind uint8

const (
	KindBallBall CollisionKind = iota
	KindBallBorder
)

func (k CollisionKind) String() string {
	switch k {
	case KindBallBall:
		return "ball"
	case KindBallBorder:
		return "border"
	default:
		return fmt.Sprintf("CollisionKind(%d)", uint8(k))
	}
}

// Collision is a predicted collision between two balls, or between a ball
// and the play area border. It does not change once created; a record whose
// participants change kinematics is disposed and predicted again.
type Collision struct {
	kind    CollisionKind
	ballA   *Ball
	ballB   *Ball // nil for border collisions
	time    float64
	hasTime bool
	inUse   bool
}

func (c *Collision) Kind() CollisionKind { return c.kind }
func (c *Collision) BallA() *Ball { return c.ballA }
func (c *Collision) BallB() *Ball { return c.ballB }

// Time returns the absolute simulation time of the collision. ok is false when
// the participants will not collide given their current kinematics.
func (c *Collision) Time() (t float64, ok bool) {
	return c.time, c.hasTime
}

// Involves reports whether the ball takes part in the collision.
func (c *Collision) Involves(b *Ball) bool {
	return c.ballA == b || (c.ballB != nil && c.ballB == b)
}

// InvolvesBoth reports whether the collision is between a and b, in either
// order. A border collision is matched with InvolvesBoth(ball, nil).
func (c *Collision) InvolvesBoth(a, b *Ball) bool {
	return (c.ballA == a && c.ballB == b) || (c.ballA == b && c.ballB == a)
}

// IsWithin reports whether the collision time is known and lies between t1
// and t2 inclusive, in whichever order the bounds are given.
func (c *Collision) IsWithin(t1, t2 float64) bool {
	if !c.hasTime || !isFinite(c.time) {
		return false
	}
	return c.time >= math.Min(t1, t2) && c.time <= math.Max(t1, t2)
}

// CollisionHandle addresses a record in a CollisionPool.
type CollisionHandle int32

// CollisionPool is a slab of collision records with a free list, so
// predictions churned every frame reuse the same memory.
type CollisionPool struct {
	records  []Collision
	free     []CollisionHandle
	created  int
	disposed int
}

func NewCollisionPool(capacity int) *CollisionPool {
	return &CollisionPool{
		records: make([]Collision, 0, capacity),
		free:    make([]CollisionHandle, 0, capacity),
	}
}

// Create initializes a record and returns its handle. hasTime false records
// a pair that will not collide.
func (p *CollisionPool) Create(kind CollisionKind, a, b *Ball, time float64, hasTime bool) CollisionHandle {
	if a == nil {
		panic("physics: collision needs a first ball")
	}
	if (kind == KindBallBorder) != (b == nil) {
		panic(fmt.Sprintf("physics: %s collision with mismatched participants", kind))
	}
	if hasTime && math.IsNaN(time) {
		panic("physics: collision time is NaN")
	}

	var h CollisionHandle
	if n := len(p.free); n > 0 {
		h = p.free[n-1]
		p.free = p.free[:n-1]
	} else {
		p.records = append(p.records, Collision{})
		h = CollisionHandle(len(p.records) - 1)
	}

	p.records[h] = Collision{
		kind:    kind,
		ballA:   a,
		ballB:   b,
		time:    time,
		hasTime: hasTime,
		inUse:   true,
	}
	p.created++
	return h
}

// Get returns the record for a live handle.
func (p *CollisionPool) Get(h CollisionHandle) *Collision {
	c := &p.records[h]
	if !c.inUse {
		panic(fmt.Sprintf("physics: collision handle %d used after dispose", h))
	}
	return c
}

// Dispose clears the record and returns it to the free list. Each handle must
// be disposed exactly once.
func (p *CollisionPool) Dispose(h CollisionHandle) {
	c := &p.records[h]
	if !c.inUse {
		panic(fmt.Sprintf("physics: collision handle %d disposed twice", h))
	}
	*c = Collision{}
	p.free = append(p.free, h)
	p.disposed++
}

// Live returns the number of records currently in use.
func (p *CollisionPool) Live() int { return p.created - p.disposed }

// Created returns how many records were ever created.
func (p *CollisionPool) Created() int { return p.created }

// Disposed returns how many records were ever disposed.
func (p *CollisionPool) Disposed() int { return p.disposed }

// Slots returns the number of slots allocated by the slab.
func (p *CollisionPool) Slots() int { return len(p.records) }

// pairKey identifies a ball pair, or a ball and the border when hi is -1.
type pairKey struct {
	lo, hi int
}

func keyFor(a, b *Ball) pairKey {
	if b == nil {
		return pairKey{lo: a.Index, hi: -1}
	}
	if a.Index < b.Index {
		return pairKey{lo: a.Index, hi: b.Index}
	}
	return pairKey{lo: b.Index, hi: a.Index}
}

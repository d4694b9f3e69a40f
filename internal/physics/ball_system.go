package physics

import (
	"fmt"
	"math"
)

// Ball is a moving circular body. The engine only mutates Position and Velocity.
type Ball struct {
	Index    int     `json:"index"`
	Position Vec2    `json:"position"`
	Velocity Vec2    `json:"velocity"`
	Radius   float64 `json:"radius"`
	Mass     float64 `json:"mass"`
}

func (b *Ball) Left() float64 { return b.Position.X - b.Radius }
func (b *Ball) Right() float64 { return b.Position.X + b.Radius }
func (b *Ball) Bottom() float64 { return b.Position.Y - b.Radius }
func (b *Ball) Top() float64 { return b.Position.Y + b.Radius }

func (b *Ball) Momentum() Vec2 {
	return b.Velocity.Times(b.Mass)
}

func (b *Ball) KineticEnergy() float64 {
	return 0.5 * b.Mass * b.Velocity.MagnitudeSquared()
}

// Overlaps reports whether the two balls interpenetrate by more than epsilon.
func (b *Ball) Overlaps(o *Ball, epsilon float64) bool {
	sum := b.Radius + o.Radius
	return b.Position.Minus(o.Position).MagnitudeSquared() < (sum-epsilon)*(sum-epsilon)
}

// BallValues is the initial configuration of one ball.
type BallValues struct {
	Mass     float64 `json:"mass"`
	Position Vec2    `json:"position"`
	Velocity Vec2    `json:"velocity"`
}

// RadiusFor returns the radius of a ball of the given mass. In constant-size
// mode every ball has ConstantRadius, otherwise the radius of a uniform
// sphere of BallDensity.
func RadiusFor(mass float64, constantSize bool) float64 {
	if constantSize {
		return ConstantRadius
	}
	return math.Cbrt(3 * mass / (4 * math.Pi * BallDensity))
}

// BallSystem owns every ball of a lab. All balls are allocated up front and
// the first count of them are active.
type BallSystem struct {
	balls        []*Ball
	initial      []BallValues
	count        int
	constantSize bool
	elapsedTime  float64
}

// NewBallSystem pre-allocates one ball per initial value and activates the
// first count of them.
func NewBallSystem(initial []BallValues, count int, constantSize bool) *BallSystem {
	if len(initial) == 0 || len(initial) > MaxBalls {
		panic(fmt.Sprintf("physics: ball system needs 1..%d initial values, got %d", MaxBalls, len(initial)))
	}
	s := &BallSystem{
		balls:        make([]*Ball, len(initial)),
		initial:      append([]BallValues(nil), initial...),
		constantSize: constantSize,
	}
	for i := range s.balls {
		s.balls[i] = &Ball{Index: i}
		s.restoreBall(i)
	}
	s.SetBallCount(count)
	return s
}

// Balls returns the active balls ordered by index.
func (s *BallSystem) Balls() []*Ball {
	return s.balls[:s.count]
}

// Ball returns the active ball with the given index, or nil.
func (s *BallSystem) Ball(index int) *Ball {
	if index < 0 || index >= s.count {
		return nil
	}
	return s.balls[index]
}

func (s *BallSystem) Count() int { return s.count }
func (s *BallSystem) Capacity() int { return len(s.balls) }
func (s *BallSystem) ConstantSize() bool { return s.constantSize }
func (s *BallSystem) ElapsedTime() float64 {
	return s.elapsedTime
}

// SetBallCount activates the first n balls. Balls that become active again
// start from their initial values.
func (s *BallSystem) SetBallCount(n int) {
	if n < 1 || n > len(s.balls) {
		panic(fmt.Sprintf("physics: ball count %d out of range 1..%d", n, len(s.balls)))
	}
	for i := s.count; i < n; i++ {
		s.restoreBall(i)
	}
	s.count = n
	s.checkOrder()
}

// SetConstantSize switches every ball between constant radius and mass-derived radius.
func (s *BallSystem) SetConstantSize(constantSize bool) {
	s.constantSize = constantSize
	for _, b := range s.balls {
		b.Radius = RadiusFor(b.Mass, constantSize)
	}
}

// SetMass changes a ball's mass and the radius that follows from it.
func (s *BallSystem) SetMass(b *Ball, mass float64) {
	b.Mass = mass
	b.Radius = RadiusFor(mass, s.constantSize)
}

// AdvanceUniformly moves every active ball along its velocity for dt, with no
// collision handling. elapsedTime is the simulation time at the end of the move.
func (s *BallSystem) AdvanceUniformly(dt, elapsedTime float64) {
	for _, b := range s.Balls() {
		b.Position = b.Position.Plus(b.Velocity.Times(dt))
	}
	s.elapsedTime = elapsedTime
}

// RestoreInitialState puts every ball back at its initial values.
func (s *BallSystem) RestoreInitialState() {
	for i := range s.balls {
		s.restoreBall(i)
	}
	s.elapsedTime = 0
}

// SaveInitialState makes the current kinematics of the active balls the new
// initial values. Used when balls are edited before the simulation starts.
func (s *BallSystem) SaveInitialState() {
	for _, b := range s.Balls() {
		s.initial[b.Index] = BallValues{Mass: b.Mass, Position: b.Position, Velocity: b.Velocity}
	}
}

func (s *BallSystem) InitialValues() []BallValues {
	return append([]BallValues(nil), s.initial...)
}

func (s *BallSystem) TotalMomentum() Vec2 {
	var p Vec2
	for _, b := range s.Balls() {
		p = p.Plus(b.Momentum())
	}
	return p
}

func (s *BallSystem) TotalKineticEnergy() float64 {
	var ke float64
	for _, b := range s.Balls() {
		ke += b.KineticEnergy()
	}
	return ke
}

func (s *BallSystem) CenterOfMass() Vec2 {
	var weighted Vec2
	var total float64
	for _, b := range s.Balls() {
		weighted = weighted.Plus(b.Position.Times(b.Mass))
		total += b.Mass
	}
	if total == 0 {
		return Vec2{}
	}
	return weighted.Times(1 / total)
}

func (s *BallSystem) restoreBall(i int) {
	v := s.initial[i]
	b := s.balls[i]
	b.Position = v.Position
	b.Velocity = v.Velocity
	b.Mass = v.Mass
	b.Radius = RadiusFor(v.Mass, s.constantSize)
}

func (s *BallSystem) checkOrder() {
	ForEachAdjacentPair(s.Balls(), func(current, previous *Ball) {
		if current.Index <= previous.Index {
			panic(fmt.Sprintf("physics: balls out of order (%d after %d)", current.Index, previous.Index))
		}
	})
}

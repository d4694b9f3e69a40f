package lab

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/playmatatu/collisionlab/internal/physics"
)

var (
	ErrLabNotFound      = errors.New("lab not found")
	ErrInvalidBallIndex = errors.New("invalid ball index")
	ErrInvalidValue     = errors.New("value out of range")
	ErrRewindInelastic  = errors.New("cannot step backward with zero elasticity")
	ErrTooManyLabs      = errors.New("too many active labs")
	ErrUnknownPreset    = errors.New("unknown preset")
)

// Speed scales wall-clock time into simulation time while playing.
type Speed float64

const (
	SpeedNormal Speed = 1
	SpeedSlow   Speed = 0.25
)

const (
	// StepDuration is the simulation time covered by one manual step.
	StepDuration = 1.0 / 60
	// GridInterval is the spacing drag positions snap to when snapping is on.
	GridInterval = 0.1

	overlapEpsilon     = 1e-9
	placementTolerance = 1e-4
	separationAttempts = 20
)

// Settings are the user-controlled parameters of a lab.
type Settings struct {
	BallCount        int     `json:"ball_count"`
	Elasticity       float64 `json:"elasticity"`
	ReflectingBorder bool    `json:"reflecting_border"`
	ConstantSize     bool    `json:"constant_size"`
	SnapToGrid       bool    `json:"snap_to_grid"`
	Speed            Speed   `json:"speed"`
}

// BallState is the serialized state of one ball.
type BallState struct {
	Index  int     `json:"index"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	VX     float64 `json:"vx"`
	VY     float64 `json:"vy"`
	Radius float64 `json:"radius"`
	Mass   float64 `json:"mass"`
}

// Snapshot is a consistent view of a lab taken between steps.
type Snapshot struct {
	Token         string            `json:"token"`
	Preset        string            `json:"preset"`
	ElapsedTime   float64           `json:"elapsed_time"`
	Playing       bool              `json:"playing"`
	Settings      Settings          `json:"settings"`
	Bounds        physics.Bounds    `json:"bounds"`
	Balls         []BallState       `json:"balls"`
	TotalMomentum physics.Vec2      `json:"total_momentum"`
	KineticEnergy float64           `json:"kinetic_energy"`
	CenterOfMass  physics.Vec2      `json:"center_of_mass"`
	Predictions   int               `json:"predictions"`
	NextCollision *float64          `json:"next_collision,omitempty"`
	LastStep      physics.StepStats `json:"last_step"`
}

// Lab is one running collision simulation. All methods are safe for
// concurrent use; a step always completes before any edit or read.
type Lab struct {
	ID        string
	Token     string
	CreatedAt time.Time

	system *physics.BallSystem
	area   *physics.PlayArea
	engine *physics.CollisionEngine

	preset        string
	elapsed       float64
	playing       bool
	speed         Speed
	snapToGrid    bool
	maxIterations int
	lastActive    time.Time

	listeners []func(Snapshot)
	mu        sync.Mutex
}

// New builds a lab from a preset. maxIterations bounds the collision
// batches resolved per step.
func New(id, token string, p Preset, maxIterations int) (*Lab, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if maxIterations <= 0 {
		maxIterations = physics.MaxIterations
	}

	system := physics.NewBallSystem(p.Balls, p.BallCount, p.ConstantSize)
	area := physics.NewPlayArea()
	area.SetElasticity(p.Elasticity)
	area.SetReflectingBorder(p.ReflectingBorder)

	now := time.Now()
	return &Lab{
		ID:            id,
		Token:         token,
		CreatedAt:     now,
		system:        system,
		area:          area,
		engine:        physics.NewCollisionEngine(system, area),
		preset:        p.Name,
		speed:         SpeedNormal,
		maxIterations: maxIterations,
		lastActive:    now,
	}, nil
}

// OnStateChanged registers a listener fired after every step, reset or edit.
// Listeners run outside the lab lock.
func (l *Lab) OnStateChanged(f func(Snapshot)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, f)
}

// Snapshot returns the current state.
func (l *Lab) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

func (l *Lab) IsPlaying() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.playing
}

func (l *Lab) LastActive() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastActive
}

// Advance moves a playing lab forward by wallDt seconds of wall-clock time,
// scaled by the lab speed. It reports whether anything was simulated.
func (l *Lab) Advance(wallDt float64) bool {
	stepped := false
	l.update(false, func() error {
		if !l.playing || wallDt <= 0 {
			return errSkip
		}
		l.stepLocked(wallDt * float64(l.speed))
		stepped = true
		return nil
	})
	return stepped
}

// Step runs the simulation by dt, which may be negative to rewind. A rewind
// stops at time zero.
func (l *Lab) Step(dt float64) error {
	return l.update(true, func() error {
		if math.IsNaN(dt) || math.IsInf(dt, 0) {
			return fmt.Errorf("%w: dt must be finite", ErrInvalidValue)
		}
		if dt < 0 {
			if !(l.area.Elasticity() > 0) {
				return ErrRewindInelastic
			}
			dt = math.Max(dt, -l.elapsed)
		}
		l.stepLocked(dt)
		return nil
	})
}

// StepForward pauses the lab and steps one frame forward.
func (l *Lab) StepForward() error {
	l.Pause()
	return l.Step(StepDuration)
}

// StepBackward pauses the lab and steps one frame backward.
func (l *Lab) StepBackward() error {
	l.Pause()
	return l.Step(-StepDuration)
}

func (l *Lab) Play() {
	l.update(true, func() error {
		l.playing = true
		return nil
	})
}

func (l *Lab) Pause() {
	l.update(true, func() error {
		if !l.playing {
			return errSkip
		}
		l.playing = false
		return nil
	})
}

// Reset restores the initial balls and rewinds the clock to zero.
func (l *Lab) Reset() {
	l.update(true, func() error {
		l.playing = false
		l.system.RestoreInitialState()
		l.elapsed = 0
		l.engine.Reset()
		return nil
	})
}

// SetBallCount changes how many balls take part. Added balls start from
// their initial values and are moved clear of the others.
func (l *Lab) SetBallCount(n int) error {
	return l.update(true, func() error {
		if n < 1 || n > l.system.Capacity() {
			return fmt.Errorf("%w: ball count %d out of range 1..%d", ErrInvalidValue, n, l.system.Capacity())
		}
		previous := l.system.Count()
		l.system.SetBallCount(n)
		for i := previous; i < n; i++ {
			b := l.system.Ball(i)
			l.area.BumpBallIntoPlayArea(b)
			l.separate(b)
		}
		l.engine.Reset()
		return nil
	})
}

// SetConstantSize switches between equal radii and radii that follow mass.
func (l *Lab) SetConstantSize(constantSize bool) error {
	return l.update(true, func() error {
		l.system.SetConstantSize(constantSize)
		for _, b := range l.system.Balls() {
			l.area.BumpBallIntoPlayArea(b)
			l.separate(b)
		}
		l.engine.Reset()
		return nil
	})
}

// SetReflectingBorder turns the walls on or off. Balls that drifted out while
// the walls were off are brought back inside.
func (l *Lab) SetReflectingBorder(reflecting bool) error {
	return l.update(true, func() error {
		l.area.SetReflectingBorder(reflecting)
		if reflecting {
			for _, b := range l.system.Balls() {
				l.area.BumpBallIntoPlayArea(b)
				l.separate(b)
			}
		}
		l.engine.Reset()
		return nil
	})
}

// SetElasticity changes the coefficient of restitution. Predictions do not
// depend on it, so nothing is invalidated.
func (l *Lab) SetElasticity(e float64) error {
	return l.update(true, func() error {
		if math.IsNaN(e) || e < 0 || e > 1 {
			return fmt.Errorf("%w: elasticity %v out of range [0,1]", ErrInvalidValue, e)
		}
		l.area.SetElasticity(e)
		return nil
	})
}

func (l *Lab) SetSpeed(s Speed) error {
	return l.update(true, func() error {
		if s != SpeedNormal && s != SpeedSlow {
			return fmt.Errorf("%w: speed %v", ErrInvalidValue, s)
		}
		l.speed = s
		return nil
	})
}

func (l *Lab) SetSnapToGrid(snap bool) {
	l.update(true, func() error {
		l.snapToGrid = snap
		return nil
	})
}

// MoveBall drags a ball toward pos. The ball stays inside the play area and
// stops short of any ball it would overlap on the way.
func (l *Lab) MoveBall(index int, pos physics.Vec2) error {
	return l.editBall(index, func(b *physics.Ball) error {
		if !pos.IsFinite() {
			return fmt.Errorf("%w: position must be finite", ErrInvalidValue)
		}
		if l.snapToGrid {
			pos = physics.NewVec2(physics.RoundToInterval(pos.X, GridInterval), physics.RoundToInterval(pos.Y, GridInterval))
		}
		l.placeBall(b, pos)
		return nil
	})
}

func (l *Lab) SetBallVelocity(index int, vel physics.Vec2) error {
	return l.editBall(index, func(b *physics.Ball) error {
		if !vel.IsFinite() {
			return fmt.Errorf("%w: velocity must be finite", ErrInvalidValue)
		}
		b.Velocity = vel
		return nil
	})
}

// SetBallMass changes a ball's mass. Outside constant-size mode the radius
// grows with it, so the ball is pushed clear of walls and other balls.
func (l *Lab) SetBallMass(index int, mass float64) error {
	return l.editBall(index, func(b *physics.Ball) error {
		if err := checkMass(mass); err != nil {
			return err
		}
		l.system.SetMass(b, mass)
		l.area.BumpBallIntoPlayArea(b)
		l.separate(b)
		return nil
	})
}

// editBall applies an edit to one ball and discards the predictions about it.
// Edits made before the simulation starts become the new initial state.
func (l *Lab) editBall(index int, edit func(b *physics.Ball) error) error {
	return l.update(true, func() error {
		b := l.system.Ball(index)
		if b == nil {
			return fmt.Errorf("%w: %d", ErrInvalidBallIndex, index)
		}
		if err := edit(b); err != nil {
			return err
		}
		l.engine.InvalidateCollisions(b)
		if l.elapsed == 0 {
			l.system.SaveInitialState()
		}
		return nil
	})
}

var errSkip = errors.New("skip")

// update runs fn under the lock and notifies listeners when fn succeeded.
// errSkip means nothing changed and is not reported to the caller.
func (l *Lab) update(touch bool, fn func() error) error {
	l.mu.Lock()
	err := fn()
	if touch {
		l.lastActive = time.Now()
	}
	if err != nil {
		l.mu.Unlock()
		if errors.Is(err, errSkip) {
			return nil
		}
		return err
	}
	snap := l.snapshotLocked()
	listeners := append(([]func(Snapshot))(nil), l.listeners...)
	l.mu.Unlock()

	for _, f := range listeners {
		f(snap)
	}
	return nil
}

func (l *Lab) stepLocked(dt float64) {
	l.engine.Step(dt, l.elapsed, l.maxIterations)
	l.elapsed = math.Max(l.system.ElapsedTime(), 0)
}

func (l *Lab) snapshotLocked() Snapshot {
	balls := l.system.Balls()
	states := make([]BallState, len(balls))
	for i, b := range balls {
		states[i] = BallState{
			Index:  b.Index,
			X:      b.Position.X,
			Y:      b.Position.Y,
			VX:     b.Velocity.X,
			VY:     b.Velocity.Y,
			Radius: b.Radius,
			Mass:   b.Mass,
		}
	}

	snap := Snapshot{
		Token:       l.Token,
		Preset:      l.preset,
		ElapsedTime: l.elapsed,
		Playing:     l.playing,
		Settings: Settings{
			BallCount:        l.system.Count(),
			Elasticity:       l.area.Elasticity(),
			ReflectingBorder: l.area.ReflectingBorder(),
			ConstantSize:     l.system.ConstantSize(),
			SnapToGrid:       l.snapToGrid,
			Speed:            l.speed,
		},
		Bounds:        l.area.Bounds(),
		Balls:         states,
		TotalMomentum: l.system.TotalMomentum(),
		KineticEnergy: l.system.TotalKineticEnergy(),
		CenterOfMass:  l.system.CenterOfMass(),
		Predictions:   l.engine.LiveCount(),
		LastStep:      l.engine.LastStep(),
	}
	if t, ok := l.engine.NextCollisionTime(l.elapsed); ok {
		snap.NextCollision = &t
	}
	return snap
}

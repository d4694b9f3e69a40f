package lab

import (
	"errors"
	"math"
	"testing"

	"github.com/playmatatu/collisionlab/internal/physics"
)

func newTestLab(t *testing.T, preset string) *Lab {
	t.Helper()
	p, ok := BuiltinPresets[preset]
	if !ok {
		t.Fatalf("no preset %q", preset)
	}
	l, err := New("lab_test", "token", p, 0)
	if err != nil {
		t.Fatalf("New(%q): %v", preset, err)
	}
	return l
}

func ballAt(s Snapshot, i int) physics.Vec2 {
	return physics.NewVec2(s.Balls[i].X, s.Balls[i].Y)
}

func TestStepForwardPausesAndAdvances(t *testing.T) {
	l := newTestLab(t, "head-on")
	l.Play()

	if err := l.StepForward(); err != nil {
		t.Fatalf("StepForward: %v", err)
	}
	s := l.Snapshot()
	if s.Playing {
		t.Errorf("stepping should pause the lab")
	}
	if math.Abs(s.ElapsedTime-StepDuration) > 1e-12 {
		t.Errorf("elapsed = %v, want %v", s.ElapsedTime, StepDuration)
	}
	if math.Abs(s.Balls[0].X-(-1+StepDuration)) > 1e-12 {
		t.Errorf("ball 0 at x=%v, want %v", s.Balls[0].X, -1+StepDuration)
	}
}

func TestStepBackwardStopsAtZero(t *testing.T) {
	l := newTestLab(t, "head-on")
	if err := l.StepBackward(); err != nil {
		t.Fatalf("StepBackward: %v", err)
	}
	s := l.Snapshot()
	if s.ElapsedTime != 0 {
		t.Errorf("elapsed = %v, want 0", s.ElapsedTime)
	}
	if s.Balls[0].X != -1 {
		t.Errorf("ball moved before time zero: x=%v", s.Balls[0].X)
	}
}

func TestRewindUndoesCollision(t *testing.T) {
	l := newTestLab(t, "head-on")
	before := l.Snapshot()

	// Contact at t=0.85.
	if err := l.Step(1); err != nil {
		t.Fatalf("Step(1): %v", err)
	}
	mid := l.Snapshot()
	if mid.LastStep.BallCollisions != 1 {
		t.Fatalf("expected the balls to collide, got %+v", mid.LastStep)
	}
	if mid.Balls[0].VX >= 0 || mid.Balls[1].VX <= 0 {
		t.Errorf("velocities not exchanged: %+v", mid.Balls)
	}

	if err := l.Step(-1); err != nil {
		t.Fatalf("Step(-1): %v", err)
	}
	after := l.Snapshot()
	if math.Abs(after.ElapsedTime) > 1e-9 {
		t.Errorf("elapsed = %v after rewind, want 0", after.ElapsedTime)
	}
	for i := range before.Balls {
		if !ballAt(after, i).EqualsEpsilon(ballAt(before, i), 1e-9) {
			t.Errorf("ball %d at %+v, want %+v", i, ballAt(after, i), ballAt(before, i))
		}
		if math.Abs(after.Balls[i].VX-before.Balls[i].VX) > 1e-9 {
			t.Errorf("ball %d vx=%v, want %v", i, after.Balls[i].VX, before.Balls[i].VX)
		}
	}
}

func TestRewindRefusedWithZeroElasticity(t *testing.T) {
	l := newTestLab(t, "head-on")
	if err := l.SetElasticity(0); err != nil {
		t.Fatalf("SetElasticity: %v", err)
	}
	if err := l.Step(0.5); err != nil {
		t.Fatalf("Step forward: %v", err)
	}
	if err := l.Step(-0.1); !errors.Is(err, ErrRewindInelastic) {
		t.Errorf("expected ErrRewindInelastic, got %v", err)
	}
	if math.Abs(l.Snapshot().ElapsedTime-0.5) > 1e-12 {
		t.Errorf("refused rewind changed the clock")
	}
}

func TestStepRejectsNonFinite(t *testing.T) {
	l := newTestLab(t, "head-on")
	if err := l.Step(math.NaN()); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("expected ErrInvalidValue for NaN, got %v", err)
	}
	if err := l.Step(math.Inf(1)); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("expected ErrInvalidValue for +Inf, got %v", err)
	}
}

func TestNewtonsCradleTransfersMomentum(t *testing.T) {
	l := newTestLab(t, "newtons-cradle")
	if err := l.Step(1); err != nil {
		t.Fatalf("Step: %v", err)
	}
	s := l.Snapshot()
	last := len(s.Balls) - 1
	for i, b := range s.Balls {
		want := 0.0
		if i == last {
			want = 1
		}
		if math.Abs(b.VX-want) > 1e-9 || math.Abs(b.VY) > 1e-9 {
			t.Errorf("ball %d velocity (%v,%v), want (%v,0)", i, b.VX, b.VY, want)
		}
	}
	if !s.TotalMomentum.EqualsEpsilon(physics.NewVec2(1, 0), 1e-9) {
		t.Errorf("momentum = %+v, want (1,0)", s.TotalMomentum)
	}
}

func TestResetRestoresInitialState(t *testing.T) {
	l := newTestLab(t, "billiards-break")
	before := l.Snapshot()
	l.Play()
	l.Advance(0.5)
	l.Reset()

	after := l.Snapshot()
	if after.Playing || after.ElapsedTime != 0 {
		t.Errorf("reset left playing=%v elapsed=%v", after.Playing, after.ElapsedTime)
	}
	for i := range before.Balls {
		if before.Balls[i] != after.Balls[i] {
			t.Errorf("ball %d = %+v, want %+v", i, after.Balls[i], before.Balls[i])
		}
	}
}

func TestAdvanceOnlyWhilePlaying(t *testing.T) {
	l := newTestLab(t, "head-on")
	if l.Advance(0.1) {
		t.Errorf("paused lab should not advance")
	}

	l.Play()
	if !l.Advance(0.1) {
		t.Fatalf("playing lab should advance")
	}
	if math.Abs(l.Snapshot().ElapsedTime-0.1) > 1e-12 {
		t.Errorf("elapsed = %v, want 0.1", l.Snapshot().ElapsedTime)
	}

	if err := l.SetSpeed(SpeedSlow); err != nil {
		t.Fatalf("SetSpeed: %v", err)
	}
	l.Advance(0.1)
	if math.Abs(l.Snapshot().ElapsedTime-0.125) > 1e-12 {
		t.Errorf("elapsed = %v at slow speed, want 0.125", l.Snapshot().ElapsedTime)
	}
	if err := l.SetSpeed(3); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("expected ErrInvalidValue for speed 3, got %v", err)
	}
}

func TestMoveBallStopsBeforeOverlap(t *testing.T) {
	l := newTestLab(t, "head-on")
	if err := l.MoveBall(0, physics.NewVec2(1, 0)); err != nil {
		t.Fatalf("MoveBall: %v", err)
	}
	s := l.Snapshot()
	x := s.Balls[0].X
	// Ball 1 sits at x=1; with radii 0.15 contact is at x=0.7.
	if x > 0.7+1e-9 || x < 0.69 {
		t.Errorf("dragged ball stopped at x=%v, want just short of 0.7", x)
	}
	if ballAt(s, 0).Distance(ballAt(s, 1)) < 0.3-1e-9 {
		t.Errorf("dragged ball overlaps: distance %v", ballAt(s, 0).Distance(ballAt(s, 1)))
	}
}

func TestMoveBallClampsAndSnaps(t *testing.T) {
	l := newTestLab(t, "head-on")
	if err := l.MoveBall(0, physics.NewVec2(-5, 3)); err != nil {
		t.Fatalf("MoveBall: %v", err)
	}
	if got := ballAt(l.Snapshot(), 0); !got.EqualsEpsilon(physics.NewVec2(-1.45, 0.85), 1e-12) {
		t.Errorf("clamped position = %+v, want (-1.45,0.85)", got)
	}

	l.SetSnapToGrid(true)
	if err := l.MoveBall(0, physics.NewVec2(-0.43, 0.27)); err != nil {
		t.Fatalf("MoveBall: %v", err)
	}
	if got := ballAt(l.Snapshot(), 0); !got.EqualsEpsilon(physics.NewVec2(-0.4, 0.3), 1e-9) {
		t.Errorf("snapped position = %+v, want (-0.4,0.3)", got)
	}
}

func TestEditBeforeStartBecomesInitialState(t *testing.T) {
	l := newTestLab(t, "head-on")
	if err := l.SetBallVelocity(0, physics.NewVec2(2, 0.5)); err != nil {
		t.Fatalf("SetBallVelocity: %v", err)
	}
	l.Reset()
	s := l.Snapshot()
	if s.Balls[0].VX != 2 || s.Balls[0].VY != 0.5 {
		t.Errorf("edit before start was lost on reset: %+v", s.Balls[0])
	}

	// After the clock started, edits are not kept across reset.
	l.Step(0.1)
	l.SetBallVelocity(0, physics.NewVec2(-3, 0))
	l.Reset()
	if s := l.Snapshot(); s.Balls[0].VX != 2 {
		t.Errorf("edit after start should not change the initial state: %+v", s.Balls[0])
	}
}

func TestBallEditsValidate(t *testing.T) {
	l := newTestLab(t, "head-on")
	if err := l.SetBallVelocity(4, physics.NewVec2(1, 0)); !errors.Is(err, ErrInvalidBallIndex) {
		t.Errorf("expected ErrInvalidBallIndex, got %v", err)
	}
	if err := l.SetBallMass(0, 10); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("expected ErrInvalidValue for mass 10, got %v", err)
	}
	if err := l.SetBallVelocity(0, physics.NewVec2(math.Inf(1), 0)); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("expected ErrInvalidValue for infinite velocity, got %v", err)
	}
	if err := l.SetElasticity(1.5); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("expected ErrInvalidValue for elasticity 1.5, got %v", err)
	}
}

func TestSetBallCountKeepsBallsApart(t *testing.T) {
	l := newTestLab(t, "default")
	if err := l.SetBallCount(5); err != nil {
		t.Fatalf("SetBallCount: %v", err)
	}
	s := l.Snapshot()
	if len(s.Balls) != 5 || s.Settings.BallCount != 5 {
		t.Fatalf("expected 5 balls, got %d", len(s.Balls))
	}
	for i := 0; i < len(s.Balls); i++ {
		for j := i + 1; j < len(s.Balls); j++ {
			d := ballAt(s, i).Distance(ballAt(s, j))
			if d < s.Balls[i].Radius+s.Balls[j].Radius-1e-9 {
				t.Errorf("balls %d and %d overlap (distance %v)", i, j, d)
			}
		}
	}
	if err := l.SetBallCount(6); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("expected ErrInvalidValue for 6 balls, got %v", err)
	}
}

func TestSetMassGrowsRadius(t *testing.T) {
	l := newTestLab(t, "default")
	r0 := l.Snapshot().Balls[0].Radius
	if err := l.SetBallMass(0, 3); err != nil {
		t.Fatalf("SetBallMass: %v", err)
	}
	if r := l.Snapshot().Balls[0].Radius; r <= r0 {
		t.Errorf("radius %v should grow past %v", r, r0)
	}
}

func TestSnapshotReportsNextCollision(t *testing.T) {
	l := newTestLab(t, "head-on")
	if err := l.StepForward(); err != nil {
		t.Fatalf("StepForward: %v", err)
	}
	s := l.Snapshot()
	if s.NextCollision == nil {
		t.Fatalf("expected a predicted collision")
	}
	if math.Abs(*s.NextCollision-0.85) > 1e-9 {
		t.Errorf("next collision at %v, want 0.85", *s.NextCollision)
	}
	if s.Predictions == 0 {
		t.Errorf("expected live predictions in the snapshot")
	}
}

func TestStateListenersNotified(t *testing.T) {
	l := newTestLab(t, "head-on")
	var got []Snapshot
	l.OnStateChanged(func(s Snapshot) { got = append(got, s) })

	l.Play()
	l.Pause()
	l.Pause() // no change, no event
	if err := l.SetElasticity(2); err == nil {
		t.Fatalf("expected an error")
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(got))
	}
	if !got[0].Playing || got[1].Playing {
		t.Errorf("notifications out of order: %v then %v", got[0].Playing, got[1].Playing)
	}
}

func TestEnablingBorderPullsBallsInside(t *testing.T) {
	l := newTestLab(t, "head-on")
	if err := l.SetBallVelocity(0, physics.NewVec2(0, 0)); err != nil {
		t.Fatalf("SetBallVelocity: %v", err)
	}
	if err := l.SetBallVelocity(1, physics.NewVec2(1, 0)); err != nil {
		t.Fatalf("SetBallVelocity: %v", err)
	}
	if err := l.SetReflectingBorder(false); err != nil {
		t.Fatalf("SetReflectingBorder: %v", err)
	}
	if err := l.Step(0.5); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if x := l.Snapshot().Balls[1].X; math.Abs(x-1.5) > 1e-12 {
		t.Fatalf("ball should straddle the wall at x=1.5, got %v", x)
	}

	if err := l.SetReflectingBorder(true); err != nil {
		t.Fatalf("SetReflectingBorder: %v", err)
	}
	if x := l.Snapshot().Balls[1].X; math.Abs(x-1.45) > 1e-12 {
		t.Errorf("ball not bumped inside: x=%v", x)
	}

	if err := l.Step(1); err != nil {
		t.Fatalf("Step: %v", err)
	}
	b := l.Snapshot().Balls[1]
	if math.Abs(b.X-0.45) > 1e-9 || math.Abs(b.VX+1) > 1e-12 {
		t.Errorf("ball after bounce: x=%v vx=%v, want 0.45 and -1", b.X, b.VX)
	}
}

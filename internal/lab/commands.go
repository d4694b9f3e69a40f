package lab

import (
	"errors"
	"fmt"

	"github.com/playmatatu/collisionlab/internal/physics"
)

// SettingsUpdate changes any subset of a lab's settings. Nil fields are left alone.
type SettingsUpdate struct {
	BallCount        *int     `json:"ball_count"`
	Elasticity       *float64 `json:"elasticity"`
	ReflectingBorder *bool    `json:"reflecting_border"`
	ConstantSize     *bool    `json:"constant_size"`
	SnapToGrid       *bool    `json:"snap_to_grid"`
	Speed            *Speed   `json:"speed"`
}

// BallUpdate edits one ball. Position and velocity are changed as a whole
// only when both of their components are set.
type BallUpdate struct {
	X    *float64 `json:"x"`
	Y    *float64 `json:"y"`
	VX   *float64 `json:"vx"`
	VY   *float64 `json:"vy"`
	Mass *float64 `json:"mass"`
}

// StepRequest asks for one manual step. Direction is "forward" or
// "backward"; DT, when set, overrides it with an explicit signed duration.
type StepRequest struct {
	Direction string   `json:"direction"`
	DT        *float64 `json:"dt"`
}

// ApplySettings applies u field by field and stops at the first error.
func (l *Lab) ApplySettings(u SettingsUpdate) error {
	if u.BallCount != nil {
		if err := l.SetBallCount(*u.BallCount); err != nil {
			return err
		}
	}
	if u.ConstantSize != nil {
		if err := l.SetConstantSize(*u.ConstantSize); err != nil {
			return err
		}
	}
	if u.ReflectingBorder != nil {
		if err := l.SetReflectingBorder(*u.ReflectingBorder); err != nil {
			return err
		}
	}
	if u.Elasticity != nil {
		if err := l.SetElasticity(*u.Elasticity); err != nil {
			return err
		}
	}
	if u.Speed != nil {
		if err := l.SetSpeed(*u.Speed); err != nil {
			return err
		}
	}
	if u.SnapToGrid != nil {
		l.SetSnapToGrid(*u.SnapToGrid)
	}
	return nil
}

// UpdateBall applies a ball edit. Mass goes first so a drag uses the new radius.
func (l *Lab) UpdateBall(index int, u BallUpdate) error {
	if (u.X == nil) != (u.Y == nil) {
		return fmt.Errorf("%w: x and y must be set together", ErrInvalidValue)
	}
	if (u.VX == nil) != (u.VY == nil) {
		return fmt.Errorf("%w: vx and vy must be set together", ErrInvalidValue)
	}
	if u.Mass != nil {
		if err := l.SetBallMass(index, *u.Mass); err != nil {
			return err
		}
	}
	if u.X != nil {
		if err := l.MoveBall(index, physics.NewVec2(*u.X, *u.Y)); err != nil {
			return err
		}
	}
	if u.VX != nil {
		if err := l.SetBallVelocity(index, physics.NewVec2(*u.VX, *u.VY)); err != nil {
			return err
		}
	}
	return nil
}

var errUnknownDirection = errors.New("direction must be forward or backward")

// ApplyStep runs a manual step, pausing the lab first.
func (l *Lab) ApplyStep(req StepRequest) error {
	if req.DT != nil {
		l.Pause()
		return l.Step(*req.DT)
	}
	switch req.Direction {
	case "", "forward":
		return l.StepForward()
	case "backward":
		return l.StepBackward()
	default:
		return fmt.Errorf("%w: %v", ErrInvalidValue, errUnknownDirection)
	}
}

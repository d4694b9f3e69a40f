package lab

import (
	"fmt"
	"math"
	"sort"

	"github.com/playmatatu/collisionlab/internal/physics"
)

// Preset is an initial lab configuration.
type Preset struct {
	Name             string               `json:"name"`
	Description      string               `json:"description"`
	Balls            []physics.BallValues `json:"balls"`
	BallCount        int                  `json:"ball_count"`
	Elasticity       float64              `json:"elasticity"`
	ReflectingBorder bool                 `json:"reflecting_border"`
	ConstantSize     bool                 `json:"constant_size"`
	Builtin          bool                 `json:"builtin"`
}

func v(x, y float64) physics.Vec2 { return physics.NewVec2(x, y) }

// BuiltinPresets are always available, without a database.
var BuiltinPresets = map[string]Preset{
	"default": {
		Name:        "default",
		Description: "Two balls of different mass; up to five can be added.",
		Balls: []physics.BallValues{
			{Mass: 0.5, Position: v(-1.0, 0.0), Velocity: v(1.0, 0.3)},
			{Mass: 1.5, Position: v(0.0, 0.5), Velocity: v(-0.5, -0.5)},
			{Mass: 1.0, Position: v(1.0, -0.5), Velocity: v(-0.5, -0.25)},
			{Mass: 1.0, Position: v(-1.0, -0.6), Velocity: v(1.1, 0.0)},
			{Mass: 1.0, Position: v(0.5, 0.1), Velocity: v(-0.3, -0.4)},
		},
		BallCount:        2,
		Elasticity:       1.0,
		ReflectingBorder: true,
	},
	"head-on": {
		Name:        "head-on",
		Description: "Two equal balls meeting head on.",
		Balls: []physics.BallValues{
			{Mass: 1.0, Position: v(-1.0, 0.0), Velocity: v(1.0, 0.0)},
			{Mass: 1.0, Position: v(1.0, 0.0), Velocity: v(-1.0, 0.0)},
		},
		BallCount:        2,
		Elasticity:       1.0,
		ReflectingBorder: true,
		ConstantSize:     true,
	},
	"newtons-cradle": {
		Name:        "newtons-cradle",
		Description: "One ball striking a row of touching balls.",
		Balls: []physics.BallValues{
			{Mass: 1.0, Position: v(-1.2, 0.0), Velocity: v(1.0, 0.0)},
			{Mass: 1.0, Position: v(0.0, 0.0)},
			{Mass: 1.0, Position: v(0.3, 0.0)},
			{Mass: 1.0, Position: v(0.6, 0.0)},
			{Mass: 1.0, Position: v(0.9, 0.0)},
		},
		BallCount:        5,
		Elasticity:       1.0,
		ReflectingBorder: false,
		ConstantSize:     true,
	},
	"billiards-break": {
		Name:        "billiards-break",
		Description: "A cue ball breaking a small rack.",
		Balls: []physics.BallValues{
			{Mass: 1.0, Position: v(-1.0, 0.0), Velocity: v(2.0, 0.0)},
			{Mass: 1.0, Position: v(0.4, 0.0)},
			{Mass: 1.0, Position: v(0.661, 0.151)},
			{Mass: 1.0, Position: v(0.661, -0.151)},
			{Mass: 1.0, Position: v(0.922, 0.0)},
		},
		BallCount:        5,
		Elasticity:       0.9,
		ReflectingBorder: true,
		ConstantSize:     true,
	},
}

// DefaultPreset returns the configuration new labs start from.
func DefaultPreset() Preset {
	return BuiltinPresets["default"]
}

// BuiltinPresetList returns the built-in presets sorted by name.
func BuiltinPresetList() []Preset {
	out := make([]Preset, 0, len(BuiltinPresets))
	for _, p := range BuiltinPresets {
		p.Builtin = true
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Validate checks that a preset can be loaded into a lab: ball values in
// range, every ball inside the play area and no two active balls overlapping.
func (p Preset) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: preset name required", ErrInvalidValue)
	}
	if len(p.Balls) == 0 || len(p.Balls) > physics.MaxBalls {
		return fmt.Errorf("%w: preset needs 1..%d balls, got %d", ErrInvalidValue, physics.MaxBalls, len(p.Balls))
	}
	if p.BallCount < 1 || p.BallCount > len(p.Balls) {
		return fmt.Errorf("%w: ball count %d out of range 1..%d", ErrInvalidValue, p.BallCount, len(p.Balls))
	}
	if math.IsNaN(p.Elasticity) || p.Elasticity < 0 || p.Elasticity > 1 {
		return fmt.Errorf("%w: elasticity %v out of range [0,1]", ErrInvalidValue, p.Elasticity)
	}

	area := physics.NewPlayArea()
	balls := make([]*physics.Ball, len(p.Balls))
	for i, bv := range p.Balls {
		if err := checkMass(bv.Mass); err != nil {
			return err
		}
		if !bv.Position.IsFinite() || !bv.Velocity.IsFinite() {
			return fmt.Errorf("%w: ball %d has non-finite kinematics", ErrInvalidValue, i)
		}
		balls[i] = &physics.Ball{
			Index:    i,
			Position: bv.Position,
			Velocity: bv.Velocity,
			Mass:     bv.Mass,
			Radius:   physics.RadiusFor(bv.Mass, p.ConstantSize),
		}
		if !area.FullyContainsBall(balls[i]) {
			return fmt.Errorf("%w: ball %d is outside the play area", ErrInvalidValue, i)
		}
	}

	var overlapErr error
	physics.ForEachPossiblePair(balls[:p.BallCount], func(a, b *physics.Ball) {
		if overlapErr == nil && a.Overlaps(b, overlapEpsilon) {
			overlapErr = fmt.Errorf("%w: balls %d and %d overlap", ErrInvalidValue, a.Index, b.Index)
		}
	})
	return overlapErr
}

func checkMass(mass float64) error {
	if math.IsNaN(mass) || mass < physics.MinMass || mass > physics.MaxMass {
		return fmt.Errorf("%w: mass %v out of range [%v,%v]", ErrInvalidValue, mass, physics.MinMass, physics.MaxMass)
	}
	return nil
}

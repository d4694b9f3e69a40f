package physics

// Collision lab constants. Units are SI: meters, seconds, kilograms.

const (
	MaxBalls      = 5
	MaxIterations = 2000 // safety valve for collision cascades within one step

	ConstantRadius = 0.15 // radius of every ball in constant-size mode
	BallDensity    = 40.0 // kg/m^3, used when radius follows mass

	MinMass = 0.1
	MaxMass = 3.0

	PlayAreaWidth  = 3.2
	PlayAreaHeight = 2.0

	DefaultElasticity = 1.0

	// Forward-looking slack so a collision landing exactly on the end of a step is handled in that step.
	stepEndSlack = 1e-7

	parallelDotThreshold  = 1e-11
	overlapClampThreshold = 1e-10
	borderClampThreshold  = 1e-10
	velocitySnapThreshold = 1e-8
	touchingEpsilon       = 1e-10
)

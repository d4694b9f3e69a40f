package physics

import "math"

// DefaultBisectionIterations bounds Bisection when the caller has no better limit.
const DefaultBisectionIterations = 100

// discriminantNoise is the relative amount a discriminant may dip below zero
// from cancellation and still count as a double root.
const discriminantNoise = 1e-12

// ForEachAdjacentPair calls f(seq[i], seq[i-1]) for i = 1..n-1, in order.
func ForEachAdjacentPair[T any](seq []T, f func(current, previous T)) {
	for i := 1; i < len(seq); i++ {
		f(seq[i], seq[i-1])
	}
}

// ForEachPossiblePair calls f(seq[i], seq[j]) once for every i < j. Pairs are
// visited with i ascending and j ascending within i, so the lower-indexed
// element is always passed first.
func ForEachPossiblePair[T any](seq []T, f func(a, b T)) {
	for i := 0; i < len(seq)-1; i++ {
		for j := i + 1; j < len(seq); j++ {
			f(seq[i], seq[j])
		}
	}
}

// SolveQuadraticRealRoots returns the real roots of a*x^2 + b*x + c = 0 in
// ascending order. An empty result means there is no finite root: either the
// discriminant is negative or the equation degenerates to c = 0. Only a == 0
// is solved as linear; a tiny a keeps its sign test on the discriminant.
func SolveQuadraticRealRoots(a, b, c float64) []float64 {
	if a == 0 {
		return solveLinearRealRoots(b, c)
	}

	discriminant := b*b - 4*a*c
	if discriminant < 0 {
		if discriminant < -discriminantNoise*b*b {
			return nil
		}
		discriminant = 0
	}

	if discriminant == 0 {
		return []float64{-b / (2 * a)}
	}

	// q form avoids subtracting nearly equal values when |b| ~ sqrt(discriminant).
	sqrtDisc := math.Sqrt(discriminant)
	var q float64
	if b < 0 {
		q = -0.5 * (b - sqrtDisc)
	} else {
		q = -0.5 * (b + sqrtDisc)
	}

	r1 := q / a
	r2 := c / q
	if r1 > r2 {
		r1, r2 = r2, r1
	}
	return []float64{r1, r2}
}

func solveLinearRealRoots(a, b float64) []float64 {
	if a == 0 {
		return nil
	}
	return []float64{-b / a}
}

// ClampToZeroBelow returns 0 when |value| < threshold, otherwise value.
func ClampToZeroBelow(value, threshold float64) float64 {
	if math.Abs(value) < threshold {
		return 0
	}
	return value
}

// Bisection narrows [lo, hi] toward a root. f reports -1 when x is an
// underestimate, 1 when it is an overestimate and 0 when x is close enough.
// If maxIterations pass without f returning 0 the last midpoint is returned.
func Bisection(f func(x float64) int, lo, hi float64, maxIterations int) float64 {
	mid := (lo + hi) / 2
	for i := 0; i < maxIterations; i++ {
		mid = (lo + hi) / 2
		switch f(mid) {
		case 0:
			return mid
		case -1:
			lo = mid
		default:
			hi = mid
		}
	}
	return mid
}

// RoundSymmetric rounds half away from zero, so -0.5 and 0.5 both move outward.
func RoundSymmetric(value float64) float64 {
	return math.Round(value)
}

// RoundToInterval rounds value to the nearest multiple of interval.
func RoundToInterval(value, interval float64) float64 {
	if interval == 0 {
		return value
	}
	return RoundSymmetric(value/interval) * interval
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

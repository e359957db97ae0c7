package util

import "golang.org/x/exp/constraints"

// LoopValue adds delta to val and wraps the result into [min, max].
func LoopValue[T constraints.Signed](val, delta, min, max T) T {
	span := max - min + 1
	v := (val + delta - min) % span
	if v < 0 {
		v += span
	}
	return v + min
}

// BounceValue adds delta to val, reflecting at min and max. The second
// return value is the direction of travel (+1 or -1) after any reflection.
func BounceValue[T constraints.Signed](val, delta, min, max T) (T, T) {
	v := val + delta
	var dir T = 1
	if delta < 0 {
		dir = -1
	}
	for v > max || v < min {
		if v > max {
			v = max - (v - max)
			dir = -1
		} else {
			v = min + (min - v)
			dir = 1
		}
	}
	return v, dir
}

// IncTowards moves val by rate in direction dir (+1 towards max, -1 towards
// min) and clamps the result to [min, max].
func IncTowards[T constraints.Signed](val, dir, rate, min, max T) T {
	v := val + dir*rate
	if v > max {
		return max
	}
	if v < min {
		return min
	}
	return v
}

// Scale scales val by num/den using integer arithmetic.
func Scale[T constraints.Integer](val, den, num T) T {
	if den == 0 {
		return 0
	}
	return val * num / den
}

// CountDown advances a cycle counter by one step. A counter of zero means
// "run forever" and is never touched. Returns true exactly from the step
// that consumes the last cycle onwards; the counter is left at 1 so that
// repeated polling stays true until the caller resets it.
func CountDown(c *int) bool {
	if *c == 0 {
		return false
	}
	if *c == 1 {
		return true
	}
	*c--
	return false
}

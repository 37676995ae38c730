package pattern

// bjorklund distributes k pulses as evenly as possible over n steps, the
// rhythm construction behind Bjorklund's algorithm / Euclidean rhythms
// (`euclid(k, n)`). Returns n bools, true = pulse.
//
// Uses a closed form instead of Bjorklund's recursive construction: step i
// fires exactly when floor(i*k/n) differs from floor((i-1)*k/n), so step 0
// always fires. The pulses are spaced as the recursive two-group merge
// spaces them, but for some (k, n) the result is a rotation of that
// construction's pattern: (5, 8) gives x.x.xx.x rather than x.xx.xx.
func bjorklund(k, n int) []bool {
	if n <= 0 {
		return nil
	}
	if k <= 0 {
		return make([]bool, n)
	}
	if k >= n {
		out := make([]bool, n)
		for i := range out {
			out[i] = true
		}
		return out
	}

	out := make([]bool, n)
	for i := 0; i < n; i++ {
		prev := -1 // floor(-k/n) for 0 < k < n
		if i > 0 {
			prev = (i - 1) * k / n
		}
		cur := i * k / n
		out[i] = cur != prev
	}
	return out
}

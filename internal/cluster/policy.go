package cluster

// Policy picks the number of clusters for a batch of n items.
type Policy func(n int) int

// ClampPolicy returns a Policy computing n/divisor clamped to [min, max].
func ClampPolicy(divisor, min, max int) Policy {
	if divisor < 1 {
		divisor = 1
	}
	return func(n int) int {
		k := n / divisor
		if k < min {
			k = min
		}
		if k > max {
			k = max
		}
		return k
	}
}

// DefaultPolicy is clamp(n/3, 2, 10).
//
// This is a fixed granularity heuristic for batches of tens to low hundreds
// of letters. It is not derived from the data; changing it changes which
// letters share a category and therefore which same-date groups are flagged.
var DefaultPolicy = ClampPolicy(3, 2, 10)

package resolve

import "math"

// Ratio returns the normalized Indel similarity of a and b on a 0-100
// scale: 100 * 2*LCS / (len(a)+len(b)), counted in runes and rounded.
// Two empty strings are identical (100).
func Ratio(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 100
	}
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	lcs := lcsLength(ra, rb)
	return int(math.Round(200 * float64(lcs) / float64(total)))
}

// lcsLength computes the longest common subsequence with two DP rows.
func lcsLength(a, b []rune) int {
	// keep the shorter string in the inner loop
	if len(b) > len(a) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				curr[j] = prev[j-1] + 1
			case prev[j] >= curr[j-1]:
				curr[j] = prev[j]
			default:
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

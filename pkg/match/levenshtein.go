package match

// Threshold returns the largest edit distance accepted for a candidate string
// of n runes.
func Threshold(n int) int {
	if n <= 8 {
		return 2
	}
	return 3
}

// Distance computes the Levenshtein distance between a and b over runes,
// using unit costs for insertion, deletion and substitution.
func Distance(a, b string) int {
	return distance([]rune(a), []rune(b))
}

func distance(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// boundedDistance returns the distance between a and b, or limit+1 when the
// rune lengths alone already differ by more than limit.
func boundedDistance(a, b []rune, limit int) int {
	diff := len(a) - len(b)
	if diff < 0 {
		diff = -diff
	}
	if diff > limit {
		return limit + 1
	}
	return distance(a, b)
}

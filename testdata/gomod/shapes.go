package relooped

// Sum adds the numbers below n.
//
//reloop:enable
func Sum(n int) int {
	s := 0
	for i := 0; i < n; i++ {
		s += i
	}
	return s
}

//reloop:debug
func Classify(x int) string {
	switch x {
	case 1:
		return "one"
	case 2:
		return "two"
	case 3:
		return "three"
	}
	return "many"
}

// Unmarked is skipped unless named or --all is given.
func Unmarked(a, b int) int {
	if a > b {
		return a
	}
	return b
}

type Counter struct{ n int }

//reloop:enable
func (c *Counter) Bump(limit int) bool {
	if c.n >= limit {
		return false
	}
	c.n++
	return true
}

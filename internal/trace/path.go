package trace

// SelectPath returns the ring-local vertex indices that lie strictly between
// first and second, in the order they are walked from first to second.
//
// count is the number of distinct vertices of the ring or line. On a closed
// ring the shorter of the two arcs is chosen; reverse selects the other one.
// When both arcs have the same length the arc that does not pass through
// index 0 is preferred. Vertices joined by the closing edge have an empty
// shorter arc, so reverse walks every other vertex of the ring. Lines have a
// single arc and ignore reverse.
func SelectPath(first, second, count int, closed, reverse bool) []int {
	if closed && count > 0 {
		first, second = fold(first, count), fold(second, count)
	}
	if first == second || first < 0 || second < 0 || first >= count || second >= count {
		return nil
	}
	if closed {
		lo, hi := min(first, second), max(first, second)
		direct := hi - lo
		wrap := count - hi + lo
		useWrap := wrap < direct
		if reverse {
			useWrap = !useWrap
		}
		if useWrap {
			return wrapRun(first, second, count)
		}
	}
	return directRun(first, second)
}

// fold maps the closing vertex (index count) of a ring onto index 0.
func fold(i, count int) int {
	if i == count {
		return 0
	}
	return i
}

// directRun walks the indices strictly between first and second without
// passing through the start of the ring.
func directRun(first, second int) []int {
	var run []int
	if second > first {
		for i := first + 1; i < second; i++ {
			run = append(run, i)
		}
		return run
	}
	for i := first - 1; i > second; i-- {
		run = append(run, i)
	}
	return run
}

// wrapRun walks outward from first to the ring boundary, crosses the closing
// edge and continues to second.
func wrapRun(first, second, count int) []int {
	var run []int
	if second > first {
		for i := first - 1; i >= 0; i-- {
			run = append(run, i)
		}
		for i := count - 1; i > second; i-- {
			run = append(run, i)
		}
		return run
	}
	for i := first + 1; i < count; i++ {
		run = append(run, i)
	}
	for i := 0; i < second; i++ {
		run = append(run, i)
	}
	return run
}

// RingPath returns the flat vertex indices to insert between two flat vertex
// indices on the same ring.
func RingPath(r Ring, firstVertex, secondVertex int, reverse bool) []int {
	local := SelectPath(r.Local(firstVertex), r.Local(secondVertex), r.Distinct(), r.Closed, reverse)
	for i := range local {
		local[i] += r.Offset
	}
	return local
}

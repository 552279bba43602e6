package trace

import (
	"reflect"
	"testing"
)

func TestSelectPathExamples(t *testing.T) {
	tests := []struct {
		name          string
		first, second int
		count         int
		closed        bool
		reverse       bool
		want          []int
	}{
		{"same vertex", 3, 3, 8, true, false, nil},
		{"closing edge", 0, 7, 8, true, false, nil},
		{"closing edge reversed goes around", 7, 0, 8, true, true, []int{6, 5, 4, 3, 2, 1}},
		{"closing edge reversed", 0, 7, 8, true, true, []int{1, 2, 3, 4, 5, 6}},
		{"folded closing vertex", 8, 7, 8, true, false, nil},
		{"wrap is shorter", 1, 6, 8, true, false, []int{0, 7}},
		{"reverse forces direct", 1, 6, 8, true, true, []int{2, 3, 4, 5}},
		{"wrap walking up", 6, 1, 8, true, false, []int{7, 0}},
		{"direct walking down", 5, 2, 8, true, false, []int{4, 3}},
		{"six ring tie prefers direct", 1, 4, 6, true, false, []int{2, 3}},
		{"six ring tie reversed", 1, 4, 6, true, true, []int{0, 5}},
		{"adjacent", 2, 3, 6, true, false, nil},
		{"adjacent reversed goes around", 2, 3, 6, true, true, []int{1, 0, 5, 4}},
		{"line forward", 1, 3, 5, false, false, []int{2}},
		{"line backward", 3, 0, 5, false, false, []int{2, 1}},
		{"line adjacent", 1, 0, 5, false, false, nil},
		{"line ignores reverse", 0, 4, 5, false, true, []int{1, 2, 3}},
		{"out of range", 0, 9, 5, false, false, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectPath(tt.first, tt.second, tt.count, tt.closed, tt.reverse)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SelectPath(%d, %d, %d, %v, %v) got %v, want %v",
					tt.first, tt.second, tt.count, tt.closed, tt.reverse, got, tt.want)
			}
		})
	}
}

// walkIsMonotonic checks that [a] + path + [b] steps by +1 or -1 (mod n)
// in a single direction and never repeats an index.
func walkIsMonotonic(a, b int, path []int, n int) bool {
	walk := append(append([]int{a}, path...), b)
	seen := make(map[int]bool)
	step := 0
	for i, v := range walk {
		if v < 0 || v >= n || seen[v] {
			return false
		}
		seen[v] = true
		if i == 0 {
			continue
		}
		d := (v - walk[i-1] + n) % n
		if d != 1 && d != n-1 {
			return false
		}
		if step == 0 {
			step = d
		} else if d != step {
			return false
		}
	}
	return true
}

func TestSelectPathRingProperties(t *testing.T) {
	for n := 3; n <= 11; n++ {
		for a := 0; a < n; a++ {
			for b := 0; b < n; b++ {
				if a == b {
					if got := SelectPath(a, b, n, true, false); len(got) != 0 {
						t.Errorf("n=%d SelectPath(%d,%d) got %v, want empty", n, a, b, got)
					}
					continue
				}
				lo, hi := min(a, b), max(a, b)
				direct, wrap := hi-lo, n-hi+lo

				short := SelectPath(a, b, n, true, false)
				long := SelectPath(a, b, n, true, true)

				wantShort := min(direct, wrap) - 1
				if len(short) != wantShort {
					t.Errorf("n=%d (%d,%d) short path %v has %d vertices, want %d", n, a, b, short, len(short), wantShort)
				}
				if !walkIsMonotonic(a, b, short, n) {
					t.Errorf("n=%d (%d,%d) short path %v is not a monotonic walk", n, a, b, short)
				}
				if !walkIsMonotonic(a, b, long, n) {
					t.Errorf("n=%d (%d,%d) long path %v is not a monotonic walk", n, a, b, long)
				}
				if len(short)+len(long)+2 != n {
					t.Errorf("n=%d (%d,%d) arcs %v and %v do not complement", n, a, b, short, long)
				}
				covered := map[int]bool{a: true, b: true}
				for _, v := range append(append([]int{}, short...), long...) {
					if covered[v] {
						t.Errorf("n=%d (%d,%d) vertex %d covered twice", n, a, b, v)
					}
					covered[v] = true
				}
			}
		}
	}
}

func TestSelectPathLineProperties(t *testing.T) {
	n := 6
	for a := 0; a < n; a++ {
		for b := 0; b < n; b++ {
			got := SelectPath(a, b, n, false, false)
			want := max(a, b) - min(a, b) - 1
			if a == b {
				want = 0
			}
			if len(got) != want {
				t.Errorf("line (%d,%d) got %v, want %d vertices", a, b, got, want)
			}
		}
	}
}

func TestRingPathOffsets(t *testing.T) {
	hole := Ring{Part: 0, Ring: 1, Offset: 5, Count: 9, Closed: true}
	got := RingPath(hole, 6, 11, false)
	want := []int{5, 12}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("RingPath got %v, want %v", got, want)
	}
	// The closing vertex of the ring is the same vertex as its start.
	if got := RingPath(hole, 5, 13, false); len(got) != 0 {
		t.Errorf("RingPath from start to closing vertex got %v, want empty", got)
	}
}

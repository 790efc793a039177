package ivtree

import (
	"sort"
	"testing"
)

func TestFindAllOverlapping(t *testing.T) {
	tr := New()
	ranges := [][2]int{{10, 40}, {20, 30}, {55, 80}, {0, 7}}
	for _, r := range ranges {
		tr.Insert(r[0], r[1], r)
	}

	got := tr.FindAllOverlapping(25, 55, nil)
	var gotRanges [][2]int
	for _, n := range got {
		gotRanges = append(gotRanges, [2]int{n.Low, n.High})
	}
	sort.Slice(gotRanges, func(i, j int) bool {
		if gotRanges[i][0] != gotRanges[j][0] {
			return gotRanges[i][0] < gotRanges[j][0]
		}
		return gotRanges[i][1] < gotRanges[j][1]
	})

	want := [][2]int{{10, 40}, {20, 30}, {55, 80}}
	if len(gotRanges) != len(want) {
		t.Fatalf("got %v overlaps, want %v", gotRanges, want)
	}
	for i := range want {
		if gotRanges[i] != want[i] {
			t.Errorf("overlap %d = %v, want %v", i, gotRanges[i], want[i])
		}
	}
}

func TestFindFirstOverlapping(t *testing.T) {
	tr := New()
	tr.Insert(10, 20, "a")
	if n := tr.FindFirstOverlapping(100, 200); n != nil {
		t.Errorf("expected no overlap, got %v", n)
	}
	if n := tr.FindFirstOverlapping(15, 15); n == nil {
		t.Errorf("expected an overlap")
	}
}

func TestInsertRemoveMaintainsMax(t *testing.T) {
	tr := New()
	var nodes []*Node
	for i, r := range [][2]int{{1, 5}, {2, 100}, {3, 4}, {50, 60}, {7, 8}} {
		nodes = append(nodes, tr.Insert(r[0], r[1], i))
	}
	checkMax(t, tr, tr.root)

	tr.Remove(nodes[1])
	checkMax(t, tr, tr.root)
	if tr.Size() != 4 {
		t.Errorf("Size() = %d, want 4", tr.Size())
	}
}

// checkMax walks the whole tree verifying the invariant from spec.md
// 8: n.Max == max(n.High, n.left.Max, n.right.Max).
func checkMax(t *testing.T, tr *Tree, n *Node) int {
	t.Helper()
	if n == tr.nil {
		return -1 << 62
	}
	lm := checkMax(t, tr, n.left)
	rm := checkMax(t, tr, n.right)
	want := n.High
	if lm > want {
		want = lm
	}
	if rm > want {
		want = rm
	}
	if n.Max != want {
		t.Errorf("node %v: Max = %d, want %d", n, n.Max, want)
	}
	return n.Max
}

func TestIterateOverlappingAbort(t *testing.T) {
	tr := New()
	tr.Insert(1, 10, "a")
	tr.Insert(2, 9, "b")
	tr.Insert(3, 8, "c")

	count := 0
	errStop := tr.IterateOverlapping(0, 100, func(n *Node) error {
		count++
		if count == 2 {
			return errAbort
		}
		return nil
	})
	if errStop != errAbort {
		t.Fatalf("expected errAbort, got %v", errStop)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2 (iteration should stop at first error)", count)
	}
}

var errAbort = simpleErr("abort")

type simpleErr string

func (e simpleErr) Error() string { return string(e) }

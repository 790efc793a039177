// Package ivtree is an augmented red-black interval tree keyed on a
// closed integer range [Low,High]. It is the workhorse behind the
// feature index (package featureindex) and the bases line breaker
// (package layout): both need "does anything here overlap this
// range" answered in O(log n).
//
// The augmentation is the classic Cormen et al. one: every node also
// stores Max, the largest High anywhere in its subtree, which lets
// find_first_overlapping and find_all_overlapping prune whole
// subtrees instead of walking them.
package ivtree

import "fmt"

// Payload is stored at each tree node alongside its range. Callers
// hand back whatever type they like via the empty interface - the
// tree itself only ever compares Low/High.
type Payload interface{}

type color bool

const (
	red   color = true
	black color = false
)

// Node is one entry in the tree. Low and High form a closed interval;
// Max is the largest High in the subtree rooted at this node
// (including itself).
type Node struct {
	parent, left, right *Node
	color                color

	Low, High, Max int
	Data           Payload
}

// Tree is an augmented red-black tree of Nodes. The zero value is not
// usable; use New.
type Tree struct {
	root *Node
	nil  *Node // sentinel, stands in for "null" to simplify fixups
	size int
}

// New returns an empty Tree.
func New() *Tree {
	sentinel := &Node{color: black}
	sentinel.left, sentinel.right, sentinel.parent = sentinel, sentinel, sentinel
	return &Tree{root: sentinel, nil: sentinel}
}

// Size is the number of nodes currently in the tree.
func (t *Tree) Size() int { return t.size }

func (n *Node) setRange(low, high int) {
	n.Low, n.High = low, high
	n.Max = high
}

func (t *Tree) newNode(low, high int, data Payload) *Node {
	n := &Node{Data: data, left: t.nil, right: t.nil, parent: t.nil}
	n.setRange(low, high)
	return n
}

// Insert adds a new node with the given closed range [low,high] and
// payload, maintaining the Max augmentation and red-black balance.
// Insert does not reject low > high; callers (package gff3 et al.)
// are expected to validate ranges before calling in.
func (t *Tree) Insert(low, high int, data Payload) *Node {
	z := t.newNode(low, high, data)
	t.insertNode(z)
	return z
}

func (t *Tree) insertNode(z *Node) {
	y := t.nil
	x := t.root
	for x != t.nil {
		y = x
		// widen Max on the way down the insertion path
		if z.High > x.Max {
			x.Max = z.High
		}
		if z.Low < x.Low {
			x = x.left
		} else {
			x = x.right
		}
	}
	z.parent = y
	if y == t.nil {
		t.root = z
	} else if z.Low < y.Low {
		y.left = z
	} else {
		y.right = z
	}
	z.left, z.right = t.nil, t.nil
	z.color = red
	if z.Max < z.High {
		z.Max = z.High
	}
	t.size++
	t.insertFixup(z)
}

func (t *Tree) leftRotate(x *Node) {
	y := x.right
	x.right = y.left
	if y.left != t.nil {
		y.left.parent = x
	}
	y.parent = x.parent
	if x.parent == t.nil {
		t.root = y
	} else if x == x.parent.left {
		x.parent.left = y
	} else {
		x.parent.right = y
	}
	y.left = x
	x.parent = y
	t.fixMax(x)
	t.fixMax(y)
}

func (t *Tree) rightRotate(x *Node) {
	y := x.left
	x.left = y.right
	if y.right != t.nil {
		y.right.parent = x
	}
	y.parent = x.parent
	if x.parent == t.nil {
		t.root = y
	} else if x == x.parent.right {
		x.parent.right = y
	} else {
		x.parent.left = y
	}
	y.right = x
	x.parent = y
	t.fixMax(x)
	t.fixMax(y)
}

// fixMax recomputes Max for a single node from High and its two
// children's Max - called after a rotation on both rotated nodes per
// spec.md 4.A.
func (t *Tree) fixMax(n *Node) {
	if n == t.nil {
		return
	}
	m := n.High
	if n.left != t.nil && n.left.Max > m {
		m = n.left.Max
	}
	if n.right != t.nil && n.right.Max > m {
		m = n.right.Max
	}
	n.Max = m
}

func (t *Tree) insertFixup(z *Node) {
	for z.parent.color == red {
		if z.parent == z.parent.parent.left {
			y := z.parent.parent.right
			if y.color == red {
				z.parent.color = black
				y.color = black
				z.parent.parent.color = red
				z = z.parent.parent
			} else {
				if z == z.parent.right {
					z = z.parent
					t.leftRotate(z)
				}
				z.parent.color = black
				z.parent.parent.color = red
				t.rightRotate(z.parent.parent)
			}
		} else {
			y := z.parent.parent.left
			if y.color == red {
				z.parent.color = black
				y.color = black
				z.parent.parent.color = red
				z = z.parent.parent
			} else {
				if z == z.parent.left {
					z = z.parent
					t.rightRotate(z)
				}
				z.parent.color = black
				z.parent.parent.color = red
				t.leftRotate(z.parent.parent)
			}
		}
	}
	t.root.color = black
}

func overlaps(low, high int, n *Node) bool {
	return low <= n.High && n.Low <= high
}

// FindFirstOverlapping returns one node overlapping [low,high] - it is
// unspecified which, per spec.md 4.A - or nil if none overlaps.
func (t *Tree) FindFirstOverlapping(low, high int) *Node {
	x := t.root
	for x != t.nil && !overlaps(low, high, x) {
		if x.left != t.nil && x.left.Max >= low {
			x = x.left
		} else {
			x = x.right
		}
	}
	if x == t.nil {
		return nil
	}
	return x
}

// FindAllOverlapping appends every node overlapping [low,high] to out
// and returns the extended slice, pruning subtrees whose Max cannot
// reach low.
func (t *Tree) FindAllOverlapping(low, high int, out []*Node) []*Node {
	return t.findAll(t.root, low, high, out)
}

func (t *Tree) findAll(n *Node, low, high int, out []*Node) []*Node {
	if n == t.nil || n.Max < low {
		return out
	}
	if n.left != t.nil {
		out = t.findAll(n.left, low, high, out)
	}
	if overlaps(low, high, n) {
		out = append(out, n)
	}
	// The right subtree is searched whenever its Max reaches low. It is
	// not pruned on Low: nodes there whose Low exceeds high are still
	// visited and rejected by the overlap test.
	if n.right != t.nil && n.right.Max >= low {
		out = t.findAll(n.right, low, high, out)
	}
	return out
}

// IterFunc is called once per overlapping node; returning a non-nil
// error aborts the iteration and that error is propagated out of
// IterateOverlapping.
type IterFunc func(n *Node) error

// IterateOverlapping walks every node overlapping [low,high], calling
// fn for each. Iteration stops at the first error fn returns.
func (t *Tree) IterateOverlapping(low, high int, fn IterFunc) error {
	return t.iterate(t.root, low, high, fn)
}

func (t *Tree) iterate(n *Node, low, high int, fn IterFunc) error {
	if n == t.nil || n.Max < low {
		return nil
	}
	if n.left != t.nil {
		if err := t.iterate(n.left, low, high, fn); err != nil {
			return err
		}
	}
	if overlaps(low, high, n) {
		if err := fn(n); err != nil {
			return err
		}
	}
	if n.right != t.nil && n.right.Max >= low {
		return t.iterate(n.right, low, high, fn)
	}
	return nil
}

// TraverseFunc is called once per node in post-order.
type TraverseFunc func(n *Node) error

// TraverseAll visits every node in post-order, aborting on the first
// error returned by fn.
func (t *Tree) TraverseAll(fn TraverseFunc) error {
	return t.traverse(t.root, fn)
}

func (t *Tree) traverse(n *Node, fn TraverseFunc) error {
	if n == t.nil {
		return nil
	}
	if err := t.traverse(n.left, fn); err != nil {
		return err
	}
	if err := t.traverse(n.right, fn); err != nil {
		return err
	}
	return fn(n)
}

func (t *Tree) minimum(n *Node) *Node {
	for n.left != t.nil {
		n = n.left
	}
	return n
}

func (t *Tree) transplant(u, v *Node) {
	if u.parent == t.nil {
		t.root = v
	} else if u == u.parent.left {
		u.parent.left = v
	} else {
		u.parent.right = v
	}
	v.parent = u.parent
}

// Remove deletes z from the tree. Removing a node not present in the
// tree is undefined behaviour, per spec.md 4.A.
func (t *Tree) Remove(z *Node) {
	y := z
	yOriginalColor := y.color
	var x *Node

	if z.left == t.nil {
		x = z.right
		t.transplant(z, z.right)
	} else if z.right == t.nil {
		x = z.left
		t.transplant(z, z.left)
	} else {
		y = t.minimum(z.right)
		yOriginalColor = y.color
		x = y.right
		if y.parent == z {
			x.parent = y
		} else {
			t.transplant(y, y.right)
			y.right = z.right
			y.right.parent = y
		}
		t.transplant(z, y)
		y.left = z.left
		y.left.parent = y
		y.color = z.color
	}

	// fix Max along the path from x's parent up to the root
	for p := x.parent; p != t.nil; p = p.parent {
		t.fixMax(p)
	}

	t.size--
	if yOriginalColor == black {
		t.deleteFixup(x)
	}
}

func (t *Tree) deleteFixup(x *Node) {
	for x != t.root && x.color == black {
		if x == x.parent.left {
			w := x.parent.right
			if w.color == red {
				w.color = black
				x.parent.color = red
				t.leftRotate(x.parent)
				w = x.parent.right
			}
			if w.left.color == black && w.right.color == black {
				w.color = red
				x = x.parent
			} else {
				if w.right.color == black {
					w.left.color = black
					w.color = red
					t.rightRotate(w)
					w = x.parent.right
				}
				w.color = x.parent.color
				x.parent.color = black
				w.right.color = black
				t.leftRotate(x.parent)
				x = t.root
			}
		} else {
			w := x.parent.left
			if w.color == red {
				w.color = black
				x.parent.color = red
				t.rightRotate(x.parent)
				w = x.parent.left
			}
			if w.right.color == black && w.left.color == black {
				w.color = red
				x = x.parent
			} else {
				if w.left.color == black {
					w.right.color = black
					w.color = red
					t.leftRotate(w)
					w = x.parent.left
				}
				w.color = x.parent.color
				x.parent.color = black
				w.left.color = black
				t.rightRotate(x.parent)
				x = t.root
			}
		}
	}
	x.color = black
}

// String is a debug aid only - it is not used for GFF3 output.
func (n *Node) String() string {
	return fmt.Sprintf("[%d,%d]max=%d", n.Low, n.High, n.Max)
}

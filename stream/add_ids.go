package stream

import (
	"fmt"
	"io"

	"github.com/grendeloz/gffgraph/gff3"
)

// AddIDsStream implements the add_ids transformer of spec.md section
// 4.F: it synthesizes a RegionNode for any seqid that reaches it
// without one, and assigns a fresh ID attribute to any FeatureNode
// (recursively, including children) that lacks one. Grounded on
// original_source/src/extended/add_ids_stream.c and add_ids_visitor.c,
// reusing the teacher's Features.BySeqId (_examples/grendeloz-ngs/
// gff3/features.go) grouping idiom to buffer by seqid before emitting
// the synthesized region.
//
// Deferred emission: a seqid's features are buffered until the seqid
// is known to be complete - either a new seqid appears or the stream
// ends - matching spec.md section 4.F's "deferred emission" rule.
type AddIDsStream struct {
	upstream NodeStream
	prefix   string
	counter  int

	knownSeqids map[string]bool

	curSeqid string
	buffer   []gff3.Node
	lo, hi   int
	haveSpan bool

	out     []gff3.Node
	outPos  int
	done    bool
	sortedInput bool
}

// NewAddIDsStream wraps upstream. If sortedInput is true, the stage
// enforces that a feature never appears before the RegionNode that
// declares its seqid, per spec.md section 4.F.
func NewAddIDsStream(upstream NodeStream, prefix string, sortedInput bool) *AddIDsStream {
	return &AddIDsStream{
		upstream:    upstream,
		prefix:      prefix,
		knownSeqids: make(map[string]bool),
		sortedInput: sortedInput,
	}
}

func (a *AddIDsStream) PreservesSortOrder() bool { return a.sortedInput }

func (a *AddIDsStream) Next() (gff3.Node, error) {
	for a.outPos >= len(a.out) {
		if a.done {
			return nil, io.EOF
		}
		if err := a.fill(); err != nil {
			return nil, err
		}
	}
	n := a.out[a.outPos]
	a.outPos++
	return n, nil
}

// fill pulls upstream nodes until it has something new to emit,
// flushing the current seqid's buffer whenever the seqid changes or
// the upstream is exhausted.
func (a *AddIDsStream) fill() error {
	a.out = nil
	a.outPos = 0

	for {
		n, err := a.upstream.Next()
		if err == io.EOF {
			a.flushSeqid()
			a.done = true
			return nil
		}
		if err != nil {
			return err
		}

		if rn, ok := n.(*gff3.RegionNode); ok {
			a.knownSeqids[rn.SeqId] = true
			a.out = append(a.out, rn)
			continue
		}

		f, ok := n.(*gff3.FeatureNode)
		if !ok {
			a.out = append(a.out, n)
			if len(a.out) > 0 {
				return nil
			}
			continue
		}

		if a.sortedInput && !a.knownSeqids[f.SeqId] {
			return gff3.NewError(gff3.SemanticErr, f.File, f.LineNumber,
				"feature on seqid %q appears before its declaring region", f.SeqId)
		}

		if f.SeqId != a.curSeqid {
			a.flushSeqid()
			a.curSeqid = f.SeqId
		}
		a.assignIDs(f)
		a.buffer = append(a.buffer, f)
		if !a.haveSpan {
			a.lo, a.hi = f.Start, f.End
			a.haveSpan = true
		} else {
			if f.Start < a.lo {
				a.lo = f.Start
			}
			if f.End > a.hi {
				a.hi = f.End
			}
		}
		if len(a.out) > 0 {
			return nil
		}
	}
}

func (a *AddIDsStream) flushSeqid() {
	if len(a.buffer) == 0 {
		return
	}
	if !a.knownSeqids[a.curSeqid] {
		r := gff3.NewRegionNode(a.curSeqid, a.lo, a.hi)
		a.out = append(a.out, r)
		a.knownSeqids[a.curSeqid] = true
	}
	a.out = append(a.out, a.buffer...)
	a.buffer = nil
	a.haveSpan = false
}

func (a *AddIDsStream) assignIDs(f *gff3.FeatureNode) {
	if _, ok := f.ID(); !ok {
		a.counter++
		f.Attributes.Set("ID", fmt.Sprintf("%s%d", a.prefix, a.counter))
	}
	for _, c := range f.Children {
		a.assignIDs(c)
	}
}

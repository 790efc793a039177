package stream

import (
	"io"

	"github.com/grendeloz/gffgraph/gff3"
)

// TidyRegionStream implements the tidy_region transformer of spec.md
// section 4.F: recomputes each RegionNode's range to cover every
// feature that cites it, erroring if a feature cites an undeclared
// region. Grounded on original_source/src/extended/
// tidy_region_node_visitor.c. Like targetbest_select, tidy_region
// needs the whole stream (every feature on a seqid) before it can
// finalize that seqid's RegionNode, so it buffers then replays.
type TidyRegionStream struct {
	upstream NodeStream
	out      []gff3.Node
	pos      int
	built    bool
}

func NewTidyRegionStream(upstream NodeStream) *TidyRegionStream {
	return &TidyRegionStream{upstream: upstream}
}

func (t *TidyRegionStream) PreservesSortOrder() bool { return false }

func (t *TidyRegionStream) build() error {
	nodes, err := Collect(t.upstream)
	if err != nil {
		return err
	}

	regions := make(map[string]*gff3.RegionNode)
	spans := make(map[string]gff3.Range)
	haveSpan := make(map[string]bool)

	for _, n := range nodes {
		if r, ok := n.(*gff3.RegionNode); ok {
			regions[r.SeqId] = r
			continue
		}
		if f, ok := n.(*gff3.FeatureNode); ok {
			widenAll(f, spans, haveSpan)
		}
	}

	for seqid, span := range spans {
		r, ok := regions[seqid]
		if !ok {
			return gff3.NewError(gff3.SemanticErr, "", 0, "feature cites undeclared region %q", seqid)
		}
		r.SetRange(span)
	}

	t.out = nodes
	t.built = true
	return nil
}

func widenAll(f *gff3.FeatureNode, spans map[string]gff3.Range, have map[string]bool) {
	f.TraverseChildren(true, false, func(n *gff3.FeatureNode) error {
		if n.IsPseudo {
			return nil
		}
		r := n.GetRange()
		cur, ok := spans[n.SeqId]
		if !ok || !have[n.SeqId] {
			spans[n.SeqId] = r
			have[n.SeqId] = true
			return nil
		}
		if r.Start < cur.Start {
			cur.Start = r.Start
		}
		if r.End > cur.End {
			cur.End = r.End
		}
		spans[n.SeqId] = cur
		return nil
	})
}

func (t *TidyRegionStream) Next() (gff3.Node, error) {
	if !t.built {
		if err := t.build(); err != nil {
			return nil, err
		}
	}
	if t.pos >= len(t.out) {
		return nil, io.EOF
	}
	n := t.out[t.pos]
	t.pos++
	return n, nil
}

package stream

import (
	"github.com/grendeloz/gffgraph/gff3"
	"github.com/grendeloz/interval"
)

// MergeFeatureStream implements the merge_feature transformer of
// spec.md section 4.F: for each parent, two adjacent childless leaf
// children of the same type whose closed ranges are end-to-end
// abutting (prev.end+1 == next.start) are merged into one child
// spanning both; children are assumed sorted. Scores become undefined
// after merging (no averaging), per spec.md.
//
// Grounded directly on the teacher's Feature.PrudentMerge/
// Features.Consolidate (_examples/grendeloz-ngs/gff3/feature.go,
// features.go), reusing grendeloz/interval.Compare's Allen-relation
// classification exactly as PrudentMerge does, restricted to the
// abutment case spec.md calls out.
type MergeFeatureStream struct {
	upstream NodeStream
}

func NewMergeFeatureStream(upstream NodeStream) *MergeFeatureStream {
	return &MergeFeatureStream{upstream: upstream}
}

func (m *MergeFeatureStream) PreservesSortOrder() bool { return true }

func (m *MergeFeatureStream) Next() (gff3.Node, error) {
	n, err := m.upstream.Next()
	if err != nil {
		return nil, err
	}
	if f, ok := n.(*gff3.FeatureNode); ok {
		mergeChildrenOf(f)
	}
	return n, nil
}

// mergeChildrenOf recursively collapses f's own children list and then
// descends, since a parent anywhere in the subtree may have mergeable
// leaf children.
func mergeChildrenOf(f *gff3.FeatureNode) {
	f.Children = mergeAdjacentLeaves(f.Children)
	for _, c := range f.Children {
		mergeChildrenOf(c)
	}
}

func mergeAdjacentLeaves(children []*gff3.FeatureNode) []*gff3.FeatureNode {
	if len(children) < 2 {
		return children
	}
	var out []*gff3.FeatureNode
	i := 0
	for i < len(children) {
		cur := children[i]
		if i+1 < len(children) && mergeable(cur, children[i+1]) {
			next := children[i+1]
			allen := interval.Compare(cur, next)
			if allen == interval.MeetsB && cur.End+1 == next.Start {
				merged := cur.Clone()
				merged.End = next.End
				merged.Score = nil
				out = append(out, merged)
				i += 2
				continue
			}
		}
		out = append(out, cur)
		i++
	}
	return out
}

// mergeable reports whether a and b are both childless leaves of the
// same type, eligible for the merge_feature abutment rule.
func mergeable(a, b *gff3.FeatureNode) bool {
	return len(a.Children) == 0 && len(b.Children) == 0 &&
		!a.IsMulti() && !b.IsMulti() &&
		a.Type == b.Type && a.SeqId == b.SeqId
}

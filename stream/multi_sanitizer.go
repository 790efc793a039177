package stream

import "github.com/grendeloz/gffgraph/gff3"

// MultiSanitizerStream implements the multi_sanitizer transformer of
// spec.md section 4.F: re-elects representatives for multi-features so
// the first occurrence encountered in a DFS of the subtree is the
// representative, needed after an upstream rewrite (e.g. select,
// merge_feature) may have dropped the prior representative. Grounded
// on original_source/src/extended/multi_sanitizer_visitor.c; no
// teacher equivalent existed (the teacher's Feature type has no
// multi-feature concept), so this is new code in the teacher's
// stage-struct style.
type MultiSanitizerStream struct {
	upstream NodeStream
}

func NewMultiSanitizerStream(upstream NodeStream) *MultiSanitizerStream {
	return &MultiSanitizerStream{upstream: upstream}
}

func (m *MultiSanitizerStream) PreservesSortOrder() bool { return true }

func (m *MultiSanitizerStream) Next() (gff3.Node, error) {
	n, err := m.upstream.Next()
	if err != nil {
		return nil, err
	}
	if f, ok := n.(*gff3.FeatureNode); ok {
		sanitize(f)
	}
	return n, nil
}

// sanitize walks f's subtree, re-electing the first member encountered
// in each multi-feature group as its representative.
func sanitize(f *gff3.FeatureNode) {
	groups := make(map[*gff3.FeatureNode][]*gff3.FeatureNode)

	f.TraverseChildren(true, false, func(n *gff3.FeatureNode) error {
		if !n.IsMulti() {
			return nil
		}
		rep := n.GetMultiRepresentative()
		groups[rep] = append(groups[rep], n)
		return nil
	})

	for _, members := range groups {
		if len(members) == 0 {
			continue
		}
		// members is already in DFS-visit order, so members[0] is the
		// first occurrence in the subtree - the new representative.
		newRep := members[0]
		for _, m := range members {
			m.UnsetMulti()
		}
		newRep.MakeMultiRepresentative()
		for _, m := range members {
			if m == newRep {
				continue
			}
			m.SetMultiRepresentative(newRep)
		}
	}
}

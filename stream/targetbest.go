package stream

import (
	"io"
	"strings"

	"github.com/grendeloz/gffgraph/gff3"
)

// TargetBestSelectStream implements the targetbest_select transformer
// of spec.md section 4.F: for top-level features having exactly one
// Target attribute, keep only the highest-scoring per (seqid,
// target-id). Memory is O(unique keys), per spec.md - it must see the
// whole stream before it can know which features to drop, so unlike
// the other stages it is not itself an incremental NodeStream filter;
// the first Next call buffers the whole upstream, then Next replays.
// Grounded on
// original_source/src/extended/targetbest_select_stream.c.
type TargetBestSelectStream struct {
	upstream NodeStream
	out      []gff3.Node
	pos      int
	built    bool
}

func NewTargetBestSelectStream(upstream NodeStream) *TargetBestSelectStream {
	return &TargetBestSelectStream{upstream: upstream}
}

func (t *TargetBestSelectStream) PreservesSortOrder() bool { return false }

type targetKey struct {
	seqid, target string
}

func (t *TargetBestSelectStream) build() error {
	nodes, err := Collect(t.upstream)
	if err != nil {
		return err
	}

	best := make(map[targetKey]*gff3.FeatureNode)
	var others []gff3.Node

	for _, n := range nodes {
		f, ok := n.(*gff3.FeatureNode)
		if !ok {
			others = append(others, n)
			continue
		}
		targetID, ok := singleTargetID(f)
		if !ok {
			others = append(others, n)
			continue
		}
		key := targetKey{f.SeqId, targetID}
		cur, seen := best[key]
		if !seen || featureScore(f) > featureScore(cur) {
			best[key] = f
		}
	}

	t.out = others
	for _, f := range best {
		t.out = append(t.out, f)
	}
	t.built = true
	return nil
}

// singleTargetID returns the ID field of f's Target attribute if it
// carries exactly one (unparenthesized, no commas) target.
func singleTargetID(f *gff3.FeatureNode) (string, bool) {
	v, ok := f.Attributes.Get("Target")
	if !ok || strings.Contains(v, ",") {
		return "", false
	}
	fields := strings.Fields(v)
	if len(fields) < 3 {
		return "", false
	}
	return fields[0], true
}

func featureScore(f *gff3.FeatureNode) float64 {
	if f == nil || f.Score == nil {
		return -1
	}
	return *f.Score
}

func (t *TargetBestSelectStream) Next() (gff3.Node, error) {
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

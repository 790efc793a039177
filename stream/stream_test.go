package stream

import (
	"io"
	"strings"
	"testing"

	"github.com/grendeloz/gffgraph/gff3"
)

func newFeature(seqid, typ string, start, end int, score *float64) *gff3.FeatureNode {
	f := gff3.NewFeatureNode()
	f.SeqId = seqid
	f.Type = typ
	f.Start = start
	f.End = end
	f.Score = score
	return f
}

func scorePtr(v float64) *float64 { return &v }

func TestSliceStreamAndCollect(t *testing.T) {
	nodes := []gff3.Node{
		newFeature("chr1", "gene", 1, 10, nil),
		newFeature("chr1", "gene", 20, 30, nil),
	}
	s := NewSliceStream(nodes)

	got, err := Collect(s)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(got))
	}

	// Next should keep returning io.EOF idempotently.
	if _, err := s.Next(); err != io.EOF {
		t.Fatalf("expected io.EOF after exhaustion, got %v", err)
	}
	if _, err := s.Next(); err != io.EOF {
		t.Fatalf("expected idempotent io.EOF on repeated calls, got %v", err)
	}
}

func TestAddIDsStreamAssignsAndSynthesizesRegion(t *testing.T) {
	f := newFeature("chr1", "gene", 100, 200, nil)
	a := NewAddIDsStream(NewSliceStream([]gff3.Node{f}), "auto", false)

	nodes, err := Collect(a)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	var sawRegion, sawFeature bool
	for _, n := range nodes {
		switch v := n.(type) {
		case *gff3.RegionNode:
			sawRegion = true
			r := v.GetRange()
			if r.Start != 100 || r.End != 200 {
				t.Fatalf("synthesized region should span the feature, got %+v", r)
			}
		case *gff3.FeatureNode:
			sawFeature = true
			id, ok := v.ID()
			if !ok || !strings.HasPrefix(id, "auto") {
				t.Fatalf("feature should have received an auto-assigned ID, got %q ok=%v", id, ok)
			}
		}
	}
	if !sawRegion || !sawFeature {
		t.Fatalf("expected both a synthesized region and the feature in output")
	}
}

func TestAddIDsStreamKeepsExistingID(t *testing.T) {
	f := newFeature("chr1", "gene", 100, 200, nil)
	f.Attributes.Set("ID", "existing-id")
	a := NewAddIDsStream(NewSliceStream([]gff3.Node{f}), "auto", false)

	nodes, err := Collect(a)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	for _, n := range nodes {
		if ff, ok := n.(*gff3.FeatureNode); ok {
			id, _ := ff.ID()
			if id != "existing-id" {
				t.Fatalf("pre-existing ID should be left alone, got %q", id)
			}
		}
	}
}

func TestMergeFeatureStreamMergesAbuttingLeaves(t *testing.T) {
	parent := newFeature("chr1", "mRNA", 100, 400, nil)
	c1 := newFeature("chr1", "exon", 100, 199, nil)
	c2 := newFeature("chr1", "exon", 200, 400, nil)
	parent.AddChild(c1)
	parent.AddChild(c2)

	m := NewMergeFeatureStream(NewSliceStream([]gff3.Node{parent}))
	n, err := m.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	f := n.(*gff3.FeatureNode)
	if len(f.Children) != 1 {
		t.Fatalf("expected abutting exons to merge into 1 child, got %d", len(f.Children))
	}
	if f.Children[0].Start != 100 || f.Children[0].End != 400 {
		t.Fatalf("merged child should span 100-400, got %d-%d", f.Children[0].Start, f.Children[0].End)
	}
}

func TestMergeFeatureStreamLeavesNonAbuttingAlone(t *testing.T) {
	parent := newFeature("chr1", "mRNA", 100, 400, nil)
	c1 := newFeature("chr1", "exon", 100, 190, nil)
	c2 := newFeature("chr1", "exon", 200, 400, nil)
	parent.AddChild(c1)
	parent.AddChild(c2)

	m := NewMergeFeatureStream(NewSliceStream([]gff3.Node{parent}))
	n, _ := m.Next()
	f := n.(*gff3.FeatureNode)
	if len(f.Children) != 2 {
		t.Fatalf("non-abutting exons should not merge, got %d children", len(f.Children))
	}
}

func TestSelectStreamWithSeqIdAndDroppedHandler(t *testing.T) {
	f1 := newFeature("chr1", "gene", 1, 10, nil)
	f2 := newFeature("chr2", "gene", 1, 10, nil)

	var dropped []string
	s := NewSelectStream(NewSliceStream([]gff3.Node{f1, f2})).
		OnDropped(func(n gff3.Node, reason string) { dropped = append(dropped, reason) }).
		WithSeqId("^chr1$")

	nodes, err := Collect(s)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(nodes) != 1 {
		t.Fatalf("expected 1 surviving node, got %d", len(nodes))
	}
	if len(dropped) != 1 || dropped[0] != "seqid" {
		t.Fatalf("expected one drop reason 'seqid', got %v", dropped)
	}
}

func TestSelectStreamWithLengthBounds(t *testing.T) {
	short := newFeature("chr1", "gene", 1, 5, nil)
	long := newFeature("chr1", "gene", 1, 500, nil)

	s := NewSelectStream(NewSliceStream([]gff3.Node{short, long})).WithLengthBounds(100, 1000)
	nodes, err := Collect(s)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(nodes) != 1 {
		t.Fatalf("expected 1 surviving node, got %d", len(nodes))
	}
	if nodes[0].(*gff3.FeatureNode) != long {
		t.Fatalf("expected the long feature to survive")
	}
}

func TestSelectStreamPassesNonFeatureNodes(t *testing.T) {
	region := gff3.NewRegionNode("chr1", 1, 1000)
	s := NewSelectStream(NewSliceStream([]gff3.Node{region})).WithSeqId("^chr2$")
	nodes, err := Collect(s)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(nodes) != 1 {
		t.Fatalf("non-FeatureNode nodes should always pass through, got %d", len(nodes))
	}
}

func TestTargetBestSelectStreamKeepsHighestScore(t *testing.T) {
	f1 := newFeature("chr1", "match", 1, 10, scorePtr(5))
	f1.Attributes.Set("Target", "geneA 1 10 +")
	f2 := newFeature("chr1", "match", 20, 30, scorePtr(9))
	f2.Attributes.Set("Target", "geneA 1 10 +")

	ts := NewTargetBestSelectStream(NewSliceStream([]gff3.Node{f1, f2}))
	nodes, err := Collect(ts)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(nodes) != 1 {
		t.Fatalf("expected only the best-scoring match to survive, got %d", len(nodes))
	}
	if nodes[0].(*gff3.FeatureNode) != f2 {
		t.Fatalf("expected f2 (score 9) to win over f1 (score 5)")
	}
}

func TestTargetBestSelectStreamDistinctKeysBothSurvive(t *testing.T) {
	f1 := newFeature("chr1", "match", 1, 10, scorePtr(5))
	f1.Attributes.Set("Target", "geneA 1 10 +")
	f2 := newFeature("chr1", "match", 20, 30, scorePtr(9))
	f2.Attributes.Set("Target", "geneB 1 10 +")

	ts := NewTargetBestSelectStream(NewSliceStream([]gff3.Node{f1, f2}))
	nodes, err := Collect(ts)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("distinct target keys should both survive, got %d", len(nodes))
	}
}

func TestMultiSanitizerReelectsFirstDFSMember(t *testing.T) {
	parent := newFeature("chr1", "mRNA", 100, 400, nil)
	m1 := newFeature("chr1", "CDS", 100, 200, nil)
	m2 := newFeature("chr1", "CDS", 300, 400, nil)
	parent.AddChild(m1)
	parent.AddChild(m2)

	// Simulate an upstream rewrite: m2 is (wrongly) the representative.
	m2.MakeMultiRepresentative()
	m1.SetMultiRepresentative(m2)

	ms := NewMultiSanitizerStream(NewSliceStream([]gff3.Node{parent}))
	n, err := ms.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	f := n.(*gff3.FeatureNode)
	if f.Children[0].GetMultiRepresentative() != f.Children[0] {
		t.Fatalf("first DFS member m1 should be re-elected representative")
	}
	if f.Children[1].GetMultiRepresentative() != f.Children[0] {
		t.Fatalf("m2 should now point at m1 as its representative")
	}
}

func TestTidyRegionStreamWidensRegion(t *testing.T) {
	region := gff3.NewRegionNode("chr1", 1, 50)
	f := newFeature("chr1", "gene", 100, 400, nil)

	tr := NewTidyRegionStream(NewSliceStream([]gff3.Node{region, f}))
	nodes, err := Collect(tr)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	for _, n := range nodes {
		if r, ok := n.(*gff3.RegionNode); ok {
			rng := r.GetRange()
			if rng.Start != 100 || rng.End != 400 {
				t.Fatalf("region should be widened to cover the feature, got %+v", rng)
			}
		}
	}
}

func TestTidyRegionStreamErrorsOnUndeclaredRegion(t *testing.T) {
	f := newFeature("chr1", "gene", 100, 400, nil)
	tr := NewTidyRegionStream(NewSliceStream([]gff3.Node{f}))
	_, err := Collect(tr)
	if err == nil {
		t.Fatalf("expected an error for a feature citing an undeclared region")
	}
}

func TestSortedOutStreamOrdersByStart(t *testing.T) {
	f1 := newFeature("chr1", "gene", 300, 400, nil)
	f1.Attributes.Set("ID", "g2")
	f2 := newFeature("chr1", "gene", 100, 200, nil)
	f2.Attributes.Set("ID", "g1")

	var buf strings.Builder
	so := NewSortedOutStream(&buf)
	if err := so.Run(NewSliceStream([]gff3.Node{f1, f2})); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	out := buf.String()
	// The emitter renumbers IDs (GT_RETAINIDS unset), so locate each
	// feature by its start/end columns.
	i1 := strings.Index(out, "\t100\t200\t")
	i2 := strings.Index(out, "\t300\t400\t")
	if i1 < 0 || i2 < 0 || i1 > i2 {
		t.Fatalf("expected g1 (start 100) to be emitted before g2 (start 300), got: %q", out)
	}
}

func TestSortedOutStreamWritesVersionPragmaOnce(t *testing.T) {
	f1 := newFeature("chr1", "gene", 100, 200, nil)
	f1.Attributes.Set("ID", "g1")
	f2 := newFeature("chr2", "gene", 100, 200, nil)
	f2.Attributes.Set("ID", "g2")

	var buf strings.Builder
	so := NewSortedOutStream(&buf)
	// Two distinct seqids close out two separate components, each
	// going through its own emitComponent call.
	if err := so.Run(NewSliceStream([]gff3.Node{f1, f2})); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	out := buf.String()
	if n := strings.Count(out, "##gff-version 3"); n != 1 {
		t.Fatalf("expected the version pragma exactly once across components, got %d in: %q", n, out)
	}
}

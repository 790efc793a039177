package gff3

import (
	"bufio"
	"strings"
	"testing"
)

func runParse(t *testing.T, input string, cfg ParserConfig) *ParseResult {
	t.Helper()
	p := NewParser(cfg)
	res, err := p.Run(bufio.NewScanner(strings.NewReader(input)))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return res
}

// topLevelFeatures returns only the root FeatureNodes from res (what
// the parser actually places directly in ParseResult.Nodes).
func topLevelFeatures(res *ParseResult) []*FeatureNode {
	var out []*FeatureNode
	for _, n := range res.Nodes {
		if f, ok := n.(*FeatureNode); ok {
			out = append(out, f)
		}
	}
	return out
}

// allFeatures flattens every FeatureNode reachable from res's top-level
// nodes, including pseudo-roots and every descendant.
func allFeatures(res *ParseResult) []*FeatureNode {
	var out []*FeatureNode
	for _, f := range topLevelFeatures(res) {
		f.TraverseChildren(true, false, func(n *FeatureNode) error {
			out = append(out, n)
			return nil
		})
	}
	return out
}

func findByType(fs []*FeatureNode, typ string) []*FeatureNode {
	var out []*FeatureNode
	for _, f := range fs {
		if f.Type == typ {
			out = append(out, f)
		}
	}
	return out
}

// Basic parent/child: spec.md section 8 scenario 1.
func TestParserBasicParentChild(t *testing.T) {
	input := `##gff-version 3
##sequence-region chr1 1 1000
chr1	ex	gene	100	400	.	+	.	ID=g1
chr1	ex	mRNA	100	400	.	+	.	ID=m1;Parent=g1
chr1	ex	exon	100	200	.	+	.	Parent=m1
chr1	ex	exon	300	400	.	+	.	Parent=m1
###
`
	res := runParse(t, input, ParserConfig{})

	roots := topLevelFeatures(res)
	if len(roots) != 1 {
		t.Fatalf("expected exactly 1 top-level feature (the gene), got %d", len(roots))
	}
	gene := roots[0]
	if gene.Type != "gene" {
		t.Fatalf("expected the sole top-level feature to be the gene, got %q", gene.Type)
	}
	if len(gene.Children) != 1 || gene.Children[0].Type != "mRNA" {
		t.Fatalf("gene should have one mRNA child, got %+v", gene.Children)
	}
	mrna := gene.Children[0]
	if len(mrna.Children) != 2 {
		t.Fatalf("mRNA should have two exon children, got %d", len(mrna.Children))
	}
	if mrna.Children[0].Start != 100 || mrna.Children[1].Start != 300 {
		t.Fatalf("exon order not preserved: %+v", mrna.Children)
	}

	all := allFeatures(res)
	if len(all) != 4 {
		t.Fatalf("expected 4 features total across the tree, got %d", len(all))
	}
}

// Multi-feature wrapping: spec.md section 8 scenario 2.
func TestParserMultiFeatureWrapping(t *testing.T) {
	input := `##gff-version 3
##sequence-region chr1 1 1000
chr1	ex	CDS	100	200	.	+	0	ID=cds1
chr1	ex	CDS	300	400	.	+	0	ID=cds1
###
`
	res := runParse(t, input, ParserConfig{})

	roots := topLevelFeatures(res)
	if len(roots) != 1 || !roots[0].IsPseudo {
		t.Fatalf("expected a single synthetic pseudo-root wrapping both CDS members, got %+v", roots)
	}
	pseudo := roots[0]
	if len(pseudo.Children) != 2 {
		t.Fatalf("expected the pseudo-root to have 2 CDS children, got %d", len(pseudo.Children))
	}

	cds := findByType(allFeatures(res), "CDS")
	if len(cds) != 2 {
		t.Fatalf("expected 2 CDS feature nodes, got %d", len(cds))
	}
	if !cds[0].IsMulti() || !cds[1].IsMulti() {
		t.Fatalf("both CDS lines should be multi-feature members")
	}
	if cds[0].GetMultiRepresentative() != cds[1].GetMultiRepresentative() {
		t.Fatalf("both CDS lines should share one representative")
	}
	id0, _ := cds[0].ID()
	id1, _ := cds[1].ID()
	if id0 != "cds1" || id1 != "cds1" {
		t.Fatalf("both members should keep ID=cds1, got %q and %q", id0, id1)
	}
}

// Missing parent: spec.md section 8 scenario 3.
func TestParserMissingParentTidyMode(t *testing.T) {
	input := `##gff-version 3
##sequence-region chr1 1 1000
chr1	ex	exon	100	200	.	+	.	ID=e1;Parent=g_missing
`
	res := runParse(t, input, ParserConfig{Tidy: true})
	roots := topLevelFeatures(res)
	if len(roots) != 1 {
		t.Fatalf("expected 1 orphan feature to be retained, got %d", len(roots))
	}
	parent, ok := roots[0].Attributes.Get("Parent")
	if !ok || parent != "g_missing" {
		t.Fatalf("orphan's Parent attribute should be preserved verbatim, got %q ok=%v", parent, ok)
	}
}

func TestParserMissingParentStrictMode(t *testing.T) {
	input := `##gff-version 3
##sequence-region chr1 1 1000
chr1	ex	exon	100	200	.	+	.	ID=e1;Parent=g_missing
`
	_, err := NewParser(ParserConfig{Strict: true}).Run(bufio.NewScanner(strings.NewReader(input)))
	if err == nil {
		t.Fatalf("expected an error for an unresolved orphan in strict mode")
	}
}

// Terminator barrier: spec.md section 8 scenario 4.
func TestParserTerminatorBarrierDuplicateID(t *testing.T) {
	input := `##gff-version 3
##sequence-region chr1 1 1000
chr1	ex	gene	100	200	.	+	.	ID=x
###
chr1	ex	gene	300	400	.	+	.	ID=x
`
	_, err := NewParser(ParserConfig{Strict: true, CheckIDs: true}).Run(bufio.NewScanner(strings.NewReader(input)))
	if err == nil {
		t.Fatalf("expected a strict error for an ID reused across a ### terminator with CheckIDs set")
	}
}

func TestParserTerminatorResetsIDsWithoutCheckIDs(t *testing.T) {
	input := `##gff-version 3
##sequence-region chr1 1 1000
chr1	ex	gene	100	200	.	+	.	ID=x
###
chr1	ex	gene	300	400	.	+	.	ID=x
`
	res := runParse(t, input, ParserConfig{})
	roots := topLevelFeatures(res)
	if len(roots) != 2 {
		t.Fatalf("without CheckIDs, a reused ID across ### should be two independent roots, got %d", len(roots))
	}
}

func TestParserAutoRegionWidening(t *testing.T) {
	input := `##gff-version 3
chr1	ex	gene	100	400	.	+	.	ID=g1
`
	res := runParse(t, input, ParserConfig{})
	var region *RegionNode
	for _, n := range res.Nodes {
		if r, ok := n.(*RegionNode); ok {
			region = r
		}
	}
	if region == nil {
		t.Fatalf("expected an auto-synthesized RegionNode for chr1")
	}
	rng := region.GetRange()
	if rng.Start != 100 || rng.End != 400 {
		t.Fatalf("auto region should widen to cover the feature, got %+v", rng)
	}
}

func TestParserOffsetScalar(t *testing.T) {
	input := `##gff-version 3
##sequence-region chr1 1 1000
chr1	ex	gene	100	200	.	+	.	ID=g1
`
	res := runParse(t, input, ParserConfig{Offset: &Offset{Scalar: 10}})
	roots := topLevelFeatures(res)
	if len(roots) != 1 {
		t.Fatalf("expected 1 feature, got %d", len(roots))
	}
	if roots[0].Start != 110 || roots[0].End != 210 {
		t.Fatalf("offset should shift coordinates, got %d-%d", roots[0].Start, roots[0].End)
	}
}

func TestParserFastaSection(t *testing.T) {
	input := `##gff-version 3
##sequence-region chr1 1 10
chr1	ex	gene	1	10	.	+	.	ID=g1
###
##FASTA
>chr1 test chromosome
ACGTACGTAC
`
	res := runParse(t, input, ParserConfig{})
	var seq *SequenceNode
	for _, n := range res.Nodes {
		if s, ok := n.(*SequenceNode); ok {
			seq = s
		}
	}
	if seq == nil {
		t.Fatalf("expected a SequenceNode from the ##FASTA section")
	}
	if seq.GetSeqID() != "chr1" {
		t.Fatalf("sequence Name should be chr1, got %q", seq.GetSeqID())
	}
	if seq.Residues != "ACGTACGTAC" {
		t.Fatalf("unexpected residues: %q", seq.Residues)
	}
	sub, err := seq.SubSequence(2, 4)
	if err != nil {
		t.Fatalf("SubSequence failed: %v", err)
	}
	if sub != "CGT" {
		t.Fatalf("SubSequence(2,4) should be CGT, got %q", sub)
	}
}

package diagram

import (
	"testing"

	"github.com/grendeloz/gffgraph/gff3"
)

func newFeature(seqid, typ string, start, end int, id string) *gff3.FeatureNode {
	f := gff3.NewFeatureNode()
	f.SeqId = seqid
	f.Type = typ
	f.Start = start
	f.End = end
	if id != "" {
		f.Attributes.Set("ID", id)
		f.Attributes.Set("Name", id)
	}
	f.File = "sample.gff3"
	return f
}

func TestBuildSingleFeatureOneBlock(t *testing.T) {
	style := NewMapStyle()
	d := New("chr1", 1, 1000, style)

	gene := newFeature("chr1", "gene", 100, 400, "g1")
	if err := d.Build([]*gff3.FeatureNode{gene}); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	tracks := d.Tracks()
	if len(tracks) != 1 {
		t.Fatalf("expected 1 track, got %d", len(tracks))
	}
	if len(tracks[0].Blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(tracks[0].Blocks))
	}
	if tracks[0].Blocks[0].Range.Start != 100 || tracks[0].Blocks[0].Range.End != 400 {
		t.Fatalf("block range should match the feature, got %+v", tracks[0].Blocks[0].Range)
	}
}

func TestBuildSkipsFeatureOutsideVisibleRange(t *testing.T) {
	style := NewMapStyle()
	d := New("chr1", 1, 50, style)

	gene := newFeature("chr1", "gene", 100, 400, "g1")
	if err := d.Build([]*gff3.FeatureNode{gene}); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(d.Tracks()) != 0 {
		t.Fatalf("feature entirely outside the visible range should produce no blocks")
	}
}

func TestBuildSkipsDifferentSeqId(t *testing.T) {
	style := NewMapStyle()
	d := New("chr1", 1, 1000, style)

	gene := newFeature("chr2", "gene", 100, 400, "g1")
	if err := d.Build([]*gff3.FeatureNode{gene}); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(d.Tracks()) != 0 {
		t.Fatalf("a root on a different seqid should be skipped entirely")
	}
}

func TestBuildMaxShowWidthHidesFeature(t *testing.T) {
	style := NewMapStyle()
	style.SetNum("diagram", KeyMaxShowWidth+":gene", 100)
	d := New("chr1", 1, 1000, style)

	gene := newFeature("chr1", "gene", 100, 400, "g1")
	if err := d.Build([]*gff3.FeatureNode{gene}); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(d.Tracks()) != 0 {
		t.Fatalf("visible range (1000) exceeds max_show_width (100), feature should be hidden")
	}
}

func TestBuildCollapseToParent(t *testing.T) {
	style := NewMapStyle()
	style.SetBool("diagram", KeyCollapseToParent+":exon", true)
	d := New("chr1", 1, 1000, style)

	mrna := newFeature("chr1", "mRNA", 100, 400, "m1")
	exon1 := newFeature("chr1", "exon", 100, 200, "e1")
	exon2 := newFeature("chr1", "exon", 300, 400, "e2")
	mrna.AddChild(exon1)
	mrna.AddChild(exon2)

	if err := d.Build([]*gff3.FeatureNode{mrna}); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	tracks := d.Tracks()
	var mrnaTrack *Track
	for _, tr := range tracks {
		for _, b := range tr.Blocks {
			for _, f := range b.Features {
				if f == mrna {
					mrnaTrack = tr
				}
			}
		}
	}
	if mrnaTrack == nil {
		t.Fatalf("expected to find the mRNA's track")
	}
	var mrnaBlock *Block
	for _, b := range mrnaTrack.Blocks {
		for _, f := range b.Features {
			if f == mrna {
				mrnaBlock = b
			}
		}
	}
	if len(mrnaBlock.Features) != 3 {
		t.Fatalf("collapse_to_parent should merge both exons into the mRNA's block, got %d features", len(mrnaBlock.Features))
	}
}

func TestBuildGroupByParentGroupsSiblings(t *testing.T) {
	style := NewMapStyle()
	style.SetBool("diagram", KeyGroupByParent+":exon", true)
	d := New("chr1", 1, 1000, style)

	mrna := newFeature("chr1", "mRNA", 100, 400, "m1")
	exon1 := newFeature("chr1", "exon", 100, 200, "e1")
	exon2 := newFeature("chr1", "exon", 300, 400, "e2")
	mrna.AddChild(exon1)
	mrna.AddChild(exon2)

	if err := d.Build([]*gff3.FeatureNode{mrna}); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	var exonBlockCount int
	for _, tr := range d.Tracks() {
		for _, b := range tr.Blocks {
			for _, f := range b.Features {
				if f.Type == "exon" {
					exonBlockCount++
					if len(b.Features) != 2 {
						t.Fatalf("grouped exons should share one block with 2 features, got %d", len(b.Features))
					}
					break
				}
			}
		}
	}
	if exonBlockCount == 0 {
		t.Fatalf("expected to find a block containing the grouped exons")
	}
}

func TestBuildMultiFeatureChildrenOfPseudoParentShareBlock(t *testing.T) {
	style := NewMapStyle()
	d := New("chr1", 1, 1000, style)

	pseudo := gff3.NewFeatureNode()
	pseudo.SeqId = "chr1"
	pseudo.IsPseudo = true

	m1 := newFeature("chr1", "CDS", 100, 200, "cds1")
	m2 := newFeature("chr1", "CDS", 300, 400, "cds1")
	m1.MakeMultiRepresentative()
	m2.SetMultiRepresentative(m1)
	pseudo.AddChild(m1)
	pseudo.AddChild(m2)

	if err := d.Build([]*gff3.FeatureNode{pseudo}); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	var cdsBlock *Block
	for _, tr := range d.Tracks() {
		for _, b := range tr.Blocks {
			for _, f := range b.Features {
				if f.Type == "CDS" {
					cdsBlock = b
				}
			}
		}
	}
	if cdsBlock == nil {
		t.Fatalf("expected to find the CDS block")
	}
	if len(cdsBlock.Features) != 2 {
		t.Fatalf("multi-feature members should share one block even ungrouped, got %d features", len(cdsBlock.Features))
	}
}

func TestResolveCaptionDefaultsToParentSlashName(t *testing.T) {
	style := NewMapStyle()
	d := New("chr1", 1, 1000, style)

	gene := newFeature("chr1", "gene", 100, 400, "g1")
	mrna := newFeature("chr1", "mRNA", 100, 400, "m1")
	gene.AddChild(mrna)

	if err := d.Build([]*gff3.FeatureNode{gene}); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	var mrnaBlock *Block
	for _, tr := range d.Tracks() {
		for _, b := range tr.Blocks {
			for _, f := range b.Features {
				if f == mrna {
					mrnaBlock = b
				}
			}
		}
	}
	if mrnaBlock == nil {
		t.Fatalf("expected to find the mRNA's block")
	}
	if mrnaBlock.Caption != "g1/m1" {
		t.Fatalf("expected caption 'g1/m1', got %q", mrnaBlock.Caption)
	}
}

func TestDefaultTrackSelector(t *testing.T) {
	f := newFeature("chr1", "gene", 1, 10, "g1")
	f.File = "/path/to/sample.gff3"
	got := DefaultTrackSelector(f)
	want := "sample.gff3|gene"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

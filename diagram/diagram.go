package diagram

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/grendeloz/gffgraph/gff3"
)

// Block is a set of FeatureNodes grouped for drawing, per spec.md
// section "GLOSSARY" ("Block: a set of FeatureNodes grouped for
// drawing; one block per visual row-worthy group within a track").
type Block struct {
	Range    gff3.Range
	Caption  string
	Features []*gff3.FeatureNode
}

func (b *Block) extend(f *gff3.FeatureNode) {
	r := f.GetRange()
	if len(b.Features) == 0 {
		b.Range = r
	} else {
		if r.Start < b.Range.Start {
			b.Range.Start = r.Start
		}
		if r.End > b.Range.End {
			b.Range.End = r.End
		}
	}
	b.Features = append(b.Features, f)
}

// Track is a named horizontal lane into which Blocks sharing a track
// key are collected, per spec.md's GLOSSARY.
type Track struct {
	ID     string
	Blocks []*Block
}

// TrackSelector produces the track key for a block's first feature,
// per spec.md section 4.H ("a track selector that defaults to
// basename(filename)|type").
type TrackSelector func(f *gff3.FeatureNode) string

// DefaultTrackSelector implements the documented default.
func DefaultTrackSelector(f *gff3.FeatureNode) string {
	return fmt.Sprintf("%s|%s", filepath.Base(f.File), f.Type)
}

// Diagram is a construction over a fixed visible range [rs,re] on one
// seqid, per spec.md section 4.H.
type Diagram struct {
	SeqId    string
	Start    int
	End      int
	style    Style
	selector TrackSelector

	tracks   map[string]*Track
	order    []string
	blockKey map[*gff3.FeatureNode]*Block // parent/representative -> its shared block
}

// New builds a Diagram for [start,end] on seqid, using style for the
// per-type policy lookups and DefaultTrackSelector for the track key.
// Installing a different selector later forces a
// rebuild, per spec.md section 4.H - callers do this via
// SetTrackSelector before calling Build again.
func New(seqid string, start, end int, style Style) *Diagram {
	return &Diagram{
		SeqId:    seqid,
		Start:    start,
		End:      end,
		style:    style,
		selector: DefaultTrackSelector,
	}
}

// SetTrackSelector installs a custom track selector; the caller must
// call Build again to rebuild the block map under the new keying,
// per spec.md section 4.H ("users may install a custom selector which
// forces a rebuild").
func (d *Diagram) SetTrackSelector(sel TrackSelector) {
	if sel == nil {
		sel = DefaultTrackSelector
	}
	d.selector = sel
}

func (d *Diagram) overlapsRange(r gff3.Range) bool {
	return r.Start <= d.End && d.Start <= r.End
}

// Build computes blocks by DFS over each given root feature, per the
// decision procedure in spec.md section 4.H. roots should be the
// top-level FeatureNodes (including pseudo-roots) whose seqid matches
// d.SeqId; Build skips whatever does not overlap the visible range.
func (d *Diagram) Build(roots []*gff3.FeatureNode) error {
	d.tracks = make(map[string]*Track)
	d.order = nil
	d.blockKey = make(map[*gff3.FeatureNode]*Block)

	for _, r := range roots {
		if r.SeqId != d.SeqId {
			continue
		}
		if err := d.visit(r, nil); err != nil {
			return err
		}
	}
	return nil
}

// maxShowWidth resolves the configured max_show_width for f's type;
// ok is false when no limit is configured.
func (d *Diagram) maxShowWidth(key string, f *gff3.FeatureNode) (float64, bool, error) {
	return d.style.GetNum("diagram", key+":"+f.Type, f)
}

func (d *Diagram) visibleRangeLen() int { return d.End - d.Start + 1 }

// nearestNonPseudoAncestor walks parent edges for the first
// non-pseudo ancestor, per spec.md section 4.H step 3 ("merges into
// the block of the nearest non-pseudo ancestor").
func nearestNonPseudoAncestor(f *gff3.FeatureNode) *gff3.FeatureNode {
	for _, p := range f.Parents() {
		if !p.IsPseudo {
			return p
		}
		if gp := nearestNonPseudoAncestor(p); gp != nil {
			return gp
		}
	}
	return nil
}

// visit implements the per-node decision procedure of spec.md section
// 4.H. parent is the calling context's immediate parent (may be a
// pseudo-root), used to decide grouping; nil for a genuine root.
func (d *Diagram) visit(f *gff3.FeatureNode, parent *gff3.FeatureNode) error {
	r := f.GetRange()
	// 1. range overlap
	if !d.overlapsRange(r) {
		return nil
	}

	// 2. max_show_width for this node's type, and for the parent's type.
	if w, ok, err := d.maxShowWidth(KeyMaxShowWidth, f); err != nil {
		return err
	} else if ok && float64(d.visibleRangeLen()) > w {
		return nil
	}
	effectiveParent := parent
	if effectiveParent != nil && !effectiveParent.IsPseudo {
		if w, ok, err := d.maxShowWidth(KeyMaxShowWidth, effectiveParent); err != nil {
			return err
		} else if ok && float64(d.visibleRangeLen()) > w {
			effectiveParent = nil
		}
	}

	// 5. multi-feature children of a pseudo parent always join the
	// representative's block, even in the non-grouped case.
	if f.IsMulti() && effectiveParent != nil && effectiveParent.IsPseudo {
		rep := f.GetMultiRepresentative()
		blk := d.blockKey[rep]
		if blk == nil {
			blk = d.newBlock(f)
			d.blockKey[rep] = blk
		} else {
			blk.extend(f)
		}
		return d.visitChildren(f, effectiveParent)
	}

	// 3. collapse_to_parent: merge into nearest non-pseudo ancestor's
	// block.
	collapse, ok, err := d.style.GetBool("diagram", KeyCollapseToParent+":"+f.Type, f)
	if err != nil {
		return err
	}
	if ok && collapse {
		if anc := nearestNonPseudoAncestor(f); anc != nil {
			blk := d.blockKey[anc]
			if blk == nil {
				// Reuse the block the ancestor already sits in, if any.
				for _, k := range d.order {
					for _, b := range d.tracks[k].Blocks {
						for _, bf := range b.Features {
							if bf == anc {
								blk = b
							}
						}
					}
				}
			}
			if blk == nil {
				blk = d.newBlock(anc)
			}
			d.blockKey[anc] = blk
			blk.extend(f)
			return d.visitChildren(f, effectiveParent)
		}
	}

	// 4. group_by_parent, or (undefined and siblings do not overlap).
	group, groupSet, err := d.style.GetBool("diagram", KeyGroupByParent+":"+f.Type, f)
	if err != nil {
		return err
	}
	shouldGroup := groupSet && group
	if !groupSet && effectiveParent != nil && !siblingsOverlap(effectiveParent) {
		shouldGroup = true
	}

	var blk *Block
	if shouldGroup && effectiveParent != nil && len(effectiveParent.Children) >= 2 {
		blk = d.blockKey[effectiveParent]
		if blk == nil {
			blk = d.newBlock(f)
			d.blockKey[effectiveParent] = blk
		} else {
			blk.extend(f)
		}
	} else {
		blk = d.newBlock(f)
	}

	return d.visitChildren(f, effectiveParent)
}

func (d *Diagram) visitChildren(f *gff3.FeatureNode, parent *gff3.FeatureNode) error {
	for _, c := range f.Children {
		if err := d.visit(c, f); err != nil {
			return err
		}
	}
	return nil
}

func siblingsOverlap(parent *gff3.FeatureNode) bool {
	sib := parent.Children
	for i := 0; i < len(sib); i++ {
		for j := i + 1; j < len(sib); j++ {
			ri, rj := sib[i].GetRange(), sib[j].GetRange()
			if ri.Start <= rj.End && rj.Start <= ri.End {
				return true
			}
		}
	}
	return false
}

// newBlock creates a block containing f alone, assigns its caption,
// and files it under f's track.
func (d *Diagram) newBlock(f *gff3.FeatureNode) *Block {
	blk := &Block{}
	blk.extend(f)
	blk.Caption = d.resolveCaption(f)

	key := d.selector(f)
	t, ok := d.tracks[key]
	if !ok {
		t = &Track{ID: key}
		d.tracks[key] = t
		d.order = append(d.order, key)
	}
	t.Blocks = append(t.Blocks, blk)
	return blk
}

// resolveCaption implements spec.md section 4.H step 6: explicit
// block_caption template, else "<parent_name>/<node_name>" or
// "-/<node_name>" when the parent has no Name/ID, else no caption.
func (d *Diagram) resolveCaption(f *gff3.FeatureNode) string {
	if tmpl, ok, _ := d.style.GetStr("diagram", KeyBlockCaption+":"+f.Type, f); ok && tmpl != "" {
		return tmpl
	}
	name, ok := f.Attributes.Get("Name")
	if !ok {
		name, ok = f.ID()
	}
	if !ok {
		return ""
	}
	var parentLabel string
	if ps := f.Parents(); len(ps) > 0 && !ps[0].IsPseudo {
		p := ps[0]
		pn, ok := p.Attributes.Get("Name")
		if !ok {
			pn, ok = p.ID()
		}
		if ok {
			parentLabel = pn
		} else {
			parentLabel = "-"
		}
	} else {
		parentLabel = "-"
	}
	return parentLabel + "/" + name
}

// Tracks returns the diagram's tracks in first-seen order.
func (d *Diagram) Tracks() []*Track {
	out := make([]*Track, 0, len(d.order))
	for _, k := range d.order {
		out = append(out, d.tracks[k])
	}
	return out
}

// SortedTrackIDs returns the track keys sorted lexicographically, for
// callers that want deterministic iteration rather than build order.
func (d *Diagram) SortedTrackIDs() []string {
	out := append([]string(nil), d.order...)
	sort.Strings(out)
	return out
}

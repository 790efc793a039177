// Package layout implements spec.md section 4.I: assigning each
// diagram Block to a line within its track. Grounded on
// original_source/src/annotationsketch/layout.c,
// line_breaker_bases.c, and line_breaker_captions.c; no teacher
// equivalent existed, so this is new code in the teacher's
// small-struct style, reusing package ivtree for the bases breaker
// exactly as the original reuses its own interval tree per line.
package layout

import (
	"github.com/grendeloz/gffgraph/diagram"
	"github.com/grendeloz/gffgraph/ivtree"
)

// Line is one horizontal row within a track.
type Line struct {
	Blocks []*diagram.Block
}

// LineBreaker decides whether a candidate block fits on an existing
// line, and records a block once placed, per spec.md section 4.I
// ("two line breakers exist (interface-polymorphic)").
type LineBreaker interface {
	IsOccupied(line *Line, block *diagram.Block) bool
	RegisterBlock(line *Line, block *diagram.Block)
}

// BasesLineBreaker implements spec.md's "bases line breaker": a line
// is occupied by a block if any previously registered block on that
// line overlaps the new block's coordinate range, backed by one
// interval tree per line. Grounded directly on
// line_breaker_bases.c's per-line GtIntervalTree hashmap.
type BasesLineBreaker struct {
	trees map[*Line]*ivtree.Tree
}

func NewBasesLineBreaker() *BasesLineBreaker {
	return &BasesLineBreaker{trees: make(map[*Line]*ivtree.Tree)}
}

func (b *BasesLineBreaker) IsOccupied(line *Line, block *diagram.Block) bool {
	t, ok := b.trees[line]
	if !ok {
		return false
	}
	return t.FindFirstOverlapping(block.Range.Start, block.Range.End) != nil
}

func (b *BasesLineBreaker) RegisterBlock(line *Line, block *diagram.Block) {
	t, ok := b.trees[line]
	if !ok {
		t = ivtree.New()
		b.trees[line] = t
	}
	t.Insert(block.Range.Start, block.Range.End, block)
}

// TextWidthCalculator estimates the pixel width of a caption string,
// per spec.md's "pixel width of a block's caption" requirement. A
// trivial monospace-width implementation is provided as
// MonospaceTextWidthCalculator; callers with real font metrics supply
// their own.
type TextWidthCalculator interface {
	TextWidth(s string) float64
}

// MonospaceTextWidthCalculator assumes a fixed per-character pixel
// width.
type MonospaceTextWidthCalculator struct {
	CharWidth float64
}

func (m MonospaceTextWidthCalculator) TextWidth(s string) float64 {
	return float64(len(s)) * m.CharWidth
}

// CaptionsLineBreaker implements spec.md's "captions line breaker":
// like bases but accounts for the pixel width of a block's caption,
// converting range and text width to a drawing domain of
// [0, width-2*margin] and comparing in that domain; only one occupied
// endpoint per line is needed (a monotone high-water mark). Grounded
// directly on line_breaker_captions.c's calculate_drawing_range /
// linepositions hashmap.
type CaptionsLineBreaker struct {
	viewStart, viewEnd int
	width              float64
	margin             float64
	twc                TextWidthCalculator
	highWater          map[*Line]float64
}

// NewCaptionsLineBreaker builds a captions breaker for a diagram
// ranging over [viewStart,viewEnd], drawn into a canvas of the given
// pixel width with margin pixels on each side.
func NewCaptionsLineBreaker(viewStart, viewEnd int, width, margin float64, twc TextWidthCalculator) *CaptionsLineBreaker {
	if twc == nil {
		twc = MonospaceTextWidthCalculator{CharWidth: 6}
	}
	return &CaptionsLineBreaker{
		viewStart: viewStart, viewEnd: viewEnd,
		width: width, margin: margin, twc: twc,
		highWater: make(map[*Line]float64),
	}
}

// drawingRange converts block.Range into pixel coordinates within
// [0, width-2*margin], widening the end to fit the caption's text
// width if the caption is wider than the range's natural pixel
// width, matching calculate_drawing_range.
func (c *CaptionsLineBreaker) drawingRange(block *diagram.Block) (start, end float64) {
	span := float64(c.viewEnd-c.viewStart) + 1
	usable := c.width - 2*c.margin
	frac := func(pos int) float64 {
		return (float64(pos-c.viewStart) / span) * usable
	}
	start = frac(block.Range.Start)
	end = frac(block.Range.End + 1)
	if block.Caption != "" {
		tw := c.twc.TextWidth(block.Caption)
		if tw > end-start {
			end = start + tw
		}
	}
	return start, end
}

func (c *CaptionsLineBreaker) IsOccupied(line *Line, block *diagram.Block) bool {
	hw, ok := c.highWater[line]
	if !ok {
		return false
	}
	start, _ := c.drawingRange(block)
	return start <= hw
}

func (c *CaptionsLineBreaker) RegisterBlock(line *Line, block *diagram.Block) {
	_, end := c.drawingRange(block)
	if cur, ok := c.highWater[line]; !ok || end > cur {
		c.highWater[line] = end
	}
}

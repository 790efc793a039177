package layout

import (
	"sort"

	"github.com/grendeloz/gffgraph/diagram"
)

// BlockComparator is a strict weak ordering over blocks, used to
// stably sort a track's blocks before assignment, per spec.md section
// 4.I step 1.
type BlockComparator func(a, b *diagram.Block) bool

// DefaultBlockComparator orders by start, then end, matching spec.md
// section 4.I ("default: start then end then stable tie").
func DefaultBlockComparator(a, b *diagram.Block) bool {
	if a.Range.Start != b.Range.Start {
		return a.Range.Start < b.Range.Start
	}
	return a.Range.End < b.Range.End
}

// TrackLayout holds the lines produced for one track.
type TrackLayout struct {
	TrackID string
	Lines   []*Line
}

// Result is the outcome of laying out a Diagram: per-track lines plus
// a per-track discarded-block count, per spec.md section 9's Open
// Question ("discarded blocks in layout...source only counts; kept")
// and section 7 ("the layout reports discarded blocks per track").
type Result struct {
	Tracks    []*TrackLayout
	Discarded map[string]int
}

// Config bundles the per-layout knobs spec.md section 4.I names.
type Config struct {
	Breaker         LineBreaker
	MaxNumLines     int // 0 means unlimited
	BlockComparator BlockComparator
}

// Build runs the track assignment algorithm of spec.md section 4.I
// over every track in d, using cfg's breaker, max line count, and
// block comparator (DefaultBlockComparator and a fresh
// BasesLineBreaker if left zero).
func Build(d *diagram.Diagram, cfg Config) *Result {
	if cfg.BlockComparator == nil {
		cfg.BlockComparator = DefaultBlockComparator
	}
	if cfg.Breaker == nil {
		cfg.Breaker = NewBasesLineBreaker()
	}

	res := &Result{Discarded: make(map[string]int)}
	for _, id := range d.SortedTrackIDs() {
		var track *diagram.Track
		for _, t := range d.Tracks() {
			if t.ID == id {
				track = t
				break
			}
		}
		if track == nil {
			continue
		}
		tl, discarded := layoutTrack(track, cfg)
		res.Tracks = append(res.Tracks, tl)
		if discarded > 0 {
			res.Discarded[id] = discarded
		}
	}
	return res
}

// layoutTrack implements spec.md section 4.I's track assignment
// algorithm for one track.
func layoutTrack(track *diagram.Track, cfg Config) (*TrackLayout, int) {
	blocks := append([]*diagram.Block(nil), track.Blocks...)
	sort.SliceStable(blocks, func(i, j int) bool {
		return cfg.BlockComparator(blocks[i], blocks[j])
	})

	tl := &TrackLayout{TrackID: track.ID}
	discarded := 0

	for _, b := range blocks {
		placed := false
		for _, line := range tl.Lines {
			if !cfg.Breaker.IsOccupied(line, b) {
				line.Blocks = append(line.Blocks, b)
				cfg.Breaker.RegisterBlock(line, b)
				placed = true
				break
			}
		}
		if placed {
			continue
		}
		if cfg.MaxNumLines == 0 || len(tl.Lines) < cfg.MaxNumLines {
			line := &Line{}
			line.Blocks = append(line.Blocks, b)
			cfg.Breaker.RegisterBlock(line, b)
			tl.Lines = append(tl.Lines, line)
			continue
		}
		discarded++
	}

	return tl, discarded
}

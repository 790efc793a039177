package stream

import (
	"regexp"

	"github.com/grendeloz/gffgraph/featureindex"
	"github.com/grendeloz/gffgraph/gff3"
	"github.com/grendeloz/gffgraph/selector"
)

// Predicate is one test in the conjunctive filter select applies, per
// spec.md section 4.F: "drops nodes that fail a conjunctive predicate
// built from..." Each Predicate reports whether f passes.
type Predicate func(f *gff3.FeatureNode) bool

// DroppedHandler is invoked for every node the select stage rejects,
// per spec.md section 4.F ("a dropped-node handler is invoked for
// each rejected node so callers can divert it to a secondary sink").
type DroppedHandler func(n gff3.Node, reason string)

// SelectStream implements the select transformer of spec.md section
// 4.F, grounded on the teacher's Features.ApplySelector/
// selectBySeqId (_examples/grendeloz-ngs/gff3/features.go) and package
// selector's operation:subject:pattern grammar, generalized to the
// full predicate set spec.md calls for (seqid, source, contained-in/
// overlaps, strand, target-strand, has-CDS, length/score bounds,
// feature index lookups). Non-FeatureNode nodes (region/comment/meta/
// sequence/EOF) always pass through unfiltered.
type SelectStream struct {
	upstream   NodeStream
	predicates []namedPredicate
	onDropped  DroppedHandler
}

type namedPredicate struct {
	name string
	fn   Predicate
}

// NewSelectStream wraps upstream with no predicates configured; use
// the With* methods to add conjuncts.
func NewSelectStream(upstream NodeStream) *SelectStream {
	return &SelectStream{upstream: upstream}
}

func (s *SelectStream) OnDropped(h DroppedHandler) *SelectStream {
	s.onDropped = h
	return s
}

func (s *SelectStream) add(name string, fn Predicate) *SelectStream {
	s.predicates = append(s.predicates, namedPredicate{name, fn})
	return s
}

// WithSeqId keeps only features whose seqid matches pattern.
func (s *SelectStream) WithSeqId(pattern string) *SelectStream {
	re := regexp.MustCompile(pattern)
	return s.add("seqid", func(f *gff3.FeatureNode) bool { return re.MatchString(f.SeqId) })
}

// WithSource keeps only features whose Source matches pattern.
func (s *SelectStream) WithSource(pattern string) *SelectStream {
	re := regexp.MustCompile(pattern)
	return s.add("source", func(f *gff3.FeatureNode) bool { return re.MatchString(f.Source) })
}

// WithStrand keeps only features on strand.
func (s *SelectStream) WithStrand(strand gff3.Strand) *SelectStream {
	return s.add("strand", func(f *gff3.FeatureNode) bool { return f.Strand == strand })
}

// WithTargetStrand keeps only features whose Target attribute's
// strand field equals strand.
func (s *SelectStream) WithTargetStrand(strand gff3.Strand) *SelectStream {
	return s.add("target-strand", func(f *gff3.FeatureNode) bool {
		v, ok := f.Attributes.Get("Target")
		if !ok {
			return false
		}
		fields := splitFields(v)
		if len(fields) < 4 {
			return false
		}
		return gff3.Strand(fields[3]) == strand
	})
}

// WithHasCDS keeps only features that have at least one child of type
// "CDS".
func (s *SelectStream) WithHasCDS() *SelectStream {
	return s.add("has-CDS", func(f *gff3.FeatureNode) bool {
		for _, c := range f.Children {
			if c.Type == "CDS" {
				return true
			}
		}
		return false
	})
}

// WithLengthBounds keeps only features whose length (End-Start+1)
// falls in [min,max] inclusive.
func (s *SelectStream) WithLengthBounds(min, max int) *SelectStream {
	return s.add("length", func(f *gff3.FeatureNode) bool {
		l := f.End - f.Start + 1
		return l >= min && l <= max
	})
}

// WithScoreBounds keeps only features with a Score in [min,max];
// scoreless features fail this predicate.
func (s *SelectStream) WithScoreBounds(min, max float64) *SelectStream {
	return s.add("score", func(f *gff3.FeatureNode) bool {
		if f.Score == nil {
			return false
		}
		return *f.Score >= min && *f.Score <= max
	})
}

// WithContainedIn keeps only features whose range is entirely inside
// [lo,hi] on seqid. Mutually exclusive with WithOverlaps, per spec.md
// section 4.F - callers should use only one of the two.
func (s *SelectStream) WithContainedIn(seqid string, lo, hi int) *SelectStream {
	return s.add("contained_in", func(f *gff3.FeatureNode) bool {
		return f.SeqId == seqid && f.Start >= lo && f.End <= hi
	})
}

// WithOverlaps keeps only features whose range overlaps [lo,hi] on
// seqid.
func (s *SelectStream) WithOverlaps(seqid string, lo, hi int) *SelectStream {
	return s.add("overlaps", func(f *gff3.FeatureNode) bool {
		return f.SeqId == seqid && f.Start <= hi && lo <= f.End
	})
}

// WithFeatureIndexLookup keeps only features present (by exact range
// match) in ix on their own seqid - used to intersect a stream against
// an externally-built featureindex.Index.
func (s *SelectStream) WithFeatureIndexLookup(ix *featureindex.Index) *SelectStream {
	return s.add("feature_index", func(f *gff3.FeatureNode) bool {
		for _, cand := range ix.FeaturesForRange(f.SeqId, f.Start, f.End) {
			if cand.Start == f.Start && cand.End == f.End {
				return true
			}
		}
		return false
	})
}

// WithSelector adapts a selector.Selector (the operation:subject:
// pattern grammar) into a predicate, for callers building filters from
// user-supplied strings.
func (s *SelectStream) WithSelector(sel *selector.Selector) *SelectStream {
	switch sel.Subject {
	case "seqid":
		return s.WithSeqId(sel.Pattern)
	case "source":
		return s.WithSource(sel.Pattern)
	default:
		re := regexp.MustCompile(sel.Pattern)
		return s.add(sel.String(), func(f *gff3.FeatureNode) bool {
			v, _ := f.Attributes.Get(sel.Subject)
			return re.MatchString(v)
		})
	}
}

func splitFields(s string) []string {
	var out []string
	cur := ""
	for _, r := range s {
		if r == ' ' || r == '\t' {
			if cur != "" {
				out = append(out, cur)
				cur = ""
			}
			continue
		}
		cur += string(r)
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}

func (s *SelectStream) PreservesSortOrder() bool { return true }

func (s *SelectStream) Next() (gff3.Node, error) {
	for {
		n, err := s.upstream.Next()
		if err != nil {
			return nil, err
		}
		f, ok := n.(*gff3.FeatureNode)
		if !ok {
			return n, nil
		}
		if reason, ok := s.firstFailure(f); !ok {
			if s.onDropped != nil {
				s.onDropped(n, reason)
			}
			continue
		}
		return n, nil
	}
}

func (s *SelectStream) firstFailure(f *gff3.FeatureNode) (string, bool) {
	for _, p := range s.predicates {
		if !p.fn(f) {
			return p.name, false
		}
	}
	return "", true
}

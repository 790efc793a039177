package gff3

import (
	"fmt"
	"strconv"
	"strings"
)

// Strand is one of the four GFF3 strand values.
type Strand string

const (
	StrandPlus    Strand = "+"
	StrandMinus   Strand = "-"
	StrandUnknown Strand = "?"
	StrandNone    Strand = "."
)

// Phase is the GFF3 reading-frame phase, 0/1/2, or undefined.
type Phase int

const PhaseUndefined Phase = -1

func ParsePhase(s string) (Phase, error) {
	if s == "." || s == "" {
		return PhaseUndefined, nil
	}
	i, err := strconv.Atoi(s)
	if err != nil || i < 0 || i > 2 {
		return PhaseUndefined, fmt.Errorf("invalid phase %q", s)
	}
	return Phase(i), nil
}

func (p Phase) String() string {
	if p == PhaseUndefined {
		return "."
	}
	return strconv.Itoa(int(p))
}

// Recognized GFF3 uppercase attribute tags, per spec.md section 4.D.
var gff3UppercaseAttrs = map[string]bool{
	"ID": true, "Name": true, "Alias": true, "Parent": true,
	"Target": true, "Gap": true, "Derives_from": true, "Note": true,
	"Dbxref": true, "Ontology_term": true, "Start_range": true,
	"End_range": true, "Is_circular": true,
}

// IsRecognizedGFF3Attribute reports whether tag is one of the fixed
// set of predefined GFF3 uppercase attribute tags.
func IsRecognizedGFF3Attribute(tag string) bool {
	return gff3UppercaseAttrs[tag]
}

// FeatureNode is the GenomeNode variant carrying a single feature
// line's worth of data (spec.md section 3). The field names
// (SeqId/Source/Type/Start/End/Score/Strand/Phase/Attributes/
// LineNumber) are kept from the teacher's Feature struct
// (_examples/grendeloz-ngs/gff3/feature.go) and generalized with the
// pseudo-root and multi-feature machinery spec.md section 3 adds.
type FeatureNode struct {
	SeqId      string
	Source     string
	Type       string
	Start      int
	End        int
	Score      *float64
	Strand     Strand
	Phase      Phase
	Attributes *AttributeMap
	LineNumber int
	File       string

	// Children is the ordered list of owned child edges, per spec.md
	// section 3 ("FeatureNodes form a directed acyclic graph... via
	// ordered child lists").
	Children []*FeatureNode
	parents  []*FeatureNode // non-owning back-edges, for cycle checks

	// IsPseudo marks a synthetic root gathering otherwise-rootless
	// children or merging trees that share a Parent ID, per spec.md
	// section 3.
	IsPseudo bool

	// representative is nil for a feature that is not part of a
	// multi-feature group, or points at the elected representative
	// (which points at itself) otherwise. Modeled as spec.md section 9
	// suggests: "Multi(rep_handle) variant... rep_handle == self means
	// the representative."
	representative *FeatureNode
	multiMembers   []*FeatureNode // populated only on the representative
}

// NewFeatureNode returns a new FeatureNode with the teacher's default
// values (Source "grz", Type the SOFA root accession, Score/Strand/
// Phase all "missing"), matching NewFeature's documented defaults.
func NewFeatureNode() *FeatureNode {
	return &FeatureNode{
		Source:     "grz",
		Type:       "SO:0000110",
		Strand:     StrandNone,
		Phase:      PhaseUndefined,
		Attributes: NewAttributeMap(),
	}
}

func (f *FeatureNode) Kind() NodeKind { return KindFeature }
func (f *FeatureNode) GetSeqID() string { return f.SeqId }
func (f *FeatureNode) ChangeSeqID(s string) {
	f.SeqId = s
	for _, c := range f.Children {
		c.ChangeSeqID(s)
	}
}
func (f *FeatureNode) GetRange() Range        { return Range{f.Start, f.End} }
func (f *FeatureNode) SetRange(r Range)       { f.Start, f.End = r.Start, r.End }
func (f *FeatureNode) Provenance() Provenance { return Provenance{f.File, f.LineNumber} }

// GetIDString is the sort key: seqid, tie-broken by line number, per
// spec.md section 4.B.
func (f *FeatureNode) GetIDString() string {
	return fmt.Sprintf("%s:%010d", f.SeqId, f.LineNumber)
}

func (f *FeatureNode) Accept(v Visitor) error { return v.VisitFeature(f) }

// Satisfy github.com/grendeloz/interval.Interval so the merge_feature
// transformer (package stream) can reuse interval.Compare exactly the
// way the teacher's Feature/Features did.
func (f *FeatureNode) Low() int  { return f.Start }
func (f *FeatureNode) High() int { return f.End }

// ID returns the feature's ID attribute, if any.
func (f *FeatureNode) ID() (string, bool) {
	return f.Attributes.Get("ID")
}

// ParentIDs splits the Parent attribute on "," per spec.md section
// 4.D ("Parent: splits on ,").
func (f *FeatureNode) ParentIDs() []string {
	v, ok := f.Attributes.Get("Parent")
	if !ok || v == "" {
		return nil
	}
	return strings.Split(v, ",")
}

// AddChild appends child to f's owned child list. It does not
// validate seqid agreement or acyclicity - that is the parser's job
// (spec.md section 4.B: "cycle creation prevented by the parser's
// pre-check"). When f is a pseudo-root its range is widened to the
// union of its children's ranges.
func (f *FeatureNode) AddChild(child *FeatureNode) {
	if f.IsPseudo {
		if len(f.Children) == 0 {
			f.Start, f.End = child.Start, child.End
		} else {
			if child.Start < f.Start {
				f.Start = child.Start
			}
			if child.End > f.End {
				f.End = child.End
			}
		}
	}
	f.Children = append(f.Children, child)
	child.parents = append(child.parents, f)
}

// NumberOfChildrenOfType counts children whose Type matches sample's
// Type, per spec.md section 4.B.
func (f *FeatureNode) NumberOfChildrenOfType(sample *FeatureNode) int {
	n := 0
	for _, c := range f.Children {
		if c.Type == sample.Type {
			n++
		}
	}
	return n
}

// TraverseFunc is called once per node during a traversal.
type TraverseFunc func(*FeatureNode) error

// TraverseChildren yields nodes in DFS order. When tree is true each
// node is visited exactly once because the subtree is known to be a
// simple tree (is_tree); when false a DAG-safe topological visit is
// performed so every node is visited exactly once after all of its
// parents, which the emitter relies on so every Parent= has already
// been written, per spec.md section 4.B.
func (f *FeatureNode) TraverseChildren(includeSelf bool, tree bool, fn TraverseFunc) error {
	if tree {
		return f.traverseTree(includeSelf, fn)
	}
	visited := make(map[*FeatureNode]bool)
	return f.traverseTopo(includeSelf, visited, fn)
}

func (f *FeatureNode) traverseTree(includeSelf bool, fn TraverseFunc) error {
	if includeSelf {
		if err := fn(f); err != nil {
			return err
		}
	}
	for _, c := range f.Children {
		if err := c.traverseTree(true, fn); err != nil {
			return err
		}
	}
	return nil
}

func (f *FeatureNode) traverseTopo(includeSelf bool, visited map[*FeatureNode]bool, fn TraverseFunc) error {
	if visited[f] {
		return nil
	}
	// Only emit a node once every one of its parents has already been
	// emitted, so Parent= references always point backwards.
	for _, p := range f.parents {
		if !visited[p] {
			return nil
		}
	}
	visited[f] = true
	if includeSelf {
		if err := fn(f); err != nil {
			return err
		}
	}
	for _, c := range f.Children {
		if err := c.traverseTopo(true, visited, fn); err != nil {
			return err
		}
	}
	return nil
}

// ***** Multi-feature representative API, per spec.md section 4.B *****

// IsMulti reports whether f participates in a multi-feature
// equivalence class (whether or not it is the representative).
func (f *FeatureNode) IsMulti() bool { return f.representative != nil }

// MakeMultiRepresentative elects f as the representative of its own
// (possibly brand-new) multi-feature group.
func (f *FeatureNode) MakeMultiRepresentative() {
	if f.representative == f {
		return
	}
	f.representative = f
	if f.multiMembers == nil {
		f.multiMembers = []*FeatureNode{f}
	}
}

// SetMultiRepresentative marks f as a member of rep's multi-feature
// group. rep must already be a representative (or will become one).
func (f *FeatureNode) SetMultiRepresentative(rep *FeatureNode) {
	rep.MakeMultiRepresentative()
	f.representative = rep
	rep.multiMembers = append(rep.multiMembers, f)
}

// UnsetMulti removes f from whatever multi-feature group it belonged
// to. If f was the representative, the remaining members are left
// without one (callers such as multi_sanitizer re-elect one).
func (f *FeatureNode) UnsetMulti() {
	if f.representative == nil {
		return
	}
	rep := f.representative
	if rep != f {
		for i, m := range rep.multiMembers {
			if m == f {
				rep.multiMembers = append(rep.multiMembers[:i], rep.multiMembers[i+1:]...)
				break
			}
		}
	} else {
		for _, m := range f.multiMembers {
			if m != f {
				m.representative = nil
			}
		}
		f.multiMembers = nil
	}
	f.representative = nil
}

// GetMultiRepresentative returns the elected representative, or nil
// if f is not part of a multi-feature group.
func (f *FeatureNode) GetMultiRepresentative() *FeatureNode { return f.representative }

// Parents returns f's non-owning back-edges (the features that listed
// f as a child), in the order they were linked.
func (f *FeatureNode) Parents() []*FeatureNode { return f.parents }

// MultiMembers returns every member of f's multi-feature group
// (f must be the representative); nil if f is not a representative.
func (f *FeatureNode) MultiMembers() []*FeatureNode {
	if f.representative != f {
		return nil
	}
	return f.multiMembers
}

// Clone makes a deep copy of the feature's own fields. Child/parent/
// multi edges are NOT copied - Clone is for detached single-feature
// duplication (e.g. merge_feature's merging logic), matching the
// scope of the teacher's Feature.Clone.
func (f *FeatureNode) Clone() *FeatureNode {
	n := &FeatureNode{
		SeqId:      f.SeqId,
		Source:     f.Source,
		Type:       f.Type,
		Start:      f.Start,
		End:        f.End,
		Strand:     f.Strand,
		Phase:      f.Phase,
		Attributes: f.Attributes.Clone(),
		LineNumber: f.LineNumber,
		File:       f.File,
	}
	if f.Score != nil {
		s := *f.Score
		n.Score = &s
	}
	return n
}

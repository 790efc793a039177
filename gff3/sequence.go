package gff3

import (
	"fmt"

	"github.com/grendeloz/gffgraph/genome"
)

// SequenceNode carries one FASTA record found in a `##FASTA` section
// embedded in a GFF3 stream, per spec.md section 3 and section 6
// ("FASTA (embedded in GFF3)"). Description is the full header line;
// Name/Info are its genome.FastaRec-parsed components (the part up to
// the first space/pipe, and whatever follows), reusing the teacher's
// header-splitting logic (genome.NewFastaRec) rather than
// reimplementing it.
type SequenceNode struct {
	Description string
	Name        string
	Info        string
	Residues    string
	LineNumber  int
	File        string
}

// NewSequenceNode builds a SequenceNode from a raw FASTA header and
// its residues, splitting the header via genome.NewFastaRec.
func NewSequenceNode(description, residues string) *SequenceNode {
	rec := genome.NewFastaRec(description)
	rec.Sequence = residues
	return NewSequenceNodeFromFastaRec(rec)
}

// NewSequenceNodeFromFastaRec adapts an already-parsed genome.FastaRec
// (e.g. one read from a standalone FASTA file) into a SequenceNode.
func NewSequenceNodeFromFastaRec(rec *genome.FastaRec) *SequenceNode {
	return &SequenceNode{
		Description: rec.Header,
		Name:        rec.Name,
		Info:        rec.Info,
		Residues:    rec.Sequence,
	}
}

func (s *SequenceNode) Kind() NodeKind { return KindSequence }

// GetSeqID returns the sequence's Name (the header up to the first
// space/pipe, matching a ##sequence-region seqid), falling back to
// the full Description for a header genome.NewFastaRec could not
// parse into a Name.
func (s *SequenceNode) GetSeqID() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Description
}
func (s *SequenceNode) ChangeSeqID(v string) { s.Name = v }
func (s *SequenceNode) GetRange() Range      { return Range{1, len(s.Residues)} }
func (s *SequenceNode) SetRange(Range)       {} // sequence length is derived, not settable
func (s *SequenceNode) Provenance() Provenance { return Provenance{s.File, s.LineNumber} }
func (s *SequenceNode) GetIDString() string {
	return fmt.Sprintf("%s:%010d", s.GetSeqID(), s.LineNumber)
}
func (s *SequenceNode) Accept(v Visitor) error { return v.VisitSequence(s) }

// asSequence adapts s's residues into a genome.Sequence so the
// coordinate-math helpers below can reuse genome.Sequence's logic
// instead of reimplementing 1-based-closed-interval arithmetic.
func (s *SequenceNode) asSequence() *genome.Sequence {
	return &genome.Sequence{Name: s.GetSeqID(), Sequence: s.Residues}
}

// WithinLimits reports whether a 1-based position t falls inside
// s.Residues, clamping to the nearest boundary otherwise. Delegates
// to genome.Sequence.WithinLimits.
func (s *SequenceNode) WithinLimits(t int) (int, bool) {
	return s.asSequence().WithinLimits(t)
}

// SubSequence returns the 1-based closed-interval substring
// [start,end] of s.Residues (end==0 means to the end). Delegates to
// genome.Sequence.SubSequence.
func (s *SequenceNode) SubSequence(start, end int) (string, error) {
	return s.asSequence().SubSequence(start, end)
}

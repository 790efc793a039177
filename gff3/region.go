package gff3

import "fmt"

// RegionNode carries a `##sequence-region` declaration: a seqid plus
// the range it declares, per spec.md section 3. It never has
// children.
type RegionNode struct {
	SeqId      string
	Range_     Range
	IsCircular bool
	LineNumber int
	File       string
}

func NewRegionNode(seqid string, start, end int) *RegionNode {
	return &RegionNode{SeqId: seqid, Range_: Range{start, end}}
}

func (r *RegionNode) Kind() NodeKind          { return KindRegion }
func (r *RegionNode) GetSeqID() string        { return r.SeqId }
func (r *RegionNode) ChangeSeqID(s string)    { r.SeqId = s }
func (r *RegionNode) GetRange() Range         { return r.Range_ }
func (r *RegionNode) SetRange(rg Range)       { r.Range_ = rg }
func (r *RegionNode) Provenance() Provenance  { return Provenance{r.File, r.LineNumber} }
func (r *RegionNode) GetIDString() string {
	return fmt.Sprintf("%s:%010d", r.SeqId, r.LineNumber)
}
func (r *RegionNode) Accept(v Visitor) error { return v.VisitRegion(r) }

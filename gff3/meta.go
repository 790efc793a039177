package gff3

import "fmt"

// MetaNode carries any `##` directive that is not a recognized
// sequence-region/FASTA/terminator pragma, per spec.md section 3 and
// section 4.D ("Unknown directives become MetaNodes with a warning").
type MetaNode struct {
	Directive  string
	Data       string
	LineNumber int
	File       string
}

func NewMetaNode(directive, data string) *MetaNode {
	return &MetaNode{Directive: directive, Data: data}
}

func (m *MetaNode) Kind() NodeKind         { return KindMeta }
func (m *MetaNode) GetSeqID() string       { return "" }
func (m *MetaNode) ChangeSeqID(string)     {}
func (m *MetaNode) GetRange() Range        { return Range{} }
func (m *MetaNode) SetRange(Range)         {}
func (m *MetaNode) Provenance() Provenance { return Provenance{m.File, m.LineNumber} }
func (m *MetaNode) GetIDString() string    { return fmt.Sprintf(":%010d", m.LineNumber) }
func (m *MetaNode) Accept(v Visitor) error { return v.VisitMeta(m) }

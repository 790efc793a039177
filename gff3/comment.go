package gff3

import "fmt"

// CommentNode carries a single `#` (not `##`) comment line, per
// spec.md section 3.
type CommentNode struct {
	Text       string
	LineNumber int
	File       string
}

func NewCommentNode(text string) *CommentNode { return &CommentNode{Text: text} }

func (c *CommentNode) Kind() NodeKind         { return KindComment }
func (c *CommentNode) GetSeqID() string       { return "" }
func (c *CommentNode) ChangeSeqID(string)     {}
func (c *CommentNode) GetRange() Range        { return Range{} }
func (c *CommentNode) SetRange(Range)         {}
func (c *CommentNode) Provenance() Provenance { return Provenance{c.File, c.LineNumber} }
func (c *CommentNode) GetIDString() string    { return fmt.Sprintf(":%010d", c.LineNumber) }
func (c *CommentNode) Accept(v Visitor) error { return v.VisitComment(c) }

// Package stream implements the node-stream runtime of spec.md
// section 4.E: a pull iterator (NodeStream) each stage implements, and
// the double-dispatch Visitor each stage uses internally or exposes as
// a terminal consumer. Grounded on original_source's GtNodeStream/
// GtNodeVisitor vtable pattern, translated to a Go interface per
// spec.md section 9's note that "virtual method tables map to trait/
// interface objects" in an idiomatic rewrite.
package stream

import (
	"errors"
	"io"

	"github.com/grendeloz/gffgraph/gff3"
)

// NodeStream is the pull-iterator contract of spec.md section 4.E.
// Next returns io.EOF once the stream is exhausted - the Go idiom for
// spec.md's "returning None after an earlier None is legal (idempotent
// end)": every NodeStream implementation in this package keeps
// returning (nil, io.EOF) on every call after the first io.EOF.
type NodeStream interface {
	Next() (gff3.Node, error)
}

// SortAware is implemented by stages that know whether they preserve
// the upstream's "sorted by (seqid, start)" property, per spec.md
// section 4.E's "Sorting discipline". A composition can use this to
// decide whether a final sort is required before a sink that needs
// order; nothing in this package consults it.
type SortAware interface {
	PreservesSortOrder() bool
}

// ErrClosed describes a Next call made after the stage has already
// reported an unrecoverable error. No stage in this package returns
// it: a Next call after an error pulls from the upstream again.
var ErrClosed = errors.New("stream: Next called after a prior error")

// SliceStream adapts a pre-computed []gff3.Node (such as
// gff3.ParseResult.Nodes) into a NodeStream, so a batch-parsed result
// can be driven through the same stage chain as any other
// NodeStream producer.
type SliceStream struct {
	nodes []gff3.Node
	i     int
}

// NewSliceStream returns a NodeStream over nodes, in order.
func NewSliceStream(nodes []gff3.Node) *SliceStream {
	return &SliceStream{nodes: nodes}
}

func (s *SliceStream) Next() (gff3.Node, error) {
	if s.i >= len(s.nodes) {
		return nil, io.EOF
	}
	n := s.nodes[s.i]
	s.i++
	return n, nil
}

func (s *SliceStream) PreservesSortOrder() bool { return false }

// Drain pulls every node from upstream and double-dispatches it to v,
// the terminal-consumer usage of Visitor described in spec.md section
// 4.E.
func Drain(upstream NodeStream, v gff3.Visitor) error {
	for {
		n, err := upstream.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := n.Accept(v); err != nil {
			return err
		}
	}
}

// Collect pulls every node from upstream into a slice. Useful for
// stages (targetbest_select, tidy_region) that need the full set before they can
// produce their own ordered output.
func Collect(upstream NodeStream) ([]gff3.Node, error) {
	var out []gff3.Node
	for {
		n, err := upstream.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, n)
	}
}

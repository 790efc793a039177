// Package orphanage is a holding pen for nodes whose declared Parent=
// IDs are not (yet) known, per spec.md section 4.C. It is grounded on
// original_source/src/extended/orphanage.c (gt_orphanage_add/
// get_orphan/parent_is_missing/register_parent) and generalizes the
// teacher's gff3tree.go "Orphan Leaf" concept (a Feature with neither
// a usable ID nor a resolvable Parent) into a standalone, reusable
// FIFO buffer.
//
// Orphanage stores nodes as opaque interface{} values (rather than
// importing package gff3's *FeatureNode directly) so that gff3's
// parser can depend on orphanage without a package import cycle;
// callers type-assert back to *gff3.FeatureNode when popping.
package orphanage

// entry pairs a buffered orphan with the parent IDs it is still
// waiting on.
type entry struct {
	node           interface{}
	ownID          string // "" if the orphan has no ID of its own
	missingParents []string
}

// Orphanage buffers FeatureNodes until their declared parents show
// up. It is not safe for concurrent use - like the parser it backs,
// it is meant to be driven by a single goroutine (spec.md section 5).
type Orphanage struct {
	queue       []*entry
	orphanIDs   map[string]bool // IDs currently sitting in queue
	missing     map[string]bool // parent IDs known to be missing
	registered  map[string]bool // parent IDs that have since appeared
}

// New returns an empty Orphanage.
func New() *Orphanage {
	return &Orphanage{
		orphanIDs:  make(map[string]bool),
		missing:    make(map[string]bool),
		registered: make(map[string]bool),
	}
}

// Add takes ownership of node, recording which of its Parent IDs are
// still missing. ownID is node's own ID attribute, or "" if it has
// none.
func (o *Orphanage) Add(node interface{}, ownID string, missingParentIDs []string) {
	e := &entry{node: node, ownID: ownID, missingParents: append([]string(nil), missingParentIDs...)}
	o.queue = append(o.queue, e)
	if ownID != "" {
		o.orphanIDs[ownID] = true
	}
	for _, p := range missingParentIDs {
		if !o.registered[p] {
			o.missing[p] = true
		}
	}
}

// RegisterParent records that id is now a bound, known ID - called
// when the parser observes an ID= for the first time - so later
// queries can distinguish "missing" from merely "pending".
func (o *Orphanage) RegisterParent(id string) {
	o.registered[id] = true
	delete(o.missing, id)
}

// GetOrphan pops and returns the oldest buffered orphan, FIFO, and
// true; or nil, false if the queue is empty.
func (o *Orphanage) GetOrphan() (interface{}, bool) {
	if len(o.queue) == 0 {
		return nil, false
	}
	e := o.queue[0]
	o.queue = o.queue[1:]
	if e.ownID != "" {
		delete(o.orphanIDs, e.ownID)
	}
	return e.node, true
}

// Len is the number of orphans currently buffered.
func (o *Orphanage) Len() int { return len(o.queue) }

// ParentIsMissing reports whether id has been named as a Parent by
// some buffered orphan and has never been registered.
func (o *Orphanage) ParentIsMissing(id string) bool { return o.missing[id] }

// IsOrphan reports whether id belongs to a feature currently sitting
// in the orphan queue.
func (o *Orphanage) IsOrphan(id string) bool { return o.orphanIDs[id] }

// Reset drops every remaining orphan, per spec.md section 4.C. Used
// between completion windows in non-strict mode and, trivially, at
// shutdown.
func (o *Orphanage) Reset() {
	o.queue = nil
	o.orphanIDs = make(map[string]bool)
	o.missing = make(map[string]bool)
}

// Package featureindex is the in-memory feature index of spec.md
// section 4.G: a map from seqid to RegionInfo, each holding an
// optional declared RegionNode, an ivtree.Tree over the seqid's
// FeatureNodes for O(log n) overlap queries, and a dynamic range that
// widens as features are added. Grounded on the teacher's
// Features.BySeqId (_examples/grendeloz-ngs/gff3/features.go), which
// groups by seqid into a linear []*Feature; this generalizes that by
// swapping the linear slice for an ivtree.Tree, and on
// original_source/src/extended/feature_index_memory.c.
package featureindex

import (
	"sort"
	"sync"

	"github.com/grendeloz/gffgraph/gff3"
	"github.com/grendeloz/gffgraph/ivtree"
)

// RegionInfo is everything the index tracks for one seqid.
type RegionInfo struct {
	Region *gff3.RegionNode // nil if no ##sequence-region was ever seen
	tree   *ivtree.Tree

	haveDynamic bool
	dynLo, dynHi int
}

// Index is the spec.md section 4.G feature index: a reader/writer
// lock guarded map[seqid]*RegionInfo, supporting multiple concurrent
// readers or one writer at a time.
type Index struct {
	mu        sync.RWMutex
	bySeqid   map[string]*RegionInfo
	firstSeqid string
	haveFirst bool
}

// New returns an empty Index.
func New() *Index {
	return &Index{bySeqid: make(map[string]*RegionInfo)}
}

func (ix *Index) infoFor(seqid string) *RegionInfo {
	ri, ok := ix.bySeqid[seqid]
	if !ok {
		ri = &RegionInfo{tree: ivtree.New()}
		ix.bySeqid[seqid] = ri
		if !ix.haveFirst {
			ix.firstSeqid = seqid
			ix.haveFirst = true
		}
	}
	return ri
}

// AddRegionNode registers rn's declared range for its seqid, per
// spec.md section 4.G ("add_region_node... remembers the first seqid
// seen").
func (ix *Index) AddRegionNode(rn *gff3.RegionNode) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ri := ix.infoFor(rn.SeqId)
	ri.Region = rn
}

// AddFeatureNode inserts fn into its seqid's interval tree and widens
// the dynamic range, per spec.md section 4.G.
func (ix *Index) AddFeatureNode(fn *gff3.FeatureNode) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ri := ix.infoFor(fn.SeqId)
	ri.tree.Insert(fn.Start, fn.End, fn)
	if !ri.haveDynamic {
		ri.dynLo, ri.dynHi = fn.Start, fn.End
		ri.haveDynamic = true
	} else {
		if fn.Start < ri.dynLo {
			ri.dynLo = fn.Start
		}
		if fn.End > ri.dynHi {
			ri.dynHi = fn.End
		}
	}
}

// RemoveNode removes fn from its seqid's tree by payload identity, per
// spec.md section 4.G ("remove_node: locates the tree node by payload
// identity and removes").
func (ix *Index) RemoveNode(fn *gff3.FeatureNode) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ri, ok := ix.bySeqid[fn.SeqId]
	if !ok {
		return
	}
	var target *ivtree.Node
	ri.tree.IterateOverlapping(fn.Start, fn.End, func(n *ivtree.Node) error {
		if nf, ok := n.Data.(*gff3.FeatureNode); ok && nf == fn {
			target = n
		}
		return nil
	})
	if target != nil {
		ri.tree.Remove(target)
	}
}

// FeaturesForSeqid returns every FeatureNode on seqid, in-order (by
// range), per spec.md section 4.G.
func (ix *Index) FeaturesForSeqid(seqid string) []*gff3.FeatureNode {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	ri, ok := ix.bySeqid[seqid]
	if !ok {
		return nil
	}
	var out []*gff3.FeatureNode
	ri.tree.TraverseAll(func(n *ivtree.Node) error {
		out = append(out, n.Data.(*gff3.FeatureNode))
		return nil
	})
	// TraverseAll is post-order; put the result in range order.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].End < out[j].End
	})
	return out
}

// FeaturesForRange answers an overlap query, returning the result
// sorted by (start, line number), per spec.md section 4.G.
func (ix *Index) FeaturesForRange(seqid string, start, end int) []*gff3.FeatureNode {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	ri, ok := ix.bySeqid[seqid]
	if !ok {
		return nil
	}
	var nodes []*ivtree.Node
	nodes = ri.tree.FindAllOverlapping(start, end, nodes)
	out := make([]*gff3.FeatureNode, len(nodes))
	for i, n := range nodes {
		out[i] = n.Data.(*gff3.FeatureNode)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].LineNumber < out[j].LineNumber
	})
	return out
}

// GetRangeForSeqid returns the dynamic range (min start / max end seen
// across added features) if any features were added, else the
// declared region's range, per spec.md section 4.G.
func (ix *Index) GetRangeForSeqid(seqid string) (gff3.Range, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	ri, ok := ix.bySeqid[seqid]
	if !ok {
		return gff3.Range{}, false
	}
	if ri.haveDynamic {
		return gff3.Range{Start: ri.dynLo, End: ri.dynHi}, true
	}
	if ri.Region != nil {
		return ri.Region.GetRange(), true
	}
	return gff3.Range{}, false
}

// FirstSeqid returns the first seqid ever seen by this index, and
// whether any seqid has been seen at all.
func (ix *Index) FirstSeqid() (string, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.firstSeqid, ix.haveFirst
}

// Package diagram implements spec.md section 4.H: building Blocks -
// groups of FeatureNodes to be drawn together - over a fixed visible
// range on one seqid. Grounded on
// original_source/src/annotationsketch/diagram.c and style.h; no
// teacher equivalent existed (the teacher repo has no rendering
// layer), so this is new code written in the teacher's small-struct,
// explicit-config style.
package diagram

import "github.com/grendeloz/gffgraph/gff3"

// Style answers the typed (section, key) queries spec.md section 6
// describes: "a set of typed queries (section, key) -> (bool | number
// | string) with an optional per-feature context." A query may
// report found, not-set, or error; callers use the ok return to
// distinguish found from not-set.
type Style interface {
	GetBool(section, key string, feature *gff3.FeatureNode) (value bool, ok bool, err error)
	GetNum(section, key string, feature *gff3.FeatureNode) (value float64, ok bool, err error)
	GetStr(section, key string, feature *gff3.FeatureNode) (value string, ok bool, err error)
}

// Per-type policy keys queried from Style, per spec.md section 4.H.
const (
	KeyCollapseToParent = "collapse_to_parent"
	KeyGroupByParent    = "group_by_parent"
	KeyMaxShowWidth     = "max_show_width"
	KeyMaxCaptShowWidth = "max_capt_show_width"
	KeyBlockCaption     = "block_caption"
)

// MapStyle is an in-memory Style backed by nested maps, keyed
// section -> key -> value; sufficient for programmatic configuration
// and tests. Feature context is ignored - every feature of a given
// type shares the same answer, matching the common case described in
// spec.md section 4.H (policies are "per-type").
type MapStyle struct {
	bools map[string]map[string]bool
	nums  map[string]map[string]float64
	strs  map[string]map[string]string
}

func NewMapStyle() *MapStyle {
	return &MapStyle{
		bools: make(map[string]map[string]bool),
		nums:  make(map[string]map[string]float64),
		strs:  make(map[string]map[string]string),
	}
}

func (s *MapStyle) SetBool(section, key string, v bool) {
	if s.bools[section] == nil {
		s.bools[section] = make(map[string]bool)
	}
	s.bools[section][key] = v
}

func (s *MapStyle) SetNum(section, key string, v float64) {
	if s.nums[section] == nil {
		s.nums[section] = make(map[string]float64)
	}
	s.nums[section][key] = v
}

func (s *MapStyle) SetStr(section, key string, v string) {
	if s.strs[section] == nil {
		s.strs[section] = make(map[string]string)
	}
	s.strs[section][key] = v
}

func (s *MapStyle) GetBool(section, key string, _ *gff3.FeatureNode) (bool, bool, error) {
	v, ok := s.bools[section][key]
	return v, ok, nil
}

func (s *MapStyle) GetNum(section, key string, _ *gff3.FeatureNode) (float64, bool, error) {
	v, ok := s.nums[section][key]
	return v, ok, nil
}

func (s *MapStyle) GetStr(section, key string, _ *gff3.FeatureNode) (string, bool, error) {
	v, ok := s.strs[section][key]
	return v, ok, nil
}

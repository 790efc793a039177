package gff3

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/google/uuid"
	"github.com/grendeloz/gffgraph/orphanage"
	"github.com/grendeloz/runp"
)

// TypeChecker is the optional collaborator the parser consults for
// part-of validation (parent linking rule 5) and Gap alignment-length
// checks against nucleotide_match/protein_match-derived types, per
// spec.md section 4.D and section 6. Nil means "don't check".
type TypeChecker interface {
	IsPartOf(childType, parentType string) bool
	IsA(t, ancestorType string) bool
}

// XRFChecker is the optional collaborator validating Dbxref/
// Ontology_term values, per spec.md section 4.D.
type XRFChecker interface {
	IsValid(value string) bool
}

// Offset configures the coordinate shift applied after parsing each
// feature and region range, per spec.md section 4.D. Zero value is
// "no offset". PerSeqid takes priority over Scalar when both are set
// for a given seqid.
type Offset struct {
	Scalar  int
	PerSeqid map[string]int
}

func (o *Offset) resolve(seqid string) int {
	if o == nil {
		return 0
	}
	if o.PerSeqid != nil {
		if v, ok := o.PerSeqid[seqid]; ok {
			return v
		}
	}
	return o.Scalar
}

// ParserConfig is the parser's runtime configuration, per spec.md
// section 4.D ("Inputs") and the ambient-stack configuration style
// described in SPEC_FULL.md section 3.3: a plain struct passed to the
// constructor, not a global.
type ParserConfig struct {
	// Strict and Tidy are mutually exclusive; neither set means the
	// relaxed middle mode spec.md section 4.D calls the default.
	Strict bool
	Tidy   bool

	Offset *Offset

	// CheckIDs keeps the ID table alive across ### windows and
	// globally uniques IDs, per spec.md section 4.D "Terminator
	// semantics".
	CheckIDs bool

	TypeChecker TypeChecker
	XRFChecker  XRFChecker

	// Log receives warnings. A nil Log gets a disabled *log.Entry so
	// callers never need a nil check.
	Log *log.Entry
}

func (c ParserConfig) logger() *log.Entry {
	if c.Log != nil {
		return c.Log
	}
	l := log.New()
	l.SetLevel(log.PanicLevel)
	return log.NewEntry(l)
}

// ParseResult is returned by Parser.Run: the ordered Node stream plus
// the run's provenance record, per SPEC_FULL.md section 3.4.
type ParseResult struct {
	Nodes      []Node
	Provenance runp.RunParameters
	Warnings   []string
}

type parserState int

const (
	statePreHeader parserState = iota
	stateNormal
	stateFasta
	stateDone
)

const sentinelHigh = 1<<63 - 1

// Parser implements the GFF3/GVF parser state machine of spec.md
// section 4.D, grounded on the teacher's NewFromScanner/NewFromFile
// (_examples/grendeloz-ngs/gff3/gff3.go) for file/gzip handling and
// generalized per original_source/src/extended/gff3_parser.c for
// pragma handling, parent linking, multi-feature rules, root
// unification and terminator semantics.
type Parser struct {
	cfg      ParserConfig
	filename string

	state parserState
	gvf   bool

	lineNo int

	regions map[string]*RegionNode // seqid -> declared or auto region
	auto    map[string]bool        // seqid -> true if region was auto-synthesized
	circ    map[string]bool        // seqid -> Is_circular seen

	// idIndex binds an ID attribute value to the FeatureNode that
	// first declared it, scoped to the current completion window
	// unless CheckIDs is set.
	idIndex map[string]*FeatureNode
	window  int // bumps each ### unless CheckIDs

	// windowRoots holds, in arrival order, the current window's
	// top-level FeatureNodes (the output buffer of spec.md section
	// 4.D's root-unification procedure).
	windowRoots []*FeatureNode

	orphans *orphanage.Orphanage

	nodes []Node

	fastaDesc string
	fastaBuf  strings.Builder

	warnings []string
}

var seqRegionRex = regexp.MustCompile(`^##sequence-region\s+(\S+)\s+(-?\d+)\s+(-?\d+)\s*$`)
var gffVersionRex = regexp.MustCompile(`^##gff-version\s+3\b`)
var gvfVersionRex = regexp.MustCompile(`^##gvf-version\s+\S+`)
var gzipExtRex = regexp.MustCompile(`\.[gG][zZ]$`)

// NewParser returns a Parser configured by cfg. Its filename (used
// only for provenance and diagnostics) is empty unless set by
// ParseFile; content is read from the scanner passed to Run.
func NewParser(cfg ParserConfig) *Parser {
	return &Parser{
		cfg:     cfg,
		regions: make(map[string]*RegionNode),
		auto:    make(map[string]bool),
		circ:    make(map[string]bool),
		idIndex: make(map[string]*FeatureNode),
		orphans: orphanage.New(),
	}
}

// ParseFile opens file (transparently gzip-decompressing by
// extension, per the teacher's NewFromFile) and parses it.
func ParseFile(file string, cfg ParserConfig) (*ParseResult, error) {
	ff, err := os.Open(file)
	if err != nil {
		return nil, Wrapf(IOErr, file, 0, err, "opening file")
	}
	defer ff.Close()

	var scanner *bufio.Scanner
	if gzipExtRex.MatchString(file) {
		reader, err := gzip.NewReader(ff)
		if err != nil {
			return nil, Wrapf(IOErr, file, 0, err, "opening gzip reader")
		}
		defer reader.Close()
		scanner = bufio.NewScanner(reader)
	} else {
		scanner = bufio.NewScanner(ff)
	}
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	p := NewParser(cfg)
	p.filename = file
	return p.Run(scanner)
}

// Run drives the state machine to completion over scanner, returning
// the full ordered Node stream.
func (p *Parser) Run(scanner *bufio.Scanner) (*ParseResult, error) {
	log := p.cfg.logger()
	rp := runp.NewRunParameters()

	for scanner.Scan() {
		p.lineNo++
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if err := p.processLine(line); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, Wrapf(IOErr, p.filename, p.lineNo, err, "reading stream")
	}

	if p.state == stateFasta {
		p.flushFasta()
	}

	if err := p.flushWindow(true); err != nil {
		return nil, err
	}

	if p.state == statePreHeader {
		msg := "empty file"
		if p.cfg.Strict {
			return nil, NewError(ParseErr, p.filename, p.lineNo, msg)
		}
		log.Warnf("%s: %s", p.filename, msg)
		p.warnings = append(p.warnings, msg)
	}

	p.nodes = append(p.nodes, NewEOFNode())

	return &ParseResult{Nodes: p.nodes, Provenance: rp, Warnings: p.warnings}, nil
}

func (p *Parser) warnOrErr(format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	if p.cfg.Strict {
		return NewError(SemanticErr, p.filename, p.lineNo, "%s", msg)
	}
	p.cfg.logger().Warnf("%s:%d: %s", p.filename, p.lineNo, msg)
	p.warnings = append(p.warnings, msg)
	return nil
}

func (p *Parser) processLine(line string) error {
	if p.state == statePreHeader {
		return p.processPreHeader(line)
	}
	if p.state == stateFasta {
		p.processFastaLine(line)
		return nil
	}
	return p.processNormalLine(line)
}

func (p *Parser) processPreHeader(line string) error {
	if line == "" {
		return nil
	}
	switch {
	case gffVersionRex.MatchString(line):
		p.state = stateNormal
		return nil
	case gvfVersionRex.MatchString(line):
		p.gvf = true
		p.state = stateNormal
		return nil
	default:
		if p.cfg.Strict {
			return NewError(ParseErr, p.filename, p.lineNo, "first non-blank line must be ##gff-version 3 or ##gvf-version, got %q", line)
		}
		p.cfg.logger().Warnf("%s:%d: missing or invalid version header, synthesizing ##gff-version 3", p.filename, p.lineNo)
		p.warnings = append(p.warnings, "missing version header, synthesized")
		p.state = stateNormal
		return p.processNormalLine(line)
	}
}

func (p *Parser) processNormalLine(line string) error {
	switch {
	case line == "":
		return p.warnOrErr("blank line")
	case line == "###":
		return p.flushWindow(false)
	case line == "##FASTA":
		p.state = stateFasta
		return nil
	case strings.HasPrefix(line, "##sequence-region"):
		return p.processSequenceRegion(line)
	case strings.HasPrefix(line, "##gff-version"), strings.HasPrefix(line, "##gvf-version"):
		p.nodes = append(p.nodes, NewMetaNode("version", strings.TrimPrefix(line, "##")))
		p.nodes[len(p.nodes)-1].(*MetaNode).LineNumber = p.lineNo
		p.nodes[len(p.nodes)-1].(*MetaNode).File = p.filename
		return nil
	case strings.HasPrefix(line, "##"):
		return p.processDirective(line)
	case strings.HasPrefix(line, "#"):
		c := NewCommentNode(strings.TrimPrefix(line, "#"))
		c.LineNumber, c.File = p.lineNo, p.filename
		p.nodes = append(p.nodes, c)
		return nil
	default:
		return p.processFeatureLine(line)
	}
}

func (p *Parser) processSequenceRegion(line string) error {
	m := seqRegionRex.FindStringSubmatch(line)
	if m == nil {
		if err := p.warnOrErr("malformed ##sequence-region directive %q", line); err != nil {
			return err
		}
		return nil
	}
	start, err1 := strconv.Atoi(m[2])
	end, err2 := strconv.Atoi(m[3])
	if err1 != nil || err2 != nil || end < start {
		return p.warnOrErr("##sequence-region %q has an invalid range", line)
	}

	off := p.cfg.Offset.resolve(m[1])
	start, end = start+off, end+off
	if start < 1 {
		return NewError(ParseErr, p.filename, p.lineNo, "##sequence-region %s: offset produces start < 1", m[1])
	}

	r := NewRegionNode(m[1], start, end)
	r.LineNumber, r.File = p.lineNo, p.filename
	p.regions[m[1]] = r
	p.nodes = append(p.nodes, r)
	return nil
}

func (p *Parser) processDirective(line string) error {
	directive := line
	data := ""
	if idx := strings.IndexAny(line, " \t"); idx >= 0 {
		directive, data = line[:idx], strings.TrimSpace(line[idx+1:])
	}
	p.cfg.logger().Warnf("%s:%d: unrecognized directive %q", p.filename, p.lineNo, directive)
	p.warnings = append(p.warnings, "unrecognized directive "+directive)
	m := NewMetaNode(strings.TrimPrefix(directive, "##"), data)
	m.LineNumber, m.File = p.lineNo, p.filename
	p.nodes = append(p.nodes, m)
	return nil
}

// ensureRegion returns the RegionNode backing seqid, auto-synthesizing
// a pseudo region with the sentinel range on first sight, per spec.md
// section 4.D step 4.b. An auto region is appended to the output once,
// ahead of its seqid's features; widenAutoRegion adjusts its range in
// place.
func (p *Parser) ensureRegion(seqid string) *RegionNode {
	if r, ok := p.regions[seqid]; ok {
		return r
	}
	r := NewRegionNode(seqid, 0, sentinelHigh)
	r.LineNumber, r.File = p.lineNo, p.filename
	p.regions[seqid] = r
	p.auto[seqid] = true
	p.nodes = append(p.nodes, r)
	return r
}

// widenAutoRegion narrows a still-sentinel auto region to the
// feature's own range on first sight, then grows it to cover every
// subsequently seen feature, per spec.md section 4.D step 4.b
// ("narrowed/widened as features arrive").
func (p *Parser) widenAutoRegion(r *RegionNode, f *FeatureNode) {
	if !p.auto[r.SeqId] {
		return
	}
	if r.Range_.Start == 0 && r.Range_.End == sentinelHigh {
		r.Range_ = Range{f.Start, f.End}
		return
	}
	if f.Start < r.Range_.Start {
		r.Range_.Start = f.Start
	}
	if f.End > r.Range_.End {
		r.Range_.End = f.End
	}
}

func (p *Parser) processFeatureLine(line string) error {
	fields := strings.Split(line, "\t")
	if len(fields) == 10 && p.cfg.Tidy {
		p.cfg.logger().Warnf("%s:%d: feature line has 10 fields, dropping the extra one", p.filename, p.lineNo)
		p.warnings = append(p.warnings, "feature line had 10 fields")
		fields = fields[:9]
	}
	if len(fields) == 8 {
		fields = append(fields, ".")
	}
	if len(fields) != 9 {
		return NewError(ParseErr, p.filename, p.lineNo, "feature line has %d fields, need 9", len(fields))
	}

	f := NewFeatureNode()
	f.SeqId, f.Source, f.Type = fields[0], fields[1], fields[2]
	f.LineNumber, f.File = p.lineNo, p.filename

	start, err := strconv.Atoi(fields[3])
	if err != nil {
		return NewError(ParseErr, p.filename, p.lineNo, "start %q is not an integer", fields[3])
	}
	end, err := strconv.Atoi(fields[4])
	if err != nil {
		return NewError(ParseErr, p.filename, p.lineNo, "end %q is not an integer", fields[4])
	}
	f.Start, f.End = start, end

	if fields[5] != "." {
		s, err := strconv.ParseFloat(fields[5], 64)
		if err != nil {
			return NewError(ParseErr, p.filename, p.lineNo, "score %q is not numeric", fields[5])
		}
		f.Score = &s
	}

	switch fields[6] {
	case "+":
		f.Strand = StrandPlus
	case "-":
		f.Strand = StrandMinus
	case "?":
		f.Strand = StrandUnknown
	case ".":
		f.Strand = StrandNone
	default:
		return NewError(ParseErr, p.filename, p.lineNo, "strand %q is not one of +,-,.,?", fields[6])
	}

	phase, err := ParsePhase(fields[7])
	if err != nil {
		return NewError(ParseErr, p.filename, p.lineNo, "%v", err)
	}
	f.Phase = phase

	attrs, warnings, err := parseAttributeField(fields[8], p.cfg.Tidy, p.cfg.Strict, p.gvf)
	if err != nil {
		if e, ok := err.(*Error); ok {
			e.File, e.Line = p.filename, p.lineNo
		}
		return err
	}
	for _, w := range warnings {
		p.cfg.logger().Warnf("%s:%d: %s", p.filename, p.lineNo, w.Message)
		p.warnings = append(p.warnings, w.Message)
	}
	f.Attributes = attrs

	region := p.ensureRegion(f.SeqId)

	off := p.cfg.Offset.resolve(f.SeqId)
	f.Start += off
	f.End += off
	if f.Start < 1 {
		return NewError(ParseErr, p.filename, p.lineNo, "offset produces start < 1 for feature at %s:%d", f.SeqId, f.LineNumber)
	}

	p.widenAutoRegion(region, f)

	if v, ok := f.Attributes.Get("Is_circular"); ok && v == "true" {
		p.circ[f.SeqId] = true
		region.IsCircular = true
		// Open Question 2: region range is replaced by the feature's
		// own range once circularity is observed.
		region.Range_ = f.GetRange()
	}

	if v, ok := f.Attributes.Get("Dbxref"); ok && p.cfg.XRFChecker != nil {
		for _, d := range strings.Split(v, ",") {
			if !p.cfg.XRFChecker.IsValid(strings.TrimSpace(d)) {
				if err := p.warnOrErr("Dbxref %q failed XRF validation", d); err != nil {
					return err
				}
			}
		}
	}
	if v, ok := f.Attributes.Get("Ontology_term"); ok && p.cfg.XRFChecker != nil {
		for _, d := range strings.Split(v, ",") {
			if !p.cfg.XRFChecker.IsValid(strings.TrimSpace(d)) {
				if err := p.warnOrErr("Ontology_term %q failed XRF validation", d); err != nil {
					return err
				}
			}
		}
	}
	if _, ok := f.Attributes.Get("Target"); ok {
		if _, err := p.validateTargets(f); err != nil {
			return err
		}
	}
	if v, ok := f.Attributes.Get("Gap"); ok && p.cfg.TypeChecker != nil {
		if p.cfg.TypeChecker.IsA(f.Type, "nucleotide_match") || p.cfg.TypeChecker.IsA(f.Type, "protein_match") {
			if err := p.checkGapLength(f, v); err != nil {
				return err
			}
		}
	}

	if id, ok := f.ID(); ok {
		if err := p.registerID(id, f); err != nil {
			return err
		}
	} else {
		p.windowRoots = append(p.windowRoots, f)
	}

	if len(f.ParentIDs()) > 0 {
		if err := p.linkParents(f); err != nil {
			return err
		}
	}

	return nil
}

func (p *Parser) validateTargets(f *FeatureNode) ([]TargetAttribute, error) {
	v, _ := f.Attributes.Get("Target")
	var out []TargetAttribute
	for _, part := range strings.Split(v, ",") {
		t, err := parseTargetAttribute(strings.TrimSpace(part))
		if err != nil {
			if p.cfg.Tidy && t.Start > t.End {
				t.Start, t.End = t.End, t.Start
				p.warnings = append(p.warnings, "Target range reversed, corrected")
			} else {
				if e, ok := err.(*Error); ok {
					e.File, e.Line = p.filename, p.lineNo
				}
				return nil, err
			}
		}
		if t.Start > t.End {
			if p.cfg.Tidy {
				t.Start, t.End = t.End, t.Start
				p.warnings = append(p.warnings, "Target range reversed, corrected")
			} else {
				return nil, NewError(SemanticErr, p.filename, p.lineNo, "Target range %d-%d is inverted", t.Start, t.End)
			}
		}
		out = append(out, t)
	}
	return out, nil
}

func (p *Parser) checkGapLength(f *FeatureNode, gap string) error {
	refLen := 0
	for _, op := range strings.Fields(gap) {
		if len(op) < 2 {
			continue
		}
		n, err := strconv.Atoi(op[1:])
		if err != nil {
			return NewError(ParseErr, p.filename, p.lineNo, "Gap operation %q has a non-integer length", op)
		}
		switch op[0] {
		case 'M', 'D', 'I':
			refLen += n
		}
	}
	if want := f.End - f.Start + 1; refLen != want {
		return p.warnOrErr("Gap reference length %d does not match feature length %d", refLen, want)
	}
	return nil
}

// registerID implements spec.md section 4.D's ID side effect,
// dispatching to the multi-feature rules (section "Multi-feature
// rules") when id is already bound in the current window.
func (p *Parser) registerID(id string, f *FeatureNode) error {
	if existing, ok := p.idIndex[id]; ok {
		return p.handleMultiFeature(existing, f)
	}
	p.idIndex[id] = f
	p.orphans.RegisterParent(id)
	p.windowRoots = append(p.windowRoots, f)
	return nil
}

func (p *Parser) handleMultiFeature(existing, next *FeatureNode) error {
	if existing.SeqId != next.SeqId {
		return NewError(SemanticErr, p.filename, p.lineNo, "multi-feature ID mismatch: seqid differs from prior occurrence at line %d", existing.LineNumber)
	}

	wasAlreadyMulti := existing.IsMulti()
	neitherHasParent := len(existing.ParentIDs()) == 0 && len(next.ParentIDs()) == 0

	if violation := p.multiConstraintViolation(existing, next); violation != "" {
		if p.cfg.Tidy && violation == "Parent" {
			p.cfg.logger().Warnf("%s:%d: multi-feature Parent mismatch, splitting %q off as independent", p.filename, p.lineNo, existing.GetIDString())
			p.warnings = append(p.warnings, "multi-feature Parent mismatch, split off")
			p.windowRoots = append(p.windowRoots, next)
			return nil
		}
		return NewError(SemanticErr, p.filename, p.lineNo, "multi-feature constraint violation (%s) against prior occurrence at line %d", violation, existing.LineNumber)
	}

	next.SetMultiRepresentative(existing)

	if !wasAlreadyMulti && neitherHasParent {
		if !p.isWindowRoot(existing) {
			id, _ := existing.ID()
			return Wrapf(SemanticErr, p.filename, p.lineNo, ErrTerminatorCrossing,
				"multi-feature id %q: prior occurrence at line %d was already flushed across a ### terminator", id, existing.LineNumber)
		}
		pseudo := NewFeatureNode()
		pseudo.IsPseudo = true
		pseudo.SeqId, pseudo.Source = existing.SeqId, existing.Source
		pseudo.Attributes.Set("ID", "pseudo-"+uuid.NewString())
		pseudo.AddChild(existing)
		pseudo.AddChild(next)
		p.replaceWindowRoot(existing, pseudo)
	}
	return nil
}

// multiConstraintViolation reports the name of the first violated
// constraint from spec.md section 3's multi-feature equivalence rule,
// or "" if none. Parent mismatches are reported distinctly so tidy
// mode can apply its special-cased recovery.
func (p *Parser) multiConstraintViolation(a, b *FeatureNode) string {
	if a.Source != b.Source {
		return "Source"
	}
	if a.Type != b.Type {
		return "Type"
	}
	if a.Strand != b.Strand {
		return "Strand"
	}
	aParent, _ := a.Attributes.Get("Parent")
	bParent, _ := b.Attributes.Get("Parent")
	if aParent != bParent {
		return "Parent"
	}
	if !a.Attributes.Equal(b.Attributes, "ID", "Parent", "Name") {
		return "Attributes"
	}
	return ""
}

// replaceWindowRoot swaps old for replacement in p.windowRoots and
// reports whether old was found there. A miss means old was already
// flushed into p.nodes by a prior ### terminator - the caller must
// not treat the replacement as having happened.
func (p *Parser) replaceWindowRoot(old, replacement *FeatureNode) bool {
	for i, n := range p.windowRoots {
		if n == old {
			p.windowRoots[i] = replacement
			return true
		}
	}
	return false
}

// removeWindowRoot drops n from p.windowRoots and reports whether it
// was found there. A miss means n was already flushed into p.nodes by
// a prior ### terminator.
func (p *Parser) removeWindowRoot(n *FeatureNode) bool {
	for i, r := range p.windowRoots {
		if r == n {
			p.windowRoots = append(p.windowRoots[:i], p.windowRoots[i+1:]...)
			return true
		}
	}
	return false
}

// linkParents implements spec.md section 4.D's "Parent linking rules"
// and, when there are >=2 parents, the "root unification" procedure.
func (p *Parser) linkParents(f *FeatureNode) error {
	var missing []string
	var roots []*FeatureNode

	for _, pid := range f.ParentIDs() {
		parent, ok := p.idIndex[pid]
		if !ok {
			missing = append(missing, pid)
			continue
		}
		if parent == f {
			return NewError(SemanticErr, p.filename, p.lineNo, "feature cannot be its own parent (%s)", pid)
		}
		if parent.SeqId != f.SeqId {
			return Wrapf(SemanticErr, p.filename, p.lineNo, ErrSeqidMismatch, "parent %s", pid)
		}
		if !p.cfg.Strict && subtreeContains(f, parent) {
			return Wrapf(SemanticErr, p.filename, p.lineNo, ErrCycle, "parent %s", pid)
		}
		if p.cfg.TypeChecker != nil && !p.cfg.TypeChecker.IsPartOf(f.Type, parent.Type) {
			return NewError(SemanticErr, p.filename, p.lineNo, "%s is not part-of %s", f.Type, parent.Type)
		}

		parent.AddChild(f)
		p.removeWindowRoot(f)
		roots = append(roots, findRoot(parent))
	}

	if len(missing) > 0 {
		id, _ := f.ID()
		p.orphans.Add(f, id, missing)
	}

	if len(roots) >= 2 {
		if err := p.unifyRoots(roots); err != nil {
			return err
		}
	}
	return nil
}

// subtreeContains reports whether target appears anywhere in root's
// owned subtree - the cycle check of spec.md section 4.D rule 4.
func subtreeContains(root, target *FeatureNode) bool {
	if root == target {
		return true
	}
	for _, c := range root.Children {
		if subtreeContains(c, target) {
			return true
		}
	}
	return false
}

func findRoot(n *FeatureNode) *FeatureNode {
	for len(n.parents) > 0 {
		n = n.parents[0]
	}
	return n
}

// unifyRoots merges the distinct elements of roots into one, per
// spec.md section 4.D's pseudo-pseudo / pseudo-plain / plain-plain
// case analysis, folding from the end of the list since "merges
// target the most recent additions".
func (p *Parser) unifyRoots(roots []*FeatureNode) error {
	var distinct []*FeatureNode
	seen := make(map[*FeatureNode]bool)
	for _, r := range roots {
		if !seen[r] {
			seen[r] = true
			distinct = append(distinct, r)
		}
	}
	if len(distinct) < 2 {
		return nil
	}
	acc := distinct[len(distinct)-1]
	for i := len(distinct) - 2; i >= 0; i-- {
		merged, err := p.mergeRoots(distinct[i], acc)
		if err != nil {
			return err
		}
		acc = merged
	}
	return nil
}

// crossingErr builds the ErrTerminatorCrossing error raised whenever a
// root merge would need to replace or drop a node that is no longer in
// p.windowRoots - meaning a prior ### terminator already flushed it
// into p.nodes, where window-root bookkeeping can no longer reach it.
func (p *Parser) crossingErr(n *FeatureNode) error {
	id, _ := n.ID()
	return Wrapf(SemanticErr, p.filename, p.lineNo, ErrTerminatorCrossing,
		"root %q was already flushed across a ### terminator", id)
}

func (p *Parser) mergeRoots(a, b *FeatureNode) (*FeatureNode, error) {
	switch {
	case a.IsPseudo && b.IsPseudo:
		for _, c := range b.Children {
			a.AddChild(c)
		}
		if !p.removeWindowRoot(b) {
			return nil, p.crossingErr(b)
		}
		return a, nil
	case a.IsPseudo && !b.IsPseudo:
		a.AddChild(b)
		if !p.removeWindowRoot(b) {
			return nil, p.crossingErr(b)
		}
		return a, nil
	case !a.IsPseudo && b.IsPseudo:
		return p.mergeRoots(b, a)
	default:
		if !p.isWindowRoot(a) {
			return nil, p.crossingErr(a)
		}
		pseudo := NewFeatureNode()
		pseudo.IsPseudo = true
		pseudo.SeqId, pseudo.Source, pseudo.Type = a.SeqId, a.Source, a.Type
		pseudo.Attributes.Set("ID", "pseudo-"+uuid.NewString())
		pseudo.AddChild(a)
		pseudo.AddChild(b)
		p.replaceWindowRoot(a, pseudo)
		if !p.removeWindowRoot(b) {
			return nil, p.crossingErr(b)
		}
		return pseudo, nil
	}
}

// flushWindow implements spec.md section 4.D's "Terminator semantics":
// resolve or report remaining orphans, emit the window's top-level
// FeatureNodes, then reset the ID table unless CheckIDs is set.
func (p *Parser) flushWindow(atEOF bool) error {
	for {
		raw, ok := p.orphans.GetOrphan()
		if !ok {
			break
		}
		orphan := raw.(*FeatureNode)
		stillMissing, err := p.resolveOrphan(orphan)
		if err != nil {
			return err
		}
		if len(stillMissing) > 0 {
			if p.cfg.Strict {
				return Wrapf(SemanticErr, orphan.File, orphan.LineNumber, ErrOrphanUnresolved,
					"feature at line %d: Parent(s) %s never resolved", orphan.LineNumber, strings.Join(stillMissing, ","))
			}
			p.cfg.logger().Warnf("%s:%d: Parent(s) %s never resolved, emitting as orphan", orphan.File, orphan.LineNumber, strings.Join(stillMissing, ","))
			p.warnings = append(p.warnings, "unresolved orphan at line "+strconv.Itoa(orphan.LineNumber))
			if _, already := orphan.ID(); !already {
				p.windowRoots = append(p.windowRoots, orphan)
			} else if !p.isWindowRoot(orphan) {
				p.windowRoots = append(p.windowRoots, orphan)
			}
		}
	}

	for _, root := range p.windowRoots {
		p.nodes = append(p.nodes, root)
	}
	p.windowRoots = nil

	if !p.cfg.CheckIDs {
		p.idIndex = make(map[string]*FeatureNode)
		p.orphans.Reset()
		p.window++
	}
	return nil
}

func (p *Parser) isWindowRoot(n *FeatureNode) bool {
	for _, r := range p.windowRoots {
		if r == n {
			return true
		}
	}
	return false
}

// resolveOrphan retries every Parent id on node against the current
// idIndex (which may now be fully populated) and links whatever has
// since appeared. It returns the ids that are still missing.
func (p *Parser) resolveOrphan(node *FeatureNode) ([]string, error) {
	var missing []string
	var roots []*FeatureNode
	for _, pid := range node.ParentIDs() {
		parent, ok := p.idIndex[pid]
		if !ok {
			missing = append(missing, pid)
			continue
		}
		if parent.SeqId != node.SeqId || parent == node {
			missing = append(missing, pid)
			continue
		}
		parent.AddChild(node)
		p.removeWindowRoot(node)
		roots = append(roots, findRoot(parent))
	}
	if len(roots) >= 2 {
		if err := p.unifyRoots(roots); err != nil {
			return nil, err
		}
	}
	return missing, nil
}

func (p *Parser) processFastaLine(line string) {
	if strings.HasPrefix(line, ">") {
		p.flushFasta()
		p.fastaDesc = strings.TrimPrefix(line, ">")
		return
	}
	p.fastaBuf.WriteString(line)
}

func (p *Parser) flushFasta() {
	if p.fastaDesc == "" && p.fastaBuf.Len() == 0 {
		return
	}
	s := NewSequenceNode(p.fastaDesc, p.fastaBuf.String())
	s.LineNumber, s.File = p.lineNo, p.filename
	p.nodes = append(p.nodes, s)
	p.fastaDesc = ""
	p.fastaBuf.Reset()
}

package gff3

import (
	"strconv"
	"strings"
)

// AttrWarning is a single non-fatal issue found while parsing an
// attribute field in tidy mode. Strict mode turns the same condition
// into an *Error instead of collecting a warning.
type AttrWarning struct {
	Message string
}

// parseAttributeField splits a GFF3 column-9 attribute string into an
// AttributeMap, following the rules in spec.md section 4.D:
//   - "." means no attributes.
//   - ";"-separated tag=value pairs, leading blanks in a tag stripped.
//   - duplicate tag: tidy mode joins values with ",", otherwise error.
//   - uppercase tags outside the fixed GFF3/GVF set: tidy mode
//     lower-cases them, strict mode errors.
//
// This generalizes the teacher's inline attribute-splitting loop in
// NewFeatureFromLine (_examples/grendeloz-ngs/gff3/feature.go).
func parseAttributeField(field string, tidy, strict bool, gvf bool) (*AttributeMap, []AttrWarning, error) {
	attrs := NewAttributeMap()
	var warnings []AttrWarning

	field = strings.TrimSpace(field)
	if field == "" || field == "." {
		return attrs, warnings, nil
	}

	seen := make(map[string]bool)
	for _, raw := range strings.Split(field, ";") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		var key, val string
		subs := strings.SplitN(raw, "=", 2)
		key = strings.TrimSpace(subs[0])
		if len(subs) == 2 {
			val = strings.TrimSpace(subs[1])
		}

		if key == "" {
			continue
		}

		// Uppercase-tag restriction, per spec.md section 4.D.
		if isUpperTag(key) && !IsRecognizedGFF3Attribute(key) && !(gvf && isGVFAttribute(key)) {
			if tidy {
				lowered := strings.ToLower(key)
				warnings = append(warnings, AttrWarning{"non-predefined uppercase attribute tag " + key + " lower-cased to " + lowered})
				key = lowered
			} else if strict {
				return attrs, warnings, NewError(ParseErr, "", 0, "attribute tag %q is uppercase but not a predefined GFF3/GVF tag", key)
			}
		}

		if seen[key] {
			if tidy {
				existing, _ := attrs.Get(key)
				attrs.Set(key, existing+","+val)
				warnings = append(warnings, AttrWarning{"duplicate attribute tag " + key + " joined with ','"})
				continue
			}
			return attrs, warnings, NewError(ParseErr, "", 0, "duplicate attribute tag %q", key)
		}
		seen[key] = true
		attrs.Add(key, val)
	}

	return attrs, warnings, nil
}

func isUpperTag(key string) bool {
	if key == "" {
		return false
	}
	c := key[0]
	return c >= 'A' && c <= 'Z'
}

// gvfExtensionAttrs are the additional uppercase tags GVF recognizes
// on top of the plain GFF3 set, per spec.md section 4.D ("GVF adds a
// known extension set") and section 6 ("all GVF-specific uppercase
// attributes are accepted without the GFF3 unknown-uppercase
// penalty").
var gvfExtensionAttrs = map[string]bool{
	"Variant_seq": true, "Reference_seq": true, "Variant_reads": true,
	"Total_reads": true, "Zygosity": true, "Variant_freq": true,
	"Variant_effect": true, "Start_range": true, "End_range": true,
	"Phased": true, "Individual": true, "Variant_copy_number": true,
	"Reference_copy_number": true,
}

func isGVFAttribute(key string) bool { return gvfExtensionAttrs[key] }

// TargetAttribute is the parsed shape of a GFF3 Target attribute
// value: "<id> <start> <end> [strand]", per spec.md section 4.D.
type TargetAttribute struct {
	ID     string
	Start  int
	End    int
	Strand Strand // "" if not supplied
}

// parseTargetAttribute parses one Target value; multiple
// comma-separated targets are handled by the caller splitting first.
func parseTargetAttribute(value string) (TargetAttribute, error) {
	fields := strings.Fields(value)
	if len(fields) < 3 || len(fields) > 4 {
		return TargetAttribute{}, NewError(ParseErr, "", 0, "Target attribute %q does not have 3 or 4 space-separated fields", value)
	}
	t := TargetAttribute{ID: fields[0]}
	var err error
	t.Start, err = strconv.Atoi(fields[1])
	if err != nil {
		return t, NewError(ParseErr, "", 0, "Target attribute start %q is not an integer", fields[1])
	}
	t.End, err = strconv.Atoi(fields[2])
	if err != nil {
		return t, NewError(ParseErr, "", 0, "Target attribute end %q is not an integer", fields[2])
	}
	if len(fields) == 4 {
		t.Strand = Strand(fields[3])
	}
	return t, nil
}

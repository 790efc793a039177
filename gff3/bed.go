package gff3

import (
	"strconv"
	"strings"
)

// ParseBEDLine parses one BED line (3 required columns, up to 12) into
// a FeatureNode, per spec.md section 6: starts are 0-based half-open
// and are converted on entry to 1-based closed by adding 1 to start.
// A zero-length feature (chromEnd == chromStart before the shift) is
// rejected.
func ParseBEDLine(line string) (*FeatureNode, error) {
	fields := strings.Split(strings.TrimRight(line, "\r\n"), "\t")
	if len(fields) < 3 {
		return nil, NewError(ParseErr, "", 0, "BED line has %d fields, need at least 3", len(fields))
	}

	chromStart, err := strconv.Atoi(fields[1])
	if err != nil {
		return nil, NewError(ParseErr, "", 0, "BED chromStart %q is not an integer", fields[1])
	}
	chromEnd, err := strconv.Atoi(fields[2])
	if err != nil {
		return nil, NewError(ParseErr, "", 0, "BED chromEnd %q is not an integer", fields[2])
	}
	if chromEnd <= chromStart {
		return nil, NewError(ParseErr, "", 0, "BED feature %s:%d-%d has zero or negative length", fields[0], chromStart, chromEnd)
	}

	f := NewFeatureNode()
	f.SeqId = fields[0]
	f.Start = chromStart + 1
	f.End = chromEnd
	f.Source = "bed"
	f.Type = "region"

	if len(fields) >= 4 && fields[3] != "" {
		f.Attributes.Set("Name", fields[3])
	}
	if len(fields) >= 5 && fields[4] != "" {
		if score, err := strconv.ParseFloat(fields[4], 64); err == nil {
			f.Score = &score
		}
	}
	if len(fields) >= 6 {
		switch fields[5] {
		case "+":
			f.Strand = StrandPlus
		case "-":
			f.Strand = StrandMinus
		default:
			f.Strand = StrandNone
		}
	}

	return f, nil
}

// Package field defines the closed set of patent-metadata fields the
// extraction engine operates on.  Every correction, pattern, and extraction
// request is keyed by one of these fields; free-form field names are rejected
// at the boundary so that downstream components never see an unknown field.
package field

import (
	"github.com/patentdesk/extraction-engine/pkg/errors"
)

// Name identifies a single extractable patent-metadata field.
type Name string

const (
	Assignee             Name = "assignee"
	Inventors            Name = "inventors"
	FilingDate           Name = "filingDate"
	IssueDate            Name = "issueDate"
	PatentNumber         Name = "patentNumber"
	ApplicationNumber    Name = "applicationNumber"
	PatentClassification Name = "patentClassification"
)

// all lists every known field in declaration order.  Parse, All, and the
// semantics table are all driven from this slice so adding a field is a
// one-place change (plus its semantics entry).
var all = []Name{
	Assignee,
	Inventors,
	FilingDate,
	IssueDate,
	PatentNumber,
	ApplicationNumber,
	PatentClassification,
}

// semantics carries a one-line human description of each field.  The pattern
// synthesizer embeds these in its prompt so the model knows what the field's
// values look like.
var semantics = map[Name]string{
	Assignee:             "the company or organization that owns the patent rights",
	Inventors:            "the list of individual inventor names, typically comma- or semicolon-separated",
	FilingDate:           "the date the patent application was filed, in any printed date format",
	IssueDate:            "the date the patent was granted or issued",
	PatentNumber:         "the granted patent number including any jurisdiction prefix and kind code",
	ApplicationNumber:    "the application serial number assigned at filing",
	PatentClassification: "the patent classification code, e.g. a CPC or IPC symbol",
}

// Parse converts a raw string into a Name, returning ErrCodeFieldUnknown for
// anything outside the closed set.  Matching is exact; callers normalise
// casing at the transport layer if they accept it at all.
func Parse(s string) (Name, error) {
	n := Name(s)
	if _, ok := semantics[n]; !ok {
		return "", errors.New(errors.ErrCodeFieldUnknown,
			"unknown field").WithDetail(s)
	}
	return n, nil
}

// All returns the closed field set in declaration order.  The returned slice
// is a copy; callers may mutate it freely.
func All() []Name {
	out := make([]Name, len(all))
	copy(out, all)
	return out
}

// Semantics returns the one-line human description of the field, or the
// empty string for an unknown Name.
func (n Name) Semantics() string {
	return semantics[n]
}

// String implements fmt.Stringer.
func (n Name) String() string {
	return string(n)
}

// Valid reports whether n is a member of the closed field set.
func (n Name) Valid() bool {
	_, ok := semantics[n]
	return ok
}

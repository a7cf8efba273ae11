package pattern

import (
	"regexp"
	"strings"

	"github.com/patentdesk/extraction-engine/internal/domain/field"
)

// BaselineIDPrefix namespaces the fixed rule IDs of built-in baselines so
// provenance output distinguishes them from registry rows.
const BaselineIDPrefix = "baseline:"

// baselineRule is a built-in fallback extractor.  Baselines ship with the
// binary, live outside the registry tables, and are not editable through the
// deploy workflow.  They sit at priority 100 and are tried after every
// stored rule.
type baselineRule struct {
	id string
	re *regexp.Regexp
}

// dateAlt matches the printed date shapes seen on front pages: "Mar. 3,
// 2021", "March 3 2021", "2021-03-03", "03/03/2021".
const dateAlt = `[A-Za-z]{3,9}\.?\s+\d{1,2},?\s+\d{4}|\d{4}[-/.]\d{1,2}[-/.]\d{1,2}|\d{1,2}[-/.]\d{1,2}[-/.]\d{4}`

// baselineSources maps each field to its baseline pattern text.  Every
// pattern has exactly one capturing group: the extracted value.
var baselineSources = map[field.Name]string{
	field.Assignee:             `(?im)^[^\S\n]*(?:\(73\)\s*)?(?:Assignee|Applicant)s?\s*[:\-]?\s+(.+?)\s*$`,
	field.Inventors:            `(?im)^[^\S\n]*(?:\(72\)\s*)?Inventors?\s*[:\-]?\s+(.+?)\s*$`,
	field.FilingDate:           `(?i)(?:\(22\)\s*)?Fil(?:ing|ed)(?:\s+Date)?\s*[:\-]?\s*(` + dateAlt + `)`,
	field.IssueDate:            `(?i)(?:\(45\)\s*)?(?:Date\s+of\s+Patent|Issued?(?:\s+Date)?)\s*[:\-]?\s*(` + dateAlt + `)`,
	field.PatentNumber:         `(?i)(?:\(10\)\s*)?Patent\s+(?:No\.?|Number)\s*[:\-]?\s*((?:US|EP|CN|JP|KR|WO)?\s?[0-9][\d,]{4,}\s?[A-Z]?\d?)`,
	field.ApplicationNumber:    `(?i)(?:\(21\)\s*)?Appl(?:ication)?\.?\s*(?:No\.?|Number)\s*[:\-]?\s*([0-9][\d/,.\- ]{3,}\d)`,
	field.PatentClassification: `(?i)(?:Int\.?\s*Cl\.?|CPC|IPC)\s*[:\-]?\s*([A-H]\d{2}[A-Z]\s?\d{1,4}/\d{2,6})`,
}

// baselines holds the compiled built-in rules, keyed by field.  Compiled
// once at package init; a baseline that fails to compile is a programming
// error and panics immediately rather than degrading at match time.
var baselines = func() map[field.Name]baselineRule {
	out := make(map[field.Name]baselineRule, len(baselineSources))
	for f, src := range baselineSources {
		out[f] = baselineRule{
			id: BaselineIDPrefix + f.String(),
			re: regexp.MustCompile(src),
		}
	}
	return out
}()

// BaselineRuleID returns the fixed rule ID of the field's built-in baseline.
func BaselineRuleID(f field.Name) string {
	return BaselineIDPrefix + f.String()
}

// IsBaselineRuleID reports whether a match's provenance points at a built-in
// baseline rather than a registry row.
func IsBaselineRuleID(id string) bool {
	return strings.HasPrefix(id, BaselineIDPrefix)
}

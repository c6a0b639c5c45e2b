package extract

import (
	"regexp"

	"github.com/ppiankov/compliance-radar/internal/model"
)

// MaxMatches caps each extracted list
const MaxMatches = 5

var (
	// Optional "$", optional space, then a number with optional thousands
	// separators and an optional 2-digit decimal part. Group 1 is the number.
	moneyPattern = regexp.MustCompile(`\$?\s?([0-9]{1,3}(?:[.,]\d{3})*(?:[.,]\d{2})?)`)

	// D/M/Y with "/", "-" or "." separators and 2-4 digit years, or ISO Y-M-D
	datePattern = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2}|\d{1,2}[/\-.]\d{1,2}[/\-.]\d{2,4})\b`)
)

// ExtractFields pulls candidate money amounts and date-like substrings out
// of a narrative. It never fails; no match yields empty lists.
func ExtractFields(text string) model.Fields {
	return model.Fields{
		Amounts: submatches(moneyPattern, text),
		Dates:   submatches(datePattern, text),
	}
}

// HasAmount reports whether text contains at least one money match
func HasAmount(text string) bool {
	return moneyPattern.MatchString(text)
}

// submatches returns group 1 of the first MaxMatches matches
func submatches(re *regexp.Regexp, text string) []string {
	out := make([]string, 0, MaxMatches)
	for _, m := range re.FindAllStringSubmatch(text, MaxMatches) {
		out = append(out, m[1])
	}
	return out
}

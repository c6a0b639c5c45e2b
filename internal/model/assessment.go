package model

import (
	"sort"
	"time"
)

// Fields holds the regex-extracted values of a narrative
type Fields struct {
	Amounts []string `json:"amounts"` // At most 5, in order of appearance
	Dates   []string `json:"dates"`   // At most 5, raw date-like substrings
}

// Risk is the additive priority score with the rules that produced it
type Risk struct {
	Score   int      `json:"score"`   // Always >= 0
	Signals []Signal `json:"signals"` // One entry per rule that fired
}

// Signal records a scoring rule that contributed to a Risk
type Signal struct {
	Rule        string                 `json:"rule"`
	Weight      int                    `json:"weight"`
	Description string                 `json:"description"`
	Data        map[string]interface{} `json:"data,omitempty"` // Inputs that made the rule fire
}

// Assessment is an incident together with everything derived from it
type Assessment struct {
	Incident   Incident    `json:"incident"`
	Prediction Prediction  `json:"prediction"`
	Entities   []Entity    `json:"entities,omitempty"`
	Fields     Fields      `json:"fields"`
	Dates      []time.Time `json:"dates,omitempty"` // Normalized narrative dates
	Risk       Risk        `json:"risk"`
	Warnings   []string    `json:"warnings,omitempty"` // Gateway failures for this row
}

// EntityNames returns the unique organization, person and location surface
// forms, sorted. Miscellaneous entities are left out.
func (a Assessment) EntityNames() []string {
	seen := make(map[string]bool)
	var names []string

	for _, e := range a.Entities {
		if e.Type == EntityMiscellaneous || e.Text == "" {
			continue
		}
		if !seen[e.Text] {
			seen[e.Text] = true
			names = append(names, e.Text)
		}
	}

	sort.Strings(names)
	return names
}

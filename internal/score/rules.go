package score

import (
	"fmt"
	"time"

	"github.com/ppiankov/compliance-radar/internal/extract"
	"github.com/ppiankov/compliance-radar/internal/model"
)

// DefaultRecencyDays is the window for the recent-incident rule
const DefaultRecencyDays = 7

// Rule is one additive entry of the risk table. Match reports whether the
// rule fires and the inputs that made it fire.
type Rule struct {
	Name        string
	Weight      int
	Description string
	Match       func(in Input, asOf time.Time) (bool, map[string]interface{})
}

// Input is everything the scorer looks at for one incident. Narrative dates
// and the stated incident date are kept apart; the caller decides which to
// supply.
type Input struct {
	Category       model.Category
	Narrative      string
	NarrativeDates []time.Time
	IncidentDate   *time.Time
}

// KnownDates is the union of narrative dates and the incident date
func (in Input) KnownDates() []time.Time {
	seen := make(map[time.Time]bool)
	dates := make([]time.Time, 0, len(in.NarrativeDates)+1)

	add := func(d time.Time) {
		d = model.Day(d)
		if !seen[d] {
			seen[d] = true
			dates = append(dates, d)
		}
	}
	for _, d := range in.NarrativeDates {
		add(d)
	}
	if in.IncidentDate != nil {
		add(*in.IncidentDate)
	}
	return dates
}

// CategoryRule fires when the category is one of the given set
func CategoryRule(name string, weight int, categories ...model.Category) Rule {
	set := make(map[model.Category]bool, len(categories))
	for _, c := range categories {
		set[c] = true
	}

	return Rule{
		Name:        name,
		Weight:      weight,
		Description: fmt.Sprintf("Category is one of %v", categories),
		Match: func(in Input, _ time.Time) (bool, map[string]interface{}) {
			if !set[in.Category] {
				return false, nil
			}
			return true, map[string]interface{}{"category": string(in.Category)}
		},
	}
}

// AmountRule fires when the narrative mentions a money amount
func AmountRule(weight int) Rule {
	return Rule{
		Name:        "amount_mentioned",
		Weight:      weight,
		Description: "Narrative mentions a monetary amount",
		Match: func(in Input, _ time.Time) (bool, map[string]interface{}) {
			if !extract.HasAmount(in.Narrative) {
				return false, nil
			}
			return true, map[string]interface{}{"amounts": extract.ExtractFields(in.Narrative).Amounts}
		},
	}
}

// IndicatorRule fires when the narrative contains any indicator substring,
// ignoring case and accents
func IndicatorRule(name string, weight int, matcher *IndicatorMatcher) Rule {
	return Rule{
		Name:        name,
		Weight:      weight,
		Description: "Narrative contains a violence indicator",
		Match: func(in Input, _ time.Time) (bool, map[string]interface{}) {
			found := matcher.Find(in.Narrative)
			if len(found) == 0 {
				return false, nil
			}
			return true, map[string]interface{}{"indicators": found}
		},
	}
}

// RecencyRule fires when a known date lies between asOf-days and asOf,
// both inclusive. Future dates never count.
func RecencyRule(weight, days int) Rule {
	return Rule{
		Name:        "recent_incident",
		Weight:      weight,
		Description: fmt.Sprintf("A known date falls within the last %d days", days),
		Match: func(in Input, asOf time.Time) (bool, map[string]interface{}) {
			today := model.Day(asOf)
			for _, d := range in.KnownDates() {
				age := daysBetween(d, today)
				if age >= 0 && age <= days {
					return true, map[string]interface{}{
						"date":     d.Format(model.DateLayout),
						"age_days": age,
						"as_of":    today.Format(model.DateLayout),
					}
				}
			}
			return false, nil
		},
	}
}

// DefaultRules returns the standard risk table
func DefaultRules(recencyDays int) []Rule {
	if recencyDays <= 0 {
		recencyDays = DefaultRecencyDays
	}

	return []Rule{
		CategoryRule("severe_category", 3,
			model.CategoryCoercion,
			model.CategoryOrganizedCrime,
		),
		CategoryRule("trafficking_category", 2,
			model.CategoryBribery,
			model.CategoryDrugTrafficking,
			model.CategoryIllegalMining,
			model.CategoryFuelTrafficking,
			model.CategorySmuggling,
		),
		AmountRule(1),
		IndicatorRule("violence_indicator", 1, NewIndicatorMatcher(DefaultViolenceIndicators).WithExclusions(DefaultIndicatorExclusions...)),
		RecencyRule(1, recencyDays),
	}
}

// daysBetween counts whole calendar days from a to b (both UTC midnight)
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

package score

import (
	"time"

	"github.com/ppiankov/compliance-radar/internal/model"
)

// Scorer evaluates an additive rule table. Rules are independent; each one
// that fires adds its weight. The reference date is always passed in, the
// scorer never reads the clock.
type Scorer struct {
	rules []Rule
}

// NewScorer creates a scorer over the given rules, or DefaultRules when
// none are given
func NewScorer(rules ...Rule) *Scorer {
	if len(rules) == 0 {
		rules = DefaultRules(DefaultRecencyDays)
	}
	return &Scorer{rules: rules}
}

// WithRule returns a copy of the scorer with an extra rule appended
func (s *Scorer) WithRule(rule Rule) *Scorer {
	rules := make([]Rule, 0, len(s.rules)+1)
	rules = append(rules, s.rules...)
	rules = append(rules, rule)
	return &Scorer{rules: rules}
}

// Rules returns the rule table in evaluation order
func (s *Scorer) Rules() []Rule {
	out := make([]Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// Calculate scores one incident as of the given date
func (s *Scorer) Calculate(in Input, asOf time.Time) model.Risk {
	if in.Category == "" {
		in.Category = model.CategoryOther
	}

	risk := model.Risk{Signals: []model.Signal{}}

	for _, rule := range s.rules {
		fired, data := rule.Match(in, asOf)
		if !fired {
			continue
		}
		risk.Score += rule.Weight
		risk.Signals = append(risk.Signals, model.Signal{
			Rule:        rule.Name,
			Weight:      rule.Weight,
			Description: rule.Description,
			Data:        data,
		})
	}

	// Custom rules may carry negative weights
	if risk.Score < 0 {
		risk.Score = 0
	}

	return risk
}

var defaultScorer = NewScorer()

// RiskScore scores a category label, narrative and known dates with the
// default rule table. Unknown labels contribute nothing.
func RiskScore(category string, narrative string, dates []time.Time, asOf time.Time) int {
	c, _ := model.ParseCategory(category)
	return defaultScorer.Calculate(Input{
		Category:       c,
		Narrative:      narrative,
		NarrativeDates: dates,
	}, asOf).Score
}

package validate

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/compliance-radar/internal/extract"
	"github.com/ppiankov/compliance-radar/internal/model"
)

// FieldError describes one invalid field of an incident record
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// RecordInput is an incident as typed by a reporter, before normalization
type RecordInput struct {
	Branch       string
	Rank         string
	Unit         string
	Province     string
	Canton       string
	IncidentDate string
	Narrative    string
}

// NewIncident validates input and builds the normalized incident. Every
// problem is reported, joined with errors.Join. A date after asOf is
// rejected; a zero asOf skips that check.
func NewIncident(input RecordInput, asOf time.Time) (model.Incident, error) {
	var errs []error
	incident := model.Incident{
		Unit:      strings.TrimSpace(input.Unit),
		Province:  strings.TrimSpace(input.Province),
		Canton:    strings.TrimSpace(input.Canton),
		Narrative: strings.TrimSpace(input.Narrative),
	}

	if branch, ok := ParseBranch(input.Branch); ok {
		incident.Branch = branch
	} else {
		errs = append(errs, &FieldError{Field: "branch", Message: fmt.Sprintf("unknown branch %q (expected %s)", input.Branch, oneOf(Branches()))})
	}

	if rank, ok := ParseRank(input.Rank); ok {
		incident.Rank = rank
	} else {
		errs = append(errs, &FieldError{Field: "rank", Message: fmt.Sprintf("unknown rank %q (expected %s)", input.Rank, oneOf(Ranks()))})
	}

	if incident.Narrative == "" {
		errs = append(errs, &FieldError{Field: "narrative", Message: "must not be empty"})
	}

	if strings.TrimSpace(input.IncidentDate) != "" {
		d, err := ParseIncidentDate(input.IncidentDate)
		switch {
		case err != nil:
			errs = append(errs, &FieldError{Field: "incident_date", Message: err.Error()})
		case !asOf.IsZero() && d.After(model.Day(asOf)):
			errs = append(errs, &FieldError{Field: "incident_date", Message: fmt.Sprintf("%s is in the future", d.Format(model.DateLayout))})
		default:
			incident.IncidentDate = d
		}
	}

	return incident, errors.Join(errs...)
}

// ParseIncidentDate reads an incident date in ISO form or any of the
// narrative date formats
func ParseIncidentDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(model.DateLayout, raw); err == nil {
		d := model.Day(t)
		return &d, nil
	}
	if t, ok := extract.ParseDate(raw); ok {
		return &t, nil
	}
	return nil, fmt.Errorf("unrecognized date %q", raw)
}

// Fields returns the names of the invalid fields in err, in order
func Fields(err error) []string {
	var fields []string
	for _, e := range unwrapAll(err) {
		var fe *FieldError
		if errors.As(e, &fe) {
			fields = append(fields, fe.Field)
		}
	}
	return fields
}

func unwrapAll(err error) []error {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}

// oneOf renders values as "a, b or c"
func oneOf[T ~string](values []T) string {
	names := make([]string, len(values))
	for i, v := range values {
		names[i] = string(v)
	}
	if len(names) < 2 {
		return strings.Join(names, "")
	}
	return strings.Join(names[:len(names)-1], ", ") + " or " + names[len(names)-1]
}

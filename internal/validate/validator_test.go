package validate

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/compliance-radar/internal/model"
)

var asOf = time.Date(2024, 3, 20, 15, 0, 0, 0, time.UTC)

func TestParseBranch(t *testing.T) {
	tests := []struct {
		in   string
		want model.Branch
		ok   bool
	}{
		{"Ejército", model.BranchArmy, true},
		{"EJERCITO", model.BranchArmy, true},
		{"army", model.BranchArmy, true},
		{"Marina", model.BranchNavy, true},
		{"Aviación", model.BranchAirForce, true},
		{"  Air   Force ", model.BranchAirForce, true},
		{"Fuerza Aérea", model.BranchAirForce, true},
		{"police", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseBranch(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseBranch(%q) = (%q, %v), expected (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseRank(t *testing.T) {
	tests := []struct {
		in   string
		want model.Rank
		ok   bool
	}{
		{"Tropa", model.RankTroop, true},
		{"troop", model.RankTroop, true},
		{"Oficial", model.RankOfficer, true},
		{"OFFICER", model.RankOfficer, true},
		{"general", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseRank(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseRank(%q) = (%q, %v), expected (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestNewIncident_Valid(t *testing.T) {
	in := RecordInput{
		Branch:       "Marina",
		Rank:         "Oficial",
		Unit:         " BAE Guayas ",
		Province:     "Guayas",
		Canton:       "Guayaquil",
		IncidentDate: "15/03/2024",
		Narrative:    "  A contractor offered $1,500 to skip the inspection.  ",
	}

	incident, err := NewIncident(in, asOf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if incident.Branch != model.BranchNavy || incident.Rank != model.RankOfficer {
		t.Errorf("expected navy officer, got %s %s", incident.Branch, incident.Rank)
	}
	if incident.Unit != "BAE Guayas" {
		t.Errorf("expected trimmed unit, got %q", incident.Unit)
	}
	if model.FormatDate(incident.IncidentDate) != "2024-03-15" {
		t.Errorf("expected 2024-03-15, got %s", model.FormatDate(incident.IncidentDate))
	}
	if incident.Narrative != "A contractor offered $1,500 to skip the inspection." {
		t.Errorf("expected trimmed narrative, got %q", incident.Narrative)
	}
}

func TestNewIncident_OptionalDate(t *testing.T) {
	incident, err := NewIncident(RecordInput{Branch: "army", Rank: "troop", Narrative: "text"}, asOf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if incident.IncidentDate != nil {
		t.Errorf("expected no incident date, got %v", incident.IncidentDate)
	}
}

func TestNewIncident_CollectsAllErrors(t *testing.T) {
	_, err := NewIncident(RecordInput{Branch: "police", Rank: "general", IncidentDate: "31/02/2024"}, asOf)
	if err == nil {
		t.Fatal("expected error")
	}

	want := []string{"branch", "rank", "narrative", "incident_date"}
	if got := Fields(err); !reflect.DeepEqual(got, want) {
		t.Errorf("expected fields %v, got %v", want, got)
	}

	var fe *FieldError
	if !errors.As(err, &fe) {
		t.Error("expected FieldError in joined error")
	}
}

func TestNewIncident_MessagesListAccepted(t *testing.T) {
	_, err := NewIncident(RecordInput{Branch: "police", Rank: "general", Narrative: "text"}, asOf)
	if err == nil {
		t.Fatal("expected error")
	}

	msg := err.Error()
	for _, want := range []string{"expected army, navy or air force", "expected troop or officer"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected message to contain %q, got %q", want, msg)
		}
	}
}

func TestOneOf(t *testing.T) {
	if got := oneOf([]string{"a"}); got != "a" {
		t.Errorf("expected a, got %q", got)
	}
	if got := oneOf([]string{"a", "b", "c"}); got != "a, b or c" {
		t.Errorf("expected \"a, b or c\", got %q", got)
	}
}

func TestNewIncident_FutureDate(t *testing.T) {
	in := RecordInput{Branch: "army", Rank: "troop", Narrative: "text", IncidentDate: "2024-03-21"}

	if _, err := NewIncident(in, asOf); err == nil {
		t.Error("expected future date to be rejected")
	}

	// Same day is fine even though asOf is mid-afternoon
	in.IncidentDate = "2024-03-20"
	if _, err := NewIncident(in, asOf); err != nil {
		t.Errorf("expected today to be accepted, got %v", err)
	}

	in.IncidentDate = "2030-01-01"
	if _, err := NewIncident(in, time.Time{}); err != nil {
		t.Errorf("expected zero asOf to skip the future check, got %v", err)
	}
}

func TestParseIncidentDate(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"2024-03-15", "2024-03-15", false},
		{"2024-3-5", "2024-03-05", false},
		{"15/03/2024", "2024-03-15", false},
		{"15.03.24", "2024-03-15", false},
		{"yesterday", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseIncidentDate(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseIncidentDate(%q) error = %v, expected error=%v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got.Format(model.DateLayout) != tt.want {
			t.Errorf("ParseIncidentDate(%q) = %s, expected %s", tt.in, got.Format(model.DateLayout), tt.want)
		}
	}
}

func TestFields_NilError(t *testing.T) {
	if fields := Fields(nil); len(fields) != 0 {
		t.Errorf("expected no fields, got %v", fields)
	}
}

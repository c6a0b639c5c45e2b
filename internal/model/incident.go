package model

import "time"

// Branch is the armed-forces branch that filed the report
type Branch string

const (
	BranchArmy     Branch = "army"
	BranchNavy     Branch = "navy"
	BranchAirForce Branch = "air force"
)

// Rank is the reporter's rank class
type Rank string

const (
	RankTroop   Rank = "troop"
	RankOfficer Rank = "officer"
)

// Incident is one intake record. It is never modified after creation;
// derived fields live on Assessment.
type Incident struct {
	ID           string     `json:"id,omitempty"` // Assigned when created through the CLI form
	Branch       Branch     `json:"branch"`       // army, navy, air force
	Rank         Rank       `json:"rank"`         // troop, officer
	Unit         string     `json:"unit"`         // Unit / detachment
	Province     string     `json:"province"`
	Canton       string     `json:"canton"`                  // Canton / district
	IncidentDate *time.Time `json:"incident_date,omitempty"` // Date only, UTC midnight
	Narrative    string     `json:"narrative"`               // Free text, may be long
}

// DateLayout is the layout used when writing incident dates
const DateLayout = "2006-01-02"

// FormatDate renders an optional date, empty when nil
func FormatDate(d *time.Time) string {
	if d == nil {
		return ""
	}
	return d.Format(DateLayout)
}

// Day truncates t to midnight UTC on the same calendar day
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/ppiankov/compliance-radar/internal/model"
	"github.com/ppiankov/compliance-radar/internal/util"
	"github.com/ppiankov/compliance-radar/internal/validate"
)

// ErrMissingColumns is returned when an input table lacks required columns
var ErrMissingColumns = errors.New("missing required columns")

// Canonical input column names
const (
	ColumnID           = "id"
	ColumnBranch       = "branch"
	ColumnRank         = "rank"
	ColumnUnit         = "unit"
	ColumnProvince     = "province"
	ColumnCanton       = "canton"
	ColumnIncidentDate = "incident_date"
	ColumnNarrative    = "narrative"
)

// RequiredColumns must all be present in an input table
var RequiredColumns = []string{
	ColumnBranch,
	ColumnRank,
	ColumnUnit,
	ColumnProvince,
	ColumnCanton,
	ColumnIncidentDate,
	ColumnNarrative,
}

// RecordColumns is the header written for new incident records
var RecordColumns = append([]string{ColumnID}, RequiredColumns...)

// Spanish headers used by the original intake form. Keys are folded.
var columnAliases = map[string]string{
	"rama":            ColumnBranch,
	"grado":           ColumnRank,
	"unidad":          ColumnUnit,
	"provincia":       ColumnProvince,
	"fecha_incidente": ColumnIncidentDate,
	"fecha":           ColumnIncidentDate,
	"relato":          ColumnNarrative,
}

// CanonicalColumn maps a header cell to its canonical name. Unknown
// headers are returned folded, so extra columns survive a round trip.
func CanonicalColumn(header string) string {
	folded := util.Fold(strings.TrimSpace(strings.TrimPrefix(header, "\ufeff")))
	folded = strings.ReplaceAll(folded, " ", "_")
	if canonical, ok := columnAliases[folded]; ok {
		return canonical
	}
	return folded
}

// Record is one input row: the parsed incident plus the raw cells, kept so
// the output can repeat every input column as it was
type Record struct {
	Line     int
	Incident model.Incident
	Values   []string
}

// Table is a parsed incident table
type Table struct {
	Header   []string // As written in the input
	Records  []Record
	Warnings []string // Non-fatal problems, e.g. unreadable dates
}

// Incidents returns the incidents in input order
func (t *Table) Incidents() []model.Incident {
	incidents := make([]model.Incident, len(t.Records))
	for i, r := range t.Records {
		incidents[i] = r.Incident
	}
	return incidents
}

// ReadTable parses a CSV incident table. Headers may be English or the
// original Spanish ones; a leading UTF-8 BOM is ignored.
func ReadTable(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: %s (empty input)", ErrMissingColumns, strings.Join(RequiredColumns, ", "))
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		name := CanonicalColumn(h)
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	table := &Table{Header: header}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		line, _ := reader.FieldPos(0)
		if isBlank(row) {
			continue
		}

		// Pad short rows so every header cell has a value
		for len(row) < len(header) {
			row = append(row, "")
		}

		cell := func(col string) string {
			if i, ok := index[col]; ok {
				return strings.TrimSpace(row[i])
			}
			return ""
		}

		incident := model.Incident{
			ID:        cell(ColumnID),
			Branch:    model.Branch(cell(ColumnBranch)),
			Rank:      model.Rank(cell(ColumnRank)),
			Unit:      cell(ColumnUnit),
			Province:  cell(ColumnProvince),
			Canton:    cell(ColumnCanton),
			Narrative: cell(ColumnNarrative),
		}
		if b, ok := validate.ParseBranch(cell(ColumnBranch)); ok {
			incident.Branch = b
		}
		if rk, ok := validate.ParseRank(cell(ColumnRank)); ok {
			incident.Rank = rk
		}
		if raw := cell(ColumnIncidentDate); raw != "" {
			if d, err := validate.ParseIncidentDate(raw); err == nil {
				incident.IncidentDate = d
			} else {
				table.Warnings = append(table.Warnings, fmt.Sprintf("line %d: %v", line, err))
			}
		}

		table.Records = append(table.Records, Record{Line: line, Incident: incident, Values: row})
	}

	return table, nil
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

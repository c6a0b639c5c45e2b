package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/ppiankov/compliance-radar/internal/model"
)

// Columns appended to every input row in the results table
const (
	ColumnCategory      = "category"
	ColumnCategoryScore = "category_score"
	ColumnEntities      = "entities"
	ColumnAmounts       = "amounts"
	ColumnDates         = "dates"
	ColumnRisk          = "risk"
)

// DerivedColumns in output order
var DerivedColumns = []string{
	ColumnCategory,
	ColumnCategoryScore,
	ColumnEntities,
	ColumnAmounts,
	ColumnDates,
	ColumnRisk,
}

const listSeparator = ", "

// Row pairs an input record with its assessment
type Row struct {
	Record     Record
	Assessment model.Assessment
}

// FormatConfidence rounds a confidence to 3 decimals
func FormatConfidence(c float64) string {
	return strconv.FormatFloat(math.Round(c*1000)/1000, 'f', 3, 64)
}

// DerivedValues renders the derived columns of one assessment
func DerivedValues(a model.Assessment) []string {
	return []string{
		string(a.Prediction.Category),
		FormatConfidence(a.Prediction.Confidence),
		strings.Join(a.EntityNames(), listSeparator),
		strings.Join(a.Fields.Amounts, listSeparator),
		strings.Join(a.Fields.Dates, listSeparator),
		strconv.Itoa(a.Risk.Score),
	}
}

// WriteResults writes the input header plus the derived columns, then one
// line per row in the given order
func WriteResults(w io.Writer, header []string, rows []Row) error {
	writer := csv.NewWriter(w)

	out := make([]string, 0, len(header)+len(DerivedColumns))
	out = append(out, header...)
	out = append(out, DerivedColumns...)
	if err := writer.Write(out); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, row := range rows {
		values := make([]string, len(header), len(header)+len(DerivedColumns))
		copy(values, row.Record.Values)
		values = append(values, DerivedValues(row.Assessment)...)
		if err := writer.Write(values); err != nil {
			return fmt.Errorf("write row %d: %w", row.Record.Line, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// RecordValues renders an incident in RecordColumns order
func RecordValues(incident model.Incident) []string {
	return []string{
		incident.ID,
		string(incident.Branch),
		string(incident.Rank),
		incident.Unit,
		incident.Province,
		incident.Canton,
		model.FormatDate(incident.IncidentDate),
		incident.Narrative,
	}
}

// WriteIncident saves one incident record to path. With appendMode and an
// existing non-empty file, the record is added below the file's own header,
// matching its column order and Spanish or English names; otherwise the
// file is created with RecordColumns.
func WriteIncident(path string, incident model.Incident, appendMode bool) error {
	if appendMode {
		header, err := readHeader(path)
		if err != nil {
			return err
		}
		if header != nil {
			return appendIncident(path, header, incident)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	writer := csv.NewWriter(f)
	if err := writer.Write(RecordColumns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := writer.Write(RecordValues(incident)); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return f.Close()
}

// readHeader returns nil when the file does not exist or is empty
func readHeader(path string) ([]string, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	header, err := csv.NewReader(f).Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}
	return header, nil
}

func appendIncident(path string, header []string, incident model.Incident) error {
	byColumn := make(map[string]string, len(RecordColumns))
	for i, v := range RecordValues(incident) {
		byColumn[RecordColumns[i]] = v
	}

	values := make([]string, len(header))
	for i, h := range header {
		values[i] = byColumn[CanonicalColumn(h)]
	}

	if err := ensureTrailingNewline(path); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	writer := csv.NewWriter(f)
	if err := writer.Write(values); err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return f.Close()
}

func ensureTrailingNewline(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		return nil
	}

	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return err
	}
	if last[0] == '\n' {
		return nil
	}
	_, err = f.WriteAt([]byte("\n"), info.Size())
	return err
}

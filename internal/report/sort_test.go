package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ppiankov/compliance-radar/internal/model"
)

func rowsFor(assessments ...model.Assessment) []Row {
	rows := make([]Row, len(assessments))
	for i, a := range assessments {
		rows[i] = Row{Record: Record{Line: i + 2}, Assessment: a}
	}
	return rows
}

func TestSortByPriority(t *testing.T) {
	rows := rowsFor(
		assessment(model.CategoryOther, 0.9, 0),
		assessment(model.CategoryBribery, 0.5, 3),
		assessment(model.CategoryCoercion, 0.7, 5),
		assessment(model.CategorySmuggling, 0.9, 3),
		assessment(model.CategoryBribery, 0.5, 3),
	)

	SortByPriority(rows)

	wantLines := []int{4, 5, 3, 6, 2}
	for i, row := range rows {
		if row.Record.Line != wantLines[i] {
			t.Errorf("position %d: expected line %d, got %d", i, wantLines[i], row.Record.Line)
		}
	}
}

func TestCountByCategory(t *testing.T) {
	rows := rowsFor(
		assessment(model.CategoryBribery, 0.5, 3),
		assessment(model.CategoryOther, 0, 0),
		assessment(model.CategoryBribery, 0.6, 3),
		assessment(model.CategorySmuggling, 0.6, 2),
	)

	counts := CountByCategory(rows)
	if len(counts) != 3 {
		t.Fatalf("expected 3 categories, got %d", len(counts))
	}
	if counts[0].Category != model.CategoryBribery || counts[0].Count != 2 {
		t.Errorf("expected bribery x2 first, got %+v", counts[0])
	}
	// Ties ordered by name
	if counts[1].Category != model.CategoryOther || counts[2].Category != model.CategorySmuggling {
		t.Errorf("unexpected tie order: %+v", counts)
	}
}

func TestTop(t *testing.T) {
	rows := rowsFor(assessment("", 0, 1), assessment("", 0, 2), assessment("", 0, 3))

	if len(Top(rows, 2)) != 2 {
		t.Error("expected 2 rows")
	}
	if len(Top(rows, 10)) != 3 {
		t.Error("expected all rows when n exceeds length")
	}
	if len(Top(rows, 0)) != 3 {
		t.Error("expected all rows for n <= 0")
	}
}

func TestRender(t *testing.T) {
	a := assessment(model.CategoryCoercion, 0.734, 5)
	a.Incident = model.Incident{Branch: model.BranchArmy, Province: "Pichincha", Narrative: strings.Repeat("amenaza ", 20)}
	rows := rowsFor(a, assessment(model.CategoryOther, 0, 0))

	var buf bytes.Buffer
	RenderCounts(&buf, CountByCategory(rows))
	RenderTop(&buf, rows, 1)

	out := strings.ToLower(buf.String())
	for _, want := range []string{"coercion/threat", "total", "top 1 by risk", "0.734", "pichincha", "…"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q:\n%s", want, out)
		}
	}
}

func TestRenderCounts_HeadingNotWrapped(t *testing.T) {
	rows := rowsFor(assessment(model.CategoryOther, 0, 0))

	var buf bytes.Buffer
	RenderCounts(&buf, CountByCategory(rows))

	out := buf.String()
	if !strings.HasPrefix(out, "Incidents by category\n") {
		t.Errorf("expected heading on its own line, got:\n%s", out)
	}
	if !strings.Contains(strings.ToLower(out), "other") {
		t.Errorf("expected category row, got:\n%s", out)
	}
}

package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/ppiankov/compliance-radar/internal/model"
	"github.com/ppiankov/compliance-radar/internal/util"
)

const narrativePreviewRunes = 60

// RenderCounts prints the number of incidents per predicted category. The
// heading is printed above the table since go-pretty wraps titles to the
// table width.
func RenderCounts(w io.Writer, counts []CategoryCount) {
	fmt.Fprintln(w, "Incidents by category")

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Category", "Count"})

	total := 0
	for _, c := range counts {
		t.AppendRow(table.Row{c.Category, c.Count})
		total += c.Count
	}
	t.AppendFooter(table.Row{"Total", total})

	t.Render()
}

// RenderTop prints the highest priority rows
func RenderTop(w io.Writer, rows []Row, n int) {
	top := Top(rows, n)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(fmt.Sprintf("Top %d by risk", len(top)))
	t.AppendHeader(table.Row{"#", "Risk", "Category", "Score", "Branch", "Province", "Date", "Narrative"})

	for i, row := range top {
		a := row.Assessment
		t.AppendRow(table.Row{
			i + 1,
			a.Risk.Score,
			a.Prediction.Category,
			FormatConfidence(a.Prediction.Confidence),
			a.Incident.Branch,
			a.Incident.Province,
			model.FormatDate(a.Incident.IncidentDate),
			preview(a.Incident.Narrative),
		})
	}

	t.Render()
}

func preview(narrative string) string {
	flat := strings.Join(strings.Fields(narrative), " ")
	short := util.Truncate(flat, narrativePreviewRunes)
	if short != flat {
		short += "…"
	}
	return short
}

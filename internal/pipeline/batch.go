package pipeline

import (
	"context"
	"fmt"

	"github.com/ppiankov/compliance-radar/internal/report"
	"github.com/ppiankov/compliance-radar/internal/worker"
)

// BatchResult is a triaged table, sorted by priority
type BatchResult struct {
	Header   []string
	Rows     []report.Row // Sorted by (risk, confidence) descending
	Counts   []report.CategoryCount
	Warnings []string // Table and per-row warnings, in input order
}

// Analyze triages every record of table with the given number of workers,
// then sorts the rows by priority
func (p *Pipeline) Analyze(ctx context.Context, table *report.Table, workers int, progress worker.ProgressFunc) (*BatchResult, error) {
	processor := worker.NewBatchProcessor(p, workers).OnProgress(progress)
	results := processor.Process(ctx, table.Incidents())

	result := &BatchResult{
		Header:   table.Header,
		Rows:     make([]report.Row, 0, len(results)),
		Warnings: append([]string{}, table.Warnings...),
	}

	for i, res := range results {
		record := table.Records[i]
		if res.Error != nil {
			return nil, fmt.Errorf("line %d: %w", record.Line, res.Error)
		}
		for _, w := range res.Assessment.Warnings {
			result.Warnings = append(result.Warnings, fmt.Sprintf("line %d: %s", record.Line, w))
		}
		result.Rows = append(result.Rows, report.Row{Record: record, Assessment: *res.Assessment})
	}

	report.SortByPriority(result.Rows)
	result.Counts = report.CountByCategory(result.Rows)
	return result, nil
}

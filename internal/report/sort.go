package report

import (
	"sort"

	"github.com/ppiankov/compliance-radar/internal/model"
)

// SortByPriority orders rows by risk, then category confidence, both
// descending. Ties keep input order.
func SortByPriority(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].Assessment, rows[j].Assessment
		if a.Risk.Score != b.Risk.Score {
			return a.Risk.Score > b.Risk.Score
		}
		return a.Prediction.Confidence > b.Prediction.Confidence
	})
}

// CategoryCount is the number of rows predicted as one category
type CategoryCount struct {
	Category model.Category
	Count    int
}

// CountByCategory tallies predicted categories, most frequent first, ties
// by name
func CountByCategory(rows []Row) []CategoryCount {
	counts := make(map[model.Category]int)
	for _, row := range rows {
		counts[row.Assessment.Prediction.Category]++
	}

	out := make([]CategoryCount, 0, len(counts))
	for c, n := range counts {
		out = append(out, CategoryCount{Category: c, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// Top returns the first n rows, or all of them when n <= 0
func Top(rows []Row, n int) []Row {
	if n <= 0 || n >= len(rows) {
		return rows
	}
	return rows[:n]
}

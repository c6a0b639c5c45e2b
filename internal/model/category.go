package model

import (
	"strings"

	"github.com/ppiankov/compliance-radar/internal/util"
)

// Category is an incident type from the closed label set
type Category string

const (
	CategoryBribery            Category = "bribery"
	CategoryCoercion           Category = "coercion/threat"
	CategoryOrganizedCrime     Category = "contact with organized crime"
	CategoryFuelTrafficking    Category = "fuel trafficking"
	CategoryIllegalMining      Category = "illegal mining"
	CategoryDrugTrafficking    Category = "drug trafficking"
	CategorySmuggling          Category = "smuggling"
	CategoryInternalCorruption Category = "internal corruption"
	CategoryOther              Category = "other"
)

// Categories returns the full candidate label set in display order
func Categories() []Category {
	return []Category{
		CategoryBribery,
		CategoryCoercion,
		CategoryOrganizedCrime,
		CategoryFuelTrafficking,
		CategoryIllegalMining,
		CategoryDrugTrafficking,
		CategorySmuggling,
		CategoryInternalCorruption,
		CategoryOther,
	}
}

// DiagnosticCategories is the reduced label set used to exercise the
// classification service
func DiagnosticCategories() []Category {
	return []Category{CategoryBribery, CategoryCoercion, CategoryOrganizedCrime, CategoryOther}
}

// Spanish labels produced by earlier versions of the intake form.
// Keys are folded (lowercase, no accents).
var categoryAliases = map[string]Category{
	"soborno/coima":           CategoryBribery,
	"soborno":                 CategoryBribery,
	"coima":                   CategoryBribery,
	"amenaza/coaccion":        CategoryCoercion,
	"contacto con mafia":      CategoryOrganizedCrime,
	"trafico de combustibles": CategoryFuelTrafficking,
	"mineria ilegal":          CategoryIllegalMining,
	"narcotrafico":            CategoryDrugTrafficking,
	"contrabando":             CategorySmuggling,
	"corrupcion interna":      CategoryInternalCorruption,
	"otros":                   CategoryOther,
}

// ParseCategory resolves a label (canonical or Spanish alias) to a
// Category. Unknown labels are returned as-is with ok=false; they match no
// scoring rule. An empty label resolves to CategoryOther.
func ParseCategory(label string) (c Category, ok bool) {
	folded := util.Fold(strings.TrimSpace(label))
	if folded == "" {
		return CategoryOther, true
	}

	for _, known := range Categories() {
		if folded == string(known) {
			return known, true
		}
	}
	if alias, found := categoryAliases[folded]; found {
		return alias, true
	}

	return Category(strings.TrimSpace(label)), false
}

// Labels converts categories to the plain strings sent to a classifier
func Labels(categories []Category) []string {
	labels := make([]string, len(categories))
	for i, c := range categories {
		labels[i] = string(c)
	}
	return labels
}

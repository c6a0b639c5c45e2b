package validate

import (
	"strings"

	"github.com/ppiankov/compliance-radar/internal/model"
	"github.com/ppiankov/compliance-radar/internal/util"
)

// Folded spellings accepted for each branch, including the Spanish form
// labels (Ejército, Marina, Aviación)
var branchAliases = map[string]model.Branch{
	"army":         model.BranchArmy,
	"ejercito":     model.BranchArmy,
	"navy":         model.BranchNavy,
	"marina":       model.BranchNavy,
	"armada":       model.BranchNavy,
	"air force":    model.BranchAirForce,
	"airforce":     model.BranchAirForce,
	"aviacion":     model.BranchAirForce,
	"fuerza aerea": model.BranchAirForce,
}

var rankAliases = map[string]model.Rank{
	"troop":    model.RankTroop,
	"troops":   model.RankTroop,
	"enlisted": model.RankTroop,
	"tropa":    model.RankTroop,
	"officer":  model.RankOfficer,
	"oficial":  model.RankOfficer,
}

// ParseBranch resolves a branch name in English or Spanish, ignoring case
// and accents
func ParseBranch(s string) (model.Branch, bool) {
	b, ok := branchAliases[normalize(s)]
	return b, ok
}

// ParseRank resolves a rank class in English or Spanish
func ParseRank(s string) (model.Rank, bool) {
	r, ok := rankAliases[normalize(s)]
	return r, ok
}

// Branches lists the canonical branches in form order
func Branches() []model.Branch {
	return []model.Branch{model.BranchArmy, model.BranchNavy, model.BranchAirForce}
}

// Ranks lists the canonical rank classes in form order
func Ranks() []model.Rank {
	return []model.Rank{model.RankTroop, model.RankOfficer}
}

func normalize(s string) string {
	return strings.Join(strings.Fields(util.Fold(s)), " ")
}

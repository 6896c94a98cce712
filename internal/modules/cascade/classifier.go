package cascade

import (
	"math"

	"github.com/venturecanvas/venturecanvas-backend/internal/domain"
)

// Tier cutoffs. Both boundaries are inclusive toward suggested, so a
// proposal sitting exactly on a cutoff always gets a human in the loop.
const (
	tierAutoAbove     = 0.8
	tierSuggestedFrom = 0.5
)

// ClassifyTier maps a proposal confidence to its handling tier. Pure and
// stateless. NaN classifies as logged, the most conservative tier.
func ClassifyTier(confidence float64) domain.Tier {
	if math.IsNaN(confidence) {
		return domain.TierLogged
	}
	if confidence > tierAutoAbove {
		return domain.TierAuto
	}
	if confidence >= tierSuggestedFrom {
		return domain.TierSuggested
	}
	return domain.TierLogged
}

// TierRank orders tiers by escalation: logged < suggested < auto.
func TierRank(t domain.Tier) int {
	switch t {
	case domain.TierAuto:
		return 2
	case domain.TierSuggested:
		return 1
	default:
		return 0
	}
}

package cascade

import (
	"math"
	"testing"

	"github.com/venturecanvas/venturecanvas-backend/internal/domain"
)

func TestClassifyTierBoundaries(t *testing.T) {
	cases := []struct {
		confidence float64
		want       domain.Tier
	}{
		{1.0, domain.TierAuto},
		{0.9, domain.TierAuto},
		{0.8001, domain.TierAuto},
		{0.8, domain.TierSuggested},
		{0.65, domain.TierSuggested},
		{0.5, domain.TierSuggested},
		{0.4999, domain.TierLogged},
		{0.2, domain.TierLogged},
		{0.0, domain.TierLogged},
		{-0.1, domain.TierLogged},
		{1.5, domain.TierAuto},
	}
	for _, tc := range cases {
		if got := ClassifyTier(tc.confidence); got != tc.want {
			t.Fatalf("ClassifyTier(%v): want=%s got=%s", tc.confidence, tc.want, got)
		}
	}
}

func TestClassifyTierMonotonic(t *testing.T) {
	prev := TierRank(ClassifyTier(0))
	for c := 0.01; c <= 1.0; c += 0.01 {
		rank := TierRank(ClassifyTier(c))
		if rank < prev {
			t.Fatalf("tier rank dropped at confidence %v: %d -> %d", c, prev, rank)
		}
		prev = rank
	}
}

func TestClassifyTierNaN(t *testing.T) {
	if got := ClassifyTier(math.NaN()); got != domain.TierLogged {
		t.Fatalf("ClassifyTier(NaN): want=%s got=%s", domain.TierLogged, got)
	}
}

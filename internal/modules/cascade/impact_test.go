package cascade

import (
	"testing"

	"github.com/google/uuid"

	"github.com/venturecanvas/venturecanvas-backend/internal/config"
	"github.com/venturecanvas/venturecanvas-backend/internal/domain"
)

func newTestImpactAnalyzer(t *testing.T, cfg config.CascadeConfig, edges *fakeEdgeRepo) ImpactAnalyzer {
	t.Helper()
	return NewImpactAnalyzer(testLogger(t), cfg, edges, nil)
}

func TestAnalyzeZeroDependents(t *testing.T) {
	projectID := uuid.New()
	a := newTestImpactAnalyzer(t, config.DefaultCascadeConfig(), newFakeEdgeRepo())

	report, err := a.Analyze(testDBC(), projectID, domain.EntityRef{Type: domain.EntityPersona, ID: uuid.New()}, 0)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if report.TotalAffected != 0 {
		t.Fatalf("total affected: want=0 got=%d", report.TotalAffected)
	}
	if report.Recommendation != RecommendAuto {
		t.Fatalf("recommendation: want=%s got=%s", RecommendAuto, report.Recommendation)
	}
}

func TestAnalyzeSingleStrongEdgeStaysAuto(t *testing.T) {
	projectID := uuid.New()
	persona := domain.EntityRef{Type: domain.EntityPersona, ID: uuid.New()}
	feature := domain.EntityRef{Type: domain.EntityFeature, ID: uuid.New()}
	edges := newFakeEdgeRepo()
	edges.add(projectID, feature, persona, domain.RelationTargets, 0.95)
	a := newTestImpactAnalyzer(t, config.DefaultCascadeConfig(), edges)

	report, err := a.Analyze(testDBC(), projectID, persona, 0)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if report.TotalAffected != 1 {
		t.Fatalf("total affected: want=1 got=%d", report.TotalAffected)
	}
	if report.StrongEdges != 1 {
		t.Fatalf("strong edges: want=1 got=%d", report.StrongEdges)
	}
	if report.Recommendation != RecommendAuto {
		t.Fatalf("recommendation: want=%s got=%s", RecommendAuto, report.Recommendation)
	}
}

func TestAnalyzeMediumRadiusSuggestsReview(t *testing.T) {
	projectID := uuid.New()
	persona := domain.EntityRef{Type: domain.EntityPersona, ID: uuid.New()}
	edges := newFakeEdgeRepo()
	for i := 0; i < 4; i++ {
		feature := domain.EntityRef{Type: domain.EntityFeature, ID: uuid.New()}
		edges.add(projectID, feature, persona, domain.RelationTargets, 0.5)
	}
	a := newTestImpactAnalyzer(t, config.DefaultCascadeConfig(), edges)

	report, err := a.Analyze(testDBC(), projectID, persona, 0)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if report.TotalAffected != 4 {
		t.Fatalf("total affected: want=4 got=%d", report.TotalAffected)
	}
	if report.Recommendation != RecommendReviewSuggested {
		t.Fatalf("recommendation: want=%s got=%s", RecommendReviewSuggested, report.Recommendation)
	}
}

func TestAnalyzeLargeRadiusWarns(t *testing.T) {
	projectID := uuid.New()
	persona := domain.EntityRef{Type: domain.EntityPersona, ID: uuid.New()}
	edges := newFakeEdgeRepo()
	for i := 0; i < 11; i++ {
		feature := domain.EntityRef{Type: domain.EntityFeature, ID: uuid.New()}
		edges.add(projectID, feature, persona, domain.RelationTargets, 0.4)
	}
	a := newTestImpactAnalyzer(t, config.DefaultCascadeConfig(), edges)

	report, err := a.Analyze(testDBC(), projectID, persona, 0)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if report.TotalAffected != 11 {
		t.Fatalf("total affected: want=11 got=%d", report.TotalAffected)
	}
	if report.Recommendation != RecommendHighImpact {
		t.Fatalf("recommendation: want=%s got=%s", RecommendHighImpact, report.Recommendation)
	}
}

func TestAnalyzeStrongEdgesUpgradeSmallRadius(t *testing.T) {
	projectID := uuid.New()
	persona := domain.EntityRef{Type: domain.EntityPersona, ID: uuid.New()}
	edges := newFakeEdgeRepo()
	for i := 0; i < 3; i++ {
		feature := domain.EntityRef{Type: domain.EntityFeature, ID: uuid.New()}
		edges.add(projectID, feature, persona, domain.RelationTargets, 0.8)
	}
	a := newTestImpactAnalyzer(t, config.DefaultCascadeConfig(), edges)

	report, err := a.Analyze(testDBC(), projectID, persona, 0)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if report.TotalAffected != 3 {
		t.Fatalf("total affected: want=3 got=%d", report.TotalAffected)
	}
	if report.StrongEdges != 3 {
		t.Fatalf("strong edges: want=3 got=%d", report.StrongEdges)
	}
	if report.Recommendation != RecommendReviewSuggested {
		t.Fatalf("recommendation: want=%s got=%s", RecommendReviewSuggested, report.Recommendation)
	}
}

func TestAnalyzeSplitsDirectAndIndirect(t *testing.T) {
	projectID := uuid.New()
	persona := domain.EntityRef{Type: domain.EntityPersona, ID: uuid.New()}
	feature := domain.EntityRef{Type: domain.EntityFeature, ID: uuid.New()}
	step := domain.EntityRef{Type: domain.EntityVPStep, ID: uuid.New()}
	edges := newFakeEdgeRepo()
	edges.add(projectID, feature, persona, domain.RelationTargets, 0.9)
	edges.add(projectID, step, feature, domain.RelationUses, 0.7)
	a := newTestImpactAnalyzer(t, config.DefaultCascadeConfig(), edges)

	report, err := a.Analyze(testDBC(), projectID, persona, 0)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(report.DirectImpacts) != 1 || report.DirectImpacts[0].Entity != feature {
		t.Fatalf("direct impacts: got=%#v", report.DirectImpacts)
	}
	if len(report.IndirectImpacts) != 1 || report.IndirectImpacts[0].Entity != step {
		t.Fatalf("indirect impacts: got=%#v", report.IndirectImpacts)
	}
	if report.DirectImpacts[0].Depth != 0 {
		t.Fatalf("direct depth: want=0 got=%d", report.DirectImpacts[0].Depth)
	}
	if report.IndirectImpacts[0].Depth != 1 {
		t.Fatalf("indirect depth: want=1 got=%d", report.IndirectImpacts[0].Depth)
	}
	if report.VPStepCount() != 1 {
		t.Fatalf("vp_step count: want=1 got=%d", report.VPStepCount())
	}
}

func TestAnalyzeHonorsMaxDepth(t *testing.T) {
	projectID := uuid.New()
	refs := make([]domain.EntityRef, 5)
	refs[0] = domain.EntityRef{Type: domain.EntityPersona, ID: uuid.New()}
	edges := newFakeEdgeRepo()
	for i := 1; i < len(refs); i++ {
		refs[i] = domain.EntityRef{Type: domain.EntityFeature, ID: uuid.New()}
		edges.add(projectID, refs[i], refs[i-1], domain.RelationDerivedFrom, 0.6)
	}
	a := newTestImpactAnalyzer(t, config.DefaultCascadeConfig(), edges)

	report, err := a.Analyze(testDBC(), projectID, refs[0], 2)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if report.TotalAffected != 2 {
		t.Fatalf("total affected at depth 2: want=2 got=%d", report.TotalAffected)
	}
}

func TestAnalyzeVisitedCap(t *testing.T) {
	projectID := uuid.New()
	persona := domain.EntityRef{Type: domain.EntityPersona, ID: uuid.New()}
	edges := newFakeEdgeRepo()
	for i := 0; i < 10; i++ {
		feature := domain.EntityRef{Type: domain.EntityFeature, ID: uuid.New()}
		edges.add(projectID, feature, persona, domain.RelationTargets, 0.5)
	}
	cfg := config.DefaultCascadeConfig()
	cfg.MaxVisitedEntities = 5
	a := newTestImpactAnalyzer(t, cfg, edges)

	report, err := a.Analyze(testDBC(), projectID, persona, 0)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if report.TotalAffected != 5 {
		t.Fatalf("total affected under cap: want=5 got=%d", report.TotalAffected)
	}
}

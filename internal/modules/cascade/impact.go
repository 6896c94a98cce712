package cascade

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/venturecanvas/venturecanvas-backend/internal/config"
	"github.com/venturecanvas/venturecanvas-backend/internal/data/repos"
	"github.com/venturecanvas/venturecanvas-backend/internal/domain"
	"github.com/venturecanvas/venturecanvas-backend/internal/observability"
	"github.com/venturecanvas/venturecanvas-backend/internal/pkg/dbctx"
	pkgerrors "github.com/venturecanvas/venturecanvas-backend/internal/pkg/errors"
	"github.com/venturecanvas/venturecanvas-backend/internal/platform/logger"
)

// Edges at or above this strength count toward the strong-dependency
// upgrade rule.
const strongEdgeStrength = 0.8

// ImpactAnalyzer previews a propagation's blast radius without mutating
// anything. Its coverage matches what the propagator would mark on the
// same graph state, so it doubles as the decision engine's breadth check.
type ImpactAnalyzer interface {
	Analyze(dbc dbctx.Context, projectID uuid.UUID, entity domain.EntityRef, maxDepth int) (*ImpactReport, error)
}

type impactAnalyzer struct {
	log     *logger.Logger
	cfg     config.CascadeConfig
	edges   repos.DependencyEdgeRepo
	metrics *observability.Metrics
}

func NewImpactAnalyzer(baseLog *logger.Logger, cfg config.CascadeConfig, edges repos.DependencyEdgeRepo, metrics *observability.Metrics) ImpactAnalyzer {
	return &impactAnalyzer{
		log:     baseLog.With("service", "ImpactAnalyzer"),
		cfg:     cfg,
		edges:   edges,
		metrics: metrics,
	}
}

func (a *impactAnalyzer) Analyze(dbc dbctx.Context, projectID uuid.UUID, entity domain.EntityRef, maxDepth int) (*ImpactReport, error) {
	if projectID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing project id", pkgerrors.ErrInvalidArgument)
	}
	if err := entity.Validate(); err != nil {
		return nil, err
	}
	if maxDepth <= 0 {
		maxDepth = a.cfg.DefaultMaxDepth
	}

	report := &ImpactReport{Entity: entity}
	visited := map[string]bool{entity.String(): true}
	frontier := []domain.EntityRef{entity}
	capped := false

	for depth := 0; depth < maxDepth && len(frontier) > 0 && !capped; depth++ {
		var next []domain.EntityRef
		for _, node := range frontier {
			edges, err := a.edges.ListByTarget(dbc, projectID, node)
			if err != nil {
				return nil, err
			}
			for _, e := range edges {
				dep := e.Source()
				if visited[dep.String()] {
					continue
				}
				if len(visited)-1 >= a.cfg.MaxVisitedEntities {
					capped = true
					a.log.Warn("impact traversal hit visited cap",
						"project_id", projectID.String(),
						"entity", entity.String(),
						"cap", a.cfg.MaxVisitedEntities,
					)
					break
				}
				visited[dep.String()] = true
				entry := ImpactEntry{
					Entity:   dep,
					Upstream: node,
					Relation: e.Relation,
					Strength: e.Strength,
					Depth:    depth,
				}
				if depth == 0 {
					report.DirectImpacts = append(report.DirectImpacts, entry)
				} else {
					report.IndirectImpacts = append(report.IndirectImpacts, entry)
				}
				if e.Strength >= strongEdgeStrength {
					report.StrongEdges++
				}
				next = append(next, dep)
			}
			if capped {
				break
			}
		}
		frontier = next
	}

	report.TotalAffected = len(report.DirectImpacts) + len(report.IndirectImpacts)
	report.Recommendation = recommend(report.TotalAffected, report.StrongEdges)
	a.metrics.IncImpactAnalysis(report.Recommendation)
	return report, nil
}

// recommend grades a blast radius. Strong dependencies matter more than
// raw count: three or more strong edges lift an otherwise small radius to
// review_suggested.
func recommend(totalAffected, strongEdges int) string {
	rec := RecommendAuto
	switch {
	case totalAffected > 10:
		rec = RecommendHighImpact
	case totalAffected > 3:
		rec = RecommendReviewSuggested
	}
	if rec == RecommendAuto && strongEdges >= 3 {
		rec = RecommendReviewSuggested
	}
	return rec
}

// Entities flattens a report into the refs it covers, direct first.
func (r *ImpactReport) Entities() []domain.EntityRef {
	if r == nil {
		return nil
	}
	out := make([]domain.EntityRef, 0, r.TotalAffected)
	for _, e := range r.DirectImpacts {
		out = append(out, e.Entity)
	}
	for _, e := range r.IndirectImpacts {
		out = append(out, e.Entity)
	}
	return out
}

// VPStepCount counts distinct vp_step entities in the report.
func (r *ImpactReport) VPStepCount() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, e := range r.DirectImpacts {
		if e.Entity.Type == domain.EntityVPStep {
			n++
		}
	}
	for _, e := range r.IndirectImpacts {
		if e.Entity.Type == domain.EntityVPStep {
			n++
		}
	}
	return n
}

package cascade

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/venturecanvas/venturecanvas-backend/internal/config"
	"github.com/venturecanvas/venturecanvas-backend/internal/data/repos"
	"github.com/venturecanvas/venturecanvas-backend/internal/domain"
	"github.com/venturecanvas/venturecanvas-backend/internal/observability"
	"github.com/venturecanvas/venturecanvas-backend/internal/pkg/dbctx"
	pkgerrors "github.com/venturecanvas/venturecanvas-backend/internal/pkg/errors"
	"github.com/venturecanvas/venturecanvas-backend/internal/platform/logger"
)

// DecisionEngine gates direct field patches from upstream agents. Five
// independent checks; any one firing escalates to NEEDS_REVIEW, and the
// reason enumerates every check that fired, not just the first. Unreadable
// entity data also escalates: ambiguity never auto-applies.
type DecisionEngine interface {
	Decide(dbc dbctx.Context, projectID uuid.UUID, patch Patch, classification Classification) (*ApplyDecisionResult, error)
}

type decisionEngine struct {
	log      *logger.Logger
	cfg      config.CascadeConfig
	entities repos.EntityStore
	impact   ImpactAnalyzer
	metrics  *observability.Metrics
}

func NewDecisionEngine(baseLog *logger.Logger, cfg config.CascadeConfig, entities repos.EntityStore, impact ImpactAnalyzer, metrics *observability.Metrics) DecisionEngine {
	return &decisionEngine{
		log:      baseLog.With("service", "DecisionEngine"),
		cfg:      cfg,
		entities: entities,
		impact:   impact,
		metrics:  metrics,
	}
}

func (s *decisionEngine) Decide(dbc dbctx.Context, projectID uuid.UUID, patch Patch, classification Classification) (*ApplyDecisionResult, error) {
	if projectID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing project id", pkgerrors.ErrInvalidArgument)
	}
	if err := patch.Entity.Validate(); err != nil {
		return nil, err
	}

	var reasons []string

	structural := IsStructuralVPChange(patch)
	if structural {
		reasons = append(reasons, "VP structure would change")
	}

	severity := strings.ToLower(strings.TrimSpace(classification.Severity))
	if severity == domain.SeverityMajor {
		reasons = append(reasons, "severity is major")
	}

	confirmed := false
	status, err := s.entities.ConfirmationStatus(dbc, patch.Entity)
	switch {
	case errors.Is(err, pkgerrors.ErrNotFound):
		reasons = append(reasons, "target entity not found")
	case err != nil:
		reasons = append(reasons, "confirmation status unreadable")
		s.log.Warn("confirmation status read failed",
			"project_id", projectID.String(),
			"entity", patch.Entity.String(),
			"err", err.Error(),
		)
	case status == domain.ConfirmationConfirmedClient:
		confirmed = true
		reasons = append(reasons, "target is client-confirmed")
	}

	// NaN fails this comparison too, which is the conservative direction.
	if !(classification.Confidence >= s.cfg.AutoApplyMinConfidence) {
		reasons = append(reasons, fmt.Sprintf("confidence %.2f below %.2f", classification.Confidence, s.cfg.AutoApplyMinConfidence))
	}

	affectedSteps := 0
	var affected []domain.EntityRef
	report, err := s.impact.Analyze(dbc, projectID, patch.Entity, 0)
	if err != nil {
		reasons = append(reasons, "impact analysis unavailable")
		s.log.Warn("impact analysis failed during decision",
			"project_id", projectID.String(),
			"entity", patch.Entity.String(),
			"err", err.Error(),
		)
	} else {
		affectedSteps = report.VPStepCount()
		affected = report.Entities()
		if affectedSteps > s.cfg.MaxAffectedVPSteps {
			reasons = append(reasons, fmt.Sprintf("%d vp_steps affected (max %d)", affectedSteps, s.cfg.MaxAffectedVPSteps))
		}
	}

	res := &ApplyDecisionResult{
		Confidence:          classification.Confidence,
		AffectedVPStepCount: affectedSteps,
		IsStructuralChange:  structural,
		AffectedEntities:    affected,
		Score:               Score(classification.Confidence, severity, affectedSteps, structural, confirmed),
	}
	if len(reasons) > 0 {
		res.Decision = DecisionNeedsReview
		res.Reason = strings.Join(reasons, "; ")
	} else {
		res.Decision = DecisionAutoApply
		res.Reason = "low impact, high confidence"
	}
	s.metrics.IncApplyDecision(res.Decision)
	return res, nil
}

// Score is the advisory continuous signal alongside the boolean decision.
// The two may disagree at the margin; the decision is authoritative.
func Score(confidence float64, severity string, affectedVPSteps int, isStructural, isConfirmed bool) float64 {
	if isStructural || isConfirmed {
		return 0
	}
	s := confidence
	switch strings.ToLower(strings.TrimSpace(severity)) {
	case domain.SeverityModerate:
		s -= 0.1
	case domain.SeverityMajor:
		s -= 0.5
	}
	s -= math.Min(0.3, float64(affectedVPSteps)*0.1)
	if math.IsNaN(s) || s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

var structuralChangeTypes = map[string]bool{
	"add":    true,
	"remove": true,
	"insert": true,
	"delete": true,
}

// Fields whose mutation changes the shape of a value path rather than the
// content of one step.
var stepStructureKeys = map[string]bool{
	"steps":      true,
	"step_count": true,
	"step_ids":   true,
	"step_order": true,
	"vp_steps":   true,
}

var stepChangePhrases = []string{
	"add a step",
	"adds a step",
	"adding a step",
	"added a step",
	"new step",
	"additional step",
	"remove a step",
	"removes a step",
	"removing a step",
	"removed a step",
	"delete a step",
	"deletes a step",
	"deleting a step",
	"insert a step",
	"inserts a step",
	"inserting a step",
	"step added",
	"step removed",
	"step deleted",
	"step inserted",
}

// IsStructuralVPChange reports whether a patch would change value-path
// structure: an add/remove class change targeting a vp_step, a write to a
// step array or count field, or rationale text describing step addition or
// removal. Any of the three is enough.
func IsStructuralVPChange(p Patch) bool {
	changeType := strings.ToLower(strings.TrimSpace(p.ChangeType))
	if p.Entity.Type == domain.EntityVPStep && structuralChangeTypes[changeType] {
		return true
	}
	for k := range p.Changes {
		if stepStructureKeys[strings.ToLower(strings.TrimSpace(k))] {
			return true
		}
	}
	rationale := strings.ToLower(p.Rationale)
	for _, phrase := range stepChangePhrases {
		if strings.Contains(rationale, phrase) {
			return true
		}
	}
	return false
}

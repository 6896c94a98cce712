package cascade

import (
	"github.com/google/uuid"

	"github.com/venturecanvas/venturecanvas-backend/internal/domain"
)

// Auto-apply decisions. NEEDS_REVIEW is a normal outcome, never an error.
const (
	DecisionAutoApply   = "AUTO_APPLY"
	DecisionNeedsReview = "NEEDS_REVIEW"
)

// Impact recommendations, ordered by escalation.
const (
	RecommendAuto            = "auto"
	RecommendReviewSuggested = "review_suggested"
	RecommendHighImpact      = "high_impact_warning"
)

// Route statuses reported per proposal.
const (
	RouteStatusApplied     = "applied"
	RouteStatusApplyFailed = "apply_failed"
	RouteStatusSuggested   = "suggested"
	RouteStatusLogged      = "logged"
)

// AppliedBySystem is stamped on cascade records the router applied itself.
const AppliedBySystem = "system"

// ProposalSpec is one cascade proposal before routing: a confidence-scored
// suggested change to a target entity, triggered by a change to the source.
// Empty Changes means the proposal's effect is invalidation (mark the
// target stale) rather than a concrete field write.
type ProposalSpec struct {
	Confidence    float64             `json:"confidence"`
	Target        domain.EntityRef    `json:"target"`
	TargetSummary string              `json:"target_summary,omitempty"`
	Changes       map[string]any      `json:"changes,omitempty"`
	Rationale     string              `json:"rationale,omitempty"`
	Relation      domain.RelationType `json:"relation,omitempty"`
}

// Operation is a detected change to a source entity together with any
// cascade proposals the producer attached. With no explicit proposals the
// router synthesizes one per dependent edge, using edge strength as
// confidence.
type Operation struct {
	ChangeType    string           `json:"change_type"`
	Source        domain.EntityRef `json:"source"`
	SourceSummary string           `json:"source_summary,omitempty"`
	Proposals     []ProposalSpec   `json:"proposals,omitempty"`
}

// RouteResult reports how one proposal was routed and the persisted audit
// record it produced.
type RouteResult struct {
	Status string               `json:"status"`
	Tier   domain.Tier          `json:"tier"`
	Event  *domain.CascadeEvent `json:"event"`
}

// Patch is a direct field change proposed by an upstream agent against one
// entity. It is gated by the decision engine, not the cascade router.
type Patch struct {
	Entity     domain.EntityRef `json:"entity"`
	ChangeType string           `json:"change_type"`
	Changes    map[string]any   `json:"changes,omitempty"`
	Rationale  string           `json:"rationale,omitempty"`
}

// Classification is the upstream agent's own grading of a patch.
type Classification struct {
	Confidence float64 `json:"confidence"`
	Severity   string  `json:"severity"`
}

// ApplyDecisionResult is the decision engine's verdict on one patch. The
// decision is authoritative; Score is advisory and may disagree with it.
type ApplyDecisionResult struct {
	Decision            string             `json:"decision"`
	Reason              string             `json:"reason"`
	Confidence          float64            `json:"confidence"`
	AffectedVPStepCount int                `json:"affected_vp_step_count"`
	IsStructuralChange  bool               `json:"is_structural_change"`
	AffectedEntities    []domain.EntityRef `json:"affected_entities"`
	Score               float64            `json:"score"`
}

// PropagationStats reports one propagation traversal. Errors collects
// per-node failures the traversal routed around instead of aborting on.
type PropagationStats struct {
	Visited     int      `json:"visited"`
	MarkedStale int      `json:"entities_marked_stale"`
	Errors      []string `json:"errors,omitempty"`
}

// QueueStats reports one queue-drain pass.
type QueueStats struct {
	ChangesProcessed    int      `json:"changes_processed"`
	EntitiesMarkedStale int      `json:"entities_marked_stale"`
	Errors              []string `json:"errors,omitempty"`
}

// ImpactEntry is one affected entity discovered by impact analysis. Depth 0
// is a direct dependent of the analyzed entity.
type ImpactEntry struct {
	Entity   domain.EntityRef    `json:"entity"`
	Upstream domain.EntityRef    `json:"upstream"`
	Relation domain.RelationType `json:"relation"`
	Strength float64             `json:"strength"`
	Depth    int                 `json:"depth"`
}

// ImpactReport is the read-only preview of a propagation's blast radius.
type ImpactReport struct {
	Entity          domain.EntityRef `json:"entity"`
	DirectImpacts   []ImpactEntry    `json:"direct_impacts"`
	IndirectImpacts []ImpactEntry    `json:"indirect_impacts"`
	TotalAffected   int              `json:"total_affected"`
	StrongEdges     int              `json:"strong_edges"`
	Recommendation  string           `json:"recommendation"`
}

// QueueChangeInput is the payload for queueing one change event.
type QueueChangeInput struct {
	ProjectID        uuid.UUID          `json:"project_id"`
	ChangeType       string             `json:"change_type"`
	Entity           domain.EntityRef   `json:"entity"`
	EntityName       string             `json:"entity_name,omitempty"`
	Details          map[string]any     `json:"details,omitempty"`
	TargetEntityType *domain.EntityType `json:"target_entity_type,omitempty"`
	TargetEntityIDs  []uuid.UUID        `json:"target_entity_ids,omitempty"`
	CascadeTier      domain.Tier        `json:"cascade_tier,omitempty"`
	Priority         int                `json:"priority,omitempty"`
}

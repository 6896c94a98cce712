package cascade

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/venturecanvas/venturecanvas-backend/internal/data/repos"
	"github.com/venturecanvas/venturecanvas-backend/internal/domain"
	"github.com/venturecanvas/venturecanvas-backend/internal/observability"
	"github.com/venturecanvas/venturecanvas-backend/internal/pkg/dbctx"
	pkgerrors "github.com/venturecanvas/venturecanvas-backend/internal/pkg/errors"
	"github.com/venturecanvas/venturecanvas-backend/internal/platform/logger"
)

// Manual apply outcomes. Applying an already-applied cascade is a no-op
// success, not an error.
const (
	ApplyStatusApplied        = "applied"
	ApplyStatusAlreadyApplied = "already_applied"
)

// ApplyOutcome reports a manual cascade application.
type ApplyOutcome struct {
	Status string               `json:"status"`
	Event  *domain.CascadeEvent `json:"event,omitempty"`
}

// Router turns cascade proposals into persisted, tiered cascade records.
// Auto-tier proposals are applied on the spot; suggested ones surface as
// review items; logged ones are kept for audit only. Every routed
// proposal is persisted regardless of tier.
type Router interface {
	HandleCascade(dbc dbctx.Context, projectID uuid.UUID, op Operation) ([]*RouteResult, error)
	RouteProposal(dbc dbctx.Context, projectID uuid.UUID, source domain.EntityRef, sourceSummary string, p ProposalSpec) (*RouteResult, error)
	ApplyCascadeByID(dbc dbctx.Context, id uuid.UUID, appliedBy string) (*ApplyOutcome, error)
	Dismiss(dbc dbctx.Context, id uuid.UUID) (*domain.CascadeEvent, error)
	GetCascade(dbc dbctx.Context, id uuid.UUID) (*domain.CascadeEvent, error)
	ListCascades(dbc dbctx.Context, projectID uuid.UUID, filter repos.CascadeEventFilter) ([]*domain.CascadeEvent, error)
}

type router struct {
	db       *gorm.DB
	log      *logger.Logger
	edges    repos.DependencyEdgeRepo
	cascades repos.CascadeEventRepo
	entities repos.EntityStore
	notifier Notifier
	metrics  *observability.Metrics
}

func NewRouter(db *gorm.DB, baseLog *logger.Logger, edges repos.DependencyEdgeRepo, cascades repos.CascadeEventRepo, entities repos.EntityStore, notifier Notifier, metrics *observability.Metrics) Router {
	return &router{
		db:       db,
		log:      baseLog.With("service", "Router"),
		edges:    edges,
		cascades: cascades,
		entities: entities,
		notifier: notifier,
		metrics:  metrics,
	}
}

func (s *router) HandleCascade(dbc dbctx.Context, projectID uuid.UUID, op Operation) ([]*RouteResult, error) {
	if projectID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing project id", pkgerrors.ErrInvalidArgument)
	}
	if err := op.Source.Validate(); err != nil {
		return nil, err
	}

	proposals := op.Proposals
	if len(proposals) == 0 {
		synthesized, err := s.synthesizeProposals(dbc, projectID, op)
		if err != nil {
			return nil, err
		}
		proposals = synthesized
	}
	for _, p := range proposals {
		if err := p.Target.Validate(); err != nil {
			return nil, err
		}
	}

	results := make([]*RouteResult, 0, len(proposals))
	for _, p := range proposals {
		res, err := s.RouteProposal(dbc, projectID, op.Source, op.SourceSummary, p)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// synthesizeProposals derives one invalidation proposal per dependent edge
// when the producer attached none, with edge strength standing in for
// confidence.
func (s *router) synthesizeProposals(dbc dbctx.Context, projectID uuid.UUID, op Operation) ([]ProposalSpec, error) {
	edges, err := s.edges.ListByTarget(dbc, projectID, op.Source)
	if err != nil {
		return nil, err
	}
	out := make([]ProposalSpec, 0, len(edges))
	for _, e := range edges {
		out = append(out, ProposalSpec{
			Confidence: e.Strength,
			Target:     e.Source(),
			Rationale:  fmt.Sprintf("%s changed; %s depends on it via %s", op.Source.Type, e.SourceType, e.Relation),
			Relation:   e.Relation,
		})
	}
	return out, nil
}

func (s *router) RouteProposal(dbc dbctx.Context, projectID uuid.UUID, source domain.EntityRef, sourceSummary string, p ProposalSpec) (*RouteResult, error) {
	if projectID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing project id", pkgerrors.ErrInvalidArgument)
	}
	if err := source.Validate(); err != nil {
		return nil, err
	}
	if err := p.Target.Validate(); err != nil {
		return nil, err
	}

	tier := ClassifyTier(p.Confidence)
	s.metrics.IncCascadeRouted(string(tier))

	var changesRaw datatypes.JSON
	if len(p.Changes) > 0 {
		b, err := json.Marshal(p.Changes)
		if err != nil {
			return nil, fmt.Errorf("%w: changes not serializable: %v", pkgerrors.ErrInvalidArgument, err)
		}
		changesRaw = datatypes.JSON(b)
	}
	now := time.Now().UTC()
	row := &domain.CascadeEvent{
		ID:            uuid.New(),
		ProjectID:     projectID,
		SourceType:    source.Type,
		SourceID:      source.ID,
		SourceSummary: sourceSummary,
		TargetType:    p.Target.Type,
		TargetID:      p.Target.ID,
		TargetSummary: p.TargetSummary,
		CascadeTier:   tier,
		Confidence:    p.Confidence,
		Changes:       changesRaw,
		Rationale:     p.Rationale,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	switch tier {
	case domain.TierAuto:
		applyErr := s.withTx(dbc, func(txc dbctx.Context) error {
			if err := s.applyChanges(txc, projectID, p.Target, p.Changes, staleReason(source.Type, "auto cascade")); err != nil {
				return err
			}
			appliedAt := time.Now().UTC()
			row.Applied = true
			row.AppliedAt = &appliedAt
			row.AppliedBy = AppliedBySystem
			_, err := s.cascades.Create(txc, []*domain.CascadeEvent{row})
			return err
		})
		if applyErr == nil {
			s.metrics.IncCascadeApply("applied")
			s.notify(dbc, row, ActivityKindCascadeApplied, false,
				fmt.Sprintf("Cascade applied to %s (confidence %.2f)", targetLabel(row), row.Confidence))
			return &RouteResult{Status: RouteStatusApplied, Tier: tier, Event: row}, nil
		}

		// Target unreachable or the write failed: keep the audit record,
		// downgrade to a review item instead of losing the cascade.
		s.log.Warn("auto cascade apply failed, persisting for review",
			"project_id", projectID.String(),
			"target", p.Target.String(),
			"err", applyErr.Error(),
		)
		row.Applied = false
		row.AppliedAt = nil
		row.AppliedBy = ""
		if _, err := s.cascades.Create(dbc, []*domain.CascadeEvent{row}); err != nil {
			return nil, err
		}
		s.metrics.IncCascadeApply("failed")
		s.notify(dbc, row, ActivityKindCascadeSuggested, true,
			fmt.Sprintf("Auto cascade to %s could not be applied and needs review", targetLabel(row)))
		return &RouteResult{Status: RouteStatusApplyFailed, Tier: tier, Event: row}, nil

	case domain.TierSuggested:
		if _, err := s.cascades.Create(dbc, []*domain.CascadeEvent{row}); err != nil {
			return nil, err
		}
		s.notify(dbc, row, ActivityKindCascadeSuggested, true,
			fmt.Sprintf("Suggested cascade to %s (confidence %.2f)", targetLabel(row), row.Confidence))
		return &RouteResult{Status: RouteStatusSuggested, Tier: tier, Event: row}, nil

	default:
		if _, err := s.cascades.Create(dbc, []*domain.CascadeEvent{row}); err != nil {
			return nil, err
		}
		return &RouteResult{Status: RouteStatusLogged, Tier: tier, Event: row}, nil
	}
}

func (s *router) ApplyCascadeByID(dbc dbctx.Context, id uuid.UUID, appliedBy string) (*ApplyOutcome, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("%w: missing cascade id", pkgerrors.ErrInvalidArgument)
	}
	appliedBy = strings.TrimSpace(appliedBy)
	if appliedBy == "" {
		appliedBy = "user"
	}

	ev, err := s.cascades.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, fmt.Errorf("%w: cascade %s", pkgerrors.ErrNotFound, id.String())
	}
	if ev.Applied {
		s.metrics.IncCascadeApply("already_applied")
		return &ApplyOutcome{Status: ApplyStatusAlreadyApplied, Event: ev}, nil
	}
	if ev.Dismissed {
		return nil, fmt.Errorf("%w: cascade %s is dismissed", pkgerrors.ErrInvalidArgument, id.String())
	}

	won := false
	err = s.withTx(dbc, func(txc dbctx.Context) error {
		ok, err := s.cascades.MarkApplied(txc, id, appliedBy)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		won = true
		var changes map[string]any
		if len(ev.Changes) > 0 {
			if err := json.Unmarshal(ev.Changes, &changes); err != nil {
				return fmt.Errorf("%w: stored changes unreadable: %v", pkgerrors.ErrInvalidArgument, err)
			}
		}
		return s.applyChanges(txc, ev.ProjectID, ev.Target(), changes, staleReason(ev.SourceType, "cascade applied"))
	})
	if err != nil {
		return nil, err
	}
	if !won {
		// CAS lost: either another worker applied it, or it was dismissed
		// underneath us.
		fresh, ferr := s.cascades.GetByID(dbc, id)
		if ferr != nil {
			return nil, ferr
		}
		if fresh != nil && fresh.Applied {
			s.metrics.IncCascadeApply("already_applied")
			return &ApplyOutcome{Status: ApplyStatusAlreadyApplied, Event: fresh}, nil
		}
		return nil, fmt.Errorf("%w: cascade %s is dismissed", pkgerrors.ErrInvalidArgument, id.String())
	}

	appliedAt := time.Now().UTC()
	ev.Applied = true
	ev.AppliedAt = &appliedAt
	ev.AppliedBy = appliedBy
	s.metrics.IncCascadeApply("applied")
	s.notify(dbc, ev, ActivityKindCascadeApplied, false,
		fmt.Sprintf("Cascade applied to %s by %s", targetLabel(ev), appliedBy))
	return &ApplyOutcome{Status: ApplyStatusApplied, Event: ev}, nil
}

func (s *router) Dismiss(dbc dbctx.Context, id uuid.UUID) (*domain.CascadeEvent, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("%w: missing cascade id", pkgerrors.ErrInvalidArgument)
	}
	ev, err := s.cascades.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, fmt.Errorf("%w: cascade %s", pkgerrors.ErrNotFound, id.String())
	}
	if ev.Dismissed {
		return ev, nil
	}
	if ev.Applied {
		return nil, fmt.Errorf("%w: cascade %s is already applied", pkgerrors.ErrInvalidArgument, id.String())
	}
	ok, err := s.cascades.MarkDismissed(dbc, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		fresh, ferr := s.cascades.GetByID(dbc, id)
		if ferr != nil {
			return nil, ferr
		}
		if fresh != nil && fresh.Dismissed {
			return fresh, nil
		}
		return nil, fmt.Errorf("%w: cascade %s is already applied", pkgerrors.ErrInvalidArgument, id.String())
	}
	dismissedAt := time.Now().UTC()
	ev.Dismissed = true
	ev.DismissedAt = &dismissedAt
	s.metrics.IncCascadeApply("dismissed")
	s.notify(dbc, ev, ActivityKindCascadeDismissed, false,
		fmt.Sprintf("Cascade to %s dismissed", targetLabel(ev)))
	return ev, nil
}

func (s *router) GetCascade(dbc dbctx.Context, id uuid.UUID) (*domain.CascadeEvent, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("%w: missing cascade id", pkgerrors.ErrInvalidArgument)
	}
	ev, err := s.cascades.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, fmt.Errorf("%w: cascade %s", pkgerrors.ErrNotFound, id.String())
	}
	return ev, nil
}

func (s *router) ListCascades(dbc dbctx.Context, projectID uuid.UUID, filter repos.CascadeEventFilter) ([]*domain.CascadeEvent, error) {
	if projectID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing project id", pkgerrors.ErrInvalidArgument)
	}
	return s.cascades.ListByProject(dbc, projectID, filter)
}

// applyChanges writes a cascade's proposed changes to the target entity.
// Empty changes mean "invalidate": the target is marked stale instead of
// written. A value shaped {"append": x} appends x to the named jsonb array
// column idempotently; anything else is a plain column write.
func (s *router) applyChanges(dbc dbctx.Context, projectID uuid.UUID, target domain.EntityRef, changes map[string]any, reason string) error {
	if len(changes) == 0 {
		ok, err := s.entities.MarkStale(dbc, target, reason)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s", pkgerrors.ErrNotFound, target.String())
		}
		return nil
	}

	updates := map[string]interface{}{}
	appends := map[string]any{}
	for col, val := range changes {
		if m, ok := val.(map[string]any); ok && len(m) == 1 {
			if elem, found := m["append"]; found {
				appends[col] = elem
				continue
			}
		}
		updates[col] = val
	}

	if len(updates) > 0 {
		ok, err := s.entities.UpdateFields(dbc, target, updates)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s", pkgerrors.ErrNotFound, target.String())
		}
	} else if len(appends) > 0 {
		ok, err := s.entities.Exists(dbc, projectID, target)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s", pkgerrors.ErrNotFound, target.String())
		}
	}
	for col, elem := range appends {
		if _, err := s.entities.AppendToJSONArray(dbc, target, col, elem); err != nil {
			return err
		}
	}
	return nil
}

func (s *router) withTx(dbc dbctx.Context, fn func(txc dbctx.Context) error) error {
	if dbc.Tx != nil {
		return fn(dbc)
	}
	return s.db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		return fn(dbctx.Context{Ctx: dbc.Ctx, Tx: tx})
	})
}

func (s *router) notify(dbc dbctx.Context, ev *domain.CascadeEvent, kind string, requiresAction bool, summary string) {
	if s.notifier == nil {
		return
	}
	s.notifier.NotifyActivity(dbc.Ctx, ev.ProjectID, kind, ev.Target(), summary, requiresAction, map[string]any{
		"cascade_id":   ev.ID,
		"cascade_tier": ev.CascadeTier,
		"confidence":   ev.Confidence,
	})
}

func targetLabel(ev *domain.CascadeEvent) string {
	if s := strings.TrimSpace(ev.TargetSummary); s != "" {
		return s
	}
	return ev.Target().String()
}

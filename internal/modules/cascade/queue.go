package cascade

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/venturecanvas/venturecanvas-backend/internal/data/repos"
	"github.com/venturecanvas/venturecanvas-backend/internal/domain"
	"github.com/venturecanvas/venturecanvas-backend/internal/observability"
	"github.com/venturecanvas/venturecanvas-backend/internal/pkg/dbctx"
	pkgerrors "github.com/venturecanvas/venturecanvas-backend/internal/pkg/errors"
	"github.com/venturecanvas/venturecanvas-backend/internal/platform/logger"
)

// Queue accepts change reports from producers. Enqueue is deduplicating:
// an unprocessed event with the same (project, entity, change_type,
// details hash) absorbs the new report instead of stacking a duplicate.
type Queue interface {
	QueueChange(dbc dbctx.Context, in QueueChangeInput) (*domain.ChangeEvent, bool, error)
	GetChange(dbc dbctx.Context, id uuid.UUID) (*domain.ChangeEvent, error)
	ListPending(dbc dbctx.Context, projectID uuid.UUID, limit int) ([]*domain.ChangeEvent, error)
	CountPending(dbc dbctx.Context, projectID *uuid.UUID) (int64, error)
}

type queueService struct {
	log      *logger.Logger
	projects repos.ProjectRepo
	changes  repos.ChangeEventRepo
	metrics  *observability.Metrics
}

func NewQueue(baseLog *logger.Logger, projects repos.ProjectRepo, changes repos.ChangeEventRepo, metrics *observability.Metrics) Queue {
	return &queueService{
		log:      baseLog.With("service", "Queue"),
		projects: projects,
		changes:  changes,
		metrics:  metrics,
	}
}

func (s *queueService) QueueChange(dbc dbctx.Context, in QueueChangeInput) (*domain.ChangeEvent, bool, error) {
	if in.ProjectID == uuid.Nil {
		return nil, false, fmt.Errorf("%w: missing project id", pkgerrors.ErrInvalidArgument)
	}
	if err := in.Entity.Validate(); err != nil {
		return nil, false, err
	}
	changeType := strings.TrimSpace(in.ChangeType)
	if changeType == "" {
		return nil, false, fmt.Errorf("%w: missing change type", pkgerrors.ErrInvalidArgument)
	}
	tier := in.CascadeTier
	if tier == "" {
		tier = domain.TierAuto
	}
	if !domain.ValidTier(tier) {
		return nil, false, fmt.Errorf("%w: unknown cascade tier %q", pkgerrors.ErrInvalidArgument, tier)
	}
	if in.TargetEntityType != nil && !domain.ValidEntityType(*in.TargetEntityType) {
		return nil, false, fmt.Errorf("%w: unknown entity type %q", pkgerrors.ErrInvalidArgument, *in.TargetEntityType)
	}
	if ok, err := s.projects.Exists(dbc, in.ProjectID); err != nil {
		return nil, false, err
	} else if !ok {
		return nil, false, fmt.Errorf("%w: project %s", pkgerrors.ErrNotFound, in.ProjectID.String())
	}

	detailsRaw, hash, err := hashDetails(in.Details)
	if err != nil {
		return nil, false, fmt.Errorf("%w: details not serializable: %v", pkgerrors.ErrInvalidArgument, err)
	}
	var targetIDs datatypes.JSON
	if len(in.TargetEntityIDs) > 0 {
		b, _ := json.Marshal(in.TargetEntityIDs)
		targetIDs = datatypes.JSON(b)
	}

	row := &domain.ChangeEvent{
		ProjectID:        in.ProjectID,
		ChangeType:       changeType,
		EntityType:       in.Entity.Type,
		EntityID:         in.Entity.ID,
		EntityName:       strings.TrimSpace(in.EntityName),
		Details:          detailsRaw,
		DetailsHash:      hash,
		TargetEntityType: in.TargetEntityType,
		TargetEntityIDs:  targetIDs,
		CascadeTier:      tier,
		Priority:         in.Priority,
		CreatedAt:        time.Now().UTC(),
	}
	ev, created, err := s.changes.Enqueue(dbc, row)
	if err != nil {
		return nil, false, err
	}
	s.metrics.IncChangeEnqueued(changeType, !created)
	if !created {
		s.log.Info("change deduplicated onto unprocessed event",
			"project_id", in.ProjectID.String(),
			"entity", in.Entity.String(),
			"change_type", changeType,
			"event_id", ev.ID.String(),
		)
	}
	return ev, created, nil
}

func (s *queueService) GetChange(dbc dbctx.Context, id uuid.UUID) (*domain.ChangeEvent, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("%w: missing change id", pkgerrors.ErrInvalidArgument)
	}
	ev, err := s.changes.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, fmt.Errorf("%w: change event %s", pkgerrors.ErrNotFound, id.String())
	}
	return ev, nil
}

func (s *queueService) ListPending(dbc dbctx.Context, projectID uuid.UUID, limit int) ([]*domain.ChangeEvent, error) {
	if projectID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing project id", pkgerrors.ErrInvalidArgument)
	}
	return s.changes.ListPending(dbc, projectID, limit)
}

func (s *queueService) CountPending(dbc dbctx.Context, projectID *uuid.UUID) (int64, error) {
	return s.changes.CountPending(dbc, projectID)
}

// hashDetails canonicalizes the details payload and hashes it for the
// dedup key. encoding/json sorts map keys, so equal payloads always hash
// equal regardless of insertion order.
func hashDetails(details map[string]any) (datatypes.JSON, string, error) {
	raw, err := json.Marshal(details)
	if err != nil {
		return nil, "", err
	}
	sum := sha256.Sum256(raw)
	var stored datatypes.JSON
	if len(details) > 0 {
		stored = datatypes.JSON(raw)
	}
	return stored, hex.EncodeToString(sum[:]), nil
}

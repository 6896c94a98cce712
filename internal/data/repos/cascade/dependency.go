package cascade

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/venturecanvas/venturecanvas-backend/internal/domain"
	"github.com/venturecanvas/venturecanvas-backend/internal/pkg/dbctx"
	"github.com/venturecanvas/venturecanvas-backend/internal/platform/logger"
)

type DependencyEdgeRepo interface {
	Upsert(dbc dbctx.Context, rows []*domain.DependencyEdge) ([]*domain.DependencyEdge, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*domain.DependencyEdge, error)
	ListByTarget(dbc dbctx.Context, projectID uuid.UUID, target domain.EntityRef) ([]*domain.DependencyEdge, error)
	ListBySource(dbc dbctx.Context, projectID uuid.UUID, source domain.EntityRef) ([]*domain.DependencyEdge, error)
	ListByProject(dbc dbctx.Context, projectID uuid.UUID) ([]*domain.DependencyEdge, error)
	DeleteBySource(dbc dbctx.Context, projectID uuid.UUID, source domain.EntityRef) (int64, error)
	DeleteBetween(dbc dbctx.Context, projectID uuid.UUID, source, target domain.EntityRef, relation *domain.RelationType) (int64, error)
}

type dependencyEdgeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDependencyEdgeRepo(db *gorm.DB, baseLog *logger.Logger) DependencyEdgeRepo {
	return &dependencyEdgeRepo{
		db:  db,
		log: baseLog.With("repo", "DependencyEdgeRepo"),
	}
}

// Upsert inserts edges, updating strength on the (project, source, target,
// relation) key when the edge already exists. Self-loops are dropped with a
// warning rather than rejected so batch registration never fails midway.
func (r *dependencyEdgeRepo) Upsert(dbc dbctx.Context, rows []*domain.DependencyEdge) ([]*domain.DependencyEdge, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*domain.DependencyEdge{}, nil
	}
	now := time.Now().UTC()
	keep := make([]*domain.DependencyEdge, 0, len(rows))
	for _, row := range rows {
		if row == nil || row.ProjectID == uuid.Nil || row.SourceID == uuid.Nil || row.TargetID == uuid.Nil {
			continue
		}
		if row.SourceType == row.TargetType && row.SourceID == row.TargetID {
			r.log.Warn("Skipping self-referencing dependency edge",
				"project_id", row.ProjectID,
				"entity", row.Source().String())
			continue
		}
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		row.UpdatedAt = now
		keep = append(keep, row)
	}
	if len(keep) == 0 {
		return []*domain.DependencyEdge{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "project_id"},
				{Name: "source_type"},
				{Name: "source_id"},
				{Name: "target_type"},
				{Name: "target_id"},
				{Name: "relation"},
			},
			DoUpdates: clause.AssignmentColumns([]string{
				"strength",
				"updated_at",
			}),
		}).
		Create(&keep).Error; err != nil {
		return nil, err
	}
	return keep, nil
}

func (r *dependencyEdgeRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*domain.DependencyEdge, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*domain.DependencyEdge
	if len(ids) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("id IN ?", ids).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListByTarget returns edges whose target is the given entity. The sources
// of these edges are the entity's dependents.
func (r *dependencyEdgeRepo) ListByTarget(dbc dbctx.Context, projectID uuid.UUID, target domain.EntityRef) ([]*domain.DependencyEdge, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*domain.DependencyEdge
	if projectID == uuid.Nil || target.ID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("project_id = ? AND target_type = ? AND target_id = ?", projectID, target.Type, target.ID).
		Order("strength DESC, source_type ASC, source_id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListBySource returns edges whose source is the given entity. The targets
// of these edges are the entity's dependencies.
func (r *dependencyEdgeRepo) ListBySource(dbc dbctx.Context, projectID uuid.UUID, source domain.EntityRef) ([]*domain.DependencyEdge, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*domain.DependencyEdge
	if projectID == uuid.Nil || source.ID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("project_id = ? AND source_type = ? AND source_id = ?", projectID, source.Type, source.ID).
		Order("strength DESC, target_type ASC, target_id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *dependencyEdgeRepo) ListByProject(dbc dbctx.Context, projectID uuid.UUID) ([]*domain.DependencyEdge, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*domain.DependencyEdge
	if projectID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("project_id = ?", projectID).
		Order("source_type ASC, source_id ASC, relation ASC, strength DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *dependencyEdgeRepo) DeleteBySource(dbc dbctx.Context, projectID uuid.UUID, source domain.EntityRef) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if projectID == uuid.Nil || source.ID == uuid.Nil {
		return 0, nil
	}
	res := transaction.WithContext(dbc.Ctx).
		Where("project_id = ? AND source_type = ? AND source_id = ?", projectID, source.Type, source.ID).
		Delete(&domain.DependencyEdge{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *dependencyEdgeRepo) DeleteBetween(dbc dbctx.Context, projectID uuid.UUID, source, target domain.EntityRef, relation *domain.RelationType) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if projectID == uuid.Nil || source.ID == uuid.Nil || target.ID == uuid.Nil {
		return 0, nil
	}
	q := transaction.WithContext(dbc.Ctx).
		Where("project_id = ? AND source_type = ? AND source_id = ? AND target_type = ? AND target_id = ?",
			projectID, source.Type, source.ID, target.Type, target.ID)
	if relation != nil {
		q = q.Where("relation = ?", *relation)
	}
	res := q.Delete(&domain.DependencyEdge{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

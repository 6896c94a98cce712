package cascade

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/venturecanvas/venturecanvas-backend/internal/domain"
	"github.com/venturecanvas/venturecanvas-backend/internal/pkg/dbctx"
	"github.com/venturecanvas/venturecanvas-backend/internal/platform/logger"
)

type ActivityRepo interface {
	Create(dbc dbctx.Context, rows []*domain.ActivityItem) ([]*domain.ActivityItem, error)
	ListByProject(dbc dbctx.Context, projectID uuid.UUID, requiresAction *bool, limit int) ([]*domain.ActivityItem, error)
}

type activityRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewActivityRepo(db *gorm.DB, baseLog *logger.Logger) ActivityRepo {
	return &activityRepo{
		db:  db,
		log: baseLog.With("repo", "ActivityRepo"),
	}
}

func (r *activityRepo) Create(dbc dbctx.Context, rows []*domain.ActivityItem) ([]*domain.ActivityItem, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*domain.ActivityItem{}, nil
	}
	for _, row := range rows {
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *activityRepo) ListByProject(dbc dbctx.Context, projectID uuid.UUID, requiresAction *bool, limit int) ([]*domain.ActivityItem, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*domain.ActivityItem
	if projectID == uuid.Nil {
		return out, nil
	}
	q := transaction.WithContext(dbc.Ctx).
		Where("project_id = ?", projectID)
	if requiresAction != nil {
		q = q.Where("requires_action = ?", *requiresAction)
	}
	q = q.Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

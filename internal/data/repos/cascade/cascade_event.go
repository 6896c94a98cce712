package cascade

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/venturecanvas/venturecanvas-backend/internal/domain"
	"github.com/venturecanvas/venturecanvas-backend/internal/pkg/dbctx"
	"github.com/venturecanvas/venturecanvas-backend/internal/platform/logger"
)

// CascadeEventFilter narrows ListByProject. Nil fields match everything.
type CascadeEventFilter struct {
	Tier      *domain.Tier
	Applied   *bool
	Dismissed *bool
	Limit     int
}

type CascadeEventRepo interface {
	Create(dbc dbctx.Context, rows []*domain.CascadeEvent) ([]*domain.CascadeEvent, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.CascadeEvent, error)
	ListByProject(dbc dbctx.Context, projectID uuid.UUID, filter CascadeEventFilter) ([]*domain.CascadeEvent, error)
	MarkApplied(dbc dbctx.Context, id uuid.UUID, appliedBy string) (bool, error)
	MarkDismissed(dbc dbctx.Context, id uuid.UUID) (bool, error)
}

type cascadeEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCascadeEventRepo(db *gorm.DB, baseLog *logger.Logger) CascadeEventRepo {
	return &cascadeEventRepo{
		db:  db,
		log: baseLog.With("repo", "CascadeEventRepo"),
	}
}

func (r *cascadeEventRepo) Create(dbc dbctx.Context, rows []*domain.CascadeEvent) ([]*domain.CascadeEvent, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*domain.CascadeEvent{}, nil
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

func (r *cascadeEventRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.CascadeEvent, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	var out domain.CascadeEvent
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *cascadeEventRepo) ListByProject(dbc dbctx.Context, projectID uuid.UUID, filter CascadeEventFilter) ([]*domain.CascadeEvent, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*domain.CascadeEvent
	if projectID == uuid.Nil {
		return out, nil
	}
	q := transaction.WithContext(dbc.Ctx).
		Where("project_id = ?", projectID)
	if filter.Tier != nil {
		q = q.Where("cascade_tier = ?", *filter.Tier)
	}
	if filter.Applied != nil {
		q = q.Where("applied = ?", *filter.Applied)
	}
	if filter.Dismissed != nil {
		q = q.Where("dismissed = ?", *filter.Dismissed)
	}
	q = q.Order("created_at DESC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// MarkApplied flips applied false -> true. A false return with nil error
// means the row was already applied or has been dismissed.
func (r *cascadeEventRepo) MarkApplied(dbc dbctx.Context, id uuid.UUID, appliedBy string) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return false, nil
	}
	now := time.Now()
	res := transaction.WithContext(dbc.Ctx).
		Model(&domain.CascadeEvent{}).
		Where("id = ? AND applied = false AND dismissed = false", id).
		Updates(map[string]interface{}{
			"applied":    true,
			"applied_at": now,
			"applied_by": appliedBy,
			"updated_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *cascadeEventRepo) MarkDismissed(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return false, nil
	}
	now := time.Now()
	res := transaction.WithContext(dbc.Ctx).
		Model(&domain.CascadeEvent{}).
		Where("id = ? AND applied = false AND dismissed = false", id).
		Updates(map[string]interface{}{
			"dismissed":    true,
			"dismissed_at": now,
			"updated_at":   now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

package cascade

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/venturecanvas/venturecanvas-backend/internal/domain"
	"github.com/venturecanvas/venturecanvas-backend/internal/pkg/dbctx"
	"github.com/venturecanvas/venturecanvas-backend/internal/platform/logger"
)

type ChangeEventRepo interface {
	Enqueue(dbc dbctx.Context, row *domain.ChangeEvent) (*domain.ChangeEvent, bool, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.ChangeEvent, error)
	ListPending(dbc dbctx.Context, projectID uuid.UUID, limit int) ([]*domain.ChangeEvent, error)
	ClaimPending(dbc dbctx.Context, projectID *uuid.UUID, autoOnly bool, limit int, reclaimAfter time.Duration) ([]*domain.ChangeEvent, error)
	MarkProcessed(dbc dbctx.Context, id uuid.UUID) (bool, error)
	CountPending(dbc dbctx.Context, projectID *uuid.UUID) (int64, error)
}

type changeEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChangeEventRepo(db *gorm.DB, baseLog *logger.Logger) ChangeEventRepo {
	return &changeEventRepo{
		db:  db,
		log: baseLog.With("repo", "ChangeEventRepo"),
	}
}

// Enqueue inserts a change event unless an unprocessed duplicate already
// exists for the same (project, entity, change_type, details_hash). The
// returned bool is true when a new row was created. A concurrent duplicate
// insert loses the race on the partial unique index and resolves to the
// winner's row.
func (r *changeEventRepo) Enqueue(dbc dbctx.Context, row *domain.ChangeEvent) (*domain.ChangeEvent, bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if row == nil || row.ProjectID == uuid.Nil || row.EntityID == uuid.Nil {
		return nil, false, nil
	}
	existing, err := r.findUnprocessedDuplicate(dbc, row)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	createErr := transaction.WithContext(dbc.Ctx).Create(row).Error
	if createErr == nil {
		return row, true, nil
	}
	var pgErr *pgconn.PgError
	if errors.As(createErr, &pgErr) && pgErr.Code == "23505" {
		winner, dupErr := r.findUnprocessedDuplicate(dbc, row)
		if dupErr != nil {
			return nil, false, dupErr
		}
		if winner != nil {
			return winner, false, nil
		}
	}
	return nil, false, createErr
}

func (r *changeEventRepo) findUnprocessedDuplicate(dbc dbctx.Context, row *domain.ChangeEvent) (*domain.ChangeEvent, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out domain.ChangeEvent
	err := transaction.WithContext(dbc.Ctx).
		Where("project_id = ? AND entity_type = ? AND entity_id = ? AND change_type = ? AND details_hash = ? AND processed = false",
			row.ProjectID, row.EntityType, row.EntityID, row.ChangeType, row.DetailsHash).
		First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *changeEventRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.ChangeEvent, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	var out domain.ChangeEvent
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *changeEventRepo) ListPending(dbc dbctx.Context, projectID uuid.UUID, limit int) ([]*domain.ChangeEvent, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*domain.ChangeEvent
	if projectID == uuid.Nil {
		return out, nil
	}
	q := transaction.WithContext(dbc.Ctx).
		Where("project_id = ? AND processed = false", projectID).
		Order("priority DESC, created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ClaimPending stamps claimed_at on up to limit unprocessed events and
// returns them. Rows claimed by another worker are skipped; claims older
// than reclaimAfter are presumed abandoned and taken over. The claim is a
// work-sharing hint only. MarkProcessed is the effect-once guard.
func (r *changeEventRepo) ClaimPending(dbc dbctx.Context, projectID *uuid.UUID, autoOnly bool, limit int, reclaimAfter time.Duration) ([]*domain.ChangeEvent, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		return []*domain.ChangeEvent{}, nil
	}
	now := time.Now()
	reclaimCutoff := now.Add(-reclaimAfter)
	var claimed []*domain.ChangeEvent
	err := transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		q := txx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("processed = false AND (claimed_at IS NULL OR claimed_at < ?)", reclaimCutoff)
		if projectID != nil && *projectID != uuid.Nil {
			q = q.Where("project_id = ?", *projectID)
		}
		if autoOnly {
			q = q.Where("cascade_tier = ?", domain.TierAuto)
		}
		qErr := q.Order("priority DESC, created_at ASC").
			Limit(limit).
			Find(&claimed).Error
		if qErr != nil {
			return qErr
		}
		if len(claimed) == 0 {
			return nil
		}
		ids := make([]uuid.UUID, 0, len(claimed))
		for _, row := range claimed {
			ids = append(ids, row.ID)
		}
		uErr := txx.Model(&domain.ChangeEvent{}).
			Where("id IN ?", ids).
			Update("claimed_at", now).Error
		if uErr != nil {
			return uErr
		}
		for _, row := range claimed {
			claimTime := now
			row.ClaimedAt = &claimTime
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// MarkProcessed flips processed false -> true. A false return with nil
// error means someone else already processed the event.
func (r *changeEventRepo) MarkProcessed(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return false, nil
	}
	now := time.Now()
	res := transaction.WithContext(dbc.Ctx).
		Model(&domain.ChangeEvent{}).
		Where("id = ? AND processed = false", id).
		Updates(map[string]interface{}{
			"processed":    true,
			"processed_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *changeEventRepo) CountPending(dbc dbctx.Context, projectID *uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(dbc.Ctx).
		Model(&domain.ChangeEvent{}).
		Where("processed = false")
	if projectID != nil && *projectID != uuid.Nil {
		q = q.Where("project_id = ?", *projectID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

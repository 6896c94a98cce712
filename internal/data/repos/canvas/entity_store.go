package canvas

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/venturecanvas/venturecanvas-backend/internal/domain"
	"github.com/venturecanvas/venturecanvas-backend/internal/pkg/dbctx"
	pkgerrors "github.com/venturecanvas/venturecanvas-backend/internal/pkg/errors"
	"github.com/venturecanvas/venturecanvas-backend/internal/platform/logger"
)

// entityTable maps one canvas entity type onto its table. The registry is
// closed: cascade machinery only ever touches tables listed here.
type entityTable struct {
	table       string
	labelColumn string
}

var entityTables = map[domain.EntityType]entityTable{
	domain.EntityPersona:          {table: "persona", labelColumn: "name"},
	domain.EntityFeature:          {table: "feature", labelColumn: "title"},
	domain.EntityVPStep:           {table: "vp_step", labelColumn: "title"},
	domain.EntityStrategicContext: {table: "strategic_context", labelColumn: "title"},
	domain.EntityStakeholder:      {table: "stakeholder", labelColumn: "name"},
	domain.EntityDataEntity:       {table: "data_entity", labelColumn: "name"},
	domain.EntityBusinessDriver:   {table: "business_driver", labelColumn: "name"},
	domain.EntityUnlock:           {table: "unlock", labelColumn: "title"},
}

var orderedEntityTypes = []domain.EntityType{
	domain.EntityPersona,
	domain.EntityFeature,
	domain.EntityVPStep,
	domain.EntityStrategicContext,
	domain.EntityStakeholder,
	domain.EntityDataEntity,
	domain.EntityBusinessDriver,
	domain.EntityUnlock,
}

var columnNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// StaleEntity is one stale row projected out of its entity table.
type StaleEntity struct {
	Type       domain.EntityType `json:"entity_type"`
	ID         uuid.UUID         `json:"id"`
	Label      string            `json:"label"`
	Reason     string            `json:"stale_reason"`
	StaleSince *time.Time        `json:"stale_since,omitempty"`
}

// EntityStore gives the cascade machinery uniform access to every canvas
// entity table without one repo per type.
type EntityStore interface {
	Supported(entityType domain.EntityType) bool
	Exists(dbc dbctx.Context, projectID uuid.UUID, ref domain.EntityRef) (bool, error)
	Label(dbc dbctx.Context, ref domain.EntityRef) (string, error)
	ConfirmationStatus(dbc dbctx.Context, ref domain.EntityRef) (string, error)
	UpdateFields(dbc dbctx.Context, ref domain.EntityRef, updates map[string]interface{}) (bool, error)
	AppendToJSONArray(dbc dbctx.Context, ref domain.EntityRef, column string, element interface{}) (bool, error)
	MarkStale(dbc dbctx.Context, ref domain.EntityRef, reason string) (bool, error)
	ClearStale(dbc dbctx.Context, projectID uuid.UUID, only []domain.EntityRef) (int64, error)
	ListStaleByProject(dbc dbctx.Context, projectID uuid.UUID) ([]*StaleEntity, error)
}

type entityStore struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEntityStore(db *gorm.DB, baseLog *logger.Logger) EntityStore {
	return &entityStore{
		db:  db,
		log: baseLog.With("repo", "EntityStore"),
	}
}

func (r *entityStore) Supported(entityType domain.EntityType) bool {
	_, ok := entityTables[entityType]
	return ok
}

func (r *entityStore) tableFor(ref domain.EntityRef) (entityTable, error) {
	tab, ok := entityTables[ref.Type]
	if !ok {
		return entityTable{}, fmt.Errorf("%w: unknown entity type %q", pkgerrors.ErrInvalidArgument, ref.Type)
	}
	return tab, nil
}

func (r *entityStore) Exists(dbc dbctx.Context, projectID uuid.UUID, ref domain.EntityRef) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	tab, err := r.tableFor(ref)
	if err != nil {
		return false, err
	}
	if ref.ID == uuid.Nil {
		return false, nil
	}
	q := transaction.WithContext(dbc.Ctx).
		Table(tab.table).
		Where("id = ? AND deleted_at IS NULL", ref.ID)
	if projectID != uuid.Nil {
		q = q.Where("project_id = ?", projectID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *entityStore) Label(dbc dbctx.Context, ref domain.EntityRef) (string, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	tab, err := r.tableFor(ref)
	if err != nil {
		return "", err
	}
	var row struct{ Label string }
	if err := transaction.WithContext(dbc.Ctx).
		Table(tab.table).
		Select(fmt.Sprintf("%q AS label", tab.labelColumn)).
		Where("id = ? AND deleted_at IS NULL", ref.ID).
		Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("%w: %s", pkgerrors.ErrNotFound, ref.String())
		}
		return "", err
	}
	return row.Label, nil
}

func (r *entityStore) ConfirmationStatus(dbc dbctx.Context, ref domain.EntityRef) (string, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	tab, err := r.tableFor(ref)
	if err != nil {
		return "", err
	}
	var row struct{ ConfirmationStatus string }
	if err := transaction.WithContext(dbc.Ctx).
		Table(tab.table).
		Select("confirmation_status").
		Where("id = ? AND deleted_at IS NULL", ref.ID).
		Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("%w: %s", pkgerrors.ErrNotFound, ref.String())
		}
		return "", err
	}
	return row.ConfirmationStatus, nil
}

// UpdateFields sets plain columns on the entity row. Column names come from
// cascade payloads, so they are shape-checked before reaching SQL.
func (r *entityStore) UpdateFields(dbc dbctx.Context, ref domain.EntityRef, updates map[string]interface{}) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	tab, err := r.tableFor(ref)
	if err != nil {
		return false, err
	}
	if len(updates) == 0 {
		return false, nil
	}
	clean := make(map[string]interface{}, len(updates)+1)
	for col, val := range updates {
		if !columnNamePattern.MatchString(col) {
			return false, fmt.Errorf("%w: bad column name %q", pkgerrors.ErrInvalidArgument, col)
		}
		clean[col] = val
	}
	if _, ok := clean["updated_at"]; !ok {
		clean["updated_at"] = time.Now()
	}
	res := transaction.WithContext(dbc.Ctx).
		Table(tab.table).
		Where("id = ? AND deleted_at IS NULL", ref.ID).
		Updates(clean)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// AppendToJSONArray appends a single scalar element to a jsonb array
// column, initialising the column to [] when null. The append is skipped
// when the element is already present, so re-applying is harmless.
func (r *entityStore) AppendToJSONArray(dbc dbctx.Context, ref domain.EntityRef, column string, element interface{}) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	tab, err := r.tableFor(ref)
	if err != nil {
		return false, err
	}
	if !columnNamePattern.MatchString(column) {
		return false, fmt.Errorf("%w: bad column name %q", pkgerrors.ErrInvalidArgument, column)
	}
	elem, err := json.Marshal(element)
	if err != nil {
		return false, fmt.Errorf("%w: element not serializable: %v", pkgerrors.ErrInvalidArgument, err)
	}
	probe, err := json.Marshal([]interface{}{element})
	if err != nil {
		return false, fmt.Errorf("%w: element not serializable: %v", pkgerrors.ErrInvalidArgument, err)
	}
	stmt := fmt.Sprintf(
		`UPDATE %q SET %q = COALESCE(%q, '[]'::jsonb) || ?::jsonb, updated_at = ? WHERE id = ? AND deleted_at IS NULL AND NOT (COALESCE(%q, '[]'::jsonb) @> ?::jsonb)`,
		tab.table, column, column, column)
	res := transaction.WithContext(dbc.Ctx).
		Exec(stmt, string(elem), time.Now(), ref.ID, string(probe))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// MarkStale flags the entity and records why. stale_since keeps the first
// time the entity went stale across repeated markings.
func (r *entityStore) MarkStale(dbc dbctx.Context, ref domain.EntityRef, reason string) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	tab, err := r.tableFor(ref)
	if err != nil {
		return false, err
	}
	if ref.ID == uuid.Nil {
		return false, nil
	}
	now := time.Now()
	res := transaction.WithContext(dbc.Ctx).
		Table(tab.table).
		Where("id = ? AND deleted_at IS NULL", ref.ID).
		Updates(map[string]interface{}{
			"stale":        true,
			"stale_reason": reason,
			"stale_since":  gorm.Expr("COALESCE(stale_since, ?)", now),
			"updated_at":   now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ClearStale resets staleness for the given refs, or for every entity in
// the project when only is empty. Returns how many rows were cleared.
func (r *entityStore) ClearStale(dbc dbctx.Context, projectID uuid.UUID, only []domain.EntityRef) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if projectID == uuid.Nil {
		return 0, nil
	}
	updates := map[string]interface{}{
		"stale":        false,
		"stale_reason": "",
		"stale_since":  nil,
		"updated_at":   time.Now(),
	}
	var total int64
	if len(only) == 0 {
		for _, entityType := range orderedEntityTypes {
			tab := entityTables[entityType]
			res := transaction.WithContext(dbc.Ctx).
				Table(tab.table).
				Where("project_id = ? AND stale = true AND deleted_at IS NULL", projectID).
				Updates(updates)
			if res.Error != nil {
				return total, res.Error
			}
			total += res.RowsAffected
		}
		return total, nil
	}
	idsByType := map[domain.EntityType][]uuid.UUID{}
	for _, ref := range only {
		if _, ok := entityTables[ref.Type]; !ok {
			return total, fmt.Errorf("%w: unknown entity type %q", pkgerrors.ErrInvalidArgument, ref.Type)
		}
		idsByType[ref.Type] = append(idsByType[ref.Type], ref.ID)
	}
	for _, entityType := range orderedEntityTypes {
		ids := idsByType[entityType]
		if len(ids) == 0 {
			continue
		}
		tab := entityTables[entityType]
		res := transaction.WithContext(dbc.Ctx).
			Table(tab.table).
			Where("project_id = ? AND id IN ? AND stale = true AND deleted_at IS NULL", projectID, ids).
			Updates(updates)
		if res.Error != nil {
			return total, res.Error
		}
		total += res.RowsAffected
	}
	return total, nil
}

// ListStaleByProject collects stale rows across every entity table. Outside
// a transaction the per-type queries fan out concurrently.
func (r *entityStore) ListStaleByProject(dbc dbctx.Context, projectID uuid.UUID) ([]*StaleEntity, error) {
	if projectID == uuid.Nil {
		return []*StaleEntity{}, nil
	}
	results := make([][]*StaleEntity, len(orderedEntityTypes))
	if dbc.Tx != nil {
		for i, entityType := range orderedEntityTypes {
			rows, err := r.listStaleForType(dbc, entityType, projectID)
			if err != nil {
				return nil, err
			}
			results[i] = rows
		}
	} else {
		g, gctx := errgroup.WithContext(dbc.Ctx)
		g.SetLimit(4)
		for i, entityType := range orderedEntityTypes {
			i, entityType := i, entityType
			g.Go(func() error {
				rows, err := r.listStaleForType(dbctx.Context{Ctx: gctx}, entityType, projectID)
				if err != nil {
					return err
				}
				results[i] = rows
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}
	out := make([]*StaleEntity, 0)
	for _, rows := range results {
		out = append(out, rows...)
	}
	return out, nil
}

func (r *entityStore) listStaleForType(dbc dbctx.Context, entityType domain.EntityType, projectID uuid.UUID) ([]*StaleEntity, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	tab := entityTables[entityType]
	var rows []struct {
		ID         uuid.UUID
		Label      string
		Reason     string
		StaleSince *time.Time
	}
	if err := transaction.WithContext(dbc.Ctx).
		Table(tab.table).
		Select(fmt.Sprintf(`id, %q AS label, stale_reason AS reason, stale_since`, tab.labelColumn)).
		Where("project_id = ? AND stale = true AND deleted_at IS NULL", projectID).
		Order("stale_since ASC NULLS LAST, id ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*StaleEntity, 0, len(rows))
	for _, row := range rows {
		out = append(out, &StaleEntity{
			Type:       entityType,
			ID:         row.ID,
			Label:      row.Label,
			Reason:     row.Reason,
			StaleSince: row.StaleSince,
		})
	}
	return out, nil
}

package cascade

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/venturecanvas/venturecanvas-backend/internal/data/repos"
	"github.com/venturecanvas/venturecanvas-backend/internal/domain"
	"github.com/venturecanvas/venturecanvas-backend/internal/pkg/dbctx"
	pkgerrors "github.com/venturecanvas/venturecanvas-backend/internal/pkg/errors"
	"github.com/venturecanvas/venturecanvas-backend/internal/platform/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func testDBC() dbctx.Context {
	return dbctx.Context{Ctx: context.Background()}
}

// testTxDBC carries a placeholder transaction handle so transactional code
// paths run the callback directly instead of opening a real transaction.
// The fakes never touch the handle.
func testTxDBC() dbctx.Context {
	return dbctx.Context{Ctx: context.Background(), Tx: &gorm.DB{}}
}

// ---- project repo ----

type fakeProjectRepo struct {
	ids map[uuid.UUID]bool
}

func newFakeProjectRepo(ids ...uuid.UUID) *fakeProjectRepo {
	f := &fakeProjectRepo{ids: map[uuid.UUID]bool{}}
	for _, id := range ids {
		f.ids[id] = true
	}
	return f
}

func (f *fakeProjectRepo) Create(dbc dbctx.Context, rows []*domain.Project) ([]*domain.Project, error) {
	for _, r := range rows {
		f.ids[r.ID] = true
	}
	return rows, nil
}

func (f *fakeProjectRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Project, error) {
	if !f.ids[id] {
		return nil, nil
	}
	return &domain.Project{ID: id}, nil
}

func (f *fakeProjectRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*domain.Project, error) {
	out := make([]*domain.Project, 0, len(ids))
	for _, id := range ids {
		if f.ids[id] {
			out = append(out, &domain.Project{ID: id})
		}
	}
	return out, nil
}

func (f *fakeProjectRepo) Exists(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	return f.ids[id], nil
}

// ---- dependency edge repo ----

type fakeEdgeRepo struct {
	edges       []*domain.DependencyEdge
	failTargets map[string]error
	err         error
	listCalls   int
}

func newFakeEdgeRepo() *fakeEdgeRepo {
	return &fakeEdgeRepo{failTargets: map[string]error{}}
}

func (f *fakeEdgeRepo) add(projectID uuid.UUID, source, target domain.EntityRef, relation domain.RelationType, strength float64) *domain.DependencyEdge {
	now := time.Now().UTC()
	e := &domain.DependencyEdge{
		ID:         uuid.New(),
		ProjectID:  projectID,
		SourceType: source.Type,
		SourceID:   source.ID,
		TargetType: target.Type,
		TargetID:   target.ID,
		Relation:   relation,
		Strength:   strength,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	f.edges = append(f.edges, e)
	return e
}

func (f *fakeEdgeRepo) Upsert(dbc dbctx.Context, rows []*domain.DependencyEdge) ([]*domain.DependencyEdge, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]*domain.DependencyEdge, 0, len(rows))
	for _, row := range rows {
		var found *domain.DependencyEdge
		for _, e := range f.edges {
			if e.ProjectID == row.ProjectID &&
				e.SourceType == row.SourceType && e.SourceID == row.SourceID &&
				e.TargetType == row.TargetType && e.TargetID == row.TargetID &&
				e.Relation == row.Relation {
				found = e
				break
			}
		}
		if found != nil {
			found.Strength = row.Strength
			found.UpdatedAt = time.Now().UTC()
			out = append(out, found)
			continue
		}
		cp := *row
		if cp.ID == uuid.Nil {
			cp.ID = uuid.New()
		}
		f.edges = append(f.edges, &cp)
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeEdgeRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*domain.DependencyEdge, error) {
	want := map[uuid.UUID]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []*domain.DependencyEdge
	for _, e := range f.edges {
		if want[e.ID] {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEdgeRepo) ListByTarget(dbc dbctx.Context, projectID uuid.UUID, target domain.EntityRef) ([]*domain.DependencyEdge, error) {
	f.listCalls++
	if f.err != nil {
		return nil, f.err
	}
	if err := f.failTargets[target.String()]; err != nil {
		return nil, err
	}
	var out []*domain.DependencyEdge
	for _, e := range f.edges {
		if e.ProjectID == projectID && e.TargetType == target.Type && e.TargetID == target.ID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEdgeRepo) ListBySource(dbc dbctx.Context, projectID uuid.UUID, source domain.EntityRef) ([]*domain.DependencyEdge, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*domain.DependencyEdge
	for _, e := range f.edges {
		if e.ProjectID == projectID && e.SourceType == source.Type && e.SourceID == source.ID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEdgeRepo) ListByProject(dbc dbctx.Context, projectID uuid.UUID) ([]*domain.DependencyEdge, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*domain.DependencyEdge
	for _, e := range f.edges {
		if e.ProjectID == projectID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEdgeRepo) DeleteBySource(dbc dbctx.Context, projectID uuid.UUID, source domain.EntityRef) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	var kept []*domain.DependencyEdge
	var n int64
	for _, e := range f.edges {
		if e.ProjectID == projectID && e.SourceType == source.Type && e.SourceID == source.ID {
			n++
			continue
		}
		kept = append(kept, e)
	}
	f.edges = kept
	return n, nil
}

func (f *fakeEdgeRepo) DeleteBetween(dbc dbctx.Context, projectID uuid.UUID, source, target domain.EntityRef, relation *domain.RelationType) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	var kept []*domain.DependencyEdge
	var n int64
	for _, e := range f.edges {
		match := e.ProjectID == projectID &&
			e.SourceType == source.Type && e.SourceID == source.ID &&
			e.TargetType == target.Type && e.TargetID == target.ID &&
			(relation == nil || e.Relation == *relation)
		if match {
			n++
			continue
		}
		kept = append(kept, e)
	}
	f.edges = kept
	return n, nil
}

// ---- entity store ----

type entityRow struct {
	ref          domain.EntityRef
	projectID    uuid.UUID
	label        string
	confirmation string
	fields       map[string]any
	arrays       map[string][]any
	stale        bool
	staleReason  string
	staleSince   *time.Time
}

type fakeEntityStore struct {
	rows          map[string]*entityRow
	markOrder     []string
	failMarkStale map[string]error
	confErr       error
	updateErr     error
}

func newFakeEntityStore() *fakeEntityStore {
	return &fakeEntityStore{
		rows:          map[string]*entityRow{},
		failMarkStale: map[string]error{},
	}
}

func (f *fakeEntityStore) put(projectID uuid.UUID, ref domain.EntityRef, label string) *entityRow {
	row := &entityRow{
		ref:          ref,
		projectID:    projectID,
		label:        label,
		confirmation: domain.ConfirmationAIGenerated,
		fields:       map[string]any{},
		arrays:       map[string][]any{},
	}
	f.rows[ref.String()] = row
	return row
}

func (f *fakeEntityStore) Supported(entityType domain.EntityType) bool {
	return domain.ValidEntityType(entityType)
}

func (f *fakeEntityStore) Exists(dbc dbctx.Context, projectID uuid.UUID, ref domain.EntityRef) (bool, error) {
	row, ok := f.rows[ref.String()]
	return ok && row.projectID == projectID, nil
}

func (f *fakeEntityStore) Label(dbc dbctx.Context, ref domain.EntityRef) (string, error) {
	row, ok := f.rows[ref.String()]
	if !ok {
		return "", fmt.Errorf("%w: %s", pkgerrors.ErrNotFound, ref.String())
	}
	return row.label, nil
}

func (f *fakeEntityStore) ConfirmationStatus(dbc dbctx.Context, ref domain.EntityRef) (string, error) {
	if f.confErr != nil {
		return "", f.confErr
	}
	row, ok := f.rows[ref.String()]
	if !ok {
		return "", fmt.Errorf("%w: %s", pkgerrors.ErrNotFound, ref.String())
	}
	return row.confirmation, nil
}

func (f *fakeEntityStore) UpdateFields(dbc dbctx.Context, ref domain.EntityRef, updates map[string]interface{}) (bool, error) {
	if f.updateErr != nil {
		return false, f.updateErr
	}
	row, ok := f.rows[ref.String()]
	if !ok {
		return false, nil
	}
	for k, v := range updates {
		row.fields[k] = v
	}
	return true, nil
}

func (f *fakeEntityStore) AppendToJSONArray(dbc dbctx.Context, ref domain.EntityRef, column string, element interface{}) (bool, error) {
	row, ok := f.rows[ref.String()]
	if !ok {
		return false, nil
	}
	for _, existing := range row.arrays[column] {
		if fmt.Sprint(existing) == fmt.Sprint(element) {
			return false, nil
		}
	}
	row.arrays[column] = append(row.arrays[column], element)
	return true, nil
}

func (f *fakeEntityStore) MarkStale(dbc dbctx.Context, ref domain.EntityRef, reason string) (bool, error) {
	if err := f.failMarkStale[ref.String()]; err != nil {
		return false, err
	}
	row, ok := f.rows[ref.String()]
	if !ok {
		return false, nil
	}
	now := time.Now().UTC()
	row.stale = true
	row.staleReason = reason
	row.staleSince = &now
	f.markOrder = append(f.markOrder, ref.String())
	return true, nil
}

func (f *fakeEntityStore) ClearStale(dbc dbctx.Context, projectID uuid.UUID, only []domain.EntityRef) (int64, error) {
	var n int64
	reset := func(row *entityRow) {
		if row.stale {
			n++
		}
		row.stale = false
		row.staleReason = ""
		row.staleSince = nil
	}
	if len(only) == 0 {
		for _, row := range f.rows {
			if row.projectID == projectID {
				reset(row)
			}
		}
		return n, nil
	}
	for _, ref := range only {
		if row, ok := f.rows[ref.String()]; ok && row.projectID == projectID {
			reset(row)
		}
	}
	return n, nil
}

func (f *fakeEntityStore) ListStaleByProject(dbc dbctx.Context, projectID uuid.UUID) ([]*repos.StaleEntity, error) {
	keys := make([]string, 0, len(f.rows))
	for k := range f.rows {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var out []*repos.StaleEntity
	for _, k := range keys {
		row := f.rows[k]
		if row.projectID != projectID || !row.stale {
			continue
		}
		out = append(out, &repos.StaleEntity{
			Type:       row.ref.Type,
			ID:         row.ref.ID,
			Label:      row.label,
			Reason:     row.staleReason,
			StaleSince: row.staleSince,
		})
	}
	return out, nil
}

func (f *fakeEntityStore) staleCount() int {
	n := 0
	for _, row := range f.rows {
		if row.stale {
			n++
		}
	}
	return n
}

// ---- change event repo ----

type fakeChangeRepo struct {
	events     []*domain.ChangeEvent
	claimErr   error
	claimCalls int
}

func newFakeChangeRepo() *fakeChangeRepo { return &fakeChangeRepo{} }

func (f *fakeChangeRepo) Enqueue(dbc dbctx.Context, row *domain.ChangeEvent) (*domain.ChangeEvent, bool, error) {
	for _, e := range f.events {
		if !e.Processed &&
			e.ProjectID == row.ProjectID &&
			e.EntityType == row.EntityType && e.EntityID == row.EntityID &&
			e.ChangeType == row.ChangeType && e.DetailsHash == row.DetailsHash {
			return e, false, nil
		}
	}
	cp := *row
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	f.events = append(f.events, &cp)
	return &cp, true, nil
}

func (f *fakeChangeRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.ChangeEvent, error) {
	for _, e := range f.events {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, nil
}

func (f *fakeChangeRepo) ListPending(dbc dbctx.Context, projectID uuid.UUID, limit int) ([]*domain.ChangeEvent, error) {
	var out []*domain.ChangeEvent
	for _, e := range f.events {
		if e.Processed || e.ProjectID != projectID {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeChangeRepo) ClaimPending(dbc dbctx.Context, projectID *uuid.UUID, autoOnly bool, limit int, reclaimAfter time.Duration) ([]*domain.ChangeEvent, error) {
	f.claimCalls++
	if f.claimErr != nil {
		return nil, f.claimErr
	}
	var out []*domain.ChangeEvent
	now := time.Now().UTC()
	for _, e := range f.events {
		if e.Processed {
			continue
		}
		if projectID != nil && e.ProjectID != *projectID {
			continue
		}
		if autoOnly && e.CascadeTier != domain.TierAuto {
			continue
		}
		if e.ClaimedAt != nil && now.Sub(*e.ClaimedAt) < reclaimAfter {
			continue
		}
		claimed := now
		e.ClaimedAt = &claimed
		out = append(out, e)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (f *fakeChangeRepo) MarkProcessed(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	for _, e := range f.events {
		if e.ID != id {
			continue
		}
		if e.Processed {
			return false, nil
		}
		now := time.Now().UTC()
		e.Processed = true
		e.ProcessedAt = &now
		return true, nil
	}
	return false, nil
}

func (f *fakeChangeRepo) CountPending(dbc dbctx.Context, projectID *uuid.UUID) (int64, error) {
	var n int64
	for _, e := range f.events {
		if e.Processed {
			continue
		}
		if projectID != nil && e.ProjectID != *projectID {
			continue
		}
		n++
	}
	return n, nil
}

// ---- cascade event repo ----

type fakeCascadeRepo struct {
	rows      map[uuid.UUID]*domain.CascadeEvent
	order     []uuid.UUID
	createErr error
}

func newFakeCascadeRepo() *fakeCascadeRepo {
	return &fakeCascadeRepo{rows: map[uuid.UUID]*domain.CascadeEvent{}}
}

func (f *fakeCascadeRepo) Create(dbc dbctx.Context, rows []*domain.CascadeEvent) ([]*domain.CascadeEvent, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	for _, row := range rows {
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		cp := *row
		f.rows[row.ID] = &cp
		f.order = append(f.order, row.ID)
	}
	return rows, nil
}

func (f *fakeCascadeRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.CascadeEvent, error) {
	row, ok := f.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (f *fakeCascadeRepo) ListByProject(dbc dbctx.Context, projectID uuid.UUID, filter repos.CascadeEventFilter) ([]*domain.CascadeEvent, error) {
	var out []*domain.CascadeEvent
	for _, id := range f.order {
		row := f.rows[id]
		if row.ProjectID != projectID {
			continue
		}
		if filter.Tier != nil && row.CascadeTier != *filter.Tier {
			continue
		}
		if filter.Applied != nil && row.Applied != *filter.Applied {
			continue
		}
		if filter.Dismissed != nil && row.Dismissed != *filter.Dismissed {
			continue
		}
		cp := *row
		out = append(out, &cp)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func (f *fakeCascadeRepo) MarkApplied(dbc dbctx.Context, id uuid.UUID, appliedBy string) (bool, error) {
	row, ok := f.rows[id]
	if !ok || row.Applied || row.Dismissed {
		return false, nil
	}
	now := time.Now().UTC()
	row.Applied = true
	row.AppliedAt = &now
	row.AppliedBy = appliedBy
	return true, nil
}

func (f *fakeCascadeRepo) MarkDismissed(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	row, ok := f.rows[id]
	if !ok || row.Applied || row.Dismissed {
		return false, nil
	}
	now := time.Now().UTC()
	row.Dismissed = true
	row.DismissedAt = &now
	return true, nil
}

func (f *fakeCascadeRepo) byStatus() (applied, suggested, logged []*domain.CascadeEvent) {
	for _, id := range f.order {
		row := f.rows[id]
		switch {
		case row.Applied:
			applied = append(applied, row)
		case row.CascadeTier == domain.TierSuggested:
			suggested = append(suggested, row)
		default:
			logged = append(logged, row)
		}
	}
	return applied, suggested, logged
}

// ---- activity repo ----

type fakeActivityRepo struct {
	items     []*domain.ActivityItem
	createErr error
}

func newFakeActivityRepo() *fakeActivityRepo { return &fakeActivityRepo{} }

func (f *fakeActivityRepo) Create(dbc dbctx.Context, rows []*domain.ActivityItem) ([]*domain.ActivityItem, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.items = append(f.items, rows...)
	return rows, nil
}

func (f *fakeActivityRepo) ListByProject(dbc dbctx.Context, projectID uuid.UUID, requiresAction *bool, limit int) ([]*domain.ActivityItem, error) {
	var out []*domain.ActivityItem
	for _, it := range f.items {
		if it.ProjectID != projectID {
			continue
		}
		if requiresAction != nil && it.RequiresAction != *requiresAction {
			continue
		}
		out = append(out, it)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// ---- notifier ----

type notifyCall struct {
	kind           string
	entity         domain.EntityRef
	summary        string
	requiresAction bool
}

type fakeNotifier struct {
	activities []notifyCall
	stale      []domain.EntityRef
	drained    int
}

func (f *fakeNotifier) NotifyActivity(ctx context.Context, projectID uuid.UUID, kind string, entity domain.EntityRef, summary string, requiresAction bool, payload map[string]any) {
	f.activities = append(f.activities, notifyCall{kind: kind, entity: entity, summary: summary, requiresAction: requiresAction})
}

func (f *fakeNotifier) PublishEntityStale(ctx context.Context, projectID uuid.UUID, entity domain.EntityRef, reason string) {
	f.stale = append(f.stale, entity)
}

func (f *fakeNotifier) PublishQueueDrained(ctx context.Context, projectID uuid.UUID, stats *QueueStats) {
	f.drained++
}

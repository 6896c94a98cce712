package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/venturecanvas/venturecanvas-backend/internal/data/repos"
	"github.com/venturecanvas/venturecanvas-backend/internal/domain"
	"github.com/venturecanvas/venturecanvas-backend/internal/modules/cascade"
	"github.com/venturecanvas/venturecanvas-backend/internal/pkg/dbctx"
	pkgerrors "github.com/venturecanvas/venturecanvas-backend/internal/pkg/errors"
	"github.com/venturecanvas/venturecanvas-backend/internal/platform/logger"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

type fakeQueue struct {
	ev      *domain.ChangeEvent
	created bool
	err     error
	lastIn  cascade.QueueChangeInput
}

func (f *fakeQueue) QueueChange(dbc dbctx.Context, in cascade.QueueChangeInput) (*domain.ChangeEvent, bool, error) {
	f.lastIn = in
	return f.ev, f.created, f.err
}

func (f *fakeQueue) GetChange(dbc dbctx.Context, id uuid.UUID) (*domain.ChangeEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.ev, nil
}

func (f *fakeQueue) ListPending(dbc dbctx.Context, projectID uuid.UUID, limit int) ([]*domain.ChangeEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.ev == nil {
		return nil, nil
	}
	return []*domain.ChangeEvent{f.ev}, nil
}

func (f *fakeQueue) CountPending(dbc dbctx.Context, projectID *uuid.UUID) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	if f.ev == nil {
		return 0, nil
	}
	return 1, nil
}

type fakeRouter struct {
	results []*cascade.RouteResult
	outcome *cascade.ApplyOutcome
	event   *domain.CascadeEvent
	err     error

	lastAppliedBy string
}

func (f *fakeRouter) HandleCascade(dbc dbctx.Context, projectID uuid.UUID, op cascade.Operation) ([]*cascade.RouteResult, error) {
	return f.results, f.err
}

func (f *fakeRouter) RouteProposal(dbc dbctx.Context, projectID uuid.UUID, source domain.EntityRef, sourceSummary string, p cascade.ProposalSpec) (*cascade.RouteResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.results) > 0 {
		return f.results[0], nil
	}
	return nil, nil
}

func (f *fakeRouter) ApplyCascadeByID(dbc dbctx.Context, id uuid.UUID, appliedBy string) (*cascade.ApplyOutcome, error) {
	f.lastAppliedBy = appliedBy
	return f.outcome, f.err
}

func (f *fakeRouter) Dismiss(dbc dbctx.Context, id uuid.UUID) (*domain.CascadeEvent, error) {
	return f.event, f.err
}

func (f *fakeRouter) GetCascade(dbc dbctx.Context, id uuid.UUID) (*domain.CascadeEvent, error) {
	return f.event, f.err
}

func (f *fakeRouter) ListCascades(dbc dbctx.Context, projectID uuid.UUID, filter repos.CascadeEventFilter) ([]*domain.CascadeEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.event == nil {
		return nil, nil
	}
	return []*domain.CascadeEvent{f.event}, nil
}

type fakeStaleness struct {
	grouped map[domain.EntityType][]*repos.StaleEntity
	order   []domain.EntityType
	err     error
}

func (f *fakeStaleness) GetStaleEntities(dbc dbctx.Context, projectID uuid.UUID) (map[domain.EntityType][]*repos.StaleEntity, error) {
	return f.grouped, f.err
}

func (f *fakeStaleness) RefreshOrder(dbc dbctx.Context, projectID uuid.UUID) ([]domain.EntityType, error) {
	return f.order, f.err
}

type fakePropagator struct {
	queueStats *cascade.QueueStats
	cleared    int64
	err        error

	lastAutoOnly bool
}

func (f *fakePropagator) PropagateFrom(dbc dbctx.Context, projectID uuid.UUID, origin domain.EntityRef, reason string, maxDepth int) (*cascade.PropagationStats, error) {
	return nil, f.err
}

func (f *fakePropagator) ProcessQueue(ctx context.Context, projectID *uuid.UUID, autoOnly bool, maxChanges int) (*cascade.QueueStats, error) {
	f.lastAutoOnly = autoOnly
	return f.queueStats, f.err
}

func (f *fakePropagator) ClearStaleness(dbc dbctx.Context, projectID uuid.UUID, only []domain.EntityRef) (int64, error) {
	return f.cleared, f.err
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v body=%s", err, rec.Body.String())
	}
	return body
}

func TestQueueChangeEndpointReportsDedup(t *testing.T) {
	gin.SetMode(gin.TestMode)
	projectID := uuid.New()
	existing := &domain.ChangeEvent{ID: uuid.New(), ProjectID: projectID, ChangeType: "persona_updated"}
	queue := &fakeQueue{ev: existing, created: false}
	h := NewChangeHandler(newTestLogger(t), queue, &fakePropagator{})

	r := gin.New()
	r.POST("/api/projects/:project_id/changes", h.QueueChange)

	payload := map[string]any{
		"change_type": "persona_updated",
		"entity":      map[string]any{"type": "persona", "id": uuid.New().String()},
	}
	raw, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/api/projects/"+projectID.String()+"/changes", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: want=%d got=%d body=%s", http.StatusOK, rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if created, _ := body["created"].(bool); created {
		t.Fatalf("created: want=false got=%v", body["created"])
	}
	if queue.lastIn.ProjectID != projectID {
		t.Fatalf("path project id should override body: want=%s got=%s", projectID, queue.lastIn.ProjectID)
	}
}

func TestQueueChangeEndpointRejectsBadProjectID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewChangeHandler(newTestLogger(t), &fakeQueue{}, &fakePropagator{})

	r := gin.New()
	r.POST("/api/projects/:project_id/changes", h.QueueChange)

	req := httptest.NewRequest(http.MethodPost, "/api/projects/not-a-uuid/changes", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: want=%d got=%d", http.StatusBadRequest, rec.Code)
	}
}

func TestProcessQueueEndpointPassesFlags(t *testing.T) {
	gin.SetMode(gin.TestMode)
	prop := &fakePropagator{queueStats: &cascade.QueueStats{ChangesProcessed: 2, EntitiesMarkedStale: 3}}
	h := NewChangeHandler(newTestLogger(t), &fakeQueue{}, prop)

	r := gin.New()
	r.POST("/api/projects/:project_id/changes/process", h.ProcessQueue)

	req := httptest.NewRequest(http.MethodPost, "/api/projects/"+uuid.New().String()+"/changes/process",
		bytes.NewReader([]byte(`{"auto_only":true,"max_changes":10}`)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: want=%d got=%d body=%s", http.StatusOK, rec.Code, rec.Body.String())
	}
	if !prop.lastAutoOnly {
		t.Fatalf("auto_only flag not passed through")
	}
	body := decodeBody(t, rec)
	if got := body["changes_processed"]; got != float64(2) {
		t.Fatalf("changes_processed: want=2 got=%v", got)
	}
}

func TestApplyCascadeEndpointReportsStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ev := &domain.CascadeEvent{ID: uuid.New(), Applied: true}
	router := &fakeRouter{outcome: &cascade.ApplyOutcome{Status: cascade.ApplyStatusAlreadyApplied, Event: ev}}
	h := NewCascadeHandler(newTestLogger(t), router)

	r := gin.New()
	r.POST("/api/cascades/:cascade_id/apply", h.ApplyCascade)

	req := httptest.NewRequest(http.MethodPost, "/api/cascades/"+ev.ID.String()+"/apply",
		bytes.NewReader([]byte(`{"applied_by":"reviewer"}`)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: want=%d got=%d body=%s", http.StatusOK, rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["status"] != cascade.ApplyStatusAlreadyApplied {
		t.Fatalf("status field: want=%q got=%v", cascade.ApplyStatusAlreadyApplied, body["status"])
	}
	if router.lastAppliedBy != "reviewer" {
		t.Fatalf("applied_by: want=%q got=%q", "reviewer", router.lastAppliedBy)
	}
}

func TestApplyCascadeEndpointAllowsEmptyBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := &fakeRouter{outcome: &cascade.ApplyOutcome{Status: cascade.ApplyStatusApplied}}
	h := NewCascadeHandler(newTestLogger(t), router)

	r := gin.New()
	r.POST("/api/cascades/:cascade_id/apply", h.ApplyCascade)

	req := httptest.NewRequest(http.MethodPost, "/api/cascades/"+uuid.New().String()+"/apply", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: want=%d got=%d body=%s", http.StatusOK, rec.Code, rec.Body.String())
	}
}

func TestGetCascadeEndpointMapsNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := &fakeRouter{err: fmt.Errorf("%w: cascade event", pkgerrors.ErrNotFound)}
	h := NewCascadeHandler(newTestLogger(t), router)

	r := gin.New()
	r.GET("/api/cascades/:cascade_id", h.GetCascade)

	req := httptest.NewRequest(http.MethodGet, "/api/cascades/"+uuid.New().String(), nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status: want=%d got=%d", http.StatusNotFound, rec.Code)
	}
	body := decodeBody(t, rec)
	errObj, _ := body["error"].(map[string]any)
	if errObj == nil || errObj["code"] != "not_found" {
		t.Fatalf("error code: want=not_found got=%v", body["error"])
	}
}

func TestDismissCascadeEndpointMapsInvalidState(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := &fakeRouter{err: fmt.Errorf("%w: cascade already applied", pkgerrors.ErrInvalidArgument)}
	h := NewCascadeHandler(newTestLogger(t), router)

	r := gin.New()
	r.POST("/api/cascades/:cascade_id/dismiss", h.DismissCascade)

	req := httptest.NewRequest(http.MethodPost, "/api/cascades/"+uuid.New().String()+"/dismiss", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: want=%d got=%d", http.StatusBadRequest, rec.Code)
	}
}

func TestListCascadesEndpointRejectsUnknownTier(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewCascadeHandler(newTestLogger(t), &fakeRouter{})

	r := gin.New()
	r.GET("/api/projects/:project_id/cascades", h.ListCascades)

	req := httptest.NewRequest(http.MethodGet, "/api/projects/"+uuid.New().String()+"/cascades?tier=urgent", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: want=%d got=%d", http.StatusBadRequest, rec.Code)
	}
}

func TestRefreshOrderEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	staleness := &fakeStaleness{order: []domain.EntityType{domain.EntityPersona, domain.EntityVPStep}}
	h := NewStalenessHandler(newTestLogger(t), staleness, &fakePropagator{})

	r := gin.New()
	r.GET("/api/projects/:project_id/refresh-order", h.RefreshOrder)

	req := httptest.NewRequest(http.MethodGet, "/api/projects/"+uuid.New().String()+"/refresh-order", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: want=%d got=%d body=%s", http.StatusOK, rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	order, _ := body["refresh_order"].([]any)
	if len(order) != 2 || order[0] != string(domain.EntityPersona) || order[1] != string(domain.EntityVPStep) {
		t.Fatalf("refresh_order: got=%v", body["refresh_order"])
	}
}

func TestDependentsEndpointRejectsUnknownEntityType(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewDependencyHandler(newTestLogger(t), nil)

	r := gin.New()
	r.GET("/api/projects/:project_id/entities/:entity_type/:entity_id/dependents", h.ListDependents)

	req := httptest.NewRequest(http.MethodGet,
		"/api/projects/"+uuid.New().String()+"/entities/widget/"+uuid.New().String()+"/dependents", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: want=%d got=%d", http.StatusBadRequest, rec.Code)
	}
	body := decodeBody(t, rec)
	errObj, _ := body["error"].(map[string]any)
	if errObj == nil || errObj["code"] != "invalid_entity_type" {
		t.Fatalf("error code: want=invalid_entity_type got=%v", body["error"])
	}
}

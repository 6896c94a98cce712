package cascade

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/venturecanvas/venturecanvas-backend/internal/domain"
	pkgerrors "github.com/venturecanvas/venturecanvas-backend/internal/pkg/errors"
)

func newTestQueue(t *testing.T, projects *fakeProjectRepo, changes *fakeChangeRepo) Queue {
	t.Helper()
	return NewQueue(testLogger(t), projects, changes, nil)
}

func TestQueueChangeDedupsUnprocessed(t *testing.T) {
	projectID := uuid.New()
	entity := domain.EntityRef{Type: domain.EntityPersona, ID: uuid.New()}
	changes := newFakeChangeRepo()
	q := newTestQueue(t, newFakeProjectRepo(projectID), changes)

	in := QueueChangeInput{
		ProjectID:  projectID,
		ChangeType: "updated",
		Entity:     entity,
		EntityName: "Buyer",
		Details:    map[string]any{"field": "goals", "from": "a", "to": "b"},
	}
	first, created, err := q.QueueChange(testDBC(), in)
	if err != nil {
		t.Fatalf("first QueueChange: %v", err)
	}
	if !created {
		t.Fatalf("first enqueue should create")
	}
	second, created, err := q.QueueChange(testDBC(), in)
	if err != nil {
		t.Fatalf("second QueueChange: %v", err)
	}
	if created {
		t.Fatalf("duplicate enqueue should dedupe")
	}
	if second.ID != first.ID {
		t.Fatalf("dedup must return the existing event: want=%s got=%s", first.ID, second.ID)
	}
	if len(changes.events) != 1 {
		t.Fatalf("stored events: want=1 got=%d", len(changes.events))
	}
}

func TestQueueChangeDifferentDetailsCreatesNewEvent(t *testing.T) {
	projectID := uuid.New()
	entity := domain.EntityRef{Type: domain.EntityPersona, ID: uuid.New()}
	changes := newFakeChangeRepo()
	q := newTestQueue(t, newFakeProjectRepo(projectID), changes)

	if _, _, err := q.QueueChange(testDBC(), QueueChangeInput{
		ProjectID:  projectID,
		ChangeType: "updated",
		Entity:     entity,
		Details:    map[string]any{"field": "goals"},
	}); err != nil {
		t.Fatalf("first QueueChange: %v", err)
	}
	_, created, err := q.QueueChange(testDBC(), QueueChangeInput{
		ProjectID:  projectID,
		ChangeType: "updated",
		Entity:     entity,
		Details:    map[string]any{"field": "name"},
	})
	if err != nil {
		t.Fatalf("second QueueChange: %v", err)
	}
	if !created {
		t.Fatalf("different details must create a second event")
	}
	if len(changes.events) != 2 {
		t.Fatalf("stored events: want=2 got=%d", len(changes.events))
	}
}

func TestQueueChangeDedupAfterProcessing(t *testing.T) {
	projectID := uuid.New()
	entity := domain.EntityRef{Type: domain.EntityPersona, ID: uuid.New()}
	changes := newFakeChangeRepo()
	q := newTestQueue(t, newFakeProjectRepo(projectID), changes)

	in := QueueChangeInput{ProjectID: projectID, ChangeType: "updated", Entity: entity}
	first, _, err := q.QueueChange(testDBC(), in)
	if err != nil {
		t.Fatalf("QueueChange: %v", err)
	}
	if _, err := changes.MarkProcessed(testDBC(), first.ID); err != nil {
		t.Fatalf("MarkProcessed: %v", err)
	}
	_, created, err := q.QueueChange(testDBC(), in)
	if err != nil {
		t.Fatalf("re-QueueChange: %v", err)
	}
	if !created {
		t.Fatalf("processed events must not absorb new reports")
	}
}

func TestQueueChangeHashIgnoresKeyOrder(t *testing.T) {
	a := map[string]any{"from": "a", "to": "b", "nested": map[string]any{"x": 1, "y": 2}}
	b := map[string]any{"nested": map[string]any{"y": 2, "x": 1}, "to": "b", "from": "a"}

	_, hashA, err := hashDetails(a)
	if err != nil {
		t.Fatalf("hashDetails: %v", err)
	}
	_, hashB, err := hashDetails(b)
	if err != nil {
		t.Fatalf("hashDetails: %v", err)
	}
	if hashA != hashB {
		t.Fatalf("hash should not depend on key order: %s vs %s", hashA, hashB)
	}

	_, hashC, err := hashDetails(map[string]any{"from": "a", "to": "c"})
	if err != nil {
		t.Fatalf("hashDetails: %v", err)
	}
	if hashA == hashC {
		t.Fatalf("different payloads must hash differently")
	}
}

func TestQueueChangeDefaultsTierAuto(t *testing.T) {
	projectID := uuid.New()
	q := newTestQueue(t, newFakeProjectRepo(projectID), newFakeChangeRepo())

	ev, _, err := q.QueueChange(testDBC(), QueueChangeInput{
		ProjectID:  projectID,
		ChangeType: "created",
		Entity:     domain.EntityRef{Type: domain.EntityFeature, ID: uuid.New()},
	})
	if err != nil {
		t.Fatalf("QueueChange: %v", err)
	}
	if ev.CascadeTier != domain.TierAuto {
		t.Fatalf("default tier: want=%s got=%s", domain.TierAuto, ev.CascadeTier)
	}
}

func TestQueueChangeValidation(t *testing.T) {
	projectID := uuid.New()
	q := newTestQueue(t, newFakeProjectRepo(projectID), newFakeChangeRepo())
	entity := domain.EntityRef{Type: domain.EntityFeature, ID: uuid.New()}

	cases := []struct {
		name string
		in   QueueChangeInput
		want error
	}{
		{
			"missing project",
			QueueChangeInput{ChangeType: "updated", Entity: entity},
			pkgerrors.ErrInvalidArgument,
		},
		{
			"unknown entity type",
			QueueChangeInput{ProjectID: projectID, ChangeType: "updated", Entity: domain.EntityRef{Type: "widget", ID: uuid.New()}},
			pkgerrors.ErrInvalidArgument,
		},
		{
			"missing change type",
			QueueChangeInput{ProjectID: projectID, ChangeType: "  ", Entity: entity},
			pkgerrors.ErrInvalidArgument,
		},
		{
			"unknown tier",
			QueueChangeInput{ProjectID: projectID, ChangeType: "updated", Entity: entity, CascadeTier: domain.Tier("urgent")},
			pkgerrors.ErrInvalidArgument,
		},
		{
			"unknown project",
			QueueChangeInput{ProjectID: uuid.New(), ChangeType: "updated", Entity: entity},
			pkgerrors.ErrNotFound,
		},
	}
	for _, tc := range cases {
		_, _, err := q.QueueChange(testDBC(), tc.in)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: want %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestGetChangeNotFound(t *testing.T) {
	q := newTestQueue(t, newFakeProjectRepo(), newFakeChangeRepo())
	_, err := q.GetChange(testDBC(), uuid.New())
	if !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

package cascade

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/venturecanvas/venturecanvas-backend/internal/data/repos/testutil"
	"github.com/venturecanvas/venturecanvas-backend/internal/domain"
	"github.com/venturecanvas/venturecanvas-backend/internal/pkg/dbctx"
)

func TestDependencyEdgeRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewDependencyEdgeRepo(db, testutil.Logger(t))

	proj := testutil.SeedProject(t, ctx, tx, "edges")
	persona := domain.EntityRef{Type: domain.EntityPersona, ID: uuid.New()}
	feature := domain.EntityRef{Type: domain.EntityFeature, ID: uuid.New()}
	step := domain.EntityRef{Type: domain.EntityVPStep, ID: uuid.New()}

	edges := []*domain.DependencyEdge{
		{ProjectID: proj.ID, SourceType: feature.Type, SourceID: feature.ID, TargetType: persona.Type, TargetID: persona.ID, Relation: domain.RelationTargets, Strength: 0.9},
		{ProjectID: proj.ID, SourceType: step.Type, SourceID: step.ID, TargetType: feature.Type, TargetID: feature.ID, Relation: domain.RelationUses, Strength: 0.6},
	}
	created, err := repo.Upsert(dbc, edges)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("Upsert: want=2 got=%d", len(created))
	}

	// Self-referencing edges are dropped, not persisted.
	loop := []*domain.DependencyEdge{
		{ProjectID: proj.ID, SourceType: persona.Type, SourceID: persona.ID, TargetType: persona.Type, TargetID: persona.ID, Relation: domain.RelationUses, Strength: 1.0},
	}
	if kept, err := repo.Upsert(dbc, loop); err != nil || len(kept) != 0 {
		t.Fatalf("Upsert(self-loop): err=%v kept=%d", err, len(kept))
	}
	if rows, err := repo.ListByProject(dbc, proj.ID); err != nil || len(rows) != 2 {
		t.Fatalf("ListByProject after self-loop: err=%v len=%d", err, len(rows))
	}

	// Re-registering the same edge updates strength in place.
	again := []*domain.DependencyEdge{
		{ProjectID: proj.ID, SourceType: feature.Type, SourceID: feature.ID, TargetType: persona.Type, TargetID: persona.ID, Relation: domain.RelationTargets, Strength: 0.4},
	}
	if _, err := repo.Upsert(dbc, again); err != nil {
		t.Fatalf("Upsert(update): %v", err)
	}
	rows, err := repo.ListByTarget(dbc, proj.ID, persona)
	if err != nil || len(rows) != 1 {
		t.Fatalf("ListByTarget: err=%v len=%d", err, len(rows))
	}
	if rows[0].Strength != 0.4 {
		t.Fatalf("ListByTarget strength: want=0.4 got=%v", rows[0].Strength)
	}
	if rows[0].SourceID != feature.ID {
		t.Fatalf("ListByTarget source: want=%s got=%s", feature.ID, rows[0].SourceID)
	}

	if rows, err := repo.ListBySource(dbc, proj.ID, step); err != nil || len(rows) != 1 || rows[0].TargetID != feature.ID {
		t.Fatalf("ListBySource: err=%v len=%d", err, len(rows))
	}
	if rows, err := repo.ListBySource(dbc, proj.ID, persona); err != nil || len(rows) != 0 {
		t.Fatalf("ListBySource(persona): err=%v len=%d", err, len(rows))
	}

	// Relation-scoped removal leaves edges with other relations alone.
	other := []*domain.DependencyEdge{
		{ProjectID: proj.ID, SourceType: feature.Type, SourceID: feature.ID, TargetType: persona.Type, TargetID: persona.ID, Relation: domain.RelationInformedBy, Strength: 0.5},
	}
	if _, err := repo.Upsert(dbc, other); err != nil {
		t.Fatalf("Upsert(second relation): %v", err)
	}
	rel := domain.RelationTargets
	if n, err := repo.DeleteBetween(dbc, proj.ID, feature, persona, &rel); err != nil || n != 1 {
		t.Fatalf("DeleteBetween(relation): err=%v n=%d", err, n)
	}
	if rows, err := repo.ListByTarget(dbc, proj.ID, persona); err != nil || len(rows) != 1 || rows[0].Relation != domain.RelationInformedBy {
		t.Fatalf("ListByTarget after scoped delete: err=%v len=%d", err, len(rows))
	}
	if n, err := repo.DeleteBetween(dbc, proj.ID, feature, persona, nil); err != nil || n != 1 {
		t.Fatalf("DeleteBetween(all relations): err=%v n=%d", err, n)
	}

	if n, err := repo.DeleteBySource(dbc, proj.ID, step); err != nil || n != 1 {
		t.Fatalf("DeleteBySource: err=%v n=%d", err, n)
	}
	if rows, err := repo.ListByProject(dbc, proj.ID); err != nil || len(rows) != 0 {
		t.Fatalf("ListByProject after deletes: err=%v len=%d", err, len(rows))
	}
}

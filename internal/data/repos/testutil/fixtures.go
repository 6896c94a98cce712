package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/venturecanvas/venturecanvas-backend/internal/domain"
)

func SeedProject(tb testing.TB, ctx context.Context, tx *gorm.DB, name string) *domain.Project {
	tb.Helper()
	p := &domain.Project{
		ID:    uuid.New(),
		Name:  name,
		Stage: "discovery",
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed project: %v", err)
	}
	return p
}

func SeedPersona(tb testing.TB, ctx context.Context, tx *gorm.DB, projectID uuid.UUID, name string) *domain.Persona {
	tb.Helper()
	p := &domain.Persona{
		ID:                 uuid.New(),
		ProjectID:          projectID,
		Name:               name,
		ConfirmationStatus: domain.ConfirmationAIGenerated,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed persona: %v", err)
	}
	return p
}

func SeedFeature(tb testing.TB, ctx context.Context, tx *gorm.DB, projectID uuid.UUID, title string) *domain.Feature {
	tb.Helper()
	f := &domain.Feature{
		ID:                 uuid.New(),
		ProjectID:          projectID,
		Title:              title,
		ConfirmationStatus: domain.ConfirmationAIGenerated,
	}
	if err := tx.WithContext(ctx).Create(f).Error; err != nil {
		tb.Fatalf("seed feature: %v", err)
	}
	return f
}

func SeedVPStep(tb testing.TB, ctx context.Context, tx *gorm.DB, projectID uuid.UUID, position int, title string) *domain.VPStep {
	tb.Helper()
	s := &domain.VPStep{
		ID:                 uuid.New(),
		ProjectID:          projectID,
		Position:           position,
		Title:              title,
		StepKind:           "activity",
		NeededFeatureIDs:   datatypes.JSON([]byte("[]")),
		ConfirmationStatus: domain.ConfirmationAIGenerated,
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed vp step: %v", err)
	}
	return s
}

func SeedDataEntity(tb testing.TB, ctx context.Context, tx *gorm.DB, projectID uuid.UUID, name string) *domain.DataEntity {
	tb.Helper()
	d := &domain.DataEntity{
		ID:                 uuid.New(),
		ProjectID:          projectID,
		Name:               name,
		ConfirmationStatus: domain.ConfirmationAIGenerated,
	}
	if err := tx.WithContext(ctx).Create(d).Error; err != nil {
		tb.Fatalf("seed data entity: %v", err)
	}
	return d
}

func SeedEdge(tb testing.TB, ctx context.Context, tx *gorm.DB, projectID uuid.UUID, source, target domain.EntityRef, relation domain.RelationType, strength float64) *domain.DependencyEdge {
	tb.Helper()
	e := &domain.DependencyEdge{
		ID:         uuid.New(),
		ProjectID:  projectID,
		SourceType: source.Type,
		SourceID:   source.ID,
		TargetType: target.Type,
		TargetID:   target.ID,
		Relation:   relation,
		Strength:   strength,
	}
	if err := tx.WithContext(ctx).Create(e).Error; err != nil {
		tb.Fatalf("seed edge: %v", err)
	}
	return e
}

func SeedChangeEvent(tb testing.TB, ctx context.Context, tx *gorm.DB, projectID uuid.UUID, entity domain.EntityRef, changeType string) *domain.ChangeEvent {
	tb.Helper()
	ev := &domain.ChangeEvent{
		ID:          uuid.New(),
		ProjectID:   projectID,
		ChangeType:  changeType,
		EntityType:  entity.Type,
		EntityID:    entity.ID,
		Details:     datatypes.JSON([]byte("{}")),
		CascadeTier: domain.TierAuto,
	}
	if err := tx.WithContext(ctx).Create(ev).Error; err != nil {
		tb.Fatalf("seed change event: %v", err)
	}
	return ev
}

func SeedCascadeEvent(tb testing.TB, ctx context.Context, tx *gorm.DB, projectID uuid.UUID, source, target domain.EntityRef, tier domain.Tier, confidence float64) *domain.CascadeEvent {
	tb.Helper()
	ev := &domain.CascadeEvent{
		ID:          uuid.New(),
		ProjectID:   projectID,
		SourceType:  source.Type,
		SourceID:    source.ID,
		TargetType:  target.Type,
		TargetID:    target.ID,
		CascadeTier: tier,
		Confidence:  confidence,
		Changes:     datatypes.JSON([]byte(`{}`)),
	}
	if err := tx.WithContext(ctx).Create(ev).Error; err != nil {
		tb.Fatalf("seed cascade event: %v", err)
	}
	return ev
}

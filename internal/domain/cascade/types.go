package cascade

import (
	"fmt"

	"github.com/google/uuid"

	pkgerrors "github.com/venturecanvas/venturecanvas-backend/internal/pkg/errors"
)

// EntityType is the closed set of canvas entity kinds the propagation core
// reasons about. Unknown values are rejected at the boundary, never coerced.
type EntityType string

const (
	EntityPersona          EntityType = "persona"
	EntityFeature          EntityType = "feature"
	EntityVPStep           EntityType = "vp_step"
	EntityStrategicContext EntityType = "strategic_context"
	EntityStakeholder      EntityType = "stakeholder"
	EntityDataEntity       EntityType = "data_entity"
	EntityBusinessDriver   EntityType = "business_driver"
	EntityUnlock           EntityType = "unlock"
)

var entityTypes = map[EntityType]bool{
	EntityPersona:          true,
	EntityFeature:          true,
	EntityVPStep:           true,
	EntityStrategicContext: true,
	EntityStakeholder:      true,
	EntityDataEntity:       true,
	EntityBusinessDriver:   true,
	EntityUnlock:           true,
}

func ValidEntityType(t EntityType) bool { return entityTypes[t] }

// RelationType describes why a source entity depends on a target entity.
type RelationType string

const (
	RelationUses        RelationType = "uses"
	RelationTargets     RelationType = "targets"
	RelationDerivedFrom RelationType = "derived_from"
	RelationInformedBy  RelationType = "informed_by"
	RelationActorOf     RelationType = "actor_of"
	RelationSpawns      RelationType = "spawns"
	RelationEnables     RelationType = "enables"
	RelationConstrains  RelationType = "constrains"
)

var relationTypes = map[RelationType]bool{
	RelationUses:        true,
	RelationTargets:     true,
	RelationDerivedFrom: true,
	RelationInformedBy:  true,
	RelationActorOf:     true,
	RelationSpawns:      true,
	RelationEnables:     true,
	RelationConstrains:  true,
}

func ValidRelationType(r RelationType) bool { return relationTypes[r] }

// Tier is the cascade handling tier assigned from a confidence score.
type Tier string

const (
	TierAuto      Tier = "auto"
	TierSuggested Tier = "suggested"
	TierLogged    Tier = "logged"
)

func ValidTier(t Tier) bool {
	switch t {
	case TierAuto, TierSuggested, TierLogged:
		return true
	default:
		return false
	}
}

// Severity grades a proposed patch as classified by the upstream agent.
const (
	SeverityMinor    = "minor"
	SeverityModerate = "moderate"
	SeverityMajor    = "major"
)

// ConfirmationConfirmedClient marks entity content a human has signed off
// on. Confirmed content is never silently overwritten by auto-apply.
const (
	ConfirmationAIGenerated     = "ai_generated"
	ConfirmationConfirmedClient = "confirmed_client"
)

// EntityRef identifies a canvas entity by type and id. The core never
// dereferences entity content through it, only identity and relations.
type EntityRef struct {
	Type EntityType `json:"type"`
	ID   uuid.UUID  `json:"id"`
}

func (r EntityRef) Validate() error {
	if !ValidEntityType(r.Type) {
		return fmt.Errorf("%w: unknown entity type %q", pkgerrors.ErrInvalidArgument, r.Type)
	}
	if r.ID == uuid.Nil {
		return fmt.Errorf("%w: missing entity id", pkgerrors.ErrInvalidArgument)
	}
	return nil
}

func (r EntityRef) String() string {
	return string(r.Type) + ":" + r.ID.String()
}

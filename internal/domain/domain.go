package domain

import (
	"github.com/venturecanvas/venturecanvas-backend/internal/domain/canvas"
	"github.com/venturecanvas/venturecanvas-backend/internal/domain/cascade"
	"github.com/venturecanvas/venturecanvas-backend/internal/domain/project"
)

// Aliases so callers can keep importing one domain package while models
// live in their own subpackages.

type Project = project.Project

type Persona = canvas.Persona
type Feature = canvas.Feature
type VPStep = canvas.VPStep
type StrategicContext = canvas.StrategicContext
type Stakeholder = canvas.Stakeholder
type DataEntity = canvas.DataEntity
type BusinessDriver = canvas.BusinessDriver
type Unlock = canvas.Unlock

type EntityType = cascade.EntityType
type RelationType = cascade.RelationType
type Tier = cascade.Tier
type EntityRef = cascade.EntityRef
type DependencyEdge = cascade.DependencyEdge
type ChangeEvent = cascade.ChangeEvent
type CascadeEvent = cascade.CascadeEvent
type ActivityItem = cascade.ActivityItem

const (
	EntityPersona          = cascade.EntityPersona
	EntityFeature          = cascade.EntityFeature
	EntityVPStep           = cascade.EntityVPStep
	EntityStrategicContext = cascade.EntityStrategicContext
	EntityStakeholder      = cascade.EntityStakeholder
	EntityDataEntity       = cascade.EntityDataEntity
	EntityBusinessDriver   = cascade.EntityBusinessDriver
	EntityUnlock           = cascade.EntityUnlock

	RelationUses        = cascade.RelationUses
	RelationTargets     = cascade.RelationTargets
	RelationDerivedFrom = cascade.RelationDerivedFrom
	RelationInformedBy  = cascade.RelationInformedBy
	RelationActorOf     = cascade.RelationActorOf
	RelationSpawns      = cascade.RelationSpawns
	RelationEnables     = cascade.RelationEnables
	RelationConstrains  = cascade.RelationConstrains

	TierAuto      = cascade.TierAuto
	TierSuggested = cascade.TierSuggested
	TierLogged    = cascade.TierLogged

	SeverityMinor    = cascade.SeverityMinor
	SeverityModerate = cascade.SeverityModerate
	SeverityMajor    = cascade.SeverityMajor

	ConfirmationAIGenerated     = cascade.ConfirmationAIGenerated
	ConfirmationConfirmedClient = cascade.ConfirmationConfirmedClient
)

func ValidEntityType(t EntityType) bool     { return cascade.ValidEntityType(t) }
func ValidRelationType(r RelationType) bool { return cascade.ValidRelationType(r) }
func ValidTier(t Tier) bool                 { return cascade.ValidTier(t) }

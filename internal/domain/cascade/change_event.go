package cascade

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ChangeEvent is one queued "entity changed" report awaiting a processing
// pass. The processed flag prevents reprocessing; it is a CAS guard, not a
// lock. The partial unique index enforces at most one unprocessed event per
// (project, entity, change_type, details_hash).
type ChangeEvent struct {
	ID uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`

	ProjectID uuid.UUID `gorm:"type:uuid;column:project_id;not null;index:idx_change_event_project;index:idx_change_event_dedup,unique,priority:1,where:processed = false" json:"project_id"`

	ChangeType string     `gorm:"column:change_type;not null;index:idx_change_event_dedup,unique,priority:4,where:processed = false" json:"change_type"`
	EntityType EntityType `gorm:"column:entity_type;not null;index:idx_change_event_dedup,unique,priority:2,where:processed = false" json:"entity_type"`
	EntityID   uuid.UUID  `gorm:"type:uuid;column:entity_id;not null;index:idx_change_event_dedup,unique,priority:3,where:processed = false" json:"entity_id"`
	EntityName string     `gorm:"column:entity_name" json:"entity_name,omitempty"`

	Details     datatypes.JSON `gorm:"column:details;type:jsonb" json:"details,omitempty"`
	DetailsHash string         `gorm:"column:details_hash;not null;default:'';index:idx_change_event_dedup,unique,priority:5,where:processed = false" json:"details_hash"`

	TargetEntityType *EntityType    `gorm:"column:target_entity_type" json:"target_entity_type,omitempty"`
	TargetEntityIDs  datatypes.JSON `gorm:"column:target_entity_ids;type:jsonb" json:"target_entity_ids,omitempty"`

	CascadeTier Tier `gorm:"column:cascade_tier;not null;default:'auto';index" json:"cascade_tier"`
	Priority    int  `gorm:"column:priority;not null;default:0" json:"priority"`

	Processed   bool       `gorm:"column:processed;not null;default:false;index:idx_change_event_pending" json:"processed"`
	ClaimedAt   *time.Time `gorm:"column:claimed_at;index" json:"claimed_at,omitempty"`
	CreatedAt   time.Time  `gorm:"not null;default:now();index:idx_change_event_pending" json:"created_at"`
	ProcessedAt *time.Time `gorm:"column:processed_at" json:"processed_at,omitempty"`
}

func (ChangeEvent) TableName() string { return "change_event" }

func (e *ChangeEvent) Entity() EntityRef {
	return EntityRef{Type: e.EntityType, ID: e.EntityID}
}

package cascade

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// CascadeEvent is the persisted audit record of one routed cascade
// proposal. Applied transitions false -> true exactly once (CAS); an
// already-true transition means someone else applied it and is success.
type CascadeEvent struct {
	ID uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`

	ProjectID uuid.UUID `gorm:"type:uuid;column:project_id;not null;index:idx_cascade_event_project" json:"project_id"`

	SourceType    EntityType `gorm:"column:source_type;not null;index:idx_cascade_event_source" json:"source_type"`
	SourceID      uuid.UUID  `gorm:"type:uuid;column:source_id;not null;index:idx_cascade_event_source" json:"source_id"`
	SourceSummary string     `gorm:"column:source_summary;type:text" json:"source_summary,omitempty"`

	TargetType    EntityType `gorm:"column:target_type;not null;index:idx_cascade_event_target" json:"target_type"`
	TargetID      uuid.UUID  `gorm:"type:uuid;column:target_id;not null;index:idx_cascade_event_target" json:"target_id"`
	TargetSummary string     `gorm:"column:target_summary;type:text" json:"target_summary,omitempty"`

	CascadeTier Tier           `gorm:"column:cascade_tier;not null;index" json:"cascade_tier"`
	Confidence  float64        `gorm:"column:confidence;not null;default:0" json:"confidence"`
	Changes     datatypes.JSON `gorm:"column:changes;type:jsonb" json:"changes,omitempty"`
	Rationale   string         `gorm:"column:rationale;type:text" json:"rationale,omitempty"`

	Applied   bool       `gorm:"column:applied;not null;default:false;index" json:"applied"`
	AppliedAt *time.Time `gorm:"column:applied_at" json:"applied_at,omitempty"`
	AppliedBy string     `gorm:"column:applied_by" json:"applied_by,omitempty"`

	Dismissed   bool       `gorm:"column:dismissed;not null;default:false" json:"dismissed"`
	DismissedAt *time.Time `gorm:"column:dismissed_at" json:"dismissed_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (CascadeEvent) TableName() string { return "cascade_event" }

func (c *CascadeEvent) Source() EntityRef {
	return EntityRef{Type: c.SourceType, ID: c.SourceID}
}

func (c *CascadeEvent) Target() EntityRef {
	return EntityRef{Type: c.TargetType, ID: c.TargetID}
}

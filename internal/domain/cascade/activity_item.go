package cascade

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ActivityItem is one row on the project activity/confirmation feed.
// Items with RequiresAction form the review queue for suggested cascades.
type ActivityItem struct {
	ID uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`

	ProjectID uuid.UUID `gorm:"type:uuid;column:project_id;not null;index:idx_activity_item_project" json:"project_id"`

	Kind string `gorm:"column:kind;not null;index" json:"kind"`

	EntityType EntityType `gorm:"column:entity_type;not null" json:"entity_type"`
	EntityID   uuid.UUID  `gorm:"type:uuid;column:entity_id;not null" json:"entity_id"`

	Summary        string         `gorm:"column:summary;type:text;not null" json:"summary"`
	RequiresAction bool           `gorm:"column:requires_action;not null;default:false;index" json:"requires_action"`
	Payload        datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now();index" json:"created_at"`
}

func (ActivityItem) TableName() string { return "activity_item" }

func (a *ActivityItem) Entity() EntityRef {
	return EntityRef{Type: a.EntityType, ID: a.EntityID}
}
